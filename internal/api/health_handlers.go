package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// Component health states.
const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Version    string                     `json:"version,omitempty" doc:"Server version"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"cache": s.checkCache(ctx),
	}

	if s.services != nil && s.services.Catalog != nil {
		swapiHealth, databankHealth := s.checkSources(ctx)
		components["swapi"] = swapiHealth
		components["databank"] = databankHealth
	}

	overall := statusHealthy
	for name, c := range components {
		switch {
		case c.Status == statusUnhealthy && name == "cache":
			overall = statusUnhealthy
		case c.Status != statusHealthy && overall == statusHealthy:
			overall = statusDegraded
		}
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Version:    s.version,
			Components: components,
		},
	}, nil
}

// checkCache verifies the enrichment cache is accessible.
func (s *Server) checkCache(ctx context.Context) ComponentHealth {
	if s.store == nil {
		return ComponentHealth{
			Status:  statusDegraded,
			Message: "cache not configured",
		}
	}

	start := time.Now()
	err := s.store.Ping(ctx)
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Status:  statusUnhealthy,
			Latency: latency.String(),
			Message: "cache read failed",
		}
	}
	return ComponentHealth{Status: statusHealthy, Latency: latency.String()}
}

// checkSources reports SWAPI availability and the databank breaker. Neither
// makes a network call.
func (s *Server) checkSources(ctx context.Context) (swapiHealth, databankHealth ComponentHealth) {
	status, err := s.services.Catalog.Status(ctx)
	if err != nil {
		down := ComponentHealth{Status: statusDegraded, Message: "status unavailable"}
		return down, down
	}

	swapiHealth = ComponentHealth{Status: statusHealthy, Message: formatCached(status.CachedEntities)}
	if !status.SWAPI.Reachable {
		swapiHealth = ComponentHealth{
			Status:  statusDegraded,
			Message: "unreachable, serving unenriched entities",
		}
		if !status.SWAPI.NextCheckAt.IsZero() {
			swapiHealth.Message += "; next check at " + status.SWAPI.NextCheckAt.UTC().Format(time.RFC3339)
		}
	}

	databankHealth = ComponentHealth{Status: statusHealthy, Message: "circuit " + status.PrimaryBreaker}
	if status.PrimaryBreaker != "closed" {
		databankHealth.Status = statusDegraded
	}
	return swapiHealth, databankHealth
}

func formatCached(n int) string {
	if n == 1 {
		return "1 cached entity"
	}
	return fmt.Sprintf("%d cached entities", n)
}
