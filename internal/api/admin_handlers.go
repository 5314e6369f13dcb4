package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/holocronapp/holocron-server/internal/service"
)

func (s *Server) registerAdminRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getEnrichmentStatus",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/enrichment",
		Summary:     "Enrichment status",
		Description: "Reports SWAPI availability, cache size and databank circuit breaker state",
		Tags:        []string{"Admin"},
	}, s.handleGetEnrichmentStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "clearEnrichmentCache",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/enrichment/cache/clear",
		Summary:     "Clear enrichment cache",
		Description: "Drops every cached enrichment so entities are enriched again on next request",
		Tags:        []string{"Admin"},
	}, s.handleClearEnrichmentCache)

	huma.Register(s.api, huma.Operation{
		OperationID: "retryEnrichment",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/enrichment/retry",
		Summary:     "Force enrichment retry",
		Description: "Marks SWAPI reachable and clears the cache so unenriched entities get another attempt",
		Tags:        []string{"Admin"},
	}, s.handleRetryEnrichment)
}

type EnrichmentStatusOutput struct {
	CacheControl string `header:"Cache-Control"`
	Body         *service.EnrichmentStatus
}

type CacheResetResponse struct {
	Cleared int `json:"cleared" doc:"Number of cached entities removed"`
}

type CacheResetOutput struct {
	Body CacheResetResponse
}

func (s *Server) handleGetEnrichmentStatus(ctx context.Context, _ *struct{}) (*EnrichmentStatusOutput, error) {
	status, err := s.services.Catalog.Status(ctx)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &EnrichmentStatusOutput{CacheControl: CacheNoStore, Body: status}, nil
}

func (s *Server) handleClearEnrichmentCache(ctx context.Context, _ *struct{}) (*CacheResetOutput, error) {
	n, err := s.services.Catalog.ClearCache(ctx)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &CacheResetOutput{Body: CacheResetResponse{Cleared: n}}, nil
}

func (s *Server) handleRetryEnrichment(ctx context.Context, _ *struct{}) (*CacheResetOutput, error) {
	n, err := s.services.Catalog.ForceRetry(ctx)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &CacheResetOutput{Body: CacheResetResponse{Cleared: n}}, nil
}
