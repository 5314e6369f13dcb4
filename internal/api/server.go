// Package api provides the HTTP API server and handlers for Holocron.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	domainerrors "github.com/holocronapp/holocron-server/internal/errors"
	"github.com/holocronapp/holocron-server/internal/http/response"
	"github.com/holocronapp/holocron-server/internal/ratelimit"
	"github.com/holocronapp/holocron-server/internal/store"
)

// Config configures the HTTP surface.
type Config struct {
	Version        string
	AllowedOrigins []string
	RateLimitRPS   float64 // per client IP
	RateLimitBurst int
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store    *store.Store
	services *Services
	router   *chi.Mux
	api      huma.API
	limiter  *ratelimit.KeyedRateLimiter
	version  string
	logger   *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(cfg Config, st *store.Store, services *Services, logger *slog.Logger) *Server {
	s := &Server{
		store:    st,
		services: services,
		router:   chi.NewRouter(),
		version:  cfg.Version,
		logger:   logger,
	}
	if cfg.RateLimitRPS > 0 {
		s.limiter = ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	s.setupMiddleware(cfg)

	humaConfig := huma.DefaultConfig("Holocron API", cfg.Version)
	humaConfig.Info.Description = "Star Wars Databank entities enriched with canonical SWAPI attributes"
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerCatalogRoutes()
	s.registerSWAPIRoutes()
	s.registerAdminRoutes()

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.HandleError(w, domainerrors.NotFoundf("route not found: %s", r.URL.Path), s.logger)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.MethodNotAllowed(w, "method "+r.Method+" not allowed", s.logger)
	})

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, used for OpenAPI export and tests.
func (s *Server) API() huma.API {
	return s.api
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// setupMiddleware configures the middleware stack. Chi requires this before
// any route is registered.
func (s *Server) setupMiddleware(cfg Config) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	if s.limiter != nil {
		s.router.Use(RateLimitMiddleware(s.limiter, s.logger))
	}
}
