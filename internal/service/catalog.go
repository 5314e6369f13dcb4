package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/holocronapp/holocron-server/internal/availability"
	"github.com/holocronapp/holocron-server/internal/domain"
	domainerrors "github.com/holocronapp/holocron-server/internal/errors"
	"github.com/holocronapp/holocron-server/internal/metadata/databank"
	"github.com/holocronapp/holocron-server/internal/metadata/swapi"
	"github.com/holocronapp/holocron-server/internal/reference"
	"github.com/holocronapp/holocron-server/internal/validation"
)

// Primary is the content source for entity listings.
type Primary interface {
	ListEntities(ctx context.Context, category domain.Category, params databank.ListParams) (*domain.EntityPage, error)
	GetEntity(ctx context.Context, category domain.Category, id string) (*domain.BaseEntity, error)
	DefaultLimit() int
	BreakerState() string
}

// Enricher merges secondary attributes into primary entities.
type Enricher interface {
	EnrichEntity(ctx context.Context, category domain.Category, base domain.BaseEntity) domain.EnrichedEntity
	EnrichBatch(ctx context.Context, category domain.Category, entities []domain.BaseEntity) []domain.EnrichedEntity
	ClearCache(ctx context.Context) (int, error)
	ForceRetry(ctx context.Context) (int, error)
}

// SWAPIProxy serves direct SWAPI searches.
type SWAPIProxy interface {
	SearchPage(ctx context.Context, endpoint swapi.Endpoint, query string, page int) (*swapi.Page, error)
}

// Tracker exposes SWAPI availability.
type Tracker interface {
	Status() availability.Status
	RecordFailure(err error)
	RecordSuccess()
}

// CacheCounter reports how many entities are cached.
type CacheCounter interface {
	CountEnriched(ctx context.Context) (int, error)
}

// ReferenceStats reports resolver cache sizes.
type ReferenceStats interface {
	Stats() reference.Stats
}

// EnrichmentStatus is the operator view of the enrichment subsystem.
type EnrichmentStatus struct {
	SWAPI          availability.Status `json:"swapi"`
	CachedEntities int                 `json:"cached_entities"`
	References     reference.Stats     `json:"references"`
	PrimaryBreaker string              `json:"primary_breaker"`
}

// ProxyParams selects one page of a direct SWAPI search.
type ProxyParams struct {
	Endpoint string `json:"endpoint" validate:"required,swapi_endpoint"`
	Search   string `json:"search" validate:"max=100"`
	Page     int    `json:"page" validate:"gte=0,lte=1000"`
}

// CatalogService is the facade the HTTP API and CLI talk to: it fetches
// from the databank, enriches the result and exposes operator controls.
type CatalogService struct {
	primary   Primary
	enricher  Enricher
	proxy     SWAPIProxy
	tracker   Tracker
	cache     CacheCounter
	refs      ReferenceStats
	validator *validation.Validator
	logger    *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(
	primary Primary,
	enricher Enricher,
	proxy SWAPIProxy,
	tracker Tracker,
	cache CacheCounter,
	refs ReferenceStats,
	validator *validation.Validator,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		primary:   primary,
		enricher:  enricher,
		proxy:     proxy,
		tracker:   tracker,
		cache:     cache,
		refs:      refs,
		validator: validator,
		logger:    logger,
	}
}

// Categories returns the category table.
func (s *CatalogService) Categories() []domain.CategoryInfo {
	return domain.Categories()
}

// ListEnriched fetches one page of a category and enriches every entity on it.
func (s *CatalogService) ListEnriched(ctx context.Context, category string, params databank.ListParams) (*domain.EnrichedPage, error) {
	cat, err := parseCategory(category)
	if err != nil {
		return nil, err
	}

	params = params.WithDefaults(s.primary.DefaultLimit())
	if err := s.validator.Validate(params); err != nil {
		return nil, err
	}

	page, err := s.primary.ListEntities(ctx, cat, params)
	if err != nil {
		return nil, s.primaryError(cat, err)
	}

	data := s.enricher.EnrichBatch(ctx, cat, page.Data)

	summary := domain.EnrichmentSummary{
		Available: s.tracker.Status().Reachable,
		Total:     len(data),
	}
	for i := range data {
		if data[i].Matched {
			summary.Matched++
		}
	}
	summary.Partial = cat.Info().Enrichable && summary.Matched < summary.Total

	return &domain.EnrichedPage{
		Info:       page.Info,
		Data:       data,
		Enrichment: summary,
	}, nil
}

// GetEnriched fetches and enriches a single entity.
func (s *CatalogService) GetEnriched(ctx context.Context, category, id string) (*domain.EnrichedEntity, error) {
	cat, err := parseCategory(category)
	if err != nil {
		return nil, err
	}

	base, err := s.primary.GetEntity(ctx, cat, id)
	if err != nil {
		return nil, s.primaryError(cat, err)
	}

	e := s.enricher.EnrichEntity(ctx, cat, *base)
	return &e, nil
}

// ProxySearch runs a search directly against SWAPI. Unlike enrichment, a
// SWAPI failure here is an error for the caller.
func (s *CatalogService) ProxySearch(ctx context.Context, params ProxyParams) (*swapi.Page, error) {
	if err := s.validator.Validate(params); err != nil {
		return nil, err
	}
	endpoint, _ := swapi.ParseEndpoint(params.Endpoint)

	page, err := s.proxy.SearchPage(ctx, endpoint, params.Search, params.Page)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if swapi.IsTransient(err) {
			s.tracker.RecordFailure(err)
		}
		if errors.Is(err, swapi.ErrRateLimited) {
			return nil, domainerrors.Wrap(err, domainerrors.CodeRateLimited, "SWAPI rate limit reached. Please try again later.")
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeUpstream, "Failed to fetch data from SWAPI")
	}
	s.tracker.RecordSuccess()
	return page, nil
}

// Status reports availability, cache and breaker state.
func (s *CatalogService) Status(ctx context.Context) (*EnrichmentStatus, error) {
	n, err := s.cache.CountEnriched(ctx)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to read enrichment cache")
	}
	return &EnrichmentStatus{
		SWAPI:          s.tracker.Status(),
		CachedEntities: n,
		References:     s.refs.Stats(),
		PrimaryBreaker: s.primary.BreakerState(),
	}, nil
}

// ClearCache drops every cached enrichment and returns how many were removed.
func (s *CatalogService) ClearCache(ctx context.Context) (int, error) {
	n, err := s.enricher.ClearCache(ctx)
	if err != nil {
		return 0, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to clear enrichment cache")
	}
	s.logger.Info("enrichment cache cleared", "entries", n)
	return n, nil
}

// ForceRetry marks SWAPI reachable and clears the cache so the next request
// attempts enrichment again.
func (s *CatalogService) ForceRetry(ctx context.Context) (int, error) {
	n, err := s.enricher.ForceRetry(ctx)
	if err != nil {
		return 0, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to reset enrichment")
	}
	s.logger.Info("enrichment retry forced", "entries", n)
	return n, nil
}

func parseCategory(s string) (domain.Category, error) {
	cat, ok := domain.ParseCategory(s)
	if !ok {
		return "", domainerrors.NotFoundf("unknown category %q", s)
	}
	return cat, nil
}

// primaryError maps a databank failure onto a domain error carrying the
// user-facing message.
func (s *CatalogService) primaryError(category domain.Category, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	msg := fmt.Sprintf("Failed to fetch %s", category)
	var dbErr *databank.Error
	if errors.As(err, &dbErr) {
		msg = dbErr.UserMessage()
	}

	var code domainerrors.Code
	switch {
	case errors.Is(err, databank.ErrNotFound):
		code = domainerrors.CodeNotFound
	case errors.Is(err, databank.ErrInvalidRequest), errors.Is(err, databank.ErrBadRequest):
		code = domainerrors.CodeValidation
	case errors.Is(err, databank.ErrUnavailable):
		code = domainerrors.CodeUnavailable
	case errors.Is(err, databank.ErrRateLimited):
		code = domainerrors.CodeRateLimited
	default:
		code = domainerrors.CodeUpstream
	}
	if code != domainerrors.CodeNotFound {
		s.logger.Error("primary source failed", "category", category, "error", err)
	}
	return domainerrors.Wrap(err, code, msg)
}
