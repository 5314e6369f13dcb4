// Package enrichment merges SWAPI attributes into databank entities.
//
// Enrichment is best effort. Every SWAPI problem degrades to an unenriched
// entity; nothing here returns an error to the caller. Results are cached per
// (category, id) for the life of the process, so each entity is enriched at
// most once until the cache is cleared.
package enrichment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/holocronapp/holocron-server/internal/domain"
	"github.com/holocronapp/holocron-server/internal/id"
	"github.com/holocronapp/holocron-server/internal/match"
	"github.com/holocronapp/holocron-server/internal/metadata/swapi"
)

const defaultBatchConcurrency = 8

// Searcher finds SWAPI records by name.
type Searcher interface {
	Search(ctx context.Context, endpoint swapi.Endpoint, name string) ([]swapi.Record, error)
}

// Availability gates SWAPI calls.
type Availability interface {
	IsAvailable(ctx context.Context) bool
	RecordFailure(err error)
	RecordSuccess()
	Reset()
}

// References resolves SWAPI cross-references to names.
type References interface {
	ResolveFilmTitles(ctx context.Context, refs []string) []string
	ResolvePlanetName(ctx context.Context, ref string) string
}

// Cache stores enriched entities.
type Cache interface {
	GetEnriched(ctx context.Context, category domain.Category, id string) (*domain.EnrichedEntity, error)
	PutEnriched(ctx context.Context, category domain.Category, e domain.EnrichedEntity) (*domain.EnrichedEntity, error)
	ClearEnriched(ctx context.Context) (int, error)
}

// Options configures an Engine.
type Options struct {
	// MatchFallback accepts the first search result when no name matches.
	MatchFallback bool
	// BatchConcurrency bounds concurrent enrichments in EnrichBatch.
	BatchConcurrency int
}

// Engine orchestrates lookup, matching, merging and caching.
type Engine struct {
	searcher     Searcher
	availability Availability
	refs         References
	cache        Cache
	opts         Options
	logger       *slog.Logger
	now          func() time.Time
}

// New creates an Engine.
func New(searcher Searcher, availability Availability, refs References, cache Cache, opts Options, logger *slog.Logger) *Engine {
	if opts.BatchConcurrency <= 0 {
		opts.BatchConcurrency = defaultBatchConcurrency
	}
	return &Engine{
		searcher:     searcher,
		availability: availability,
		refs:         refs,
		cache:        cache,
		opts:         opts,
		logger:       logger,
		now:          time.Now,
	}
}

// EnrichEntity returns base merged with its SWAPI counterpart, or base
// unenriched when no counterpart can be found. It never fails.
func (e *Engine) EnrichEntity(ctx context.Context, category domain.Category, base domain.BaseEntity) (out domain.EnrichedEntity) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("enrichment panicked",
				"category", category,
				"id", base.ID,
				"panic", r,
			)
			out = domain.NewEnrichedEntity(base)
		}
	}()

	cached, err := e.cache.GetEnriched(ctx, category, base.ID)
	if err != nil && ctx.Err() == nil {
		e.logger.Warn("enrichment cache read failed", "category", category, "id", base.ID, "error", err)
	}
	if cached != nil {
		return *cached
	}

	enriched := domain.NewEnrichedEntity(base)

	// A blank name would search the whole endpoint and match whatever
	// comes first.
	if spec, ok := categoryFields[category]; ok && match.Fold(base.Name) != "" {
		if endpoints := swapi.EndpointsFor(category); len(endpoints) > 0 && e.availability.IsAvailable(ctx) {
			enriched = e.lookup(ctx, category, base, endpoints, spec)
		}
	}

	enriched.EnrichedAt = e.now().UTC().Round(0)

	stored, err := e.cache.PutEnriched(ctx, category, enriched)
	if err != nil {
		if ctx.Err() == nil {
			e.logger.Warn("enrichment cache write failed", "category", category, "id", base.ID, "error", err)
		}
		return enriched
	}
	return *stored
}

// lookup searches, matches and merges. Failures and panics yield base unenriched.
func (e *Engine) lookup(ctx context.Context, category domain.Category, base domain.BaseEntity, endpoints []swapi.Endpoint, spec fieldSpec) (out domain.EnrichedEntity) {
	out = domain.NewEnrichedEntity(base)
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("enrichment lookup panicked",
				"category", category,
				"id", base.ID,
				"panic", r,
			)
			out = domain.NewEnrichedEntity(base)
		}
	}()

	var (
		candidates []swapi.Record
		endpoint   swapi.Endpoint
	)
	for _, ep := range endpoints {
		results, err := e.searcher.Search(ctx, ep, base.Name)
		if err != nil {
			if swapi.IsTransient(err) {
				e.availability.RecordFailure(err)
			}
			e.logger.Warn("SWAPI search failed, returning unenriched",
				"category", category,
				"name", base.Name,
				"endpoint", ep,
				"error", err,
			)
			return out
		}
		e.availability.RecordSuccess()
		if len(results) > 0 {
			candidates, endpoint = results, ep
			break
		}
	}

	rec, kind, ok := match.Best(base.Name, candidates, swapi.Record.Name, match.Options{Fallback: e.opts.MatchFallback})
	if !ok {
		e.logger.Debug("no SWAPI match", "category", category, "name", base.Name)
		return out
	}

	applyFields(&out, spec, rec)

	if films := rec.Strings("films"); len(films) > 0 {
		out.Films = e.refs.ResolveFilmTitles(ctx, films)
	}
	if spec.homeworld {
		if ref, ok := rec.String("homeworld"); ok && ref != "" {
			out.Homeworld = e.refs.ResolvePlanetName(ctx, ref)
		}
	}

	out.Matched = true
	out.MatchedEndpoint = string(endpoint)

	e.logger.Debug("entity enriched",
		"category", category,
		"name", base.Name,
		"match", rec.Name(),
		"kind", kind,
		"endpoint", endpoint,
	)
	return out
}

// EnrichBatch enriches entities concurrently. The result has the same length
// and order as entities.
func (e *Engine) EnrichBatch(ctx context.Context, category domain.Category, entities []domain.BaseEntity) []domain.EnrichedEntity {
	out := make([]domain.EnrichedEntity, len(entities))
	if len(entities) == 0 {
		return out
	}

	batchID := id.OrFallback("batch")
	start := e.now()

	var g errgroup.Group
	g.SetLimit(e.opts.BatchConcurrency)
	for i, entity := range entities {
		g.Go(func() error {
			out[i] = e.EnrichEntity(ctx, category, entity)
			return nil
		})
	}
	_ = g.Wait()

	matched := 0
	for i := range out {
		if out[i].Matched {
			matched++
		}
	}
	e.logger.Debug("batch enriched",
		"batch_id", batchID,
		"category", category,
		"size", len(entities),
		"matched", matched,
		"duration", e.now().Sub(start),
	)
	return out
}

// ClearCache drops every cached enrichment.
func (e *Engine) ClearCache(ctx context.Context) (int, error) {
	n, err := e.cache.ClearEnriched(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear enrichment cache: %w", err)
	}
	return n, nil
}

// ForceRetry marks SWAPI optimistically reachable and clears the cache so
// entities cached unenriched get another attempt.
func (e *Engine) ForceRetry(ctx context.Context) (int, error) {
	e.availability.Reset()
	return e.ClearCache(ctx)
}
