// Package reference resolves SWAPI cross-reference URLs (films, homeworlds)
// to display names.
package reference

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/holocronapp/holocron-server/internal/metadata/swapi"
)

// Placeholders substituted for references that cannot be resolved.
const (
	UnknownFilm   = "Unknown Film"
	UnknownPlanet = "Unknown Planet"
)

// knownFilms seeds the film cache so the common case needs no lookups.
var knownFilms = map[string]string{
	"films/1": "A New Hope",
	"films/2": "The Empire Strikes Back",
	"films/3": "Return of the Jedi",
	"films/4": "The Phantom Menace",
	"films/5": "Attack of the Clones",
	"films/6": "Revenge of the Sith",
}

var errNoName = errors.New("record has no name")

// Fetcher loads a single SWAPI record.
type Fetcher interface {
	Get(ctx context.Context, endpoint swapi.Endpoint, id string) (swapi.Record, error)
}

// Stats reports cache sizes.
type Stats struct {
	Films   int `json:"films"`
	Planets int `json:"planets"`
}

// Health receives the outcome of each SWAPI lookup the resolver performs.
type Health interface {
	RecordFailure(err error)
	RecordSuccess()
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHealth reports lookup outcomes to h, so an outage that starts during
// reference resolution is noticed by availability tracking.
func WithHealth(h Health) Option {
	return func(r *Resolver) {
		r.health = h
	}
}

// Resolver turns references into names. Successful lookups are kept for the
// life of the process; failures are not cached.
type Resolver struct {
	fetcher Fetcher
	health  Health
	logger  *slog.Logger
	films   *cache.Cache
	planets *cache.Cache
	group   singleflight.Group
}

// New creates a resolver with the film table pre-seeded.
func New(fetcher Fetcher, logger *slog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		fetcher: fetcher,
		logger:  logger,
		// No expiry and no janitor goroutine.
		films:   cache.New(cache.NoExpiration, 0),
		planets: cache.New(cache.NoExpiration, 0),
	}
	for key, title := range knownFilms {
		r.films.Set(key, title, cache.NoExpiration)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveFilmTitles resolves every reference concurrently. The result has the
// same length and order as refs; unresolvable entries become UnknownFilm.
func (r *Resolver) ResolveFilmTitles(ctx context.Context, refs []string) []string {
	out := make([]string, len(refs))
	var wg sync.WaitGroup
	for i, ref := range refs {
		wg.Go(func() {
			out[i] = r.resolve(ctx, r.films, swapi.Films, ref, UnknownFilm)
		})
	}
	wg.Wait()
	return out
}

// ResolvePlanetName resolves a homeworld reference, or UnknownPlanet.
func (r *Resolver) ResolvePlanetName(ctx context.Context, ref string) string {
	return r.resolve(ctx, r.planets, swapi.Planets, ref, UnknownPlanet)
}

// Stats returns the number of cached names.
func (r *Resolver) Stats() Stats {
	return Stats{Films: r.films.ItemCount(), Planets: r.planets.ItemCount()}
}

func (r *Resolver) resolve(ctx context.Context, c *cache.Cache, want swapi.Endpoint, ref, placeholder string) string {
	if ref == "" {
		return placeholder
	}

	parsed, err := swapi.ParseReference(ref)
	if err != nil || parsed.Endpoint != want {
		r.logger.Debug("unresolvable reference", "ref", ref, "want", want)
		return placeholder
	}

	key := parsed.Key()
	if v, ok := c.Get(key); ok {
		return v.(string)
	}

	// The lookup is shared by every caller waiting on key, so it runs
	// detached from any one caller's cancellation. The client's per-request
	// timeout still bounds it.
	lookupCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (any, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		rec, err := r.fetcher.Get(lookupCtx, parsed.Endpoint, parsed.ID)
		r.report(err)
		if err != nil {
			return nil, err
		}
		name := rec.Name()
		if name == "" {
			return nil, errNoName
		}
		c.Set(key, name, cache.NoExpiration)
		return name, nil
	})

	select {
	case <-ctx.Done():
		return placeholder
	case res := <-ch:
		if res.Err != nil {
			r.logger.Warn("reference lookup failed, using placeholder",
				"ref", key,
				"placeholder", placeholder,
				"error", res.Err,
			)
			return placeholder
		}
		return res.Val.(string)
	}
}

func (r *Resolver) report(err error) {
	if r.health == nil {
		return
	}
	switch {
	case err == nil:
		r.health.RecordSuccess()
	case swapi.IsTransient(err):
		r.health.RecordFailure(err)
	}
}
