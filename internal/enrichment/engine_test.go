package enrichment

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/holocronapp/holocron-server/internal/domain"
	"github.com/holocronapp/holocron-server/internal/metadata/swapi"
	"github.com/holocronapp/holocron-server/internal/store"
)

// fakeSearcher serves canned search results keyed by endpoint and query.
type fakeSearcher struct {
	mu      sync.Mutex
	results map[swapi.Endpoint]map[string][]swapi.Record
	err     error
	panicOn string
	jitter  bool
	calls   []swapi.Endpoint

	// echo returns a single record named after the query when set.
	echo func(name string) swapi.Record
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{results: map[swapi.Endpoint]map[string][]swapi.Record{}}
}

func (s *fakeSearcher) add(ep swapi.Endpoint, query string, recs ...swapi.Record) {
	if s.results[ep] == nil {
		s.results[ep] = map[string][]swapi.Record{}
	}
	s.results[ep][query] = recs
}

func (s *fakeSearcher) Search(ctx context.Context, ep swapi.Endpoint, name string) ([]swapi.Record, error) {
	s.mu.Lock()
	s.calls = append(s.calls, ep)
	err, panicOn, echo, jitter := s.err, s.panicOn, s.echo, s.jitter
	recs := s.results[ep][name]
	s.mu.Unlock()

	if jitter {
		time.Sleep(time.Duration(rand.IntN(2000)) * time.Microsecond)
	}
	if panicOn != "" && name == panicOn {
		panic("malformed record")
	}
	if err != nil {
		return nil, err
	}
	if echo != nil {
		return []swapi.Record{echo(name)}, nil
	}
	return recs, nil
}

func (s *fakeSearcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type fakeAvailability struct {
	mu        sync.Mutex
	available bool
	failures  int
	successes int
	resets    int
}

func (a *fakeAvailability) IsAvailable(context.Context) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.available
}

func (a *fakeAvailability) RecordFailure(error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures++
}

func (a *fakeAvailability) RecordSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.successes++
}

func (a *fakeAvailability) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resets++
	a.available = true
}

type fakeRefs struct {
	films   map[string]string
	planets map[string]string
}

func (r fakeRefs) ResolveFilmTitles(_ context.Context, refs []string) []string {
	out := make([]string, len(refs))
	for i, ref := range refs {
		if t, ok := r.films[ref]; ok {
			out[i] = t
		} else {
			out[i] = "Unknown Film"
		}
	}
	return out
}

func (r fakeRefs) ResolvePlanetName(_ context.Context, ref string) string {
	if n, ok := r.planets[ref]; ok {
		return n
	}
	return "Unknown Planet"
}

// memCache is a map-backed Cache with the same insert-if-absent semantics as the store.
type memCache struct {
	mu      sync.Mutex
	entries map[string]domain.EnrichedEntity
}

func newMemCache() *memCache {
	return &memCache{entries: map[string]domain.EnrichedEntity{}}
}

func (c *memCache) GetEnriched(_ context.Context, cat domain.Category, id string) (*domain.EnrichedEntity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[string(cat)+"/"+id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (c *memCache) PutEnriched(_ context.Context, cat domain.Category, e domain.EnrichedEntity) (*domain.EnrichedEntity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := string(cat) + "/" + e.ID
	if existing, ok := c.entries[key]; ok {
		return &existing, nil
	}
	c.entries[key] = e
	return &e, nil
}

func (c *memCache) ClearEnriched(context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = map[string]domain.EnrichedEntity{}
	return n, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type harness struct {
	engine   *Engine
	searcher *fakeSearcher
	avail    *fakeAvailability
}

func newHarness(t *testing.T, cache Cache, opts Options) *harness {
	t.Helper()
	if cache == nil {
		cache = newMemCache()
	}
	h := &harness{
		searcher: newFakeSearcher(),
		avail:    &fakeAvailability{available: true},
	}
	refs := fakeRefs{
		films:   map[string]string{"https://swapi.dev/api/films/1/": "A New Hope"},
		planets: map[string]string{"https://swapi.dev/api/planets/2/": "Alderaan"},
	}
	h.engine = New(h.searcher, h.avail, refs, cache, opts, discard())
	return h
}

func leiaRecord() swapi.Record {
	return swapi.Record{
		"name":       "Leia Organa",
		"height":     "150",
		"mass":       "49",
		"gender":     "female",
		"birth_year": "19BBY",
		"hair_color": "brown",
		"homeworld":  "https://swapi.dev/api/planets/2/",
		"films":      []any{"https://swapi.dev/api/films/1/"},
	}
}

func TestEnrichEntity_MatchedCharacter(t *testing.T) {
	h := newHarness(t, nil, Options{MatchFallback: true})
	h.searcher.add(swapi.People, "Leia Organa", leiaRecord())

	base := domain.BaseEntity{ID: "5", Name: "Leia Organa", Description: "General.", Image: "leia.jpg"}
	got := h.engine.EnrichEntity(context.Background(), domain.CategoryCharacters, base)

	assert.True(t, got.Matched)
	assert.Equal(t, "people", got.MatchedEndpoint)
	assert.Equal(t, "150", got.Height)
	assert.Equal(t, "49", got.Mass)
	assert.Equal(t, "female", got.Gender)
	assert.Equal(t, "19BBY", got.BirthYear)
	assert.Equal(t, "Alderaan", got.Homeworld)
	assert.Equal(t, []string{"A New Hope"}, got.Films)
	assert.Equal(t, base, got.BaseEntity)
	assert.False(t, got.EnrichedAt.IsZero())
	assert.Equal(t, 1, h.avail.successes)
}

func TestEnrichEntity_NoCandidates(t *testing.T) {
	h := newHarness(t, nil, Options{MatchFallback: true})

	base := domain.BaseEntity{ID: "77", Name: "Sy Snootles", Description: "Singer.", Image: "sy.jpg"}
	got := h.engine.EnrichEntity(context.Background(), domain.CategoryCharacters, base)

	assert.False(t, got.Matched)
	assert.Equal(t, base, got.BaseEntity)
	assert.Empty(t, got.Films)
	assert.NotNil(t, got.Films)
	assert.Empty(t, got.Height)
}

func TestEnrichEntity_SentinelsStripped(t *testing.T) {
	h := newHarness(t, nil, Options{})
	rec := leiaRecord()
	rec["name"] = "R2-D2"
	rec["mass"] = "unknown"
	rec["gender"] = "n/a"
	rec["birth_year"] = " UNKNOWN "
	rec["hair_color"] = "none"
	rec["homeworld"] = nil
	h.searcher.add(swapi.People, "R2-D2", rec)

	got := h.engine.EnrichEntity(context.Background(), domain.CategoryDroids, domain.BaseEntity{ID: "r2", Name: "R2-D2"})

	require.True(t, got.Matched)
	assert.Equal(t, "150", got.Height)
	assert.Empty(t, got.Mass)
	assert.Empty(t, got.Gender)
	assert.Empty(t, got.BirthYear)
	assert.Equal(t, "none", got.HairColor)
	assert.Empty(t, got.Homeworld)
}

func TestEnrichEntity_NoOpCategory(t *testing.T) {
	h := newHarness(t, nil, Options{MatchFallback: true})

	got := h.engine.EnrichEntity(context.Background(), domain.CategoryOrganizations,
		domain.BaseEntity{ID: "o1", Name: "Galactic Empire"})

	assert.False(t, got.Matched)
	assert.Zero(t, h.searcher.callCount())
}

func TestEnrichEntity_UnavailableSkipsNetwork(t *testing.T) {
	h := newHarness(t, nil, Options{MatchFallback: true})
	h.avail.available = false
	h.searcher.add(swapi.People, "Leia Organa", leiaRecord())

	got := h.engine.EnrichEntity(context.Background(), domain.CategoryCharacters,
		domain.BaseEntity{ID: "5", Name: "Leia Organa"})

	assert.False(t, got.Matched)
	assert.Zero(t, h.searcher.callCount())
}

func TestEnrichEntity_Idempotent(t *testing.T) {
	s, err := store.New(discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	h := newHarness(t, s, Options{MatchFallback: true})
	h.searcher.add(swapi.People, "Leia Organa", leiaRecord())
	base := domain.BaseEntity{ID: "5", Name: "Leia Organa"}

	first := h.engine.EnrichEntity(context.Background(), domain.CategoryCharacters, base)
	calls := h.searcher.callCount()
	second := h.engine.EnrichEntity(context.Background(), domain.CategoryCharacters, base)

	assert.Equal(t, first, second)
	assert.Equal(t, calls, h.searcher.callCount())
}

func TestEnrichEntity_VehicleFallsBackToStarships(t *testing.T) {
	h := newHarness(t, nil, Options{MatchFallback: true})
	h.searcher.add(swapi.Starships, "Millennium Falcon", swapi.Record{
		"name":           "Millennium Falcon",
		"model":          "YT-1300 light freighter",
		"manufacturer":   "Corellian Engineering Corporation",
		"starship_class": "Light freighter",
		"crew":           "4",
		"length":         34.37,
		"films":          []any{"https://swapi.dev/api/films/1/", "https://swapi.dev/api/films/99/"},
	})

	got := h.engine.EnrichEntity(context.Background(), domain.CategoryVehicles,
		domain.BaseEntity{ID: "mf", Name: "Millennium Falcon"})

	require.True(t, got.Matched)
	assert.Equal(t, "starships", got.MatchedEndpoint)
	assert.Equal(t, "Light freighter", got.VehicleClass)
	assert.Equal(t, "Light freighter", got.StarshipClass)
	assert.Equal(t, "34.37", got.Length)
	assert.Equal(t, []string{"A New Hope", "Unknown Film"}, got.Films)
	assert.Empty(t, got.Homeworld)
	assert.Equal(t, []swapi.Endpoint{swapi.Vehicles, swapi.Starships}, h.searcher.calls)
}

func TestEnrichEntity_FallbackDisabled(t *testing.T) {
	h := newHarness(t, nil, Options{MatchFallback: false})
	h.searcher.add(swapi.People, "Sy Snootles", swapi.Record{"name": "Jabba Desilijic Tiure", "height": "175"})

	got := h.engine.EnrichEntity(context.Background(), domain.CategoryCharacters,
		domain.BaseEntity{ID: "sy", Name: "Sy Snootles"})
	assert.False(t, got.Matched)
	assert.Empty(t, got.Height)

	h2 := newHarness(t, nil, Options{MatchFallback: true})
	h2.searcher.add(swapi.People, "Sy Snootles", swapi.Record{"name": "Jabba Desilijic Tiure", "height": "175"})

	got = h2.engine.EnrichEntity(context.Background(), domain.CategoryCharacters,
		domain.BaseEntity{ID: "sy", Name: "Sy Snootles"})
	assert.True(t, got.Matched)
	assert.Equal(t, "175", got.Height)
}

func TestEnrichEntity_BlankNameIsNotSearched(t *testing.T) {
	for _, name := range []string{"", "   ", "\t\n"} {
		t.Run(fmt.Sprintf("%q", name), func(t *testing.T) {
			h := newHarness(t, nil, Options{MatchFallback: true})
			// An unfiltered SWAPI listing answers every query.
			h.searcher.echo = func(string) swapi.Record {
				return swapi.Record{"name": "Luke Skywalker", "height": "172"}
			}

			base := domain.BaseEntity{ID: "blank", Name: name}
			got := h.engine.EnrichEntity(context.Background(), domain.CategoryCharacters, base)

			assert.False(t, got.Matched)
			assert.Empty(t, got.Height)
			assert.Equal(t, base, got.BaseEntity)
			assert.Zero(t, h.searcher.callCount())
		})
	}
}

func TestEnrichEntity_TransientFailureReported(t *testing.T) {
	h := newHarness(t, nil, Options{MatchFallback: true})
	h.searcher.err = fmt.Errorf("search: %w", swapi.ErrTimeout)

	base := domain.BaseEntity{ID: "5", Name: "Leia Organa"}
	got := h.engine.EnrichEntity(context.Background(), domain.CategoryCharacters, base)

	assert.False(t, got.Matched)
	assert.Equal(t, base, got.BaseEntity)
	assert.Equal(t, 1, h.avail.failures)
	assert.Zero(t, h.avail.successes)
}

func TestEnrichEntity_DecodeFailureNotReportedAsOutage(t *testing.T) {
	h := newHarness(t, nil, Options{MatchFallback: true})
	h.searcher.err = fmt.Errorf("search: %w", swapi.ErrDecode)

	got := h.engine.EnrichEntity(context.Background(), domain.CategoryCharacters, domain.BaseEntity{ID: "5", Name: "Leia Organa"})

	assert.False(t, got.Matched)
	assert.Zero(t, h.avail.failures)
}

func TestEnrichEntity_AlwaysTimingOutIsBounded(t *testing.T) {
	h := newHarness(t, nil, Options{MatchFallback: true})
	h.searcher.jitter = true
	h.searcher.err = swapi.ErrTimeout

	start := time.Now()
	got := h.engine.EnrichEntity(context.Background(), domain.CategoryVehicles, domain.BaseEntity{ID: "v", Name: "Sandcrawler"})

	assert.False(t, got.Matched)
	assert.Less(t, time.Since(start), time.Second)
}

func TestEnrichEntity_PanicRecovered(t *testing.T) {
	h := newHarness(t, nil, Options{MatchFallback: true})
	h.searcher.panicOn = "Boba Fett"

	base := domain.BaseEntity{ID: "22", Name: "Boba Fett"}
	got := h.engine.EnrichEntity(context.Background(), domain.CategoryCharacters, base)

	assert.False(t, got.Matched)
	assert.Equal(t, base, got.BaseEntity)
}

func TestEnrichBatch_PreservesOrderAndLength(t *testing.T) {
	h := newHarness(t, nil, Options{MatchFallback: true, BatchConcurrency: 3})
	h.searcher.jitter = true
	h.searcher.panicOn = "Boba Fett"
	h.searcher.add(swapi.People, "Leia Organa", leiaRecord())

	entities := []domain.BaseEntity{
		{ID: "1", Name: "Sy Snootles"},
		{ID: "2", Name: "Leia Organa"},
		{ID: "3", Name: "Boba Fett"},
		{ID: "4", Name: "Max Rebo"},
	}
	got := h.engine.EnrichBatch(context.Background(), domain.CategoryCharacters, entities)

	require.Len(t, got, len(entities))
	for i := range entities {
		assert.Equal(t, entities[i].ID, got[i].ID)
	}
	assert.True(t, got[1].Matched)
	assert.False(t, got[2].Matched)
}

func TestEnrichBatch_Empty(t *testing.T) {
	h := newHarness(t, nil, Options{})
	assert.Empty(t, h.engine.EnrichBatch(context.Background(), domain.CategoryCharacters, nil))
}

func TestEnrichBatch_OrderProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 24).Draw(rt, "n")
		concurrency := rapid.IntRange(1, 8).Draw(rt, "concurrency")

		h := &harness{searcher: newFakeSearcher(), avail: &fakeAvailability{available: true}}
		h.searcher.jitter = true
		h.searcher.echo = func(name string) swapi.Record {
			return swapi.Record{"name": name, "height": "h-" + name}
		}
		h.engine = New(h.searcher, h.avail, fakeRefs{}, newMemCache(), Options{BatchConcurrency: concurrency}, discard())

		entities := make([]domain.BaseEntity, n)
		for i := range entities {
			entities[i] = domain.BaseEntity{ID: fmt.Sprint(i), Name: fmt.Sprintf("Entity %d", i)}
		}

		got := h.engine.EnrichBatch(context.Background(), domain.CategoryCharacters, entities)
		if len(got) != n {
			rt.Fatalf("len %d, want %d", len(got), n)
		}
		for i := range entities {
			if got[i].ID != entities[i].ID || got[i].Height != "h-"+entities[i].Name {
				rt.Fatalf("position %d holds %s/%s", i, got[i].ID, got[i].Height)
			}
		}
	})
}

func TestEnrichEntity_SentinelProperty(t *testing.T) {
	values := []string{"unknown", "UNKNOWN", " unknown ", "n/a", "N/A", "", "150", "brown", "none", "19BBY"}

	rapid.Check(t, func(rt *rapid.T) {
		rec := swapi.Record{"name": "Subject"}
		for _, f := range personFields {
			rec[f] = rapid.SampledFrom(values).Draw(rt, f)
		}

		h := &harness{searcher: newFakeSearcher(), avail: &fakeAvailability{available: true}}
		h.searcher.add(swapi.People, "Subject", rec)
		h.engine = New(h.searcher, h.avail, fakeRefs{}, newMemCache(), Options{}, discard())

		got := h.engine.EnrichEntity(context.Background(), domain.CategoryCharacters, domain.BaseEntity{ID: "x", Name: "Subject"})
		for _, f := range personFields {
			v := got.Field(f)
			if v != "" && isSentinel(v) {
				rt.Fatalf("field %s kept sentinel %q", f, v)
			}
			if src, _ := rec.String(f); !isSentinel(src) && v != src {
				rt.Fatalf("field %s = %q, want %q", f, v, src)
			}
		}
	})
}

func TestForceRetry(t *testing.T) {
	h := newHarness(t, nil, Options{MatchFallback: true})
	h.avail.available = false
	h.searcher.add(swapi.People, "Leia Organa", leiaRecord())
	base := domain.BaseEntity{ID: "5", Name: "Leia Organa"}

	got := h.engine.EnrichEntity(context.Background(), domain.CategoryCharacters, base)
	require.False(t, got.Matched)

	// Cached unenriched until an explicit retry.
	h.avail.available = true
	got = h.engine.EnrichEntity(context.Background(), domain.CategoryCharacters, base)
	require.False(t, got.Matched)

	h.avail.available = false
	cleared, err := h.engine.ForceRetry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)
	assert.Equal(t, 1, h.avail.resets)

	got = h.engine.EnrichEntity(context.Background(), domain.CategoryCharacters, base)
	assert.True(t, got.Matched)
}
