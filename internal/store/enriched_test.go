package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holocronapp/holocron-server/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func leia() domain.EnrichedEntity {
	e := domain.NewEnrichedEntity(domain.BaseEntity{
		ID:          "5",
		Name:        "Leia Organa",
		Description: "Princess of Alderaan.",
		Image:       "https://example.test/leia.jpg",
	})
	e.Height = "150"
	e.Mass = "49"
	e.Gender = "female"
	e.Films = []string{"A New Hope"}
	e.Matched = true
	e.MatchedEndpoint = "people"
	e.EnrichedAt = time.Now()
	return e
}

func TestEnriched_GetMiss(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetEnriched(context.Background(), domain.CategoryCharacters, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEnriched_PutReturnsWhatGetReturns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	put, err := s.PutEnriched(ctx, domain.CategoryCharacters, leia())
	require.NoError(t, err)

	got, err := s.GetEnriched(ctx, domain.CategoryCharacters, "5")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, put, got)
	assert.True(t, put.EnrichedAt.Equal(got.EnrichedAt))
	assert.Equal(t, []string{"A New Hope"}, got.Films)
	assert.Equal(t, "150", got.Height)
	assert.Equal(t, "Leia Organa", got.Name)
}

func TestEnriched_PutKeepsFirstEntry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.PutEnriched(ctx, domain.CategoryCharacters, leia())
	require.NoError(t, err)

	other := leia()
	other.Height = "999"
	second, err := s.PutEnriched(ctx, domain.CategoryCharacters, other)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "150", second.Height)
}

func TestEnriched_KeyedByCategory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.PutEnriched(ctx, domain.CategoryCharacters, leia())
	require.NoError(t, err)

	got, err := s.GetEnriched(ctx, domain.CategoryDroids, "5")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEnriched_ConcurrentPutsAgree(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	results := make([]*domain.EnrichedEntity, 8)
	var wg sync.WaitGroup
	for i := range results {
		wg.Go(func() {
			e := leia()
			e.Mass = string(rune('a' + i))
			got, err := s.PutEnriched(ctx, domain.CategoryCharacters, e)
			assert.NoError(t, err)
			results[i] = got
		})
	}
	wg.Wait()

	for _, r := range results[1:] {
		assert.Equal(t, results[0], r)
	}
}

func TestEnriched_ClearAndCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		e := leia()
		e.ID = id
		_, err := s.PutEnriched(ctx, domain.CategoryCharacters, e)
		require.NoError(t, err)
	}

	n, err := s.CountEnriched(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	cleared, err := s.ClearEnriched(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, cleared)

	n, err = s.CountEnriched(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := s.GetEnriched(ctx, domain.CategoryCharacters, "1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEnriched_ClearSpansBatches(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const entries = clearBatchSize + 250
	for i := range entries {
		e := leia()
		e.ID = strconv.Itoa(i)
		_, err := s.PutEnriched(ctx, domain.CategoryCharacters, e)
		require.NoError(t, err)
	}

	cleared, err := s.ClearEnriched(ctx)
	require.NoError(t, err)
	assert.Equal(t, entries, cleared)

	n, err := s.CountEnriched(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEnriched_ClearCountsOnlyWhatItRemoved(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const writers, perWriter = 4, 200
	for i := range 100 {
		e := leia()
		e.ID = "seed-" + strconv.Itoa(i)
		_, err := s.PutEnriched(ctx, domain.CategoryCharacters, e)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for w := range writers {
		wg.Go(func() {
			for i := range perWriter {
				e := leia()
				e.ID = fmt.Sprintf("w%d-%d", w, i)
				_, err := s.PutEnriched(ctx, domain.CategoryCharacters, e)
				assert.NoError(t, err)
			}
		})
	}

	cleared, err := s.ClearEnriched(ctx)
	require.NoError(t, err)
	wg.Wait()

	remaining, err := s.CountEnriched(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100+writers*perWriter, cleared+remaining)
}

func TestEnriched_CanceledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetEnriched(ctx, domain.CategoryCharacters, "5")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.PutEnriched(ctx, domain.CategoryCharacters, leia())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPing(t *testing.T) {
	s, err := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.Close())
	assert.Error(t, s.Ping(context.Background()))
}
