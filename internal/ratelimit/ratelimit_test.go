package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestKeyedRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		burst    int
		calls    int
		wantPass int
	}{
		{name: "burst allows initial requests", burst: 3, calls: 3, wantPass: 3},
		{name: "exceeding burst is rejected", burst: 2, calls: 5, wantPass: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := New(1, tt.burst)
			defer rl.Stop()

			passed := 0
			for range tt.calls {
				if rl.Allow("people") {
					passed++
				}
			}
			assert.Equal(t, tt.wantPass, passed)
		})
	}
}

func TestKeyedRateLimiter_IndependentKeys(t *testing.T) {
	rl := New(0.1, 1)
	defer rl.Stop()

	assert.True(t, rl.Allow("people"))
	assert.False(t, rl.Allow("people"))
	assert.True(t, rl.Allow("starships"))
	assert.Equal(t, 2, rl.Len())
}

func TestKeyedRateLimiter_WaitContextCancelled(t *testing.T) {
	rl := New(0.1, 1)
	defer rl.Stop()

	rl.Allow("planets")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.Error(t, rl.Wait(ctx, "planets"))
}

func TestKeyedRateLimiter_EvictIdle(t *testing.T) {
	now := time.Date(2025, 5, 4, 12, 0, 0, 0, time.UTC)
	rl := New(1, 1, WithIdleTTL(time.Minute))
	defer rl.Stop()
	rl.now = func() time.Time { return now }

	rl.Allow("10.0.0.1")
	now = now.Add(30 * time.Second)
	rl.Allow("10.0.0.2")

	now = now.Add(45 * time.Second)
	assert.Equal(t, 1, rl.evictIdle())
	assert.Equal(t, 1, rl.Len())

	// A fresh limiter is issued after eviction.
	now = now.Add(time.Hour)
	rl.evictIdle()
	assert.True(t, rl.Allow("10.0.0.1"))
}

func TestKeyedRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := New(1, 1, WithSweepInterval(time.Millisecond))
	rl.Stop()
	rl.Stop()
}
