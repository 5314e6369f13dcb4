// Package availability tracks whether SWAPI is worth calling. It probes at
// most once per check interval and trips to unreachable after a run of
// transient failures reported by callers.
package availability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	defaultCheckInterval = 30 * time.Second
	defaultMaxFailures   = 3
)

// Prober issues a synthetic request against SWAPI.
type Prober interface {
	Probe(ctx context.Context) error
}

// Config configures a Tracker.
type Config struct {
	CheckInterval time.Duration
	MaxFailures   int
}

// Status is a point-in-time snapshot of the tracker.
type Status struct {
	Reachable           bool      `json:"reachable"`
	LastCheckedAt       time.Time `json:"last_checked_at"`
	NextCheckAt         time.Time `json:"next_check_at"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	Probes              int       `json:"probes"`
	LastError           string    `json:"last_error,omitempty"`
}

// Tracker holds SWAPI reachability. The zero lastCheckedAt means the next
// IsAvailable call probes.
type Tracker struct {
	prober      Prober
	logger      *slog.Logger
	interval    time.Duration
	maxFailures int
	now         func() time.Time

	mu                  sync.Mutex
	reachable           bool
	lastCheckedAt       time.Time
	consecutiveFailures int
	probes              int
	lastError           string

	group singleflight.Group
}

// New creates a tracker that starts optimistic and unchecked.
func New(prober Prober, cfg Config, logger *slog.Logger) *Tracker {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = defaultCheckInterval
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = defaultMaxFailures
	}
	return &Tracker{
		prober:      prober,
		logger:      logger,
		interval:    cfg.CheckInterval,
		maxFailures: cfg.MaxFailures,
		now:         time.Now,
		reachable:   true,
	}
}

// IsAvailable returns the cached reachability while it is fresh, otherwise
// probes and records the outcome. Concurrent stale callers share one probe.
func (t *Tracker) IsAvailable(ctx context.Context) bool {
	if reachable, fresh := t.cached(); fresh {
		return reachable
	}

	v, _, _ := t.group.Do("probe", func() (any, error) {
		// Another caller may have finished a probe while we queued.
		if reachable, fresh := t.cached(); fresh {
			return reachable, nil
		}
		// The probe is shared, so one caller going away must not fail it.
		err := t.prober.Probe(context.WithoutCancel(ctx))
		return t.recordProbe(err), nil
	})
	return v.(bool)
}

func (t *Tracker) cached() (reachable, fresh bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastCheckedAt.IsZero() {
		return t.reachable, false
	}
	return t.reachable, t.now().Sub(t.lastCheckedAt) < t.interval
}

func (t *Tracker) recordProbe(err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	was := t.reachable
	t.probes++
	t.lastCheckedAt = t.now()

	if err != nil {
		t.reachable = false
		t.lastError = err.Error()
		if was {
			t.logger.Warn("SWAPI unreachable, enrichment paused",
				"retry_in", t.interval,
				"error", err,
			)
		} else {
			t.logger.Debug("SWAPI probe failed", "error", err)
		}
		return false
	}

	t.reachable = true
	t.consecutiveFailures = 0
	t.lastError = ""
	if !was {
		t.logger.Info("SWAPI reachable again, enrichment resumed")
	}
	return true
}

// RecordFailure counts a transient failure seen by a caller. Reaching the
// failure threshold marks SWAPI unreachable until the next probe window.
func (t *Tracker) RecordFailure(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.consecutiveFailures++
	if err != nil {
		t.lastError = err.Error()
	}
	if !t.reachable || t.consecutiveFailures < t.maxFailures {
		return
	}

	t.reachable = false
	t.lastCheckedAt = t.now()
	t.logger.Warn("SWAPI marked unreachable after consecutive failures",
		"failures", t.consecutiveFailures,
		"retry_in", t.interval,
		"error", err,
	)
}

// RecordSuccess clears the failure run.
func (t *Tracker) RecordSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consecutiveFailures = 0
	t.reachable = true
}

// Reset forces an optimistic state that re-probes on the next call.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reachable = true
	t.lastCheckedAt = time.Time{}
	t.consecutiveFailures = 0
	t.lastError = ""
	t.logger.Info("SWAPI availability reset")
}

// Status returns a snapshot of the tracker state.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Status{
		Reachable:           t.reachable,
		LastCheckedAt:       t.lastCheckedAt,
		ConsecutiveFailures: t.consecutiveFailures,
		Probes:              t.probes,
		LastError:           t.lastError,
	}
	if !t.lastCheckedAt.IsZero() {
		s.NextCheckAt = t.lastCheckedAt.Add(t.interval)
	}
	return s
}
