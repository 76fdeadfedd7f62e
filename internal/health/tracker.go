// Package health tracks per-feed last-update timestamps and evaluates them
// into freshness states. The tracker is the only stateful piece around the
// classifier; feeds report through it from the bus handler or the feeder
// health file.
package health

import (
	"fmt"
	"sync"
	"time"

	"trade-guard/internal/config"
	"trade-guard/internal/freshness"
)

// Evaluation is one consistent read of every feed's state.
type Evaluation struct {
	Unified     freshness.State
	UnifiedAge  time.Duration
	DataBus     freshness.State
	DataBusAge  time.Duration
	Overall     freshness.State
	EvaluatedAt time.Time
}

// Summary is a one-line operator display of the evaluation.
func (e Evaluation) Summary() string {
	return fmt.Sprintf("unified=%.1fs (%s) databus=%.1fs (%s)",
		e.UnifiedAge.Seconds(), e.Unified, e.DataBusAge.Seconds(), e.DataBus)
}

// Tracker records the last update time per feed. Safe for concurrent use.
type Tracker struct {
	unifiedTh freshness.Thresholds
	dataBusTh freshness.Thresholds

	mu         sync.Mutex
	lastUpdate map[freshness.Feed]time.Time
}

func NewTracker(cfg config.FreshnessConfig) *Tracker {
	return &Tracker{
		unifiedTh:  freshness.Thresholds{OK: cfg.UnifiedOK, Yellow: cfg.UnifiedYellow},
		dataBusTh:  freshness.Thresholds{OK: cfg.DataBusOK, Yellow: cfg.DataBusYellow},
		lastUpdate: make(map[freshness.Feed]time.Time),
	}
}

// Observe records a feed update. Zero timestamps are ignored so a feeder
// emitting an unset field can never look fresh, and stale reports never move
// the clock backwards.
func (t *Tracker) Observe(feed freshness.Feed, at time.Time) {
	if at.IsZero() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.lastUpdate[feed]; ok && at.Before(prev) {
		return
	}
	t.lastUpdate[feed] = at
}

// Evaluate classifies every feed against a single now. Feeds that never
// reported evaluate UNKNOWN with a zero age.
func (t *Tracker) Evaluate(now time.Time) Evaluation {
	t.mu.Lock()
	unified := t.lastUpdate[freshness.FeedUnified]
	dataBus := t.lastUpdate[freshness.FeedDataBus]
	t.mu.Unlock()

	eval := Evaluation{
		Unified:     freshness.Classify(unified, now, t.unifiedTh),
		DataBus:     freshness.Classify(dataBus, now, t.dataBusTh),
		EvaluatedAt: now,
	}
	eval.UnifiedAge = clampAge(unified, now)
	eval.DataBusAge = clampAge(dataBus, now)
	eval.Overall = freshness.Worst(eval.Unified, eval.DataBus)
	return eval
}

func clampAge(lastUpdate, now time.Time) time.Duration {
	if lastUpdate.IsZero() {
		return 0
	}
	age := now.Sub(lastUpdate)
	if age < 0 {
		return 0
	}
	return age
}
