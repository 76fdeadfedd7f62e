package app

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"trade-guard/internal/baseline"
	"trade-guard/internal/drift"
	"trade-guard/internal/envkey"
	"trade-guard/internal/freshness"
	"trade-guard/internal/guard"
	"trade-guard/internal/health"
)

// Decision is the combined outcome of one evaluation. It is what the
// dashboard renders and what gates the order-execution pathway; the guard
// itself never halts other processes.
type Decision struct {
	EvaluatedAt     time.Time          `json:"evaluated_at"`
	Mode            guard.Mode         `json:"mode"`
	TestnetAllowed  bool               `json:"testnet_allowed"`
	TestnetReasons  []string           `json:"testnet_reasons,omitempty"`
	BaselineMissing bool               `json:"baseline_missing"`
	DriftVerdict    drift.Verdict      `json:"drift_verdict"`
	Drifts          []drift.Classified `json:"drifts,omitempty"`
	Health          health.Evaluation  `json:"health"`
	TradingAllowed  bool               `json:"trading_allowed"`
}

// SoftCount and HardCount summarize drift severities.
func (d Decision) SoftCount() int { return d.severityCount(drift.SeveritySoft) }
func (d Decision) HardCount() int { return d.severityCount(drift.SeverityHard) }

func (d Decision) severityCount(s drift.Severity) int {
	n := 0
	for _, r := range d.Drifts {
		if r.Severity == s {
			n++
		}
	}
	return n
}

// Evaluator runs one combined check over a single environment snapshot and a
// single now. It holds no mutable state of its own beyond the health tracker
// it reads.
type Evaluator struct {
	baselines *baseline.Store
	tracker   *health.Tracker
	critical  drift.CriticalSet
	tracked   []string
	log       *zap.Logger
}

func NewEvaluator(baselines *baseline.Store, tracker *health.Tracker, critical drift.CriticalSet, tracked []string, log *zap.Logger) *Evaluator {
	return &Evaluator{baselines: baselines, tracker: tracker, critical: critical, tracked: tracked, log: log}
}

// Evaluate combines the testnet guard, the drift policy, and feed freshness
// into one Decision. Only real I/O failures return an error; a missing
// baseline, BLOCK verdicts and RED feeds are normal return values.
func (e *Evaluator) Evaluate(env envkey.Snapshot, now time.Time) (Decision, error) {
	d := Decision{EvaluatedAt: now, Mode: guard.CurrentMode(env)}
	d.TestnetAllowed, d.TestnetReasons = guard.CheckTestnetOnly(env)
	d.Health = e.tracker.Evaluate(now)

	base, err := e.baselines.Load()
	switch {
	case errors.Is(err, baseline.ErrNotFound):
		// No baseline means the drift check cannot run, which is not the
		// same as zero drift. Conservative: an unverifiable environment is
		// not a verified one.
		d.BaselineMissing = true
		d.DriftVerdict = drift.VerdictBlock
	case err != nil:
		return Decision{}, err
	default:
		records := baseline.Diff(base, env.Filter(e.tracked), now)
		d.Drifts = drift.Classify(records, d.Mode, e.critical)
		d.DriftVerdict = drift.OverallVerdict(d.Drifts)
	}

	d.TradingAllowed = d.TestnetAllowed &&
		!d.BaselineMissing &&
		d.DriftVerdict == drift.VerdictPass &&
		!freshness.ShouldBlockTrading(d.Health.Overall)

	if !d.TestnetAllowed && e.log != nil {
		e.log.Error("invariant violation: testnet-only guard failed",
			zap.Strings("reasons", d.TestnetReasons))
	}
	return d, nil
}
