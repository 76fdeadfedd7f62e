// Package gate filters individual trading signals, rejecting synthetic and
// default signals unless explicitly permitted. The permission itself is
// forced off whenever any live indicator is set, not only in full live mode.
package gate

import (
	"go.uber.org/zap"

	"trade-guard/internal/envkey"
	"trade-guard/internal/guard"
)

// Signals with confidence below this are treated as synthetic regardless of
// provenance tags.
const lowConfidenceThreshold = 0.1

const allowDefaultSignalsKey = "ALLOW_DEFAULT_SIGNALS"

// Signal is one trading signal as produced upstream. The gate never mutates
// it.
type Signal struct {
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Confidence float64 `json:"confidence"`
	Strategy   string  `json:"strategy"`
	Source     string  `json:"source"`
	IsDefault  bool    `json:"is_default"`
	Fallback   bool    `json:"fallback"`
}

// IsDefaultSignal reports whether a signal is synthetic: a sentinel strategy
// or source, an explicit default or fallback flag, or confidence below the
// low-confidence threshold.
func IsDefaultSignal(sig Signal) bool {
	return sig.Strategy == "default" ||
		sig.Confidence < lowConfidenceThreshold ||
		sig.Source == "random" ||
		sig.IsDefault ||
		sig.Fallback
}

// EffectiveAllow computes whether default signals may pass. Whenever any live
// indicator fires the configured flag is overridden to false unconditionally;
// a single armed indicator is enough, the gate does not wait for full LIVE
// mode the way CurrentMode does.
func EffectiveAllow(liveIndicator, allowFlag bool) bool {
	if liveIndicator {
		return false
	}
	return allowFlag
}

// IsAllowed is the admission decision for one signal: blocked only when the
// signal is synthetic and default signals are not effectively allowed.
func IsAllowed(sig Signal, liveIndicator, allowFlag bool) bool {
	if !EffectiveAllow(liveIndicator, allowFlag) && IsDefaultSignal(sig) {
		return false
	}
	return true
}

// Gate binds one evaluation's live-indicator state and allow flag so callers
// classify many signals against a single consistent environment read.
type Gate struct {
	mode  guard.Mode
	live  bool
	allow bool
	log   *zap.Logger
}

// New derives a Gate from the environment snapshot and logs its boot status.
// The effective-allow-while-armed combination is unreachable given the
// override in EffectiveAllow; if it ever appears it is a logic defect and is
// logged as an invariant violation.
func New(env envkey.Snapshot, log *zap.Logger) *Gate {
	mode := guard.CurrentMode(env)
	live := guard.AnyLiveIndicator(env)
	allow := EffectiveAllow(live, env.Bool(allowDefaultSignalsKey, false))
	if log != nil {
		log.Info("signal gating",
			zap.Bool("allow_default_signals", allow),
			zap.Bool("live_indicator", live),
			zap.String("mode", string(mode)),
		)
		if live && allow {
			log.Error("invariant violation: default signals allowed with a live indicator set")
		}
	}
	return &Gate{mode: mode, live: live, allow: allow, log: log}
}

func (g *Gate) Mode() guard.Mode { return g.mode }

// Allow reports whether the signal may pass downstream.
func (g *Gate) Allow(sig Signal) bool {
	allowed := IsAllowed(sig, g.live, g.allow)
	if !allowed && g.log != nil {
		g.log.Debug("blocking default signal",
			zap.String("symbol", sig.Symbol),
			zap.String("strategy", sig.Strategy),
			zap.Float64("confidence", sig.Confidence),
		)
	}
	return allowed
}
