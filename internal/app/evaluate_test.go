package app

import (
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"trade-guard/internal/baseline"
	"trade-guard/internal/config"
	"trade-guard/internal/drift"
	"trade-guard/internal/envkey"
	"trade-guard/internal/freshness"
	"trade-guard/internal/guard"
	"trade-guard/internal/health"
)

var testTrackedKeys = []string{
	"BINANCE_USE_TESTNET",
	"TRADING_MODE",
	"LIVE_TRADING_ENABLED",
	"DRY_RUN",
	"BINANCE_API_KEY",
	"MAX_POSITION_SIZE",
}

func newTestEvaluator(t *testing.T) (*Evaluator, *baseline.Store, *health.Tracker) {
	t.Helper()
	dir := t.TempDir()
	store := baseline.NewStore(filepath.Join(dir, "baseline.json"), filepath.Join(dir, "backups"), zap.NewNop())
	tracker := health.NewTracker(config.FreshnessConfig{
		UnifiedOK:     30 * time.Second,
		UnifiedYellow: 120 * time.Second,
		DataBusOK:     60 * time.Second,
		DataBusYellow: 180 * time.Second,
	})
	critical := drift.NewCriticalSet([]string{"BINANCE_API_KEY", "BINANCE_USE_TESTNET"})
	ev := NewEvaluator(store, tracker, critical, testTrackedKeys, zap.NewNop())
	return ev, store, tracker
}

func safeEnv() envkey.Snapshot {
	return envkey.Snapshot{
		"BINANCE_USE_TESTNET": "true",
		"TRADING_MODE":        "paper",
		"DRY_RUN":             "true",
		"BINANCE_API_KEY":     "testnet-key-abc",
		"MAX_POSITION_SIZE":   "100",
	}
}

func commitFrom(t *testing.T, store *baseline.Store, env envkey.Snapshot, now time.Time) {
	t.Helper()
	if _, err := store.Commit(env.Filter(testTrackedKeys), "test", now); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

func TestEvaluateMissingBaseline(t *testing.T) {
	ev, _, _ := newTestEvaluator(t)
	now := time.Now()

	d, err := ev.Evaluate(safeEnv(), now)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !d.BaselineMissing {
		t.Fatalf("BaselineMissing = false, want true")
	}
	if d.DriftVerdict != drift.VerdictBlock {
		t.Fatalf("DriftVerdict = %s, want %s", d.DriftVerdict, drift.VerdictBlock)
	}
	if !d.TestnetAllowed {
		t.Fatalf("TestnetAllowed = false for safe env")
	}
	if d.TradingAllowed {
		t.Fatalf("TradingAllowed = true with no baseline; a missing baseline must block")
	}
}

func TestEvaluateCleanEnvironment(t *testing.T) {
	ev, store, _ := newTestEvaluator(t)
	now := time.Now()
	env := safeEnv()
	commitFrom(t, store, env, now.Add(-time.Hour))

	d, err := ev.Evaluate(env, now)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(d.Drifts) != 0 {
		t.Fatalf("Drifts = %v, want none", d.Drifts)
	}
	if d.DriftVerdict != drift.VerdictPass {
		t.Fatalf("DriftVerdict = %s, want %s", d.DriftVerdict, drift.VerdictPass)
	}
	if d.Mode != guard.ModeTestnetPaper {
		t.Fatalf("Mode = %s, want %s", d.Mode, guard.ModeTestnetPaper)
	}
	// Feeds never reported: UNKNOWN, which on its own does not block.
	if d.Health.Overall == freshness.StateRed {
		t.Fatalf("Overall health = RED with no observations")
	}
	if !d.TradingAllowed {
		t.Fatalf("TradingAllowed = false for clean environment")
	}
}

func TestEvaluateSoftDriftStillAllowed(t *testing.T) {
	ev, store, _ := newTestEvaluator(t)
	now := time.Now()
	commitFrom(t, store, safeEnv(), now.Add(-time.Hour))

	env := safeEnv()
	env["MAX_POSITION_SIZE"] = "250"
	d, err := ev.Evaluate(env, now)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.SoftCount() != 1 || d.HardCount() != 0 {
		t.Fatalf("soft=%d hard=%d, want 1 soft", d.SoftCount(), d.HardCount())
	}
	if d.DriftVerdict != drift.VerdictPass {
		t.Fatalf("DriftVerdict = %s, want %s for SOFT-only drift", d.DriftVerdict, drift.VerdictPass)
	}
	if !d.TradingAllowed {
		t.Fatalf("TradingAllowed = false for SOFT-only drift in paper mode")
	}
}

func TestEvaluateCriticalDriftBlocks(t *testing.T) {
	ev, store, _ := newTestEvaluator(t)
	now := time.Now()
	commitFrom(t, store, safeEnv(), now.Add(-time.Hour))

	env := safeEnv()
	env["BINANCE_API_KEY"] = "different-key"
	d, err := ev.Evaluate(env, now)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.HardCount() != 1 {
		t.Fatalf("HardCount = %d, want 1", d.HardCount())
	}
	if d.DriftVerdict != drift.VerdictBlock {
		t.Fatalf("DriftVerdict = %s, want %s", d.DriftVerdict, drift.VerdictBlock)
	}
	if d.TradingAllowed {
		t.Fatalf("TradingAllowed = true with HARD drift on a critical key")
	}
}

func TestEvaluateTestnetViolationBlocks(t *testing.T) {
	ev, store, _ := newTestEvaluator(t)
	now := time.Now()
	env := safeEnv()
	env["BINANCE_USE_TESTNET"] = "false"
	// Baseline matches the current env so only the guard itself fails.
	commitFrom(t, store, env, now.Add(-time.Hour))

	d, err := ev.Evaluate(env, now)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.TestnetAllowed {
		t.Fatalf("TestnetAllowed = true with BINANCE_USE_TESTNET=false")
	}
	if len(d.TestnetReasons) == 0 {
		t.Fatalf("TestnetReasons empty; want at least one reason")
	}
	if d.DriftVerdict != drift.VerdictPass {
		t.Fatalf("DriftVerdict = %s, want %s", d.DriftVerdict, drift.VerdictPass)
	}
	if d.TradingAllowed {
		t.Fatalf("TradingAllowed = true despite failed testnet guard")
	}
}

func TestEvaluateRedFeedBlocks(t *testing.T) {
	ev, store, tracker := newTestEvaluator(t)
	now := time.Now()
	env := safeEnv()
	commitFrom(t, store, env, now.Add(-time.Hour))
	tracker.Observe(freshness.FeedUnified, now.Add(-10*time.Minute))
	tracker.Observe(freshness.FeedDataBus, now.Add(-time.Second))

	d, err := ev.Evaluate(env, now)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.Health.Unified != freshness.StateRed {
		t.Fatalf("Unified = %s, want %s", d.Health.Unified, freshness.StateRed)
	}
	if d.Health.Overall != freshness.StateRed {
		t.Fatalf("Overall = %s, want %s", d.Health.Overall, freshness.StateRed)
	}
	if d.DriftVerdict != drift.VerdictPass {
		t.Fatalf("DriftVerdict = %s, want %s", d.DriftVerdict, drift.VerdictPass)
	}
	if d.TradingAllowed {
		t.Fatalf("TradingAllowed = true with a RED feed")
	}
}

func TestEvaluateLiveModeHardensDrift(t *testing.T) {
	ev, store, _ := newTestEvaluator(t)
	now := time.Now()
	env := envkey.Snapshot{
		"BINANCE_USE_TESTNET":  "false",
		"TRADING_MODE":         "live",
		"LIVE_TRADING_ENABLED": "true",
		"DRY_RUN":              "false",
		"BINANCE_API_KEY":      "live-key",
		"MAX_POSITION_SIZE":    "100",
	}
	commitFrom(t, store, env, now.Add(-time.Hour))

	env["MAX_POSITION_SIZE"] = "9000"
	d, err := ev.Evaluate(env, now)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.Mode != guard.ModeLive {
		t.Fatalf("Mode = %s, want %s", d.Mode, guard.ModeLive)
	}
	if d.HardCount() != 1 {
		t.Fatalf("HardCount = %d, want 1; every drift is HARD in live mode", d.HardCount())
	}
	if d.DriftVerdict != drift.VerdictBlock {
		t.Fatalf("DriftVerdict = %s, want %s", d.DriftVerdict, drift.VerdictBlock)
	}
	if d.TradingAllowed {
		t.Fatalf("TradingAllowed = true with HARD drift in live mode")
	}
}
