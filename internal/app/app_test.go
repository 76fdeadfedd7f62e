package app

import (
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"trade-guard/internal/baseline"
	"trade-guard/internal/drift"
	"trade-guard/internal/freshness"
	"trade-guard/internal/gate"
	"trade-guard/internal/health"
	"trade-guard/internal/metrics"
)

type countingCounter struct {
	n *int
}

func (c countingCounter) Inc() { *c.n++ }

func TestBlockReasons(t *testing.T) {
	a := &App{}
	d := Decision{
		TestnetAllowed:  false,
		TestnetReasons:  []string{"BINANCE_USE_TESTNET=false (expected:true)"},
		BaselineMissing: true,
		Drifts: []drift.Classified{
			{
				DriftRecord: baseline.DriftRecord{Key: "BINANCE_API_KEY", Kind: baseline.ChangeModified},
				Severity:    drift.SeverityHard,
			},
			{
				DriftRecord: baseline.DriftRecord{Key: "MAX_POSITION_SIZE", Kind: baseline.ChangeModified},
				Severity:    drift.SeveritySoft,
			},
		},
		Health: health.Evaluation{
			Unified: freshness.StateRed,
			DataBus: freshness.StateOK,
			Overall: freshness.StateRed,
		},
	}

	reasons := a.blockReasons(d)
	joined := strings.Join(reasons, "\n")
	for _, want := range []string{
		"BINANCE_USE_TESTNET=false (expected:true)",
		"baseline missing",
		"HARD drift: BINANCE_API_KEY",
		"feed health RED",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("reasons %q missing %q", reasons, want)
		}
	}
	if strings.Contains(joined, "MAX_POSITION_SIZE") {
		t.Fatalf("SOFT drift listed as a block reason: %q", reasons)
	}
}

func TestHealthGauge(t *testing.T) {
	cases := []struct {
		state freshness.State
		want  float64
	}{
		{freshness.StateOK, 0},
		{freshness.StateYellow, 1},
		{freshness.StateRed, 2},
		{freshness.StateUnknown, 3},
	}
	for _, tc := range cases {
		if got := healthGauge(tc.state); got != tc.want {
			t.Fatalf("healthGauge(%s) = %v, want %v", tc.state, got, tc.want)
		}
	}
}

func TestHandleSignalMetrics(t *testing.T) {
	var allowed, blocked int
	m := metrics.NewNoop()
	m.SignalsAllowed = countingCounter{&allowed}
	m.SignalsBlocked = countingCounter{&blocked}

	a := &App{metrics: m, log: zap.NewNop()}
	a.gate.Store(gate.New(safeEnv(), zap.NewNop()))

	a.handleSignal(gate.Signal{Symbol: "BTCUSDT", Strategy: "momentum", Source: "scanner", Confidence: 0.8})
	a.handleSignal(gate.Signal{Symbol: "BTCUSDT", Strategy: "default", Source: "random", Confidence: 0.05})

	if allowed != 1 {
		t.Fatalf("SignalsAllowed = %d, want 1", allowed)
	}
	if blocked != 1 {
		t.Fatalf("SignalsBlocked = %d, want 1", blocked)
	}
}

func TestDecisionCounts(t *testing.T) {
	d := Decision{
		EvaluatedAt: time.Now(),
		Drifts: []drift.Classified{
			{Severity: drift.SeveritySoft},
			{Severity: drift.SeveritySoft},
			{Severity: drift.SeverityHard},
		},
	}
	if d.SoftCount() != 2 || d.HardCount() != 1 {
		t.Fatalf("soft=%d hard=%d, want 2/1", d.SoftCount(), d.HardCount())
	}
}
