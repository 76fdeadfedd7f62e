package app

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"trade-guard/internal/alerts"
	"trade-guard/internal/audit"
	"trade-guard/internal/baseline"
	"trade-guard/internal/bus"
	"trade-guard/internal/config"
	"trade-guard/internal/drift"
	"trade-guard/internal/envkey"
	"trade-guard/internal/freshness"
	"trade-guard/internal/gate"
	"trade-guard/internal/health"
	"trade-guard/internal/metrics"
	"trade-guard/internal/state"
	"trade-guard/internal/state/sqlite"
)

type App struct {
	cfg       *config.Config
	log       *zap.Logger
	store     *sqlite.Store
	baselines *baseline.Store
	tracker   *health.Tracker
	evaluator *Evaluator
	metrics   *metrics.Metrics
	prom      *metrics.Prometheus
	alerts    *alerts.Telegram
	audit     *audit.Writer
	bus       *bus.Client

	gate     atomic.Pointer[gate.Gate]
	decision atomic.Pointer[Decision]
}

func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.State.SQLitePath), 0o755); err != nil {
		return nil, err
	}
	store, err := sqlite.New(cfg.State.SQLitePath)
	if err != nil {
		return nil, err
	}
	baselines := baseline.NewStore(cfg.Baseline.Path, cfg.Baseline.BackupDir, log)
	tracker := health.NewTracker(cfg.Freshness)
	critical := drift.NewCriticalSet(cfg.Guard.CriticalKeys)
	evaluator := NewEvaluator(baselines, tracker, critical, cfg.Guard.TrackedKeys, log)

	m := metrics.NewNoop()
	var prom *metrics.Prometheus
	if cfg.Metrics.EnabledValue() {
		prom = metrics.NewPrometheus()
		m = prom.Metrics
	}

	auditWriter, err := audit.New(cfg.Audit, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	var busClient *bus.Client
	if cfg.Bus.Enabled {
		busClient = bus.NewClient(cfg.Bus.URL, cfg.Bus.ReconnectDelay, cfg.Bus.PingInterval, log)
	}

	a := &App{
		cfg:       cfg,
		log:       log,
		store:     store,
		baselines: baselines,
		tracker:   tracker,
		evaluator: evaluator,
		metrics:   m,
		prom:      prom,
		alerts:    alerts.NewTelegram(cfg.Telegram, log),
		audit:     auditWriter,
		bus:       busClient,
	}
	a.gate.Store(gate.New(envkey.Capture(), log))
	return a, nil
}

func (a *App) Run(ctx context.Context) error {
	defer a.store.Close()
	defer a.audit.Close()

	if prev, ok, err := state.LoadDecisionSnapshot(ctx, a.store); err != nil {
		a.log.Warn("previous decision snapshot unreadable", zap.Error(err))
	} else if ok {
		a.log.Info("previous decision",
			zap.Bool("trading_allowed", prev.TradingAllowed),
			zap.String("mode", prev.Mode),
			zap.String("drift_verdict", prev.DriftVerdict),
		)
	}

	a.audit.Start(ctx)
	if a.prom != nil {
		go a.serveMetrics(ctx)
	}
	if a.bus != nil {
		dispatcher := bus.NewDispatcher(a.tracker, a.handleSignal, a.log)
		go func() {
			if err := a.bus.Run(ctx, dispatcher.Handle); err != nil && ctx.Err() == nil {
				a.log.Error("bus terminated", zap.Error(err))
			}
		}()
	}

	// First evaluation immediately so the boot state is visible before the
	// first tick.
	a.tick(ctx)

	ticker := time.NewTicker(a.cfg.Guard.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.tick(ctx)
		}
	}
}

func (a *App) tick(ctx context.Context) {
	env := envkey.Capture()
	now := time.Now()

	if a.bus == nil && a.cfg.Freshness.HealthFile != "" {
		if err := a.tracker.LoadFile(a.cfg.Freshness.HealthFile); err != nil {
			a.log.Warn("health file unreadable", zap.Error(err))
		}
	}

	decision, err := a.evaluator.Evaluate(env, now)
	if err != nil {
		a.log.Error("evaluation failed", zap.Error(err))
		return
	}
	a.gate.Store(gate.New(env, a.log))

	prev := a.decision.Swap(&decision)
	a.publish(ctx, decision, prev)
}

func (a *App) publish(ctx context.Context, d Decision, prev *Decision) {
	a.metrics.DriftChecks.Inc()
	for i := 0; i < d.SoftCount(); i++ {
		a.metrics.SoftDrifts.Inc()
	}
	for i := 0; i < d.HardCount(); i++ {
		a.metrics.HardDrifts.Inc()
	}
	if !d.TestnetAllowed {
		a.metrics.GuardBlocks.Inc()
	}
	a.metrics.TradingAllowed.Set(boolGauge(d.TradingAllowed))
	a.metrics.UnifiedHealth.Set(healthGauge(d.Health.Unified))
	a.metrics.DataBusHealth.Set(healthGauge(d.Health.DataBus))

	a.log.Info("evaluation",
		zap.Bool("trading_allowed", d.TradingAllowed),
		zap.String("mode", string(d.Mode)),
		zap.String("drift_verdict", string(d.DriftVerdict)),
		zap.Bool("baseline_missing", d.BaselineMissing),
		zap.Int("soft_drifts", d.SoftCount()),
		zap.Int("hard_drifts", d.HardCount()),
		zap.String("health", d.Health.Summary()),
	)

	snapshot := state.DecisionSnapshot{
		TradingAllowed:  d.TradingAllowed,
		Mode:            string(d.Mode),
		TestnetAllowed:  d.TestnetAllowed,
		TestnetReasons:  d.TestnetReasons,
		DriftVerdict:    string(d.DriftVerdict),
		BaselineMissing: d.BaselineMissing,
		SoftDrifts:      d.SoftCount(),
		HardDrifts:      d.HardCount(),
		UnifiedHealth:   string(d.Health.Unified),
		DataBusHealth:   string(d.Health.DataBus),
		OverallHealth:   string(d.Health.Overall),
		EvaluatedAtMS:   d.EvaluatedAt.UnixMilli(),
	}
	if err := state.SaveDecisionSnapshot(ctx, a.store, snapshot); err != nil {
		a.log.Warn("decision snapshot save failed", zap.Error(err))
	}

	a.audit.EnqueueDecision(audit.DecisionRow{
		Time:            d.EvaluatedAt,
		Mode:            string(d.Mode),
		TradingAllowed:  d.TradingAllowed,
		TestnetAllowed:  d.TestnetAllowed,
		TestnetReasons:  strings.Join(d.TestnetReasons, "; "),
		DriftVerdict:    string(d.DriftVerdict),
		BaselineMissing: d.BaselineMissing,
		SoftDrifts:      d.SoftCount(),
		HardDrifts:      d.HardCount(),
		UnifiedHealth:   string(d.Health.Unified),
		DataBusHealth:   string(d.Health.DataBus),
		OverallHealth:   string(d.Health.Overall),
	})
	for _, r := range d.Drifts {
		a.audit.EnqueueDrift(audit.DriftRow{
			Time:     r.DetectedAt,
			Key:      r.Key,
			Kind:     string(r.Kind),
			Severity: string(r.Severity),
			OldHash:  r.Old.Hash,
			NewHash:  r.New.Hash,
		})
	}

	a.notifyTransition(ctx, d, prev)
}

func (a *App) notifyTransition(ctx context.Context, d Decision, prev *Decision) {
	if prev != nil && prev.TradingAllowed == d.TradingAllowed {
		return
	}
	if d.TradingAllowed {
		if prev == nil {
			return
		}
		if err := a.alerts.NotifyRestored(ctx); err != nil {
			a.log.Warn("restore alert failed", zap.Error(err))
		}
		return
	}
	if err := a.alerts.NotifyBlocked(ctx, a.blockReasons(d)); err != nil {
		a.log.Warn("block alert failed", zap.Error(err))
	}
}

func (a *App) blockReasons(d Decision) []string {
	var reasons []string
	reasons = append(reasons, d.TestnetReasons...)
	if d.BaselineMissing {
		reasons = append(reasons, "baseline missing: drift check cannot run")
	}
	for _, r := range d.Drifts {
		if r.Severity == drift.SeverityHard {
			reasons = append(reasons, "HARD drift: "+r.Key)
		}
	}
	if freshness.ShouldBlockTrading(d.Health.Overall) {
		reasons = append(reasons, "feed health "+string(d.Health.Overall)+": "+d.Health.Summary())
	}
	return reasons
}

// handleSignal runs one bus signal through the gate built from the latest
// evaluation's environment snapshot.
func (a *App) handleSignal(sig gate.Signal) {
	g := a.gate.Load()
	if g == nil {
		return
	}
	if g.Allow(sig) {
		a.metrics.SignalsAllowed.Inc()
		return
	}
	a.metrics.SignalsBlocked.Inc()
	a.log.Info("signal blocked",
		zap.String("symbol", sig.Symbol),
		zap.String("strategy", sig.Strategy),
		zap.String("source", sig.Source),
		zap.Float64("confidence", sig.Confidence),
	)
}

func (a *App) serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle(a.cfg.Metrics.Path, a.prom.Handler())
	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		d := a.decision.Load()
		if d == nil {
			http.Error(w, "no evaluation yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(d)
	})
	server := &http.Server{Addr: a.cfg.Metrics.Address, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		a.log.Error("metrics server failed", zap.Error(err))
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func healthGauge(s freshness.State) float64 {
	switch s {
	case freshness.StateOK:
		return 0
	case freshness.StateYellow:
		return 1
	case freshness.StateRed:
		return 2
	default:
		return 3
	}
}
