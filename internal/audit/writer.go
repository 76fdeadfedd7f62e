// Package audit streams guard decisions and drift events into
// Timescale/Postgres for after-the-fact review. Writes are asynchronous and
// lossy under backpressure; the audit trail must never stall an evaluation.
package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"trade-guard/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const writeTimeout = 3 * time.Second

// DecisionRow is one periodic evaluation outcome.
type DecisionRow struct {
	Time            time.Time
	Mode            string
	TradingAllowed  bool
	TestnetAllowed  bool
	TestnetReasons  string
	DriftVerdict    string
	BaselineMissing bool
	SoftDrifts      int
	HardDrifts      int
	UnifiedHealth   string
	DataBusHealth   string
	OverallHealth   string
}

// DriftRow is one drifted key. Fingerprints only, never raw values.
type DriftRow struct {
	Time     time.Time
	Key      string
	Kind     string
	Severity string
	OldHash  string
	NewHash  string
}

type Writer struct {
	db        *sql.DB
	log       *zap.Logger
	schema    string
	decisions chan DecisionRow
	drifts    chan DriftRow
	started   atomic.Bool
	dropDec   atomic.Uint64
	dropDrift atomic.Uint64
}

func New(cfg config.AuditConfig, log *zap.Logger) (*Writer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("audit dsn is required")
	}
	schema := strings.TrimSpace(cfg.Schema)
	if schema == "" {
		schema = "public"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	writer := &Writer{
		db:        db,
		log:       log,
		schema:    schema,
		decisions: make(chan DecisionRow, queueSize),
		drifts:    make(chan DriftRow, queueSize),
	}
	if err := writer.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return writer, nil
}

func (w *Writer) Start(ctx context.Context) {
	if w == nil {
		return
	}
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.run(ctx)
}

func (w *Writer) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

func (w *Writer) EnqueueDecision(row DecisionRow) {
	if w == nil {
		return
	}
	select {
	case w.decisions <- row:
		return
	default:
		if w.dropDec.Add(1) == 1 && w.log != nil {
			w.log.Warn("audit decision queue full")
		}
	}
}

func (w *Writer) EnqueueDrift(row DriftRow) {
	if w == nil {
		return
	}
	select {
	case w.drifts <- row:
		return
	default:
		if w.dropDrift.Add(1) == 1 && w.log != nil {
			w.log.Warn("audit drift queue full")
		}
	}
}

func (w *Writer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case row := <-w.decisions:
			w.writeDecision(ctx, row)
		case row := <-w.drifts:
			w.writeDrift(ctx, row)
		}
	}
}

func (w *Writer) ensureSchema(ctx context.Context) error {
	if w.db == nil {
		return errors.New("audit db not initialized")
	}
	if w.schema != "public" {
		if err := w.exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", w.schema)); err != nil {
			return err
		}
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		mode TEXT NOT NULL,
		trading_allowed BOOLEAN NOT NULL,
		testnet_allowed BOOLEAN NOT NULL,
		testnet_reasons TEXT NOT NULL DEFAULT '',
		drift_verdict TEXT NOT NULL,
		baseline_missing BOOLEAN NOT NULL,
		soft_drifts INTEGER NOT NULL,
		hard_drifts INTEGER NOT NULL,
		unified_health TEXT NOT NULL,
		databus_health TEXT NOT NULL,
		overall_health TEXT NOT NULL
	)`, w.table("guard_decisions"))); err != nil {
		return err
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		key TEXT NOT NULL,
		kind TEXT NOT NULL,
		severity TEXT NOT NULL,
		old_hash TEXT NOT NULL,
		new_hash TEXT NOT NULL
	)`, w.table("drift_events"))); err != nil {
		return err
	}
	if err := w.exec(ctx, "CREATE EXTENSION IF NOT EXISTS timescaledb"); err != nil {
		if w.log != nil {
			w.log.Warn("timescale extension ensure failed", zap.Error(err))
		}
		return nil
	}
	for _, table := range []string{"guard_decisions", "drift_events"} {
		if err := w.exec(ctx, fmt.Sprintf("SELECT create_hypertable('%s', 'ts', if_not_exists => TRUE)", w.table(table))); err != nil && w.log != nil {
			w.log.Warn("hypertable create failed", zap.String("table", table), zap.Error(err))
		}
	}
	return nil
}

func (w *Writer) writeDecision(ctx context.Context, row DecisionRow) {
	if w.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (
		ts, mode, trading_allowed, testnet_allowed, testnet_reasons, drift_verdict,
		baseline_missing, soft_drifts, hard_drifts, unified_health, databus_health, overall_health
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`, w.table("guard_decisions"))
	if _, err := w.db.ExecContext(ctx, query,
		row.Time,
		row.Mode,
		row.TradingAllowed,
		row.TestnetAllowed,
		row.TestnetReasons,
		row.DriftVerdict,
		row.BaselineMissing,
		row.SoftDrifts,
		row.HardDrifts,
		row.UnifiedHealth,
		row.DataBusHealth,
		row.OverallHealth,
	); err != nil && w.log != nil {
		w.log.Warn("audit decision insert failed", zap.Error(err))
	}
}

func (w *Writer) writeDrift(ctx context.Context, row DriftRow) {
	if w.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (
		ts, key, kind, severity, old_hash, new_hash
	) VALUES ($1,$2,$3,$4,$5,$6)`, w.table("drift_events"))
	if _, err := w.db.ExecContext(ctx, query,
		row.Time,
		row.Key,
		row.Kind,
		row.Severity,
		row.OldHash,
		row.NewHash,
	); err != nil && w.log != nil {
		w.log.Warn("audit drift insert failed", zap.Error(err))
	}
}

func (w *Writer) exec(ctx context.Context, query string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := w.db.ExecContext(ctx, query)
	return err
}

func (w *Writer) table(name string) string {
	return w.schema + "." + name
}
