package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log       LoggingConfig   `yaml:"log"`
	Guard     GuardConfig     `yaml:"guard"`
	Baseline  BaselineConfig  `yaml:"baseline"`
	Freshness FreshnessConfig `yaml:"freshness"`
	Bus       BusConfig       `yaml:"bus"`
	State     StateConfig     `yaml:"state"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Audit     AuditConfig     `yaml:"audit"`
	Telegram  TelegramConfig  `yaml:"telegram"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type GuardConfig struct {
	// Interval between periodic evaluations.
	Interval time.Duration `yaml:"interval"`
	// TrackedKeys are the environment keys covered by the baseline.
	TrackedKeys []string `yaml:"tracked_keys"`
	// CriticalKeys drift HARD in every mode.
	CriticalKeys []string `yaml:"critical_keys"`
}

type BaselineConfig struct {
	Path      string `yaml:"path"`
	BackupDir string `yaml:"backup_dir"`
}

type FreshnessConfig struct {
	UnifiedOK     time.Duration `yaml:"unified_ok"`
	UnifiedYellow time.Duration `yaml:"unified_yellow"`
	DataBusOK     time.Duration `yaml:"databus_ok"`
	DataBusYellow time.Duration `yaml:"databus_yellow"`
	// HealthFile is an optional feeder-written snapshot of per-feed
	// last-update timestamps, read when the bus is disabled.
	HealthFile string `yaml:"health_file"`
}

type BusConfig struct {
	Enabled        bool          `yaml:"enabled"`
	URL            string        `yaml:"url"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	PingInterval   time.Duration `yaml:"ping_interval"`
}

type StateConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Address string `yaml:"address"`
	Path    string `yaml:"path"`
}

func (m MetricsConfig) EnabledValue() bool {
	return m.Enabled != nil && *m.Enabled
}

type AuditConfig struct {
	Enabled         bool          `yaml:"enabled"`
	DSN             string        `yaml:"dsn"`
	Schema          string        `yaml:"schema"`
	QueueSize       int           `yaml:"queue_size"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  string `yaml:"chat_id"`
}

// Default key sets mirror the operational baseline of the trading stack: API
// credentials may rotate, but mode flags, endpoints and risk limits are
// hard-blocking wherever they drift.
var (
	defaultTrackedKeys = []string{
		"BINANCE_API_KEY",
		"BINANCE_API_SECRET",
		"TESTNET",
		"BINANCE_USE_TESTNET",
		"TRADING_MODE",
		"LIVE_TRADING_ENABLED",
		"DRY_RUN",
		"BASE_URL",
		"RISK_LIMITS",
		"DAILY_LOSS_LIMIT",
		"POSITION_LIMITS",
		"MAX_POSITION_SIZE",
		"CIRCUIT_BREAKER_ENABLED",
		"LOG_LEVEL",
		"AUTO_REFRESH_INTERVAL",
	}
	defaultCriticalKeys = []string{
		"TESTNET",
		"BINANCE_USE_TESTNET",
		"BASE_URL",
		"RISK_LIMITS",
		"DAILY_LOSS_LIMIT",
		"POSITION_LIMITS",
		"MAX_POSITION_SIZE",
		"CIRCUIT_BREAKER_ENABLED",
	}
)

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, validate(&cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Guard.Interval == 0 {
		cfg.Guard.Interval = 10 * time.Second
	}
	if len(cfg.Guard.TrackedKeys) == 0 {
		cfg.Guard.TrackedKeys = append([]string(nil), defaultTrackedKeys...)
	}
	if len(cfg.Guard.CriticalKeys) == 0 {
		cfg.Guard.CriticalKeys = append([]string(nil), defaultCriticalKeys...)
	}
	if cfg.Baseline.Path == "" {
		cfg.Baseline.Path = "data/baseline.json"
	}
	if cfg.Baseline.BackupDir == "" {
		cfg.Baseline.BackupDir = "data/baseline_backups"
	}
	if cfg.Freshness.UnifiedOK == 0 {
		cfg.Freshness.UnifiedOK = 30 * time.Second
	}
	if cfg.Freshness.UnifiedYellow == 0 {
		cfg.Freshness.UnifiedYellow = 120 * time.Second
	}
	if cfg.Freshness.DataBusOK == 0 {
		cfg.Freshness.DataBusOK = 60 * time.Second
	}
	if cfg.Freshness.DataBusYellow == 0 {
		cfg.Freshness.DataBusYellow = 180 * time.Second
	}
	if cfg.Bus.ReconnectDelay == 0 {
		cfg.Bus.ReconnectDelay = 3 * time.Second
	}
	if cfg.Bus.PingInterval == 0 {
		cfg.Bus.PingInterval = 30 * time.Second
	}
	if cfg.State.SQLitePath == "" {
		cfg.State.SQLitePath = "data/trade-guard.db"
	}
	if cfg.Metrics.Enabled == nil {
		enabled := true
		cfg.Metrics.Enabled = &enabled
	}
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = "127.0.0.1:9102"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Audit.Schema == "" {
		cfg.Audit.Schema = "public"
	}
	if cfg.Audit.QueueSize == 0 {
		cfg.Audit.QueueSize = 256
	}
}

func validate(cfg *Config) error {
	if cfg.Guard.Interval < time.Second {
		return errors.New("guard.interval must be at least 1s")
	}
	if cfg.Freshness.UnifiedYellow <= cfg.Freshness.UnifiedOK {
		return errors.New("freshness.unified_yellow must exceed freshness.unified_ok")
	}
	if cfg.Freshness.DataBusYellow <= cfg.Freshness.DataBusOK {
		return errors.New("freshness.databus_yellow must exceed freshness.databus_ok")
	}
	if cfg.Bus.Enabled && cfg.Bus.URL == "" {
		return errors.New("bus.url is required when bus is enabled")
	}
	if cfg.Audit.Enabled && cfg.Audit.DSN == "" {
		return errors.New("audit.dsn is required when audit is enabled")
	}
	return nil
}
