package guard

import "trade-guard/internal/envkey"

// Mode is the safety-relevant operating mode, derived from the environment on
// every evaluation and never cached across calls.
type Mode string

const (
	ModeLive         Mode = "LIVE"
	ModeTestnetPaper Mode = "TESTNET_PAPER"
)

// Indicator keys, read through the normalizer so historical spellings
// (IS_TESTNET, SIMULATION_MODE, ...) resolve to the same flags.
const (
	keyUseTestnet  = "BINANCE_USE_TESTNET"
	keyTradingMode = "TRADING_MODE"
	keyLiveEnabled = "LIVE_TRADING_ENABLED"
	keyDryRun      = "DRY_RUN"
)

// CurrentMode derives the trading mode from three independent indicators.
// LIVE requires all three to agree the system is not in safe mode: testnet
// off, dry-run off, live trading explicitly enabled. Any single indicator
// favoring safety forces TESTNET_PAPER, so ambiguity never resolves toward
// live trading.
func CurrentMode(env envkey.Snapshot) Mode {
	useTestnet := env.Bool(keyUseTestnet, true)
	dryRun := env.Bool(keyDryRun, true)
	liveEnabled := env.Bool(keyLiveEnabled, false)
	if !useTestnet && !dryRun && liveEnabled {
		return ModeLive
	}
	return ModeTestnetPaper
}

// AnyLiveIndicator reports whether any single indicator points away from the
// safe state: testnet off, dry-run off, or live trading enabled. Deliberately
// asymmetric from CurrentMode: entering LIVE requires all three, but
// permission overrides fire on any one, so a half-armed system is already
// treated as live for them.
func AnyLiveIndicator(env envkey.Snapshot) bool {
	return !env.Bool(keyUseTestnet, true) ||
		!env.Bool(keyDryRun, true) ||
		env.Bool(keyLiveEnabled, false)
}
