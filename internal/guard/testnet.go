package guard

import (
	"fmt"
	"strings"

	"trade-guard/internal/envkey"
)

// expected testnet-only indicator values. Defaults when unset are the safe
// values, so a blank environment passes.
var testnetExpectations = []struct {
	key      string
	fallback string
	expected string
}{
	{keyUseTestnet, "true", "true"},
	{keyTradingMode, "paper", "paper"},
	{keyLiveEnabled, "false", "false"},
}

// CheckTestnetOnly verifies the three independent live-trading indicators all
// confine the system to paper/testnet. A false result is fatal to any
// order-placing pathway; the caller halts, it does not warn. The check is a
// pure function of the snapshot and can be re-run at any time.
func CheckTestnetOnly(env envkey.Snapshot) (bool, []string) {
	var reasons []string
	for _, exp := range testnetExpectations {
		actual := strings.ToLower(strings.TrimSpace(env.Get(exp.key, exp.fallback)))
		if actual != exp.expected {
			reasons = append(reasons, fmt.Sprintf("%s=%s (expected:%s)", exp.key, actual, exp.expected))
		}
	}
	return len(reasons) == 0, reasons
}
