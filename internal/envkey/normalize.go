package envkey

import "strings"

// Prefixes stripped during normalization, checked in order. Only the first
// match is removed so CONFIG.ENV.FOO normalizes to ENV.FOO's canonical form
// exactly once per call.
var prefixes = []string{"ENV.", "RUNTIME.", "CONFIG.", "SSOT."}

// Historical spellings collapsed to one canonical key.
var aliases = map[string]string{
	"IS_TESTNET":      "TESTNET",
	"SIMULATION_MODE": "TESTNET",
	"PAPER_TRADING":   "TESTNET",
	"LIVE_TRADING":    "LIVE_TRADING_ENABLED",
}

// Normalize canonicalizes a raw environment key: trim, uppercase, strip at
// most one recognized prefix, then apply the alias table. Empty or
// whitespace-only input normalizes to "", which never matches a tracked key.
func Normalize(raw string) string {
	key := strings.ToUpper(strings.TrimSpace(raw))
	if key == "" {
		return ""
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(key, prefix) {
			key = key[len(prefix):]
			break
		}
	}
	if canonical, ok := aliases[key]; ok {
		return canonical
	}
	return key
}

// NormalizeSet normalizes every key and drops empties and duplicates. Order
// of the result is unspecified.
func NormalizeSet(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, k := range raw {
		n := Normalize(k)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
