package envkey

import (
	"os"
	"strings"
)

// Snapshot is a single consistent read of the process environment, keyed by
// normalized name. Guard and gate evaluations take a Snapshot instead of
// reading os.Getenv directly so every decision is a pure function of one
// capture and tests never mutate real process state.
type Snapshot map[string]string

// Capture reads the current process environment into a Snapshot. When two raw
// keys normalize to the same canonical key the later entry wins.
func Capture() Snapshot {
	snap := make(Snapshot)
	for _, kv := range os.Environ() {
		key, val, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		n := Normalize(key)
		if n == "" {
			continue
		}
		snap[n] = val
	}
	return snap
}

// Get returns the value for a key (normalized before lookup), or fallback
// only when the key is absent. A present-but-blank value is returned as is:
// blank is an answer, not an omission, and checks must see it rather than
// the safe default it would otherwise masquerade as.
func (s Snapshot) Get(key, fallback string) string {
	val, ok := s[Normalize(key)]
	if !ok {
		return fallback
	}
	return val
}

// Bool reads a boolean-ish indicator. Recognized true values are
// true/1/yes/on, false values are false/0/no/off; anything else returns the
// fallback so a garbled flag never silently flips a safety decision.
func (s Snapshot) Bool(key string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(s.Get(key, ""))) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return fallback
	}
}

// Filter returns a copy of the snapshot restricted to the given tracked keys
// (normalized). Keys absent from the snapshot map to "" so removals stay
// visible to the baseline diff.
func (s Snapshot) Filter(tracked []string) map[string]string {
	out := make(map[string]string, len(tracked))
	for _, k := range tracked {
		n := Normalize(k)
		if n == "" {
			continue
		}
		out[n] = s[n]
	}
	return out
}
