package baseline

import (
	"sort"
	"time"

	"trade-guard/internal/envkey"
)

// Baseline is the trusted fingerprinted snapshot of tracked configuration.
// Once committed it is immutable; a drift check only reads it, and it is
// replaced exclusively by an explicit re-baseline.
type Baseline struct {
	CreatedAt time.Time              `json:"created_at"`
	Source    string                 `json:"source"`
	Keys      map[string]Fingerprint `json:"keys"`
}

// ChangeKind describes how a key drifted relative to the baseline.
type ChangeKind string

const (
	ChangeModified ChangeKind = "modified"
	ChangeAdded    ChangeKind = "added"
	ChangeRemoved  ChangeKind = "removed"
)

// DriftRecord is one drifted key. Records are recomputed on every check and
// never persisted as authoritative state.
type DriftRecord struct {
	Key        string
	Kind       ChangeKind
	Old        Fingerprint
	New        Fingerprint
	DetectedAt time.Time
}

// Compute builds a Baseline from an environment mapping. Keys are normalized
// and values reduced to fingerprints; the raw values do not survive the call.
func Compute(env map[string]string, source string, now time.Time) *Baseline {
	keys := make(map[string]Fingerprint, len(env))
	for raw, value := range env {
		n := envkey.Normalize(raw)
		if n == "" {
			continue
		}
		keys[n] = NewFingerprint(value)
	}
	return &Baseline{CreatedAt: now.UTC(), Source: source, Keys: keys}
}

// Diff compares the current environment against a baseline over the union of
// both key sets, so removals are never silently missed. A nil result means
// zero drift. The baseline is not mutated.
func Diff(b *Baseline, env map[string]string, now time.Time) []DriftRecord {
	current := make(map[string]Fingerprint, len(env))
	for raw, value := range env {
		n := envkey.Normalize(raw)
		if n == "" {
			continue
		}
		current[n] = NewFingerprint(value)
	}

	union := make([]string, 0, len(b.Keys)+len(current))
	seen := make(map[string]struct{}, len(b.Keys)+len(current))
	for k := range b.Keys {
		union = append(union, k)
		seen[k] = struct{}{}
	}
	for k := range current {
		if _, ok := seen[k]; !ok {
			union = append(union, k)
		}
	}
	sort.Strings(union)

	var records []DriftRecord
	for _, key := range union {
		old, inBaseline := b.Keys[key]
		cur, inCurrent := current[key]
		switch {
		case inBaseline && inCurrent:
			if !old.Equal(cur) {
				records = append(records, DriftRecord{Key: key, Kind: ChangeModified, Old: old, New: cur, DetectedAt: now})
			}
		case inBaseline:
			records = append(records, DriftRecord{Key: key, Kind: ChangeRemoved, Old: old, New: NewFingerprint(""), DetectedAt: now})
		default:
			// Key appeared since the baseline was committed. Treated as
			// drift: an operator adding config under a live guard should
			// re-baseline explicitly.
			records = append(records, DriftRecord{Key: key, Kind: ChangeAdded, Old: NewFingerprint(""), New: cur, DetectedAt: now})
		}
	}
	return records
}
