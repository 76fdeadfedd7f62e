// Package drift classifies baseline drift records into SOFT and HARD
// severities and folds them into a pass/block verdict.
//
// Policy: critical keys are HARD in every mode; in LIVE mode all drift is
// HARD; otherwise drift is SOFT. The safety margin narrows to zero the
// moment the system is live.
package drift

import (
	"trade-guard/internal/baseline"
	"trade-guard/internal/envkey"
	"trade-guard/internal/guard"
)

// Severity of one drifted key.
type Severity string

const (
	SeveritySoft Severity = "SOFT"
	SeverityHard Severity = "HARD"
)

// Verdict is the overall drift decision.
type Verdict string

const (
	VerdictPass  Verdict = "PASS"
	VerdictBlock Verdict = "BLOCK"
)

// Classified is a drift record with its assigned severity.
type Classified struct {
	baseline.DriftRecord
	Severity Severity
}

// CriticalSet holds the keys that are hard-blocking regardless of mode.
type CriticalSet map[string]struct{}

// NewCriticalSet normalizes the given keys into a set.
func NewCriticalSet(keys []string) CriticalSet {
	set := make(CriticalSet, len(keys))
	for _, k := range keys {
		if n := envkey.Normalize(k); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

func (c CriticalSet) Contains(key string) bool {
	_, ok := c[envkey.Normalize(key)]
	return ok
}

// ClassifySeverity assigns the severity for a single drifted key.
func ClassifySeverity(key string, mode guard.Mode, critical CriticalSet) Severity {
	if critical.Contains(key) {
		return SeverityHard
	}
	if mode == guard.ModeLive {
		return SeverityHard
	}
	return SeveritySoft
}

// Classify assigns severities to every record.
func Classify(records []baseline.DriftRecord, mode guard.Mode, critical CriticalSet) []Classified {
	out := make([]Classified, 0, len(records))
	for _, r := range records {
		out = append(out, Classified{
			DriftRecord: r,
			Severity:    ClassifySeverity(r.Key, mode, critical),
		})
	}
	return out
}

// OverallVerdict is BLOCK if any record is HARD. SOFT records are reported
// but never block.
func OverallVerdict(records []Classified) Verdict {
	for _, r := range records {
		if r.Severity == SeverityHard {
			return VerdictBlock
		}
	}
	return VerdictPass
}
