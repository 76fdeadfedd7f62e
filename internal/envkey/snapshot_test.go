package envkey

import "testing"

func TestSnapshotGetDefault(t *testing.T) {
	snap := Snapshot{"TRADING_MODE": "paper"}
	if got := snap.Get("trading_mode", "live"); got != "paper" {
		t.Fatalf("expected paper, got %q", got)
	}
	if got := snap.Get("MISSING", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestSnapshotGetBlankIsNotUnset(t *testing.T) {
	snap := Snapshot{"TRADING_MODE": ""}
	if got := snap.Get("TRADING_MODE", "paper"); got != "" {
		t.Fatalf("blank value must be returned, not the fallback; got %q", got)
	}
}

func TestSnapshotGetNormalizesLookup(t *testing.T) {
	snap := Snapshot{"TESTNET": "true"}
	if got := snap.Get("env.is_testnet", "false"); got != "true" {
		t.Fatalf("alias lookup failed, got %q", got)
	}
}

func TestSnapshotBool(t *testing.T) {
	snap := Snapshot{"A": "yes", "B": "OFF", "C": "maybe", "D": ""}
	if !snap.Bool("A", false) {
		t.Fatalf("yes should parse true")
	}
	if snap.Bool("B", true) {
		t.Fatalf("OFF should parse false")
	}
	if !snap.Bool("C", true) {
		t.Fatalf("garbled flag should keep fallback")
	}
	if !snap.Bool("D", true) {
		t.Fatalf("blank flag should keep fallback")
	}
	if snap.Bool("MISSING", false) {
		t.Fatalf("missing flag should keep fallback")
	}
}

func TestSnapshotFilter(t *testing.T) {
	snap := Snapshot{"TESTNET": "true", "BASE_URL": "https://x", "EXTRA": "1"}
	got := snap.Filter([]string{"is_testnet", "BASE_URL", "UNSET_KEY", ""})
	if len(got) != 3 {
		t.Fatalf("expected 3 tracked keys, got %v", got)
	}
	if got["TESTNET"] != "true" || got["BASE_URL"] != "https://x" {
		t.Fatalf("unexpected filter result: %v", got)
	}
	if v, ok := got["UNSET_KEY"]; !ok || v != "" {
		t.Fatalf("unset tracked key should be present with empty value")
	}
}
