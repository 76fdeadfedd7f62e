package state

import (
	"context"

	"github.com/vmihailenco/msgpack/v5"
)

const DecisionSnapshotKey = "guard:last_decision"

// DecisionSnapshot is the last evaluation outcome, persisted so a restart can
// report what the guard concluded before it went down. Encoded with msgpack.
type DecisionSnapshot struct {
	TradingAllowed  bool     `msgpack:"trading_allowed"`
	Mode            string   `msgpack:"mode"`
	TestnetAllowed  bool     `msgpack:"testnet_allowed"`
	TestnetReasons  []string `msgpack:"testnet_reasons"`
	DriftVerdict    string   `msgpack:"drift_verdict"`
	BaselineMissing bool     `msgpack:"baseline_missing"`
	SoftDrifts      int      `msgpack:"soft_drifts"`
	HardDrifts      int      `msgpack:"hard_drifts"`
	UnifiedHealth   string   `msgpack:"unified_health"`
	DataBusHealth   string   `msgpack:"databus_health"`
	OverallHealth   string   `msgpack:"overall_health"`
	EvaluatedAtMS   int64    `msgpack:"evaluated_at_ms"`
}

func LoadDecisionSnapshot(ctx context.Context, store Store) (DecisionSnapshot, bool, error) {
	if store == nil {
		return DecisionSnapshot{}, false, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	raw, ok, err := store.Get(ctx, DecisionSnapshotKey)
	if err != nil {
		return DecisionSnapshot{}, false, err
	}
	if !ok || len(raw) == 0 {
		return DecisionSnapshot{}, false, nil
	}
	var snapshot DecisionSnapshot
	if err := msgpack.Unmarshal(raw, &snapshot); err != nil {
		return DecisionSnapshot{}, false, err
	}
	return snapshot, true, nil
}

func SaveDecisionSnapshot(ctx context.Context, store Store, snapshot DecisionSnapshot) error {
	if store == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	payload, err := msgpack.Marshal(snapshot)
	if err != nil {
		return err
	}
	return store.Set(ctx, DecisionSnapshotKey, payload)
}
