package state

import (
	"context"
	"reflect"
	"testing"
)

type memStore struct {
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte) error {
	m.data[key] = value
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *memStore) Close() error { return nil }

func TestDecisionSnapshotRoundTrip(t *testing.T) {
	store := newMemStore()
	in := DecisionSnapshot{
		TradingAllowed:  false,
		Mode:            "TESTNET_PAPER",
		TestnetAllowed:  true,
		DriftVerdict:    "BLOCK",
		BaselineMissing: false,
		SoftDrifts:      2,
		HardDrifts:      1,
		UnifiedHealth:   "OK",
		DataBusHealth:   "YELLOW",
		OverallHealth:   "YELLOW",
		EvaluatedAtMS:   1_700_000_000_000,
	}
	if err := SaveDecisionSnapshot(context.Background(), store, in); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	out, ok, err := LoadDecisionSnapshot(context.Background(), store)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected snapshot to exist")
	}
	if !reflect.DeepEqual(out, in) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", out, in)
	}
}

func TestDecisionSnapshotMissing(t *testing.T) {
	_, ok, err := LoadDecisionSnapshot(context.Background(), newMemStore())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if ok {
		t.Fatalf("expected no snapshot")
	}
}

func TestDecisionSnapshotNilStore(t *testing.T) {
	if err := SaveDecisionSnapshot(context.Background(), nil, DecisionSnapshot{}); err != nil {
		t.Fatalf("nil store save should be a no-op: %v", err)
	}
	_, ok, err := LoadDecisionSnapshot(context.Background(), nil)
	if err != nil || ok {
		t.Fatalf("nil store load should be empty, got ok=%v err=%v", ok, err)
	}
}
