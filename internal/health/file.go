package health

import (
	"encoding/json"
	"os"
	"time"

	"trade-guard/internal/freshness"
)

// fileSnapshot is the feeder-written health file. Timestamps are epoch
// milliseconds; zero or missing fields mean the feed has never reported.
type fileSnapshot struct {
	UnifiedTSMS int64 `json:"unified_ts_ms"`
	DataBusTSMS int64 `json:"databus_ts_ms"`
}

// LoadFile feeds the tracker from a feeder-written snapshot file. A missing
// file is not an error; the affected feeds simply stay UNKNOWN.
func (t *Tracker) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var snap fileSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	if snap.UnifiedTSMS > 0 {
		t.Observe(freshness.FeedUnified, time.UnixMilli(snap.UnifiedTSMS))
	}
	if snap.DataBusTSMS > 0 {
		t.Observe(freshness.FeedDataBus, time.UnixMilli(snap.DataBusTSMS))
	}
	return nil
}
