package bus

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"trade-guard/internal/freshness"
	"trade-guard/internal/gate"
)

// Envelope is the data-bus wire frame. Heartbeat timestamps are epoch
// milliseconds.
type Envelope struct {
	Type   string       `json:"type"`
	Feed   string       `json:"feed,omitempty"`
	TSMS   int64        `json:"ts_ms,omitempty"`
	Signal *gate.Signal `json:"signal,omitempty"`
}

// FeedObserver receives heartbeat timestamps, typically the health tracker.
type FeedObserver interface {
	Observe(feed freshness.Feed, at time.Time)
}

// SignalHandler receives signals parsed off the bus.
type SignalHandler func(gate.Signal)

// Dispatcher routes raw bus frames to the feed observer and signal handler.
type Dispatcher struct {
	feeds   FeedObserver
	signals SignalHandler
	log     *zap.Logger
}

func NewDispatcher(feeds FeedObserver, signals SignalHandler, log *zap.Logger) *Dispatcher {
	return &Dispatcher{feeds: feeds, signals: signals, log: log}
}

// Handle parses one frame. Malformed frames are logged and dropped; the bus
// stream must survive one bad producer.
func (d *Dispatcher) Handle(raw json.RawMessage) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if d.log != nil {
			d.log.Warn("bus frame decode failed", zap.Error(err))
		}
		return
	}
	switch env.Type {
	case "heartbeat":
		d.handleHeartbeat(env)
	case "signal":
		if env.Signal != nil && d.signals != nil {
			d.signals(*env.Signal)
		}
	case "pong", "":
		// keepalive noise
	default:
		if d.log != nil {
			d.log.Debug("unhandled bus frame", zap.String("type", env.Type))
		}
	}
}

func (d *Dispatcher) handleHeartbeat(env Envelope) {
	if d.feeds == nil || env.TSMS <= 0 {
		return
	}
	switch env.Feed {
	case string(freshness.FeedUnified):
		d.feeds.Observe(freshness.FeedUnified, time.UnixMilli(env.TSMS))
	case string(freshness.FeedDataBus):
		d.feeds.Observe(freshness.FeedDataBus, time.UnixMilli(env.TSMS))
	default:
		if d.log != nil {
			d.log.Debug("heartbeat for unknown feed", zap.String("feed", env.Feed))
		}
	}
}
