package freshness

import "time"

// State is the health tier of one feed.
type State string

const (
	StateOK      State = "OK"
	StateYellow  State = "YELLOW"
	StateRed     State = "RED"
	StateUnknown State = "UNKNOWN"
)

// Feed identifies which freshness threshold set applies.
type Feed string

const (
	// FeedUnified is the primary unified snapshot feed.
	FeedUnified Feed = "unified"
	// FeedDataBus is the aggregated data-bus feed.
	FeedDataBus Feed = "databus"
)

// Thresholds holds the inclusive upper bounds for OK and YELLOW. Ages above
// the yellow bound classify RED.
type Thresholds struct {
	OK     time.Duration
	Yellow time.Duration
}

// Default thresholds per feed, overridable via config.
var (
	DefaultUnified = Thresholds{OK: 30 * time.Second, Yellow: 120 * time.Second}
	DefaultDataBus = Thresholds{OK: 60 * time.Second, Yellow: 180 * time.Second}
)

// Classify maps a feed's last-update time against now. A zero lastUpdate
// means the feed has never reported and classifies UNKNOWN, never
// "epoch-zero is old". Negative ages (clock skew) clamp to zero.
func Classify(lastUpdate, now time.Time, th Thresholds) State {
	if lastUpdate.IsZero() {
		return StateUnknown
	}
	age := now.Sub(lastUpdate)
	if age < 0 {
		age = 0
	}
	switch {
	case age <= th.OK:
		return StateOK
	case age <= th.Yellow:
		return StateYellow
	default:
		return StateRed
	}
}

// rank orders states for aggregation. UNKNOWN ranks alongside RED: a feed
// that has never reported is as untrustworthy as one that stopped.
func rank(s State) int {
	switch s {
	case StateOK:
		return 0
	case StateYellow:
		return 1
	default:
		return 2
	}
}

// Worst returns the least healthy of the given states. When states of equal
// rank compete, RED wins over UNKNOWN so a concrete stall is never masked by
// a missing feed.
func Worst(states ...State) State {
	if len(states) == 0 {
		return StateUnknown
	}
	worst := states[0]
	for _, s := range states[1:] {
		if rank(s) > rank(worst) {
			worst = s
		} else if rank(s) == rank(worst) && s == StateRed {
			worst = StateRed
		}
	}
	return worst
}

// ShouldBlockTrading reports whether a health state on its own justifies
// suspending the order pathway. Only RED blocks; YELLOW and UNKNOWN are
// reported for the caller to combine with other verdicts.
func ShouldBlockTrading(s State) bool {
	return s == StateRed
}
