package monitor

import "time"

// CheckType selects which probe strategy a host uses.
type CheckType string

const (
	CheckICMP CheckType = "icmp"
	CheckHTTP CheckType = "http"
)

// Stability is the debounced verdict for a host. Unknown means the
// configured threshold has never been reached since the last reset.
type Stability int

const (
	StabilityUnknown Stability = iota
	StabilityUp
	StabilityDown
)

func (s Stability) String() string {
	switch s {
	case StabilityUp:
		return "up"
	case StabilityDown:
		return "down"
	default:
		return "unknown"
	}
}

// HostRecord is the per-host state owned by the Store. Callers only ever
// see copies; the Store mutates its own instance in place.
type HostRecord struct {
	Host      string
	CheckType CheckType

	ConsecutiveUp   int
	ConsecutiveDown int
	Stable          Stability

	InFlight bool

	LastStatusCode int // 0 if no HTTP response was ever seen
	LastChecked    time.Time
	LastLatency    time.Duration
	LastError      string

	TotalChecks int
	TotalFails  int
}

// Result is the outcome of a single probe. Probe failures of every kind
// (spawn error, timeout, bad status, redirect limit) are folded into
// Reachable=false rather than surfaced as errors.
type Result struct {
	Reachable  bool
	StatusCode int // 0 if no response (ICMP, transport error, redirect limit)
	Latency    time.Duration
	Err        string
}

// EventKind discriminates engine events.
type EventKind int

const (
	// EventHostUpdated fires after every applied result, whether or not
	// the stable verdict moved.
	EventHostUpdated EventKind = iota
	// EventStabilityChanged fires only on a debounced up/down transition.
	EventStabilityChanged
	// EventAggregateChanged fires when the overall status line changes.
	EventAggregateChanged
)

// Event is pushed to every subscriber channel.
type Event struct {
	Kind EventKind
	At   time.Time

	Host string // HostUpdated, StabilityChanged
	Up   bool   // StabilityChanged

	Aggregate string // AggregateChanged

	StatusCode int    // last status code at emit time, 0 if none
	Reason     string // last probe error at emit time, "" if none
}
