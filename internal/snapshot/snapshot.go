package snapshot

import "sync/atomic"

// Snapshot is the read-only view used by the API.
type Snapshot struct {
	Hosts     []HostDTO          `json:"hosts"`
	ByHost    map[string]HostDTO `json:"-"`
	Aggregate string             `json:"aggregate"`
	Running   bool               `json:"running"`
}

// HostDTO is what the API exposes per host.
type HostDTO struct {
	Host      string `json:"host"`
	CheckType string `json:"check_type"`
	Monitored bool   `json:"monitored"`

	Stable          string `json:"stable"` // unknown | up | down
	ConsecutiveUp   int    `json:"consecutive_up"`
	ConsecutiveDown int    `json:"consecutive_down"`
	InFlight        bool   `json:"in_flight"`

	LastChecked    string `json:"last_checked,omitempty"`
	LatencyMs      int64  `json:"latency_ms"`
	LastStatusCode int    `json:"last_status_code,omitempty"`
	LastError      string `json:"last_error,omitempty"`

	TotalChecks int `json:"total_checks"`
	TotalFails  int `json:"total_fails"`
}

var current atomic.Value // stores Snapshot

// Publish replaces the current snapshot.
func Publish(s Snapshot) {
	current.Store(s)
}

// Get returns the latest snapshot.
// If nothing was published yet, returns zero-value snapshot.
func Get() Snapshot {
	if v := current.Load(); v != nil {
		return v.(Snapshot)
	}
	return Snapshot{}
}
