package monitor

import (
	"sync"
	"time"
)

// DefaultCheckType is what a freshly created record probes with until the
// caller switches it.
const DefaultCheckType = CheckICMP

// Store is the single point of mutation for all host records and for the
// monitored set. Every method takes the one lock for the duration of the
// in-memory update only; probes always run outside of it.
type Store struct {
	mu        sync.Mutex
	records   map[string]*HostRecord
	monitored map[string]struct{}

	upThreshold   int
	downThreshold int
}

// NewStore returns an empty store. Thresholds below 1 are the caller's
// mistake; the config layer validates them.
func NewStore(upThreshold, downThreshold int) *Store {
	return &Store{
		records:       make(map[string]*HostRecord),
		monitored:     make(map[string]struct{}),
		upThreshold:   upThreshold,
		downThreshold: downThreshold,
	}
}

// Upsert creates a default record for host if none exists.
func (s *Store) Upsert(host string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(host)
}

func (s *Store) ensureLocked(host string) *HostRecord {
	rec, ok := s.records[host]
	if !ok {
		rec = &HostRecord{Host: host, CheckType: DefaultCheckType}
		s.records[host] = rec
	}
	return rec
}

// Remove deletes the record and drops the host from the monitored set.
func (s *Store) Remove(host string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, host)
	delete(s.monitored, host)
}

// SetMonitored replaces the monitored set. Hosts not seen before get a
// default record.
func (s *Store) SetMonitored(hosts []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.monitored = make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		s.ensureLocked(h)
		s.monitored[h] = struct{}{}
	}
}

// ToggleMonitored flips membership for one host and reports the new
// membership. A newly monitored host gets a default record if missing.
func (s *Store) ToggleMonitored(host string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.monitored[host]; ok {
		delete(s.monitored, host)
		return false
	}
	s.ensureLocked(host)
	s.monitored[host] = struct{}{}
	return true
}

// SetCheckType switches the probe strategy for host and re-arms its
// debounce state from scratch. It reports whether the host is currently
// monitored, which the engine uses to fire an immediate out-of-cycle check.
func (s *Store) SetCheckType(host string, ct CheckType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.ensureLocked(host)
	rec.CheckType = ct
	rec.ConsecutiveUp = 0
	rec.ConsecutiveDown = 0
	rec.Stable = StabilityUnknown
	_, monitored := s.monitored[host]
	return monitored
}

// SetThresholds replaces both thresholds and re-arms every host: counters
// accumulated under the old thresholds are not reinterpreted.
func (s *Store) SetThresholds(up, down int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upThreshold = up
	s.downThreshold = down
	for _, rec := range s.records {
		rec.ConsecutiveUp = 0
		rec.ConsecutiveDown = 0
		rec.Stable = StabilityUnknown
	}
}

// Thresholds returns the current pair.
func (s *Store) Thresholds() (up, down int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upThreshold, s.downThreshold
}

// TryBeginCheck atomically marks host in flight. It returns false when a
// check is already outstanding (or the host is unknown), in which case the
// caller must not dispatch.
func (s *Store) TryBeginCheck(host string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[host]
	if !ok || rec.InFlight {
		return false
	}
	rec.InFlight = true
	return true
}

// ApplyResult clears the in-flight flag, folds the sample through the
// debounce step and reports (newStable, true) only on an actual
// transition. A result for a host removed while its check was in flight is
// dropped. Results arriving after a reset are applied to the fresh record;
// see also ResetTransient.
func (s *Store) ApplyResult(host string, res Result) (Stability, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[host]
	if !ok {
		return StabilityUnknown, false
	}

	rec.InFlight = false
	rec.LastChecked = time.Now()
	rec.LastLatency = res.Latency
	rec.LastError = res.Err
	rec.TotalChecks++
	if res.StatusCode != 0 {
		rec.LastStatusCode = res.StatusCode
	}
	if !res.Reachable {
		rec.TotalFails++
	}

	var changed bool
	rec.ConsecutiveUp, rec.ConsecutiveDown, rec.Stable, changed = debounceStep(
		rec.ConsecutiveUp, rec.ConsecutiveDown, rec.Stable,
		res.Reachable, s.upThreshold, s.downThreshold,
	)
	return rec.Stable, changed
}

// ResetTransient zeroes counters, stable verdicts and in-flight flags for
// every host while preserving check types. The scheduler calls this on
// stop so a later start re-arms from scratch.
func (s *Store) ResetTransient() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		rec.ConsecutiveUp = 0
		rec.ConsecutiveDown = 0
		rec.Stable = StabilityUnknown
		rec.InFlight = false
	}
}

// Snapshot returns a point-in-time copy of every record.
func (s *Store) Snapshot() map[string]HostRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]HostRecord, len(s.records))
	for host, rec := range s.records {
		out[host] = *rec
	}
	return out
}

// MonitoredSnapshot returns the monitored set as a slice.
func (s *Store) MonitoredSnapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.monitored))
	for host := range s.monitored {
		out = append(out, host)
	}
	return out
}

// Record returns a copy of one record.
func (s *Store) Record(host string) (HostRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[host]
	if !ok {
		return HostRecord{}, false
	}
	return *rec, true
}

// IsMonitored reports monitored-set membership for one host.
func (s *Store) IsMonitored(host string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.monitored[host]
	return ok
}
