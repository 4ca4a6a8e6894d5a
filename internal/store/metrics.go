package store

import "sync/atomic"

// counters are monotonic since construction.
type counters struct {
	requests  atomic.Uint64
	adds      atomic.Uint64
	conflicts atomic.Uint64
}

// Metrics is a point-in-time copy of the store counters. Fields are read
// independently, so a snapshot taken during writes may be mid-update
// across fields but never goes backwards within a field.
type Metrics struct {
	TotalRequests  uint64 `json:"total_requests" yaml:"total_requests"`
	SuccessfulAdds uint64 `json:"successful_adds" yaml:"successful_adds"`
	Conflicts      uint64 `json:"conflicts" yaml:"conflicts"`
}

// Metrics returns the current counters.
func (s *Store) Metrics() Metrics {
	return Metrics{
		TotalRequests:  s.metrics.requests.Load(),
		SuccessfulAdds: s.metrics.adds.Load(),
		Conflicts:      s.metrics.conflicts.Load(),
	}
}

// TotalRequests counts every operation, and every element of a batch.
func (s *Store) TotalRequests() uint64 { return s.metrics.requests.Load() }

// SuccessfulAdds counts committed inserts, including the add half of Replace.
func (s *Store) SuccessfulAdds() uint64 { return s.metrics.adds.Load() }

// ConflictCount counts inserts rejected by the conflict check.
func (s *Store) ConflictCount() uint64 { return s.metrics.conflicts.Load() }
