package store

import (
	"sync"

	"github.com/roach88/slotguard/internal/calendar"
	"github.com/roach88/slotguard/internal/conflict"
)

// Store is a concurrency-safe collection of events keyed by event ID.
type Store struct {
	mu     sync.RWMutex
	events []calendar.Event // insertion order

	metrics counters
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// CommitFunc observes a committed mutation. It runs with the write lock
// held, so calls arrive in commit order. It must not call back into the
// Store.
type CommitFunc func(calendar.Event)

// Add inserts e unless it overlaps an existing event of the same owner.
// On conflict the store is left untouched and the returned result lists
// every (e.ID, existing.ID) pair found.
func (s *Store) Add(e calendar.Event) (bool, conflict.Result) {
	return s.AddFunc(e, nil)
}

// AddFunc is Add that calls fn with e when it is inserted.
func (s *Store) AddFunc(e calendar.Event, fn CommitFunc) (bool, conflict.Result) {
	s.metrics.requests.Add(1)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(e, fn)
}

// addLocked runs the insertion-path check. Caller holds the write lock.
func (s *Store) addLocked(e calendar.Event, fn CommitFunc) (bool, conflict.Result) {
	res := conflict.CheckAgainst(e.Slot(), calendar.Slots(s.events))
	if res.HasConflict {
		s.metrics.conflicts.Add(1)
		return false, res
	}
	s.events = append(s.events, e)
	s.metrics.adds.Add(1)
	if fn != nil {
		fn(e)
	}
	return true, res
}

// Remove deletes the event with the given ID. It reports whether an event
// was deleted.
func (s *Store) Remove(id int64) bool {
	_, ok := s.Take(id)
	return ok
}

// Take is Remove that also returns the deleted event. When several events
// share an ID, the earliest inserted one is taken.
func (s *Store) Take(id int64) (calendar.Event, bool) {
	return s.TakeFunc(id, nil)
}

// TakeFunc is Take that calls fn with the deleted event.
func (s *Store) TakeFunc(id int64, fn CommitFunc) (calendar.Event, bool) {
	s.metrics.requests.Add(1)

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.takeLocked(id)
	if ok && fn != nil {
		fn(e)
	}
	return e, ok
}

func (s *Store) takeLocked(id int64) (calendar.Event, bool) {
	for i, e := range s.events {
		if e.ID == id {
			s.events = append(s.events[:i], s.events[i+1:]...)
			return e, true
		}
	}
	return calendar.Event{}, false
}

// Replace removes the event with e.ID and then adds e. It returns the
// removed event, which is the zero Event when no event has e.ID.
//
// The two steps lock separately. If no event has e.ID, nothing happens and
// Replace returns false. If the removal succeeds but e conflicts, Replace
// returns false and the previous event stays removed; another writer may
// also run between the two steps.
func (s *Store) Replace(e calendar.Event) (calendar.Event, bool, conflict.Result) {
	return s.ReplaceFunc(e, nil)
}

// ReplaceFunc is Replace that calls fn once the outcome is decided, inside
// the second critical section: with e and true when e was added, or with
// the removed event and false when e was rejected. fn is not called when no
// event has e.ID.
func (s *Store) ReplaceFunc(e calendar.Event, fn func(ev calendar.Event, added bool)) (calendar.Event, bool, conflict.Result) {
	s.metrics.requests.Add(1)

	s.mu.Lock()
	removed, found := s.takeLocked(e.ID)
	s.mu.Unlock()
	if !found {
		return calendar.Event{}, false, conflict.Result{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ok, res := s.addLocked(e, nil)
	if fn != nil {
		if ok {
			fn(e, true)
		} else {
			fn(removed, false)
		}
	}
	return removed, ok, res
}

// AddBatch adds events in input order under a single write lock and
// returns one flag per input. Mutually conflicting inputs resolve as
// first wins.
func (s *Store) AddBatch(events []calendar.Event) []bool {
	return s.AddBatchFunc(events, nil)
}

// AddBatchFunc is AddBatch that calls fn for each accepted element.
func (s *Store) AddBatchFunc(events []calendar.Event, fn CommitFunc) []bool {
	results := make([]bool, len(events))

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range events {
		s.metrics.requests.Add(1)
		results[i], _ = s.addLocked(e, fn)
	}
	return results
}

// Query returns a copy of the owner's events sorted by start time.
func (s *Store) Query(owner string) []calendar.Event {
	s.metrics.requests.Add(1)

	s.mu.RLock()
	var out []calendar.Event
	for _, e := range s.events {
		if e.Owner == owner {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	calendar.SortByStart(out)
	return out
}

// QueryAll returns a copy of every event in insertion order.
func (s *Store) QueryAll() []calendar.Event {
	s.metrics.requests.Add(1)
	return s.Snapshot()
}

// Snapshot is QueryAll without counting a request. Used by diagnostics
// such as full conflict scans.
func (s *Store) Snapshot() []calendar.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]calendar.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Get returns the event with the given ID.
func (s *Store) Get(id int64) (calendar.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.events {
		if e.ID == id {
			return e, true
		}
	}
	return calendar.Event{}, false
}

// Len returns the number of stored events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
