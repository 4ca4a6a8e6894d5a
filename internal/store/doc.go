// Package store holds the authoritative in-memory set of calendar events.
//
// A Store guards one slice of events with one sync.RWMutex: mutations take
// the write lock, reads take the read lock, and no method re-enters the
// lock. The conflict check inside Add runs while the write lock is held
// and takes no lock of its own.
//
// # Consistency
//
//   - Add scans the whole store and filters by owner inline. There is no
//     per-owner index; the cost is O(total events).
//   - Replace is Remove followed by Add as two separate critical sections.
//     If the re-add conflicts, the original event is already gone and is
//     not restored.
//   - AddBatch holds the write lock for the whole batch, so each element is
//     checked against the store as changed by the elements before it.
//
// Counters are atomics and can be read without the lock.
//
// The store does not validate events; callers check calendar.Event.Validate
// at the boundary.
package store
