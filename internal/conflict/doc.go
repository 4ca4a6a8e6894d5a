// Package conflict detects overlapping time slots.
//
// Every function in this package is pure: it reads a snapshot of slots and
// returns a fresh result. Nothing is cached between calls, so callers may
// invoke any of them from any goroutine as long as the snapshot they pass
// is not mutated concurrently.
//
// # Overlap Rule
//
// Slots are half-open intervals [Start, End). Two slots overlap iff
//
//	!(a.End <= b.Start || a.Start >= b.End)
//
// Touching endpoints never overlap. Overlap is only ever reported between
// slots that share an Owner.
//
// # Algorithms
//
//   - DetectPairwise: reference O(n²) scan of every unordered pair.
//   - DetectSweep: per-owner sweep line over sorted endpoints, O(n log n + k).
//   - DetectTree: per-owner interval tree, one query per slot.
//
// All three report the same multiset of unordered pairs; only the
// enumeration order differs. CheckAgainst is the incremental form used on
// the insertion path, and SuggestAlternatives proposes conflict-free slots
// of the same duration.
package conflict
