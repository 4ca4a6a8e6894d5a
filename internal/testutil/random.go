package testutil

import (
	"fmt"
	"math/rand"

	"github.com/roach88/slotguard/internal/calendar"
	"github.com/roach88/slotguard/internal/conflict"
)

// RandomSlots returns n valid slots (Start < End) spread over owners.
//
// Starts fall in [0, span) and lengths in [1, maxLen]. Small spans and
// coarse granularity make touching endpoints and exact duplicates common,
// which is where overlap bugs hide. IDs are 1..n.
func RandomSlots(rng *rand.Rand, n, owners int, span, maxLen int64) []conflict.TimeSlot {
	if owners < 1 {
		owners = 1
	}
	slots := make([]conflict.TimeSlot, n)
	for i := range slots {
		start := rng.Int63n(span)
		slots[i] = conflict.TimeSlot{
			ID:       int64(i + 1),
			Start:    start,
			End:      start + 1 + rng.Int63n(maxLen),
			Owner:    fmt.Sprintf("owner-%d", rng.Intn(owners)),
			Priority: rng.Intn(5),
		}
	}
	return slots
}

// RandomEvents wraps RandomSlots into calendar events.
func RandomEvents(rng *rand.Rand, n, owners int, span, maxLen int64) []calendar.Event {
	slots := RandomSlots(rng, n, owners, span, maxLen)
	events := make([]calendar.Event, len(slots))
	for i, s := range slots {
		events[i] = calendar.Event{
			ID:       s.ID,
			Title:    fmt.Sprintf("event %d", s.ID),
			Start:    s.Start,
			End:      s.End,
			Owner:    s.Owner,
			Priority: s.Priority,
		}
	}
	return events
}

// DisjointEvents returns n back-to-back, non-overlapping events for one
// owner, each width long, starting at base. IDs start at firstID.
func DisjointEvents(owner string, n int, firstID, base, width int64) []calendar.Event {
	events := make([]calendar.Event, n)
	for i := range events {
		start := base + int64(i)*width
		events[i] = calendar.Event{
			ID:    firstID + int64(i),
			Title: fmt.Sprintf("%s slot %d", owner, i),
			Start: start,
			End:   start + width,
			Owner: owner,
		}
	}
	return events
}
