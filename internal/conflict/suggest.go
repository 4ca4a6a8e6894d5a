package conflict

// DefaultSuggestions is the number of alternatives proposed when the caller
// does not ask for a specific count.
const DefaultSuggestions = 3

// emptyOwnerWindow is the gap searched before the requested start when the
// owner has no slots at all: 24 hours in milliseconds.
const emptyOwnerWindow int64 = 24 * 3_600_000

// SuggestAlternatives proposes up to max slots with the same duration,
// owner and priority as slot that do not overlap any of the owner's
// existing slots.
//
// Gaps are examined in time order: the gap ending at the owner's first
// start, each gap between consecutive slots, and the open-ended gap after
// the last one. A gap at least as long as slot yields one candidate at its
// start. With no existing slots for the owner, the only gap is the 24-hour
// window ending at slot.Start.
func SuggestAlternatives(slot TimeSlot, existing []TimeSlot, max int) []TimeSlot {
	if max <= 0 {
		return nil
	}

	var owned []TimeSlot
	for _, s := range existing {
		if s.Owner == slot.Owner {
			owned = append(owned, s)
		}
	}
	owned = sortedByStart(owned)

	d := slot.Duration()
	var out []TimeSlot
	propose := func(gapStart, gapEnd int64) {
		if gapEnd-gapStart >= d {
			c := slot
			c.Start = gapStart
			c.End = gapStart + d
			out = append(out, c)
		}
	}

	if len(owned) == 0 {
		propose(slot.Start-emptyOwnerWindow, slot.Start)
		return out
	}

	propose(owned[0].Start-d, owned[0].Start)

	// reach is the latest end seen so far; gaps start there so that an
	// earlier long slot is never overlapped by a later gap.
	reach := owned[0].End
	for i := 1; i < len(owned) && len(out) < max; i++ {
		propose(reach, owned[i].Start)
		if owned[i].End > reach {
			reach = owned[i].End
		}
	}

	if len(out) < max {
		propose(reach, reach+d)
	}
	return out
}
