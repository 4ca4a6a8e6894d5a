package conflict

import (
	"sort"
	"time"
)

// DetectPairwise compares every unordered pair of slots and reports those
// that share an owner and overlap. It is the O(n²) reference the faster
// algorithms are checked against.
//
// Pairs are reported as (slots[i].ID, slots[j].ID) with i < j.
func DetectPairwise(slots []TimeSlot) Result {
	began := time.Now()
	var res Result

	for i := 0; i < len(slots); i++ {
		for j := i + 1; j < len(slots); j++ {
			if slots[i].SameOwnerOverlap(slots[j]) {
				res.add(slots[i].ID, slots[j].ID)
			}
		}
	}

	res.Elapsed = time.Since(began)
	return res
}

// endpoint is one boundary of a slot for the sweep line.
type endpoint struct {
	at    int64
	start bool
	idx   int // position of the slot within its owner group
}

// DetectSweep finds all same-owner overlaps with a sweep line.
//
// Slots are grouped by owner. Within a group, each slot contributes a start
// and an end endpoint; endpoints are ordered by time with ends before starts
// at equal timestamps, which is what makes touching slots conflict-free.
// On a start, the new slot pairs with every slot currently open, reported
// as (open.ID, new.ID), open slots in ascending ID order.
//
// Slots must satisfy Start < End.
func DetectSweep(slots []TimeSlot) Result {
	began := time.Now()
	var res Result

	for _, group := range groupByOwner(slots) {
		sweepGroup(group, &res)
	}

	res.Elapsed = time.Since(began)
	return res
}

func sweepGroup(group []TimeSlot, res *Result) {
	points := make([]endpoint, 0, 2*len(group))
	for i, s := range group {
		points = append(points,
			endpoint{at: s.Start, start: true, idx: i},
			endpoint{at: s.End, start: false, idx: i},
		)
	}

	sort.Slice(points, func(i, j int) bool {
		a, b := points[i], points[j]
		if a.at != b.at {
			return a.at < b.at
		}
		if a.start != b.start {
			return !a.start // ends first
		}
		return a.idx < b.idx
	})

	// active holds group positions ordered by (ID, position).
	less := func(x, y int) bool {
		if group[x].ID != group[y].ID {
			return group[x].ID < group[y].ID
		}
		return x < y
	}
	var active []int

	for _, p := range points {
		pos := sort.Search(len(active), func(k int) bool { return !less(active[k], p.idx) })
		if p.start {
			for _, open := range active {
				res.add(group[open].ID, group[p.idx].ID)
			}
			active = append(active, 0)
			copy(active[pos+1:], active[pos:])
			active[pos] = p.idx
			continue
		}
		if pos < len(active) && active[pos] == p.idx {
			active = append(active[:pos], active[pos+1:]...)
		}
	}
}

// DetectTree finds all same-owner overlaps by building one interval tree
// per owner and querying it with each of that owner's slots. Each unordered
// pair is reported once, ordered by start time.
func DetectTree(slots []TimeSlot) Result {
	began := time.Now()
	var res Result

	for _, group := range groupByOwner(slots) {
		sorted := sortedByStart(group)
		tree := BuildTree(sorted)
		for p, s := range sorted {
			tree.visit(s, func(q int) {
				if q > p {
					res.add(s.ID, sorted[q].ID)
				}
			})
		}
	}

	res.Elapsed = time.Since(began)
	return res
}

// CheckAgainst reports every existing slot that shares newSlot's owner and
// overlaps it. Pairs are (newSlot.ID, existing.ID) in input order.
// It scans existing once and filters by owner inline.
func CheckAgainst(newSlot TimeSlot, existing []TimeSlot) Result {
	began := time.Now()
	var res Result

	for _, s := range existing {
		if s.SameOwnerOverlap(newSlot) {
			res.add(newSlot.ID, s.ID)
		}
	}

	res.Elapsed = time.Since(began)
	return res
}

// sortedByStart returns a copy of slots stably sorted by Start.
func sortedByStart(slots []TimeSlot) []TimeSlot {
	out := make([]TimeSlot, len(slots))
	copy(out, slots)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}
