package conflict

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// TimeSlot is the read-only projection of an event used for conflict checks.
type TimeSlot struct {
	ID       int64  `json:"id" yaml:"id"`
	Start    int64  `json:"start" yaml:"start"`
	End      int64  `json:"end" yaml:"end"`
	Owner    string `json:"owner" yaml:"owner"`
	Priority int    `json:"priority" yaml:"priority"`
}

// Overlaps reports whether the half-open intervals of s and other intersect.
// Owner is not considered here; see SameOwnerOverlap.
func (s TimeSlot) Overlaps(other TimeSlot) bool {
	return !(s.End <= other.Start || s.Start >= other.End)
}

// SameOwnerOverlap reports whether s and other belong to one owner and overlap.
func (s TimeSlot) SameOwnerOverlap(other TimeSlot) bool {
	return s.Owner == other.Owner && s.Overlaps(other)
}

// Duration returns End - Start.
func (s TimeSlot) Duration() int64 {
	return s.End - s.Start
}

// Pair is a conflicting pair of slot IDs in discovery order.
type Pair struct {
	A int64 `json:"a" yaml:"a"`
	B int64 `json:"b" yaml:"b"`
}

func (p Pair) String() string {
	return fmt.Sprintf("(%d,%d)", p.A, p.B)
}

// Result is the outcome of a detection run.
//
// Pairs keeps the order in which the algorithm discovered conflicts and is
// never deduplicated. Elapsed is diagnostic only.
type Result struct {
	HasConflict bool          `json:"has_conflict"`
	Pairs       []Pair        `json:"conflicting_pairs"`
	Total       int           `json:"total_conflicts"`
	Elapsed     time.Duration `json:"elapsed_ns"`
}

func (r *Result) add(a, b int64) {
	r.HasConflict = true
	r.Pairs = append(r.Pairs, Pair{A: a, B: b})
	r.Total++
}

// Algorithm selects a full-detection strategy.
type Algorithm string

const (
	Pairwise Algorithm = "pairwise"
	Sweep    Algorithm = "sweep"
	Tree     Algorithm = "tree"
)

// Algorithms lists every supported strategy in documentation order.
var Algorithms = []Algorithm{Pairwise, Sweep, Tree}

// ParseAlgorithm converts a user-supplied name into an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch a := Algorithm(strings.ToLower(strings.TrimSpace(name))); a {
	case Pairwise, Sweep, Tree:
		return a, nil
	case "":
		return Sweep, nil
	default:
		return "", fmt.Errorf("unknown algorithm %q: must be one of %v", name, Algorithms)
	}
}

// Detect runs the selected algorithm over slots.
func Detect(alg Algorithm, slots []TimeSlot) (Result, error) {
	switch alg {
	case Pairwise:
		return DetectPairwise(slots), nil
	case Sweep:
		return DetectSweep(slots), nil
	case Tree:
		return DetectTree(slots), nil
	default:
		return Result{}, fmt.Errorf("unknown algorithm %q", alg)
	}
}

// Normalize returns pairs as (min,max) sorted ascending. It makes results
// of different algorithms comparable as multisets.
func Normalize(pairs []Pair) []Pair {
	out := make([]Pair, len(pairs))
	for i, p := range pairs {
		if p.A > p.B {
			p.A, p.B = p.B, p.A
		}
		out[i] = p
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}

// groupByOwner partitions slots by owner, preserving first-seen owner order
// and input order within each owner.
func groupByOwner(slots []TimeSlot) [][]TimeSlot {
	index := make(map[string]int)
	var groups [][]TimeSlot
	for _, s := range slots {
		i, ok := index[s.Owner]
		if !ok {
			i = len(groups)
			index[s.Owner] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], s)
	}
	return groups
}
