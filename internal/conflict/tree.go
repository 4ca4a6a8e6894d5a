package conflict

// IntervalTree is a static, balanced interval tree over slots sorted by
// start time. Nodes live in one arena slice and refer to their children by
// index; the tree owns every node and is discarded with it.
//
// The tree ignores Owner. Build one tree per owner when owner scoping
// matters, as DetectTree does.
type IntervalTree struct {
	nodes []treeNode
	root  int
}

type treeNode struct {
	slot        TimeSlot
	maxEnd      int64
	left, right int // -1 when absent
}

// BuildTree builds a tree from slots already sorted by Start. The median of
// each range becomes the subtree root, so depth is O(log n). The node for
// sorted[i] is stored at arena index i.
func BuildTree(sorted []TimeSlot) *IntervalTree {
	t := &IntervalTree{nodes: make([]treeNode, len(sorted)), root: -1}
	t.root = t.build(sorted, 0, len(sorted)-1)
	return t
}

// NewTree copies and sorts slots by Start, then builds the tree.
func NewTree(slots []TimeSlot) *IntervalTree {
	return BuildTree(sortedByStart(slots))
}

func (t *IntervalTree) build(sorted []TimeSlot, lo, hi int) int {
	if lo > hi {
		return -1
	}
	mid := lo + (hi-lo)/2
	n := treeNode{slot: sorted[mid], maxEnd: sorted[mid].End}
	n.left = t.build(sorted, lo, mid-1)
	n.right = t.build(sorted, mid+1, hi)
	if n.left >= 0 && t.nodes[n.left].maxEnd > n.maxEnd {
		n.maxEnd = t.nodes[n.left].maxEnd
	}
	if n.right >= 0 && t.nodes[n.right].maxEnd > n.maxEnd {
		n.maxEnd = t.nodes[n.right].maxEnd
	}
	t.nodes[mid] = n
	return mid
}

// Len returns the number of slots in the tree.
func (t *IntervalTree) Len() int {
	return len(t.nodes)
}

// Query returns every slot in the tree overlapping q, in visit order.
func (t *IntervalTree) Query(q TimeSlot) []TimeSlot {
	var out []TimeSlot
	t.visit(q, func(i int) {
		out = append(out, t.nodes[i].slot)
	})
	return out
}

// visit calls fn with the arena index of each node overlapping q.
//
// The left subtree is entered only when its maxEnd >= q.Start; the right
// subtree only when the current node starts at or before q.End. Both bounds
// are inclusive, which is looser than the half-open overlap test and so
// never prunes a match.
func (t *IntervalTree) visit(q TimeSlot, fn func(int)) {
	var walk func(i int)
	walk = func(i int) {
		if i < 0 {
			return
		}
		n := &t.nodes[i]
		if n.slot.Overlaps(q) {
			fn(i)
		}
		if n.left >= 0 && t.nodes[n.left].maxEnd >= q.Start {
			walk(n.left)
		}
		if n.right >= 0 && n.slot.Start <= q.End {
			walk(n.right)
		}
	}
	walk(t.root)
}
