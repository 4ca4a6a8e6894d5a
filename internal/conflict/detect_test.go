package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slot(id, start, end int64, owner string) TimeSlot {
	return TimeSlot{ID: id, Start: start, End: end, Owner: owner}
}

func TestOverlaps_HalfOpen(t *testing.T) {
	tests := []struct {
		name string
		a, b TimeSlot
		want bool
	}{
		{"touching end to start", slot(1, 1000, 2000, "u"), slot(2, 2000, 3000, "u"), false},
		{"touching start to end", slot(1, 2000, 3000, "u"), slot(2, 1000, 2000, "u"), false},
		{"shifted by one", slot(1, 1000, 2000, "u"), slot(2, 1001, 2001, "u"), true},
		{"contained", slot(1, 1000, 5000, "u"), slot(2, 2000, 3000, "u"), true},
		{"identical", slot(1, 1000, 2000, "u"), slot(2, 1000, 2000, "u"), true},
		{"disjoint", slot(1, 1000, 2000, "u"), slot(2, 3000, 4000, "u"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a), "overlap must be symmetric")
		})
	}
}

func TestSameOwnerOverlap_DifferentOwners(t *testing.T) {
	a := slot(1, 1000, 2000, "u1")
	b := slot(2, 1000, 2000, "u2")

	assert.True(t, a.Overlaps(b))
	assert.False(t, a.SameOwnerOverlap(b))
}

func TestDetectPairwise_Order(t *testing.T) {
	slots := []TimeSlot{
		slot(1, 0, 100, "u"),
		slot(2, 50, 150, "u"),
		slot(3, 90, 200, "u"),
		slot(4, 0, 1000, "other"),
	}

	res := DetectPairwise(slots)

	require.True(t, res.HasConflict)
	assert.Equal(t, []Pair{{1, 2}, {1, 3}, {2, 3}}, res.Pairs)
	assert.Equal(t, 3, res.Total)
}

func TestDetectSweep_EndsBeforeStarts(t *testing.T) {
	slots := []TimeSlot{
		slot(1, 0, 100, "u"),
		slot(2, 100, 200, "u"),
		slot(3, 200, 300, "u"),
	}

	res := DetectSweep(slots)

	assert.False(t, res.HasConflict)
	assert.Empty(t, res.Pairs)
	assert.Equal(t, 0, res.Total)
}

func TestDetectSweep_PairOrder(t *testing.T) {
	slots := []TimeSlot{
		slot(7, 0, 100, "u"),
		slot(3, 10, 100, "u"),
		slot(5, 20, 30, "u"),
	}

	res := DetectSweep(slots)

	// On each start, active IDs are visited in ascending order.
	assert.Equal(t, []Pair{{7, 3}, {3, 5}, {7, 5}}, res.Pairs)
	assert.Equal(t, 3, res.Total)
}

func TestDetectSweep_DuplicateIDs(t *testing.T) {
	slots := []TimeSlot{
		slot(1, 0, 100, "u"),
		slot(1, 50, 150, "u"),
		slot(1, 120, 130, "u"),
	}

	sweep := DetectSweep(slots)
	pairwise := DetectPairwise(slots)

	assert.Equal(t, Normalize(pairwise.Pairs), Normalize(sweep.Pairs))
	assert.Equal(t, 2, sweep.Total)
}

func TestDetectTree_MatchesPairwise(t *testing.T) {
	slots := []TimeSlot{
		slot(1, 0, 100, "u"),
		slot(2, 50, 60, "u"),
		slot(3, 55, 300, "u"),
		slot(4, 300, 400, "u"),
		slot(5, 0, 400, "v"),
		slot(6, 399, 500, "v"),
	}

	tree := DetectTree(slots)
	pairwise := DetectPairwise(slots)

	assert.Equal(t, Normalize(pairwise.Pairs), Normalize(tree.Pairs))
	assert.Equal(t, pairwise.Total, tree.Total)
}

func TestCheckAgainst_Scenario(t *testing.T) {
	existing := []TimeSlot{slot(1, 1000, 2000, "u1")}

	res := CheckAgainst(slot(2, 1500, 2500, "u1"), existing)
	require.True(t, res.HasConflict)
	assert.Equal(t, []Pair{{2, 1}}, res.Pairs)

	res = CheckAgainst(slot(3, 2000, 3000, "u1"), existing)
	assert.False(t, res.HasConflict, "touching boundary must not conflict")

	res = CheckAgainst(slot(4, 1000, 2000, "u2"), existing)
	assert.False(t, res.HasConflict, "different owner must not conflict")
}

func TestCheckAgainst_ReportsEveryOverlap(t *testing.T) {
	existing := []TimeSlot{
		slot(1, 0, 10, "u"),
		slot(2, 20, 30, "u"),
		slot(3, 40, 50, "u"),
		slot(4, 0, 100, "x"),
	}

	res := CheckAgainst(slot(9, 5, 45, "u"), existing)

	assert.Equal(t, []Pair{{9, 1}, {9, 2}, {9, 3}}, res.Pairs)
	assert.Equal(t, 3, res.Total)
}

func TestDetect_Empty(t *testing.T) {
	for _, alg := range Algorithms {
		t.Run(string(alg), func(t *testing.T) {
			res, err := Detect(alg, nil)
			require.NoError(t, err)
			assert.False(t, res.HasConflict)
			assert.Zero(t, res.Total)
		})
	}
}

func TestParseAlgorithm(t *testing.T) {
	alg, err := ParseAlgorithm("Tree")
	require.NoError(t, err)
	assert.Equal(t, Tree, alg)

	alg, err = ParseAlgorithm("")
	require.NoError(t, err)
	assert.Equal(t, Sweep, alg)

	_, err = ParseAlgorithm("quantum")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown algorithm")
}

func TestNormalize(t *testing.T) {
	got := Normalize([]Pair{{5, 1}, {2, 3}, {1, 4}})
	assert.Equal(t, []Pair{{1, 4}, {1, 5}, {2, 3}}, got)
}
