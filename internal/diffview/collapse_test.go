package diffview

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeCollapseRegions_SingleChange(t *testing.T) {
	changed := []ChangedRange{{OldStart: 20, OldCount: 2, NewStart: 20, NewCount: 3}}
	got := ComputeCollapseRegions(changed, 100, 101, DefaultContextLines)
	require.Equal(t, []Region{{1, 14}, {27, 100}}, got.Old)
	require.Equal(t, []Region{{1, 14}, {28, 101}}, got.New)
}

func TestComputeCollapseRegions_PureInsertionUsesAnchor(t *testing.T) {
	changed := []ChangedRange{{OldStart: 10, OldCount: 0, NewStart: 10, NewCount: 2}}
	got := ComputeCollapseRegions(changed, 40, 42, DefaultContextLines)
	require.Equal(t, []Region{{1, 4}, {16, 40}}, got.Old)
	require.Equal(t, []Region{{1, 4}, {17, 42}}, got.New)
}

func TestComputeCollapseRegions_AdjacentWindowsMerge(t *testing.T) {
	changed := []ChangedRange{
		{OldStart: 10, OldCount: 1, NewStart: 10, NewCount: 1},
		{OldStart: 21, OldCount: 1, NewStart: 21, NewCount: 1},
	}
	vis := VisibleRanges(changed, 60, 60, DefaultContextLines)
	require.Equal(t, []Region{{5, 26}}, vis.Old)
	got := ComputeCollapseRegions(changed, 60, 60, DefaultContextLines)
	require.Equal(t, []Region{{1, 4}, {27, 60}}, got.Old)
}

func TestComputeCollapseRegions_ClampsAtEdges(t *testing.T) {
	changed := []ChangedRange{{OldStart: 2, OldCount: 1, NewStart: 2, NewCount: 1}, {OldStart: 9, OldCount: 1, NewStart: 9, NewCount: 1}}
	got := ComputeCollapseRegions(changed, 10, 10, DefaultContextLines)
	require.Empty(t, got.Old)
	require.Empty(t, got.New)
}

func TestComputeCollapseRegions_NoChangesAndNoLines(t *testing.T) {
	got := ComputeCollapseRegions(nil, 50, 0, DefaultContextLines)
	require.Equal(t, []Region{{1, 50}}, got.Old)
	require.Empty(t, got.New)
}

func TestComputeCollapseRegions_Idempotent(t *testing.T) {
	changed := []ChangedRange{
		{OldStart: 70, OldCount: 3, NewStart: 71, NewCount: 0},
		{OldStart: 5, OldCount: 1, NewStart: 5, NewCount: 4},
	}
	a := ComputeCollapseRegions(changed, 200, 198, DefaultContextLines)
	b := ComputeCollapseRegions(changed, 200, 198, DefaultContextLines)
	require.Equal(t, a, b)
}

func TestComputeCollapseRegions_CoversWholeFile(t *testing.T) {
	changed := []ChangedRange{
		{OldStart: 3, OldCount: 2, NewStart: 3, NewCount: 1},
		{OldStart: 30, OldCount: 0, NewStart: 29, NewCount: 5},
		{OldStart: 33, OldCount: 1, NewStart: 37, NewCount: 1},
		{OldStart: 90, OldCount: 4, NewStart: 93, NewCount: 0},
	}
	const oldTotal, newTotal = 100, 99
	vis := VisibleRanges(changed, oldTotal, newTotal, DefaultContextLines)
	col := ComputeCollapseRegions(changed, oldTotal, newTotal, DefaultContextLines)
	assertCovers(t, vis.Old, col.Old, oldTotal)
	assertCovers(t, vis.New, col.New, newTotal)
}

func assertCovers(t *testing.T, visible, collapsed []Region, total int) {
	t.Helper()
	seen := make([]int, total+1)
	for _, rs := range [][]Region{visible, collapsed} {
		for _, r := range rs {
			for l := r.Start; l <= r.End; l++ {
				require.True(t, l >= 1 && l <= total, "line %d out of range", l)
				seen[l]++
			}
		}
	}
	for l := 1; l <= total; l++ {
		require.Equal(t, 1, seen[l], "line %d covered %d times", l, seen[l])
	}
}

func TestChangedRanges(t *testing.T) {
	h := &Hunk{
		OldStart: 1, OldCount: 4, NewStart: 1, NewCount: 4,
		Lines: []Line{ctx(1, 1, "a"), rem(2, "b"), rem(3, "c"), add(2, "B"), ctx(4, 3, "d"), add(4, "e")},
	}
	got := ChangedRanges([]*Hunk{nil, h})
	require.Equal(t, []ChangedRange{
		{OldStart: 2, OldCount: 2, NewStart: 2, NewCount: 1},
		{OldStart: 5, OldCount: 0, NewStart: 4, NewCount: 1},
	}, got)
}

func TestHiddenBefore(t *testing.T) {
	regions := []Region{{1, 14}, {27, 100}}
	require.Equal(t, 14, HiddenBefore(regions, 15))
	require.Equal(t, 0, HiddenBefore(regions, 20))
}
