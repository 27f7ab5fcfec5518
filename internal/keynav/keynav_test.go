package keynav

import (
	"testing"

	"github.com/interpretive-systems/critique/internal/diffview"
	"github.com/stretchr/testify/require"
)

// rowsWithChanges builds n context rows in one hunk and turns the given
// indices into additions.
func rowsWithChanges(n int, changes ...int) []RowRef {
	rows := make([]RowRef, n)
	for i := range rows {
		rows[i] = RowRef{LineIndex: i, Type: diffview.LineContext, OldNumber: i + 1, NewNumber: i + 1}
	}
	for _, c := range changes {
		rows[c] = RowRef{LineIndex: c, Type: diffview.LineAdd, NewNumber: c + 1}
	}
	return rows
}

func press(m *Machine, rows []RowRef, keys ...string) Intent {
	var in Intent
	for _, k := range keys {
		in = m.Dispatch(Event{Key: k}, rows)
	}
	return in
}

func TestJumpNext_Wraps(t *testing.T) {
	rows := rowsWithChanges(12, 2, 5, 9)
	m := New(false)
	require.Equal(t, Idle, m.State())

	var visited []int
	for i := 0; i < 4; i++ {
		require.Equal(t, IntentSelect, m.Dispatch(Event{Key: "]"}, rows))
		visited = append(visited, m.Selection().LineIndex)
	}
	require.Equal(t, []int{2, 5, 9, 2}, visited)
	require.Equal(t, LineSelected, m.State())
}

func TestJumpPrev_StartsAtLastChange(t *testing.T) {
	rows := rowsWithChanges(12, 2, 5, 9)
	m := New(false)
	press(m, rows, "[")
	require.Equal(t, 9, m.Selection().LineIndex)
	press(m, rows, "[", "[", "[")
	require.Equal(t, 9, m.Selection().LineIndex)
}

func TestJump_NoChanges(t *testing.T) {
	m := New(false)
	require.Equal(t, IntentNone, press(m, rowsWithChanges(3), "]"))
	require.Equal(t, IntentNone, press(m, nil, "]"))
	require.Equal(t, Idle, m.State())
}

func TestJump_AcrossHunks(t *testing.T) {
	rows := []RowRef{
		{HunkIndex: 0, LineIndex: 0, Type: diffview.LineContext, OldNumber: 1, NewNumber: 1},
		{HunkIndex: 0, LineIndex: 1, Type: diffview.LineRemove, OldNumber: 2},
		{HunkIndex: 1, LineIndex: 0, Type: diffview.LineContext, OldNumber: 40, NewNumber: 39},
		{HunkIndex: 1, LineIndex: 1, Type: diffview.LineAdd, NewNumber: 40},
	}
	m := New(false)
	press(m, rows, "]")
	require.Equal(t, Selection{HunkIndex: 0, LineIndex: 1, Side: diffview.SideOld, Valid: true}, m.Selection())
	press(m, rows, "]")
	require.Equal(t, Selection{HunkIndex: 1, LineIndex: 1, Side: diffview.SideNew, Valid: true}, m.Selection())
}

func TestMove(t *testing.T) {
	rows := rowsWithChanges(3)
	m := New(false)
	require.Equal(t, IntentSelect, press(m, rows, "j"))
	require.Equal(t, 0, m.Selection().LineIndex)
	press(m, rows, "down", "j", "j")
	require.Equal(t, 2, m.Selection().LineIndex)
	press(m, rows, "k", "up", "up")
	require.Equal(t, 0, m.Selection().LineIndex)
}

func TestComposer_OpenOnlyWithSelection(t *testing.T) {
	rows := rowsWithChanges(5, 3)
	m := New(false)
	require.Equal(t, IntentNone, press(m, rows, "c"))
	require.Equal(t, Idle, m.State())

	press(m, rows, "]")
	require.Equal(t, IntentOpenComposer, press(m, rows, "c"))
	require.Equal(t, Composing, m.State())

	// keys typed into the composer do not navigate
	require.Equal(t, IntentNone, press(m, rows, "]"))
	require.Equal(t, IntentNone, press(m, rows, "c"))
	require.Equal(t, 3, m.Selection().LineIndex)
	require.Equal(t, IntentSubmit, press(m, rows, "ctrl+s"))

	require.Equal(t, IntentCloseComposer, press(m, rows, "esc"))
	require.Equal(t, LineSelected, m.State())
	require.Equal(t, IntentBack, press(m, rows, "esc"))
}

func TestInputFocus_SuppressesKeys(t *testing.T) {
	rows := rowsWithChanges(5, 1, 3)
	m := New(false)
	for _, k := range []string{"]", "[", "j", "c", "s"} {
		require.Equal(t, IntentNone, m.Dispatch(Event{Key: k, InputFocused: true}, rows), k)
	}
	require.Equal(t, Idle, m.State())
	require.False(t, m.Split())
	require.Equal(t, IntentBack, m.Dispatch(Event{Key: "esc", InputFocused: true}, rows))
}

func TestToggleView_KeepsSelection(t *testing.T) {
	rows := rowsWithChanges(6, 4)
	m := New(false)
	press(m, rows, "]")
	before := m.Selection()
	require.Equal(t, IntentToggleView, press(m, rows, "s"))
	require.True(t, m.Split())
	require.Equal(t, before, m.Selection())
	press(m, rows, "s")
	require.False(t, m.Split())
}

func TestSplit_TabSwitchesSide(t *testing.T) {
	rows := rowsWithChanges(4, 2)
	m := New(true)
	press(m, rows, "j")
	require.Equal(t, diffview.SideNew, m.Selection().Side)
	require.Equal(t, IntentSelect, press(m, rows, "tab"))
	require.Equal(t, diffview.SideOld, m.Selection().Side)

	// an addition has no old side to switch to
	press(m, rows, "]")
	require.Equal(t, IntentNone, press(m, rows, "tab"))
	require.Equal(t, diffview.SideNew, m.Selection().Side)

	m = New(false)
	press(m, rows, "j")
	require.Equal(t, IntentNone, press(m, rows, "tab"))
}

func TestSplit_RangeSelect(t *testing.T) {
	rows := []RowRef{
		{LineIndex: 0, Type: diffview.LineContext, OldNumber: 10, NewNumber: 10},
		{LineIndex: 1, Type: diffview.LineRemove, OldNumber: 11},
		{LineIndex: 2, Type: diffview.LineAdd, NewNumber: 11},
		{LineIndex: 3, Type: diffview.LineAdd, NewNumber: 12},
	}
	m := New(true)
	press(m, rows, "j")
	require.Equal(t, IntentRangeSelect, press(m, rows, "shift+down"))
	r, ok := m.Range()
	require.True(t, ok)
	// the removal has no new-side line and is skipped
	require.Equal(t, Range{Side: diffview.SideNew, Start: 10, End: 11}, r)
	press(m, rows, "shift+down")
	r, _ = m.Range()
	require.Equal(t, 12, r.End)
	press(m, rows, "shift+up")
	r, _ = m.Range()
	require.Equal(t, Range{Side: diffview.SideNew, Start: 10, End: 11}, r)

	press(m, rows, "j")
	_, ok = m.Range()
	require.False(t, ok)

	m = New(false)
	press(m, rows, "j")
	require.Equal(t, IntentNone, press(m, rows, "shift+down"))
}

func TestSelectAndComposerClosed(t *testing.T) {
	rows := rowsWithChanges(4, 1)
	m := New(false)
	require.True(t, m.Select(rows[1], diffview.SideOld))
	// an addition cannot be selected on the old side
	require.Equal(t, diffview.SideNew, m.Selection().Side)
	press(m, rows, "c")
	require.False(t, m.Select(rows[0], diffview.SideNew))
	m.ComposerClosed()
	require.Equal(t, LineSelected, m.State())

	m.Reset()
	require.Equal(t, Idle, m.State())
	require.False(t, m.Selection().Valid)
}

func TestStaleSelection_RestartsJump(t *testing.T) {
	m := New(false)
	press(m, rowsWithChanges(10, 8), "]")
	require.Equal(t, 8, m.Selection().LineIndex)
	// rows replaced by a shorter file: the old selection no longer exists
	press(m, rowsWithChanges(4, 1, 3), "]")
	require.Equal(t, 1, m.Selection().LineIndex)
}

func TestSplit_RangeSurvivesRowsLoadingAbove(t *testing.T) {
	later := []RowRef{
		{HunkIndex: 1, LineIndex: 0, Type: diffview.LineContext, OldNumber: 50, NewNumber: 50},
		{HunkIndex: 1, LineIndex: 1, Type: diffview.LineAdd, NewNumber: 51},
		{HunkIndex: 1, LineIndex: 2, Type: diffview.LineAdd, NewNumber: 52},
	}
	m := New(true)
	press(m, later, "j")
	press(m, later, "shift+down")
	r, _ := m.Range()
	require.Equal(t, Range{Side: diffview.SideNew, Start: 50, End: 51}, r)

	// the first hunk's page arrives and its rows go in front
	rows := append([]RowRef{
		{HunkIndex: 0, LineIndex: 0, Type: diffview.LineContext, OldNumber: 1, NewNumber: 1},
		{HunkIndex: 0, LineIndex: 1, Type: diffview.LineContext, OldNumber: 2, NewNumber: 2},
		{HunkIndex: 0, LineIndex: 2, Type: diffview.LineContext, OldNumber: 3, NewNumber: 3},
	}, later...)
	require.Equal(t, IntentRangeSelect, press(m, rows, "shift+down"))
	r, _ = m.Range()
	require.Equal(t, Range{Side: diffview.SideNew, Start: 50, End: 52}, r)
}

func TestSplit_RangeRestartsWhenAnchorGone(t *testing.T) {
	rows := rowsWithChanges(6)
	m := New(true)
	press(m, rows, "j", "j", "shift+down")
	r, _ := m.Range()
	require.Equal(t, Range{Side: diffview.SideNew, Start: 2, End: 3}, r)

	// the anchor row is no longer in the document
	press(m, rows[2:], "shift+down")
	r, ok := m.Range()
	require.True(t, ok)
	require.Equal(t, Range{Side: diffview.SideNew, Start: 3, End: 4}, r)
}

func TestReply_OpensLikeComposer(t *testing.T) {
	rows := rowsWithChanges(5, 3)
	m := New(false)
	require.Equal(t, IntentNone, press(m, rows, "R"))

	press(m, rows, "]")
	require.Equal(t, IntentOpenReply, press(m, rows, "R"))
	require.Equal(t, Composing, m.State())
	require.Equal(t, IntentNone, press(m, rows, "R"))
	require.Equal(t, "open-reply", IntentOpenReply.String())
}
