package review

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/interpretive-systems/critique/internal/comments"
	"github.com/interpretive-systems/critique/internal/diffview"
	"github.com/interpretive-systems/critique/internal/keynav"
	"github.com/interpretive-systems/critique/internal/loader"
)

var now = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

// hunkAt returns a hunk with one context line, one removal and one addition
// starting at old/new line start.
func hunkAt(start int) *diffview.Hunk {
	return &diffview.Hunk{
		OldStart: start, OldCount: 2, NewStart: start, NewCount: 2,
		Lines: []diffview.Line{
			{Type: diffview.LineContext, OldNumber: start, NewNumber: start, Content: "keep"},
			{Type: diffview.LineRemove, OldNumber: start + 1, Content: "old"},
			{Type: diffview.LineAdd, NewNumber: start + 1, Content: "new"},
		},
	}
}

func smallFile(path string) diffview.FileContent {
	return diffview.FileContent{
		Path:          path,
		Hunks:         []*diffview.Hunk{hunkAt(1), hunkAt(20)},
		HunkCount:     2,
		OldTotalLines: 40,
		NewTotalLines: 40,
	}
}

func largeFile(path string, n int) diffview.FileContent {
	fc := diffview.FileContent{Path: path, Large: true, OldTotalLines: n * 10, NewTotalLines: n * 10}
	for i := 0; i < n; i++ {
		fc.Hunks = append(fc.Hunks, hunkAt(i*10+1))
	}
	fc.HunkCount = n
	return fc
}

func openSession(t *testing.T, f *fakeRemote, path string, opts Options) *Session {
	t.Helper()
	s := NewSession(f, opts)
	run(s, s.Open(1, path))
	require.False(t, s.Loading())
	require.NoError(t, s.Err())
	return s
}

func composeOn(t *testing.T, s *Session, draft string) {
	t.Helper()
	intent, _ := s.HandleKey(keynav.Event{Key: "]"}, now)
	require.Equal(t, keynav.IntentSelect, intent)
	intent, _ = s.HandleKey(keynav.Event{Key: "c"}, now)
	require.Equal(t, keynav.IntentOpenComposer, intent)
	s.SetDraft(draft)
}

func TestOpen_LoadsDiffAndComments(t *testing.T) {
	f := newFakeRemote()
	f.files["a.go"] = smallFile("a.go")
	f.comments["a.go"] = []comments.Comment{{ID: 1, FilePath: "a.go", NewLine: 2, DiscussionID: "d1"}}

	s := NewSession(f, DefaultOptions())
	msgs := run(s, s.Open(1, "a.go"))

	require.Len(t, s.Hunks(), 2)
	require.Len(t, s.Rows(), 6)
	require.Equal(t, 1, s.Comments().Len())
	count, ok := find[CommentCountMsg](msgs)
	require.True(t, ok)
	require.Equal(t, CommentCountMsg{MRID: 1, Path: "a.go", Count: 1}, count)

	regions := s.Regions()
	require.Equal(t, []diffview.Region{{Start: 8, End: 15}, {Start: 27, End: 40}}, regions.New)
}

func TestOpen_StaleResponseDiscarded(t *testing.T) {
	f := newFakeRemote()
	f.files["a.go"] = smallFile("a.go")
	f.files["b.go"] = diffview.FileContent{Path: "b.go", Hunks: []*diffview.Hunk{hunkAt(5)}, HunkCount: 1, OldTotalLines: 10, NewTotalLines: 10}

	s := NewSession(f, DefaultOptions())
	first := s.Open(1, "a.go")
	second := s.Open(1, "b.go")

	// the response for a.go arrives after the user moved on
	late := first()
	require.Nil(t, s.Update(late))
	require.True(t, s.Loading())
	require.Empty(t, s.Hunks())

	run(s, second)
	require.Equal(t, "b.go", s.Path())
	require.Len(t, s.Hunks(), 1)
	require.Equal(t, 5, s.Hunks()[0].OldStart)

	// and again after b.go has loaded
	require.Nil(t, s.Update(late))
	require.Len(t, s.Hunks(), 1)
}

func TestOpen_FetchErrorAndRetry(t *testing.T) {
	f := newFakeRemote()
	f.files["a.go"] = smallFile("a.go")
	f.failDiff = ErrNetwork

	s := NewSession(f, DefaultOptions())
	run(s, s.Open(1, "a.go"))
	var fe *FetchError
	require.ErrorAs(t, s.Err(), &fe)
	require.ErrorIs(t, s.Err(), ErrNetwork)
	require.Equal(t, -1, fe.Page)

	f.failDiff = nil
	run(s, s.Retry())
	require.NoError(t, s.Err())
	require.Len(t, s.Hunks(), 2)
}

func TestOpen_NotFound(t *testing.T) {
	s := NewSession(newFakeRemote(), DefaultOptions())
	run(s, s.Open(1, "missing.go"))
	require.ErrorIs(t, s.Err(), ErrNotFound)
}

func TestOpen_CommentFailureStillShowsDiff(t *testing.T) {
	f := newFakeRemote()
	f.files["a.go"] = smallFile("a.go")
	f.failList = ErrNetwork

	s := NewSession(f, DefaultOptions())
	msgs := run(s, s.Open(1, "a.go"))
	require.NoError(t, s.Err())
	require.Len(t, s.Hunks(), 2)
	n, ok := find[NotifyMsg](msgs)
	require.True(t, ok)
	require.Equal(t, LevelWarn, n.Level)
}

func TestProgressiveLoad(t *testing.T) {
	f := newFakeRemote()
	f.files["big.go"] = largeFile("big.go", 7)
	opts := DefaultOptions()
	opts.PageSize = 2
	opts.Proximity = 0

	s := NewSession(f, opts)
	run(s, s.Open(1, "big.go"))
	require.True(t, s.Large())
	hunks := s.Hunks()
	require.Len(t, hunks, 7)
	require.NotNil(t, hunks[0])
	require.NotNil(t, hunks[1])
	require.Nil(t, hunks[2])
	first := hunks[0]

	// overlapping requests while page 2 is in flight issue one fetch
	cmd := s.EnsureVisible(4, 5)
	require.NotNil(t, cmd)
	require.Nil(t, s.EnsureVisible(5, 5))
	run(s, cmd)
	require.Equal(t, 1, f.pageCalls[2])

	hunks = s.Hunks()
	require.Same(t, first, hunks[0])
	require.Equal(t, 41, hunks[4].OldStart)
	require.Nil(t, hunks[3])
	require.Nil(t, hunks[6])
}

func TestProgressiveLoad_FailureIsRetryable(t *testing.T) {
	f := newFakeRemote()
	f.files["big.go"] = largeFile("big.go", 4)
	f.failPage[loader.PageKey(1)] = ErrNetwork
	opts := DefaultOptions()
	opts.PageSize = 2
	opts.Proximity = 0

	s := openSession(t, f, "big.go", opts)
	run(s, s.EnsureVisible(2, 3))
	require.Nil(t, s.Hunks()[2])
	var fe *FetchError
	require.ErrorAs(t, s.Err(), &fe)
	require.Equal(t, 1, fe.Page)

	delete(f.failPage, loader.PageKey(1))
	run(s, s.Retry())
	require.NoError(t, s.Err())
	require.NotNil(t, s.Hunks()[2])
	require.Equal(t, 2, f.pageCalls[1])
}

func TestProgressiveLoad_StalePageDiscarded(t *testing.T) {
	f := newFakeRemote()
	f.files["big.go"] = largeFile("big.go", 4)
	f.files["small.go"] = smallFile("small.go")
	opts := DefaultOptions()
	opts.PageSize = 2
	opts.Proximity = 0

	s := openSession(t, f, "big.go", opts)
	pending := s.EnsureVisible(2, 3)
	run(s, s.Open(1, "small.go"))
	require.Nil(t, s.Update(pending()))
	require.Len(t, s.Hunks(), 2)
	require.Equal(t, 1, s.Hunks()[0].OldStart)
}

func TestSubmitComment_OptimisticThenConfirmed(t *testing.T) {
	f := newFakeRemote()
	f.files["a.go"] = smallFile("a.go")
	s := openSession(t, f, "a.go", DefaultOptions())

	composeOn(t, s, "fix this")
	cmd := s.SubmitComment(now)

	all := s.Comments().All()
	require.Len(t, all, 1)
	require.Less(t, all[0].ID, 0)
	require.Equal(t, comments.SyncPending, all[0].SyncStatus)
	require.Equal(t, "fix this", all[0].Body)
	require.Equal(t, 1, f.listCalls, "no refresh before the create resolves")

	run(s, cmd)
	all = s.Comments().All()
	require.Len(t, all, 1)
	require.Equal(t, 101, all[0].ID)
	require.Equal(t, comments.SyncSynced, all[0].SyncStatus)
	require.Equal(t, 2, f.listCalls)
	_, open := s.Comments().Composer()
	require.False(t, open)
	require.Equal(t, keynav.LineSelected, s.Nav().State())
	require.False(t, f.ctxDeadline)
}

func TestSubmitComment_FailureRollsBack(t *testing.T) {
	f := newFakeRemote()
	f.files["a.go"] = smallFile("a.go")
	f.failCreate = ErrNetwork
	s := openSession(t, f, "a.go", DefaultOptions())

	composeOn(t, s, "fix this")
	cmd := s.SubmitComment(now)
	tempID := s.Comments().All()[0].ID
	require.True(t, s.Comments().Locked(tempID))

	msgs := run(s, cmd)
	_, ok := s.Comments().Get(tempID)
	require.False(t, ok)
	require.Equal(t, 0, s.Comments().Len())

	n, ok := find[NotifyMsg](msgs)
	require.True(t, ok)
	require.Equal(t, LevelError, n.Level)
	var merr *MutationError
	require.ErrorAs(t, n.Err, &merr)
	require.Equal(t, "create", merr.Op)
	require.ErrorIs(t, n.Err, ErrNetwork)

	c, open := s.Comments().Composer()
	require.True(t, open)
	require.Equal(t, "fix this", c.Draft)
	require.False(t, c.Submitting)
}

func TestSubmitComment_ValidationNeverCallsRemote(t *testing.T) {
	f := newFakeRemote()
	f.files["a.go"] = smallFile("a.go")
	s := openSession(t, f, "a.go", DefaultOptions())

	composeOn(t, s, "   ")
	msgs := run(s, s.SubmitComment(now))
	n, ok := find[NotifyMsg](msgs)
	require.True(t, ok)
	var verr *comments.ValidationError
	require.ErrorAs(t, n.Err, &verr)
	require.Equal(t, 0, s.Comments().Len())
	require.Empty(t, f.comments["a.go"])
}

func TestSubmitComment_DoubleSubmitRejected(t *testing.T) {
	f := newFakeRemote()
	f.files["a.go"] = smallFile("a.go")
	s := openSession(t, f, "a.go", DefaultOptions())

	composeOn(t, s, "once")
	first := s.SubmitComment(now)
	msgs := run(s, s.SubmitComment(now))
	n, ok := find[NotifyMsg](msgs)
	require.True(t, ok)
	require.ErrorIs(t, n.Err, comments.ErrMutationInFlight)
	require.Equal(t, 1, s.Comments().Len())

	// esc cannot close a composer that is being submitted
	intent, _ := s.HandleKey(keynav.Event{Key: "esc"}, now)
	require.Equal(t, keynav.IntentNone, intent)

	run(s, first)
	require.Len(t, f.comments["a.go"], 1)
}

func TestSubmitComment_UsesTimeout(t *testing.T) {
	f := newFakeRemote()
	f.files["a.go"] = smallFile("a.go")
	opts := DefaultOptions()
	opts.MutationTimeout = time.Minute
	s := openSession(t, f, "a.go", opts)

	composeOn(t, s, "deadline")
	run(s, s.SubmitComment(now))
	require.True(t, f.ctxDeadline)
}

func TestHandleKey_SubmitThroughKeys(t *testing.T) {
	f := newFakeRemote()
	f.files["a.go"] = smallFile("a.go")
	s := openSession(t, f, "a.go", DefaultOptions())

	composeOn(t, s, "via ctrl+s")
	intent, cmd := s.HandleKey(keynav.Event{Key: "ctrl+s"}, now)
	require.Equal(t, keynav.IntentSubmit, intent)
	run(s, cmd)
	all := s.Comments().All()
	require.Len(t, all, 1)
	// the first change of the file is the removal of old line 2
	require.Equal(t, 2, all[0].OldLine)
	require.Equal(t, 0, all[0].NewLine)
}

func TestDeleteComment_RollbackOnFailure(t *testing.T) {
	f := newFakeRemote()
	f.files["a.go"] = smallFile("a.go")
	f.comments["a.go"] = []comments.Comment{
		{ID: 1, FilePath: "a.go", NewLine: 2, DiscussionID: "d1"},
		{ID: 2, FilePath: "a.go", NewLine: 2, DiscussionID: "d1", ParentID: 1},
	}
	f.failDelete = ErrNetwork
	s := openSession(t, f, "a.go", DefaultOptions())

	cmd := s.DeleteComment(1)
	require.Equal(t, 1, s.Comments().Len())
	msgs := run(s, cmd)
	require.Equal(t, 2, s.Comments().Len())
	require.Equal(t, 1, s.Comments().All()[0].ID)
	var merr *MutationError
	n, _ := find[NotifyMsg](msgs)
	require.ErrorAs(t, n.Err, &merr)
	require.Equal(t, 1, merr.CommentID)

	f.failDelete = nil
	run(s, s.DeleteComment(1))
	require.Equal(t, 1, s.Comments().Len())
	require.Equal(t, 2, s.Comments().All()[0].ID)
}

func TestToggleResolved(t *testing.T) {
	f := newFakeRemote()
	f.files["a.go"] = smallFile("a.go")
	f.comments["a.go"] = []comments.Comment{
		{ID: 1, FilePath: "a.go", NewLine: 2, DiscussionID: "d1"},
		{ID: 2, FilePath: "a.go", NewLine: 2, DiscussionID: "d1", ParentID: 1},
	}
	s := openSession(t, f, "a.go", DefaultOptions())

	cmd := s.ToggleResolved("d1")
	require.True(t, s.Comments().Threads()[0].Resolved())
	require.True(t, s.Comments().Locked(2))
	run(s, cmd)
	require.True(t, s.Comments().Threads()[0].Resolved())
	require.False(t, s.Comments().Locked(2))

	f.failResolve = errors.New("boom")
	run(s, s.ToggleResolved("d1"))
	require.True(t, s.Comments().Threads()[0].Resolved(), "failed unresolve flips back")
	require.Equal(t, comments.SyncFailed, s.Comments().All()[0].SyncStatus)
}

func TestMutationResultAfterFileChangeIsDropped(t *testing.T) {
	f := newFakeRemote()
	f.files["a.go"] = smallFile("a.go")
	f.files["b.go"] = smallFile("b.go")
	s := openSession(t, f, "a.go", DefaultOptions())

	composeOn(t, s, "late")
	cmd := s.SubmitComment(now)
	run(s, s.Open(1, "b.go"))

	var created tea.Msg
	for _, m := range cmd().(tea.BatchMsg) {
		if msg, ok := m().(commentCreatedMsg); ok {
			created = msg
		}
	}
	require.NotNil(t, created)
	require.Nil(t, s.Update(created))
	require.Equal(t, 0, s.Comments().Len())
}

func TestHandleKey_EmitsSelection(t *testing.T) {
	f := newFakeRemote()
	f.files["a.go"] = smallFile("a.go")
	s := openSession(t, f, "a.go", DefaultOptions())

	_, cmd := s.HandleKey(keynav.Event{Key: "]"}, now)
	msg := cmd().(LineSelectedMsg)
	require.Equal(t, LineSelectedMsg{
		LineNumber: 2, Side: diffview.SideOld, LineType: diffview.LineRemove,
		FilePath: "a.go", HunkIndex: 0, LineIndex: 1,
	}, msg)

	sel := s.Select(1, 2, diffview.SideNew)
	msg = sel().(LineSelectedMsg)
	require.Equal(t, 21, msg.LineNumber)
	require.Equal(t, diffview.LineAdd, msg.LineType)

	_, cmd = s.HandleKey(keynav.Event{Key: "s"}, now)
	require.Nil(t, cmd)
	require.True(t, s.Nav().Split())
	_, cmd = s.HandleKey(keynav.Event{Key: "shift+up"}, now)
	rs := cmd().(RangeSelectedMsg)
	require.Equal(t, keynav.Range{Side: diffview.SideNew, Start: 20, End: 21}, rs.Range)
}

func commentIDs(s *Session) []int {
	var ids []int
	for _, c := range s.Comments().All() {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestRefreshLandingBeforeCreateResult(t *testing.T) {
	f := newFakeRemote()
	f.files["a.go"] = smallFile("a.go")
	f.comments["a.go"] = []comments.Comment{{ID: 1, FilePath: "a.go", NewLine: 2, DiscussionID: "d1"}}
	s := openSession(t, f, "a.go", DefaultOptions())

	composeOn(t, s, "race")
	submit := s.SubmitComment(now)
	deleted, ok := find[commentDeletedMsg](collect(s.DeleteComment(1)))
	require.True(t, ok)
	followUp := s.Update(deleted)

	// the server stores the new comment before it answers the refresh the
	// delete asked for, and the refresh is delivered first
	created, ok := find[commentCreatedMsg](collect(submit))
	require.True(t, ok)
	listed, ok := find[commentsLoadedMsg](collect(followUp))
	require.True(t, ok)
	require.Len(t, listed.comments, 1)

	run(s, s.Update(listed))
	require.Len(t, commentIDs(s), 2, "server copy plus the pending record")
	run(s, s.Update(created))
	require.Equal(t, []int{101}, commentIDs(s))
	require.Len(t, s.Comments().ForLine(diffview.Line{Type: diffview.LineRemove, OldNumber: 2}), 1)
}

func TestStaleRefreshAfterCreateResult(t *testing.T) {
	f := newFakeRemote()
	f.files["a.go"] = smallFile("a.go")
	s := openSession(t, f, "a.go", DefaultOptions())

	composeOn(t, s, "race")
	submit := s.SubmitComment(now)
	refresh := s.Refresh()

	// the list is answered before the server stores the comment
	listed, ok := find[commentsLoadedMsg](collect(refresh))
	require.True(t, ok)
	require.Empty(t, listed.comments)
	created, ok := find[commentCreatedMsg](collect(submit))
	require.True(t, ok)

	followUp := s.Update(created)
	require.Equal(t, []int{101}, commentIDs(s))
	run(s, s.Update(listed))
	require.Equal(t, []int{101}, commentIDs(s), "a list requested before the create cannot drop it")

	run(s, followUp)
	require.Equal(t, []int{101}, commentIDs(s))
	require.Equal(t, comments.SyncSynced, s.Comments().All()[0].SyncStatus)
}

func TestOverlappingRefreshesApplyNewest(t *testing.T) {
	f := newFakeRemote()
	f.files["a.go"] = smallFile("a.go")
	f.comments["a.go"] = []comments.Comment{{ID: 1, FilePath: "a.go", NewLine: 2, DiscussionID: "d1"}}
	s := openSession(t, f, "a.go", DefaultOptions())

	older := collect(s.Refresh())
	f.comments["a.go"] = nil
	newer := collect(s.Refresh())

	run(s, s.Update(newer[0]))
	require.Equal(t, 0, s.Comments().Len())
	require.Nil(t, s.Update(older[0]))
	require.Equal(t, 0, s.Comments().Len())
}

func TestReply_AddsToDiscussion(t *testing.T) {
	f := newFakeRemote()
	f.files["a.go"] = smallFile("a.go")
	f.comments["a.go"] = []comments.Comment{
		{ID: 7, FilePath: "a.go", OldLine: 2, DiscussionID: "d7"},
	}
	s := openSession(t, f, "a.go", DefaultOptions())

	intent, _ := s.HandleKey(keynav.Event{Key: "]"}, now)
	require.Equal(t, keynav.IntentSelect, intent)
	intent, _ = s.HandleKey(keynav.Event{Key: "R"}, now)
	require.Equal(t, keynav.IntentOpenReply, intent)
	c, open := s.Comments().Composer()
	require.True(t, open)
	require.NotNil(t, c.Parent)
	require.Equal(t, 7, c.Parent.ID)

	s.SetDraft("agreed")
	cmd := s.SubmitComment(now)
	pending := s.Comments().All()[1]
	require.Equal(t, "d7", pending.DiscussionID)
	require.Equal(t, 7, pending.ParentID)

	run(s, cmd)
	th := s.Comments().Threads()
	require.Len(t, th, 1)
	require.Len(t, th[0].Comments, 2)
	require.Equal(t, 101, th[0].Comments[1].ID)
	require.Equal(t, 7, th[0].Comments[1].ParentID)
	require.Len(t, f.comments["a.go"], 2)
}

func TestReply_NoDiscussionOnLine(t *testing.T) {
	f := newFakeRemote()
	f.files["a.go"] = smallFile("a.go")
	s := openSession(t, f, "a.go", DefaultOptions())

	s.HandleKey(keynav.Event{Key: "]"}, now)
	intent, cmd := s.HandleKey(keynav.Event{Key: "R"}, now)
	require.Equal(t, keynav.IntentNone, intent)
	n := cmd().(NotifyMsg)
	require.Equal(t, LevelInfo, n.Level)
	_, open := s.Comments().Composer()
	require.False(t, open)
	require.Equal(t, keynav.LineSelected, s.Nav().State())
}

func TestToggleResolved_RollbackKeepsMixedFlags(t *testing.T) {
	f := newFakeRemote()
	f.files["a.go"] = smallFile("a.go")
	f.comments["a.go"] = []comments.Comment{
		{ID: 1, FilePath: "a.go", NewLine: 2, DiscussionID: "d1", Resolved: true},
		{ID: 2, FilePath: "a.go", NewLine: 2, DiscussionID: "d1", ParentID: 1},
	}
	f.failResolve = ErrNetwork
	s := openSession(t, f, "a.go", DefaultOptions())

	run(s, s.ToggleResolved("d1"))
	all := s.Comments().All()
	require.True(t, all[0].Resolved)
	require.False(t, all[1].Resolved)
}
