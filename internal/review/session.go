package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/interpretive-systems/critique/internal/comments"
	"github.com/interpretive-systems/critique/internal/diffview"
	"github.com/interpretive-systems/critique/internal/keynav"
	"github.com/interpretive-systems/critique/internal/loader"
)

// Options tune a Session.
type Options struct {
	LargeDiffLines  int
	PageSize        int
	Proximity       int
	ContextLines    int
	MutationTimeout time.Duration
	Author          string
	Split           bool
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		LargeDiffLines: 1500,
		PageSize:       20,
		Proximity:      1,
		ContextLines:   diffview.DefaultContextLines,
		Author:         "you",
	}
}

// Session is the controller of the open file. Its state is only touched from
// the bubbletea update loop; commands it returns capture values, never the
// session itself.
type Session struct {
	remote Remote
	opts   Options

	mrID int
	path string
	gen  int

	file    diffview.FileContent
	large   bool
	loader  *loader.Loader
	store   *comments.Store
	nav     *keynav.Machine
	rows    []keynav.RowRef
	regions diffview.Regions

	loading   bool
	err       error
	lastFirst int
	lastLast  int
}

// NewSession returns a session with no file open.
func NewSession(remote Remote, opts Options) *Session {
	if opts.PageSize <= 0 {
		opts.PageSize = 20
	}
	if opts.Author == "" {
		opts.Author = "you"
	}
	return &Session{
		remote: remote,
		opts:   opts,
		loader: loader.New(opts.PageSize, opts.Proximity),
		store:  comments.NewStore(0, ""),
		nav:    keynav.New(opts.Split),
	}
}

func (s *Session) key() fileKey {
	return fileKey{mrID: s.mrID, path: s.path, gen: s.gen}
}

func (s *Session) current(k fileKey) bool {
	return k == s.key()
}

// Open switches the session to another file. State of the previous file is
// dropped and responses still in flight for it will be discarded.
func (s *Session) Open(mrID int, path string) tea.Cmd {
	s.gen++
	s.mrID, s.path = mrID, path
	s.file = diffview.FileContent{Path: path}
	s.large = false
	s.loader.Reset(0)
	s.store = comments.NewStore(mrID, path)
	s.nav.Reset()
	s.rows = nil
	s.regions = diffview.Regions{}
	s.err = nil
	s.loading = true
	s.lastFirst, s.lastLast = 0, 0

	k := s.key()
	log.Debug().Int("mr", mrID).Str("path", path).Int("gen", k.gen).Msg("open file")
	return s.fetchFile(k)
}

func (s *Session) fetchFile(k fileKey) tea.Cmd {
	remote := s.remote
	seq := s.store.NextListSeq()
	return func() tea.Msg {
		ctx := context.Background()
		msg := diffLoadedMsg{key: k, listSeq: seq}
		var g errgroup.Group
		g.Go(func() error {
			fc, err := remote.FetchFileDiff(ctx, k.mrID, k.path)
			if err != nil {
				return &FetchError{Op: "fetch diff", Path: k.path, Page: -1, Err: err}
			}
			msg.file = fc
			return nil
		})
		g.Go(func() error {
			msg.comments, msg.commentsErr = remote.ListFileComments(ctx, k.mrID, k.path)
			return nil
		})
		msg.err = g.Wait()
		return msg
	}
}

// Update applies a response message. It returns follow-up commands and
// ignores messages it does not own.
func (s *Session) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case diffLoadedMsg:
		if !s.accept(msg.key, "diff") {
			return nil
		}
		return s.onDiffLoaded(msg)
	case hunkPageMsg:
		if !s.accept(msg.key, "hunk page") {
			return nil
		}
		return s.onHunkPage(msg)
	case commentsLoadedMsg:
		if !s.accept(msg.key, "comments") {
			return nil
		}
		if msg.err != nil {
			log.Warn().Err(msg.err).Str("path", s.path).Msg("list comments")
			return notify(LevelWarn, "comments unavailable", msg.err)
		}
		if !s.store.ReplaceAt(msg.seq, msg.comments) {
			log.Debug().Str("path", s.path).Uint64("seq", msg.seq).Msg("discard superseded comment list")
			return nil
		}
		return s.countCmd()
	case commentCreatedMsg:
		if !s.accept(msg.key, "create comment") {
			return nil
		}
		return s.onCreated(msg)
	case commentDeletedMsg:
		if !s.accept(msg.key, "delete comment") {
			return nil
		}
		return s.onDeleted(msg)
	case discussionResolvedMsg:
		if !s.accept(msg.key, "resolve discussion") {
			return nil
		}
		return s.onResolved(msg)
	}
	return nil
}

func (s *Session) accept(k fileKey, what string) bool {
	if s.current(k) {
		return true
	}
	log.Debug().
		Int("mr", k.mrID).
		Str("path", k.path).
		Int("gen", k.gen).
		Int("current_gen", s.gen).
		Msgf("discard stale %s response", what)
	return false
}

func (s *Session) onDiffLoaded(msg diffLoadedMsg) tea.Cmd {
	s.loading = false
	if msg.err != nil {
		s.err = msg.err
		log.Error().Err(msg.err).Int("mr", s.mrID).Str("path", s.path).Msg("load diff")
		return nil
	}
	fc := msg.file
	s.large = fc.IsLarge(s.opts.LargeDiffLines)
	s.loader.Reset(fc.Count())
	s.loader.Seed(fc.Hunks)
	fc.Hunks = s.loader.Hunks()
	fc.HunkCount = len(fc.Hunks)
	s.file = fc
	if err := diffview.ValidateHunks(fc.Hunks); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("diff failed validation")
	}
	s.rebuild()

	cmds := []tea.Cmd{}
	if msg.commentsErr != nil {
		log.Warn().Err(msg.commentsErr).Str("path", s.path).Msg("list comments")
		cmds = append(cmds, notify(LevelWarn, "comments unavailable", msg.commentsErr))
	} else {
		s.store.ReplaceAt(msg.listSeq, msg.comments)
	}
	cmds = append(cmds, s.countCmd())
	if s.large {
		cmds = append(cmds, s.EnsureVisible(0, 0))
	}
	return tea.Batch(cmds...)
}

func (s *Session) onHunkPage(msg hunkPageMsg) tea.Cmd {
	if msg.err != nil {
		s.loader.Fail(msg.page)
		s.err = msg.err
		log.Warn().Err(msg.err).Str("path", s.path).Int("page", int(msg.page)).Msg("fetch hunk page")
		return nil
	}
	n, err := s.loader.Complete(msg.page, msg.hunks)
	if err != nil {
		log.Warn().Err(err).Str("path", s.path).Int("page", int(msg.page)).Msg("merge hunk page")
		return nil
	}
	log.Debug().Str("path", s.path).Int("page", int(msg.page)).Int("filled", n).Msg("hunk page loaded")
	var fe *FetchError
	if errors.As(s.err, &fe) && fe.Page == int(msg.page) {
		s.err = nil
	}
	s.file.Hunks = s.loader.Hunks()
	s.rebuild()
	return nil
}

// rebuild derives the document rows and collapse regions from the loaded
// hunks.
func (s *Session) rebuild() {
	hunks := s.loader.Hunks()
	rows := make([]keynav.RowRef, 0, len(s.rows))
	for hi, h := range hunks {
		if h == nil {
			continue
		}
		for li, l := range h.Lines {
			rows = append(rows, keynav.RowRef{
				HunkIndex: hi,
				LineIndex: li,
				Type:      l.Type,
				OldNumber: l.OldNumber,
				NewNumber: l.NewNumber,
			})
		}
	}
	s.rows = rows
	s.regions = diffview.ComputeCollapseRegions(
		diffview.ChangedRanges(hunks),
		s.file.OldTotalLines,
		s.file.NewTotalLines,
		s.opts.ContextLines,
	)
}

// EnsureVisible requests the hunk pages around the visible hunk range.
// Pages already loaded or in flight are not requested again.
func (s *Session) EnsureVisible(first, last int) tea.Cmd {
	if !s.large || s.loading {
		return nil
	}
	s.lastFirst, s.lastLast = first, last
	keys := s.loader.Request(first, last)
	if len(keys) == 0 {
		return nil
	}
	k := s.key()
	remote := s.remote
	cmds := make([]tea.Cmd, 0, len(keys))
	for _, page := range keys {
		log.Debug().Str("path", k.path).Int("page", int(page)).Int("gen", k.gen).Msg("fetch hunk page")
		cmds = append(cmds, func() tea.Msg {
			hunks, err := remote.FetchHunkPage(context.Background(), k.mrID, k.path, page)
			if err != nil {
				err = &FetchError{Op: "fetch hunks", Path: k.path, Page: int(page), Err: err}
			}
			return hunkPageMsg{key: k, page: page, hunks: hunks, err: err}
		})
	}
	return tea.Batch(cmds...)
}

// Retry re-issues the request behind the last FetchError.
func (s *Session) Retry() tea.Cmd {
	var fe *FetchError
	if !errors.As(s.err, &fe) {
		return nil
	}
	if fe.Page >= 0 {
		s.err = nil
		return s.EnsureVisible(s.lastFirst, s.lastLast)
	}
	return s.Open(s.mrID, s.path)
}

// Refresh reloads the comment list of the open file.
func (s *Session) Refresh() tea.Cmd {
	if s.path == "" {
		return nil
	}
	return s.listComments(s.key())
}

// listComments stamps the request with the store's next list number so a
// response overtaken by a newer one, or by a confirmed mutation, cannot undo
// it.
func (s *Session) listComments(k fileKey) tea.Cmd {
	remote := s.remote
	seq := s.store.NextListSeq()
	return func() tea.Msg {
		list, err := remote.ListFileComments(context.Background(), k.mrID, k.path)
		return commentsLoadedMsg{key: k, seq: seq, comments: list, err: err}
	}
}

func (s *Session) mutationContext() (context.Context, context.CancelFunc) {
	if s.opts.MutationTimeout > 0 {
		return context.WithTimeout(context.Background(), s.opts.MutationTimeout)
	}
	return context.WithCancel(context.Background())
}

// OpenComposer opens the composer on the selected line.
func (s *Session) OpenComposer() bool {
	ref, _, ok := s.nav.Current(s.rows)
	if !ok {
		return false
	}
	side := s.nav.Selection().Side
	s.store.OpenComposer(comments.Anchor{
		HunkIndex: ref.HunkIndex,
		LineIndex: ref.LineIndex,
		Side:      side,
		Line:      ref.Number(side),
	})
	return true
}

// OpenReply opens the composer as a reply to the latest synced discussion
// on the selected line. It reports false when the line has none.
func (s *Session) OpenReply() bool {
	ref, _, ok := s.nav.Current(s.rows)
	if !ok {
		return false
	}
	line := diffview.Line{Type: ref.Type, OldNumber: ref.OldNumber, NewNumber: ref.NewNumber}
	threads := comments.GroupThreads(s.store.ForLine(line))
	for i := len(threads) - 1; i >= 0; i-- {
		root := threads[i].Root()
		if threads[i].DiscussionID == "" || root.ID <= 0 {
			continue
		}
		key := root.AnchorKey()
		s.store.OpenReply(comments.Anchor{
			HunkIndex: ref.HunkIndex,
			LineIndex: ref.LineIndex,
			Side:      key.Side,
			Line:      key.Line,
		}, root)
		return true
	}
	return false
}

// SetDraft mirrors the composer input into the store.
func (s *Session) SetDraft(text string) {
	s.store.SetDraft(text)
}

// SubmitComment submits the composer's draft. The comment shows up at once
// with a negative id and is reconciled when the remote answers.
func (s *Session) SubmitComment(now time.Time) tea.Cmd {
	c, err := s.store.BeginAdd(s.opts.Author, now)
	if err != nil {
		log.Debug().Err(err).Str("path", s.path).Msg("reject comment")
		return notify(LevelWarn, rejectText(err), err)
	}
	log.Info().Int("mr", s.mrID).Str("path", s.path).Int("comment_id", c.ID).Msg("create comment")

	k := s.key()
	remote := s.remote
	ctx, cancel := s.mutationContext()
	anchor := c.AnchorKey()
	create := func() tea.Msg {
		defer cancel()
		var server comments.Comment
		var err error
		if c.ParentID != 0 {
			server, err = remote.Reply(ctx, k.mrID, c.DiscussionID, c.Body)
		} else {
			server, err = remote.CreateComment(ctx, k.mrID, k.path, anchor.Side, anchor.Line, c.Body)
		}
		return commentCreatedMsg{key: k, tempID: c.ID, comment: server, err: err}
	}
	return tea.Batch(s.countCmd(), create)
}

func (s *Session) onCreated(msg commentCreatedMsg) tea.Cmd {
	if msg.err != nil {
		s.store.RollbackAdd(msg.tempID)
		merr := &MutationError{Op: "create", CommentID: msg.tempID, Err: msg.err}
		log.Warn().Err(msg.err).Str("path", s.path).Int("comment_id", msg.tempID).Msg("rollback create")
		return tea.Batch(s.countCmd(), notify(LevelError, "comment not saved", merr))
	}
	s.store.ConfirmAdd(msg.tempID, msg.comment)
	s.nav.ComposerClosed()
	log.Info().Str("path", s.path).Int("comment_id", msg.comment.ID).Msg("comment confirmed")
	return tea.Batch(s.countCmd(), s.listComments(msg.key))
}

// DeleteComment removes a comment optimistically.
func (s *Session) DeleteComment(id int) tea.Cmd {
	c, index, err := s.store.BeginDelete(id)
	if err != nil {
		log.Debug().Err(err).Int("comment_id", id).Msg("reject delete")
		return notify(LevelWarn, rejectText(err), err)
	}
	log.Info().Int("mr", s.mrID).Str("path", s.path).Int("comment_id", id).Msg("delete comment")

	k := s.key()
	remote := s.remote
	ctx, cancel := s.mutationContext()
	del := func() tea.Msg {
		defer cancel()
		err := remote.DeleteComment(ctx, k.mrID, c.ID)
		return commentDeletedMsg{key: k, comment: c, index: index, err: err}
	}
	return tea.Batch(s.countCmd(), del)
}

func (s *Session) onDeleted(msg commentDeletedMsg) tea.Cmd {
	if msg.err != nil {
		s.store.RollbackDelete(msg.comment, msg.index)
		merr := &MutationError{Op: "delete", CommentID: msg.comment.ID, Err: msg.err}
		log.Warn().Err(msg.err).Int("comment_id", msg.comment.ID).Msg("rollback delete")
		return tea.Batch(s.countCmd(), notify(LevelError, "comment not deleted", merr))
	}
	s.store.ConfirmDelete(msg.comment.ID)
	return tea.Batch(s.countCmd(), s.listComments(msg.key))
}

// ToggleResolved flips the resolved state of a discussion.
func (s *Session) ToggleResolved(discussionID string) tea.Cmd {
	resolved := true
	for _, th := range s.store.Threads() {
		if th.DiscussionID == discussionID {
			resolved = !th.Resolved()
			break
		}
	}
	prior, err := s.store.BeginResolve(discussionID, resolved)
	if err != nil {
		log.Debug().Err(err).Str("discussion", discussionID).Msg("reject resolve")
		return notify(LevelWarn, rejectText(err), err)
	}
	log.Info().Str("path", s.path).Str("discussion", discussionID).Bool("resolved", resolved).Msg("resolve discussion")

	k := s.key()
	remote := s.remote
	ctx, cancel := s.mutationContext()
	return func() tea.Msg {
		defer cancel()
		err := remote.SetDiscussionResolved(ctx, k.mrID, discussionID, resolved)
		return discussionResolvedMsg{key: k, discussionID: discussionID, prior: prior, resolved: resolved, err: err}
	}
}

func (s *Session) onResolved(msg discussionResolvedMsg) tea.Cmd {
	if msg.err != nil {
		s.store.RollbackResolve(msg.prior)
		merr := &MutationError{Op: "resolve", DiscussionID: msg.discussionID, Err: msg.err}
		log.Warn().Err(msg.err).Str("discussion", msg.discussionID).Msg("rollback resolve")
		return notify(LevelError, "discussion not updated", merr)
	}
	s.store.ConfirmResolve(msg.prior)
	return s.listComments(msg.key)
}

// HandleKey routes a diff-pane key through the navigation machine and acts
// on the resulting intent. The intent is returned so the view can handle
// the ones it owns (back, view toggle).
func (s *Session) HandleKey(ev keynav.Event, now time.Time) (keynav.Intent, tea.Cmd) {
	if ev.Key == "esc" {
		if c, ok := s.store.Composer(); ok && c.Submitting {
			return keynav.IntentNone, nil
		}
	}
	intent := s.nav.Dispatch(ev, s.rows)
	switch intent {
	case keynav.IntentSelect:
		return intent, s.selectedCmd()
	case keynav.IntentOpenComposer:
		if !s.OpenComposer() {
			s.nav.ComposerClosed()
			return keynav.IntentNone, nil
		}
	case keynav.IntentOpenReply:
		if !s.OpenReply() {
			s.nav.ComposerClosed()
			return keynav.IntentNone, notify(LevelInfo, "no discussion on this line", nil)
		}
	case keynav.IntentCloseComposer:
		s.store.CloseComposer()
	case keynav.IntentSubmit:
		return intent, s.SubmitComment(now)
	case keynav.IntentRangeSelect:
		r, _ := s.nav.Range()
		path := s.path
		return intent, func() tea.Msg { return RangeSelectedMsg{FilePath: path, Range: r} }
	}
	return intent, nil
}

// Select selects a line directly, as a click or search jump does.
func (s *Session) Select(hunkIndex, lineIndex int, side diffview.Side) tea.Cmd {
	for _, r := range s.rows {
		if r.HunkIndex == hunkIndex && r.LineIndex == lineIndex {
			if !s.nav.Select(r, side) {
				return nil
			}
			return s.selectedCmd()
		}
	}
	return nil
}

func (s *Session) selectedCmd() tea.Cmd {
	ref, _, ok := s.nav.Current(s.rows)
	if !ok {
		return nil
	}
	sel := s.nav.Selection()
	msg := LineSelectedMsg{
		LineNumber: ref.Number(sel.Side),
		Side:       sel.Side,
		LineType:   ref.Type,
		FilePath:   s.path,
		HunkIndex:  ref.HunkIndex,
		LineIndex:  ref.LineIndex,
	}
	return func() tea.Msg { return msg }
}

func (s *Session) countCmd() tea.Cmd {
	msg := CommentCountMsg{MRID: s.mrID, Path: s.path, Count: s.store.Len()}
	return func() tea.Msg { return msg }
}

func notify(level Level, text string, err error) tea.Cmd {
	if err != nil {
		text = fmt.Sprintf("%s: %v", text, err)
	}
	return func() tea.Msg { return NotifyMsg{Level: level, Text: text, Err: err} }
}

func rejectText(err error) string {
	var verr *comments.ValidationError
	switch {
	case errors.As(err, &verr):
		return "cannot submit"
	case errors.Is(err, comments.ErrMutationInFlight):
		return "still saving"
	}
	return "rejected"
}

// MRID returns the open merge request.
func (s *Session) MRID() int { return s.mrID }

// Path returns the open file.
func (s *Session) Path() string { return s.path }

// File returns the open file's diff. Hunks may contain nil placeholders.
func (s *Session) File() diffview.FileContent { return s.file }

// Hunks returns the hunk array, placeholders included.
func (s *Session) Hunks() []*diffview.Hunk { return s.loader.Hunks() }

// Large reports whether the file is loaded progressively.
func (s *Session) Large() bool { return s.large }

// Loading reports whether the diff is still being fetched.
func (s *Session) Loading() bool { return s.loading }

// Rows returns the loaded lines in document order.
func (s *Session) Rows() []keynav.RowRef { return s.rows }

// Regions returns the collapse regions of the loaded hunks.
func (s *Session) Regions() diffview.Regions { return s.regions }

// Comments returns the comment store. Callers must only read from it.
func (s *Session) Comments() *comments.Store { return s.store }

// Nav returns the navigation machine.
func (s *Session) Nav() *keynav.Machine { return s.nav }

// Err returns the last fetch error, if any.
func (s *Session) Err() error { return s.err }
