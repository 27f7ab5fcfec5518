package review

import (
	"context"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/interpretive-systems/critique/internal/comments"
	"github.com/interpretive-systems/critique/internal/diffview"
	"github.com/interpretive-systems/critique/internal/loader"
)

// fakeRemote serves canned diffs and keeps comments in memory. Setting one
// of the fail fields makes the matching call return that error.
type fakeRemote struct {
	mu       sync.Mutex
	files    map[string]diffview.FileContent
	comments map[string][]comments.Comment
	pageSize int
	nextID   int

	failDiff    error
	failList    error
	failCreate  error
	failDelete  error
	failResolve error
	failPage    map[loader.PageKey]error

	pageCalls   map[loader.PageKey]int
	listCalls   int
	ctxDeadline bool
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		files:     map[string]diffview.FileContent{},
		comments:  map[string][]comments.Comment{},
		pageSize:  2,
		nextID:    100,
		failPage:  map[loader.PageKey]error{},
		pageCalls: map[loader.PageKey]int{},
	}
}

func (f *fakeRemote) ListFiles(ctx context.Context, mrID int) ([]FileSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []FileSummary
	for path := range f.files {
		out = append(out, FileSummary{Path: path})
	}
	return out, nil
}

func (f *fakeRemote) FetchFileDiff(ctx context.Context, mrID int, path string) (diffview.FileContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDiff != nil {
		return diffview.FileContent{}, f.failDiff
	}
	fc, ok := f.files[path]
	if !ok {
		return diffview.FileContent{}, ErrNotFound
	}
	if fc.Large {
		return diffview.FileContent{
			Path:          fc.Path,
			Hunks:         make([]*diffview.Hunk, len(fc.Hunks)),
			HunkCount:     len(fc.Hunks),
			OldTotalLines: fc.OldTotalLines,
			NewTotalLines: fc.NewTotalLines,
			Large:         true,
		}, nil
	}
	return fc, nil
}

func (f *fakeRemote) FetchHunkPage(ctx context.Context, mrID int, path string, page loader.PageKey) ([]diffview.Hunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageCalls[page]++
	if err := f.failPage[page]; err != nil {
		return nil, err
	}
	fc := f.files[path]
	start, end := loader.PageRange(page, f.pageSize, len(fc.Hunks))
	out := make([]diffview.Hunk, 0, end-start)
	for _, h := range fc.Hunks[start:end] {
		out = append(out, *h)
	}
	return out, nil
}

func (f *fakeRemote) ListFileComments(ctx context.Context, mrID int, path string) ([]comments.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.failList != nil {
		return nil, f.failList
	}
	return append([]comments.Comment(nil), f.comments[path]...), nil
}

func (f *fakeRemote) CreateComment(ctx context.Context, mrID int, path string, side diffview.Side, line int, body string) (comments.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := ctx.Deadline(); ok {
		f.ctxDeadline = true
	}
	if f.failCreate != nil {
		return comments.Comment{}, f.failCreate
	}
	f.nextID++
	c := comments.Comment{
		ID:             f.nextID,
		MRID:           mrID,
		DiscussionID:   fmt.Sprintf("d%d", f.nextID),
		AuthorUsername: "server",
		Body:           body,
		FilePath:       path,
	}
	if side == diffview.SideNew {
		c.NewLine = line
	} else {
		c.OldLine = line
	}
	f.comments[path] = append(f.comments[path], c)
	return c, nil
}

func (f *fakeRemote) Reply(ctx context.Context, mrID int, discussionID, body string) (comments.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return comments.Comment{}, f.failCreate
	}
	for path, list := range f.comments {
		for _, root := range list {
			if root.DiscussionID != discussionID || root.ParentID != 0 {
				continue
			}
			f.nextID++
			c := root
			c.ID = f.nextID
			c.ParentID = root.ID
			c.AuthorUsername = "server"
			c.Body = body
			f.comments[path] = append(f.comments[path], c)
			return c, nil
		}
	}
	return comments.Comment{}, ErrNotFound
}

func (f *fakeRemote) DeleteComment(ctx context.Context, mrID int, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete != nil {
		return f.failDelete
	}
	for path, list := range f.comments {
		for i, c := range list {
			if c.ID == id {
				f.comments[path] = append(list[:i:i], list[i+1:]...)
				return nil
			}
		}
	}
	return ErrNotFound
}

func (f *fakeRemote) SetDiscussionResolved(ctx context.Context, mrID int, discussionID string, resolved bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failResolve != nil {
		return f.failResolve
	}
	for path, list := range f.comments {
		for i := range list {
			if list[i].DiscussionID == discussionID {
				f.comments[path][i].Resolved = resolved
			}
		}
	}
	return nil
}

// run executes cmd and everything it batches, feeding each message back to
// the session. It returns every message produced, in execution order.
func run(s *Session, cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, run(s, c)...)
		}
		return out
	}
	out := []tea.Msg{msg}
	return append(out, run(s, s.Update(msg))...)
}

func find[T any](msgs []tea.Msg) (T, bool) {
	for _, m := range msgs {
		if v, ok := m.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// collect executes cmd and everything it batches without feeding the
// results to a session, so a test can deliver them in any order.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}
