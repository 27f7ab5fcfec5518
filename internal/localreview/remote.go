// Package localreview implements review.Remote on local data: a git work
// tree, a pair of files, or a parsed patch. Comments are kept in memory.
package localreview

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/interpretive-systems/critique/internal/comments"
	"github.com/interpretive-systems/critique/internal/diffview"
	"github.com/interpretive-systems/critique/internal/highlight"
	"github.com/interpretive-systems/critique/internal/loader"
	"github.com/interpretive-systems/critique/internal/review"
)

// Faults injects latency and failures into every call except ListFiles.
type Faults struct {
	FailRate float64
	Latency  time.Duration
}

// Options configure a Remote.
type Options struct {
	LargeDiffLines int
	PageSize       int
	ContextLines   int
	Author         string
	Faults         Faults
}

// Remote serves diffs from a local source. It is safe for concurrent use;
// bubbletea runs commands on their own goroutines.
type Remote struct {
	src       source
	opts      Options
	tokenizer *highlight.Tokenizer

	mu       sync.Mutex
	diffs    map[string]diffview.FileContent
	comments []comments.Comment
	nextID   int
	nextDisc int
	rng      *rand.Rand
}

var _ review.Remote = (*Remote)(nil)

func newRemote(src source, opts Options) *Remote {
	if opts.PageSize <= 0 {
		opts.PageSize = 20
	}
	if opts.Author == "" {
		opts.Author = "you"
	}
	return &Remote{
		src:       src,
		opts:      opts,
		tokenizer: highlight.New(),
		diffs:     map[string]diffview.FileContent{},
		rng:       rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
}

// NewWorktree serves the changes of the git work tree at root. With staged
// set it serves the index instead.
func NewWorktree(root string, staged bool, opts Options) *Remote {
	return newRemote(worktree{root: root, staged: staged}, opts)
}

// NewCompare serves a single file: the diff from oldPath to newPath.
func NewCompare(oldPath, newPath string, opts Options) *Remote {
	ctx := opts.ContextLines
	if ctx <= 0 {
		ctx = diffview.DefaultContextLines
	}
	return newRemote(compare{oldPath: oldPath, newPath: newPath, context: ctx}, opts)
}

// NewPatch serves already parsed files.
func NewPatch(files []diffview.FileContent, opts Options) *Remote {
	return newRemote(newPatch(files), opts)
}

// SetFaults replaces the fault settings.
func (r *Remote) SetFaults(f Faults) {
	r.mu.Lock()
	r.opts.Faults = f
	r.mu.Unlock()
}

func (r *Remote) fault(ctx context.Context, op string) error {
	r.mu.Lock()
	f := r.opts.Faults
	fail := f.FailRate > 0 && r.rng.Float64() < f.FailRate
	r.mu.Unlock()

	if f.Latency > 0 {
		t := time.NewTimer(f.Latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w: %w", op, review.ErrNetwork, ctx.Err())
		case <-t.C:
		}
	}
	if fail {
		log.Debug().Str("op", op).Msg("injected failure")
		return fmt.Errorf("%s: %w", op, review.ErrNetwork)
	}
	return nil
}

// ListFiles lists the changed files.
func (r *Remote) ListFiles(ctx context.Context, mrID int) ([]review.FileSummary, error) {
	return r.src.files(ctx)
}

// FetchFileDiff returns the diff of one file. Large files come back as
// metadata with placeholder hunks to be fetched with FetchHunkPage.
func (r *Remote) FetchFileDiff(ctx context.Context, mrID int, path string) (diffview.FileContent, error) {
	if err := r.fault(ctx, "fetch diff"); err != nil {
		return diffview.FileContent{}, err
	}
	fc, err := r.load(ctx, path)
	if err != nil {
		return diffview.FileContent{}, err
	}
	if fc.IsLarge(r.opts.LargeDiffLines) {
		log.Debug().Str("path", path).Int("hunks", fc.Count()).Msg("serve large diff progressively")
		return diffview.FileContent{
			Path:          fc.Path,
			Hunks:         make([]*diffview.Hunk, fc.Count()),
			HunkCount:     fc.Count(),
			OldTotalLines: fc.OldTotalLines,
			NewTotalLines: fc.NewTotalLines,
			Large:         true,
			Binary:        fc.Binary,
		}, nil
	}
	return cloneFile(fc), nil
}

// FetchHunkPage returns one page of hunks of a file.
func (r *Remote) FetchHunkPage(ctx context.Context, mrID int, path string, page loader.PageKey) ([]diffview.Hunk, error) {
	if err := r.fault(ctx, "fetch hunks"); err != nil {
		return nil, err
	}
	fc, err := r.load(ctx, path)
	if err != nil {
		return nil, err
	}
	start, end := loader.PageRange(page, r.opts.PageSize, len(fc.Hunks))
	if start >= end {
		return nil, fmt.Errorf("page %d of %s: %w", page, path, review.ErrNotFound)
	}
	out := make([]diffview.Hunk, 0, end-start)
	for _, h := range fc.Hunks[start:end] {
		out = append(out, *h)
	}
	return out, nil
}

// load parses and tokenizes a file once and caches the result.
func (r *Remote) load(ctx context.Context, path string) (diffview.FileContent, error) {
	r.mu.Lock()
	fc, ok := r.diffs[path]
	r.mu.Unlock()
	if ok {
		return fc, nil
	}
	fc, err := r.src.diff(ctx, path)
	if err != nil {
		return diffview.FileContent{}, err
	}
	r.tokenizer.Apply(&fc)
	r.mu.Lock()
	r.diffs[path] = fc
	r.mu.Unlock()
	return fc, nil
}

// Invalidate drops cached diffs so the next fetch re-reads the source.
func (r *Remote) Invalidate() {
	r.mu.Lock()
	r.diffs = map[string]diffview.FileContent{}
	r.mu.Unlock()
}

// ListFileComments returns the comments of a file in creation order.
func (r *Remote) ListFileComments(ctx context.Context, mrID int, path string) ([]comments.Comment, error) {
	if err := r.fault(ctx, "list comments"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []comments.Comment
	for _, c := range r.comments {
		if c.MRID == mrID && c.FilePath == path {
			out = append(out, c)
		}
	}
	return out, nil
}

// CreateComment starts a new discussion on a line.
func (r *Remote) CreateComment(ctx context.Context, mrID int, path string, side diffview.Side, line int, body string) (comments.Comment, error) {
	if err := r.fault(ctx, "create comment"); err != nil {
		return comments.Comment{}, err
	}
	body = strings.TrimSpace(body)
	if body == "" || line <= 0 {
		return comments.Comment{}, fmt.Errorf("create comment: empty body or line %d", line)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.nextDisc++
	now := time.Now()
	c := comments.Comment{
		ID:             r.nextID,
		MRID:           mrID,
		DiscussionID:   fmt.Sprintf("d%d", r.nextDisc),
		AuthorUsername: r.opts.Author,
		Body:           body,
		FilePath:       path,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if side == diffview.SideNew {
		c.NewLine = line
	} else {
		c.OldLine = line
	}
	r.comments = append(r.comments, c)
	return c, nil
}

// Reply adds a comment to an existing discussion.
func (r *Remote) Reply(ctx context.Context, mrID int, discussionID, body string) (comments.Comment, error) {
	if err := r.fault(ctx, "reply"); err != nil {
		return comments.Comment{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, root := range r.comments {
		if root.MRID != mrID || root.DiscussionID != discussionID || root.ParentID != 0 {
			continue
		}
		r.nextID++
		now := time.Now()
		c := root
		c.ID = r.nextID
		c.ParentID = root.ID
		c.AuthorUsername = r.opts.Author
		c.Body = strings.TrimSpace(body)
		c.CreatedAt, c.UpdatedAt = now, now
		r.comments = append(r.comments, c)
		return c, nil
	}
	return comments.Comment{}, fmt.Errorf("discussion %s: %w", discussionID, review.ErrNotFound)
}

// DeleteComment removes a comment.
func (r *Remote) DeleteComment(ctx context.Context, mrID int, id int) error {
	if err := r.fault(ctx, "delete comment"); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.comments {
		if c.MRID == mrID && c.ID == id {
			r.comments = append(r.comments[:i], r.comments[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("comment %d: %w", id, review.ErrNotFound)
}

// SetDiscussionResolved sets the resolved flag of every comment in a
// discussion.
func (r *Remote) SetDiscussionResolved(ctx context.Context, mrID int, discussionID string, resolved bool) error {
	if err := r.fault(ctx, "resolve discussion"); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	found := false
	for i := range r.comments {
		if r.comments[i].MRID == mrID && r.comments[i].DiscussionID == discussionID {
			r.comments[i].Resolved = resolved
			r.comments[i].UpdatedAt = time.Now()
			found = true
		}
	}
	if !found {
		return fmt.Errorf("discussion %s: %w", discussionID, review.ErrNotFound)
	}
	return nil
}
