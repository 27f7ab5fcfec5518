package localreview

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/interpretive-systems/critique/internal/diffview"
	"github.com/interpretive-systems/critique/internal/gitx"
	"github.com/interpretive-systems/critique/internal/review"
)

// source produces the files and diffs a Remote serves.
type source interface {
	files(ctx context.Context) ([]review.FileSummary, error)
	diff(ctx context.Context, path string) (diffview.FileContent, error)
}

// worktree diffs a git work tree against HEAD, or the index against HEAD
// when staged is set.
type worktree struct {
	root   string
	staged bool
}

func (w worktree) files(ctx context.Context) ([]review.FileSummary, error) {
	changes, err := gitx.ChangedFiles(ctx, w.root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", review.ErrNetwork, err)
	}
	var out []review.FileSummary
	for _, c := range changes {
		if w.staged && !c.Staged {
			continue
		}
		if !w.staged && !c.Unstaged && !c.Untracked {
			continue
		}
		out = append(out, review.FileSummary{
			Path:      c.Path,
			Status:    c.Status(),
			Additions: c.Additions,
			Deletions: c.Deletions,
			Binary:    c.Binary,
		})
	}
	return out, nil
}

func (w worktree) diff(ctx context.Context, path string) (diffview.FileContent, error) {
	var text string
	var err error
	if w.staged {
		text, err = gitx.DiffStaged(ctx, w.root, path)
	} else {
		text, err = gitx.DiffHEAD(ctx, w.root, path)
	}
	if err != nil {
		return diffview.FileContent{}, fmt.Errorf("%w: %v", review.ErrNetwork, err)
	}
	fc, err := firstFile(path, text)
	if err != nil {
		return fc, err
	}
	oldText, newText := w.contents(ctx, path)
	fc.SetTotals(oldText, newText)
	return fc, nil
}

// contents reads both sides of path so the view can collapse the unchanged
// tail of the file. A side that does not exist reads as empty.
func (w worktree) contents(ctx context.Context, path string) (oldText, newText string) {
	oldText, _ = gitx.FileAt(ctx, w.root, "HEAD", path)
	if w.staged {
		newText, _ = gitx.FileAt(ctx, w.root, "", path)
		return oldText, newText
	}
	b, err := os.ReadFile(filepath.Join(w.root, path))
	if err != nil {
		return oldText, ""
	}
	return oldText, string(b)
}

func firstFile(path, text string) (diffview.FileContent, error) {
	if strings.TrimSpace(text) == "" {
		return diffview.FileContent{}, fmt.Errorf("%s: %w", path, review.ErrNotFound)
	}
	files, err := diffview.ParseUnified(strings.NewReader(text))
	if err != nil {
		return diffview.FileContent{}, err
	}
	if len(files) == 0 {
		return diffview.FileContent{}, fmt.Errorf("%s: %w", path, review.ErrNotFound)
	}
	fc := files[0]
	fc.Path = path
	return fc, nil
}

// compare diffs two files on disk.
type compare struct {
	oldPath string
	newPath string
	context int
}

func (c compare) name() string {
	return filepath.Base(c.newPath)
}

func (c compare) files(ctx context.Context) ([]review.FileSummary, error) {
	fc, err := c.diff(ctx, c.name())
	if err != nil {
		return nil, err
	}
	s := review.FileSummary{Path: fc.Path, OldPath: c.oldPath, Status: "M"}
	s.Additions, s.Deletions = countChanges(fc)
	return []review.FileSummary{s}, nil
}

func (c compare) diff(ctx context.Context, path string) (diffview.FileContent, error) {
	if path != c.name() {
		return diffview.FileContent{}, fmt.Errorf("%s: %w", path, review.ErrNotFound)
	}
	oldText, err := os.ReadFile(c.oldPath)
	if err != nil {
		return diffview.FileContent{}, fmt.Errorf("read %s: %w", c.oldPath, err)
	}
	newText, err := os.ReadFile(c.newPath)
	if err != nil {
		return diffview.FileContent{}, fmt.Errorf("read %s: %w", c.newPath, err)
	}
	fc := diffview.DiffTexts(path, string(oldText), string(newText), c.context)
	if fc.HunkCount == 0 {
		return fc, fmt.Errorf("%s: %w", path, review.ErrNotFound)
	}
	return fc, nil
}

// patch serves files parsed from a unified diff.
type patch struct {
	byPath map[string]diffview.FileContent
	order  []string
}

func newPatch(files []diffview.FileContent) patch {
	p := patch{byPath: map[string]diffview.FileContent{}}
	for _, fc := range files {
		if _, dup := p.byPath[fc.Path]; !dup {
			p.order = append(p.order, fc.Path)
		}
		p.byPath[fc.Path] = fc
	}
	return p
}

func (p patch) files(ctx context.Context) ([]review.FileSummary, error) {
	out := make([]review.FileSummary, 0, len(p.order))
	for _, path := range p.order {
		fc := p.byPath[path]
		s := review.FileSummary{Path: path, Status: "M", Binary: fc.Binary}
		s.Additions, s.Deletions = countChanges(fc)
		out = append(out, s)
	}
	return out, nil
}

func (p patch) diff(ctx context.Context, path string) (diffview.FileContent, error) {
	fc, ok := p.byPath[path]
	if !ok || len(fc.Hunks) == 0 {
		return diffview.FileContent{}, fmt.Errorf("%s: %w", path, review.ErrNotFound)
	}
	return cloneFile(fc), nil
}

func cloneFile(fc diffview.FileContent) diffview.FileContent {
	hunks := make([]*diffview.Hunk, len(fc.Hunks))
	for i, h := range fc.Hunks {
		if h == nil {
			continue
		}
		c := *h
		c.Lines = append([]diffview.Line(nil), h.Lines...)
		hunks[i] = &c
	}
	fc.Hunks = hunks
	return fc
}

func countChanges(fc diffview.FileContent) (additions, deletions int) {
	for _, h := range fc.Hunks {
		if h == nil {
			continue
		}
		for _, l := range h.Lines {
			switch l.Type {
			case diffview.LineAdd:
				additions++
			case diffview.LineRemove:
				deletions++
			}
		}
	}
	return additions, deletions
}
