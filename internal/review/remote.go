// Package review is the file-level controller of a review: it owns the hunk
// array and the comment list of the open file and is the only code that
// mutates them. Remote calls run as bubbletea commands and come back as
// messages to Session.Update.
package review

import (
	"context"
	"errors"

	"github.com/interpretive-systems/critique/internal/comments"
	"github.com/interpretive-systems/critique/internal/diffview"
	"github.com/interpretive-systems/critique/internal/loader"
)

var (
	// ErrNotFound means the file has no diff in the merge request.
	ErrNotFound = errors.New("not found")
	// ErrNetwork is the catch-all for transport failures.
	ErrNetwork = errors.New("network error")
)

// FileSummary is one entry of a merge request's file list.
type FileSummary struct {
	Path      string
	OldPath   string
	Status    string
	Additions int
	Deletions int
	Binary    bool
}

// Remote is the source of truth for diffs and comments.
type Remote interface {
	ListFiles(ctx context.Context, mrID int) ([]FileSummary, error)
	FetchFileDiff(ctx context.Context, mrID int, path string) (diffview.FileContent, error)
	FetchHunkPage(ctx context.Context, mrID int, path string, page loader.PageKey) ([]diffview.Hunk, error)
	ListFileComments(ctx context.Context, mrID int, path string) ([]comments.Comment, error)
	CreateComment(ctx context.Context, mrID int, path string, side diffview.Side, line int, body string) (comments.Comment, error)
	Reply(ctx context.Context, mrID int, discussionID, body string) (comments.Comment, error)
	DeleteComment(ctx context.Context, mrID int, id int) error
	SetDiscussionResolved(ctx context.Context, mrID int, discussionID string, resolved bool) error
}
