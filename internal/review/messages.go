package review

import (
	"github.com/interpretive-systems/critique/internal/comments"
	"github.com/interpretive-systems/critique/internal/diffview"
	"github.com/interpretive-systems/critique/internal/keynav"
	"github.com/interpretive-systems/critique/internal/loader"
)

// Level grades a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

// NotifyMsg is a transient, non-blocking notification for the status bar.
type NotifyMsg struct {
	Level Level
	Text  string
	Err   error
}

// CommentCountMsg reports the comment count of a file for list badges.
type CommentCountMsg struct {
	MRID  int
	Path  string
	Count int
}

// LineSelectedMsg is emitted when a diff line becomes selected.
type LineSelectedMsg struct {
	LineNumber int
	Side       diffview.Side
	LineType   diffview.LineType
	FilePath   string
	HunkIndex  int
	LineIndex  int
}

// RangeSelectedMsg is emitted when a split-mode range selection changes.
type RangeSelectedMsg struct {
	FilePath string
	Range    keynav.Range
}

// fileKey identifies the file a response belongs to. A response whose key
// does not match the session's current one is stale.
type fileKey struct {
	mrID int
	path string
	gen  int
}

type diffLoadedMsg struct {
	key         fileKey
	listSeq     uint64
	file        diffview.FileContent
	err         error
	comments    []comments.Comment
	commentsErr error
}

type hunkPageMsg struct {
	key   fileKey
	page  loader.PageKey
	hunks []diffview.Hunk
	err   error
}

type commentsLoadedMsg struct {
	key      fileKey
	seq      uint64
	comments []comments.Comment
	err      error
}

type commentCreatedMsg struct {
	key     fileKey
	tempID  int
	comment comments.Comment
	err     error
}

type commentDeletedMsg struct {
	key     fileKey
	comment comments.Comment
	index   int
	err     error
}

type discussionResolvedMsg struct {
	key          fileKey
	discussionID string
	prior        map[int]bool
	resolved     bool
	err          error
}
