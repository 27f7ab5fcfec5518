// Package comments anchors review comments to diff lines and tracks the
// optimistic lifecycle of comment mutations.
package comments

import (
	"errors"
	"fmt"
	"time"

	"github.com/interpretive-systems/critique/internal/diffview"
)

// SyncStatus tracks whether a local record has been reconciled with the
// remote.
type SyncStatus int

const (
	SyncSynced SyncStatus = iota
	SyncPending
	SyncFailed
)

func (s SyncStatus) String() string {
	switch s {
	case SyncPending:
		return "pending"
	case SyncFailed:
		return "failed"
	default:
		return "synced"
	}
}

// Comment is one note in a discussion. A negative ID marks a record created
// locally that the remote has not confirmed yet. Zero line numbers mean
// "not set".
type Comment struct {
	ID             int
	MRID           int
	DiscussionID   string
	ParentID       int
	AuthorUsername string
	Body           string
	FilePath       string
	OldLine        int
	NewLine        int
	Resolved       bool
	System         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	IsLocal        bool
	SyncStatus     SyncStatus
}

// Validate enforces that a file-anchored comment points at a line.
func (c Comment) Validate() error {
	if c.FilePath != "" && c.OldLine <= 0 && c.NewLine <= 0 {
		return &ValidationError{Reason: fmt.Sprintf("comment %d on %s has no line", c.ID, c.FilePath)}
	}
	return nil
}

// Key addresses one line on one side of a file.
type Key struct {
	Side diffview.Side
	Line int
}

// AnchorKey returns the line the comment is attached to. The new side wins
// when both numbers are set.
func (c Comment) AnchorKey() Key {
	if c.NewLine > 0 {
		return Key{Side: diffview.SideNew, Line: c.NewLine}
	}
	return Key{Side: diffview.SideOld, Line: c.OldLine}
}

// Pending reports whether the comment is awaiting server confirmation.
func (c Comment) Pending() bool {
	return c.ID < 0 || c.SyncStatus == SyncPending
}

// ValidationError rejects a request before any network call is made.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid comment: " + e.Reason
}

var (
	// ErrMutationInFlight is returned when a comment already has an
	// unresolved optimistic mutation.
	ErrMutationInFlight = errors.New("comment has a mutation in flight")
	// ErrUnknownComment is returned for ids or discussions not in the store.
	ErrUnknownComment = errors.New("unknown comment")
)
