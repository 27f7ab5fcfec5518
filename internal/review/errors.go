package review

import (
	"fmt"
	"strconv"
)

// FetchError is a failed diff or hunk page load. Page is -1 for whole-file
// loads.
type FetchError struct {
	Op   string
	Path string
	Page int
	Err  error
}

func (e *FetchError) Error() string {
	where := e.Path
	if e.Page >= 0 {
		where += " page " + strconv.Itoa(e.Page)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, where, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MutationError is a failed comment create, delete or resolve. The
// optimistic change has been rolled back by the time it is reported.
type MutationError struct {
	Op           string
	CommentID    int
	DiscussionID string
	Err          error
}

func (e *MutationError) Error() string {
	switch {
	case e.DiscussionID != "":
		return fmt.Sprintf("%s discussion %s: %v", e.Op, e.DiscussionID, e.Err)
	case e.CommentID != 0:
		return fmt.Sprintf("%s comment %d: %v", e.Op, e.CommentID, e.Err)
	}
	return fmt.Sprintf("%s comment: %v", e.Op, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }
