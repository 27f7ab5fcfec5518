package tui

import (
	"github.com/interpretive-systems/critique/internal/review"
)

// tickMsg triggers the periodic file list refresh.
type tickMsg struct{}

// filesMsg contains the loaded file list.
type filesMsg struct {
	files []review.FileSummary
	err   error
}

// lastCommitMsg contains the last commit summary.
type lastCommitMsg struct {
	summary string
	err     error
}

// currentBranchMsg contains the current branch name.
type currentBranchMsg struct {
	name string
	err  error
}

// prefsSavedMsg reports a preference write.
type prefsSavedMsg struct {
	key string
	err error
}

// clearNoticeMsg expires the notification with the same sequence number.
type clearNoticeMsg struct {
	seq int
}
