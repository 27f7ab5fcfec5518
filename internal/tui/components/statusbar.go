package components

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/interpretive-systems/critique/internal/review"
	"github.com/interpretive-systems/critique/internal/theme"
	"github.com/interpretive-systems/critique/internal/tui/ansi"
)

// StatusBar manages the bottom status bar.
type StatusBar struct {
	lastRefresh time.Time
	lastCommit  string
	keyBuffer   string
	position    string
	notice      review.NotifyMsg
	hasNotice   bool
}

// NewStatusBar creates a new status bar.
func NewStatusBar() *StatusBar {
	return &StatusBar{}
}

// SetLastRefresh updates the refresh timestamp.
func (s *StatusBar) SetLastRefresh(t time.Time) {
	s.lastRefresh = t
}

// SetLastCommit updates the last commit summary.
func (s *StatusBar) SetLastCommit(msg string) {
	s.lastCommit = msg
}

// SetKeyBuffer updates the pending count display.
func (s *StatusBar) SetKeyBuffer(buf string) {
	s.keyBuffer = buf
}

// SetPosition shows where the selection is, e.g. "L12 new".
func (s *StatusBar) SetPosition(p string) {
	s.position = p
}

// Notify shows a notification until ClearNotice.
func (s *StatusBar) Notify(n review.NotifyMsg) {
	s.notice = n
	s.hasNotice = true
}

// ClearNotice removes the notification.
func (s *StatusBar) ClearNotice() {
	s.notice = review.NotifyMsg{}
	s.hasNotice = false
}

// Notice returns the shown notification, if any.
func (s *StatusBar) Notice() (review.NotifyMsg, bool) {
	return s.notice, s.hasNotice
}

// Render renders the status bar.
func (s *StatusBar) Render(width int, t theme.Theme) string {
	faint := lipgloss.NewStyle().Faint(true)
	parts := []string{"h: help"}
	if s.keyBuffer != "" {
		parts[0] = s.keyBuffer
	}
	if s.position != "" {
		parts = append(parts, s.position)
	}
	if s.lastCommit != "" {
		parts = append(parts, "last: "+s.lastCommit)
	}
	left := faint.Render(strings.Join(parts, "  |  "))
	if s.hasNotice {
		text := s.notice.Text
		switch s.notice.Level {
		case review.LevelError:
			text = t.ErrorText(text)
		case review.LevelWarn:
			text = t.CommentText(text)
		}
		left = text
	}
	right := faint.Render("refreshed: " + s.lastRefresh.Format("15:04:05"))

	rightW := lipgloss.Width(right)
	if rightW >= width {
		return ansi.Ellipsize(right, width)
	}
	return ansi.Pad(left, width-rightW-1) + " " + right
}
