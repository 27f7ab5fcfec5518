package search

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/interpretive-systems/critique/internal/theme"
	"github.com/interpretive-systems/critique/internal/tui/ansi"
)

// RenderOverlay renders the search input with its status line.
func (e *Engine) RenderOverlay(width int, t theme.Theme) []string {
	if !e.active || width <= 0 {
		return nil
	}
	status := "Type to search (esc: close, enter: next)"
	if e.query != "" {
		if len(e.matches) == 0 {
			status = "No matches (esc: close)"
		} else {
			status = fmt.Sprintf("Match %d of %d  (enter/↓: next, ↑: prev, esc: close)",
				e.CurrentMatchIndex(), e.MatchCount())
		}
	}
	return []string{
		t.DividerText(strings.Repeat("─", width)),
		ansi.Pad(e.InputView(), width),
		ansi.Pad(lipgloss.NewStyle().Faint(true).Render(status), width),
	}
}
