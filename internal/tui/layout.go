package tui

import (
	"strings"

	"github.com/interpretive-systems/critique/internal/theme"
	"github.com/interpretive-systems/critique/internal/tui/ansi"
)

const minPaneWidth = 20

// Layout manages screen layout calculations.
type Layout struct {
	width     int
	height    int
	leftWidth int
}

// NewLayout creates a new layout manager.
func NewLayout(leftWidth int) *Layout {
	return &Layout{leftWidth: leftWidth}
}

// SetSize updates the layout dimensions.
func (l *Layout) SetSize(width, height int) {
	l.width = width
	l.height = height
}

// Width returns the total width.
func (l *Layout) Width() int {
	return l.width
}

// LeftWidth returns the file list width.
func (l *Layout) LeftWidth() int {
	return max(l.leftWidth, minPaneWidth)
}

// RightWidth returns the diff pane width.
func (l *Layout) RightWidth() int {
	return max(l.width-l.LeftWidth()-1, 1)
}

// ContentHeight returns the rows left for the panes: top bar, top rule,
// bottom rule and bottom bar take one each.
func (l *Layout) ContentHeight(overlayHeight int) int {
	return max(l.height-4-overlayHeight, 1)
}

// AdjustLeftWidth changes the file list width by delta, keeping both panes
// at least minPaneWidth wide.
func (l *Layout) AdjustLeftWidth(delta int) {
	maxLeft := max(l.width-minPaneWidth, minPaneWidth)
	l.leftWidth = min(max(l.leftWidth+delta, minPaneWidth), maxLeft)
}

// Frame is one screen's worth of content.
type Frame struct {
	TopLeft  string
	TopRight string
	Left     []string
	Right    []string
	Overlay  []string
	Bottom   string
}

// Render lays out the frame: top bar, rule, two columns, overlay, rule and
// bottom bar.
func (l *Layout) Render(f Frame, t theme.Theme) string {
	var b strings.Builder
	b.WriteString(l.renderTopBar(f.TopLeft, f.TopRight))
	b.WriteByte('\n')
	b.WriteString(t.DividerText(strings.Repeat("─", l.width)))
	b.WriteByte('\n')

	leftW, rightW := l.LeftWidth(), l.RightWidth()
	sep := t.DividerText("│")
	rows := l.ContentHeight(len(f.Overlay))
	for i := 0; i < rows; i++ {
		var left, right string
		if i < len(f.Left) {
			left = f.Left[i]
		}
		if i < len(f.Right) {
			right = f.Right[i]
		}
		b.WriteString(ansi.Pad(left, leftW))
		b.WriteString(sep)
		b.WriteString(ansi.Pad(right, rightW))
		if i < rows-1 {
			b.WriteByte('\n')
		}
	}
	for _, line := range f.Overlay {
		b.WriteByte('\n')
		b.WriteString(ansi.Pad(line, l.width))
	}
	b.WriteByte('\n')
	b.WriteString(t.DividerText(strings.Repeat("─", l.width)))
	b.WriteByte('\n')
	b.WriteString(f.Bottom)
	return b.String()
}

func (l *Layout) renderTopBar(left, right string) string {
	rightW := ansi.Width(right)
	if rightW >= l.width {
		return ansi.Ellipsize(right, l.width)
	}
	return ansi.Pad(left, l.width-rightW-1) + " " + right
}
