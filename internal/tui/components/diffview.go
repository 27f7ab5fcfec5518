package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/interpretive-systems/critique/internal/comments"
	"github.com/interpretive-systems/critique/internal/diffview"
	"github.com/interpretive-systems/critique/internal/keynav"
	"github.com/interpretive-systems/critique/internal/theme"
	"github.com/interpretive-systems/critique/internal/tui/ansi"
	"github.com/interpretive-systems/critique/internal/tui/search"
	"github.com/interpretive-systems/critique/internal/virtualize"
)

const gutterWidth = 4

// Doc is what the diff pane shows for one frame.
type Doc struct {
	Path      string
	Hunks     []*diffview.Hunk
	Large     bool
	Loading   bool
	Binary    bool
	Err       error
	Regions   diffview.Regions
	Comments  *comments.Store
	Selection keynav.Selection
	Range     keynav.Range
	Ranging   bool
	Split     bool
	// Composer holds the rendered composer, shown under its anchor line.
	Composer []string
	Query    string
	Match    keynav.Selection
}

// DiffView manages the right pane. Only the hunk groups picked by the
// virtualizer are rendered.
type DiffView struct {
	theme     theme.Theme
	metrics   virtualize.Metrics
	width     int
	height    int
	scrollTop int
	xOffset   int
	window    virtualize.Window
}

// NewDiffView creates a new diff viewer.
func NewDiffView(t theme.Theme, m virtualize.Metrics) *DiffView {
	if m.LineHeight < 1 {
		m.LineHeight = 1
	}
	return &DiffView{theme: t, metrics: m}
}

// SetSize updates the pane dimensions.
func (d *DiffView) SetSize(width, height int) {
	d.width = max(width, 1)
	d.height = max(height, 1)
}

// Height returns the pane height.
func (d *DiffView) Height() int {
	return d.height
}

// ScrollTop returns the first visible row.
func (d *DiffView) ScrollTop() int {
	return d.scrollTop
}

// ScrollBy scrolls vertically by delta rows.
func (d *DiffView) ScrollBy(doc Doc, delta int) {
	d.ScrollTo(doc, d.scrollTop+delta)
}

// ScrollTo scrolls so that row y is at the top, clamped to the content.
func (d *DiffView) ScrollTo(doc Doc, y int) {
	d.scrollTop = y
	d.Layout(doc)
}

// ResetScroll returns to the top-left corner.
func (d *DiffView) ResetScroll() {
	d.scrollTop = 0
	d.xOffset = 0
}

// ScrollLeft scrolls left by delta columns.
func (d *DiffView) ScrollLeft(delta int) {
	d.xOffset = max(d.xOffset-delta, 0)
}

// ScrollRight scrolls right by delta columns.
func (d *DiffView) ScrollRight(delta int) {
	d.xOffset += delta
}

// ScrollHome resets horizontal scroll.
func (d *DiffView) ScrollHome() {
	d.xOffset = 0
}

// XOffset returns the horizontal scroll offset.
func (d *DiffView) XOffset() int {
	return d.xOffset
}

// Layout runs the virtualizer for the current scroll position and keeps the
// result for VisibleHunks.
func (d *DiffView) Layout(doc Doc) virtualize.Window {
	height := func(i int) int { return d.groupHeight(doc, i) }
	w := virtualize.Layout(len(doc.Hunks), height, d.scrollTop, d.height, d.metrics, doc.Large)
	if top := virtualize.ClampScroll(d.scrollTop, d.height, w.Total); top != d.scrollTop {
		d.scrollTop = top
		w = virtualize.Layout(len(doc.Hunks), height, d.scrollTop, d.height, d.metrics, doc.Large)
	}
	d.window = w
	return w
}

// VisibleHunks returns the hunk range of the last layout pass, overscan
// included.
func (d *DiffView) VisibleHunks() (first, last int, ok bool) {
	if d.window.End <= d.window.Start {
		return 0, 0, false
	}
	return d.window.Start, d.window.End - 1, true
}

// Reveal scrolls the minimum needed to bring a line into view.
func (d *DiffView) Reveal(doc Doc, hunk, line int) {
	w := d.Layout(doc)
	if hunk < 0 || hunk >= len(doc.Hunks) {
		return
	}
	y := w.Top(hunk) + d.lineOffset(doc, hunk, line)
	switch {
	case y < d.scrollTop:
		d.scrollTop = y
	case y >= d.scrollTop+d.height:
		d.scrollTop = y - d.height + d.metrics.LineHeight
	default:
		return
	}
	d.Layout(doc)
}

// lineOffset returns the row of a line relative to the top of its group.
func (d *DiffView) lineOffset(doc Doc, hunk, line int) int {
	h := doc.Hunks[hunk]
	if h == nil {
		return 0
	}
	y := d.metrics.HeaderHeight
	if doc.Split {
		rows := diffview.SplitRows(h)
		end := diffview.SplitRowIndex(rows, line)
		if end < 0 {
			end = len(rows)
		}
		for _, r := range rows[:end] {
			y += d.metrics.LineHeight + d.annotationCount(doc, hunk, r.LeftLineIndex, r.RightLineIndex)
		}
		return y
	}
	for li := 0; li < line && li < len(h.Lines); li++ {
		y += d.metrics.LineHeight + d.annotationCount(doc, hunk, li, -1)
	}
	return y
}

func (d *DiffView) groupHeight(doc Doc, i int) int {
	h := doc.Hunks[i]
	if h == nil {
		return virtualize.GroupHeight(d.metrics, nil, 0)
	}
	rows := len(h.Lines)
	if doc.Split {
		rows = diffview.SplitRowCount(h)
	}
	extra := (rows - len(h.Lines)) * d.metrics.LineHeight
	for li := range h.Lines {
		extra += d.annotationCount(doc, i, li, -1)
	}
	return virtualize.GroupHeight(d.metrics, h, extra)
}

// annotationCount counts the comment and composer rows shown under the given
// lines of a hunk. A negative index is ignored.
func (d *DiffView) annotationCount(doc Doc, hunk int, lines ...int) int {
	if doc.Comments == nil {
		return 0
	}
	h := doc.Hunks[hunk]
	n := 0
	seen := -1
	for _, li := range lines {
		if li < 0 || li == seen || li >= len(h.Lines) {
			continue
		}
		seen = li
		n += len(doc.Comments.ForLine(h.Lines[li]))
		if c, ok := doc.Comments.Composer(); ok && c.Anchor.HunkIndex == hunk && c.Anchor.LineIndex == li {
			n += len(doc.Composer)
		}
	}
	return n
}

// Render renders exactly the visible rows of the pane.
func (d *DiffView) Render(doc Doc) []string {
	faint := lipgloss.NewStyle().Faint(true)
	switch {
	case doc.Path == "":
		return []string{faint.Render("No file selected")}
	case doc.Loading:
		return []string{"Loading diff…"}
	case doc.Binary:
		return []string{faint.Render("(Binary file; no text diff)")}
	case doc.Err != nil && len(doc.Hunks) == 0:
		return []string{d.theme.ErrorText(doc.Err.Error()), faint.Render("r: retry")}
	case len(doc.Hunks) == 0:
		return []string{faint.Render("No changes")}
	}

	w := d.Layout(doc)
	out := make([]string, d.height)
	bottom := d.scrollTop + d.height
	for i := w.Start; i < w.End; i++ {
		top, end := w.Offsets[i], w.Offsets[i+1]
		if end <= d.scrollTop || top >= bottom {
			continue
		}
		lines := d.renderGroup(doc, i)
		for k := 0; k < end-top; k++ {
			y := top + k - d.scrollTop
			if y < 0 || y >= d.height || k >= len(lines) {
				continue
			}
			out[y] = lines[k]
		}
	}
	return out
}

func (d *DiffView) renderGroup(doc Doc, i int) []string {
	h := doc.Hunks[i]
	if h == nil {
		text := "⋯ loading hunks…"
		if doc.Err != nil {
			text = "⋯ hunks failed to load (r: retry)"
		}
		lines := make([]string, d.metrics.PlaceholderHeight)
		if len(lines) > 0 {
			lines[0] = d.theme.DividerText(text)
		}
		return lines
	}

	lines := make([]string, 0, d.groupHeight(doc, i))
	header := d.theme.MetaText(h.Header())
	if n := hiddenBefore(doc, i); n > 0 {
		header += d.theme.DividerText(fmt.Sprintf("  ⋯ %d unchanged lines", n))
	}
	lines = append(lines, header)
	for k := 1; k < d.metrics.HeaderHeight; k++ {
		lines = append(lines, "")
	}
	emit := func(row string) {
		lines = append(lines, row)
		for k := 1; k < d.metrics.LineHeight; k++ {
			lines = append(lines, "")
		}
	}

	if doc.Split {
		for _, r := range diffview.SplitRows(h) {
			emit(d.splitRow(doc, i, r))
			lines = append(lines, d.annotations(doc, i, r.LeftLineIndex, r.RightLineIndex)...)
		}
		return lines
	}
	for li := range h.Lines {
		emit(d.unifiedRow(doc, i, li))
		lines = append(lines, d.annotations(doc, i, li, -1)...)
	}
	return lines
}

// hiddenBefore returns the unchanged lines skipped before hunk i: the
// collapse region that ends right before it, else the gap to the previous
// loaded hunk.
func hiddenBefore(doc Doc, i int) int {
	h := doc.Hunks[i]
	if n := diffview.HiddenBefore(doc.Regions.New, h.NewStart); n > 0 {
		return n
	}
	prevEnd := 0
	if i > 0 {
		p := doc.Hunks[i-1]
		if p == nil {
			return 0
		}
		prevEnd = p.NewStart + p.NewCount - 1
	}
	return max(h.NewStart-prevEnd-1, 0)
}

func (d *DiffView) unifiedRow(doc Doc, hunk, li int) string {
	l := &doc.Hunks[hunk].Lines[li]
	gutter := d.theme.DividerText(number(l.OldNumber) + " " + number(l.NewNumber) + " ")
	bodyW := d.width - 2*gutterWidth - 2 - 2
	row := gutter + d.cell(doc, hunk, li, l, bodyW)
	if sel := doc.Selection; sel.Valid && sel.HunkIndex == hunk && sel.LineIndex == li {
		return d.theme.SelectBg().Render(ansi.Fit(ansi.Strip(row), d.width))
	}
	return ansi.Fit(row, d.width)
}

func (d *DiffView) splitRow(doc Doc, hunk int, r diffview.SplitRow) string {
	colW := max((d.width-1)/2, 10)
	left := d.splitCell(doc, hunk, r.Left, r.LeftLineIndex, diffview.SideOld, colW)
	right := d.splitCell(doc, hunk, r.Right, r.RightLineIndex, diffview.SideNew, colW)
	return left + d.theme.DividerText("│") + right
}

func (d *DiffView) splitCell(doc Doc, hunk int, l *diffview.Line, li int, side diffview.Side, width int) string {
	if l == nil {
		return strings.Repeat(" ", width)
	}
	gutter := d.theme.DividerText(number(l.Number(side)) + " ")
	cell := gutter + d.cell(doc, hunk, li, l, width-gutterWidth-1-2)
	sel := doc.Selection
	selected := sel.Valid && sel.HunkIndex == hunk && sel.LineIndex == li && sel.Side == side
	if selected || inRange(doc, l, side) {
		return d.theme.SelectBg().Render(ansi.Fit(ansi.Strip(cell), width))
	}
	return ansi.Fit(cell, width)
}

func inRange(doc Doc, l *diffview.Line, side diffview.Side) bool {
	if !doc.Ranging || doc.Range.Side != side {
		return false
	}
	n := l.Number(side)
	return n > 0 && n >= doc.Range.Start && n <= doc.Range.End
}

// cell renders the change marker and the line's content, clipped to bodyW
// columns after the horizontal offset.
func (d *DiffView) cell(doc Doc, hunk, li int, l *diffview.Line, bodyW int) string {
	marker := " "
	switch l.Type {
	case diffview.LineAdd:
		marker = d.theme.AddText("+")
	case diffview.LineRemove:
		marker = d.theme.DelText("-")
	}
	body := d.styledContent(l)
	if doc.Query != "" {
		current := doc.Match.Valid && doc.Match.HunkIndex == hunk && doc.Match.LineIndex == li
		body = search.Highlight(body, doc.Query, current)
	}
	return marker + " " + ansi.Slice(body, d.xOffset, max(bodyW, 0))
}

// styledContent applies the syntax style of every token to the content.
func (d *DiffView) styledContent(l *diffview.Line) string {
	if len(l.Tokens) == 0 {
		return expandTabs(l.Content)
	}
	var b strings.Builder
	pos := 0
	for _, tok := range l.Tokens {
		if tok.Start < pos || tok.End > len(l.Content) || tok.End < tok.Start {
			continue
		}
		b.WriteString(expandTabs(l.Content[pos:tok.Start]))
		text := expandTabs(l.Content[tok.Start:tok.End])
		if st, ok := d.theme.Syntax(tok.Class); ok {
			text = st.Render(text)
		}
		b.WriteString(text)
		pos = tok.End
	}
	b.WriteString(expandTabs(l.Content[pos:]))
	return b.String()
}

// annotations renders the comments anchored to the given lines, then the
// composer when it is anchored to one of them.
func (d *DiffView) annotations(doc Doc, hunk int, lines ...int) []string {
	if doc.Comments == nil {
		return nil
	}
	h := doc.Hunks[hunk]
	var out []string
	seen := -1
	for _, li := range lines {
		if li < 0 || li == seen || li >= len(h.Lines) {
			continue
		}
		seen = li
		for _, c := range doc.Comments.ForLine(h.Lines[li]) {
			out = append(out, d.commentLine(c))
		}
		if c, ok := doc.Comments.Composer(); ok && c.Anchor.HunkIndex == hunk && c.Anchor.LineIndex == li {
			indent := strings.Repeat(" ", 2*gutterWidth+2)
			for _, s := range doc.Composer {
				out = append(out, ansi.Fit(indent+s, d.width))
			}
		}
	}
	return out
}

func (d *DiffView) commentLine(c comments.Comment) string {
	indent := strings.Repeat(" ", 2*gutterWidth+2)
	if c.ParentID != 0 {
		indent += "  "
	}
	body, _, _ := strings.Cut(c.Body, "\n")
	text := fmt.Sprintf("│ %s: %s", c.AuthorUsername, body)
	switch {
	case c.SyncStatus == comments.SyncFailed:
		text = d.theme.ErrorText(text + "  (failed)")
	case c.Pending():
		text = d.theme.PendingText(text + "  (saving…)")
	case c.Resolved:
		text = d.theme.DividerText(text + "  ✓ resolved")
	default:
		text = d.theme.CommentText(text)
	}
	return ansi.Fit(indent+text, d.width)
}

func number(n int) string {
	if n <= 0 {
		return strings.Repeat(" ", gutterWidth)
	}
	return fmt.Sprintf("%*d", gutterWidth, n)
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", "    ")
}
