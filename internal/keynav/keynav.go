// Package keynav turns key presses on the diff pane into selection changes
// and intents for the review session. It holds no references to the view and
// performs no I/O; callers pass the current document rows on every dispatch.
package keynav

import "github.com/interpretive-systems/critique/internal/diffview"

// State is the navigation mode.
type State int

const (
	Idle State = iota
	LineSelected
	Composing
)

func (s State) String() string {
	switch s {
	case LineSelected:
		return "line-selected"
	case Composing:
		return "composing"
	default:
		return "idle"
	}
}

// Intent tells the caller what a dispatched key asked for.
type Intent int

const (
	IntentNone Intent = iota
	IntentSelect
	IntentOpenComposer
	IntentCloseComposer
	IntentBack
	IntentToggleView
	IntentRangeSelect
	IntentSubmit
	IntentOpenReply
)

func (i Intent) String() string {
	switch i {
	case IntentSelect:
		return "select"
	case IntentOpenComposer:
		return "open-composer"
	case IntentCloseComposer:
		return "close-composer"
	case IntentBack:
		return "back"
	case IntentToggleView:
		return "toggle-view"
	case IntentRangeSelect:
		return "range-select"
	case IntentSubmit:
		return "submit"
	case IntentOpenReply:
		return "open-reply"
	default:
		return "none"
	}
}

// RowRef is one logical diff row in document order.
type RowRef struct {
	HunkIndex int
	LineIndex int
	Type      diffview.LineType
	OldNumber int
	NewNumber int
}

// Number returns the row's line number on side, or 0.
func (r RowRef) Number(side diffview.Side) int {
	if side == diffview.SideNew {
		return r.NewNumber
	}
	return r.OldNumber
}

// IsChange reports whether the row is an addition or removal.
func (r RowRef) IsChange() bool {
	return r.Type == diffview.LineAdd || r.Type == diffview.LineRemove
}

// DefaultSide is the side a row is selected on when none is given.
func (r RowRef) DefaultSide() diffview.Side {
	if r.Type == diffview.LineRemove {
		return diffview.SideOld
	}
	return diffview.SideNew
}

// Selection is the selected row. Indices are logical and survive view
// toggles; Side only matters in split mode.
type Selection struct {
	HunkIndex int
	LineIndex int
	Side      diffview.Side
	Valid     bool
}

// Range is a line-number span on one side, inclusive.
type Range struct {
	Side  diffview.Side
	Start int
	End   int
}

// Event is a key press. InputFocused is set while a text input owns the
// keyboard.
type Event struct {
	Key          string
	InputFocused bool
}

// rowKey names a row by its place in the hunk array, which stays put when
// rows load around it.
type rowKey struct {
	hunk int
	line int
}

// Machine is the navigation state machine of one file view.
type Machine struct {
	state     State
	sel       Selection
	split     bool
	ranging   bool
	rangeFrom rowKey
	rng       Range
}

// New returns an idle machine in unified or split mode.
func New(split bool) *Machine {
	return &Machine{split: split}
}

// State returns the current mode.
func (m *Machine) State() State { return m.state }

// Selection returns the current selection.
func (m *Machine) Selection() Selection { return m.sel }

// Split reports whether the view is side by side.
func (m *Machine) Split() bool { return m.split }

// Range returns the active range selection.
func (m *Machine) Range() (Range, bool) { return m.rng, m.ranging }

// Reset returns to idle with no selection, keeping the view mode.
func (m *Machine) Reset() {
	m.state = Idle
	m.sel = Selection{}
	m.ranging = false
	m.rng = Range{}
}

// Select selects a row directly, as a mouse click would. It is ignored while
// composing.
func (m *Machine) Select(ref RowRef, side diffview.Side) bool {
	if m.state == Composing {
		return false
	}
	if ref.Number(side) == 0 {
		side = ref.DefaultSide()
	}
	m.sel = Selection{HunkIndex: ref.HunkIndex, LineIndex: ref.LineIndex, Side: side, Valid: true}
	m.state = LineSelected
	m.ranging = false
	return true
}

// ComposerClosed leaves composing after the composer was closed elsewhere,
// for example when a submitted comment was confirmed.
func (m *Machine) ComposerClosed() {
	if m.state == Composing {
		m.state = LineSelected
	}
}

// Current returns the selected row and its index in rows.
func (m *Machine) Current(rows []RowRef) (RowRef, int, bool) {
	i := m.index(rows)
	if i < 0 {
		return RowRef{}, -1, false
	}
	return rows[i], i, true
}

// Dispatch applies one key press. While a text input has focus or the
// composer is open only esc is live, plus ctrl+s to submit a comment.
func (m *Machine) Dispatch(ev Event, rows []RowRef) Intent {
	if ev.Key == "esc" {
		if m.state == Composing {
			m.state = LineSelected
			return IntentCloseComposer
		}
		m.ranging = false
		return IntentBack
	}
	if m.state == Composing {
		if ev.Key == "ctrl+s" {
			return IntentSubmit
		}
		return IntentNone
	}
	if ev.InputFocused {
		return IntentNone
	}

	switch ev.Key {
	case "]":
		return m.jump(rows, 1)
	case "[":
		return m.jump(rows, -1)
	case "j", "down":
		return m.move(rows, 1)
	case "k", "up":
		return m.move(rows, -1)
	case "c", "R":
		if m.state != LineSelected || m.index(rows) < 0 {
			return IntentNone
		}
		m.state = Composing
		m.ranging = false
		if ev.Key == "R" {
			return IntentOpenReply
		}
		return IntentOpenComposer
	case "s":
		m.split = !m.split
		if !m.split {
			m.ranging = false
		}
		return IntentToggleView
	case "tab":
		return m.switchSide(rows)
	case "shift+down":
		return m.extend(rows, 1)
	case "shift+up":
		return m.extend(rows, -1)
	}
	return IntentNone
}

func (m *Machine) index(rows []RowRef) int {
	if !m.sel.Valid {
		return -1
	}
	return rowIndex(rows, rowKey{hunk: m.sel.HunkIndex, line: m.sel.LineIndex})
}

func rowIndex(rows []RowRef, k rowKey) int {
	for i, r := range rows {
		if r.HunkIndex == k.hunk && r.LineIndex == k.line {
			return i
		}
	}
	return -1
}

func (m *Machine) selectIndex(rows []RowRef, i int, side diffview.Side) {
	r := rows[i]
	if r.Number(side) == 0 {
		side = r.DefaultSide()
	}
	m.sel = Selection{HunkIndex: r.HunkIndex, LineIndex: r.LineIndex, Side: side, Valid: true}
	m.state = LineSelected
}

// jump moves to the next (dir > 0) or previous change row, wrapping around.
func (m *Machine) jump(rows []RowRef, dir int) Intent {
	n := len(rows)
	cur := m.index(rows)
	if cur < 0 {
		if dir > 0 {
			cur = -1
		} else {
			cur = n
		}
	}
	for step := 1; step <= n; step++ {
		i := ((cur+dir*step)%n + n) % n
		if rows[i].IsChange() {
			m.ranging = false
			m.selectIndex(rows, i, rows[i].DefaultSide())
			return IntentSelect
		}
	}
	return IntentNone
}

func (m *Machine) move(rows []RowRef, dir int) Intent {
	if len(rows) == 0 {
		return IntentNone
	}
	m.ranging = false
	cur := m.index(rows)
	if cur < 0 {
		m.selectIndex(rows, 0, rows[0].DefaultSide())
		return IntentSelect
	}
	next := min(max(cur+dir, 0), len(rows)-1)
	side := m.sel.Side
	if !m.split {
		side = rows[next].DefaultSide()
	}
	m.selectIndex(rows, next, side)
	return IntentSelect
}

func (m *Machine) switchSide(rows []RowRef) Intent {
	if !m.split {
		return IntentNone
	}
	r, _, ok := m.Current(rows)
	if !ok {
		return IntentNone
	}
	other := diffview.SideNew
	if m.sel.Side == diffview.SideNew {
		other = diffview.SideOld
	}
	if r.Number(other) == 0 {
		return IntentNone
	}
	m.sel.Side = other
	m.ranging = false
	return IntentSelect
}

// extend grows the range selection on the selected side, skipping rows that
// have no line there.
func (m *Machine) extend(rows []RowRef, dir int) Intent {
	if !m.split || m.state != LineSelected {
		return IntentNone
	}
	cur := m.index(rows)
	if cur < 0 {
		return IntentNone
	}
	side := m.sel.Side
	from := -1
	if m.ranging {
		from = rowIndex(rows, m.rangeFrom)
	}
	if from < 0 {
		m.ranging = true
		m.rangeFrom = rowKey{hunk: rows[cur].HunkIndex, line: rows[cur].LineIndex}
		from = cur
	}
	next := cur
	for i := cur + dir; i >= 0 && i < len(rows); i += dir {
		if rows[i].Number(side) > 0 {
			next = i
			break
		}
	}
	m.selectIndex(rows, next, side)
	a, b := rows[from].Number(side), rows[next].Number(side)
	if a > b {
		a, b = b, a
	}
	m.rng = Range{Side: side, Start: a, End: b}
	return IntentRangeSelect
}
