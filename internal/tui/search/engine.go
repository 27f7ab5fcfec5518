// Package search finds text in the lines of the open diff.
package search

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Engine manages search state. Matches are indices into the content set with
// SetContent, which the caller maps back to diff rows.
type Engine struct {
	query   string
	matches []int
	index   int
	input   textinput.Model
	active  bool
	content []string
}

// New creates a new search engine.
func New() *Engine {
	ti := textinput.New()
	ti.Placeholder = "Search diff"
	ti.Prompt = "/ "
	ti.CharLimit = 0
	return &Engine{input: ti}
}

// Activate opens the search input.
func (e *Engine) Activate() {
	e.active = true
	e.input.Focus()
}

// Deactivate closes the input. The query and its matches stay so n and N
// keep working.
func (e *Engine) Deactivate() {
	e.active = false
	e.input.Blur()
}

// IsActive reports whether the input has focus.
func (e *Engine) IsActive() bool {
	return e.active
}

// HandleKey processes a key while the input is active. moved is true when the
// current match changed.
func (e *Engine) HandleKey(msg tea.KeyMsg) (moved bool, cmd tea.Cmd) {
	switch msg.String() {
	case "esc":
		e.Deactivate()
		return false, nil
	case "enter", "down":
		return e.Next(), nil
	case "up":
		return e.Previous(), nil
	}
	prev := e.CurrentMatch()
	e.input, cmd = e.input.Update(msg)
	if v := e.input.Value(); v != e.query {
		e.query = v
		e.index = 0
		e.recompute()
	}
	return e.CurrentMatch() != prev, cmd
}

// SetContent replaces the searched lines, keeping the query.
func (e *Engine) SetContent(lines []string) {
	e.content = lines
	e.recompute()
}

// Query returns the current query.
func (e *Engine) Query() string {
	return e.query
}

// Clear drops the query and its matches.
func (e *Engine) Clear() {
	e.query = ""
	e.input.SetValue("")
	e.recompute()
}

func (e *Engine) recompute() {
	if e.query == "" {
		e.matches = nil
		e.index = 0
		return
	}
	q := strings.ToLower(e.query)
	matches := make([]int, 0, 16)
	for i, line := range e.content {
		if strings.Contains(strings.ToLower(line), q) {
			matches = append(matches, i)
		}
	}
	e.matches = matches
	if e.index >= len(matches) {
		e.index = 0
	}
}

// Next advances to the next match, wrapping.
func (e *Engine) Next() bool {
	if len(e.matches) == 0 {
		return false
	}
	e.index = (e.index + 1) % len(e.matches)
	return true
}

// Previous moves to the previous match, wrapping.
func (e *Engine) Previous() bool {
	if len(e.matches) == 0 {
		return false
	}
	e.index = (e.index - 1 + len(e.matches)) % len(e.matches)
	return true
}

// CurrentMatch returns the content index of the current match, or -1.
func (e *Engine) CurrentMatch() int {
	if len(e.matches) == 0 {
		return -1
	}
	return e.matches[e.index]
}

// MatchCount returns the number of matching lines.
func (e *Engine) MatchCount() int {
	return len(e.matches)
}

// CurrentMatchIndex returns the 1-based position of the current match.
func (e *Engine) CurrentMatchIndex() int {
	if len(e.matches) == 0 {
		return 0
	}
	return e.index + 1
}

// InputView returns the text input view.
func (e *Engine) InputView() string {
	return e.input.View()
}
