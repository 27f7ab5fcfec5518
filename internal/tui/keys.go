package tui

import (
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// KeyAction represents an action triggered by a key press.
type KeyAction int

const (
	ActionNone KeyAction = iota
	// ActionNavigate hands the key to the review session.
	ActionNavigate
	ActionQuit
	ActionToggleHelp
	ActionOpenSearch
	ActionSearchNext
	ActionSearchPrevious
	ActionRefresh
	ActionNextFile
	ActionPrevFile
	ActionPageDown
	ActionPageUp
	ActionHalfPageDown
	ActionHalfPageUp
	ActionLineDown
	ActionLineUp
	ActionGoToTop
	ActionGoToBottom
	ActionScrollLeft
	ActionScrollRight
	ActionScrollHome
	ActionAdjustLeftNarrower
	ActionAdjustLeftWider
	ActionDeleteComment
	ActionToggleResolved
)

type keyMap struct {
	Quit        key.Binding
	Help        key.Binding
	Search      key.Binding
	SearchNext  key.Binding
	SearchPrev  key.Binding
	Refresh     key.Binding
	NextFile    key.Binding
	PrevFile    key.Binding
	PageDown    key.Binding
	PageUp      key.Binding
	HalfDown    key.Binding
	HalfUp      key.Binding
	LineDown    key.Binding
	LineUp      key.Binding
	Top         key.Binding
	Bottom      key.Binding
	Left        key.Binding
	Right       key.Binding
	Home        key.Binding
	Narrower    key.Binding
	Wider       key.Binding
	Delete      key.Binding
	Resolve     key.Binding
	Down        key.Binding
	Up          key.Binding
	NextChange  key.Binding
	PrevChange  key.Binding
	Comment     key.Binding
	Reply       key.Binding
	Submit      key.Binding
	ToggleView  key.Binding
	SwitchSide  key.Binding
	ExtendRange key.Binding
	Back        key.Binding
}

var keys = keyMap{
	Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Help:        key.NewBinding(key.WithKeys("h", "?"), key.WithHelp("h", "toggle help")),
	Search:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search diff")),
	SearchNext:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n/N", "next / previous match")),
	SearchPrev:  key.NewBinding(key.WithKeys("N")),
	Refresh:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh, or retry a failed load")),
	NextFile:    key.NewBinding(key.WithKeys("J"), key.WithHelp("J/K", "next / previous file")),
	PrevFile:    key.NewBinding(key.WithKeys("K")),
	PageDown:    key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn/pgup", "page down / up")),
	PageUp:      key.NewBinding(key.WithKeys("pgup")),
	HalfDown:    key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d/u", "half page down / up")),
	HalfUp:      key.NewBinding(key.WithKeys("ctrl+u")),
	LineDown:    key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("ctrl+e/y", "scroll one line")),
	LineUp:      key.NewBinding(key.WithKeys("ctrl+y")),
	Top:         key.NewBinding(key.WithKeys("g"), key.WithHelp("g/G", "top / bottom")),
	Bottom:      key.NewBinding(key.WithKeys("G")),
	Left:        key.NewBinding(key.WithKeys("left", "{"), key.WithHelp("←/→", "scroll sideways")),
	Right:       key.NewBinding(key.WithKeys("right", "}")),
	Home:        key.NewBinding(key.WithKeys("home")),
	Narrower:    key.NewBinding(key.WithKeys("<"), key.WithHelp("</>", "resize file list")),
	Wider:       key.NewBinding(key.WithKeys(">")),
	Delete:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete latest comment on line")),
	Resolve:     key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "resolve / reopen thread")),
	Down:        key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/k", "move selection (count prefix ok)")),
	Up:          key.NewBinding(key.WithKeys("k", "up")),
	NextChange:  key.NewBinding(key.WithKeys("]"), key.WithHelp("]/[", "next / previous change")),
	PrevChange:  key.NewBinding(key.WithKeys("[")),
	Comment:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "comment on line")),
	Reply:       key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reply to thread on line")),
	Submit:      key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "submit comment")),
	ToggleView:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "split / unified")),
	SwitchSide:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch side (split)")),
	ExtendRange: key.NewBinding(key.WithKeys("shift+down", "shift+up"), key.WithHelp("shift+↑/↓", "extend range (split)")),
	Back:        key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close / back")),
}

// helpBindings lists the bindings shown in the help overlay, in order.
func (k keyMap) helpBindings() []key.Binding {
	return []key.Binding{
		k.Down, k.NextChange, k.SwitchSide, k.ExtendRange, k.Comment, k.Reply, k.Submit,
		k.Delete, k.Resolve, k.ToggleView, k.NextFile, k.HalfDown, k.PageDown,
		k.LineDown, k.Top, k.Left, k.Search, k.SearchNext, k.Narrower,
		k.Refresh, k.Back, k.Help, k.Quit,
	}
}

// KeyHandler maps keys to actions and keeps the numeric count prefix.
type KeyHandler struct {
	keyBuffer string
}

// NewKeyHandler creates a new key handler.
func NewKeyHandler() *KeyHandler {
	return &KeyHandler{}
}

// Handle returns the action for msg and the count typed before it.
func (k *KeyHandler) Handle(msg tea.KeyMsg) (KeyAction, int) {
	s := msg.String()
	if isNumericKey(s) && (k.keyBuffer != "" || s != "0") {
		k.keyBuffer += s
		return ActionNone, 0
	}
	count := 1
	if k.keyBuffer != "" {
		if n, err := strconv.Atoi(k.keyBuffer); err == nil && n > 0 {
			count = n
		}
	}
	k.keyBuffer = ""
	return keyToAction(msg), count
}

// KeyBuffer returns the pending count.
func (k *KeyHandler) KeyBuffer() string {
	return k.keyBuffer
}

// ClearBuffer drops the pending count.
func (k *KeyHandler) ClearBuffer() {
	k.keyBuffer = ""
}

func keyToAction(msg tea.KeyMsg) KeyAction {
	switch {
	case key.Matches(msg, keys.Quit):
		return ActionQuit
	case key.Matches(msg, keys.Help):
		return ActionToggleHelp
	case key.Matches(msg, keys.Search):
		return ActionOpenSearch
	case key.Matches(msg, keys.SearchNext):
		return ActionSearchNext
	case key.Matches(msg, keys.SearchPrev):
		return ActionSearchPrevious
	case key.Matches(msg, keys.Refresh):
		return ActionRefresh
	case key.Matches(msg, keys.NextFile):
		return ActionNextFile
	case key.Matches(msg, keys.PrevFile):
		return ActionPrevFile
	case key.Matches(msg, keys.PageDown):
		return ActionPageDown
	case key.Matches(msg, keys.PageUp):
		return ActionPageUp
	case key.Matches(msg, keys.HalfDown):
		return ActionHalfPageDown
	case key.Matches(msg, keys.HalfUp):
		return ActionHalfPageUp
	case key.Matches(msg, keys.LineDown):
		return ActionLineDown
	case key.Matches(msg, keys.LineUp):
		return ActionLineUp
	case key.Matches(msg, keys.Top):
		return ActionGoToTop
	case key.Matches(msg, keys.Bottom):
		return ActionGoToBottom
	case key.Matches(msg, keys.Left):
		return ActionScrollLeft
	case key.Matches(msg, keys.Right):
		return ActionScrollRight
	case key.Matches(msg, keys.Home):
		return ActionScrollHome
	case key.Matches(msg, keys.Narrower):
		return ActionAdjustLeftNarrower
	case key.Matches(msg, keys.Wider):
		return ActionAdjustLeftWider
	case key.Matches(msg, keys.Delete):
		return ActionDeleteComment
	case key.Matches(msg, keys.Resolve):
		return ActionToggleResolved
	case key.Matches(msg, keys.Down, keys.Up, keys.NextChange, keys.PrevChange,
		keys.Comment, keys.Reply, keys.Submit, keys.ToggleView, keys.SwitchSide,
		keys.ExtendRange, keys.Back):
		return ActionNavigate
	}
	return ActionNone
}

func isNumericKey(key string) bool {
	return len(key) == 1 && key >= "0" && key <= "9"
}
