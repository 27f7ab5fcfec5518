package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/textarea"

	"github.com/interpretive-systems/critique/internal/theme"
	"github.com/interpretive-systems/critique/internal/tui/components"
	"github.com/interpretive-systems/critique/internal/tui/search"
)

// State holds the view state around the review session.
type State struct {
	// Source
	RepoRoot      string
	MRID          int
	Title         string
	CurrentBranch string
	LastCommit    string

	// UI state
	Width       int
	Height      int
	ShowHelp    bool
	LastRefresh time.Time
	noticeSeq   int

	// Components
	FileList     *components.FileList
	DiffView     *components.DiffView
	StatusBar    *components.StatusBar
	SearchEngine *search.Engine
	Composer     textarea.Model

	Theme theme.Theme
}

// NewState creates the initial state.
func NewState(opts Options) *State {
	return &State{
		RepoRoot:     opts.RepoRoot,
		MRID:         opts.MRID,
		Title:        opts.Title,
		Theme:        opts.Theme,
		FileList:     components.NewFileList(),
		DiffView:     components.NewDiffView(opts.Theme, opts.Metrics),
		StatusBar:    components.NewStatusBar(),
		SearchEngine: search.New(),
		Composer:     newComposer(),
	}
}

func newComposer() textarea.Model {
	ta := textarea.New()
	ta.Placeholder = "Write a comment…"
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.CharLimit = 0
	return ta
}
