// Package tui is the terminal front end: a file list on the left and the
// diff of the selected file, with its comments, on the right.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/interpretive-systems/critique/internal/comments"
	"github.com/interpretive-systems/critique/internal/diffview"
	"github.com/interpretive-systems/critique/internal/keynav"
	"github.com/interpretive-systems/critique/internal/review"
	"github.com/interpretive-systems/critique/internal/theme"
	"github.com/interpretive-systems/critique/internal/tui/components"
	"github.com/interpretive-systems/critique/internal/virtualize"
)

// Options configure a Program.
type Options struct {
	// RepoRoot is empty when the review is not backed by a git work tree;
	// preferences and commit info are skipped then.
	RepoRoot  string
	MRID      int
	Title     string
	Session   review.Options
	Metrics   virtualize.Metrics
	Theme     theme.Theme
	LeftWidth int
	Now       func() time.Time
}

// invalidator is implemented by remotes that cache diffs.
type invalidator interface {
	Invalidate()
}

// Program is the bubbletea model. The review session owns the open file;
// Program routes keys and renders.
type Program struct {
	state      *State
	layout     *Layout
	keyHandler *KeyHandler
	remote     review.Remote
	session    *review.Session
	now        func() time.Time

	// last hunk range handed to EnsureVisible
	requested    [2]int
	hasRequested bool
	searchPath   string
	searchRows   int
}

// New builds a Program over remote.
func New(remote review.Remote, opts Options) Program {
	if opts.Title == "" {
		opts.Title = "Changes"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Metrics == (virtualize.Metrics{}) {
		opts.Metrics = virtualize.DefaultMetrics()
	}
	if opts.LeftWidth <= 0 {
		opts.LeftWidth = 32
	}
	if opts.Theme.SyntaxStyle == "" {
		opts.Theme = theme.Get("dark")
	}
	return Program{
		state:      NewState(opts),
		layout:     NewLayout(opts.LeftWidth),
		keyHandler: NewKeyHandler(),
		remote:     remote,
		session:    review.NewSession(remote, opts.Session),
		now:        opts.Now,
	}
}

// Run starts the TUI and blocks until it exits.
func Run(remote review.Remote, opts Options) error {
	p := tea.NewProgram(New(remote, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m Program) Init() tea.Cmd {
	cmds := []tea.Cmd{loadFiles(m.remote, m.state.MRID), tickOnce()}
	if m.state.RepoRoot != "" {
		cmds = append(cmds, loadLastCommit(m.state.RepoRoot), loadCurrentBranch(m.state.RepoRoot))
	}
	return tea.Batch(cmds...)
}

func (m Program) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	st := m.state
	cmds := []tea.Cmd{m.session.Update(msg)}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		st.Width, st.Height = msg.Width, msg.Height
		m.layout.SetSize(msg.Width, msg.Height)
		m.revealSelection()
	case tea.KeyMsg:
		cmds = append(cmds, m.handleKey(msg))
	case filesMsg:
		if msg.err != nil {
			log.Warn().Err(msg.err).Msg("list files")
			cmds = append(cmds, m.notify(review.NotifyMsg{Level: review.LevelError, Text: "files: " + msg.err.Error(), Err: msg.err}))
			break
		}
		st.FileList.SetFiles(msg.files)
		st.LastRefresh = m.now()
		st.StatusBar.SetLastRefresh(st.LastRefresh)
		if f := st.FileList.SelectedFile(); f != nil && m.session.Path() == "" {
			cmds = append(cmds, m.openFile(f.Path))
		}
	case tickMsg:
		cmds = append(cmds, loadFiles(m.remote, st.MRID), tickOnce())
	case lastCommitMsg:
		if msg.err == nil {
			st.LastCommit = msg.summary
			st.StatusBar.SetLastCommit(msg.summary)
		}
	case currentBranchMsg:
		if msg.err == nil {
			st.CurrentBranch = msg.name
		}
	case prefsSavedMsg:
		if msg.err != nil {
			log.Warn().Err(msg.err).Str("pref", msg.key).Msg("save preference")
		}
	case review.NotifyMsg:
		cmds = append(cmds, m.notify(msg))
	case clearNoticeMsg:
		if msg.seq == st.noticeSeq {
			st.StatusBar.ClearNotice()
		}
	case review.CommentCountMsg:
		if msg.MRID == st.MRID {
			st.FileList.SetCount(msg.Path, msg.Count)
		}
	case review.LineSelectedMsg:
		if msg.FilePath == m.session.Path() {
			st.StatusBar.SetPosition(fmt.Sprintf("L%d %s %s", msg.LineNumber, msg.Side, msg.LineType))
		}
	case review.RangeSelectedMsg:
		if msg.FilePath == m.session.Path() {
			st.StatusBar.SetPosition(fmt.Sprintf("L%d-%d %s", msg.Range.Start, msg.Range.End, msg.Range.Side))
		}
	}

	cmds = append(cmds, m.sync())
	return m, tea.Batch(cmds...)
}

// sync brings the view in line with the session after every message and
// requests hunk pages when the visible range moved.
func (m *Program) sync() tea.Cmd {
	st := m.state
	nav := m.session.Nav()
	if nav.State() != keynav.Composing && st.Composer.Focused() {
		st.Composer.Blur()
		st.Composer.Reset()
	}
	if rows := m.session.Rows(); m.session.Path() != m.searchPath || len(rows) != m.searchRows {
		m.searchPath, m.searchRows = m.session.Path(), len(rows)
		m.state.SearchEngine.SetContent(m.rowTexts())
	}
	m.resize()
	if st.Width == 0 || !m.session.Large() || m.session.Loading() {
		return nil
	}
	st.DiffView.Layout(m.doc())
	first, last, ok := st.DiffView.VisibleHunks()
	if !ok || (m.hasRequested && m.requested == [2]int{first, last}) {
		return nil
	}
	m.requested, m.hasRequested = [2]int{first, last}, true
	return m.session.EnsureVisible(first, last)
}

func (m *Program) resize() {
	st := m.state
	h := m.layout.ContentHeight(len(m.overlayLines()))
	st.DiffView.SetSize(m.layout.RightWidth(), h)
	st.Composer.SetWidth(max(m.layout.RightWidth()-12, 10))
}

func (m *Program) notify(n review.NotifyMsg) tea.Cmd {
	m.state.noticeSeq++
	m.state.StatusBar.Notify(n)
	return expireNotice(m.state.noticeSeq)
}

func (m *Program) handleKey(msg tea.KeyMsg) tea.Cmd {
	st := m.state
	if msg.String() == "ctrl+c" {
		return tea.Quit
	}
	if st.SearchEngine.IsActive() {
		moved, cmd := st.SearchEngine.HandleKey(msg)
		if moved {
			return tea.Batch(cmd, m.jumpToMatch())
		}
		return cmd
	}
	if st.ShowHelp {
		if key.Matches(msg, keys.Help, keys.Back, keys.Quit) {
			st.ShowHelp = false
		}
		return nil
	}
	if m.session.Nav().State() == keynav.Composing {
		return m.handleComposerKey(msg)
	}

	action, count := m.keyHandler.Handle(msg)
	st.StatusBar.SetKeyBuffer(m.keyHandler.KeyBuffer())
	page := st.DiffView.Height()
	switch action {
	case ActionQuit:
		return tea.Quit
	case ActionToggleHelp:
		st.ShowHelp = true
	case ActionOpenSearch:
		st.SearchEngine.Activate()
	case ActionSearchNext:
		if st.SearchEngine.Next() {
			return m.jumpToMatch()
		}
	case ActionSearchPrevious:
		if st.SearchEngine.Previous() {
			return m.jumpToMatch()
		}
	case ActionRefresh:
		return m.refresh()
	case ActionNextFile:
		return m.switchFile(count)
	case ActionPrevFile:
		return m.switchFile(-count)
	case ActionPageDown:
		m.scroll(page * count)
	case ActionPageUp:
		m.scroll(-page * count)
	case ActionHalfPageDown:
		m.scroll(page / 2 * count)
	case ActionHalfPageUp:
		m.scroll(-page / 2 * count)
	case ActionLineDown:
		m.scroll(count)
	case ActionLineUp:
		m.scroll(-count)
	case ActionGoToTop:
		st.DiffView.ScrollTo(m.doc(), 0)
	case ActionGoToBottom:
		w := st.DiffView.Layout(m.doc())
		st.DiffView.ScrollTo(m.doc(), w.Total)
	case ActionScrollLeft:
		st.DiffView.ScrollLeft(8 * count)
	case ActionScrollRight:
		st.DiffView.ScrollRight(8 * count)
	case ActionScrollHome:
		st.DiffView.ScrollHome()
	case ActionAdjustLeftNarrower, ActionAdjustLeftWider:
		delta := 4 * count
		if action == ActionAdjustLeftNarrower {
			delta = -delta
		}
		m.layout.AdjustLeftWidth(delta)
		if st.RepoRoot != "" {
			return saveLeftWidth(st.RepoRoot, m.layout.LeftWidth())
		}
	case ActionDeleteComment:
		return m.deleteOnLine()
	case ActionToggleResolved:
		return m.resolveOnLine()
	case ActionNavigate:
		return m.navigate(msg.String(), count)
	}
	return nil
}

// navigate hands a key to the review session and follows up on the intent.
func (m *Program) navigate(k string, count int) tea.Cmd {
	st := m.state
	nav := m.session.Nav()
	if k != "j" && k != "k" && k != "down" && k != "up" {
		count = 1
	}
	_, wasRanging := nav.Range()
	var (
		intent keynav.Intent
		cmd    tea.Cmd
	)
	for range count {
		intent, cmd = m.session.HandleKey(keynav.Event{Key: k}, m.now())
	}
	switch intent {
	case keynav.IntentSelect, keynav.IntentRangeSelect:
		m.revealSelection()
	case keynav.IntentOpenComposer, keynav.IntentOpenReply:
		st.Composer.Reset()
		m.revealSelection()
		return tea.Batch(cmd, st.Composer.Focus())
	case keynav.IntentToggleView:
		m.revealSelection()
		if st.RepoRoot != "" {
			return tea.Batch(cmd, saveSplit(st.RepoRoot, nav.Split()))
		}
	case keynav.IntentBack:
		if !wasRanging {
			nav.Reset()
			st.StatusBar.SetPosition("")
		}
	}
	return cmd
}

func (m *Program) handleComposerKey(msg tea.KeyMsg) tea.Cmd {
	st := m.state
	if k := msg.String(); k == "ctrl+s" || k == "esc" {
		intent, cmd := m.session.HandleKey(keynav.Event{Key: k}, m.now())
		if intent == keynav.IntentCloseComposer {
			st.Composer.Blur()
			st.Composer.Reset()
		}
		return cmd
	}
	if c, ok := m.session.Comments().Composer(); ok && c.Submitting {
		return nil
	}
	var cmd tea.Cmd
	st.Composer, cmd = st.Composer.Update(msg)
	m.session.SetDraft(st.Composer.Value())
	return cmd
}

func (m *Program) scroll(delta int) {
	m.state.DiffView.ScrollBy(m.doc(), delta)
}

func (m *Program) openFile(path string) tea.Cmd {
	st := m.state
	m.hasRequested = false
	st.DiffView.ResetScroll()
	st.Composer.Blur()
	st.Composer.Reset()
	st.StatusBar.SetPosition("")
	return m.session.Open(st.MRID, path)
}

func (m *Program) switchFile(delta int) tea.Cmd {
	if !m.state.FileList.MoveSelection(delta) {
		return nil
	}
	return m.openFile(m.state.FileList.SelectedFile().Path)
}

// refresh retries a failed load, or reloads the file list and the open
// file's comments.
func (m *Program) refresh() tea.Cmd {
	st := m.state
	if m.session.Err() != nil {
		m.hasRequested = false
		return m.session.Retry()
	}
	cmds := []tea.Cmd{loadFiles(m.remote, st.MRID)}
	if st.RepoRoot != "" {
		cmds = append(cmds, loadLastCommit(st.RepoRoot))
	}
	if inv, ok := m.remote.(invalidator); ok && m.session.Path() != "" {
		inv.Invalidate()
		cmds = append(cmds, m.openFile(m.session.Path()))
	} else {
		cmds = append(cmds, m.session.Refresh())
	}
	return tea.Batch(cmds...)
}

func (m *Program) jumpToMatch() tea.Cmd {
	i := m.state.SearchEngine.CurrentMatch()
	rows := m.session.Rows()
	if i < 0 || i >= len(rows) {
		return nil
	}
	r := rows[i]
	cmd := m.session.Select(r.HunkIndex, r.LineIndex, r.DefaultSide())
	m.state.DiffView.Reveal(m.doc(), r.HunkIndex, r.LineIndex)
	return cmd
}

func (m *Program) revealSelection() {
	if m.state.Width == 0 {
		return
	}
	m.resize()
	if sel := m.session.Nav().Selection(); sel.Valid {
		m.state.DiffView.Reveal(m.doc(), sel.HunkIndex, sel.LineIndex)
	}
}

func (m *Program) selectedLine() (diffview.Line, bool) {
	sel := m.session.Nav().Selection()
	hunks := m.session.Hunks()
	if !sel.Valid || sel.HunkIndex >= len(hunks) || hunks[sel.HunkIndex] == nil {
		return diffview.Line{}, false
	}
	lines := hunks[sel.HunkIndex].Lines
	if sel.LineIndex >= len(lines) {
		return diffview.Line{}, false
	}
	return lines[sel.LineIndex], true
}

// lineComments returns the comments on the selected line, newest last.
func (m *Program) lineComments() []comments.Comment {
	l, ok := m.selectedLine()
	if !ok {
		return nil
	}
	return m.session.Comments().ForLine(l)
}

func (m *Program) deleteOnLine() tea.Cmd {
	list := m.lineComments()
	for i := len(list) - 1; i >= 0; i-- {
		if !list[i].System {
			return m.session.DeleteComment(list[i].ID)
		}
	}
	return nil
}

func (m *Program) resolveOnLine() tea.Cmd {
	list := m.lineComments()
	for i := len(list) - 1; i >= 0; i-- {
		if id := list[i].DiscussionID; id != "" {
			return m.session.ToggleResolved(id)
		}
	}
	return nil
}

// rowTexts returns the content of every loaded row, for search.
func (m *Program) rowTexts() []string {
	hunks := m.session.Hunks()
	rows := m.session.Rows()
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = hunks[r.HunkIndex].Lines[r.LineIndex].Content
	}
	return out
}

func (m *Program) doc() components.Doc {
	s := m.session
	nav := s.Nav()
	rng, ranging := nav.Range()
	d := components.Doc{
		Path:      s.Path(),
		Hunks:     s.Hunks(),
		Large:     s.Large(),
		Loading:   s.Loading(),
		Binary:    s.File().Binary,
		Err:       s.Err(),
		Regions:   s.Regions(),
		Comments:  s.Comments(),
		Selection: nav.Selection(),
		Range:     rng,
		Ranging:   ranging,
		Split:     nav.Split(),
		Query:     m.state.SearchEngine.Query(),
	}
	if c, ok := s.Comments().Composer(); ok {
		d.Composer = m.composerLines(c)
	}
	if i, rows := m.state.SearchEngine.CurrentMatch(), s.Rows(); i >= 0 && i < len(rows) {
		d.Match = keynav.Selection{HunkIndex: rows[i].HunkIndex, LineIndex: rows[i].LineIndex, Valid: true}
	}
	return d
}

func (m *Program) composerLines(c *comments.Composer) []string {
	t := m.state.Theme
	lines := strings.Split(m.state.Composer.View(), "\n")
	target := fmt.Sprintf("line %d (%s)", c.Anchor.Line, c.Anchor.Side)
	if c.Parent != nil {
		target = "reply to " + c.Parent.AuthorUsername
	}
	hint := t.DividerText(target + "  ctrl+s: submit  esc: cancel")
	if c.Submitting {
		hint = t.PendingText("saving…")
	}
	return append(lines, hint)
}

func (m *Program) overlayLines() []string {
	var lines []string
	if m.state.ShowHelp {
		lines = m.helpOverlayLines()
	}
	return append(lines, m.state.SearchEngine.RenderOverlay(m.state.Width, m.state.Theme)...)
}

// helpOverlayLines lays the key bindings out in two columns.
func (m *Program) helpOverlayLines() []string {
	width := m.state.Width
	bindings := keys.helpBindings()
	half := (len(bindings) + 1) / 2
	colW := max(width/2, 1)
	entry := func(b key.Binding) string {
		h := b.Help()
		return fmt.Sprintf("%-12s %s", h.Key, h.Desc)
	}
	lines := []string{
		m.state.Theme.DividerText(strings.Repeat("─", width)),
		lipgloss.NewStyle().Bold(true).Render("Help (h or esc to close)"),
	}
	for i := 0; i < half; i++ {
		left := entry(bindings[i])
		right := ""
		if i+half < len(bindings) {
			right = entry(bindings[i+half])
		}
		lines = append(lines, fmt.Sprintf("%-*s%s", colW, left, right))
	}
	return lines
}

func (m Program) View() string {
	st := m.state
	if st.Width == 0 || st.Height == 0 {
		return "Loading..."
	}
	overlay := m.overlayLines()
	h := m.layout.ContentHeight(len(overlay))
	st.DiffView.SetSize(m.layout.RightWidth(), h)
	return m.layout.Render(Frame{
		TopLeft:  m.topLeft(),
		TopRight: m.topRight(),
		Left:     st.FileList.Render(h, st.Theme),
		Right:    st.DiffView.Render(m.doc()),
		Overlay:  overlay,
		Bottom:   st.StatusBar.Render(st.Width, st.Theme),
	}, st.Theme)
}

func (m Program) topLeft() string {
	st := m.state
	f := st.FileList.SelectedFile()
	if f == nil {
		return st.Title
	}
	return fmt.Sprintf("%s | %s (%s) %s", st.Title, f.Path, components.StatusLabel(*f), components.ChangeLabel(*f, st.Theme))
}

func (m Program) topRight() string {
	var parts []string
	if m.state.CurrentBranch != "" {
		parts = append(parts, m.state.CurrentBranch)
	}
	mode := "unified"
	if m.session.Nav().Split() {
		mode = "split"
	}
	parts = append(parts, mode)
	if m.session.Large() {
		parts = append(parts, "progressive")
	}
	return strings.Join(parts, " | ")
}
