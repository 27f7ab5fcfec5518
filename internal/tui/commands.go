package tui

import (
	"context"
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/interpretive-systems/critique/internal/gitx"
	"github.com/interpretive-systems/critique/internal/prefs"
	"github.com/interpretive-systems/critique/internal/review"
)

const (
	refreshInterval = 2 * time.Second
	noticeTTL       = 5 * time.Second
)

// loadFiles loads the file list of the merge request.
func loadFiles(remote review.Remote, mrID int) tea.Cmd {
	return func() tea.Msg {
		files, err := remote.ListFiles(context.Background(), mrID)
		if err != nil {
			return filesMsg{err: err}
		}
		// Stable sort for deterministic UI
		sort.SliceStable(files, func(i, j int) bool {
			return files[i].Path < files[j].Path
		})
		return filesMsg{files: files}
	}
}

// loadLastCommit loads the last commit summary.
func loadLastCommit(repoRoot string) tea.Cmd {
	return func() tea.Msg {
		s, err := gitx.LastCommitSummary(context.Background(), repoRoot)
		return lastCommitMsg{summary: s, err: err}
	}
}

// loadCurrentBranch loads the current branch name.
func loadCurrentBranch(repoRoot string) tea.Cmd {
	return func() tea.Msg {
		name, err := gitx.CurrentBranch(context.Background(), repoRoot)
		return currentBranchMsg{name: name, err: err}
	}
}

func saveSplit(repoRoot string, split bool) tea.Cmd {
	return func() tea.Msg {
		return prefsSavedMsg{key: "split", err: prefs.SaveSplit(repoRoot, split)}
	}
}

func saveLeftWidth(repoRoot string, width int) tea.Cmd {
	return func() tea.Msg {
		return prefsSavedMsg{key: "leftWidth", err: prefs.SaveLeftWidth(repoRoot, width)}
	}
}

// tickOnce schedules a single tick.
func tickOnce() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func expireNotice(seq int) tea.Cmd {
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg {
		return clearNoticeMsg{seq: seq}
	})
}
