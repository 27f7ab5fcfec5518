package components

import (
	"fmt"
	"strings"

	"github.com/interpretive-systems/critique/internal/review"
	"github.com/interpretive-systems/critique/internal/theme"
)

// FileList manages the left pane file list.
type FileList struct {
	files    []review.FileSummary
	counts   map[string]int
	selected int
	offset   int
}

// NewFileList creates a new file list.
func NewFileList() *FileList {
	return &FileList{counts: map[string]int{}}
}

// SetFiles replaces the list. The selection follows the selected path when
// it is still listed.
func (f *FileList) SetFiles(files []review.FileSummary) {
	prev := ""
	if cur := f.SelectedFile(); cur != nil {
		prev = cur.Path
	}
	f.files = files
	f.selected = 0
	for i, file := range files {
		if file.Path == prev {
			f.selected = i
			break
		}
	}
}

// Files returns the current file list.
func (f *FileList) Files() []review.FileSummary {
	return f.files
}

// SetCount records the comment count shown as a badge next to path.
func (f *FileList) SetCount(path string, n int) {
	if n <= 0 {
		delete(f.counts, path)
		return
	}
	f.counts[path] = n
}

// Count returns the comment count of path.
func (f *FileList) Count(path string) int {
	return f.counts[path]
}

// Selected returns the selected index.
func (f *FileList) Selected() int {
	return f.selected
}

// SelectedFile returns the selected file, or nil for an empty list.
func (f *FileList) SelectedFile() *review.FileSummary {
	if f.selected < 0 || f.selected >= len(f.files) {
		return nil
	}
	return &f.files[f.selected]
}

// MoveSelection moves the selection by delta and reports whether it changed.
func (f *FileList) MoveSelection(delta int) bool {
	if len(f.files) == 0 {
		return false
	}
	next := min(max(f.selected+delta, 0), len(f.files)-1)
	changed := next != f.selected
	f.selected = next
	return changed
}

// EnsureVisible scrolls so the selected item is within visibleCount rows.
func (f *FileList) EnsureVisible(visibleCount int) {
	if len(f.files) == 0 || visibleCount <= 0 {
		return
	}
	maxStart := max(len(f.files)-visibleCount, 0)
	f.offset = min(max(f.offset, 0), maxStart)
	if f.selected < f.offset {
		f.offset = f.selected
	} else if f.selected >= f.offset+visibleCount {
		f.offset = f.selected - visibleCount + 1
	}
}

// Render renders the visible part of the list.
func (f *FileList) Render(height int, t theme.Theme) []string {
	if len(f.files) == 0 {
		return []string{"No changes detected"}
	}
	f.EnsureVisible(height)
	end := min(f.offset+height, len(f.files))
	lines := make([]string, 0, end-f.offset)
	for i := f.offset; i < end; i++ {
		file := f.files[i]
		marker := "  "
		if i == f.selected {
			marker = "> "
		}
		line := fmt.Sprintf("%s%s %s", marker, StatusLabel(file), file.Path)
		if n := f.counts[file.Path]; n > 0 {
			line += " " + t.CommentText(fmt.Sprintf("[%d]", n))
		}
		lines = append(lines, line)
	}
	return lines
}

// StatusLabel returns a short status label for a file.
func StatusLabel(f review.FileSummary) string {
	var tags []string
	if f.Status != "" {
		tags = append(tags, f.Status)
	}
	if f.Binary {
		tags = append(tags, "B")
	}
	if len(tags) == 0 {
		return "-"
	}
	return strings.Join(tags, "")
}

// ChangeLabel summarizes line counts, as in "+3 -1".
func ChangeLabel(f review.FileSummary, t theme.Theme) string {
	return t.AddText(fmt.Sprintf("+%d", f.Additions)) + " " + t.DelText(fmt.Sprintf("-%d", f.Deletions))
}
