package diffview

import (
	"fmt"
	"io"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

// ParseUnified parses a git-style unified diff into one FileContent per file.
func ParseUnified(r io.Reader) ([]FileContent, error) {
	files, _, err := gitdiff.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse diff: %w", err)
	}
	out := make([]FileContent, 0, len(files))
	for _, f := range files {
		out = append(out, convertFile(f))
	}
	return out, nil
}

func convertFile(f *gitdiff.File) FileContent {
	fc := FileContent{
		Path:   f.NewName,
		Binary: f.IsBinary,
	}
	if f.IsDelete || fc.Path == "" {
		fc.Path = f.OldName
	}
	// A patch only tells where its last hunk ends. Callers that can read
	// the files raise the totals with SetTotals.
	fc.Hunks = make([]*Hunk, 0, len(f.TextFragments))
	for _, frag := range f.TextFragments {
		h := convertFragment(frag)
		fc.Hunks = append(fc.Hunks, h)
		if end := h.OldStart + h.OldCount - 1; end > fc.OldTotalLines {
			fc.OldTotalLines = end
		}
		if end := h.NewStart + h.NewCount - 1; end > fc.NewTotalLines {
			fc.NewTotalLines = end
		}
	}
	fc.HunkCount = len(fc.Hunks)
	return fc
}

func convertFragment(frag *gitdiff.TextFragment) *Hunk {
	h := &Hunk{
		OldStart: int(frag.OldPosition),
		OldCount: int(frag.OldLines),
		NewStart: int(frag.NewPosition),
		NewCount: int(frag.NewLines),
		Section:  strings.TrimSpace(frag.Comment),
		Lines:    make([]Line, 0, len(frag.Lines)),
	}
	oldNum, newNum := h.OldStart, h.NewStart
	for _, l := range frag.Lines {
		line := Line{Content: strings.TrimSuffix(l.Line, "\n")}
		switch l.Op {
		case gitdiff.OpContext:
			line.Type = LineContext
			line.OldNumber, line.NewNumber = oldNum, newNum
			oldNum++
			newNum++
		case gitdiff.OpAdd:
			line.Type = LineAdd
			line.NewNumber = newNum
			newNum++
		case gitdiff.OpDelete:
			line.Type = LineRemove
			line.OldNumber = oldNum
			oldNum++
		}
		h.Lines = append(h.Lines, line)
	}
	return h
}
