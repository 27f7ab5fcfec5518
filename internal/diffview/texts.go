package diffview

import (
	"strings"

	diffmp "github.com/sergi/go-diff/diffmatchpatch"
)

// DiffTexts computes a line diff between two versions of a file and groups it
// into hunks with the given number of context lines.
func DiffTexts(path, oldContent, newContent string, context int) FileContent {
	if context < 0 {
		context = 0
	}
	lines := lineDiff(oldContent, newContent)
	fc := FileContent{
		Path:          path,
		OldTotalLines: countLines(oldContent),
		NewTotalLines: countLines(newContent),
	}
	fc.Hunks = groupHunks(lines, context)
	fc.HunkCount = len(fc.Hunks)
	return fc
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return len(splitLines(s))
}

func splitLines(s string) []string {
	lines := strings.Split(s, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func lineDiff(oldContent, newContent string) []Line {
	if oldContent == "" && newContent == "" {
		return nil
	}
	dmp := diffmp.New()
	chars1, chars2, lineArray := dmp.DiffLinesToChars(oldContent, newContent)
	diffs := dmp.DiffMain(chars1, chars2, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var out []Line
	oldNum, newNum := 1, 1
	for _, d := range diffs {
		for _, text := range splitLines(d.Text) {
			switch d.Type {
			case diffmp.DiffEqual:
				out = append(out, Line{Type: LineContext, OldNumber: oldNum, NewNumber: newNum, Content: text})
				oldNum++
				newNum++
			case diffmp.DiffDelete:
				out = append(out, Line{Type: LineRemove, OldNumber: oldNum, Content: text})
				oldNum++
			case diffmp.DiffInsert:
				out = append(out, Line{Type: LineAdd, NewNumber: newNum, Content: text})
				newNum++
			}
		}
	}
	return out
}

// groupHunks cuts a flat line diff into hunks, keeping context lines around
// each change and joining changes whose context windows meet.
func groupHunks(lines []Line, context int) []*Hunk {
	var hunks []*Hunk
	i := 0
	for i < len(lines) {
		for i < len(lines) && !lines[i].IsChange() {
			i++
		}
		if i >= len(lines) {
			break
		}
		start := max(0, i-context)
		end := i
		for end < len(lines) {
			if lines[end].IsChange() {
				end++
				continue
			}
			run := end
			for run < len(lines) && !lines[run].IsChange() {
				run++
			}
			if run < len(lines) && run-end <= 2*context {
				end = run
				continue
			}
			end = min(len(lines), end+context)
			break
		}
		hunks = append(hunks, newHunk(lines[:start], lines[start:end]))
		i = end
	}
	return hunks
}

func newHunk(before, lines []Line) *Hunk {
	h := &Hunk{Lines: append([]Line(nil), lines...)}
	for _, l := range lines {
		if h.OldStart == 0 && l.OldNumber > 0 {
			h.OldStart = l.OldNumber
		}
		if h.NewStart == 0 && l.NewNumber > 0 {
			h.NewStart = l.NewNumber
		}
	}
	h.OldCount, h.NewCount = h.Counts()
	// git convention: an empty side is positioned at the line before the hunk.
	if h.OldCount == 0 {
		h.OldStart = lastNumber(before, SideOld)
	}
	if h.NewCount == 0 {
		h.NewStart = lastNumber(before, SideNew)
	}
	return h
}

func lastNumber(lines []Line, side Side) int {
	for i := len(lines) - 1; i >= 0; i-- {
		if n := lines[i].Number(side); n > 0 {
			return n
		}
	}
	return 0
}
