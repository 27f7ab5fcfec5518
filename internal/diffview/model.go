package diffview

import (
	"errors"
	"fmt"
)

// LineType is the role a line plays in a hunk.
type LineType int

const (
	LineContext LineType = iota
	LineAdd
	LineRemove
)

func (t LineType) String() string {
	switch t {
	case LineAdd:
		return "add"
	case LineRemove:
		return "remove"
	default:
		return "context"
	}
}

// Side selects the old (left) or new (right) version of a file.
type Side int

const (
	SideOld Side = iota
	SideNew
)

func (s Side) String() string {
	if s == SideNew {
		return "new"
	}
	return "old"
}

// Token is a highlighted span of a line's content. Start and End are byte
// offsets, End exclusive.
type Token struct {
	Start int
	End   int
	Class string
}

// Line is one line of a hunk. A zero line number means "not present on that
// side": adds have no old number, removes have no new number.
type Line struct {
	Type      LineType
	OldNumber int
	NewNumber int
	Content   string
	Tokens    []Token
}

// Number returns the line number on the given side, or 0.
func (l Line) Number(side Side) int {
	if side == SideNew {
		return l.NewNumber
	}
	return l.OldNumber
}

// IsChange reports whether the line is an addition or a removal.
func (l Line) IsChange() bool {
	return l.Type == LineAdd || l.Type == LineRemove
}

// Validate checks the numbering and token invariants of a single line.
func (l Line) Validate() error {
	switch l.Type {
	case LineContext:
		if l.OldNumber <= 0 || l.NewNumber <= 0 {
			return fmt.Errorf("context line needs both numbers, got old=%d new=%d", l.OldNumber, l.NewNumber)
		}
	case LineAdd:
		if l.OldNumber != 0 || l.NewNumber <= 0 {
			return fmt.Errorf("add line needs only a new number, got old=%d new=%d", l.OldNumber, l.NewNumber)
		}
	case LineRemove:
		if l.NewNumber != 0 || l.OldNumber <= 0 {
			return fmt.Errorf("remove line needs only an old number, got old=%d new=%d", l.OldNumber, l.NewNumber)
		}
	default:
		return fmt.Errorf("unknown line type %d", l.Type)
	}
	prevEnd := 0
	for i, tok := range l.Tokens {
		if tok.Start < prevEnd || tok.End < tok.Start || tok.End > len(l.Content) {
			return fmt.Errorf("token %d [%d,%d) out of order or out of bounds", i, tok.Start, tok.End)
		}
		prevEnd = tok.End
	}
	return nil
}

// Hunk is a contiguous block of a diff sharing one old/new range header.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Section  string
	Lines    []Line
}

// Header renders the hunk range the way git prints it.
func (h *Hunk) Header() string {
	s := fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
	if h.Section != "" {
		s += " " + h.Section
	}
	return s
}

// Counts returns how many lines contribute to the old and new sides.
func (h *Hunk) Counts() (oldCount, newCount int) {
	for _, l := range h.Lines {
		switch l.Type {
		case LineContext:
			oldCount++
			newCount++
		case LineAdd:
			newCount++
		case LineRemove:
			oldCount++
		}
	}
	return oldCount, newCount
}

// Validate checks the per-line invariants and that the header counts match
// the lines.
func (h *Hunk) Validate() error {
	for i, l := range h.Lines {
		if err := l.Validate(); err != nil {
			return fmt.Errorf("line %d: %w", i, err)
		}
	}
	oldCount, newCount := h.Counts()
	if oldCount != h.OldCount || newCount != h.NewCount {
		return fmt.Errorf("hunk %s: lines give -%d +%d", h.Header(), oldCount, newCount)
	}
	return nil
}

// ErrHunkOrder is returned when hunks are not ascending and disjoint.
var ErrHunkOrder = errors.New("hunks out of order or overlapping")

// ValidateHunks validates every loaded hunk and their relative order.
// Placeholder (nil) entries are skipped.
func ValidateHunks(hunks []*Hunk) error {
	prevEnd := 0
	for i, h := range hunks {
		if h == nil {
			continue
		}
		if err := h.Validate(); err != nil {
			return fmt.Errorf("hunk %d: %w", i, err)
		}
		if h.OldStart < prevEnd {
			return fmt.Errorf("hunk %d starts at %d before %d: %w", i, h.OldStart, prevEnd, ErrHunkOrder)
		}
		prevEnd = h.OldStart + h.OldCount
	}
	return nil
}

// FileContent is the diff of one file. In progressive mode Hunks holds nil
// placeholders for hunks that have not been fetched yet and HunkCount gives
// the full length.
type FileContent struct {
	Path          string
	Hunks         []*Hunk
	HunkCount     int
	OldTotalLines int
	NewTotalLines int
	Large         bool
	Binary        bool
}

// SetTotals raises the line totals to those of the full old and new file
// contents. Totals never drop below the end of the last hunk, so an empty
// text (an added or deleted file) leaves them alone.
func (fc *FileContent) SetTotals(oldText, newText string) {
	fc.OldTotalLines = max(fc.OldTotalLines, countLines(oldText))
	fc.NewTotalLines = max(fc.NewTotalLines, countLines(newText))
}

// IsLarge reports whether the file should be loaded progressively.
func (fc FileContent) IsLarge(threshold int) bool {
	if fc.Large {
		return true
	}
	if threshold <= 0 {
		return false
	}
	total := fc.OldTotalLines
	if fc.NewTotalLines > total {
		total = fc.NewTotalLines
	}
	return total > threshold
}

// Count returns the number of hunk slots, loaded or not.
func (fc FileContent) Count() int {
	if fc.HunkCount > len(fc.Hunks) {
		return fc.HunkCount
	}
	return len(fc.Hunks)
}
