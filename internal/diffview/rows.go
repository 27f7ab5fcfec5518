package diffview

// UnifiedRow is one rendered row in unified mode.
type UnifiedRow struct {
	Line      *Line
	LineIndex int
}

// SplitRow is one rendered row in side-by-side mode. A nil side renders as a
// blank gutter cell and its index is -1.
type SplitRow struct {
	Left           *Line
	Right          *Line
	LeftLineIndex  int
	RightLineIndex int
}

// Kind classifies a split row for styling.
func (r SplitRow) Kind() RowKind {
	switch {
	case r.Left != nil && r.Right != nil && r.Left.Type == LineContext:
		return RowContext
	case r.Left != nil && r.Right != nil:
		return RowReplace
	case r.Left != nil:
		return RowDel
	default:
		return RowAdd
	}
}

// RowKind represents the semantic type of a side-by-side row.
type RowKind int

const (
	RowContext RowKind = iota
	RowAdd
	RowDel
	RowReplace
)

// UnifiedRows maps every line of the hunk to exactly one row.
func UnifiedRows(h *Hunk) []UnifiedRow {
	if h == nil {
		return nil
	}
	rows := make([]UnifiedRow, len(h.Lines))
	for i := range h.Lines {
		rows[i] = UnifiedRow{Line: &h.Lines[i], LineIndex: i}
	}
	return rows
}

// SplitRows pairs a hunk's lines into side-by-side rows.
//
// A run of consecutive removals is paired index-for-index with the run of
// additions that immediately follows it; the shorter run is padded with nil
// cells. Additions that are not preceded by a removal run stay right-only,
// and a removal that follows an addition run starts a new, unpaired run.
// This is positional pairing, not a content-aware alignment.
func SplitRows(h *Hunk) []SplitRow {
	if h == nil {
		return nil
	}
	lines := h.Lines
	rows := make([]SplitRow, 0, len(lines))
	i := 0
	for i < len(lines) {
		switch lines[i].Type {
		case LineContext:
			rows = append(rows, SplitRow{
				Left: &lines[i], Right: &lines[i],
				LeftLineIndex: i, RightLineIndex: i,
			})
			i++
		case LineRemove:
			remStart := i
			for i < len(lines) && lines[i].Type == LineRemove {
				i++
			}
			addStart := i
			for i < len(lines) && lines[i].Type == LineAdd {
				i++
			}
			rows = appendPaired(rows, lines, remStart, addStart, addStart, i)
		case LineAdd:
			addStart := i
			for i < len(lines) && lines[i].Type == LineAdd {
				i++
			}
			rows = appendPaired(rows, lines, addStart, addStart, addStart, i)
		default:
			i++
		}
	}
	return rows
}

// appendPaired emits max(R, A) rows for removals lines[rs:re] and additions
// lines[as:ae].
func appendPaired(rows []SplitRow, lines []Line, rs, re, as, ae int) []SplitRow {
	r, a := re-rs, ae-as
	n := r
	if a > n {
		n = a
	}
	for k := 0; k < n; k++ {
		row := SplitRow{LeftLineIndex: -1, RightLineIndex: -1}
		if k < r {
			row.Left = &lines[rs+k]
			row.LeftLineIndex = rs + k
		}
		if k < a {
			row.Right = &lines[as+k]
			row.RightLineIndex = as + k
		}
		rows = append(rows, row)
	}
	return rows
}

// SplitRowIndex returns the split row that shows the given line, or -1.
func SplitRowIndex(rows []SplitRow, lineIndex int) int {
	for i, r := range rows {
		if r.LeftLineIndex == lineIndex || r.RightLineIndex == lineIndex {
			return i
		}
	}
	return -1
}

// SplitRowCount returns len(SplitRows(h)) without building the rows.
func SplitRowCount(h *Hunk) int {
	if h == nil {
		return 0
	}
	n, rem, add := 0, 0, 0
	flush := func() {
		n += max(rem, add)
		rem, add = 0, 0
	}
	for _, l := range h.Lines {
		switch l.Type {
		case LineContext:
			flush()
			n++
		case LineRemove:
			if add > 0 {
				flush()
			}
			rem++
		case LineAdd:
			add++
		}
	}
	flush()
	return n
}
