// Package virtualize decides which row groups of a diff are realized for a
// given scroll position.
//
// Every hunk is one group. Heights are supplied per call through a function
// and are never cached, so a group that turns from a placeholder into a
// loaded hunk between two passes is measured with its new height.
package virtualize

import (
	"sort"

	"github.com/interpretive-systems/critique/internal/diffview"
)

// Metrics are the layout constants, in terminal rows.
type Metrics struct {
	LineHeight         int
	HeaderHeight       int
	PlaceholderHeight  int
	Overscan           int
	SmallDiffThreshold int
}

// DefaultMetrics returns the metrics used when no config is present.
func DefaultMetrics() Metrics {
	return Metrics{
		LineHeight:         1,
		HeaderHeight:       1,
		PlaceholderHeight:  3,
		Overscan:           20,
		SmallDiffThreshold: 2000,
	}
}

// GroupHeight returns the height of one hunk group. extra accounts for rows
// the view interleaves with the hunk's lines (comments, composer).
func GroupHeight(m Metrics, h *diffview.Hunk, extra int) int {
	if h == nil {
		return m.PlaceholderHeight
	}
	return m.HeaderHeight + len(h.Lines)*m.LineHeight + extra
}

// Window is the result of one layout pass.
type Window struct {
	// Start and End delimit the realized groups, End exclusive.
	Start int
	End   int
	// Offsets holds the top of every group, plus the total at index n.
	Offsets []int
	// Total is the scrollable height of all groups.
	Total int
	// Windowed is false when every group is realized.
	Windowed bool
}

// Layout measures n groups and picks the ones intersecting
// [scrollTop-overscan, scrollTop+viewport+overscan]. Small diffs that are not
// flagged large skip windowing and realize every group.
func Layout(n int, height func(i int) int, scrollTop, viewport int, m Metrics, large bool) Window {
	offsets := make([]int, n+1)
	for i := 0; i < n; i++ {
		h := height(i)
		if h < 0 {
			h = 0
		}
		offsets[i+1] = offsets[i] + h
	}
	w := Window{Offsets: offsets, Total: offsets[n], End: n}
	if !large && w.Total < m.SmallDiffThreshold {
		return w
	}
	w.Windowed = true
	if n == 0 {
		return w
	}
	top := scrollTop - m.Overscan
	bottom := scrollTop + viewport + m.Overscan
	// first group whose bottom edge is below top
	w.Start = sort.Search(n, func(i int) bool { return offsets[i+1] > top })
	// first group whose top edge is at or below bottom
	w.End = sort.Search(n, func(i int) bool { return offsets[i] >= bottom })
	if w.End < w.Start {
		w.End = w.Start
	}
	return w
}

// Visible reports whether group i is realized.
func (w Window) Visible(i int) bool {
	return i >= w.Start && i < w.End
}

// GroupAt returns the group containing row y, or -1.
func (w Window) GroupAt(y int) int {
	n := len(w.Offsets) - 1
	if n <= 0 || y < 0 || y >= w.Total {
		return -1
	}
	return sort.Search(n, func(i int) bool { return w.Offsets[i+1] > y })
}

// Top returns the offset of group i.
func (w Window) Top(i int) int {
	if i < 0 || i >= len(w.Offsets) {
		return 0
	}
	return w.Offsets[i]
}

// ClampScroll keeps scrollTop inside [0, total-viewport].
func ClampScroll(scrollTop, viewport, total int) int {
	maxTop := total - viewport
	if maxTop < 0 {
		maxTop = 0
	}
	if scrollTop > maxTop {
		scrollTop = maxTop
	}
	if scrollTop < 0 {
		scrollTop = 0
	}
	return scrollTop
}
