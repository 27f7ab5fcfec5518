// Package ansi holds width-aware string helpers for styled terminal text.
package ansi

import (
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
)

// Strip removes all escape sequences.
func Strip(s string) string {
	return xansi.Strip(s)
}

// Width returns the number of terminal cells s occupies.
func Width(s string) int {
	return xansi.StringWidth(s)
}

// Slice returns at most width columns of s starting at column start, keeping
// escape sequences intact.
func Slice(s string, start, width int) string {
	if width <= 0 {
		return ""
	}
	if start <= 0 {
		return xansi.Truncate(s, width, "")
	}
	head := xansi.Truncate(s, start+width, "")
	return xansi.TruncateLeft(head, start, "")
}

// Pad pads s with spaces to exactly w columns, truncating with an ellipsis
// when it is wider.
func Pad(s string, w int) string {
	if w <= 0 {
		return ""
	}
	vw := Width(s)
	switch {
	case vw == w:
		return s
	case vw > w:
		return xansi.Truncate(s, w, "…")
	}
	return s + strings.Repeat(" ", w-vw)
}

// Fit pads s to w columns or clips it without an ellipsis.
func Fit(s string, w int) string {
	if w <= 0 {
		return ""
	}
	vw := Width(s)
	if vw > w {
		return xansi.Truncate(s, w, "")
	}
	return s + strings.Repeat(" ", w-vw)
}

// Ellipsize truncates s to width columns, marking the cut with an ellipsis.
func Ellipsize(s string, width int) string {
	return xansi.Truncate(s, width, "…")
}

// SkipEscape returns the index just past the escape sequence starting at i,
// or i+1 when s[i] does not start one.
func SkipEscape(s string, i int) int {
	if i >= len(s) {
		return len(s)
	}
	if s[i] != 0x1b {
		return i + 1
	}
	j := i + 1
	if j >= len(s) {
		return j
	}
	switch s[j] {
	case '[': // CSI
		for j++; j < len(s); j++ {
			if c := s[j]; c >= 0x40 && c <= 0x7e {
				return j + 1
			}
		}
		return j
	case ']': // OSC, terminated by BEL or ST
		for j++; j < len(s); j++ {
			if s[j] == 0x07 {
				return j + 1
			}
			if s[j] == 0x1b && j+1 < len(s) && s[j+1] == '\\' {
				return j + 2
			}
		}
		return j
	}
	return j + 1
}
