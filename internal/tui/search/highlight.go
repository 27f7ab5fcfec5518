package search

import (
	"strings"
	"unicode/utf8"

	"github.com/interpretive-systems/critique/internal/tui/ansi"
)

const (
	matchStartSeq        = "\x1b[30;107m"
	currentMatchStartSeq = "\x1b[30;43m"
	matchEndSeq          = "\x1b[0m"
)

// Highlight marks every case-insensitive occurrence of query in line. line
// may already carry escape sequences; they are kept as they are.
func Highlight(line, query string, current bool) string {
	ranges := findRanges(ansi.Strip(line), query)
	if len(ranges) == 0 {
		return line
	}
	start := matchStartSeq
	if current {
		start = currentMatchStartSeq
	}

	var b strings.Builder
	b.Grow(len(line) + len(ranges)*16)
	ri, pos, in := 0, 0, false
	for i := 0; i < len(line); {
		if line[i] == 0x1b {
			next := ansi.SkipEscape(line, i)
			b.WriteString(line[i:next])
			if in {
				// styles inside the match reset our colours
				b.WriteString(start)
			}
			i = next
			continue
		}
		if in && pos >= ranges[ri].end {
			b.WriteString(matchEndSeq)
			in = false
			ri++
		}
		if !in && ri < len(ranges) && pos == ranges[ri].start {
			b.WriteString(start)
			in = true
		}
		_, size := utf8.DecodeRuneInString(line[i:])
		b.WriteString(line[i : i+size])
		pos++
		i += size
	}
	if in {
		b.WriteString(matchEndSeq)
	}
	return b.String()
}

type runeRange struct {
	start, end int
}

// findRanges returns non-overlapping rune ranges of query in plain.
func findRanges(plain, query string) []runeRange {
	if plain == "" || query == "" {
		return nil
	}
	hay := []rune(strings.ToLower(plain))
	needle := []rune(strings.ToLower(query))
	if len(needle) > len(hay) {
		return nil
	}
	var out []runeRange
	for i := 0; i <= len(hay)-len(needle); {
		if string(hay[i:i+len(needle)]) == string(needle) {
			out = append(out, runeRange{start: i, end: i + len(needle)})
			i += len(needle)
			continue
		}
		i++
	}
	return out
}
