// Package highlight turns source lines into diffview tokens using chroma.
package highlight

import (
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"

	"github.com/interpretive-systems/critique/internal/diffview"
)

const maxHighlightedBytes = 512 * 1024 // 512 KiB

// Tokenizer assigns syntax classes to lines of a file.
type Tokenizer struct {
	// MaxBytes caps the input size; larger inputs are left untokenized.
	MaxBytes int
}

// New returns a Tokenizer with the default size cap.
func New() *Tokenizer {
	return &Tokenizer{MaxBytes: maxHighlightedBytes}
}

// Tokenize returns one token slice per input line. Class names are chroma
// token type names such as "Keyword" or "LiteralString".
func (t *Tokenizer) Tokenize(path string, lines []string) [][]diffview.Token {
	out := make([][]diffview.Token, len(lines))
	if len(lines) == 0 {
		return out
	}
	text := strings.Join(lines, "\n")
	if t.MaxBytes > 0 && len(text) > t.MaxBytes {
		return out
	}

	lexer := lexerFor(path, text)
	iterator, err := lexer.Tokenise(nil, text)
	if err != nil {
		return out
	}
	for i, toks := range chroma.SplitTokensIntoLines(iterator.Tokens()) {
		if i >= len(lines) {
			break
		}
		out[i] = lineTokens(toks, len(lines[i]))
	}
	return out
}

// Apply tokenizes every loaded hunk of fc in place. Old-side and new-side
// line streams are tokenized separately so each side is lexed in order.
func (t *Tokenizer) Apply(fc *diffview.FileContent) {
	type ref struct{ h, l int }
	var oldText, newText []string
	var oldRefs, newRefs []ref
	for hi, h := range fc.Hunks {
		if h == nil {
			continue
		}
		for li, l := range h.Lines {
			if l.Type == diffview.LineRemove {
				oldText = append(oldText, l.Content)
				oldRefs = append(oldRefs, ref{hi, li})
				continue
			}
			newText = append(newText, l.Content)
			newRefs = append(newRefs, ref{hi, li})
		}
	}
	for i, toks := range t.Tokenize(fc.Path, oldText) {
		r := oldRefs[i]
		fc.Hunks[r.h].Lines[r.l].Tokens = toks
	}
	for i, toks := range t.Tokenize(fc.Path, newText) {
		r := newRefs[i]
		fc.Hunks[r.h].Lines[r.l].Tokens = toks
	}
}

func lexerFor(path, text string) chroma.Lexer {
	lexer := lexers.Match(filepath.Base(path))
	if lexer == nil {
		lexer = lexers.Analyse(text)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return chroma.Coalesce(lexer)
}

func lineTokens(toks []chroma.Token, limit int) []diffview.Token {
	out := make([]diffview.Token, 0, len(toks))
	offset := 0
	for _, tok := range toks {
		value := strings.TrimSuffix(tok.Value, "\n")
		if value == "" {
			continue
		}
		start := offset
		end := offset + len(value)
		offset = end
		if start >= limit {
			break
		}
		if end > limit {
			end = limit
		}
		if isPlain(tok.Type) {
			continue
		}
		out = append(out, diffview.Token{Start: start, End: end, Class: tok.Type.String()})
	}
	return out
}

func isPlain(tt chroma.TokenType) bool {
	return tt == chroma.Text || tt == chroma.TextWhitespace || tt == chroma.Whitespace
}
