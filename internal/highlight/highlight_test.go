package highlight

import (
	"testing"

	"github.com/interpretive-systems/critique/internal/diffview"
	"github.com/stretchr/testify/require"
)

func TestTokenize_GoKeywords(t *testing.T) {
	lines := []string{"package main", "", "func main() {}"}
	toks := New().Tokenize("main.go", lines)
	require.Len(t, toks, len(lines))
	require.NotEmpty(t, toks[0])
	require.Equal(t, diffview.Token{Start: 0, End: 7, Class: "KeywordNamespace"}, toks[0][0])
	for i, line := range lines {
		l := diffview.Line{Type: diffview.LineContext, OldNumber: 1, NewNumber: 1, Content: line, Tokens: toks[i]}
		require.NoError(t, l.Validate())
	}
}

func TestTokenize_RespectsSizeCap(t *testing.T) {
	tk := &Tokenizer{MaxBytes: 4}
	toks := tk.Tokenize("main.go", []string{"package main"})
	require.Empty(t, toks[0])
}

func TestApply_SplitsSides(t *testing.T) {
	fc := &diffview.FileContent{
		Path: "x.go",
		Hunks: []*diffview.Hunk{nil, {
			OldStart: 1, OldCount: 1, NewStart: 1, NewCount: 1,
			Lines: []diffview.Line{
				{Type: diffview.LineRemove, OldNumber: 1, Content: "var a = 1"},
				{Type: diffview.LineAdd, NewNumber: 1, Content: "const a = 1"},
			},
		}},
	}
	New().Apply(fc)
	lines := fc.Hunks[1].Lines
	require.NotEmpty(t, lines[0].Tokens)
	require.NotEmpty(t, lines[1].Tokens)
	require.Equal(t, "KeywordDeclaration", lines[0].Tokens[0].Class)
	require.NoError(t, lines[0].Validate())
	require.NoError(t, lines[1].Validate())
}
