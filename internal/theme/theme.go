// Package theme holds the colours used to render diffs and comments.
package theme

import (
	"os"
	"path/filepath"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// Theme defines customizable colours for rendering.
type Theme struct {
	AddColor      string `yaml:"add_color"`
	DelColor      string `yaml:"del_color"`
	MetaColor     string `yaml:"meta_color"`
	DividerColor  string `yaml:"divider_color"`
	AddBgColor    string `yaml:"add_bg_color"`
	DelBgColor    string `yaml:"del_bg_color"`
	SelectBgColor string `yaml:"select_bg_color"`
	CommentColor  string `yaml:"comment_color"`
	PendingColor  string `yaml:"pending_color"`
	ErrorColor    string `yaml:"error_color"`
	SyntaxStyle   string `yaml:"syntax_style"`

	syntax map[string]lipgloss.Style
}

func darkTheme() Theme {
	return Theme{
		AddColor:      "34",
		DelColor:      "196",
		MetaColor:     "63",
		DividerColor:  "240",
		AddBgColor:    "22",
		DelBgColor:    "52",
		SelectBgColor: "237",
		CommentColor:  "179",
		PendingColor:  "244",
		ErrorColor:    "203",
		SyntaxStyle:   "monokai",
	}
}

func lightTheme() Theme {
	return Theme{
		AddColor:      "22",
		DelColor:      "9",
		MetaColor:     "27",
		DividerColor:  "244",
		AddBgColor:    "194",
		DelBgColor:    "224",
		SelectBgColor: "253",
		CommentColor:  "94",
		PendingColor:  "245",
		ErrorColor:    "160",
		SyntaxStyle:   "github",
	}
}

// Get returns the named base theme; unknown names get the dark theme.
func Get(name string) Theme {
	t := darkTheme()
	if name == "light" {
		t = lightTheme()
	}
	t.buildSyntax()
	return t
}

// Load returns the base theme with overrides from .critique/theme.yaml in
// the repository, and the syntax style from syntaxStyle when not empty.
func Load(repoRoot, base, syntaxStyle string) Theme {
	t := Get(base)
	if syntaxStyle != "" {
		t.SyntaxStyle = syntaxStyle
	}
	if repoRoot != "" {
		if b, err := os.ReadFile(filepath.Join(repoRoot, ".critique", "theme.yaml")); err == nil {
			var u Theme
			if yaml.Unmarshal(b, &u) == nil {
				t.merge(u)
			}
		}
	}
	t.buildSyntax()
	return t
}

func (t *Theme) merge(u Theme) {
	for _, f := range []struct{ dst *string; src string }{
		{&t.AddColor, u.AddColor},
		{&t.DelColor, u.DelColor},
		{&t.MetaColor, u.MetaColor},
		{&t.DividerColor, u.DividerColor},
		{&t.AddBgColor, u.AddBgColor},
		{&t.DelBgColor, u.DelBgColor},
		{&t.SelectBgColor, u.SelectBgColor},
		{&t.CommentColor, u.CommentColor},
		{&t.PendingColor, u.PendingColor},
		{&t.ErrorColor, u.ErrorColor},
		{&t.SyntaxStyle, u.SyntaxStyle},
	} {
		if f.src != "" {
			*f.dst = f.src
		}
	}
}

// buildSyntax maps chroma token type names to foreground styles of the
// configured chroma style.
func (t *Theme) buildSyntax() {
	style := styles.Get(t.SyntaxStyle)
	t.syntax = make(map[string]lipgloss.Style, len(chroma.StandardTypes))
	for tt := range chroma.StandardTypes {
		entry := style.Get(tt)
		if !entry.Colour.IsSet() {
			continue
		}
		s := lipgloss.NewStyle().Foreground(lipgloss.Color(entry.Colour.String()))
		if entry.Bold == chroma.Yes {
			s = s.Bold(true)
		}
		if entry.Italic == chroma.Yes {
			s = s.Italic(true)
		}
		t.syntax[tt.String()] = s
	}
}

// Syntax returns the style for a token class and whether one is defined.
func (t Theme) Syntax(class string) (lipgloss.Style, bool) {
	s, ok := t.syntax[class]
	return s, ok
}

func (t Theme) AddText(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.AddColor)).Render(s)
}

func (t Theme) DelText(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.DelColor)).Render(s)
}

func (t Theme) MetaText(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.MetaColor)).Render(s)
}

func (t Theme) DividerText(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.DividerColor)).Render(s)
}

func (t Theme) CommentText(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.CommentColor)).Render(s)
}

func (t Theme) PendingText(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.PendingColor)).Italic(true).Render(s)
}

func (t Theme) ErrorText(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.ErrorColor)).Render(s)
}

// AddBg, DelBg and SelectBg return line background styles.
func (t Theme) AddBg() lipgloss.Style {
	return lipgloss.NewStyle().Background(lipgloss.Color(t.AddBgColor))
}

func (t Theme) DelBg() lipgloss.Style {
	return lipgloss.NewStyle().Background(lipgloss.Color(t.DelBgColor))
}

func (t Theme) SelectBg() lipgloss.Style {
	return lipgloss.NewStyle().Background(lipgloss.Color(t.SelectBgColor))
}
