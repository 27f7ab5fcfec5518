package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/interpretive-systems/critique/internal/diffview"
	"github.com/interpretive-systems/critique/internal/tui/ansi"
)

func newRowsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rows FILE.diff",
		Short: "Print the rows built from a unified diff (- reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			files, err := diffview.ParseUnified(r)
			if err != nil {
				return err
			}
			split := mustGetBoolFlag(cmd, "split")
			width, err := cmd.Flags().GetInt("column")
			if err != nil {
				return err
			}
			return printRows(cmd.OutOrStdout(), files, split, max(width, 8))
		},
	}
	cmd.Flags().Bool("split", false, "Print side-by-side rows")
	cmd.Flags().Int("column", 40, "Width of one side in split output")
	return cmd
}

func printRows(w io.Writer, files []diffview.FileContent, split bool, column int) error {
	for _, fc := range files {
		if _, err := fmt.Fprintln(w, fc.Path); err != nil {
			return err
		}
		if fc.Binary {
			fmt.Fprintln(w, "  (binary)")
			continue
		}
		for _, h := range fc.Hunks {
			fmt.Fprintln(w, h.Header())
			if split {
				for _, row := range diffview.SplitRows(h) {
					fmt.Fprintf(w, "%s | %s\n",
						ansi.Fit(splitCell(row.Left, diffview.SideOld), column),
						splitCell(row.Right, diffview.SideNew))
				}
				continue
			}
			for _, row := range diffview.UnifiedRows(h) {
				l := row.Line
				fmt.Fprintf(w, "%s %s %c %s\n",
					number(l.OldNumber), number(l.NewNumber), marker(l.Type), expandTabs(l.Content))
			}
		}
	}
	return nil
}

func splitCell(l *diffview.Line, side diffview.Side) string {
	if l == nil {
		return ""
	}
	return fmt.Sprintf("%s %c %s", number(l.Number(side)), marker(l.Type), expandTabs(l.Content))
}

func number(n int) string {
	if n == 0 {
		return "    "
	}
	return fmt.Sprintf("%4d", n)
}

func marker(t diffview.LineType) rune {
	switch t {
	case diffview.LineAdd:
		return '+'
	case diffview.LineRemove:
		return '-'
	}
	return ' '
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", "    ")
}
