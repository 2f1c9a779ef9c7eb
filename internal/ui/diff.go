package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/arin/webviber/internal/history"
)

// diffContext is how many unchanged lines are kept around each change.
const diffContext = 2

// RenderDiff writes a colored line diff for each changed file.
func RenderDiff(w io.Writer, diffs []history.FileDiff) {
	if len(diffs) == 0 {
		color.New(color.FgHiBlack).Fprintln(w, "  No changes.")
		return
	}

	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	dim := color.New(color.FgHiBlack)

	for _, fd := range diffs {
		bold.Fprintf(w, "%s %s", kindMark(fd.Kind), fd.Path)
		dim.Fprintf(w, "  +%d -%d\n", fd.Added, fd.Removed)

		for i, d := range fd.Diffs {
			lines := splitLines(d.Text)
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				for _, l := range lines {
					green.Fprintf(w, "+ %s\n", l)
				}
			case diffmatchpatch.DiffDelete:
				for _, l := range lines {
					red.Fprintf(w, "- %s\n", l)
				}
			default:
				head, tail, elided := contextLines(lines, i > 0, i < len(fd.Diffs)-1)
				for _, l := range head {
					fmt.Fprintf(w, "  %s\n", l)
				}
				if elided {
					dim.Fprintln(w, "  ...")
				}
				for _, l := range tail {
					fmt.Fprintf(w, "  %s\n", l)
				}
			}
		}
		fmt.Fprintln(w)
	}
}

func kindMark(k history.ChangeKind) string {
	switch k {
	case history.Added:
		return "+"
	case history.Removed:
		return "-"
	default:
		return "~"
	}
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// contextLines trims an unchanged run to the lines bordering a change.
// before and after report whether a change precedes or follows the run.
func contextLines(lines []string, before, after bool) (head, tail []string, elided bool) {
	keep := 0
	if before {
		keep += diffContext
	}
	if after {
		keep += diffContext
	}
	if len(lines) <= keep {
		return lines, nil, false
	}
	if before {
		head = lines[:diffContext]
	}
	if after {
		tail = lines[len(lines)-diffContext:]
	}
	return head, tail, true
}
