package cmd

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/webviber/internal/history"
	"github.com/arin/webviber/internal/ui"
)

var undoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Step back to the previous snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return step((*history.Stack).Undo, "Nothing to undo.")
	},
}

var redoCmd = &cobra.Command{
	Use:   "redo",
	Short: "Step forward to the next snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return step((*history.Stack).Redo, "Nothing to redo.")
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show what the current snapshot changed",
	RunE: func(cmd *cobra.Command, args []string) error {
		stack, err := history.Load()
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}
		cur, ok := stack.Current()
		if !ok {
			return errNoProject
		}
		ui.RenderDiff(os.Stdout, snapshotDiff(stack, cur))
		return nil
	},
}

// snapshotDiff compares the current snapshot with the one before it.
func snapshotDiff(stack *history.Stack, cur history.Entry) []history.FileDiff {
	var prev history.Entry
	if stack.Index > 0 {
		prev = stack.Entries[stack.Index-1]
	}
	return history.Diff(prev.Files, cur.Files)
}

func step(move func(*history.Stack) (history.Entry, bool), none string) error {
	stack, err := history.Load()
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	e, ok := move(stack)
	if !ok {
		color.New(color.FgHiBlack).Fprintf(os.Stderr, "  %s\n", none)
		return nil
	}
	if err := history.Save(stack); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	printPosition(stack, e)
	return nil
}

func printPosition(stack *history.Stack, e history.Entry) {
	green := color.New(color.FgGreen)
	dim := color.New(color.FgHiBlack)
	green.Fprintf(os.Stderr, "  ✓ Snapshot %d/%d", stack.Index+1, len(stack.Entries))
	dim.Fprintf(os.Stderr, "  %s, %d files, %s\n", truncate(e.Prompt, 60), len(e.Files), humanize.Time(e.Timestamp))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
