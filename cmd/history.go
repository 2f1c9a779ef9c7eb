package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/webviber/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the snapshot history",
	RunE: func(cmd *cobra.Command, args []string) error {
		stack, err := history.Load()
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}

		if len(stack.Entries) == 0 {
			fmt.Println("No history yet.")
			return nil
		}

		cyan := color.New(color.FgCyan, color.Bold)
		dim := color.New(color.FgHiBlack)

		start := 0
		if historyLimit > 0 && len(stack.Entries) > historyLimit {
			start = len(stack.Entries) - historyLimit
		}
		for i := start; i < len(stack.Entries); i++ {
			e := stack.Entries[i]
			if i == stack.Index {
				cyan.Printf("→ %2d ", i+1)
			} else {
				dim.Printf("  %2d ", i+1)
			}
			fmt.Printf("%s ", truncate(e.Prompt, 70))
			dim.Printf("(%d files, %s)\n", len(e.Files), humanize.Time(e.Timestamp))
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of snapshots to show")
}
