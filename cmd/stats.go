package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/webviber/internal/stats"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show usage statistics and performance metrics",
	Long: `Display a dashboard of your webviber usage: reply counts, success rates,
time to first token, providers, and the files the model writes most.

Data is collected automatically and stored locally in ~/.webviber/stats.json.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := stats.Summarize()
		if err != nil {
			return fmt.Errorf("failed to load stats: %w", err)
		}

		cyan := color.New(color.FgCyan, color.Bold)
		green := color.New(color.FgGreen)
		yellow := color.New(color.FgYellow)
		dim := color.New(color.FgHiBlack)

		cyan.Fprintf(os.Stderr, "\n  📊 webviber stats\n\n")

		if summary.TotalReplies == 0 {
			dim.Fprintln(os.Stderr, "  No data yet. Build something and come back.")
			fmt.Fprintln(os.Stderr)
			return nil
		}

		// Overview
		green.Fprintf(os.Stderr, "  Replies:     ")
		fmt.Fprintf(os.Stderr, "%d total", summary.TotalReplies)
		dim.Fprintf(os.Stderr, "  (%d today, %d this week)\n", summary.TodayCount, summary.ThisWeekCount)

		green.Fprintf(os.Stderr, "  Success:     ")
		if summary.SuccessRate >= 90 {
			fmt.Fprintf(os.Stderr, "%.0f%%\n", summary.SuccessRate)
		} else {
			yellow.Fprintf(os.Stderr, "%.0f%%\n", summary.SuccessRate)
		}

		// Latency
		green.Fprintf(os.Stderr, "  Reply time:  ")
		fmt.Fprintf(os.Stderr, "%dms avg\n", summary.AvgLatencyMs)
		if summary.AvgFirstTokenMs > 0 {
			green.Fprintf(os.Stderr, "  First token: ")
			fmt.Fprintf(os.Stderr, "%dms avg\n", summary.AvgFirstTokenMs)
		}

		green.Fprintf(os.Stderr, "  Output:      ")
		fmt.Fprintf(os.Stderr, "%.1f files per reply", summary.AvgFiles)
		dim.Fprintf(os.Stderr, "  (%s streamed)\n", humanize.Bytes(uint64(summary.TotalBytes)))

		// Provider breakdown
		if len(summary.ProviderBreakdown) > 0 {
			fmt.Fprintln(os.Stderr)
			cyan.Fprintln(os.Stderr, "  Providers")
			for _, name := range sortedKeys(summary.ProviderBreakdown) {
				count := summary.ProviderBreakdown[name]
				pct := float64(count) / float64(summary.TotalReplies) * 100
				bar := strings.Repeat("█", int(pct/5))
				dim.Fprintf(os.Stderr, "  %-10s ", name)
				fmt.Fprintf(os.Stderr, "%s %d (%.0f%%)\n", bar, count, pct)
			}
		}

		// Subcommand breakdown
		if len(summary.SubcmdBreakdown) > 0 {
			fmt.Fprintln(os.Stderr)
			cyan.Fprintln(os.Stderr, "  Subcommands")
			for _, sub := range sortedKeys(summary.SubcmdBreakdown) {
				dim.Fprintf(os.Stderr, "  %-14s ", sub)
				fmt.Fprintf(os.Stderr, "%d\n", summary.SubcmdBreakdown[sub])
			}
		}

		// Top files
		if len(summary.TopPaths) > 0 {
			fmt.Fprintln(os.Stderr)
			cyan.Fprintln(os.Stderr, "  Most Written Files")
			for i, pc := range summary.TopPaths {
				dim.Fprintf(os.Stderr, "  %d. ", i+1)
				fmt.Fprintf(os.Stderr, "%s ", truncate(pc.Path, 50))
				dim.Fprintf(os.Stderr, "(%dx)\n", pc.Count)
			}
		}

		fmt.Fprintln(os.Stderr)
		return nil
	},
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
