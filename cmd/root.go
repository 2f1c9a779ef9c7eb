package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose bool
	logger  = slog.New(slog.DiscardHandler)
)

var rootCmd = &cobra.Command{
	Use:   "webviber [describe the site you want]",
	Short: "Generate web projects from a conversation",
	Long: `webviber turns plain-English requests into complete web projects.
The model answers with whole files, which are collected as they stream in,
kept in an undo/redo history, and previewed live in the browser.

Examples:
  webviber a landing page for a coffee shop
  webviber chat --serve :8080
  webviber extract reply.txt --out ./site
  webviber serve --device mobile --open`,
	Args: cobra.ArbitraryArgs,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = newLogger(os.Stderr, verbose)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return runGenerate(cmd, args)
	},
	SilenceUsage:               true,
	SilenceErrors:              true,
	SuggestionsMinimumDistance: 1,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print debug diagnostics to stderr")
	addGenerateFlags(rootCmd)

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(undoCmd)
	rootCmd.AddCommand(redoCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(doctorCmd)
}

// SetVersion sets the version reported by --version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute is the entry point called from main.
func Execute() error {
	return rootCmd.Execute()
}
