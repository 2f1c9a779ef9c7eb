package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/webviber/internal/extract"
	"github.com/arin/webviber/internal/server"
	"github.com/arin/webviber/internal/watch"
)

var (
	watchAddr     string
	watchDevice   string
	watchOpen     bool
	watchExact    bool
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch <transcript-file>",
	Short: "Live-preview a transcript file as it is written",
	Long: `Follow a reply transcript on disk and re-extract it on every change.
The preview server shows the files so far and the block still being written.

Examples:
  webviber watch reply.txt --open
  some-llm-cli "build a blog" > reply.txt & webviber watch reply.txt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, ln, err := startPreview(watchAddr, watchDevice, watchExact)
		if err != nil {
			return err
		}
		w, err := watch.New(args[0], watch.WithDebounce(watchDebounce), watch.WithLogger(logger))
		if err != nil {
			ln.Close()
			return err
		}
		defer w.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		serveErr := servePreview(ctx, srv, ln)

		color.New(color.FgCyan, color.Bold).Fprintf(os.Stderr, "\n  👁 Watching %s\n", w.Path())
		announce(ln, watchOpen, false)

		green := color.New(color.FgGreen)
		dim := color.New(color.FgHiBlack)
		var prev []extract.File
		err = w.Run(ctx, func(content string) {
			files, partial := extract.Extract(content, nil)
			srv.Publish(server.State{Files: files, Partial: partial, Generating: partial != nil})

			now := time.Now().Format("15:04:05")
			for _, f := range files {
				if old, ok := extract.Find(prev, f.Path); !ok || old != f {
					dim.Fprintf(os.Stderr, "  [%s] ", now)
					green.Fprintf(os.Stderr, "✓ %s\n", f.Path)
				}
			}
			if partial != nil {
				dim.Fprintf(os.Stderr, "  [%s] writing %s...\n", now, partial.Path)
			}
			prev = files
		})
		if err != nil {
			return err
		}

		if err := <-serveErr; err != nil {
			return fmt.Errorf("preview server: %w", err)
		}
		fmt.Fprintf(os.Stderr, "\n  Stopped watching.\n\n")
		return nil
	},
}

func init() {
	addPreviewFlags(watchCmd, &watchAddr, &watchDevice, &watchOpen, &watchExact)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "Quiet period after a write before re-extracting")
}
