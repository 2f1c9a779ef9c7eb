package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/webviber/internal/executor"
	"github.com/arin/webviber/internal/extract"
	"github.com/arin/webviber/internal/reply"
	"github.com/arin/webviber/internal/ui"
)

var (
	genOut   string
	genZip   string
	genRaw   bool
	genFresh bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <prompt>",
	Short: "Generate or update the project from a single prompt",
	Long: `Send one request to the model and collect the files it writes.

The reply builds on the current history snapshot unless --fresh is given.
A successful reply becomes a new snapshot you can undo.

Examples:
  webviber generate a portfolio site with a dark theme
  webviber generate make the header sticky --out ./site
  webviber generate --fresh a todo app in vanilla js --zip todo`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func addGenerateFlags(c *cobra.Command) {
	c.Flags().StringVarP(&genOut, "out", "o", "", "Write the resulting files into this directory")
	c.Flags().StringVar(&genZip, "zip", "", "Write the resulting project to <name>.zip")
	c.Flags().BoolVar(&genRaw, "raw", false, "Echo the raw reply while it streams")
	c.Flags().BoolVar(&genFresh, "fresh", false, "Start a new project instead of building on the current one")
}

func init() {
	addGenerateFlags(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	s, err := newSession("generate")
	if err != nil {
		return err
	}
	s.raw = genRaw
	s.fresh = genFresh

	prompt := strings.Join(args, " ")
	res, err := s.send(cmd.Context(), prompt)
	printOutcome(os.Stderr, res, err)
	if err != nil {
		if errors.Is(err, reply.ErrNoFiles) {
			return nil
		}
		return err
	}

	return writeOutputs(res.Files, genOut, genZip)
}

// writeOutputs handles the shared --out and --zip flags.
func writeOutputs(files []extract.File, out, zipName string) error {
	if out != "" {
		if err := writeDir(executor.ExpandHome(out), files); err != nil {
			return err
		}
	}
	if zipName != "" {
		sp := ui.NewSpinner("Packing " + zipName + "...")
		sp.Start()
		path, err := writeZip(".", zipName, files)
		if err != nil {
			sp.Fail("Export failed")
			return err
		}
		sp.Success("Saved " + path)
	}
	if out == "" && zipName == "" {
		color.New(color.FgHiBlack).Fprintln(os.Stderr, "  Run `webviber serve --open` to preview or `webviber export <name>` to download.")
	}
	fmt.Fprintln(os.Stderr)
	return nil
}
