package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arin/webviber/internal/extract"
	"github.com/arin/webviber/internal/history"
	"github.com/arin/webviber/internal/ui"
)

var errNoProject = errors.New("no project yet: run `webviber generate <prompt>` or `webviber chat` first")

var showRaw bool

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List the files in the current snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := currentFiles()
		if err != nil {
			return err
		}
		ui.FilesTable(os.Stdout, files, nil)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <path>",
	Short: "Print a file from the current snapshot with syntax highlighting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := currentFiles()
		if err != nil {
			return err
		}
		return showFile(files, args[0], showRaw)
	},
}

func init() {
	showCmd.Flags().BoolVar(&showRaw, "raw", false, "Print the content without highlighting")
}

func currentFiles() ([]extract.File, error) {
	stack, err := history.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	files := stack.Files()
	if len(files) == 0 {
		return nil, errNoProject
	}
	return files, nil
}

func showFile(files []extract.File, path string, raw bool) error {
	f, ok := extract.Find(files, path)
	if !ok {
		return fmt.Errorf("no file %q in the current project", path)
	}
	if raw {
		_, err := fmt.Fprintln(os.Stdout, f.Content)
		return err
	}
	return ui.Highlight(os.Stdout, f)
}
