package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/webviber/internal/executor"
	"github.com/arin/webviber/internal/export"
	"github.com/arin/webviber/internal/extract"
	"github.com/arin/webviber/internal/ui"
)

var (
	exportDir string
	exportOut string
)

var exportCmd = &cobra.Command{
	Use:   "export [project-name]",
	Short: "Download the current project as a zip archive",
	Long: `Write the current snapshot to <project-name>.zip. Whitespace in the name
becomes dashes. With --out the files are written into a directory instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := currentFiles()
		if err != nil {
			return err
		}

		if exportOut != "" {
			return writeDir(executor.ExpandHome(exportOut), files)
		}

		name := export.DefaultProjectName
		if len(args) == 1 {
			name = args[0]
		}
		sp := ui.NewSpinner("Packing " + name + "...")
		sp.Start()
		path, err := writeZip(executor.ExpandHome(exportDir), name, files)
		if err != nil {
			sp.Fail("Export failed")
			return err
		}
		sp.Success(fmt.Sprintf("Saved %s (%d files)", path, len(files)))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportDir, "dir", "d", ".", "Directory to save the archive in")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Write the files into this directory instead of a zip")
}

func writeZip(dir, project string, files []extract.File) (string, error) {
	name, err := export.ArchiveName(project)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("zip failed: %w", err)
	}
	if err := export.Zip(f, files); err != nil {
		f.Close()
		return "", fmt.Errorf("zip failed: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("zip failed: %w", err)
	}
	return path, nil
}

func writeDir(dir string, files []extract.File) error {
	written, err := export.WriteDir(dir, files)
	green := color.New(color.FgGreen)
	dim := color.New(color.FgHiBlack)
	for _, w := range written {
		switch w.Status {
		case export.Unchanged:
			dim.Fprintf(os.Stderr, "  = %s (unchanged)\n", w.Path)
		default:
			green.Fprintf(os.Stderr, "  ✓ %s", w.Path)
			dim.Fprintf(os.Stderr, " (%s)\n", w.Status)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to write files: %w", err)
	}
	return nil
}
