package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/webviber/internal/executor"
	"github.com/arin/webviber/internal/extract"
	"github.com/arin/webviber/internal/history"
	"github.com/arin/webviber/internal/preview"
	"github.com/arin/webviber/internal/ui"
)

var (
	extractOut     string
	extractZip     string
	extractPreview bool
	extractJSON    bool
	extractSave    bool
	extractExact   bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [transcript-file]",
	Short: "Extract files from a saved model reply",
	Long: `Read a reply transcript from a file (or stdin) and pull out every
START_FILE / END_FILE block. No model is contacted.

Examples:
  webviber extract reply.txt
  pbpaste | webviber extract --preview > index.html
  webviber extract reply.txt --json | jq '.files[].path'
  webviber extract reply.txt --save --out ./site`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, source, err := readTranscript(args)
		if err != nil {
			return err
		}

		files, partial := extract.Extract(text, nil)
		logger.Debug("extracted", "source", source, "files", len(files), "partial", partial != nil)

		switch {
		case extractJSON:
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(struct {
				Files   []extract.File   `json:"files"`
				Partial *extract.Partial `json:"partial"`
			}{Files: nonNil(files), Partial: partial})

		case extractPreview:
			doc, ok := preview.Compose(files, previewOptions(extractExact))
			if !ok {
				return errors.New("no index.html in the transcript")
			}
			_, err := io.WriteString(os.Stdout, doc)
			return err
		}

		if len(files) == 0 {
			return fmt.Errorf("no complete file blocks found in %s", source)
		}
		ui.FilesTable(os.Stdout, files, partial)
		if partial != nil {
			color.New(color.FgYellow).Fprintf(os.Stderr, "  ⚠ %s was cut off before END_FILE and was skipped\n", partial.Path)
		}

		if extractSave {
			stack, err := history.Load()
			if err != nil {
				return fmt.Errorf("failed to load history: %w", err)
			}
			e := stack.Push("extract "+source, files)
			if err := history.Save(stack); err != nil {
				return fmt.Errorf("failed to save history: %w", err)
			}
			printPosition(stack, e)
		}

		if extractOut != "" {
			if err := writeDir(executor.ExpandHome(extractOut), files); err != nil {
				return err
			}
		}
		if extractZip != "" {
			path, err := writeZip(".", extractZip, files)
			if err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(os.Stderr, "  ✓ Saved %s\n", path)
		}
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVarP(&extractOut, "out", "o", "", "Write the files into this directory")
	extractCmd.Flags().StringVar(&extractZip, "zip", "", "Write the files to <name>.zip")
	extractCmd.Flags().BoolVar(&extractPreview, "preview", false, "Print the composed preview document")
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "Print files and the dangling block as JSON")
	extractCmd.Flags().BoolVar(&extractSave, "save", false, "Record the files as a new history snapshot")
	extractCmd.Flags().BoolVar(&extractExact, "exact", false, "Only use a file named exactly index.html as the preview entry")
}

func readTranscript(args []string) (text, source string, err error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), "stdin", nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", err
	}
	return string(data), args[0], nil
}

func previewOptions(exact bool) preview.Options {
	if exact {
		return preview.Options{Match: preview.MatchExact}
	}
	return preview.Options{Match: preview.MatchSuffix}
}

func nonNil(files []extract.File) []extract.File {
	if files == nil {
		return []extract.File{}
	}
	return files
}
