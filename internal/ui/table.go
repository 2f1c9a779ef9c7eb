package ui

import (
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/arin/webviber/internal/extract"
)

// FilesTable writes the project's files as a table. A row whose path equals
// partial is marked as still being written.
func FilesTable(w io.Writer, files []extract.File, partial *extract.Partial) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})

	tbl.AppendHeader(table.Row{"#", "Path", "Language", "Lines", "Size"})
	var total int
	for i, f := range files {
		tbl.AppendRow(table.Row{i + 1, f.Path, f.Language, lines(f.Content), humanize.Bytes(uint64(len(f.Content)))})
		total += len(f.Content)
	}
	if partial != nil {
		tbl.AppendRow(table.Row{"…", partial.Path + " (writing)", extract.Language(partial.Path), lines(partial.Content), humanize.Bytes(uint64(len(partial.Content)))})
	}
	tbl.AppendFooter(table.Row{"", "", "", len(files), humanize.Bytes(uint64(total))})
	tbl.Render()
}

func lines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(strings.TrimSuffix(s, "\n"), "\n") + 1
}
