package ui

import (
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/arin/webviber/internal/extract"
	"github.com/arin/webviber/internal/reply"
)

// Reporter turns reply updates into terminal output: a check line per
// completed file and the in-progress file on the progress spinner.
type Reporter struct {
	out      io.Writer
	progress *Progress
}

// NewReporter creates a reporter. progress may be nil.
func NewReporter(out io.Writer, progress *Progress) *Reporter {
	return &Reporter{out: out, progress: progress}
}

// Update handles one reply update.
func (r *Reporter) Update(u reply.Update) {
	if r.progress != nil {
		if u.Partial != nil {
			r.progress.SetFile(u.Partial.Path, len(u.Partial.Content))
		} else {
			r.progress.SetFile("", 0)
		}
	}
	if len(u.Completed) == 0 {
		return
	}

	emit := func() {
		green := color.New(color.FgGreen)
		dim := color.New(color.FgHiBlack)
		for _, p := range u.Completed {
			f, _ := extract.Find(u.Files, p)
			green.Fprintf(r.out, "  ✓ %s", p)
			dim.Fprintf(r.out, "  %s, %s\n", f.Language, humanize.Bytes(uint64(len(f.Content))))
		}
	}
	if r.progress != nil {
		r.progress.Pause(emit)
		return
	}
	emit()
}

// Summary prints the closing line for a finished reply.
func (r *Reporter) Summary(res *reply.Result) {
	dim := color.New(color.FgHiBlack)
	dim.Fprintf(r.out, "  %d %s written in %s\n", res.Written, plural(res.Written, "file", "files"), res.Duration.Round(100*time.Millisecond))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
