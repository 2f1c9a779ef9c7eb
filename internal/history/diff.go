package history

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/arin/webviber/internal/extract"
)

// ChangeKind classifies a file between two snapshots.
type ChangeKind string

const (
	Added    ChangeKind = "added"
	Removed  ChangeKind = "removed"
	Modified ChangeKind = "modified"
)

// FileDiff is the line diff of one path.
type FileDiff struct {
	Path    string
	Kind    ChangeKind
	Diffs   []diffmatchpatch.Diff
	Added   int
	Removed int
}

// Diff compares two file sets line by line. Unchanged files are omitted.
// Results follow the order of next, then removed paths in the order of prev.
func Diff(prev, next []extract.File) []FileDiff {
	var out []FileDiff

	for _, f := range next {
		old, ok := extract.Find(prev, f.Path)
		switch {
		case !ok:
			out = append(out, lineDiff(f.Path, Added, "", f.Content))
		case old.Content != f.Content:
			out = append(out, lineDiff(f.Path, Modified, old.Content, f.Content))
		}
	}
	for _, f := range prev {
		if _, ok := extract.Find(next, f.Path); !ok {
			out = append(out, lineDiff(f.Path, Removed, f.Content, ""))
		}
	}

	return out
}

func lineDiff(path string, kind ChangeKind, a, b string) FileDiff {
	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	fd := FileDiff{Path: path, Kind: kind, Diffs: diffs}
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			fd.Added += lineCount(d.Text)
		case diffmatchpatch.DiffDelete:
			fd.Removed += lineCount(d.Text)
		}
	}
	return fd
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}
