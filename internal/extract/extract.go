// Package extract pulls generated files out of a streamed model reply.
//
// The model writes each file as a block:
//
//	START_FILE: path/to/file.ext
//	...content...
//	END_FILE
//
// Extract re-scans the whole buffer on every call, so it can be invoked once
// per received chunk and always returns the same result for the same input.
package extract

import (
	"regexp"
	"strings"
)

const (
	startMarker = "START_FILE: "
	endMarker   = "END_FILE"
)

// File is a completed file block. Path is the unique key.
type File struct {
	Path     string `json:"path"`
	Language string `json:"language"`
	Content  string `json:"content"`
}

// Partial is a file block whose start marker has arrived but whose end
// marker has not. Content is kept exactly as received.
type Partial struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

var (
	// The identifier stops at the first newline; the body is the shortest run
	// that reaches the next END_FILE. A literal END_FILE inside a file's own
	// content ends the block early.
	blockRe = regexp.MustCompile(regexp.QuoteMeta(startMarker) + `(.*?)\n((?s:.*?))` + endMarker)

	// openRe matches a start line with everything after it, used on the tail
	// of the buffer that follows the last completed block.
	openRe = regexp.MustCompile(regexp.QuoteMeta(startMarker) + `(.*?)\n((?s:.*))`)
)

// Extract merges every completed block in buffer into a copy of previous and
// reports the dangling block at the end of the buffer, if any.
//
// A path seen again replaces the earlier entry in place, keeping its
// position. previous is never modified.
func Extract(buffer string, previous []File) ([]File, *Partial) {
	files := Clone(previous)

	lastIndex := 0
	for _, m := range blockRe.FindAllStringSubmatchIndex(buffer, -1) {
		path := strings.TrimSpace(buffer[m[2]:m[3]])
		content := strings.TrimSpace(buffer[m[4]:m[5]])
		files = upsert(files, File{Path: path, Language: Language(path), Content: content})
		lastIndex = m[1]
	}

	var partial *Partial
	if m := openRe.FindStringSubmatch(buffer[lastIndex:]); m != nil {
		partial = &Partial{Path: strings.TrimSpace(m[1]), Content: m[2]}
	}

	return files, partial
}

func upsert(files []File, f File) []File {
	for i := range files {
		if files[i].Path == f.Path {
			files[i] = f
			return files
		}
	}
	return append(files, f)
}

// Clone returns a copy of files that shares no backing array with it.
func Clone(files []File) []File {
	if files == nil {
		return nil
	}
	out := make([]File, len(files))
	copy(out, files)
	return out
}

// Find returns the file with the given path.
func Find(files []File, path string) (File, bool) {
	for _, f := range files {
		if f.Path == path {
			return f, true
		}
	}
	return File{}, false
}

// Equal reports whether a and b hold the same files in the same order.
func Equal(a, b []File) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var blankRunRe = regexp.MustCompile(`\n{3,}`)

// Prose returns the reply text with every file block removed, including a
// dangling one at the end. It is what the model said around the files.
func Prose(buffer string) string {
	text := blockRe.ReplaceAllString(buffer, "")
	if loc := openRe.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.TrimSpace(blankRunRe.ReplaceAllString(text, "\n\n"))
}
