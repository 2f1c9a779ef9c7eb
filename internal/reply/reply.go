// Package reply drives one streamed model reply: it accumulates the text,
// re-extracts files after every chunk, and reports progress to the caller.
//
// A reply is owned by a single goroutine for its whole life. If it fails or
// is abandoned, everything accumulated for it is dropped.
package reply

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/arin/webviber/internal/ai"
	"github.com/arin/webviber/internal/extract"
)

// ErrNoFiles is returned when a reply completes without a single file block.
var ErrNoFiles = errors.New("sorry, I couldn't generate any files from that. Could you try rephrasing?")

// Update is the state after one chunk has been applied.
type Update struct {
	// Buffer is the full reply text received so far.
	Buffer string
	// Files is the merged file list after this chunk.
	Files []extract.File
	// Partial is the block still being written, if any.
	Partial *extract.Partial
	// Changed is true when Files differs from the previous update.
	Changed bool
	// Completed lists paths whose blocks closed in this chunk.
	Completed []string
	// Chunk is the 1-based index of the chunk.
	Chunk int
}

// Result is a finished reply.
type Result struct {
	Transcript string
	Files      []extract.File
	// Written counts the distinct files this reply itself emitted. A
	// conversational reply on top of an existing project has none.
	Written    int
	Chunks     int
	// FirstToken is the delay until the first non-empty chunk.
	FirstToken time.Duration
	Duration   time.Duration
}

// Run consumes stream until it completes, fails, or ctx is cancelled.
// base is the file set the reply builds on; it is never modified.
// onUpdate, if non-nil, is called synchronously after every non-empty chunk.
//
// A reply that completes with no files at all returns ErrNoFiles together
// with its Result, so the caller can still show what the model said.
func Run(ctx context.Context, stream <-chan ai.StreamDelta, base []extract.File, onUpdate func(Update)) (*Result, error) {
	start := time.Now()

	var (
		buf        strings.Builder
		files      = extract.Clone(base)
		chunks     int
		firstToken time.Duration
	)

	for {
		var (
			delta ai.StreamDelta
			ok    bool
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case delta, ok = <-stream:
		}

		if !ok || delta.Done {
			break
		}
		if delta.Err != nil {
			return nil, delta.Err
		}
		if delta.Token == "" {
			continue
		}

		chunks++
		if chunks == 1 {
			firstToken = time.Since(start)
		}
		buf.WriteString(delta.Token)

		next, partial := extract.Extract(buf.String(), files)
		u := Update{
			Buffer:    buf.String(),
			Files:     next,
			Partial:   partial,
			Changed:   !extract.Equal(next, files),
			Completed: completed(files, next),
			Chunk:     chunks,
		}
		files = next
		if onUpdate != nil {
			onUpdate(u)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	final, _ := extract.Extract(buf.String(), base)
	fresh, _ := extract.Extract(buf.String(), nil)

	res := &Result{
		Transcript: buf.String(),
		Files:      final,
		Written:    len(fresh),
		Chunks:     chunks,
		FirstToken: firstToken,
		Duration:   time.Since(start),
	}
	if len(final) == 0 {
		return res, ErrNoFiles
	}
	return res, nil
}

// completed lists paths that are new or whose content changed between prev and next.
func completed(prev, next []extract.File) []string {
	var out []string
	for _, f := range next {
		old, ok := extract.Find(prev, f.Path)
		if !ok || old != f {
			out = append(out, f.Path)
		}
	}
	return out
}
