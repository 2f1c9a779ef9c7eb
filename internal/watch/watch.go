// Package watch follows a transcript file on disk and hands its full content
// to a callback whenever it settles after a change.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last write before the file is read.
const DefaultDebounce = 200 * time.Millisecond

// Watcher watches one file. The parent directory is watched so editors that
// replace the file by rename are still followed.
type Watcher struct {
	path     string
	debounce time.Duration
	log      *slog.Logger
	fsw      *fsnotify.Watcher
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.log = l }
}

// New starts watching path. The file itself need not exist yet.
func New(path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:     abs,
		debounce: DefaultDebounce,
		log:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(w)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}
	w.fsw = fsw
	return w, nil
}

// Path is the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// Close releases the watcher. It is safe to call more than once, and Run
// returns once the watcher is closed.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run calls fn with the file's content once at start, if the file exists, and
// then after every settled change. Unchanged content is not reported twice.
// Run blocks until ctx is cancelled and closes the watcher before returning.
func (w *Watcher) Run(ctx context.Context, fn func(content string)) error {
	defer w.fsw.Close()

	var last string
	var seen bool
	fire := func() {
		data, err := os.ReadFile(w.path)
		if err != nil {
			if !os.IsNotExist(err) {
				w.log.Warn("read transcript", "path", w.path, "err", err)
			}
			return
		}
		content := string(data)
		if seen && content == last {
			return
		}
		last, seen = content, true
		fn(content)
	}

	fire()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.log.Debug("transcript changed", "op", event.Op.String())
			timer.Reset(w.debounce)

		case <-timer.C:
			fire()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("file watcher error", "err", err)
		}
	}
}
