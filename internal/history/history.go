// Package history keeps the undo/redo stack of project snapshots.
// The stack is stored as a JSON file in the user's config directory.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arin/webviber/internal/config"
	"github.com/arin/webviber/internal/extract"
)

const (
	fileName   = "history.json"
	maxEntries = 50
)

// fileMu guards concurrent access to the history file.
var fileMu sync.Mutex

// Entry is one completed reply's file set.
type Entry struct {
	ID        uuid.UUID      `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Prompt    string         `json:"prompt"`
	Files     []extract.File `json:"files"`
}

// Stack is an ordered list of snapshots with a cursor. Index is -1 when empty.
type Stack struct {
	Entries []Entry `json:"entries"`
	Index   int     `json:"index"`
}

// New returns an empty stack.
func New() *Stack {
	return &Stack{Index: -1}
}

// Push records files as the newest snapshot. Anything after the cursor is
// discarded first, so a push after an undo drops the redo tail.
func (s *Stack) Push(prompt string, files []extract.File) Entry {
	e := Entry{
		ID:        uuid.New(),
		Timestamp: time.Now(),
		Prompt:    prompt,
		Files:     extract.Clone(files),
	}

	s.Entries = append(s.Entries[:s.Index+1], e)
	if len(s.Entries) > maxEntries {
		s.Entries = s.Entries[len(s.Entries)-maxEntries:]
	}
	s.Index = len(s.Entries) - 1
	return e
}

// Current returns the entry under the cursor.
func (s *Stack) Current() (Entry, bool) {
	if s.Index < 0 || s.Index >= len(s.Entries) {
		return Entry{}, false
	}
	return s.Entries[s.Index], true
}

// Files returns a copy of the current file set, or nil for an empty stack.
func (s *Stack) Files() []extract.File {
	e, ok := s.Current()
	if !ok {
		return nil
	}
	return extract.Clone(e.Files)
}

// CanUndo reports whether Undo would move the cursor.
func (s *Stack) CanUndo() bool { return s.Index > 0 }

// CanRedo reports whether Redo would move the cursor.
func (s *Stack) CanRedo() bool { return s.Index < len(s.Entries)-1 }

// Undo steps back one snapshot. The first snapshot is never undone.
func (s *Stack) Undo() (Entry, bool) {
	if !s.CanUndo() {
		return Entry{}, false
	}
	s.Index--
	return s.Current()
}

// Redo steps forward one snapshot.
func (s *Stack) Redo() (Entry, bool) {
	if !s.CanRedo() {
		return Entry{}, false
	}
	s.Index++
	return s.Current()
}

func historyPath() string {
	return filepath.Join(config.Dir(), fileName)
}

// Save writes the stack to the history file.
func Save(s *Stack) error {
	fileMu.Lock()
	defer fileMu.Unlock()

	if err := os.MkdirAll(config.Dir(), 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(historyPath(), data, 0o600)
}

// Load reads the stack from the history file. A missing file is an empty stack.
func Load() (*Stack, error) {
	fileMu.Lock()
	defer fileMu.Unlock()

	data, err := os.ReadFile(historyPath())
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, err
	}

	s := New()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("corrupt history file %s: %w", historyPath(), err)
	}
	if s.Index >= len(s.Entries) || s.Index < -1 {
		s.Index = len(s.Entries) - 1
	}
	return s, nil
}
