package history

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arin/webviber/internal/extract"
)

func setupTestDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	return dir
}

func files(contents ...string) []extract.File {
	var out []extract.File
	for i, c := range contents {
		out = append(out, extract.File{Path: string(rune('a'+i)) + ".js", Language: "javascript", Content: c})
	}
	return out
}

func TestPush_MovesCursorToEnd(t *testing.T) {
	s := New()
	if _, ok := s.Current(); ok {
		t.Fatal("expected empty stack to have no current entry")
	}

	s.Push("one", files("1"))
	s.Push("two", files("2"))

	cur, ok := s.Current()
	if !ok || cur.Prompt != "two" {
		t.Fatalf("expected current 'two', got %+v", cur)
	}
	if s.Index != 1 || len(s.Entries) != 2 {
		t.Errorf("expected index 1 of 2, got %d of %d", s.Index, len(s.Entries))
	}
	if cur.ID == s.Entries[0].ID {
		t.Error("expected distinct entry IDs")
	}
}

func TestPush_CopiesFiles(t *testing.T) {
	s := New()
	f := files("original")
	s.Push("p", f)
	f[0].Content = "mutated"

	if got := s.Files()[0].Content; got != "original" {
		t.Errorf("expected snapshot to be isolated, got %q", got)
	}
}

func TestUndoRedo(t *testing.T) {
	s := New()
	s.Push("one", files("1"))
	s.Push("two", files("2"))
	s.Push("three", files("3"))

	e, ok := s.Undo()
	if !ok || e.Prompt != "two" {
		t.Fatalf("expected undo to 'two', got %+v", e)
	}
	e, ok = s.Undo()
	if !ok || e.Prompt != "one" {
		t.Fatalf("expected undo to 'one', got %+v", e)
	}
	if _, ok := s.Undo(); ok {
		t.Error("undo past the first snapshot should fail")
	}

	e, ok = s.Redo()
	if !ok || e.Prompt != "two" {
		t.Fatalf("expected redo to 'two', got %+v", e)
	}
	s.Redo()
	if _, ok := s.Redo(); ok {
		t.Error("redo past the last snapshot should fail")
	}
}

func TestPush_AfterUndoDropsRedoTail(t *testing.T) {
	s := New()
	s.Push("one", files("1"))
	s.Push("two", files("2"))
	s.Push("three", files("3"))
	s.Undo()
	s.Undo()

	s.Push("branch", files("b"))

	if len(s.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(s.Entries))
	}
	if s.Entries[1].Prompt != "branch" {
		t.Errorf("expected 'branch' at the end, got %q", s.Entries[1].Prompt)
	}
	if s.CanRedo() {
		t.Error("expected no redo after a new push")
	}
}

func TestPush_TrimsToMaxEntries(t *testing.T) {
	s := New()
	for i := 0; i < maxEntries+10; i++ {
		s.Push("p", files("x"))
	}
	if len(s.Entries) != maxEntries {
		t.Errorf("expected %d entries, got %d", maxEntries, len(s.Entries))
	}
	if s.Index != maxEntries-1 {
		t.Errorf("expected cursor at the end, got %d", s.Index)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := setupTestDir(t)

	s := New()
	s.Push("one", files("1"))
	s.Push("two", files("2"))
	s.Undo()
	if err := Save(s); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, ".webviber", fileName))
	if err != nil {
		t.Fatalf("history file not written: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected 0600 permissions, got %o", info.Mode().Perm())
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Index != 0 || len(loaded.Entries) != 2 {
		t.Fatalf("expected index 0 of 2, got %d of %d", loaded.Index, len(loaded.Entries))
	}
	if !extract.Equal(loaded.Files(), files("1")) {
		t.Errorf("unexpected files %+v", loaded.Files())
	}
	if loaded.Entries[1].ID != s.Entries[1].ID {
		t.Error("expected IDs to survive a round trip")
	}
}

func TestLoad_NoFile(t *testing.T) {
	setupTestDir(t)

	s, err := Load()
	if err != nil {
		t.Fatalf("Load on missing file should not error: %v", err)
	}
	if s.Index != -1 || len(s.Entries) != 0 {
		t.Errorf("expected empty stack, got %+v", s)
	}
}

func TestLoad_CorruptFile(t *testing.T) {
	dir := setupTestDir(t)
	os.MkdirAll(filepath.Join(dir, ".webviber"), 0o700)
	os.WriteFile(filepath.Join(dir, ".webviber", fileName), []byte("{not json"), 0o600)

	if _, err := Load(); err == nil {
		t.Fatal("expected error for corrupt history")
	}
}

func TestLoad_ClampsIndex(t *testing.T) {
	dir := setupTestDir(t)
	os.MkdirAll(filepath.Join(dir, ".webviber"), 0o700)
	os.WriteFile(filepath.Join(dir, ".webviber", fileName), []byte(`{"entries":[{"prompt":"a"}],"index":7}`), 0o600)

	s, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Index != 0 {
		t.Errorf("expected index clamped to 0, got %d", s.Index)
	}
}
