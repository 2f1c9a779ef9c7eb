package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/arin/webviber/internal/extract"
	"github.com/arin/webviber/internal/history"
	"github.com/arin/webviber/internal/reply"
)

func withColor(t *testing.T, on bool) {
	t.Helper()
	orig := color.NoColor
	color.NoColor = !on
	t.Cleanup(func() { color.NoColor = orig })
}

func TestProgress_RotatesMessages(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf)
	p.interval = 10 * time.Millisecond

	p.Start()
	defer p.Stop()
	if got := p.Message(); got != ProgressMessages[0] {
		t.Fatalf("expected first message, got %q", got)
	}

	deadline := time.Now().Add(2 * time.Second)
	for p.Message() == ProgressMessages[0] {
		if time.Now().After(deadline) {
			t.Fatal("message never rotated")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestProgress_ShowsFile(t *testing.T) {
	p := NewProgress(&bytes.Buffer{})
	p.SetFile("index.html", 1500)

	if got := p.Message(); !strings.Contains(got, "writing index.html, 1.5 kB") {
		t.Errorf("unexpected message %q", got)
	}

	p.SetFile("", 0)
	if got := p.Message(); strings.Contains(got, "writing") {
		t.Errorf("expected file cleared, got %q", got)
	}
}

func TestProgress_StopWithoutStart(t *testing.T) {
	p := NewProgress(&bytes.Buffer{})
	p.Stop()
	p.Start()
	p.Stop()
	p.Stop()
}

func TestReporter_PrintsCompletedFiles(t *testing.T) {
	withColor(t, false)
	var buf bytes.Buffer
	r := NewReporter(&buf, nil)

	r.Update(reply.Update{Partial: &extract.Partial{Path: "index.html", Content: "<h"}})
	if buf.Len() != 0 {
		t.Errorf("expected no output for a partial update, got %q", buf.String())
	}

	r.Update(reply.Update{
		Files:     []extract.File{{Path: "index.html", Language: "html", Content: "<h1>hi</h1>"}},
		Completed: []string{"index.html"},
	})
	if got := buf.String(); !strings.Contains(got, "✓ index.html") || !strings.Contains(got, "html, 11 B") {
		t.Errorf("unexpected output %q", got)
	}
}

func TestReporter_UpdatesProgress(t *testing.T) {
	p := NewProgress(&bytes.Buffer{})
	r := NewReporter(&bytes.Buffer{}, p)

	r.Update(reply.Update{Partial: &extract.Partial{Path: "app.js", Content: "console"}})
	if !strings.Contains(p.Message(), "writing app.js") {
		t.Errorf("expected progress to name app.js, got %q", p.Message())
	}
	r.Update(reply.Update{})
	if strings.Contains(p.Message(), "writing") {
		t.Errorf("expected progress file cleared, got %q", p.Message())
	}
}

func TestReporter_Summary(t *testing.T) {
	withColor(t, false)
	var buf bytes.Buffer
	NewReporter(&buf, nil).Summary(&reply.Result{Written: 1, Duration: 1234 * time.Millisecond})
	if got := buf.String(); !strings.Contains(got, "1 file written in 1.2s") {
		t.Errorf("unexpected summary %q", got)
	}
}

func TestHighlight_PlainWhenColorDisabled(t *testing.T) {
	withColor(t, false)
	var buf bytes.Buffer
	if err := Highlight(&buf, extract.File{Path: "a.js", Language: "javascript", Content: "let x = 1;"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != "let x = 1;\n" {
		t.Errorf("expected plain content, got %q", buf.String())
	}
}

func TestHighlight_Colors(t *testing.T) {
	withColor(t, true)
	var buf bytes.Buffer
	if err := Highlight(&buf, extract.File{Path: "a.js", Language: "javascript", Content: "let x = 1;"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("expected ANSI escapes, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "let") {
		t.Errorf("expected content preserved, got %q", buf.String())
	}
}

func TestHighlight_PlaintextIsNotColored(t *testing.T) {
	withColor(t, true)
	var buf bytes.Buffer
	Highlight(&buf, extract.File{Path: "NOTES", Language: extract.Plaintext, Content: "hello"})
	if buf.String() != "hello\n" {
		t.Errorf("expected plain output, got %q", buf.String())
	}
}

func TestFilesTable(t *testing.T) {
	var buf bytes.Buffer
	FilesTable(&buf, []extract.File{
		{Path: "index.html", Language: "html", Content: "<p>\n</p>\n"},
		{Path: "style.css", Language: "css", Content: "body{}"},
	}, &extract.Partial{Path: "app.js", Content: "x"})

	out := buf.String()
	for _, want := range []string{"index.html", "style.css", "app.js (writing)", "javascript", "html"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in table:\n%s", want, out)
		}
	}
}

func TestLines(t *testing.T) {
	tests := map[string]int{"": 0, "a": 1, "a\n": 1, "a\nb": 2}
	for in, want := range tests {
		if got := lines(in); got != want {
			t.Errorf("lines(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestRenderDiff(t *testing.T) {
	withColor(t, false)
	prev := []extract.File{{Path: "index.html", Content: "1\n2\n3\n4\n5\n6\n7\nold\n"}}
	next := []extract.File{
		{Path: "index.html", Content: "1\n2\n3\n4\n5\n6\n7\nnew\n"},
		{Path: "app.js", Content: "x()"},
	}

	var buf bytes.Buffer
	RenderDiff(&buf, history.Diff(prev, next))
	out := buf.String()

	for _, want := range []string{"~ index.html", "- old", "+ new", "+ app.js", "+ x()", "  ...", "  6", "  7"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in diff:\n%s", want, out)
		}
	}
	if strings.Contains(out, "  1\n") {
		t.Errorf("expected leading context elided:\n%s", out)
	}
}

func TestRenderDiff_NoChanges(t *testing.T) {
	withColor(t, false)
	var buf bytes.Buffer
	RenderDiff(&buf, nil)
	if !strings.Contains(buf.String(), "No changes") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestContextLines(t *testing.T) {
	lines := []string{"a", "b", "c", "d", "e", "f"}

	head, tail, elided := contextLines(lines, true, true)
	if len(head) != 2 || len(tail) != 2 || !elided {
		t.Errorf("expected 2+2 elided, got %v %v %v", head, tail, elided)
	}

	head, tail, elided = contextLines(lines, false, true)
	if head != nil || len(tail) != 2 || tail[0] != "e" || !elided {
		t.Errorf("expected only trailing context, got %v %v %v", head, tail, elided)
	}

	head, _, elided = contextLines(lines[:3], true, true)
	if len(head) != 3 || elided {
		t.Errorf("short runs are kept whole, got %v %v", head, elided)
	}
}
