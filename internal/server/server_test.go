package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arin/webviber/internal/extract"
	"github.com/arin/webviber/internal/preview"
)

var site = []extract.File{
	{Path: "index.html", Language: "html", Content: "<html><head></head><body><h1>hi</h1></body></html>"},
	{Path: "style.css", Language: "css", Content: "h1{color:red}"},
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func TestPreview_NotFoundUntilPublished(t *testing.T) {
	s := New(Options{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	if resp, _ := get(t, ts.URL+"/preview"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 before publish, got %d", resp.StatusCode)
	}

	s.Publish(State{Files: site})
	resp, body := get(t, ts.URL+"/preview")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "<style>h1{color:red}</style></head>") {
		t.Errorf("expected inlined css, got %s", body)
	}
}

func TestShell_Devices(t *testing.T) {
	s := New(Options{Device: preview.Mobile})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	_, body := get(t, ts.URL+"/")
	if !strings.Contains(body, "width: 375px") || !strings.Contains(body, "height: 667px") {
		t.Errorf("expected mobile frame by default, got %s", body)
	}

	_, body = get(t, ts.URL+"/?device=tablet")
	if !strings.Contains(body, "width: 768px") {
		t.Errorf("expected tablet frame, got %s", body)
	}

	_, body = get(t, ts.URL+"/?device=desktop")
	if !strings.Contains(body, "width: 100%") {
		t.Errorf("expected full-size frame, got %s", body)
	}

	if resp, _ := get(t, ts.URL+"/?device=watch"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown device, got %d", resp.StatusCode)
	}
}

func TestFilesAPI(t *testing.T) {
	s := New(Options{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	_, body := get(t, ts.URL+"/api/files")
	if strings.TrimSpace(body) != "[]" {
		t.Errorf("expected empty list, got %s", body)
	}

	s.Publish(State{Files: append(site, extract.File{Path: "js/app.js", Language: "javascript", Content: "x()"})})

	_, body = get(t, ts.URL+"/api/files")
	var files []extract.File
	if err := json.Unmarshal([]byte(body), &files); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(files) != 3 {
		t.Errorf("expected 3 files, got %d", len(files))
	}

	resp, body := get(t, ts.URL+"/api/files/js/app.js?download=1")
	if resp.StatusCode != http.StatusOK || body != "x()" {
		t.Errorf("unexpected nested file response %d %q", resp.StatusCode, body)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "app.js") {
		t.Errorf("expected download name app.js, got %q", cd)
	}

	if resp, _ := get(t, ts.URL+"/api/files/missing.js"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestExportZip(t *testing.T) {
	s := New(Options{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	if resp, _ := get(t, ts.URL+"/api/export.zip"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 with no files, got %d", resp.StatusCode)
	}

	s.Publish(State{Files: site})
	resp, body := get(t, ts.URL+"/api/export.zip?name=my+site")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "my-site.zip") {
		t.Errorf("expected my-site.zip, got %q", cd)
	}
	zr, err := zip.NewReader(bytes.NewReader([]byte(body)), int64(len(body)))
	if err != nil {
		t.Fatalf("read zip: %v", err)
	}
	if len(zr.File) != 2 {
		t.Errorf("expected 2 entries, got %d", len(zr.File))
	}
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readUpdate(t *testing.T, conn *websocket.Conn) updateMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg updateMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestWebSocket_BroadcastsUpdates(t *testing.T) {
	s := New(Options{})
	s.Publish(State{Files: site[:1]})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn := dial(t, ts)
	defer conn.Close()

	hello := readUpdate(t, conn)
	if hello.Type != "update" || len(hello.Files) != 1 || !hello.Preview || hello.Reload {
		t.Fatalf("unexpected initial message %+v", hello)
	}

	s.Publish(State{Files: site[:1], Partial: &extract.Partial{Path: "style.css", Content: "h1{"}, Generating: true})
	msg := readUpdate(t, conn)
	if msg.Partial == nil || msg.Partial.Path != "style.css" || !msg.Generating {
		t.Errorf("expected partial style.css, got %+v", msg)
	}
	if msg.Reload {
		t.Error("preview document did not change, expected no reload")
	}

	s.Publish(State{Files: site})
	msg = readUpdate(t, conn)
	if !msg.Reload || len(msg.Files) != 2 {
		t.Errorf("expected reload with 2 files, got %+v", msg)
	}
}

func TestPublish_CopiesState(t *testing.T) {
	s := New(Options{})
	files := extract.Clone(site)
	s.Publish(State{Files: files})
	files[0].Content = "mutated"

	st, doc, _ := s.snapshot()
	if st.Files[0].Content == "mutated" || strings.Contains(doc, "mutated") {
		t.Error("published state should not alias the caller's slice")
	}
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	s := New(Options{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	url := "ws://" + ln.Addr().String() + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readUpdate(t, conn)

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected shutdown error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("expected going-away close, got %v", err)
	}
}

func TestClientQueue_KeepsLatestAndReload(t *testing.T) {
	c := newClient(nil)
	c.queue(updateMessage{Type: "update", Reload: true, Files: site[:1]})
	c.queue(updateMessage{Type: "update", Files: site})

	m, ok := c.next()
	if !ok {
		t.Fatal("expected a pending update")
	}
	if len(m.Files) != 2 {
		t.Errorf("expected the latest update, got %d files", len(m.Files))
	}
	if !m.Reload {
		t.Error("a replaced reload should carry over")
	}
	if _, ok := c.next(); ok {
		t.Error("expected the queue to be empty")
	}
}

func TestPublish_DoesNotWaitForStalledTab(t *testing.T) {
	s := New(Options{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn := dial(t, ts)
	defer conn.Close()
	readUpdate(t, conn)

	// The tab stops reading while large updates pile up.
	big := strings.Repeat("x", 1<<20)
	start := time.Now()
	for i := 0; i < 30; i++ {
		s.Publish(State{Files: []extract.File{{Path: "index.html", Language: "html", Content: big + strconv.Itoa(i)}}})
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("publishing took %v with a stalled tab", elapsed)
	}

	want := big + "29"
	for {
		msg := readUpdate(t, conn)
		if len(msg.Files) == 1 && msg.Files[0].Content == want {
			break
		}
	}
}

func TestHub_AddAfterClose(t *testing.T) {
	h := newHub()
	c, ok := h.add(nil)
	if !ok {
		t.Fatal("expected add before close to succeed")
	}
	h.remove(c)
	h.remove(c)

	h.closeAll()
	if _, ok := h.add(nil); ok {
		t.Error("expected add after close to fail")
	}

	done := make(chan struct{})
	go func() {
		h.wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wait blocked with no registered clients")
	}
}
