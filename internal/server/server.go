// Package server serves the live preview: a device-frame shell page, the
// composed document, the raw files, a zip download, and a websocket that
// tells open tabs when to reload.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"path"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/arin/webviber/internal/export"
	"github.com/arin/webviber/internal/extract"
	"github.com/arin/webviber/internal/preview"
)

const (
	shutdownTimeout = 5 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = 20 * time.Second
)

// State is what the server currently shows.
type State struct {
	Files   []extract.File
	Partial *extract.Partial
	// Generating is true while a reply is still streaming.
	Generating bool
}

// Options configures a Server.
type Options struct {
	// Device is the frame used when the shell is opened without ?device=.
	Device preview.Device
	Match  preview.Match
	Logger *slog.Logger
}

// Server is the live preview HTTP server.
type Server struct {
	router   *mux.Router
	upgrader websocket.Upgrader
	hub      *hub
	opts     Options
	log      *slog.Logger

	mu     sync.RWMutex
	state  State
	doc    string
	hasDoc bool
}

type updateMessage struct {
	Type       string           `json:"type"`
	Files      []extract.File   `json:"files"`
	Partial    *extract.Partial `json:"partial"`
	Generating bool             `json:"generating"`
	Preview    bool             `json:"preview"`
	Reload     bool             `json:"reload"`
}

// New creates a server with an empty state.
func New(opts Options) *Server {
	if opts.Device == "" {
		opts.Device = preview.Desktop
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		router: mux.NewRouter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			HandshakeTimeout: 10 * time.Second,
		},
		hub:  newHub(),
		opts: opts,
		log:  logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/", s.handleShell).Methods(http.MethodGet)
	s.router.HandleFunc("/preview", s.handlePreview).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.handleWebSocket)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/files", s.handleFiles).Methods(http.MethodGet)
	api.HandleFunc("/files/{path:.+}", s.handleFile).Methods(http.MethodGet)
	api.HandleFunc("/export.zip", s.handleExport).Methods(http.MethodGet)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Publish replaces the served state and notifies every connected tab.
func (s *Server) Publish(st State) {
	st.Files = extract.Clone(st.Files)
	if st.Partial != nil {
		p := *st.Partial
		st.Partial = &p
	}
	doc, ok := preview.Compose(st.Files, preview.Options{Match: s.opts.Match})

	s.mu.Lock()
	reload := ok != s.hasDoc || doc != s.doc
	s.state = st
	s.doc, s.hasDoc = doc, ok
	msg := s.messageLocked(reload)
	s.mu.Unlock()

	s.log.Debug("publish", "files", len(st.Files), "generating", st.Generating, "reload", reload, "clients", s.hub.count())
	s.hub.broadcast(msg)
}

func (s *Server) messageLocked(reload bool) updateMessage {
	return updateMessage{
		Type:       "update",
		Files:      s.state.Files,
		Partial:    s.state.Partial,
		Generating: s.state.Generating,
		Preview:    s.hasDoc,
		Reload:     reload,
	}
}

func (s *Server) snapshot() (State, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.doc, s.hasDoc
}

// Run listens on addr and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully and closes every websocket.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("preview server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.hub.closeAll()
	s.hub.wait()
	s.log.Info("preview server stopped")
	return err
}

func (s *Server) handleShell(w http.ResponseWriter, r *http.Request) {
	device := s.opts.Device
	if name := r.URL.Query().Get("device"); name != "" {
		d, err := preview.ParseDevice(name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		device = d
	}

	var buf bytes.Buffer
	if err := shellTemplate.Execute(&buf, newShellData(device)); err != nil {
		s.log.Error("render shell", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	_, doc, ok := s.snapshot()
	if !ok {
		http.Error(w, "no index.html generated yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(doc))
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	st, _, _ := s.snapshot()
	files := st.Files
	if files == nil {
		files = []extract.File{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(files); err != nil {
		s.log.Warn("encode files", "err", err)
	}
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	p := mux.Vars(r)["path"]
	st, _, _ := s.snapshot()
	f, ok := extract.Find(st.Files, p)
	if !ok {
		http.Error(w, fmt.Sprintf("no file %q", p), http.StatusNotFound)
		return
	}

	ctype := mime.TypeByExtension(path.Ext(p))
	if ctype == "" {
		ctype = "text/plain; charset=utf-8"
	}
	w.Header().Set("Content-Type", ctype)
	if r.URL.Query().Get("download") != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": export.DownloadName(p)}))
	}
	_, _ = w.Write([]byte(f.Content))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	st, _, _ := s.snapshot()
	if len(st.Files) == 0 {
		http.Error(w, "nothing to export", http.StatusNotFound)
		return
	}

	project := r.URL.Query().Get("name")
	if project == "" {
		project = export.DefaultProjectName
	}
	name, err := export.ArchiveName(project)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := export.Zip(&buf, st.Files); err != nil {
		s.log.Error("zip export", "err", err)
		http.Error(w, "zip failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade", "err", err)
		return
	}

	// Registering under the state lock orders the greeting before any
	// later Publish.
	s.mu.RLock()
	c, ok := s.hub.add(conn)
	if ok {
		c.queue(s.messageLocked(false))
	}
	s.mu.RUnlock()
	if !ok {
		_ = conn.Close()
		return
	}

	done := make(chan struct{})
	written := make(chan struct{})
	go func() {
		defer close(written)
		c.writeLoop(done)
	}()
	defer func() {
		close(done)
		<-written
		s.hub.remove(c)
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// The shell never sends anything; reading just drives pongs and detects close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
