package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// client is one connected browser tab. Only its write loop writes to conn.
type client struct {
	conn *websocket.Conn

	mu      sync.Mutex
	pending *updateMessage

	wake     chan struct{}
	quit     chan struct{}
	quitOnce sync.Once
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn: conn,
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
	}
}

// queue replaces any undelivered update with m and never blocks. Every
// update carries the whole state, so a slow tab only skips intermediate
// frames. A pending reload survives being replaced.
func (c *client) queue(m updateMessage) {
	c.mu.Lock()
	if c.pending != nil && c.pending.Reload {
		m.Reload = true
	}
	c.pending = &m
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *client) next() (updateMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return updateMessage{}, false
	}
	m := *c.pending
	c.pending = nil
	return m, true
}

func (c *client) stop() {
	c.quitOnce.Do(func() { close(c.quit) })
}

// writeLoop delivers queued updates and pings until a write fails, stop is
// called, or done is closed. It closes the connection on return.
func (c *client) writeLoop(done <-chan struct{}) {
	defer c.conn.Close()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.wake:
			m, ok := c.next()
			if !ok {
				continue
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := writeJSON(c.conn, m); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.quit:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"))
			return
		case <-done:
			return
		}
	}
}

// hub fans preview updates out to every connected browser tab.
type hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
	wg      sync.WaitGroup // one per registered client
}

func newHub() *hub {
	return &hub{clients: map[*client]struct{}{}}
}

// writeJSON encodes v without HTML escaping so file contents arrive verbatim.
func writeJSON(conn *websocket.Conn, v any) error {
	w, err := conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return w.Close()
}

// add registers conn. It reports false once closeAll has run; every client
// it returns must be released with remove.
func (h *hub) add(conn *websocket.Conn) (*client, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	c := newClient(conn)
	h.clients[c] = struct{}{}
	h.wg.Add(1)
	return c, true
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		h.wg.Done()
	}
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// broadcast queues m for every client without waiting on any of them.
func (h *hub) broadcast(m updateMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.queue(m)
	}
}

// closeAll stops accepting clients and sends every tab a going-away close.
func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		c.stop()
	}
}

// wait blocks until every registered client has been removed.
func (h *hub) wait() {
	h.wg.Wait()
}
