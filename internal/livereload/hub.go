// Package livereload pushes change notifications to browsers over
// server-sent events and injects the matching client script into pages.
package livereload

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"net/http"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/licht-dev/licht-compile/internal/metrics"
)

// Paths served by the hub and its client script.
const (
	EventsPath = "/__livereload"
	ScriptPath = "/__livereload.js"
)

const heartbeatInterval = 30 * time.Second

// Event is one change notification. Clients reload the page unless CSS is
// set, in which case only stylesheets are refreshed.
type Event struct {
	Hash  string   `json:"hash"`
	Paths []string `json:"paths,omitempty"`
	CSS   bool     `json:"css,omitempty"`
}

// Hub manages SSE clients and fans out change events.
type Hub struct {
	mu       sync.RWMutex
	nextID   int
	clients  map[int]*client
	recorder metrics.Recorder
	closed   bool
	last     Event
}

type client struct {
	id   int
	ch   chan Event
	done chan struct{}
}

// NewHub creates a hub. A nil recorder disables metrics.
func NewHub(rec metrics.Recorder) *Hub {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Hub{
		clients:  map[int]*client{},
		recorder: rec,
		last:     Event{Hash: uuid.NewString()},
	}
}

// ServeHTTP implements the SSE endpoint.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, "livereload shutting down", http.StatusServiceUnavailable)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	c := &client{ch: make(chan Event, 8), done: make(chan struct{})}
	h.mu.Lock()
	c.id = h.nextID
	h.nextID++
	h.clients[c.id] = c
	last := h.last
	h.mu.Unlock()
	defer h.removeClient(c.id)

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(": connected\n\n"); err != nil {
		slog.Debug("livereload write", "error", err)
		return
	}
	// The current hash lets the client establish a baseline without reloading.
	if err := writeEvent(bw, last); err != nil {
		return
	}
	if err := bw.Flush(); err == nil {
		flusher.Flush()
	}

	hb := time.NewTicker(heartbeatInterval)
	defer hb.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-c.done:
			return
		case <-hb.C:
			if _, err := bw.WriteString(": ping\n\n"); err != nil {
				slog.Debug("livereload ping write", "error", err)
				return
			}
		case ev := <-c.ch:
			if err := writeEvent(bw, ev); err != nil {
				slog.Debug("livereload broadcast write", "error", err)
				return
			}
		}
		if err := bw.Flush(); err != nil {
			return
		}
		flusher.Flush()
	}
}

func writeEvent(bw *bufio.Writer, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = bw.WriteString("data: " + string(b) + "\n\n")
	return err
}

func (h *Hub) removeClient(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(c.done)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Reload notifies clients that paths changed. When every path is a
// stylesheet, clients swap stylesheets in place instead of reloading.
func (h *Hub) Reload(paths ...string) {
	css := len(paths) > 0
	for _, p := range paths {
		if path.Ext(p) != ".css" {
			css = false
			break
		}
	}
	h.Broadcast(Event{Hash: uuid.NewString(), Paths: paths, CSS: css})
}

// Broadcast sends ev to all clients. Clients whose buffers are full are
// dropped; the browser reconnects on its own.
func (h *Hub) Broadcast(ev Event) {
	h.mu.Lock()
	if h.closed || ev.Hash == "" || ev.Hash == h.last.Hash {
		h.mu.Unlock()
		return
	}
	h.last = ev
	snapshot := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.Unlock()

	dropped := 0
	for _, c := range snapshot {
		select {
		case c.ch <- ev:
		default:
			dropped++
			h.removeClient(c.id)
		}
	}
	h.recorder.IncReloads()
	slog.Debug("livereload broadcast",
		"hash", ev.Hash,
		"css", ev.CSS,
		"clients", len(snapshot),
		"dropped", dropped)
}

// Shutdown closes all clients and prevents future broadcasts.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.done)
	}
}

// Last returns the most recent event, or the startup baseline.
func (h *Hub) Last() Event {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last
}
