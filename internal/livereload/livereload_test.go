package livereload

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/licht-dev/licht-compile/internal/metrics"
)

type countingRecorder struct {
	reloads int
}

func (*countingRecorder) ObserveTaskDuration(string, time.Duration) {}
func (*countingRecorder) IncTaskResult(string, metrics.ResultLabel) {}
func (*countingRecorder) AddFilesWritten(string, int)               {}
func (c *countingRecorder) IncReloads()                             { c.reloads++ }

// readEvent returns the next data event from an SSE stream.
func readEvent(t *testing.T, r *bufio.Reader) Event {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			var ev Event
			require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(data)), &ev))
			return ev
		}
	}
}

func connect(t *testing.T, hub *Hub) *bufio.Reader {
	t.Helper()
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	t.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	return bufio.NewReader(resp.Body)
}

func TestHub_InitialEventIsBaseline(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Shutdown()

	r := connect(t, hub)
	ev := readEvent(t, r)
	assert.Equal(t, hub.Last().Hash, ev.Hash)
	assert.NotEmpty(t, ev.Hash)
}

func TestHub_ReloadBroadcasts(t *testing.T) {
	rec := &countingRecorder{}
	hub := NewHub(rec)
	defer hub.Shutdown()

	r := connect(t, hub)
	baseline := readEvent(t, r)

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)
	hub.Reload("assets/styles/main.css")

	ev := readEvent(t, r)
	assert.NotEqual(t, baseline.Hash, ev.Hash)
	assert.True(t, ev.CSS)
	assert.Equal(t, []string{"assets/styles/main.css"}, ev.Paths)
	assert.Equal(t, 1, rec.reloads)
}

func TestHub_ReloadWithMixedPathsIsFullReload(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Shutdown()

	hub.Reload("assets/styles/main.css", "index.html")
	assert.False(t, hub.Last().CSS)

	hub.Reload()
	assert.False(t, hub.Last().CSS)
}

func TestHub_DuplicateHashIgnored(t *testing.T) {
	rec := &countingRecorder{}
	hub := NewHub(rec)
	defer hub.Shutdown()

	hub.Broadcast(Event{Hash: "one"})
	hub.Broadcast(Event{Hash: "one"})
	hub.Broadcast(Event{})
	assert.Equal(t, 1, rec.reloads)
}

func TestHub_ShutdownRejectsClients(t *testing.T) {
	hub := NewHub(nil)
	hub.Shutdown()
	hub.Shutdown()

	rr := httptest.NewRecorder()
	hub.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, EventsPath, nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	before := hub.Last()
	hub.Reload("index.html")
	assert.Equal(t, before, hub.Last())
}

func TestServeScript(t *testing.T) {
	rr := httptest.NewRecorder()
	ServeScript(rr, httptest.NewRequest(http.MethodGet, ScriptPath, nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "javascript")
	assert.Contains(t, rr.Body.String(), "new EventSource('/__livereload')")
}

func TestInject_HTML(t *testing.T) {
	h := Inject(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Length", "36")
		_, _ = io.WriteString(w, "<html><body><p>hi</p></body></html>\n")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Content-Length"))
	assert.Equal(t, `<html><body><p>hi</p><script src="/__livereload.js"></script></body></html>`+"\n", rr.Body.String())
}

func TestInject_SkipsNonHTML(t *testing.T) {
	h := Inject(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/css")
		_, _ = io.WriteString(w, "body{}</body>")
	}))

	for _, target := range []string{"/assets/styles/main.css", "/about"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, "body{}</body>", rr.Body.String(), target)
	}
}

func TestInject_PreservesErrorStatus(t *testing.T) {
	h := Inject(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/missing.html", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.NotContains(t, rr.Body.String(), ScriptPath)
}
