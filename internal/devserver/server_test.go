package devserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/licht-dev/licht-compile/internal/foundation/errors"
	"github.com/licht-dev/licht-compile/internal/livereload"
	"github.com/licht-dev/licht-compile/internal/metrics"
)

type site struct {
	temp, dist, public, modules string
}

func newSite(t *testing.T) site {
	t.Helper()
	root := t.TempDir()
	s := site{
		temp:    filepath.Join(root, "temp"),
		dist:    filepath.Join(root, "dist"),
		public:  filepath.Join(root, "public"),
		modules: filepath.Join(root, "node_modules"),
	}
	write := func(p, content string) {
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	write(filepath.Join(s.temp, "index.html"), "<html><body>temp</body></html>")
	write(filepath.Join(s.dist, "index.html"), "<html><body>dist</body></html>")
	write(filepath.Join(s.dist, "assets/images/logo.svg"), "<svg/>")
	write(filepath.Join(s.public, "robots.txt"), "User-agent: *")
	write(filepath.Join(s.public, "docs/index.html"), "<html><body>docs</body></html>")
	write(filepath.Join(s.modules, "lib/lib.js"), "lib()")
	return s
}

func (s site) server(hub *livereload.Hub, reg *prom.Registry) *Server {
	return New(Options{
		Roots:    []string{s.temp, s.dist, s.public},
		Routes:   map[string]string{"/node_modules": s.modules},
		Hub:      hub,
		Registry: reg,
	})
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func TestHandler_FallbackRoots(t *testing.T) {
	h := newSite(t).server(nil, nil).Handler()

	rr := get(t, h, "/")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "temp")
	assert.Equal(t, "no-cache, must-revalidate", rr.Header().Get("Cache-Control"))

	rr = get(t, h, "/assets/images/logo.svg")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "<svg/>", rr.Body.String())

	rr = get(t, h, "/robots.txt")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "User-agent: *", rr.Body.String())
}

func TestHandler_DirectoryIndex(t *testing.T) {
	h := newSite(t).server(nil, nil).Handler()

	rr := get(t, h, "/docs")
	assert.Equal(t, http.StatusMovedPermanently, rr.Code)
	assert.Equal(t, "/docs/", rr.Header().Get("Location"))

	rr = get(t, h, "/docs/")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "docs")
}

func TestHandler_RouteAlias(t *testing.T) {
	h := newSite(t).server(nil, nil).Handler()

	rr := get(t, h, "/node_modules/lib/lib.js")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "lib()", rr.Body.String())
}

func TestHandler_NotFound(t *testing.T) {
	h := newSite(t).server(nil, nil).Handler()

	rr := get(t, h, "/missing.css")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	var body ferrors.HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, string(ferrors.CategoryNotFound), body.Code)
}

func TestHandler_TraversalStaysInsideRoots(t *testing.T) {
	s := newSite(t)

	// The mux cleans the path and redirects before the static handler runs.
	rr := get(t, s.server(nil, nil).Handler(), "/../../etc/passwd")
	assert.Equal(t, http.StatusMovedPermanently, rr.Code)
	assert.Equal(t, "/etc/passwd", rr.Header().Get("Location"))

	h := &staticHandler{
		roots:   []string{s.temp, s.dist, s.public},
		adapter: ferrors.NewHTTPErrorAdapter(nil),
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.URL.Path = "/../../etc/passwd"
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_RejectsWrites(t *testing.T) {
	h := newSite(t).server(nil, nil).Handler()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/index.html", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "GET, HEAD", rr.Header().Get("Allow"))
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body ferrors.HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, string(ferrors.CategoryMethodNotAllowed), body.Code)
}

func TestHandler_RouteAliasFallsThroughToRoots(t *testing.T) {
	s := newSite(t)
	p := filepath.Join(s.public, "node_modules", "shim.js")
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("shim()"), 0o644))
	h := s.server(nil, nil).Handler()

	rr := get(t, h, "/node_modules/shim.js")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "shim()", rr.Body.String())

	rr = get(t, h, "/node_modules/lib/lib.js")
	assert.Equal(t, "lib()", rr.Body.String())
}

func TestHandler_LiveReloadInjection(t *testing.T) {
	hub := livereload.NewHub(nil)
	defer hub.Shutdown()
	h := newSite(t).server(hub, nil).Handler()

	rr := get(t, h, "/")
	assert.Contains(t, rr.Body.String(), `<script src="/__livereload.js"></script></body>`)

	rr = get(t, h, livereload.ScriptPath)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "EventSource")

	rr = get(t, h, "/robots.txt")
	assert.NotContains(t, rr.Body.String(), "__livereload")
}

func TestHandler_HealthAndMetrics(t *testing.T) {
	reg := prom.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)
	rec.IncReloads()
	h := newSite(t).server(nil, reg).Handler()

	rr := get(t, h, HealthPath)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())

	rr = get(t, h, MetricsPath)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "licht_livereload_broadcasts_total")
}

func TestHandler_RecoversPanics(t *testing.T) {
	s := New(Options{})
	h := chain(s.logger, s.errorAdapter)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := get(t, h, "/")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "internal server error")
}

func TestServer_StartStop(t *testing.T) {
	st := newSite(t)
	s := New(Options{Host: "127.0.0.1", Roots: []string{st.temp}})

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Start(ctx))
	require.NotZero(t, s.Port())
	require.Error(t, s.Start(ctx))

	resp, err := http.Get("http://" + s.Addr().String() + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Contains(t, string(body), "temp")

	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))
}

func TestServer_StartFailsOnBusyPort(t *testing.T) {
	first := New(Options{Host: "127.0.0.1"})
	require.NoError(t, first.Start(t.Context()))
	defer func() { _ = first.Stop(context.Background()) }()

	second := New(Options{Host: "127.0.0.1", Port: first.Port()})
	err := second.Start(t.Context())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryServer))
}
