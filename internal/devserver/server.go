// Package devserver serves the working site during development: compiled
// output first, then built assets, then public files, with live reload.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	ferrors "github.com/licht-dev/licht-compile/internal/foundation/errors"
	"github.com/licht-dev/licht-compile/internal/livereload"
	"github.com/licht-dev/licht-compile/internal/logfields"
	"github.com/licht-dev/licht-compile/internal/metrics"
)

// Internal endpoints.
const (
	HealthPath  = "/__licht/health"
	MetricsPath = "/__licht/metrics"
)

// Options configures a Server.
type Options struct {
	// Host to bind. Empty binds all interfaces.
	Host string
	// Port to bind. Zero picks a free port.
	Port int
	// Roots are searched in order for each request path.
	Roots []string
	// Routes maps URL prefixes to directories and take precedence over Roots.
	Routes map[string]string
	// Hub enables live reload when set.
	Hub *livereload.Hub
	// Registry backs the metrics endpoint when set.
	Registry *prom.Registry
	Logger   *slog.Logger
}

// Server is the development HTTP server.
type Server struct {
	opts         Options
	logger       *slog.Logger
	errorAdapter *ferrors.HTTPErrorAdapter

	mu   sync.Mutex
	srv  *http.Server
	addr net.Addr
}

// New constructs a server. Call Start to begin serving.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		opts:         opts,
		logger:       logger,
		errorAdapter: ferrors.NewHTTPErrorAdapter(logger),
	}
}

// Handler returns the full handler tree including middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	if s.opts.Registry != nil {
		mux.Handle(MetricsPath, metrics.HTTPHandler(s.opts.Registry))
	}

	var site http.Handler = &staticHandler{
		roots:   s.opts.Roots,
		routes:  sortedRoutes(s.opts.Routes),
		adapter: s.errorAdapter,
	}
	if s.opts.Hub != nil {
		mux.Handle(livereload.EventsPath, s.opts.Hub)
		mux.HandleFunc(livereload.ScriptPath, livereload.ServeScript)
		site = livereload.Inject(site)
	}
	mux.Handle("/", site)

	return chain(s.logger, s.errorAdapter)(mux)
}

// Start binds the listener and serves in the background. Binding happens
// before Start returns so a busy port fails fast.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return ferrors.ServerError("dev server already started").Build()
	}

	addr := net.JoinHostPort(s.opts.Host, fmt.Sprint(s.opts.Port))
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryServer, "bind dev server").
			WithContext("addr", addr).
			Fatal().
			Build()
	}

	// No write timeout: live reload streams stay open.
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       300 * time.Second,
	}
	s.addr = ln.Addr()
	port := ln.Addr().(*net.TCPAddr).Port

	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Dev server stopped", logfields.Error(err))
		}
	}(s.srv)

	s.logger.Info("Dev server listening",
		slog.String("url", "http://"+net.JoinHostPort(displayHost(s.opts.Host), fmt.Sprint(port))),
		logfields.Port(port))
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Port returns the bound port, or 0 before Start.
func (s *Server) Port() int {
	if tcp, ok := s.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}

// Stop closes live reload clients and shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if s.opts.Hub != nil {
		s.opts.Hub.Shutdown()
	}
	if err := srv.Shutdown(ctx); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryServer, "dev server shutdown").Build()
	}
	return nil
}

func displayHost(h string) string {
	if h == "" || h == "0.0.0.0" || h == "::" {
		return "localhost"
	}
	return h
}

type route struct {
	prefix string
	dir    string
}

// sortedRoutes orders routes longest prefix first.
func sortedRoutes(m map[string]string) []route {
	out := make([]route, 0, len(m))
	for prefix, dir := range m {
		prefix = "/" + strings.Trim(prefix, "/")
		out = append(out, route{prefix: prefix, dir: dir})
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].prefix) != len(out[j].prefix) {
			return len(out[i].prefix) > len(out[j].prefix)
		}
		return out[i].prefix < out[j].prefix
	})
	return out
}
