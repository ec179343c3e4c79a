package devserver

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	ferrors "github.com/licht-dev/licht-compile/internal/foundation/errors"
)

// staticHandler serves files from route aliases first and then from the
// first root that contains the requested path.
type staticHandler struct {
	roots   []string
	routes  []route
	adapter *ferrors.HTTPErrorAdapter
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		h.adapter.WriteErrorResponse(w, r, ferrors.NewError(ferrors.CategoryMethodNotAllowed, "method not allowed").
			WithContext("method", r.Method).
			WithSeverity(ferrors.SeverityInfo).
			Build())
		return
	}
	urlPath := path.Clean("/" + r.URL.Path)

	for _, candidate := range h.candidates(urlPath) {
		info, err := os.Stat(candidate)
		if err != nil {
			continue
		}
		if info.IsDir() {
			index := filepath.Join(candidate, "index.html")
			if st, err := os.Stat(index); err != nil || st.IsDir() {
				continue
			}
			// Relative links inside the index need the trailing slash.
			if !strings.HasSuffix(r.URL.Path, "/") {
				http.Redirect(w, r, urlPath+"/", http.StatusMovedPermanently)
				return
			}
			candidate = index
		}
		h.serveFile(w, r, candidate)
		return
	}

	h.adapter.WriteErrorResponse(w, r, ferrors.NewError(ferrors.CategoryNotFound, "not found").
		WithContext("path", urlPath).
		WithSeverity(ferrors.SeverityInfo).
		Build())
}

// candidates lists filesystem paths for urlPath in lookup order: the first
// matching route alias, then every fallback root.
func (h *staticHandler) candidates(urlPath string) []string {
	out := make([]string, 0, len(h.roots)+1)
	for _, rt := range h.routes {
		if rt.prefix == "/" || urlPath == rt.prefix || strings.HasPrefix(urlPath, rt.prefix+"/") {
			rest := strings.TrimPrefix(urlPath, rt.prefix)
			out = append(out, filepath.Join(rt.dir, filepath.FromSlash(rest)))
			break
		}
	}
	for _, root := range h.roots {
		out = append(out, filepath.Join(root, filepath.FromSlash(urlPath)))
	}
	return out
}

func (h *staticHandler) serveFile(w http.ResponseWriter, r *http.Request, name string) {
	f, err := os.Open(name)
	if err != nil {
		h.adapter.WriteErrorResponse(w, r, ferrors.WrapError(err, ferrors.CategoryFileSystem, "open file").
			WithContext("path", r.URL.Path).
			Build())
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		h.adapter.WriteErrorResponse(w, r, ferrors.WrapError(err, ferrors.CategoryFileSystem, "stat file").
			WithContext("path", r.URL.Path).
			Build())
		return
	}
	// Output changes on every rebuild.
	w.Header().Set("Cache-Control", "no-cache, must-revalidate")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
