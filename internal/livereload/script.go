package livereload

import (
	"log/slog"
	"net/http"
)

// Script is the browser client. The first event after connecting only sets
// the baseline hash.
const Script = `(() => {
  if (window.__LICHT_LR__) return;
  window.__LICHT_LR__ = true;
  let current = null;
  function swapStyles() {
    document.querySelectorAll('link[rel="stylesheet"]').forEach((link) => {
      const url = new URL(link.href);
      url.searchParams.set('livereload', Date.now());
      link.href = url.toString();
    });
  }
  function connect() {
    const es = new EventSource('` + EventsPath + `');
    es.onmessage = (e) => {
      try {
        const ev = JSON.parse(e.data);
        if (current === null) { current = ev.hash; return; }
        if (!ev.hash || ev.hash === current) return;
        current = ev.hash;
        if (ev.css) { swapStyles(); return; }
        location.reload();
      } catch (_) {}
    };
    es.onerror = () => { es.close(); setTimeout(connect, 2000); };
  }
  connect();
})();
`

// ServeScript writes the client script.
func ServeScript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write([]byte(Script)); err != nil {
		slog.Error("failed to write livereload script", "error", err)
	}
}
