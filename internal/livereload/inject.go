package livereload

import (
	"bytes"
	"net/http"
	"strings"
)

const maxInjectSize = 2 << 20

var scriptTag = []byte(`<script src="` + ScriptPath + `"></script>`)

// Inject wraps next so that HTML responses load the client script before
// </body>. Responses larger than the buffer limit pass through untouched.
func Inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || !looksLikePage(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		inj := &injector{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(inj, r)
		inj.finalize()
	})
}

func looksLikePage(p string) bool {
	if p == "" || strings.HasSuffix(p, "/") || strings.HasSuffix(p, ".html") || strings.HasSuffix(p, ".htm") {
		return true
	}
	// Extensionless paths may resolve to a directory index.
	last := p[strings.LastIndex(p, "/")+1:]
	return !strings.Contains(last, ".")
}

// injector buffers an HTML body so the script tag can be spliced in.
type injector struct {
	http.ResponseWriter
	statusCode    int
	buffer        []byte
	buffering     bool
	headerWritten bool
	passthrough   bool
}

func (l *injector) WriteHeader(code int) {
	l.statusCode = code
	if l.passthrough {
		l.ResponseWriter.WriteHeader(code)
		l.headerWritten = true
	}
}

func (l *injector) Write(data []byte) (int, error) {
	if !l.buffering && !l.passthrough {
		ct := l.Header().Get("Content-Type")
		if (ct != "" && !strings.Contains(ct, "text/html")) || l.statusCode != http.StatusOK {
			l.passthrough = true
			l.ResponseWriter.WriteHeader(l.statusCode)
			l.headerWritten = true
			return l.ResponseWriter.Write(data)
		}
		l.buffering = true
	}
	if l.passthrough {
		return l.ResponseWriter.Write(data)
	}

	if len(l.buffer)+len(data) > maxInjectSize {
		l.passthrough = true
		l.ResponseWriter.WriteHeader(l.statusCode)
		l.headerWritten = true
		if len(l.buffer) > 0 {
			if _, err := l.ResponseWriter.Write(l.buffer); err != nil {
				return 0, err
			}
			l.buffer = nil
		}
		return l.ResponseWriter.Write(data)
	}
	l.buffer = append(l.buffer, data...)
	return len(data), nil
}

func (l *injector) finalize() {
	if l.passthrough || !l.buffering {
		if !l.headerWritten {
			l.ResponseWriter.WriteHeader(l.statusCode)
		}
		return
	}

	body := l.buffer
	if i := bytes.LastIndex(body, []byte("</body>")); i >= 0 {
		out := make([]byte, 0, len(body)+len(scriptTag))
		out = append(out, body[:i]...)
		out = append(out, scriptTag...)
		out = append(out, body[i:]...)
		body = out
	}
	l.Header().Del("Content-Length")
	l.ResponseWriter.WriteHeader(l.statusCode)
	_, _ = l.ResponseWriter.Write(body)
}
