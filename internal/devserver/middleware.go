package devserver

import (
	"log/slog"
	"net/http"
	"time"

	ferrors "github.com/licht-dev/licht-compile/internal/foundation/errors"
	"github.com/licht-dev/licht-compile/internal/logfields"
)

// chain applies request logging and panic recovery around a handler.
func chain(logger *slog.Logger, adapter *ferrors.HTTPErrorAdapter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return loggingMiddleware(logger, panicRecoveryMiddleware(logger, adapter, next))
	}
}

func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		logger.Debug("HTTP request",
			logfields.Method(r.Method),
			logfields.Path(r.URL.Path),
			logfields.Status(wrapped.statusCode),
			logfields.DurationMS(float64(time.Since(start).Milliseconds())),
			logfields.UserAgent(r.UserAgent()),
			logfields.RemoteAddr(r.RemoteAddr))
	})
}

func panicRecoveryMiddleware(logger *slog.Logger, adapter *ferrors.HTTPErrorAdapter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("HTTP handler panic",
					slog.Any("panic", rec),
					logfields.Path(r.URL.Path),
					logfields.Method(r.Method))

				panicErr := ferrors.InternalError("internal server error").
					WithContext("path", r.URL.Path).
					WithContext("method", r.Method).
					Build()
				adapter.WriteErrorResponse(w, r, panicErr)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// responseWriter captures status codes for logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush keeps server-sent events streaming through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
