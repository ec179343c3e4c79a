package errors

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// HTTPErrorAdapter renders errors raised by dev server handlers.
type HTTPErrorAdapter struct {
	logger *slog.Logger
}

// NewHTTPErrorAdapter creates a new HTTP error adapter. A nil logger uses slog.Default.
func NewHTTPErrorAdapter(logger *slog.Logger) *HTTPErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPErrorAdapter{logger: logger}
}

// HTTPErrorResponse is the JSON error payload.
type HTTPErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// StatusCodeFor maps an error classification to an HTTP status.
func (a *HTTPErrorAdapter) StatusCodeFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	c, ok := AsClassified(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch c.Category() {
	case CategoryValidation, CategoryConfig:
		return http.StatusBadRequest
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case CategoryTransform, CategoryTask:
		return http.StatusUnprocessableEntity
	case CategoryServer, CategoryWatch:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteErrorResponse writes a JSON error response and logs it.
func (a *HTTPErrorAdapter) WriteErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	status := a.StatusCodeFor(err)
	payload := HTTPErrorResponse{Error: err.Error()}
	if c, ok := AsClassified(err); ok {
		payload = HTTPErrorResponse{Error: c.Message(), Code: string(c.Category())}
		if len(c.Context()) > 0 {
			payload.Details = map[string]any(c.Context())
		}
	}

	b, jerr := json.Marshal(payload)
	if jerr != nil {
		w.WriteHeader(status)
		_, _ = w.Write([]byte("{\"error\":\"internal error\"}"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)

	a.logger.Log(r.Context(), slogLevelFromSeverity(severityOf(err)), err.Error())
}

func severityOf(err error) ErrorSeverity {
	if c, ok := AsClassified(err); ok {
		return c.Severity()
	}
	return SeverityError
}
