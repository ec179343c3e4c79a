package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyTask       = "task"
	KeyPath       = "path"
	KeyGlob       = "glob"
	KeyDest       = "dest"
	KeyFiles      = "files"
	KeyTransform  = "transform"
	KeyDurationMS = "duration_ms"
	KeyPort       = "port"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyUserAgent  = "user_agent"
	KeyRemoteAddr = "remote_addr"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr        { return slog.String(KeyRunID, id) }
func Task(name string) slog.Attr       { return slog.String(KeyTask, name) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Glob(g string) slog.Attr          { return slog.String(KeyGlob, g) }
func Dest(d string) slog.Attr          { return slog.String(KeyDest, d) }
func Files(n int) slog.Attr            { return slog.Int(KeyFiles, n) }
func Transform(name string) slog.Attr  { return slog.String(KeyTransform, name) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Port(p int) slog.Attr             { return slog.Int(KeyPort, p) }
func Method(m string) slog.Attr        { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr        { return slog.Int(KeyStatus, code) }
func UserAgent(ua string) slog.Attr    { return slog.String(KeyUserAgent, ua) }
func RemoteAddr(addr string) slog.Attr { return slog.String(KeyRemoteAddr, addr) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
