package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyPrefix     = "prefix"
	KeyStage      = "stage"
	KeyRunID      = "run_id"
	KeyTag        = "tag"
	KeyEvent      = "event"
	KeyPath       = "path"
	KeyFile       = "file"
	KeyLine       = "line"
	KeyColumn     = "column"
	KeyBytes      = "bytes"
	KeyDurationMS = "duration_ms"
	KeyTool       = "tool"
	KeyMode       = "mode"
	KeyState      = "state"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Prefix(p string) slog.Attr       { return slog.String(KeyPrefix, p) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Tag(tag string) slog.Attr        { return slog.String(KeyTag, tag) }
func Event(kind string) slog.Attr     { return slog.String(KeyEvent, kind) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func File(f string) slog.Attr         { return slog.String(KeyFile, f) }
func Line(n int) slog.Attr            { return slog.Int(KeyLine, n) }
func Column(n int) slog.Attr          { return slog.Int(KeyColumn, n) }
func Bytes(n int64) slog.Attr         { return slog.Int64(KeyBytes, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Tool(name string) slog.Attr      { return slog.String(KeyTool, name) }
func Mode(m string) slog.Attr         { return slog.String(KeyMode, m) }
func State(s string) slog.Attr        { return slog.String(KeyState, s) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
