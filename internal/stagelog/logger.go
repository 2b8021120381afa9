package stagelog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/quicksip/internal/fsevent"
	"git.home.luguber.info/inful/quicksip/internal/logfields"
	"git.home.luguber.info/inful/quicksip/internal/stages"
)

// Logger emits the tagged stage lines of one pipeline. Every entry carries
// the pipeline prefix and, once bound, the run id.
type Logger struct {
	base *slog.Logger
}

// New binds base to a pipeline prefix. A nil base uses slog.Default().
func New(base *slog.Logger, prefix string) *Logger {
	if base == nil {
		base = slog.Default()
	}
	return &Logger{base: base.With(logfields.Prefix(prefix))}
}

// WithRun returns a logger whose entries carry runID.
func (l *Logger) WithRun(runID string) *Logger {
	return &Logger{base: l.base.With(logfields.RunID(runID))}
}

// Slog exposes the underlying logger.
func (l *Logger) Slog() *slog.Logger { return l.base }

func (l *Logger) log(level slog.Level, stage stages.Name, msg string, attrs ...slog.Attr) {
	tag := stage.Tag()
	all := append([]slog.Attr{logfields.Stage(string(stage)), logfields.Tag(tag)}, attrs...)
	l.base.LogAttrs(context.Background(), level, "["+tag+"] "+msg, all...)
}

// Mark logs a stage milestone.
func (l *Logger) Mark(stage stages.Name, format string, args ...any) {
	l.log(slog.LevelInfo, stage, fmt.Sprintf(format, args...))
}

// Warn logs a non-fatal stage problem.
func (l *Logger) Warn(stage stages.Name, err error) {
	l.log(slog.LevelWarn, stage, err.Error(), logfields.Error(err))
}

// Error logs a stage failure.
func (l *Logger) Error(stage stages.Name, err error) {
	l.log(slog.LevelError, stage, err.Error(), logfields.Error(err))
}

// Written logs "N bytes written (S seconds)".
func (l *Logger) Written(stage stages.Name, n int64, d time.Duration) {
	l.log(slog.LevelInfo, stage, WrittenMessage(n, d),
		logfields.Bytes(n), logfields.DurationMS(float64(d.Microseconds())/1000))
}

// WrittenMessage formats the byte count and duration the way the stage lines print them.
func WrittenMessage(n int64, d time.Duration) string {
	return fmt.Sprintf("%d bytes written (%.2f seconds)", n, d.Seconds())
}

// SourceError logs a compile error with its source location as one entry.
func (l *Logger) SourceError(stage stages.Name, file string, line, column int, message string) {
	msg := fmt.Sprintf("@ %s\nFile: [line:%d, col:%d] %s\nMessage: %s",
		time.Now().Format(time.DateTime), line, column, file, message)
	l.log(slog.LevelError, stage, msg,
		logfields.File(file), logfields.Line(line), logfields.Column(column))
}

// Reaction logs a watch resource reaction as "[KIND] --> rel".
func (l *Logger) Reaction(kind fsevent.Kind, rel string) {
	l.base.LogAttrs(context.Background(), slog.LevelInfo, "["+kind.Tag()+"] --> "+rel,
		logfields.Stage(string(stages.CopyResources)), logfields.Event(kind.String()), logfields.Path(rel))
}
