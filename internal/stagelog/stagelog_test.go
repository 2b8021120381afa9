package stagelog

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/quicksip/internal/config"
	"git.home.luguber.info/inful/quicksip/internal/fsevent"
	"git.home.luguber.info/inful/quicksip/internal/stages"
)

func consoleLogger(buf *bytes.Buffer, level slog.Level) *slog.Logger {
	return slog.New(NewConsoleHandler(buf, &ConsoleOptions{Level: level, NoColor: true, TimeFormat: "TS"}))
}

func TestConsoleHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(consoleLogger(&buf, slog.LevelInfo), "admin-").WithRun("r1")

	l.Mark(stages.Clean, "deleting %s", "dist")
	l.Written(stages.CopyResources, 1024, 1500*time.Millisecond)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "TS [CLEAN] deleting dist", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "TS [RESOURCES] 1024 bytes written (1.50 seconds)"), lines[1])
	assert.Contains(t, lines[1], "bytes=1024")
	assert.NotContains(t, buf.String(), "run_id", "identifying attributes are hidden on the console")
}

func TestConsoleHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := consoleLogger(&buf, slog.LevelWarn)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.Equal(t, "TS shown\n", buf.String())
}

func TestConsoleHandlerGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := consoleLogger(&buf, slog.LevelInfo).WithGroup("tool").With("name", "sass")
	logger.Info("run", "code", 1)
	assert.Equal(t, "TS run tool.name=sass tool.code=1\n", buf.String())
}

func TestJSONCarriesPipelineAttributes(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(NewHandler(config.LogFormatJSON, slog.LevelDebug, &buf))
	New(base, "web-").WithRun("abc").Warn(stages.BuildStyles, errors.New("undefined variable"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "[SASS] undefined variable", entry["msg"])
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "web-", entry["prefix"])
	assert.Equal(t, "abc", entry["run_id"])
	assert.Equal(t, "build-styles", entry["stage"])
	assert.Equal(t, "SASS", entry["tag"])
}

func TestSourceErrorIsSingleEntry(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(NewHandler(config.LogFormatJSON, slog.LevelInfo, &buf))
	New(base, "").SourceError(stages.BuildStyles, "app/app.scss", 3, 7, "expected }")

	require.Equal(t, 1, strings.Count(buf.String(), "\n"))
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Contains(t, entry["msg"], "File: [line:3, col:7] app/app.scss")
	assert.Contains(t, entry["msg"], "Message: expected }")
	assert.InDelta(t, 3, entry["line"], 0)
}

func TestReactionLine(t *testing.T) {
	var buf bytes.Buffer
	New(consoleLogger(&buf, slog.LevelInfo), "").Reaction(fsevent.Deleted, "img/a.png")
	assert.Equal(t, "TS [DELETED] --> img/a.png event=deleted path=img/a.png\n", buf.String())
}

func TestWrittenMessage(t *testing.T) {
	assert.Equal(t, "12 bytes written (0.25 seconds)", WrittenMessage(12, 250*time.Millisecond))
}
