// Package stagelog writes the "[TAG] message" log lines of the pipeline.
package stagelog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"git.home.luguber.info/inful/quicksip/internal/config"
	"git.home.luguber.info/inful/quicksip/internal/logfields"
)

// NewHandler builds the slog handler for the configured format.
func NewHandler(format config.LogFormat, level slog.Leveler, w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	switch format {
	case config.LogFormatJSON:
		return slog.NewJSONHandler(w, opts)
	case config.LogFormatText:
		return slog.NewTextHandler(w, opts)
	default:
		return NewConsoleHandler(w, &ConsoleOptions{Level: level, NoColor: color.NoColor})
	}
}

// ConsoleOptions configures a ConsoleHandler.
type ConsoleOptions struct {
	Level   slog.Leveler
	NoColor bool
	// TimeFormat defaults to "15:04:05".
	TimeFormat string
}

// ConsoleHandler prints "HH:MM:SS message key=value" with the message colored
// by level. The attributes identifying the pipeline are omitted since the
// tag in the message already names the stage.
type ConsoleHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	opts   ConsoleOptions
	attrs  []slog.Attr
	groups []string
}

// NewConsoleHandler returns a ConsoleHandler writing to w.
func NewConsoleHandler(w io.Writer, opts *ConsoleOptions) *ConsoleHandler {
	h := &ConsoleHandler{mu: &sync.Mutex{}, w: w}
	if opts != nil {
		h.opts = *opts
	}
	if h.opts.Level == nil {
		h.opts.Level = slog.LevelInfo
	}
	if h.opts.TimeFormat == "" {
		h.opts.TimeFormat = time.TimeOnly
	}
	return h
}

var hiddenKeys = []string{logfields.KeyPrefix, logfields.KeyStage, logfields.KeyRunID, logfields.KeyTag}

func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	b.WriteString(h.paint(color.New(color.FgHiBlack), ts.Format(h.opts.TimeFormat)))
	b.WriteByte(' ')
	b.WriteString(h.paint(levelColor(r.Level), r.Message))

	write := func(a slog.Attr) {
		if a.Equal(slog.Attr{}) || slices.Contains(hiddenKeys, a.Key) {
			return
		}
		fmt.Fprintf(&b, " %s=%v", h.paint(color.New(color.FgCyan), a.Key), a.Value.Resolve())
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		write(h.qualify(a))
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = slices.Clone(h.attrs)
	for _, a := range attrs {
		c.attrs = append(c.attrs, h.qualify(a))
	}
	return &c
}

// qualify prefixes the key of a with the open groups.
func (h *ConsoleHandler) qualify(a slog.Attr) slog.Attr {
	if len(h.groups) == 0 {
		return a
	}
	a.Key = strings.Join(h.groups, ".") + "." + a.Key
	return a
}

func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.groups = append(slices.Clone(h.groups), name)
	return &c
}

func (h *ConsoleHandler) paint(c *color.Color, s string) string {
	if h.opts.NoColor {
		return s
	}
	c.EnableColor()
	return c.Sprint(s)
}

func levelColor(level slog.Level) *color.Color {
	switch {
	case level >= slog.LevelError:
		return color.New(color.FgRed)
	case level >= slog.LevelWarn:
		return color.New(color.FgYellow)
	case level >= slog.LevelInfo:
		return color.New(color.FgGreen)
	default:
		return color.New(color.FgHiBlack)
	}
}
