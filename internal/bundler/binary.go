package bundler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	ferrors "git.home.luguber.info/inful/quicksip/internal/foundation/errors"
	"git.home.luguber.info/inful/quicksip/internal/fsevent"
	"git.home.luguber.info/inful/quicksip/internal/logfields"
	"git.home.luguber.info/inful/quicksip/internal/stagelog"
	"git.home.luguber.info/inful/quicksip/internal/watcher"
)

// ErrBundlerNotFound is returned when the bundler binary is not on PATH.
var ErrBundlerNotFound = errors.New("browserify binary not found")

// SourceExtensions are the files whose change triggers a rebundle.
var SourceExtensions = []string{".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx", ".json", ".hbs", ".handlebars", ".coffee", ".vue"}

// Subscriber is the part of watcher.Watcher a watching handle needs.
type Subscriber interface {
	Subscribe(ctx context.Context, root string, m watcher.Matcher) (<-chan fsevent.FileEvent, error)
}

// Binary runs the browserify command line bundler.
type Binary struct {
	// Path is the executable, "browserify" when empty.
	Path string
	// Watcher observes sources in watch mode; a default watcher is used when nil.
	Watcher Subscriber
	// Debounce coalesces bursts of source events into one update; 100ms when zero.
	Debounce time.Duration
}

var _ Bundler = Binary{}

// Create returns a handle for opts. The transform list is copied.
func (b Binary) Create(opts Options) Handle {
	opts.Transforms = slices.Clone(opts.Transforms)
	return &binaryHandle{bin: b, opts: opts}
}

func (b Binary) executable() string {
	if b.Path == "" {
		return "browserify"
	}
	return b.Path
}

type binaryHandle struct {
	bin  Binary
	opts Options

	mu      sync.Mutex
	signals chan Signal
}

// Args renders the browserify command line for opts, without the executable.
func Args(opts Options) []string {
	var args []string
	if opts.Debug {
		args = append(args, "--debug")
	}
	for _, t := range opts.Transforms {
		args = append(args, "-t")
		if !t.IsConfigured() {
			args = append(args, t.Name)
			continue
		}
		args = append(args, "[", t.Name)
		args = append(args, optionArgs(t.Options)...)
		args = append(args, "]")
	}
	return append(args, opts.Entry)
}

// optionArgs renders transform options in subarg syntax, keys sorted.
func optionArgs(opts map[string]any) []string {
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var out []string
	for _, k := range keys {
		switch v := opts[k].(type) {
		case bool:
			if v {
				out = append(out, "--"+k)
			} else {
				out = append(out, "--no-"+k)
			}
		case string:
			out = append(out, "--"+k, v)
		case map[string]any, []any:
			data, err := json.Marshal(v)
			if err != nil {
				data = []byte(fmt.Sprint(v))
			}
			out = append(out, "--"+k, string(data))
		default:
			out = append(out, "--"+k, fmt.Sprint(v))
		}
	}
	return out
}

// Bundle runs browserify and returns its stdout.
func (h *binaryHandle) Bundle(ctx context.Context) ([]byte, error) {
	bin, err := exec.LookPath(h.bin.executable())
	if err != nil {
		return nil, ferrors.WrapError(fmt.Errorf("%w: %w", ErrBundlerNotFound, err), ferrors.CategoryBundle, "cannot run bundler").
			WithContext("tool", h.bin.executable()).
			Build()
	}

	cmd := exec.CommandContext(ctx, bin, Args(h.opts)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	slog.Debug("Invoking bundler", logfields.Tool(bin), logfields.File(h.opts.Entry))

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		be := ParseError(stderr.String())
		b := ferrors.WrapError(be, ferrors.CategoryBundle, "bundling failed")
		if be.File != "" {
			b = b.WithContext("file", be.File).WithContext("line", be.Line).WithContext("column", be.Column)
		}
		return nil, b.Build()
	}
	h.emit(Signal{Kind: SignalLog, Message: stagelog.WrittenMessage(int64(stdout.Len()), time.Since(start))})
	return stdout.Bytes(), nil
}

// Watch subscribes to the directory of the entry module. Every debounced burst
// of source changes yields one SignalUpdate; each successful Bundle while
// watching yields a SignalLog.
func (h *binaryHandle) Watch(ctx context.Context) (<-chan Signal, error) {
	h.mu.Lock()
	if h.signals != nil {
		h.mu.Unlock()
		return nil, fmt.Errorf("bundle handle for %s is already watching", h.opts.Entry)
	}
	sub := h.bin.Watcher
	if sub == nil {
		sub = watcher.New()
	}
	events, err := sub.Subscribe(ctx, filepath.Dir(filepath.FromSlash(h.opts.Entry)), watcher.MatchFunc(isSource))
	if err != nil {
		h.mu.Unlock()
		return nil, err
	}
	signals := make(chan Signal, 16)
	h.signals = signals
	h.mu.Unlock()

	go h.forward(ctx, events, signals)
	return signals, nil
}

func (h *binaryHandle) forward(ctx context.Context, events <-chan fsevent.FileEvent, signals chan Signal) {
	delay := h.bin.Debounce
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	var (
		pending []string
		timer   *time.Timer
		fire    <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
		h.mu.Lock()
		h.signals = nil
		close(signals)
		h.mu.Unlock()
	}()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if !slices.Contains(pending, ev.Path) {
				pending = append(pending, ev.Path)
			}
			if timer == nil {
				timer = time.NewTimer(delay)
			} else {
				timer.Reset(delay)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			select {
			case signals <- Signal{Kind: SignalUpdate, Paths: pending}:
			case <-ctx.Done():
				return
			}
			pending = nil
		}
	}
}

// emit delivers a log signal to a watching consumer without ever blocking a bundle.
func (h *binaryHandle) emit(s Signal) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.signals == nil {
		return
	}
	select {
	case h.signals <- s:
	default:
		slog.Debug("Dropping bundler signal, consumer busy", "signal", s.Kind.String())
	}
}

func isSource(path string) bool {
	return slices.Contains(SourceExtensions, strings.ToLower(filepath.Ext(path)))
}
