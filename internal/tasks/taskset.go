// Package tasks binds the pipeline operations of one task prefix to its
// resolved configuration and the external collaborators.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"git.home.luguber.info/inful/quicksip/internal/bundler"
	"git.home.luguber.info/inful/quicksip/internal/config"
	ferrors "git.home.luguber.info/inful/quicksip/internal/foundation/errors"
	"git.home.luguber.info/inful/quicksip/internal/fsevent"
	"git.home.luguber.info/inful/quicksip/internal/metrics"
	"git.home.luguber.info/inful/quicksip/internal/pathmatch"
	"git.home.luguber.info/inful/quicksip/internal/resources"
	"git.home.luguber.info/inful/quicksip/internal/stagelog"
	"git.home.luguber.info/inful/quicksip/internal/stages"
	"git.home.luguber.info/inful/quicksip/internal/styles"
)

// Operation is one bound pipeline operation.
type Operation func(ctx context.Context) error

// Order lists the operations of a TaskSet in registration order.
var Order = []stages.Name{stages.Clean, stages.CopyResources, stages.BuildStyles, stages.BuildApp, stages.Watch}

// Deps are the collaborators a TaskSet delegates to. Zero values select the
// filesystem copier, the sass and browserify binaries, slog.Default() and no
// metrics.
type Deps struct {
	Copier   resources.Copier
	Compiler styles.Compiler
	Bundler  bundler.Bundler
	Logger   *slog.Logger
	Recorder metrics.Recorder
}

func (d Deps) withDefaults() Deps {
	if d.Copier == nil {
		d.Copier = resources.FS{}
	}
	if d.Compiler == nil {
		d.Compiler = styles.Binary{}
	}
	if d.Bundler == nil {
		d.Bundler = bundler.Binary{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Recorder == nil {
		d.Recorder = metrics.NoopRecorder{}
	}
	return d
}

// liveBundle is the bundler handle of the run in flight.
type liveBundle struct {
	handle   bundler.Handle
	watching bool
}

// TaskSet owns the operations of one pipeline namespace.
//
// Operations hold the read side of mu while they execute, so Options and
// Update wait until no operation is mid-execution.
type TaskSet struct {
	prefix string
	deps   Deps
	log    *stagelog.Logger
	ops    map[stages.Name]Operation

	mu  sync.RWMutex
	cfg *config.Config

	live atomic.Pointer[liveBundle]
}

func newTaskSet(prefix string, cfg *config.Config, deps Deps) *TaskSet {
	deps = deps.withDefaults()
	ts := &TaskSet{
		prefix: prefix,
		deps:   deps,
		log:    stagelog.New(deps.Logger, prefix),
		cfg:    cfg.Clone(),
	}
	ts.ops = map[stages.Name]Operation{
		stages.Clean:         ts.Clean,
		stages.CopyResources: ts.CopyResources,
		stages.BuildStyles:   ts.BuildStyles,
		stages.BuildApp:      ts.BuildApp,
		stages.Watch:         ts.Watch,
	}
	return ts
}

// Prefix returns the task prefix the set is bound to.
func (ts *TaskSet) Prefix() string { return ts.prefix }

// Logger returns the stage logger of the set.
func (ts *TaskSet) Logger() *stagelog.Logger { return ts.log }

// Names returns the task names, the prefix followed by each operation name.
func (ts *TaskSet) Names() []string {
	out := make([]string, len(Order))
	for i, n := range Order {
		out[i] = ts.prefix + string(n)
	}
	return out
}

// Run executes the operation registered under name. Both the prefixed task
// name and the bare operation name are accepted.
func (ts *TaskSet) Run(ctx context.Context, name string) error {
	op, ok := ts.ops[stages.Name(name)]
	if !ok && ts.prefix != "" && strings.HasPrefix(name, ts.prefix) {
		op, ok = ts.ops[stages.Name(strings.TrimPrefix(name, ts.prefix))]
	}
	if !ok {
		return ferrors.ValidationError(fmt.Sprintf("unknown task %q", name)).
			WithContext("field", "task").
			WithContext("tasks", ts.Names()).
			Build()
	}
	return op(ctx)
}

// Config returns a copy of the bound configuration.
func (ts *TaskSet) Config() *config.Config {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.cfg.Clone()
}

// Options replaces the bound configuration. The set of operations is unchanged.
func (ts *TaskSet) Options(resolved *config.Config) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.cfg = resolved.Clone()
}

// Update applies partial to the bound configuration through the cascade.
func (ts *TaskSet) Update(partial config.UserConfig) (*config.Config, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if _, err := ts.cfg.Update(partial); err != nil {
		return nil, err
	}
	return ts.cfg.Clone(), nil
}

// AddTransform appends a bundler transform.
func (ts *TaskSet) AddTransform(t config.TransformSpec) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	transforms := append(slices.Clone(ts.cfg.Browserify.Transforms), t)
	_, err := ts.cfg.Update(config.UserConfig{Browserify: &config.BrowserifyOverrides{Transforms: transforms}})
	return err
}

// NonResources replaces the extension alternation excluded from resource copies.
func (ts *TaskSet) NonResources(excludes string) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	_, err := ts.cfg.Update(config.UserConfig{Copy: &config.CopyOverrides{Excludes: config.String(excludes)}})
	return err
}

// hold runs fn with the configuration read-locked.
func (ts *TaskSet) hold(fn func(cfg *config.Config) error) error {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return fn(ts.cfg)
}

// Clean deletes the clean target.
func (ts *TaskSet) Clean(ctx context.Context) error {
	return ts.hold(func(cfg *config.Config) error {
		ts.log.Mark(stages.Clean, "deleting %s", cfg.Clean.Dist)
		if err := ts.deps.Copier.DeletePath(ctx, cfg.Clean.Dist); err != nil {
			ts.log.Error(stages.Clean, err)
			return err
		}
		return nil
	})
}

// Resources returns the resource selection of the bound configuration.
func (ts *TaskSet) Resources() (*pathmatch.Resources, error) {
	var sel *pathmatch.Resources
	err := ts.hold(func(cfg *config.Config) error {
		var err error
		sel, err = resourceSelection(cfg)
		return err
	})
	return sel, err
}

func resourceSelection(cfg *config.Config) (*pathmatch.Resources, error) {
	sel, err := pathmatch.NewResources(cfg.Copy.Src, cfg.Copy.Excludes)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid resource selection").
			Fatal().
			WithContext("field", "copy").
			Build()
	}
	return sel, nil
}

// CopyResources copies every resource file into the copy destination.
func (ts *TaskSet) CopyResources(ctx context.Context) error {
	return ts.hold(func(cfg *config.Config) error {
		sel, err := resourceSelection(cfg)
		if err != nil {
			return err
		}
		stats, err := ts.deps.Copier.CopyTree(ctx, sel, cfg.Copy.Dist)
		if err != nil {
			ts.log.Error(stages.CopyResources, err)
			return err
		}
		ts.written(stages.CopyResources, stats.Bytes, stats.Duration, true)
		return nil
	})
}

// CopyResource mirrors one changed resource into the copy destination.
// Paths outside the resource selection are ignored.
func (ts *TaskSet) CopyResource(ctx context.Context, path string) error {
	return ts.ApplyResourceEvent(ctx, fsevent.FileEvent{Kind: fsevent.Changed, Path: path})
}

// DeleteResource removes the mirror of a deleted resource.
func (ts *TaskSet) DeleteResource(ctx context.Context, path string) error {
	return ts.ApplyResourceEvent(ctx, fsevent.FileEvent{Kind: fsevent.Deleted, Path: path})
}

// ApplyResourceEvent copies or deletes exactly the destination counterpart of
// ev.Path. Excluded files and paths outside the source root are ignored.
func (ts *TaskSet) ApplyResourceEvent(ctx context.Context, ev fsevent.FileEvent) error {
	return ts.hold(func(cfg *config.Config) error {
		sel, err := resourceSelection(cfg)
		if err != nil {
			return err
		}
		if sel.Excluded(ev.Path) {
			return nil
		}
		rel, ok := sel.Rel(ev.Path)
		if !ok {
			return nil
		}
		dest := filepath.Join(cfg.Copy.Dist, filepath.FromSlash(rel))

		ts.log.Reaction(ev.Kind, rel)
		if ev.Kind == fsevent.Deleted {
			err = ts.deps.Copier.DeletePath(ctx, dest)
		} else {
			_, err = ts.deps.Copier.CopyOne(ctx, ev.Path, dest)
		}
		if err != nil {
			ts.log.Error(stages.CopyResources, err)
		}
		return err
	})
}

// BuildStyles compiles the entry stylesheet into the styles destination.
// Compile failures are logged with their location and returned as styles errors.
func (ts *TaskSet) BuildStyles(ctx context.Context) error {
	return ts.hold(func(cfg *config.Config) error {
		res, err := ts.deps.Compiler.Compile(ctx, styles.Request{
			Entry:        cfg.Styles.Root,
			IncludePaths: cfg.Styles.Includes,
		})
		if err != nil {
			var ce *styles.CompileError
			if errors.As(err, &ce) {
				ts.log.SourceError(stages.BuildStyles, ce.File, ce.Line, ce.Column, ce.Message)
			} else {
				ts.log.Error(stages.BuildStyles, err)
			}
			return err
		}
		out := filepath.Join(cfg.Styles.Dist, styles.OutputName(cfg.Styles.Root))
		if err := writeOutput(out, res.CSS); err != nil {
			ts.log.Error(stages.BuildStyles, err)
			return err
		}
		ts.written(stages.BuildStyles, int64(len(res.CSS)), res.Duration, true)
		return nil
	})
}

func bundleOptions(cfg *config.Config) bundler.Options {
	return bundler.Options{
		Entry:      cfg.Browserify.Root,
		Transforms: cfg.Browserify.Transforms,
		Debug:      cfg.Browserify.Debug,
	}
}

// CreateBundler replaces the live bundler handle with a one-shot handle for
// the current configuration and returns it.
func (ts *TaskSet) CreateBundler() bundler.Handle {
	var h bundler.Handle
	_ = ts.hold(func(cfg *config.Config) error {
		h = ts.deps.Bundler.Create(bundleOptions(cfg))
		return nil
	})
	ts.live.Store(&liveBundle{handle: h})
	return h
}

// CreateWatchBundler replaces the live bundler handle with a watching handle.
// The returned channel reports source changes until ctx is done.
func (ts *TaskSet) CreateWatchBundler(ctx context.Context) (bundler.Handle, <-chan bundler.Signal, error) {
	var h bundler.Handle
	_ = ts.hold(func(cfg *config.Config) error {
		h = ts.deps.Bundler.Create(bundleOptions(cfg))
		return nil
	})
	signals, err := h.Watch(ctx)
	if err != nil {
		return nil, nil, ferrors.WrapError(err, ferrors.CategoryBundle, "cannot watch bundle sources").Build()
	}
	ts.live.Store(&liveBundle{handle: h, watching: true})
	return h, signals, nil
}

// ReleaseBundler drops the live handle if it is still h.
func (ts *TaskSet) ReleaseBundler(h bundler.Handle) {
	if cur := ts.live.Load(); cur != nil && cur.handle == h {
		ts.live.CompareAndSwap(cur, nil)
	}
}

// LiveBundler returns the handle of the run in flight, if any.
func (ts *TaskSet) LiveBundler() (bundler.Handle, bool) {
	cur := ts.live.Load()
	if cur == nil {
		return nil, false
	}
	return cur.handle, cur.watching
}

// BuildApp bundles the application into the browserify destination. While a
// watching handle is live it bundles with that handle; otherwise it creates a
// one-shot handle and releases it afterwards.
func (ts *TaskSet) BuildApp(ctx context.Context) error {
	h, watching := ts.LiveBundler()
	if !watching {
		h = ts.CreateBundler()
		defer ts.ReleaseBundler(h)
	}
	return ts.bundleWith(ctx, h, !watching)
}

// bundleWith bundles with h and writes the output. A watching handle reports
// its own byte count through a log signal, so only one-shot runs log it here.
func (ts *TaskSet) bundleWith(ctx context.Context, h bundler.Handle, logWritten bool) error {
	return ts.hold(func(cfg *config.Config) error {
		start := time.Now()
		data, err := h.Bundle(ctx)
		if err != nil {
			var be *bundler.BundleError
			if errors.As(err, &be) && be.File != "" {
				ts.log.SourceError(stages.BuildApp, be.File, be.Line, be.Column, be.Message)
			} else {
				ts.log.Error(stages.BuildApp, err)
			}
			return err
		}
		out := filepath.Join(cfg.Browserify.Dist, cfg.Browserify.Out)
		if err := writeOutput(out, data); err != nil {
			ts.log.Error(stages.BuildApp, err)
			return err
		}
		ts.written(stages.BuildApp, int64(len(data)), time.Since(start), logWritten)
		return nil
	})
}

func (ts *TaskSet) written(stage stages.Name, n int64, d time.Duration, log bool) {
	ts.deps.Recorder.AddBytesWritten(ts.prefix, string(stage), n)
	if log {
		ts.log.Written(stage, n, d)
	}
}

// HandleBundlerSignal reacts to one signal of the watching handle h: a log
// signal is printed, an update rebundles with h even if h has been released
// or replaced in the meantime.
func (ts *TaskSet) HandleBundlerSignal(ctx context.Context, h bundler.Handle, sig bundler.Signal) error {
	switch sig.Kind {
	case bundler.SignalLog:
		ts.log.Mark(stages.BuildApp, "%s", sig.Message)
		return nil
	case bundler.SignalUpdate:
		if h == nil {
			return ts.BuildApp(ctx)
		}
		return ts.bundleWith(ctx, h, false)
	default:
		return nil
	}
}

// Watch keeps the application bundle current: it bundles once with a
// watching handle and rebundles on every source update until ctx is done.
// Bundle failures are logged and do not end the watch.
func (ts *TaskSet) Watch(ctx context.Context) error {
	h, signals, err := ts.CreateWatchBundler(ctx)
	if err != nil {
		return err
	}
	defer ts.ReleaseBundler(h)

	if err := ts.bundleWith(ctx, h, false); err != nil && ferrors.HasSeverity(err, ferrors.SeverityFatal) {
		return err
	}
	for sig := range signals {
		if err := ts.HandleBundlerSignal(context.WithoutCancel(ctx), h, sig); err != nil && ferrors.HasSeverity(err, ferrors.SeverityFatal) {
			return err
		}
	}
	return nil
}

func writeOutput(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "create output directory").
			Fatal().
			WithContext("path", path).
			Build()
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "write output").
			Fatal().
			WithContext("path", path).
			Build()
	}
	return nil
}
