package pipeline

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/quicksip/internal/bundler"
	ferrors "git.home.luguber.info/inful/quicksip/internal/foundation/errors"
	"git.home.luguber.info/inful/quicksip/internal/fsevent"
	"git.home.luguber.info/inful/quicksip/internal/pathmatch"
	"git.home.luguber.info/inful/quicksip/internal/stages"
)

// Watch bootstraps like Build and then reacts to source changes until ctx is
// done:
//
//   - any style source change recompiles the styles,
//   - a resource change copies or deletes exactly that file,
//   - a bundler update rebundles the application.
//
// Reactions of one kind run in arrival order; different kinds run
// concurrently. A reaction that has started is not interrupted when ctx ends.
// Watch returns nil once ctx is done, or the first fatal error.
func (o *Orchestrator) Watch(ctx context.Context) error {
	r := o.newRun(stages.ModeWatch)
	plan := r.plan

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	// Subscriptions and the watching handle exist before the bootstrap batch:
	// edits made while it runs are queued and handled once it is done, and the
	// bootstrap bundle and every later rebundle share one handle.
	var reactors []func() error

	if plan.Enabled(stages.BuildStyles) {
		pattern, err := pathmatch.Compile(plan.Config.Styles.Src)
		if err != nil {
			return o.subscribeFailed(stages.BuildStyles, err)
		}
		events, err := o.watcher.Subscribe(gctx, pattern.Base(), pattern)
		if err != nil {
			return o.subscribeFailed(stages.BuildStyles, err)
		}
		reactors = append(reactors, func() error {
			return each(gctx, events, func(ev fsevent.FileEvent) error {
				return o.react(gctx, r, stages.BuildStyles, ev, o.ts.BuildStyles)
			})
		})
	}

	if plan.Enabled(stages.CopyResources) {
		sel, err := o.ts.Resources()
		if err != nil {
			return o.subscribeFailed(stages.CopyResources, err)
		}
		events, err := o.watcher.Subscribe(gctx, sel.Root(), sel)
		if err != nil {
			return o.subscribeFailed(stages.CopyResources, err)
		}
		reactors = append(reactors, func() error {
			return each(gctx, events, func(ev fsevent.FileEvent) error {
				apply := func(ctx context.Context) error { return o.ts.ApplyResourceEvent(ctx, ev) }
				return o.react(gctx, r, stages.CopyResources, ev, apply)
			})
		})
	}

	if plan.Enabled(stages.BuildApp) {
		h, signals, err := o.ts.CreateWatchBundler(gctx)
		if err != nil {
			return o.finish(r, stages.NewFatalStageError(stages.BuildApp, err))
		}
		defer o.ts.ReleaseBundler(h)
		reactors = append(reactors, func() error {
			return each(gctx, signals, func(sig bundler.Signal) error {
				handle := func(ctx context.Context) error { return o.ts.HandleBundlerSignal(ctx, h, sig) }
				if sig.Kind != bundler.SignalUpdate {
					return handle(gctx)
				}
				ev := fsevent.FileEvent{Kind: fsevent.Changed}
				if len(sig.Paths) > 0 {
					ev.Path = sig.Paths[0]
				}
				return o.react(gctx, r, stages.BuildApp, ev, handle)
			})
		})
	}

	if err := o.bootstrap(ctx, r); err != nil {
		return err
	}

	for _, fn := range reactors {
		g.Go(fn)
	}

	o.setState(StateWatching)
	r.log.Slog().Info("Watching for changes", "stages", plan.Stages)

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		o.setState(StateFailed)
		return err
	}
	o.setState(StateComplete)
	return nil
}

// react runs fn for one event. fn gets a context that outlives the watch so
// an in-flight reaction finishes once started. Only a fatal outcome is
// returned; warnings were already logged by the stage.
func (o *Orchestrator) react(ctx context.Context, r *run, stage stages.Name, ev fsevent.FileEvent, fn func(context.Context) error) error {
	start := time.Now()
	err := r.plan.Escalate(stage, fn(context.WithoutCancel(ctx)))
	out := stages.Classify(stage, err)
	o.observer.OnReaction(stages.Reaction{
		RunID:    r.id,
		Prefix:   r.report.Prefix,
		Stage:    stage,
		Event:    ev.Kind.String(),
		Path:     ev.Path,
		Duration: time.Since(start),
		Err:      err,
	})
	if out.Result == stages.ResultFatal {
		return out.Err
	}
	return nil
}

// each hands every value of ch to fn in arrival order until ch closes, ctx
// ends or fn fails.
func each[T any](ctx context.Context, ch <-chan T, fn func(T) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case v, ok := <-ch:
			if !ok {
				return nil
			}
			if err := fn(v); err != nil {
				return err
			}
		}
	}
}

func (o *Orchestrator) subscribeFailed(stage stages.Name, err error) error {
	o.setState(StateFailed)
	if !ferrors.IsClassified(err) {
		err = ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot watch sources").
			Fatal().
			WithContext("stage", string(stage)).
			Build()
	}
	return stages.NewFatalStageError(stage, err)
}
