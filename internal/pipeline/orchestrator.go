// Package pipeline sequences the stages of one task set: clean first, then the
// remaining enabled stages as one concurrent batch, and in watch mode the
// reactions to source changes that follow.
package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/quicksip/internal/fsevent"
	"git.home.luguber.info/inful/quicksip/internal/stagelog"
	"git.home.luguber.info/inful/quicksip/internal/stages"
	"git.home.luguber.info/inful/quicksip/internal/tasks"
	"git.home.luguber.info/inful/quicksip/internal/watcher"
)

// State is the lifecycle position of an Orchestrator.
type State int32

const (
	StateIdle State = iota
	StateCleaning
	StateRunning
	StateComplete
	StateFailed
	StateWatching
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCleaning:
		return "cleaning"
	case StateRunning:
		return "running"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	case StateWatching:
		return "watching"
	default:
		return "unknown"
	}
}

// Subscriber delivers file events for a tree.
type Subscriber interface {
	Subscribe(ctx context.Context, root string, m watcher.Matcher) (<-chan fsevent.FileEvent, error)
}

// Orchestrator runs the stages of one TaskSet.
type Orchestrator struct {
	ts       *tasks.TaskSet
	observer stages.Observer
	watcher  Subscriber
	runID    func() string

	state atomic.Int32
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithObserver receives stage and lifecycle callbacks.
func WithObserver(o stages.Observer) Option {
	return func(p *Orchestrator) {
		if o != nil {
			p.observer = o
		}
	}
}

// WithWatcher sets the file event source used by Watch.
func WithWatcher(s Subscriber) Option {
	return func(p *Orchestrator) {
		if s != nil {
			p.watcher = s
		}
	}
}

// WithRunID replaces the run id generator.
func WithRunID(fn func() string) Option {
	return func(p *Orchestrator) {
		if fn != nil {
			p.runID = fn
		}
	}
}

// New creates an orchestrator for ts.
func New(ts *tasks.TaskSet, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		ts:       ts,
		observer: stages.NoopObserver{},
		runID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.watcher == nil {
		o.watcher = watcher.New(watcher.WithLogger(ts.Logger().Slog()))
	}
	return o
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State { return State(o.state.Load()) }

func (o *Orchestrator) setState(s State) { o.state.Store(int32(s)) }

// run is the bookkeeping of one Build or one Watch bootstrap.
type run struct {
	id     string
	plan   *Plan
	log    *stagelog.Logger
	mu     sync.Mutex
	report *stages.Report
}

func (r *run) record(out stages.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.Stages = append(r.report.Stages, out)
}

func (o *Orchestrator) newRun(mode stages.Mode) *run {
	id := o.runID()
	return &run{
		id:   id,
		plan: NewPlan(o.ts.Config(), mode),
		log:  o.ts.Logger().WithRun(id),
		report: &stages.Report{
			RunID:  id,
			Prefix: o.ts.Prefix(),
			Mode:   mode,
			Start:  time.Now(),
		},
	}
}

// Build runs clean and then every enabled stage once. It returns the first
// fatal stage error; warnings are logged by the stages and reported in the
// returned Report only.
func (o *Orchestrator) Build(ctx context.Context) (*stages.Report, error) {
	r := o.newRun(stages.ModeBuild)
	err := o.bootstrap(ctx, r)
	return r.report, err
}

// bootstrap is clean followed by the stage batch, shared by Build and Watch.
func (o *Orchestrator) bootstrap(ctx context.Context, r *run) error {
	r.log.Slog().Debug("Pipeline starting", "mode", string(r.plan.Mode), "stages", r.plan.Stages)

	if r.plan.Clean {
		o.setState(StateCleaning)
		out := o.runStage(ctx, r, stages.Clean, o.ts.Clean)
		if out.Abort {
			return o.finish(r, out.Err)
		}
	} else {
		r.record(stages.Outcome{Stage: stages.Clean, Result: stages.ResultSkipped})
	}

	o.setState(StateRunning)
	for _, name := range r.plan.Skipped() {
		r.record(stages.Outcome{Stage: name, Result: stages.ResultSkipped})
		o.observer.OnStageComplete(r.report.Prefix, name, 0, stages.ResultSkipped)
	}

	// Stages of the batch are never canceled by a failing sibling.
	var g errgroup.Group
	outcomes := make([]stages.Outcome, len(r.plan.Stages))
	for i, name := range r.plan.Stages {
		op := o.operation(name)
		g.Go(func() error {
			outcomes[i] = o.runStage(ctx, r, name, op)
			return nil
		})
	}
	_ = g.Wait()

	var fatal error
	for _, out := range outcomes {
		if out.Abort && fatal == nil {
			fatal = out.Err
		}
	}
	return o.finish(r, fatal)
}

func (o *Orchestrator) operation(name stages.Name) tasks.Operation {
	switch name {
	case stages.BuildStyles:
		return o.ts.BuildStyles
	case stages.CopyResources:
		return o.ts.CopyResources
	default:
		return o.ts.BuildApp
	}
}

func (o *Orchestrator) runStage(ctx context.Context, r *run, name stages.Name, op tasks.Operation) stages.Outcome {
	o.observer.OnStageStart(r.report.Prefix, name)
	start := time.Now()
	err := r.plan.Escalate(name, op(ctx))
	out := stages.Classify(name, err)
	d := time.Since(start)
	r.record(out)
	o.observer.OnStageComplete(r.report.Prefix, name, d, out.Result)
	r.log.Slog().Debug("Stage finished", "stage", string(name), "result", string(out.Result), "duration", d)
	return out
}

func (o *Orchestrator) finish(r *run, fatal error) error {
	r.report.End = time.Now()
	r.report.Success = fatal == nil
	r.report.Err = fatal
	if fatal != nil {
		o.setState(StateFailed)
	} else {
		o.setState(StateComplete)
		r.log.Mark(stages.BuildApp, "complete!")
	}
	o.observer.OnBuildComplete(r.report)
	return fatal
}
