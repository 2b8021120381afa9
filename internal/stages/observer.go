package stages

import (
	"time"

	"git.home.luguber.info/inful/quicksip/internal/metrics"
)

// Mode distinguishes one-shot builds from watch sessions.
type Mode string

const (
	ModeBuild Mode = "build"
	ModeWatch Mode = "watch"
)

// Report summarizes one build() invocation or the bootstrap of one watch().
type Report struct {
	RunID   string
	Prefix  string
	Mode    Mode
	Start   time.Time
	End     time.Time
	Stages  []Outcome
	Success bool
	Err     error
}

// Duration is End minus Start.
func (r *Report) Duration() time.Duration { return r.End.Sub(r.Start) }

// Reaction describes one watch reaction after it ran.
type Reaction struct {
	RunID    string
	Prefix   string
	Stage    Name
	Event    string
	Path     string
	Duration time.Duration
	Err      error
}

// Observer receives callbacks around stage execution and the pipeline lifecycle.
// Implementations must be safe for concurrent use: stages of one batch and
// reactions of different kinds report concurrently.
type Observer interface {
	OnStageStart(prefix string, stage Name)
	OnStageComplete(prefix string, stage Name, duration time.Duration, result Result)
	OnBuildComplete(report *Report)
	OnReaction(reaction Reaction)
}

// NoopObserver is a no-op implementation.
type NoopObserver struct{}

func (NoopObserver) OnStageStart(string, Name)                           {}
func (NoopObserver) OnStageComplete(string, Name, time.Duration, Result) {}
func (NoopObserver) OnBuildComplete(*Report)                             {}
func (NoopObserver) OnReaction(Reaction)                                 {}

// RecorderObserver adapts metrics.Recorder into an Observer.
type RecorderObserver struct{ Recorder metrics.Recorder }

func (r RecorderObserver) OnStageStart(string, Name) {}

func (r RecorderObserver) OnStageComplete(prefix string, stage Name, d time.Duration, result Result) {
	if r.Recorder == nil {
		return
	}
	r.Recorder.ObserveStageDuration(prefix, string(stage), d)
	r.Recorder.IncStageResult(prefix, string(stage), metrics.ResultLabel(result))
}

func (r RecorderObserver) OnBuildComplete(report *Report) {
	if r.Recorder == nil || report == nil {
		return
	}
	r.Recorder.ObserveBuildDuration(report.Prefix, string(report.Mode), report.Duration())
	outcome := metrics.BuildOutcomeSuccess
	if !report.Success {
		outcome = metrics.BuildOutcomeFailed
	}
	r.Recorder.IncBuildOutcome(report.Prefix, outcome)
}

func (r RecorderObserver) OnReaction(reaction Reaction) {
	if r.Recorder == nil {
		return
	}
	r.Recorder.IncWatchReaction(reaction.Prefix, string(reaction.Stage))
}

// Observers fans every callback out to each member in order.
type Observers []Observer

func (o Observers) OnStageStart(prefix string, stage Name) {
	for _, ob := range o {
		ob.OnStageStart(prefix, stage)
	}
}

func (o Observers) OnStageComplete(prefix string, stage Name, d time.Duration, result Result) {
	for _, ob := range o {
		ob.OnStageComplete(prefix, stage, d, result)
	}
}

func (o Observers) OnBuildComplete(report *Report) {
	for _, ob := range o {
		ob.OnBuildComplete(report)
	}
}

func (o Observers) OnReaction(reaction Reaction) {
	for _, ob := range o {
		ob.OnReaction(reaction)
	}
}
