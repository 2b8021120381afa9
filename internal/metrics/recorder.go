package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
	ResultSkipped  ResultLabel = "skipped"
)

// BuildOutcomeLabel is the final status of a build or watch bootstrap.
type BuildOutcomeLabel string

const (
	BuildOutcomeSuccess BuildOutcomeLabel = "success"
	BuildOutcomeFailed  BuildOutcomeLabel = "failed"
)

// Recorder defines observability hooks for pipeline runs, stages and watch reactions.
type Recorder interface {
	ObserveStageDuration(prefix, stage string, d time.Duration)
	IncStageResult(prefix, stage string, result ResultLabel)
	ObserveBuildDuration(prefix, mode string, d time.Duration)
	IncBuildOutcome(prefix string, outcome BuildOutcomeLabel)
	IncWatchReaction(prefix, kind string)
	AddBytesWritten(prefix, stage string, n int64)
	SetWatchActive(prefix string, active bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, string, time.Duration) {}
func (NoopRecorder) IncStageResult(string, string, ResultLabel)         {}
func (NoopRecorder) ObserveBuildDuration(string, string, time.Duration) {}
func (NoopRecorder) IncBuildOutcome(string, BuildOutcomeLabel)          {}
func (NoopRecorder) IncWatchReaction(string, string)                    {}
func (NoopRecorder) AddBytesWritten(string, string, int64)              {}
func (NoopRecorder) SetWatchActive(string, bool)                        {}
