package metrics

import (
	"testing"
	"time"
)

var (
	_ Recorder = NoopRecorder{}
	_ Recorder = (*PrometheusRecorder)(nil)
)

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveStageDuration("", "clean", time.Second)
	r.IncStageResult("", "clean", ResultSuccess)
	r.ObserveBuildDuration("", "build", time.Second)
	r.IncBuildOutcome("", BuildOutcomeSuccess)
	r.IncWatchReaction("", "styles")
	r.AddBytesWritten("", "build-app", 10)
	r.SetWatchActive("", true)
}
