// Package stages defines the pipeline stage vocabulary shared by the task set,
// the orchestrator and its observers.
package stages

import (
	"context"
	"errors"
	"fmt"

	ferrors "git.home.luguber.info/inful/quicksip/internal/foundation/errors"
)

// Name is a strongly-typed identifier for a pipeline operation.
type Name string

// Canonical operation names. The task name registered for a pipeline is the
// task prefix followed by one of these.
const (
	Clean         Name = "clean"
	CopyResources Name = "copy-resources"
	BuildStyles   Name = "build-styles"
	BuildApp      Name = "build-app"
	Watch         Name = "watch"
)

// Tag is the label printed in "[TAG] message" log lines.
func (n Name) Tag() string {
	switch n {
	case Clean:
		return "CLEAN"
	case CopyResources:
		return "RESOURCES"
	case BuildStyles:
		return "SASS"
	case BuildApp, Watch:
		return "BROWSERIFY"
	default:
		return "QUICKSIP"
	}
}

// ErrorKind classifies a failed stage.
type ErrorKind string

const (
	ErrorFatal    ErrorKind = "fatal"    // The invocation must fail.
	ErrorWarning  ErrorKind = "warning"  // Reported; sibling stages and later reactions continue.
	ErrorCanceled ErrorKind = "canceled" // Context cancellation.
)

// StageError carries the stage and kind of a failure.
type StageError struct {
	Kind  ErrorKind
	Stage Name
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

func NewFatalStageError(stage Name, err error) *StageError {
	return &StageError{Kind: ErrorFatal, Stage: stage, Err: err}
}

func NewWarnStageError(stage Name, err error) *StageError {
	return &StageError{Kind: ErrorWarning, Stage: stage, Err: err}
}

func NewCanceledStageError(stage Name, err error) *StageError {
	return &StageError{Kind: ErrorCanceled, Stage: stage, Err: err}
}

// Result captures the high-level outcome of a stage.
type Result string

const (
	ResultSuccess  Result = "success"
	ResultWarning  Result = "warning"
	ResultFatal    Result = "fatal"
	ResultCanceled Result = "canceled"
	ResultSkipped  Result = "skipped"
)

// Outcome is the normalized result of one stage invocation.
type Outcome struct {
	Stage  Name
	Result Result
	Err    *StageError
	Abort  bool
}

// Classify converts the error returned by a stage into an Outcome.
//
// A StageError keeps its kind. Classified errors are fatal only at fatal
// severity; any other classified error is a warning. Context errors are
// cancellations, and anything else is fatal.
func Classify(stage Name, err error) Outcome {
	if err == nil {
		return Outcome{Stage: stage, Result: ResultSuccess}
	}

	var se *StageError
	if !errors.As(err, &se) {
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			se = NewCanceledStageError(stage, err)
		case ferrors.IsClassified(err) && !ferrors.HasSeverity(err, ferrors.SeverityFatal):
			se = NewWarnStageError(stage, err)
		default:
			se = NewFatalStageError(stage, err)
		}
	}

	out := Outcome{Stage: stage, Err: se}
	switch se.Kind {
	case ErrorWarning:
		out.Result = ResultWarning
	case ErrorCanceled:
		out.Result = ResultCanceled
		out.Abort = true
	default:
		out.Result = ResultFatal
		out.Abort = true
	}
	return out
}
