package errors

import (
	"fmt"
	"log/slog"
	"testing"
)

type customError struct{ msg string }

func (e *customError) Error() string { return e.msg }

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, 0},
		{"validation error", ValidationError("invalid input").Build(), 2},
		{"config error", ConfigError("bad config").Build(), 7},
		{"bundle error", BundleError("bundle failed").Fatal().Build(), 11},
		{"filesystem error wrapped", fmt.Errorf("watch: %w", FileSystemError("delete failed").Build()), 11},
		{"runtime error", RuntimeError("watcher closed").Build(), 12},
		{"internal error", InternalError("bug").Build(), 10},
		{"unclassified error", &customError{msg: "unknown error"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.ExitCodeFor(tt.err); got != tt.expected {
				t.Errorf("ExitCodeFor() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	tests := []struct {
		name     string
		verbose  bool
		err      error
		expected string
	}{
		{"nil", false, nil, ""},
		{"config with field", false, ConfigError("section must be a mapping").WithContext("field", "clean").Build(), "section must be a mapping (clean)"},
		{"bundle", false, BundleError("bundle failed").Build(), "bundle: bundle failed"},
		{"internal hidden", false, InternalError("nil task set").Build(), "Internal error occurred (use -v for details)"},
		{"verbose shows full error", true, ConfigError("bad").Build(), "[config:fatal] bad"},
		{"unclassified", false, &customError{msg: "boom"}, "Error: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := NewCLIErrorAdapter(tt.verbose, slog.Default())
			if got := adapter.FormatError(tt.err); got != tt.expected {
				t.Errorf("FormatError() = %q, want %q", got, tt.expected)
			}
		})
	}
}
