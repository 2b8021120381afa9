// Package bundler produces the application script bundle with an external
// browserify binary and, in watch mode, signals when the bundle's sources change.
package bundler

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/quicksip/internal/config"
)

// Options describe one bundle.
type Options struct {
	// Entry is the root module, for example "./app/app".
	Entry      string
	Transforms []config.TransformSpec
	Debug      bool
}

// Bundler creates bundle handles.
type Bundler interface {
	Create(opts Options) Handle
}

// Handle bundles one entry. A handle is never reconfigured; a new
// configuration gets a new handle.
type Handle interface {
	// Bundle produces the bundle. Failures carry a *BundleError.
	Bundle(ctx context.Context) ([]byte, error)
	// Watch starts reporting source changes and diagnostics until ctx is done,
	// then closes the channel.
	Watch(ctx context.Context) (<-chan Signal, error)
}

// SignalKind distinguishes watch signals.
type SignalKind int

const (
	// SignalUpdate asks for a rebundle.
	SignalUpdate SignalKind = iota + 1
	// SignalLog carries a diagnostic line.
	SignalLog
)

func (k SignalKind) String() string {
	switch k {
	case SignalUpdate:
		return "update"
	case SignalLog:
		return "log"
	default:
		return "unknown"
	}
}

// Signal is a repeating notification from a watching handle. Unlike a bundle
// result it never ends the stage.
type Signal struct {
	Kind    SignalKind
	Paths   []string
	Message string
}

// BundleError is a bundler diagnostic. File, Line and Column are zero when
// the bundler did not report a location.
type BundleError struct {
	Message string
	File    string
	Line    int
	Column  int
}

func (e *BundleError) Error() string {
	switch {
	case e.File == "":
		return e.Message
	case e.Line == 0:
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	case e.Column == 0:
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
	default:
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
	}
}

var (
	// "SyntaxError: /src/app.js: Unexpected token (3:5)" from babelify and similar transforms.
	parenLocation = regexp.MustCompile(`^(?:\w*Error: )?(\S+?):\s+(.*?)\s+\((\d+):(\d+)\)`)
	// "/src/app.js:3" as printed by the parser ahead of the offending source line.
	fileLine = regexp.MustCompile(`^(\S+\.\w+):(\d+)$`)
	// "ParseError: Unexpected token" style summary lines.
	errorLine = regexp.MustCompile(`^(?:\w*Error): (.+)$`)
)

// ParseError extracts a diagnostic from bundler stderr.
func ParseError(stderr string) *BundleError {
	be := &BundleError{}
	for _, raw := range strings.Split(stderr, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if m := parenLocation.FindStringSubmatch(line); m != nil && be.File == "" {
			be.File, be.Message = m[1], m[2]
			be.Line, _ = strconv.Atoi(m[3])
			be.Column, _ = strconv.Atoi(m[4])
			continue
		}
		if m := fileLine.FindStringSubmatch(line); m != nil && be.File == "" {
			be.File = m[1]
			be.Line, _ = strconv.Atoi(m[2])
			continue
		}
		if m := errorLine.FindStringSubmatch(line); m != nil && be.Message == "" {
			be.Message = m[1]
		}
	}
	if be.Message == "" {
		be.Message = strings.TrimSpace(stderr)
	}
	if be.Message == "" {
		be.Message = "bundler exited with an error"
	}
	return be
}
