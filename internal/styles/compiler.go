// Package styles compiles the entry stylesheet with an external Sass compiler.
package styles

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/quicksip/internal/foundation/errors"
	"git.home.luguber.info/inful/quicksip/internal/logfields"
)

// Request names the entry stylesheet and the extra import search paths.
type Request struct {
	Entry        string
	IncludePaths []string
}

// Result is the compiled stylesheet.
type Result struct {
	CSS      []byte
	Duration time.Duration
}

// Compiler is the style compiler boundary.
type Compiler interface {
	Compile(ctx context.Context, req Request) (Result, error)
}

// CompileError is a compiler diagnostic with its source location.
type CompileError struct {
	File    string
	Line    int
	Column  int
	Message string
}

func (e *CompileError) Error() string {
	if e.File == "" {
		return e.Message
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
}

// ErrCompilerNotFound is returned when the compiler binary is not on PATH.
var ErrCompilerNotFound = errors.New("sass binary not found")

// Binary invokes the dart-sass command line compiler.
type Binary struct {
	// Path is the executable, "sass" when empty.
	Path string
}

var _ Compiler = Binary{}

func (b Binary) executable() string {
	if b.Path == "" {
		return "sass"
	}
	return b.Path
}

// Compile runs the compiler and returns the CSS it writes to stdout.
// Failures are classified styles errors; a diagnostic is available through
// errors.As as a *CompileError.
func (b Binary) Compile(ctx context.Context, req Request) (Result, error) {
	bin, err := exec.LookPath(b.executable())
	if err != nil {
		return Result{}, ferrors.WrapError(fmt.Errorf("%w: %w", ErrCompilerNotFound, err), ferrors.CategoryStyles, "cannot run style compiler").
			Warning().
			WithContext("tool", b.executable()).
			Build()
	}

	args := []string{"--no-source-map", "--no-color"}
	for _, p := range req.IncludePaths {
		args = append(args, "--load-path="+p)
	}
	args = append(args, req.Entry)

	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	slog.Debug("Invoking style compiler", logfields.Tool(bin), logfields.File(req.Entry))

	start := time.Now()
	err = cmd.Run()
	d := time.Since(start)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		ce := ParseDiagnostic(stderr.String())
		if ce.File == "" {
			ce.File = req.Entry
		}
		return Result{}, ferrors.WrapError(ce, ferrors.CategoryStyles, "style compilation failed").
			Warning().
			WithContext("file", ce.File).
			WithContext("line", ce.Line).
			WithContext("column", ce.Column).
			Build()
	}
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		slog.Debug("sass stderr", "output", msg)
	}
	return Result{CSS: stdout.Bytes(), Duration: d}, nil
}

var (
	locationLine = regexp.MustCompile(`^\s*(\S+?)\s+(\d+):(\d+)\s`)
	fileLineCol  = regexp.MustCompile(`^(\S+?):(\d+):(\d+):?\s*(.*)$`)
)

// ParseDiagnostic extracts message and location from compiler stderr. It
// understands the dart-sass block form ("Error: msg" followed by a
// "file line:col  context" trailer) and the single line "file:line:col: msg" form.
func ParseDiagnostic(stderr string) *CompileError {
	ce := &CompileError{}
	sc := bufio.NewScanner(strings.NewReader(stderr))
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			continue
		case strings.HasPrefix(trimmed, "Error: ") && ce.Message == "":
			ce.Message = strings.TrimPrefix(trimmed, "Error: ")
		case ce.File == "" && fileLineCol.MatchString(trimmed):
			m := fileLineCol.FindStringSubmatch(trimmed)
			ce.File, ce.Line, ce.Column = filepath.FromSlash(m[1]), atoi(m[2]), atoi(m[3])
			if ce.Message == "" {
				ce.Message = strings.TrimPrefix(m[4], "Error: ")
			}
		case ce.File == "" && ce.Message != "" && locationLine.MatchString(line):
			m := locationLine.FindStringSubmatch(line)
			ce.File, ce.Line, ce.Column = filepath.FromSlash(m[1]), atoi(m[2]), atoi(m[3])
		}
	}
	if ce.Message == "" {
		ce.Message = strings.TrimSpace(stderr)
	}
	if ce.Message == "" {
		ce.Message = "compiler exited with an error"
	}
	return ce
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// OutputName is the CSS file name for an entry stylesheet: "app/app.scss" becomes "app.css".
func OutputName(entry string) string {
	base := filepath.Base(entry)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".css"
}
