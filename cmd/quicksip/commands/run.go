package commands

import (
	"context"
	"fmt"
	"os/signal"
	"slices"
	"syscall"

	ferrors "git.home.luguber.info/inful/quicksip/internal/foundation/errors"
)

// RunCmd implements the 'run' command.
type RunCmd struct {
	Task string `arg:"" help:"Task name, e.g. clean, build-styles or <prefix>build"`
}

func (r *RunCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return RunTask(ctx, g, root, r.Task)
}

// RunTask runs the named task of the first pipeline that registers it.
// "<prefix>build" runs the whole pipeline of that namespace.
func RunTask(ctx context.Context, g *Global, root *CLI, task string) error {
	s, err := root.open(g, sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	var known []string
	for _, cfg := range s.configs {
		if task == cfg.TaskPrefix+"build" {
			_, err := s.orchestrator(cfg).Build(ctx)
			return err
		}
		ts := s.taskSet(cfg)
		names := ts.Names()
		if slices.Contains(names, task) {
			return ts.Run(ctx, task)
		}
		known = append(known, cfg.TaskPrefix+"build")
		known = append(known, names...)
	}
	return ferrors.ValidationError(fmt.Sprintf("unknown task %q", task)).
		WithContext("field", "task").
		WithContext("tasks", known).
		Build()
}
