package commands

import (
	"context"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct{}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return RunBuild(ctx, g, root)
}

// RunBuild builds every selected pipeline concurrently and returns the first
// failure after all of them have finished.
func RunBuild(ctx context.Context, g *Global, root *CLI) error {
	s, err := root.open(g, sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	var eg errgroup.Group
	for _, cfg := range s.configs {
		o := s.orchestrator(cfg)
		eg.Go(func() error {
			_, err := o.Build(ctx)
			return err
		})
	}
	return eg.Wait()
}
