package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/quicksip/internal/metrics"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	MetricsAddr string `name:"metrics-addr" help:"Serve Prometheus metrics on this address (overrides metrics.listen)"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return RunWatch(ctx, g, root, w.MetricsAddr)
}

// RunWatch watches every selected pipeline until ctx is done or one of them
// fails fatally.
func RunWatch(ctx context.Context, g *Global, root *CLI, metricsAddr string) error {
	s, err := root.open(g, sessionOptions{metrics: true})
	if err != nil {
		return err
	}
	defer s.Close()

	if metricsAddr == "" {
		metricsAddr = s.file.Metrics.Listen
	}

	eg, ctx := errgroup.WithContext(ctx)
	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: metricsMux(s), ReadHeaderTimeout: 5 * time.Second}
		eg.Go(func() error {
			s.logger.Info("Serving metrics", "addr", metricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		eg.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	for _, cfg := range s.configs {
		o := s.orchestrator(cfg)
		prefix := cfg.TaskPrefix
		eg.Go(func() error {
			s.recorder.SetWatchActive(prefix, true)
			defer s.recorder.SetWatchActive(prefix, false)
			return o.Watch(ctx)
		})
	}
	return eg.Wait()
}

func metricsMux(s *session) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(s.registry))
	return mux
}
