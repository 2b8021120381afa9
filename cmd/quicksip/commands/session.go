package commands

import (
	"log/slog"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/quicksip/internal/bundler"
	"git.home.luguber.info/inful/quicksip/internal/config"
	"git.home.luguber.info/inful/quicksip/internal/logfields"
	"git.home.luguber.info/inful/quicksip/internal/metrics"
	"git.home.luguber.info/inful/quicksip/internal/notify"
	"git.home.luguber.info/inful/quicksip/internal/pipeline"
	"git.home.luguber.info/inful/quicksip/internal/resources"
	"git.home.luguber.info/inful/quicksip/internal/stages"
	"git.home.luguber.info/inful/quicksip/internal/styles"
	"git.home.luguber.info/inful/quicksip/internal/tasks"
	"git.home.luguber.info/inful/quicksip/internal/watcher"
)

// session is one invocation's configuration and wired collaborators.
type session struct {
	file     *config.File
	configs  []*config.Config
	logger   *slog.Logger
	deps     tasks.Deps
	observer stages.Observer
	recorder metrics.Recorder
	registry *prom.Registry
	notifier *notify.Notifier
}

type sessionOptions struct {
	metrics bool
}

// open loads the configuration file, applies its logging settings and wires
// the collaborators shared by every pipeline of the invocation.
func (c *CLI) open(g *Global, opts sessionOptions) (*session, error) {
	file, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	logger := c.configureLogging(file.Logging)
	if g != nil {
		g.Logger = logger
	}

	cfgs, err := file.Resolve()
	if err != nil {
		return nil, err
	}
	if len(c.Prefix) > 0 {
		selected := make([]*config.Config, 0, len(c.Prefix))
		for _, p := range c.Prefix {
			cfg, err := config.Select(cfgs, p)
			if err != nil {
				return nil, err
			}
			selected = append(selected, cfg)
		}
		cfgs = selected
	}

	s := &session{
		file:     file,
		configs:  cfgs,
		logger:   logger,
		recorder: metrics.NoopRecorder{},
	}

	observers := stages.Observers{}
	if opts.metrics {
		s.registry = metrics.NewRegistry()
		rec := metrics.NewPrometheusRecorder(s.registry)
		s.recorder = rec
		observers = append(observers, stages.RecorderObserver{Recorder: rec})
	}
	if file.Notify.NATSURL != "" {
		n, err := notify.Connect(file.Notify, logger)
		if err != nil {
			logger.Warn("Notifications disabled", logfields.Error(err))
		} else {
			s.notifier = n
			observers = append(observers, n)
		}
	}
	s.deps = tasks.Deps{
		Copier:   resources.FS{},
		Compiler: styles.Binary{Path: file.Tools.Sass},
		Bundler:  bundler.Binary{Path: file.Tools.Browserify, Watcher: watcher.New(watcher.WithLogger(logger))},
		Logger:   logger,
		Recorder: s.recorder,
	}
	s.observer = observers
	return s, nil
}

// taskSet binds cfg in the process-wide registry. A namespace bound earlier
// in the process is rebound to cfg rather than registered twice.
func (s *session) taskSet(cfg *config.Config) *tasks.TaskSet {
	ts := tasks.GetOrCreate(cfg.TaskPrefix, cfg, s.deps)
	ts.Options(cfg)
	return ts
}

func (s *session) orchestrator(cfg *config.Config) *pipeline.Orchestrator {
	return pipeline.New(s.taskSet(cfg), pipeline.WithObserver(s.observer))
}

func (s *session) Close() {
	if s.notifier != nil {
		if err := s.notifier.Close(); err != nil {
			s.logger.Debug("Closing notifier", logfields.Error(err))
		}
	}
}
