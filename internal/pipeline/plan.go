package pipeline

import (
	"git.home.luguber.info/inful/quicksip/internal/config"
	ferrors "git.home.luguber.info/inful/quicksip/internal/foundation/errors"
	"git.home.luguber.info/inful/quicksip/internal/stages"
)

// batchOrder is the fixed priority of the stages that run after clean.
var batchOrder = []stages.Name{stages.BuildStyles, stages.CopyResources, stages.BuildApp}

// EnabledStages returns the stages that run after clean, in priority order,
// without the ones whose skip flag is set.
func EnabledStages(cfg *config.Config) []stages.Name {
	out := make([]stages.Name, 0, len(batchOrder))
	for _, name := range batchOrder {
		if !skipped(cfg, name) {
			out = append(out, name)
		}
	}
	return out
}

func skipped(cfg *config.Config, name stages.Name) bool {
	switch name {
	case stages.Clean:
		return cfg.Clean.Skip
	case stages.BuildStyles:
		return cfg.Styles.Skip
	case stages.CopyResources:
		return cfg.Copy.Skip
	case stages.BuildApp, stages.Watch:
		return cfg.Browserify.Skip
	default:
		return false
	}
}

// Plan is an immutable execution plan derived from a configuration snapshot.
type Plan struct {
	Config *config.Config
	Mode   stages.Mode
	Clean  bool
	Stages []stages.Name
}

// NewPlan builds the plan for one invocation in mode.
func NewPlan(cfg *config.Config, mode stages.Mode) *Plan {
	return &Plan{
		Config: cfg,
		Mode:   mode,
		Clean:  !cfg.Clean.Skip,
		Stages: EnabledStages(cfg),
	}
}

// Enabled reports whether name runs in this plan.
func (p *Plan) Enabled(name stages.Name) bool {
	if name == stages.Clean {
		return p.Clean
	}
	for _, s := range p.Stages {
		if s == name {
			return true
		}
	}
	return false
}

// Skipped returns the batch stages left out of the plan.
func (p *Plan) Skipped() []stages.Name {
	var out []stages.Name
	for _, name := range batchOrder {
		if !p.Enabled(name) {
			out = append(out, name)
		}
	}
	return out
}

// Escalate applies the failure policy to the error of stage. Style and bundle
// failures become fatal when their fail_on_error flag is set and the plan is
// not a watch session. Every other error keeps its severity.
func (p *Plan) Escalate(stage stages.Name, err error) error {
	if err == nil || p.Mode == stages.ModeWatch {
		return err
	}
	var failOnError bool
	switch stage {
	case stages.BuildStyles:
		failOnError = p.Config.Styles.FailOnError
	case stages.BuildApp:
		failOnError = p.Config.Browserify.FailOnError
	}
	if !failOnError {
		return err
	}
	if ce, ok := ferrors.AsClassified(err); ok {
		return ce.WithSeverity(ferrors.SeverityFatal)
	}
	return stages.NewFatalStageError(stage, err)
}
