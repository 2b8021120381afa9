package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/quicksip/internal/foundation/errors"
)

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = "quicksip.yaml"

// File is the on-disk configuration: process-wide settings plus one entry per pipeline namespace.
type File struct {
	Logging   LoggingConfig  `yaml:"logging"`
	Metrics   MetricsConfig  `yaml:"metrics"`
	Notify    NotifyConfig   `yaml:"notify"`
	Tools     ToolsConfig    `yaml:"tools"`
	Pipelines []*UserConfig `yaml:"pipelines"`
}

// LoggingConfig selects log level and output format.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// MetricsConfig enables the Prometheus endpoint in watch mode when Listen is set.
type MetricsConfig struct {
	Listen string `yaml:"listen,omitempty"`
}

// NotifyConfig enables NATS lifecycle events when NATSURL is set.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject"`
}

// ToolsConfig names the external compiler binaries.
type ToolsConfig struct {
	Sass       string `yaml:"sass"`
	Browserify string `yaml:"browserify"`
}

func (f *File) applyDefaults() {
	f.Logging.Level = NormalizeLogLevel(string(f.Logging.Level))
	f.Logging.Format = NormalizeLogFormat(string(f.Logging.Format))
	if f.Notify.Subject == "" {
		f.Notify.Subject = "quicksip.pipeline"
	}
	if f.Tools.Sass == "" {
		f.Tools.Sass = "sass"
	}
	if f.Tools.Browserify == "" {
		f.Tools.Browserify = "browserify"
	}
	if len(f.Pipelines) == 0 {
		f.Pipelines = []*UserConfig{{}}
	}
}

// Load reads the configuration file at path. Env files next to it are loaded
// first and ${VAR} references in the file are expanded. A missing file at
// DefaultPath yields the defaults for a single unnamed pipeline.
func Load(path string) (*File, error) {
	if loaded, err := loadEnvFiles(filepath.Dir(path)); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to load env file").
			Fatal().
			Build()
	} else if len(loaded) > 0 {
		slog.Debug("Loaded environment files", "files", loaded)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && filepath.Clean(path) == DefaultPath {
			return Parse(nil)
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read config file").
			Fatal().
			WithContext("path", path).
			Build()
	}
	f, err := Parse([]byte(os.ExpandEnv(string(data))))
	if err != nil {
		if ce, ok := ferrors.AsClassified(err); ok {
			return nil, ce.WithContext("path", path)
		}
		return nil, err
	}
	return f, nil
}

// Parse decodes a configuration document. Unknown keys and sections of the
// wrong shape are rejected.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "malformed configuration").
			Fatal().
			Build()
	}
	for i, p := range f.Pipelines {
		if p == nil {
			return nil, ferrors.ConfigError(fmt.Sprintf("pipelines[%d] is empty", i)).
				WithContext("field", fmt.Sprintf("pipelines[%d]", i)).
				Build()
		}
	}
	f.applyDefaults()
	return &f, nil
}

// Resolve resolves every pipeline entry. Entries sharing a task_prefix are
// merged in file order into one configuration.
func (f *File) Resolve() ([]*Config, error) {
	var out []*Config
	byPrefix := make(map[string]*Config)
	for i, p := range f.Pipelines {
		prefix := ""
		if p.TaskPrefix != nil {
			prefix = *p.TaskPrefix
		}
		if existing, ok := byPrefix[prefix]; ok {
			if _, err := existing.Update(*p); err != nil {
				return nil, pipelineError(err, i)
			}
			continue
		}
		cfg, err := Resolve(*p)
		if err != nil {
			return nil, pipelineError(err, i)
		}
		byPrefix[prefix] = cfg
		out = append(out, cfg)
	}
	return out, nil
}

// Select returns the resolved configuration for prefix.
func Select(cfgs []*Config, prefix string) (*Config, error) {
	for _, c := range cfgs {
		if c.TaskPrefix == prefix {
			return c, nil
		}
	}
	return nil, ferrors.ConfigError(fmt.Sprintf("no pipeline with task_prefix %q", prefix)).
		WithContext("field", "task_prefix").
		Build()
}

func pipelineError(err error, index int) error {
	if ce, ok := ferrors.AsClassified(err); ok {
		return ce.WithContext("pipeline", index)
	}
	return err
}
