package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/quicksip/internal/config"
	"git.home.luguber.info/inful/quicksip/internal/stagelog"
)

// LogLevelEnvVar overrides the configured log level.
const LogLevelEnvVar = "QUICKSIP_LOG_LEVEL"

// Global is passed to every command.
type Global struct {
	// Out receives command output such as the printed configuration.
	Out io.Writer
	// Logger is set once the configuration file has been read.
	Logger *slog.Logger
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path" default:"quicksip.yaml"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogFormat string           `name:"log-format" help:"Log output format (console, json, text); overrides the configuration file"`
	Prefix    []string         `short:"p" help:"Only use the pipelines with these task prefixes" sep:","`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build      BuildCmd  `cmd:"" default:"1" help:"Run clean and every enabled stage once"`
	Watch      WatchCmd  `cmd:"" help:"Build once, then rebuild on source changes"`
	Run        RunCmd    `cmd:"" help:"Run a single named task"`
	ConfigCmds ConfigCmd `cmd:"" name:"config" help:"Inspect the resolved configuration"`
	Init       InitCmd   `cmd:"" help:"Write an example configuration file"`
}

// AfterApply runs after flag parsing; it sets up logging from flags and
// environment until the configuration file refines it.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	c.configureLogging(config.LoggingConfig{Level: config.LogLevelInfo, Format: config.LogFormatConsole})
	return nil
}

// configureLogging installs the default logger. Precedence for the level is
// --verbose, then QUICKSIP_LOG_LEVEL, then the file; for the format it is
// --log-format, then the file.
func (c *CLI) configureLogging(file config.LoggingConfig) *slog.Logger {
	level := config.NormalizeLogLevel(string(file.Level))
	if env := os.Getenv(LogLevelEnvVar); env != "" {
		level = config.NormalizeLogLevel(env)
	}
	if c.Verbose {
		level = config.LogLevelDebug
	}
	format := config.NormalizeLogFormat(string(file.Format))
	if c.LogFormat != "" {
		format = config.NormalizeLogFormat(c.LogFormat)
	}
	logger := slog.New(stagelog.NewHandler(format, level.SlogLevel(), os.Stderr))
	slog.SetDefault(logger)
	return logger
}
