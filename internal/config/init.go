package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const exampleHeader = "# quicksip configuration. Every pipeline key is optional; omitted section\n" +
	"# values are derived from the top-level src/dist of the same pipeline.\n"

// Example returns the configuration written by Init.
func Example() *File {
	return &File{
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatConsole},
		Notify:  NotifyConfig{Subject: "quicksip.pipeline"},
		Tools:   ToolsConfig{Sass: "sass", Browserify: "browserify"},
		Pipelines: []*UserConfig{
			{
				TaskPrefix: String(""),
				Src:        String("app"),
				Dist:       String("dist"),
				Copy:       &CopyOverrides{Excludes: String("scss")},
				Styles:     &StylesOverrides{Includes: []string{"node_modules"}},
				Browserify: &BrowserifyOverrides{
					Transforms: []TransformSpec{
						Named("hbsfy"),
						Configured("aliasify", map[string]any{"global": true}),
					},
				},
			},
		},
	}
}

// Init writes an example configuration to path. An existing file is only
// replaced when force is set.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}

	data, err := yaml.Marshal(Example())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, append([]byte(exampleHeader), data...), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
