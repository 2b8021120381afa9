package commands

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ConfigCmd groups the configuration commands.
type ConfigCmd struct {
	Print ConfigPrintCmd `cmd:"" default:"1" help:"Print every resolved pipeline configuration as YAML"`
}

// ConfigPrintCmd implements 'config print'.
type ConfigPrintCmd struct{}

func (c *ConfigPrintCmd) Run(g *Global, root *CLI) error {
	s, err := root.open(g, sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	enc := yaml.NewEncoder(g.out())
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any{"pipelines": s.configs}); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}
