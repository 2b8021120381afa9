package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// TransformSpec names a bundler transform, optionally with options. A spec
// with nil Options is a bare name; any non-nil Options (even empty) marks the
// {name, options} form. Transforms are applied in list order and duplicates
// are legal.
type TransformSpec struct {
	Name    string
	Options map[string]any
}

// Named returns a bare-name transform.
func Named(name string) TransformSpec {
	return TransformSpec{Name: name}
}

// Configured returns a transform with options.
func Configured(name string, options map[string]any) TransformSpec {
	if options == nil {
		options = map[string]any{}
	}
	return TransformSpec{Name: name, Options: options}
}

// IsConfigured reports whether the spec carries options.
func (t TransformSpec) IsConfigured() bool { return t.Options != nil }

func (t TransformSpec) String() string {
	if t.IsConfigured() {
		return fmt.Sprintf("%s%v", t.Name, t.Options)
	}
	return t.Name
}

// Clone deep-copies the options so the result shares no mutable state with t.
func (t TransformSpec) Clone() TransformSpec {
	if t.Options == nil {
		return TransformSpec{Name: t.Name}
	}
	return TransformSpec{Name: t.Name, Options: cloneMap(t.Options)}
}

type transformMapping struct {
	Name    string         `yaml:"name"`
	Options map[string]any `yaml:"options"`
}

// UnmarshalYAML accepts either a scalar name or a {name, options} mapping.
func (t *TransformSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var name string
		if err := node.Decode(&name); err != nil {
			return err
		}
		*t = Named(name)
		return nil
	case yaml.MappingNode:
		var m transformMapping
		if err := node.Decode(&m); err != nil {
			return err
		}
		*t = Configured(m.Name, m.Options)
		return nil
	default:
		return fmt.Errorf("line %d: transform must be a name or a {name, options} mapping", node.Line)
	}
}

// MarshalYAML writes the same two shapes UnmarshalYAML accepts.
func (t TransformSpec) MarshalYAML() (any, error) {
	if !t.IsConfigured() {
		return t.Name, nil
	}
	return transformMapping{Name: t.Name, Options: t.Options}, nil
}

func cloneTransforms(in []TransformSpec) []TransformSpec {
	if in == nil {
		return nil
	}
	out := make([]TransformSpec, len(in))
	for i, t := range in {
		out[i] = t.Clone()
	}
	return out
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		return cloneMap(vv)
	case []any:
		out := make([]any, len(vv))
		for i, e := range vv {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
