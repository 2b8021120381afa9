package config

// UserConfig is a partially specified pipeline configuration as supplied by a
// user. A nil field means "not supplied" and is filled in by the cascade; a nil
// slice likewise means "keep whatever the lower layers provide".
type UserConfig struct {
	TaskPrefix *string `yaml:"task_prefix,omitempty"`
	Src        *string `yaml:"src,omitempty"`
	Dist       *string `yaml:"dist,omitempty"`
	Env        *string `yaml:"env,omitempty"`

	Clean      *CleanOverrides      `yaml:"clean,omitempty"`
	Copy       *CopyOverrides       `yaml:"copy,omitempty"`
	Styles     *StylesOverrides     `yaml:"styles,omitempty"`
	Browserify *BrowserifyOverrides `yaml:"browserify,omitempty"`
}

// CleanOverrides holds user-supplied values for the clean section.
type CleanOverrides struct {
	Skip *bool   `yaml:"skip,omitempty"`
	Dist *string `yaml:"dist,omitempty"`
}

// CopyOverrides holds user-supplied values for the copy-resources section.
type CopyOverrides struct {
	Skip     *bool   `yaml:"skip,omitempty"`
	Src      *string `yaml:"src,omitempty"`
	Dist     *string `yaml:"dist,omitempty"`
	Excludes *string `yaml:"excludes,omitempty"`
}

// StylesOverrides holds user-supplied values for the build-styles section.
type StylesOverrides struct {
	Skip        *bool    `yaml:"skip,omitempty"`
	Src         *string  `yaml:"src,omitempty"`
	Root        *string  `yaml:"root,omitempty"`
	Includes    []string `yaml:"includes,omitempty"`
	Dist        *string  `yaml:"dist,omitempty"`
	FailOnError *bool    `yaml:"fail_on_error,omitempty"`
}

// BrowserifyOverrides holds user-supplied values for the build-app section.
type BrowserifyOverrides struct {
	Skip        *bool           `yaml:"skip,omitempty"`
	Root        *string         `yaml:"root,omitempty"`
	Out         *string         `yaml:"out,omitempty"`
	Transforms  []TransformSpec `yaml:"transforms,omitempty"`
	FailOnError *bool           `yaml:"fail_on_error,omitempty"`
	Debug       *bool           `yaml:"debug,omitempty"`
	Dist        *string         `yaml:"dist,omitempty"`
}

// Config is the fully resolved configuration of one pipeline namespace.
// Two configs with the same TaskPrefix describe the same pipeline.
//
// The exported fields are the result of resolution, not its input. Update
// resolves again from the recorded overrides, so a value assigned to a field
// directly is discarded by the next Update. Change values through Update.
type Config struct {
	TaskPrefix string `yaml:"task_prefix"`
	Src        string `yaml:"src"`
	Dist       string `yaml:"dist"`
	Env        Env    `yaml:"env"`

	Clean      CleanConfig      `yaml:"clean"`
	Copy       CopyConfig       `yaml:"copy"`
	Styles     StylesConfig     `yaml:"styles"`
	Browserify BrowserifyConfig `yaml:"browserify"`

	// overrides accumulates every value the user supplied explicitly, across
	// Resolve and all later Update calls. Section defaults are re-derived from
	// scratch on each resolution and only these values are layered on top.
	overrides UserConfig
}

// CleanConfig configures the clean stage.
type CleanConfig struct {
	Skip bool   `yaml:"skip"`
	Dist string `yaml:"dist"`
}

// CopyConfig configures the copy-resources stage. Excludes is an
// extension alternation such as "js|css|scss".
type CopyConfig struct {
	Skip     bool   `yaml:"skip"`
	Src      string `yaml:"src"`
	Dist     string `yaml:"dist"`
	Excludes string `yaml:"excludes"`
}

// StylesConfig configures the build-styles stage. Src is the glob watched for
// changes; Root is the entry stylesheet handed to the compiler.
type StylesConfig struct {
	Skip        bool     `yaml:"skip"`
	Src         string   `yaml:"src"`
	Root        string   `yaml:"root"`
	Includes    []string `yaml:"includes"`
	Dist        string   `yaml:"dist"`
	FailOnError bool     `yaml:"fail_on_error"`
}

// BrowserifyConfig configures the build-app stage.
type BrowserifyConfig struct {
	Skip        bool            `yaml:"skip"`
	Root        string          `yaml:"root"`
	Out         string          `yaml:"out"`
	Transforms  []TransformSpec `yaml:"transforms"`
	FailOnError bool            `yaml:"fail_on_error"`
	Debug       bool            `yaml:"debug"`
	Dist        string          `yaml:"dist"`
}

// String returns a pointer to s, for building UserConfig literals.
func String(s string) *string { return &s }

// Bool returns a pointer to b, for building UserConfig literals.
func Bool(b bool) *bool { return &b }
