package config

// Base holds the resolved top-level values every section default derives from.
type Base struct {
	TaskPrefix string
	Src        string
	Dist       string
	Env        string
}

func baseDefaults() Base {
	return Base{
		TaskPrefix: "",
		Src:        "app",
		Dist:       "dist",
		Env:        defaultEnv(),
	}
}

// with layers the top-level values of u over b.
func (b Base) with(u UserConfig) Base {
	if u.TaskPrefix != nil {
		b.TaskPrefix = *u.TaskPrefix
	}
	if u.Src != nil {
		b.Src = *u.Src
	}
	if u.Dist != nil {
		b.Dist = *u.Dist
	}
	if u.Env != nil {
		b.Env = *u.Env
	}
	return b
}

// SectionDefaultApplier fills one section of a freshly allocated Config from the base values.
type SectionDefaultApplier interface {
	ApplyDefaults(base Base, cfg *Config)
	Section() string
}

// CleanDefaultApplier derives clean defaults.
type CleanDefaultApplier struct{}

func (CleanDefaultApplier) Section() string { return "clean" }

func (CleanDefaultApplier) ApplyDefaults(base Base, cfg *Config) {
	cfg.Clean = CleanConfig{
		Skip: false,
		Dist: base.Dist,
	}
}

// CopyDefaultApplier derives copy-resources defaults.
type CopyDefaultApplier struct{}

func (CopyDefaultApplier) Section() string { return "copy" }

func (CopyDefaultApplier) ApplyDefaults(base Base, cfg *Config) {
	cfg.Copy = CopyConfig{
		Skip:     false,
		Src:      base.Src,
		Dist:     base.Dist,
		Excludes: "scss",
	}
}

// StylesDefaultApplier derives build-styles defaults.
type StylesDefaultApplier struct{}

func (StylesDefaultApplier) Section() string { return "styles" }

func (StylesDefaultApplier) ApplyDefaults(base Base, cfg *Config) {
	cfg.Styles = StylesConfig{
		Skip:     false,
		Src:      base.Src + "/**/*.scss",
		Root:     base.Src + "/app.scss",
		Includes: []string{},
		Dist:     base.Dist,
	}
}

// BrowserifyDefaultApplier derives build-app defaults.
type BrowserifyDefaultApplier struct{}

func (BrowserifyDefaultApplier) Section() string { return "browserify" }

func (BrowserifyDefaultApplier) ApplyDefaults(base Base, cfg *Config) {
	cfg.Browserify = BrowserifyConfig{
		Skip:        false,
		Root:        "./" + base.Src + "/app",
		Out:         "app.js",
		Transforms:  []TransformSpec{},
		FailOnError: false,
		Debug:       envNormalizer.Normalize(base.Env) != EnvProduction,
		Dist:        base.Dist,
	}
}

var sectionAppliers = []SectionDefaultApplier{
	CleanDefaultApplier{},
	CopyDefaultApplier{},
	StylesDefaultApplier{},
	BrowserifyDefaultApplier{},
}

// DeriveSectionDefaults returns a newly allocated Config whose sections are
// computed purely from base. Nothing is cached between calls, so no two
// resolutions ever share slices or maps.
func DeriveSectionDefaults(base Base) *Config {
	cfg := &Config{
		TaskPrefix: base.TaskPrefix,
		Src:        base.Src,
		Dist:       base.Dist,
		Env:        Env(base.Env),
	}
	for _, a := range sectionAppliers {
		a.ApplyDefaults(base, cfg)
	}
	return cfg
}
