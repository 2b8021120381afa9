package config

import (
	"slices"

	ferrors "git.home.luguber.info/inful/quicksip/internal/foundation/errors"
)

// Resolve produces a fully defaulted configuration from partial.
//
// Resolution runs in three layers: top-level defaults overlaid with the
// user's top-level values give the base, section defaults are derived from
// that base, and the user's section values are applied last.
func Resolve(partial UserConfig) (*Config, error) {
	return build(cloneUser(partial))
}

// Update merges partial into the overrides c was resolved from and resolves
// again, so section defaults follow a changed top-level value unless the
// section was set explicitly. c is updated in place and returned; on error c
// is left untouched. Fields assigned on c directly since the last resolution
// are not overrides and are replaced by their resolved values.
func (c *Config) Update(partial UserConfig) (*Config, error) {
	next, err := build(mergeUser(cloneUser(c.overrides), partial))
	if err != nil {
		return nil, err
	}
	*c = *next
	return c, nil
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	out.Styles.Includes = slices.Clone(c.Styles.Includes)
	out.Browserify.Transforms = cloneTransforms(c.Browserify.Transforms)
	out.overrides = cloneUser(c.overrides)
	return &out
}

// Plain returns every resolved value as an explicit UserConfig. Resolving the
// result yields a configuration equal to c.
func (c *Config) Plain() UserConfig {
	return UserConfig{
		TaskPrefix: String(c.TaskPrefix),
		Src:        String(c.Src),
		Dist:       String(c.Dist),
		Env:        String(string(c.Env)),
		Clean: &CleanOverrides{
			Skip: Bool(c.Clean.Skip),
			Dist: String(c.Clean.Dist),
		},
		Copy: &CopyOverrides{
			Skip:     Bool(c.Copy.Skip),
			Src:      String(c.Copy.Src),
			Dist:     String(c.Copy.Dist),
			Excludes: String(c.Copy.Excludes),
		},
		Styles: &StylesOverrides{
			Skip:        Bool(c.Styles.Skip),
			Src:         String(c.Styles.Src),
			Root:        String(c.Styles.Root),
			Includes:    nonNil(slices.Clone(c.Styles.Includes)),
			Dist:        String(c.Styles.Dist),
			FailOnError: Bool(c.Styles.FailOnError),
		},
		Browserify: &BrowserifyOverrides{
			Skip:        Bool(c.Browserify.Skip),
			Root:        String(c.Browserify.Root),
			Out:         String(c.Browserify.Out),
			Transforms:  nonNil(cloneTransforms(c.Browserify.Transforms)),
			FailOnError: Bool(c.Browserify.FailOnError),
			Debug:       Bool(c.Browserify.Debug),
			Dist:        String(c.Browserify.Dist),
		},
	}
}

// Overrides returns a copy of the values the user supplied explicitly.
func (c *Config) Overrides() UserConfig {
	return cloneUser(c.overrides)
}

func build(overrides UserConfig) (*Config, error) {
	base := baseDefaults().with(overrides)
	env, err := ParseEnv(base.Env)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid env").
			Fatal().
			WithContext("field", "env").
			Build()
	}
	base.Env = string(env)

	cfg := DeriveSectionDefaults(base)
	applySections(cfg, overrides)
	cfg.overrides = overrides
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applySections(cfg *Config, u UserConfig) {
	if o := u.Clean; o != nil {
		setBool(&cfg.Clean.Skip, o.Skip)
		setString(&cfg.Clean.Dist, o.Dist)
	}
	if o := u.Copy; o != nil {
		setBool(&cfg.Copy.Skip, o.Skip)
		setString(&cfg.Copy.Src, o.Src)
		setString(&cfg.Copy.Dist, o.Dist)
		setString(&cfg.Copy.Excludes, o.Excludes)
	}
	if o := u.Styles; o != nil {
		setBool(&cfg.Styles.Skip, o.Skip)
		setString(&cfg.Styles.Src, o.Src)
		setString(&cfg.Styles.Root, o.Root)
		if o.Includes != nil {
			cfg.Styles.Includes = slices.Clone(o.Includes)
		}
		setString(&cfg.Styles.Dist, o.Dist)
		setBool(&cfg.Styles.FailOnError, o.FailOnError)
	}
	if o := u.Browserify; o != nil {
		setBool(&cfg.Browserify.Skip, o.Skip)
		setString(&cfg.Browserify.Root, o.Root)
		setString(&cfg.Browserify.Out, o.Out)
		if o.Transforms != nil {
			cfg.Browserify.Transforms = cloneTransforms(o.Transforms)
		}
		setBool(&cfg.Browserify.FailOnError, o.FailOnError)
		setBool(&cfg.Browserify.Debug, o.Debug)
		setString(&cfg.Browserify.Dist, o.Dist)
	}
}

// mergeUser layers src over dst key by key. Sequences are replaced wholesale
// when src supplies them.
func mergeUser(dst, src UserConfig) UserConfig {
	pick(&dst.TaskPrefix, src.TaskPrefix)
	pick(&dst.Src, src.Src)
	pick(&dst.Dist, src.Dist)
	pick(&dst.Env, src.Env)

	if o := src.Clean; o != nil {
		if dst.Clean == nil {
			dst.Clean = &CleanOverrides{}
		}
		pick(&dst.Clean.Skip, o.Skip)
		pick(&dst.Clean.Dist, o.Dist)
	}
	if o := src.Copy; o != nil {
		if dst.Copy == nil {
			dst.Copy = &CopyOverrides{}
		}
		pick(&dst.Copy.Skip, o.Skip)
		pick(&dst.Copy.Src, o.Src)
		pick(&dst.Copy.Dist, o.Dist)
		pick(&dst.Copy.Excludes, o.Excludes)
	}
	if o := src.Styles; o != nil {
		if dst.Styles == nil {
			dst.Styles = &StylesOverrides{}
		}
		pick(&dst.Styles.Skip, o.Skip)
		pick(&dst.Styles.Src, o.Src)
		pick(&dst.Styles.Root, o.Root)
		if o.Includes != nil {
			dst.Styles.Includes = slices.Clone(o.Includes)
		}
		pick(&dst.Styles.Dist, o.Dist)
		pick(&dst.Styles.FailOnError, o.FailOnError)
	}
	if o := src.Browserify; o != nil {
		if dst.Browserify == nil {
			dst.Browserify = &BrowserifyOverrides{}
		}
		pick(&dst.Browserify.Skip, o.Skip)
		pick(&dst.Browserify.Root, o.Root)
		pick(&dst.Browserify.Out, o.Out)
		if o.Transforms != nil {
			dst.Browserify.Transforms = cloneTransforms(o.Transforms)
		}
		pick(&dst.Browserify.FailOnError, o.FailOnError)
		pick(&dst.Browserify.Debug, o.Debug)
		pick(&dst.Browserify.Dist, o.Dist)
	}
	return dst
}

// cloneUser deep-copies u so later merges never write through to the caller's values.
func cloneUser(u UserConfig) UserConfig {
	return mergeUser(UserConfig{}, u)
}

func pick[T any](dst **T, src *T) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
