package config

import (
	"fmt"
	"path"
	"strings"

	ferrors "git.home.luguber.info/inful/quicksip/internal/foundation/errors"
	"git.home.luguber.info/inful/quicksip/internal/pathmatch"
)

// Validate rejects self-contradictory configurations before any stage runs.
func (c *Config) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"src", c.Src},
		{"dist", c.Dist},
		{"clean.dist", c.Clean.Dist},
		{"copy.src", c.Copy.Src},
		{"copy.dist", c.Copy.Dist},
		{"styles.root", c.Styles.Root},
		{"styles.src", c.Styles.Src},
		{"styles.dist", c.Styles.Dist},
		{"browserify.root", c.Browserify.Root},
		{"browserify.out", c.Browserify.Out},
		{"browserify.dist", c.Browserify.Dist},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fieldError(r.field, "must not be empty")
		}
	}

	if !c.Clean.Skip {
		if err := validateCleanTarget(c); err != nil {
			return err
		}
	}
	if _, err := pathmatch.ParseExcludes(c.Copy.Excludes); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "invalid copy.excludes").
			Fatal().
			WithContext("field", "copy.excludes").
			Build()
	}
	if _, err := pathmatch.Compile(c.Styles.Src); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "invalid styles.src").
			Fatal().
			WithContext("field", "styles.src").
			Build()
	}
	if strings.ContainsAny(c.Browserify.Out, `/\`) {
		return fieldError("browserify.out", "must be a file name, not a path")
	}
	for i, t := range c.Browserify.Transforms {
		if strings.TrimSpace(t.Name) == "" {
			return fieldError(fmt.Sprintf("browserify.transforms[%d]", i), "transform name must not be empty")
		}
	}
	return nil
}

// validateCleanTarget refuses clean targets that would wipe the sources or the working tree.
func validateCleanTarget(c *Config) error {
	target := pathmatch.Normalize(c.Clean.Dist)
	switch target {
	case ".", "/", "..":
		return fieldError("clean.dist", fmt.Sprintf("refusing to clean %q", c.Clean.Dist))
	}
	for _, src := range []string{c.Src, c.Copy.Src} {
		s := pathmatch.Normalize(src)
		if target == s || isWithin(s, target) {
			return fieldError("clean.dist", fmt.Sprintf("%q would delete sources in %q", c.Clean.Dist, src))
		}
	}
	return nil
}

// isWithin reports whether child lies inside parent.
func isWithin(child, parent string) bool {
	if parent == "." {
		return true
	}
	rel := strings.TrimPrefix(path.Clean(child), parent+"/")
	return rel != child
}

func fieldError(field, msg string) error {
	return ferrors.ConfigError(field + " " + msg).
		WithContext("field", field).
		Build()
}
