package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/quicksip/internal/foundation/errors"
)

func resolve(t *testing.T, u UserConfig) *Config {
	t.Helper()
	cfg, err := Resolve(u)
	require.NoError(t, err)
	return cfg
}

func TestResolveDefaults(t *testing.T) {
	t.Setenv(EnvVar, "")
	cfg := resolve(t, UserConfig{})

	assert.Equal(t, "", cfg.TaskPrefix)
	assert.Equal(t, "app", cfg.Src)
	assert.Equal(t, "dist", cfg.Dist)
	assert.Equal(t, EnvDevelopment, cfg.Env)

	assert.Equal(t, CleanConfig{Dist: "dist"}, cfg.Clean)
	assert.Equal(t, CopyConfig{Src: "app", Dist: "dist", Excludes: "scss"}, cfg.Copy)
	assert.Equal(t, StylesConfig{
		Src:      "app/**/*.scss",
		Root:     "app/app.scss",
		Includes: []string{},
		Dist:     "dist",
	}, cfg.Styles)
	assert.Equal(t, BrowserifyConfig{
		Root:       "./app/app",
		Out:        "app.js",
		Transforms: []TransformSpec{},
		Debug:      true,
		Dist:       "dist",
	}, cfg.Browserify)
}

func TestResolvePropagatesTopLevelValues(t *testing.T) {
	cfg := resolve(t, UserConfig{Dist: String("out"), Src: String("client")})

	assert.Equal(t, "out", cfg.Clean.Dist)
	assert.Equal(t, "out", cfg.Copy.Dist)
	assert.Equal(t, "out", cfg.Styles.Dist)
	assert.Equal(t, "out", cfg.Browserify.Dist)

	assert.Equal(t, "client", cfg.Copy.Src)
	assert.Equal(t, "client/app.scss", cfg.Styles.Root)
	assert.Equal(t, "client/**/*.scss", cfg.Styles.Src)
	assert.Equal(t, "./client/app", cfg.Browserify.Root)
}

func TestResolveSectionOverrideWins(t *testing.T) {
	cfg := resolve(t, UserConfig{
		Dist:  String("out"),
		Clean: &CleanOverrides{Dist: String("special")},
	})

	assert.Equal(t, "special", cfg.Clean.Dist)
	assert.Equal(t, "out", cfg.Copy.Dist, "sibling sections keep their derived defaults")
	assert.Equal(t, "out", cfg.Styles.Dist)
}

func TestResolveEnvControlsDebug(t *testing.T) {
	cfg := resolve(t, UserConfig{Env: String("prod")})
	assert.Equal(t, EnvProduction, cfg.Env)
	assert.False(t, cfg.Browserify.Debug)

	cfg = resolve(t, UserConfig{Env: String("production"), Browserify: &BrowserifyOverrides{Debug: Bool(true)}})
	assert.True(t, cfg.Browserify.Debug)

	t.Setenv(EnvVar, "production")
	cfg = resolve(t, UserConfig{})
	assert.False(t, cfg.Browserify.Debug)
}

func TestResolveIsIdempotentThroughPlain(t *testing.T) {
	x := resolve(t, UserConfig{
		TaskPrefix: String("admin-"),
		Dist:       String("out"),
		Styles:     &StylesOverrides{Includes: []string{"node_modules"}},
		Browserify: &BrowserifyOverrides{
			Transforms: []TransformSpec{Named("hbsfy"), Configured("aliasify", map[string]any{"global": true})},
		},
	})

	y := resolve(t, x.Plain())

	assert.Equal(t, x.TaskPrefix, y.TaskPrefix)
	assert.Equal(t, x.Src, y.Src)
	assert.Equal(t, x.Dist, y.Dist)
	assert.Equal(t, x.Env, y.Env)
	assert.Equal(t, x.Clean, y.Clean)
	assert.Equal(t, x.Copy, y.Copy)
	assert.Equal(t, x.Styles, y.Styles)
	assert.Equal(t, x.Browserify, y.Browserify)
	assert.Equal(t, x.Plain(), y.Plain())
}

func TestResolveIsDeterministic(t *testing.T) {
	u := UserConfig{Src: String("web"), Copy: &CopyOverrides{Excludes: String("js|scss")}}
	assert.Equal(t, resolve(t, u).Plain(), resolve(t, u).Plain())
}

func TestFreshResolutionsShareNothing(t *testing.T) {
	a := resolve(t, UserConfig{})
	b := resolve(t, UserConfig{})

	a.Styles.Includes = append(a.Styles.Includes, "vendor")
	a.Browserify.Transforms = append(a.Browserify.Transforms, Named("x"))
	a.Clean.Dist = "mutated"

	assert.Empty(t, b.Styles.Includes)
	assert.Empty(t, b.Browserify.Transforms)
	assert.Equal(t, "dist", b.Clean.Dist)
}

func TestResolveDoesNotAliasCallerInput(t *testing.T) {
	opts := map[string]any{"global": true}
	includes := []string{"a"}
	u := UserConfig{
		Styles:     &StylesOverrides{Includes: includes},
		Browserify: &BrowserifyOverrides{Transforms: []TransformSpec{Configured("aliasify", opts)}},
	}
	cfg := resolve(t, u)

	includes[0] = "changed"
	opts["global"] = false

	assert.Equal(t, []string{"a"}, cfg.Styles.Includes)
	assert.Equal(t, true, cfg.Browserify.Transforms[0].Options["global"])
}

func TestUpdateMutatesInPlace(t *testing.T) {
	cfg := resolve(t, UserConfig{})
	holder := cfg

	got, err := cfg.Update(UserConfig{Dist: String("public")})
	require.NoError(t, err)

	assert.Same(t, holder, got)
	assert.Equal(t, "public", holder.Dist)
	assert.Equal(t, "public", holder.Clean.Dist)
	assert.Equal(t, "public", holder.Copy.Dist)
	assert.Equal(t, "public", holder.Styles.Dist)
	assert.Equal(t, "public", holder.Browserify.Dist)
}

func TestUpdateKeepsExplicitSectionValues(t *testing.T) {
	cfg := resolve(t, UserConfig{Clean: &CleanOverrides{Dist: String("special")}})

	_, err := cfg.Update(UserConfig{Dist: String("out")})
	require.NoError(t, err)

	assert.Equal(t, "special", cfg.Clean.Dist)
	assert.Equal(t, "out", cfg.Copy.Dist)
}

func TestUpdateRederivesAfterEarlierUpdate(t *testing.T) {
	cfg := resolve(t, UserConfig{})
	_, err := cfg.Update(UserConfig{Dist: String("first")})
	require.NoError(t, err)
	_, err = cfg.Update(UserConfig{Dist: String("second")})
	require.NoError(t, err)

	assert.Equal(t, "second", cfg.Browserify.Dist)
	assert.Equal(t, "second", cfg.Clean.Dist)
}

func TestUpdateReplacesSequencesOnlyWhenSupplied(t *testing.T) {
	cfg := resolve(t, UserConfig{
		Browserify: &BrowserifyOverrides{Transforms: []TransformSpec{Named("a"), Named("a")}},
	})

	_, err := cfg.Update(UserConfig{Browserify: &BrowserifyOverrides{Out: String("bundle.js")}})
	require.NoError(t, err)
	assert.Equal(t, []TransformSpec{Named("a"), Named("a")}, cfg.Browserify.Transforms)
	assert.Equal(t, "bundle.js", cfg.Browserify.Out)

	_, err = cfg.Update(UserConfig{Browserify: &BrowserifyOverrides{Transforms: []TransformSpec{Named("b")}}})
	require.NoError(t, err)
	assert.Equal(t, []TransformSpec{Named("b")}, cfg.Browserify.Transforms)
}

func TestUpdateExplicitFalseOverridesTrue(t *testing.T) {
	cfg := resolve(t, UserConfig{Clean: &CleanOverrides{Skip: Bool(true)}})
	require.True(t, cfg.Clean.Skip)

	_, err := cfg.Update(UserConfig{Clean: &CleanOverrides{Skip: Bool(false)}})
	require.NoError(t, err)
	assert.False(t, cfg.Clean.Skip)
}

func TestUpdateDiscardsDirectFieldAssignments(t *testing.T) {
	cfg := resolve(t, UserConfig{})
	cfg.Clean.Skip = true

	_, err := cfg.Update(UserConfig{Dist: String("out")})
	require.NoError(t, err)
	assert.False(t, cfg.Clean.Skip)
	assert.Nil(t, cfg.Overrides().Clean)

	_, err = cfg.Update(UserConfig{Clean: &CleanOverrides{Skip: Bool(true)}})
	require.NoError(t, err)
	_, err = cfg.Update(UserConfig{Dist: String("again")})
	require.NoError(t, err)
	assert.True(t, cfg.Clean.Skip)
}

func TestUpdateErrorLeavesReceiverUntouched(t *testing.T) {
	cfg := resolve(t, UserConfig{Dist: String("out")})

	_, err := cfg.Update(UserConfig{Src: String("")})
	require.Error(t, err)
	assert.Equal(t, "app", cfg.Src)
	assert.Equal(t, "out", cfg.Dist)
}

func TestMutatingUpdateResultDoesNotAffectOthers(t *testing.T) {
	a := resolve(t, UserConfig{})
	b := resolve(t, UserConfig{})

	_, err := a.Update(UserConfig{Styles: &StylesOverrides{Includes: []string{"x"}}})
	require.NoError(t, err)
	a.Styles.Includes[0] = "y"

	assert.Empty(t, b.Styles.Includes)
	again := resolve(t, UserConfig{})
	assert.Empty(t, again.Styles.Includes)
}

func TestCloneIsDeep(t *testing.T) {
	cfg := resolve(t, UserConfig{
		Browserify: &BrowserifyOverrides{Transforms: []TransformSpec{Configured("envify", map[string]any{"NODE_ENV": "x"})}},
	})
	c := cfg.Clone()
	c.Browserify.Transforms[0].Options["NODE_ENV"] = "y"

	assert.Equal(t, "x", cfg.Browserify.Transforms[0].Options["NODE_ENV"])
	assert.Equal(t, cfg.Overrides(), c.Overrides())
}

func TestResolveRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name  string
		in    UserConfig
		field string
	}{
		{"empty src", UserConfig{Src: String(" ")}, "src"},
		{"empty out", UserConfig{Browserify: &BrowserifyOverrides{Out: String("")}}, "browserify.out"},
		{"out is a path", UserConfig{Browserify: &BrowserifyOverrides{Out: String("js/app.js")}}, "browserify.out"},
		{"clean working tree", UserConfig{Clean: &CleanOverrides{Dist: String(".")}}, "clean.dist"},
		{"clean sources", UserConfig{Dist: String("app")}, "clean.dist"},
		{"clean parent of sources", UserConfig{Src: String("build/app"), Dist: String("build")}, "clean.dist"},
		{"bad excludes", UserConfig{Copy: &CopyOverrides{Excludes: String("js||css")}}, "copy.excludes"},
		{"empty transform", UserConfig{Browserify: &BrowserifyOverrides{Transforms: []TransformSpec{Named("")}}}, "browserify.transforms[0]"},
		{"unknown env", UserConfig{Env: String("staging")}, "env"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.in)
			require.Error(t, err)
			ce, ok := ferrors.AsClassified(err)
			require.True(t, ok)
			assert.Equal(t, ferrors.CategoryConfig, ce.Category())
			assert.True(t, ce.IsFatal())
			field, _ := ce.Context().GetString("field")
			assert.Equal(t, tt.field, field)
		})
	}
}

func TestCleanTargetIgnoredWhenSkipped(t *testing.T) {
	_, err := Resolve(UserConfig{Clean: &CleanOverrides{Skip: Bool(true), Dist: String(".")}})
	require.NoError(t, err)
}

func TestDeriveSectionDefaultsAllocatesFresh(t *testing.T) {
	base := Base{Src: "s", Dist: "d", Env: "test"}
	a := DeriveSectionDefaults(base)
	b := DeriveSectionDefaults(base)

	require.NotSame(t, a, b)
	a.Styles.Includes = append(a.Styles.Includes, "z")
	assert.Empty(t, b.Styles.Includes)
	assert.Equal(t, "./s/app", b.Browserify.Root)
	assert.True(t, b.Browserify.Debug)
}
