package config

import (
	"os"

	"git.home.luguber.info/inful/quicksip/internal/foundation/normalization"
)

// EnvVar selects the default environment when a pipeline does not set env.
const EnvVar = "QUICKSIP_ENV"

// Env is the build environment. Production turns off bundler debug output by default.
type Env string

const (
	EnvDevelopment Env = "development"
	EnvProduction  Env = "production"
	EnvTest        Env = "test"
)

var envNormalizer = normalization.NewNormalizer(map[string]Env{
	"development": EnvDevelopment,
	"dev":         EnvDevelopment,
	"production":  EnvProduction,
	"prod":        EnvProduction,
	"test":        EnvTest,
}, EnvDevelopment)

// ParseEnv normalizes raw, rejecting unknown environments.
func ParseEnv(raw string) (Env, error) {
	return envNormalizer.Parse(raw)
}

// defaultEnv is read on every resolution so a changed process environment is
// picked up by the next Resolve or Update.
func defaultEnv() string {
	if v := os.Getenv(EnvVar); v != "" {
		return v
	}
	return string(EnvDevelopment)
}
