package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// .env.local is loaded first so its values take precedence over .env.
var envFileNames = []string{".env.local", ".env"}

// loadEnvFiles loads the env files found in dir. Variables already present in
// the process environment win. Missing files are not an error.
func loadEnvFiles(dir string) ([]string, error) {
	var loaded []string
	for _, name := range envFileNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return loaded, err
		}
		loaded = append(loaded, p)
	}
	return loaded, nil
}
