// Package appdir resolves the per-user application data directory that holds
// the video database, the cookie store and the settings file.
package appdir

import (
	"os"
	"path/filepath"
)

// EnvOverride names the environment variable that forces a specific data
// directory. Useful for tests and for portable installs.
const EnvOverride = "AVMETA_DATA_DIR"

// Dir returns the app-local data directory, creating it when absent.
func Dir() (string, error) {
	if d := os.Getenv(EnvOverride); d != "" {
		return d, os.MkdirAll(d, 0o755)
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	d := filepath.Join(base, "avmeta")
	return d, os.MkdirAll(d, 0o755)
}

// File returns the path of name inside the data directory.
func File(name string) (string, error) {
	d, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, name), nil
}
