// Package config locates and reads the livewatch configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	ErrNoConfigDir = errors.New("no user config directory to store data at")
	ErrConfigDir   = errors.New("config path isn't a directory")
)

// Dir returns the livewatch directory in the user config directory,
// $XDG_CONFIG_HOME or ~/.config on Linux, creating it when missing.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoConfigDir, err)
	}

	dir := filepath.Join(base, "livewatch")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("can't create config dir: %w", err)
	}

	fi, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("can't find config dir: %w", err)
	}

	if !fi.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrConfigDir, dir)
	}

	return dir, nil
}
