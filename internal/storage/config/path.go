// Package config loads the butterfly config.yaml and validates config paths.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// ParseConfigPath validates an explicit config file path and returns it
// cleaned. The path must be absolute, free of "..", and name an existing
// .yaml or .yml file.
func ParseConfigPath(path string) (string, error) {
	if path == "" {
		return "", errors.New("config path cannot be empty")
	}
	if !filepath.IsAbs(path) {
		return "", errors.New("config path must be absolute")
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return "", errors.New("config path contains invalid traversal")
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.Errorf("config file %s does not exist", path)
		}
		return "", errors.Errorf("checking config path: %w", err)
	}
	if info.IsDir() {
		return "", errors.New("config path is a directory, not a file")
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
	default:
		return "", errors.New("config file must have .yaml or .yml extension")
	}
	return filepath.Clean(path), nil
}
