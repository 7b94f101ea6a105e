// Package config loads the YAML configuration of the network viewer and
// finds it on disk.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Directory and file names used for discovery.
const (
	DirName  = ".syndicate"
	FileName = "config.yaml"
)

// DefaultDir returns the per-user state directory (~/.syndicate), falling
// back to a relative .syndicate when the home directory is unknown.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return DirName
	}
	return filepath.Join(home, DirName)
}

// FindConfig searches for .syndicate/config.yaml starting from dir (the
// working directory when empty) and walking up. The search stops at the
// home directory, whose own .syndicate/config.yaml is still considered.
func FindConfig(dir string) (string, error) {
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return "", err
		}
	}
	home, _ := os.UserHomeDir()

	for {
		candidate := filepath.Join(dir, DirName, FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break // Reached filesystem root
		}
		// Don't go above home directory
		if home != "" && dir == home {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
