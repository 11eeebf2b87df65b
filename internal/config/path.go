// Package config loads application configuration from Viper keys and
// environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath resolves a leading ~ to the user's home directory and expands
// $VAR environment references. Paths that need neither pass through
// unchanged, as does ~ when the home directory cannot be determined.
func ExpandPath(path string) string {
	if home, err := os.UserHomeDir(); err == nil {
		switch {
		case path == "~":
			path = home
		case strings.HasPrefix(path, "~/"):
			path = filepath.Join(home, path[2:])
		}
	}
	return os.ExpandEnv(path)
}
