package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath names a config file to use instead of the search list
	EnvConfigPath  = "LANWATCH_CONFIG"
	// ConfigFileName is looked up in the working directory
	ConfigFileName = "lanwatch.yaml"

	configDirName = "lanwatch"
)

// searchPaths returns the config locations tried when nothing is named
// explicitly, most specific first.
func searchPaths() []string {
	paths := []string{ConfigFileName}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, configDirName, "config.yaml"))
	}
	if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", configDirName, "config.yaml"))
	}
	return append(paths, filepath.Join("/etc", configDirName, "config.yaml"))
}

// Locate resolves the config file to load. A path given on the command line
// must exist. Without one, $LANWATCH_CONFIG is used when it names an existing
// file and the search paths otherwise. An empty result means run on defaults.
func Locate(explicit string) (string, error) {
	if explicit != "" {
		if !isFile(explicit) {
			return "", fmt.Errorf("config file %s: %w", explicit, os.ErrNotExist)
		}
		return absolute(explicit), nil
	}

	candidates := searchPaths()
	if env := os.Getenv(EnvConfigPath); env != "" {
		candidates = append([]string{env}, candidates...)
	}
	for _, path := range candidates {
		if isFile(path) {
			return absolute(path), nil
		}
	}
	return "", nil
}

func absolute(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
