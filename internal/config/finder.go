package config

import (
	"os"
	"path/filepath"
)

// configExts are tried in order for every config file location.
var configExts = []string{"yml", "yaml", "json", "toml"}

// FindLocalConfig walks up from dir looking for .shimkit.{yml,yaml,json,toml}.
func FindLocalConfig(dir string) string {
	for {
		for _, ext := range configExts {
			path := filepath.Join(dir, ".shimkit."+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// FindGlobalConfig returns the first config.{ext} in the user config
// directory's shimkit folder.
func FindGlobalConfig() string {
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		return ""
	}
	for _, ext := range configExts {
		path := filepath.Join(base, "shimkit", "config."+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
