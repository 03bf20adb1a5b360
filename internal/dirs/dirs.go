// Package dirs resolves where jview keeps its files, following the XDG base
// directory conventions with fallbacks for platforms that lack them.
package dirs

import (
	"os"
	"path/filepath"
)

// ConfigDir returns the directory for user configuration (saved presets).
// Priority: $JVIEW_CONFIG_DIR > $XDG_CONFIG_HOME/jview > ~/.config/jview
func ConfigDir() string {
	if v := os.Getenv("JVIEW_CONFIG_DIR"); v != "" {
		return v
	}
	if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return filepath.Join(base, "jview")
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", "jview")
	}
	if base, err := os.UserConfigDir(); err == nil {
		return filepath.Join(base, "jview")
	}
	return filepath.Join(os.TempDir(), "jview-config")
}

// PresetsFile returns the path of the saved query presets.
func PresetsFile() string {
	return filepath.Join(ConfigDir(), "presets.yaml")
}
