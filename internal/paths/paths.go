package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

func home() string {
	h, _ := os.UserHomeDir()
	return h
}

// AnkiBaseDir returns the directory holding Anki's profile folders.
// $ANKI_BASE wins over the platform default.
func AnkiBaseDir() string {
	if base := os.Getenv("ANKI_BASE"); base != "" {
		return base
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home(), "Library", "Application Support", "Anki2")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Anki2")
		}
		return filepath.Join(home(), "AppData", "Roaming", "Anki2")
	}
	if data := os.Getenv("XDG_DATA_HOME"); data != "" {
		return filepath.Join(data, "Anki2")
	}
	return filepath.Join(home(), ".local", "share", "Anki2")
}

// ConfigDir returns ~/.config/crossprofile.
func ConfigDir() string {
	if cfg := os.Getenv("XDG_CONFIG_HOME"); cfg != "" {
		return filepath.Join(cfg, "crossprofile")
	}
	return filepath.Join(home(), ".config", "crossprofile")
}

// ConfigFile returns ~/.config/crossprofile/config.yaml.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ProfileDir returns <base>/<profile>.
func ProfileDir(baseDir, profile string) string {
	return filepath.Join(baseDir, profile)
}

// CollectionFile returns <base>/<profile>/collection.anki2.
func CollectionFile(baseDir, profile string) string {
	return filepath.Join(baseDir, profile, "collection.anki2")
}

// MediaDir returns <base>/<profile>/collection.media.
func MediaDir(baseDir, profile string) string {
	return filepath.Join(baseDir, profile, "collection.media")
}

// PrefsFile returns <base>/prefs21.db.
func PrefsFile(baseDir string) string {
	return filepath.Join(baseDir, "prefs21.db")
}
