package commands

import (
	"github.com/ruminaider/anki-crossprofile/internal/paths"
	"github.com/ruminaider/anki-crossprofile/internal/profiles"
)

// ProfilesResult holds the profiles found under a base directory.
type ProfilesResult struct {
	BaseDir string
	Current string
	Names   []string
}

// Profiles lists the profiles under baseDir (the platform default when
// empty).
func Profiles(baseDir, current string) (*ProfilesResult, error) {
	if baseDir == "" {
		baseDir = paths.AnkiBaseDir()
	}
	// Names come from prefs21.db, or from the profile folders without it.
	names, err := profiles.List(baseDir)
	if err != nil {
		return nil, err
	}
	return &ProfilesResult{
		BaseDir: baseDir,
		Current: current,
		Names:   names,
	}, nil
}
