package commands

import (
	"os"

	"github.com/ruminaider/anki-crossprofile/internal/config"
	"github.com/ruminaider/anki-crossprofile/internal/paths"
	"github.com/ruminaider/anki-crossprofile/internal/profiles"
)

// StartState holds what the bare crossprofile command needs to decide
// whether the interactive browser can run.
type StartState struct {
	ConfigExists   bool
	BaseDir        string
	BaseExists     bool
	Profiles       []string
	CurrentProfile string
	CurrentExists  bool
}

// CanBrowse reports whether there is a current profile and at least one
// other profile to import from.
func (s StartState) CanBrowse() bool {
	return s.CurrentExists && len(s.Profiles) > 1
}

// DetectStartState inspects the config and the Anki base directory.
// It never errors; anything it cannot read is left false or empty.
func DetectStartState(cfg config.Config, configPath string) StartState {
	var state StartState

	if _, err := os.Stat(configPath); err == nil {
		state.ConfigExists = true
	}

	state.BaseDir = cfg.BaseDir
	if state.BaseDir == "" {
		state.BaseDir = paths.AnkiBaseDir()
	}
	if info, err := os.Stat(state.BaseDir); err != nil || !info.IsDir() {
		return state
	}
	state.BaseExists = true

	names, err := profiles.List(state.BaseDir)
	if err == nil {
		state.Profiles = names
	}

	state.CurrentProfile = cfg.CurrentProfile
	if state.CurrentProfile == "" && len(state.Profiles) == 1 {
		state.CurrentProfile = state.Profiles[0]
	}
	for _, name := range state.Profiles {
		if name == state.CurrentProfile {
			state.CurrentExists = true
			break
		}
	}
	return state
}
