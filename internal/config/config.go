package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Config represents ~/.config/crossprofile/config.yaml.
type Config struct {
	BaseDir        string   `yaml:"base_dir,omitempty"`
	CurrentProfile string   `yaml:"current_profile,omitempty"`
	DefaultDeck    string   `yaml:"default_deck,omitempty"`
	CopyTags       bool     `yaml:"copy_tags"`
	CopyMedia      bool     `yaml:"copy_media"`
	ExtraTags      []string `yaml:"extra_tags,omitempty"`
	DeckFilters    []string `yaml:"deck_filters,omitempty"`
	LogLevel       string   `yaml:"log_level,omitempty"`
}

// Default returns a Config with default values.
func Default() Config {
	return Config{
		DefaultDeck: "Default",
		CopyTags:    true,
		CopyMedia:   true,
		LogLevel:    "info",
	}
}

// Parse parses config.yaml bytes into a Config. Keys absent from the
// document keep their default values.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Marshal serializes a Config to YAML bytes.
func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// Load reads the config at path. A missing file yields Default().
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Save writes cfg to path, creating the parent directory.
func Save(path string, cfg Config) error {
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return err
	}
	data, err := Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Level returns the slog level named by LogLevel.
func (c Config) Level() slog.Level {
	lvl, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// ParseLevel maps debug/info/warn/error onto slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", s)
}

// Set assigns a single key by its YAML name. List values are
// comma-separated.
func (c *Config) Set(key, value string) error {
	switch key {
	case "base_dir":
		c.BaseDir = value
	case "current_profile":
		c.CurrentProfile = value
	case "default_deck":
		c.DefaultDeck = value
	case "copy_tags", "copy_media":
		var b bool
		switch strings.ToLower(value) {
		case "true", "yes", "1":
			b = true
		case "false", "no", "0":
			b = false
		default:
			return fmt.Errorf("%s: expected a boolean, got %q", key, value)
		}
		if key == "copy_tags" {
			c.CopyTags = b
		} else {
			c.CopyMedia = b
		}
	case "extra_tags":
		c.ExtraTags = splitList(value)
	case "deck_filters":
		c.DeckFilters = splitList(value)
	case "log_level":
		if _, err := ParseLevel(value); err != nil {
			return err
		}
		c.LogLevel = value
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
