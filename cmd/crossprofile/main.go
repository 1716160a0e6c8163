package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/ruminaider/anki-crossprofile/internal/commands"
	"github.com/ruminaider/anki-crossprofile/internal/config"
	"github.com/ruminaider/anki-crossprofile/internal/paths"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

var (
	flagBase    string
	flagProfile string
	flagConfig  string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "crossprofile",
	Short: "Copy Anki notes from one profile into another",
	Long: "crossprofile browses the decks of another Anki profile and copies selected notes " +
		"into a deck of the current profile, matching note types by name and skipping duplicates.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		state := commands.DetectStartState(cfg, configPath())
		out := cmd.OutOrStdout()
		switch {
		case !state.BaseExists:
			fmt.Fprintf(out, "No Anki folder at %s. Pass --base or run 'crossprofile config set base_dir <dir>'.\n", state.BaseDir)
			return nil
		case !state.CurrentExists:
			fmt.Fprintln(out, "No current profile. Pass --profile or run 'crossprofile config set current_profile <name>'.")
			fmt.Fprintf(out, "Profiles: %s\n", strings.Join(state.Profiles, ", "))
			return nil
		case !state.CanBrowse():
			fmt.Fprintf(out, "%q is the only profile; there is nothing to import from.\n", state.CurrentProfile)
			return nil
		}

		// Default behavior: interactive browser
		return browseCmd.RunE(cmd, args)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "crossprofile %s\n", version)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagBase, "base", "", "Anki base directory (default: platform Anki2 folder)")
	pf.StringVarP(&flagProfile, "profile", "p", "", "current profile, the one that receives notes")
	pf.StringVar(&flagConfig, "config", "", "config file (default: "+paths.ConfigFile()+")")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "log debug output to stderr")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(decksCmd)
	rootCmd.AddCommand(notesCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(configCmd)
}

func configPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	return paths.ConfigFile()
}

// loadConfig reads the config file and applies the global flags on top.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return config.Config{}, err
	}
	if flagBase != "" {
		cfg.BaseDir = flagBase
	}
	if flagProfile != "" {
		cfg.CurrentProfile = flagProfile
	}
	if flagVerbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

func newLogger(cfg config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
}

func openSession(ctx context.Context) (*commands.Session, config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, config.Config{}, err
	}
	s, err := commands.NewSession(ctx, cfg, newLogger(cfg))
	if err != nil {
		return nil, config.Config{}, err
	}
	return s, cfg, nil
}

func main() {
	// Ctrl-C cancels the context so an import stops after the current note.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
