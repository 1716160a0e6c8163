package main

import (
	"fmt"

	"github.com/ruminaider/anki-crossprofile/internal/commands"
	"github.com/spf13/cobra"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List Anki profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		result, err := commands.Profiles(cfg.BaseDir, cfg.CurrentProfile)
		if err != nil {
			return err
		}

		if len(result.Names) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No profiles found in %s.\n", result.BaseDir)
			return nil
		}
		for _, name := range result.Names {
			if name == result.Current {
				fmt.Fprintf(cmd.OutOrStdout(), "* %s\n", name)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", name)
			}
		}
		return nil
	},
}
