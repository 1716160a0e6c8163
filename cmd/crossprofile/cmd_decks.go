package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var decksFrom string

var decksCmd = &cobra.Command{
	Use:   "decks",
	Short: "List decks of the current profile, or of another with --from",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, _, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		var names []string
		if decksFrom != "" {
			if err := s.SelectProfile(ctx, decksFrom); err != nil {
				return err
			}
			names, err = s.OtherDecks(ctx)
		} else {
			names, err = s.CurrentDecks(ctx)
		}
		if err != nil {
			return err
		}

		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	decksCmd.Flags().StringVar(&decksFrom, "from", "", "list the decks of this profile instead")
}
