package main

import (
	"fmt"
	"strings"

	"github.com/ruminaider/anki-crossprofile/internal/collection"
	"github.com/spf13/cobra"
)

var (
	notesFrom   string
	notesDeck   string
	notesSearch string
)

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "List the notes of a deck in another profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, _, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.SelectProfile(ctx, notesFrom); err != nil {
			return err
		}
		notes, err := s.Notes(ctx, notesDeck, notesSearch)
		if err != nil {
			return err
		}

		if len(notes) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No notes found.")
			return nil
		}
		for _, n := range notes {
			fmt.Fprintln(cmd.OutOrStdout(), noteLine(n))
		}
		return nil
	},
}

func init() {
	notesCmd.Flags().StringVar(&notesFrom, "from", "", "profile to read from")
	notesCmd.Flags().StringVarP(&notesDeck, "deck", "d", "", "deck to list (includes sub-decks)")
	notesCmd.Flags().StringVarP(&notesSearch, "search", "s", "", "only notes whose text or tags contain this")
	notesCmd.MarkFlagRequired("from")
	notesCmd.MarkFlagRequired("deck")
}

// noteLine renders a preview as "id<TAB>text [tags]" on one line.
func noteLine(n collection.NotePreview) string {
	text := strings.Join(strings.Fields(n.Text), " ")
	if len(n.Tags) == 0 {
		return fmt.Sprintf("%d\t%s", n.ID, text)
	}
	return fmt.Sprintf("%d\t%s [%s]", n.ID, text, strings.Join(n.Tags, " "))
}
