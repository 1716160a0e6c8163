package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Pick a profile, deck and notes interactively, then import them",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, cfg, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()
		out := cmd.OutOrStdout()

		others, err := s.OtherProfiles()
		if err != nil {
			return err
		}
		if len(others) == 0 {
			fmt.Fprintf(out, "No other profiles next to %q.\n", s.CurrentProfile())
			return nil
		}

		var from string
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title(fmt.Sprintf("Import into %q from which profile?", s.CurrentProfile())).
					Options(huh.NewOptions(others...)...).
					Value(&from),
			),
		).Run()
		if err != nil {
			return quietAbort(err)
		}
		if err := s.SelectProfile(ctx, from); err != nil {
			return err
		}

		decks, err := s.OtherDecks(ctx)
		if err != nil {
			return err
		}
		if len(decks) == 0 {
			fmt.Fprintf(out, "Profile %q has no decks matching the deck filters.\n", from)
			return nil
		}

		var deck, search string
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Source deck").
					Options(huh.NewOptions(decks...)...).
					Height(12).
					Value(&deck),
				huh.NewInput().
					Title("Search (optional)").
					Description("Only list notes whose text or tags contain this").
					Value(&search),
			),
		).Run()
		if err != nil {
			return quietAbort(err)
		}

		notes, err := s.Notes(ctx, deck, search)
		if err != nil {
			return err
		}
		if len(notes) == 0 {
			fmt.Fprintln(out, "No notes found.")
			return nil
		}

		ids, err := runPicker(fmt.Sprintf("%s / %s: select notes to import", from, deck), notes)
		if err != nil {
			return err
		}
		if ids == nil {
			return nil
		}
		if len(ids) == 0 {
			fmt.Fprintln(out, "Nothing selected.")
			return nil
		}

		dest, err := s.CurrentDecks(ctx)
		if err != nil {
			return err
		}
		into := cfg.DefaultDeck
		var confirmed bool
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title(fmt.Sprintf("Destination deck in %q", s.CurrentProfile())).
					Options(huh.NewOptions(dest...)...).
					Height(12).
					Value(&into),
				huh.NewConfirm().
					Title(fmt.Sprintf("Import %d %s?", len(ids), plural("note", len(ids)))).
					Affirmative("Import").
					Negative("Cancel").
					Value(&confirmed),
			),
		).Run()
		if err != nil {
			return quietAbort(err)
		}
		if !confirmed {
			return nil
		}

		result, err := s.Import(ctx, ids, into, false)
		if result != nil {
			printResult(out, result)
		}
		return err
	},
}

// quietAbort turns a cancelled form into a clean exit.
func quietAbort(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return nil
	}
	return err
}

func plural(word string, n int) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
