package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/ruminaider/anki-crossprofile/internal/transfer"
	"github.com/spf13/cobra"
)

var (
	importFrom   string
	importDeck   string
	importInto   string
	importNotes  []int64
	importSearch string
	importAll    bool
	importDryRun bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Copy notes from another profile into the current one",
	Long: "Copies notes from --deck of the --from profile into --into of the current profile.\n" +
		"Pick notes with --note (repeatable), --search, or --all.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(importNotes) == 0 && importSearch == "" && !importAll {
			return errors.New("nothing selected: use --note, --search or --all")
		}
		if len(importNotes) == 0 && importDeck == "" {
			return errors.New("--deck is required with --search or --all")
		}

		ctx := cmd.Context()
		s, _, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.SelectProfile(ctx, importFrom); err != nil {
			return err
		}

		ids := importNotes
		if len(ids) == 0 {
			notes, err := s.Notes(ctx, importDeck, importSearch)
			if err != nil {
				return err
			}
			for _, n := range notes {
				ids = append(ids, n.ID)
			}
		}
		if len(ids) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No notes matched.")
			return nil
		}

		// An interrupted batch still reports what it got through.
		result, err := s.Import(ctx, ids, importInto, importDryRun)
		if result != nil {
			printResult(cmd.OutOrStdout(), result)
		}
		if err != nil {
			return err
		}
		if len(result.Failed) > 0 {
			return fmt.Errorf("%d of %d notes failed", len(result.Failed), result.Total())
		}
		return nil
	},
}

func init() {
	f := importCmd.Flags()
	f.StringVar(&importFrom, "from", "", "profile to copy from")
	f.StringVarP(&importDeck, "deck", "d", "", "source deck (includes sub-decks)")
	f.StringVar(&importInto, "into", "", "destination deck in the current profile (default: default_deck)")
	f.Int64SliceVarP(&importNotes, "note", "n", nil, "note id to copy (repeatable)")
	f.StringVarP(&importSearch, "search", "s", "", "copy the notes of --deck matching this text")
	f.BoolVar(&importAll, "all", false, "copy every note of --deck")
	f.BoolVar(&importDryRun, "dry-run", false, "report what would be copied without writing")
	importCmd.MarkFlagRequired("from")
}

// printResult writes the summary line and one line per note that was not
// imported.
func printResult(w io.Writer, r *transfer.Result) {
	fmt.Fprintf(w, "%s: %s.\n", r.Deck, r.Summary())
	for _, nr := range r.Duplicates {
		fmt.Fprintf(w, "  duplicate: %d (matches %d)\n", nr.SourceID, nr.DuplicateOf)
	}
	for _, name := range r.MissingTypeNames() {
		fmt.Fprintf(w, "  note type %q does not exist in the current profile\n", name)
	}
	for _, nr := range r.Empty {
		fmt.Fprintf(w, "  empty first field: %d\n", nr.SourceID)
	}
	for _, f := range r.Failed {
		fmt.Fprintf(w, "  failed: %d: %v\n", f.NoteID, f.Err)
	}
}
