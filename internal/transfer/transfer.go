// Package transfer copies notes from one collection into another.
//
// The source collection is only ever read. A note is created in the
// destination when a note type of the same name exists there and no note of
// that type already has the same first field.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ruminaider/anki-crossprofile/internal/collection"
)

// Outcome is what happened to one source note.
type Outcome int

const (
	Imported Outcome = iota
	Duplicate
	MissingNoteType
	Empty
)

func (o Outcome) String() string {
	switch o {
	case Imported:
		return "imported"
	case Duplicate:
		return "duplicate"
	case MissingNoteType:
		return "missing note type"
	case Empty:
		return "empty first field"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Options controls how notes are copied.
type Options struct {
	// CopyTags carries the source note's tags over.
	CopyTags bool
	// ExtraTags are added to every imported note.
	ExtraTags []string
	// CopyMedia copies referenced media files that are missing from
	// DestMediaDir.
	CopyMedia      bool
	SourceMediaDir string
	DestMediaDir   string
	// DryRun resolves outcomes without writing anything.
	DryRun bool
	Logger *slog.Logger
}

// Engine copies notes from Source to Dest.
type Engine struct {
	source *collection.Collection
	dest   *collection.Collection
	opts   Options
	log    *slog.Logger

	types map[int64]typeMapping
}

type typeMapping struct {
	src   collection.NoteType
	dst   collection.NoteType
	found bool
}

// New returns an Engine. dest must be writable unless opts.DryRun is set.
func New(source, dest *collection.Collection, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		source: source,
		dest:   dest,
		opts:   opts,
		log:    logger,
		types:  map[int64]typeMapping{},
	}
}

// NoteResult describes the transfer of one source note.
type NoteResult struct {
	SourceID int64
	Outcome  Outcome
	// NewID is the id of the created note. It stays 0 for dry runs and for
	// notes that were not imported.
	NewID int64
	// DuplicateOf is the destination note that blocked the import.
	DuplicateOf int64
	NoteType    string
	Media       []string
}

// Transfer copies a single note into the named destination deck.
func (e *Engine) Transfer(ctx context.Context, noteID int64, destDeck string) (NoteResult, error) {
	deck, err := e.destDeck(ctx, destDeck)
	if err != nil {
		return NoteResult{}, err
	}
	return e.transfer(ctx, noteID, deck, nil)
}

// TransferAll copies every note into the named destination deck. The deck
// is checked before any note is read; after that a failing note is recorded
// in Result.Failed and the batch carries on.
func (e *Engine) TransferAll(ctx context.Context, noteIDs []int64, destDeck string) (*Result, error) {
	deck, err := e.destDeck(ctx, destDeck)
	if err != nil {
		return nil, err
	}

	result := &Result{Deck: deck.Name, DryRun: e.opts.DryRun}
	var seen map[dupKey]int64
	if e.opts.DryRun {
		seen = map[dupKey]int64{}
	}
	for _, id := range noteIDs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		nr, err := e.transfer(ctx, id, deck, seen)
		if err != nil {
			e.log.Warn("note transfer failed", "note_id", id, "error", err)
			result.Failed = append(result.Failed, Failure{NoteID: id, Err: err})
			continue
		}
		result.add(nr)
	}
	e.log.Info("transfer finished",
		"deck", deck.Name,
		"imported", len(result.Imported),
		"duplicates", len(result.Duplicates),
		"missing_note_types", len(result.MissingNoteTypes),
		"failed", len(result.Failed),
		"dry_run", e.opts.DryRun,
	)
	return result, nil
}

func (e *Engine) destDeck(ctx context.Context, name string) (collection.Deck, error) {
	deck, err := e.dest.DeckByName(ctx, name)
	if err != nil {
		return collection.Deck{}, fmt.Errorf("resolving destination deck: %w", err)
	}
	if deck.Filtered() {
		return collection.Deck{}, fmt.Errorf("destination deck %q: %w", deck.Name, collection.ErrFilteredDeck)
	}
	return deck, nil
}

type dupKey struct {
	noteType int64
	first    string
}

func (e *Engine) transfer(ctx context.Context, noteID int64, deck collection.Deck, seen map[dupKey]int64) (NoteResult, error) {
	src, err := e.source.Note(ctx, noteID)
	if err != nil {
		return NoteResult{}, fmt.Errorf("reading source note: %w", err)
	}
	res := NoteResult{SourceID: noteID}

	m, err := e.mapping(ctx, src.NoteTypeID)
	if err != nil {
		return NoteResult{}, err
	}
	res.NoteType = m.src.Name
	if !m.found {
		e.log.Debug("no matching note type", "note_id", noteID, "note_type", m.src.Name)
		res.Outcome = MissingNoteType
		return res, nil
	}

	fields := MapFields(m.src, m.dst, src.Fields)
	first := fields[0]
	if strings.TrimSpace(collection.StripHTMLMedia(first)) == "" {
		res.Outcome = Empty
		return res, nil
	}

	dup, err := e.dest.FindDuplicate(ctx, m.dst.ID, first)
	if err != nil {
		return NoteResult{}, err
	}
	key := dupKey{m.dst.ID, collection.StripHTMLMedia(first)}
	if dup == 0 && seen != nil {
		dup = seen[key]
	}
	if dup != 0 {
		e.log.Debug("duplicate note skipped", "note_id", noteID, "duplicate_of", dup)
		res.Outcome = Duplicate
		res.DuplicateOf = dup
		return res, nil
	}

	if e.opts.CopyMedia {
		res.Media = collection.MediaReferences(fields)
	}

	res.Outcome = Imported
	if e.opts.DryRun {
		if seen != nil {
			seen[key] = noteID
		}
		return res, nil
	}

	var tags []string
	if e.opts.CopyTags {
		tags = src.Tags
	}
	n := collection.Note{
		NoteTypeID: m.dst.ID,
		Fields:     fields,
		Tags:       collection.MergeTags(tags, e.opts.ExtraTags),
	}
	if _, err := e.dest.AddNote(ctx, &n, deck.ID); err != nil {
		return NoteResult{}, fmt.Errorf("adding note: %w", err)
	}
	res.NewID = n.ID

	if len(res.Media) > 0 {
		copied, err := copyMedia(e.opts.SourceMediaDir, e.opts.DestMediaDir, res.Media)
		for _, name := range copied {
			e.log.Debug("media copied", "file", name)
		}
		if err != nil {
			// The note is already committed; report the media problem
			// without failing the note.
			e.log.Warn("copying media", "note_id", noteID, "error", err)
		}
		res.Media = copied
	}

	e.log.Debug("note imported", "note_id", noteID, "new_id", n.ID, "deck", deck.Name)
	return res, nil
}

// mapping resolves the destination note type for a source note type id,
// caching the answer for the life of the engine.
func (e *Engine) mapping(ctx context.Context, srcTypeID int64) (typeMapping, error) {
	if m, ok := e.types[srcTypeID]; ok {
		return m, nil
	}
	src, err := e.source.NoteType(ctx, srcTypeID)
	if err != nil {
		return typeMapping{}, fmt.Errorf("reading source note type: %w", err)
	}
	m := typeMapping{src: src}
	dst, err := e.dest.NoteTypeByName(ctx, src.Name)
	switch {
	case err == nil:
		m.dst = dst
		m.found = true
	case !errors.Is(err, collection.ErrNotFound):
		return typeMapping{}, fmt.Errorf("resolving destination note type: %w", err)
	}
	e.types[srcTypeID] = m
	return m, nil
}

// MapFields lays the source values out in the destination's field order.
// Fields are matched by name, ignoring case; when no names are shared the
// values are copied by position. Surplus values are dropped and missing ones
// are left empty.
func MapFields(src, dst collection.NoteType, values []string) []string {
	out := make([]string, len(dst.Fields))
	if len(out) == 0 {
		return []string{""}
	}

	matched := false
	for i, f := range src.Fields {
		if i >= len(values) {
			break
		}
		if j := dst.FieldIndex(f.Name); j >= 0 {
			out[j] = values[i]
			matched = true
		}
	}
	if matched {
		return out
	}
	copy(out, values)
	return out
}
