package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ruminaider/anki-crossprofile/internal/collection"
	"github.com/ruminaider/anki-crossprofile/internal/config"
	"github.com/ruminaider/anki-crossprofile/internal/paths"
	"github.com/ruminaider/anki-crossprofile/internal/profiles"
	"github.com/ruminaider/anki-crossprofile/internal/transfer"
)

// Session errors.
var (
	ErrSameProfile      = errors.New("source profile is the current profile")
	ErrNoSourceProfile  = errors.New("no source profile selected")
	ErrNoCurrentProfile = errors.New("no current profile configured (set current_profile or pass --profile)")
)

// Session holds the current profile's collection open for writing and at
// most one other profile's collection open for reading.
type Session struct {
	cfg     config.Config
	baseDir string
	log     *slog.Logger

	currentName string
	current     *collection.Collection

	otherName string
	other     *collection.Collection
}

// NewSession opens the current profile named by cfg. When cfg names no
// profile and the base directory holds exactly one, that one is used.
func NewSession(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	baseDir := cfg.BaseDir
	if baseDir == "" {
		baseDir = paths.AnkiBaseDir()
	}

	// Fall back to the only profile when none is configured.
	name := cfg.CurrentProfile
	if name == "" {
		names, err := profiles.List(baseDir)
		if err != nil {
			return nil, err
		}
		if len(names) != 1 {
			return nil, ErrNoCurrentProfile
		}
		name = names[0]
	}
	p, err := profiles.Resolve(baseDir, name)
	if err != nil {
		return nil, err
	}

	// The current profile receives notes, so it is opened for writing.
	col, err := collection.Open(ctx, p.Collection, collection.Options{Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("opening current profile %q: %w", name, err)
	}
	logger.Debug("session started", "base", baseDir, "profile", name)

	return &Session{
		cfg:         cfg,
		baseDir:     baseDir,
		log:         logger,
		currentName: name,
		current:     col,
	}, nil
}

// BaseDir returns the Anki base directory in use.
func (s *Session) BaseDir() string { return s.baseDir }

// CurrentProfile returns the name of the profile receiving notes.
func (s *Session) CurrentProfile() string { return s.currentName }

// SourceProfile returns the selected source profile, or "".
func (s *Session) SourceProfile() string { return s.otherName }

// OtherProfiles lists every profile except the current one.
func (s *Session) OtherProfiles() ([]string, error) {
	return profiles.Others(s.baseDir, s.currentName)
}

// SelectProfile opens name read-only as the source profile, closing the
// previously selected one first.
func (s *Session) SelectProfile(ctx context.Context, name string) error {
	if name == s.currentName {
		return fmt.Errorf("%q: %w", name, ErrSameProfile)
	}
	if err := s.closeOther(); err != nil {
		return err
	}

	p, err := profiles.Resolve(s.baseDir, name)
	if err != nil {
		return err
	}
	col, err := collection.Open(ctx, p.Collection, collection.Options{ReadOnly: true, Logger: s.log})
	if err != nil {
		return fmt.Errorf("opening profile %q: %w", name, err)
	}
	s.other = col
	s.otherName = name
	s.log.Debug("source profile selected", "profile", name)
	return nil
}

// OtherDecks returns the source profile's deck names that pass the
// configured deck filters.
func (s *Session) OtherDecks(ctx context.Context) ([]string, error) {
	if s.other == nil {
		return nil, ErrNoSourceProfile
	}
	names, err := s.other.DeckNames(ctx)
	if err != nil {
		return nil, err
	}
	return FilterDecks(names, s.cfg.DeckFilters)
}

// CurrentDecks returns the current profile's decks that can receive new
// cards.
func (s *Session) CurrentDecks(ctx context.Context) ([]string, error) {
	decks, err := s.current.Decks(ctx)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, d := range decks {
		if !d.Filtered() {
			names = append(names, d.Name)
		}
	}
	return names, nil
}

// Notes lists the notes of a source deck, optionally narrowed by a search
// string.
func (s *Session) Notes(ctx context.Context, deck, search string) ([]collection.NotePreview, error) {
	if s.other == nil {
		return nil, ErrNoSourceProfile
	}
	return s.other.ListNotes(ctx, collection.Query{Deck: deck, Search: search})
}

// Import copies the given source notes into destDeck of the current
// profile. An empty destDeck means the configured default deck.
func (s *Session) Import(ctx context.Context, ids []int64, destDeck string, dryRun bool) (*transfer.Result, error) {
	if s.other == nil {
		return nil, ErrNoSourceProfile
	}
	if destDeck == "" {
		destDeck = s.cfg.DefaultDeck
	}

	engine := transfer.New(s.other, s.current, transfer.Options{
		CopyTags:       s.cfg.CopyTags,
		ExtraTags:      s.cfg.ExtraTags,
		CopyMedia:      s.cfg.CopyMedia,
		SourceMediaDir: profiles.MediaDir(s.baseDir, s.otherName),
		DestMediaDir:   profiles.MediaDir(s.baseDir, s.currentName),
		DryRun:         dryRun,
		Logger:         s.log.With("from", s.otherName, "into", s.currentName),
	})
	return engine.TransferAll(ctx, ids, destDeck)
}

// Close closes both collections.
func (s *Session) Close() error {
	errOther := s.closeOther()
	var errCurrent error
	if s.current != nil {
		errCurrent = s.current.Close()
		s.current = nil
	}
	return errors.Join(errOther, errCurrent)
}

func (s *Session) closeOther() error {
	if s.other == nil {
		return nil
	}
	err := s.other.Close()
	s.log.Debug("source profile closed", "profile", s.otherName)
	s.other = nil
	s.otherName = ""
	return err
}
