// Package collectiontest builds throwaway Anki collections for tests.
package collectiontest

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ruminaider/anki-crossprofile/internal/collection"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE col (
    id     integer PRIMARY KEY,
    crt    integer NOT NULL,
    mod    integer NOT NULL,
    scm    integer NOT NULL,
    ver    integer NOT NULL,
    dty    integer NOT NULL,
    usn    integer NOT NULL,
    ls     integer NOT NULL,
    conf   text NOT NULL,
    models text NOT NULL,
    decks  text NOT NULL,
    dconf  text NOT NULL,
    tags   text NOT NULL
);
CREATE TABLE notes (
    id    integer PRIMARY KEY,
    guid  text NOT NULL,
    mid   integer NOT NULL,
    mod   integer NOT NULL,
    usn   integer NOT NULL,
    tags  text NOT NULL,
    flds  text NOT NULL,
    sfld  integer NOT NULL,
    csum  integer NOT NULL,
    flags integer NOT NULL,
    data  text NOT NULL
);
CREATE TABLE cards (
    id     integer PRIMARY KEY,
    nid    integer NOT NULL,
    did    integer NOT NULL,
    ord    integer NOT NULL,
    mod    integer NOT NULL,
    usn    integer NOT NULL,
    type   integer NOT NULL,
    queue  integer NOT NULL,
    due    integer NOT NULL,
    ivl    integer NOT NULL,
    factor integer NOT NULL,
    reps   integer NOT NULL,
    lapses integer NOT NULL,
    left   integer NOT NULL,
    odue   integer NOT NULL,
    odid   integer NOT NULL,
    flags  integer NOT NULL,
    data   text NOT NULL
);
CREATE TABLE revlog (
    id      integer PRIMARY KEY,
    cid     integer NOT NULL,
    usn     integer NOT NULL,
    ease    integer NOT NULL,
    ivl     integer NOT NULL,
    lastIvl integer NOT NULL,
    factor  integer NOT NULL,
    time    integer NOT NULL,
    type    integer NOT NULL
);
CREATE TABLE graves (
    usn  integer NOT NULL,
    oid  integer NOT NULL,
    type integer NOT NULL
);
CREATE INDEX ix_notes_usn ON notes (usn);
CREATE INDEX ix_cards_usn ON cards (usn);
CREATE INDEX ix_revlog_usn ON revlog (usn);
CREATE INDEX ix_cards_nid ON cards (nid);
CREATE INDEX ix_cards_sched ON cards (did, queue, due);
CREATE INDEX ix_revlog_cid ON revlog (cid);
CREATE INDEX ix_notes_csum ON notes (csum);
`

// Names of the note types every fixture starts with.
const (
	Basic         = "Basic"
	BasicReversed = "Basic (and reversed card)"
	Cloze         = "Cloze"
	DefaultDeck   = "Default"
)

// Fixture is a collection under construction.
type Fixture struct {
	Path string

	tb     testing.TB
	db     *sql.DB
	next   int64
	decks  map[string]collection.Deck
	models map[string]collection.NoteType
}

// Option customizes New.
type Option func(*Fixture)

// IDBase makes the fixture allocate deck, note type, note and card ids
// starting at base, so two fixtures never share ids by accident.
func IDBase(base int64) Option {
	return func(f *Fixture) { f.next = base }
}

// New creates a schema-11 collection at path with a Default deck and the
// Basic, Basic (and reversed card) and Cloze note types.
func New(tb testing.TB, path string, opts ...Option) *Fixture {
	tb.Helper()
	require.NoError(tb, os.MkdirAll(filepath.Dir(path), 0755))

	db, err := sql.Open("sqlite", path)
	require.NoError(tb, err)
	_, err = db.Exec(schema)
	require.NoError(tb, err)

	f := &Fixture{
		Path:   path,
		tb:     tb,
		db:     db,
		next:   1000,
		decks:  map[string]collection.Deck{},
		models: map[string]collection.NoteType{},
	}
	for _, opt := range opts {
		opt(f)
	}
	tb.Cleanup(func() { db.Close() })

	_, err = db.Exec(`INSERT INTO col VALUES (1, 1500000000, 0, 0, ?, 0, 0, 0, '{"nextPos": 1}', '{}', '{}', '{}', '{}')`,
		collection.SchemaVersion)
	require.NoError(tb, err)

	f.decks[DefaultDeck] = collection.Deck{ID: 1, Name: DefaultDeck}
	f.AddNoteType(BasicNoteType())
	f.AddNoteType(BasicReversedNoteType())
	f.AddNoteType(ClozeNoteType())
	f.save()
	return f
}

// NewProfile creates <base>/<name>/collection.anki2.
func NewProfile(tb testing.TB, baseDir, name string, opts ...Option) *Fixture {
	tb.Helper()
	return New(tb, filepath.Join(baseDir, name, "collection.anki2"), opts...)
}

// WritePrefs creates <base>/prefs21.db listing the given profiles plus the
// reserved _global entry.
func WritePrefs(tb testing.TB, baseDir string, names ...string) {
	tb.Helper()
	require.NoError(tb, os.MkdirAll(baseDir, 0755))
	db, err := sql.Open("sqlite", filepath.Join(baseDir, "prefs21.db"))
	require.NoError(tb, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE profiles (name text PRIMARY KEY COLLATE NOCASE, data blob NOT NULL)`)
	require.NoError(tb, err)
	for _, name := range append([]string{"_global"}, names...) {
		_, err = db.Exec(`INSERT INTO profiles VALUES (?, x'')`, name)
		require.NoError(tb, err)
	}
}

// BasicNoteType is Anki's stock front/back type.
func BasicNoteType() collection.NoteType {
	return collection.NoteType{
		Name:   Basic,
		Kind:   collection.KindStandard,
		Fields: []collection.Field{{Name: "Front", Ord: 0}, {Name: "Back", Ord: 1}},
		Templates: []collection.Template{
			{Name: "Card 1", Ord: 0, QFmt: "{{Front}}", AFmt: "{{FrontSide}}<hr id=answer>{{Back}}"},
		},
		Req: []collection.Requirement{{Ord: 0, Kind: "any", Fields: []int{0}}},
	}
}

// BasicReversedNoteType has two templates and no req list.
func BasicReversedNoteType() collection.NoteType {
	return collection.NoteType{
		Name:   BasicReversed,
		Kind:   collection.KindStandard,
		Fields: []collection.Field{{Name: "Front", Ord: 0}, {Name: "Back", Ord: 1}},
		Templates: []collection.Template{
			{Name: "Card 1", Ord: 0, QFmt: "{{Front}}", AFmt: "{{Back}}"},
			{Name: "Card 2", Ord: 1, QFmt: "{{Back}}", AFmt: "{{Front}}"},
		},
	}
}

// ClozeNoteType is Anki's stock cloze type.
func ClozeNoteType() collection.NoteType {
	return collection.NoteType{
		Name:   Cloze,
		Kind:   collection.KindCloze,
		Fields: []collection.Field{{Name: "Text", Ord: 0}, {Name: "Back Extra", Ord: 1}},
		Templates: []collection.Template{
			{Name: "Cloze", Ord: 0, QFmt: "{{cloze:Text}}", AFmt: "{{cloze:Text}}<br>{{Back Extra}}"},
		},
	}
}

func (f *Fixture) id() int64 {
	f.next++
	return f.next
}

// AddDeck adds a deck and returns its id.
func (f *Fixture) AddDeck(name string) int64 {
	d := collection.Deck{ID: f.id(), Name: name}
	f.decks[name] = d
	f.save()
	return d.ID
}

// AddFilteredDeck adds a filtered deck and returns its id.
func (f *Fixture) AddFilteredDeck(name string) int64 {
	d := collection.Deck{ID: f.id(), Name: name, Dyn: 1}
	f.decks[name] = d
	f.save()
	return d.ID
}

// AddNoteType adds nt under a fresh id and returns the id.
func (f *Fixture) AddNoteType(nt collection.NoteType) int64 {
	nt.ID = f.id()
	f.models[nt.Name] = nt
	f.save()
	return nt.ID
}

// NoteTypeID returns the id of a note type added to the fixture.
func (f *Fixture) NoteTypeID(name string) int64 {
	f.tb.Helper()
	nt, ok := f.models[name]
	require.True(f.tb, ok, "unknown note type %q", name)
	return nt.ID
}

// DeckID returns the id of a deck added to the fixture.
func (f *Fixture) DeckID(name string) int64 {
	f.tb.Helper()
	d, ok := f.decks[name]
	require.True(f.tb, ok, "unknown deck %q", name)
	return d.ID
}

// AddNote inserts a note of the named type with cards in the named deck.
func (f *Fixture) AddNote(noteType, deck string, tags []string, fields ...string) int64 {
	f.tb.Helper()
	nt, ok := f.models[noteType]
	require.True(f.tb, ok, "unknown note type %q", noteType)
	d, ok := f.decks[deck]
	require.True(f.tb, ok, "unknown deck %q", deck)
	for len(fields) < len(nt.Fields) {
		fields = append(fields, "")
	}

	noteID := f.id()
	_, err := f.db.Exec(
		`INSERT INTO notes VALUES (?, ?, ?, 0, 0, ?, ?, ?, ?, 0, '')`,
		noteID, collection.NewGUID(), nt.ID, collection.JoinTags(tags), collection.JoinFields(fields),
		collection.StripHTMLMedia(fields[0]), collection.FieldChecksum(fields[0]),
	)
	require.NoError(f.tb, err)

	for _, ord := range nt.CardOrdinals(fields) {
		_, err := f.db.Exec(
			`INSERT INTO cards VALUES (?, ?, ?, ?, 0, 0, 0, 0, ?, 0, 0, 0, 0, 0, 0, 0, 0, '')`,
			f.id(), noteID, d.ID, ord, noteID,
		)
		require.NoError(f.tb, err)
	}
	return noteID
}

// MoveToFilteredDeck moves every card of the note into the filtered deck,
// recording the original deck in odid.
func (f *Fixture) MoveToFilteredDeck(noteID int64, deck string) {
	f.tb.Helper()
	d, ok := f.decks[deck]
	require.True(f.tb, ok, "unknown deck %q", deck)
	_, err := f.db.Exec(`UPDATE cards SET odid = did, did = ? WHERE nid = ?`, d.ID, noteID)
	require.NoError(f.tb, err)
}

// Count returns SELECT count() FROM table.
func (f *Fixture) Count(table string) int {
	f.tb.Helper()
	var n int
	require.NoError(f.tb, f.db.QueryRow("SELECT count() FROM "+table).Scan(&n))
	return n
}

// DB exposes the fixture's raw handle for assertions.
func (f *Fixture) DB() *sql.DB { return f.db }

func (f *Fixture) save() {
	f.tb.Helper()
	decks := map[string]collection.Deck{}
	for _, d := range f.decks {
		decks[jsonKey(d.ID)] = d
	}
	models := map[string]collection.NoteType{}
	for _, nt := range f.models {
		models[jsonKey(nt.ID)] = nt
	}
	decksJSON, err := json.Marshal(decks)
	require.NoError(f.tb, err)
	modelsJSON, err := json.Marshal(models)
	require.NoError(f.tb, err)
	_, err = f.db.Exec(`UPDATE col SET decks = ?, models = ?`, string(decksJSON), string(modelsJSON))
	require.NoError(f.tb, err)
}

func jsonKey(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
