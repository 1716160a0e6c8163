package transfer_test

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/ruminaider/anki-crossprofile/internal/collection"
	"github.com/ruminaider/anki-crossprofile/internal/collection/collectiontest"
	"github.com/ruminaider/anki-crossprofile/internal/paths"
	"github.com/ruminaider/anki-crossprofile/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	base    string
	srcFix  *collectiontest.Fixture
	dstFix  *collectiontest.Fixture
	src     *collection.Collection
	dst     *collection.Collection
	srcNote map[string]int64
}

func vocabNoteType() collection.NoteType {
	return collection.NoteType{
		Name:      "Vocab",
		Kind:      collection.KindStandard,
		Fields:    []collection.Field{{Name: "Word", Ord: 0}, {Name: "Meaning", Ord: 1}},
		Templates: []collection.Template{{Name: "Card 1", Ord: 0, QFmt: "{{Word}}"}},
	}
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	base := t.TempDir()

	srcFix := collectiontest.NewProfile(t, base, "work", collectiontest.IDBase(1000))
	srcFix.AddDeck("Spanish")
	srcFix.AddNoteType(vocabNoteType())
	notes := map[string]int64{
		"hola":  srcFix.AddNote(collectiontest.Basic, "Spanish", []string{"greeting"}, "hola", "hello"),
		"perro": srcFix.AddNote(collectiontest.Basic, "Spanish", nil, "perro", "dog"),
		"vocab": srcFix.AddNote("Vocab", "Spanish", nil, "gato", "cat"),
		"cloze": srcFix.AddNote(collectiontest.Cloze, "Spanish", nil, "{{c1::Madrid}} es la capital de {{c2::España}}", ""),
		"empty": srcFix.AddNote(collectiontest.Basic, "Spanish", nil, "<br>", "back only"),
		"media": srcFix.AddNote(collectiontest.Basic, "Spanish", nil, `casa <img src="casa.jpg">`, "[sound:casa.mp3]"),
	}
	srcMedia := paths.MediaDir(base, "work")
	require.NoError(t, os.MkdirAll(srcMedia, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(srcMedia, "casa.jpg"), []byte("jpeg"), 0644))

	dstFix := collectiontest.NewProfile(t, base, "User 1", collectiontest.IDBase(500000))
	dstFix.AddDeck("Imported")
	dstFix.AddFilteredDeck("Cram")
	dstFix.AddNote(collectiontest.Basic, collectiontest.DefaultDeck, nil, "<b>perro</b>", "existing")

	src, err := collection.Open(ctx, srcFix.Path, collection.Options{ReadOnly: true})
	require.NoError(t, err)
	t.Cleanup(func() { src.Close() })
	dst, err := collection.Open(ctx, dstFix.Path, collection.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { dst.Close() })

	return &env{base: base, srcFix: srcFix, dstFix: dstFix, src: src, dst: dst, srcNote: notes}
}

func (e *env) options() transfer.Options {
	return transfer.Options{
		CopyTags:       true,
		ExtraTags:      []string{"imported"},
		CopyMedia:      true,
		SourceMediaDir: paths.MediaDir(e.base, "work"),
		DestMediaDir:   paths.MediaDir(e.base, "User 1"),
	}
}

func (e *env) ids(names ...string) []int64 {
	ids := make([]int64, len(names))
	for i, n := range names {
		ids[i] = e.srcNote[n]
	}
	return ids
}

func digest(t *testing.T, path string) [32]byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return sha256.Sum256(data)
}

func TestTransferAll(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	before := digest(t, e.srcFix.Path)

	engine := transfer.New(e.src, e.dst, e.options())
	result, err := engine.TransferAll(ctx, e.ids("hola", "perro", "vocab", "cloze", "empty", "media"), "imported")
	require.NoError(t, err)

	assert.Equal(t, "Imported", result.Deck)
	assert.Len(t, result.Imported, 3)
	assert.Len(t, result.Duplicates, 1)
	assert.Len(t, result.MissingNoteTypes, 1)
	assert.Len(t, result.Empty, 1)
	assert.Empty(t, result.Failed)
	assert.Equal(t, 6, result.Total())
	assert.Equal(t, []string{"Vocab"}, result.MissingTypeNames())
	assert.Equal(t, "3 notes imported, 1 duplicate skipped, 1 without a matching note type, 1 with an empty first field, 1 media file copied", result.Summary())

	assert.Equal(t, 1+3, e.dstFix.Count("notes"))
	// basic + cloze(2) + basic
	assert.Equal(t, 1+4, e.dstFix.Count("cards"))

	newIDs := result.NewIDs()
	require.Len(t, newIDs, 3)
	hola, err := e.dst.Note(ctx, newIDs[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"hola", "hello"}, hola.Fields)
	assert.Equal(t, []string{"greeting", "imported"}, hola.Tags)
	assert.Equal(t, e.dstFix.NoteTypeID(collectiontest.Basic), hola.NoteTypeID)

	var did int64
	require.NoError(t, e.dstFix.DB().QueryRow(`SELECT did FROM cards WHERE nid = ?`, newIDs[0]).Scan(&did))
	assert.Equal(t, e.dstFix.DeckID("Imported"), did)

	assert.Equal(t, e.srcNote["perro"], result.Duplicates[0].SourceID)
	assert.NotZero(t, result.Duplicates[0].DuplicateOf)

	assert.Equal(t, before, digest(t, e.srcFix.Path), "source collection must not change")
}

// cancelOnImport cancels the batch context once the first note is imported.
type cancelOnImport struct {
	cancel context.CancelFunc
}

func (h cancelOnImport) Enabled(context.Context, slog.Level) bool { return true }

func (h cancelOnImport) Handle(_ context.Context, r slog.Record) error {
	if r.Message == "note imported" {
		h.cancel()
	}
	return nil
}

func (h cancelOnImport) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h cancelOnImport) WithGroup(string) slog.Handler { return h }

func TestTransferAllStopsWhenCancelled(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := e.options()
	opts.Logger = slog.New(cancelOnImport{cancel: cancel})
	engine := transfer.New(e.src, e.dst, opts)

	result, err := engine.TransferAll(ctx, e.ids("hola", "cloze", "media"), "Imported")
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)

	require.Len(t, result.Imported, 1)
	assert.Equal(t, e.srcNote["hola"], result.Imported[0].SourceID)
	assert.Equal(t, 1, result.Total())
	assert.Equal(t, 1+1, e.dstFix.Count("notes"), "notes after the cancelled one are not touched")
}

func TestTransferAllDeckErrors(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	engine := transfer.New(e.src, e.dst, e.options())

	_, err := engine.TransferAll(ctx, e.ids("hola"), "Nowhere")
	assert.ErrorIs(t, err, collection.ErrNotFound)

	_, err = engine.TransferAll(ctx, e.ids("hola"), "Cram")
	assert.ErrorIs(t, err, collection.ErrFilteredDeck)

	assert.Equal(t, 1, e.dstFix.Count("notes"))
}

func TestTransferAllContinuesAfterFailure(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	engine := transfer.New(e.src, e.dst, e.options())

	result, err := engine.TransferAll(ctx, []int64{424242, e.srcNote["hola"]}, "Imported")
	require.NoError(t, err)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, int64(424242), result.Failed[0].NoteID)
	assert.ErrorIs(t, result.Failed[0].Err, collection.ErrNotFound)
	assert.Len(t, result.Imported, 1)
}

func TestTransferDuplicateOnSecondRun(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	engine := transfer.New(e.src, e.dst, e.options())

	first, err := engine.Transfer(ctx, e.srcNote["hola"], "Imported")
	require.NoError(t, err)
	assert.Equal(t, transfer.Imported, first.Outcome)
	assert.NotZero(t, first.NewID)

	second, err := engine.Transfer(ctx, e.srcNote["hola"], "Imported")
	require.NoError(t, err)
	assert.Equal(t, transfer.Duplicate, second.Outcome)
	assert.Equal(t, first.NewID, second.DuplicateOf)
	assert.Zero(t, second.NewID)
}

func TestTransferDryRun(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	twin := e.srcFix.AddNote(collectiontest.Basic, "Spanish", nil, "<i>hola</i>", "hi again")

	opts := e.options()
	opts.DryRun = true
	engine := transfer.New(e.src, e.dst, opts)

	result, err := engine.TransferAll(ctx, append(e.ids("hola", "media"), twin), "Imported")
	require.NoError(t, err)
	assert.Len(t, result.Imported, 2)
	require.Len(t, result.Duplicates, 1)
	assert.Equal(t, e.srcNote["hola"], result.Duplicates[0].DuplicateOf)
	assert.Empty(t, result.NewIDs())
	assert.Contains(t, result.Summary(), "2 notes would be imported")

	assert.Equal(t, 1, e.dstFix.Count("notes"))
	assert.NoDirExists(t, paths.MediaDir(e.base, "User 1"))
}

func TestTransferMedia(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	engine := transfer.New(e.src, e.dst, e.options())

	res, err := engine.Transfer(ctx, e.srcNote["media"], "Imported")
	require.NoError(t, err)
	assert.Equal(t, transfer.Imported, res.Outcome)
	assert.Equal(t, []string{"casa.jpg"}, res.Media, "casa.mp3 is missing from the source media folder")

	data, err := os.ReadFile(filepath.Join(paths.MediaDir(e.base, "User 1"), "casa.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))
}

func TestTransferMediaKeepsExistingFiles(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	dstMedia := paths.MediaDir(e.base, "User 1")
	require.NoError(t, os.MkdirAll(dstMedia, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dstMedia, "casa.jpg"), []byte("mine"), 0644))

	engine := transfer.New(e.src, e.dst, e.options())
	res, err := engine.Transfer(ctx, e.srcNote["media"], "Imported")
	require.NoError(t, err)
	assert.Empty(t, res.Media)

	data, err := os.ReadFile(filepath.Join(dstMedia, "casa.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "mine", string(data))
}

func TestTransferWithoutTags(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	opts := e.options()
	opts.CopyTags = false
	opts.ExtraTags = nil
	engine := transfer.New(e.src, e.dst, opts)

	res, err := engine.Transfer(ctx, e.srcNote["hola"], "Imported")
	require.NoError(t, err)
	n, err := e.dst.Note(ctx, res.NewID)
	require.NoError(t, err)
	assert.Empty(t, n.Tags)
}

func TestMapFields(t *testing.T) {
	front := collection.Field{Name: "Front"}
	back := collection.Field{Name: "Back"}
	extra := collection.Field{Name: "Extra"}
	nt := func(fields ...collection.Field) collection.NoteType {
		return collection.NoteType{Fields: fields}
	}

	tests := []struct {
		name   string
		src    collection.NoteType
		dst    collection.NoteType
		values []string
		want   []string
	}{
		{"same layout", nt(front, back), nt(front, back), []string{"f", "b"}, []string{"f", "b"}},
		{"reordered by name", nt(back, front), nt(front, back), []string{"b", "f"}, []string{"f", "b"}},
		{"case-insensitive names", nt(collection.Field{Name: "front"}, back), nt(front, back), []string{"f", "b"}, []string{"f", "b"}},
		{"missing destination field left empty", nt(front), nt(front, back), []string{"f"}, []string{"f", ""}},
		{"surplus source field dropped", nt(front, back, extra), nt(front, back), []string{"f", "b", "x"}, []string{"f", "b"}},
		{"no shared names copies by position", nt(collection.Field{Name: "A"}, collection.Field{Name: "B"}), nt(front, back), []string{"a", "b"}, []string{"a", "b"}},
		{"positional with surplus", nt(collection.Field{Name: "A"}, collection.Field{Name: "B"}, collection.Field{Name: "C"}), nt(front, back), []string{"a", "b", "c"}, []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, transfer.MapFields(tt.src, tt.dst, tt.values))
		})
	}
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "imported", transfer.Imported.String())
	assert.Equal(t, "missing note type", transfer.MissingNoteType.String())
	assert.Equal(t, "Outcome(9)", transfer.Outcome(9).String())
}
