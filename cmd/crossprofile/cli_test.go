package main

import (
	"bytes"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/ruminaider/anki-crossprofile/internal/collection/collectiontest"
	"github.com/ruminaider/anki-crossprofile/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cliEnv struct {
	base    string
	config  string
	current *collectiontest.Fixture
	source  *collectiontest.Fixture
	hola    int64
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	base := t.TempDir()
	collectiontest.WritePrefs(t, base, "main", "old")

	current := collectiontest.NewProfile(t, base, "main", collectiontest.IDBase(700000))
	current.AddDeck("Spanish")

	source := collectiontest.NewProfile(t, base, "old", collectiontest.IDBase(1000))
	source.AddDeck("Vocab")
	hola := source.AddNote(collectiontest.Basic, "Vocab", []string{"es"}, "hola", "hello")
	source.AddNote(collectiontest.Basic, "Vocab", nil, "gracias", "thanks")

	return &cliEnv{
		base:    base,
		config:  filepath.Join(t.TempDir(), "config.yaml"),
		current: current,
		source:  source,
		hola:    hola,
	}
}

// run executes the root command with the env's base, profile and config
// flags and returns stdout.
func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append([]string{"--base", e.base, "--profile", "main", "--config", e.config}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags() {
	flagBase, flagProfile, flagConfig, flagVerbose = "", "", "", false
	decksFrom = ""
	notesFrom, notesDeck, notesSearch = "", "", ""
	importFrom, importDeck, importInto, importSearch = "", "", "", ""
	importNotes = nil
	importAll, importDryRun = false, false
}

func TestVersionCommand(t *testing.T) {
	e := newCLIEnv(t)
	out, err := e.run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "crossprofile "+version+"\n", out)
}

func TestProfilesCommand(t *testing.T) {
	e := newCLIEnv(t)
	out, err := e.run(t, "profiles")
	require.NoError(t, err)
	assert.Equal(t, "* main\n  old\n", out)
}

func TestDecksCommand(t *testing.T) {
	e := newCLIEnv(t)

	out, err := e.run(t, "decks")
	require.NoError(t, err)
	assert.Equal(t, "Default\nSpanish\n", out)

	out, err = e.run(t, "decks", "--from", "old")
	require.NoError(t, err)
	assert.Equal(t, "Default\nVocab\n", out)

	_, err = e.run(t, "decks", "--from", "main")
	assert.Error(t, err)
}

func TestNotesCommand(t *testing.T) {
	e := newCLIEnv(t)

	out, err := e.run(t, "notes", "--from", "old", "--deck", "vocab")
	require.NoError(t, err)
	assert.Contains(t, out, "hola [es]")
	assert.Contains(t, out, "gracias")

	out, err = e.run(t, "notes", "--from", "old", "--deck", "Vocab", "--search", "thank")
	require.NoError(t, err)
	assert.NotContains(t, out, "hola")
	assert.Contains(t, out, "gracias")
}

func TestImportCommand(t *testing.T) {
	e := newCLIEnv(t)

	_, err := e.run(t, "import", "--from", "old", "--deck", "Vocab")
	assert.ErrorContains(t, err, "nothing selected")

	out, err := e.run(t, "import", "--from", "old", "--deck", "Vocab", "--into", "Spanish", "--all", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "2 notes would be imported")
	assert.Equal(t, 0, e.current.Count("notes"))

	holaID := strconv.FormatInt(e.hola, 10)
	out, err = e.run(t, "import", "--from", "old", "--into", "Spanish", "--note", holaID)
	require.NoError(t, err)
	assert.Equal(t, "Spanish: 1 note imported.\n", out)
	assert.Equal(t, 1, e.current.Count("notes"))

	out, err = e.run(t, "import", "--from", "old", "--deck", "Vocab", "--into", "Spanish", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "1 note imported, 1 duplicate skipped")
	assert.Contains(t, out, "duplicate: "+holaID)
	assert.Equal(t, 2, e.current.Count("notes"))
}

func TestImportCommandReportsFailures(t *testing.T) {
	e := newCLIEnv(t)

	out, err := e.run(t, "import", "--from", "old", "--into", "Spanish",
		"--note", strconv.FormatInt(e.hola, 10), "--note", "999999")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 notes failed")
	assert.Contains(t, out, "Spanish: 1 note imported, 1 failed.")
	assert.Contains(t, out, "failed: 999999:")
	assert.Equal(t, 1, e.current.Count("notes"))
}

func TestConfigCommands(t *testing.T) {
	e := newCLIEnv(t)

	out, err := e.run(t, "config", "set", "extra_tags", "imported, from-old")
	require.NoError(t, err)
	assert.Contains(t, out, "Set extra_tags")

	cfg, err := config.Load(e.config)
	require.NoError(t, err)
	assert.Equal(t, []string{"imported", "from-old"}, cfg.ExtraTags)

	out, err = e.run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "extra_tags:")
	assert.Contains(t, out, "- from-old")

	_, err = e.run(t, "config", "set", "nope", "x")
	assert.ErrorContains(t, err, "unknown config key")

	out, err = e.run(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, e.config+"\n", out)
}

func TestRootWithoutBase(t *testing.T) {
	e := newCLIEnv(t)
	e.base = filepath.Join(t.TempDir(), "missing")

	out, err := e.run(t)
	require.NoError(t, err)
	assert.Contains(t, out, "No Anki folder at")
}

func TestRootWithUnknownProfile(t *testing.T) {
	e := newCLIEnv(t)
	resetFlags()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--base", e.base, "--profile", "ghost", "--config", e.config})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "No current profile")
	assert.Contains(t, out.String(), "main, old")
}
