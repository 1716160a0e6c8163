// Package collection reads and writes Anki collection databases
// (collection.anki2, schema version 11).
//
// A Collection opened with Options.ReadOnly never writes: the connection is
// opened with mode=ro and PRAGMA query_only, and every mutating method
// returns ErrReadOnly before touching the database.
package collection

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// SchemaVersion is the only col.ver this package understands.
const SchemaVersion = 11

// Errors returned by Open and the query and write methods. Callers match
// them with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrReadOnly          = errors.New("collection is read-only")
	ErrEmptyFile         = errors.New("collection file is empty")
	ErrNotCollection     = errors.New("not an Anki collection")
	ErrUnsupportedSchema = errors.New("unsupported collection schema")
	ErrFilteredDeck      = errors.New("cannot add cards to a filtered deck")
)

var openDB = sql.Open

// Options controls how a collection is opened.
type Options struct {
	ReadOnly bool
	Logger   *slog.Logger
}

// Collection is an open collection database.
type Collection struct {
	db       *sql.DB
	path     string
	readOnly bool
	log      *slog.Logger
	closed   bool
	lastID   int64
}

// Open opens the collection at path. It never creates a database: a
// missing or empty file is an error.
func Open(ctx context.Context, path string, opts Options) (*Collection, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening collection %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("opening collection %s: %w", path, ErrNotCollection)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("opening collection %s: %w", path, ErrEmptyFile)
	}

	source, err := dsn(path, opts.ReadOnly)
	if err != nil {
		return nil, err
	}
	db, err := openDB("sqlite", source)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to sqlite: %w", err)
	}

	var ver int
	if err := db.QueryRowContext(ctx, "SELECT ver FROM col").Scan(&ver); err != nil {
		db.Close()
		if strings.Contains(err.Error(), "no such table") || strings.Contains(err.Error(), "file is not a database") {
			return nil, fmt.Errorf("opening collection %s: %w", path, ErrNotCollection)
		}
		return nil, fmt.Errorf("reading collection version: %w", err)
	}
	if ver != SchemaVersion {
		db.Close()
		return nil, fmt.Errorf("opening collection %s: %w (version %d, want %d)", path, ErrUnsupportedSchema, ver, SchemaVersion)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger.Debug("collection opened", "path", path, "read_only", opts.ReadOnly)

	return &Collection{
		db:       db,
		path:     path,
		readOnly: opts.ReadOnly,
		log:      logger,
	}, nil
}

// dsn builds a SQLite URI for path. mode=rw keeps the driver from creating
// a fresh database when the file disappears between Stat and open.
func dsn(path string, readOnly bool) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving collection path: %w", err)
	}
	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	if readOnly {
		q.Set("mode", "ro")
		q.Add("_pragma", "query_only(1)")
	} else {
		q.Set("mode", "rw")
	}

	u := url.URL{Scheme: "file", Path: p, RawQuery: q.Encode()}
	return u.String(), nil
}

// Close closes the database. It is safe to call more than once.
func (c *Collection) Close() error {
	if c == nil || c.closed {
		return nil
	}
	c.closed = true
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("closing collection %s: %w", c.path, err)
	}
	c.log.Debug("collection closed", "path", c.path)
	return nil
}

// Path returns the file the collection was opened from.
func (c *Collection) Path() string { return c.path }

// ReadOnly reports whether the collection was opened read-only.
func (c *Collection) ReadOnly() bool { return c.readOnly }

// colRow is the JSON payload of the single row in the col table.
type colRow struct {
	Decks  map[string]json.RawMessage
	Models map[string]json.RawMessage
	Conf   map[string]json.RawMessage
}

func (c *Collection) loadCol(ctx context.Context, q queryer) (colRow, error) {
	var decks, models, conf string
	err := q.QueryRowContext(ctx, "SELECT decks, models, conf FROM col").Scan(&decks, &models, &conf)
	if err != nil {
		return colRow{}, fmt.Errorf("reading col row: %w", err)
	}

	var row colRow
	if err := unmarshalObject(decks, &row.Decks); err != nil {
		return colRow{}, fmt.Errorf("decoding decks: %w", err)
	}
	if err := unmarshalObject(models, &row.Models); err != nil {
		return colRow{}, fmt.Errorf("decoding note types: %w", err)
	}
	if err := unmarshalObject(conf, &row.Conf); err != nil {
		return colRow{}, fmt.Errorf("decoding collection config: %w", err)
	}
	return row, nil
}

func unmarshalObject(s string, v *map[string]json.RawMessage) error {
	if strings.TrimSpace(s) == "" {
		*v = map[string]json.RawMessage{}
		return nil
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return err
	}
	if *v == nil {
		*v = map[string]json.RawMessage{}
	}
	return nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (c *Collection) checkOpen() error {
	if c.closed {
		return fmt.Errorf("collection %s is closed", c.path)
	}
	return nil
}
