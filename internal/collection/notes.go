package collection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Note is a user-authored content record.
type Note struct {
	ID         int64
	GUID       string
	NoteTypeID int64
	Mod        int64
	Tags       []string
	Fields     []string
}

// FirstField returns the note's first field, or "" for a note without
// fields.
func (n Note) FirstField() string {
	if len(n.Fields) == 0 {
		return ""
	}
	return n.Fields[0]
}

// Query selects notes. The zero Query matches every note.
type Query struct {
	// Deck restricts results to notes with a card in this deck or one of
	// its sub-decks.
	Deck string
	// Search is matched case-insensitively against stripped field text
	// and tags.
	Search string
	// Tag matches a tag exactly (ignoring case) or any of its child tags.
	Tag string
}

func (q Query) matches(fields, tags []string) bool {
	if q.Tag != "" && !hasTag(tags, q.Tag) {
		return false
	}
	if q.Search == "" {
		return true
	}
	needle := strings.ToLower(q.Search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(StripHTMLMedia(f)), needle) {
			return true
		}
	}
	for _, t := range tags {
		if strings.Contains(strings.ToLower(t), needle) {
			return true
		}
	}
	return false
}

func hasTag(tags []string, want string) bool {
	prefix := strings.ToLower(want) + DeckSeparator
	for _, t := range tags {
		if strings.EqualFold(t, want) || strings.HasPrefix(strings.ToLower(t), prefix) {
			return true
		}
	}
	return false
}

// NotePreview is the display form of a note in a list.
type NotePreview struct {
	ID         int64
	NoteTypeID int64
	Text       string
	Tags       []string
}

// ListNotes returns previews of the notes matching q, ordered by id.
func (c *Collection) ListNotes(ctx context.Context, q Query) ([]NotePreview, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	query := `SELECT id, mid, flds, tags FROM notes ORDER BY id`
	var args []any
	if q.Deck != "" {
		deckIDs, err := c.deckTreeIDs(ctx, q.Deck)
		if err != nil {
			return nil, err
		}
		in := placeholders(len(deckIDs))
		query = `SELECT id, mid, flds, tags FROM notes
			WHERE id IN (SELECT nid FROM cards WHERE did IN (` + in + `) OR odid IN (` + in + `))
			ORDER BY id`
		for range 2 {
			for _, id := range deckIDs {
				args = append(args, id)
			}
		}
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying notes: %w", err)
	}
	defer rows.Close()

	var previews []NotePreview
	for rows.Next() {
		var (
			p          NotePreview
			flds, tags string
		)
		if err := rows.Scan(&p.ID, &p.NoteTypeID, &flds, &tags); err != nil {
			return nil, fmt.Errorf("scanning note: %w", err)
		}
		fields := SplitFields(flds)
		p.Tags = ParseTags(tags)
		if !q.matches(fields, p.Tags) {
			continue
		}
		p.Text = strings.TrimSpace(StripHTMLMedia(fields[0]))
		previews = append(previews, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notes: %w", err)
	}
	return previews, nil
}

// FindNotes returns the ids of the notes matching q, ascending.
func (c *Collection) FindNotes(ctx context.Context, q Query) ([]int64, error) {
	previews, err := c.ListNotes(ctx, q)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(previews))
	for i, p := range previews {
		ids[i] = p.ID
	}
	return ids, nil
}

// NotePreviews returns previews for the given note ids in the order given.
// Unknown ids are skipped.
func (c *Collection) NotePreviews(ctx context.Context, ids []int64) ([]NotePreview, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, mid, flds, tags FROM notes WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying notes: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]NotePreview, len(ids))
	for rows.Next() {
		var (
			p          NotePreview
			flds, tags string
		)
		if err := rows.Scan(&p.ID, &p.NoteTypeID, &flds, &tags); err != nil {
			return nil, fmt.Errorf("scanning note: %w", err)
		}
		p.Text = strings.TrimSpace(StripHTMLMedia(SplitFields(flds)[0]))
		p.Tags = ParseTags(tags)
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notes: %w", err)
	}

	previews := make([]NotePreview, 0, len(byID))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			previews = append(previews, p)
		}
	}
	return previews, nil
}

// Note loads a single note.
func (c *Collection) Note(ctx context.Context, id int64) (Note, error) {
	if err := c.checkOpen(); err != nil {
		return Note{}, err
	}
	var (
		n          Note
		flds, tags string
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT id, guid, mid, mod, tags, flds FROM notes WHERE id = ?`, id,
	).Scan(&n.ID, &n.GUID, &n.NoteTypeID, &n.Mod, &tags, &flds)
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, fmt.Errorf("note %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Note{}, fmt.Errorf("reading note %d: %w", id, err)
	}
	n.Fields = SplitFields(flds)
	n.Tags = ParseTags(tags)
	return n, nil
}

// FindDuplicate returns the id of a note of the given type whose first
// field matches firstField once HTML is stripped, or 0 when there is none.
func (c *Collection) FindDuplicate(ctx context.Context, noteTypeID int64, firstField string) (int64, error) {
	if err := c.checkOpen(); err != nil {
		return 0, err
	}
	return findDuplicate(ctx, c.db, noteTypeID, firstField)
}

func findDuplicate(ctx context.Context, q queryer, noteTypeID int64, firstField string) (int64, error) {
	want := StripHTMLMedia(firstField)
	rows, err := q.QueryContext(ctx,
		`SELECT id, flds FROM notes WHERE mid = ? AND csum = ?`,
		noteTypeID, FieldChecksum(firstField),
	)
	if err != nil {
		return 0, fmt.Errorf("checking duplicates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   int64
			flds string
		)
		if err := rows.Scan(&id, &flds); err != nil {
			return 0, fmt.Errorf("scanning duplicate candidate: %w", err)
		}
		if StripHTMLMedia(SplitFields(flds)[0]) == want {
			return id, nil
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterating duplicate candidates: %w", err)
	}
	return 0, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
