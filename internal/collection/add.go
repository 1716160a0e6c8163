package collection

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// AddNote inserts n into the collection together with the cards its note
// type generates, all placed in deckID. On success n.ID, n.GUID and n.Mod
// are filled in and the new card ids are returned.
func (c *Collection) AddNote(ctx context.Context, n *Note, deckID int64) ([]int64, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if c.readOnly {
		return nil, ErrReadOnly
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	row, err := c.loadCol(ctx, tx)
	if err != nil {
		return nil, err
	}
	nt, err := findNoteType(row, n.NoteTypeID)
	if err != nil {
		return nil, err
	}
	deck, err := findDeck(row, deckID)
	if err != nil {
		return nil, err
	}
	if deck.Filtered() {
		return nil, fmt.Errorf("deck %q: %w", deck.Name, ErrFilteredDeck)
	}
	if len(n.Fields) != len(nt.Fields) {
		return nil, fmt.Errorf("note has %d fields, note type %q has %d", len(n.Fields), nt.Name, len(nt.Fields))
	}

	now := time.Now()
	noteID, err := c.nextID(ctx, tx, "notes", now)
	if err != nil {
		return nil, err
	}
	guid := n.GUID
	if guid == "" {
		guid = NewGUID()
	}
	sortIdx := nt.SortField
	if sortIdx < 0 || sortIdx >= len(n.Fields) {
		sortIdx = 0
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO notes (id, guid, mid, mod, usn, tags, flds, sfld, csum, flags, data)
		VALUES (?, ?, ?, ?, -1, ?, ?, ?, ?, 0, '')`,
		noteID, guid, nt.ID, now.Unix(), JoinTags(n.Tags), JoinFields(n.Fields),
		StripHTMLMedia(n.Fields[sortIdx]), FieldChecksum(n.FirstField()),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting note: %w", err)
	}

	due, err := nextPos(row.Conf)
	if err != nil {
		return nil, err
	}

	var cardIDs []int64
	for _, ord := range nt.CardOrdinals(n.Fields) {
		cardID, err := c.nextID(ctx, tx, "cards", now)
		if err != nil {
			return nil, err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO cards (id, nid, did, ord, mod, usn, type, queue, due, ivl, factor, reps, lapses, left, odue, odid, flags, data)
			VALUES (?, ?, ?, ?, ?, -1, 0, 0, ?, 0, 0, 0, 0, 0, 0, 0, 0, '')`,
			cardID, noteID, deck.ID, ord, now.Unix(), due,
		)
		if err != nil {
			return nil, fmt.Errorf("inserting card: %w", err)
		}
		cardIDs = append(cardIDs, cardID)
	}

	pos, err := json.Marshal(due + 1)
	if err != nil {
		return nil, fmt.Errorf("encoding nextPos: %w", err)
	}
	row.Conf["nextPos"] = pos
	conf, err := json.Marshal(row.Conf)
	if err != nil {
		return nil, fmt.Errorf("encoding collection config: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE col SET mod = ?, conf = ?`, now.UnixMilli(), string(conf)); err != nil {
		return nil, fmt.Errorf("updating collection: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing note: %w", err)
	}

	n.ID = noteID
	n.GUID = guid
	n.Mod = now.Unix()
	c.log.Debug("note added", "note_id", noteID, "note_type", nt.Name, "deck", deck.Name, "cards", len(cardIDs))
	return cardIDs, nil
}

// nextID returns an unused millisecond-timestamp id for table.
func (c *Collection) nextID(ctx context.Context, tx *sql.Tx, table string, now time.Time) (int64, error) {
	id := now.UnixMilli()
	if id <= c.lastID {
		id = c.lastID + 1
	}
	for {
		var one int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			c.lastID = id
			return id, nil
		}
		if err != nil {
			return 0, fmt.Errorf("allocating %s id: %w", table, err)
		}
		id++
	}
}

func nextPos(conf map[string]json.RawMessage) (int64, error) {
	raw, ok := conf["nextPos"]
	if !ok {
		return 1, nil
	}
	var pos int64
	if err := json.Unmarshal(raw, &pos); err != nil {
		return 0, fmt.Errorf("decoding nextPos: %w", err)
	}
	if pos < 1 {
		pos = 1
	}
	return pos, nil
}

func findNoteType(row colRow, id int64) (NoteType, error) {
	types, err := parseNoteTypes(row.Models)
	if err != nil {
		return NoteType{}, err
	}
	for _, nt := range types {
		if nt.ID == id {
			return nt, nil
		}
	}
	return NoteType{}, fmt.Errorf("note type %d: %w", id, ErrNotFound)
}

func findDeck(row colRow, id int64) (Deck, error) {
	decks, err := parseDecks(row.Decks)
	if err != nil {
		return Deck{}, err
	}
	for _, d := range decks {
		if d.ID == id {
			return d, nil
		}
	}
	return Deck{}, fmt.Errorf("deck %d: %w", id, ErrNotFound)
}
