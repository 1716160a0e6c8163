package collection

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// DeckSeparator joins the components of a nested deck name.
const DeckSeparator = "::"

// Deck is a named grouping of cards.
type Deck struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Dyn  int    `json:"dyn"`
}

// Filtered reports whether the deck is a filtered (dynamic) deck.
func (d Deck) Filtered() bool { return d.Dyn != 0 }

// Decks returns every deck sorted by name.
func (c *Collection) Decks(ctx context.Context) ([]Deck, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	row, err := c.loadCol(ctx, c.db)
	if err != nil {
		return nil, err
	}
	return parseDecks(row.Decks)
}

func parseDecks(raw map[string]json.RawMessage) ([]Deck, error) {
	decks := make([]Deck, 0, len(raw))
	for key, data := range raw {
		var d Deck
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("decoding deck %s: %w", key, err)
		}
		decks = append(decks, d)
	}
	sort.Slice(decks, func(i, j int) bool { return decks[i].Name < decks[j].Name })
	return decks, nil
}

// DeckNames returns all deck names, sorted.
func (c *Collection) DeckNames(ctx context.Context) ([]string, error) {
	decks, err := c.Decks(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(decks))
	for i, d := range decks {
		names[i] = d.Name
	}
	return names, nil
}

// DeckByName finds a deck by name, ignoring case the way Anki does.
func (c *Collection) DeckByName(ctx context.Context, name string) (Deck, error) {
	decks, err := c.Decks(ctx)
	if err != nil {
		return Deck{}, err
	}
	for _, d := range decks {
		if strings.EqualFold(d.Name, name) {
			return d, nil
		}
	}
	return Deck{}, fmt.Errorf("deck %q: %w", name, ErrNotFound)
}

// deckTreeIDs returns the id of the named deck and of all its sub-decks.
func (c *Collection) deckTreeIDs(ctx context.Context, name string) ([]int64, error) {
	decks, err := c.Decks(ctx)
	if err != nil {
		return nil, err
	}
	return deckTree(decks, name)
}

func deckTree(decks []Deck, name string) ([]int64, error) {
	lower := strings.ToLower(name)
	prefix := lower + DeckSeparator

	var ids []int64
	found := false
	for _, d := range decks {
		n := strings.ToLower(d.Name)
		switch {
		case n == lower:
			found = true
			ids = append(ids, d.ID)
		case strings.HasPrefix(n, prefix):
			ids = append(ids, d.ID)
		}
	}
	if !found {
		return nil, fmt.Errorf("deck %q: %w", name, ErrNotFound)
	}
	return ids, nil
}
