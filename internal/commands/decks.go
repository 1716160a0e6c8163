package commands

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/ruminaider/anki-crossprofile/internal/collection"
)

// FilterDecks keeps the deck names matching at least one glob pattern.
// Patterns use "::" between deck levels like deck names do, so
// "Languages::**" selects Languages and everything below it. Matching
// ignores case. No patterns keeps every deck.
func FilterDecks(names, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return names, nil
	}

	globs := make([]string, len(patterns))
	for i, p := range patterns {
		g := deckPath(p)
		if !doublestar.ValidatePattern(g) {
			return nil, fmt.Errorf("invalid deck filter %q", p)
		}
		globs[i] = g
	}

	var out []string
	for _, name := range names {
		path := deckPath(name)
		for _, g := range globs {
			if ok, _ := doublestar.Match(g, path); ok {
				out = append(out, name)
				break
			}
		}
	}
	return out, nil
}

// deckPath turns a deck name or pattern into a doublestar path. A literal
// "/" is not a level separator in Anki, so it is swapped out first.
func deckPath(name string) string {
	name = strings.ReplaceAll(name, "/", literalSlash)
	return strings.ToLower(strings.ReplaceAll(name, collection.DeckSeparator, "/"))
}

// literalSlash stands in for "/" inside deck names and patterns.
const literalSlash = "\x1f"
