package collection_test

import (
	"encoding/json"
	"testing"

	"github.com/ruminaider/anki-crossprofile/internal/collection"
	"github.com/ruminaider/anki-crossprofile/internal/collection/collectiontest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardOrdinals(t *testing.T) {
	basic := collectiontest.BasicNoteType()
	reversed := collectiontest.BasicReversedNoteType()
	cloze := collectiontest.ClozeNoteType()

	tests := []struct {
		name   string
		nt     collection.NoteType
		fields []string
		want   []int
	}{
		{"basic", basic, []string{"front", "back"}, []int{0}},
		{"basic with empty front falls back to first template", basic, []string{"", "back"}, []int{0}},
		{"reversed both sides", reversed, []string{"front", "back"}, []int{0, 1}},
		{"reversed without back", reversed, []string{"front", ""}, []int{0}},
		{"reversed without front", reversed, []string{"", "back"}, []int{1}},
		{"reversed markup only counts as empty", reversed, []string{"front", "<br>&nbsp;"}, []int{0}},
		{"cloze numbers", cloze, []string{"{{c2::a}} {{c1::b}} {{c2::c}}", ""}, []int{0, 1}},
		{"cloze gaps", cloze, []string{"{{c1::a}} {{c5::b}}", ""}, []int{0, 4}},
		{"cloze without deletions", cloze, []string{"plain text", ""}, []int{0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.nt.CardOrdinals(tt.fields))
		})
	}
}

func TestCardOrdinalsRequirements(t *testing.T) {
	nt := collection.NoteType{
		Fields: []collection.Field{{Name: "A", Ord: 0}, {Name: "B", Ord: 1}, {Name: "C", Ord: 2}},
		Templates: []collection.Template{
			{Name: "all", Ord: 0, QFmt: "{{A}}{{B}}"},
			{Name: "any", Ord: 1, QFmt: "{{B}}{{C}}"},
			{Name: "none", Ord: 2, QFmt: "static"},
		},
		Req: []collection.Requirement{
			{Ord: 0, Kind: "all", Fields: []int{0, 1}},
			{Ord: 1, Kind: "any", Fields: []int{1, 2}},
			{Ord: 2, Kind: "none", Fields: []int{}},
		},
	}

	assert.Equal(t, []int{0, 1}, nt.CardOrdinals([]string{"a", "b", ""}))
	assert.Equal(t, []int{1}, nt.CardOrdinals([]string{"a", "", "c"}))
	assert.Equal(t, []int{0}, nt.CardOrdinals([]string{"a", "", ""}))
}

func TestTemplateReferencesWithFilters(t *testing.T) {
	nt := collection.NoteType{
		Fields: []collection.Field{{Name: "Word", Ord: 0}, {Name: "Audio", Ord: 1}},
		Templates: []collection.Template{
			{Name: "Listen", Ord: 0, QFmt: "{{#Audio}}{{text:Audio}}{{/Audio}}"},
			{Name: "Read", Ord: 1, QFmt: "{{FrontSide}}{{ Word }}"},
		},
	}
	assert.Equal(t, []int{1}, nt.CardOrdinals([]string{"hola", ""}))
	assert.Equal(t, []int{0, 1}, nt.CardOrdinals([]string{"hola", "[sound:hola.mp3]"}))
}

func TestRequirementJSON(t *testing.T) {
	var nt collection.NoteType
	raw := `{"id": 7, "name": "Basic", "type": 0, "sortf": 0,
		"flds": [{"name": "Front", "ord": 0}, {"name": "Back", "ord": 1}],
		"tmpls": [{"name": "Card 1", "ord": 0, "qfmt": "{{Front}}", "afmt": ""}],
		"req": [[0, "any", [0]]]}`
	require.NoError(t, json.Unmarshal([]byte(raw), &nt))
	assert.Equal(t, []collection.Requirement{{Ord: 0, Kind: "any", Fields: []int{0}}}, nt.Req)
	assert.Equal(t, 0, nt.FieldIndex("front"))
	assert.Equal(t, -1, nt.FieldIndex("Missing"))

	var bad collection.Requirement
	assert.Error(t, json.Unmarshal([]byte(`[0, "any"]`), &bad))
}
