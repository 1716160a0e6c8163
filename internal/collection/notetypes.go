package collection

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Note type kinds.
const (
	KindStandard = 0
	KindCloze    = 1
)

// NoteType (a "model" in Anki's schema) is the field schema shared by notes.
type NoteType struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	Kind      int           `json:"type"`
	Fields    []Field       `json:"flds"`
	Templates []Template    `json:"tmpls"`
	SortField int           `json:"sortf"`
	Req       []Requirement `json:"req,omitempty"`
}

// Field is one named field of a note type.
type Field struct {
	Name string `json:"name"`
	Ord  int    `json:"ord"`
}

// Template produces one card from a note.
type Template struct {
	Name string `json:"name"`
	Ord  int    `json:"ord"`
	QFmt string `json:"qfmt"`
	AFmt string `json:"afmt"`
}

// Requirement is one entry of a note type's req list: the fields that must
// be non-empty for template Ord to produce a card.
type Requirement struct {
	Ord    int
	Kind   string // "any", "all" or "none"
	Fields []int
}

// UnmarshalJSON decodes the [ord, kind, [fields...]] triple.
func (r *Requirement) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != 3 {
		return fmt.Errorf("requirement: expected 3 elements, got %d", len(parts))
	}
	if err := json.Unmarshal(parts[0], &r.Ord); err != nil {
		return fmt.Errorf("requirement ord: %w", err)
	}
	if err := json.Unmarshal(parts[1], &r.Kind); err != nil {
		return fmt.Errorf("requirement kind: %w", err)
	}
	if err := json.Unmarshal(parts[2], &r.Fields); err != nil {
		return fmt.Errorf("requirement fields: %w", err)
	}
	return nil
}

// MarshalJSON encodes the requirement back into its triple form.
func (r Requirement) MarshalJSON() ([]byte, error) {
	fields := r.Fields
	if fields == nil {
		fields = []int{}
	}
	return json.Marshal([]any{r.Ord, r.Kind, fields})
}

// FieldNames returns the field names in ordinal order.
func (nt NoteType) FieldNames() []string {
	names := make([]string, len(nt.Fields))
	for i, f := range nt.Fields {
		names[i] = f.Name
	}
	return names
}

// FieldIndex returns the position of the named field, or -1.
func (nt NoteType) FieldIndex(name string) int {
	for i, f := range nt.Fields {
		if strings.EqualFold(f.Name, name) {
			return i
		}
	}
	return -1
}

// NoteTypes returns every note type sorted by name.
func (c *Collection) NoteTypes(ctx context.Context) ([]NoteType, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	row, err := c.loadCol(ctx, c.db)
	if err != nil {
		return nil, err
	}
	return parseNoteTypes(row.Models)
}

func parseNoteTypes(raw map[string]json.RawMessage) ([]NoteType, error) {
	types := make([]NoteType, 0, len(raw))
	for key, data := range raw {
		var nt NoteType
		if err := json.Unmarshal(data, &nt); err != nil {
			return nil, fmt.Errorf("decoding note type %s: %w", key, err)
		}
		sort.Slice(nt.Fields, func(i, j int) bool { return nt.Fields[i].Ord < nt.Fields[j].Ord })
		sort.Slice(nt.Templates, func(i, j int) bool { return nt.Templates[i].Ord < nt.Templates[j].Ord })
		types = append(types, nt)
	}
	sort.Slice(types, func(i, j int) bool { return types[i].Name < types[j].Name })
	return types, nil
}

// NoteType returns the note type with the given id.
func (c *Collection) NoteType(ctx context.Context, id int64) (NoteType, error) {
	types, err := c.NoteTypes(ctx)
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

// NoteTypeByName returns the note type with exactly this name.
func (c *Collection) NoteTypeByName(ctx context.Context, name string) (NoteType, error) {
	types, err := c.NoteTypes(ctx)
	if err != nil {
		return NoteType{}, err
	}
	for _, nt := range types {
		if nt.Name == name {
			return nt, nil
		}
	}
	return NoteType{}, fmt.Errorf("note type %q: %w", name, ErrNotFound)
}

var (
	reFieldRef = regexp.MustCompile(`\{\{([^{}]+)\}\}`)
	reCloze    = regexp.MustCompile(`(?i)\{\{c(\d+)::`)
)

// specialFields are template replacements that are not note fields.
var specialFields = map[string]bool{
	"FrontSide": true,
	"Tags":      true,
	"Type":      true,
	"Deck":      true,
	"Subdeck":   true,
	"Card":      true,
	"CardFlag":  true,
}

// templateFieldRefs returns the field names a question format refers to.
func templateFieldRefs(qfmt string) []string {
	var refs []string
	seen := map[string]bool{}
	for _, m := range reFieldRef.FindAllStringSubmatch(qfmt, -1) {
		ref := strings.TrimSpace(m[1])
		ref = strings.TrimLeft(ref, "#^/")
		if i := strings.LastIndex(ref, ":"); i >= 0 {
			ref = ref[i+1:]
		}
		ref = strings.TrimSpace(ref)
		if ref == "" || specialFields[ref] || seen[ref] {
			continue
		}
		seen[ref] = true
		refs = append(refs, ref)
	}
	return refs
}

// CardOrdinals returns the template ordinals that produce a card for a note
// with the given field values. The result is never empty.
func (nt NoteType) CardOrdinals(fields []string) []int {
	var ords []int
	if nt.Kind == KindCloze {
		ords = clozeOrdinals(fields)
	} else {
		ords = nt.standardOrdinals(fields)
	}
	if len(ords) == 0 {
		return []int{0}
	}
	return ords
}

func clozeOrdinals(fields []string) []int {
	seen := map[int]bool{}
	var ords []int
	for _, f := range fields {
		for _, m := range reCloze.FindAllStringSubmatch(f, -1) {
			n, err := strconv.Atoi(m[1])
			if err != nil || n < 1 || seen[n-1] {
				continue
			}
			seen[n-1] = true
			ords = append(ords, n-1)
		}
	}
	sort.Ints(ords)
	return ords
}

func (nt NoteType) standardOrdinals(fields []string) []int {
	nonEmpty := func(i int) bool {
		return i >= 0 && i < len(fields) && strings.TrimSpace(StripHTMLMedia(fields[i])) != ""
	}

	reqs := make(map[int]Requirement, len(nt.Req))
	for _, r := range nt.Req {
		reqs[r.Ord] = r
	}

	var ords []int
	for _, t := range nt.Templates {
		if r, ok := reqs[t.Ord]; ok {
			if requirementMet(r, nonEmpty) {
				ords = append(ords, t.Ord)
			}
			continue
		}
		for _, ref := range templateFieldRefs(t.QFmt) {
			if nonEmpty(nt.FieldIndex(ref)) {
				ords = append(ords, t.Ord)
				break
			}
		}
	}
	return ords
}

func requirementMet(r Requirement, nonEmpty func(int) bool) bool {
	switch r.Kind {
	case "all":
		for _, i := range r.Fields {
			if !nonEmpty(i) {
				return false
			}
		}
		return len(r.Fields) > 0
	case "any":
		for _, i := range r.Fields {
			if nonEmpty(i) {
				return true
			}
		}
	}
	return false
}
