package transfer

import (
	"fmt"
	"sort"
	"strings"
)

// Failure is a note that could not be transferred.
type Failure struct {
	NoteID int64
	Err    error
}

// Result summarizes a batch transfer.
type Result struct {
	Deck   string
	DryRun bool

	Imported         []NoteResult
	Duplicates       []NoteResult
	MissingNoteTypes []NoteResult
	Empty            []NoteResult
	Failed           []Failure
}

func (r *Result) add(nr NoteResult) {
	switch nr.Outcome {
	case Imported:
		r.Imported = append(r.Imported, nr)
	case Duplicate:
		r.Duplicates = append(r.Duplicates, nr)
	case MissingNoteType:
		r.MissingNoteTypes = append(r.MissingNoteTypes, nr)
	case Empty:
		r.Empty = append(r.Empty, nr)
	}
}

// Total is the number of notes the batch looked at.
func (r *Result) Total() int {
	return len(r.Imported) + len(r.Duplicates) + len(r.MissingNoteTypes) + len(r.Empty) + len(r.Failed)
}

// NewIDs returns the ids of the created notes.
func (r *Result) NewIDs() []int64 {
	var ids []int64
	for _, nr := range r.Imported {
		if nr.NewID != 0 {
			ids = append(ids, nr.NewID)
		}
	}
	return ids
}

// MissingTypeNames returns the distinct note type names that had no match
// in the destination, sorted.
func (r *Result) MissingTypeNames() []string {
	seen := map[string]bool{}
	var names []string
	for _, nr := range r.MissingNoteTypes {
		if !seen[nr.NoteType] {
			seen[nr.NoteType] = true
			names = append(names, nr.NoteType)
		}
	}
	sort.Strings(names)
	return names
}

// MediaCount is the number of media files copied (or, for dry runs, that
// would be considered for copying).
func (r *Result) MediaCount() int {
	n := 0
	for _, nr := range r.Imported {
		n += len(nr.Media)
	}
	return n
}

// Summary renders a one-line description such as
// "3 notes imported, 1 duplicate skipped".
func (r *Result) Summary() string {
	var parts []string

	verb := "imported"
	if r.DryRun {
		verb = "would be imported"
	}
	parts = append(parts, fmt.Sprintf("%d %s %s", len(r.Imported), pluralize("note", len(r.Imported)), verb))

	if n := len(r.Duplicates); n > 0 {
		parts = append(parts, fmt.Sprintf("%d %s skipped", n, pluralize("duplicate", n)))
	}
	if n := len(r.MissingNoteTypes); n > 0 {
		parts = append(parts, fmt.Sprintf("%d without a matching note type", n))
	}
	if n := len(r.Empty); n > 0 {
		parts = append(parts, fmt.Sprintf("%d with an empty first field", n))
	}
	if n := len(r.Failed); n > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", n))
	}
	if n := r.MediaCount(); n > 0 && !r.DryRun {
		parts = append(parts, fmt.Sprintf("%d media %s copied", n, pluralize("file", n)))
	}
	return strings.Join(parts, ", ")
}

// pluralize returns the singular or plural form depending on count.
func pluralize(word string, count int) string {
	if count == 1 {
		return word
	}
	return word + "s"
}
