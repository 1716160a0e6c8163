package collection

import (
	"crypto/sha1"
	"encoding/binary"
	"html"
	"path"
	"regexp"
	"strings"
)

// FieldSeparator joins a note's fields in the flds column.
const FieldSeparator = "\x1f"

var (
	reComment = regexp.MustCompile(`(?s)<!--.*?-->`)
	reStyle   = regexp.MustCompile(`(?is)<style.*?>.*?</style>`)
	reScript  = regexp.MustCompile(`(?is)<script.*?>.*?</script>`)
	reTag     = regexp.MustCompile(`(?s)<.*?>`)
	reImg     = regexp.MustCompile(`(?i)<img[^>]+src=["']?([^"'>]+)["']?[^>]*>`)
	reSound   = regexp.MustCompile(`\[sound:(.+?)\]`)
)

// StripHTML removes tags, comments, style and script blocks and decodes
// entities.
func StripHTML(s string) string {
	s = reComment.ReplaceAllString(s, "")
	s = reStyle.ReplaceAllString(s, "")
	s = reScript.ReplaceAllString(s, "")
	s = reTag.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	return html.UnescapeString(s)
}

// StripHTMLMedia is StripHTML that keeps image file names as text, so two
// fields differing only by image are not considered equal.
func StripHTMLMedia(s string) string {
	return StripHTML(reImg.ReplaceAllString(s, " ${1} "))
}

// FieldChecksum is the value Anki stores in notes.csum: the first 8 hex
// digits of the SHA-1 of the stripped field.
func FieldChecksum(s string) int64 {
	sum := sha1.Sum([]byte(StripHTMLMedia(s)))
	return int64(binary.BigEndian.Uint32(sum[:4]))
}

// SplitFields splits a flds column value.
func SplitFields(flds string) []string {
	return strings.Split(flds, FieldSeparator)
}

// JoinFields builds a flds column value.
func JoinFields(fields []string) string {
	return strings.Join(fields, FieldSeparator)
}

// ParseTags splits a tags column value.
func ParseTags(s string) []string {
	return strings.Fields(s)
}

// JoinTags builds a tags column value: space separated and space padded,
// or empty when there are no tags.
func JoinTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return " " + strings.Join(tags, " ") + " "
}

// MergeTags concatenates tag lists, dropping case-insensitive duplicates
// and anything containing whitespace.
func MergeTags(lists ...[]string) []string {
	seen := map[string]bool{}
	var out []string
	for _, list := range lists {
		for _, tag := range list {
			tag = strings.TrimSpace(tag)
			if tag == "" || strings.ContainsAny(tag, " \t\n") {
				continue
			}
			key := strings.ToLower(tag)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, tag)
		}
	}
	return out
}

// MediaReferences returns the local media file names referenced by the
// fields, in order of first appearance. Remote URLs and names that would
// escape the media folder are skipped.
func MediaReferences(fields []string) []string {
	seen := map[string]bool{}
	var refs []string
	add := func(name string) {
		name = html.UnescapeString(strings.TrimSpace(name))
		if name == "" || seen[name] || strings.Contains(name, "://") || strings.HasPrefix(name, "data:") {
			return
		}
		if strings.ContainsAny(name, `/\`) || path.Clean(name) != name || name == ".." {
			return
		}
		seen[name] = true
		refs = append(refs, name)
	}
	for _, f := range fields {
		for _, m := range reImg.FindAllStringSubmatch(f, -1) {
			add(m[1])
		}
		for _, m := range reSound.FindAllStringSubmatch(f, -1) {
			add(m[1])
		}
	}
	return refs
}
