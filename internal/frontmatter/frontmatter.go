// Package frontmatter converts between raw document text and a
// (metadata, body) pair. A document may start with a delimited
// key/value header:
//
//	---
//	title: "Weekly Report"
//	emoji: "📄"
//	category: "Report"
//	last_edited_by: "User"
//	---
//	body...
//
// Malformed or partial headers degrade to "no header found"; Parse
// never fails.
package frontmatter

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Delimiter is the header fence line.
const Delimiter = "---"

// Wire keys the system interprets.
const (
	keyTitle    = "title"
	keyEmoji    = "emoji"
	keyCategory = "category"
	keyEditedBy = "last_edited_by"
)

// Meta is the metadata header of a document.
//
// Extra holds keys the system does not interpret. They survive a
// Parse/Build round-trip so hand-authored metadata is not lost on the
// next programmatic save.
type Meta struct {
	Title    string
	Icon     string
	Category string
	EditedBy string
	Extra    map[string]string
}

// IsZero reports whether the metadata carries no values at all.
func (m Meta) IsZero() bool {
	return m.Title == "" && m.Icon == "" && m.Category == "" && m.EditedBy == "" && len(m.Extra) == 0
}

// Parse splits raw into metadata and body. If raw does not start with
// a delimiter line, or the closing delimiter is missing, or the block
// between the delimiters does not decode, the metadata is empty and
// the body is raw unchanged.
func Parse(raw string) (Meta, string) {
	rest, ok := strings.CutPrefix(raw, Delimiter+"\n")
	if !ok {
		return Meta{}, raw
	}

	block, body, ok := splitAtClosingDelimiter(rest)
	if !ok {
		return Meta{}, raw
	}

	var fields map[string]any
	if err := yaml.Unmarshal([]byte(block), &fields); err != nil {
		return Meta{}, raw
	}

	var m Meta
	for k, v := range fields {
		val := scalarString(v)
		switch k {
		case keyTitle:
			m.Title = val
		case keyEmoji:
			m.Icon = val
		case keyCategory:
			m.Category = val
		case keyEditedBy:
			m.EditedBy = val
		default:
			if m.Extra == nil {
				m.Extra = make(map[string]string)
			}
			m.Extra[k] = val
		}
	}
	return m, body
}

// Strip returns only the body half of Parse.
func Strip(raw string) string {
	_, body := Parse(raw)
	return body
}

// Build renders meta as a delimited header block. Keys with no value
// are omitted; extra keys follow the known ones in sorted order. The
// result always ends with the closing delimiter plus a newline, so
// Build(m) + body round-trips through Strip exactly.
func Build(m Meta) string {
	var b strings.Builder
	b.WriteString(Delimiter + "\n")

	emit := func(key, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: %q\n", key, value)
		}
	}
	emit(keyTitle, m.Title)
	emit(keyEmoji, m.Icon)
	emit(keyCategory, m.Category)
	emit(keyEditedBy, m.EditedBy)

	extra := make([]string, 0, len(m.Extra))
	for k := range m.Extra {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	for _, k := range extra {
		emit(k, m.Extra[k])
	}

	b.WriteString(Delimiter + "\n")
	return b.String()
}

// FirstHeading returns the text of the first top-level Markdown
// heading in body, or empty string if there is none.
func FirstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// splitAtClosingDelimiter finds the first line equal to the delimiter
// and returns (block before it, body after it). The body starts after
// the delimiter line's own newline; anything beyond that is preserved
// byte for byte.
func splitAtClosingDelimiter(rest string) (block, body string, ok bool) {
	// An empty header closes on the very next line.
	if rest == Delimiter {
		return "", "", true
	}
	if tail, found := strings.CutPrefix(rest, Delimiter+"\n"); found {
		return "", tail, true
	}

	search := 0
	for {
		idx := strings.Index(rest[search:], "\n"+Delimiter)
		if idx < 0 {
			return "", "", false
		}
		idx += search
		after := idx + 1 + len(Delimiter)
		// The closing fence must be a whole line.
		if after == len(rest) {
			return rest[:idx], "", true
		}
		if rest[after] == '\n' {
			return rest[:idx], rest[after+1:], true
		}
		search = after
	}
}

// scalarString renders a decoded YAML scalar as its string form.
// Quoted strings arrive already unquoted from the decoder.
func scalarString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
