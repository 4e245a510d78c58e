// Package render fills a note template with painting values.
package render

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/gesso/internal/apperr"
	"github.com/starford/gesso/internal/models"
	"github.com/starford/gesso/internal/parser"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([\w-]+)\s*\}\}`)

// Vars are the values that come from the input rather than the metadata API.
type Vars struct {
	Title  string
	Artist string
	Date   string
}

// File re-reads the template at path and renders it. A template that has
// vanished or lost its frontmatter yields apperr.ErrRender.
func File(path string, vals models.Processed, fields parser.FieldSet, vars Vars) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read template %s: %w", apperr.ErrRender, path, err)
	}
	return String(string(data), vals, fields, vars)
}

// String renders doc. Every FieldSet key in the frontmatter gets its value
// (scalars double-quoted, lists as block sequences, absent values empty);
// {{name}} placeholders are replaced everywhere else. Unrecognized content
// is left untouched.
func String(doc string, vals models.Processed, fields parser.FieldSet, vars Vars) (string, error) {
	block, ok := parser.Locate(doc)
	if !ok {
		return "", fmt.Errorf("%w: template has no frontmatter", apperr.ErrRender)
	}

	sub := substituter{vals: vals, fields: fields, vars: vars}

	var b strings.Builder
	b.Grow(len(doc) + 256)
	b.WriteString(sub.apply(doc[:block.Start]))

	lines := strings.SplitAfter(block.YAML(doc), "\n")
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if line == "" {
			continue
		}
		key, isKey := parser.KeyOf(strings.TrimRight(line, "\n"))
		eol := lineEnding(line)

		switch {
		case isKey && fields.Contains(key):
			for i+1 < len(lines) && isContinuation(lines[i+1]) {
				i++
			}
			v, ok := vals[key]
			b.WriteString(field(key, v, ok, eol))
		case isKey && key == "artist" && vars.Artist != "" && emptyValue(line):
			b.WriteString("artist: " + quote(parser.Wikilink(vars.Artist)) + eol)
		default:
			b.WriteString(sub.applyFrontmatter(line))
		}
	}

	b.WriteString(sub.apply(doc[block.End:]))
	return b.String(), nil
}

// field renders one frontmatter entry.
func field(key string, v models.Value, ok bool, eol string) string {
	if !ok {
		return key + ":" + eol
	}
	if !v.IsList() {
		return key + ": " + quote(v.Text) + eol
	}
	var b strings.Builder
	b.WriteString(key + ":" + eol)
	for _, item := range v.Items {
		b.WriteString("  - " + listItem(item) + eol)
	}
	return b.String()
}

// quote renders s as a double-quoted YAML scalar.
func quote(s string) string {
	out, err := yaml.Marshal(&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Style: yaml.DoubleQuotedStyle, Value: s})
	if err != nil {
		return fmt.Sprintf("%q", s)
	}
	return strings.TrimRight(string(out), "\n")
}

// listItem renders a sequence entry. Wikilinks are written raw, the way
// Obsidian writes link lists; anything else is quoted only when YAML needs it.
func listItem(s string) string {
	if parser.IsWikilink(s) {
		return s
	}
	out, err := yaml.Marshal(s)
	if err != nil {
		return quote(s)
	}
	return strings.TrimRight(string(out), "\n")
}

// isContinuation reports whether line belongs to the value of the key
// above it: indented lines and sequence entries.
func isContinuation(line string) bool {
	trimmed := strings.TrimRight(line, "\r\n")
	if trimmed == "" {
		return false
	}
	return trimmed[0] == ' ' || trimmed[0] == '\t' || strings.HasPrefix(trimmed, "- ") || trimmed == "-"
}

func emptyValue(line string) bool {
	_, value, _ := strings.Cut(line, ":")
	return strings.TrimSpace(value) == ""
}

func lineEnding(line string) string {
	if strings.HasSuffix(line, "\r\n") {
		return "\r\n"
	}
	return "\n"
}

type substituter struct {
	vals   models.Processed
	fields parser.FieldSet
	vars   Vars
}

func (s substituter) apply(text string) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	return placeholderRe.ReplaceAllStringFunc(text, func(m string) string {
		if v, ok := s.value(placeholderRe.FindStringSubmatch(m)[1]); ok {
			return v
		}
		return m
	})
}

var doubleQuoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)

// applyFrontmatter substitutes placeholders in one frontmatter line. Values
// landing inside a double-quoted scalar are escaped so the line stays valid
// YAML.
func (s substituter) applyFrontmatter(line string) string {
	qs, qe := quotedSpan(line)
	if qs < 0 {
		return s.apply(line)
	}
	var b strings.Builder
	last := 0
	for _, loc := range placeholderRe.FindAllStringSubmatchIndex(line, -1) {
		b.WriteString(line[last:loc[0]])
		last = loc[1]
		v, ok := s.value(line[loc[2]:loc[3]])
		switch {
		case !ok:
			b.WriteString(line[loc[0]:loc[1]])
		case loc[0] > qs && loc[1] <= qe:
			b.WriteString(doubleQuoteEscaper.Replace(v))
		default:
			b.WriteString(v)
		}
	}
	b.WriteString(line[last:])
	return b.String()
}

func (s substituter) value(name string) (string, bool) {
	switch name {
	case "title":
		return s.vars.Title, true
	case "artist":
		return s.vars.Artist, true
	case "date":
		return s.vars.Date, true
	}
	if s.fields.Contains(name) {
		return s.vals[name].String(), true
	}
	return "", false
}

// quotedSpan returns the offsets of the opening and closing quote of the
// double-quoted value on a "key: ..." or "- ..." line, or -1, -1 when the
// value is not double-quoted. An unterminated scalar runs to the end of the
// line.
func quotedSpan(line string) (int, int) {
	start := -1
	if _, isKey := parser.KeyOf(strings.TrimRight(line, "\r\n")); isKey {
		start = strings.IndexByte(line, ':') + 1
	} else if trimmed := strings.TrimLeft(line, " \t"); strings.HasPrefix(trimmed, "- ") {
		start = len(line) - len(trimmed) + 2
	}
	if start < 0 {
		return -1, -1
	}
	for start < len(line) && (line[start] == ' ' || line[start] == '\t') {
		start++
	}
	if start >= len(line) || line[start] != '"' {
		return -1, -1
	}
	for i := start + 1; i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++
		case '"':
			return start, i
		}
	}
	return start, len(line)
}
