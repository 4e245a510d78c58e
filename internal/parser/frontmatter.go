// Package parser locates frontmatter in Markdown templates, discovers the
// fields a template declares, and handles wikilink syntax.
package parser

import (
	"regexp"
	"strings"
)

const delim = "---"

// keyRe matches a top-level frontmatter key at the start of a line.
var keyRe = regexp.MustCompile(`^([A-Za-z_][\w-]*)[ \t]*:(?:[ \t]|$)`)

// Block is the position of a frontmatter block inside a document.
// Start and End delimit the YAML content between the two "---" lines;
// Close is the offset just past the closing delimiter line.
type Block struct {
	Start int
	End   int
	Close int
}

// YAML returns the frontmatter content of doc described by b.
func (b Block) YAML(doc string) string {
	return doc[b.Start:b.End]
}

// Locate finds the leading frontmatter block of doc. Blank lines before the
// opening delimiter are ignored. It reports false when doc does not start
// with a delimiter line or the block is never closed.
func Locate(doc string) (Block, bool) {
	pos := 0
	for pos < len(doc) {
		line, next := lineAt(doc, pos)
		if strings.TrimSpace(line) != "" {
			break
		}
		pos = next
	}

	line, next := lineAt(doc, pos)
	if !isDelim(line) {
		return Block{}, false
	}

	start := next
	for p := start; p < len(doc); {
		line, n := lineAt(doc, p)
		if isDelim(line) {
			return Block{Start: start, End: p, Close: n}, true
		}
		p = n
	}
	return Block{}, false
}

// KeyOf returns the top-level key declared on line, if any.
// Indented lines, list items and comments declare no key.
func KeyOf(line string) (string, bool) {
	m := keyRe.FindStringSubmatch(strings.TrimRight(line, "\r"))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Keys returns every top-level key of a frontmatter block in declaration order.
func Keys(yaml string) []string {
	var out []string
	for _, line := range strings.Split(yaml, "\n") {
		if k, ok := KeyOf(line); ok {
			out = append(out, k)
		}
	}
	return out
}

// lineAt returns the line starting at pos without its newline, and the
// offset of the following line.
func lineAt(s string, pos int) (string, int) {
	if pos >= len(s) {
		return "", len(s)
	}
	i := strings.IndexByte(s[pos:], '\n')
	if i < 0 {
		return s[pos:], len(s)
	}
	return s[pos : pos+i], pos + i + 1
}

func isDelim(line string) bool {
	return strings.TrimRight(line, " \t\r") == delim
}
