package parser

import "strings"

// Wikilink wraps name in Obsidian link syntax.
func Wikilink(name string) string {
	return "[[" + name + "]]"
}

// IsWikilink reports whether s is exactly one wikilink.
func IsWikilink(s string) bool {
	return strings.HasPrefix(s, "[[") && strings.HasSuffix(s, "]]") && strings.Count(s, "[[") == 1
}
