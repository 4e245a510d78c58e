// Package cache persists fetched painting metadata, one JSON file per
// painting identity.
package cache

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/starford/gesso/internal/checksum"
)

// Identity is the normalized (title, artist) key of a painting. It doubles
// as the cache file name stem.
type Identity string

// partSeparator joins the title and artist parts. Parts never contain a
// run of underscores, so the split point is unambiguous.
const partSeparator = "__"

// NewIdentity derives the identity of a painting. Case, surrounding and
// repeated whitespace, diacritics and punctuation do not affect the result.
func NewIdentity(title, artist string) Identity {
	t, a := normalize(title), normalize(artist)
	if t == "" || a == "" {
		pair := strings.ToLower(strings.TrimSpace(title)) + "|" + strings.ToLower(strings.TrimSpace(artist))
		return Identity("id_" + checksum.Short(pair, 16))
	}
	return Identity(t + partSeparator + a)
}

// Filename returns the cache file name for id.
func (id Identity) Filename() string {
	return string(id) + ".json"
}

func (id Identity) String() string {
	return string(id)
}

// normalize reduces s to words of [a-z0-9] joined by single underscores.
func normalize(s string) string {
	return strings.Join(strings.Fields(keep(strings.ToLower(foldDiacritics(s)))), "_")
}

func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// keep drops every character outside [a-z0-9] and turns whitespace and
// underscores into spaces.
func keep(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		case r == '_' || unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	return b.String()
}
