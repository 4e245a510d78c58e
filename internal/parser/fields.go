package parser

import (
	"fmt"
	"os"
	"slices"

	"github.com/starford/gesso/internal/apperr"
)

// reservedFields are supplied by the input or by the user, never by the
// metadata API.
var reservedFields = [...]string{"title", "date", "created", "category", "rating", "seen", "tags", "artist"}

// DefaultBlacklist returns a fresh copy of the reserved field names.
func DefaultBlacklist() []string {
	return slices.Clone(reservedFields[:])
}

// FieldSet is an ordered set of field names.
type FieldSet struct {
	names []string
	index map[string]struct{}
}

// NewFieldSet builds a FieldSet from names, keeping the first occurrence of
// each name.
func NewFieldSet(names ...string) FieldSet {
	s := FieldSet{index: make(map[string]struct{}, len(names))}
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, dup := s.index[n]; dup {
			continue
		}
		s.index[n] = struct{}{}
		s.names = append(s.names, n)
	}
	return s
}

// Names returns the field names in declaration order.
func (s FieldSet) Names() []string {
	return slices.Clone(s.names)
}

// Len returns the number of fields.
func (s FieldSet) Len() int {
	return len(s.names)
}

// Contains reports whether name is in the set.
func (s FieldSet) Contains(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Without returns a copy of s with every name in deny removed.
func (s FieldSet) Without(deny []string) FieldSet {
	kept := make([]string, 0, len(s.names))
	for _, n := range s.names {
		if !slices.Contains(deny, n) {
			kept = append(kept, n)
		}
	}
	return NewFieldSet(kept...)
}

// Template is a loaded note template together with the fields it asks for.
type Template struct {
	Path    string
	Content string
	Fields  FieldSet
}

// Extractor discovers the fields declared by a template's frontmatter.
type Extractor struct {
	Blacklist []string
}

// NewExtractor returns an Extractor using the default blacklist.
func NewExtractor() *Extractor {
	return &Extractor{Blacklist: DefaultBlacklist()}
}

// Extract returns the non-blacklisted top-level frontmatter keys of doc.
// It fails with apperr.ErrTemplate when doc has no frontmatter or no
// collectable field remains.
func (e *Extractor) Extract(doc string) (FieldSet, error) {
	block, ok := Locate(doc)
	if !ok {
		return FieldSet{}, fmt.Errorf("%w: no YAML frontmatter (missing --- delimiters)", apperr.ErrTemplate)
	}
	fields := NewFieldSet(Keys(block.YAML(doc))...).Without(e.Blacklist)
	if fields.Len() == 0 {
		return FieldSet{}, fmt.Errorf("%w: no fields to collect (all fields are blacklisted or empty)", apperr.ErrTemplate)
	}
	return fields, nil
}

// Load reads the template at path and extracts its fields.
func (e *Extractor) Load(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", apperr.ErrTemplate, path, err)
	}
	content := string(data)
	fields, err := e.Extract(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Template{Path: path, Content: content, Fields: fields}, nil
}
