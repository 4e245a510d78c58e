// Package postprocess turns raw metadata strings into Obsidian-friendly
// values: comma-separated lists, wikilinks, and no placeholder "Unknown"s.
package postprocess

import (
	"slices"
	"strings"

	"github.com/starford/gesso/internal/models"
	"github.com/starford/gesso/internal/parser"
)

// Sentinel is the placeholder the metadata API returns for unknown values.
const Sentinel = "Unknown"

// Rules assigns roles to field names.
type Rules struct {
	// Description is the free-text field. Its value is kept verbatim,
	// including the sentinel, and never split or linked.
	Description string
	// Text fields are never wrapped in wikilinks.
	Text []string
	// Reference fields are wrapped in wikilinks even as single values.
	// Fields in neither list are linked only when they split into a list.
	Reference []string
}

// DefaultRules returns the roles for the usual painting fields.
func DefaultRules() Rules {
	return Rules{
		Description: "description",
		Text:        []string{"description", "image", "image_url", "year", "date", "url", "dimensions"},
		Reference:   []string{"style", "medium", "museum", "movement", "location", "genre", "period"},
	}
}

// Processor applies Rules to metadata records.
type Processor struct {
	rules Rules
}

// New returns a Processor using r.
func New(r Rules) *Processor {
	return &Processor{rules: r}
}

// Process converts the fields of rec listed in fields. Fields that are
// missing, blank or equal to Sentinel are absent from the result. It is a
// pure function of its inputs.
func (p *Processor) Process(rec models.Metadata, fields parser.FieldSet) models.Processed {
	out := make(models.Processed, fields.Len())
	for _, name := range fields.Names() {
		raw, ok := rec[name]
		if !ok {
			continue
		}
		if v, ok := p.value(name, raw); ok {
			out[name] = v
		}
	}
	return out
}

func (p *Processor) value(name, raw string) (models.Value, bool) {
	if name == p.rules.Description {
		if strings.TrimSpace(raw) == "" {
			return models.Value{}, false
		}
		return models.Scalar(raw), true
	}
	if raw == Sentinel {
		return models.Value{}, false
	}
	v := strings.TrimSpace(raw)
	if v == "" {
		return models.Value{}, false
	}

	link := !slices.Contains(p.rules.Text, name)

	if strings.Contains(v, ",") {
		var items []string
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if link {
				part = wrap(part)
			}
			items = append(items, part)
		}
		if len(items) == 0 {
			return models.Value{}, false
		}
		return models.List(items), true
	}

	if link && slices.Contains(p.rules.Reference, name) {
		v = wrap(v)
	}
	return models.Scalar(v), true
}

func wrap(s string) string {
	if parser.IsWikilink(s) {
		return s
	}
	return parser.Wikilink(s)
}
