// Package models defines the domain types for gesso.
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Painting is one entry of the input list: "<number>: <title>, <artist>".
type Painting struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// Validate checks that the painting has a positive number and a non-empty
// title and artist.
func (p Painting) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Number, validation.Required, validation.Min(1)),
		validation.Field(&p.Title, validation.Required),
		validation.Field(&p.Artist, validation.Required),
	)
}

// Metadata maps template field names to the raw string values returned by
// the metadata API. It is the unit stored in the cache.
type Metadata map[string]string

// Value is a post-processed field value: either a single string or a list.
type Value struct {
	Text  string
	Items []string
	list  bool
}

// Scalar returns a single-string value.
func Scalar(s string) Value {
	return Value{Text: s}
}

// List returns a list value.
func List(items []string) Value {
	return Value{Items: items, list: true}
}

// IsList reports whether v holds a list.
func (v Value) IsList() bool {
	return v.list
}

// String renders v inline: the scalar itself, or list items joined by ", ".
func (v Value) String() string {
	if v.list {
		return strings.Join(v.Items, ", ")
	}
	return v.Text
}

// Processed maps field names to post-processed values. Fields with no
// usable value are absent.
type Processed map[string]Value

// MetadataFromJSON converts a decoded JSON object into Metadata. Numbers and
// booleans are stringified, null becomes "", arrays are joined with ", " and
// nested objects are kept as compact JSON.
func MetadataFromJSON(raw map[string]any) Metadata {
	out := make(Metadata, len(raw))
	for k, v := range raw {
		out[k] = stringify(v)
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := stringify(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}
