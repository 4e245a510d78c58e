package models

import (
	"encoding/json"
	"testing"
)

func TestPainting_Validate(t *testing.T) {
	cases := []struct {
		name    string
		p       Painting
		wantErr bool
	}{
		{"valid", Painting{Number: 1, Title: "Mona Lisa", Artist: "Leonardo da Vinci"}, false},
		{"zero number", Painting{Number: 0, Title: "Mona Lisa", Artist: "Leonardo"}, true},
		{"negative number", Painting{Number: -3, Title: "Mona Lisa", Artist: "Leonardo"}, true},
		{"empty title", Painting{Number: 1, Title: "", Artist: "Leonardo"}, true},
		{"empty artist", Painting{Number: 1, Title: "Mona Lisa", Artist: ""}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.p.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestValue_String(t *testing.T) {
	if got := Scalar("1503").String(); got != "1503" {
		t.Errorf("scalar = %q", got)
	}
	v := List([]string{"[[Oil]]", "[[panel]]"})
	if !v.IsList() {
		t.Fatal("expected list")
	}
	if got := v.String(); got != "[[Oil]], [[panel]]" {
		t.Errorf("list = %q", got)
	}
	if Scalar("x").IsList() {
		t.Error("scalar reported as list")
	}
}

func TestMetadataFromJSON(t *testing.T) {
	raw := map[string]any{
		"year":        float64(1503),
		"count":       json.Number("12"),
		"style":       "Renaissance",
		"famous":      true,
		"museum":      nil,
		"medium":      []any{"Oil", "panel"},
		"dimensions":  map[string]any{"h": float64(77)},
		"description": "Unknown",
	}
	got := MetadataFromJSON(raw)
	want := Metadata{
		"year":        "1503",
		"count":       "12",
		"style":       "Renaissance",
		"famous":      "true",
		"museum":      "",
		"medium":      "Oil, panel",
		"dimensions":  `{"h":77}`,
		"description": "Unknown",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
}
