package render

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/starford/gesso/internal/apperr"
	"github.com/starford/gesso/internal/models"
	"github.com/starford/gesso/internal/parser"
	"github.com/starford/gesso/internal/testutil"
)

var standardFields = parser.NewFieldSet("year", "style", "medium", "museum", "image")

func eurydice() models.Processed {
	return models.Processed{
		"year":   models.Scalar("1870"),
		"style":  models.Scalar("[[Neoclassicism]]"),
		"medium": models.List([]string{"[[Oil]]", "[[canvas]]"}),
		"museum": models.Scalar("[[Metropolitan Museum of Art]]"),
		"image":  models.Scalar("https://upload.wikimedia.org/wikipedia/commons/example.jpg"),
	}
}

var eurydiceVars = Vars{Title: "Wounded Eurydice", Artist: "Jean-Baptiste-Camille Corot", Date: "2025-12-24"}

func TestString_StandardTemplate(t *testing.T) {
	out, err := String(testutil.PaintingTemplate, eurydice(), standardFields, eurydiceVars)
	if err != nil {
		t.Fatalf("String: %v", err)
	}

	for _, want := range []string{
		"created: 2025-12-24\n",
		`category: "[[Painting]]"` + "\n",
		`title: "Wounded Eurydice"` + "\n",
		`artist: "[[Jean-Baptiste-Camille Corot]]"` + "\n",
		`year: "1870"` + "\n",
		`style: "[[Neoclassicism]]"` + "\n",
		"medium:\n  - [[Oil]]\n  - [[canvas]]\n",
		`museum: "[[Metropolitan Museum of Art]]"` + "\n",
		`image: "https://upload.wikimedia.org/wikipedia/commons/example.jpg"` + "\n",
		"tags:\n  - paintings\n---\n",
		"# Wounded Eurydice\n",
		"![Wounded Eurydice](https://upload.wikimedia.org/wikipedia/commons/example.jpg)\n",
		"## Personal Reflection\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n---\n%s", want, out)
		}
	}
	if strings.Contains(out, "{{") {
		t.Errorf("unreplaced placeholder in output:\n%s", out)
	}
}

func TestString_AbsentValuesLeaveKeyEmpty(t *testing.T) {
	vals := models.Processed{"year": models.Scalar("1503")}
	out, err := String(testutil.PaintingTemplate, vals, standardFields, eurydiceVars)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"\nstyle:\n", "\nmedium:\n", "\nmuseum:\n", "\nimage:\n", "![Wounded Eurydice]()\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestString_ReplacesExistingValueAndContinuation(t *testing.T) {
	doc := "---\nmedium:\n  - old\n  - stale\nyear: 1900\nnotes: keep\n---\n"
	fields := parser.NewFieldSet("medium", "year")
	vals := models.Processed{
		"medium": models.List([]string{"[[Tempera]]"}),
		"year":   models.Scalar("1480"),
	}
	out, err := String(doc, vals, fields, Vars{})
	if err != nil {
		t.Fatal(err)
	}
	want := "---\nmedium:\n  - [[Tempera]]\nyear: \"1480\"\nnotes: keep\n---\n"
	if out != want {
		t.Errorf("got %q\nwant %q", out, want)
	}
}

func TestString_ListItemsQuotedWhenNeeded(t *testing.T) {
	doc := "---\ndimensions:\n---\n"
	fields := parser.NewFieldSet("dimensions")
	vals := models.Processed{"dimensions": models.List([]string{"77 cm", "1503", "a: b"})}
	out, err := String(doc, vals, fields, Vars{})
	if err != nil {
		t.Fatal(err)
	}
	want := "---\ndimensions:\n  - 77 cm\n  - \"1503\"\n  - 'a: b'\n---\n"
	if out != want {
		t.Errorf("got %q\nwant %q", out, want)
	}
}

func TestString_ScalarEscaping(t *testing.T) {
	doc := "---\ndescription:\n---\n"
	fields := parser.NewFieldSet("description")
	vals := models.Processed{"description": models.Scalar(`She said "hello", then left.`)}
	out, err := String(doc, vals, fields, Vars{})
	if err != nil {
		t.Fatal(err)
	}
	want := "---\ndescription: \"She said \\\"hello\\\", then left.\"\n---\n"
	if out != want {
		t.Errorf("got %q\nwant %q", out, want)
	}
}

func TestString_PlaceholderInsideQuotedValueIsEscaped(t *testing.T) {
	doc := "---\ntitle: \"{{title}}\"\nsubtitle: {{title}}\naliases:\n  - \"{{title}} by {{artist}}\"\n---\n# {{title}}\n"
	vars := Vars{Title: `The "Kiss" \ Study`, Artist: "Gustav Klimt"}
	out, err := String(doc, models.Processed{}, parser.NewFieldSet("year"), vars)
	if err != nil {
		t.Fatal(err)
	}
	want := "---\n" +
		`title: "The \"Kiss\" \\ Study"` + "\n" +
		`subtitle: The "Kiss" \ Study` + "\n" +
		"aliases:\n" +
		`  - "The \"Kiss\" \\ Study by Gustav Klimt"` + "\n" +
		"---\n" +
		`# The "Kiss" \ Study` + "\n"
	if out != want {
		t.Fatalf("got %q\nwant %q", out, want)
	}

	block, ok := parser.Locate(out)
	if !ok {
		t.Fatal("rendered note lost its frontmatter")
	}
	var fm struct {
		Title   string   `yaml:"title"`
		Aliases []string `yaml:"aliases"`
	}
	if err := yaml.Unmarshal([]byte(block.YAML(out)), &fm); err != nil {
		t.Fatalf("frontmatter is not valid YAML: %v", err)
	}
	if fm.Title != vars.Title {
		t.Errorf("title = %q, want %q", fm.Title, vars.Title)
	}
	if len(fm.Aliases) != 1 || fm.Aliases[0] != vars.Title+" by Gustav Klimt" {
		t.Errorf("aliases = %q", fm.Aliases)
	}
}

func TestString_ArtistKeptWhenSet(t *testing.T) {
	doc := "---\nartist: \"[[Someone Else]]\"\nyear:\n---\n"
	out, err := String(doc, models.Processed{}, parser.NewFieldSet("year"), Vars{Artist: "Monet"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `artist: "[[Someone Else]]"`) {
		t.Errorf("existing artist overwritten:\n%s", out)
	}
}

func TestString_UnknownPlaceholdersUntouched(t *testing.T) {
	doc := "---\nyear:\n---\n{{year}} {{ mood }} {{title}}\n"
	vals := models.Processed{"year": models.Scalar("1889")}
	out, err := String(doc, vals, parser.NewFieldSet("year"), Vars{Title: "Starry Night"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(out, "1889 {{ mood }} Starry Night\n") {
		t.Errorf("body = %q", out)
	}
}

func TestString_ListPlaceholderJoined(t *testing.T) {
	doc := "---\nmedium:\n---\nMedium: {{medium}}\n"
	vals := models.Processed{"medium": models.List([]string{"[[Oil]]", "[[panel]]"})}
	out, err := String(doc, vals, parser.NewFieldSet("medium"), Vars{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(out, "Medium: [[Oil]], [[panel]]\n") {
		t.Errorf("body = %q", out)
	}
}

func TestString_CRLF(t *testing.T) {
	doc := "---\r\nyear:\r\nmedium:\r\n---\r\n# {{title}}\r\n"
	vals := models.Processed{
		"year":   models.Scalar("1503"),
		"medium": models.List([]string{"[[Oil]]"}),
	}
	out, err := String(doc, vals, parser.NewFieldSet("year", "medium"), Vars{Title: "Mona Lisa"})
	if err != nil {
		t.Fatal(err)
	}
	want := "---\r\nyear: \"1503\"\r\nmedium:\r\n  - [[Oil]]\r\n---\r\n# Mona Lisa\r\n"
	if out != want {
		t.Errorf("got %q\nwant %q", out, want)
	}
}

func TestString_NoFrontmatter(t *testing.T) {
	_, err := String("# just a body\n", nil, parser.NewFieldSet("year"), Vars{})
	if !errors.Is(err, apperr.ErrRender) {
		t.Errorf("err = %v, want ErrRender", err)
	}
}

func TestFile_MissingTemplate(t *testing.T) {
	_, err := File(filepath.Join(t.TempDir(), "gone.md"), nil, standardFields, Vars{})
	if !errors.Is(err, apperr.ErrRender) {
		t.Errorf("err = %v, want ErrRender", err)
	}
}

func TestFile_RereadsTemplate(t *testing.T) {
	path := testutil.WriteFile(t, "template.md", testutil.PaintingTemplate)
	out, err := File(path, eurydice(), standardFields, eurydiceVars)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `year: "1870"`) {
		t.Errorf("output:\n%s", out)
	}
}
