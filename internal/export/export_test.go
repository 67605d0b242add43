package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/kplus/internal/models"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

func sampleDoc() *models.Document {
	ref := &models.ChapterRef{Number: 1, Title: "Общие положения"}
	meta, _ := models.NewMetadata(models.MetadataInput{
		DocType:   "ФЕДЕРАЛЬНЫЙ ЗАКОН",
		Number:    "44-ФЗ",
		Date:      time.Date(2013, 4, 5, 0, 0, 0, 0, time.UTC),
		Title:     "О контрактной системе",
		Authority: "Государственная Дума",
	}, models.StatusPolicyCoerce)
	body := models.ChapterLayout{Chapters: []*models.Chapter{{
		Number: 1,
		Title:  ref.Title,
		Articles: []*models.Article{
			{
				Number: "1",
				Title:  "Сфера применения",
				Parts: []models.Part{
					{Number: 1, Text: "Текст один.", Subparts: []string{}},
					{Number: 2, Text: "Текст два.", Subparts: []string{"1) под."}},
				},
				FullText: "1. Текст один.\n2. Текст два.\n1) под.",
				Chapter:  ref,
			},
		},
	}}}
	return models.NewDocument(meta, body, models.WithPreamble("Преамбула."))
}

func TestRenderPart(t *testing.T) {
	got := RenderPart(models.Part{Number: 2, Text: "Текст два.", Subparts: []string{"1) под.", "2) ещё."}})
	want := "2. Текст два.\n   - 1) под.\n   - 2) ещё."
	if got != want {
		t.Errorf("RenderPart() = %q, want %q", got, want)
	}
}

func TestRenderArticle(t *testing.T) {
	a := sampleDoc().AllArticles()[0]
	want := "### Статья 1. Сфера применения\n\n1. Текст один.\n\n2. Текст два.\n   - 1) под.\n"
	if got := RenderArticle(a); got != want {
		t.Errorf("RenderArticle() = %q, want %q", got, want)
	}
}

func TestRenderChapter(t *testing.T) {
	got := RenderChapter(sampleDoc().Chapters()[0])
	if !strings.HasPrefix(got, "## Глава 1. Общие положения\n\n### Статья 1. Сфера применения") {
		t.Errorf("RenderChapter() = %q", got)
	}
}

func TestMarkdown(t *testing.T) {
	md, err := Markdown(sampleDoc())
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	if !strings.HasPrefix(md, "---\n") {
		t.Fatalf("missing frontmatter: %q", md)
	}
	end := strings.Index(md[4:], "\n---\n")
	if end < 0 {
		t.Fatalf("unterminated frontmatter: %q", md)
	}
	var front map[string]any
	if err := yaml.Unmarshal([]byte(md[4:4+end]), &front); err != nil {
		t.Fatalf("frontmatter is not YAML: %v", err)
	}
	if front["number"] != "44-ФЗ" || front["authority"] != "Государственная Дума" || front["status"] != "действующий" {
		t.Errorf("frontmatter = %v", front)
	}
	if _, ok := front["version_date"]; ok {
		t.Error("empty version_date should be omitted")
	}
	for _, want := range []string{
		"# ФЕДЕРАЛЬНЫЙ ЗАКОН от 05.04.2013 N 44-ФЗ\n",
		"**О контрактной системе**\n",
		"Преамбула.\n",
		"## Глава 1. Общие положения",
		"   - 1) под.",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestMarkdown_Flat(t *testing.T) {
	doc := models.NewDocument(models.Metadata{DocType: "ПРИКАЗ", Number: "1"}, models.FlatLayout{Articles: []*models.Article{
		{Number: "3", Title: "Т", Parts: []models.Part{{Number: 1, Text: "x"}}},
	}})
	md, err := Markdown(doc)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(md, "## Глава") || !strings.Contains(md, "### Статья 3. Т") {
		t.Errorf("markdown = %q", md)
	}
}

func TestJSON(t *testing.T) {
	b, err := JSON(sampleDoc(), 2)
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if !bytes.Contains(b, []byte("Сфера применения")) {
		t.Error("Cyrillic text escaped")
	}
	var out struct {
		Metadata   map[string]any `json:"metadata"`
		Statistics struct {
			Chapters int `json:"chapters"`
			Articles int `json:"articles"`
		} `json:"statistics"`
		Preamble  string `json:"preamble"`
		Structure struct {
			Layout   string            `json:"layout"`
			Chapters []json.RawMessage `json:"chapters"`
			Articles []json.RawMessage `json:"articles"`
		} `json:"structure"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Metadata["date"] != "2013-04-05" {
		t.Errorf("date = %v", out.Metadata["date"])
	}
	if out.Statistics.Chapters != 1 || out.Statistics.Articles != 1 {
		t.Errorf("statistics = %+v", out.Statistics)
	}
	if out.Structure.Layout != "chapters" || len(out.Structure.Chapters) != 1 || len(out.Structure.Articles) != 0 {
		t.Errorf("structure = %+v", out.Structure)
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, sampleDoc()); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(articlesSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1", len(rows))
	}
	if rows[1][2] != "1" || rows[1][3] != "Сфера применения" || rows[1][4] != "2" {
		t.Errorf("article row = %q", rows[1])
	}
	number, err := f.GetCellValue(metadataSheet, "B2")
	if err != nil || number != "44-ФЗ" {
		t.Errorf("requisites number = %q, %v", number, err)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"md": FormatMarkdown, "Markdown": FormatMarkdown, "json": FormatJSON, "excel": FormatXLSX} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Error("expected error for pdf")
	}
}

func TestSafeFileName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"44-ФЗ", "44-ФЗ"},
		{"N/A", "N-A"},
		{`12\34`, "12-34"},
		{"  ", "document"},
		{"1:2?", "1-2-"},
	}
	for _, tt := range tests {
		if got := SafeFileName(tt.in); got != tt.want {
			t.Errorf("SafeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExportBatch(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	docs := []*models.Document{sampleDoc(), sampleDoc()}
	paths, err := ExportBatch(docs, dir, []Format{FormatMarkdown, FormatJSON})
	if err != nil {
		t.Fatalf("ExportBatch: %v", err)
	}
	want := []string{"44-ФЗ.md", "44-ФЗ.json", "44-ФЗ_2.md", "44-ФЗ_2.json"}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v", paths)
	}
	for i, p := range paths {
		if filepath.Base(p) != want[i] {
			t.Errorf("path %d = %s, want %s", i, filepath.Base(p), want[i])
		}
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing %s: %v", p, err)
		}
	}
}
