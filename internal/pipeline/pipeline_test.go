package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/hyperjump/kplus/internal/cleaner"
	"github.com/hyperjump/kplus/internal/models"
)

const lawText = `ФЕДЕРАЛЬНЫЙ ЗАКОН

О КОНТРАКТНОЙ СИСТЕМЕ

от 5 апреля 2013 г. N 44-ФЗ

Принят Государственной Думой
22 марта 2013 года

Настоящий Федеральный закон регулирует отношения.

Глава 1. Общие положения

Статья 1. Сфера применения

1. Настоящий закон регулирует отношения.
2. Закон устанавливает порядок:
1) планирования;
2) осуществления.

Статья 2. Законодательство

Законодательство основывается на Конституции.

Глава 2. Планирование

Статья 16. Планирование закупок

1. Планирование осуществляется посредством планов-графиков.
`

func TestParseText(t *testing.T) {
	doc := New().ParseText(lawText, "", "fallback")
	if doc.Metadata.DocType != "ФЕДЕРАЛЬНЫЙ ЗАКОН" || doc.Metadata.Number != "44-ФЗ" {
		t.Errorf("metadata = %+v", doc.Metadata)
	}
	if doc.Metadata.Title != "О КОНТРАКТНОЙ СИСТЕМЕ" {
		t.Errorf("title = %q", doc.Metadata.Title)
	}
	st := doc.Statistics()
	if st.Chapters != 2 || st.Articles != 3 {
		t.Errorf("stats = %+v", st)
	}
	if doc.Preamble != "Принят Государственной Думой\n22 марта 2013 года\n\nНастоящий Федеральный закон регулирует отношения." {
		t.Errorf("preamble = %q", doc.Preamble)
	}
	if doc.RawText == "" {
		t.Error("raw text not kept")
	}
	a, ok := doc.ArticleByNumber("16")
	if !ok || a.Chapter == nil || a.Chapter.Number != 2 {
		t.Errorf("article 16 = %+v, %v", a, ok)
	}
}

func TestParseText_Idempotent(t *testing.T) {
	p := New()
	a := p.ParseText(lawText, "x.txt", "")
	b := p.ParseText(lawText, "x.txt", "")
	if !reflect.DeepEqual(a.Body, b.Body) || a.Preamble != b.Preamble || a.Metadata.Number != b.Metadata.Number {
		t.Error("repeated parse differs")
	}
}

func TestParseText_NoArticles(t *testing.T) {
	doc := New().ParseText("Письмо без статей.", "", "")
	if doc.Body.Layout() != models.LayoutFlat || len(doc.AllArticles()) != 0 {
		t.Errorf("body = %#v", doc.Body)
	}
	if doc.Preamble != "" {
		t.Errorf("preamble = %q", doc.Preamble)
	}
}

func TestParseText_WithCleaner(t *testing.T) {
	c, err := cleaner.New()
	if err != nil {
		t.Fatal(err)
	}
	text := "Документ предоставлен КонсультантПлюс\n" + lawText + "\nСтраница 1 из 2\n"
	doc := New(WithCleaner(c)).ParseText(text, "", "")
	if strings.Contains(doc.RawText, "КонсультантПлюс") || strings.Contains(doc.RawText, "Страница 1") {
		t.Errorf("watermarks kept: %q", doc.RawText)
	}
	if len(doc.AllArticles()) != 3 {
		t.Errorf("articles = %d", len(doc.AllArticles()))
	}
}

func TestPreamble(t *testing.T) {
	tests := []struct {
		name string
		text string
		skip int
		want string
	}{
		{"no header", "просто текст", 5, ""},
		{"header first", "Статья 1. Т\nтекст", 5, ""},
		{"short head kept whole", "a\nb\nСтатья 1. Т", 5, "a\nb"},
		{"skips lines", "1\n2\n3\nпреамбула\nСтатья 1. Т", 3, "преамбула"},
		{"zero skip", "a\nb\nГлава 1. Г", 0, "a\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Preamble(tt.text, tt.skip); got != tt.want {
				t.Errorf("Preamble() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "44-fz.txt")
	if err := os.WriteFile(path, []byte("ПРИКАЗ\nСтатья 1. Т\n1. Текст."), 0600); err != nil {
		t.Fatal(err)
	}
	doc, err := New().ParseFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if doc.Metadata.Title != "44-fz" {
		t.Errorf("title = %q, want file name fallback", doc.Metadata.Title)
	}
	if !filepath.IsAbs(doc.SourceFile) {
		t.Errorf("source file %q is not absolute", doc.SourceFile)
	}
}

func TestParseFileWithTitle(t *testing.T) {
	dir := t.TempDir()
	untitled := filepath.Join(dir, "untitled.txt")
	if err := os.WriteFile(untitled, []byte("ПРИКАЗ\nСтатья 1. Т\n1. Текст."), 0600); err != nil {
		t.Fatal(err)
	}
	titled := filepath.Join(dir, "titled.txt")
	if err := os.WriteFile(titled, []byte(lawText), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		path     string
		fallback string
		want     string
	}{
		{"fallback used when no title", untitled, "Приказ о закупках", "Приказ о закупках"},
		{"empty fallback uses file name", untitled, "", "untitled"},
		{"extracted title wins", titled, "Приказ о закупках", "О КОНТРАКТНОЙ СИСТЕМЕ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := New().ParseFileWithTitle(context.Background(), tt.path, tt.fallback)
			if err != nil {
				t.Fatal(err)
			}
			if doc.Metadata.Title != tt.want {
				t.Errorf("title = %q, want %q", doc.Metadata.Title, tt.want)
			}
		})
	}
}

func TestParseFile_Errors(t *testing.T) {
	if _, err := New().ParseFile(context.Background(), "/nonexistent/law.txt"); err == nil {
		t.Error("expected error for missing file")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().ParseFile(ctx, "whatever.txt"); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestParseBatch(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte("Статья 1. "+name+"\n\n1. Текст."), 0600); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	paths = append(paths[:1], append([]string{filepath.Join(dir, "missing.txt")}, paths[1:]...)...)

	res := New().ParseBatch(context.Background(), paths, 2)
	if len(res.Items) != 4 {
		t.Fatalf("items = %d", len(res.Items))
	}
	for i, it := range res.Items {
		if it.Path != paths[i] {
			t.Errorf("item %d path = %s, want %s", i, it.Path, paths[i])
		}
	}
	if got := len(res.Documents()); got != 3 {
		t.Errorf("documents = %d, want 3", got)
	}
	failed := res.Failed()
	if len(failed) != 1 || filepath.Base(failed[0].Path) != "missing.txt" {
		t.Errorf("failed = %+v", failed)
	}
	if title := res.Documents()[1].AllArticles()[0].Title; title != "b.txt" {
		t.Errorf("order broken: second document article title %q", title)
	}
}

func TestParseBatch_Empty(t *testing.T) {
	res := New().ParseBatch(context.Background(), nil, 0)
	if len(res.Items) != 0 || len(res.Documents()) != 0 {
		t.Errorf("res = %+v", res)
	}
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{filepath.Join(dir, "b.pdf"), filepath.Join(dir, "a.txt"), filepath.Join(dir, "img.png"), filepath.Join(sub, "c.docx")} {
		if err := os.WriteFile(p, []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
	}
	flat, err := CollectFiles(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(flat) != 2 || filepath.Base(flat[0]) != "a.txt" {
		t.Errorf("flat = %v", flat)
	}
	all, err := CollectFiles(dir, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("recursive = %v", all)
	}
}
