package structure

import (
	"reflect"
	"strings"
	"testing"

	"github.com/hyperjump/kplus/internal/models"
)

const chapteredText = `ФЕДЕРАЛЬНЫЙ ЗАКОН

О КОНТРАКТНОЙ СИСТЕМЕ

Глава I. Общие положения

Статья 1. Сфера применения

1. Настоящий закон регулирует отношения,
направленные на обеспечение нужд.
2. Закон устанавливает порядок:
1) планирования закупок;
2) осуществления закупок.

Статья 2. Законодательство

Законодательство основывается на Конституции.

Глава 2. Планирование

Статья 16. Планирование закупок

1. Планирование осуществляется посредством планов-графиков.
`

func TestParse_PartsAndPoints(t *testing.T) {
	p := NewParser()
	body := p.Parse("Статья 1. Т\n\n1. Текст один.\n\n2. Текст два.\n   1) под.")
	flat, ok := body.(models.FlatLayout)
	if !ok {
		t.Fatalf("got %T, want FlatLayout", body)
	}
	if len(flat.Articles) != 1 {
		t.Fatalf("articles = %d, want 1", len(flat.Articles))
	}
	a := flat.Articles[0]
	if a.Number != "1" || a.Title != "Т" {
		t.Errorf("article = %q %q", a.Number, a.Title)
	}
	want := []models.Part{
		{Number: 1, Text: "Текст один.", Subparts: []string{}},
		{Number: 2, Text: "Текст два.", Subparts: []string{"1) под."}},
	}
	if !reflect.DeepEqual(a.Parts, want) {
		t.Errorf("parts = %+v, want %+v", a.Parts, want)
	}
	if a.Chapter != nil {
		t.Error("flat article has chapter ref")
	}
}

func TestParse_Chapters(t *testing.T) {
	body := NewParser().Parse(chapteredText)
	layout, ok := body.(models.ChapterLayout)
	if !ok {
		t.Fatalf("got %T, want ChapterLayout", body)
	}
	if len(layout.Chapters) != 2 {
		t.Fatalf("chapters = %d, want 2", len(layout.Chapters))
	}
	ch1, ch2 := layout.Chapters[0], layout.Chapters[1]
	if ch1.Number != 1 || ch1.Title != "Общие положения" {
		t.Errorf("chapter 1 = %d %q", ch1.Number, ch1.Title)
	}
	if ch2.Number != 2 || len(ch2.Articles) != 1 || ch2.Articles[0].Number != "16" {
		t.Errorf("chapter 2 = %+v", ch2)
	}
	if len(ch1.Articles) != 2 {
		t.Fatalf("chapter 1 articles = %d", len(ch1.Articles))
	}

	a1 := ch1.Articles[0]
	if a1.Chapter == nil || a1.Chapter.Number != 1 || a1.Chapter.Title != "Общие положения" {
		t.Errorf("chapter ref = %+v", a1.Chapter)
	}
	if len(a1.Parts) != 2 {
		t.Fatalf("parts = %+v", a1.Parts)
	}
	if got := a1.Parts[0].Text; got != "Настоящий закон регулирует отношения, направленные на обеспечение нужд." {
		t.Errorf("continuation not joined: %q", got)
	}
	if got := a1.Parts[1].Subparts; len(got) != 2 || got[1] != "2) осуществления закупок." {
		t.Errorf("subparts = %q", got)
	}
	if strings.Contains(a1.FullText, "Статья 2") {
		t.Error("article span leaks into next article")
	}
}

func TestParse_SyntheticPart(t *testing.T) {
	body := NewParser().Parse(chapteredText)
	a2 := body.AllArticles()[1]
	if len(a2.Parts) != 1 {
		t.Fatalf("parts = %d, want 1", len(a2.Parts))
	}
	if a2.Parts[0].Number != 1 || a2.Parts[0].Text != "Законодательство основывается на Конституции." {
		t.Errorf("synthetic part = %+v", a2.Parts[0])
	}
	if a2.Parts[0].Text != a2.FullText {
		t.Error("synthetic part text differs from full text")
	}
}

func TestParse_EveryArticleHasParts(t *testing.T) {
	texts := []string{
		chapteredText,
		"Статья 1. Пустая\nСтатья 2. Тоже пустая\n",
		"Статья 14.5. Дробная\n\nпросто текст\n1) висячий подпункт",
	}
	for _, text := range texts {
		for _, a := range NewParser().Parse(text).AllArticles() {
			if len(a.Parts) == 0 {
				t.Errorf("article %s has no parts", a.Number)
			}
		}
	}
}

func TestParse_DottedNumber(t *testing.T) {
	arts := NewParser().Parse("Статья 14.5. Дробная\n\n1. Текст.").AllArticles()
	if len(arts) != 1 || arts[0].Number != "14.5" {
		t.Fatalf("articles = %+v", arts)
	}
}

func TestParse_RomanAndSection(t *testing.T) {
	layout := NewParser().Parse("Раздел XIV. Заключительные\n\nСтатья 99. Вступление в силу\n\n1. Со дня опубликования.").(models.ChapterLayout)
	if layout.Chapters[0].Number != 14 {
		t.Errorf("number = %d, want 14", layout.Chapters[0].Number)
	}
}

func TestParse_NoHeaders(t *testing.T) {
	body := NewParser().Parse("Просто текст без структуры.")
	flat, ok := body.(models.FlatLayout)
	if !ok || len(flat.Articles) != 0 {
		t.Errorf("got %#v, want empty FlatLayout", body)
	}
}

func TestParse_ChapterWithoutArticles(t *testing.T) {
	layout := NewParser().Parse("Глава 1. Пустая глава\n\nтекст\n").(models.ChapterLayout)
	if len(layout.Chapters) != 1 || len(layout.Chapters[0].Articles) != 0 {
		t.Errorf("got %+v", layout.Chapters)
	}
}

func TestParse_Idempotent(t *testing.T) {
	p := NewParser()
	a := p.Parse(chapteredText)
	b := p.Parse(chapteredText)
	if !reflect.DeepEqual(a, b) {
		t.Error("two parses of the same text differ")
	}
}

func TestFirstHeaderIndex(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"none", "просто текст", -1},
		{"article", "abc\nСтатья 1. Т", 4},
		{"chapter before article", "x\nГлава 1. Г\nСтатья 1. Т", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FirstHeaderIndex(tt.text); got != tt.want {
				t.Errorf("FirstHeaderIndex() = %d, want %d", got, tt.want)
			}
		})
	}
}
