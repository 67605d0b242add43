package keyword

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kplus/internal/models"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(filepath.Join(t.TempDir(), "bleve"))
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func testDoc(id, docType string, articles ...*models.Article) *models.Document {
	doc := models.NewDocument(models.Metadata{DocType: docType, Number: id + "-ФЗ"}, models.FlatLayout{Articles: articles})
	doc.ID = id
	return doc
}

func article(number, title, text string) *models.Article {
	return &models.Article{Number: number, Title: title, FullText: text, Parts: []models.Part{{Number: 1, Text: text}}}
}

func TestBleveIndex_SearchFindsContent(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	ref := &models.ChapterRef{Number: 1, Title: "Общие положения"}
	doc := models.NewDocument(models.Metadata{DocType: "ФЕДЕРАЛЬНЫЙ ЗАКОН", Number: "44-ФЗ"}, models.ChapterLayout{Chapters: []*models.Chapter{{
		Number: 1, Title: ref.Title, Articles: []*models.Article{
			{Number: "1", Title: "Сфера применения", FullText: "Закон регулирует закупки товаров.", Chapter: ref},
			{Number: "2", Title: "Понятия", FullText: "Используются следующие понятия.", Chapter: ref},
		},
	}}})
	doc.ID = "doc1"
	if err := idx.IndexDocument(ctx, doc); err != nil {
		t.Fatalf("IndexDocument: %v", err)
	}

	res, err := idx.Search(ctx, "закупки", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Total != 1 || len(res.Hits) != 1 {
		t.Fatalf("hits = %d (total %d), want 1", len(res.Hits), res.Total)
	}
	h := res.Hits[0]
	if h.DocumentID != "doc1" || h.ArticleNumber != "1" || h.Title != "Сфера применения" || h.Rank != 1 {
		t.Errorf("hit = %+v", h)
	}
	if h.DocType != "ФЕДЕРАЛЬНЫЙ ЗАКОН" || h.DocNumber != "44-ФЗ" || h.ChapterTitle != "Общие положения" {
		t.Errorf("hit document fields = %+v", h)
	}
	if h.Highlights["content"] == "" {
		t.Errorf("expected content highlight, got %v", h.Highlights)
	}

	// matches in the chapter title find every article of the chapter
	res, err = idx.Search(ctx, "положения", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 2 {
		t.Errorf("chapter title search total = %d, want 2", res.Total)
	}
}

func TestBleveIndex_TitleBoost(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	doc := testDoc("d1", "ПРИКАЗ",
		article("1", "Общие вопросы", "Порядок определяет сроки. Иные положения."),
		article("2", "Сроки", "Настоящая статья устанавливает правила."),
	)
	if err := idx.IndexDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	res, err := idx.Search(ctx, "сроки", 10, &SearchOptions{TitleBoost: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Hits) != 2 || res.Hits[0].ArticleNumber != "2" {
		t.Errorf("title match should rank first: %+v", res.Hits)
	}
}

func TestBleveIndex_Filters(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	if err := idx.IndexDocument(ctx, testDoc("law", "ФЕДЕРАЛЬНЫЙ ЗАКОН", article("1", "Лицензии", "Лицензирование деятельности."))); err != nil {
		t.Fatal(err)
	}
	if err := idx.IndexDocument(ctx, testDoc("order", "ПРИКАЗ", article("1", "Лицензии", "Лицензирование работ."))); err != nil {
		t.Fatal(err)
	}

	res, err := idx.Search(ctx, "лицензии", 10, &SearchOptions{DocType: "приказ"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Hits) != 1 || res.Hits[0].DocumentID != "order" {
		t.Errorf("doc type filter: %+v", res.Hits)
	}

	res, err = idx.Search(ctx, "лицензии", 10, &SearchOptions{DocID: "law"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Hits) != 1 || res.Hits[0].DocumentID != "law" {
		t.Errorf("doc id filter: %+v", res.Hits)
	}
}

func TestBleveIndex_Fuzzy(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	if err := idx.IndexDocument(ctx, testDoc("d1", "ПРИКАЗ", article("1", "Т", "Порядок проведения закупки."))); err != nil {
		t.Fatal(err)
	}

	res, err := idx.Search(ctx, "закупкм", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Hits) != 0 {
		t.Errorf("exact search should not match a typo, got %d hits", len(res.Hits))
	}
	res, err = idx.Search(ctx, "закупкм", 10, &SearchOptions{FuzzyEnabled: true, Fuzziness: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Hits) != 1 {
		t.Errorf("fuzzy search hits = %d, want 1", len(res.Hits))
	}
}

func TestBleveIndex_ReindexAndDelete(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	doc := testDoc("d1", "ПРИКАЗ", article("1", "А", "первый"), article("2", "Б", "второй"), article("2", "В", "повтор"))
	if err := idx.IndexDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	if n, _ := idx.DocCount(); n != 3 {
		t.Errorf("DocCount = %d, want 3 (duplicate numbers kept)", n)
	}

	doc = testDoc("d1", "ПРИКАЗ", article("1", "А", "обновлённый"))
	if err := idx.IndexDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	if n, _ := idx.DocCount(); n != 1 {
		t.Errorf("DocCount after reindex = %d, want 1", n)
	}

	if err := idx.DeleteDocument(ctx, "d1"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	res, err := idx.Search(ctx, "обновлённый", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Hits) != 0 {
		t.Errorf("expected 0 results after delete, got %d", len(res.Hits))
	}
	if err := idx.DeleteDocument(ctx, "d1"); err != nil {
		t.Errorf("deleting twice: %v", err)
	}
}

func TestBleveIndex_OpenExisting(t *testing.T) {
	indexPath := filepath.Join(t.TempDir(), "bleve")
	ctx := context.Background()

	idx1, err := NewBleveIndex(indexPath)
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	if err := idx1.IndexDocument(ctx, testDoc("d1", "ПРИКАЗ", article("1", "Т", "уникальноеслово"))); err != nil {
		t.Fatal(err)
	}
	if err := idx1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	idx2, err := NewBleveIndex(indexPath)
	if err != nil {
		t.Fatalf("NewBleveIndex (open existing): %v", err)
	}
	defer func() { _ = idx2.Close() }()
	res, err := idx2.Search(ctx, "уникальноеслово", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Hits) != 1 {
		t.Errorf("reopened index hits = %d, want 1", len(res.Hits))
	}
}

func TestBleveIndex_Terms(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	if err := idx.IndexDocument(ctx, testDoc("d1", "ПРИКАЗ", article("1", "Закупки", "закупки товаров"), article("2", "Т", "работы"))); err != nil {
		t.Fatal(err)
	}
	terms, err := idx.GetAllTerms()
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{"закупки": false, "товаров": false, "работы": false}
	for _, term := range terms {
		if _, ok := want[term]; ok {
			want[term] = true
		}
	}
	for term, found := range want {
		if !found {
			t.Errorf("term %q missing from %v", term, terms)
		}
	}
	if n, err := idx.GetTermFrequency("закупки"); err != nil || n != 1 {
		t.Errorf("GetTermFrequency = %d, %v; want 1", n, err)
	}
}

func TestNewBleveIndex_createsDir(t *testing.T) {
	indexPath := filepath.Join(t.TempDir(), "sub", "bleve")
	idx, err := NewBleveIndex(indexPath)
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	_ = idx.Close()
	if _, err := os.Stat(indexPath); err != nil {
		t.Errorf("index path should exist: %v", err)
	}
}

func TestArticleKey(t *testing.T) {
	if got := ArticleKey("doc", "14.5"); got != "doc#14.5" {
		t.Errorf("ArticleKey = %q", got)
	}
}
