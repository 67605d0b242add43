package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/kplus/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func chapterDoc(id string) *models.Document {
	ref1 := &models.ChapterRef{Number: 1, Title: "Общие положения"}
	ref2 := &models.ChapterRef{Number: 14, Title: "Заключительные положения"}
	version := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	doc := models.NewDocument(models.Metadata{
		DocType:     "ФЕДЕРАЛЬНЫЙ ЗАКОН",
		Number:      "44-ФЗ",
		Date:        time.Date(2013, 4, 5, 0, 0, 0, 0, time.UTC),
		Title:       "О контрактной системе",
		Authority:   "Государственная Дума",
		Status:      models.StatusActive,
		VersionDate: &version,
		Categories:  []string{"закупки"},
		Source:      models.DefaultSource,
	}, models.ChapterLayout{Chapters: []*models.Chapter{
		{Number: 1, Title: ref1.Title, Articles: []*models.Article{
			{Number: "1", Title: "Сфера", Parts: []models.Part{{Number: 1, Text: "Один.", Subparts: []string{"1) под."}}}, FullText: "1. Один.\n1) под.", Chapter: ref1},
			{Number: "2", Title: "Понятия", Parts: []models.Part{{Number: 1, Text: "Два.", Subparts: []string{}}}, FullText: "1. Два.", Chapter: ref1},
		}},
		{Number: 14, Title: ref2.Title, Articles: []*models.Article{
			{Number: "14.5", Title: "Вступление в силу", Parts: []models.Part{{Number: 1, Text: "Три.", Subparts: []string{}}}, FullText: "Три.", Chapter: ref2},
		}},
	}}, models.WithPreamble("Принят Государственной Думой"), models.WithRawText("raw"), models.WithSourceFile("/tmp/44.pdf"))
	doc.ID = id
	return doc
}

func TestSQLiteStorage_SaveGet_Chapters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := chapterDoc("doc1")
	if err := store.SaveDocument(ctx, doc, SourceStamp{ModTime: 42, Size: 7}); err != nil {
		t.Fatal(err)
	}
	if doc.CreatedAt.IsZero() || doc.UpdatedAt.IsZero() {
		t.Error("timestamps should be set")
	}

	got, err := store.GetDocument(ctx, "doc1")
	if err != nil {
		t.Fatal(err)
	}
	m := got.Metadata
	if m.DocType != "ФЕДЕРАЛЬНЫЙ ЗАКОН" || m.Number != "44-ФЗ" || m.Authority != "Государственная Дума" {
		t.Errorf("metadata = %+v", m)
	}
	if m.DateString() != "2013-04-05" || m.VersionDate == nil || m.VersionDate.Format("2006-01-02") != "2024-01-01" {
		t.Errorf("dates = %v, %v", m.Date, m.VersionDate)
	}
	if len(m.Categories) != 1 || m.Categories[0] != "закупки" || len(m.References) != 0 {
		t.Errorf("lists = %v, %v", m.Categories, m.References)
	}
	if got.Preamble != "Принят Государственной Думой" || got.RawText != "raw" || got.SourceFile != "/tmp/44.pdf" {
		t.Errorf("document fields = %+v", got)
	}
	if got.Body.Layout() != models.LayoutChapters || got.Articles() != nil {
		t.Fatalf("layout = %s", got.Body.Layout())
	}
	chapters := got.Chapters()
	if len(chapters) != 2 || len(chapters[0].Articles) != 2 || len(chapters[1].Articles) != 1 {
		t.Fatalf("chapters = %+v", chapters)
	}
	a, ok := got.ArticleByNumber("14.5")
	if !ok || a.Chapter == nil || a.Chapter.Number != 14 {
		t.Errorf("article 14.5 = %+v", a)
	}
	first := chapters[0].Articles[0]
	if len(first.Parts) != 1 || len(first.Parts[0].Subparts) != 1 || first.Parts[0].Subparts[0] != "1) под." {
		t.Errorf("parts = %+v", first.Parts)
	}

	stamp, err := store.GetSourceStamp(ctx, "doc1")
	if err != nil || stamp != (SourceStamp{ModTime: 42, Size: 7}) {
		t.Errorf("GetSourceStamp = %+v, %v", stamp, err)
	}
}

func TestSQLiteStorage_Flat(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := models.NewDocument(models.Metadata{DocType: "ПРИКАЗ", Number: "1", Title: "Т", Status: models.StatusDraft, DateUnknown: true},
		models.FlatLayout{Articles: []*models.Article{
			{Number: "1", Title: "А", Parts: []models.Part{{Number: 1, Text: "x"}}},
		}})
	doc.ID = "flat"
	if err := store.SaveDocument(ctx, doc, SourceStamp{}); err != nil {
		t.Fatal(err)
	}
	got, err := store.GetDocument(ctx, "flat")
	if err != nil {
		t.Fatal(err)
	}
	if got.Body.Layout() != models.LayoutFlat || len(got.Articles()) != 1 || got.Chapters() != nil {
		t.Errorf("body = %+v", got.Body)
	}
	if !got.Metadata.DateUnknown || got.Metadata.Status != models.StatusDraft {
		t.Errorf("metadata = %+v", got.Metadata)
	}
	if got.AllArticles()[0].Chapter != nil {
		t.Error("flat article should have no chapter")
	}
}

func TestSQLiteStorage_Replace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := chapterDoc("doc1")
	if err := store.SaveDocument(ctx, doc, SourceStamp{}); err != nil {
		t.Fatal(err)
	}
	created := doc.CreatedAt

	replacement := models.NewDocument(models.Metadata{DocType: "ПРИКАЗ", Number: "2", Title: "Новый", Status: models.StatusActive},
		models.FlatLayout{Articles: []*models.Article{{Number: "9", Title: "Девять", Parts: []models.Part{{Number: 1, Text: "y"}}}}})
	replacement.ID = "doc1"
	if err := store.SaveDocument(ctx, replacement, SourceStamp{}); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetDocument(ctx, "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Metadata.Title != "Новый" || got.Body.Layout() != models.LayoutFlat || len(got.AllArticles()) != 1 {
		t.Errorf("replaced document = %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed: %v -> %v", created, got.CreatedAt)
	}
	n, _ := store.CountArticles(ctx)
	if n != 1 {
		t.Errorf("CountArticles = %d, want 1", n)
	}
}

func TestSQLiteStorage_GetArticle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.SaveDocument(ctx, chapterDoc("doc1"), SourceStamp{}); err != nil {
		t.Fatal(err)
	}

	a, err := store.GetArticle(ctx, "doc1", "2")
	if err != nil {
		t.Fatal(err)
	}
	if a.Title != "Понятия" || a.Chapter == nil || a.Chapter.Title != "Общие положения" {
		t.Errorf("article = %+v", a)
	}

	_, err = store.GetArticle(ctx, "doc1", "999")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("missing article err = %v, want ErrNotFound", err)
	}
	_, err = store.GetArticle(ctx, "nope", "1")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("missing document err = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStorage_UpdateStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.SaveDocument(ctx, chapterDoc("doc1"), SourceStamp{}); err != nil {
		t.Fatal(err)
	}

	if err := store.UpdateStatus(ctx, "doc1", models.StatusRepealed); err != nil {
		t.Fatal(err)
	}
	got, _ := store.GetDocument(ctx, "doc1")
	if got.Metadata.Status != models.StatusRepealed {
		t.Errorf("status = %s", got.Metadata.Status)
	}
	if err := store.UpdateStatus(ctx, "missing", models.StatusActive); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStorage_ListDeleteCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		if err := store.SaveDocument(ctx, chapterDoc(id), SourceStamp{}); err != nil {
			t.Fatal(err)
		}
	}
	list, err := store.ListDocuments(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(list))
	}
	if list[0].Chapters != 2 || list[0].Articles != 3 || list[0].Layout != models.LayoutChapters || list[0].Date != "2013-04-05" {
		t.Errorf("summary = %+v", list[0])
	}
	page, _ := store.ListDocuments(ctx, 1, 10)
	if len(page) != 1 {
		t.Errorf("offset page = %d docs, want 1", len(page))
	}

	n, _ := store.CountDocuments(ctx)
	if n != 2 {
		t.Errorf("CountDocuments = %d", n)
	}
	n, _ = store.CountArticles(ctx)
	if n != 6 {
		t.Errorf("CountArticles = %d", n)
	}

	if err := store.DeleteDocument(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetDocument(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	n, _ = store.CountArticles(ctx)
	if n != 3 {
		t.Errorf("CountArticles after delete = %d", n)
	}
	if err := store.DeleteDocument(ctx, "a"); err != nil {
		t.Errorf("deleting twice: %v", err)
	}
}
