package integration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/kplus/internal/docid"
	"github.com/hyperjump/kplus/internal/export"
	"github.com/hyperjump/kplus/internal/indexer"
	"github.com/hyperjump/kplus/internal/keyword"
	"github.com/hyperjump/kplus/internal/models"
	"github.com/hyperjump/kplus/internal/pipeline"
	"github.com/hyperjump/kplus/internal/search"
	"github.com/hyperjump/kplus/internal/storage"
)

func TestIntegration_IndexAndSearch(t *testing.T) {
	dir := t.TempDir()
	inbox := filepath.Join(dir, "inbox")
	if err := os.MkdirAll(inbox, 0755); err != nil {
		t.Fatal(err)
	}
	lawPath := filepath.Join(inbox, "44-fz.docx")
	if err := os.WriteFile(lawPath, minimalDocx(lawText), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(inbox, "ukaz-204.txt"), []byte(decreeText), 0600); err != nil {
		t.Fatal(err)
	}

	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "acts.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	kwIndex, err := keyword.NewBleveIndex(filepath.Join(dir, "articles.bleve"))
	if err != nil {
		t.Fatal(err)
	}
	defer kwIndex.Close()

	idx := indexer.NewIndexer(store, kwIndex, pipeline.New())
	engine := search.NewEngine(kwIndex, search.WithSpellChecker(keyword.NewSpellChecker(kwIndex)))
	ctx := context.Background()

	n, err := idx.IndexDirectory(ctx, inbox, nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("indexed %d files, want 2", n)
	}

	law, err := store.GetDocument(ctx, docid.FromPath(lawPath))
	if err != nil {
		t.Fatal(err)
	}
	if law.Metadata.DocType != "ФЕДЕРАЛЬНЫЙ ЗАКОН" || law.Metadata.Number != "44-ФЗ" {
		t.Errorf("law metadata = %+v", law.Metadata)
	}
	if law.Metadata.Title != "О контрактной системе в сфере закупок" {
		t.Errorf("law title = %q", law.Metadata.Title)
	}
	st := law.Statistics()
	if st.Layout != models.LayoutChapters || st.Chapters != 2 || st.Articles != 3 {
		t.Errorf("law statistics = %+v", st)
	}
	if !strings.Contains(law.Preamble, "Принят Государственной Думой") {
		t.Errorf("preamble = %q", law.Preamble)
	}
	for _, a := range law.AllArticles() {
		if len(a.Parts) == 0 {
			t.Errorf("article %s has no parts", a.Number)
		}
	}

	resp, err := engine.Search(ctx, &models.SearchQuery{Query: "планов-графиков"})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Hits) == 0 || resp.Hits[0].ArticleNumber != "16" || resp.Hits[0].DocNumber != "44-ФЗ" {
		t.Errorf("hits = %+v", resp.Hits)
	}

	resp, err = engine.Search(ctx, &models.SearchQuery{Query: "национальные", DocType: "указ"})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Hits) != 1 || resp.Hits[0].DocType != "УКАЗ" {
		t.Errorf("filtered hits = %+v", resp.Hits)
	}

	md, err := export.Markdown(law)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"## Глава 1. Общие положения", "Статья 16"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}

	if err := idx.DeleteFile(ctx, lawPath); err != nil {
		t.Fatal(err)
	}
	if count, _ := store.CountDocuments(ctx); count != 1 {
		t.Errorf("documents after delete = %d", count)
	}
	resp, err = engine.Search(ctx, &models.SearchQuery{Query: "планов-графиков"})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Hits) != 0 {
		t.Errorf("deleted act still found: %+v", resp.Hits)
	}
}

func TestIntegration_ParseIsIdempotent(t *testing.T) {
	p := pipeline.New()
	first := p.ParseText(lawText, "", "")
	second := p.ParseText(lawText, "", "")
	a, err := export.JSON(first, 0)
	if err != nil {
		t.Fatal(err)
	}
	b, err := export.JSON(second, 0)
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Error("parsing the same text twice gave different documents")
	}
}
