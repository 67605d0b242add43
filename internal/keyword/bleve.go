package keyword

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/kplus/internal/models"
)

// Index field names.
const (
	fieldDocID        = "doc_id"
	fieldDocType      = "doc_type"
	fieldDocNumber    = "doc_number"
	fieldNumber       = "number"
	fieldTitle        = "title"
	fieldChapterTitle = "chapter_title"
	fieldContent      = "content"
)

const deleteBatchSize = 1000

// BleveIndex implements ArticleIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path.
// An existing index is reopened so that unchanged files need not be re-indexed.
// If you change the index mapping in code, remove the index directory to force a full re-index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming): there is no Russian
	// stemmer in bleve, so inflected forms match only through fuzzy search.
	textFieldMapping.Analyzer = standard.Name
	for _, f := range []string{fieldTitle, fieldContent, fieldChapterTitle} {
		docMapping.AddFieldMappingsAt(f, textFieldMapping)
	}
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	for _, f := range []string{fieldDocID, fieldDocType, fieldDocNumber, fieldNumber} {
		docMapping.AddFieldMappingsAt(f, keywordFieldMapping)
	}
	im.AddDocumentMapping("article", docMapping)
	im.DefaultType = "article"
	im.DefaultMapping = docMapping

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// IndexDocument drops the previous entries of doc and indexes each article.
// Repeated article numbers get a "~2", "~3"... key suffix.
func (b *BleveIndex) IndexDocument(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document ID is required")
	}
	if err := b.DeleteDocument(ctx, doc.ID); err != nil {
		return err
	}

	batch := b.index.NewBatch()
	seen := make(map[string]int)
	for _, a := range doc.AllArticles() {
		key := ArticleKey(doc.ID, a.Number)
		seen[key]++
		if n := seen[key]; n > 1 {
			key += "~" + strconv.Itoa(n)
		}
		entry := map[string]any{
			fieldDocID:     doc.ID,
			fieldDocType:   strings.ToLower(doc.Metadata.DocType),
			fieldDocNumber: doc.Metadata.Number,
			fieldNumber:    a.Number,
			fieldTitle:     a.Title,
			fieldContent:   a.Text(),
		}
		if a.Chapter != nil {
			entry[fieldChapterTitle] = a.Chapter.Title
		}
		if err := batch.Index(key, entry); err != nil {
			return fmt.Errorf("failed to index article %s: %w", a.Number, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to index document %s: %w", doc.ID, err)
	}
	return nil
}

// DeleteDocument removes every article entry of a document.
func (b *BleveIndex) DeleteDocument(ctx context.Context, docID string) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		q := bleve.NewTermQuery(docID)
		q.SetField(fieldDocID)
		req := bleve.NewSearchRequest(q)
		req.Size = deleteBatchSize
		results, err := b.index.Search(req)
		if err != nil {
			return fmt.Errorf("failed to find entries of %s: %w", docID, err)
		}
		if len(results.Hits) == 0 {
			return nil
		}
		batch := b.index.NewBatch()
		for _, hit := range results.Hits {
			batch.Delete(hit.ID)
		}
		if err := b.index.Batch(batch); err != nil {
			return fmt.Errorf("failed to delete entries of %s: %w", docID, err)
		}
	}
}

// Search runs a match (or fuzzy) query over title, chapter title and content
// and returns up to limit hits ranked by score.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) (*SearchResult, error) {
	titleBoost := DefaultTitleBoost
	fuzzyEnabled := false
	fuzziness := 2
	var docType, docID string
	if opts != nil {
		if opts.TitleBoost > 0 {
			titleBoost = opts.TitleBoost
		}
		fuzzyEnabled = opts.FuzzyEnabled
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
		docType, docID = opts.DocType, opts.DocID
	}

	var fieldQueries []blevequery.Query
	for _, field := range []string{fieldTitle, fieldChapterTitle, fieldContent} {
		var q blevequery.Query
		if fuzzyEnabled {
			q = buildFuzzyQuery(query, fuzziness, field)
		} else {
			mq := bleve.NewMatchQuery(query)
			mq.SetField(field)
			q = mq
		}
		if field == fieldTitle {
			if bq, ok := q.(blevequery.BoostableQuery); ok {
				bq.SetBoost(titleBoost)
			}
		}
		fieldQueries = append(fieldQueries, q)
	}
	var q blevequery.Query = bleve.NewDisjunctionQuery(fieldQueries...)

	var filters []blevequery.Query
	if docType != "" {
		tq := bleve.NewTermQuery(strings.ToLower(strings.TrimSpace(docType)))
		tq.SetField(fieldDocType)
		filters = append(filters, tq)
	}
	if docID != "" {
		tq := bleve.NewTermQuery(docID)
		tq.SetField(fieldDocID)
		filters = append(filters, tq)
	}
	if len(filters) > 0 {
		q = bleve.NewConjunctionQuery(append([]blevequery.Query{q}, filters...)...)
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Fields = []string{fieldDocID, fieldDocType, fieldDocNumber, fieldNumber, fieldTitle, fieldChapterTitle}
	req.Highlight = bleve.NewHighlight()
	req.Highlight.AddField(fieldTitle)
	req.Highlight.AddField(fieldContent)

	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}

	out := &SearchResult{Hits: make([]*models.ArticleHit, len(results.Hits)), Total: int(results.Total)}
	for i, hit := range results.Hits {
		h := &models.ArticleHit{
			DocumentID:    fieldString(hit.Fields, fieldDocID),
			DocType:       strings.ToUpper(fieldString(hit.Fields, fieldDocType)),
			DocNumber:     fieldString(hit.Fields, fieldDocNumber),
			ArticleNumber: fieldString(hit.Fields, fieldNumber),
			Title:         fieldString(hit.Fields, fieldTitle),
			ChapterTitle:  fieldString(hit.Fields, fieldChapterTitle),
			Score:         hit.Score,
			Rank:          i + 1,
		}
		if len(hit.Fragments) > 0 {
			h.Highlights = make(map[string]string, len(hit.Fragments))
			for field, frags := range hit.Fragments {
				h.Highlights[field] = strings.Join(frags, " … ")
			}
		}
		out.Hits[i] = h
	}
	return out, nil
}

func fieldString(fields map[string]interface{}, name string) string {
	if s, ok := fields[name].(string); ok {
		return s
	}
	return ""
}

// tokenizeQuery splits query into lowercase terms with surrounding punctuation removed.
func tokenizeQuery(query string) []string {
	words := strings.Fields(strings.ToLower(query))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsNumber(r) })
		if w != "" {
			terms = append(terms, w)
		}
	}
	return terms
}

// buildFuzzyQuery creates a disjunction of FuzzyQueries for each term in the query.
// If field is empty, searches all fields; otherwise restricts to the specified field.
func buildFuzzyQuery(queryStr string, fuzziness int, field string) blevequery.Query {
	terms := tokenizeQuery(queryStr)
	if len(terms) == 0 {
		mq := bleve.NewMatchQuery(queryStr)
		if field != "" {
			mq.SetField(field)
		}
		return mq
	}

	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		if field != "" {
			fq.SetField(field)
		}
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	// OR semantics, as MatchQuery
	return bleve.NewDisjunctionQuery(queries...)
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// DocCount returns the number of indexed articles.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// GetAllTerms returns all unique terms of the title and content fields.
func (b *BleveIndex) GetAllTerms() ([]string, error) {
	terms := make([]string, 0)
	seen := make(map[string]struct{})
	for _, field := range []string{fieldContent, fieldTitle} {
		dict, err := b.index.FieldDict(field)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s terms: %w", field, err)
		}
		for {
			entry, err := dict.Next()
			if err != nil || entry == nil {
				break
			}
			if _, ok := seen[entry.Term]; !ok {
				terms = append(terms, entry.Term)
				seen[entry.Term] = struct{}{}
			}
		}
		_ = dict.Close()
	}
	return terms, nil
}

// GetTermFrequency returns the number of articles containing the term in the title or content.
func (b *BleveIndex) GetTermFrequency(term string) (int, error) {
	tq := bleve.NewTermQuery(term)
	tq.SetField(fieldTitle)
	cq := bleve.NewTermQuery(term)
	cq.SetField(fieldContent)
	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(tq, cq))
	req.Size = 0
	results, err := b.index.Search(req)
	if err != nil {
		return 0, fmt.Errorf("failed to search for term frequency: %w", err)
	}
	return int(results.Total), nil
}
