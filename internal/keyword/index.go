// Package keyword provides the full-text article index.
package keyword

import (
	"context"

	"github.com/hyperjump/kplus/internal/models"
)

// SearchOptions optional parameters for article search. Nil means use defaults.
type SearchOptions struct {
	// TitleBoost multiplies the score of matches in the article title.
	// Values <= 0 use DefaultTitleBoost.
	TitleBoost float64
	// FuzzyEnabled enables fuzzy matching for typo tolerance.
	FuzzyEnabled bool
	// Fuzziness is the maximum Levenshtein edit distance for fuzzy matching (1 or 2).
	// Default is 2 when FuzzyEnabled is true.
	Fuzziness int
	// DocType restricts hits to one document type ("ФЕДЕРАЛЬНЫЙ ЗАКОН"). Case-insensitive.
	DocType string
	// DocID restricts hits to the articles of one document.
	DocID string
}

// DefaultTitleBoost makes a title match outrank the same match in the body.
const DefaultTitleBoost = 2.0

// SearchResult is a page of article hits with the total match count.
type SearchResult struct {
	Hits  []*models.ArticleHit
	Total int
}

// ArticleIndex defines article search operations. Every article of a document
// is a separate entry keyed by ArticleKey.
type ArticleIndex interface {
	// IndexDocument replaces all entries of doc.
	IndexDocument(ctx context.Context, doc *models.Document) error
	DeleteDocument(ctx context.Context, docID string) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) (*SearchResult, error)
	// DocCount returns the number of indexed articles.
	DocCount() (uint64, error)
	Close() error
}

// TermDictionary provides access to the term dictionary for spell checking.
type TermDictionary interface {
	// GetAllTerms returns all unique terms in the index.
	GetAllTerms() ([]string, error)
	// GetTermFrequency returns the document frequency for a term.
	GetTermFrequency(term string) (int, error)
}

// ArticleKey is the index entry ID of an article.
func ArticleKey(docID, articleNumber string) string {
	return docID + "#" + articleNumber
}
