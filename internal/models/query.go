package models

import "fmt"

// SearchQuery is a full-text search request over indexed articles.
type SearchQuery struct {
	Query   string `json:"query"`
	Limit   int    `json:"limit,omitempty"`
	Fuzzy   bool   `json:"fuzzy,omitempty"` // typo-tolerant matching
	DocType string `json:"doc_type,omitempty"`
	DocID   string `json:"doc_id,omitempty"`
}

// Validate ensures the query is non-empty and clamps Limit into 1..100 (default 10).
func (q *SearchQuery) Validate() error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}
