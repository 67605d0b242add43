package models

// ArticleHit is a single article matched by a search.
type ArticleHit struct {
	DocumentID    string            `json:"document_id"`
	DocType       string            `json:"doc_type"`
	DocNumber     string            `json:"doc_number"`
	ArticleNumber string            `json:"article_number"`
	Title         string            `json:"title"`
	ChapterTitle  string            `json:"chapter_title,omitempty"`
	Score         float64           `json:"score"`
	Highlights    map[string]string `json:"highlights,omitempty"`
	Rank          int               `json:"rank"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Hits      []*ArticleHit `json:"hits"`
	Total     int           `json:"total"`
	QueryTime int64         `json:"query_time_ms"`
	Query     string        `json:"query"`

	// Suggestion is a spelling-corrected query, set only when nothing matched.
	Suggestion string `json:"suggestion,omitempty"`
}
