// Package search runs article searches over the keyword index.
package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kplus/internal/keyword"
	"github.com/hyperjump/kplus/internal/models"
)

// Engine answers article searches and suggests a corrected query when nothing matches.
type Engine struct {
	index        keyword.ArticleIndex
	speller      *keyword.SpellChecker
	titleBoost   float64
	fuzziness    int
	defaultLimit int
	maxLimit     int
	logger       *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithSpellChecker enables "did you mean" suggestions for empty results.
func WithSpellChecker(s *keyword.SpellChecker) EngineOption {
	return func(e *Engine) { e.speller = s }
}

// WithTitleBoost sets the score multiplier for title matches.
func WithTitleBoost(b float64) EngineOption {
	return func(e *Engine) { e.titleBoost = b }
}

// WithFuzziness sets the edit distance used by fuzzy queries.
func WithFuzziness(n int) EngineOption {
	return func(e *Engine) { e.fuzziness = n }
}

// WithLimits sets the limit used when a query has none and the largest limit allowed.
func WithLimits(defaultLimit, maxLimit int) EngineOption {
	return func(e *Engine) {
		if defaultLimit > 0 {
			e.defaultLimit = defaultLimit
		}
		if maxLimit > 0 {
			e.maxLimit = maxLimit
		}
	}
}

// NewEngine creates a search engine over index.
func NewEngine(index keyword.ArticleIndex, opts ...EngineOption) *Engine {
	e := &Engine{index: index, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search validates query, runs it and returns ranked article hits.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if query.Limit <= 0 && e.defaultLimit > 0 {
		query.Limit = e.defaultLimit
	}
	if e.maxLimit > 0 && query.Limit > e.maxLimit {
		query.Limit = e.maxLimit
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}

	res, err := e.index.Search(ctx, query.Query, query.Limit, &keyword.SearchOptions{
		TitleBoost:   e.titleBoost,
		FuzzyEnabled: query.Fuzzy,
		Fuzziness:    e.fuzziness,
		DocType:      query.DocType,
		DocID:        query.DocID,
	})
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}

	response := &models.SearchResponse{
		Hits:  res.Hits,
		Total: res.Total,
		Query: query.Query,
	}
	if len(res.Hits) == 0 {
		response.Suggestion = e.suggest(query.Query)
	}
	response.QueryTime = time.Since(startTime).Milliseconds()
	e.logger.Debug("search completed",
		zap.String("query", query.Query),
		zap.Int("hits", len(response.Hits)),
		zap.Int64("query_time_ms", response.QueryTime))
	return response, nil
}

// suggest returns a corrected query, or "" when there is nothing to suggest.
func (e *Engine) suggest(query string) string {
	if e.speller == nil {
		return ""
	}
	// the index may have changed since the last search
	if err := e.speller.RefreshCache(); err != nil {
		e.logger.Warn("spell checker refresh failed", zap.Error(err))
		return ""
	}
	res, err := e.speller.Check(query)
	if err != nil || !res.HasCorrections {
		return ""
	}
	return res.CorrectedQuery
}
