// Package storage persists parsed legal acts: metadata, chapters and articles.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hyperjump/kplus/internal/models"
)

// ErrNotFound is returned when a document or article does not exist.
var ErrNotFound = errors.New("not found")

// SourceStamp identifies the version of the source file a document was parsed
// from. It is zero for documents submitted as text.
type SourceStamp struct {
	ModTime int64 // unix nanoseconds
	Size    int64
}

// DocumentSummary is a list entry: metadata and counts without the body.
type DocumentSummary struct {
	ID         string        `json:"id"`
	DocType    string        `json:"doc_type"`
	Number     string        `json:"number"`
	Date       string        `json:"date"`
	Title      string        `json:"title"`
	Status     models.Status `json:"status"`
	Layout     models.Layout `json:"layout"`
	Chapters   int           `json:"chapters"`
	Articles   int           `json:"articles"`
	SourceFile string        `json:"source_file,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Storage defines document persistence operations.
type Storage interface {
	// SaveDocument inserts doc or replaces the stored document with the same ID,
	// chapters and articles included. CreatedAt survives a replace.
	SaveDocument(ctx context.Context, doc *models.Document, stamp SourceStamp) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	GetSourceStamp(ctx context.Context, id string) (SourceStamp, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, offset, limit int) ([]*DocumentSummary, error)

	// GetArticle returns the first article of the document with the given number.
	GetArticle(ctx context.Context, docID, number string) (*models.Article, error)
	UpdateStatus(ctx context.Context, id string, status models.Status) error

	// Stats
	CountDocuments(ctx context.Context) (int64, error)
	CountArticles(ctx context.Context) (int64, error)

	Close() error
}
