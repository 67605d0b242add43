// Package indexer parses acts and keeps storage and the article index in sync.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kplus/internal/docid"
	"github.com/hyperjump/kplus/internal/extract"
	"github.com/hyperjump/kplus/internal/keyword"
	"github.com/hyperjump/kplus/internal/models"
	"github.com/hyperjump/kplus/internal/pipeline"
	"github.com/hyperjump/kplus/internal/storage"
)

// TextInput is an act submitted as plain text.
type TextInput struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title,omitempty"` // used when the text has no recognizable title
	Text  string `json:"text"`
}

// Indexer parses documents and writes them to storage and the article index.
type Indexer struct {
	storage      storage.Storage
	articleIndex keyword.ArticleIndex
	pipeline     *pipeline.Pipeline
	logger       *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output (file indexed, document deleted, etc.).
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) {
		if l != nil {
			idx.logger = l
		}
	}
}

// NewIndexer creates an indexer. A nil pipeline uses pipeline.New().
func NewIndexer(store storage.Storage, articleIndex keyword.ArticleIndex, p *pipeline.Pipeline, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		storage:      store,
		articleIndex: articleIndex,
		pipeline:     p,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.pipeline == nil {
		idx.pipeline = pipeline.New(pipeline.WithLogger(idx.logger))
	}
	return idx
}

// IndexDocument stores doc (replacing any previous version) and indexes its articles.
func (idx *Indexer) IndexDocument(ctx context.Context, doc *models.Document, stamp storage.SourceStamp) error {
	if err := idx.storage.SaveDocument(ctx, doc, stamp); err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}
	if err := idx.articleIndex.IndexDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to index articles: %w", err)
	}
	idx.logger.Debug("indexer document indexed",
		zap.String("id", doc.ID),
		zap.String("number", doc.Metadata.Number),
		zap.Int("articles", len(doc.AllArticles())))
	return nil
}

// IndexText parses a submitted text and indexes it. A random ID is assigned when none is given.
func (idx *Indexer) IndexText(ctx context.Context, input *TextInput) (*models.Document, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, errors.New("text cannot be empty")
	}
	doc := idx.pipeline.ParseText(input.Text, "", input.Title)
	doc.ID = input.ID
	if doc.ID == "" {
		doc.ID = docid.New()
	}
	if err := idx.IndexDocument(ctx, doc, storage.SourceStamp{}); err != nil {
		return nil, err
	}
	return doc, nil
}

// IndexFile parses the file at path and indexes it. The document ID is derived from the
// absolute path so re-indexing updates the same document. If allowedExts is non-empty,
// the file's extension must be in the list (case-insensitive).
// A file already indexed with the same mtime and size is not parsed again.
func (idx *Indexer) IndexFile(ctx context.Context, path string, allowedExts []string) error {
	idx.logger.Debug("indexer indexing file", zap.String("path", path))
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	if len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts) {
		return fmt.Errorf("extension %q not in allowed list", ext)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", absPath)
	}

	id := docid.FromPath(absPath)
	stamp := storage.SourceStamp{ModTime: info.ModTime().UnixNano(), Size: info.Size()}
	if idx.unchanged(ctx, id, stamp) {
		// Re-index articles in case the index was rebuilt without the database.
		if doc, getErr := idx.storage.GetDocument(ctx, id); getErr == nil {
			_ = idx.articleIndex.IndexDocument(ctx, doc)
		}
		idx.logger.Debug("indexer skipping unchanged file", zap.String("path", absPath))
		return nil
	}

	doc, err := idx.pipeline.ParseFile(ctx, absPath)
	if err != nil {
		return err
	}
	doc.ID = id
	if err := idx.IndexDocument(ctx, doc, stamp); err != nil {
		return err
	}
	idx.logger.Debug("indexer file indexed", zap.String("path", absPath), zap.String("doc_id", id))
	return nil
}

// unchanged reports whether the document was parsed from a file with the same mtime and size.
func (idx *Indexer) unchanged(ctx context.Context, id string, stamp storage.SourceStamp) bool {
	stored, err := idx.storage.GetSourceStamp(ctx, id)
	if err != nil {
		return false
	}
	return stored == stamp
}

// IndexDirectory walks dir recursively and indexes each regular file whose extension
// is in allowedExts, or every supported file when allowedExts is empty.
// Returns the number of files indexed and the first error encountered, if any.
func (idx *Indexer) IndexDirectory(ctx context.Context, dir string, allowedExts []string) (n int, err error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if len(allowedExts) > 0 {
			if !extensionAllowed(ext, allowedExts) {
				return nil
			}
		} else if !extract.Supported(path) {
			return nil
		}
		// Resolve symlinks so we only index regular files
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		if indexErr := idx.IndexFile(ctx, path, allowedExts); indexErr != nil {
			return indexErr
		}
		n++
		return nil
	})
	return n, err
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}

// DeleteDocument removes a document from the article index and storage.
func (idx *Indexer) DeleteDocument(ctx context.Context, id string) error {
	idx.logger.Debug("indexer deleting document", zap.String("id", id))
	if err := idx.articleIndex.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("failed to delete from article index: %w", err)
	}
	if err := idx.storage.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	idx.logger.Debug("indexer document deleted", zap.String("id", id))
	return nil
}

// DeleteFile removes the document parsed from path.
func (idx *Indexer) DeleteFile(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	return idx.DeleteDocument(ctx, docid.FromPath(absPath))
}
