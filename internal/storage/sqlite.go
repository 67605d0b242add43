// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/samber/lo"

	"github.com/hyperjump/kplus/internal/models"
)

const dateLayout = "2006-01-02"

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		doc_type TEXT NOT NULL,
		number TEXT NOT NULL,
		doc_date TEXT NOT NULL,
		date_unknown INTEGER NOT NULL DEFAULT 0,
		title TEXT NOT NULL,
		authority TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		version_date TEXT NOT NULL DEFAULT '',
		categories TEXT NOT NULL DEFAULT '[]',
		refs TEXT NOT NULL DEFAULT '[]',
		source TEXT NOT NULL DEFAULT '',
		preamble TEXT NOT NULL DEFAULT '',
		raw_text TEXT NOT NULL DEFAULT '',
		source_file TEXT NOT NULL DEFAULT '',
		source_mtime INTEGER NOT NULL DEFAULT 0,
		source_size INTEGER NOT NULL DEFAULT 0,
		layout TEXT NOT NULL,
		chapter_count INTEGER NOT NULL DEFAULT 0,
		article_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);
	CREATE INDEX IF NOT EXISTS idx_documents_number ON documents(number);

	CREATE TABLE IF NOT EXISTS chapters (
		document_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		number INTEGER NOT NULL,
		title TEXT NOT NULL,
		PRIMARY KEY (document_id, position),
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS articles (
		document_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		chapter_position INTEGER,
		number TEXT NOT NULL,
		title TEXT NOT NULL,
		full_text TEXT NOT NULL,
		parts TEXT NOT NULL,
		PRIMARY KEY (document_id, position),
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_articles_number ON articles(document_id, number);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveDocument replaces the document and its structure in one transaction.
func (s *SQLiteStorage) SaveDocument(ctx context.Context, doc *models.Document, stamp SourceStamp) error {
	if doc.ID == "" {
		return errors.New("document ID is required")
	}
	m := doc.Metadata
	categories, err := json.Marshal(lo.Ternary(m.Categories == nil, []string{}, m.Categories))
	if err != nil {
		return fmt.Errorf("failed to marshal categories: %w", err)
	}
	refs, err := json.Marshal(lo.Ternary(m.References == nil, []string{}, m.References))
	if err != nil {
		return fmt.Errorf("failed to marshal references: %w", err)
	}
	versionDate := ""
	if m.VersionDate != nil {
		versionDate = m.VersionDate.Format(dateLayout)
	}
	layout := models.LayoutFlat
	if doc.Body != nil {
		layout = doc.Body.Layout()
	}
	chapters := doc.Chapters()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (id, doc_type, number, doc_date, date_unknown, title, authority, status,
			version_date, categories, refs, source, preamble, raw_text, source_file, source_mtime,
			source_size, layout, chapter_count, article_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			doc_type = excluded.doc_type, number = excluded.number, doc_date = excluded.doc_date,
			date_unknown = excluded.date_unknown, title = excluded.title, authority = excluded.authority,
			status = excluded.status, version_date = excluded.version_date, categories = excluded.categories,
			refs = excluded.refs, source = excluded.source, preamble = excluded.preamble,
			raw_text = excluded.raw_text, source_file = excluded.source_file,
			source_mtime = excluded.source_mtime, source_size = excluded.source_size,
			layout = excluded.layout, chapter_count = excluded.chapter_count,
			article_count = excluded.article_count, updated_at = excluded.updated_at`,
		doc.ID, m.DocType, m.Number, m.Date.Format(dateLayout), m.DateUnknown, m.Title, m.Authority,
		string(m.Status), versionDate, string(categories), string(refs), m.Source, doc.Preamble,
		doc.RawText, doc.SourceFile, stamp.ModTime, stamp.Size, string(layout), len(chapters),
		len(doc.AllArticles()), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}

	for _, table := range []string{"chapters", "articles"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE document_id = ?`, doc.ID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	chStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chapters (document_id, position, number, title) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer chStmt.Close()
	artStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO articles (document_id, position, chapter_position, number, title, full_text, parts)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer artStmt.Close()

	pos := 0
	insertArticle := func(a *models.Article, chapterPos sql.NullInt64) error {
		parts, err := json.Marshal(a.Parts)
		if err != nil {
			return fmt.Errorf("failed to marshal parts of article %s: %w", a.Number, err)
		}
		if _, err := artStmt.ExecContext(ctx, doc.ID, pos, chapterPos, a.Number, a.Title, a.FullText, string(parts)); err != nil {
			return fmt.Errorf("failed to insert article %s: %w", a.Number, err)
		}
		pos++
		return nil
	}

	if layout == models.LayoutChapters {
		for i, ch := range chapters {
			if _, err := chStmt.ExecContext(ctx, doc.ID, i, ch.Number, ch.Title); err != nil {
				return fmt.Errorf("failed to insert chapter %d: %w", ch.Number, err)
			}
			for _, a := range ch.Articles {
				if err := insertArticle(a, sql.NullInt64{Int64: int64(i), Valid: true}); err != nil {
					return err
				}
			}
		}
	} else {
		for _, a := range doc.Articles() {
			if err := insertArticle(a, sql.NullInt64{}); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	return nil
}

// GetDocument loads a document with its full structure.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	var docDate, status, versionDate, layout, categoriesJSON, refsJSON string
	m := &doc.Metadata
	err := s.db.QueryRowContext(ctx,
		`SELECT id, doc_type, number, doc_date, date_unknown, title, authority, status, version_date,
			categories, refs, source, preamble, raw_text, source_file, layout, created_at, updated_at
		 FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &m.DocType, &m.Number, &docDate, &m.DateUnknown, &m.Title, &m.Authority, &status,
		&versionDate, &categoriesJSON, &refsJSON, &m.Source, &doc.Preamble, &doc.RawText,
		&doc.SourceFile, &layout, &doc.CreatedAt, &doc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	m.Status = models.Status(status)
	if m.Date, err = time.Parse(dateLayout, docDate); err != nil {
		return nil, fmt.Errorf("invalid stored date %q: %w", docDate, err)
	}
	if versionDate != "" {
		v, err := time.Parse(dateLayout, versionDate)
		if err != nil {
			return nil, fmt.Errorf("invalid stored version date %q: %w", versionDate, err)
		}
		m.VersionDate = &v
	}
	if err := json.Unmarshal([]byte(categoriesJSON), &m.Categories); err != nil {
		return nil, fmt.Errorf("failed to unmarshal categories: %w", err)
	}
	if err := json.Unmarshal([]byte(refsJSON), &m.References); err != nil {
		return nil, fmt.Errorf("failed to unmarshal references: %w", err)
	}

	body, err := s.loadStructure(ctx, id, models.Layout(layout))
	if err != nil {
		return nil, err
	}
	doc.Body = body
	return &doc, nil
}

// loadStructure rebuilds the tagged union: chapters only for the chapter layout.
func (s *SQLiteStorage) loadStructure(ctx context.Context, id string, layout models.Layout) (models.Structure, error) {
	var chapters []*models.Chapter
	if layout == models.LayoutChapters {
		rows, err := s.db.QueryContext(ctx,
			`SELECT number, title FROM chapters WHERE document_id = ? ORDER BY position`, id)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		for rows.Next() {
			ch := &models.Chapter{Articles: []*models.Article{}}
			if err := rows.Scan(&ch.Number, &ch.Title); err != nil {
				return nil, err
			}
			chapters = append(chapters, ch)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT chapter_position, number, title, full_text, parts
		 FROM articles WHERE document_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flat []*models.Article
	for rows.Next() {
		var chapterPos sql.NullInt64
		a, err := scanArticle(rows, &chapterPos)
		if err != nil {
			return nil, err
		}
		if layout != models.LayoutChapters {
			flat = append(flat, a)
			continue
		}
		if !chapterPos.Valid || int(chapterPos.Int64) >= len(chapters) {
			return nil, fmt.Errorf("article %s of document %s has no chapter", a.Number, id)
		}
		ch := chapters[chapterPos.Int64]
		a.Chapter = &models.ChapterRef{Number: ch.Number, Title: ch.Title}
		ch.Articles = append(ch.Articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if layout == models.LayoutChapters {
		return models.ChapterLayout{Chapters: chapters}, nil
	}
	return models.FlatLayout{Articles: flat}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArticle(row scanner, chapterPos *sql.NullInt64) (*models.Article, error) {
	var a models.Article
	var partsJSON string
	if err := row.Scan(chapterPos, &a.Number, &a.Title, &a.FullText, &partsJSON); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(partsJSON), &a.Parts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal parts of article %s: %w", a.Number, err)
	}
	return &a, nil
}

// GetArticle returns the first article with the given number, with its chapter reference.
func (s *SQLiteStorage) GetArticle(ctx context.Context, docID, number string) (*models.Article, error) {
	var chNumber sql.NullInt64
	var chTitle sql.NullString
	var chapterPos sql.NullInt64
	row := s.db.QueryRowContext(ctx,
		`SELECT c.number, c.title, a.chapter_position, a.number, a.title, a.full_text, a.parts
		 FROM articles a
		 LEFT JOIN chapters c ON c.document_id = a.document_id AND c.position = a.chapter_position
		 WHERE a.document_id = ? AND a.number = ?
		 ORDER BY a.position LIMIT 1`, docID, number)

	var a models.Article
	var partsJSON string
	err := row.Scan(&chNumber, &chTitle, &chapterPos, &a.Number, &a.Title, &a.FullText, &partsJSON)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("article %s of document %s: %w", number, docID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(partsJSON), &a.Parts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal parts of article %s: %w", a.Number, err)
	}
	if chNumber.Valid {
		a.Chapter = &models.ChapterRef{Number: int(chNumber.Int64), Title: chTitle.String}
	}
	return &a, nil
}

// GetSourceStamp returns the source file version recorded for a document.
func (s *SQLiteStorage) GetSourceStamp(ctx context.Context, id string) (SourceStamp, error) {
	var st SourceStamp
	err := s.db.QueryRowContext(ctx,
		`SELECT source_mtime, source_size FROM documents WHERE id = ?`, id,
	).Scan(&st.ModTime, &st.Size)
	if err == sql.ErrNoRows {
		return st, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return st, err
}

// UpdateStatus sets the legal status of a stored document.
func (s *SQLiteStorage) UpdateStatus(ctx context.Context, id string, status models.Status) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE documents SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now(), id,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteDocument removes a document and its structure. Deleting a missing ID is not an error.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, table := range []string{"articles", "chapters"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE document_id = ?`, id); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// ListDocuments returns document summaries, newest first.
func (s *SQLiteStorage) ListDocuments(ctx context.Context, offset, limit int) ([]*DocumentSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, doc_type, number, doc_date, title, status, layout, chapter_count, article_count,
			source_file, created_at, updated_at
		 FROM documents ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*DocumentSummary
	for rows.Next() {
		var d DocumentSummary
		var status, layout string
		if err := rows.Scan(&d.ID, &d.DocType, &d.Number, &d.Date, &d.Title, &status, &layout,
			&d.Chapters, &d.Articles, &d.SourceFile, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.Status, d.Layout = models.Status(status), models.Layout(layout)
		docs = append(docs, &d)
	}
	return docs, rows.Err()
}

// CountDocuments returns the total number of documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// CountArticles returns the total number of stored articles.
func (s *SQLiteStorage) CountArticles(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
