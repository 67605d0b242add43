// Package pipeline turns act files and raw texts into parsed documents:
// extraction, cleaning, metadata, preamble and structure.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hyperjump/kplus/internal/cleaner"
	"github.com/hyperjump/kplus/internal/extract"
	"github.com/hyperjump/kplus/internal/metadata"
	"github.com/hyperjump/kplus/internal/models"
	"github.com/hyperjump/kplus/internal/structure"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// DefaultPreambleSkipLines is how many leading lines of the pre-header text are
// dropped from the preamble. They normally repeat act type, number and title.
const DefaultPreambleSkipLines = 5

// Pipeline assembles models.Document values. It is safe for concurrent use.
type Pipeline struct {
	logger       *zap.Logger
	extractor    *extract.Extractor
	cleaner      *cleaner.Cleaner
	meta         *metadata.Extractor
	parser       *structure.Parser
	preambleSkip int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a logger for progress and data-quality warnings.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithExtractor sets the file text extractor used by ParseFile.
func WithExtractor(e *extract.Extractor) Option {
	return func(p *Pipeline) { p.extractor = e }
}

// WithCleaner enables text cleaning before parsing. Without it text is only NFC-normalized.
func WithCleaner(c *cleaner.Cleaner) Option {
	return func(p *Pipeline) { p.cleaner = c }
}

// WithMetadataExtractor replaces the default metadata extractor.
func WithMetadataExtractor(m *metadata.Extractor) Option {
	return func(p *Pipeline) { p.meta = m }
}

// WithStructureParser replaces the default structure parser.
func WithStructureParser(s *structure.Parser) Option {
	return func(p *Pipeline) { p.parser = s }
}

// WithPreambleSkipLines sets how many leading preamble lines to drop. Negative keeps the default.
func WithPreambleSkipLines(n int) Option {
	return func(p *Pipeline) {
		if n >= 0 {
			p.preambleSkip = n
		}
	}
}

// New creates a Pipeline. Components not supplied through options are created
// with defaults and share the pipeline's logger.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{preambleSkip: DefaultPreambleSkipLines}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.extractor == nil {
		p.extractor = extract.NewExtractor()
	}
	if p.meta == nil {
		p.meta = metadata.NewExtractor(metadata.WithLogger(p.logger))
	}
	if p.parser == nil {
		p.parser = structure.NewParser(structure.WithLogger(p.logger))
	}
	return p
}

// ParseText parses already extracted text. It never fails; a document without
// any article is returned as is and logged as a warning.
func (p *Pipeline) ParseText(text, sourceFile, fallbackTitle string) *models.Document {
	text = norm.NFC.String(text)
	if p.cleaner != nil {
		text = p.cleaner.Clean(text)
	}

	meta := p.meta.Extract(text, fallbackTitle)
	body := p.parser.Parse(text)
	doc := models.NewDocument(meta, body,
		models.WithPreamble(Preamble(text, p.preambleSkip)),
		models.WithRawText(text),
		models.WithSourceFile(sourceFile),
	)

	st := doc.Statistics()
	if st.Articles == 0 {
		p.logger.Warn("no articles recognized",
			zap.String("source", sourceFile),
			zap.String("doc_type", meta.DocType),
			zap.String("number", meta.Number))
	} else {
		p.logger.Info("document parsed",
			zap.String("source", sourceFile),
			zap.String("doc_type", meta.DocType),
			zap.String("number", meta.Number),
			zap.String("layout", string(st.Layout)),
			zap.Int("chapters", st.Chapters),
			zap.Int("articles", st.Articles))
	}
	return doc
}

// ParseFile extracts and parses the file at path. Only reading and decoding can fail.
// The file base name without extension is the fallback title.
func (p *Pipeline) ParseFile(ctx context.Context, path string) (*models.Document, error) {
	return p.ParseFileWithTitle(ctx, path, "")
}

// ParseFileWithTitle is ParseFile with a caller supplied fallback title.
// An empty fallbackTitle falls back to the file base name.
func (p *Pipeline) ParseFileWithTitle(ctx context.Context, path, fallbackTitle string) (*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	text, err := p.extractor.Extract(abs)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", abs, err)
	}
	if fallbackTitle == "" {
		fallbackTitle = FallbackTitle(abs)
	}
	return p.ParseText(text, abs, fallbackTitle), nil
}

// FallbackTitle is the file base name without its extension.
func FallbackTitle(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Preamble returns the text before the first chapter or article header, trimmed,
// without its first skip lines. It is empty when the text has no header.
func Preamble(text string, skip int) string {
	idx := structure.FirstHeaderIndex(text)
	if idx < 0 {
		return ""
	}
	head := strings.TrimSpace(text[:idx])
	if head == "" {
		return ""
	}
	lines := strings.Split(head, "\n")
	if len(lines) > skip {
		lines = lines[skip:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
