// Package structure splits the body of a legal act into chapters, articles,
// parts and subparts.
package structure

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/hyperjump/kplus/internal/models"
	"go.uber.org/zap"
)

var (
	chapterHeader = regexp.MustCompile(`(?m)^(Глава|Раздел)\s+([IVXLCDM]+|\d+)\.\s*(.+?)$`)
	articleHeader = regexp.MustCompile(`(?m)^Статья\s+(\d+(?:\.\d+)?)\.\s*(.+?)$`)
	partLine      = regexp.MustCompile(`^(\d+)\.\s+(.+)$`)
	subpartLine   = regexp.MustCompile(`^\d+\)\s+.+`)
)

// Parser builds the structural tree of a document. It holds no mutable state;
// one Parser may be shared between goroutines.
type Parser struct {
	logger *zap.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(p *Parser) { p.logger = l }
}

// NewParser creates a Parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	return p
}

// Parse returns a ChapterLayout when the text has at least one chapter header,
// otherwise a FlatLayout (possibly empty). Text before the first header is ignored.
func (p *Parser) Parse(text string) models.Structure {
	if chapterHeader.MatchString(text) {
		chapters := parseChapters(text)
		p.logger.Debug("parsed chapter layout", zap.Int("chapters", len(chapters)))
		return models.ChapterLayout{Chapters: chapters}
	}
	articles := parseArticles(text, nil)
	p.logger.Debug("parsed flat layout", zap.Int("articles", len(articles)))
	return models.FlatLayout{Articles: articles}
}

// FirstHeaderIndex returns the byte offset of the first chapter or article header
// in text, or -1 when there is none.
func FirstHeaderIndex(text string) int {
	first := -1
	for _, re := range []*regexp.Regexp{chapterHeader, articleHeader} {
		if loc := re.FindStringIndex(text); loc != nil && (first < 0 || loc[0] < first) {
			first = loc[0]
		}
	}
	return first
}

func parseChapters(text string) []*models.Chapter {
	matches := chapterHeader.FindAllStringSubmatchIndex(text, -1)
	chapters := make([]*models.Chapter, 0, len(matches))
	for i, m := range matches {
		number := chapterNumber(text[m[4]:m[5]])
		title := strings.TrimSpace(text[m[6]:m[7]])
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		ref := &models.ChapterRef{Number: number, Title: title}
		chapters = append(chapters, &models.Chapter{
			Number:   number,
			Title:    title,
			Articles: parseArticles(text[m[1]:end], ref),
		})
	}
	return chapters
}

func parseArticles(text string, chapter *models.ChapterRef) []*models.Article {
	matches := articleHeader.FindAllStringSubmatchIndex(text, -1)
	articles := make([]*models.Article, 0, len(matches))
	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		body := strings.TrimSpace(text[m[1]:end])
		articles = append(articles, &models.Article{
			Number:   text[m[2]:m[3]],
			Title:    strings.TrimSpace(text[m[4]:m[5]]),
			Parts:    parseParts(body),
			FullText: body,
			Chapter:  chapter,
		})
	}
	return articles
}

// parseParts splits an article body into numbered parts. Lines before the first
// part are dropped; a body without numbered parts becomes a single part 1.
func parseParts(body string) []models.Part {
	var (
		parts   []models.Part
		current *models.Part
		texts   []string
	)
	flush := func() {
		if current == nil {
			return
		}
		current.Text = strings.Join(texts, " ")
		parts = append(parts, *current)
		current, texts = nil, nil
	}

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := partLine.FindStringSubmatch(line); m != nil {
			flush()
			n, _ := strconv.Atoi(m[1])
			current = &models.Part{Number: n, Subparts: []string{}}
			texts = []string{m[2]}
			continue
		}
		if current == nil {
			continue
		}
		if subpartLine.MatchString(line) {
			current.Subparts = append(current.Subparts, line)
		} else {
			texts = append(texts, line)
		}
	}
	flush()

	if len(parts) == 0 {
		parts = []models.Part{{Number: 1, Text: body, Subparts: []string{}}}
	}
	return parts
}
