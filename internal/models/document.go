// Package models defines the document object model of a parsed legal act:
// metadata, the chapter/article/part tree and the read-only queries over it.
package models

import (
	"strings"
	"time"
	"unicode/utf8"
)

// CharsPerToken is the average number of Cyrillic characters per LLM token used by
// TokenEstimate. It is a rough heuristic, not a tokenizer measurement.
const CharsPerToken = 4

// Part is a numbered paragraph of an article ("1. ...") with its "1) ..." subparts.
type Part struct {
	Number   int      `json:"number"`
	Text     string   `json:"text"`
	Subparts []string `json:"subparts"`
}

// ChapterRef points back from an article to the chapter that contains it.
// It is a lookup convenience, not ownership.
type ChapterRef struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
}

// Article is the atomic provision of an act. Number is a string so dotted
// forms like "14.5" survive.
type Article struct {
	Number   string      `json:"number"`
	Title    string      `json:"title"`
	Parts    []Part      `json:"parts"`
	FullText string      `json:"full_text"`
	Chapter  *ChapterRef `json:"chapter,omitempty"`
}

// TokenEstimate approximates the LLM token count of the article as characters / CharsPerToken.
// FullText is measured when present, otherwise the concatenated part texts.
func (a *Article) TokenEstimate() int {
	n := utf8.RuneCountInString(a.FullText)
	if a.FullText == "" {
		for _, p := range a.Parts {
			n += utf8.RuneCountInString(p.Text)
		}
	}
	return n / CharsPerToken
}

// Text returns FullText, or the part texts joined by newlines when FullText is empty.
func (a *Article) Text() string {
	if a.FullText != "" {
		return a.FullText
	}
	texts := make([]string, len(a.Parts))
	for i, p := range a.Parts {
		texts[i] = p.Text
	}
	return strings.Join(texts, "\n")
}

// Chapter groups articles. Roman chapter numerals are normalized to integers.
type Chapter struct {
	Number   int        `json:"number"`
	Title    string     `json:"title"`
	Articles []*Article `json:"articles"`
}

// Layout names a Structure variant.
type Layout string

const (
	LayoutChapters Layout = "chapters"
	LayoutFlat     Layout = "flat"
)

// Structure is the body of a document: either a ChapterLayout or a FlatLayout,
// never both. The interface is sealed.
type Structure interface {
	Layout() Layout
	// AllArticles returns every article in document order.
	AllArticles() []*Article
	isStructure()
}

// ChapterLayout is a body divided into chapters.
type ChapterLayout struct {
	Chapters []*Chapter
}

func (ChapterLayout) Layout() Layout { return LayoutChapters }

func (l ChapterLayout) AllArticles() []*Article {
	var out []*Article
	for _, ch := range l.Chapters {
		out = append(out, ch.Articles...)
	}
	return out
}

func (ChapterLayout) isStructure() {}

// FlatLayout is a body of top-level articles. It may be empty.
type FlatLayout struct {
	Articles []*Article
}

func (FlatLayout) Layout() Layout { return LayoutFlat }

func (l FlatLayout) AllArticles() []*Article { return l.Articles }

func (FlatLayout) isStructure() {}

// Document is the root aggregate produced for one source text.
type Document struct {
	ID         string    `json:"id,omitempty"`
	Metadata   Metadata  `json:"metadata"`
	Preamble   string    `json:"preamble"`
	RawText    string    `json:"-"`
	SourceFile string    `json:"source_file,omitempty"`
	Body       Structure `json:"-"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

// DocumentOption sets optional Document fields in NewDocument.
type DocumentOption func(*Document)

// WithPreamble sets the text preceding the first structural header.
func WithPreamble(s string) DocumentOption {
	return func(d *Document) { d.Preamble = s }
}

// WithRawText keeps the full source text on the document.
func WithRawText(s string) DocumentOption {
	return func(d *Document) { d.RawText = s }
}

// WithSourceFile records the path the text was extracted from.
func WithSourceFile(path string) DocumentOption {
	return func(d *Document) { d.SourceFile = path }
}

// NewDocument assembles a document. A nil body becomes an empty FlatLayout.
func NewDocument(meta Metadata, body Structure, opts ...DocumentOption) *Document {
	if body == nil {
		body = FlatLayout{}
	}
	d := &Document{Metadata: meta, Body: body}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Chapters returns the chapter list, or nil for a flat document.
func (d *Document) Chapters() []*Chapter {
	if l, ok := d.Body.(ChapterLayout); ok {
		return l.Chapters
	}
	return nil
}

// Articles returns the top-level article list, or nil for a chapter-structured document.
func (d *Document) Articles() []*Article {
	if l, ok := d.Body.(FlatLayout); ok {
		return l.Articles
	}
	return nil
}

// AllArticles returns every article in document order regardless of layout.
func (d *Document) AllArticles() []*Article {
	if d.Body == nil {
		return nil
	}
	return d.Body.AllArticles()
}

// ArticleByNumber finds the first article whose number equals number exactly.
// The flat list is searched when the document is flat, otherwise each chapter in order.
func (d *Document) ArticleByNumber(number string) (*Article, bool) {
	switch body := d.Body.(type) {
	case FlatLayout:
		for _, a := range body.Articles {
			if a.Number == number {
				return a, true
			}
		}
	case ChapterLayout:
		for _, ch := range body.Chapters {
			for _, a := range ch.Articles {
				if a.Number == number {
					return a, true
				}
			}
		}
	}
	return nil, false
}

// ChapterByNumber finds the first chapter with the given number.
func (d *Document) ChapterByNumber(number int) (*Chapter, bool) {
	for _, ch := range d.Chapters() {
		if ch.Number == number {
			return ch, true
		}
	}
	return nil, false
}
