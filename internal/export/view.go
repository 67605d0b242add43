// Package export renders parsed documents as Markdown, JSON and XLSX.
package export

import (
	"github.com/hyperjump/kplus/internal/models"
)

const dateLayout = "2006-01-02"

// MetadataView is the serialized form of models.Metadata with ISO dates.
// Field order is the frontmatter key order.
type MetadataView struct {
	DocType     string   `json:"doc_type" yaml:"doc_type"`
	Number      string   `json:"number" yaml:"number"`
	Date        string   `json:"date" yaml:"date"`
	DateUnknown bool     `json:"date_unknown,omitempty" yaml:"date_unknown,omitempty"`
	Title       string   `json:"title" yaml:"title"`
	Authority   string   `json:"authority,omitempty" yaml:"authority,omitempty"`
	Status      string   `json:"status" yaml:"status"`
	VersionDate string   `json:"version_date,omitempty" yaml:"version_date,omitempty"`
	Categories  []string `json:"categories" yaml:"categories"`
	References  []string `json:"references" yaml:"references"`
	Source      string   `json:"source" yaml:"source"`
}

// NewMetadataView converts m for serialization.
func NewMetadataView(m models.Metadata) MetadataView {
	v := MetadataView{
		DocType:     m.DocType,
		Number:      m.Number,
		Date:        m.Date.Format(dateLayout),
		DateUnknown: m.DateUnknown,
		Title:       m.Title,
		Authority:   m.Authority,
		Status:      string(m.Status),
		Categories:  nonNil(m.Categories),
		References:  nonNil(m.References),
		Source:      m.Source,
	}
	if m.VersionDate != nil {
		v.VersionDate = m.VersionDate.Format(dateLayout)
	}
	return v
}

// ChapterView is a chapter with its articles.
type ChapterView struct {
	Number   int               `json:"number"`
	Title    string            `json:"title"`
	Articles []*models.Article `json:"articles"`
}

// StructureView carries exactly one populated list, named by Layout.
type StructureView struct {
	Layout   models.Layout     `json:"layout"`
	Chapters []ChapterView     `json:"chapters"`
	Articles []*models.Article `json:"articles"`
}

// DocumentView is the JSON shape of a document.
type DocumentView struct {
	ID         string            `json:"id,omitempty"`
	Metadata   MetadataView      `json:"metadata"`
	Statistics models.Statistics `json:"statistics"`
	Preamble   string            `json:"preamble"`
	SourceFile string            `json:"source_file,omitempty"`
	Structure  StructureView     `json:"structure"`
}

// NewDocumentView builds the serializable view of doc.
func NewDocumentView(doc *models.Document) DocumentView {
	st := StructureView{
		Layout:   models.LayoutFlat,
		Chapters: []ChapterView{},
		Articles: []*models.Article{},
	}
	switch body := doc.Body.(type) {
	case models.ChapterLayout:
		st.Layout = models.LayoutChapters
		for _, ch := range body.Chapters {
			st.Chapters = append(st.Chapters, ChapterView{Number: ch.Number, Title: ch.Title, Articles: ch.Articles})
		}
	case models.FlatLayout:
		st.Articles = append(st.Articles, body.Articles...)
	}
	return DocumentView{
		ID:         doc.ID,
		Metadata:   NewMetadataView(doc.Metadata),
		Statistics: doc.Statistics(),
		Preamble:   doc.Preamble,
		SourceFile: doc.SourceFile,
		Structure:  st,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
