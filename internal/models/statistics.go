package models

import (
	"strings"

	"github.com/blevesearch/segment"
	"github.com/samber/lo"
)

// ArticleStat summarizes one article.
type ArticleStat struct {
	Number        string `json:"number"`
	ChapterNumber int    `json:"chapter_number,omitempty"`
	Parts         int    `json:"parts"`
	Tokens        int    `json:"tokens"`
	Words         int    `json:"words"`
}

// Statistics is a computed summary of a document. It is never stored.
type Statistics struct {
	DocType         string        `json:"doc_type"`
	Status          Status        `json:"status"`
	Layout          Layout        `json:"layout"`
	Chapters        int           `json:"chapters"`
	Articles        int           `json:"articles"`
	EstimatedTokens int           `json:"estimated_tokens"`
	Words           int           `json:"words"`
	HasPreamble     bool          `json:"has_preamble"`
	PerArticle      []ArticleStat `json:"per_article,omitempty"`
}

// Statistics computes counts over the body. Chapters is 0 for a flat document.
func (d *Document) Statistics() Statistics {
	articles := d.AllArticles()
	per := lo.Map(articles, func(a *Article, _ int) ArticleStat {
		s := ArticleStat{
			Number: a.Number,
			Parts:  len(a.Parts),
			Tokens: a.TokenEstimate(),
			Words:  CountWords(a.Text()),
		}
		if a.Chapter != nil {
			s.ChapterNumber = a.Chapter.Number
		}
		return s
	})

	st := Statistics{
		DocType:         d.Metadata.DocType,
		Status:          d.Metadata.Status,
		Chapters:        len(d.Chapters()),
		Articles:        len(articles),
		EstimatedTokens: lo.SumBy(per, func(s ArticleStat) int { return s.Tokens }),
		Words:           lo.SumBy(per, func(s ArticleStat) int { return s.Words }),
		HasPreamble:     strings.TrimSpace(d.Preamble) != "",
		PerArticle:      per,
	}
	if d.Body != nil {
		st.Layout = d.Body.Layout()
	} else {
		st.Layout = LayoutFlat
	}
	return st
}

// CountWords counts Unicode word segments (letters, numbers, ideographs) in s.
// Whitespace and punctuation segments are not counted.
func CountWords(s string) int {
	if s == "" {
		return 0
	}
	seg := segment.NewWordSegmenter(strings.NewReader(s))
	n := 0
	for seg.Segment() {
		if seg.Type() != segment.None {
			n++
		}
	}
	return n
}
