// Package cli renders kplus command output for terminals and for machines.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hyperjump/kplus/internal/models"
	"github.com/hyperjump/kplus/internal/pipeline"
	"github.com/hyperjump/kplus/internal/storage"
	"github.com/hyperjump/kplus/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("33"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("33")).
			Padding(0, 1)
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes search hits to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\n%s %d in %dms\n", dimStyle.Render("Found:"), response.Total, response.QueryTime)
	if len(response.Hits) == 0 && response.Suggestion != "" {
		fmt.Fprintf(w, "%s %s\n", dimStyle.Render("Did you mean:"), successStyle.Render(response.Suggestion))
	}
	for _, hit := range response.Hits {
		writeHit(w, hit)
	}
	fmt.Fprintln(w)
	return nil
}

func writeHit(w io.Writer, hit *models.ArticleHit) {
	fmt.Fprintf(w, "\n%s %s  %s %s\n",
		titleStyle.Render(fmt.Sprintf("%d.", hit.Rank)),
		titleStyle.Render(fmt.Sprintf("Статья %s. %s", hit.ArticleNumber, hit.Title)),
		dimStyle.Render("score"), fmt.Sprintf("%.4f", hit.Score))
	fmt.Fprintf(w, "   %s %s %s  %s %s\n",
		dimStyle.Render("Act:"), hit.DocType, hit.DocNumber,
		dimStyle.Render("ID:"), hit.DocumentID)
	if hit.ChapterTitle != "" {
		fmt.Fprintf(w, "   %s %s\n", dimStyle.Render("Chapter:"), hit.ChapterTitle)
	}
	for _, field := range []string{"title", "chapter_title", "content"} {
		if frag, ok := hit.Highlights[field]; ok {
			fmt.Fprintf(w, "   %s\n", TruncateWords(frag, 40))
		}
	}
}

// WriteStatistics writes a summary box for a parsed document.
func WriteStatistics(w io.Writer, doc *models.Document, format OutputFormat) error {
	st := doc.Statistics()
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	m := doc.Metadata
	lines := []string{
		titleStyle.Render(Truncate(m.Title, 70)),
		fmt.Sprintf("%s %s  %s %s  %s %s",
			dimStyle.Render("Type:"), m.DocType,
			dimStyle.Render("Number:"), m.Number,
			dimStyle.Render("Date:"), dateOrUnknown(m)),
		fmt.Sprintf("%s %s  %s %s",
			dimStyle.Render("Status:"), string(m.Status),
			dimStyle.Render("Layout:"), string(st.Layout)),
		fmt.Sprintf("%s %d  %s %d  %s %d  %s %d",
			dimStyle.Render("Chapters:"), st.Chapters,
			dimStyle.Render("Articles:"), st.Articles,
			dimStyle.Render("Words:"), st.Words,
			dimStyle.Render("Tokens:"), st.EstimatedTokens),
	}
	if st.Articles == 0 {
		lines = append(lines, errorStyle.Render("no articles recognized"))
	}
	fmt.Fprintln(w, boxStyle.Render(strings.Join(lines, "\n")))
	return nil
}

func dateOrUnknown(m models.Metadata) string {
	if m.DateUnknown {
		return dimStyle.Render("unknown")
	}
	return m.DateString()
}

// WriteDocumentList writes stored document summaries.
func WriteDocumentList(w io.Writer, docs []*storage.DocumentSummary, format OutputFormat) error {
	if format == OutputJSON {
		if docs == nil {
			docs = []*storage.DocumentSummary{}
		}
		return writeJSON(w, docs)
	}
	if len(docs) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no documents"))
		return nil
	}
	for _, d := range docs {
		fmt.Fprintf(w, "%s  %s %s %s  %s\n   %s %d  %s %d  %s\n",
			titleStyle.Render(d.ID),
			d.DocType, d.Number, dimStyle.Render(d.Date),
			string(d.Status),
			dimStyle.Render("chapters"), d.Chapters,
			dimStyle.Render("articles"), d.Articles,
			Truncate(d.Title, 80))
	}
	return nil
}

// WriteArticle writes one article with its parts.
func WriteArticle(w io.Writer, a *models.Article, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, a)
	}
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Статья %s. %s", a.Number, a.Title)))
	if a.Chapter != nil {
		fmt.Fprintf(w, "%s %d. %s\n", dimStyle.Render("Глава"), a.Chapter.Number, a.Chapter.Title)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, a.Text())
	return nil
}

// BatchSummary is the outcome of a batch command.
type BatchSummary struct {
	Parsed  int      `json:"parsed"`
	Failed  []string `json:"failed"`
	Written []string `json:"written"`
}

// NewBatchSummary collects the parse outcome and the files written for it.
func NewBatchSummary(res pipeline.BatchResult, written []string) BatchSummary {
	s := BatchSummary{Parsed: len(res.Documents()), Failed: []string{}, Written: written}
	for _, it := range res.Failed() {
		s.Failed = append(s.Failed, fmt.Sprintf("%s: %v", it.Path, it.Err))
	}
	if s.Written == nil {
		s.Written = []string{}
	}
	return s
}

// WriteBatchSummary writes the result of a batch run.
func WriteBatchSummary(w io.Writer, s BatchSummary, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, s)
	}
	status := successStyle.Render("OK")
	if len(s.Failed) > 0 {
		status = errorStyle.Render(fmt.Sprintf("%d FAILED", len(s.Failed)))
	}
	fmt.Fprintln(w, boxStyle.Render(fmt.Sprintf("%s %d  %s %d  %s",
		dimStyle.Render("Parsed:"), s.Parsed,
		dimStyle.Render("Files written:"), len(s.Written),
		status)))
	for _, f := range s.Failed {
		fmt.Fprintf(w, "%s %s\n", errorStyle.Render("✗"), f)
	}
	return nil
}

// Truncate cuts s to maxLen runes and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	return utils.Truncate(s, maxLen)
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
