package export

import (
	"fmt"
	"strings"

	"github.com/hyperjump/kplus/internal/models"
	"gopkg.in/yaml.v3"
)

// RenderPart renders "n. text" followed by one "   - subpart" line per subpart.
func RenderPart(p models.Part) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d. %s", p.Number, p.Text)
	for _, sub := range p.Subparts {
		b.WriteString("\n   - ")
		b.WriteString(sub)
	}
	return b.String()
}

// RenderArticle renders an H3 article header and its parts separated by blank lines.
func RenderArticle(a *models.Article) string {
	lines := []string{fmt.Sprintf("### Статья %s. %s", a.Number, a.Title), ""}
	if len(a.Parts) == 0 {
		lines = append(lines, a.FullText, "")
	}
	for _, p := range a.Parts {
		lines = append(lines, RenderPart(p), "")
	}
	return strings.Join(lines, "\n")
}

// RenderChapter renders an H2 chapter header followed by its articles.
func RenderChapter(ch *models.Chapter) string {
	lines := []string{fmt.Sprintf("## Глава %d. %s", ch.Number, ch.Title), ""}
	for _, a := range ch.Articles {
		lines = append(lines, RenderArticle(a))
	}
	return strings.Join(lines, "\n")
}

// Frontmatter renders the metadata as a YAML block between "---" fences.
func Frontmatter(m models.Metadata) (string, error) {
	out, err := yaml.Marshal(NewMetadataView(m))
	if err != nil {
		return "", fmt.Errorf("marshal frontmatter: %w", err)
	}
	return "---\n" + string(out) + "---", nil
}

// Heading renders the H1 line "# {doc_type} от DD.MM.YYYY N {number}".
func Heading(m models.Metadata) string {
	return fmt.Sprintf("# %s от %s N %s", m.DocType, m.Date.Format("02.01.2006"), m.Number)
}

// Markdown renders the whole document: frontmatter, heading, bold title,
// preamble and body.
func Markdown(doc *models.Document) (string, error) {
	front, err := Frontmatter(doc.Metadata)
	if err != nil {
		return "", err
	}
	parts := []string{front, "", Heading(doc.Metadata), ""}
	if doc.Metadata.Title != "" {
		parts = append(parts, "**"+doc.Metadata.Title+"**", "")
	}
	if p := strings.TrimSpace(doc.Preamble); p != "" {
		parts = append(parts, p, "")
	}
	switch body := doc.Body.(type) {
	case models.ChapterLayout:
		for _, ch := range body.Chapters {
			parts = append(parts, RenderChapter(ch), "")
		}
	case models.FlatLayout:
		for _, a := range body.Articles {
			parts = append(parts, RenderArticle(a), "")
		}
	}
	return strings.Join(parts, "\n"), nil
}
