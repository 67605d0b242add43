package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/kplus/internal/models"
)

// Format is an output format name.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
	FormatXLSX     Format = "xlsx"
)

// Formats lists every supported format.
var Formats = []Format{FormatMarkdown, FormatJSON, FormatXLSX}

// ParseFormat accepts a format name or a common alias ("markdown").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "md", "markdown":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Write renders doc in format to w.
func Write(w io.Writer, doc *models.Document, format Format) error {
	switch format {
	case FormatMarkdown:
		md, err := Markdown(doc)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, md)
		return err
	case FormatJSON:
		b, err := JSON(doc, 2)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	case FormatXLSX:
		return WriteXLSX(w, doc)
	}
	return fmt.Errorf("unknown export format %q", format)
}

// ExportFile writes doc to path in format, creating parent directories.
func ExportFile(doc *models.Document, path string, format Format) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(f, doc, format); err != nil {
		_ = f.Close()
		return fmt.Errorf("export %s: %w", path, err)
	}
	return f.Close()
}

var unsafeName = strings.NewReplacer("/", "-", "\\", "-", ":", "-", "*", "-", "?", "-", "\"", "-", "<", "-", ">", "-", "|", "-")

// SafeFileName turns a document number into a file name stem.
func SafeFileName(number string) string {
	name := strings.TrimSpace(unsafeName.Replace(number))
	if name == "" {
		return "document"
	}
	return name
}

// ExportBatch writes every document in every format into dir, named by document
// number. Numbers that repeat in the batch get a "_2", "_3"... suffix.
// It returns the written paths.
func ExportBatch(docs []*models.Document, dir string, formats []Format) ([]string, error) {
	used := make(map[string]int)
	var paths []string
	for _, doc := range docs {
		stem := SafeFileName(doc.Metadata.Number)
		used[stem]++
		if n := used[stem]; n > 1 {
			stem = fmt.Sprintf("%s_%d", stem, n)
		}
		for _, format := range formats {
			path := filepath.Join(dir, stem+"."+string(format))
			if err := ExportFile(doc, path, format); err != nil {
				return paths, err
			}
			paths = append(paths, path)
		}
	}
	return paths, nil
}
