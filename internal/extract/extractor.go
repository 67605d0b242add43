// Package extract pulls plain text out of the file formats legal acts are
// distributed in.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SupportedExtensions lists the extensions Extract understands, with leading dot.
var SupportedExtensions = []string{".pdf", ".docx", ".odt", ".rtf", ".txt", ".md"}

// Extractor extracts plain text from act files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text content.
// Paragraph and line breaks are kept because the structure parser works line by line.
// Returns an error if the file cannot be read or decoded.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".odt", ".rtf":
		return extractWithCat(content, ext)
	default:
		// .txt, .md and unknown extensions are read as plain text
		return extractPlain(content)
	}
}

// Supported reports whether path has one of SupportedExtensions.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}
