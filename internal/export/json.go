package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hyperjump/kplus/internal/models"
)

// JSON encodes the document view. indent <= 0 produces compact output.
// Non-ASCII text is written as is.
func JSON(doc *models.Document, indent int) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent > 0 {
		enc.SetIndent("", strings.Repeat(" ", indent))
	}
	if err := enc.Encode(NewDocumentView(doc)); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return buf.Bytes(), nil
}
