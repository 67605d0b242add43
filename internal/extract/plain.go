package extract

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// extractPlain decodes a text export of an act. UTF-8 is expected; anything that is not
// valid UTF-8 is read as Windows-1251, the usual encoding of older Russian text exports.
// A leading BOM is dropped and CRLF/CR line endings become LF so headers stay one per line.
func extractPlain(content []byte) (string, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	if !utf8.Valid(content) {
		decoded, err := charmap.Windows1251.NewDecoder().Bytes(content)
		if err != nil {
			return "", fmt.Errorf("decode windows-1251: %w", err)
		}
		content = decoded
	}
	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n"), nil
}
