// Package docid produces document IDs: deterministic for files, random for submitted text.
package docid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	filePrefix = "file-"
	textPrefix = "text-"
)

// FromPath returns a stable document ID for an absolute path, so re-indexing a
// file replaces the same document. The ID is URL-safe.
func FromPath(absolutePath string) string {
	hash := sha256.Sum256([]byte(filepath.Clean(absolutePath)))
	return filePrefix + hex.EncodeToString(hash[:16])
}

// New returns a random ID for a document submitted as text.
func New() string {
	return textPrefix + uuid.NewString()
}

// IsFile reports whether id was produced by FromPath.
func IsFile(id string) bool {
	return strings.HasPrefix(id, filePrefix)
}
