// Package parser extracts text units from uploaded documents. Each supported
// format yields an ordered sequence of units (page, paragraph or line) plus
// document-level metadata.
package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"docai/types"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrNotFound          = errors.New("file not found")
)

var supportedFormats = []string{".pdf", ".docx", ".txt"}

// SupportedFormats lists the recognized file extensions.
func SupportedFormats() []string {
	out := make([]string, len(supportedFormats))
	copy(out, supportedFormats)
	return out
}

// Parse dispatches on the file extension and extracts the document's units.
func Parse(path string) (*types.ParsedDocument, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return parsePDF(path)
	case ".docx":
		return parseDocx(path)
	case ".txt":
		return parseText(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}
