// Package ingestion handles uploaded document classification, text
// extraction, chunking, and hand-off to the chunk store.
package ingestion

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind enumerates supported document kinds.
type Kind string

const (
	// KindText represents paginated text documents (PDF).
	KindText Kind = "text"
	// KindTabular represents delimited or spreadsheet datasets (CSV, XLSX).
	KindTabular Kind = "tabular"
)

// DetectKind maps a filename to a document kind from its extension.
// It returns ErrUnsupportedFileType for anything outside the supported set.
func DetectKind(filename string) (Kind, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return KindText, nil
	case ".csv", ".xlsx":
		return KindTabular, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, ext)
	}
}
