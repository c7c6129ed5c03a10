package ingestion

import "errors"

// Ingestion failures are propagated to the caller so an upload can be
// rejected with a clear status. Callers match with errors.Is. Malformed
// tabular content surfaces as tabular.ErrParse.
var (
	// ErrUnsupportedFileType is returned when a filename's extension is not
	// in the supported set.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrExtraction is returned when a paginated document cannot be parsed.
	// No partial text is ever returned alongside it.
	ErrExtraction = errors.New("text extraction failed")
)
