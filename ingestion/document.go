package ingestion

// Status marks the outcome of ingesting one uploaded document.
type Status string

const (
	StatusProcessed Status = "processed"
	StatusError     Status = "error"
)

// Document is the record produced for one upload. It is immutable after
// creation except for Status, and owns an ordered sequence of chunks held
// by the external store.
type Document struct {
	ID       string   `json:"id"`
	Filename string   `json:"filename"`
	Kind     Kind     `json:"kind"`
	Status   Status   `json:"status"`
	Metadata Metadata `json:"metadata"`
}

// Metadata carries ingestion counters and the best-effort facets that were
// skipped during structured chunking.
type Metadata struct {
	TotalChunks     int      `json:"total_chunks"`
	TotalWords      int      `json:"total_words"`
	TotalCharacters int      `json:"total_characters"`
	SkippedFacets   []string `json:"skipped_facets,omitempty"`
}
