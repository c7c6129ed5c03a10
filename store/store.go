// Package store persists document chunk sets and serves similarity search
// over them. Two implementations are provided: Postgres with pgvector for
// the permanent knowledge base, and an in-memory store for session-scoped
// uploads.
package store

// Fragment is a chunk as returned by similarity search, carrying a
// relevance distance in [0,1] (best match first, smaller is closer).
type Fragment struct {
	Content  string
	Metadata map[string]string
	Distance float64
}

// Chunk is one stored chunk with its provenance metadata.
type Chunk struct {
	DocumentID string
	Index      int
	Content    string
	Metadata   map[string]string
}
