package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/finchat/finchat/embeddings"
	"github.com/finchat/finchat/ingestion"
)

// Memory keeps documents, chunks, and their embeddings in process memory.
// Used for session-scoped uploads, which live and die with the service.
// Safe for concurrent use.
type Memory struct {
	embedder embeddings.Embedder

	mu      sync.RWMutex
	docs    map[string]ingestion.Document
	chunks  map[string][]Chunk
	vectors map[string][][]float32
	order   []string // insertion order of document ids
}

func NewMemory(embedder embeddings.Embedder) *Memory {
	return &Memory{
		embedder: embedder,
		docs:     make(map[string]ingestion.Document),
		chunks:   make(map[string][]Chunk),
		vectors:  make(map[string][][]float32),
	}
}

// Add stores a document and its chunk set. Embedding happens before the
// store is touched, so a failed embed leaves no partial state.
func (m *Memory) Add(ctx context.Context, doc ingestion.Document, chunks []string) error {
	var vectors [][]float32
	if m.embedder != nil && len(chunks) > 0 {
		var err error
		vectors, err = m.embedder.Embed(ctx, chunks)
		if err != nil {
			return fmt.Errorf("generate embeddings: %w", err)
		}
		if len(vectors) != len(chunks) {
			return fmt.Errorf("embedding count mismatch: have %d chunks, %d embeddings", len(chunks), len(vectors))
		}
	}

	records := make([]Chunk, len(chunks))
	for i, text := range chunks {
		records[i] = Chunk{
			DocumentID: doc.ID,
			Index:      i,
			Content:    text,
			Metadata:   chunkMetadata(doc.ID, i, doc.Filename, string(doc.Kind)),
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.docs[doc.ID]; !exists {
		m.order = append(m.order, doc.ID)
	}
	m.docs[doc.ID] = doc
	m.chunks[doc.ID] = records
	m.vectors[doc.ID] = vectors
	return nil
}

// Delete removes a document and its chunk set.
func (m *Memory) Delete(_ context.Context, documentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[documentID]; !ok {
		return false, nil
	}
	delete(m.docs, documentID)
	delete(m.chunks, documentID)
	delete(m.vectors, documentID)
	for i, id := range m.order {
		if id == documentID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true, nil
}

// Documents lists stored documents in insertion order.
func (m *Memory) Documents() []ingestion.Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := make([]ingestion.Document, 0, len(m.order))
	for _, id := range m.order {
		docs = append(docs, m.docs[id])
	}
	return docs
}

// Chunks returns one document's chunk set in sequence order.
func (m *Memory) Chunks(_ context.Context, documentID string) ([]Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Chunk(nil), m.chunks[documentID]...), nil
}

// AllChunks returns every stored chunk in document insertion order.
func (m *Memory) AllChunks(_ context.Context) ([]Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]Chunk, 0)
	for _, id := range m.order {
		all = append(all, m.chunks[id]...)
	}
	return all, nil
}

// Search returns the topK most similar chunks to query across all stored
// documents (or one, when documentID is non-empty), best match first.
// Distance is (1 - cosine similarity) clamped to [0,1].
func (m *Memory) Search(ctx context.Context, query, documentID string, topK int) ([]Fragment, error) {
	if m.embedder == nil {
		return nil, fmt.Errorf("embedder not configured")
	}
	if topK <= 0 {
		topK = 5
	}

	vectors, err := m.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vectors")
	}
	queryVec := vectors[0]

	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]Fragment, 0)
	for _, id := range m.order {
		if documentID != "" && id != documentID {
			continue
		}
		for i, chunk := range m.chunks[id] {
			vecs := m.vectors[id]
			if i >= len(vecs) {
				continue
			}
			distance := 1 - cosine(queryVec, vecs[i])
			if distance < 0 {
				distance = 0
			}
			if distance > 1 {
				distance = 1
			}
			results = append(results, Fragment{
				Content:  chunk.Content,
				Metadata: chunk.Metadata,
				Distance: distance,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
