package knowledge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finchat/finchat/embeddings"
	"github.com/finchat/finchat/ingestion"
	"github.com/finchat/finchat/store"
)

type stubBase struct {
	fragments []store.Fragment
	chunks    []store.Chunk
	searchErr error
}

func (s *stubBase) Add(ctx context.Context, doc ingestion.Document, chunks []string) error {
	return nil
}

func (s *stubBase) Delete(ctx context.Context, documentID string) (bool, error) {
	return false, nil
}

func (s *stubBase) Chunks(ctx context.Context, documentID string) ([]store.Chunk, error) {
	return s.chunks, nil
}

func (s *stubBase) AllChunks(ctx context.Context) ([]store.Chunk, error) {
	return s.chunks, nil
}

func (s *stubBase) Search(ctx context.Context, query, documentID string, topK int) ([]store.Fragment, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.fragments, nil
}

var _ Base = (*stubBase)(nil)

type flatEmbedder struct{}

func (flatEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

var _ embeddings.Embedder = flatEmbedder{}

func sessionWithUpload(t *testing.T, m *Manager) string {
	t.Helper()
	id := m.CreateSession()
	target, err := m.SessionStore(id)
	require.NoError(t, err)
	doc := ingestion.Document{ID: "upload-1", Filename: "sales.csv", Kind: ingestion.KindTabular}
	require.NoError(t, target.Add(context.Background(), doc, []string{"uploaded chunk"}))
	return id
}

func TestSessionLifecycle(t *testing.T) {
	m := NewManager(nil, flatEmbedder{}, nil)

	id := m.CreateSession()
	assert.NotEmpty(t, id)

	_, ok := m.Session(id)
	assert.True(t, ok)

	assert.True(t, m.ClearSession(id))
	_, ok = m.Session(id)
	assert.False(t, ok)
	assert.False(t, m.ClearSession(id), "double clear reports missing session")
}

func TestSessionStoreUnknownSession(t *testing.T) {
	m := NewManager(nil, flatEmbedder{}, nil)
	_, err := m.SessionStore("nope")
	assert.Error(t, err)
}

func TestSessionDocuments(t *testing.T) {
	m := NewManager(nil, flatEmbedder{}, nil)
	id := sessionWithUpload(t, m)

	docs := m.SessionDocuments(id)
	require.Len(t, docs, 1)
	assert.Equal(t, "upload-1", docs[0].ID)

	assert.Nil(t, m.SessionDocuments("unknown"))
}

func TestRemoveSessionDocument(t *testing.T) {
	m := NewManager(nil, flatEmbedder{}, nil)
	id := sessionWithUpload(t, m)

	removed, err := m.RemoveSessionDocument(context.Background(), id, "upload-1")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Empty(t, m.SessionDocuments(id))

	_, err = m.RemoveSessionDocument(context.Background(), "unknown", "upload-1")
	assert.Error(t, err)
}

func TestSearchCombinesProvenances(t *testing.T) {
	permanent := &stubBase{fragments: []store.Fragment{{Content: "permanent fact"}}}
	m := NewManager(permanent, flatEmbedder{}, nil)
	id := sessionWithUpload(t, m)

	results, err := m.Search(context.Background(), "what are the facts?", Scope{SessionID: id}, 5)
	require.NoError(t, err)

	require.Len(t, results.Permanent, 1)
	assert.Equal(t, "permanent fact", results.Permanent[0].Content)
	require.Len(t, results.Session, 1)
	assert.Equal(t, "uploaded chunk", results.Session[0].Content)
	assert.Equal(t, 2, results.Total())
}

func TestSearchWithoutSessionScopesToPermanent(t *testing.T) {
	permanent := &stubBase{fragments: []store.Fragment{{Content: "permanent fact"}}}
	m := NewManager(permanent, flatEmbedder{}, nil)

	results, err := m.Search(context.Background(), "query", Scope{}, 5)
	require.NoError(t, err)
	assert.Len(t, results.Permanent, 1)
	assert.Empty(t, results.Session)
}

func TestSearchUnknownSessionFallsBackToPermanent(t *testing.T) {
	permanent := &stubBase{fragments: []store.Fragment{{Content: "permanent fact"}}}
	m := NewManager(permanent, flatEmbedder{}, nil)

	results, err := m.Search(context.Background(), "query", Scope{SessionID: "ghost"}, 5)
	require.NoError(t, err)
	assert.Len(t, results.Permanent, 1)
	assert.Empty(t, results.Session)
}

func TestChunksUnknownSessionFallsBackToPermanent(t *testing.T) {
	permanent := &stubBase{chunks: []store.Chunk{{Content: "permanent chunk"}}}
	m := NewManager(permanent, flatEmbedder{}, nil)

	chunks, err := m.Chunks(context.Background(), Scope{SessionID: "ghost"})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "permanent chunk", chunks[0].Content)
}

func TestSearchPermanentFailurePropagates(t *testing.T) {
	permanent := &stubBase{searchErr: errors.New("pool exhausted")}
	m := NewManager(permanent, flatEmbedder{}, nil)

	_, err := m.Search(context.Background(), "query", Scope{}, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permanent search")
}

func TestChunksPermanentFirst(t *testing.T) {
	permanent := &stubBase{chunks: []store.Chunk{{Content: "permanent chunk"}}}
	m := NewManager(permanent, flatEmbedder{}, nil)
	id := sessionWithUpload(t, m)

	chunks, err := m.Chunks(context.Background(), Scope{SessionID: id})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "permanent chunk", chunks[0].Content)
	assert.Equal(t, "uploaded chunk", chunks[1].Content)
}

func TestStats(t *testing.T) {
	permanent := &stubBase{chunks: []store.Chunk{{Content: "a"}, {Content: "b"}}}
	m := NewManager(permanent, flatEmbedder{}, nil)
	id := sessionWithUpload(t, m)

	stats, err := m.Stats(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.PermanentChunks)
	assert.Equal(t, 1, stats.SessionChunks)
	assert.Equal(t, 1, stats.SessionDocuments)

	stats, err = m.Stats(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.SessionChunks)
}
