// Package knowledge combines the permanent knowledge base with per-session
// uploaded documents behind one search surface. The permanent/session split
// is a configuration of the same pipeline, not a separate code path.
package knowledge

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/finchat/finchat/embeddings"
	"github.com/finchat/finchat/ingestion"
	"github.com/finchat/finchat/store"
)

// Base is the retrieval capability one knowledge source exposes.
type Base interface {
	Add(ctx context.Context, doc ingestion.Document, chunks []string) error
	Delete(ctx context.Context, documentID string) (bool, error)
	Chunks(ctx context.Context, documentID string) ([]store.Chunk, error)
	AllChunks(ctx context.Context) ([]store.Chunk, error)
	Search(ctx context.Context, query, documentID string, topK int) ([]store.Fragment, error)
}

// Scope narrows a query to a session and optionally one document.
type Scope struct {
	SessionID  string
	DocumentID string
}

// Results carries retrieved fragments split by provenance, each list best
// match first.
type Results struct {
	Permanent []store.Fragment
	Session   []store.Fragment
}

// Total returns the combined number of fragments.
func (r Results) Total() int { return len(r.Permanent) + len(r.Session) }

// Stats summarizes the knowledge available to one session.
type Stats struct {
	PermanentChunks  int `json:"permanent_chunks"`
	SessionChunks    int `json:"session_chunks"`
	SessionDocuments int `json:"session_documents"`
}

// Manager owns the permanent base and the per-session stores.
type Manager struct {
	permanent Base
	embedder  embeddings.Embedder
	logger    *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*store.Memory
}

// NewManager builds a manager. permanent may be nil for session-only
// deployments.
func NewManager(permanent Base, embedder embeddings.Embedder, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		permanent: permanent,
		embedder:  embedder,
		logger:    logger,
		sessions:  make(map[string]*store.Memory),
	}
}

// Permanent exposes the permanent base, or nil when not configured.
func (m *Manager) Permanent() Base { return m.permanent }

// CreateSession opens a new empty session store and returns its id.
func (m *Manager) CreateSession() string {
	id := uuid.New().String()
	m.mu.Lock()
	m.sessions[id] = store.NewMemory(m.embedder)
	m.mu.Unlock()
	m.logger.Info("created session", zap.String("session_id", id))
	return id
}

// Session returns the store backing one session.
func (m *Manager) Session(sessionID string) (*store.Memory, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	return s, ok
}

// SessionStore returns the ingestion target for one session. Sessions are
// never created implicitly; unknown ids are an error.
func (m *Manager) SessionStore(sessionID string) (ingestion.Store, error) {
	s, ok := m.Session(sessionID)
	if !ok {
		return nil, fmt.Errorf("unknown session %s", sessionID)
	}
	return s, nil
}

// SessionDocuments lists the documents uploaded to one session.
func (m *Manager) SessionDocuments(sessionID string) []ingestion.Document {
	s, ok := m.Session(sessionID)
	if !ok {
		return nil
	}
	return s.Documents()
}

// RemoveSessionDocument deletes one document and its chunks from a session.
func (m *Manager) RemoveSessionDocument(ctx context.Context, sessionID, documentID string) (bool, error) {
	s, ok := m.Session(sessionID)
	if !ok {
		return false, fmt.Errorf("unknown session %s", sessionID)
	}
	return s.Delete(ctx, documentID)
}

// ClearSession drops a session and everything uploaded to it.
func (m *Manager) ClearSession(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return false
	}
	delete(m.sessions, sessionID)
	return true
}

// Search queries both provenances: the permanent base and, when scope names
// a session, that session's uploads. Each side returns at most topK
// fragments, best match first. An unknown session contributes nothing
// rather than failing the query; only uploads demand a live session.
func (m *Manager) Search(ctx context.Context, query string, scope Scope, topK int) (Results, error) {
	var results Results

	if m.permanent != nil {
		fragments, err := m.permanent.Search(ctx, query, scope.DocumentID, topK)
		if err != nil {
			return Results{}, fmt.Errorf("permanent search: %w", err)
		}
		results.Permanent = fragments
	}

	if scope.SessionID != "" {
		s, ok := m.Session(scope.SessionID)
		if !ok {
			m.logger.Warn("search against unknown session", zap.String("session_id", scope.SessionID))
			return results, nil
		}
		fragments, err := s.Search(ctx, query, scope.DocumentID, topK)
		if err != nil {
			return Results{}, fmt.Errorf("session search: %w", err)
		}
		results.Session = fragments
	}

	return results, nil
}

// Chunks returns all chunk text available to the scope, permanent base
// first, then session uploads.
func (m *Manager) Chunks(ctx context.Context, scope Scope) ([]store.Chunk, error) {
	chunks := make([]store.Chunk, 0)

	if m.permanent != nil {
		var (
			fromPermanent []store.Chunk
			err           error
		)
		if scope.DocumentID != "" {
			fromPermanent, err = m.permanent.Chunks(ctx, scope.DocumentID)
		} else {
			fromPermanent, err = m.permanent.AllChunks(ctx)
		}
		if err != nil {
			return nil, fmt.Errorf("permanent chunks: %w", err)
		}
		chunks = append(chunks, fromPermanent...)
	}

	if scope.SessionID != "" {
		s, ok := m.Session(scope.SessionID)
		if !ok {
			m.logger.Warn("chunk read against unknown session", zap.String("session_id", scope.SessionID))
			return chunks, nil
		}
		var (
			fromSession []store.Chunk
			err         error
		)
		if scope.DocumentID != "" {
			fromSession, err = s.Chunks(ctx, scope.DocumentID)
		} else {
			fromSession, err = s.AllChunks(ctx)
		}
		if err != nil {
			return nil, fmt.Errorf("session chunks: %w", err)
		}
		chunks = append(chunks, fromSession...)
	}

	return chunks, nil
}

// Stats reports chunk and document counts per provenance.
func (m *Manager) Stats(ctx context.Context, sessionID string) (Stats, error) {
	var stats Stats

	if m.permanent != nil {
		chunks, err := m.permanent.AllChunks(ctx)
		if err != nil {
			return Stats{}, fmt.Errorf("permanent chunks: %w", err)
		}
		stats.PermanentChunks = len(chunks)
	}

	if sessionID != "" {
		if s, ok := m.Session(sessionID); ok {
			chunks, err := s.AllChunks(ctx)
			if err != nil {
				return Stats{}, fmt.Errorf("session chunks: %w", err)
			}
			stats.SessionChunks = len(chunks)
			stats.SessionDocuments = len(s.Documents())
		}
	}

	return stats, nil
}
