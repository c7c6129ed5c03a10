package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/finchat/finchat/embeddings"
	"github.com/finchat/finchat/ingestion"
)

// Postgres stores chunk sets in Postgres with pgvector embeddings.
// Adding or deleting one document's chunk set is atomic.
type Postgres struct {
	pool     *pgxpool.Pool
	embedder embeddings.Embedder
	logger   *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, embedder embeddings.Embedder, logger *zap.Logger) *Postgres {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Postgres{pool: pool, embedder: embedder, logger: logger}
}

// NewPool opens a pgx connection pool for the given DSN.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the document and chunk tables plus the vector index.
func (s *Postgres) EnsureSchema(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive")
	}

	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		`CREATE TABLE IF NOT EXISTS documents (
			id UUID PRIMARY KEY,
			filename TEXT NOT NULL,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			total_chunks INT NOT NULL DEFAULT 0,
			total_words INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
			id UUID PRIMARY KEY,
			document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			chunk_index INT NOT NULL,
			content TEXT NOT NULL,
			embedding VECTOR(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(document_id, chunk_index)
		)`, dimension),
		"CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id)",
		"CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON chunks USING ivfflat (embedding vector_l2_ops)",
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}
	return nil
}

// Add persists a document and its chunk set in one transaction.
func (s *Postgres) Add(ctx context.Context, doc ingestion.Document, chunks []string) (err error) {
	if s.embedder == nil {
		return fmt.Errorf("embedder not configured")
	}

	var vectors [][]float32
	if len(chunks) > 0 {
		vectors, err = s.embedder.Embed(ctx, chunks)
		if err != nil {
			return fmt.Errorf("generate embeddings: %w", err)
		}
		if len(vectors) != len(chunks) {
			return fmt.Errorf("embedding count mismatch: have %d chunks, %d embeddings", len(chunks), len(vectors))
		}
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Warn("rollback failed", zap.Error(rbErr))
			}
		}
	}()

	if _, err = tx.Exec(ctx, `
		INSERT INTO documents (id, filename, kind, status, total_chunks, total_words)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, doc.ID, doc.Filename, string(doc.Kind), string(doc.Status), doc.Metadata.TotalChunks, doc.Metadata.TotalWords); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	for idx, text := range chunks {
		if _, err = tx.Exec(ctx, `
			INSERT INTO chunks (id, document_id, chunk_index, content, embedding)
			VALUES ($1, $2, $3, $4, $5)
		`, uuid.New(), doc.ID, idx, text, pgvector.NewVector(vectors[idx])); err != nil {
			return fmt.Errorf("insert chunk %d: %w", idx, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Delete removes a document; its chunk set cascades. Returns false when the
// document does not exist.
func (s *Postgres) Delete(ctx context.Context, documentID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM documents WHERE id = $1", documentID)
	if err != nil {
		return false, fmt.Errorf("delete document: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Chunks returns one document's chunk set in sequence order.
func (s *Postgres) Chunks(ctx context.Context, documentID string) ([]Chunk, error) {
	return s.queryChunks(ctx, `
		SELECT c.document_id, c.chunk_index, c.content, d.filename, d.kind
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE c.document_id = $1
		ORDER BY c.chunk_index
	`, documentID)
}

// AllChunks returns every stored chunk, grouped by document in sequence order.
func (s *Postgres) AllChunks(ctx context.Context) ([]Chunk, error) {
	return s.queryChunks(ctx, `
		SELECT c.document_id, c.chunk_index, c.content, d.filename, d.kind
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		ORDER BY c.document_id, c.chunk_index
	`)
}

func (s *Postgres) queryChunks(ctx context.Context, sql string, args ...any) ([]Chunk, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	chunks := make([]Chunk, 0)
	for rows.Next() {
		var (
			chunk          Chunk
			filename, kind string
		)
		if err := rows.Scan(&chunk.DocumentID, &chunk.Index, &chunk.Content, &filename, &kind); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunk.Metadata = chunkMetadata(chunk.DocumentID, chunk.Index, filename, kind)
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// Search returns the topK most similar chunks to query, best match first,
// with distances normalized to [0,1]. A non-empty documentID restricts the
// search to that document's chunk set.
func (s *Postgres) Search(ctx context.Context, query, documentID string, topK int) ([]Fragment, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("embedder not configured")
	}
	if topK <= 0 {
		topK = 5
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vectors")
	}

	sql := `
		SELECT c.document_id, c.chunk_index, c.content, d.filename, d.kind,
		       (c.embedding <-> $1::vector) AS distance
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
	`
	args := []any{pgvector.NewVector(vectors[0])}
	if documentID != "" {
		sql += " WHERE c.document_id = $2 ORDER BY c.embedding <-> $1::vector LIMIT $3"
		args = append(args, documentID, topK)
	} else {
		sql += " ORDER BY c.embedding <-> $1::vector LIMIT $2"
		args = append(args, topK)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query similar chunks: %w", err)
	}
	defer rows.Close()

	results := make([]Fragment, 0, topK)
	for rows.Next() {
		var (
			docID, content, filename, kind string
			index                          int
			distance                       float64
		)
		if err := rows.Scan(&docID, &index, &content, &filename, &kind, &distance); err != nil {
			return nil, fmt.Errorf("scan similar chunk: %w", err)
		}
		results = append(results, Fragment{
			Content:  content,
			Metadata: chunkMetadata(docID, index, filename, kind),
			Distance: distance / (1 + distance),
		})
	}
	return results, rows.Err()
}

func chunkMetadata(documentID string, index int, filename, kind string) map[string]string {
	return map[string]string{
		"document_id": documentID,
		"chunk_index": strconv.Itoa(index),
		"filename":    filename,
		"file_type":   kind,
	}
}
