package ingestion

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/finchat/finchat/tabular"
)

// Store is the external persistence capability the coordinator hands chunks
// to. Implementations must add or remove a document's chunk set atomically.
type Store interface {
	Add(ctx context.Context, doc Document, chunks []string) error
	Delete(ctx context.Context, documentID string) (bool, error)
}

// Coordinator orchestrates classification, extraction or analysis,
// chunking, and metadata assembly for one uploaded document.
type Coordinator struct {
	store     Store
	chunker   *Chunker
	chunkSize int
	logger    *zap.Logger
}

// NewCoordinator builds a coordinator with the given chunking parameters.
func NewCoordinator(store Store, chunkSize, chunkOverlap int, logger *zap.Logger) (*Coordinator, error) {
	chunker, err := NewChunker(chunkSize, chunkOverlap)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		store:     store,
		chunker:   chunker,
		chunkSize: chunkSize,
		logger:    logger,
	}, nil
}

// Ingest processes one uploaded document and persists its chunk set.
// On failure it returns the error alongside a tombstone Document with
// status error and zero chunks; no partial chunk set is ever stored.
func (c *Coordinator) Ingest(ctx context.Context, payload []byte, filename string) (Document, error) {
	tombstone := Document{
		ID:       uuid.New().String(),
		Filename: filename,
		Status:   StatusError,
	}

	kind, err := DetectKind(filename)
	if err != nil {
		return tombstone, err
	}
	tombstone.Kind = kind

	var (
		chunks  []string
		words   int
		chars   int
		skipped []string
	)

	switch kind {
	case KindText:
		text, err := ExtractText(payload)
		if err != nil {
			return tombstone, err
		}
		chunks = c.chunker.Chunk(text)
		words = len(strings.Fields(text))
		chars = len([]rune(text))

	case KindTabular:
		table, err := tabular.Load(payload, filename)
		if err != nil {
			return tombstone, err
		}
		profile := tabular.Analyze(table)
		set := tabular.BuildChunks(table, profile, c.chunkSize, c.logger)
		chunks = set.Chunks
		skipped = set.Skipped
		for _, chunk := range chunks {
			words += len(strings.Fields(chunk))
			chars += len([]rune(chunk))
		}
	}

	doc := Document{
		ID:       tombstone.ID,
		Filename: filename,
		Kind:     kind,
		Status:   StatusProcessed,
		Metadata: Metadata{
			TotalChunks:     len(chunks),
			TotalWords:      words,
			TotalCharacters: chars,
			SkippedFacets:   skipped,
		},
	}

	if c.store != nil {
		if err := c.store.Add(ctx, doc, chunks); err != nil {
			return tombstone, fmt.Errorf("store chunks: %w", err)
		}
	}

	c.logger.Info("ingested document",
		zap.String("document_id", doc.ID),
		zap.String("filename", filename),
		zap.String("kind", string(kind)),
		zap.Int("chunks", len(chunks)),
		zap.Strings("skipped_facets", skipped))

	return doc, nil
}

// Remove deletes a document and cascades to its chunk set in the store.
func (c *Coordinator) Remove(ctx context.Context, documentID string) (bool, error) {
	if c.store == nil {
		return false, fmt.Errorf("store not configured")
	}
	return c.store.Delete(ctx, documentID)
}
