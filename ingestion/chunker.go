package ingestion

import (
	"fmt"
	"strings"
)

// Chunker splits text into fixed-size overlapping character windows.
// Chunking is a pure function of (text, size, overlap): identical inputs
// always yield identical chunk sequences.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker with the given window size and overlap,
// both in characters. Requires 0 <= overlap < size.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must satisfy 0 <= overlap < size, got %d", overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Chunk emits trimmed windows of c.size characters, each starting
// c.size-c.overlap characters after the previous one. The final window may
// be shorter. Empty text yields zero chunks.
func (c *Chunker) Chunk(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := c.size - c.overlap
	chunks := make([]string, 0, (len(runes)+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, strings.TrimSpace(string(runes[start:end])))
	}
	return chunks
}
