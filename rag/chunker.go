package rag

import (
	"strings"
	"time"
	"unicode/utf8"

	"docai/types"

	"github.com/google/uuid"
)

// minChunkLength is the smallest trimmed unit worth storing. Shorter units
// are dropped silently: not stored, not embedded, not counted as processed.
const minChunkLength = 10

// Chunker turns a parsed document's units into storable chunks.
type Chunker struct {
	minLength int
}

func NewChunker() *Chunker {
	return &Chunker{minLength: minChunkLength}
}

// Chunk converts each surviving unit into exactly one chunk. The sequence
// index is assigned densely over the surviving units in original order, so
// consecutive stored chunks always have consecutive indexes.
func (c *Chunker) Chunk(doc *types.ParsedDocument, filename string) []types.Chunk {
	chunks := make([]types.Chunk, 0, len(doc.Units))
	now := time.Now().UTC()

	for _, unit := range doc.Units {
		content := strings.TrimSpace(unit.Content)
		if utf8.RuneCountInString(content) < c.minLength {
			continue
		}

		metadata := make(map[string]any, len(doc.Metadata)+len(unit.Metadata)+2)
		for k, v := range doc.Metadata {
			metadata[k] = v
		}
		for k, v := range unit.Metadata {
			metadata[k] = v
		}
		if doc.FilePath != "" {
			metadata["file_path"] = doc.FilePath
		}
		if doc.Format != "" {
			metadata["format"] = doc.Format
		}

		chunks = append(chunks, types.Chunk{
			ID:            uuid.NewString(),
			Content:       content,
			Source:        filename,
			Position:      unit.Position,
			SequenceIndex: len(chunks),
			CreatedAt:     now,
			Metadata:      metadata,
		})
	}

	return chunks
}
