package store

import (
	"context"
	"testing"

	"docai/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readyStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	require.True(t, s.EnsureCollection(context.Background(), 3, false))
	return s
}

func TestEnsureCollectionIdempotent(t *testing.T) {
	s := readyStore(t)

	require.True(t, s.Upsert(context.Background(), []types.Chunk{
		{ID: "a", Content: "kept", Embedding: []float32{1, 0, 0}},
	}))

	// Re-ensuring without overwrite keeps existing data.
	require.True(t, s.EnsureCollection(context.Background(), 3, false))
	assert.Equal(t, 1, s.Count())

	// Overwrite recreates the collection from scratch.
	require.True(t, s.EnsureCollection(context.Background(), 3, true))
	assert.Equal(t, 0, s.Count())
}

func TestEnsureCollectionRejectsZeroDimension(t *testing.T) {
	s := NewMemoryStore()
	assert.False(t, s.EnsureCollection(context.Background(), 0, false))
}

func TestUpsertSkipsChunksWithoutEmbedding(t *testing.T) {
	s := readyStore(t)

	ok := s.Upsert(context.Background(), []types.Chunk{
		{ID: "a", Content: "embedded", Embedding: []float32{1, 0, 0}},
		{ID: "b", Content: "not embedded"},
	})

	require.True(t, ok)
	assert.Equal(t, 1, s.Count())
}

func TestSearchOrdersByScore(t *testing.T) {
	s := readyStore(t)

	require.True(t, s.Upsert(context.Background(), []types.Chunk{
		{ID: "exact", Content: "exact", Embedding: []float32{1, 0, 0}},
		{ID: "close", Content: "close", Embedding: []float32{1, 0.5, 0}},
		{ID: "far", Content: "far", Embedding: []float32{0, 0, 1}},
	}))

	matches := s.Search(context.Background(), []float32{1, 0, 0}, 10, 0.1, nil)

	require.Len(t, matches, 2)
	assert.Equal(t, "exact", matches[0].ID)
	assert.Equal(t, "close", matches[1].ID)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestSearchAppliesThresholdAndLimit(t *testing.T) {
	s := readyStore(t)

	require.True(t, s.Upsert(context.Background(), []types.Chunk{
		{ID: "a", Content: "a", Embedding: []float32{1, 0, 0}},
		{ID: "b", Content: "b", Embedding: []float32{0.9, 0.1, 0}},
		{ID: "c", Content: "c", Embedding: []float32{0.8, 0.2, 0}},
	}))

	matches := s.Search(context.Background(), []float32{1, 0, 0}, 2, 0.1, nil)
	assert.Len(t, matches, 2)

	// A threshold above every score yields nothing rather than erroring.
	matches = s.Search(context.Background(), []float32{1, 0, 0}, 10, 1.1, nil)
	assert.Empty(t, matches)
}

func TestSearchEmptyVector(t *testing.T) {
	s := readyStore(t)
	assert.Nil(t, s.Search(context.Background(), nil, 10, 0.1, nil))
}

func TestSearchFiltersBySource(t *testing.T) {
	s := readyStore(t)

	require.True(t, s.Upsert(context.Background(), []types.Chunk{
		{ID: "a", Source: "a.txt", Content: "a", Embedding: []float32{1, 0, 0}},
		{ID: "b", Source: "b.txt", Content: "b", Embedding: []float32{1, 0, 0}},
	}))

	matches := s.Search(context.Background(), []float32{1, 0, 0}, 10, 0.1, map[string]string{"source": "a.txt"})

	require.Len(t, matches, 1)
	assert.Equal(t, "a", matches[0].ID)
}

func TestSearchFiltersByMetadata(t *testing.T) {
	s := readyStore(t)

	require.True(t, s.Upsert(context.Background(), []types.Chunk{
		{ID: "a", Content: "a", Embedding: []float32{1, 0, 0}, Metadata: map[string]any{"format": "pdf"}},
		{ID: "b", Content: "b", Embedding: []float32{1, 0, 0}, Metadata: map[string]any{"format": "txt"}},
	}))

	matches := s.Search(context.Background(), []float32{1, 0, 0}, 10, 0.1, map[string]string{"format": "txt"})

	require.Len(t, matches, 1)
	assert.Equal(t, "b", matches[0].ID)
}

func TestDeleteAndClear(t *testing.T) {
	s := readyStore(t)

	require.True(t, s.Upsert(context.Background(), []types.Chunk{
		{ID: "a", Content: "a", Embedding: []float32{1, 0, 0}},
		{ID: "b", Content: "b", Embedding: []float32{0, 1, 0}},
	}))

	require.True(t, s.Delete(context.Background(), []string{"a", "missing"}))
	assert.Equal(t, 1, s.Count())

	require.True(t, s.Clear(context.Background()))
	assert.Equal(t, 0, s.Count())
}

func TestDeleteBySource(t *testing.T) {
	s := readyStore(t)

	require.True(t, s.Upsert(context.Background(), []types.Chunk{
		{ID: "a1", Source: "a.txt", Content: "a1", Embedding: []float32{1, 0, 0}},
		{ID: "a2", Source: "a.txt", Content: "a2", Embedding: []float32{0, 1, 0}},
		{ID: "b1", Source: "b.txt", Content: "b1", Embedding: []float32{0, 0, 1}},
	}))

	require.True(t, s.DeleteBySource(context.Background(), "a.txt"))
	assert.Equal(t, 1, s.Count())

	// Empty source is a no-op, not a wipe.
	require.True(t, s.DeleteBySource(context.Background(), ""))
	assert.Equal(t, 1, s.Count())
}

func TestStats(t *testing.T) {
	s := readyStore(t)

	require.True(t, s.Upsert(context.Background(), []types.Chunk{
		{ID: "a", Content: "a", Embedding: []float32{1, 0, 0}},
	}))

	stats := s.Stats(context.Background())
	assert.Equal(t, 1, stats.TotalDocuments)
	assert.Equal(t, 1, stats.IndexedDocuments)
	assert.True(t, stats.VectorStoreHealth)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{1}))
	assert.Equal(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{0, 0}))
}

func TestNewVectorStoreUnknownBackend(t *testing.T) {
	_, err := NewVectorStore(context.Background(), types.Config{VectorStore: "weaviate"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported vector store")
}

func TestNewVectorStoreMemory(t *testing.T) {
	s, err := NewVectorStore(context.Background(), types.Config{VectorStore: types.StoreMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
}
