package store

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"

	"docai/types"

	"github.com/google/uuid"
)

// MemoryStore is an in-process vector store backed by a map and a linear
// cosine scan. Used by tests and local development.
type MemoryStore struct {
	mu        sync.RWMutex
	chunks    map[string]types.Chunk
	dimension int
	ready     bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{chunks: make(map[string]types.Chunk)}
}

func (s *MemoryStore) EnsureCollection(ctx context.Context, dimension int, overwrite bool) bool {
	if dimension <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready && !overwrite {
		return true
	}
	s.chunks = make(map[string]types.Chunk)
	s.dimension = dimension
	s.ready = true
	return true
}

func (s *MemoryStore) Upsert(ctx context.Context, chunks []types.Chunk) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range chunks {
		if !c.HasEmbedding() {
			slog.Warn("skipping chunk without embedding", "id", c.ID)
			continue
		}
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		s.chunks[c.ID] = c
	}
	return true
}

func (s *MemoryStore) Search(ctx context.Context, vector []float32, limit int, scoreThreshold float64, filters map[string]string) []types.RetrievedMatch {
	if len(vector) == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []types.RetrievedMatch
	for _, c := range s.chunks {
		if !matchesFilters(c, filters) {
			continue
		}
		score := cosineSimilarity(vector, c.Embedding)
		if score < scoreThreshold {
			continue
		}
		matches = append(matches, types.RetrievedMatch{
			ID:       c.ID,
			Content:  c.Content,
			Source:   c.Source,
			Position: c.Position,
			Score:    score,
			Metadata: c.Metadata,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func (s *MemoryStore) Stats(ctx context.Context) types.CollectionStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return types.CollectionStats{
		TotalDocuments:    len(s.chunks),
		IndexedDocuments:  len(s.chunks),
		CollectionStatus:  "green",
		VectorStoreHealth: true,
	}
}

func (s *MemoryStore) Health(ctx context.Context) bool { return true }

func (s *MemoryStore) Delete(ctx context.Context, ids []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.chunks, id)
	}
	return true
}

func (s *MemoryStore) DeleteBySource(ctx context.Context, source string) bool {
	if source == "" {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, c := range s.chunks {
		if c.Source == source {
			delete(s.chunks, id)
		}
	}
	return true
}

func (s *MemoryStore) Clear(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks = make(map[string]types.Chunk)
	return true
}

// Count reports the number of stored chunks. Test helper.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

func matchesFilters(c types.Chunk, filters map[string]string) bool {
	for key, value := range filters {
		switch key {
		case "source":
			if c.Source != value {
				return false
			}
		default:
			v, ok := c.Metadata[key]
			if !ok {
				return false
			}
			if sv, ok := v.(string); !ok || sv != value {
				return false
			}
		}
	}
	return true
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
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
