package store

import (
	"context"
	"fmt"

	"docai/types"
)

// VectorStorer is the contract every similarity-index backend implements.
// All methods convert backend faults into conventional failure values
// (false, empty slice); a transport error never reaches the caller as a
// Go error or panic.
type VectorStorer interface {
	// EnsureCollection idempotently creates the collection with the given
	// vector dimension. With overwrite it destroys and recreates.
	EnsureCollection(ctx context.Context, dimension int, overwrite bool) bool

	// Upsert stores embedded chunks. Chunks without an embedding are
	// skipped with a log line; they never fail the call. Empty input is a
	// no-op success.
	Upsert(ctx context.Context, chunks []types.Chunk) bool

	// Search returns matches ordered by descending score, truncated to
	// limit, keeping only scores >= scoreThreshold. filters narrow results
	// by metadata field equality.
	Search(ctx context.Context, vector []float32, limit int, scoreThreshold float64, filters map[string]string) []types.RetrievedMatch

	Stats(ctx context.Context) types.CollectionStats
	Health(ctx context.Context) bool

	Delete(ctx context.Context, ids []string) bool

	// DeleteBySource removes every chunk ingested from the named source file.
	DeleteBySource(ctx context.Context, source string) bool

	// Clear destroys the collection and recreates it empty.
	Clear(ctx context.Context) bool
}

// NewVectorStore selects the vector store backend from configuration. An
// unknown backend name is a construction-time error.
func NewVectorStore(ctx context.Context, cfg types.Config) (VectorStorer, error) {
	switch cfg.VectorStore {
	case types.StorePostgres:
		return NewPostgresStore(ctx, cfg.PostgresConn, cfg.CollectionName)
	case types.StoreQdrant:
		return NewQdrantStore(cfg.QdrantURL, cfg.QdrantAPIKey, cfg.CollectionName, cfg.QdrantTimeout), nil
	case types.StoreMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported vector store: %s", cfg.VectorStore)
	}
}
