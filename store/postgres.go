package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"docai/types"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PostgresStore keeps chunks in a pgvector-enabled Postgres table, one table
// per collection, cosine distance for similarity.
type PostgresStore struct {
	pool       *pgxpool.Pool
	collection string
	dimension  int
}

func NewPostgresStore(ctx context.Context, connStr, collection string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{
		pool:       pool,
		collection: collection,
	}, nil
}

func (p *PostgresStore) table() string {
	return pgx.Identifier{p.collection}.Sanitize()
}

func (p *PostgresStore) EnsureCollection(ctx context.Context, dimension int, overwrite bool) bool {
	if dimension <= 0 {
		slog.Error("invalid vector dimension", "dimension", dimension)
		return false
	}
	p.dimension = dimension

	if overwrite {
		if _, err := p.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", p.table())); err != nil {
			slog.Error("error dropping collection table", "collection", p.collection, "error", err)
			return false
		}
	}

	query := fmt.Sprintf(`
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS %s (
		id UUID PRIMARY KEY,
		content TEXT NOT NULL,
		source TEXT,
		position INT,
		sequence_index INT,
		embedding vector(%d),
		embedding_model TEXT,
		created_at TIMESTAMP WITH TIME ZONE,
		metadata JSONB
	);

	CREATE INDEX IF NOT EXISTS idx_%s_embedding ON %s USING ivfflat (embedding vector_cosine_ops)
	WITH (lists = 100);

	CREATE INDEX IF NOT EXISTS idx_%s_source ON %s(source);
	`, p.table(), dimension, p.collection, p.table(), p.collection, p.table())

	if _, err := p.pool.Exec(ctx, query); err != nil {
		slog.Error("error creating collection table", "collection", p.collection, "error", err)
		return false
	}
	return true
}

func (p *PostgresStore) Upsert(ctx context.Context, chunks []types.Chunk) bool {
	if len(chunks) == 0 {
		slog.Warn("no chunks provided for upsert")
		return true
	}

	query := fmt.Sprintf(`
	INSERT INTO %s (id, content, source, position, sequence_index, embedding, embedding_model, created_at, metadata)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO UPDATE SET
		content = EXCLUDED.content,
		source = EXCLUDED.source,
		position = EXCLUDED.position,
		sequence_index = EXCLUDED.sequence_index,
		embedding = EXCLUDED.embedding,
		embedding_model = EXCLUDED.embedding_model,
		metadata = EXCLUDED.metadata
	`, p.table())

	stored := 0
	for _, c := range chunks {
		if !c.HasEmbedding() {
			slog.Warn("skipping chunk without embedding", "id", c.ID)
			continue
		}
		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}

		var metadata []byte
		if len(c.Metadata) > 0 {
			metadata, _ = json.Marshal(stripNulls(c.Metadata))
		}

		_, err := p.pool.Exec(ctx, query,
			id, c.Content, c.Source, c.Position, c.SequenceIndex,
			pgvector.NewVector(c.Embedding), c.EmbeddingModel, c.CreatedAt, metadata,
		)
		if err != nil {
			slog.Error("error upserting chunk", "id", id, "error", err)
			return false
		}
		stored++
	}

	slog.Info("chunks upserted", "collection", p.collection, "stored", stored)
	return true
}

func (p *PostgresStore) Search(ctx context.Context, vector []float32, limit int, scoreThreshold float64, filters map[string]string) []types.RetrievedMatch {
	if len(vector) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
	SELECT id, content, source, position, metadata, 1 - (embedding <=> $1) AS score
	FROM %s
	WHERE embedding IS NOT NULL
	`, p.table())

	args := []any{pgvector.NewVector(vector)}
	for key, value := range filters {
		if key == "source" {
			args = append(args, value)
			query += fmt.Sprintf(" AND source = $%d", len(args))
		} else {
			args = append(args, key, value)
			query += fmt.Sprintf(" AND metadata ->> $%d = $%d", len(args)-1, len(args))
		}
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY embedding <=> $1 LIMIT $%d", len(args))

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		slog.Error("error searching similar chunks", "error", err)
		return nil
	}
	defer rows.Close()

	var matches []types.RetrievedMatch
	for rows.Next() {
		var m types.RetrievedMatch
		var metadata []byte
		if err := rows.Scan(&m.ID, &m.Content, &m.Source, &m.Position, &metadata, &m.Score); err != nil {
			slog.Error("error scanning search row", "error", err)
			return nil
		}
		if m.Score < scoreThreshold {
			continue
		}
		if len(metadata) > 0 {
			_ = json.Unmarshal(metadata, &m.Metadata)
		}
		matches = append(matches, m)
	}

	// Cosine distance ordering already implies descending score; keep the
	// guarantee explicit for the caller.
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })

	return matches
}

func (p *PostgresStore) Stats(ctx context.Context) types.CollectionStats {
	var total, indexed int
	query := fmt.Sprintf("SELECT count(*), count(embedding) FROM %s", p.table())
	if err := p.pool.QueryRow(ctx, query).Scan(&total, &indexed); err != nil {
		slog.Error("error getting collection stats", "error", err)
		return types.CollectionStats{CollectionStatus: "unavailable"}
	}
	return types.CollectionStats{
		TotalDocuments:    total,
		IndexedDocuments:  indexed,
		CollectionStatus:  "green",
		VectorStoreHealth: true,
	}
}

func (p *PostgresStore) Health(ctx context.Context) bool {
	if err := p.pool.Ping(ctx); err != nil {
		slog.Error("postgres health check failed", "error", err)
		return false
	}
	return true
}

func (p *PostgresStore) Delete(ctx context.Context, ids []string) bool {
	if len(ids) == 0 {
		return true
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ANY($1)", p.table())
	if _, err := p.pool.Exec(ctx, query, ids); err != nil {
		slog.Error("error deleting chunks", "error", err)
		return false
	}
	return true
}

func (p *PostgresStore) DeleteBySource(ctx context.Context, source string) bool {
	if source == "" {
		return true
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE source = $1", p.table())
	if _, err := p.pool.Exec(ctx, query, source); err != nil {
		slog.Error("error deleting chunks by source", "source", source, "error", err)
		return false
	}
	return true
}

func (p *PostgresStore) Clear(ctx context.Context) bool {
	if _, err := p.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", p.table())); err != nil {
		slog.Error("error clearing collection", "error", err)
		return false
	}
	return p.EnsureCollection(ctx, p.dimension, false)
}

// Close releases the connection pool.
func (p *PostgresStore) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

func stripNulls(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if v == nil {
			continue
		}
		out[k] = v
	}
	return out
}
