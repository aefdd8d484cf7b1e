package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"docai/types"

	"github.com/google/uuid"
)

// QdrantStore is a minimal REST client to a Qdrant server. It assumes cosine
// distance and keeps chunk fields in the point payload.
type QdrantStore struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	client     *http.Client
}

// NewQdrantStore builds the adapter. Every request carries the given timeout;
// a hung server fails the call like any other backend error.
func NewQdrantStore(url, apiKey, collection string, timeout time.Duration) *QdrantStore {
	return &QdrantStore{
		url:        strings.TrimRight(url, "/"),
		apiKey:     apiKey,
		collection: collection,
		client:     &http.Client{Timeout: timeout},
	}
}

func (s *QdrantStore) EnsureCollection(ctx context.Context, dimension int, overwrite bool) bool {
	if dimension <= 0 {
		slog.Error("invalid vector dimension", "dimension", dimension)
		return false
	}
	s.dimension = dimension

	exists := s.collectionExists(ctx)
	if exists && !overwrite {
		return true
	}
	if exists && overwrite {
		if err := s.do(ctx, http.MethodDelete, "/collections/"+s.collection, nil, nil); err != nil {
			slog.Error("error deleting qdrant collection", "error", err)
			return false
		}
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if err := s.do(ctx, http.MethodPut, "/collections/"+s.collection, body, nil); err != nil {
		slog.Error("error creating qdrant collection", "error", err)
		return false
	}
	return true
}

func (s *QdrantStore) collectionExists(ctx context.Context) bool {
	return s.do(ctx, http.MethodGet, "/collections/"+s.collection, nil, nil) == nil
}

func (s *QdrantStore) Upsert(ctx context.Context, chunks []types.Chunk) bool {
	if len(chunks) == 0 {
		slog.Warn("no chunks provided for upsert")
		return true
	}

	points := make([]map[string]any, 0, len(chunks))
	for _, c := range chunks {
		if !c.HasEmbedding() {
			slog.Warn("skipping chunk without embedding", "id", c.ID)
			continue
		}
		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}

		payload := map[string]any{
			"content":         c.Content,
			"source":          c.Source,
			"sequence_index":  c.SequenceIndex,
			"embedding_model": c.EmbeddingModel,
			"created_at":      c.CreatedAt,
		}
		if c.Position > 0 {
			payload["position"] = c.Position
		}
		for k, v := range stripNulls(c.Metadata) {
			payload[k] = v
		}

		points = append(points, map[string]any{
			"id":      id,
			"vector":  c.Embedding,
			"payload": payload,
		})
	}

	if len(points) == 0 {
		slog.Warn("no embedded chunks to upsert")
		return true
	}

	body := map[string]any{"points": points}
	if err := s.do(ctx, http.MethodPut, "/collections/"+s.collection+"/points?wait=true", body, nil); err != nil {
		slog.Error("error upserting points to qdrant", "error", err)
		return false
	}

	slog.Info("chunks upserted", "collection", s.collection, "stored", len(points))
	return true
}

func (s *QdrantStore) Search(ctx context.Context, vector []float32, limit int, scoreThreshold float64, filters map[string]string) []types.RetrievedMatch {
	if len(vector) == 0 {
		return nil
	}

	req := map[string]any{
		"vector":          vector,
		"limit":           limit,
		"score_threshold": scoreThreshold,
		"with_payload":    true,
	}
	if len(filters) > 0 {
		must := make([]map[string]any, 0, len(filters))
		for key, value := range filters {
			must = append(must, map[string]any{
				"key":   key,
				"match": map[string]any{"value": value},
			})
		}
		req["filter"] = map[string]any{"must": must}
	}

	var resp struct {
		Result []struct {
			ID      string         `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, "/collections/"+s.collection+"/points/search", req, &resp); err != nil {
		slog.Error("error searching qdrant", "error", err)
		return nil
	}

	matches := make([]types.RetrievedMatch, 0, len(resp.Result))
	for _, r := range resp.Result {
		m := types.RetrievedMatch{
			ID:       r.ID,
			Score:    r.Score,
			Metadata: r.Payload,
		}
		if v, ok := r.Payload["content"].(string); ok {
			m.Content = v
		}
		if v, ok := r.Payload["source"].(string); ok {
			m.Source = v
		}
		if v, ok := r.Payload["position"].(float64); ok {
			m.Position = int(v)
		}
		matches = append(matches, m)
	}
	return matches
}

func (s *QdrantStore) Stats(ctx context.Context) types.CollectionStats {
	var resp struct {
		Result struct {
			PointsCount         int    `json:"points_count"`
			IndexedVectorsCount int    `json:"indexed_vectors_count"`
			Status              string `json:"status"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodGet, "/collections/"+s.collection, nil, &resp); err != nil {
		slog.Error("error getting qdrant collection info", "error", err)
		return types.CollectionStats{CollectionStatus: "unavailable"}
	}
	return types.CollectionStats{
		TotalDocuments:    resp.Result.PointsCount,
		IndexedDocuments:  resp.Result.IndexedVectorsCount,
		CollectionStatus:  resp.Result.Status,
		VectorStoreHealth: true,
	}
}

func (s *QdrantStore) Health(ctx context.Context) bool {
	if err := s.do(ctx, http.MethodGet, "/collections", nil, nil); err != nil {
		slog.Error("qdrant health check failed", "error", err)
		return false
	}
	return true
}

func (s *QdrantStore) Delete(ctx context.Context, ids []string) bool {
	if len(ids) == 0 {
		return true
	}
	body := map[string]any{"points": ids}
	if err := s.do(ctx, http.MethodPost, "/collections/"+s.collection+"/points/delete?wait=true", body, nil); err != nil {
		slog.Error("error deleting qdrant points", "error", err)
		return false
	}
	return true
}

func (s *QdrantStore) DeleteBySource(ctx context.Context, source string) bool {
	if source == "" {
		return true
	}
	body := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "source", "match": map[string]any{"value": source}},
			},
		},
	}
	if err := s.do(ctx, http.MethodPost, "/collections/"+s.collection+"/points/delete?wait=true", body, nil); err != nil {
		slog.Error("error deleting qdrant points by source", "source", source, "error", err)
		return false
	}
	return true
}

func (s *QdrantStore) Clear(ctx context.Context) bool {
	if err := s.do(ctx, http.MethodDelete, "/collections/"+s.collection, nil, nil); err != nil {
		slog.Error("error deleting qdrant collection", "error", err)
		return false
	}
	return s.EnsureCollection(ctx, s.dimension, false)
}

func (s *QdrantStore) do(ctx context.Context, method, path string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.url+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, path, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
