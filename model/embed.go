package model

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"docai/types"
)

// Embedder turns text into fixed-length vectors. Every method follows the
// soft-failure contract: a failed backend call yields nil, never an error,
// so a single bad item can never abort an ingestion pipeline.
type Embedder interface {
	// EmbedOne returns the vector for one text, or nil on empty input or
	// backend failure.
	EmbedOne(ctx context.Context, text string) []float32

	// EmbedMany returns exactly one result per input, in input order.
	// Failed items are nil; siblings are unaffected.
	EmbedMany(ctx context.Context, texts []string, batchSize int) [][]float32

	// Dimension probes the backend with a canary string and reports the
	// vector length, or 0 when the backend is unreachable.
	Dimension(ctx context.Context) int

	ModelName() string
}

// Pullable is an optional capability of providers that can install their
// model locally. Callers treat its absence as "assume healthy".
type Pullable interface {
	IsAvailable(ctx context.Context) bool
	EnsureAvailable(ctx context.Context) bool
}

// NewEmbedder selects the embedding backend from configuration. An unknown
// provider name is a construction-time error and is not recovered from.
func NewEmbedder(cfg types.Config) (Embedder, error) {
	switch cfg.EmbeddingProvider {
	case types.ProviderOllama:
		return NewOllamaEmbedder(cfg.OllamaBaseURL, cfg.EmbeddingModel, cfg.EmbeddingTimeout), nil
	case types.ProviderOpenAI:
		return NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.EmbeddingModel, cfg.EmbeddingTimeout)
	case types.ProviderLlamaCpp:
		return NewLlamaCppEmbedder(cfg.LlamaCppBaseURL, cfg.EmbeddingModel, cfg.EmbeddingTimeout), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.EmbeddingProvider)
	}
}

// interBatchPause keeps batch embedding from overwhelming a local backend.
const interBatchPause = 100 * time.Millisecond

// embedBatches runs embedOne over texts in fixed-size batches. Items within a
// batch run concurrently; batches run strictly in sequence with a short pause
// between them. Result order always matches input order.
func embedBatches(ctx context.Context, texts []string, batchSize int,
	embedOne func(context.Context, string) []float32) [][]float32 {

	if batchSize <= 0 {
		batchSize = 10
	}
	results := make([][]float32, len(texts))

	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		done := make(chan struct{})
		for i := start; i < end; i++ {
			go func(idx int) {
				defer func() { done <- struct{}{} }()
				results[idx] = embedOne(ctx, texts[idx])
			}(i)
		}
		for i := start; i < end; i++ {
			<-done
		}

		if end < len(texts) {
			time.Sleep(interBatchPause)
		}
	}

	ok := 0
	for _, r := range results {
		if r != nil {
			ok++
		}
	}
	slog.Info("batch embedding finished", "total", len(texts), "embedded", ok)

	return results
}

// probeDimension implements the canary-based Dimension contract shared by
// all adapters.
func probeDimension(ctx context.Context, e Embedder) int {
	return len(e.EmbedOne(ctx, "test"))
}
