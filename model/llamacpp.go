package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"docai/types"
)

// llamaCppClient talks to a llama.cpp llama-server instance over its native
// HTTP API. The model file is loaded by the server at startup, so there is
// no pull capability: the backend either has the model or it does not exist.
type llamaCppClient struct {
	baseURL string
	model   string
	client  *http.Client
}

func newLlamaCppClient(baseURL, model string, timeout time.Duration) llamaCppClient {
	return llamaCppClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

func (l *llamaCppClient) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("llama.cpp API error: status %d, body: %s", resp.StatusCode, string(b))
	}

	return io.ReadAll(resp.Body)
}

// LlamaCppEmbedder generates embeddings through llama-server's /embedding
// endpoint.
type LlamaCppEmbedder struct {
	llamaCppClient
}

func NewLlamaCppEmbedder(baseURL, model string, timeout time.Duration) *LlamaCppEmbedder {
	return &LlamaCppEmbedder{newLlamaCppClient(baseURL, model, timeout)}
}

func (e *LlamaCppEmbedder) EmbedOne(ctx context.Context, text string) []float32 {
	text = strings.TrimSpace(text)
	if text == "" {
		slog.Warn("empty text provided for embedding")
		return nil
	}

	body, err := e.postJSON(ctx, "/embedding", map[string]string{"content": text})
	if err != nil {
		slog.Error("error generating llama.cpp embedding", "error", err)
		return nil
	}

	// llama-server returns either {"embedding":[...]} or a one-element array
	// of that object depending on version.
	var single struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(body, &single); err == nil && len(single.Embedding) > 0 {
		return single.Embedding
	}
	var many []struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(body, &many); err == nil && len(many) > 0 && len(many[0].Embedding) > 0 {
		return many[0].Embedding
	}

	slog.Error("no embedding returned from llama.cpp")
	return nil
}

func (e *LlamaCppEmbedder) EmbedMany(ctx context.Context, texts []string, batchSize int) [][]float32 {
	return embedBatches(ctx, texts, batchSize, e.EmbedOne)
}

func (e *LlamaCppEmbedder) Dimension(ctx context.Context) int {
	return probeDimension(ctx, e)
}

func (e *LlamaCppEmbedder) ModelName() string { return e.model }

// LlamaCppChat generates answers through llama-server's /completion endpoint.
type LlamaCppChat struct {
	llamaCppClient
	maxTokens int
}

func NewLlamaCppChat(baseURL, model string, timeout time.Duration) *LlamaCppChat {
	return &LlamaCppChat{
		llamaCppClient: newLlamaCppClient(baseURL, model, timeout),
		maxTokens:      2048,
	}
}

type llamaCppCompletionRequest struct {
	Prompt      string   `json:"prompt"`
	NPredict    int      `json:"n_predict"`
	Temperature float64  `json:"temperature"`
	TopP        float64  `json:"top_p"`
	Stop        []string `json:"stop"`
}

type llamaCppCompletionResponse struct {
	Content string `json:"content"`
}

func (c *LlamaCppChat) Generate(ctx context.Context, question string, matches []types.RetrievedMatch, history []types.ConversationTurn) types.ChatResponse {
	start := time.Now()
	defer func() {
		slog.Info("llama.cpp generation finished", "took", time.Since(start))
	}()

	prompt := BuildPrompt(question, FormatContext(matches), history)

	body, err := c.postJSON(ctx, "/completion", llamaCppCompletionRequest{
		Prompt:      prompt,
		NPredict:    c.maxTokens,
		Temperature: 0.7,
		TopP:        0.9,
		Stop:        []string{"Human:", "User:"},
	})
	if err != nil {
		slog.Error("error generating llama.cpp response", "error", err)
		return errorResponse(question, err)
	}

	var resp llamaCppCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		slog.Error("failed to unmarshal completion response", "error", err)
		return errorResponse(question, err)
	}

	return types.ChatResponse{
		Question:    question,
		Answer:      strings.TrimSpace(resp.Content),
		Sources:     ExtractSources(matches),
		Model:       c.model,
		ContextUsed: len(matches),
		Error:       false,
	}
}

func (c *LlamaCppChat) ModelName() string { return c.model }
