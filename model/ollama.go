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

// ollamaClient is the shared transport for the local Ollama model server.
type ollamaClient struct {
	baseURL string
	model   string
	client  *http.Client
}

func newOllamaClient(baseURL, model string, timeout time.Duration) ollamaClient {
	return ollamaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

func (o *ollamaClient) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error: status %d, body: %s", resp.StatusCode, string(b))
	}

	return io.ReadAll(resp.Body)
}

// IsAvailable reports whether the configured model is present in the local
// Ollama registry.
func (o *ollamaClient) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := o.client.Do(req)
	if err != nil {
		slog.Error("ollama availability check failed", "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return false
	}
	for _, m := range tags.Models {
		if m.Name == o.model {
			return true
		}
	}
	return false
}

// EnsureAvailable pulls the model when it is missing locally.
func (o *ollamaClient) EnsureAvailable(ctx context.Context) bool {
	if o.IsAvailable(ctx) {
		return true
	}
	slog.Info("pulling ollama model", "model", o.model)
	_, err := o.postJSON(ctx, "/api/pull", map[string]string{"name": o.model})
	if err != nil {
		slog.Error("failed to pull ollama model", "model", o.model, "error", err)
		return false
	}
	return true
}

// OllamaEmbedder generates embeddings through a local Ollama server.
type OllamaEmbedder struct {
	ollamaClient
}

func NewOllamaEmbedder(baseURL, model string, timeout time.Duration) *OllamaEmbedder {
	return &OllamaEmbedder{newOllamaClient(baseURL, model, timeout)}
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (e *OllamaEmbedder) EmbedOne(ctx context.Context, text string) []float32 {
	text = strings.TrimSpace(text)
	if text == "" {
		slog.Warn("empty text provided for embedding")
		return nil
	}

	body, err := e.postJSON(ctx, "/api/embeddings", ollamaEmbeddingRequest{
		Model:  e.model,
		Prompt: text,
	})
	if err != nil {
		slog.Error("error generating embedding", "error", err)
		return nil
	}

	var resp ollamaEmbeddingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		slog.Error("failed to unmarshal embedding response", "error", err)
		return nil
	}
	if len(resp.Embedding) == 0 {
		slog.Error("no embedding returned from ollama")
		return nil
	}
	return resp.Embedding
}

func (e *OllamaEmbedder) EmbedMany(ctx context.Context, texts []string, batchSize int) [][]float32 {
	return embedBatches(ctx, texts, batchSize, e.EmbedOne)
}

func (e *OllamaEmbedder) Dimension(ctx context.Context) int {
	return probeDimension(ctx, e)
}

func (e *OllamaEmbedder) ModelName() string { return e.model }

// OllamaChat generates answers through a local Ollama server.
type OllamaChat struct {
	ollamaClient
	maxTokens int
}

func NewOllamaChat(baseURL, model string, timeout time.Duration) *OllamaChat {
	return &OllamaChat{
		ollamaClient: newOllamaClient(baseURL, model, timeout),
		maxTokens:    2048,
	}
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (c *OllamaChat) generateOptions() map[string]any {
	return map[string]any{
		"num_predict": c.maxTokens,
		"temperature": 0.7,
		"top_p":       0.9,
		"stop":        []string{"Human:", "User:"},
	}
}

func (c *OllamaChat) Generate(ctx context.Context, question string, matches []types.RetrievedMatch, history []types.ConversationTurn) types.ChatResponse {
	start := time.Now()
	defer func() {
		slog.Info("ollama generation finished", "took", time.Since(start))
	}()

	prompt := BuildPrompt(question, FormatContext(matches), history)

	body, err := c.postJSON(ctx, "/api/generate", ollamaGenerateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  false,
		Options: c.generateOptions(),
	})
	if err != nil {
		slog.Error("error generating response", "error", err)
		return errorResponse(question, err)
	}

	var resp ollamaGenerateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		slog.Error("failed to unmarshal generate response", "error", err)
		return errorResponse(question, err)
	}

	return types.ChatResponse{
		Question:    question,
		Answer:      strings.TrimSpace(resp.Response),
		Sources:     ExtractSources(matches),
		Model:       c.model,
		ContextUsed: len(matches),
		Error:       false,
	}
}

// GenerateStream emits the answer incrementally by decoding Ollama's
// newline-delimited JSON stream.
func (c *OllamaChat) GenerateStream(ctx context.Context, question string, matches []types.RetrievedMatch, history []types.ConversationTurn) <-chan types.StreamEvent {
	events := make(chan types.StreamEvent)

	go func() {
		defer close(events)

		prompt := BuildPrompt(question, FormatContext(matches), history)

		payload, err := json.Marshal(ollamaGenerateRequest{
			Model:   c.model,
			Prompt:  prompt,
			Stream:  true,
			Options: c.generateOptions(),
		})
		if err != nil {
			events <- streamError(question, err)
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewBuffer(payload))
		if err != nil {
			events <- streamError(question, err)
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			events <- streamError(question, err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			events <- streamError(question, fmt.Errorf("ollama API error: status %d, body: %s", resp.StatusCode, string(b)))
			return
		}

		var accumulated strings.Builder
		decoder := json.NewDecoder(resp.Body)
		for {
			var chunk ollamaGenerateResponse
			if err := decoder.Decode(&chunk); err == io.EOF {
				break
			} else if err != nil {
				events <- streamError(question, err)
				return
			}

			if chunk.Response != "" {
				accumulated.WriteString(chunk.Response)
				events <- types.StreamEvent{
					Type:        "chunk",
					Content:     chunk.Response,
					Accumulated: accumulated.String(),
				}
			}

			if chunk.Done {
				events <- types.StreamEvent{
					Type:        "complete",
					Question:    question,
					Answer:      accumulated.String(),
					Sources:     ExtractSources(matches),
					Model:       c.model,
					ContextUsed: len(matches),
				}
				return
			}
		}
	}()

	return events
}

func (c *OllamaChat) ModelName() string { return c.model }

func streamError(question string, err error) types.StreamEvent {
	return types.StreamEvent{
		Type:     "error",
		Question: question,
		Answer:   fmt.Sprintf("I'm sorry, I encountered an error: %v", err),
		Sources:  []types.Source{},
		Error:    true,
	}
}
