package model

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"docai/types"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder generates embeddings through the hosted OpenAI API.
type OpenAIEmbedder struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewOpenAIEmbedder(apiKey, model string, timeout time.Duration) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable is required")
	}
	return &OpenAIEmbedder{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: timeout,
	}, nil
}

func (e *OpenAIEmbedder) EmbedOne(ctx context.Context, text string) []float32 {
	text = strings.TrimSpace(text)
	if text == "" {
		slog.Warn("empty text provided for embedding")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		slog.Error("error generating openai embedding", "error", err)
		return nil
	}
	if len(resp.Data) == 0 {
		slog.Error("no embedding data returned from openai")
		return nil
	}
	return resp.Data[0].Embedding
}

func (e *OpenAIEmbedder) EmbedMany(ctx context.Context, texts []string, batchSize int) [][]float32 {
	return embedBatches(ctx, texts, batchSize, e.EmbedOne)
}

func (e *OpenAIEmbedder) Dimension(ctx context.Context) int {
	return probeDimension(ctx, e)
}

func (e *OpenAIEmbedder) ModelName() string { return e.model }

// OpenAIChat generates answers through the hosted OpenAI chat API.
type OpenAIChat struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewOpenAIChat(apiKey, model string, timeout time.Duration) (*OpenAIChat, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable is required")
	}
	return &OpenAIChat{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: timeout,
	}, nil
}

func (c *OpenAIChat) Generate(ctx context.Context, question string, matches []types.RetrievedMatch, history []types.ConversationTurn) types.ChatResponse {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
	}

	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	for _, turn := range history {
		messages = append(messages,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: turn.Question},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: turn.Answer},
		)
	}

	if len(matches) > 0 {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: "Here is the relevant context from the documents:\n\n" + FormatContext(matches),
		})
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: question,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   2048,
		Temperature: 0.7,
	})
	if err != nil {
		slog.Error("error generating openai response", "error", err)
		return errorResponse(question, err)
	}
	if len(resp.Choices) == 0 {
		slog.Error("no choices returned from openai")
		return errorResponse(question, errors.New("no completion returned"))
	}

	return types.ChatResponse{
		Question:    question,
		Answer:      strings.TrimSpace(resp.Choices[0].Message.Content),
		Sources:     ExtractSources(matches),
		Model:       c.model,
		ContextUsed: len(matches),
		Error:       false,
	}
}

func (c *OpenAIChat) ModelName() string { return c.model }
