package model

import (
	"context"
	"fmt"

	"docai/types"
)

// LLMProvider generates grounded answers from a question, retrieved context
// and recent conversation history. Generate never returns a Go error: any
// backend failure is folded into a ChatResponse with Error set and a
// user-safe message, so the orchestrator's history is never corrupted by a
// half-failed turn.
type LLMProvider interface {
	Generate(ctx context.Context, question string, matches []types.RetrievedMatch, history []types.ConversationTurn) types.ChatResponse
	ModelName() string
}

// Streamer is an optional capability for providers that can emit the answer
// incrementally. The channel carries zero or more "chunk" events followed by
// exactly one "complete" event, or a single "error" event instead of the
// terminal one. It is closed after the terminal event.
type Streamer interface {
	GenerateStream(ctx context.Context, question string, matches []types.RetrievedMatch, history []types.ConversationTurn) <-chan types.StreamEvent
}

// NewLLM selects the generation backend from configuration. An unknown
// provider name is a construction-time error.
func NewLLM(cfg types.Config) (LLMProvider, error) {
	switch cfg.LLMProvider {
	case types.ProviderOllama:
		return NewOllamaChat(cfg.OllamaBaseURL, cfg.LLMModel, cfg.LLMTimeout), nil
	case types.ProviderOpenAI:
		return NewOpenAIChat(cfg.OpenAIAPIKey, cfg.LLMModel, cfg.LLMTimeout)
	case types.ProviderLlamaCpp:
		return NewLlamaCppChat(cfg.LlamaCppBaseURL, cfg.LLMModel, cfg.LLMTimeout), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.LLMProvider)
	}
}

// errorResponse builds the user-visible shape of a failed generation.
func errorResponse(question string, err error) types.ChatResponse {
	return types.ChatResponse{
		Question: question,
		Answer:   fmt.Sprintf("I'm sorry, I encountered an error while processing your question: %v", err),
		Sources:  []types.Source{},
		Error:    true,
	}
}
