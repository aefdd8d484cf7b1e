package model

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"docai/types"

	"github.com/pkoukk/tiktoken-go"
)

const systemPrompt = `You are a helpful AI assistant that answers questions based on the provided document context.
Follow these guidelines:
1. Answer questions using only the information from the provided context
2. If the context doesn't contain enough information to answer the question, say so
3. Be concise but comprehensive in your responses
4. Cite specific parts of the context when relevant
5. If asked about something not in the context, politely explain that the information is not available in the provided documents`

// noContextSentinel is rendered instead of a context block when retrieval
// produced nothing.
const noContextSentinel = "No relevant documents found."

// maxHistoryTurns bounds how much conversation history goes into a prompt.
const maxHistoryTurns = 5

// FormatContext renders retrieved matches into the context block fed to the
// model. Each match becomes a numbered document with its source attribution.
func FormatContext(matches []types.RetrievedMatch) string {
	if len(matches) == 0 {
		return noContextSentinel
	}

	parts := make([]string, 0, len(matches))
	for i, m := range matches {
		part := fmt.Sprintf("Document %d:\nSource: %s", i+1, m.Source)
		if m.Position > 0 {
			part += fmt.Sprintf(" (Page %d)", m.Position)
		}
		part += fmt.Sprintf("\nContent: %s\n", strings.TrimSpace(m.Content))
		parts = append(parts, part)
	}
	return strings.Join(parts, "\n")
}

// BuildPrompt assembles the full completion prompt: system instruction,
// at most the last maxHistoryTurns turns, the context block and the question.
func BuildPrompt(question, context string, history []types.ConversationTurn) string {
	parts := []string{systemPrompt}

	if len(history) > 0 {
		if len(history) > maxHistoryTurns {
			history = history[len(history)-maxHistoryTurns:]
		}
		parts = append(parts, "\n--- Previous Conversation ---")
		for _, turn := range history {
			parts = append(parts, "Human: "+turn.Question)
			parts = append(parts, "Assistant: "+turn.Answer)
		}
	}

	parts = append(parts,
		"\n--- Document Context ---",
		context,
		"\n--- Question ---",
		"Human: "+question,
		"Assistant:")

	prompt := strings.Join(parts, "\n")

	if n, err := CountTokens(prompt); err == nil {
		slog.Debug("prompt assembled", "tokens", n, "history_turns", len(history))
	}

	return prompt
}

// ExtractSources converts retrieved matches into answer attributions with a
// short content preview.
func ExtractSources(matches []types.RetrievedMatch) []types.Source {
	sources := make([]types.Source, 0, len(matches))
	for _, m := range matches {
		preview := m.Content
		// Truncate on a rune boundary so multi-byte content stays valid UTF-8.
		if utf8.RuneCountInString(preview) > 200 {
			runes := []rune(preview)
			preview = string(runes[:200]) + "..."
		}
		sources = append(sources, types.Source{
			Source:         m.Source,
			Position:       m.Position,
			Score:          m.Score,
			ContentPreview: preview,
		})
	}
	return sources
}

// CountTokens measures prompt size with a tokenizer compatible with most
// chat models. Used for logging and diagnostics, not for truncation.
func CountTokens(text string) (int, error) {
	enc, err := tiktoken.EncodingForModel("gpt-3.5-turbo")
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}
