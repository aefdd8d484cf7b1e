package model

import (
	"strings"
	"testing"
	"unicode/utf8"

	"docai/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatContextEmpty(t *testing.T) {
	assert.Equal(t, "No relevant documents found.", FormatContext(nil))
	assert.Equal(t, "No relevant documents found.", FormatContext([]types.RetrievedMatch{}))
}

func TestFormatContextNumbersDocuments(t *testing.T) {
	matches := []types.RetrievedMatch{
		{Content: "first match content", Source: "a.pdf", Position: 3},
		{Content: "second match content", Source: "b.txt"},
	}

	context := FormatContext(matches)

	assert.Contains(t, context, "Document 1:\nSource: a.pdf (Page 3)\nContent: first match content")
	assert.Contains(t, context, "Document 2:\nSource: b.txt\nContent: second match content")
}

func TestFormatContextOmitsPageForZeroPosition(t *testing.T) {
	context := FormatContext([]types.RetrievedMatch{
		{Content: "content", Source: "notes.txt", Position: 0},
	})
	assert.NotContains(t, context, "Page")
}

func TestBuildPromptStructure(t *testing.T) {
	prompt := BuildPrompt("what is this?", "some context", nil)

	assert.Contains(t, prompt, "--- Document Context ---")
	assert.Contains(t, prompt, "some context")
	assert.Contains(t, prompt, "--- Question ---")
	assert.Contains(t, prompt, "Human: what is this?")
	assert.True(t, strings.HasSuffix(prompt, "Assistant:"))
	assert.NotContains(t, prompt, "--- Previous Conversation ---")
}

func TestBuildPromptIncludesHistory(t *testing.T) {
	history := []types.ConversationTurn{
		{Question: "earlier question", Answer: "earlier answer"},
	}

	prompt := BuildPrompt("follow-up", "ctx", history)

	assert.Contains(t, prompt, "--- Previous Conversation ---")
	assert.Contains(t, prompt, "Human: earlier question")
	assert.Contains(t, prompt, "Assistant: earlier answer")
}

func TestBuildPromptLimitsHistory(t *testing.T) {
	var history []types.ConversationTurn
	for _, q := range []string{"q1", "q2", "q3", "q4", "q5", "q6", "q7"} {
		history = append(history, types.ConversationTurn{Question: q, Answer: "a"})
	}

	prompt := BuildPrompt("latest", "ctx", history)

	// Only the last five turns make it into the prompt.
	assert.NotContains(t, prompt, "Human: q1")
	assert.NotContains(t, prompt, "Human: q2")
	assert.Contains(t, prompt, "Human: q3")
	assert.Contains(t, prompt, "Human: q7")
}

func TestExtractSources(t *testing.T) {
	long := strings.Repeat("x", 250)
	matches := []types.RetrievedMatch{
		{Content: "short content", Source: "a.txt", Position: 1, Score: 0.9},
		{Content: long, Source: "b.pdf", Position: 7, Score: 0.4},
	}

	sources := ExtractSources(matches)

	require.Len(t, sources, 2)
	assert.Equal(t, "short content", sources[0].ContentPreview)
	assert.Equal(t, 0.9, sources[0].Score)
	assert.Len(t, sources[1].ContentPreview, 203)
	assert.True(t, strings.HasSuffix(sources[1].ContentPreview, "..."))
	assert.Equal(t, 7, sources[1].Position)
}

func TestExtractSourcesMultiByteContentStaysValidUTF8(t *testing.T) {
	long := strings.Repeat("ü", 250) // 250 runes, 500 bytes

	sources := ExtractSources([]types.RetrievedMatch{
		{Content: long, Source: "umlauts.txt"},
	})

	require.Len(t, sources, 1)
	preview := sources[0].ContentPreview
	assert.True(t, utf8.ValidString(preview))
	assert.Equal(t, 203, utf8.RuneCountInString(preview))
	assert.True(t, strings.HasSuffix(preview, "..."))
}

func TestExtractSourcesEmpty(t *testing.T) {
	sources := ExtractSources(nil)
	assert.NotNil(t, sources)
	assert.Empty(t, sources)
}
