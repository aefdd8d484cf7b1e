package rag

import (
	"context"
	"testing"

	"docai/model"
	"docai/store"
	"docai/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder returns a fixed vector for every text except those listed in
// failOn, which get nil like a real backend failure would.
type stubEmbedder struct {
	failOn map[string]bool
}

func (s *stubEmbedder) EmbedOne(ctx context.Context, text string) []float32 {
	if s.failOn[text] {
		return nil
	}
	return []float32{1, 0.5, 0.25}
}

func (s *stubEmbedder) EmbedMany(ctx context.Context, texts []string, batchSize int) [][]float32 {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = s.EmbedOne(ctx, text)
	}
	return out
}

func (s *stubEmbedder) Dimension(ctx context.Context) int { return 3 }
func (s *stubEmbedder) ModelName() string                 { return "stub-embed" }

type stubLLM struct {
	fail      bool
	lastHist  []types.ConversationTurn
	generated int
}

func (s *stubLLM) Generate(ctx context.Context, question string, matches []types.RetrievedMatch, history []types.ConversationTurn) types.ChatResponse {
	s.generated++
	s.lastHist = history
	if s.fail {
		return types.ChatResponse{
			Question: question,
			Answer:   "I'm sorry, I encountered an error while processing your question: backend down",
			Sources:  []types.Source{},
			Error:    true,
		}
	}
	return types.ChatResponse{
		Question:    question,
		Answer:      "stub answer",
		Sources:     model.ExtractSources(matches),
		Model:       "stub-llm",
		ContextUsed: len(matches),
	}
}

func (s *stubLLM) ModelName() string { return "stub-llm" }

func testConfig() types.Config {
	return types.Config{
		CollectionName: "documents",
		VectorSize:     3,
		MaxHistory:     10,
		TopK:           5,
		ScoreThreshold: 0.1,
	}
}

func newTestService(t *testing.T, embedder model.Embedder, llm model.LLMProvider) (*Service, *store.MemoryStore) {
	t.Helper()
	memory := store.NewMemoryStore()
	svc := NewService(testConfig(), embedder, llm, memory)
	require.True(t, svc.Initialize(context.Background()))
	return svc, memory
}

func parsedDoc(contents ...string) *types.ParsedDocument {
	doc := &types.ParsedDocument{Metadata: map[string]any{"total_lines": len(contents)}}
	for i, c := range contents {
		doc.Units = append(doc.Units, types.DocumentUnit{Content: c, Position: i + 1})
	}
	return doc
}

func TestIngestDocumentSuccess(t *testing.T) {
	svc, memory := newTestService(t, &stubEmbedder{}, &stubLLM{})
	svc.parse = func(path string) (*types.ParsedDocument, error) {
		return parsedDoc(
			"The first paragraph of the test document.",
			"The second paragraph of the test document.",
		), nil
	}

	result := svc.IngestDocument(context.Background(), "/tmp/doc.txt", "doc.txt")

	require.True(t, result.Success)
	assert.Equal(t, "doc.txt", result.Filename)
	assert.Equal(t, 2, result.ChunksProcessed)
	assert.Equal(t, 2, result.ChunksEmbedded)
	assert.Equal(t, 2, memory.Count())
}

func TestIngestDocumentWhitespaceUnitNotCounted(t *testing.T) {
	svc, memory := newTestService(t, &stubEmbedder{}, &stubLLM{})
	svc.parse = func(path string) (*types.ParsedDocument, error) {
		return parsedDoc("A unit with enough content to be stored.", "  "), nil
	}

	result := svc.IngestDocument(context.Background(), "/tmp/doc.txt", "doc.txt")

	require.True(t, result.Success)
	assert.Equal(t, 1, result.ChunksProcessed)
	assert.Equal(t, 1, result.ChunksEmbedded)
	assert.Equal(t, 1, memory.Count())
}

func TestIngestDocumentPartialEmbeddingFailure(t *testing.T) {
	embedder := &stubEmbedder{failOn: map[string]bool{
		"The second paragraph of the test document.": true,
	}}
	svc, memory := newTestService(t, embedder, &stubLLM{})
	svc.parse = func(path string) (*types.ParsedDocument, error) {
		return parsedDoc(
			"The first paragraph of the test document.",
			"The second paragraph of the test document.",
			"The third paragraph of the test document.",
		), nil
	}

	result := svc.IngestDocument(context.Background(), "/tmp/doc.txt", "doc.txt")

	// One failed item never aborts the document; only the failed chunk is
	// missing from the store.
	require.True(t, result.Success)
	assert.Equal(t, 3, result.ChunksProcessed)
	assert.Equal(t, 2, result.ChunksEmbedded)
	assert.Equal(t, 2, memory.Count())
}

func TestIngestDocumentEmpty(t *testing.T) {
	svc, _ := newTestService(t, &stubEmbedder{}, &stubLLM{})
	svc.parse = func(path string) (*types.ParsedDocument, error) {
		return &types.ParsedDocument{}, nil
	}

	result := svc.IngestDocument(context.Background(), "/tmp/doc.txt", "doc.txt")

	require.False(t, result.Success)
	assert.Equal(t, ErrEmptyDocument.Error(), result.Error)
}

func TestIngestDocumentNoSurvivingChunks(t *testing.T) {
	svc, _ := newTestService(t, &stubEmbedder{}, &stubLLM{})
	svc.parse = func(path string) (*types.ParsedDocument, error) {
		return parsedDoc("tiny", "also"), nil
	}

	result := svc.IngestDocument(context.Background(), "/tmp/doc.txt", "doc.txt")

	require.False(t, result.Success)
	assert.Equal(t, ErrNoContent.Error(), result.Error)
}

func TestIngestDocumentAllEmbeddingsFail(t *testing.T) {
	embedder := &stubEmbedder{failOn: map[string]bool{
		"The only paragraph of the test document.": true,
	}}
	svc, memory := newTestService(t, embedder, &stubLLM{})
	svc.parse = func(path string) (*types.ParsedDocument, error) {
		return parsedDoc("The only paragraph of the test document."), nil
	}

	result := svc.IngestDocument(context.Background(), "/tmp/doc.txt", "doc.txt")

	require.False(t, result.Success)
	assert.Equal(t, ErrEmbeddingFailed.Error(), result.Error)
	assert.Equal(t, 0, memory.Count())
}

func TestAnswerSuccessRecordsHistory(t *testing.T) {
	llm := &stubLLM{}
	svc, _ := newTestService(t, &stubEmbedder{}, llm)
	svc.parse = func(path string) (*types.ParsedDocument, error) {
		return parsedDoc("Relevant context for the question at hand."), nil
	}
	require.True(t, svc.IngestDocument(context.Background(), "/tmp/doc.txt", "doc.txt").Success)

	resp := svc.Answer(context.Background(), "what is relevant?", "s1", 0)

	require.False(t, resp.Error)
	assert.Equal(t, "stub answer", resp.Answer)
	assert.Equal(t, 1, resp.ContextUsed)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "doc.txt", resp.Sources[0].Source)

	history := svc.History("s1")
	require.Len(t, history, 1)
	assert.Equal(t, "what is relevant?", history[0].Question)
	assert.Equal(t, "stub answer", history[0].Answer)
}

func TestAnswerEmbeddingFailure(t *testing.T) {
	embedder := &stubEmbedder{failOn: map[string]bool{"broken question": true}}
	llm := &stubLLM{}
	svc, _ := newTestService(t, embedder, llm)

	resp := svc.Answer(context.Background(), "broken question", "s1", 0)

	require.True(t, resp.Error)
	assert.Contains(t, resp.Answer, "couldn't process")
	assert.Equal(t, 0, llm.generated)
	assert.Empty(t, svc.History("s1"))
}

func TestAnswerLLMFailureLeavesHistoryUntouched(t *testing.T) {
	llm := &stubLLM{fail: true}
	svc, _ := newTestService(t, &stubEmbedder{}, llm)

	resp := svc.Answer(context.Background(), "any question", "s1", 0)

	require.True(t, resp.Error)
	assert.Empty(t, svc.History("s1"))
}

func TestAnswerPassesHistoryToLLM(t *testing.T) {
	llm := &stubLLM{}
	svc, _ := newTestService(t, &stubEmbedder{}, llm)

	svc.Answer(context.Background(), "first question", "s1", 0)
	svc.Answer(context.Background(), "second question", "s1", 0)

	require.Len(t, llm.lastHist, 1)
	assert.Equal(t, "first question", llm.lastHist[0].Question)
}

func TestAnswerDefaultsSession(t *testing.T) {
	svc, _ := newTestService(t, &stubEmbedder{}, &stubLLM{})

	resp := svc.Answer(context.Background(), "a question", "", 0)

	require.False(t, resp.Error)
	require.Len(t, svc.History("default"), 1)
}

func TestAnswerStreamFallbackWithoutStreamer(t *testing.T) {
	svc, _ := newTestService(t, &stubEmbedder{}, &stubLLM{})

	var events []types.StreamEvent
	for event := range svc.AnswerStream(context.Background(), "a question", "s1", 0) {
		events = append(events, event)
	}

	require.Len(t, events, 1)
	assert.Equal(t, "complete", events[0].Type)
	assert.Equal(t, "stub answer", events[0].Answer)
	require.Len(t, svc.History("s1"), 1)
}

func TestAnswerStreamEmbeddingFailure(t *testing.T) {
	embedder := &stubEmbedder{failOn: map[string]bool{"broken question": true}}
	svc, _ := newTestService(t, embedder, &stubLLM{})

	var events []types.StreamEvent
	for event := range svc.AnswerStream(context.Background(), "broken question", "s1", 0) {
		events = append(events, event)
	}

	require.Len(t, events, 1)
	assert.Equal(t, "error", events[0].Type)
	assert.True(t, events[0].Error)
	assert.Empty(t, svc.History("s1"))
}

func TestHealthAllComponentsUp(t *testing.T) {
	svc, _ := newTestService(t, &stubEmbedder{}, &stubLLM{})

	status := svc.Health(context.Background())

	assert.True(t, status.RAGService)
	assert.True(t, status.VectorStore)
	// Stub providers expose no availability capability and count as healthy.
	assert.True(t, status.EmbeddingClient)
	assert.True(t, status.LLMClient)
	assert.True(t, status.DocumentParser)
	assert.True(t, status.OverallHealthy)
}

func TestDeleteDocumentsByID(t *testing.T) {
	svc, memory := newTestService(t, &stubEmbedder{}, &stubLLM{})
	svc.parse = func(path string) (*types.ParsedDocument, error) {
		return parsedDoc(
			"The first paragraph of the test document.",
			"The second paragraph of the test document.",
		), nil
	}
	require.True(t, svc.IngestDocument(context.Background(), "/tmp/doc.txt", "doc.txt").Success)
	require.Equal(t, 2, memory.Count())

	matches := memory.Search(context.Background(), []float32{1, 0.5, 0.25}, 1, 0.1, nil)
	require.Len(t, matches, 1)

	require.True(t, svc.DeleteDocuments(context.Background(), []string{matches[0].ID}))
	assert.Equal(t, 1, memory.Count())
}

func TestClearAllDocuments(t *testing.T) {
	svc, memory := newTestService(t, &stubEmbedder{}, &stubLLM{})
	svc.parse = func(path string) (*types.ParsedDocument, error) {
		return parsedDoc("Content that is long enough to store."), nil
	}
	require.True(t, svc.IngestDocument(context.Background(), "/tmp/doc.txt", "doc.txt").Success)
	require.Equal(t, 1, memory.Count())

	require.True(t, svc.ClearAllDocuments(context.Background()))
	assert.Equal(t, 0, memory.Count())
}
