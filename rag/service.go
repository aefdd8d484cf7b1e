// Package rag composes the document parser, embedding provider, vector store,
// conversation store and LLM provider into the ingestion and chat pipelines.
package rag

import (
	"context"
	"fmt"
	"log/slog"

	"docai/model"
	"docai/parser"
	"docai/store"
	"docai/types"
)

// embedBatchSize bounds how many chunk embeddings are requested concurrently.
const embedBatchSize = 10

// Service is the RAG orchestrator. It owns no long-lived data itself; the
// provider clients and the vector store are constructed once and shared by
// every in-flight call. Provider selection is fixed at construction.
type Service struct {
	cfg           types.Config
	embedder      model.Embedder
	llm           model.LLMProvider
	vectors       store.VectorStorer
	conversations *ConversationStore
	chunker       *Chunker

	// parse is the document parser collaborator, replaceable in tests.
	parse func(path string) (*types.ParsedDocument, error)
}

// NewService wires the orchestrator from already-constructed collaborators.
func NewService(cfg types.Config, embedder model.Embedder, llm model.LLMProvider, vectors store.VectorStorer) *Service {
	return &Service{
		cfg:           cfg,
		embedder:      embedder,
		llm:           llm,
		vectors:       vectors,
		conversations: NewConversationStore(cfg.MaxHistory),
		chunker:       NewChunker(),
		parse:         parser.Parse,
	}
}

// Initialize prepares the collection and warms up pullable providers. A
// provider that cannot report availability is assumed healthy; one that can
// but is missing its model gets one pull attempt. Only a dead vector store
// makes initialization fail.
func (s *Service) Initialize(ctx context.Context) bool {
	dimension := s.embedder.Dimension(ctx)
	if dimension == 0 {
		slog.Warn("embedding dimension probe failed, using configured size", "size", s.cfg.VectorSize)
		dimension = s.cfg.VectorSize
	}

	if !s.vectors.EnsureCollection(ctx, dimension, false) {
		slog.Error("failed to ensure vector collection", "collection", s.cfg.CollectionName)
		return false
	}
	if !s.vectors.Health(ctx) {
		slog.Error("vector store health check failed")
		return false
	}

	s.warmUp(ctx, s.embedder, "embedding")
	s.warmUp(ctx, s.llm, "llm")

	slog.Info("rag service initialized",
		"llm", s.cfg.LLMProvider, "embedding", s.cfg.EmbeddingProvider, "dimension", dimension)
	return true
}

func (s *Service) warmUp(ctx context.Context, client any, kind string) {
	pullable, ok := client.(model.Pullable)
	if !ok {
		return
	}
	if pullable.IsAvailable(ctx) {
		return
	}
	slog.Warn("model not available, attempting to pull", "client", kind)
	if !pullable.EnsureAvailable(ctx) {
		slog.Warn("model pull failed", "client", kind)
	}
}

// IngestDocument runs the ingestion pipeline: parse, chunk, embed, store.
// Stages run strictly in sequence and earlier side effects are not rolled
// back when a later stage fails, so a StorageFailed result can leave
// previously stored chunks behind.
func (s *Service) IngestDocument(ctx context.Context, path, filename string) (result types.IngestResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic during document ingestion", "filename", filename, "panic", r)
			result = types.IngestResult{Success: false, Error: fmt.Sprintf("processing failed: %v", r)}
		}
	}()

	slog.Info("processing document", "filename", filename)

	parsed, err := s.parse(path)
	if err != nil {
		slog.Error("error parsing document", "filename", filename, "error", err)
		return types.IngestResult{Success: false, Error: err.Error()}
	}
	if parsed == nil || len(parsed.Units) == 0 {
		return types.IngestResult{Success: false, Error: ErrEmptyDocument.Error()}
	}

	chunks := s.chunker.Chunk(parsed, filename)
	if len(chunks) == 0 {
		return types.IngestResult{Success: false, Error: ErrNoContent.Error()}
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	embeddings := s.embedder.EmbedMany(ctx, texts, embedBatchSize)

	embedded := make([]types.Chunk, 0, len(chunks))
	for i := range chunks {
		if embeddings[i] == nil {
			continue
		}
		chunks[i].Embedding = embeddings[i]
		chunks[i].EmbeddingModel = s.embedder.ModelName()
		embedded = append(embedded, chunks[i])
	}
	if len(embedded) == 0 {
		return types.IngestResult{Success: false, Error: ErrEmbeddingFailed.Error()}
	}

	if !s.vectors.Upsert(ctx, embedded) {
		return types.IngestResult{Success: false, Error: ErrStorageFailed.Error()}
	}

	slog.Info("document processed", "filename", filename, "chunks", len(chunks), "embedded", len(embedded))

	return types.IngestResult{
		Success:         true,
		Filename:        filename,
		ChunksProcessed: len(chunks),
		ChunksEmbedded:  len(embedded),
		Metadata:        parsed.Metadata,
	}
}

// Answer runs the chat pipeline: embed the question, retrieve context, load
// history, generate, and record the turn. Failed turns never touch history.
func (s *Service) Answer(ctx context.Context, question, sessionID string, topK int) (resp types.ChatResponse) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic during chat", "session", sessionID, "panic", r)
			resp = types.ChatResponse{
				Question: question,
				Answer:   fmt.Sprintf("I'm sorry, I encountered an error: %v", r),
				Sources:  []types.Source{},
				Error:    true,
			}
		}
	}()

	question, sessionID, topK = s.chatDefaults(question, sessionID, topK)

	queryVector := s.embedder.EmbedOne(ctx, question)
	if queryVector == nil {
		return types.ChatResponse{
			Question: question,
			Answer:   "I'm sorry, I couldn't process your question at the moment.",
			Sources:  []types.Source{},
			Error:    true,
		}
	}

	matches := s.vectors.Search(ctx, queryVector, topK, s.cfg.ScoreThreshold, nil)
	history := s.conversations.History(sessionID)

	response := s.llm.Generate(ctx, question, matches, history)

	if !response.Error {
		s.conversations.Append(sessionID, question, response.Answer)
	}
	return response
}

// AnswerStream is the streaming variant of Answer. Providers without the
// streaming capability fall back to one complete event built from Generate.
// The successful turn is recorded when the terminal event is emitted.
func (s *Service) AnswerStream(ctx context.Context, question, sessionID string, topK int) <-chan types.StreamEvent {
	question, sessionID, topK = s.chatDefaults(question, sessionID, topK)

	events := make(chan types.StreamEvent)
	go func() {
		defer close(events)
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic during streaming chat", "session", sessionID, "panic", r)
			}
		}()

		queryVector := s.embedder.EmbedOne(ctx, question)
		if queryVector == nil {
			events <- types.StreamEvent{
				Type:     "error",
				Question: question,
				Answer:   "I'm sorry, I couldn't process your question at the moment.",
				Sources:  []types.Source{},
				Error:    true,
			}
			return
		}

		matches := s.vectors.Search(ctx, queryVector, topK, s.cfg.ScoreThreshold, nil)
		history := s.conversations.History(sessionID)

		streamer, ok := s.llm.(model.Streamer)
		if !ok {
			response := s.llm.Generate(ctx, question, matches, history)
			if response.Error {
				events <- types.StreamEvent{
					Type:     "error",
					Question: response.Question,
					Answer:   response.Answer,
					Sources:  response.Sources,
					Error:    true,
				}
				return
			}
			s.conversations.Append(sessionID, question, response.Answer)
			events <- types.StreamEvent{
				Type:        "complete",
				Question:    response.Question,
				Answer:      response.Answer,
				Sources:     response.Sources,
				Model:       response.Model,
				ContextUsed: response.ContextUsed,
			}
			return
		}

		for event := range streamer.GenerateStream(ctx, question, matches, history) {
			if event.Type == "complete" {
				s.conversations.Append(sessionID, question, event.Answer)
			}
			events <- event
		}
	}()
	return events
}

func (s *Service) chatDefaults(question, sessionID string, topK int) (string, string, int) {
	if sessionID == "" {
		sessionID = "default"
	}
	if topK <= 0 {
		topK = s.cfg.TopK
	}
	return question, sessionID, topK
}

// Stats reports the state of the similarity collection.
func (s *Service) Stats(ctx context.Context) types.CollectionStats {
	return s.vectors.Stats(ctx)
}

// Health independently checks every component. Providers without the
// availability capability are assumed healthy; the parser is always healthy
// since parsing failures are per-call, not systemic.
func (s *Service) Health(ctx context.Context) types.HealthStatus {
	status := types.HealthStatus{
		RAGService:     true,
		DocumentParser: true,
	}

	status.VectorStore = s.vectors.Health(ctx)
	status.EmbeddingClient = clientHealthy(ctx, s.embedder)
	status.LLMClient = clientHealthy(ctx, s.llm)

	status.OverallHealthy = status.VectorStore &&
		status.EmbeddingClient &&
		status.LLMClient &&
		status.DocumentParser
	return status
}

func clientHealthy(ctx context.Context, client any) bool {
	if pullable, ok := client.(model.Pullable); ok {
		return pullable.IsAvailable(ctx)
	}
	return true
}

// History returns a session's recorded turns.
func (s *Service) History(sessionID string) []types.ConversationTurn {
	return s.conversations.History(sessionID)
}

// ClearHistory drops a session's history.
func (s *Service) ClearHistory(sessionID string) {
	s.conversations.Clear(sessionID)
}

// ClearAllDocuments destroys and recreates the similarity collection.
func (s *Service) ClearAllDocuments(ctx context.Context) bool {
	return s.vectors.Clear(ctx)
}

// DeleteDocuments removes stored chunks by id.
func (s *Service) DeleteDocuments(ctx context.Context, ids []string) bool {
	return s.vectors.Delete(ctx, ids)
}

// DeleteDocumentsBySource removes every chunk ingested from one source file.
func (s *Service) DeleteDocumentsBySource(ctx context.Context, source string) bool {
	return s.vectors.DeleteBySource(ctx, source)
}
