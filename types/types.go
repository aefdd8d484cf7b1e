package types

import (
	"time"
)

// DocumentUnit is one parseable piece of source material produced by the
// parser: a PDF page, a DOCX paragraph or a line of plain text.
type DocumentUnit struct {
	Content  string         `json:"content"`
	Position int            `json:"position,omitempty"` // page/paragraph/line, 0 = unknown
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ParsedDocument is the parser's output for a whole file.
type ParsedDocument struct {
	Units    []DocumentUnit `json:"units"`
	Metadata map[string]any `json:"metadata"`
	FilePath string         `json:"file_path"`
	Format   string         `json:"format"`
}

// Chunk is the atomic unit stored in and retrieved from the vector store.
type Chunk struct {
	ID             string         `json:"id"`
	Content        string         `json:"content"`
	Source         string         `json:"source"`
	Position       int            `json:"position,omitempty"`
	SequenceIndex  int            `json:"sequence_index"`
	Embedding      []float32      `json:"embedding,omitempty"`
	EmbeddingModel string         `json:"embedding_model,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// HasEmbedding reports whether an embedding was attached to the chunk.
func (c *Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// RetrievedMatch is one similarity-search hit. Higher score means more relevant.
type RetrievedMatch struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Source   string         `json:"source"`
	Position int            `json:"position,omitempty"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Source attributes part of an answer to a stored chunk.
type Source struct {
	Source         string  `json:"source"`
	Position       int     `json:"position,omitempty"`
	Score          float64 `json:"score"`
	ContentPreview string  `json:"content_preview,omitempty"`
}

// ChatResponse is the result of one question against the document corpus.
type ChatResponse struct {
	Question    string   `json:"question"`
	Answer      string   `json:"answer"`
	Sources     []Source `json:"sources"`
	Model       string   `json:"model,omitempty"`
	ContextUsed int      `json:"context_used"`
	Error       bool     `json:"error"`
}

// StreamEvent is one element of a streaming chat response. Type is "chunk"
// for incremental content, then exactly one "complete" carrying the final
// ChatResponse fields, or a single "error" instead of the terminal event.
type StreamEvent struct {
	Type        string   `json:"type"`
	Content     string   `json:"content,omitempty"`
	Accumulated string   `json:"accumulated,omitempty"`
	Question    string   `json:"question,omitempty"`
	Answer      string   `json:"answer,omitempty"`
	Sources     []Source `json:"sources,omitempty"`
	Model       string   `json:"model,omitempty"`
	ContextUsed int      `json:"context_used,omitempty"`
	Error       bool     `json:"error,omitempty"`
}

// ConversationTurn is one question/answer pair in a session history.
type ConversationTurn struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}

// IngestResult reports the outcome of processing one document.
type IngestResult struct {
	Success         bool           `json:"success"`
	Filename        string         `json:"filename,omitempty"`
	ChunksProcessed int            `json:"chunks_processed,omitempty"`
	ChunksEmbedded  int            `json:"chunks_embedded,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	Error           string         `json:"error,omitempty"`
}

// CollectionStats describes the state of the similarity collection.
type CollectionStats struct {
	TotalDocuments    int    `json:"total_documents"`
	IndexedDocuments  int    `json:"indexed_documents"`
	CollectionStatus  string `json:"collection_status"`
	VectorStoreHealth bool   `json:"vector_store_health"`
}

// HealthStatus is the aggregated health of all RAG components.
type HealthStatus struct {
	RAGService      bool `json:"rag_service"`
	VectorStore     bool `json:"vector_store"`
	EmbeddingClient bool `json:"embedding_client"`
	LLMClient       bool `json:"llm_client"`
	DocumentParser  bool `json:"document_parser"`
	OverallHealthy  bool `json:"overall_healthy"`
}
