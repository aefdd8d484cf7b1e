package rag

import "errors"

// Ingestion pipeline failures, one per stage. They surface as the error
// string of a failed IngestResult, never as a Go error across the public
// boundary.
var (
	ErrEmptyDocument   = errors.New("failed to extract text from document")
	ErrNoContent       = errors.New("no content chunks created from document")
	ErrEmbeddingFailed = errors.New("failed to generate embeddings for document")
	ErrStorageFailed   = errors.New("failed to store document in vector database")
)
