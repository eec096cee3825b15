// Package rag defines the interfaces and data types for the
// retrieval-augmented answer pipeline: embedding, vector storage, and
// document retrieval. Concrete implementations (Qdrant, in-memory, the
// embedding HTTP adapters) satisfy these interfaces so the chat layer never
// depends on a specific backend.
package rag

import (
	"context"
	"errors"
)

// ErrEmbedding indicates a failed call to the remote embedding service.
// At query time the retriever absorbs it and degrades to empty context; at
// ingestion time the affected chunk is skipped and the run continues.
var ErrEmbedding = errors.New("rag: embedding service error")

// ErrStoreUnavailable indicates the vector store could not be reached or the
// operation failed. Query-time search degrades to empty results; ingestion
// logs the failure per record and continues.
var ErrStoreUnavailable = errors.New("rag: vector store unavailable")

// Document is one chunk of website content, both in its persisted form and
// as a similarity-search result.
type Document struct {
	// ID is the stable unique identifier of this chunk. Derived
	// deterministically from the source URL and chunk index so that
	// re-upserting the same chunk overwrites rather than duplicates.
	ID string

	// Content is the chunk text.
	Content string

	// URL is the source page the chunk was extracted from.
	URL string

	// Title is the page title derived from the leading text of the page.
	Title string

	// Metadata holds arbitrary provenance key-value pairs (e.g. source: "csv").
	Metadata map[string]string

	// Score is the cosine similarity assigned during retrieval, in [-1, 1].
	// Zero value means the score was not computed (e.g. at ingestion time).
	Score float32
}

// Embedder converts text into fixed-length dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a single text into its embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts a batch of texts into their embeddings.
	// The returned slice is parallel to the input slice.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore persists embedded documents and serves similarity queries.
// Implementations must be safe to call from multiple goroutines; the query
// path is read-only, ingestion is an exclusive writer by convention.
type VectorStore interface {
	// Upsert stores or updates a batch of documents with their pre-computed
	// embeddings. The embeddings slice must be parallel to docs. Upserting
	// an existing ID replaces the stored entry (idempotent by identifier).
	Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error

	// Search returns the documents most similar to queryEmbedding, ordered by
	// descending cosine similarity, filtered to Score >= threshold and
	// truncated to limit. Ties keep insertion order.
	Search(ctx context.Context, queryEmbedding []float32, threshold float32, limit int) ([]Document, error)

	// Clear removes every stored document. Called at the start of a full
	// re-ingestion. Destructive and non-transactional: a crash mid-ingestion
	// leaves the store partially populated until the next full run.
	Clear(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
