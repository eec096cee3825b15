package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shridharia/ia-chatbot/internal/logging"
)

// Default retrieval tuning. The threshold is on the [-1, 1] cosine scale; 0.3
// keeps loosely related passages while rejecting noise. Both are overridable
// via RetrieverConfig.
const (
	// DefaultThreshold is the minimum similarity for a document to be used.
	DefaultThreshold float32 = 0.3
	// DefaultLimit is the maximum number of documents returned per query.
	DefaultLimit = 5
)

// RetrieverConfig holds the tuning parameters for a Retriever.
type RetrieverConfig struct {
	// Threshold is the minimum cosine similarity for a match (default: 0.3).
	Threshold float32
	// Limit is the maximum number of documents per query (default: 5).
	Limit int
}

// Retriever embeds a user query and fetches the most similar documents from
// the vector store. Retrieval is best-effort: any failure along the way is
// logged and surfaces as an empty result, so the overall answer degrades to
// "no context" instead of failing the request.
type Retriever struct {
	// embedder converts the query text into a vector.
	embedder Embedder

	// store performs the similarity search.
	store VectorStore

	// threshold is the minimum similarity for a match.
	threshold float32

	// limit is the maximum number of documents per query.
	limit int
}

// NewRetriever constructs a Retriever from the given Embedder and VectorStore.
// cfg may be nil, in which case the default threshold and limit apply.
func NewRetriever(embedder Embedder, store VectorStore, cfg *RetrieverConfig) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("rag: store must not be nil")
	}
	if cfg == nil {
		cfg = &RetrieverConfig{}
	}
	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Retriever{
		embedder:  embedder,
		store:     store,
		threshold: threshold,
		limit:     limit,
	}, nil
}

// Retrieve returns the documents most relevant to query, ordered by
// descending similarity. Embedding or search failures are logged and return
// an empty slice, never an error. Callers must treat an empty result as
// "answer without retrieved context".
func (r *Retriever) Retrieve(ctx context.Context, query string) []Document {
	log := logging.FromContext(ctx)

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		log.Warn("retriever: query embedding failed, continuing without context",
			slog.Any("error", err),
		)
		return nil
	}

	docs, err := r.store.Search(ctx, embedding, r.threshold, r.limit)
	if err != nil {
		log.Warn("retriever: similarity search failed, continuing without context",
			slog.Any("error", err),
		)
		return nil
	}

	return docs
}
