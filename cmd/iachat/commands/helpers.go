package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/shridharia/ia-chatbot/internal/embedder"
	"github.com/shridharia/ia-chatbot/internal/rag"
	"github.com/shridharia/ia-chatbot/internal/server"
)

// buildVectorStore constructs the vector store selected by the VECTOR_STORE
// environment variable: "qdrant" (default) or "memory" for local development
// without a running Qdrant. The returned pingers feed GET /api/ready; the
// in-memory store needs none.
func buildVectorStore(ctx context.Context, log *slog.Logger) (rag.VectorStore, []server.Pinger, error) {
	kind := getEnvOrDefault("VECTOR_STORE", "qdrant")
	switch kind {
	case "memory":
		log.Info("vector store: in-memory (knowledge base is lost on exit)")
		return rag.NewMemoryStore(), nil, nil

	case "qdrant":
		host := getEnvOrDefault("QDRANT_HOST", "localhost")
		port := getEnvInt("QDRANT_PORT", 6334)
		collection := getEnvOrDefault("QDRANT_COLLECTION", "ia-website")
		embBackend := getEnvOrDefault("EMBEDDING_PROVIDER", "openai")
		vectorSize := uint64(embedder.DefaultDimensions(embBackend)) //nolint:gosec // dimensions are bounded

		store, err := rag.NewQdrantStore(ctx, &rag.QdrantConfig{
			Host:       host,
			Port:       port,
			Collection: collection,
			VectorSize: vectorSize,
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			UseTLS:     os.Getenv("QDRANT_TLS") == "true",
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
		}
		log.Info("qdrant store ready",
			slog.String("host", host),
			slog.Int("port", port),
			slog.String("collection", collection))

		return store, []server.Pinger{server.NewQdrantPinger(store.Client())}, nil

	default:
		return nil, nil, fmt.Errorf("unknown VECTOR_STORE %q, valid values: qdrant, memory", kind)
	}
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvFloat returns the float value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
