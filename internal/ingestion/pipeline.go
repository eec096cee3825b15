// Package ingestion implements the knowledge-base build pipeline.
// It reads website page exports, normalizes and chunks the content, embeds
// each chunk, and upserts the results into the vector store. The pipeline is
// invoked by the `iachat ingest` CLI command.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/shridharia/ia-chatbot/internal/chunker"
	"github.com/shridharia/ia-chatbot/internal/logging"
	"github.com/shridharia/ia-chatbot/internal/rag"
)

// Record is one page of website content to be ingested.
type Record struct {
	// URL is the live page URL, used for attribution and chunk identity.
	URL string

	// RawText is the page's exported text content. May carry escaped HTML
	// entities from the export step.
	RawText string
}

// Report summarizes an ingestion run.
type Report struct {
	// PagesIngested counts records that produced at least one stored chunk.
	PagesIngested int

	// ChunksWritten counts chunks upserted into the store.
	ChunksWritten int

	// RowsSkipped counts records dropped for missing a URL or content.
	RowsSkipped int

	// ChunksFailed counts chunks dropped because embedding or the store
	// upsert failed.
	ChunksFailed int
}

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// ChunkSize is the maximum number of characters per chunk.
	// Defaults to chunker.DefaultSize if zero.
	ChunkSize int

	// ChunkOverlap is the number of characters shared between consecutive
	// chunks. Defaults to chunker.DefaultOverlap if zero.
	ChunkOverlap int
}

// Pipeline orchestrates the read → normalize → chunk → embed → upsert flow.
type Pipeline struct {
	// embedder converts text chunks into dense vector embeddings.
	embedder rag.Embedder

	// store persists the embedded chunks.
	store rag.VectorStore

	// cfg holds the resolved pipeline configuration.
	cfg *Config
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(embedder rag.Embedder, store rag.VectorStore, cfg *Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("ingestion: store must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = chunker.DefaultSize
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = chunker.DefaultOverlap
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("ingestion: chunk overlap %d must be smaller than chunk size %d", cfg.ChunkOverlap, cfg.ChunkSize)
	}

	return &Pipeline{
		embedder: embedder,
		store:    store,
		cfg:      cfg,
	}, nil
}

// Ingest rebuilds the knowledge base from the given records. The store is
// cleared first so removed pages do not linger, then records are processed
// sequentially. Rows without a URL or content are skipped and counted.
// Embedding and upsert failures drop only the affected chunks with a warning;
// the run always continues with the next chunk or record. Only a failed
// initial Clear aborts, since nothing has been ingested at that point.
func (p *Pipeline) Ingest(ctx context.Context, records []Record) (*Report, error) {
	log := logging.FromContext(ctx)

	if err := p.store.Clear(ctx); err != nil {
		return nil, fmt.Errorf("ingestion: clearing store: %w", err)
	}

	report := &Report{}
	for _, rec := range records {
		if strings.TrimSpace(rec.URL) == "" || strings.TrimSpace(rec.RawText) == "" {
			report.RowsSkipped++
			continue
		}

		written, failed := p.ingestRecord(ctx, log, rec)
		report.ChunksWritten += written
		report.ChunksFailed += failed
		if written > 0 {
			report.PagesIngested++
		}
	}

	log.Info("ingestion complete",
		slog.Int("pages", report.PagesIngested),
		slog.Int("chunks", report.ChunksWritten),
		slog.Int("skipped_rows", report.RowsSkipped),
		slog.Int("failed_chunks", report.ChunksFailed))
	return report, nil
}

// ingestRecord normalizes, chunks, embeds, and stores a single page. Chunks
// whose embedding or upsert failed are counted in failed; the rest are
// written. Never aborts the run.
func (p *Pipeline) ingestRecord(ctx context.Context, log *slog.Logger, rec Record) (written, failed int) {
	text := Normalize(rec.RawText)
	title := DeriveTitle(text, rec.URL)

	chunks, err := chunker.Split(text, p.cfg.ChunkSize, p.cfg.ChunkOverlap)
	if err != nil {
		// Parameters were validated in NewPipeline; this cannot happen.
		log.Warn("chunking failed, skipping page",
			slog.String("url", rec.URL),
			slog.String("error", err.Error()))
		return 0, 0
	}
	if len(chunks) == 0 {
		return 0, 0
	}

	embeddings, failed := p.embedChunks(ctx, log, rec.URL, chunks)

	docs := make([]rag.Document, 0, len(chunks))
	vectors := make([][]float32, 0, len(chunks))
	for i, chunk := range chunks {
		if embeddings[i] == nil {
			continue
		}
		docs = append(docs, rag.Document{
			ID:      ChunkID(rec.URL, i),
			Content: chunk,
			URL:     rec.URL,
			Title:   title,
			Metadata: map[string]string{
				"chunk_index": fmt.Sprintf("%d", i),
			},
		})
		vectors = append(vectors, embeddings[i])
	}
	if len(docs) == 0 {
		return 0, failed
	}

	if err := p.store.Upsert(ctx, docs, vectors); err != nil {
		log.Warn("upsert failed, skipping page",
			slog.String("url", rec.URL),
			slog.Int("chunks", len(docs)),
			slog.String("error", err.Error()))
		return 0, failed + len(docs)
	}

	log.Debug("page ingested", slog.String("url", rec.URL), slog.Int("chunks", len(docs)))
	return len(docs), failed
}

// embedChunks embeds a page's chunks, preferring one batch call. If the batch
// fails or comes back malformed it falls back to embedding chunk by chunk, so
// one poisoned chunk costs only itself. The returned slice is parallel to
// chunks with nil entries for chunks whose embedding failed.
func (p *Pipeline) embedChunks(ctx context.Context, log *slog.Logger, url string, chunks []string) ([][]float32, int) {
	embeddings, err := p.embedder.EmbedBatch(ctx, chunks)
	if err == nil && len(embeddings) == len(chunks) {
		return embeddings, 0
	}
	if err != nil {
		log.Warn("batch embedding failed, retrying chunk by chunk",
			slog.String("url", url),
			slog.Int("chunks", len(chunks)),
			slog.String("error", err.Error()))
	} else {
		log.Warn("batch embedding count mismatch, retrying chunk by chunk",
			slog.String("url", url),
			slog.Int("chunks", len(chunks)),
			slog.Int("embeddings", len(embeddings)))
	}

	failed := 0
	out := make([][]float32, len(chunks))
	for i, chunk := range chunks {
		vec, err := p.embedder.Embed(ctx, chunk)
		if err != nil {
			failed++
			log.Warn("embedding failed, skipping chunk",
				slog.String("url", url),
				slog.Int("chunk_index", i),
				slog.String("error", err.Error()))
			continue
		}
		out[i] = vec
	}
	return out, failed
}

// ChunkID derives a deterministic UUID for a chunk from its page URL and
// position, so re-ingesting the same page overwrites rather than duplicates.
func ChunkID(pageURL string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s#%d", pageURL, index))).String()
}
