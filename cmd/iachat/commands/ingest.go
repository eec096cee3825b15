package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shridharia/ia-chatbot/internal/embedder"
	"github.com/shridharia/ia-chatbot/internal/ingestion"
	"github.com/shridharia/ia-chatbot/internal/logging"
)

// NewIngestCmd constructs the `iachat ingest` command, which rebuilds the
// knowledge base from a website content export.
func NewIngestCmd() *cobra.Command {
	var csvPath string
	var sqlitePath string
	var sqliteTable string
	var chunkSize int
	var chunkOverlap int

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Rebuild the knowledge base from a website content export",
		Long: `Rebuild the vector store from exported website content.

The export is either a CMS CSV export (columns "Webflow Live Page URLs" and
"Content") or a SQLite database written by a crawler (columns "url" and
"content"). The store is cleared first, so the knowledge base always mirrors
the latest export exactly.

Required environment variables:
  QDRANT_HOST          Qdrant server hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  QDRANT_COLLECTION    Collection name (default: ia-website)
  QDRANT_API_KEY       Optional API key for authenticated clusters
  EMBEDDING_PROVIDER   Embedding backend: openai, azure, ollama (default: openai)
  EMBEDDING_*          Provider-specific overrides (see README)

Examples:
  iachat ingest --csv website-export.csv
  iachat ingest --sqlite crawl.db
  iachat ingest --sqlite crawl.db --table scraped_pages
  VECTOR_STORE=memory iachat ingest --csv export.csv   # dry run, nothing persists`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if (csvPath == "") == (sqlitePath == "") {
				return fmt.Errorf("ingest: exactly one of --csv or --sqlite is required")
			}

			var records []ingestion.Record
			var err error
			switch {
			case csvPath != "":
				records, err = ingestion.ReadCSVFile(csvPath)
			default:
				records, err = ingestion.ReadSQLite(ctx, sqlitePath, sqliteTable)
			}
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			log.Info("content export loaded", slog.Int("rows", len(records)))

			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("ingest: failed to initialise embedder: %w", err)
			}
			log.Info("embedder initialised", slog.String("provider", getEnvOrDefault("EMBEDDING_PROVIDER", "openai")))

			store, _, err := buildVectorStore(ctx, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer store.Close()

			if !cmd.Flags().Changed("chunk-size") {
				chunkSize = getEnvInt("INGEST_CHUNK_SIZE", chunkSize)
			}
			if !cmd.Flags().Changed("chunk-overlap") {
				chunkOverlap = getEnvInt("INGEST_CHUNK_OVERLAP", chunkOverlap)
			}

			pipeline, err := ingestion.NewPipeline(emb, store, &ingestion.Config{
				ChunkSize:    chunkSize,
				ChunkOverlap: chunkOverlap,
			})
			if err != nil {
				return fmt.Errorf("ingest: failed to create pipeline: %w", err)
			}

			report, err := pipeline.Ingest(ctx, records)
			if err != nil {
				return fmt.Errorf("ingest: pipeline failed: %w", err)
			}

			fmt.Printf("ingested %d pages (%d chunks, %d rows skipped, %d chunks failed)\n",
				report.PagesIngested, report.ChunksWritten, report.RowsSkipped, report.ChunksFailed)
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "Path to the CMS CSV content export")
	cmd.Flags().StringVar(&sqlitePath, "sqlite", "", "Path to a crawler SQLite database")
	cmd.Flags().StringVar(&sqliteTable, "table", "pages", "Table name within the SQLite database")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "Maximum characters per chunk (default 1500)")
	cmd.Flags().IntVar(&chunkOverlap, "chunk-overlap", 0, "Characters shared between consecutive chunks (default 200)")

	return cmd
}
