package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/shridharia/ia-chatbot/internal/chat"
	"github.com/shridharia/ia-chatbot/internal/embedder"
	"github.com/shridharia/ia-chatbot/internal/generator"
	"github.com/shridharia/ia-chatbot/internal/logging"
	"github.com/shridharia/ia-chatbot/internal/rag"
	"github.com/shridharia/ia-chatbot/internal/server"
	"github.com/shridharia/ia-chatbot/internal/tracing"
)

// NewServeCmd constructs the `iachat serve` command, which starts the HTTP
// API consumed by the website chat widget.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat widget HTTP API",
		Long: `Start the chat widget HTTP API.

The server is stateless: every request carries the full conversation, so
multiple replicas can run behind a load balancer without coordination.
Retrieval uses the knowledge base built by 'iachat ingest'.

Examples:
  iachat serve
  iachat serve --port 9090
  MODEL_PROVIDER=azure iachat serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			// Flags win over env/YAML; env/YAML win over built-in defaults.
			if !cmd.Flags().Changed("host") {
				host = getEnvOrDefault("SERVER_HOST", host)
			}
			if !cmd.Flags().Changed("port") {
				port = getEnvInt("SERVER_PORT", port)
			}

			log.Info("serve starting", slog.String("provider", getEnvOrDefault("MODEL_PROVIDER", "openai")))

			// Langfuse tracing is opt-in; a no-op when keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("serve: failed to initialise embedder: %w", err)
			}
			log.Info("embedder initialised", slog.String("provider", getEnvOrDefault("EMBEDDING_PROVIDER", "openai")))

			store, pingers, err := buildVectorStore(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer store.Close()

			retriever, err := rag.NewRetriever(emb, store, &rag.RetrieverConfig{
				Threshold: float32(getEnvFloat("RETRIEVAL_THRESHOLD", float64(rag.DefaultThreshold))),
				Limit:     getEnvInt("RETRIEVAL_LIMIT", rag.DefaultLimit),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create retriever: %w", err)
			}

			// The model client is dialled lazily on the first request, so the
			// server comes up even before model credentials are in place.
			gen := generator.NewFromEnv()

			engine, err := chat.NewEngine(retriever, gen, os.Getenv("SYSTEM_INSTRUCTION"))
			if err != nil {
				return fmt.Errorf("serve: failed to create chat engine: %w", err)
			}

			srv, err := server.New(engine, &server.Config{
				Host:          host,
				Port:          port,
				Logger:        log,
				Pingers:       pingers,
				RateLimit:     getEnvFloat("SERVER_RATE_LIMIT", 0),
				RateBurst:     getEnvInt("SERVER_RATE_BURST", 0),
				AllowedOrigin: os.Getenv("SERVER_ALLOWED_ORIGIN"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
