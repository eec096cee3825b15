package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shridharia/ia-chatbot/internal/chat"
	"github.com/shridharia/ia-chatbot/internal/embedder"
	"github.com/shridharia/ia-chatbot/internal/generator"
	"github.com/shridharia/ia-chatbot/internal/logging"
	"github.com/shridharia/ia-chatbot/internal/rag"
)

// NewAskCmd constructs the `iachat ask` command, which answers a single
// question from the terminal using the same pipeline as the HTTP API.
// Useful for smoke-testing the knowledge base after an ingest run.
func NewAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a one-shot question against the knowledge base",
		Long: `Ask a single question and print the answer with its sources.

This runs the exact pipeline the website widget uses: retrieve relevant
page chunks, assemble the prompt, and generate the answer.

Examples:
  iachat ask "what does Impact Analytics do?"
  iachat ask "which products help with markdown optimization?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("ask: failed to initialise embedder: %w", err)
			}

			store, _, err := buildVectorStore(ctx, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer store.Close()

			retriever, err := rag.NewRetriever(emb, store, nil)
			if err != nil {
				return fmt.Errorf("ask: failed to create retriever: %w", err)
			}

			engine, err := chat.NewEngine(retriever, generator.NewFromEnv(), "")
			if err != nil {
				return fmt.Errorf("ask: failed to create chat engine: %w", err)
			}

			answer, err := engine.Answer(ctx, []chat.Turn{
				{Role: chat.RoleUser, Content: args[0]},
			})
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			fmt.Println(answer.Text)
			if len(answer.Sources) > 0 {
				fmt.Println("\nSources:")
				for _, src := range answer.Sources {
					fmt.Printf("  - %s (%s)\n", src.Title, src.URL)
				}
			}
			return nil
		},
	}

	return cmd
}
