// Package commands defines all Cobra CLI commands for the iachat binary.
package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/shridharia/ia-chatbot/internal/audit"
	"github.com/shridharia/ia-chatbot/internal/config"
	"github.com/shridharia/ia-chatbot/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "iachat",
		Short: "Customer-facing chat assistant for the Impact Analytics website",
		Long: `iachat answers visitor questions about Impact Analytics products using
retrieval-augmented generation over the company website content.

The serve command runs the stateless HTTP API consumed by the website
widget; the ingest command rebuilds the knowledge base from a content
export. Model provider is selected via the MODEL_PROVIDER environment
variable or a YAML config file (~/.iachat/config.yaml).
See 'iachat --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Local development convenience; absence of a .env file is fine.
			_ = godotenv.Load()

			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.iachat/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewIngestCmd(),
		NewAskCmd(),
		NewVersionCmd(),
	)

	return root
}
