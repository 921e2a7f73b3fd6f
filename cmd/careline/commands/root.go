// Package commands defines all Cobra CLI commands for the careline binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/careline/careline/internal/audit"
	"github.com/careline/careline/internal/config"
	"github.com/careline/careline/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// cfg is the resolved configuration, populated by the root command's
// PersistentPreRunE before any subcommand runs.
var cfg *config.Config

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "careline",
		Short: "Careline — AI customer-support assistant with a managed knowledge base",
		Long: `Careline is a customer-support assistant powered by LLMs.

It answers customer questions from an ingested knowledge base, asks for
clarification when a request is ambiguous, and drafts reply suggestions
for human agents taking over a conversation.

Model provider is selected via the YAML config file (~/.careline/config.yaml)
or environment variables (env vars always override file values).
See 'careline --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Load YAML config (env vars always override YAML values).
			loaded, path, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded

			log := logging.New(cfg.Logging.Level, cfg.Logging.Format)

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), path)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.careline/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewIngestCmd(),
		NewAskCmd(),
		NewVersionCmd(),
	)

	return root
}
