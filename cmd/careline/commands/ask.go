package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/careline/careline/internal/embedding"
	"github.com/careline/careline/internal/engine"
	"github.com/careline/careline/internal/logging"
	"github.com/careline/careline/internal/provider"
	"github.com/careline/careline/internal/retrieval"
	"github.com/careline/careline/internal/store"
)

// NewAskCmd constructs the `careline ask` command, which answers a single
// question from the knowledge base without persisting a conversation.
func NewAskCmd() *cobra.Command {
	var showSources bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a one-off question against the knowledge base",
		Long: `Ask a single question and print the assistant's answer.

The question runs through the same pipeline as the chat API (intent check,
retrieval, response generation) but nothing is stored.

Examples:
  careline ask "what is the refund window for annual plans?"
  careline ask --sources "how do I reset my password?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New(cfg.Logging.Level, cfg.Logging.Format)
			ctx = logging.WithLogger(ctx, log)

			st, err := store.Open(cfg.Store.DBPath)
			if err != nil {
				return fmt.Errorf("ask: failed to open store: %w", err)
			}
			defer func() { _ = st.Close() }()

			chatModel, err := provider.New(ctx, provider.FromLLMConfig(&cfg.LLM))
			if err != nil {
				return fmt.Errorf("ask: failed to initialise model provider: %w", err)
			}

			embedder, err := embedding.New(&cfg.Embedding, log)
			if err != nil {
				return fmt.Errorf("ask: failed to initialise embedder: %w", err)
			}

			retriever := retrieval.NewEngine(st, embedder,
				cfg.Retrieval.QAThreshold, cfg.Retrieval.QAMargin, cfg.Retrieval.VectorTopK)
			eng := engine.New(chatModel, retriever, log)

			reply, err := eng.ProcessQuery(ctx, args[0], nil)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			fmt.Println(reply.Content)
			if showSources && len(reply.Sources) > 0 {
				fmt.Println("\nSources:")
				for _, src := range reply.Sources {
					fmt.Printf("  [%s] %.3f %s\n", src.Type, src.Score, src.DocumentID)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showSources, "sources", false, "Print the retrieved sources after the answer")

	return cmd
}
