package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/careline/careline/internal/embedding"
	"github.com/careline/careline/internal/knowledge"
	"github.com/careline/careline/internal/logging"
	"github.com/careline/careline/internal/provider"
	"github.com/careline/careline/internal/store"
)

// NewIngestCmd constructs the `careline ingest` command, which processes a
// local document into chunks and QA pairs and stores them in the knowledge base.
func NewIngestCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Ingest a document into the knowledge base",
		Long: `Ingest a local text or markdown document into the knowledge base.

The document is split into chunks, embedded, and mined for question/answer
pairs. Once ingested, its content is available to the chat and agent-assist
APIs.

Examples:
  careline ingest ./docs/refund-policy.md
  careline ingest --name "Shipping FAQ" ./faq.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New(cfg.Logging.Level, cfg.Logging.Format)
			ctx = logging.WithLogger(ctx, log)

			path := args[0]
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("ingest: read %s: %w", path, err)
			}
			if name == "" {
				name = filepath.Base(path)
			}

			st, err := store.Open(cfg.Store.DBPath)
			if err != nil {
				return fmt.Errorf("ingest: failed to open store: %w", err)
			}
			defer func() { _ = st.Close() }()

			chatModel, err := provider.New(ctx, provider.FromLLMConfig(&cfg.LLM))
			if err != nil {
				return fmt.Errorf("ingest: failed to initialise model provider: %w", err)
			}

			embedder, err := embedding.New(&cfg.Embedding, log)
			if err != nil {
				return fmt.Errorf("ingest: failed to initialise embedder: %w", err)
			}

			synth := knowledge.NewSynthesizer(chatModel, log)
			processor := knowledge.NewProcessor(embedder, synth, cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap, log)
			svc := knowledge.NewService(st, processor, log)

			log.Info("ingesting document", slog.String("name", name), slog.Int("bytes", len(content)))

			doc, err := svc.Ingest(ctx, name, string(content))
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			fmt.Printf("ingested %q (id: %s, chunks: %d, qa pairs: %d)\n",
				doc.Name, doc.ID, doc.ChunkCount, doc.QACount)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name for the document (default: file name)")

	return cmd
}
