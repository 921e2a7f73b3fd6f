package commands

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/careline/careline/internal/assist"
	"github.com/careline/careline/internal/embedding"
	"github.com/careline/careline/internal/engine"
	"github.com/careline/careline/internal/knowledge"
	"github.com/careline/careline/internal/logging"
	"github.com/careline/careline/internal/provider"
	"github.com/careline/careline/internal/retrieval"
	"github.com/careline/careline/internal/server"
	"github.com/careline/careline/internal/store"
	"github.com/careline/careline/internal/tracing"
)

// NewServeCmd constructs the `careline serve` command, which starts the HTTP
// server exposing the chat, agent-assist, and knowledge APIs.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the careline HTTP server",
		Long: `Start the careline HTTP server.

The server exposes the customer chat API, the agent-assist API, and the
knowledge base management API. All state lives in a local SQLite database.

Examples:
  careline serve
  careline serve --port 9090
  careline serve --config ./careline.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New(cfg.Logging.Level, cfg.Logging.Format)
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", cfg.LLM.Provider))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup(&cfg.Tracing)
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "langfuse keys not set"))
			}

			st, err := store.Open(cfg.Store.DBPath)
			if err != nil {
				return fmt.Errorf("serve: failed to open store: %w", err)
			}
			defer func() { _ = st.Close() }()
			log.Info("store opened", slog.String("path", cfg.Store.DBPath))

			chatModel, err := provider.New(ctx, provider.FromLLMConfig(&cfg.LLM))
			if err != nil {
				return fmt.Errorf("serve: failed to initialise model provider: %w", err)
			}
			log.Info("provider initialised", slog.String("provider", cfg.LLM.Provider))

			embedder, err := embedding.New(&cfg.Embedding, log)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise embedder: %w", err)
			}

			synth := knowledge.NewSynthesizer(chatModel, log)
			processor := knowledge.NewProcessor(embedder, synth, cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap, log)
			knowledgeSvc := knowledge.NewService(st, processor, log)

			retriever := retrieval.NewEngine(st, embedder,
				cfg.Retrieval.QAThreshold, cfg.Retrieval.QAMargin, cfg.Retrieval.VectorTopK)

			chatEngine := engine.New(chatModel, retriever, log)
			assistant := assist.New(chatModel, retriever, log)

			if !cmd.Flags().Changed("host") {
				host = cfg.Server.Host
			}
			if !cmd.Flags().Changed("port") {
				port = cfg.Server.Port
			}

			srv, err := server.New(server.Deps{
				Engine:        chatEngine,
				Assistant:     assistant,
				Knowledge:     knowledgeSvc,
				Conversations: st,
			}, &server.Config{
				Host:      host,
				Port:      port,
				Logger:    log,
				APIKey:    cfg.Server.APIKey,
				RateLimit: cfg.Server.RateLimit,
				RateBurst: cfg.Server.RateBurst,
				Pingers: []server.Pinger{
					server.NewStorePinger(st),
					server.NewLLMPinger(chatModel, "llm"),
					server.NewEmbeddingPinger(embedder),
				},
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
