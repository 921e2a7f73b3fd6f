// Package server implements the HTTP server that exposes the careline APIs:
// customer chat, agent assist, and knowledge base management.
// The server is started by the `careline serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/careline/careline/internal/logging"
	"github.com/careline/careline/internal/retrieval"
	"github.com/careline/careline/internal/store"
)

// historyLimit is the number of recent messages loaded for chat and assist.
const historyLimit = 20

// fallbackReply is shown to the customer when response generation fails
// outright. The exchange stays alive; the customer can retry or escalate.
const fallbackReply = "The AI service is temporarily unavailable. Please try again in a moment, or ask to be connected to a human agent."

// Deps bundles the domain services the server exposes.
type Deps struct {
	// Engine processes customer chat messages.
	Engine chatEngine
	// Assistant drafts suggestions for human agents.
	Assistant assister
	// Knowledge manages the document lifecycle.
	Knowledge knowledgeService
	// Conversations persists and loads chat history.
	Conversations conversationStore
}

// New constructs a Server from the provided dependencies and config.
func New(deps Deps, cfg *Config) (*Server, error) {
	if deps.Engine == nil || deps.Assistant == nil || deps.Knowledge == nil || deps.Conversations == nil {
		return nil, fmt.Errorf("server: all dependencies must be non-nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// LLM round trips dominate; give handlers room to finish.
		cfg.WriteTimeout = 2 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	log := cfg.Logger
	if log == nil {
		log = logging.New("info", "json")
	}

	var reg prometheus.Registerer = prometheus.DefaultRegisterer
	gatherer := prometheus.DefaultGatherer
	if cfg.Registry != nil {
		reg = cfg.Registry
		gatherer = cfg.Registry
	}

	s := &Server{
		engine:        deps.Engine,
		assistant:     deps.Assistant,
		knowledge:     deps.Knowledge,
		conversations: deps.Conversations,
		cfg:           cfg,
		log:           log,
		pingers:       cfg.Pingers,
		metrics:       newServerMetrics(reg),
	}

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, log)
	s.stopRL = stopRL

	if cfg.APIKey == "" {
		log.Warn("API authentication disabled — set an API key for production use")
	}
	protected := func(name string, h http.HandlerFunc) http.Handler {
		return s.instrument(name, authMiddleware(cfg.APIKey, rl.middleware(h)))
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/chat", protected("chat", s.handleChat))
	mux.Handle("POST /api/assist", protected("assist", s.handleAssist))
	mux.Handle("POST /api/knowledge", protected("knowledge_create", s.handleKnowledgeCreate))
	mux.Handle("GET /api/knowledge", protected("knowledge_list", s.handleKnowledgeList))
	mux.Handle("DELETE /api/knowledge/{id}", protected("knowledge_delete", s.handleKnowledgeDelete))
	mux.Handle("GET /api/health", s.instrument("health", http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /api/ready", s.instrument("ready", http.HandlerFunc(s.handleReady)))
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(log, mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Handler returns the server's root handler, for use in tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server listening", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.stopRL()
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		s.stopRL()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleChat handles POST /api/chat. An empty conversation_id starts a new
// thread. Engine failures degrade to a fallback reply with HTTP 200 so the
// widget keeps the conversation alive.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}
	convID := req.ConversationID
	if convID == "" {
		convID = uuid.NewString()
	}

	history, err := s.conversations.RecentMessages(r.Context(), convID, historyLimit)
	if err != nil {
		log.Error("load history failed", slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	start := time.Now()
	s.metrics.chatInFlight.Inc()
	reply, err := s.engine.ProcessQuery(r.Context(), req.Message, history)
	s.metrics.chatInFlight.Dec()
	outcome := "ok"
	if err != nil {
		outcome = "error"
		log.Error("chat processing failed", slog.Any("error", err))
		reply = nil
	}
	s.metrics.chatRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.chatDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	resp := chatResponse{ConversationID: convID, Sources: []retrieval.Hit{}}
	if reply != nil {
		resp.Reply = reply.Content
		resp.Clarification = reply.Clarification
		if reply.Sources != nil {
			resp.Sources = reply.Sources
		}
	} else {
		resp.Reply = fallbackReply
	}

	// Persist both sides of the exchange, fallback replies included, so the
	// thread reads coherently when an agent takes over.
	if err := s.conversations.AppendMessage(r.Context(), convID, store.RoleUser, req.Message); err != nil {
		log.Error("persist user message failed", slog.Any("error", err))
	}
	if err := s.conversations.AppendMessage(r.Context(), convID, store.RoleAI, resp.Reply); err != nil {
		log.Error("persist ai message failed", slog.Any("error", err))
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleAssist handles POST /api/assist. The assistant itself never fails;
// only a missing or empty conversation is a client error.
func (s *Server) handleAssist(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req assistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ConversationID == "" {
		http.Error(w, "conversation_id is required", http.StatusBadRequest)
		return
	}

	history, err := s.conversations.RecentMessages(r.Context(), req.ConversationID, historyLimit)
	if err != nil {
		log.Error("load history failed", slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if len(history) == 0 {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}

	start := time.Now()
	result := s.assistant.Assist(r.Context(), history)
	s.metrics.assistRequestsTotal.Inc()
	s.metrics.assistDurationSeconds.Observe(time.Since(start).Seconds())

	writeJSON(w, http.StatusOK, result)
}

// writeJSON encodes v with the given status. Encoding errors are logged by
// the request logger's status capture; nothing more can be sent by then.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
