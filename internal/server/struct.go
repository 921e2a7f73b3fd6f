package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/careline/careline/internal/assist"
	"github.com/careline/careline/internal/engine"
	"github.com/careline/careline/internal/retrieval"
	"github.com/careline/careline/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// Registry receives all Prometheus metrics. If nil the default registry
	// is used; tests inject a fresh one to stay hermetic.
	Registry *prometheus.Registry
}

// chatEngine is the interface handleChat calls to process a customer message.
// *engine.Engine satisfies it; tests inject a fake.
type chatEngine interface {
	ProcessQuery(ctx context.Context, query string, history []store.Message) (*engine.Reply, error)
}

// assister is the interface handleAssist calls to draft agent suggestions.
// *assist.Assistant satisfies it; tests inject a fake.
type assister interface {
	Assist(ctx context.Context, history []store.Message) *assist.Result
}

// knowledgeService is the interface the knowledge handlers call.
// *knowledge.Service satisfies it; tests inject a fake.
type knowledgeService interface {
	Ingest(ctx context.Context, name, text string) (*store.Document, error)
	List(ctx context.Context) ([]store.Document, error)
	Delete(ctx context.Context, id string) error
}

// conversationStore is the slice of the store the chat handlers need.
type conversationStore interface {
	AppendMessage(ctx context.Context, conversationID string, role store.Role, content string) error
	RecentMessages(ctx context.Context, conversationID string, n int) ([]store.Message, error)
}

// Server is the HTTP server that exposes the chat, assist, and knowledge APIs.
type Server struct {
	// engine processes customer chat messages.
	engine chatEngine
	// assistant drafts suggestions for human agents.
	assistant assister
	// knowledge manages the document lifecycle.
	knowledge knowledgeService
	// conversations persists and loads chat history.
	conversations conversationStore
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the server's Prometheus instruments.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// chatRequest is the JSON body for POST /api/chat.
type chatRequest struct {
	// ConversationID identifies the conversation thread. Empty starts a new one.
	ConversationID string `json:"conversation_id,omitempty"`
	// Message is the customer's message.
	Message string `json:"message"`
}

// chatResponse is the JSON response for POST /api/chat.
type chatResponse struct {
	// ConversationID is the thread the exchange was recorded under.
	ConversationID string `json:"conversation_id"`
	// Reply is the assistant's message to show the customer.
	Reply string `json:"reply"`
	// Clarification is true when Reply is a clarifying question.
	Clarification bool `json:"clarification"`
	// Sources are the knowledge hits that grounded the reply, if any.
	Sources []retrieval.Hit `json:"sources"`
}

// assistRequest is the JSON body for POST /api/assist.
type assistRequest struct {
	// ConversationID identifies the conversation to analyze.
	ConversationID string `json:"conversation_id"`
}

// ingestRequest is the JSON body for POST /api/knowledge.
type ingestRequest struct {
	// Name is the document's display name.
	Name string `json:"name"`
	// Content is the raw document text to ingest.
	Content string `json:"content"`
}

// documentResponse is the JSON shape of a document in API responses.
type documentResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
	QACount    int    `json:"qa_count"`
	CreatedAt  string `json:"created_at"`
}

func toDocumentResponse(d *store.Document) documentResponse {
	return documentResponse{
		ID:         d.ID,
		Name:       d.Name,
		Status:     string(d.Status),
		ChunkCount: d.ChunkCount,
		QACount:    d.QACount,
		CreatedAt:  d.CreatedAt.UTC().Format(time.RFC3339),
	}
}
