package store

import "time"

// DocStatus tracks a knowledge document through its ingestion lifecycle.
type DocStatus string

const (
	// StatusProcessing means ingestion is in flight.
	StatusProcessing DocStatus = "processing"
	// StatusReady means the document's chunks and QA pairs are searchable.
	StatusReady DocStatus = "ready"
	// StatusFailed means ingestion failed; the document has no usable content.
	StatusFailed DocStatus = "failed"
)

// Document is a knowledge base entry: one ingested source text.
type Document struct {
	// ID is the document's UUID.
	ID string
	// Name is the operator-supplied display name.
	Name string
	// Status is the ingestion lifecycle state.
	Status DocStatus
	// ChunkCount is the number of chunks produced at ingestion.
	ChunkCount int
	// QACount is the number of QA pairs synthesized at ingestion.
	QACount int
	// CreatedAt is when the document was first registered.
	CreatedAt time.Time
	// UpdatedAt is when the status last changed.
	UpdatedAt time.Time
}

// Chunk is one retrievable slice of a document.
type Chunk struct {
	// ID is the chunk's row ID.
	ID int64
	// DocumentID is the owning document's UUID.
	DocumentID string
	// Seq is the chunk's position within the document, starting at 0.
	Seq int
	// Content is the chunk text.
	Content string
	// Embedding is the chunk's embedding vector.
	Embedding []float32
}

// QAPair is a synthesized question/answer pair derived from a document.
// The embedding is computed over the question text; a close match between a
// user query and a question lets the answer be returned directly.
type QAPair struct {
	// ID is the pair's row ID.
	ID int64
	// DocumentID is the owning document's UUID.
	DocumentID string
	// Question is the synthesized question.
	Question string
	// Answer is the synthesized answer.
	Answer string
	// Embedding is the question's embedding vector.
	Embedding []float32
}

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleUser is a message sent by the customer.
	RoleUser Role = "user"
	// RoleAI is a message produced by the AI engine.
	RoleAI Role = "ai"
	// RoleAgent is a message sent by a human support agent.
	RoleAgent Role = "agent"
)

// Message is a single turn in a conversation.
type Message struct {
	// ID is the message's row ID.
	ID int64
	// ConversationID groups messages into a conversation thread.
	ConversationID string
	// Role is the author of the message.
	Role Role
	// Content is the text of the message.
	Content string
	// CreatedAt is when the message was persisted.
	CreatedAt time.Time
}
