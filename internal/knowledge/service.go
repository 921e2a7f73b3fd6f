package knowledge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/careline/careline/internal/store"
)

// Service orchestrates the knowledge base lifecycle: it registers documents,
// runs the ingestion pipeline, and records the outcome. A document is only
// searchable once its status reaches ready; a failed ingestion leaves the
// document in failed state with the cause recorded in the logs.
type Service struct {
	store     *store.Store
	processor *Processor
	log       *slog.Logger
}

// NewService constructs a Service over the given store and processor.
func NewService(st *store.Store, processor *Processor, log *slog.Logger) *Service {
	return &Service{store: st, processor: processor, log: log}
}

// Ingest registers a new document and runs the full pipeline synchronously.
// The returned document reflects the final state (ready or failed).
func (s *Service) Ingest(ctx context.Context, name, text string) (*store.Document, error) {
	id := uuid.NewString()
	doc, err := s.store.CreateDocument(ctx, id, name)
	if err != nil {
		return nil, fmt.Errorf("knowledge: register document: %w", err)
	}

	chunks, qaPairs, err := s.processor.Process(ctx, id, text)
	if err != nil {
		s.fail(ctx, doc, err)
		return doc, fmt.Errorf("knowledge: ingest %s: %w", name, err)
	}

	if err := s.store.InsertChunks(ctx, chunks); err != nil {
		s.fail(ctx, doc, err)
		return doc, fmt.Errorf("knowledge: ingest %s: %w", name, err)
	}
	if err := s.store.InsertQAPairs(ctx, qaPairs); err != nil {
		s.fail(ctx, doc, err)
		return doc, fmt.Errorf("knowledge: ingest %s: %w", name, err)
	}

	if err := s.store.UpdateDocumentStatus(ctx, id, store.StatusReady, len(chunks), len(qaPairs)); err != nil {
		return doc, fmt.Errorf("knowledge: mark document ready: %w", err)
	}
	doc.Status = store.StatusReady
	doc.ChunkCount = len(chunks)
	doc.QACount = len(qaPairs)
	return doc, nil
}

// fail moves a document to failed state, logging rather than propagating any
// secondary error so the original ingestion failure is what the caller sees.
func (s *Service) fail(ctx context.Context, doc *store.Document, cause error) {
	s.log.Error("document ingestion failed",
		slog.String("document_id", doc.ID),
		slog.String("name", doc.Name),
		slog.String("error", cause.Error()),
	)
	if err := s.store.UpdateDocumentStatus(ctx, doc.ID, store.StatusFailed, 0, 0); err != nil {
		s.log.Error("could not mark document failed",
			slog.String("document_id", doc.ID),
			slog.String("error", err.Error()))
	}
	doc.Status = store.StatusFailed
}

// List returns all documents, newest first.
func (s *Service) List(ctx context.Context) ([]store.Document, error) {
	return s.store.ListDocuments(ctx)
}

// Get returns a single document by ID.
func (s *Service) Get(ctx context.Context, id string) (*store.Document, error) {
	return s.store.GetDocument(ctx, id)
}

// Delete removes a document and all of its derived chunks and QA pairs.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("knowledge: delete document: %w", err)
	}
	s.log.Info("document deleted", slog.String("document_id", id))
	return nil
}
