package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/careline/careline/internal/logging"
	"github.com/careline/careline/internal/store"
)

// handleKnowledgeCreate handles POST /api/knowledge. Ingestion runs
// synchronously; the response carries the document's final state.
func (s *Server) handleKnowledgeCreate(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		http.Error(w, "content is required", http.StatusBadRequest)
		return
	}

	doc, err := s.knowledge.Ingest(r.Context(), req.Name, req.Content)
	if err != nil {
		log.Error("ingestion failed", slog.String("name", req.Name), slog.Any("error", err))
		if doc != nil {
			// The document exists in failed state; report it.
			writeJSON(w, http.StatusUnprocessableEntity, toDocumentResponse(doc))
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

// handleKnowledgeList handles GET /api/knowledge.
func (s *Server) handleKnowledgeList(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	docs, err := s.knowledge.List(r.Context())
	if err != nil {
		log.Error("list documents failed", slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]documentResponse, 0, len(docs))
	for i := range docs {
		out = append(out, toDocumentResponse(&docs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleKnowledgeDelete handles DELETE /api/knowledge/{id}.
func (s *Server) handleKnowledgeDelete(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	id := r.PathValue("id")
	if err := s.knowledge.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "document not found", http.StatusNotFound)
			return
		}
		log.Error("delete document failed", slog.String("id", id), slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
