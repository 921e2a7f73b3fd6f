package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("store: not found")

// CreateDocument registers a new document in processing state.
func (s *Store) CreateDocument(ctx context.Context, id, name string) (*Document, error) {
	now := time.Now()
	const q = `INSERT INTO documents (id, name, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, id, name, string(StatusProcessing), now.Unix(), now.Unix()); err != nil {
		return nil, fmt.Errorf("store: create document: %w", err)
	}
	return &Document{
		ID:        id,
		Name:      name,
		Status:    StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetDocument returns the document with the given ID, or ErrNotFound.
func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	const q = `SELECT id, name, status, chunk_count, qa_count, created_at, updated_at FROM documents WHERE id = ?`
	doc, err := scanDocument(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns all documents, newest first.
func (s *Store) ListDocuments(ctx context.Context) ([]Document, error) {
	const q = `SELECT id, name, status, chunk_count, qa_count, created_at, updated_at
FROM documents ORDER BY created_at DESC, id DESC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("store: list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list documents scan: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list documents rows: %w", err)
	}
	return docs, nil
}

// UpdateDocumentStatus moves a document to a new lifecycle state and records
// the chunk and QA counts produced by ingestion.
func (s *Store) UpdateDocumentStatus(ctx context.Context, id string, status DocStatus, chunkCount, qaCount int) error {
	const q = `UPDATE documents SET status = ?, chunk_count = ?, qa_count = ?, updated_at = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, q, string(status), chunkCount, qaCount, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("store: update document status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDocument removes a document together with its chunks and QA pairs.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: delete document begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, id); err != nil {
		return fmt.Errorf("store: delete chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM qa_pairs WHERE document_id = ?`, id); err != nil {
		return fmt.Errorf("store: delete qa pairs: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete document: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: delete document commit: %w", err)
	}
	return nil
}

// InsertChunks persists all chunks of a document in one transaction.
func (s *Store) InsertChunks(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: insert chunks begin: %w", err)
	}
	defer tx.Rollback()

	const q = `INSERT INTO chunks (document_id, seq, content, embedding) VALUES (?, ?, ?, ?)`
	for i := range chunks {
		c := &chunks[i]
		if _, err := tx.ExecContext(ctx, q, c.DocumentID, c.Seq, c.Content, encodeVector(c.Embedding)); err != nil {
			return fmt.Errorf("store: insert chunk %d: %w", c.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: insert chunks commit: %w", err)
	}
	return nil
}

// InsertQAPairs persists all QA pairs of a document in one transaction.
func (s *Store) InsertQAPairs(ctx context.Context, pairs []QAPair) error {
	if len(pairs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: insert qa pairs begin: %w", err)
	}
	defer tx.Rollback()

	const q = `INSERT INTO qa_pairs (document_id, question, answer, embedding) VALUES (?, ?, ?, ?)`
	for i := range pairs {
		p := &pairs[i]
		if _, err := tx.ExecContext(ctx, q, p.DocumentID, p.Question, p.Answer, encodeVector(p.Embedding)); err != nil {
			return fmt.Errorf("store: insert qa pair: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: insert qa pairs commit: %w", err)
	}
	return nil
}

// ListChunks returns all chunks of ready documents with their embeddings,
// in insertion order so retrieval rankings are deterministic under ties.
func (s *Store) ListChunks(ctx context.Context) ([]Chunk, error) {
	const q = `
SELECT c.id, c.document_id, c.seq, c.content, c.embedding
FROM   chunks c
JOIN   documents d ON d.id = c.document_id
WHERE  d.status = 'ready'
ORDER  BY c.id ASC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("store: list chunks: %w", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		var blob []byte
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Seq, &c.Content, &blob); err != nil {
			return nil, fmt.Errorf("store: list chunks scan: %w", err)
		}
		if c.Embedding, err = decodeVector(blob); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list chunks rows: %w", err)
	}
	return chunks, nil
}

// ListQAPairs returns all QA pairs of ready documents with their embeddings,
// in insertion order.
func (s *Store) ListQAPairs(ctx context.Context) ([]QAPair, error) {
	const q = `
SELECT p.id, p.document_id, p.question, p.answer, p.embedding
FROM   qa_pairs p
JOIN   documents d ON d.id = p.document_id
WHERE  d.status = 'ready'
ORDER  BY p.id ASC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("store: list qa pairs: %w", err)
	}
	defer rows.Close()

	var pairs []QAPair
	for rows.Next() {
		var p QAPair
		var blob []byte
		if err := rows.Scan(&p.ID, &p.DocumentID, &p.Question, &p.Answer, &blob); err != nil {
			return nil, fmt.Errorf("store: list qa pairs scan: %w", err)
		}
		if p.Embedding, err = decodeVector(blob); err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list qa pairs rows: %w", err)
	}
	return pairs, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDocument reads one document row in column order
// (id, name, status, chunk_count, qa_count, created_at, updated_at).
func scanDocument(r rowScanner) (*Document, error) {
	var doc Document
	var status string
	var created, updated int64
	if err := r.Scan(&doc.ID, &doc.Name, &status, &doc.ChunkCount, &doc.QACount, &created, &updated); err != nil {
		return nil, err
	}
	doc.Status = DocStatus(status)
	doc.CreatedAt = time.Unix(created, 0)
	doc.UpdatedAt = time.Unix(updated, 0)
	return &doc, nil
}
