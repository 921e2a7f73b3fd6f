package store

import (
	"context"
	"fmt"
	"time"
)

// AppendMessage persists a single message for the given conversation.
func (s *Store) AppendMessage(ctx context.Context, conversationID string, role Role, content string) error {
	const q = `INSERT INTO messages (conversation_id, role, content, created_at) VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, conversationID, string(role), content, time.Now().Unix()); err != nil {
		return fmt.Errorf("store: append message: %w", err)
	}
	return nil
}

// RecentMessages returns the most recent n messages for the conversation,
// ordered oldest-first so they can be injected into the LLM context directly.
// Uses a subquery to select the tail then re-order for injection.
func (s *Store) RecentMessages(ctx context.Context, conversationID string, n int) ([]Message, error) {
	const q = `
SELECT id, role, content, created_at FROM (
    SELECT id, role, content, created_at
    FROM   messages
    WHERE  conversation_id = ?
    ORDER  BY created_at DESC, id DESC
    LIMIT  ?
) ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, q, conversationID, n)
	if err != nil {
		return nil, fmt.Errorf("store: recent messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		var ts int64
		var role string
		if err := rows.Scan(&m.ID, &role, &m.Content, &ts); err != nil {
			return nil, fmt.Errorf("store: recent messages scan: %w", err)
		}
		m.ConversationID = conversationID
		m.Role = Role(role)
		m.CreatedAt = time.Unix(ts, 0)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: recent messages rows: %w", err)
	}
	return msgs, nil
}
