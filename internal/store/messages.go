// messages.go -- queries for the messages table.
// Ownership is enforced at the conversation level; callers resolve the
// conversation (owner-scoped) before touching its messages.
package store

import (
	"context"

	"github.com/gofrs/uuid/v5"
)

const messageCols = "id, conversation_id, role, content, thinking, metadata, created_at"

// AppendMessage inserts a message at the end of a conversation and returns
// the stored row. metadata may be nil.
func (s *PostgresStore) AppendMessage(ctx context.Context, id uuid.UUID, conversationID uuid.UUID, role, content string, thinking *string, metadata map[string]any) (*Message, error) {
	var m Message
	err := s.pool.QueryRow(ctx,
		"INSERT INTO messages (id, conversation_id, role, content, thinking, metadata) VALUES ($1, $2, $3, $4, $5, $6) RETURNING "+messageCols,
		id, conversationID, role, content, thinking, metadata,
	).Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.Thinking, &m.Metadata, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMessages returns a conversation's messages in chronological order.
func (s *PostgresStore) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]Message, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+messageCols+" FROM messages WHERE conversation_id = $1 ORDER BY created_at, id",
		conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.Thinking, &m.Metadata, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// CountMessages returns how many messages a conversation holds.
func (s *PostgresStore) CountMessages(ctx context.Context, conversationID uuid.UUID) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		"SELECT count(*) FROM messages WHERE conversation_id = $1",
		conversationID).Scan(&n)
	return n, err
}
