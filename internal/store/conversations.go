// conversations.go -- queries for the conversations table.
// Every read and write is scoped by user_id so one user can never
// touch another user's conversations, even with a guessed UUID.
package store

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

const conversationCols = "id, user_id, title, target_platform, llm_model, created_at, updated_at"

// CreateConversation inserts a new conversation and returns the stored row.
func (s *PostgresStore) CreateConversation(ctx context.Context, id uuid.UUID, userID uuid.UUID, title, platform, model string) (*Conversation, error) {
	var c Conversation
	err := s.pool.QueryRow(ctx,
		"INSERT INTO conversations (id, user_id, title, target_platform, llm_model) VALUES ($1, $2, $3, $4, $5) RETURNING "+conversationCols,
		id, userID, title, platform, model,
	).Scan(&c.ID, &c.UserID, &c.Title, &c.TargetPlatform, &c.Model, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetConversation fetches a single conversation owned by userID.
// Returns pgx.ErrNoRows when the conversation doesn't exist OR belongs to
// someone else — callers surface both as 404.
func (s *PostgresStore) GetConversation(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*Conversation, error) {
	var c Conversation
	err := s.pool.QueryRow(ctx,
		"SELECT "+conversationCols+" FROM conversations WHERE id = $1 AND user_id = $2",
		id, userID,
	).Scan(&c.ID, &c.UserID, &c.Title, &c.TargetPlatform, &c.Model, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListConversations returns all of a user's conversations, most recently
// updated first.
func (s *PostgresStore) ListConversations(ctx context.Context, userID uuid.UUID) ([]Conversation, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+conversationCols+" FROM conversations WHERE user_id = $1 ORDER BY updated_at DESC",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	convs := []Conversation{}
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.TargetPlatform, &c.Model, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// UpdateConversation applies a partial update (nil fields keep their
// current value), owner-scoped, and returns the updated row.
// Returns pgx.ErrNoRows if nothing was updated.
func (s *PostgresStore) UpdateConversation(ctx context.Context, id uuid.UUID, userID uuid.UUID, upd ConversationUpdate) (*Conversation, error) {
	var c Conversation
	err := s.pool.QueryRow(ctx,
		`UPDATE conversations SET
			title = COALESCE($1, title),
			target_platform = COALESCE($2, target_platform),
			llm_model = COALESCE($3, llm_model),
			updated_at = now()
		WHERE id = $4 AND user_id = $5
		RETURNING `+conversationCols,
		upd.Title, upd.TargetPlatform, upd.Model, id, userID,
	).Scan(&c.ID, &c.UserID, &c.Title, &c.TargetPlatform, &c.Model, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// TouchConversation bumps updated_at so the conversation sorts to the top of
// the sidebar after new messages land.
func (s *PostgresStore) TouchConversation(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		"UPDATE conversations SET updated_at = now() WHERE id = $1", id)
	return err
}

// DeleteConversation removes a conversation owned by userID. Messages go with
// it via ON DELETE CASCADE. Returns pgx.ErrNoRows if nothing was deleted.
func (s *PostgresStore) DeleteConversation(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM conversations WHERE id = $1 AND user_id = $2",
		id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
