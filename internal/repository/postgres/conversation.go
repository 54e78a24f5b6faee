package postgres

import (
	"context"

	"trusio/internal/domain/conversation"
	"trusio/pkg/errors"
)

// ConversationRepository implements conversation.Repository
type ConversationRepository struct {
	db DBTX
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db DBTX) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Append writes entries in call order
func (r *ConversationRepository) Append(ctx context.Context, entries []conversation.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	query := `
		INSERT INTO conversation_entries (
			id, user_id, session_id, role, content, agent_name, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, e := range entries {
		if !e.Role.Valid() {
			return errors.NewValidationError("role", "must be user or assistant", string(e.Role))
		}
		if _, err := r.db.ExecContext(ctx, query,
			e.ID, e.UserID, e.SessionID, string(e.Role), e.Content, e.AgentName, e.Timestamp,
		); err != nil {
			return errors.Wrap(err, "insert conversation entry")
		}
	}

	return nil
}

// Query returns entries ordered by timestamp ascending plus the total count
func (r *ConversationRepository) Query(ctx context.Context, userID, sessionID string, limit, offset int) ([]conversation.Entry, int, error) {
	countQuery := `
		SELECT COUNT(*) FROM conversation_entries
		WHERE user_id = $1 AND session_id = $2
	`

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, userID, sessionID); err != nil {
		return nil, 0, errors.Wrap(err, "count conversation entries")
	}

	query := `
		SELECT id, user_id, session_id, role, content, agent_name, created_at
		FROM conversation_entries
		WHERE user_id = $1 AND session_id = $2
		ORDER BY created_at ASC
		LIMIT $3 OFFSET $4
	`

	entries := []conversation.Entry{}
	if err := r.db.SelectContext(ctx, &entries, query, userID, sessionID, limit, offset); err != nil {
		return nil, 0, errors.Wrap(err, "select conversation entries")
	}

	return entries, total, nil
}
