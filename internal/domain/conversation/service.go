package conversation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"trusio/pkg/errors"
	"trusio/pkg/logger"
)

const defaultPageSize = 20

// Service exposes conversation history operations to the runtime.
type Service struct {
	repo Repository
	log  *logger.Logger
}

// NewService constructs a conversation service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, log: logger.Get().With("component", "conversation")}
}

// Record appends a user turn and the assistant's reply in call order.
func (s *Service) Record(ctx context.Context, userID, sessionID, agentName, userMessage, response string) error {
	if sessionID == "" || userID == "" {
		return errors.ErrInvalidInput
	}

	now := time.Now()
	entries := []Entry{
		{
			ID:        uuid.New(),
			UserID:    userID,
			SessionID: sessionID,
			Role:      RoleUser,
			Content:   userMessage,
			AgentName: agentName,
			Timestamp: now,
		},
		{
			ID:        uuid.New(),
			UserID:    userID,
			SessionID: sessionID,
			Role:      RoleAssistant,
			Content:   response,
			AgentName: agentName,
			Timestamp: now.Add(time.Millisecond),
		},
	}

	if err := s.repo.Append(ctx, entries); err != nil {
		return errors.Wrap(err, "append conversation")
	}
	return nil
}

// History returns a page of the session's conversation ordered oldest first.
func (s *Service) History(ctx context.Context, userID, sessionID string, limit, offset int) (*Page, error) {
	if sessionID == "" {
		return nil, errors.ErrInvalidInput
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	entries, total, err := s.repo.Query(ctx, userID, sessionID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "query conversation")
	}

	return &Page{Entries: entries, Total: total, Limit: limit, Offset: offset}, nil
}

// Recent returns up to limit of the latest entries, still ordered oldest
// first, for building agent context windows.
func (s *Service) Recent(ctx context.Context, userID, sessionID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}

	_, total, err := s.repo.Query(ctx, userID, sessionID, 1, 0)
	if err != nil {
		return nil, errors.Wrap(err, "count conversation")
	}
	if total == 0 {
		return nil, nil
	}

	offset := 0
	if total > limit {
		offset = total - limit
	}

	entries, _, err := s.repo.Query(ctx, userID, sessionID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "query recent conversation")
	}
	return entries, nil
}
