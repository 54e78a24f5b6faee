package agents

import (
	"context"
	"time"

	"github.com/google/uuid"

	"trusio/internal/adapters/kafka"
	"trusio/internal/domain/conversation"
	"trusio/internal/domain/session"
	"trusio/internal/metrics"
	"trusio/pkg/errors"
	"trusio/pkg/logger"
)

// HandoffState tracks a handoff through its life.
type HandoffState string

const (
	HandoffRequested HandoffState = "requested"
	HandoffValidated HandoffState = "validated"
	HandoffExecuted  HandoffState = "executed"
	HandoffCompleted HandoffState = "completed"
	HandoffFailed    HandoffState = "failed"
)

// HandoffRequest asks the coordinator to move a conversation between agents.
type HandoffRequest struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
	FromAgent string `json:"fromAgent"`
	ToAgent   string `json:"toAgent"`
	Reason    string `json:"reason"`
	Priority  int    `json:"priority"`

	// Message optionally gives the target agent something concrete to act
	// on; when empty the target continues from the carried history.
	Message string `json:"message,omitempty"`
}

// HandoffRecord is the audit trail of one handoff attempt.
type HandoffRecord struct {
	ID              uuid.UUID    `json:"id"`
	FromAgent       string       `json:"fromAgent"`
	ToAgent         string       `json:"toAgent"`
	Reason          string       `json:"reason"`
	Priority        int          `json:"priority"`
	EscalationLevel int          `json:"escalationLevel"`
	State           HandoffState `json:"state"`
	Error           string       `json:"error,omitempty"`
	DurationMs      int64        `json:"durationMs"`
	Timestamp       time.Time    `json:"timestamp"`

	Result *RunResult `json:"result,omitempty"`
}

// EventPublisher emits domain events. *kafka.Producer satisfies it; tests
// and single-node deployments pass nil.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event interface{}) error
}

// HandoffCoordinator validates and executes agent handoffs: permission
// checks against the catalog, a depth cap on escalation chains, history
// carry-over, and the nested run of the target agent.
type HandoffCoordinator struct {
	catalog    *Catalog
	runner     *Runner
	conv       *conversation.Service
	sessions   session.Repository
	publisher  EventPublisher
	maxDepth   int
	carryTurns int
	sessionTTL time.Duration
	log        *logger.Logger
}

// NewHandoffCoordinator constructs the coordinator. publisher may be nil.
func NewHandoffCoordinator(catalog *Catalog, runner *Runner, conv *conversation.Service, sessions session.Repository, publisher EventPublisher, maxDepth, carryTurns int, sessionTTL time.Duration) *HandoffCoordinator {
	if maxDepth <= 0 {
		maxDepth = 5
	}
	if carryTurns <= 0 {
		carryTurns = 10
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &HandoffCoordinator{
		catalog:    catalog,
		runner:     runner,
		conv:       conv,
		sessions:   sessions,
		publisher:  publisher,
		maxDepth:   maxDepth,
		carryTurns: carryTurns,
		sessionTTL: sessionTTL,
		log:        logger.Get().With("component", "handoff"),
	}
}

// Execute runs one handoff end to end. Validation failures and depth-cap
// rejections return the failed record alongside the error and leave the
// session state untouched.
func (h *HandoffCoordinator) Execute(ctx context.Context, req HandoffRequest) (*HandoffRecord, error) {
	start := time.Now()
	record := &HandoffRecord{
		ID:        uuid.New(),
		FromAgent: req.FromAgent,
		ToAgent:   req.ToAgent,
		Reason:    req.Reason,
		Priority:  req.Priority,
		State:     HandoffRequested,
		Timestamp: start,
	}

	target, err := h.validate(req)
	if err != nil {
		return h.fail(record, start, err), err
	}

	state, err := h.loadState(ctx, req)
	if err != nil {
		return h.fail(record, start, err), err
	}
	record.EscalationLevel = state.EscalationLevel

	if state.EscalationLevel+1 > h.maxDepth {
		err = errors.Wrapf(errors.ErrHandoffDepthExceeded,
			"%s -> %s at level %d (max %d)", req.FromAgent, req.ToAgent, state.EscalationLevel, h.maxDepth)
		return h.fail(record, start, err), err
	}
	record.State = HandoffValidated

	carried, err := h.conv.Recent(ctx, req.UserID, req.SessionID, h.carryTurns)
	if err != nil {
		return h.fail(record, start, err), err
	}
	if carried == nil {
		carried = []conversation.Entry{}
	}

	message := req.Message
	if message == "" {
		message = "Please take over this conversation and continue helping the user."
	}

	record.State = HandoffExecuted
	result, err := h.runner.Run(ctx, RunRequest{
		Agent:         target,
		UserID:        req.UserID,
		SessionID:     req.SessionID,
		Message:       message,
		CarryTurns:    carried,
		HandoffReason: req.Reason,
	})
	if err != nil {
		return h.fail(record, start, err), err
	}

	state.ActiveAgent = req.ToAgent
	state.EscalationLevel++
	state.UpdatedAt = time.Now()
	if err := h.sessions.Save(ctx, state, h.sessionTTL); err != nil {
		return h.fail(record, start, err), err
	}

	record.State = HandoffCompleted
	record.EscalationLevel = state.EscalationLevel
	record.Result = result
	record.DurationMs = time.Since(start).Milliseconds()
	metrics.Handoffs.WithLabelValues(req.FromAgent, req.ToAgent, "completed").Inc()
	h.publish(ctx, req, record)

	h.log.Infof("handoff %s -> %s completed at level %d in %dms",
		req.FromAgent, req.ToAgent, state.EscalationLevel, record.DurationMs)
	return record, nil
}

// validate checks both agents exist, differ, and the source permits the
// target. Every failure maps to the invalid-agents error.
func (h *HandoffCoordinator) validate(req HandoffRequest) (*Definition, error) {
	if req.FromAgent == req.ToAgent {
		return nil, errors.Wrapf(errors.ErrInvalidAgents, "%q hands off to itself", req.FromAgent)
	}

	from, err := h.catalog.Get(req.FromAgent)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidAgents, "source agent %q not found", req.FromAgent)
	}
	target, err := h.catalog.Get(req.ToAgent)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidAgents, "target agent %q not found", req.ToAgent)
	}
	if !from.PermitsHandoffTo(req.ToAgent) {
		return nil, errors.Wrapf(errors.ErrInvalidAgents,
			"%q does not permit handoff to %q", req.FromAgent, req.ToAgent)
	}
	return target, nil
}

func (h *HandoffCoordinator) loadState(ctx context.Context, req HandoffRequest) (*session.State, error) {
	state, err := h.sessions.Get(ctx, req.UserID, req.SessionID)
	if err == nil {
		return state, nil
	}
	if errors.Is(err, errors.ErrNotFound) {
		return &session.State{
			UserID:      req.UserID,
			SessionID:   req.SessionID,
			ActiveAgent: req.FromAgent,
		}, nil
	}
	return nil, errors.Wrap(err, "load session state")
}

func (h *HandoffCoordinator) fail(record *HandoffRecord, start time.Time, err error) *HandoffRecord {
	record.State = HandoffFailed
	record.Error = err.Error()
	record.DurationMs = time.Since(start).Milliseconds()
	metrics.Handoffs.WithLabelValues(record.FromAgent, record.ToAgent, "failed").Inc()
	return record
}

func (h *HandoffCoordinator) publish(ctx context.Context, req HandoffRequest, record *HandoffRecord) {
	if h.publisher == nil {
		return
	}
	event := map[string]interface{}{
		"handoffId":       record.ID.String(),
		"userId":          req.UserID,
		"sessionId":       req.SessionID,
		"fromAgent":       record.FromAgent,
		"toAgent":         record.ToAgent,
		"reason":          record.Reason,
		"escalationLevel": record.EscalationLevel,
		"durationMs":      record.DurationMs,
		"timestamp":       record.Timestamp.UTC().Format(time.RFC3339),
	}
	if err := h.publisher.Publish(ctx, kafka.TopicHandoffExecuted, req.UserID, event); err != nil {
		h.log.Warnf("publish handoff event: %v", err)
	}
}
