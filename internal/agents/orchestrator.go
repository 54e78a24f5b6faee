package agents

import (
	"context"
	"time"

	"github.com/google/uuid"

	"trusio/internal/adapters/kafka"
	"trusio/internal/domain/conversation"
	"trusio/internal/domain/session"
	"trusio/internal/domain/toolstats"
	"trusio/internal/metrics"
	"trusio/internal/tools"
	"trusio/pkg/errors"
	"trusio/pkg/logger"
)

// fallbackReply is returned when every execution path failed. The user gets
// an honest apology rather than an error page.
const fallbackReply = "I'm sorry, I wasn't able to process that right now. " +
	"Please try again in a moment, and if the problem persists I can connect " +
	"you with support."

// MessageRequest is one user message entering the runtime.
type MessageRequest struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`

	// Agent, when set, bypasses routing. Unknown names are an error.
	Agent string `json:"agent,omitempty"`
}

// MessageResponse is the runtime's answer.
type MessageResponse struct {
	Agent      string                  `json:"agent"`
	Text       string                  `json:"text"`
	Routing    Suggestion              `json:"routing"`
	ToolsUsed  []tools.ExecutionResult `json:"toolsUsed,omitempty"`
	Degraded   bool                    `json:"degraded,omitempty"`
	DurationMs int64                   `json:"durationMs"`
}

// RuntimeMetrics is the aggregate usage snapshot exposed for operations.
type RuntimeMetrics struct {
	Tools        map[string]tools.Usage      `json:"tools"`
	ToolsTotal   tools.Usage                 `json:"toolsTotal"`
	Agents       map[string]AgentUsage       `json:"agents"`
	ActiveAgents int                         `json:"activeAgents"`
	CachedCtx    int                         `json:"cachedContexts"`
	ToolTrend    []toolstats.UsageAggregated `json:"toolTrend,omitempty"`
}

// Orchestrator is the runtime facade: it routes messages, runs agents,
// persists conversations, and fans out lifecycle events.
type Orchestrator struct {
	catalog    *Catalog
	registry   *tools.Registry
	executor   *tools.Executor
	router     *Router
	cache      *ContextCache
	handoffs   *HandoffCoordinator
	lifecycle  *Lifecycle
	runner     *Runner
	conv       *conversation.Service
	sessions   session.Repository
	publisher  EventPublisher
	sessionTTL time.Duration
	escalation string
	log        *logger.Logger
}

// OrchestratorDeps wires the orchestrator. Publisher may be nil.
type OrchestratorDeps struct {
	Catalog    *Catalog
	Registry   *tools.Registry
	Executor   *tools.Executor
	Router     *Router
	Cache      *ContextCache
	Handoffs   *HandoffCoordinator
	Lifecycle  *Lifecycle
	Runner     *Runner
	Conv       *conversation.Service
	Sessions   session.Repository
	Publisher  EventPublisher
	SessionTTL time.Duration

	// EscalationAgent, when set, receives conversations whose handoff
	// chains hit the depth cap. Empty disables the fallback.
	EscalationAgent string
}

// NewOrchestrator constructs the runtime facade.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	ttl := deps.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Orchestrator{
		catalog:    deps.Catalog,
		registry:   deps.Registry,
		executor:   deps.Executor,
		router:     deps.Router,
		cache:      deps.Cache,
		handoffs:   deps.Handoffs,
		lifecycle:  deps.Lifecycle,
		runner:     deps.Runner,
		conv:       deps.Conv,
		sessions:   deps.Sessions,
		publisher:  deps.Publisher,
		sessionTTL: ttl,
		escalation: deps.EscalationAgent,
		log:        logger.Get().With("component", "orchestrator"),
	}
}

// HandleMessage routes the message to an agent, runs it, persists the
// exchange, and degrades gracefully when the chosen agent fails.
func (o *Orchestrator) HandleMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	if req.UserID == "" || req.SessionID == "" || req.Message == "" {
		return nil, errors.ErrInvalidInput
	}
	start := time.Now()

	agentName, routing, err := o.resolveAgent(ctx, req)
	if err != nil {
		return nil, err
	}

	def, err := o.catalog.Get(agentName)
	if err != nil {
		return nil, err
	}

	response := &MessageResponse{Agent: agentName, Routing: routing}
	result, runErr := o.runner.Run(ctx, RunRequest{
		Agent:     def,
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Message:   req.Message,
	})

	switch {
	case runErr == nil:
		response.Text = result.Text
		response.ToolsUsed = result.ToolResults
	case agentName != o.router.defaultAgent:
		// The chosen agent failed; retry once on the default agent before
		// giving up entirely.
		o.log.Warnf("agent %s failed, degrading to %s: %v", agentName, o.router.defaultAgent, runErr)
		response.Degraded = true
		response.Agent = o.router.defaultAgent
		fallbackDef, defErr := o.catalog.Get(o.router.defaultAgent)
		if defErr != nil {
			response.Text = fallbackReply
			break
		}
		result, runErr = o.runner.Run(ctx, RunRequest{
			Agent:     fallbackDef,
			UserID:    req.UserID,
			SessionID: req.SessionID,
			Message:   req.Message,
		})
		if runErr != nil {
			response.Text = fallbackReply
		} else {
			response.Text = result.Text
			response.ToolsUsed = result.ToolResults
		}
	default:
		o.log.Errorf("default agent %s failed: %v", agentName, runErr)
		response.Degraded = true
		response.Text = fallbackReply
	}

	if err := o.conv.Record(ctx, req.UserID, req.SessionID, response.Agent, req.Message, response.Text); err != nil {
		o.log.Errorf("record conversation: %v", err)
	}
	// New turns make every cached context for this session stale.
	o.cache.Invalidate(req.UserID, req.SessionID)

	o.saveSession(ctx, req, response.Agent)
	o.publishInteraction(ctx, req, response, start)

	response.DurationMs = time.Since(start).Milliseconds()
	return response, nil
}

// resolveAgent applies routing precedence: an explicit agent wins, then a
// session's active agent keeps ownership, then the keyword rules decide.
func (o *Orchestrator) resolveAgent(ctx context.Context, req MessageRequest) (string, Suggestion, error) {
	if req.Agent != "" {
		if _, err := o.catalog.Get(req.Agent); err != nil {
			return "", Suggestion{}, err
		}
		return req.Agent, Suggestion{Agent: req.Agent, Confidence: 1, Reasoning: "explicitly requested"}, nil
	}

	if state, err := o.sessions.Get(ctx, req.UserID, req.SessionID); err == nil && state.ActiveAgent != "" {
		if _, err := o.catalog.Get(state.ActiveAgent); err == nil {
			return state.ActiveAgent, Suggestion{
				Agent:      state.ActiveAgent,
				Confidence: 1,
				Reasoning:  "session already owned by this agent",
			}, nil
		}
	}

	suggestion := o.router.Suggest(req.Message)
	return suggestion.Agent, suggestion, nil
}

// ExecuteHandoff delegates to the handoff coordinator. A chain at its depth
// cap no longer deepens; the conversation is routed to the designated
// escalation agent instead.
func (o *Orchestrator) ExecuteHandoff(ctx context.Context, req HandoffRequest) (*HandoffRecord, error) {
	record, err := o.handoffs.Execute(ctx, req)
	if err == nil || !errors.Is(err, errors.ErrHandoffDepthExceeded) {
		return record, err
	}
	if o.escalation == "" || req.ToAgent == o.escalation || req.FromAgent == o.escalation {
		return record, err
	}

	escalated, escErr := o.escalate(ctx, req)
	if escErr != nil {
		o.log.Errorf("escalation after depth cap failed: %v", escErr)
		return record, err
	}
	o.log.Warnf("handoff %s -> %s hit the depth cap; routed session to %s",
		req.FromAgent, req.ToAgent, o.escalation)
	return escalated, nil
}

// escalate runs the escalation agent over the carried conversation and hands
// it session ownership without raising the escalation level further.
func (o *Orchestrator) escalate(ctx context.Context, req HandoffRequest) (*HandoffRecord, error) {
	def, err := o.catalog.Get(o.escalation)
	if err != nil {
		return nil, err
	}

	carried, err := o.conv.Recent(ctx, req.UserID, req.SessionID, o.handoffs.carryTurns)
	if err != nil {
		return nil, err
	}
	if carried == nil {
		carried = []conversation.Entry{}
	}

	message := req.Message
	if message == "" {
		message = "This conversation has been escalated to you. Please take over."
	}

	start := time.Now()
	result, err := o.runner.Run(ctx, RunRequest{
		Agent:         def,
		UserID:        req.UserID,
		SessionID:     req.SessionID,
		Message:       message,
		CarryTurns:    carried,
		HandoffReason: "handoff chain reached its depth limit",
	})
	if err != nil {
		return nil, err
	}

	record := &HandoffRecord{
		ID:         uuid.New(),
		FromAgent:  req.FromAgent,
		ToAgent:    o.escalation,
		Reason:     req.Reason,
		Priority:   req.Priority,
		State:      HandoffCompleted,
		Timestamp:  start,
		DurationMs: time.Since(start).Milliseconds(),
		Result:     result,
	}
	if state, stateErr := o.sessions.Get(ctx, req.UserID, req.SessionID); stateErr == nil {
		record.EscalationLevel = state.EscalationLevel
	}
	o.saveSession(ctx, MessageRequest{UserID: req.UserID, SessionID: req.SessionID}, o.escalation)
	metrics.Handoffs.WithLabelValues(req.FromAgent, o.escalation, "escalated").Inc()
	return record, nil
}

// ExecuteTool invokes one tool directly, outside any agent run. The result
// is a value even on failure.
func (o *Orchestrator) ExecuteTool(ctx context.Context, toolName string, params map[string]interface{}, meta tools.Metadata) tools.ExecutionResult {
	return o.executor.Execute(tools.WithMetadata(ctx, meta), toolName, params)
}

// SuggestAgent exposes the router's scoring without running anything.
func (o *Orchestrator) SuggestAgent(message string) Suggestion {
	return o.router.Suggest(message)
}

// ListAgents returns the catalog ordered by priority.
func (o *Orchestrator) ListAgents() []*Definition {
	return o.catalog.List()
}

// ListTools returns tool definitions, optionally filtered by category.
func (o *Orchestrator) ListTools(category string) []tools.Tool {
	return o.registry.List(category)
}

// GetHistory returns a page of the session's conversation, oldest first.
func (o *Orchestrator) GetHistory(ctx context.Context, userID, sessionID string, limit, offset int) (*conversation.Page, error) {
	return o.conv.History(ctx, userID, sessionID, limit, offset)
}

// GetMetrics snapshots tool and agent usage. When toolName is set the
// snapshot also carries that tool's hourly trend from the analytics store.
func (o *Orchestrator) GetMetrics(ctx context.Context, toolName string) RuntimeMetrics {
	book := o.executor.Usage()
	snapshot := RuntimeMetrics{
		Tools:        book.Snapshot(),
		ToolsTotal:   book.Total(),
		Agents:       o.lifecycle.Usage(),
		ActiveAgents: o.lifecycle.ActiveCount(),
		CachedCtx:    o.cache.Len(),
	}
	if toolName != "" {
		trend, err := o.executor.Trend(ctx, toolName, time.Now().Add(-24*time.Hour))
		if err != nil {
			o.log.Warnf("tool trend for %s: %v", toolName, err)
		} else {
			snapshot.ToolTrend = trend
		}
	}
	return snapshot
}

func (o *Orchestrator) saveSession(ctx context.Context, req MessageRequest, agentName string) {
	state, err := o.sessions.Get(ctx, req.UserID, req.SessionID)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			o.log.Warnf("load session: %v", err)
			return
		}
		state = &session.State{UserID: req.UserID, SessionID: req.SessionID}
	}
	state.ActiveAgent = agentName
	state.UpdatedAt = time.Now()
	if err := o.sessions.Save(ctx, state, o.sessionTTL); err != nil {
		o.log.Warnf("save session: %v", err)
	}
}

func (o *Orchestrator) publishInteraction(ctx context.Context, req MessageRequest, resp *MessageResponse, start time.Time) {
	if o.publisher == nil {
		return
	}
	event := map[string]interface{}{
		"userId":     req.UserID,
		"sessionId":  req.SessionID,
		"agent":      resp.Agent,
		"degraded":   resp.Degraded,
		"toolCalls":  len(resp.ToolsUsed),
		"durationMs": time.Since(start).Milliseconds(),
		"timestamp":  start.UTC().Format(time.RFC3339),
	}
	if err := o.publisher.Publish(ctx, kafka.TopicInteractionCompleted, req.UserID, event); err != nil {
		o.log.Warnf("publish interaction event: %v", err)
	}
}
