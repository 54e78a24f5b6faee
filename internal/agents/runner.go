package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"trusio/internal/adapters/ai"
	"trusio/internal/domain/conversation"
	"trusio/internal/metrics"
	"trusio/internal/tools"
	"trusio/pkg/errors"
	"trusio/pkg/logger"
)

// RunRequest is one agent execution.
type RunRequest struct {
	Agent     *Definition
	UserID    string
	SessionID string
	Message   string

	// CarryTurns overrides the cached history, used by handoffs to pass the
	// tail of the source conversation to the target agent.
	CarryTurns []conversation.Entry

	// HandoffReason, when set, is surfaced to the model so the target agent
	// knows why it received the conversation.
	HandoffReason string
}

// RunResult is the outcome of one agent execution.
type RunResult struct {
	AgentName   string                  `json:"agent"`
	Text        string                  `json:"text"`
	ToolResults []tools.ExecutionResult `json:"toolResults,omitempty"`
	Turns       int                     `json:"turns"`
	DurationMs  int64                   `json:"durationMs"`
}

// Runner drives the model loop for a single agent: invoke, execute requested
// tools, feed results back, repeat until the model answers in text or the
// turn budget runs out.
type Runner struct {
	provider  ai.Provider
	executor  *tools.Executor
	cache     *ContextCache
	lifecycle *Lifecycle
	maxTurns  int
	log       *logger.Logger
}

// NewRunner constructs a runner.
func NewRunner(provider ai.Provider, executor *tools.Executor, cache *ContextCache, lifecycle *Lifecycle, maxTurns int) *Runner {
	if maxTurns <= 0 {
		maxTurns = 8
	}
	return &Runner{
		provider:  provider,
		executor:  executor,
		cache:     cache,
		lifecycle: lifecycle,
		maxTurns:  maxTurns,
		log:       logger.Get().With("component", "runner"),
	}
}

// Run executes the agent once. The returned error is nil whenever the model
// produced an answer, even if individual tool calls inside the run failed.
func (r *Runner) Run(ctx context.Context, req RunRequest) (result *RunResult, err error) {
	def := req.Agent
	start := time.Now()

	runCtx, exec := r.lifecycle.Begin(ctx, def.Name, req.UserID)
	defer func() {
		r.lifecycle.End(exec, err)
		status := "success"
		if err != nil {
			status = "error"
			if errors.Is(err, errors.ErrTimeout) || errors.Is(err, errors.ErrExecutionTimeout) {
				status = "timeout"
			}
		}
		metrics.AgentCalls.WithLabelValues(def.Name, status).Inc()
		metrics.AgentLatency.WithLabelValues(def.Name).Observe(time.Since(start).Seconds())
	}()

	agentCtx, err := r.cache.Get(runCtx, req.UserID, req.SessionID, def.Name)
	if err != nil {
		return nil, errors.Wrapf(err, "prepare context for %s", def.Name)
	}

	history := req.CarryTurns
	if history == nil {
		history = agentCtx.RecentTurns
	}

	messages := make([]ai.Message, 0, len(history)+1)
	for _, turn := range history {
		role := ai.RoleUser
		if turn.Role == conversation.RoleAssistant {
			role = ai.RoleAssistant
		}
		messages = append(messages, ai.Message{Role: role, Content: turn.Content})
	}
	messages = append(messages, ai.Message{Role: ai.RoleUser, Content: req.Message})

	specs := r.toolSpecs(def)
	instructions := composeInstructions(def, agentCtx, req.HandoffReason)

	var toolResults []tools.ExecutionResult
	toolCtx := tools.WithMetadata(runCtx, tools.Metadata{
		UserID:    req.UserID,
		SessionID: req.SessionID,
		AgentName: def.Name,
	})

	for turn := 1; turn <= r.maxTurns; turn++ {
		reply, invokeErr := r.provider.Invoke(runCtx, ai.InvokeRequest{
			Instructions: instructions,
			Messages:     messages,
			Tools:        specs,
		})
		if invokeErr != nil {
			if errors.Is(invokeErr, context.Canceled) || errors.Is(invokeErr, context.DeadlineExceeded) {
				err = errors.Wrapf(errors.ErrExecutionTimeout, "agent %s", def.Name)
				return nil, err
			}
			err = errors.Wrapf(errors.ErrAgentRun, "invoke %s turn %d: %v", def.Name, turn, invokeErr)
			return nil, err
		}

		if len(reply.ToolCalls) == 0 {
			return &RunResult{
				AgentName:   def.Name,
				Text:        reply.Text,
				ToolResults: toolResults,
				Turns:       turn,
				DurationMs:  time.Since(start).Milliseconds(),
			}, nil
		}

		messages = append(messages, ai.Message{
			Role:      ai.RoleAssistant,
			Content:   reply.Text,
			ToolCalls: reply.ToolCalls,
		})

		for _, call := range reply.ToolCalls {
			execResult := r.executeCall(toolCtx, def, call)
			toolResults = append(toolResults, execResult)
			messages = append(messages, ai.Message{
				Role:       ai.RoleTool,
				Content:    renderToolResult(execResult),
				ToolCallID: call.ID,
				ToolName:   call.Name,
			})
		}
	}

	err = errors.Wrapf(errors.ErrAgentRun, "agent %s exhausted %d turns without answering", def.Name, r.maxTurns)
	return nil, err
}

// executeCall runs one requested tool, enforcing the agent's tool allowlist.
func (r *Runner) executeCall(ctx context.Context, def *Definition, call ai.ToolCall) tools.ExecutionResult {
	if !def.PermitsTool(call.Name) {
		r.log.Warnf("agent %s requested unpermitted tool %s", def.Name, call.Name)
		return tools.ExecutionResult{
			ToolName:  call.Name,
			Success:   false,
			Error:     fmt.Sprintf("tool %q is not available to agent %q", call.Name, def.Name),
			ErrorKind: tools.ErrorValidation,
			Timestamp: time.Now(),
		}
	}
	return r.executor.Execute(ctx, call.Name, call.Arguments)
}

func (r *Runner) toolSpecs(def *Definition) []ai.ToolSpec {
	raw := r.executor.Specs(def.Tools)
	specs := make([]ai.ToolSpec, 0, len(raw))
	for _, s := range raw {
		specs = append(specs, ai.ToolSpec{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  s.Parameters,
		})
	}
	return specs
}

// renderToolResult serializes an execution result for the model.
func renderToolResult(result tools.ExecutionResult) string {
	if !result.Success {
		return fmt.Sprintf(`{"error":%q,"kind":%q}`, result.Error, result.ErrorKind)
	}
	payload, err := json.Marshal(result.Result)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(payload)
}

// composeInstructions appends a compact situational briefing to the agent's
// base instructions.
func composeInstructions(def *Definition, agentCtx *AgentContext, handoffReason string) string {
	var b strings.Builder
	b.WriteString(def.Instructions)

	if handoffReason != "" {
		b.WriteString("\n\nThis conversation was handed to you. Reason: ")
		b.WriteString(handoffReason)
	}

	if snap := agentCtx.Snapshot; snap != nil && len(snap.Envelopes) > 0 {
		b.WriteString("\n\nCurrent envelopes:")
		for _, env := range snap.Envelopes {
			fmt.Fprintf(&b, "\n- %s (%s): $%s of $%s remaining",
				env.Name, env.Category,
				humanize.CommafWithDigits(env.Balance.InexactFloat64(), 2),
				humanize.CommafWithDigits(env.Budgeted.InexactFloat64(), 2))
		}
	}

	if profile := agentCtx.Profile; profile != nil {
		if profile.CurrentFocus != "" {
			b.WriteString("\n\nThe user's recent focus area is ")
			b.WriteString(profile.CurrentFocus)
			b.WriteString(".")
		}
		if len(profile.Preferences) > 0 {
			b.WriteString("\nKnown preferences:")
			for key, pref := range profile.Preferences {
				fmt.Fprintf(&b, "\n- %s: %s", key, pref.Value)
			}
		}
	}

	return b.String()
}
