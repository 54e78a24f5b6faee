package ai

import "context"

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn of the model conversation.
type Message struct {
	Role    Role
	Content string

	// Assistant messages may carry tool call requests.
	ToolCalls []ToolCall

	// Tool messages reference the call they answer.
	ToolCallID string
	ToolName   string
}

// ToolCall is a model request to invoke a named tool.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]interface{}
}

// ToolSpec advertises a callable tool to the model. Parameters is a JSON
// schema object.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// InvokeRequest is a single model invocation.
type InvokeRequest struct {
	Instructions string
	Messages     []Message
	Tools        []ToolSpec
	MaxTokens    int
}

// InvokeResult is either final text or a set of tool call requests. When
// ToolCalls is non-empty the caller executes them and invokes again with the
// results appended.
type InvokeResult struct {
	Text      string
	ToolCalls []ToolCall
}

// Provider is the agent-execution boundary: it turns a prepared conversation
// into a model response. The wire format behind it is opaque to the runtime.
type Provider interface {
	Name() string
	Invoke(ctx context.Context, req InvokeRequest) (*InvokeResult, error)
}
