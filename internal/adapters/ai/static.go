package ai

import (
	"context"
	"fmt"
)

// StaticProvider returns canned responses. It backs local development without
// an API key and gives tests a deterministic agent-execution boundary.
type StaticProvider struct {
	// Response overrides the default reply when set.
	Response string
}

// NewStaticProvider creates a static provider
func NewStaticProvider(response string) *StaticProvider {
	return &StaticProvider{Response: response}
}

// Name returns the provider identifier
func (p *StaticProvider) Name() string { return "static" }

// Invoke echoes a canned reply built from the last user message
func (p *StaticProvider) Invoke(_ context.Context, req InvokeRequest) (*InvokeResult, error) {
	if p.Response != "" {
		return &InvokeResult{Text: p.Response}, nil
	}

	last := ""
	for _, msg := range req.Messages {
		if msg.Role == RoleUser {
			last = msg.Content
		}
	}
	return &InvokeResult{
		Text: fmt.Sprintf("I hear you: %q. Let's look at your budget together.", last),
	}, nil
}
