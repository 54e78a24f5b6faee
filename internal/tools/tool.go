package tools

import (
	"context"

	"trusio/pkg/errors"
)

// RiskLevel classifies how sensitive a tool's action is.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Valid reports whether the risk level is one of the closed set.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// Tool represents a callable capability exposed to agents.
type Tool interface {
	// Name returns the unique tool identifier.
	Name() string
	// Description returns a short human-readable summary.
	Description() string
	// Category groups the tool for catalog listings.
	Category() string
	// RiskLevel classifies the tool's action.
	RiskLevel() RiskLevel
	// Schema describes and validates the tool's parameters.
	Schema() Schema
	// Execute performs the tool's action using validated parameters.
	Execute(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error)
}

// Definition carries a tool's static metadata.
type Definition struct {
	Name        string
	Description string
	Category    string
	RiskLevel   RiskLevel
	Schema      Schema
}

// HandlerFunc is the function signature for tool handlers.
type HandlerFunc func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error)

// FunctionTool is a Tool implementation backed by a handler function.
type FunctionTool struct {
	def     Definition
	handler HandlerFunc
}

// New creates a new function-backed Tool.
func New(def Definition, handler HandlerFunc) Tool {
	return &FunctionTool{def: def, handler: handler}
}

// Name returns the tool identifier.
func (t *FunctionTool) Name() string { return t.def.Name }

// Description returns a human description of the tool.
func (t *FunctionTool) Description() string { return t.def.Description }

// Category returns the catalog category.
func (t *FunctionTool) Category() string { return t.def.Category }

// RiskLevel returns the tool's risk classification.
func (t *FunctionTool) RiskLevel() RiskLevel { return t.def.RiskLevel }

// Schema returns the parameter schema.
func (t *FunctionTool) Schema() Schema { return t.def.Schema }

// Execute runs the underlying handler.
func (t *FunctionTool) Execute(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
	if t.handler == nil {
		return nil, errors.New("tool handler is not defined")
	}
	return t.handler(ctx, params)
}
