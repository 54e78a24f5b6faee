package agents

import (
	"time"

	"trusio/pkg/errors"
)

// RiskLevel classifies how much damage a misbehaving agent could do.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Valid reports whether the risk level is a member of the closed set.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// Definition declares one agent: its instructions, the tools it may call,
// and the agents it may hand a conversation to.
type Definition struct {
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Instructions string    `json:"-"`
	RiskLevel    RiskLevel `json:"riskLevel"`

	// Priority orders agents when several could serve; 1 is highest, 10 lowest.
	Priority int `json:"priority"`

	// RequiresAuth marks agents that must not run for anonymous sessions.
	RequiresAuth bool `json:"requiresAuth"`

	// EstimatedDuration is the expected wall time of one execution, used by
	// the lifecycle sweep as a soft budget hint.
	EstimatedDuration time.Duration `json:"estimatedDurationMs"`

	// Tools lists registry names this agent may invoke. Referential
	// integrity is checked at catalog freeze.
	Tools []string `json:"tools"`

	// HandoffTargets lists agents this one may delegate to.
	HandoffTargets []string `json:"handoffTargets"`
}

// Validate checks the definition's own fields. Cross-references to tools and
// other agents are checked by the catalog at freeze time.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return errors.NewValidationError("name", "agent name is required", nil)
	}
	if d.Instructions == "" {
		return errors.NewValidationError("instructions", "agent instructions are required", nil)
	}
	if !d.RiskLevel.Valid() {
		return errors.NewValidationError("riskLevel", "must be low, medium or high", string(d.RiskLevel))
	}
	if d.Priority < 1 || d.Priority > 10 {
		return errors.NewValidationError("priority", "must be within [1,10]", d.Priority)
	}
	return nil
}

// PermitsHandoffTo reports whether target is a declared handoff target.
func (d *Definition) PermitsHandoffTo(target string) bool {
	for _, t := range d.HandoffTargets {
		if t == target {
			return true
		}
	}
	return false
}

// PermitsTool reports whether the agent may invoke the named tool.
func (d *Definition) PermitsTool(name string) bool {
	for _, t := range d.Tools {
		if t == name {
			return true
		}
	}
	return false
}
