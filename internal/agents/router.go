package agents

import (
	"strings"

	"trusio/pkg/errors"
	"trusio/pkg/logger"
)

// Rule maps message keywords onto an agent. Rules are evaluated in the order
// given; the first rule with any keyword present in the message wins, so more
// specific rules must come before broader ones.
type Rule struct {
	Agent      string
	Keywords   []string
	Confidence float64
	Reasoning  string
}

// Suggestion is a routing proposal with the evidence behind it.
type Suggestion struct {
	Agent      string  `json:"agent"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Router picks the agent for an incoming message. An explicitly requested
// agent always wins; otherwise keyword rules apply, and the default agent
// catches everything else.
type Router struct {
	catalog       *Catalog
	rules         []Rule
	defaultAgent  string
	minConfidence float64
	log           *logger.Logger
}

// NewRouter constructs a router over the catalog. The rule slice is used
// as-is; callers own the ordering.
func NewRouter(catalog *Catalog, rules []Rule, defaultAgent string, minConfidence float64) *Router {
	return &Router{
		catalog:       catalog,
		rules:         rules,
		defaultAgent:  defaultAgent,
		minConfidence: minConfidence,
		log:           logger.Get().With("component", "router"),
	}
}

// DefaultRules is the stock rule table for the builtin roster. Escalation
// phrasing is checked first so a frustrated user never lands on a specialist.
func DefaultRules() []Rule {
	return []Rule{
		{
			Agent:      "escalation",
			Keywords:   []string{"human", "complaint", "frustrated", "cancel my account", "speak to someone"},
			Confidence: 0.9,
			Reasoning:  "message asks for human help or voices frustration",
		},
		{
			Agent:      "memory_curator",
			Keywords:   []string{"remember", "forget", "preference", "my profile"},
			Confidence: 0.8,
			Reasoning:  "message is about what the system remembers",
		},
		{
			Agent:      "budget_coach",
			Keywords:   []string{"budget", "envelope", "overspend", "allocate", "allocation"},
			Confidence: 0.85,
			Reasoning:  "message mentions budgets or envelopes",
		},
		{
			Agent:      "transaction_analyst",
			Keywords:   []string{"transaction", "spent", "spending", "charge", "purchase"},
			Confidence: 0.8,
			Reasoning:  "message is about transaction history",
		},
		{
			Agent:      "insight_advisor",
			Keywords:   []string{"advice", "recommend", "suggestion", "goal", "trend", "insight"},
			Confidence: 0.7,
			Reasoning:  "message asks for advice or goal tracking",
		},
	}
}

// Route resolves the agent for a message. A non-empty explicitAgent must
// exist in the catalog; unknown names are an error, not a fallback.
func (r *Router) Route(explicitAgent, message string) (string, error) {
	if explicitAgent != "" {
		if _, err := r.catalog.Get(explicitAgent); err != nil {
			return "", err
		}
		return explicitAgent, nil
	}
	return r.Suggest(message).Agent, nil
}

// Suggest scores the message against the rule table. Matches below the
// confidence floor fall through to the default agent.
func (r *Router) Suggest(message string) Suggestion {
	lowered := strings.ToLower(message)

	for _, rule := range r.rules {
		for _, keyword := range rule.Keywords {
			if !strings.Contains(lowered, keyword) {
				continue
			}
			if rule.Confidence < r.minConfidence {
				r.log.Debugf("rule for %s matched %q below confidence floor", rule.Agent, keyword)
				break
			}
			return Suggestion{
				Agent:      rule.Agent,
				Confidence: rule.Confidence,
				Reasoning:  rule.Reasoning,
			}
		}
	}

	return Suggestion{
		Agent:      r.defaultAgent,
		Confidence: r.minConfidence,
		Reasoning:  "no routing rule matched; using the default agent",
	}
}

// Validate checks that every rule target and the default agent exist.
func (r *Router) Validate() error {
	if _, err := r.catalog.Get(r.defaultAgent); err != nil {
		return errors.Wrap(err, "default agent")
	}
	for _, rule := range r.rules {
		if _, err := r.catalog.Get(rule.Agent); err != nil {
			return errors.Wrap(err, "routing rule target")
		}
	}
	return nil
}
