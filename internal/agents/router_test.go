package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trusio/pkg/errors"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	catalog := NewCatalog()
	for _, def := range testAgents() {
		require.NoError(t, catalog.Register(def))
	}
	router := NewRouter(catalog, testRules(), "front_desk", 0.4)
	require.NoError(t, router.Validate())
	return router
}

func TestRouter_ExplicitAgentWins(t *testing.T) {
	router := newTestRouter(t)

	agent, err := router.Route("closer", "my budget is a mess")
	require.NoError(t, err)
	assert.Equal(t, "closer", agent)
}

func TestRouter_UnknownExplicitAgentIsAnError(t *testing.T) {
	router := newTestRouter(t)

	_, err := router.Route("ghost", "hello")
	assert.True(t, errors.Is(err, errors.ErrAgentNotFound))
}

func TestRouter_KeywordMatchIsCaseInsensitive(t *testing.T) {
	router := newTestRouter(t)

	for _, message := range []string{
		"help me with my BUDGET",
		"My Envelope for dining is empty",
		"budget?!",
	} {
		agent, err := router.Route("", message)
		require.NoError(t, err)
		assert.Equal(t, "specialist", agent, "message: %s", message)
	}
}

func TestRouter_FirstMatchingRuleWins(t *testing.T) {
	router := newTestRouter(t)

	// "budget summary" also matches the closer rule, but the specialist
	// rule comes first in the table and "budget" already matches it.
	suggestion := router.Suggest("please give me a budget summary and goodbye")
	assert.Equal(t, "specialist", suggestion.Agent)
	assert.InDelta(t, 0.85, suggestion.Confidence, 1e-9)
	assert.NotEmpty(t, suggestion.Reasoning)
}

func TestRouter_DefaultFallback(t *testing.T) {
	router := newTestRouter(t)

	suggestion := router.Suggest("what's the weather like")
	assert.Equal(t, "front_desk", suggestion.Agent)
	assert.Equal(t, "no routing rule matched; using the default agent", suggestion.Reasoning)
}

func TestRouter_ConfidenceFloorFallsThrough(t *testing.T) {
	catalog := NewCatalog()
	for _, def := range testAgents() {
		require.NoError(t, catalog.Register(def))
	}
	rules := []Rule{
		{Agent: "specialist", Keywords: []string{"budget"}, Confidence: 0.2, Reasoning: "weak match"},
		{Agent: "closer", Keywords: []string{"budget plan"}, Confidence: 0.8, Reasoning: "strong match"},
	}
	router := NewRouter(catalog, rules, "front_desk", 0.4)

	// The weak rule matches first but sits under the floor, so scoring
	// continues down the table.
	suggestion := router.Suggest("show me my budget plan")
	assert.Equal(t, "closer", suggestion.Agent)

	suggestion = router.Suggest("budget only")
	assert.Equal(t, "front_desk", suggestion.Agent)
}

func TestRouter_ValidateCatchesDanglingTargets(t *testing.T) {
	catalog := NewCatalog()
	for _, def := range testAgents() {
		require.NoError(t, catalog.Register(def))
	}

	router := NewRouter(catalog, []Rule{{Agent: "ghost", Keywords: []string{"x"}, Confidence: 0.9}}, "front_desk", 0.4)
	assert.Error(t, router.Validate())

	router = NewRouter(catalog, nil, "ghost", 0.4)
	assert.Error(t, router.Validate())
}
