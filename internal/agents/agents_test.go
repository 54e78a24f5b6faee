package agents

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"trusio/internal/adapters/ai"
	"trusio/internal/domain/budget"
	"trusio/internal/domain/conversation"
	"trusio/internal/domain/memory"
	"trusio/internal/domain/session"
	"trusio/internal/tools"
	"trusio/pkg/errors"
)

// stubProvider replays a scripted sequence of model replies and records the
// requests it saw.
type stubProvider struct {
	mu       sync.Mutex
	script   []ai.InvokeResult
	requests []ai.InvokeRequest
	err      error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Invoke(ctx context.Context, req ai.InvokeRequest) (*ai.InvokeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.script) == 0 {
		return &ai.InvokeResult{Text: "done"}, nil
	}
	next := s.script[0]
	s.script = s.script[1:]
	return &next, nil
}

func (s *stubProvider) lastRequest() ai.InvokeRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

type countingBudgetRepo struct {
	mu    sync.Mutex
	reads int
}

func (c *countingBudgetRepo) GetSnapshot(_ context.Context, userID string) (*budget.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	return &budget.Snapshot{
		UserID: userID,
		Envelopes: []budget.Envelope{
			{Name: "Groceries", Category: "groceries",
				Budgeted: decimal.RequireFromString("500"),
				Balance:  decimal.RequireFromString("454.33")},
		},
		FetchedAt: time.Now(),
	}, nil
}

func (c *countingBudgetRepo) readCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

type memConversationRepo struct {
	mu      sync.Mutex
	entries []conversation.Entry
}

func (m *memConversationRepo) Append(_ context.Context, entries []conversation.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entries...)
	return nil
}

func (m *memConversationRepo) Query(_ context.Context, userID, sessionID string, limit, offset int) ([]conversation.Entry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var scoped []conversation.Entry
	for _, e := range m.entries {
		if e.UserID == userID && e.SessionID == sessionID {
			scoped = append(scoped, e)
		}
	}
	total := len(scoped)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return scoped[offset:end], total, nil
}

type memSessionRepo struct {
	mu     sync.Mutex
	states map[string]session.State
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{states: make(map[string]session.State)}
}

func (m *memSessionRepo) Get(_ context.Context, userID, sessionID string) (*session.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[userID+"/"+sessionID]
	if !ok {
		return nil, errors.ErrNotFound
	}
	copied := state
	return &copied, nil
}

func (m *memSessionRepo) Save(_ context.Context, state *session.State, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.UserID+"/"+state.SessionID] = *state
	return nil
}

func (m *memSessionRepo) Delete(_ context.Context, userID, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, userID+"/"+sessionID)
	return nil
}

type nilMemoryRepo struct{}

func (nilMemoryRepo) UpsertPreference(context.Context, *memory.Preference) error { return nil }
func (nilMemoryRepo) GetPreferences(context.Context, string) ([]memory.Preference, error) {
	return nil, nil
}
func (nilMemoryRepo) InsertInsight(context.Context, *memory.Insight) error { return nil }
func (nilMemoryRepo) GetRecentInsights(context.Context, string, int) ([]memory.Insight, error) {
	return nil, nil
}
func (nilMemoryRepo) PruneInsights(context.Context, string, int) (int64, error) { return 0, nil }

// historyEntries builds an alternating user/assistant exchange.
func historyEntries(userID, sessionID string, contents ...string) []conversation.Entry {
	base := time.Now().Add(-time.Minute)
	entries := make([]conversation.Entry, 0, len(contents))
	for i, content := range contents {
		role := conversation.RoleUser
		if i%2 == 1 {
			role = conversation.RoleAssistant
		}
		entries = append(entries, conversation.Entry{
			ID:        uuid.New(),
			UserID:    userID,
			SessionID: sessionID,
			Role:      role,
			Content:   content,
			Timestamp: base.Add(time.Duration(i) * time.Second),
		})
	}
	return entries
}

// testRuntime bundles a fully wired in-memory stack.
type testRuntime struct {
	provider   *stubProvider
	budgetRepo *countingBudgetRepo
	convRepo   *memConversationRepo
	sessions   *memSessionRepo
	registry   *tools.Registry
	executor   *tools.Executor
	catalog    *Catalog
	router     *Router
	cache      *ContextCache
	lifecycle  *Lifecycle
	runner     *Runner
	handoffs   *HandoffCoordinator
	orch       *Orchestrator
}

func echoTool() tools.Tool {
	return tools.New(tools.Definition{
		Name:        "echo",
		Description: "Echo the input back",
		Category:    "testing",
		RiskLevel:   tools.RiskLow,
		Schema: tools.Schema{Params: []tools.ParamSpec{
			{Name: "text", Type: tools.ParamString, Required: true},
		}},
	}, func(_ context.Context, params map[string]interface{}) (map[string]interface{}, error) {
		return map[string]interface{}{"echo": params["text"]}, nil
	})
}

// testAgents is a small roster with a permitted chain long enough to walk
// past the handoff depth cap: a -> b -> a -> b ...
func testAgents() []*Definition {
	return []*Definition{
		{Name: "front_desk", Instructions: "Answer briefly.", RiskLevel: RiskLow, Priority: 1,
			Tools:          []string{"echo"},
			HandoffTargets: []string{"specialist", "closer"}},
		{Name: "specialist", Instructions: "Handle specialist work.", RiskLevel: RiskMedium, Priority: 2,
			Tools:          []string{"echo"},
			HandoffTargets: []string{"front_desk", "closer"}},
		{Name: "closer", Instructions: "Wrap up.", RiskLevel: RiskLow, Priority: 3,
			Tools:          nil,
			HandoffTargets: nil},
	}
}

func testRules() []Rule {
	return []Rule{
		{Agent: "specialist", Keywords: []string{"budget", "envelope"}, Confidence: 0.85,
			Reasoning: "budget wording"},
		{Agent: "closer", Keywords: []string{"goodbye", "budget summary"}, Confidence: 0.8,
			Reasoning: "closing wording"},
	}
}

func newTestRuntime(t *testing.T) *testRuntime {
	t.Helper()

	rt := &testRuntime{
		provider:   &stubProvider{},
		budgetRepo: &countingBudgetRepo{},
		convRepo:   &memConversationRepo{},
		sessions:   newMemSessionRepo(),
	}

	rt.registry = tools.NewRegistry()
	require.NoError(t, rt.registry.Register(echoTool()))
	rt.registry.Freeze()
	rt.executor = tools.NewExecutor(rt.registry, time.Second, nil)

	rt.catalog = NewCatalog()
	for _, def := range testAgents() {
		require.NoError(t, rt.catalog.Register(def))
	}
	require.NoError(t, rt.catalog.Freeze(rt.registry))

	convSvc := conversation.NewService(rt.convRepo)
	memSvc := memory.NewService(nilMemoryRepo{}, memory.Options{})

	rt.router = NewRouter(rt.catalog, testRules(), "front_desk", 0.4)
	require.NoError(t, rt.router.Validate())

	rt.cache = NewContextCache(rt.budgetRepo, convSvc, memSvc, ContextCacheOptions{
		Size: 8, TTL: time.Minute, HistorySize: 10,
	})
	rt.lifecycle = NewLifecycle(30*time.Second, time.Second)
	rt.runner = NewRunner(rt.provider, rt.executor, rt.cache, rt.lifecycle, 4)
	rt.handoffs = NewHandoffCoordinator(rt.catalog, rt.runner, convSvc, rt.sessions, nil, 5, 10, time.Hour)

	rt.orch = NewOrchestrator(OrchestratorDeps{
		Catalog:         rt.catalog,
		Registry:        rt.registry,
		Executor:        rt.executor,
		Router:          rt.router,
		Cache:           rt.cache,
		Handoffs:        rt.handoffs,
		Lifecycle:       rt.lifecycle,
		Runner:          rt.runner,
		Conv:            convSvc,
		Sessions:        rt.sessions,
		EscalationAgent: "closer",
	})
	return rt
}
