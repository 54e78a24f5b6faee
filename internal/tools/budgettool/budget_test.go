package budgettool

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trusio/internal/domain/budget"
	"trusio/internal/tools"
)

type fakeBudgetRepo struct {
	snapshot *budget.Snapshot
	reads    int
}

func (f *fakeBudgetRepo) GetSnapshot(_ context.Context, _ string) (*budget.Snapshot, error) {
	f.reads++
	return f.snapshot, nil
}

func fixtureSnapshot() *budget.Snapshot {
	now := time.Now()
	return &budget.Snapshot{
		UserID: "u1",
		Envelopes: []budget.Envelope{
			{Name: "Groceries", Category: "groceries",
				Budgeted: decimal.RequireFromString("500"),
				Balance:  decimal.RequireFromString("454.33")},
		},
		Transactions: []budget.Transaction{
			{Amount: decimal.RequireFromString("-45.67"), Category: "groceries", PostedAt: now.Add(-48 * time.Hour)},
			{Amount: decimal.RequireFromString("-12.50"), Category: "dining", PostedAt: now.Add(-24 * time.Hour)},
		},
		FetchedAt: now,
	}
}

func registryWith(t *testing.T, repo budget.Repository) *tools.Registry {
	t.Helper()
	registry := tools.NewRegistry()
	require.NoError(t, RegisterAll(registry, repo))
	return registry
}

func TestBudgetAnalysis_SpendingAndVariance(t *testing.T) {
	repo := &fakeBudgetRepo{snapshot: fixtureSnapshot()}
	registry := registryWith(t, repo)

	tool, ok := registry.Get("budget_analysis")
	require.True(t, ok)

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"userId":    "u1",
		"timeframe": "monthly",
	})
	require.NoError(t, err)

	summary, ok := result["summary"].(map[string]interface{})
	require.True(t, ok)
	assert.InDelta(t, 58.17, summary["totalSpent"], 1e-9)
	assert.InDelta(t, 500, summary["totalBudgeted"], 1e-9)
	assert.Equal(t, 2, summary["transactions"])

	variances, ok := result["variances"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, variances, 1)
	assert.Equal(t, "groceries", variances[0]["category"])
	assert.InDelta(t, 500-45.67, variances[0]["variance"], 1e-9)

	byCategory, ok := result["byCategory"].(map[string]interface{})
	require.True(t, ok)
	assert.InDelta(t, 45.67, byCategory["groceries"], 1e-9)
	assert.InDelta(t, 12.50, byCategory["dining"], 1e-9)
}

func TestBudgetAnalysis_TimeframeFiltersOldTransactions(t *testing.T) {
	snapshot := fixtureSnapshot()
	snapshot.Transactions = append(snapshot.Transactions, budget.Transaction{
		Amount:   decimal.RequireFromString("-99.99"),
		Category: "travel",
		PostedAt: time.Now().Add(-20 * 24 * time.Hour),
	})
	repo := &fakeBudgetRepo{snapshot: snapshot}
	registry := registryWith(t, repo)

	tool, ok := registry.Get("budget_analysis")
	require.True(t, ok)

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"userId":    "u1",
		"timeframe": "weekly",
	})
	require.NoError(t, err)

	summary := result["summary"].(map[string]interface{})
	assert.InDelta(t, 58.17, summary["totalSpent"], 1e-9)
	assert.Equal(t, 2, summary["transactions"])
}

func TestBudgetAnalysis_UserIDFromContextMetadata(t *testing.T) {
	repo := &fakeBudgetRepo{snapshot: fixtureSnapshot()}
	registry := registryWith(t, repo)

	tool, ok := registry.Get("budget_analysis")
	require.True(t, ok)

	ctx := tools.WithMetadata(context.Background(), tools.Metadata{UserID: "u1", SessionID: "s1"})
	result, err := tool.Execute(ctx, map[string]interface{}{"timeframe": "monthly"})
	require.NoError(t, err)
	assert.NotNil(t, result["summary"])
	assert.Equal(t, 1, repo.reads)
}

func TestEnvelopeOverview(t *testing.T) {
	repo := &fakeBudgetRepo{snapshot: fixtureSnapshot()}
	registry := registryWith(t, repo)

	tool, ok := registry.Get("envelope_overview")
	require.True(t, ok)

	result, err := tool.Execute(context.Background(), map[string]interface{}{"userId": "u1"})
	require.NoError(t, err)

	assert.Equal(t, 1, result["count"])
	envelopes := result["envelopes"].([]map[string]interface{})
	require.Len(t, envelopes, 1)
	assert.Equal(t, "Groceries", envelopes[0]["name"])
	assert.Equal(t, "$454.33", envelopes[0]["display"])
}

func TestSpendingTrends_TopCategory(t *testing.T) {
	repo := &fakeBudgetRepo{snapshot: fixtureSnapshot()}
	registry := registryWith(t, repo)

	tool, ok := registry.Get("spending_trends")
	require.True(t, ok)

	result, err := tool.Execute(context.Background(), map[string]interface{}{"userId": "u1"})
	require.NoError(t, err)

	assert.Equal(t, "groceries", result["topCategory"])
	assert.InDelta(t, 45.67, result["topAmount"], 1e-9)
	assert.Equal(t, "monthly", result["timeframe"])
}

func TestGoalProgress(t *testing.T) {
	snapshot := fixtureSnapshot()
	snapshot.Goals = []budget.Goal{
		{Name: "Emergency fund", Target: decimal.RequireFromString("1000"), Saved: decimal.RequireFromString("250")},
	}
	repo := &fakeBudgetRepo{snapshot: snapshot}
	registry := registryWith(t, repo)

	tool, ok := registry.Get("goal_progress")
	require.True(t, ok)

	result, err := tool.Execute(context.Background(), map[string]interface{}{"userId": "u1"})
	require.NoError(t, err)

	goals := result["goals"].([]map[string]interface{})
	require.Len(t, goals, 1)
	assert.InDelta(t, 0.25, goals[0]["progress"], 1e-9)
}

func TestTransferPreview(t *testing.T) {
	snapshot := fixtureSnapshot()
	snapshot.Envelopes = append(snapshot.Envelopes, budget.Envelope{
		Name: "Dining", Category: "dining",
		Budgeted: decimal.RequireFromString("200"),
		Balance:  decimal.RequireFromString("187.50"),
	})
	repo := &fakeBudgetRepo{snapshot: snapshot}
	registry := registryWith(t, repo)

	tool, ok := registry.Get("transfer_preview")
	require.True(t, ok)

	t.Run("feasible", func(t *testing.T) {
		result, err := tool.Execute(context.Background(), map[string]interface{}{
			"userId": "u1", "from": "Groceries", "to": "Dining", "amount": 50.0,
		})
		require.NoError(t, err)
		assert.Equal(t, true, result["feasible"])
		assert.InDelta(t, 404.33, result["fromBalanceAfter"], 1e-9)
		assert.InDelta(t, 237.50, result["toBalanceAfter"], 1e-9)
	})

	t.Run("integer amount moves the full amount", func(t *testing.T) {
		result, err := tool.Execute(context.Background(), map[string]interface{}{
			"userId": "u1", "from": "Groceries", "to": "Dining", "amount": 100,
		})
		require.NoError(t, err)
		assert.Equal(t, true, result["feasible"])
		assert.InDelta(t, 354.33, result["fromBalanceAfter"], 1e-9)
		assert.InDelta(t, 287.50, result["toBalanceAfter"], 1e-9)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		result, err := tool.Execute(context.Background(), map[string]interface{}{
			"userId": "u1", "from": "Dining", "to": "Groceries", "amount": 1000.0,
		})
		require.NoError(t, err)
		assert.Equal(t, false, result["feasible"])
	})

	t.Run("unknown envelope", func(t *testing.T) {
		_, err := tool.Execute(context.Background(), map[string]interface{}{
			"userId": "u1", "from": "Vacation", "to": "Dining", "amount": 10.0,
		})
		require.Error(t, err)
	})
}
