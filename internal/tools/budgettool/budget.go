package budgettool

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"trusio/internal/domain/budget"
	"trusio/internal/tools"
	"trusio/pkg/errors"
)

// Category under which all budgeting tools are listed.
const Category = "budgeting"

// RegisterAll adds the budgeting tool set to the registry.
func RegisterAll(registry *tools.Registry, repo budget.Repository) error {
	set := []tools.Tool{
		newBudgetAnalysis(repo),
		newEnvelopeOverview(repo),
		newSpendingTrends(repo),
		newGoalProgress(repo),
		newTransferPreview(repo),
	}
	for _, tool := range set {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}
	return nil
}

// resolveUserID prefers the explicit parameter and falls back to call
// metadata.
func resolveUserID(ctx context.Context, params map[string]interface{}) (string, error) {
	if id, ok := params["userId"].(string); ok && id != "" {
		return id, nil
	}
	if meta, ok := tools.MetadataFromContext(ctx); ok && meta.UserID != "" {
		return meta.UserID, nil
	}
	return "", errors.NewValidationError("userId", "user id missing from params and context", nil)
}

// timeframeWindow maps a timeframe name onto a lookback duration.
func timeframeWindow(timeframe string) time.Duration {
	switch timeframe {
	case "weekly":
		return 7 * 24 * time.Hour
	case "yearly":
		return 365 * 24 * time.Hour
	default: // monthly
		return 30 * 24 * time.Hour
	}
}

// filterTransactions keeps transactions posted within the window.
func filterTransactions(txs []budget.Transaction, window time.Duration) []budget.Transaction {
	cutoff := time.Now().Add(-window)
	out := make([]budget.Transaction, 0, len(txs))
	for _, tx := range txs {
		if !tx.PostedAt.Before(cutoff) {
			out = append(out, tx)
		}
	}
	return out
}

func newBudgetAnalysis(repo budget.Repository) tools.Tool {
	return tools.New(tools.Definition{
		Name:        "budget_analysis",
		Description: "Analyze spending against envelope budgets for a timeframe",
		Category:    Category,
		RiskLevel:   tools.RiskLow,
		Schema: tools.Schema{Params: []tools.ParamSpec{
			{Name: "userId", Type: tools.ParamString, Description: "User to analyze"},
			{Name: "timeframe", Type: tools.ParamString, Required: true,
				Rule: "oneof=weekly monthly yearly", Description: "Analysis window"},
		}},
	}, func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
		userID, err := resolveUserID(ctx, params)
		if err != nil {
			return nil, err
		}
		timeframe, _ := params["timeframe"].(string)

		snapshot, err := repo.GetSnapshot(ctx, userID)
		if err != nil {
			return nil, errors.Wrap(err, "load snapshot")
		}

		txs := filterTransactions(snapshot.Transactions, timeframeWindow(timeframe))
		scoped := &budget.Snapshot{Transactions: txs}

		totalSpent := scoped.TotalSpent()
		byCategory := scoped.SpentByCategory()

		totalBudgeted := decimal.Zero
		variances := make([]map[string]interface{}, 0, len(snapshot.Envelopes))
		for _, env := range snapshot.Envelopes {
			spent := byCategory[env.Category]
			variance := env.Budgeted.Sub(spent)
			totalBudgeted = totalBudgeted.Add(env.Budgeted)
			variances = append(variances, map[string]interface{}{
				"category": env.Category,
				"envelope": env.Name,
				"budgeted": env.Budgeted.InexactFloat64(),
				"spent":    spent.InexactFloat64(),
				"variance": variance.InexactFloat64(),
			})
		}

		categories := make(map[string]interface{}, len(byCategory))
		for category, amount := range byCategory {
			categories[category] = amount.InexactFloat64()
		}

		return map[string]interface{}{
			"summary": map[string]interface{}{
				"timeframe":     timeframe,
				"totalSpent":    totalSpent.InexactFloat64(),
				"totalBudgeted": totalBudgeted.InexactFloat64(),
				"transactions":  len(txs),
			},
			"byCategory": categories,
			"variances":  variances,
		}, nil
	})
}

func newEnvelopeOverview(repo budget.Repository) tools.Tool {
	return tools.New(tools.Definition{
		Name:        "envelope_overview",
		Description: "List the user's envelopes with balances and budgets",
		Category:    Category,
		RiskLevel:   tools.RiskLow,
		Schema: tools.Schema{Params: []tools.ParamSpec{
			{Name: "userId", Type: tools.ParamString, Description: "User to inspect"},
		}},
	}, func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
		userID, err := resolveUserID(ctx, params)
		if err != nil {
			return nil, err
		}

		snapshot, err := repo.GetSnapshot(ctx, userID)
		if err != nil {
			return nil, errors.Wrap(err, "load snapshot")
		}

		envelopes := make([]map[string]interface{}, 0, len(snapshot.Envelopes))
		for _, env := range snapshot.Envelopes {
			envelopes = append(envelopes, map[string]interface{}{
				"name":     env.Name,
				"category": env.Category,
				"budgeted": env.Budgeted.InexactFloat64(),
				"balance":  env.Balance.InexactFloat64(),
				"display":  "$" + humanize.CommafWithDigits(env.Balance.InexactFloat64(), 2),
			})
		}

		return map[string]interface{}{
			"envelopes": envelopes,
			"count":     len(envelopes),
		}, nil
	})
}

func newSpendingTrends(repo budget.Repository) tools.Tool {
	return tools.New(tools.Definition{
		Name:        "spending_trends",
		Description: "Break down recent spending by category and flag the largest",
		Category:    Category,
		RiskLevel:   tools.RiskLow,
		Schema: tools.Schema{Params: []tools.ParamSpec{
			{Name: "userId", Type: tools.ParamString, Description: "User to inspect"},
			{Name: "timeframe", Type: tools.ParamString,
				Rule: "oneof=weekly monthly yearly", Description: "Trend window, defaults to monthly"},
		}},
	}, func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
		userID, err := resolveUserID(ctx, params)
		if err != nil {
			return nil, err
		}
		timeframe, _ := params["timeframe"].(string)
		if timeframe == "" {
			timeframe = "monthly"
		}

		snapshot, err := repo.GetSnapshot(ctx, userID)
		if err != nil {
			return nil, errors.Wrap(err, "load snapshot")
		}

		scoped := &budget.Snapshot{
			Transactions: filterTransactions(snapshot.Transactions, timeframeWindow(timeframe)),
		}
		byCategory := scoped.SpentByCategory()

		topCategory := ""
		topAmount := decimal.Zero
		categories := make(map[string]interface{}, len(byCategory))
		for category, amount := range byCategory {
			categories[category] = amount.InexactFloat64()
			if amount.GreaterThan(topAmount) {
				topAmount = amount
				topCategory = category
			}
		}

		return map[string]interface{}{
			"timeframe":   timeframe,
			"byCategory":  categories,
			"topCategory": topCategory,
			"topAmount":   topAmount.InexactFloat64(),
		}, nil
	})
}

func newGoalProgress(repo budget.Repository) tools.Tool {
	return tools.New(tools.Definition{
		Name:        "goal_progress",
		Description: "Report progress toward the user's savings goals",
		Category:    Category,
		RiskLevel:   tools.RiskLow,
		Schema: tools.Schema{Params: []tools.ParamSpec{
			{Name: "userId", Type: tools.ParamString, Description: "User to inspect"},
		}},
	}, func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
		userID, err := resolveUserID(ctx, params)
		if err != nil {
			return nil, err
		}

		snapshot, err := repo.GetSnapshot(ctx, userID)
		if err != nil {
			return nil, errors.Wrap(err, "load snapshot")
		}

		goals := make([]map[string]interface{}, 0, len(snapshot.Goals))
		for _, goal := range snapshot.Goals {
			progress := 0.0
			if goal.Target.IsPositive() {
				progress = goal.Saved.Div(goal.Target).InexactFloat64()
			}
			entry := map[string]interface{}{
				"name":     goal.Name,
				"target":   goal.Target.InexactFloat64(),
				"saved":    goal.Saved.InexactFloat64(),
				"progress": progress,
			}
			if goal.TargetDate != nil {
				entry["targetDate"] = goal.TargetDate.Format(time.RFC3339)
			}
			goals = append(goals, entry)
		}

		return map[string]interface{}{
			"goals": goals,
			"count": len(goals),
		}, nil
	})
}

func newTransferPreview(repo budget.Repository) tools.Tool {
	return tools.New(tools.Definition{
		Name:        "transfer_preview",
		Description: "Preview moving money between envelopes without committing",
		Category:    Category,
		RiskLevel:   tools.RiskMedium,
		Schema: tools.Schema{Params: []tools.ParamSpec{
			{Name: "userId", Type: tools.ParamString, Description: "User to inspect"},
			{Name: "from", Type: tools.ParamString, Required: true, Description: "Source envelope name"},
			{Name: "to", Type: tools.ParamString, Required: true, Description: "Destination envelope name"},
			{Name: "amount", Type: tools.ParamNumber, Required: true, Rule: "gt=0", Description: "Amount to move"},
		}},
	}, func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
		userID, err := resolveUserID(ctx, params)
		if err != nil {
			return nil, err
		}
		fromName, _ := params["from"].(string)
		toName, _ := params["to"].(string)
		amountFloat, _ := tools.Number(params, "amount")
		amount := decimal.NewFromFloat(amountFloat)

		snapshot, err := repo.GetSnapshot(ctx, userID)
		if err != nil {
			return nil, errors.Wrap(err, "load snapshot")
		}

		var from, to *budget.Envelope
		for i := range snapshot.Envelopes {
			switch snapshot.Envelopes[i].Name {
			case fromName:
				from = &snapshot.Envelopes[i]
			case toName:
				to = &snapshot.Envelopes[i]
			}
		}
		if from == nil || to == nil {
			return nil, errors.Wrapf(errors.ErrNotFound, "envelope %q or %q", fromName, toName)
		}

		feasible := from.Balance.GreaterThanOrEqual(amount)
		return map[string]interface{}{
			"feasible":         feasible,
			"fromBalanceAfter": from.Balance.Sub(amount).InexactFloat64(),
			"toBalanceAfter":   to.Balance.Add(amount).InexactFloat64(),
			"note":             "preview only, nothing was transferred",
		}, nil
	})
}
