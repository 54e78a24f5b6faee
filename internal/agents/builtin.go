package agents

import "time"

// Builtin returns the stock agent roster. The orchestrator registers these at
// startup; deployments can register additional agents before the freeze.
func Builtin() []*Definition {
	return []*Definition{
		{
			Name:        "budget_coach",
			Description: "Guides envelope budgeting, allocations, and overspend recovery",
			Instructions: "You are a supportive budgeting coach. Help the user manage " +
				"their envelope budgets: review allocations, explain variances, and " +
				"suggest realistic adjustments. Use the budgeting tools for every " +
				"number you cite; never estimate amounts from memory. Keep advice " +
				"specific to the user's actual envelopes.",
			RiskLevel:         RiskLow,
			Priority:          2,
			EstimatedDuration: 15 * time.Second,
			Tools: []string{
				"budget_analysis", "envelope_overview", "transfer_preview", "get_memory_profile",
			},
			HandoffTargets: []string{"transaction_analyst", "insight_advisor", "escalation"},
		},
		{
			Name:        "transaction_analyst",
			Description: "Digs into transaction history and spending patterns",
			Instructions: "You analyze the user's transactions. Answer questions about " +
				"where money went, surface category totals and trends, and flag " +
				"unusual activity. Ground every figure in tool output.",
			RiskLevel:         RiskLow,
			Priority:          3,
			EstimatedDuration: 15 * time.Second,
			Tools: []string{
				"budget_analysis", "spending_trends", "store_insight",
			},
			HandoffTargets: []string{"budget_coach", "insight_advisor", "escalation"},
		},
		{
			Name:        "insight_advisor",
			Description: "Turns spending patterns and goals into personalized advice",
			Instructions: "You give forward-looking financial advice. Combine the " +
				"user's goals, remembered preferences, and recent spending into " +
				"concrete next steps. Record durable observations with the memory " +
				"tools so future sessions benefit.",
			RiskLevel:         RiskMedium,
			Priority:          4,
			EstimatedDuration: 20 * time.Second,
			Tools: []string{
				"goal_progress", "spending_trends", "get_memory_profile", "get_recommendations", "store_insight",
			},
			HandoffTargets: []string{"budget_coach", "memory_curator", "escalation"},
		},
		{
			Name:        "memory_curator",
			Description: "Maintains what the system remembers about the user",
			Instructions: "You manage the user's memory profile. Store preferences " +
				"they state, correct outdated ones, and summarize what is currently " +
				"remembered when asked. Confirm every write back to the user.",
			RiskLevel:         RiskMedium,
			Priority:          5,
			EstimatedDuration: 10 * time.Second,
			Tools: []string{
				"store_preference", "store_insight", "get_memory_profile",
			},
			HandoffTargets: []string{"budget_coach", "escalation"},
		},
		{
			Name:        "general_assistant",
			Description: "Default front door for anything without a clear specialist",
			Instructions: "You are the first point of contact for a personal finance " +
				"assistant. Answer general questions directly and briefly. When a " +
				"question clearly belongs to a specialist agent, hand the " +
				"conversation off instead of improvising.",
			RiskLevel:         RiskLow,
			Priority:          1,
			EstimatedDuration: 10 * time.Second,
			Tools: []string{
				"envelope_overview", "get_memory_profile",
			},
			HandoffTargets: []string{
				"budget_coach", "transaction_analyst", "insight_advisor", "memory_curator", "escalation",
			},
		},
		{
			Name:        "escalation",
			Description: "Terminal fallback when automated coaching cannot help",
			Instructions: "You handle conversations the other agents could not " +
				"resolve. Acknowledge the difficulty, summarize what was attempted, " +
				"and explain how the user can reach human support. Do not attempt " +
				"further automated fixes.",
			RiskLevel:         RiskHigh,
			Priority:          10,
			RequiresAuth:      false,
			EstimatedDuration: 10 * time.Second,
			Tools:             []string{"get_memory_profile"},
			HandoffTargets:    nil,
		},
	}
}
