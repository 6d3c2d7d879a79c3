package plan

// Strategy labels used by the rule planner.
const (
	StrategyWithHistory = "with_history"
	StrategyNoHistory   = "no_history"
)

// DefaultSteps returns the fixed step order used when no planning collaborator runs.
func DefaultSteps(enableHistory bool) []string {
	if enableHistory {
		return []string{"parse", "translate", "timeline", "narrate", "review", "brief"}
	}
	return []string{"parse", "translate", "narrate", "review", "brief"}
}

// Default builds the rule-based plan.
func Default(enableHistory bool) Plan {
	strategy := StrategyNoHistory
	if enableHistory {
		strategy = StrategyWithHistory
	}
	return Plan{
		Strategy:      strategy,
		Steps:         DefaultSteps(enableHistory),
		EnableHistory: enableHistory,
	}
}
