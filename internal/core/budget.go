package core

const (
	TierNoBudget   BudgetTier = "NO_BUDGET"
	TierOnTrack    BudgetTier = "ON_TRACK"
	TierHighUsage  BudgetTier = "HIGH_USAGE"
	TierOverBudget BudgetTier = "OVER_BUDGET"
)

// Usage thresholds, evaluated highest first.
const (
	overBudgetPercent = 90.0
	highUsagePercent  = 75.0
)

type (
	BudgetTier string

	// BudgetStatus is the evaluated health of a monthly budget.
	// HasBudget distinguishes "no budget configured" from a genuine 0%
	// usage reading.
	BudgetStatus struct {
		Tier        BudgetTier
		HasBudget   bool
		Limit       Money
		Spent       Money
		Remaining   Money
		PercentUsed float64
	}
)

// EvaluateBudget classifies the current month's spending against an
// optional budget. A nil budget yields the NO_BUDGET tier, which takes
// precedence over all percentage logic. A zero budget limit never
// divides: it reads as over budget when anything was spent, otherwise
// on track at 0%.
func EvaluateBudget(budget *Budget, spent Money) BudgetStatus {
	if budget == nil {
		return BudgetStatus{Tier: TierNoBudget, Spent: spent}
	}

	status := BudgetStatus{
		HasBudget: true,
		Limit:     budget.Amount,
		Spent:     spent,
		Remaining: Money{Cents: budget.Amount.Cents - spent.Cents},
	}

	if budget.Amount.Cents == 0 {
		if spent.Cents > 0 {
			status.Tier = TierOverBudget
			status.PercentUsed = 100.0
		} else {
			status.Tier = TierOnTrack
		}
		return status
	}

	status.PercentUsed = spent.Float64() / budget.Amount.Float64() * 100.0

	switch {
	case status.PercentUsed >= overBudgetPercent:
		status.Tier = TierOverBudget
	case status.PercentUsed >= highUsagePercent:
		status.Tier = TierHighUsage
	default:
		status.Tier = TierOnTrack
	}
	return status
}
