package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
)

// BudgetService computes budget status and manages the monthly limit.
type BudgetService struct {
	budgets      BudgetStore
	transactions TransactionStore
}

func NewBudgetService(budgets BudgetStore, transactions TransactionStore) *BudgetService {
	return &BudgetService{
		budgets:      budgets,
		transactions: transactions,
	}
}

// Status evaluates the account's budget against the current month's
// expense total. An account without a budget gets the distinct
// no-budget status rather than a zero-percent one.
func (s *BudgetService) Status(ctx context.Context, accountID string, now time.Time) (core.BudgetStatus, error) {
	budget, err := s.budgets.GetBudget(ctx, accountID)
	if err != nil {
		return core.BudgetStatus{}, fmt.Errorf("load budget: %w", err)
	}

	txs, err := s.transactions.ListTransactions(ctx, accountID)
	if err != nil {
		return core.BudgetStatus{}, fmt.Errorf("load transactions: %w", err)
	}

	spent := core.MonthExpenseTotal(txs, accountID, now)
	return core.EvaluateBudget(budget, spent), nil
}

// Update sets the account's monthly budget. Only strictly positive
// amounts are accepted.
func (s *BudgetService) Update(ctx context.Context, accountID string, amount core.Money) (core.Budget, error) {
	if amount.Cents <= 0 {
		return core.Budget{}, fmt.Errorf("budget amount must be positive: %w", core.ErrInvalidAmount)
	}

	budget, err := s.budgets.UpsertBudget(ctx, accountID, amount)
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget updated",
		"account_id", accountID,
		"amount_cents", amount.Cents)

	return budget, nil
}
