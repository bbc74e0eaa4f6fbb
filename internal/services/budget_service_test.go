package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type fakeBudgetStore struct {
	budgets map[string]*core.Budget
}

func (s *fakeBudgetStore) GetBudget(_ context.Context, accountID string) (*core.Budget, error) {
	return s.budgets[accountID], nil
}

func (s *fakeBudgetStore) UpsertBudget(_ context.Context, accountID string, amount core.Money) (core.Budget, error) {
	b := core.Budget{ID: "b-" + accountID, AccountID: accountID, Amount: amount}
	if s.budgets == nil {
		s.budgets = make(map[string]*core.Budget)
	}
	s.budgets[accountID] = &b
	return b, nil
}

type fakeTransactionStore struct {
	txs []core.Transaction
}

func (s *fakeTransactionStore) InsertTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.txs = append(s.txs, t)
	return t, nil
}

func (s *fakeTransactionStore) UpdateTransaction(_ context.Context, t core.Transaction) error {
	for i, old := range s.txs {
		if old.ID == t.ID {
			s.txs[i] = t
			return nil
		}
	}
	return fmt.Errorf("transaction %s: %w", t.ID, storage.ErrNotFound)
}

func (s *fakeTransactionStore) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	for _, t := range s.txs {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, storage.ErrNotFound)
}

func (s *fakeTransactionStore) ListTransactions(_ context.Context, accountID string) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, t := range s.txs {
		if accountID == "" || t.AccountID == accountID {
			out = append(out, t)
		}
	}
	return out, nil
}

func TestBudgetStatus_OverBudget(t *testing.T) {
	now := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	budgets := &fakeBudgetStore{budgets: map[string]*core.Budget{
		"acct-1": {ID: "b-1", AccountID: "acct-1", Amount: core.Money{Cents: 100000}},
	}}
	txs := &fakeTransactionStore{txs: []core.Transaction{
		{AccountID: "acct-1", Type: core.Expense, Amount: core.Money{Cents: 92000},
			Category: "housing", Date: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)},
		{AccountID: "acct-1", Type: core.Income, Amount: core.Money{Cents: 250000},
			Category: "salary", Date: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)},
		{AccountID: "acct-1", Type: core.Expense, Amount: core.Money{Cents: 50000},
			Category: "travel", Date: time.Date(2026, 7, 12, 0, 0, 0, 0, time.UTC)},
	}}

	status, err := NewBudgetService(budgets, txs).Status(context.Background(), "acct-1", now)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}

	if status.Tier != core.TierOverBudget {
		t.Errorf("tier = %s, want %s", status.Tier, core.TierOverBudget)
	}
	if status.PercentUsed != 92.0 {
		t.Errorf("percent used = %v, want 92", status.PercentUsed)
	}
	if status.Remaining.Cents != 8000 {
		t.Errorf("remaining = %d cents, want 8000", status.Remaining.Cents)
	}
}

func TestBudgetStatus_NoBudget(t *testing.T) {
	budgets := &fakeBudgetStore{}
	txs := &fakeTransactionStore{}

	status, err := NewBudgetService(budgets, txs).Status(context.Background(), "acct-1", time.Now())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.Tier != core.TierNoBudget || status.HasBudget {
		t.Errorf("status = %+v, want no-budget", status)
	}
}

func TestBudgetUpdate_RejectsNonPositive(t *testing.T) {
	service := NewBudgetService(&fakeBudgetStore{}, &fakeTransactionStore{})

	for _, cents := range []int64{0, -500} {
		_, err := service.Update(context.Background(), "acct-1", core.Money{Cents: cents})
		if !errors.Is(err, core.ErrInvalidAmount) {
			t.Errorf("Update(%d) error = %v, want ErrInvalidAmount", cents, err)
		}
	}
}

func TestBudgetUpdate_Upserts(t *testing.T) {
	service := NewBudgetService(&fakeBudgetStore{}, &fakeTransactionStore{})

	budget, err := service.Update(context.Background(), "acct-1", core.Money{Cents: 150000})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if budget.Amount.Cents != 150000 {
		t.Errorf("amount = %d, want 150000", budget.Amount.Cents)
	}
}
