package core

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCategoryBreakdown(t *testing.T) {
	now := date(2024, time.March, 15)
	txs := []Transaction{
		{AccountID: "a1", Type: Expense, Category: "food", Amount: Money{Cents: 2000}, Date: date(2024, time.March, 5)},
		{AccountID: "a1", Type: Expense, Category: "food", Amount: Money{Cents: 1500}, Date: date(2024, time.March, 10)},
		{AccountID: "a1", Type: Expense, Category: "food", Amount: Money{Cents: 5000}, Date: date(2024, time.February, 20)},
	}

	got := CategoryBreakdown(txs, "a1", now)
	if len(got) != 1 {
		t.Fatalf("expected 1 category, got %d", len(got))
	}
	if got["food"].Cents != 3500 {
		t.Errorf("food total = %d cents, want 3500", got["food"].Cents)
	}
}

func TestCategoryBreakdown_ExcludesIncomeAndOtherAccounts(t *testing.T) {
	now := date(2024, time.March, 15)
	txs := []Transaction{
		{AccountID: "a1", Type: Income, Category: "salary", Amount: Money{Cents: 500000}, Date: date(2024, time.March, 1)},
		{AccountID: "a2", Type: Expense, Category: "food", Amount: Money{Cents: 900}, Date: date(2024, time.March, 2)},
		{AccountID: "a1", Type: Expense, Category: "travel", Amount: Money{Cents: 12000}, Date: date(2024, time.March, 3)},
	}

	got := CategoryBreakdown(txs, "a1", now)
	if len(got) != 1 {
		t.Fatalf("expected 1 category, got %v", got)
	}
	if _, ok := got["salary"]; ok {
		t.Error("income category must never appear in the breakdown")
	}
	if got["travel"].Cents != 12000 {
		t.Errorf("travel total = %d cents, want 12000", got["travel"].Cents)
	}
}

func TestCategoryBreakdown_EmptyInput(t *testing.T) {
	got := CategoryBreakdown(nil, "a1", date(2024, time.March, 15))
	if len(got) != 0 {
		t.Fatalf("expected empty breakdown, got %v", got)
	}
}

func TestRecentActivity(t *testing.T) {
	var txs []Transaction
	// Ten transactions across two accounts, deliberately out of order.
	days := []int{3, 12, 7, 1, 25, 9, 17, 5, 21, 14}
	for i, d := range days {
		acct := "a1"
		if i%3 == 2 {
			acct = "a2"
		}
		txs = append(txs, Transaction{
			ID:        string(rune('a' + i)),
			AccountID: acct,
			Type:      Expense,
			Category:  "food",
			Amount:    Money{Cents: 100},
			Date:      date(2024, time.March, d),
		})
	}

	got := RecentActivity(txs, "a1")
	if len(got) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Date.After(got[i-1].Date) {
			t.Errorf("entries not sorted by date descending at index %d", i)
		}
	}
	for _, tx := range got {
		if tx.AccountID != "a1" {
			t.Errorf("entry from wrong account: %s", tx.AccountID)
		}
	}
}

func TestRecentActivity_StableTieBreak(t *testing.T) {
	day := date(2024, time.June, 10)
	txs := []Transaction{
		{ID: "first", AccountID: "a1", Date: day},
		{ID: "second", AccountID: "a1", Date: day},
		{ID: "third", AccountID: "a1", Date: day},
	}

	got := RecentActivity(txs, "a1")
	want := []string{"first", "second", "third"}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("tie order broken: position %d = %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestRecentActivity_EmptyInput(t *testing.T) {
	if got := RecentActivity(nil, "a1"); len(got) != 0 {
		t.Fatalf("expected empty list, got %d entries", len(got))
	}
}

func TestMonthExpenseTotal(t *testing.T) {
	now := date(2024, time.March, 15)
	txs := []Transaction{
		{AccountID: "a1", Type: Expense, Category: "food", Amount: Money{Cents: 2000}, Date: date(2024, time.March, 5)},
		{AccountID: "a1", Type: Expense, Category: "travel", Amount: Money{Cents: 3000}, Date: date(2024, time.March, 6)},
		{AccountID: "a1", Type: Expense, Category: "food", Amount: Money{Cents: 7000}, Date: date(2024, time.April, 1)},
	}
	if got := MonthExpenseTotal(txs, "a1", now); got.Cents != 5000 {
		t.Errorf("month total = %d cents, want 5000", got.Cents)
	}
}
