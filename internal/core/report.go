package core

import (
	"sort"
	"time"
)

// recentActivityLimit caps the dashboard's latest-activity list.
const recentActivityLimit = 5

// RecentActivity returns the most recent transactions for the given
// account, newest first. Transactions sharing a date keep their arrival
// order. At most five entries are returned; an empty input yields an
// empty result.
func RecentActivity(txs []Transaction, accountID string) []Transaction {
	out := make([]Transaction, 0, recentActivityLimit)
	for _, tx := range txs {
		if tx.AccountID == accountID {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	if len(out) > recentActivityLimit {
		out = out[:recentActivityLimit]
	}
	return out
}

// CategoryBreakdown sums the account's EXPENSE transactions that fall in
// now's calendar month, grouped by category. Categories without matching
// transactions are absent from the result; INCOME transactions never
// contribute. Month membership is decided on the stored calendar date in
// UTC, the application's canonical zone.
func CategoryBreakdown(txs []Transaction, accountID string, now time.Time) map[string]Money {
	year, month, _ := now.UTC().Date()
	breakdown := make(map[string]Money)
	for _, tx := range txs {
		if tx.AccountID != accountID || tx.Type != Expense {
			continue
		}
		ty, tm, _ := tx.Date.UTC().Date()
		if ty != year || tm != month {
			continue
		}
		total := breakdown[tx.Category]
		total.Cents += tx.Amount.Cents
		breakdown[tx.Category] = total
	}
	return breakdown
}

// MonthExpenseTotal is the sum of an account's EXPENSE transactions in
// now's calendar month, the figure the budget evaluator consumes.
func MonthExpenseTotal(txs []Transaction, accountID string, now time.Time) Money {
	var total Money
	for _, amount := range CategoryBreakdown(txs, accountID, now) {
		total.Cents += amount.Cents
	}
	return total
}
