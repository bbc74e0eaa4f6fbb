package services

import (
	"context"
	"time"

	"fintrack/internal/core"
)

// AccountStore is the account persistence surface the services need.
type AccountStore interface {
	CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
	ListAccounts(ctx context.Context) ([]core.Account, error)
	GetAccount(ctx context.Context, id string) (core.Account, error)
	DefaultAccount(ctx context.Context) (core.Account, error)
	SetDefaultAccount(ctx context.Context, id string) error
}

// TransactionStore is the transaction persistence surface.
type TransactionStore interface {
	InsertTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) error
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	ListTransactions(ctx context.Context, accountID string) ([]core.Transaction, error)
}

// BudgetStore is the budget persistence surface.
type BudgetStore interface {
	GetBudget(ctx context.Context, accountID string) (*core.Budget, error)
	UpsertBudget(ctx context.Context, accountID string, amount core.Money) (core.Budget, error)
}

// RecurringStore is what the scheduler needs from persistence.
type RecurringStore interface {
	DueTemplates(ctx context.Context, now time.Time) ([]core.Transaction, error)
	InsertTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	UpdateRecurringState(ctx context.Context, templateID string, lastProcessed, nextOccurrence time.Time) error
}

// EventPublisher pushes transaction events onto the message broker.
// Publishing is best effort: callers log failures and carry on.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, transactionID, source string) error
}
