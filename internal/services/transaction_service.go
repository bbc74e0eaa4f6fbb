package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
)

// TransactionService orchestrates transaction writes across SQLite and
// the event broker.
type TransactionService struct {
	store     TransactionStore
	publisher EventPublisher
}

func NewTransactionService(store TransactionStore, publisher EventPublisher) *TransactionService {
	return &TransactionService{
		store:     store,
		publisher: publisher,
	}
}

// Create validates and persists a transaction. For a recurring template
// the first occurrence is scheduled one interval after the start date.
func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.Date = core.DateOnly(t.Date)

	if err := t.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validate transaction: %w", err)
	}

	if t.Recurring != nil && t.Recurring.NextOccurrence.IsZero() {
		t.Recurring.NextOccurrence = core.NextOccurrence(t.Date, t.Recurring.Interval, t.Date)
	}

	created, err := s.store.InsertTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	// Publish async event. The transaction is already saved locally, so
	// a broker failure must not fail the request.
	s.publishEvent(ctx, created.ID, "api")

	return created, nil
}

// Update overwrites an existing transaction's editable fields. An edit
// must not wipe a recurring template's schedule: the stored occurrence
// state is carried over when the recurrence is unchanged, and reseeded
// one interval after the new start date when the recurrence is new or
// its interval or date moved.
func (s *TransactionService) Update(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.Date = core.DateOnly(t.Date)

	if err := t.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validate transaction: %w", err)
	}

	old, err := s.store.GetTransaction(ctx, t.ID)
	if err != nil {
		return core.Transaction{}, err
	}

	if t.Recurring != nil && t.Recurring.NextOccurrence.IsZero() {
		unchanged := old.Recurring != nil &&
			old.Recurring.Interval == t.Recurring.Interval &&
			old.Date.Equal(t.Date)
		if unchanged {
			t.Recurring.NextOccurrence = old.Recurring.NextOccurrence
			t.Recurring.LastProcessed = old.Recurring.LastProcessed
		} else {
			t.Recurring.NextOccurrence = core.NextOccurrence(t.Date, t.Recurring.Interval, t.Date)
			t.Recurring.LastProcessed = time.Time{}
		}
	}

	if err := s.store.UpdateTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	s.publishEvent(ctx, t.ID, "api")

	return s.store.GetTransaction(ctx, t.ID)
}

func (s *TransactionService) Get(ctx context.Context, id string) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

func (s *TransactionService) List(ctx context.Context, accountID string) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, accountID)
}

func (s *TransactionService) publishEvent(ctx context.Context, transactionID, source string) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Event publisher not available, skipping transaction event")
		return
	}
	if err := s.publisher.PublishTransactionEvent(ctx, transactionID, source); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"transaction_id", transactionID,
			"error", err)
	}
}
