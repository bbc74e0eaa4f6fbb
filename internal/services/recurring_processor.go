package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// RecurringProcessor materializes concrete transactions from recurring
// templates whose next occurrence has come due.
type RecurringProcessor struct {
	store     RecurringStore
	publisher EventPublisher
}

func NewRecurringProcessor(store RecurringStore, publisher EventPublisher) *RecurringProcessor {
	return &RecurringProcessor{
		store:     store,
		publisher: publisher,
	}
}

// ProcessDue materializes every due occurrence of every due template.
// A template that was offline for several intervals catches up in
// order, one occurrence at a time. Returns how many occurrences were
// materialized.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.store == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	templates, err := p.store.DueTemplates(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("load due templates: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring templates",
		"due", len(templates),
		"processing_date", now.Format("2006-01-02"))

	total := 0
	for _, template := range templates {
		n, err := p.MaterializeOccurrences(ctx, template, now)
		total += n
		if err != nil {
			slog.ErrorContext(ctx, "Failed to materialize occurrences",
				"template_id", template.ID,
				"description", template.Description,
				"error", err)
			// Other templates are independent, keep going.
			continue
		}
	}

	slog.InfoContext(ctx, "Recurring processing complete",
		"materialized", total,
		"templates_checked", len(templates))

	return total, nil
}

// MaterializeOccurrences walks the template's schedule from its next
// occurrence up to now, inserting one transaction per occurrence and
// advancing the template's state after each successful insert. On a
// persistence failure the state is left untouched so the occurrence is
// retried on the next run; a duplicate occurrence means another run
// already inserted it, so the state advances without a second insert.
func (p *RecurringProcessor) MaterializeOccurrences(ctx context.Context, template core.Transaction, now time.Time) (int, error) {
	if template.Recurring == nil {
		return 0, fmt.Errorf("transaction %s is not recurring", template.ID)
	}

	today := core.DateOnly(now)
	occurrence := template.Recurring.NextOccurrence
	lastProcessed := template.Recurring.LastProcessed
	materialized := 0

	for !occurrence.After(today) {
		if occurrence.IsZero() {
			return materialized, fmt.Errorf("template %s: %w", template.ID, core.ErrInvalidInterval)
		}

		alreadyProcessed := !lastProcessed.IsZero() && !lastProcessed.Before(occurrence)
		if !alreadyProcessed {
			created, err := p.store.InsertTransaction(ctx, core.Transaction{
				AccountID:   template.AccountID,
				Type:        template.Type,
				Amount:      template.Amount,
				Category:    template.Category,
				Description: template.Description,
				Date:        occurrence,
				TemplateID:  template.ID,
			})
			switch {
			case errors.Is(err, storage.ErrDuplicateOccurrence):
				slog.InfoContext(ctx, "Occurrence already materialized, advancing schedule",
					"template_id", template.ID,
					"occurrence", occurrence.Format("2006-01-02"))
			case err != nil:
				return materialized, fmt.Errorf("materialize occurrence %s: %w",
					occurrence.Format("2006-01-02"), err)
			default:
				materialized++
				p.publishEvent(ctx, created.ID)
				slog.InfoContext(ctx, "Materialized recurring transaction",
					"template_id", template.ID,
					"description", template.Description,
					"amount_cents", template.Amount.Cents,
					"occurrence", occurrence.Format("2006-01-02"))
			}
		}

		next := core.NextOccurrence(occurrence, template.Recurring.Interval, template.Date)
		if next.IsZero() {
			return materialized, fmt.Errorf("template %s: %w", template.ID, core.ErrInvalidInterval)
		}

		if err := p.store.UpdateRecurringState(ctx, template.ID, occurrence, next); err != nil {
			// The occurrence row exists; the unique index makes the
			// retry on the next run a benign duplicate.
			return materialized, fmt.Errorf("advance recurring state: %w", err)
		}

		lastProcessed = occurrence
		occurrence = next
	}

	return materialized, nil
}

func (p *RecurringProcessor) publishEvent(ctx context.Context, transactionID string) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.PublishTransactionEvent(ctx, transactionID, "scheduler"); err != nil {
		slog.ErrorContext(ctx, "Failed to publish scheduler event",
			"transaction_id", transactionID,
			"error", err)
	}
}
