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

// fakeRecurringStore mimics the persistence semantics the processor
// depends on: a unique (template, date) constraint and per-template
// scheduling state.
type fakeRecurringStore struct {
	templates  map[string]core.Transaction
	inserted   []core.Transaction
	seen       map[string]bool
	failInsert error
	failState  error
}

func newFakeRecurringStore(templates ...core.Transaction) *fakeRecurringStore {
	s := &fakeRecurringStore{
		templates: make(map[string]core.Transaction),
		seen:      make(map[string]bool),
	}
	for _, t := range templates {
		s.templates[t.ID] = t
	}
	return s
}

func (s *fakeRecurringStore) DueTemplates(_ context.Context, now time.Time) ([]core.Transaction, error) {
	var due []core.Transaction
	for _, t := range s.templates {
		if t.Recurring != nil && !t.Recurring.NextOccurrence.After(core.DateOnly(now)) {
			due = append(due, t)
		}
	}
	return due, nil
}

func (s *fakeRecurringStore) InsertTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if s.failInsert != nil {
		return core.Transaction{}, s.failInsert
	}
	key := t.TemplateID + "|" + t.Date.Format("2006-01-02")
	if t.TemplateID != "" && s.seen[key] {
		return core.Transaction{}, storage.ErrDuplicateOccurrence
	}
	s.seen[key] = true
	t.ID = fmt.Sprintf("tx-%d", len(s.inserted)+1)
	s.inserted = append(s.inserted, t)
	return t, nil
}

func (s *fakeRecurringStore) UpdateRecurringState(_ context.Context, templateID string, lastProcessed, next time.Time) error {
	if s.failState != nil {
		return s.failState
	}
	t, ok := s.templates[templateID]
	if !ok {
		return storage.ErrNotFound
	}
	t.Recurring = &core.Recurrence{
		Interval:       t.Recurring.Interval,
		NextOccurrence: next,
		LastProcessed:  lastProcessed,
	}
	s.templates[templateID] = t
	return nil
}

func monthlyTemplate(id string, start, next time.Time) core.Transaction {
	return core.Transaction{
		ID:          id,
		AccountID:   "acct-1",
		Type:        core.Expense,
		Amount:      core.Money{Cents: 120000},
		Category:    "housing",
		Description: "Rent",
		Date:        start,
		Recurring: &core.Recurrence{
			Interval:       core.Monthly,
			NextOccurrence: next,
		},
	}
}

func TestProcessDue_SingleOccurrence(t *testing.T) {
	start := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	store := newFakeRecurringStore(monthlyTemplate("tmpl-rent", start, start.AddDate(0, 1, 0)))
	processor := NewRecurringProcessor(store, nil)

	n, err := processor.ProcessDue(context.Background(), time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ProcessDue() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("ProcessDue() = %d, want 1", n)
	}

	tx := store.inserted[0]
	if tx.TemplateID != "tmpl-rent" {
		t.Errorf("template id = %q, want tmpl-rent", tx.TemplateID)
	}
	if tx.Recurring != nil {
		t.Error("materialized occurrence must not itself be recurring")
	}
	if want := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC); !tx.Date.Equal(want) {
		t.Errorf("occurrence date = %v, want %v", tx.Date, want)
	}

	state := store.templates["tmpl-rent"].Recurring
	if want := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC); !state.NextOccurrence.Equal(want) {
		t.Errorf("next occurrence = %v, want %v", state.NextOccurrence, want)
	}
	if want := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC); !state.LastProcessed.Equal(want) {
		t.Errorf("last processed = %v, want %v", state.LastProcessed, want)
	}
}

func TestProcessDue_CatchesUpInOrder(t *testing.T) {
	// Three missed months while the worker was offline.
	start := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)
	store := newFakeRecurringStore(monthlyTemplate("tmpl-rent", start, start.AddDate(0, 1, 0)))
	processor := NewRecurringProcessor(store, nil)

	n, err := processor.ProcessDue(context.Background(), time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ProcessDue() error = %v", err)
	}
	if n != 3 {
		t.Fatalf("ProcessDue() = %d, want 3", n)
	}

	var got []string
	for _, tx := range store.inserted {
		got = append(got, tx.Date.Format("2006-01-02"))
	}
	want := []string{"2026-05-10", "2026-06-10", "2026-07-10"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("occurrence %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestProcessDue_NotDueYet(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	store := newFakeRecurringStore(monthlyTemplate("tmpl-rent", start, start.AddDate(0, 1, 0)))
	processor := NewRecurringProcessor(store, nil)

	n, err := processor.ProcessDue(context.Background(), time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ProcessDue() error = %v", err)
	}
	if n != 0 {
		t.Errorf("ProcessDue() = %d, want 0", n)
	}
	if len(store.inserted) != 0 {
		t.Errorf("inserted %d transactions, want 0", len(store.inserted))
	}
}

func TestProcessDue_Idempotent(t *testing.T) {
	start := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	store := newFakeRecurringStore(monthlyTemplate("tmpl-rent", start, start.AddDate(0, 1, 0)))
	processor := NewRecurringProcessor(store, nil)
	now := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	for run := 0; run < 3; run++ {
		if _, err := processor.ProcessDue(context.Background(), now); err != nil {
			t.Fatalf("ProcessDue() run %d error = %v", run, err)
		}
	}

	if len(store.inserted) != 1 {
		t.Errorf("inserted %d transactions across repeated runs, want 1", len(store.inserted))
	}
}

func TestMaterializeOccurrences_DuplicateIsBenign(t *testing.T) {
	// Another run inserted the occurrence but crashed before advancing
	// the template's state. The retry must advance without a second
	// insert and without reporting an error.
	start := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	template := monthlyTemplate("tmpl-rent", start, start.AddDate(0, 1, 0))
	store := newFakeRecurringStore(template)
	store.seen["tmpl-rent|2026-08-15"] = true
	processor := NewRecurringProcessor(store, nil)

	n, err := processor.MaterializeOccurrences(context.Background(), template, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("MaterializeOccurrences() error = %v", err)
	}
	if n != 0 {
		t.Errorf("materialized = %d, want 0", n)
	}

	state := store.templates["tmpl-rent"].Recurring
	if want := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC); !state.NextOccurrence.Equal(want) {
		t.Errorf("next occurrence = %v, want %v", state.NextOccurrence, want)
	}
}

func TestMaterializeOccurrences_InsertFailureLeavesStateUntouched(t *testing.T) {
	start := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	next := start.AddDate(0, 1, 0)
	template := monthlyTemplate("tmpl-rent", start, next)
	store := newFakeRecurringStore(template)
	store.failInsert = errors.New("disk full")
	processor := NewRecurringProcessor(store, nil)

	n, err := processor.MaterializeOccurrences(context.Background(), template, time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC))
	if err == nil {
		t.Fatal("MaterializeOccurrences() expected error")
	}
	if n != 0 {
		t.Errorf("materialized = %d, want 0", n)
	}

	state := store.templates["tmpl-rent"].Recurring
	if !state.NextOccurrence.Equal(next) {
		t.Errorf("next occurrence moved to %v despite failure, want %v", state.NextOccurrence, next)
	}
	if !state.LastProcessed.IsZero() {
		t.Errorf("last processed = %v despite failure, want zero", state.LastProcessed)
	}
}

func TestMaterializeOccurrences_MonthEndAnchor(t *testing.T) {
	// A template anchored on the 31st clamps short months but returns
	// to the 31st when the month allows it.
	start := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	template := monthlyTemplate("tmpl-rent", start, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC))
	store := newFakeRecurringStore(template)
	processor := NewRecurringProcessor(store, nil)

	n, err := processor.MaterializeOccurrences(context.Background(), template, time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("MaterializeOccurrences() error = %v", err)
	}
	if n != 3 {
		t.Fatalf("materialized = %d, want 3", n)
	}

	want := []string{"2026-02-28", "2026-03-31", "2026-04-30"}
	for i, tx := range store.inserted {
		if got := tx.Date.Format("2006-01-02"); got != want[i] {
			t.Errorf("occurrence %d = %s, want %s", i, got, want[i])
		}
	}
}

func TestMaterializeOccurrences_NotRecurring(t *testing.T) {
	store := newFakeRecurringStore()
	processor := NewRecurringProcessor(store, nil)

	_, err := processor.MaterializeOccurrences(context.Background(), core.Transaction{ID: "tx-1"}, time.Now())
	if err == nil {
		t.Fatal("MaterializeOccurrences() expected error for non-recurring transaction")
	}
}
