package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

var (
	// ErrNotFound signals that a referenced account, transaction or
	// budget does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateOccurrence signals that a recurring occurrence was
	// already materialized, typically by a concurrent scheduler run.
	ErrDuplicateOccurrence = errors.New("occurrence already materialized")
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateAccount persists a new account. The first account a user creates
// becomes the default automatically; an explicit default request clears
// the flag on every other account in the same transaction.
func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Account{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existing int64
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&existing); err != nil {
		return core.Account{}, fmt.Errorf("count accounts: %w", err)
	}
	if existing == 0 {
		a.IsDefault = true
	}
	if a.IsDefault {
		if _, err := tx.ExecContext(ctx, `UPDATE accounts SET is_default = 0`); err != nil {
			return core.Account{}, fmt.Errorf("clear default flags: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO accounts (id, name, type, balance_cents, is_default) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.Name, string(a.Type), a.Balance.Cents, boolToInt(a.IsDefault))
	if err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.Account{}, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Account created",
		"id", a.ID,
		"name", a.Name,
		"type", a.Type,
		"is_default", a.IsDefault)

	return a, nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, type, balance_cents, is_default, transaction_count
		 FROM accounts ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		var (
			a         core.Account
			acctType  string
			isDefault int
		)
		if err := rows.Scan(&a.ID, &a.Name, &acctType, &a.Balance.Cents, &isDefault, &a.TransactionCount); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.Type = core.AccountType(acctType)
		a.IsDefault = isDefault != 0
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id string) (core.Account, error) {
	var (
		a         core.Account
		acctType  string
		isDefault int
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, type, balance_cents, is_default, transaction_count
		 FROM accounts WHERE id = ?`, id).
		Scan(&a.ID, &a.Name, &acctType, &a.Balance.Cents, &isDefault, &a.TransactionCount)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	a.Type = core.AccountType(acctType)
	a.IsDefault = isDefault != 0
	return a, nil
}

// DefaultAccount returns the account currently flagged as default.
func (r *SQLiteRepository) DefaultAccount(ctx context.Context) (core.Account, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM accounts WHERE is_default = 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("default account: %w", ErrNotFound)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get default account: %w", err)
	}
	return r.GetAccount(ctx, id)
}

// SetDefaultAccount makes the given account the single default: every
// flag is cleared and exactly one is set, inside one transaction.
func (r *SQLiteRepository) SetDefaultAccount(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE accounts SET is_default = 0`); err != nil {
		return fmt.Errorf("clear default flags: %w", err)
	}

	res, err := tx.ExecContext(ctx, `UPDATE accounts SET is_default = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("set default flag: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("account %s: %w", id, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Default account updated", "id", id)
	return nil
}

// InsertTransaction persists a transaction and applies its balance delta
// (INCOME adds, EXPENSE subtracts) plus the transaction-count bump to the
// owning account, all in one SQL transaction. A materialized occurrence
// that collides with the unique (template, date) index returns
// ErrDuplicateOccurrence.
func (r *SQLiteRepository) InsertTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var interval, nextOccurrence, lastProcessed, templateID any
	if t.Recurring != nil {
		interval = string(t.Recurring.Interval)
		nextOccurrence = t.Recurring.NextOccurrence.Format(dateLayout)
		if !t.Recurring.LastProcessed.IsZero() {
			lastProcessed = t.Recurring.LastProcessed.Format(dateLayout)
		}
	}
	if t.TemplateID != "" {
		templateID = t.TemplateID
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO transactions
		 (id, account_id, type, amount_cents, category, description, tx_date,
		  recurring_interval, next_occurrence, last_processed, source_template_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AccountID, string(t.Type), t.Amount.Cents, t.Category, t.Description,
		t.Date.Format(dateLayout), interval, nextOccurrence, lastProcessed, templateID)
	if err != nil {
		if isUniqueViolation(err) && t.TemplateID != "" {
			return core.Transaction{}, fmt.Errorf("template %s on %s: %w",
				t.TemplateID, t.Date.Format(dateLayout), ErrDuplicateOccurrence)
		}
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE accounts
		 SET balance_cents = balance_cents + ?, transaction_count = transaction_count + 1
		 WHERE id = ?`,
		balanceDelta(t), t.AccountID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("apply balance delta: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return core.Transaction{}, fmt.Errorf("rows affected: %w", err)
	} else if affected == 0 {
		return core.Transaction{}, fmt.Errorf("account %s: %w", t.AccountID, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"account_id", t.AccountID,
		"type", t.Type,
		"amount_cents", t.Amount.Cents,
		"category", t.Category,
		"date", t.Date.Format(dateLayout))

	return t, nil
}

// UpdateTransaction overwrites an existing transaction's editable fields.
// The old balance delta is reversed and the new one applied atomically,
// across both accounts when the transaction moved.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	old, err := r.GetTransaction(ctx, t.ID)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var interval, nextOccurrence, lastProcessed any
	if t.Recurring != nil {
		interval = string(t.Recurring.Interval)
		nextOccurrence = t.Recurring.NextOccurrence.Format(dateLayout)
		if !t.Recurring.LastProcessed.IsZero() {
			lastProcessed = t.Recurring.LastProcessed.Format(dateLayout)
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE transactions
		 SET account_id = ?, type = ?, amount_cents = ?, category = ?, description = ?,
		     tx_date = ?, recurring_interval = ?, next_occurrence = ?, last_processed = ?
		 WHERE id = ?`,
		t.AccountID, string(t.Type), t.Amount.Cents, t.Category, t.Description,
		t.Date.Format(dateLayout), interval, nextOccurrence, lastProcessed, t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts
		 SET balance_cents = balance_cents - ?,
		     transaction_count = transaction_count - 1
		 WHERE id = ?`,
		balanceDelta(old), old.AccountID); err != nil {
		return fmt.Errorf("reverse old balance delta: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE accounts
		 SET balance_cents = balance_cents + ?,
		     transaction_count = transaction_count + 1
		 WHERE id = ?`,
		balanceDelta(t), t.AccountID)
	if err != nil {
		return fmt.Errorf("apply new balance delta: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("rows affected: %w", err)
	} else if affected == 0 {
		return fmt.Errorf("account %s: %w", t.AccountID, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Transaction updated", "id", t.ID, "account_id", t.AccountID)
	return nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, selectTransaction+` WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// ListTransactions returns an account's transactions in arrival order,
// which the aggregation layer relies on for stable tie-breaking. An
// empty accountID lists every transaction.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, accountID string) ([]core.Transaction, error) {
	query := selectTransaction
	args := []any{}
	if accountID != "" {
		query += ` WHERE account_id = ?`
		args = append(args, accountID)
	}
	query += ` ORDER BY rowid`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DueTemplates returns recurring templates whose next occurrence is on
// or before now, ordered oldest first.
func (r *SQLiteRepository) DueTemplates(ctx context.Context, now time.Time) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		selectTransaction+`
		 WHERE recurring_interval IS NOT NULL AND next_occurrence <= ?
		 ORDER BY next_occurrence`,
		core.DateOnly(now).Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("list due templates: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateRecurringState advances a template's bookkeeping after a
// successful materialization.
func (r *SQLiteRepository) UpdateRecurringState(ctx context.Context, templateID string, lastProcessed, nextOccurrence time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET last_processed = ?, next_occurrence = ?
		 WHERE id = ? AND recurring_interval IS NOT NULL`,
		lastProcessed.Format(dateLayout), nextOccurrence.Format(dateLayout), templateID)
	if err != nil {
		return fmt.Errorf("update recurring state: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("template %s: %w", templateID, ErrNotFound)
	}
	return nil
}

// GetBudget returns the account's budget, or nil when none is set.
func (r *SQLiteRepository) GetBudget(ctx context.Context, accountID string) (*core.Budget, error) {
	var b core.Budget
	err := r.db.QueryRowContext(ctx,
		`SELECT id, account_id, amount_cents FROM budgets WHERE account_id = ?`, accountID).
		Scan(&b.ID, &b.AccountID, &b.Amount.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	return &b, nil
}

// UpsertBudget creates the account's budget row or overwrites its amount.
func (r *SQLiteRepository) UpsertBudget(ctx context.Context, accountID string, amount core.Money) (core.Budget, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (id, account_id, amount_cents) VALUES (?, ?, ?)
		 ON CONFLICT(account_id) DO UPDATE SET
		     amount_cents = excluded.amount_cents,
		     updated_at = CURRENT_TIMESTAMP`,
		uuid.NewString(), accountID, amount.Cents)
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}

	budget, err := r.GetBudget(ctx, accountID)
	if err != nil {
		return core.Budget{}, err
	}
	if budget == nil {
		return core.Budget{}, fmt.Errorf("budget for account %s: %w", accountID, ErrNotFound)
	}

	slog.InfoContext(ctx, "Budget upserted",
		"account_id", accountID,
		"amount_cents", amount.Cents)

	return *budget, nil
}

// Event is one row of the transaction audit trail maintained by the
// events worker.
type Event struct {
	ID            int64
	TransactionID string
	Source        string
	OccurredAt    time.Time
}

func (r *SQLiteRepository) RecordEvent(ctx context.Context, transactionID, source string, occurredAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO events (transaction_id, source, occurred_at) VALUES (?, ?, ?)`,
		transactionID, source, occurredAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListEvents(ctx context.Context, limit int) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, transaction_id, source, occurred_at
		 FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e  Event
			ts string
		)
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.Source, &ts); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.OccurredAt, err = time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("parse event timestamp: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PruneEvents drops audit rows older than the cutoff and returns how
// many were removed.
func (r *SQLiteRepository) PruneEvents(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM events WHERE occurred_at < ?`, before.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return removed, nil
}

const selectTransaction = `SELECT id, account_id, type, amount_cents, category, description,
	tx_date, recurring_interval, next_occurrence, last_processed, source_template_id
	FROM transactions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t          core.Transaction
		txType     string
		txDate     string
		interval   sql.NullString
		nextOcc    sql.NullString
		lastProc   sql.NullString
		templateID sql.NullString
	)
	if err := row.Scan(&t.ID, &t.AccountID, &txType, &t.Amount.Cents, &t.Category,
		&t.Description, &txDate, &interval, &nextOcc, &lastProc, &templateID); err != nil {
		return core.Transaction{}, err
	}

	t.Type = core.TransactionType(txType)
	date, err := time.Parse(dateLayout, txDate)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse tx date %q: %w", txDate, err)
	}
	t.Date = date

	if interval.Valid {
		rec := &core.Recurrence{Interval: core.RecurringInterval(interval.String)}
		if nextOcc.Valid {
			if rec.NextOccurrence, err = time.Parse(dateLayout, nextOcc.String); err != nil {
				return core.Transaction{}, fmt.Errorf("parse next occurrence %q: %w", nextOcc.String, err)
			}
		}
		if lastProc.Valid {
			if rec.LastProcessed, err = time.Parse(dateLayout, lastProc.String); err != nil {
				return core.Transaction{}, fmt.Errorf("parse last processed %q: %w", lastProc.String, err)
			}
		}
		t.Recurring = rec
	}
	if templateID.Valid {
		t.TemplateID = templateID.String
	}
	return t, nil
}

func balanceDelta(t core.Transaction) int64 {
	if t.Type == core.Expense {
		return -t.Amount.Cents
	}
	return t.Amount.Cents
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
