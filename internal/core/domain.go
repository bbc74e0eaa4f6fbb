package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

const (
	Current AccountType = "CURRENT"
	Savings AccountType = "SAVINGS"
)

const (
	Daily   RecurringInterval = "DAILY"
	Weekly  RecurringInterval = "WEEKLY"
	Monthly RecurringInterval = "MONTHLY"
	Yearly  RecurringInterval = "YEARLY"
)

type (
	TransactionType   string
	AccountType       string
	RecurringInterval string

	Money struct {
		Cents int64
	}

	Account struct {
		ID               string
		Name             string
		Type             AccountType
		Balance          Money // signed; expenses may drive it negative
		IsDefault        bool
		TransactionCount int64
	}

	// Recurrence carries the schedule state of a recurring transaction
	// template. A Transaction with a nil Recurring pointer is a one-off;
	// the invalid "recurring but no interval" state cannot be expressed.
	Recurrence struct {
		Interval       RecurringInterval
		NextOccurrence time.Time
		LastProcessed  time.Time // zero when never materialized
	}

	Transaction struct {
		ID          string
		AccountID   string
		Type        TransactionType
		Amount      Money // always positive; Type carries the sign
		Category    string
		Description string
		Date        time.Time // calendar date at UTC midnight
		Recurring   *Recurrence
		// TemplateID links a materialized occurrence back to the
		// recurring template that produced it.
		TemplateID string
	}

	Budget struct {
		ID        string
		AccountID string
		Amount    Money
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidAccount     = errors.New("invalid account reference")
	ErrInvalidCategory    = errors.New("invalid category for transaction type")
	ErrInvalidInterval    = errors.New("invalid recurring interval")
	ErrInvalidDate        = errors.New("invalid date")
	ErrEmptyName          = errors.New("empty name")
	ErrInvalidAcctType    = errors.New("invalid account type")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
)

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (t AccountType) Valid() bool {
	return t == Current || t == Savings
}

func (i RecurringInterval) Valid() bool {
	switch i {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

func (r *Recurrence) Validate() error {
	if !r.Interval.Valid() {
		return ErrInvalidInterval
	}
	return nil
}

func (tx Transaction) Validate() error {
	if strings.TrimSpace(tx.AccountID) == "" {
		return ErrInvalidAccount
	}
	if !tx.Type.Valid() {
		return ErrInvalidType
	}
	if err := tx.Amount.Validate(); err != nil {
		return err
	}
	if tx.Date.IsZero() {
		return ErrInvalidDate
	}
	if !ValidCategory(tx.Type, tx.Category) {
		return ErrInvalidCategory
	}
	if len(tx.Description) > 200 {
		return ErrDescriptionTooLong
	}
	if tx.Recurring != nil {
		if err := tx.Recurring.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (a Account) Validate() error {
	if len(strings.TrimSpace(a.Name)) == 0 {
		return ErrEmptyName
	}
	if !a.Type.Valid() {
		return ErrInvalidAcctType
	}
	return nil
}

// DateOnly truncates t to a calendar date at UTC midnight. Transactions
// store dates this way so that month comparisons never straddle a zone
// boundary.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
