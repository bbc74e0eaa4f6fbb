package services

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
)

// AccountService orchestrates account management.
type AccountService struct {
	store AccountStore
}

func NewAccountService(store AccountStore) *AccountService {
	return &AccountService{store: store}
}

// Create validates and persists a new account.
func (s *AccountService) Create(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, fmt.Errorf("validate account: %w", err)
	}

	created, err := s.store.CreateAccount(ctx, a)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	return created, nil
}

func (s *AccountService) List(ctx context.Context) ([]core.Account, error) {
	return s.store.ListAccounts(ctx)
}

func (s *AccountService) Get(ctx context.Context, id string) (core.Account, error) {
	return s.store.GetAccount(ctx, id)
}

// Default returns the account new transactions and the budget are
// scoped to when no account is specified.
func (s *AccountService) Default(ctx context.Context) (core.Account, error) {
	return s.store.DefaultAccount(ctx)
}

// SetDefault atomically moves the default flag to the given account.
func (s *AccountService) SetDefault(ctx context.Context, id string) error {
	if err := s.store.SetDefaultAccount(ctx, id); err != nil {
		return fmt.Errorf("set default account: %w", err)
	}
	slog.InfoContext(ctx, "Default account switched", "account_id", id)
	return nil
}
