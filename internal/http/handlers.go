package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
)

const untitledTransaction = "Untitled Transaction"

// maxReceiptBytes caps receipt uploads at 10 MB.
const maxReceiptBytes = 10 << 20

type accountPayload struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type accountResponse struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Type             string `json:"type"`
	Balance          string `json:"balance"`
	IsDefault        bool   `json:"is_default"`
	TransactionCount int64  `json:"transaction_count"`
}

type transactionPayload struct {
	AccountID         string  `json:"account_id"`
	Type              string  `json:"type"`
	Amount            string  `json:"amount"`
	Category          string  `json:"category"`
	Description       string  `json:"description"`
	Date              string  `json:"date"`
	RecurringInterval *string `json:"recurring_interval,omitempty"`
}

type recurrenceResponse struct {
	Interval       string `json:"interval"`
	NextOccurrence string `json:"next_occurrence"`
	LastProcessed  string `json:"last_processed,omitempty"`
}

type transactionResponse struct {
	ID          string              `json:"id"`
	AccountID   string              `json:"account_id"`
	Type        string              `json:"type"`
	Amount      string              `json:"amount"`
	Category    string              `json:"category"`
	Description string              `json:"description"`
	Date        string              `json:"date"`
	Recurring   *recurrenceResponse `json:"recurring,omitempty"`
	TemplateID  string              `json:"template_id,omitempty"`
}

type budgetPayload struct {
	AccountID string `json:"account_id"`
	Amount    string `json:"amount"`
}

type budgetStatusResponse struct {
	Status      string  `json:"status"`
	HasBudget   bool    `json:"has_budget"`
	Limit       string  `json:"limit,omitempty"`
	Spent       string  `json:"spent"`
	Remaining   string  `json:"remaining,omitempty"`
	PercentUsed float64 `json:"percent_used"`
}

type dashboardResponse struct {
	Account           accountResponse       `json:"account"`
	RecentActivity    []transactionResponse `json:"recent_activity"`
	CategoryBreakdown map[string]string     `json:"category_breakdown"`
	Budget            budgetStatusResponse  `json:"budget"`
}

func toAccountResponse(a core.Account) accountResponse {
	return accountResponse{
		ID:               a.ID,
		Name:             a.Name,
		Type:             string(a.Type),
		Balance:          a.Balance.String(),
		IsDefault:        a.IsDefault,
		TransactionCount: a.TransactionCount,
	}
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	description := t.Description
	if strings.TrimSpace(description) == "" {
		description = untitledTransaction
	}

	resp := transactionResponse{
		ID:          t.ID,
		AccountID:   t.AccountID,
		Type:        string(t.Type),
		Amount:      t.Amount.String(),
		Category:    t.Category,
		Description: description,
		Date:        t.Date.Format("2006-01-02"),
		TemplateID:  t.TemplateID,
	}
	if t.Recurring != nil {
		rec := &recurrenceResponse{
			Interval:       string(t.Recurring.Interval),
			NextOccurrence: t.Recurring.NextOccurrence.Format("2006-01-02"),
		}
		if !t.Recurring.LastProcessed.IsZero() {
			rec.LastProcessed = t.Recurring.LastProcessed.Format("2006-01-02")
		}
		resp.Recurring = rec
	}
	return resp
}

func toBudgetStatusResponse(s core.BudgetStatus) budgetStatusResponse {
	resp := budgetStatusResponse{
		Status:      string(s.Tier),
		HasBudget:   s.HasBudget,
		Spent:       s.Spent.String(),
		PercentUsed: s.PercentUsed,
	}
	if s.HasBudget {
		resp.Limit = s.Limit.String()
		resp.Remaining = s.Remaining.String()
	}
	return resp
}

func parseTransactionPayload(p transactionPayload) (core.Transaction, error) {
	cents, err := core.ParseDecimalToCents(p.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount %q: %w", p.Amount, core.ErrInvalidAmount)
	}

	date, err := time.Parse("2006-01-02", p.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("date %q: %w", p.Date, core.ErrInvalidDate)
	}

	t := core.Transaction{
		AccountID:   p.AccountID,
		Type:        core.TransactionType(p.Type),
		Amount:      core.Money{Cents: cents},
		Category:    p.Category,
		Description: strings.TrimSpace(p.Description),
		Date:        date,
	}
	if p.RecurringInterval != nil {
		t.Recurring = &core.Recurrence{Interval: core.RecurringInterval(*p.RecurringInterval)}
	}
	return t, nil
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var account core.Account
	var err error
	if id := r.URL.Query().Get("account"); id != "" {
		account, err = s.accounts.Get(ctx, id)
	} else {
		account, err = s.accounts.Default(ctx)
	}
	if err != nil {
		respondError(r, w, err)
		return
	}

	now := time.Now().UTC()
	cacheKey := account.ID + "|" + now.Format("2006-01")
	if cached, ok := s.dashboardCache.Get(cacheKey); ok {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	txs, err := s.transactions.List(ctx, account.ID)
	if err != nil {
		respondError(r, w, err)
		return
	}

	status, err := s.budgets.Status(ctx, account.ID, now)
	if err != nil {
		respondError(r, w, err)
		return
	}

	recent := make([]transactionResponse, 0)
	for _, t := range core.RecentActivity(txs, account.ID) {
		recent = append(recent, toTransactionResponse(t))
	}

	breakdown := make(map[string]string)
	for category, total := range core.CategoryBreakdown(txs, account.ID, now) {
		breakdown[category] = total.String()
	}

	resp := dashboardResponse{
		Account:           toAccountResponse(account),
		RecentActivity:    recent,
		CategoryBreakdown: breakdown,
		Budget:            toBudgetStatusResponse(status),
	}
	s.dashboardCache.Set(cacheKey, resp)

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.accounts.List(r.Context())
	if err != nil {
		respondError(r, w, err)
		return
	}

	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var payload accountPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	created, err := s.accounts.Create(r.Context(), core.Account{
		Name: strings.TrimSpace(payload.Name),
		Type: core.AccountType(payload.Type),
	})
	if err != nil {
		respondError(r, w, err)
		return
	}

	s.dashboardCache.Purge()
	respondJSON(w, http.StatusCreated, toAccountResponse(created))
}

func (s *Server) handleSetDefaultAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.accounts.SetDefault(r.Context(), r.PathValue("id")); err != nil {
		respondError(r, w, err)
		return
	}

	s.dashboardCache.Purge()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.transactions.List(r.Context(), r.URL.Query().Get("account"))
	if err != nil {
		respondError(r, w, err)
		return
	}

	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionResponse(t))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var payload transactionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	t, err := parseTransactionPayload(payload)
	if err != nil {
		respondError(r, w, err)
		return
	}

	created, err := s.transactions.Create(r.Context(), t)
	if err != nil {
		respondError(r, w, err)
		return
	}

	s.dashboardCache.Purge()
	respondJSON(w, http.StatusCreated, toTransactionResponse(created))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.transactions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(r, w, err)
		return
	}
	respondJSON(w, http.StatusOK, toTransactionResponse(t))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var payload transactionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	t, err := parseTransactionPayload(payload)
	if err != nil {
		respondError(r, w, err)
		return
	}
	t.ID = r.PathValue("id")

	updated, err := s.transactions.Update(r.Context(), t)
	if err != nil {
		respondError(r, w, err)
		return
	}

	s.dashboardCache.Purge()
	respondJSON(w, http.StatusOK, toTransactionResponse(updated))
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID := r.URL.Query().Get("account")
	if accountID == "" {
		account, err := s.accounts.Default(ctx)
		if err != nil {
			respondError(r, w, err)
			return
		}
		accountID = account.ID
	}

	status, err := s.budgets.Status(ctx, accountID, time.Now().UTC())
	if err != nil {
		respondError(r, w, err)
		return
	}
	respondJSON(w, http.StatusOK, toBudgetStatusResponse(status))
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload budgetPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	accountID := payload.AccountID
	if accountID == "" {
		account, err := s.accounts.Default(ctx)
		if err != nil {
			respondError(r, w, err)
			return
		}
		accountID = account.ID
	}

	cents, err := core.ParseDecimalToCents(payload.Amount)
	if err != nil {
		respondError(r, w, fmt.Errorf("amount %q: %w", payload.Amount, core.ErrInvalidAmount))
		return
	}

	budget, err := s.budgets.Update(ctx, accountID, core.Money{Cents: cents})
	if err != nil {
		respondError(r, w, err)
		return
	}

	s.dashboardCache.Purge()
	respondJSON(w, http.StatusOK, map[string]string{
		"id":         budget.ID,
		"account_id": budget.AccountID,
		"amount":     budget.Amount.String(),
	})
}

// handleScanReceipt extracts a transaction prefill from an uploaded
// receipt image. Nothing is persisted; the client submits the prefill
// through the regular transaction endpoint after review.
func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	if s.scanner == nil {
		respondJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "receipt scanning is not configured"})
		return
	}

	mimeType := r.Header.Get("Content-Type")
	if mimeType != "image/jpeg" && mimeType != "image/png" && mimeType != "image/webp" {
		respondJSON(w, http.StatusUnsupportedMediaType, errorResponse{Error: "unsupported image type"})
		return
	}

	imageData, err := io.ReadAll(io.LimitReader(r.Body, maxReceiptBytes+1))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "read request body"})
		return
	}
	if len(imageData) > maxReceiptBytes {
		respondJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "receipt image too large"})
		return
	}

	result, err := s.scanner.Scan(r.Context(), imageData, mimeType)
	if err != nil {
		respondError(r, w, fmt.Errorf("scan receipt: %w", err))
		return
	}

	date := result.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	respondJSON(w, http.StatusOK, transactionPayload{
		Type:        string(core.Expense),
		Amount:      result.Amount.String(),
		Category:    result.Category,
		Description: result.Description,
		Date:        date.Format("2006-01-02"),
	})
}

// handleListEvents returns the newest audit-trail entries, written by
// the events worker.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		respondJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "audit trail is not configured"})
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be between 1 and 500"})
			return
		}
		limit = n
	}

	events, err := s.events.ListEvents(r.Context(), limit)
	if err != nil {
		respondError(r, w, err)
		return
	}

	type eventResponse struct {
		ID            int64  `json:"id"`
		TransactionID string `json:"transaction_id"`
		Source        string `json:"source"`
		OccurredAt    string `json:"occurred_at"`
	}
	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, eventResponse{
			ID:            e.ID,
			TransactionID: e.TransactionID,
			Source:        e.Source,
			OccurredAt:    e.OccurredAt.Format(time.RFC3339),
		})
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	txType := core.TransactionType(r.URL.Query().Get("type"))
	if !txType.Valid() {
		respondError(r, w, fmt.Errorf("type %q: %w", r.URL.Query().Get("type"), core.ErrInvalidType))
		return
	}

	type categoryResponse struct {
		Key  string `json:"key"`
		Name string `json:"name"`
	}
	out := make([]categoryResponse, 0)
	for _, c := range core.CategoriesFor(txType) {
		out = append(out, categoryResponse{Key: c.Key, Name: c.Name})
	}
	respondJSON(w, http.StatusOK, out)
}
