package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coinage-io/coinage/internal/auth"
	"github.com/coinage-io/coinage/internal/domain"
	"github.com/coinage-io/coinage/internal/logging"
)

type accountService interface {
	GetOrCreateUser(ctx context.Context, userID uuid.UUID, name string) (*domain.Account, error)
	Get(ctx context.Context, id string) (*domain.Account, error)
	Delete(ctx context.Context, id string) error
}

type ledgerService interface {
	Balances(ctx context.Context, acct *domain.Account, currencies []*domain.Currency, scopes []domain.Scope) (map[string]decimal.Decimal, error)
	Deposit(ctx context.Context, acct *domain.Account, cur *domain.Currency, amount decimal.Decimal, scopes []domain.Scope) (*domain.TransactionResult, error)
	Withdraw(ctx context.Context, acct *domain.Account, cur *domain.Currency, amount decimal.Decimal, scopes []domain.Scope, force bool) (*domain.TransactionResult, error)
	SetBalance(ctx context.Context, acct *domain.Account, cur *domain.Currency, amount decimal.Decimal, scopes []domain.Scope) (*domain.TransactionResult, error)
	Reset(ctx context.Context, acct *domain.Account, cur *domain.Currency, scopes []domain.Scope) (*domain.TransactionResult, error)
	Transfer(ctx context.Context, from, to *domain.Account, cur *domain.Currency, amount decimal.Decimal, scopes []domain.Scope) (*domain.TransactionResult, error)
}

type bankAccessChecker interface {
	HasAccess(ctx context.Context, name string, user uuid.UUID) (bool, error)
}

type AccountHandler struct {
	accounts   accountService
	ledger     ledgerService
	banks      bankAccessChecker
	currencies *domain.Currencies
}

func NewAccountHandler(accounts accountService, ledger ledgerService, banks bankAccessChecker, currencies *domain.Currencies) *AccountHandler {
	return &AccountHandler{accounts: accounts, ledger: ledger, banks: banks, currencies: currencies}
}

type accountDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Kind        string    `json:"kind"`
	Hidden      bool      `json:"hidden"`
	NeedsInvite bool      `json:"needs_invite"`
	CreatedAt   time.Time `json:"created_at"`
}

func toAccountDTO(a *domain.Account) accountDTO {
	return accountDTO{
		ID:          a.ID,
		Name:        a.Name,
		Kind:        string(a.Kind),
		Hidden:      a.Hidden,
		NeedsInvite: a.NeedsInvite,
		CreatedAt:   a.CreatedAt,
	}
}

type resultDTO struct {
	Account      string    `json:"account"`
	Counterparty string    `json:"counterparty,omitempty"`
	Currency     string    `json:"currency"`
	Amount       string    `json:"amount"`
	Scopes       []string  `json:"scopes,omitempty"`
	Outcome      string    `json:"outcome"`
	Operation    string    `json:"operation"`
	OccurredAt   time.Time `json:"occurred_at"`
}

func toResultDTO(r *domain.TransactionResult) resultDTO {
	scopes := make([]string, len(r.Scopes))
	for i, s := range r.Scopes {
		scopes[i] = s.String()
	}
	return resultDTO{
		Account:      r.AccountID,
		Counterparty: r.Counterparty,
		Currency:     r.Currency,
		Amount:       r.Amount.String(),
		Scopes:       scopes,
		Outcome:      string(r.Outcome),
		Operation:    string(r.Operation),
		OccurredAt:   r.OccurredAt,
	}
}

type createAccountRequest struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

func (r createAccountRequest) Validate() []FieldError {
	var errs []FieldError
	if r.UserID == "" {
		errs = append(errs, FieldError{Field: "user_id", Message: "required"})
	} else if _, err := uuid.Parse(r.UserID); err != nil {
		errs = append(errs, FieldError{Field: "user_id", Message: "must be a UUID"})
	}
	return errs
}

// Create gets or creates the user's account. Callers may only create
// their own account unless they are admin.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	userID := uuid.MustParse(req.UserID)
	if !caller.Admin && caller.CallerID != userID {
		RespondAppError(w, ErrForbidden, nil)
		return
	}

	account, err := h.accounts.GetOrCreateUser(r.Context(), userID, req.Name)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to create account", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toAccountDTO(account))
}

type balancesDTO struct {
	Account  accountDTO        `json:"account"`
	Balances map[string]string `json:"balances"`
	Display  map[string]string `json:"display"`
}

func (h *AccountHandler) Balances(w http.ResponseWriter, r *http.Request) {
	account, appErr := h.loadAccount(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	scopes, appErr := scopesFromQuery(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	balances, err := h.ledger.Balances(r.Context(), account, h.currencies.All(), scopes)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to read balances", "error", err)
		RespondDomainError(w, err)
		return
	}

	dto := balancesDTO{
		Account:  toAccountDTO(account),
		Balances: make(map[string]string, len(balances)),
		Display:  make(map[string]string, len(balances)),
	}
	for id, amount := range balances {
		dto.Balances[id] = amount.String()
		if cur, ok := h.currencies.ByID(id); ok {
			dto.Display[id] = cur.Format(amount)
		}
	}

	RespondSuccess(w, http.StatusOK, dto)
}

type operationRequest struct {
	Currency string   `json:"currency"`
	Amount   string   `json:"amount"`
	Scopes   []string `json:"scopes"`
	Force    bool     `json:"force"`

	amount decimal.Decimal
	scopes []domain.Scope
}

func (r *operationRequest) validate(currencies *domain.Currencies, needAmount bool) []FieldError {
	var errs []FieldError

	if r.Currency != "" {
		if _, ok := currencies.ByID(r.Currency); !ok {
			errs = append(errs, FieldError{Field: "currency", Message: "unknown currency"})
		}
	}

	if needAmount {
		if r.Amount == "" {
			errs = append(errs, FieldError{Field: "amount", Message: "required"})
		} else {
			amount, err := decimal.NewFromString(r.Amount)
			if err != nil {
				errs = append(errs, FieldError{Field: "amount", Message: "must be a decimal number"})
			} else {
				r.amount = amount
			}
		}
	}

	for _, raw := range r.Scopes {
		scope, err := domain.ParseScope(raw)
		if err != nil {
			errs = append(errs, FieldError{Field: "scopes", Message: "must be key|value pairs"})
			break
		}
		r.scopes = append(r.scopes, scope)
	}

	return errs
}

func (r *operationRequest) currency(currencies *domain.Currencies) *domain.Currency {
	if r.Currency == "" {
		return currencies.Default()
	}
	cur, _ := currencies.ByID(r.Currency)
	return cur
}

// Deposit, Withdraw, Set and Reset mint or destroy money, so they are
// admin-only; force on withdraw bypasses the minimum-balance check.
func (h *AccountHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.adminOperation(w, r, true, func(ctx context.Context, acct *domain.Account, req *operationRequest) (*domain.TransactionResult, error) {
		return h.ledger.Deposit(ctx, acct, req.currency(h.currencies), req.amount, req.scopes)
	})
}

func (h *AccountHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.adminOperation(w, r, true, func(ctx context.Context, acct *domain.Account, req *operationRequest) (*domain.TransactionResult, error) {
		return h.ledger.Withdraw(ctx, acct, req.currency(h.currencies), req.amount, req.scopes, req.Force)
	})
}

func (h *AccountHandler) Set(w http.ResponseWriter, r *http.Request) {
	h.adminOperation(w, r, true, func(ctx context.Context, acct *domain.Account, req *operationRequest) (*domain.TransactionResult, error) {
		return h.ledger.SetBalance(ctx, acct, req.currency(h.currencies), req.amount, req.scopes)
	})
}

func (h *AccountHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.adminOperation(w, r, false, func(ctx context.Context, acct *domain.Account, req *operationRequest) (*domain.TransactionResult, error) {
		return h.ledger.Reset(ctx, acct, req.currency(h.currencies), req.scopes)
	})
}

func (h *AccountHandler) adminOperation(w http.ResponseWriter, r *http.Request, needAmount bool, op func(context.Context, *domain.Account, *operationRequest) (*domain.TransactionResult, error)) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}
	if !caller.Admin {
		RespondAppError(w, ErrForbidden, nil)
		return
	}

	account, appErr := h.loadAccount(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req operationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.validate(h.currencies, needAmount); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	result, err := op(r.Context(), account, &req)
	if err != nil {
		logging.FromContext(r.Context()).Error("ledger operation failed", "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondResult(w, result)
}

type transferRequest struct {
	To string `json:"to"`
	operationRequest
}

// Transfer moves money from the addressed account to another. The caller
// must own the source account, hold member access on a source bank, or
// be admin.
func (h *AccountHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	source, appErr := h.loadAccount(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	fields := req.validate(h.currencies, true)
	if req.To == "" {
		fields = append(fields, FieldError{Field: "to", Message: "required"})
	}
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	allowed, err := h.mayOperate(r.Context(), caller, source)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	if !allowed {
		RespondAppError(w, ErrForbidden, nil)
		return
	}

	dest, err := h.accounts.Get(r.Context(), req.To)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	result, err := h.ledger.Transfer(r.Context(), source, dest, req.currency(h.currencies), req.amount, req.scopes)
	if err != nil {
		logging.FromContext(r.Context()).Error("transfer failed", "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondResult(w, result)
}

func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}
	if !caller.Admin {
		RespondAppError(w, ErrForbidden, nil)
		return
	}

	account, appErr := h.loadAccount(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	if err := h.accounts.Delete(r.Context(), account.ID); err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, map[string]string{"deleted": account.ID})
}

func (h *AccountHandler) loadAccount(r *http.Request) (*domain.Account, *AppError) {
	id := r.PathValue("id")
	if id == "" {
		return nil, ErrInvalidRequest
	}
	account, err := h.accounts.Get(r.Context(), id)
	if err != nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

func (h *AccountHandler) mayOperate(ctx context.Context, caller auth.Claims, acct *domain.Account) (bool, error) {
	if caller.Admin {
		return true, nil
	}
	if acct.IsBank() {
		return h.banks.HasAccess(ctx, acct.ID, caller.CallerID)
	}
	userID, ok := acct.UserID()
	return ok && userID == caller.CallerID, nil
}

func scopesFromQuery(r *http.Request) ([]domain.Scope, *AppError) {
	var scopes []domain.Scope
	for _, raw := range r.URL.Query()["scope"] {
		scope, err := domain.ParseScope(raw)
		if err != nil {
			return nil, ErrInvalidScope
		}
		scopes = append(scopes, scope)
	}
	return scopes, nil
}
