package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/coinage-io/coinage/internal/auth"
	"github.com/coinage-io/coinage/internal/domain"
	"github.com/coinage-io/coinage/internal/logging"
)

type bankService interface {
	Create(ctx context.Context, name string, owner uuid.UUID, hidden, needsInvite bool) (*domain.Account, error)
	Get(ctx context.Context, name string) (*domain.Account, error)
	Delete(ctx context.Context, name string) error
	Rename(ctx context.Context, name, newName string) (*domain.Account, error)
	Invite(ctx context.Context, name string, user uuid.UUID) error
	Uninvite(ctx context.Context, name string, user uuid.UUID) error
	PromoteToMember(ctx context.Context, name string, user uuid.UUID, force bool) error
	PromoteToOwner(ctx context.Context, name string, user uuid.UUID) error
	Kick(ctx context.Context, name string, user uuid.UUID) error
	SetHidden(ctx context.Context, name string, hidden bool) error
	SetNeedsInvite(ctx context.Context, name string, needsInvite bool) error
	IsOwner(ctx context.Context, name string, user uuid.UUID) (bool, error)
	Members(ctx context.Context, name string) ([]domain.BankAccess, error)
	ListForUser(ctx context.Context, user uuid.UUID, minLevel domain.AccessLevel) ([]domain.Account, error)
	ListAll(ctx context.Context, includeHidden bool) ([]domain.Account, error)
}

type BankHandler struct {
	banks bankService
}

func NewBankHandler(banks bankService) *BankHandler {
	return &BankHandler{banks: banks}
}

type createBankRequest struct {
	Name        string `json:"name"`
	Hidden      bool   `json:"hidden"`
	NeedsInvite bool   `json:"needs_invite"`
}

func (r createBankRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "required"})
	}
	return errs
}

// Create opens a new bank with the caller as its owner.
func (h *BankHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req createBankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	bank, err := h.banks.Create(r.Context(), req.Name, caller.CallerID, req.Hidden, req.NeedsInvite)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to create bank", "bank", req.Name, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toAccountDTO(bank))
}

func (h *BankHandler) Get(w http.ResponseWriter, r *http.Request) {
	bank, err := h.banks.Get(r.Context(), r.PathValue("name"))
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toAccountDTO(bank))
}

func (h *BankHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	caller, appErr := h.requireOwner(r, name)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	if err := h.banks.Delete(r.Context(), name); err != nil {
		RespondDomainError(w, err)
		return
	}

	logging.FromContext(r.Context()).Info("bank deleted", "bank", name, "caller", caller.CallerID)
	RespondSuccess(w, http.StatusOK, map[string]string{"deleted": name})
}

type renameBankRequest struct {
	Name string `json:"name"`
}

func (h *BankHandler) Rename(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if _, appErr := h.requireOwner(r, name); appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req renameBankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if req.Name == "" {
		RespondValidationError(w, []FieldError{{Field: "name", Message: "required"}})
		return
	}

	bank, err := h.banks.Rename(r.Context(), name, req.Name)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toAccountDTO(bank))
}

type memberRequest struct {
	UserID string `json:"user_id"`
}

func (r memberRequest) Validate() []FieldError {
	var errs []FieldError
	if r.UserID == "" {
		errs = append(errs, FieldError{Field: "user_id", Message: "required"})
	} else if _, err := uuid.Parse(r.UserID); err != nil {
		errs = append(errs, FieldError{Field: "user_id", Message: "must be a UUID"})
	}
	return errs
}

func (h *BankHandler) Invite(w http.ResponseWriter, r *http.Request) {
	h.memberOperation(w, r, h.banks.Invite)
}

func (h *BankHandler) Uninvite(w http.ResponseWriter, r *http.Request) {
	h.memberOperation(w, r, h.banks.Uninvite)
}

// Join adds the caller to an open bank, or accepts their invite when
// the bank is invite-only. Owners can force-join other users.
func (h *BankHandler) Join(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	name := r.PathValue("name")
	target := caller.CallerID
	force := caller.Admin

	var req memberRequest
	// An empty body means the caller joins themselves.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if req.UserID != "" {
		parsed, perr := uuid.Parse(req.UserID)
		if perr != nil {
			RespondValidationError(w, []FieldError{{Field: "user_id", Message: "must be a UUID"}})
			return
		}
		if parsed != caller.CallerID {
			if _, appErr := h.requireOwner(r, name); appErr != nil {
				RespondAppError(w, appErr, nil)
				return
			}
			force = true
		}
		target = parsed
	}

	if err := h.banks.PromoteToMember(r.Context(), name, target, force); err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, map[string]string{"bank": name, "member": target.String()})
}

func (h *BankHandler) PromoteOwner(w http.ResponseWriter, r *http.Request) {
	h.memberOperation(w, r, h.banks.PromoteToOwner)
}

func (h *BankHandler) Kick(w http.ResponseWriter, r *http.Request) {
	h.memberOperation(w, r, h.banks.Kick)
}

func (h *BankHandler) memberOperation(w http.ResponseWriter, r *http.Request, op func(context.Context, string, uuid.UUID) error) {
	name := r.PathValue("name")
	if _, appErr := h.requireOwner(r, name); appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	if err := op(r.Context(), name, uuid.MustParse(req.UserID)); err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, map[string]string{"bank": name, "user": req.UserID})
}

type bankFlagRequest struct {
	Hidden      *bool `json:"hidden"`
	NeedsInvite *bool `json:"needs_invite"`
}

func (h *BankHandler) UpdateFlags(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if _, appErr := h.requireOwner(r, name); appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req bankFlagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if req.Hidden == nil && req.NeedsInvite == nil {
		RespondValidationError(w, []FieldError{{Field: "hidden", Message: "at least one flag required"}})
		return
	}

	if req.Hidden != nil {
		if err := h.banks.SetHidden(r.Context(), name, *req.Hidden); err != nil {
			RespondDomainError(w, err)
			return
		}
	}
	if req.NeedsInvite != nil {
		if err := h.banks.SetNeedsInvite(r.Context(), name, *req.NeedsInvite); err != nil {
			RespondDomainError(w, err)
			return
		}
	}

	bank, err := h.banks.Get(r.Context(), name)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toAccountDTO(bank))
}

type memberDTO struct {
	UserID uuid.UUID `json:"user_id"`
	Level  string    `json:"level"`
}

func (h *BankHandler) Members(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}
	if !caller.Admin {
		owner, err := h.banks.IsOwner(r.Context(), name, caller.CallerID)
		if err != nil {
			RespondDomainError(w, err)
			return
		}
		if !owner {
			RespondAppError(w, ErrForbidden, nil)
			return
		}
	}

	members, err := h.banks.Members(r.Context(), name)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]memberDTO, len(members))
	for i, m := range members {
		dtos[i] = memberDTO{UserID: m.UserID, Level: string(m.Level)}
	}
	RespondSuccess(w, http.StatusOK, dtos)
}

// List returns the banks visible to the caller. With ?user=<uuid> it
// lists banks that user belongs to; admins can pass ?hidden=true.
func (h *BankHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	if rawUser := r.URL.Query().Get("user"); rawUser != "" {
		user, err := uuid.Parse(rawUser)
		if err != nil {
			RespondValidationError(w, []FieldError{{Field: "user", Message: "must be a UUID"}})
			return
		}
		minLevel := domain.AccessLevelMember
		if lvl := domain.AccessLevel(r.URL.Query().Get("level")); lvl.IsValid() {
			minLevel = lvl
		}
		banks, err := h.banks.ListForUser(r.Context(), user, minLevel)
		if err != nil {
			RespondDomainError(w, err)
			return
		}
		RespondSuccess(w, http.StatusOK, toAccountDTOs(banks))
		return
	}

	includeHidden := caller.Admin && r.URL.Query().Get("hidden") == "true"
	banks, err := h.banks.ListAll(r.Context(), includeHidden)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toAccountDTOs(banks))
}

func toAccountDTOs(accounts []domain.Account) []accountDTO {
	dtos := make([]accountDTO, len(accounts))
	for i := range accounts {
		dtos[i] = toAccountDTO(&accounts[i])
	}
	return dtos
}

func (h *BankHandler) requireOwner(r *http.Request, name string) (auth.Claims, *AppError) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		return auth.Claims{}, ErrMissingToken
	}
	if caller.Admin {
		return caller, nil
	}
	owner, err := h.banks.IsOwner(r.Context(), name, caller.CallerID)
	if err != nil || !owner {
		return caller, ErrForbidden
	}
	return caller, nil
}
