package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coinage-io/coinage/internal/domain"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Error:   nil,
	})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Data:    nil,
		Error: &APIError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

func RespondDomainError(w http.ResponseWriter, err error) {
	var appErr *AppError

	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		appErr = ErrAccountNotFound
	case errors.Is(err, domain.ErrNotFound):
		appErr = ErrResourceNotFound
	case errors.Is(err, domain.ErrNotABank):
		appErr = ErrNotABank
	case errors.Is(err, domain.ErrNameTaken), errors.Is(err, domain.ErrAccountExists):
		appErr = ErrNameTaken
	case errors.Is(err, domain.ErrInvalidCurrency):
		appErr = ErrInvalidCurrency
	case errors.Is(err, domain.ErrInvalidScope):
		appErr = ErrInvalidScope
	case errors.Is(err, domain.ErrInvalidAmount):
		appErr = ErrInvalidAmount
	case errors.Is(err, domain.ErrInvalidRankWindow):
		appErr = ErrInvalidRankWindow
	case errors.Is(err, domain.ErrInviteNotRequired):
		appErr = ErrInviteNotRequired
	case errors.Is(err, domain.ErrNotInvited):
		appErr = ErrNotInvited
	case errors.Is(err, domain.ErrInvalidRequest):
		appErr = ErrInvalidRequest
	default:
		slog.Error("unhandled domain error", "error", err)
		appErr = ErrInternalError
	}

	RespondAppError(w, appErr, nil)
}

// RespondResult reports a ledger operation whose outcome is a value, not
// an error: success maps to 200, the failure outcomes to their own
// status with the result attached as details.
func RespondResult(w http.ResponseWriter, result *domain.TransactionResult) {
	dto := toResultDTO(result)
	switch result.Outcome {
	case domain.OutcomeSuccess:
		RespondSuccess(w, http.StatusOK, dto)
	case domain.OutcomeContextMismatch:
		RespondAppError(w, ErrContextMismatch, dto)
	case domain.OutcomeInsufficientFunds:
		RespondAppError(w, ErrInsufficientFunds, dto)
	default:
		RespondAppError(w, ErrOperationFailed, dto)
	}
}
