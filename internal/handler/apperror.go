package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken       = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken       = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidCredentials = &AppError{http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid bootstrap token"}
	ErrForbidden          = &AppError{http.StatusForbidden, "FORBIDDEN", "Caller is not allowed to perform this operation"}
	ErrInvalidRequest     = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed   = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound   = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError      = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrInsufficientFunds = &AppError{http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", "Insufficient funds"}
	ErrContextMismatch   = &AppError{http.StatusUnprocessableEntity, "CONTEXT_MISMATCH", "No applicable scope for this currency"}
	ErrOperationFailed   = &AppError{http.StatusInternalServerError, "OPERATION_FAILED", "Operation could not be completed"}

	ErrAccountNotFound   = &AppError{http.StatusNotFound, "ACCOUNT_NOT_FOUND", "Account not found"}
	ErrNotABank          = &AppError{http.StatusUnprocessableEntity, "NOT_A_BANK", "Account is not a bank"}
	ErrNameTaken         = &AppError{http.StatusConflict, "NAME_TAKEN", "Name is already taken"}
	ErrInvalidCurrency   = &AppError{http.StatusBadRequest, "INVALID_CURRENCY", "Invalid currency"}
	ErrInvalidScope      = &AppError{http.StatusBadRequest, "INVALID_SCOPE", "Invalid scope"}
	ErrInvalidAmount     = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero"}
	ErrInvalidRankWindow = &AppError{http.StatusBadRequest, "INVALID_RANK_WINDOW", "Invalid rank window"}
	ErrInviteNotRequired = &AppError{http.StatusUnprocessableEntity, "INVITE_NOT_REQUIRED", "Bank does not require invites"}
	ErrNotInvited        = &AppError{http.StatusUnprocessableEntity, "NOT_INVITED", "User is not invited to this bank"}

	ErrMissingIdempotencyKey = &AppError{http.StatusBadRequest, "MISSING_IDEMPOTENCY_KEY", "Idempotency-Key header is required"}
	ErrIdempotencyConflict   = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used with a different request"}
)
