package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrAccountNotFound   = errors.New("account not found")
	ErrAccountExists     = errors.New("account already exists")
	ErrNameTaken         = errors.New("name already taken")
	ErrNotABank          = errors.New("account is not a bank")
	ErrNotAUserAccount   = errors.New("account is not a user account")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrInvalidCurrency   = errors.New("invalid currency")
	ErrInvalidScope      = errors.New("invalid scope")
	ErrInvalidRankWindow = errors.New("invalid rank window")
	ErrInviteNotRequired = errors.New("bank does not require invites")
	ErrNotInvited        = errors.New("user is not invited")
	ErrInvalidRequest    = errors.New("invalid request")
)
