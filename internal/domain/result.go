package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Outcome classifies how a ledger operation ended. Outcomes are values
// the caller branches on; only store I/O failures surface as Go errors.
type Outcome string

const (
	OutcomeSuccess           Outcome = "success"
	OutcomeContextMismatch   Outcome = "context-mismatch"
	OutcomeInsufficientFunds Outcome = "insufficient-funds"
	OutcomeFailed            Outcome = "failed"
)

type Operation string

const (
	OperationDeposit  Operation = "deposit"
	OperationWithdraw Operation = "withdraw"
	OperationSet      Operation = "set"
	OperationReset    Operation = "reset"
	OperationTransfer Operation = "transfer"
)

// TransactionResult is the immutable record of one balance-mutating
// operation. Counterparty is set for transfers only.
type TransactionResult struct {
	AccountID    string
	Counterparty string
	Currency     string
	Amount       decimal.Decimal
	Scopes       []Scope
	Outcome      Outcome
	Operation    Operation
	OccurredAt   time.Time
}

func (r TransactionResult) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}
