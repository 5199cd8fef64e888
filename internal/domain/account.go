package domain

import (
	"time"

	"github.com/google/uuid"
)

type AccountKind string

const (
	AccountKindUser AccountKind = "user"
	AccountKindBank AccountKind = "bank"
)

// Account identifiers share one namespace: user accounts are keyed by
// their UUID string, bank accounts by their name.
type Account struct {
	ID          string
	Name        string
	Kind        AccountKind
	Hidden      bool
	NeedsInvite bool
	CreatedAt   time.Time
}

func (a *Account) IsBank() bool {
	return a.Kind == AccountKindBank
}

func (a *Account) UserID() (uuid.UUID, bool) {
	if a.Kind != AccountKindUser {
		return uuid.UUID{}, false
	}
	id, err := uuid.Parse(a.ID)
	if err != nil {
		return uuid.UUID{}, false
	}
	return id, true
}

type AccessLevel string

const (
	AccessLevelOwner   AccessLevel = "owner"
	AccessLevelMember  AccessLevel = "member"
	AccessLevelInvited AccessLevel = "invited"
)

var accessRank = map[AccessLevel]int{
	AccessLevelInvited: 1,
	AccessLevelMember:  2,
	AccessLevelOwner:   3,
}

func (l AccessLevel) IsValid() bool {
	_, ok := accessRank[l]
	return ok
}

// AtLeast reports whether l grants everything other grants.
func (l AccessLevel) AtLeast(other AccessLevel) bool {
	return accessRank[l] >= accessRank[other]
}

// BankAccess records one user's role on one bank account.
type BankAccess struct {
	AccountID string
	UserID    uuid.UUID
	Level     AccessLevel
	CreatedAt time.Time
}

// Balance is one persisted row of the balance store: the minor-unit
// amount an account holds in a currency under a canonical scope.
type Balance struct {
	AccountID string
	Currency  string
	Scope     Scope
	Amount    int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RankedBalance is a row of the top-balance listing.
type RankedBalance struct {
	AccountID   string
	AccountName string
	Kind        AccountKind
	Currency    string
	Scope       Scope
	Amount      int64
	Rank        int
}
