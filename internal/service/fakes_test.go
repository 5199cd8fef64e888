package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/coinage-io/coinage/internal/domain"
)

// fakeBalanceRepo is an in-memory balanceRepository. failUpsert, when
// set, makes Upsert fail for the named account after failAfter calls.
type fakeBalanceRepo struct {
	mu         sync.Mutex
	rows       map[string]int64
	failUpsert string
	failAfter  int
	upserts    int
	topCalls   int
}

func newFakeBalanceRepo() *fakeBalanceRepo {
	return &fakeBalanceRepo{rows: make(map[string]int64)}
}

func balanceKey(accountID, currency string, scope domain.Scope) string {
	return accountID + "\x00" + currency + "\x00" + scope.String()
}

func (f *fakeBalanceRepo) Get(_ context.Context, accountID, currency string, scope domain.Scope) (*domain.Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	amount, ok := f.rows[balanceKey(accountID, currency, scope)]
	if !ok {
		return nil, fmt.Errorf("get balance: %w", domain.ErrNotFound)
	}
	return &domain.Balance{AccountID: accountID, Currency: currency, Scope: scope, Amount: amount}, nil
}

func (f *fakeBalanceRepo) Upsert(_ context.Context, accountID, currency string, scope domain.Scope, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if f.failUpsert == accountID && f.upserts > f.failAfter {
		return errors.New("upsert: connection reset")
	}
	f.rows[balanceKey(accountID, currency, scope)] = amount
	return nil
}

func (f *fakeBalanceRepo) TopBalances(_ context.Context, currency string, scope domain.Scope, kinds []domain.AccountKind, fromRank, toRank int, includeHidden bool) ([]domain.RankedBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topCalls++
	return nil, nil
}

func (f *fakeBalanceRepo) stored(accountID, currency string, scope domain.Scope) (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	amount, ok := f.rows[balanceKey(accountID, currency, scope)]
	return amount, ok
}

// fakeBus records every published result in order.
type fakeBus struct {
	mu      sync.Mutex
	results []domain.TransactionResult
}

func (b *fakeBus) Publish(result domain.TransactionResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.results = append(b.results, result)
}

func (b *fakeBus) published() []domain.TransactionResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.TransactionResult, len(b.results))
	copy(out, b.results)
	return out
}

func (b *fakeBus) last() (domain.TransactionResult, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.results) == 0 {
		return domain.TransactionResult{}, false
	}
	return b.results[len(b.results)-1], true
}

// fakeAccountRepo is an in-memory accountRepository for the bank
// membership tests.
type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
	access   map[string]domain.AccessLevel
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{
		accounts: make(map[string]*domain.Account),
		access:   make(map[string]domain.AccessLevel),
	}
}

func accessKey(accountID string, userID uuid.UUID) string {
	return accountID + "\x00" + userID.String()
}

func (f *fakeAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return nil, fmt.Errorf("get account: %w", domain.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccountRepo) Create(_ context.Context, account *domain.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.accounts[account.ID]; exists {
		return fmt.Errorf("create account: %w", domain.ErrAccountExists)
	}
	for _, a := range f.accounts {
		if a.Kind == domain.AccountKindBank && account.Kind == domain.AccountKindBank && a.Name == account.Name {
			return fmt.Errorf("create account: %w", domain.ErrAccountExists)
		}
	}
	cp := *account
	f.accounts[account.ID] = &cp
	return nil
}

func (f *fakeAccountRepo) Rename(_ context.Context, id, newName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return fmt.Errorf("rename account: %w", domain.ErrNotFound)
	}
	a.Name = newName
	return nil
}

func (f *fakeAccountRepo) RenameBank(_ context.Context, id, newName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return fmt.Errorf("rename bank: %w", domain.ErrNotFound)
	}
	if _, taken := f.accounts[newName]; taken {
		return fmt.Errorf("rename bank: %w", domain.ErrAccountExists)
	}
	delete(f.accounts, id)
	a.ID = newName
	a.Name = newName
	f.accounts[newName] = a
	for key, level := range f.access {
		oldID, rawUser, _ := cutAccessKey(key)
		if oldID == id {
			delete(f.access, key)
			f.access[newName+"\x00"+rawUser] = level
		}
	}
	return nil
}

func cutAccessKey(key string) (accountID, rawUser string, ok bool) {
	for i := 0; i < len(key); i++ {
		if key[i] == '\x00' {
			return key[:i], key[i+1:], true
		}
	}
	return "", "", false
}

func (f *fakeAccountRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[id]; !ok {
		return fmt.Errorf("delete account: %w", domain.ErrNotFound)
	}
	delete(f.accounts, id)
	return nil
}

func (f *fakeAccountRepo) SetHidden(_ context.Context, id string, hidden bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return fmt.Errorf("set hidden: %w", domain.ErrNotFound)
	}
	a.Hidden = hidden
	return nil
}

func (f *fakeAccountRepo) SetNeedsInvite(_ context.Context, id string, needsInvite bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return fmt.Errorf("set needs invite: %w", domain.ErrNotFound)
	}
	a.NeedsInvite = needsInvite
	return nil
}

func (f *fakeAccountRepo) GetAccess(_ context.Context, accountID string, userID uuid.UUID) (*domain.BankAccess, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	level, ok := f.access[accessKey(accountID, userID)]
	if !ok {
		return nil, fmt.Errorf("get access: %w", domain.ErrNotFound)
	}
	return &domain.BankAccess{AccountID: accountID, UserID: userID, Level: level}, nil
}

func (f *fakeAccountRepo) SetAccess(_ context.Context, access *domain.BankAccess) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access[accessKey(access.AccountID, access.UserID)] = access.Level
	return nil
}

func (f *fakeAccountRepo) DeleteAccess(_ context.Context, accountID string, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.access, accessKey(accountID, userID))
	return nil
}

func (f *fakeAccountRepo) ListAccess(_ context.Context, accountID string) ([]domain.BankAccess, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.BankAccess
	for key, level := range f.access {
		id, rawUser, ok := cutAccessKey(key)
		if !ok || id != accountID {
			continue
		}
		out = append(out, domain.BankAccess{
			AccountID: accountID,
			UserID:    uuid.MustParse(rawUser),
			Level:     level,
		})
	}
	return out, nil
}

func (f *fakeAccountRepo) ListBanksForUser(_ context.Context, userID uuid.UUID, levels []domain.AccessLevel) ([]domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := make(map[domain.AccessLevel]bool, len(levels))
	for _, l := range levels {
		wanted[l] = true
	}
	var out []domain.Account
	for key, level := range f.access {
		id, rawUser, ok := cutAccessKey(key)
		if !ok || rawUser != userID.String() || !wanted[level] {
			continue
		}
		if a, found := f.accounts[id]; found {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAccountRepo) ListBanks(_ context.Context, includeHidden bool) ([]domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Account
	for _, a := range f.accounts {
		if a.Kind != domain.AccountKindBank {
			continue
		}
		if a.Hidden && !includeHidden {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}
