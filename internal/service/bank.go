package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/coinage-io/coinage/internal/domain"
	"github.com/coinage-io/coinage/internal/logging"
)

// BankService manages named bank accounts and their membership roles.
// Role progression is none -> invited -> member -> owner; kick drops any
// role back to none.
type BankService struct {
	accounts accountRepository
}

func NewBankService(accounts accountRepository) *BankService {
	return &BankService{accounts: accounts}
}

func (s *BankService) Create(ctx context.Context, name string, owner uuid.UUID, hidden, needsInvite bool) (*domain.Account, error) {
	if err := validateBankName(name); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	bank := &domain.Account{
		ID:          name,
		Name:        name,
		Kind:        domain.AccountKindBank,
		Hidden:      hidden,
		NeedsInvite: needsInvite,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.accounts.Create(ctx, bank); err != nil {
		if errors.Is(err, domain.ErrAccountExists) {
			return nil, fmt.Errorf("Create: %w", domain.ErrNameTaken)
		}
		return nil, fmt.Errorf("Create: %w", err)
	}

	if err := s.accounts.SetAccess(ctx, &domain.BankAccess{
		AccountID: bank.ID,
		UserID:    owner,
		Level:     domain.AccessLevelOwner,
		CreatedAt: bank.CreatedAt,
	}); err != nil {
		return nil, fmt.Errorf("Create: set owner: %w", err)
	}

	logging.FromContext(ctx).Info("bank created", "bank", bank.ID, "owner", owner)
	return bank, nil
}

func (s *BankService) Get(ctx context.Context, name string) (*domain.Account, error) {
	acct, err := s.accounts.GetByID(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("Get: %w", domain.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("Get: %w", err)
	}
	if !acct.IsBank() {
		return nil, fmt.Errorf("Get: %s: %w", name, domain.ErrNotABank)
	}
	return acct, nil
}

func (s *BankService) Delete(ctx context.Context, name string) error {
	bank, err := s.Get(ctx, name)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if err := s.accounts.Delete(ctx, bank.ID); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	logging.FromContext(ctx).Info("bank deleted", "bank", bank.ID)
	return nil
}

// Rename moves the bank to a free name; balances and access rows follow.
func (s *BankService) Rename(ctx context.Context, name, newName string) (*domain.Account, error) {
	if err := validateBankName(newName); err != nil {
		return nil, fmt.Errorf("Rename: %w", err)
	}
	bank, err := s.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("Rename: %w", err)
	}
	if err := s.accounts.RenameBank(ctx, bank.ID, newName); err != nil {
		return nil, fmt.Errorf("Rename: %w", err)
	}
	bank.ID = newName
	bank.Name = newName
	logging.FromContext(ctx).Info("bank renamed", "from", name, "to", newName)
	return bank, nil
}

// Invite marks a user as invited. Inviting someone who already holds a
// role is a no-op; a bank that does not require invites rejects the call.
func (s *BankService) Invite(ctx context.Context, name string, user uuid.UUID) error {
	bank, err := s.Get(ctx, name)
	if err != nil {
		return fmt.Errorf("Invite: %w", err)
	}
	if !bank.NeedsInvite {
		return fmt.Errorf("Invite: %w", domain.ErrInviteNotRequired)
	}

	_, err = s.accounts.GetAccess(ctx, bank.ID, user)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("Invite: %w", err)
	}

	if err := s.accounts.SetAccess(ctx, &domain.BankAccess{
		AccountID: bank.ID,
		UserID:    user,
		Level:     domain.AccessLevelInvited,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("Invite: %w", err)
	}
	return nil
}

// Uninvite withdraws a pending invite. It is a no-op for users who are
// not invited, including members and owners.
func (s *BankService) Uninvite(ctx context.Context, name string, user uuid.UUID) error {
	bank, err := s.Get(ctx, name)
	if err != nil {
		return fmt.Errorf("Uninvite: %w", err)
	}

	access, err := s.accounts.GetAccess(ctx, bank.ID, user)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("Uninvite: %w", err)
	}
	if access.Level != domain.AccessLevelInvited {
		return nil
	}

	if err := s.accounts.DeleteAccess(ctx, bank.ID, user); err != nil {
		return fmt.Errorf("Uninvite: %w", err)
	}
	return nil
}

// PromoteToMember makes the user a member. When the bank requires
// invites the user must hold one, unless force is set.
func (s *BankService) PromoteToMember(ctx context.Context, name string, user uuid.UUID, force bool) error {
	bank, err := s.Get(ctx, name)
	if err != nil {
		return fmt.Errorf("PromoteToMember: %w", err)
	}

	if bank.NeedsInvite && !force {
		if _, err := s.accounts.GetAccess(ctx, bank.ID, user); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("PromoteToMember: %w", domain.ErrNotInvited)
			}
			return fmt.Errorf("PromoteToMember: %w", err)
		}
	}

	return s.setLevel(ctx, bank.ID, user, domain.AccessLevelMember, "PromoteToMember")
}

func (s *BankService) PromoteToOwner(ctx context.Context, name string, user uuid.UUID) error {
	bank, err := s.Get(ctx, name)
	if err != nil {
		return fmt.Errorf("PromoteToOwner: %w", err)
	}
	return s.setLevel(ctx, bank.ID, user, domain.AccessLevelOwner, "PromoteToOwner")
}

// Kick removes whatever role the user holds.
func (s *BankService) Kick(ctx context.Context, name string, user uuid.UUID) error {
	bank, err := s.Get(ctx, name)
	if err != nil {
		return fmt.Errorf("Kick: %w", err)
	}
	if err := s.accounts.DeleteAccess(ctx, bank.ID, user); err != nil {
		return fmt.Errorf("Kick: %w", err)
	}
	return nil
}

func (s *BankService) SetHidden(ctx context.Context, name string, hidden bool) error {
	bank, err := s.Get(ctx, name)
	if err != nil {
		return fmt.Errorf("SetHidden: %w", err)
	}
	if err := s.accounts.SetHidden(ctx, bank.ID, hidden); err != nil {
		return fmt.Errorf("SetHidden: %w", err)
	}
	return nil
}

// SetNeedsInvite toggles the invite requirement. Disabling it also
// unhides the bank, since an open bank cannot be private.
func (s *BankService) SetNeedsInvite(ctx context.Context, name string, needsInvite bool) error {
	bank, err := s.Get(ctx, name)
	if err != nil {
		return fmt.Errorf("SetNeedsInvite: %w", err)
	}
	if err := s.accounts.SetNeedsInvite(ctx, bank.ID, needsInvite); err != nil {
		return fmt.Errorf("SetNeedsInvite: %w", err)
	}
	if !needsInvite && bank.Hidden {
		if err := s.accounts.SetHidden(ctx, bank.ID, false); err != nil {
			return fmt.Errorf("SetNeedsInvite: unhide: %w", err)
		}
	}
	return nil
}

func (s *BankService) IsOwner(ctx context.Context, name string, user uuid.UUID) (bool, error) {
	return s.hasLevel(ctx, name, user, domain.AccessLevelOwner)
}

func (s *BankService) IsMember(ctx context.Context, name string, user uuid.UUID) (bool, error) {
	return s.hasLevel(ctx, name, user, domain.AccessLevelMember)
}

func (s *BankService) IsInvited(ctx context.Context, name string, user uuid.UUID) (bool, error) {
	return s.hasLevel(ctx, name, user, domain.AccessLevelInvited)
}

// HasAccess reports whether the user may operate on the bank's balance,
// i.e. is owner or member.
func (s *BankService) HasAccess(ctx context.Context, name string, user uuid.UUID) (bool, error) {
	access, err := s.access(ctx, name, user)
	if err != nil || access == nil {
		return false, err
	}
	return access.Level.AtLeast(domain.AccessLevelMember), nil
}

func (s *BankService) Members(ctx context.Context, name string) ([]domain.BankAccess, error) {
	bank, err := s.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("Members: %w", err)
	}
	access, err := s.accounts.ListAccess(ctx, bank.ID)
	if err != nil {
		return nil, fmt.Errorf("Members: %w", err)
	}
	return access, nil
}

// ListForUser returns the banks where the user holds at least minLevel.
func (s *BankService) ListForUser(ctx context.Context, user uuid.UUID, minLevel domain.AccessLevel) ([]domain.Account, error) {
	if !minLevel.IsValid() {
		return nil, fmt.Errorf("ListForUser: %w: level %q", domain.ErrInvalidRequest, minLevel)
	}
	var levels []domain.AccessLevel
	for _, l := range []domain.AccessLevel{domain.AccessLevelInvited, domain.AccessLevelMember, domain.AccessLevelOwner} {
		if l.AtLeast(minLevel) {
			levels = append(levels, l)
		}
	}
	banks, err := s.accounts.ListBanksForUser(ctx, user, levels)
	if err != nil {
		return nil, fmt.Errorf("ListForUser: %w", err)
	}
	return banks, nil
}

func (s *BankService) ListAll(ctx context.Context, includeHidden bool) ([]domain.Account, error) {
	banks, err := s.accounts.ListBanks(ctx, includeHidden)
	if err != nil {
		return nil, fmt.Errorf("ListAll: %w", err)
	}
	return banks, nil
}

func (s *BankService) setLevel(ctx context.Context, bankID string, user uuid.UUID, level domain.AccessLevel, op string) error {
	if err := s.accounts.SetAccess(ctx, &domain.BankAccess{
		AccountID: bankID,
		UserID:    user,
		Level:     level,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *BankService) hasLevel(ctx context.Context, name string, user uuid.UUID, level domain.AccessLevel) (bool, error) {
	access, err := s.access(ctx, name, user)
	if err != nil || access == nil {
		return false, err
	}
	return access.Level == level, nil
}

func (s *BankService) access(ctx context.Context, name string, user uuid.UUID) (*domain.BankAccess, error) {
	bank, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	access, err := s.accounts.GetAccess(ctx, bank.ID, user)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return access, nil
}

// validateBankName keeps bank identifiers out of the UUID namespace used
// by user accounts.
func validateBankName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty bank name", domain.ErrInvalidRequest)
	}
	if _, err := uuid.Parse(name); err == nil {
		return fmt.Errorf("%w: bank name must not be a UUID", domain.ErrInvalidRequest)
	}
	return nil
}
