package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinage-io/coinage/internal/domain"
)

func TestBankService_Create(t *testing.T) {
	repo := newFakeAccountRepo()
	banks := NewBankService(repo)
	owner := uuid.New()

	bank, err := banks.Create(context.Background(), "treasury", owner, false, true)
	require.NoError(t, err)
	assert.Equal(t, "treasury", bank.ID)
	assert.True(t, bank.NeedsInvite)

	isOwner, err := banks.IsOwner(context.Background(), "treasury", owner)
	require.NoError(t, err)
	assert.True(t, isOwner)

	t.Run("name taken", func(t *testing.T) {
		_, err := banks.Create(context.Background(), "treasury", uuid.New(), false, false)
		assert.ErrorIs(t, err, domain.ErrNameTaken)
	})

	t.Run("uuid names rejected", func(t *testing.T) {
		_, err := banks.Create(context.Background(), uuid.NewString(), owner, false, false)
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	})

	t.Run("empty name rejected", func(t *testing.T) {
		_, err := banks.Create(context.Background(), "", owner, false, false)
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	})
}

func TestBankService_GetRejectsUserAccounts(t *testing.T) {
	repo := newFakeAccountRepo()
	banks := NewBankService(repo)

	userID := uuid.NewString()
	require.NoError(t, repo.Create(context.Background(), &domain.Account{
		ID: userID, Name: "player", Kind: domain.AccountKindUser,
	}))

	_, err := banks.Get(context.Background(), userID)
	assert.ErrorIs(t, err, domain.ErrNotABank)

	_, err = banks.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestBankService_MembershipLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newFakeAccountRepo()
	banks := NewBankService(repo)
	owner, user := uuid.New(), uuid.New()

	_, err := banks.Create(ctx, "guild", owner, false, true)
	require.NoError(t, err)

	// Joining an invite-only bank without an invite is refused.
	err = banks.PromoteToMember(ctx, "guild", user, false)
	assert.ErrorIs(t, err, domain.ErrNotInvited)

	require.NoError(t, banks.Invite(ctx, "guild", user))
	invited, err := banks.IsInvited(ctx, "guild", user)
	require.NoError(t, err)
	assert.True(t, invited)

	// Invited users cannot yet touch the balance.
	hasAccess, err := banks.HasAccess(ctx, "guild", user)
	require.NoError(t, err)
	assert.False(t, hasAccess)

	require.NoError(t, banks.PromoteToMember(ctx, "guild", user, false))
	member, err := banks.IsMember(ctx, "guild", user)
	require.NoError(t, err)
	assert.True(t, member)

	hasAccess, err = banks.HasAccess(ctx, "guild", user)
	require.NoError(t, err)
	assert.True(t, hasAccess)

	require.NoError(t, banks.PromoteToOwner(ctx, "guild", user))
	isOwner, err := banks.IsOwner(ctx, "guild", user)
	require.NoError(t, err)
	assert.True(t, isOwner)

	require.NoError(t, banks.Kick(ctx, "guild", user))
	hasAccess, err = banks.HasAccess(ctx, "guild", user)
	require.NoError(t, err)
	assert.False(t, hasAccess)
}

func TestBankService_Invite(t *testing.T) {
	ctx := context.Background()
	repo := newFakeAccountRepo()
	banks := NewBankService(repo)
	owner, user := uuid.New(), uuid.New()

	t.Run("open bank refuses invites", func(t *testing.T) {
		_, err := banks.Create(ctx, "open-bank", owner, false, false)
		require.NoError(t, err)

		err = banks.Invite(ctx, "open-bank", user)
		assert.ErrorIs(t, err, domain.ErrInviteNotRequired)
	})

	t.Run("inviting a member does not demote", func(t *testing.T) {
		_, err := banks.Create(ctx, "closed-bank", owner, false, true)
		require.NoError(t, err)
		require.NoError(t, banks.PromoteToMember(ctx, "closed-bank", user, true))

		require.NoError(t, banks.Invite(ctx, "closed-bank", user))
		member, err := banks.IsMember(ctx, "closed-bank", user)
		require.NoError(t, err)
		assert.True(t, member)
	})
}

func TestBankService_Uninvite(t *testing.T) {
	ctx := context.Background()
	repo := newFakeAccountRepo()
	banks := NewBankService(repo)
	owner, invitee, member := uuid.New(), uuid.New(), uuid.New()

	_, err := banks.Create(ctx, "guild", owner, false, true)
	require.NoError(t, err)
	require.NoError(t, banks.Invite(ctx, "guild", invitee))
	require.NoError(t, banks.PromoteToMember(ctx, "guild", member, true))

	// Uninvite clears a pending invite but never touches members.
	require.NoError(t, banks.Uninvite(ctx, "guild", invitee))
	invited, err := banks.IsInvited(ctx, "guild", invitee)
	require.NoError(t, err)
	assert.False(t, invited)

	require.NoError(t, banks.Uninvite(ctx, "guild", member))
	stillMember, err := banks.IsMember(ctx, "guild", member)
	require.NoError(t, err)
	assert.True(t, stillMember)

	// Unknown users are a no-op.
	require.NoError(t, banks.Uninvite(ctx, "guild", uuid.New()))
}

func TestBankService_Rename(t *testing.T) {
	ctx := context.Background()
	repo := newFakeAccountRepo()
	banks := NewBankService(repo)
	owner := uuid.New()

	_, err := banks.Create(ctx, "old-name", owner, false, false)
	require.NoError(t, err)
	_, err = banks.Create(ctx, "taken", uuid.New(), false, false)
	require.NoError(t, err)

	t.Run("target taken", func(t *testing.T) {
		_, err := banks.Rename(ctx, "old-name", "taken")
		assert.Error(t, err)
	})

	t.Run("access follows the rename", func(t *testing.T) {
		bank, err := banks.Rename(ctx, "old-name", "new-name")
		require.NoError(t, err)
		assert.Equal(t, "new-name", bank.ID)

		isOwner, err := banks.IsOwner(ctx, "new-name", owner)
		require.NoError(t, err)
		assert.True(t, isOwner)

		_, err = banks.Get(ctx, "old-name")
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	})
}

func TestBankService_SetNeedsInviteUnhides(t *testing.T) {
	ctx := context.Background()
	repo := newFakeAccountRepo()
	banks := NewBankService(repo)

	_, err := banks.Create(ctx, "vault", uuid.New(), true, true)
	require.NoError(t, err)

	require.NoError(t, banks.SetNeedsInvite(ctx, "vault", false))

	bank, err := banks.Get(ctx, "vault")
	require.NoError(t, err)
	assert.False(t, bank.NeedsInvite)
	assert.False(t, bank.Hidden)
}

func TestBankService_ListForUser(t *testing.T) {
	ctx := context.Background()
	repo := newFakeAccountRepo()
	banks := NewBankService(repo)
	user := uuid.New()

	_, err := banks.Create(ctx, "owned", user, false, false)
	require.NoError(t, err)
	_, err = banks.Create(ctx, "joined", uuid.New(), false, false)
	require.NoError(t, err)
	require.NoError(t, banks.PromoteToMember(ctx, "joined", user, false))
	_, err = banks.Create(ctx, "pending", uuid.New(), false, true)
	require.NoError(t, err)
	require.NoError(t, banks.Invite(ctx, "pending", user))

	memberOf, err := banks.ListForUser(ctx, user, domain.AccessLevelMember)
	require.NoError(t, err)
	names := make([]string, len(memberOf))
	for i, b := range memberOf {
		names[i] = b.ID
	}
	assert.ElementsMatch(t, []string{"owned", "joined"}, names)

	all, err := banks.ListForUser(ctx, user, domain.AccessLevelInvited)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = banks.ListForUser(ctx, user, domain.AccessLevel("bogus"))
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestBankService_ListAllHidesHiddenBanks(t *testing.T) {
	ctx := context.Background()
	repo := newFakeAccountRepo()
	banks := NewBankService(repo)

	_, err := banks.Create(ctx, "public", uuid.New(), false, false)
	require.NoError(t, err)
	_, err = banks.Create(ctx, "secret", uuid.New(), true, true)
	require.NoError(t, err)

	visible, err := banks.ListAll(ctx, false)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "public", visible[0].ID)

	all, err := banks.ListAll(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
