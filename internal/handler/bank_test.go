package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinage-io/coinage/internal/auth"
	"github.com/coinage-io/coinage/internal/domain"
)

type fakeBanks struct {
	owner uuid.UUID

	joinedUser  uuid.UUID
	joinedForce bool
	joinCalls   int
}

func (f *fakeBanks) Create(_ context.Context, name string, owner uuid.UUID, hidden, needsInvite bool) (*domain.Account, error) {
	return &domain.Account{ID: name, Name: name, Kind: domain.AccountKindBank, Hidden: hidden, NeedsInvite: needsInvite}, nil
}

func (f *fakeBanks) Get(_ context.Context, name string) (*domain.Account, error) {
	return &domain.Account{ID: name, Name: name, Kind: domain.AccountKindBank}, nil
}

func (f *fakeBanks) Delete(context.Context, string) error { return nil }

func (f *fakeBanks) Rename(_ context.Context, _, newName string) (*domain.Account, error) {
	return &domain.Account{ID: newName, Name: newName, Kind: domain.AccountKindBank}, nil
}

func (f *fakeBanks) Invite(context.Context, string, uuid.UUID) error   { return nil }
func (f *fakeBanks) Uninvite(context.Context, string, uuid.UUID) error { return nil }

func (f *fakeBanks) PromoteToMember(_ context.Context, _ string, user uuid.UUID, force bool) error {
	f.joinCalls++
	f.joinedUser = user
	f.joinedForce = force
	return nil
}

func (f *fakeBanks) PromoteToOwner(context.Context, string, uuid.UUID) error { return nil }
func (f *fakeBanks) Kick(context.Context, string, uuid.UUID) error           { return nil }
func (f *fakeBanks) SetHidden(context.Context, string, bool) error           { return nil }
func (f *fakeBanks) SetNeedsInvite(context.Context, string, bool) error      { return nil }

func (f *fakeBanks) IsOwner(_ context.Context, _ string, user uuid.UUID) (bool, error) {
	return user == f.owner, nil
}

func (f *fakeBanks) Members(context.Context, string) ([]domain.BankAccess, error) {
	return nil, nil
}

func (f *fakeBanks) ListForUser(context.Context, uuid.UUID, domain.AccessLevel) ([]domain.Account, error) {
	return nil, nil
}

func (f *fakeBanks) ListAll(context.Context, bool) ([]domain.Account, error) {
	return nil, nil
}

func doBankRequest(t *testing.T, h http.HandlerFunc, name, body string, caller *auth.Claims) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.SetPathValue("name", name)
	if caller != nil {
		req = req.WithContext(auth.ContextWithCaller(req.Context(), *caller))
	}

	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestBankHandler_Join(t *testing.T) {
	callerID := uuid.New()

	t.Run("empty body joins the caller", func(t *testing.T) {
		banks := &fakeBanks{}
		h := NewBankHandler(banks)

		rec := doBankRequest(t, h.Join, "guild", "", &auth.Claims{CallerID: callerID})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, banks.joinCalls)
		assert.Equal(t, callerID, banks.joinedUser)
		assert.False(t, banks.joinedForce)
	})

	t.Run("malformed body is rejected", func(t *testing.T) {
		banks := &fakeBanks{}
		h := NewBankHandler(banks)

		rec := doBankRequest(t, h.Join, "guild", `{"user_id": `, &auth.Claims{CallerID: callerID})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeResponse(t, rec)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "INVALID_REQUEST", resp.Error.Code)
		assert.Zero(t, banks.joinCalls)
	})

	t.Run("owner force-joins another user", func(t *testing.T) {
		banks := &fakeBanks{owner: callerID}
		h := NewBankHandler(banks)
		member := uuid.New()

		rec := doBankRequest(t, h.Join, "guild", `{"user_id": "`+member.String()+`"}`, &auth.Claims{CallerID: callerID})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, member, banks.joinedUser)
		assert.True(t, banks.joinedForce)
	})

	t.Run("non-owner cannot join another user", func(t *testing.T) {
		banks := &fakeBanks{}
		h := NewBankHandler(banks)
		member := uuid.New()

		rec := doBankRequest(t, h.Join, "guild", `{"user_id": "`+member.String()+`"}`, &auth.Claims{CallerID: callerID})

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Zero(t, banks.joinCalls)
	})
}
