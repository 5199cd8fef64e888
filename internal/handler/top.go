package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/coinage-io/coinage/internal/auth"
	"github.com/coinage-io/coinage/internal/domain"
)

type topBalanceService interface {
	TopBalances(ctx context.Context, cur *domain.Currency, scopes []domain.Scope, kinds []domain.AccountKind, fromRank, toRank int, includeHidden bool) ([]domain.RankedBalance, error)
}

type TopHandler struct {
	query      topBalanceService
	currencies *domain.Currencies
}

func NewTopHandler(query topBalanceService, currencies *domain.Currencies) *TopHandler {
	return &TopHandler{query: query, currencies: currencies}
}

type rankedBalanceDTO struct {
	Rank    int    `json:"rank"`
	Account string `json:"account"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Amount  string `json:"amount"`
	Display string `json:"display"`
}

// TopBalances lists the richest accounts in a currency, ranked by
// balance. Hidden banks are excluded unless an admin asks for them.
func (h *TopHandler) TopBalances(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	q := r.URL.Query()

	cur := h.currencies.Default()
	if id := q.Get("currency"); id != "" {
		c, found := h.currencies.ByID(id)
		if !found {
			RespondAppError(w, ErrInvalidCurrency, nil)
			return
		}
		cur = c
	}

	scopes, appErr := scopesFromQuery(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var kinds []domain.AccountKind
	switch q.Get("kind") {
	case "", "all":
	case "user":
		kinds = []domain.AccountKind{domain.AccountKindUser}
	case "bank":
		kinds = []domain.AccountKind{domain.AccountKindBank}
	default:
		RespondValidationError(w, []FieldError{{Field: "kind", Message: "must be user, bank or all"}})
		return
	}

	fromRank, toRank := 1, 10
	var err error
	if raw := q.Get("from"); raw != "" {
		if fromRank, err = strconv.Atoi(raw); err != nil {
			RespondValidationError(w, []FieldError{{Field: "from", Message: "must be an integer"}})
			return
		}
	}
	if raw := q.Get("to"); raw != "" {
		if toRank, err = strconv.Atoi(raw); err != nil {
			RespondValidationError(w, []FieldError{{Field: "to", Message: "must be an integer"}})
			return
		}
	}

	includeHidden := caller.Admin && q.Get("hidden") == "true"

	ranked, err := h.query.TopBalances(r.Context(), cur, scopes, kinds, fromRank, toRank, includeHidden)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]rankedBalanceDTO, len(ranked))
	for i, rb := range ranked {
		amount := cur.FromMinorUnits(rb.Amount)
		dtos[i] = rankedBalanceDTO{
			Rank:    rb.Rank,
			Account: rb.AccountID,
			Name:    rb.AccountName,
			Kind:    string(rb.Kind),
			Amount:  amount.String(),
			Display: cur.Format(amount),
		}
	}
	RespondSuccess(w, http.StatusOK, dtos)
}
