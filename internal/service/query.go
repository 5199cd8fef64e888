package service

import (
	"context"
	"fmt"

	"github.com/coinage-io/coinage/internal/domain"
)

// QueryService serves the read-only ledger listings used by
// administrative and informational callers.
type QueryService struct {
	balances balanceRepository
}

func NewQueryService(balances balanceRepository) *QueryService {
	return &QueryService{balances: balances}
}

// TopBalances ranks accounts by descending balance within the 1-based
// inclusive window. Hidden accounts are left out entirely unless
// includeHidden is set, so they never consume a rank.
func (s *QueryService) TopBalances(ctx context.Context, cur *domain.Currency, scopes []domain.Scope, kinds []domain.AccountKind, fromRank, toRank int, includeHidden bool) ([]domain.RankedBalance, error) {
	// No resolvable scope means no account tracks a balance under the
	// request, the same context mismatch the write path reports.
	scope, ok := cur.ResolveScope(scopes)
	if !ok {
		return nil, nil
	}
	if len(kinds) == 0 {
		kinds = []domain.AccountKind{domain.AccountKindUser, domain.AccountKindBank}
	}
	ranked, err := s.balances.TopBalances(ctx, cur.ID, scope, kinds, fromRank, toRank, includeHidden)
	if err != nil {
		return nil, fmt.Errorf("TopBalances: %w", err)
	}
	return ranked, nil
}
