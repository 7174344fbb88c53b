package aggregates

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/dealwatch-backend/internal/data/repos"
	"github.com/yungbote/dealwatch-backend/internal/dedup"
	"github.com/yungbote/dealwatch-backend/internal/platform/dbctx"
)

// matchStore serves matcher queries from the repos, inside the caller's transaction.
type matchStore struct {
	tx      dbctx.Context
	deals   repos.DealRepo
	aliases repos.CompanyAliasRepo
}

var _ dedup.Store = (*matchStore)(nil)

func newMatchStore(dbc dbctx.Context, set repos.Set) *matchStore {
	return &matchStore{tx: dbc, deals: set.Deals, aliases: set.Aliases}
}

func (s *matchStore) FindCandidates(ctx context.Context, q dedup.Query) ([]dedup.Row, error) {
	dbc := dbctx.Context{Ctx: ctx, Tx: s.tx.Tx}
	found, err := s.deals.Search(dbc, repos.DealFilter{
		NamePrefix:         q.NamePrefix,
		NameIn:             q.NameIn,
		RoundType:          q.Round,
		DateFrom:           q.DateFrom,
		DateTo:             q.DateTo,
		CreatedAfter:       q.CreatedAfter,
		RecentDatelessOnly: q.RecentDatelessOnly,
		AmountMin:          q.AmountMin,
		AmountMax:          q.AmountMax,
		Limit:              q.Limit,
	})
	if err != nil || len(found) == 0 {
		return nil, err
	}

	seen := map[uuid.UUID]bool{}
	companyIDs := make([]uuid.UUID, 0, len(found))
	for _, f := range found {
		if !seen[f.CompanyID] {
			seen[f.CompanyID] = true
			companyIDs = append(companyIDs, f.CompanyID)
		}
	}
	aliases, err := s.aliases.ListByCompanyIDs(dbc, companyIDs)
	if err != nil {
		return nil, err
	}
	byCompany := map[uuid.UUID][]string{}
	for _, a := range aliases {
		byCompany[a.CompanyID] = append(byCompany[a.CompanyID], a.NormalizedAlias)
	}

	rows := make([]dedup.Row, 0, len(found))
	for _, f := range found {
		rows = append(rows, dedup.Row{
			Deal:           f.Deal,
			CompanyName:    f.CompanyName,
			NormalizedName: f.CompanyNormalizedName,
			Aliases:        byCompany[f.CompanyID],
		})
	}
	return rows, nil
}
