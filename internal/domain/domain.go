package domain

import (
	"github.com/yungbote/dealwatch-backend/internal/domain/deals"
)

type (
	Company        = deals.Company
	CompanyAlias   = deals.CompanyAlias
	Deal           = deals.Deal
	SourceLink     = deals.SourceLink
	Candidate      = deals.Candidate
	FilingOverride = deals.FilingOverride
	Alert          = deals.Alert
	RoundType      = deals.RoundType
	AmountSource   = deals.AmountSource
	AliasKind      = deals.AliasKind
)

// Models lists every persisted type in migration order.
func Models() []interface{} {
	return []interface{}{
		&deals.Company{},
		&deals.CompanyAlias{},
		&deals.Deal{},
		&deals.SourceLink{},
	}
}
