package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/dealwatch-backend/internal/domain/deals"
)

var DealIdentityAggregateContract = Contract{
	Name:             "Deals.DealIdentityAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes:            "Owns resolve-and-persist of candidate deal records: one deal row per event, idempotent source linking.",
}

// DealIdentityAggregate owns deal identity invariants.
//
// Write method failures return *aggregates.Error with codes:
// CodeValidation, CodeConflict, CodeRetryable, CodeInternal.
// A primary dedup key collision is not a failure; it resolves to the existing deal.
type DealIdentityAggregate interface {
	Aggregate

	// Resolve matches the candidate against stored deals and either merges it into
	// an existing deal or creates a new one, linking the candidate's source URL.
	Resolve(ctx context.Context, in ResolveDealInput) (ResolveDealResult, error)

	// RegisterAlias attaches an alternate name to a company so future records
	// under that name resolve to it.
	RegisterAlias(ctx context.Context, in RegisterAliasInput) (RegisterAliasResult, error)
}

type ResolveDealInput struct {
	Candidate deals.Candidate
}

// ResolveDealResult reports "new deal #M created" (Created) or "linked to
// existing deal #N" (!Created). Tier names the path that found the existing deal.
type ResolveDealResult struct {
	DealID        uuid.UUID
	Created       bool
	Tier          string
	Linked        bool
	RoundMismatch bool
	Alert         *deals.Alert
}

type RegisterAliasInput struct {
	CompanyName   string
	Alias         string
	Kind          deals.AliasKind
	EffectiveDate *time.Time
}

type RegisterAliasResult struct {
	CompanyID uuid.UUID
	AliasID   uuid.UUID
	Created   bool
}
