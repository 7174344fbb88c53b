package dedup

import (
	"context"
	"time"

	"github.com/yungbote/dealwatch-backend/internal/domain/deals"
)

// Query is one narrowly scoped candidate lookup. Filters combine with AND,
// except that rows created at or after CreatedAfter are admitted alongside the
// date window (only undated rows when RecentDatelessOnly is set).
type Query struct {
	Label string

	// A row passes the name filter when its company normalized name or one of
	// its aliases starts with NamePrefix or equals an entry of NameIn.
	NamePrefix string
	NameIn     []string
	Round      deals.RoundType

	DateFrom           *time.Time
	DateTo             *time.Time
	CreatedAfter       *time.Time
	RecentDatelessOnly bool

	// AmountMin and AmountMax require a known amount inside the range.
	AmountMin *int64
	AmountMax *int64

	Limit int
}

// Row is a stored deal with the company identity needed for name checks.
type Row struct {
	Deal           deals.Deal
	CompanyName    string
	NormalizedName string
	Aliases        []string
}

// Store is the read side the matcher runs against. Implementations must read
// through the caller's transaction.
type Store interface {
	FindCandidates(ctx context.Context, q Query) ([]Row, error)
}
