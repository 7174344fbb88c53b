package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	types "github.com/yungbote/dealwatch-backend/internal/domain"
	"github.com/yungbote/dealwatch-backend/internal/domain/deals"
	"github.com/yungbote/dealwatch-backend/internal/normalization"
	"gorm.io/gorm"
)

func SeedCompany(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.Company {
	tb.Helper()
	now := time.Now().UTC()
	c := &types.Company{
		ID:             uuid.New(),
		Name:           name,
		NormalizedName: normalization.NormalizeName(name),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed company: %v", err)
	}
	return c
}

func SeedAlias(tb testing.TB, ctx context.Context, tx *gorm.DB, companyID uuid.UUID, alias string, kind types.AliasKind) *types.CompanyAlias {
	tb.Helper()
	a := &types.CompanyAlias{
		ID:              uuid.New(),
		CompanyID:       companyID,
		Alias:           alias,
		NormalizedAlias: normalization.NormalizeName(alias),
		Kind:            kind,
		CreatedAt:       time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed alias: %v", err)
	}
	return a
}

// SeedDeal stores a deal with a random dedup key unless one is set.
func SeedDeal(tb testing.TB, ctx context.Context, tx *gorm.DB, d *types.Deal) *types.Deal {
	tb.Helper()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.DedupKey == "" {
		d.DedupKey = uuid.NewString()[:32]
	}
	if d.RoundType == "" {
		d.RoundType = deals.RoundUnknown
	}
	if d.AmountSource == "" {
		d.AmountSource = deals.AmountSourceArticle
	}
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = d.CreatedAt
	}
	if err := tx.WithContext(ctx).Create(d).Error; err != nil {
		tb.Fatalf("seed deal: %v", err)
	}
	return d
}

func Day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}
