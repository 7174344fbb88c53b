package deals

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/dealwatch-backend/internal/domain"
	"github.com/yungbote/dealwatch-backend/internal/platform/dbctx"
	"github.com/yungbote/dealwatch-backend/internal/platform/logger"
)

// DealFilter scopes a candidate search. Zero values disable a filter. Rows
// created at or after CreatedAfter are admitted in addition to the date window
// (only undated rows when RecentDatelessOnly is set).
type DealFilter struct {
	NamePrefix         string
	NameIn             []string
	RoundType          types.RoundType
	DateFrom           *time.Time
	DateTo             *time.Time
	CreatedAfter       *time.Time
	RecentDatelessOnly bool
	AmountMin          *int64
	AmountMax          *int64
	Limit              int
}

// DealWithCompany is a deal joined with its company identity.
type DealWithCompany struct {
	types.Deal
	CompanyName           string `gorm:"column:company_name"`
	CompanyNormalizedName string `gorm:"column:company_normalized_name"`
}

type DealRepo interface {
	// InsertIfAbsent reports false when the dedup key is already taken.
	InsertIfAbsent(dbc dbctx.Context, deal *types.Deal) (bool, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Deal, error)
	GetByDedupKey(dbc dbctx.Context, key string) (*types.Deal, error)
	// GetByAmountDedupKey returns the oldest deal carrying key, if any.
	GetByAmountDedupKey(dbc dbctx.Context, key string) (*types.Deal, error)
	ListByCompanyID(dbc dbctx.Context, companyID uuid.UUID) ([]*types.Deal, error)
	Search(dbc dbctx.Context, f DealFilter) ([]DealWithCompany, error)
}

type dealRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDealRepo(db *gorm.DB, baseLog *logger.Logger) DealRepo {
	return &dealRepo{db: db, log: baseLog.With("repo", "DealRepo")}
}

func (r *dealRepo) InsertIfAbsent(dbc dbctx.Context, deal *types.Deal) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if deal == nil {
		return false, nil
	}
	if deal.ID == uuid.Nil {
		deal.ID = uuid.New()
	}
	res := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dedup_key"}},
			DoNothing: true,
		}).
		Create(deal)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *dealRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Deal, error) {
	return r.first(dbc, "id = ?", id)
}

func (r *dealRepo) GetByDedupKey(dbc dbctx.Context, key string) (*types.Deal, error) {
	if key == "" {
		return nil, nil
	}
	return r.first(dbc, "dedup_key = ?", key)
}

func (r *dealRepo) GetByAmountDedupKey(dbc dbctx.Context, key string) (*types.Deal, error) {
	if key == "" {
		return nil, nil
	}
	return r.first(dbc, "amount_dedup_key = ?", key)
}

func (r *dealRepo) first(dbc dbctx.Context, where string, arg interface{}) (*types.Deal, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.Deal
	err := transaction.WithContext(dbc.Ctx).
		Where(where, arg).
		Order("created_at ASC").
		Limit(1).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *dealRepo) ListByCompanyID(dbc dbctx.Context, companyID uuid.UUID) ([]*types.Deal, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Deal
	if companyID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("company_id = ?", companyID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Search matches NamePrefix and NameIn against company names and aliases.
// Normalized names are alphanumeric, so the prefix needs no LIKE escaping.
func (r *dealRepo) Search(dbc dbctx.Context, f DealFilter) ([]DealWithCompany, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).
		Table("deal AS d").
		Select("d.*, c.name AS company_name, c.normalized_name AS company_normalized_name").
		Joins("JOIN company c ON c.id = d.company_id")

	if cond, args := nameCondition(f.NamePrefix, f.NameIn); cond != "" {
		q = q.Where(cond, args...)
	}
	if f.RoundType != "" {
		q = q.Where("d.round_type = ?", f.RoundType)
	}

	recent := "d.created_at >= ?"
	if f.RecentDatelessOnly {
		recent = "(d.announced_date IS NULL AND d.created_at >= ?)"
	}
	switch {
	case f.DateFrom != nil && f.DateTo != nil && f.CreatedAfter != nil:
		q = q.Where("((d.announced_date >= ? AND d.announced_date <= ?) OR "+recent+")", *f.DateFrom, *f.DateTo, *f.CreatedAfter)
	case f.DateFrom != nil && f.DateTo != nil:
		q = q.Where("d.announced_date >= ? AND d.announced_date <= ?", *f.DateFrom, *f.DateTo)
	case f.CreatedAfter != nil:
		q = q.Where(recent, *f.CreatedAfter)
	}

	if f.AmountMin != nil {
		q = q.Where("d.normalized_amount >= ?", *f.AmountMin)
	}
	if f.AmountMax != nil {
		q = q.Where("d.normalized_amount <= ?", *f.AmountMax)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 200
	}
	var out []DealWithCompany
	if err := q.Order("d.created_at ASC").Limit(limit).Scan(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == limit {
		r.log.Warn("candidate search hit limit", "name_prefix", f.NamePrefix, "limit", limit)
	}
	return out, nil
}

func nameCondition(prefix string, in []string) (string, []interface{}) {
	var (
		company []string
		alias   []string
		args    []interface{}
	)
	if prefix != "" {
		company = append(company, "c.normalized_name LIKE ?")
		alias = append(alias, "ca.normalized_alias LIKE ?")
	}
	if len(in) > 0 {
		company = append(company, "c.normalized_name IN ?")
		alias = append(alias, "ca.normalized_alias IN ?")
	}
	if len(company) == 0 {
		return "", nil
	}
	for pass := 0; pass < 2; pass++ {
		if prefix != "" {
			args = append(args, prefix+"%")
		}
		if len(in) > 0 {
			args = append(args, in)
		}
	}
	cond := "(" + strings.Join(company, " OR ") +
		" OR d.company_id IN (SELECT ca.company_id FROM company_alias ca WHERE " + strings.Join(alias, " OR ") + "))"
	return cond, args
}
