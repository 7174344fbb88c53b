package deals

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/dealwatch-backend/internal/domain"
	"github.com/yungbote/dealwatch-backend/internal/platform/dbctx"
	"github.com/yungbote/dealwatch-backend/internal/platform/logger"
)

type CompanyRepo interface {
	// InsertIfAbsent reports false when a company with the same normalized name exists.
	InsertIfAbsent(dbc dbctx.Context, company *types.Company) (bool, error)
	GetByNormalizedName(dbc dbctx.Context, normalizedName string) (*types.Company, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Company, error)
}

type companyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCompanyRepo(db *gorm.DB, baseLog *logger.Logger) CompanyRepo {
	return &companyRepo{db: db, log: baseLog.With("repo", "CompanyRepo")}
}

func (r *companyRepo) InsertIfAbsent(dbc dbctx.Context, company *types.Company) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if company == nil {
		return false, nil
	}
	if company.ID == uuid.Nil {
		company.ID = uuid.New()
	}
	res := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "normalized_name"}},
			DoNothing: true,
		}).
		Create(company)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *companyRepo) GetByNormalizedName(dbc dbctx.Context, normalizedName string) (*types.Company, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if normalizedName == "" {
		return nil, nil
	}
	var out types.Company
	err := transaction.WithContext(dbc.Ctx).
		Where("normalized_name = ?", normalizedName).
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

func (r *companyRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Company, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Company
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
