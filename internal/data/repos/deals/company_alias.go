package deals

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/dealwatch-backend/internal/domain"
	"github.com/yungbote/dealwatch-backend/internal/platform/dbctx"
	"github.com/yungbote/dealwatch-backend/internal/platform/logger"
)

type CompanyAliasRepo interface {
	InsertIfAbsent(dbc dbctx.Context, alias *types.CompanyAlias) (bool, error)
	GetByCompanyAndNormalized(dbc dbctx.Context, companyID uuid.UUID, normalizedAlias string) (*types.CompanyAlias, error)
	// GetByNormalized returns the oldest alias with that normalized form across all companies.
	GetByNormalized(dbc dbctx.Context, normalizedAlias string) (*types.CompanyAlias, error)
	ListByCompanyIDs(dbc dbctx.Context, companyIDs []uuid.UUID) ([]*types.CompanyAlias, error)
}

type companyAliasRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCompanyAliasRepo(db *gorm.DB, baseLog *logger.Logger) CompanyAliasRepo {
	return &companyAliasRepo{db: db, log: baseLog.With("repo", "CompanyAliasRepo")}
}

func (r *companyAliasRepo) InsertIfAbsent(dbc dbctx.Context, alias *types.CompanyAlias) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if alias == nil {
		return false, nil
	}
	if alias.ID == uuid.Nil {
		alias.ID = uuid.New()
	}
	res := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "company_id"}, {Name: "normalized_alias"}},
			DoNothing: true,
		}).
		Create(alias)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *companyAliasRepo) GetByCompanyAndNormalized(dbc dbctx.Context, companyID uuid.UUID, normalizedAlias string) (*types.CompanyAlias, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if companyID == uuid.Nil || normalizedAlias == "" {
		return nil, nil
	}
	var out types.CompanyAlias
	err := transaction.WithContext(dbc.Ctx).
		Where("company_id = ? AND normalized_alias = ?", companyID, normalizedAlias).
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

func (r *companyAliasRepo) GetByNormalized(dbc dbctx.Context, normalizedAlias string) (*types.CompanyAlias, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if normalizedAlias == "" {
		return nil, nil
	}
	var out types.CompanyAlias
	err := transaction.WithContext(dbc.Ctx).
		Where("normalized_alias = ?", normalizedAlias).
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

func (r *companyAliasRepo) ListByCompanyIDs(dbc dbctx.Context, companyIDs []uuid.UUID) ([]*types.CompanyAlias, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.CompanyAlias
	if len(companyIDs) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("company_id IN ?", companyIDs).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
