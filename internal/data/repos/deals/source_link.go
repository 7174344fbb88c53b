package deals

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/dealwatch-backend/internal/domain"
	"github.com/yungbote/dealwatch-backend/internal/platform/dbctx"
	"github.com/yungbote/dealwatch-backend/internal/platform/logger"
)

type SourceLinkRepo interface {
	// InsertIfAbsent is keyed on source_url; re-linking a URL is a no-op.
	InsertIfAbsent(dbc dbctx.Context, link *types.SourceLink) (bool, error)
	GetByURL(dbc dbctx.Context, url string) (*types.SourceLink, error)
	ListByDealID(dbc dbctx.Context, dealID uuid.UUID) ([]*types.SourceLink, error)
}

type sourceLinkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSourceLinkRepo(db *gorm.DB, baseLog *logger.Logger) SourceLinkRepo {
	return &sourceLinkRepo{db: db, log: baseLog.With("repo", "SourceLinkRepo")}
}

func (r *sourceLinkRepo) InsertIfAbsent(dbc dbctx.Context, link *types.SourceLink) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if link == nil || link.SourceURL == "" {
		return false, nil
	}
	if link.ID == uuid.Nil {
		link.ID = uuid.New()
	}
	res := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source_url"}},
			DoNothing: true,
		}).
		Create(link)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *sourceLinkRepo) GetByURL(dbc dbctx.Context, url string) (*types.SourceLink, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if url == "" {
		return nil, nil
	}
	var out types.SourceLink
	err := transaction.WithContext(dbc.Ctx).
		Where("source_url = ?", url).
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

func (r *sourceLinkRepo) ListByDealID(dbc dbctx.Context, dealID uuid.UUID) ([]*types.SourceLink, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.SourceLink
	if dealID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("deal_id = ?", dealID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
