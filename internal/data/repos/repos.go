package repos

import (
	"github.com/yungbote/dealwatch-backend/internal/data/repos/deals"
	"github.com/yungbote/dealwatch-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type CompanyRepo = deals.CompanyRepo
type CompanyAliasRepo = deals.CompanyAliasRepo
type DealRepo = deals.DealRepo
type SourceLinkRepo = deals.SourceLinkRepo

type DealFilter = deals.DealFilter
type DealWithCompany = deals.DealWithCompany

func NewCompanyRepo(db *gorm.DB, baseLog *logger.Logger) CompanyRepo {
	return deals.NewCompanyRepo(db, baseLog)
}
func NewCompanyAliasRepo(db *gorm.DB, baseLog *logger.Logger) CompanyAliasRepo {
	return deals.NewCompanyAliasRepo(db, baseLog)
}
func NewDealRepo(db *gorm.DB, baseLog *logger.Logger) DealRepo { return deals.NewDealRepo(db, baseLog) }
func NewSourceLinkRepo(db *gorm.DB, baseLog *logger.Logger) SourceLinkRepo {
	return deals.NewSourceLinkRepo(db, baseLog)
}

// Set bundles every repo the deal identity write path needs.
type Set struct {
	Companies   CompanyRepo
	Aliases     CompanyAliasRepo
	Deals       DealRepo
	SourceLinks SourceLinkRepo
}

func NewSet(db *gorm.DB, baseLog *logger.Logger) Set {
	return Set{
		Companies:   NewCompanyRepo(db, baseLog),
		Aliases:     NewCompanyAliasRepo(db, baseLog),
		Deals:       NewDealRepo(db, baseLog),
		SourceLinks: NewSourceLinkRepo(db, baseLog),
	}
}
