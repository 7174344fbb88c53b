package deals

import (
	"time"

	"github.com/google/uuid"
)

// Company is the canonical identity for a startup. NormalizedName is the broad
// normalized token and is unique.
type Company struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string    `gorm:"column:name;not null" json:"name"`
	NormalizedName string    `gorm:"column:normalized_name;not null;uniqueIndex:idx_company_normalized_name" json:"normalized_name"`
	CreatedAt      time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

func (Company) TableName() string { return "company" }

type AliasKind string

const (
	AliasRebrand  AliasKind = "rebrand"
	AliasDBA      AliasKind = "dba"
	AliasAcquired AliasKind = "acquired"
	AliasTypo     AliasKind = "typo"
)

func (k AliasKind) Valid() bool {
	switch k {
	case AliasRebrand, AliasDBA, AliasAcquired, AliasTypo:
		return true
	default:
		return false
	}
}

// CompanyAlias resolves name drift (rebrands, DBAs, acquisitions, common typos)
// onto a canonical Company.
type CompanyAlias struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_company_alias_company_norm,priority:1" json:"company_id"`
	Alias           string     `gorm:"column:alias;not null" json:"alias"`
	NormalizedAlias string     `gorm:"column:normalized_alias;not null;index;uniqueIndex:idx_company_alias_company_norm,priority:2" json:"normalized_alias"`
	Kind            AliasKind  `gorm:"column:kind;not null" json:"kind"`
	EffectiveDate   *time.Time `gorm:"column:effective_date" json:"effective_date,omitempty"`
	CreatedAt       time.Time  `gorm:"not null" json:"created_at"`
}

func (CompanyAlias) TableName() string { return "company_alias" }
