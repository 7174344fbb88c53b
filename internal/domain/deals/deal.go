package deals

import (
	"time"

	"github.com/google/uuid"
)

// Deal is one row per real-world financing event. DedupKey carries the unique
// constraint that backs concurrent insert safety; Version guards merges.
type Deal struct {
	ID               uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID        uuid.UUID    `gorm:"type:uuid;not null;index" json:"company_id"`
	RoundType        RoundType    `gorm:"column:round_type;not null;index" json:"round_type"`
	RawAmount        string       `gorm:"column:raw_amount" json:"raw_amount"`
	NormalizedAmount *int64       `gorm:"column:normalized_amount;index" json:"normalized_amount,omitempty"`
	AmountSource     AmountSource `gorm:"column:amount_source;not null" json:"amount_source"`
	AnnouncedDate    *time.Time   `gorm:"column:announced_date;index" json:"announced_date,omitempty"`
	DateConfidence   float64      `gorm:"column:date_confidence;not null;default:0" json:"date_confidence"`
	DateSourceCount  int          `gorm:"column:date_source_count;not null;default:0" json:"date_source_count"`
	DedupKey         string       `gorm:"column:dedup_key;size:32;not null;uniqueIndex:idx_deal_dedup_key" json:"dedup_key"`
	AmountDedupKey   *string      `gorm:"column:amount_dedup_key;size:32;index:idx_deal_amount_dedup_key" json:"amount_dedup_key,omitempty"`
	LeadInvestor     string       `gorm:"column:lead_investor" json:"lead_investor,omitempty"`
	LeadConfirmed    bool         `gorm:"column:lead_confirmed;not null;default:false" json:"lead_confirmed"`
	EvidenceStrong   bool         `gorm:"column:evidence_strong;not null;default:false" json:"evidence_strong"`
	Version          int          `gorm:"column:version;not null;default:0" json:"version"`
	CreatedAt        time.Time    `gorm:"not null;index" json:"created_at"`
	UpdatedAt        time.Time    `gorm:"not null" json:"updated_at"`
}

func (Deal) TableName() string { return "deal" }

// SourceLink ties one externally sourced record to the deal it was folded into.
type SourceLink struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DealID     uuid.UUID `gorm:"type:uuid;not null;index" json:"deal_id"`
	SourceURL  string    `gorm:"column:source_url;not null;uniqueIndex:idx_source_link_url" json:"source_url"`
	SourceName string    `gorm:"column:source_name" json:"source_name,omitempty"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

func (SourceLink) TableName() string { return "source_link" }
