package db

import (
	"fmt"

	types "github.com/yungbote/dealwatch-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(types.Models()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return EnsureDealIndexes(db)
}

// EnsureDealIndexes adds the prefix-search indexes the matcher relies on. Only
// Postgres needs text_pattern_ops for LIKE 'abc%' to use a btree.
func EnsureDealIndexes(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_company_normalized_name_prefix ON company (normalized_name text_pattern_ops);`,
		`CREATE INDEX IF NOT EXISTS idx_company_alias_normalized_prefix ON company_alias (normalized_alias text_pattern_ops);`,
		`CREATE INDEX IF NOT EXISTS idx_deal_company_round_date ON deal (company_id, round_type, announced_date);`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("ensure deal indexes: %w", err)
		}
	}
	return nil
}
