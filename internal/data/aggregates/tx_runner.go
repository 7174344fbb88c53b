package aggregates

import (
	"context"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/dealwatch-backend/internal/domain/aggregates"
	"github.com/yungbote/dealwatch-backend/internal/platform/dbctx"
)

// TxRunner owns the transaction boundary of one aggregate write. Resolve runs
// every step for a record inside a single InTx call.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if r == nil || r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, "aggregate.tx", "no database configured for aggregate writes", nil)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}

// inSavepoint runs fn in a nested transaction when dbc carries one. A statement
// that fails inside fn then rolls back to the savepoint and leaves the outer
// transaction usable, which Postgres otherwise refuses after any error.
func inSavepoint(dbc dbctx.Context, fn func(dbc dbctx.Context) error) error {
	if dbc.Tx == nil {
		return fn(dbc)
	}
	return dbc.Tx.Transaction(func(sp *gorm.DB) error {
		return fn(dbctx.Context{Ctx: dbc.Ctx, Tx: sp})
	})
}
