package aggregates

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/dealwatch-backend/internal/domain/aggregates"
	"github.com/yungbote/dealwatch-backend/internal/platform/ctxutil"
	"github.com/yungbote/dealwatch-backend/internal/platform/dbctx"
	"github.com/yungbote/dealwatch-backend/internal/platform/logger"
)

// BaseDeps is what every aggregate write needs regardless of the entity.
type BaseDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Runner   TxRunner
	Hooks    Hooks
	CASGuard CASGuard
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Log == nil {
		d.Log = logger.NewNop()
	}
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.CASGuard.db == nil {
		d.CASGuard = NewCASGuard(d.DB)
	}
	return d
}

// executeWrite runs fn in one transaction and returns its error mapped to an
// aggregate code. The outcome lands on the caller's span, in the hooks and,
// for anything but success, in the log with the record origin.
func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	deps = deps.withDefaults()
	start := time.Now()

	err := MapError(op, deps.Runner.InTx(ctx, fn))
	status := writeStatus(err)

	switch status {
	case string(domainagg.CodeConflict):
		deps.Hooks.IncConflict(op)
	case string(domainagg.CodeRetryable):
		deps.Hooks.IncRetry(op)
	}
	elapsed := time.Since(start)
	deps.Hooks.ObserveOperation(op, status, elapsed)

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("aggregate.status", status))
	if err == nil {
		return nil
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, status)

	log := deps.Log
	if rd := ctxutil.GetRecordData(ctx); rd != nil {
		log = log.With("origin", rd.Origin)
	}
	if domainagg.ShouldRetry(err) {
		log.Debug("aggregate write lost a race", "op", op, "status", status, "elapsed", elapsed)
	} else {
		log.Warn("aggregate write failed", "op", op, "status", status, "error", err)
	}
	return err
}

// writeStatus is the metrics label for a mapped write error.
func writeStatus(err error) string {
	if err == nil {
		return "success"
	}
	if code := domainagg.CodeOf(err); code != "" {
		return string(code)
	}
	return "failure"
}
