package aggregates

import (
	"context"
	"testing"

	"github.com/yungbote/dealwatch-backend/internal/observability"
	"github.com/yungbote/dealwatch-backend/internal/platform/dbctx"
)

func TestObservabilityHooksFeedMetrics(t *testing.T) {
	m := observability.NewMetrics()
	hooks := NewObservabilityHooks(m)

	_ = executeWrite(context.Background(), BaseDeps{Runner: spyTxRunner{}, Hooks: hooks}, "deal_identity.resolve", func(_ dbctx.Context) error {
		return ConflictError("deal changed concurrently")
	})

	if got := m.AggregateConflictCount("deal_identity.resolve"); got != 1 {
		t.Fatalf("conflicts: want 1 got %v", got)
	}
}

func TestNilMetricsYieldNoopHooks(t *testing.T) {
	if _, ok := NewObservabilityHooks(nil).(noopHooks); !ok {
		t.Fatalf("nil metrics should give noop hooks")
	}
}
