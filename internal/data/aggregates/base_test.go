package aggregates

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/dealwatch-backend/internal/data/repos"
	"github.com/yungbote/dealwatch-backend/internal/data/repos/testutil"
	types "github.com/yungbote/dealwatch-backend/internal/domain"
	domainagg "github.com/yungbote/dealwatch-backend/internal/domain/aggregates"
	"github.com/yungbote/dealwatch-backend/internal/domain/deals"
	"github.com/yungbote/dealwatch-backend/internal/platform/dbctx"
)

type countingHooks struct {
	statuses  []string
	conflicts int
	retries   int
}

func (h *countingHooks) ObserveOperation(_, status string, _ time.Duration) {
	h.statuses = append(h.statuses, status)
}
func (h *countingHooks) IncConflict(string) { h.conflicts++ }
func (h *countingHooks) IncRetry(string)    { h.retries++ }

func seedDeal(t *testing.T, dbc dbctx.Context, set repos.Set, key string) *types.Deal {
	t.Helper()
	company := &types.Company{ID: uuid.New(), Name: "Torq", NormalizedName: "torq"}
	if _, err := set.Companies.InsertIfAbsent(dbc, company); err != nil {
		t.Fatalf("insert company: %v", err)
	}
	deal := &types.Deal{
		ID:           uuid.New(),
		CompanyID:    company.ID,
		RoundType:    deals.RoundSeriesD,
		RawAmount:    "$140M",
		AmountSource: deals.AmountSourceArticle,
		DedupKey:     key,
	}
	if ok, err := set.Deals.InsertIfAbsent(dbc, deal); err != nil || !ok {
		t.Fatalf("insert deal: ok=%v err=%v", ok, err)
	}
	return deal
}

func TestExecuteWriteStaleVersionIsRetryableConflict(t *testing.T) {
	db := testutil.SQLite(t)
	set := repos.NewSet(db, testutil.Logger(t))
	hooks := &countingHooks{}
	deps := BaseDeps{DB: db, Hooks: hooks}

	var deal *types.Deal
	err := executeWrite(context.Background(), deps, opResolveDeal, func(dbc dbctx.Context) error {
		deal = seedDeal(t, dbc, set, "0123456789abcdef0123456789abcdef")
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Both merges read the same snapshot; only the first may bump the version.
	merge := func() error {
		return executeWrite(context.Background(), deps, opResolveDeal, func(dbc dbctx.Context) error {
			ok, err := NewCASGuard(db).UpdateByVersion(dbc, types.Deal{}.TableName(), deal.ID, deal.Version, map[string]any{"raw_amount": "$150M"})
			if err != nil {
				return err
			}
			return RequireCASSuccess(ok, "deal changed concurrently")
		})
	}
	if err := merge(); err != nil {
		t.Fatalf("first merge: %v", err)
	}
	err = merge()
	if !domainagg.IsCode(err, domainagg.CodeConflict) || !domainagg.ShouldRetry(err) {
		t.Fatalf("second merge on the same version: want retryable conflict, got %v", err)
	}
	want := []string{"success", "success", string(domainagg.CodeConflict)}
	if len(hooks.statuses) != len(want) {
		t.Fatalf("statuses = %v, want %v", hooks.statuses, want)
	}
	for i := range want {
		if hooks.statuses[i] != want[i] {
			t.Fatalf("statuses = %v, want %v", hooks.statuses, want)
		}
	}
	if hooks.conflicts != 1 || hooks.retries != 0 {
		t.Fatalf("conflicts=%d retries=%d", hooks.conflicts, hooks.retries)
	}
}

func TestExecuteWriteRollsBackAndMapsCodes(t *testing.T) {
	db := testutil.SQLite(t)
	set := repos.NewSet(db, testutil.Logger(t))

	cases := []struct {
		name string
		err  error
		code domainagg.ErrorCode
	}{
		{"validation", ValidationError("company name is empty"), domainagg.CodeValidation},
		{"invariant", InvariantError("deal without company"), domainagg.CodeInvariantViolation},
		{"transient", RetryableError("existing deal not visible"), domainagg.CodeRetryable},
		{"deadline", context.DeadlineExceeded, domainagg.CodeRetryable},
		{"unknown", errors.New("disk full"), domainagg.CodeInternal},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hooks := &countingHooks{}
			key := uuid.NewString()[:32]
			err := executeWrite(context.Background(), BaseDeps{DB: db, Hooks: hooks}, opResolveDeal, func(dbc dbctx.Context) error {
				seedDeal(t, dbc, set, key)
				return tc.err
			})
			if !domainagg.IsCode(err, tc.code) {
				t.Fatalf("case %d: want %s, got %v", i, tc.code, err)
			}
			if got, _ := set.Deals.GetByDedupKey(dbctx.Context{Ctx: context.Background()}, key); got != nil {
				t.Fatalf("deal survived a failed write")
			}
			if len(hooks.statuses) != 1 || hooks.statuses[0] != string(tc.code) {
				t.Fatalf("statuses = %v", hooks.statuses)
			}
			if wantRetry := tc.code == domainagg.CodeRetryable; (hooks.retries == 1) != wantRetry {
				t.Fatalf("retries = %d", hooks.retries)
			}
		})
	}
}

func TestInSavepointKeepsTransactionUsableAfterDuplicateKey(t *testing.T) {
	db := testutil.SQLite(t)
	set := repos.NewSet(db, testutil.Logger(t))
	const key = "fedcba9876543210fedcba9876543210"

	err := executeWrite(context.Background(), BaseDeps{DB: db}, opResolveDeal, func(dbc dbctx.Context) error {
		first := seedDeal(t, dbc, set, key)
		dup := &types.Deal{ID: uuid.New(), CompanyID: first.CompanyID, RoundType: deals.RoundSeriesD, DedupKey: key}
		spErr := inSavepoint(dbc, func(sp dbctx.Context) error {
			return sp.Tx.Create(dup).Error
		})
		if !isUniqueViolation(spErr) {
			t.Fatalf("want unique violation from savepoint, got %v", spErr)
		}
		existing, err := set.Deals.GetByDedupKey(dbc, key)
		if err != nil {
			return err
		}
		if existing == nil || existing.ID != first.ID {
			t.Fatalf("re-read after savepoint rollback: %+v", existing)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("outer transaction: %v", err)
	}
}

func TestGormTxRunnerWithoutDB(t *testing.T) {
	err := executeWrite(context.Background(), BaseDeps{}, opRegisterAlias, func(dbctx.Context) error {
		t.Fatalf("body must not run")
		return nil
	})
	if !domainagg.IsCode(err, domainagg.CodeInternal) {
		t.Fatalf("want internal error, got %v", err)
	}
}
