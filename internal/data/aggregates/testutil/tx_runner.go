package testutil

import (
	"context"
	"sync"

	"github.com/yungbote/dealwatch-backend/internal/data/aggregates"
	"github.com/yungbote/dealwatch-backend/internal/platform/dbctx"
)

// FaultRunner wraps a real runner and fails transactions after their body has
// run, so the database rolls back work the aggregate believes it did.
type FaultRunner struct {
	Inner aggregates.TxRunner

	// FailCommit is returned once the body succeeds.
	FailCommit error
	// ConflictFirst makes the first N transactions end in a CAS conflict.
	ConflictFirst int

	mu         sync.Mutex
	calls      int
	rolledBack int
}

var _ aggregates.TxRunner = (*FaultRunner)(nil)

func (r *FaultRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.calls++
	call := r.calls
	r.mu.Unlock()

	err := r.Inner.InTx(ctx, func(dbc dbctx.Context) error {
		if err := fn(dbc); err != nil {
			return err
		}
		if call <= r.ConflictFirst {
			return aggregates.RequireCASSuccess(false, "deal changed concurrently")
		}
		return r.FailCommit
	})
	if err != nil {
		r.mu.Lock()
		r.rolledBack++
		r.mu.Unlock()
	}
	return err
}

func (r *FaultRunner) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *FaultRunner) RolledBack() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rolledBack
}
