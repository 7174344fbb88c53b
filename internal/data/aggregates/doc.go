// Package aggregates implements the transaction-owning write paths declared in
// internal/domain/aggregates.
//
// Each write runs through executeWrite: one TxRunner transaction, MapError for
// coded failures, and Hooks for per-operation metrics. Table access goes
// through internal/data/repos using the transaction carried in dbctx.Context.
package aggregates
