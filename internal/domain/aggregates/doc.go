// Package aggregates defines domain-facing aggregate contracts.
//
// Contracts stay free of persistence and transport details. Each one marks a write
// boundary where identity invariants are enforced inside a single transaction.
package aggregates
