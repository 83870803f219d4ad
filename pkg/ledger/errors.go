// Copyright 2025 Certen Protocol
//
// Package ledger is the read model over account chains: account heads,
// pending (receivable) entries, and confirmation height, all derived
// from pkg/store's typed tables. It holds no validation or mutation
// logic of its own — pkg/validator reads through it, pkg/mutator writes
// through it.

package ledger

import "errors"

// Sentinel errors for ledger lookups. Callers distinguish "not found"
// from a genuine storage failure by comparing against these with
// errors.Is, rather than relying on a (nil, nil) return.
var (
	// ErrAccountNotFound is returned when an account has no recorded
	// head block (it has never been opened).
	ErrAccountNotFound = errors.New("ledger: account not found")

	// ErrBlockNotFound is returned when a block hash is not present.
	ErrBlockNotFound = errors.New("ledger: block not found")

	// ErrPendingNotFound is returned when a (destination, source)
	// pending entry does not exist, e.g. because it was already
	// received or never sent.
	ErrPendingNotFound = errors.New("ledger: pending entry not found")

	// ErrConfirmationHeightNotFound is returned for an account that has
	// never had any block cemented.
	ErrConfirmationHeightNotFound = errors.New("ledger: confirmation height not found")
)
