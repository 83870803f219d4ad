package validator

import (
	"github.com/certen/ledgercore/pkg/blocks"
	"github.com/certen/ledgercore/pkg/ledger"
	"github.com/ethereum/go-ethereum/common"
)

// PendingRef names a single pending-entry slot.
type PendingRef struct {
	Destination common.Hash
	Source      common.Hash
}

// InsertInstructions is the validator's sole successful output: exactly
// what the mutator must write, and nothing more — the validator itself
// never touches a WriteTxn.
type InsertInstructions struct {
	Account         common.Hash
	Block           blocks.Block
	HasOldInfo      bool
	OldAccountInfo  ledger.AccountInfo
	NewAccountInfo  ledger.AccountInfo
	NewSideband     ledger.Sideband
	DeletePending   *PendingRef
	InsertPending   *ledger.PendingEntry
	IsEpochBlock    bool
}
