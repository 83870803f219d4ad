// Package mutator applies a validator.InsertInstructions to a write
// transaction. It is the only component that writes new blocks into the
// ledger; the validator only ever reads.
package mutator

import (
	"fmt"

	"github.com/certen/ledgercore/pkg/blocks"
	"github.com/certen/ledgercore/pkg/ledger"
	"github.com/certen/ledgercore/pkg/observer"
	"github.com/certen/ledgercore/pkg/store"
	"github.com/certen/ledgercore/pkg/validator"
	"github.com/ethereum/go-ethereum/common"
)

// WeightCache tracks each representative's delegated weight. The
// mutator updates it in the same transaction as every insertion so
// readers (elections, schedulers) never see it lag behind the ledger.
type WeightCache interface {
	AddWeight(representative common.Hash, amount blocks.Balance)
	SubWeight(representative common.Hash, amount blocks.Balance)
}

// Apply writes instr into txn: the new block, pending-entry delta,
// updated account_info, the predecessor's successor pointer, and the
// representative-weight cache, then notifies obs. All of it happens
// under the caller's single write transaction — if Apply returns an
// error, the caller must abort the whole transaction rather than
// attempt a partial commit.
func Apply(txn store.WriteTxn, instr *validator.InsertInstructions, weights WeightCache, obs *observer.Bus) error {
	if err := ledger.PutBlock(txn, instr.Block, instr.NewSideband); err != nil {
		return fmt.Errorf("mutator: put block: %w", err)
	}

	if instr.DeletePending != nil {
		if err := ledger.DeletePending(txn, instr.DeletePending.Destination, instr.DeletePending.Source); err != nil {
			return fmt.Errorf("mutator: delete pending: %w", err)
		}
		if err := ledger.PutReceivedBy(txn, instr.DeletePending.Source, instr.Block.Hash()); err != nil {
			return fmt.Errorf("mutator: put received-by: %w", err)
		}
	}
	if instr.InsertPending != nil {
		if err := ledger.PutPending(txn, *instr.InsertPending); err != nil {
			return fmt.Errorf("mutator: insert pending: %w", err)
		}
	}

	if err := ledger.PutAccountInfo(txn, instr.NewAccountInfo); err != nil {
		return fmt.Errorf("mutator: put account info: %w", err)
	}

	previous := instr.Block.Previous()
	if previous != (common.Hash{}) {
		prevStored, err := ledger.GetBlock(txn, previous)
		if err != nil {
			return fmt.Errorf("mutator: load previous block: %w", err)
		}
		prevStored.Sideband.Successor = instr.Block.Hash()
		if err := ledger.PutBlock(txn, prevStored.Block, prevStored.Sideband); err != nil {
			return fmt.Errorf("mutator: update predecessor successor: %w", err)
		}
	}

	if weights != nil {
		if instr.HasOldInfo {
			weights.SubWeight(instr.OldAccountInfo.Representative, instr.OldAccountInfo.Balance)
		}
		weights.AddWeight(instr.NewAccountInfo.Representative, instr.NewAccountInfo.Balance)
	}

	if obs != nil {
		obs.BlockAdded(instr.Block, instr.IsEpochBlock)
	}
	return nil
}
