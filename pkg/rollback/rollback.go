// Package rollback undoes the head block of an account chain: the
// mirror image of pkg/mutator's insertion. Removing a Send can only
// proceed once any Receive that already claimed it has itself been
// rolled back first, so planning is iterative rather than a single
// pure computation: Plan inspects one account's current head and
// either hands back instructions safe to Execute now, or names the
// dependent receive (a block on another account) that must be undone
// first.
package rollback

import (
	"fmt"

	"github.com/certen/ledgercore/pkg/blocks"
	"github.com/certen/ledgercore/pkg/ledger"
	"github.com/certen/ledgercore/pkg/mutator"
	"github.com/certen/ledgercore/pkg/observer"
	"github.com/certen/ledgercore/pkg/store"
	"github.com/certen/ledgercore/pkg/validator"
	"github.com/ethereum/go-ethereum/common"
)

// Instructions is everything Execute needs to undo a single block. It
// mirrors validator.InsertInstructions in reverse.
type Instructions struct {
	Account  common.Hash
	Hash     common.Hash
	WasOpen  bool
	// RestoredAccountInfo is the account_info to write back in place of
	// the one the rolled-back block produced. Meaningless when WasOpen,
	// since rolling back an Open block removes the account entirely.
	RestoredAccountInfo ledger.AccountInfo

	// RestorePending is set when the block being undone consumed a
	// pending entry (it was a Receive, an Open, or a State receive):
	// Execute re-creates the entry the Send originally left behind.
	RestorePending *ledger.PendingEntry
	// ClearReceivedBySource is the send hash whose claim record to
	// remove, paired with RestorePending.
	ClearReceivedBySource common.Hash

	// DeleteCreatedPending is set when the block being undone created a
	// pending entry (it was a Send, or a State send) that nothing has
	// claimed yet.
	DeleteCreatedPending *validator.PendingRef
}

// Result is the outcome of planning a single rollback step.
type Result struct {
	// Instructions is non-nil when the account's current head can be
	// rolled back immediately.
	Instructions *Instructions
	// DependentHash is set instead of Instructions when the head is a
	// Send whose pending entry has already been claimed: the named
	// block (on a different account) must be rolled back first.
	DependentHash common.Hash
}

// Plan inspects account's current head and decides how to undo it. It
// reads only; txn may be a WriteTxn used as a read snapshot, but Plan
// itself never calls Set or Delete.
func Plan(txn store.ReadTxn, account common.Hash) (*Result, *validator.Rejection) {
	info, err := ledger.GetAccountInfo(txn, account)
	if err != nil {
		if err == ledger.ErrAccountNotFound {
			return nil, &validator.Rejection{Kind: validator.InvalidRollback, Reason: "account has no chain to roll back"}
		}
		panic(err)
	}

	confHeight, err := ledger.GetConfirmationHeight(txn, account)
	hasConf := err == nil
	if err != nil && err != ledger.ErrConfirmationHeightNotFound {
		panic(err)
	}
	if hasConf && confHeight.IsConfirmed(info.BlockCount) {
		return nil, &validator.Rejection{Kind: validator.InvalidRollback, Reason: "block is at or below confirmation height"}
	}

	stored, err := ledger.GetBlock(txn, info.HeadBlock)
	if err != nil {
		panic(err)
	}

	if stored.Sideband.Details.IsSend {
		receivingHash, claimed, err := ledger.GetReceivedBy(txn, info.HeadBlock)
		if err != nil {
			panic(err)
		}
		if claimed {
			return &Result{DependentHash: receivingHash}, nil
		}
	}

	instr := &Instructions{Account: account, Hash: info.HeadBlock}

	previous := stored.Block.Previous()
	prevBalance := blocks.ZeroBalance
	if previous == (common.Hash{}) {
		instr.WasOpen = true
	} else {
		prevStored, err := ledger.GetBlock(txn, previous)
		if err != nil {
			panic(err)
		}
		prevBalance = prevStored.Sideband.Balance
		instr.RestoredAccountInfo = ledger.AccountInfo{
			Account:        account,
			HeadBlock:      previous,
			OpenBlock:      info.OpenBlock,
			Representative: prevStored.Sideband.Representative,
			Balance:        prevStored.Sideband.Balance,
			BlockCount:     prevStored.Sideband.Height,
			Epoch:          prevStored.Sideband.Epoch,
			ModifiedUnix:   prevStored.Sideband.Timestamp,
		}
	}

	if stored.Sideband.Details.IsReceive {
		src := sourceHashOf(stored.Block)
		instr.RestorePending = &ledger.PendingEntry{
			Destination: account,
			Source:      src,
			Amount:      stored.Sideband.Balance.Sub(prevBalance),
			Epoch:       stored.Sideband.SourceEpoch,
		}
		instr.ClearReceivedBySource = src
	}

	if stored.Sideband.Details.IsSend {
		instr.DeleteCreatedPending = &validator.PendingRef{
			Destination: destinationHashOf(stored.Block),
			Source:      info.HeadBlock,
		}
	}

	return &Result{Instructions: instr}, nil
}

// Execute undoes instr against txn: the inverse of mutator.Apply. It
// must run in the same write transaction the caller used to obtain
// instr via Plan (instr was computed against a snapshot that must
// still be current).
func Execute(txn store.WriteTxn, instr *Instructions, weights mutator.WeightCache, obs *observer.Bus) error {
	stored, err := ledger.GetBlock(txn, instr.Hash)
	if err != nil {
		return fmt.Errorf("rollback: load block being undone: %w", err)
	}

	if err := ledger.DeleteBlock(txn, instr.Hash); err != nil {
		return fmt.Errorf("rollback: delete block: %w", err)
	}

	if instr.DeleteCreatedPending != nil {
		if err := ledger.DeletePending(txn, instr.DeleteCreatedPending.Destination, instr.DeleteCreatedPending.Source); err != nil {
			return fmt.Errorf("rollback: delete created pending: %w", err)
		}
	}
	if instr.RestorePending != nil {
		if err := ledger.PutPending(txn, *instr.RestorePending); err != nil {
			return fmt.Errorf("rollback: restore pending: %w", err)
		}
		if err := ledger.DeleteReceivedBy(txn, instr.ClearReceivedBySource); err != nil {
			return fmt.Errorf("rollback: clear received-by: %w", err)
		}
	}

	if instr.WasOpen {
		if err := ledger.DeleteAccountInfo(txn, instr.Account); err != nil {
			return fmt.Errorf("rollback: delete account info: %w", err)
		}
	} else {
		if err := ledger.PutAccountInfo(txn, instr.RestoredAccountInfo); err != nil {
			return fmt.Errorf("rollback: restore account info: %w", err)
		}
		prev := stored.Block.Previous()
		prevStored, err := ledger.GetBlock(txn, prev)
		if err != nil {
			return fmt.Errorf("rollback: load predecessor: %w", err)
		}
		prevStored.Sideband.Successor = common.Hash{}
		if err := ledger.PutBlock(txn, prevStored.Block, prevStored.Sideband); err != nil {
			return fmt.Errorf("rollback: clear predecessor successor: %w", err)
		}
	}

	if weights != nil {
		weights.SubWeight(stored.Sideband.Representative, stored.Sideband.Balance)
		if !instr.WasOpen {
			weights.AddWeight(instr.RestoredAccountInfo.Representative, instr.RestoredAccountInfo.Balance)
		}
	}

	if obs != nil {
		obs.BlockRolledBack(instr.Hash, instr.Account)
	}
	return nil
}

// job is one (account, target) pair on Cascade's work stack: roll
// account's chain back until its head is target.
type job struct {
	account common.Hash
	target  common.Hash
}

// Cascade rolls back account's chain from its current head down to
// (and including) removing every block after target, recursing into
// any other account whose Receive already claimed a Send being
// removed. It returns how many blocks were undone in total, or the
// Rejection that stopped it (e.g. a block at or below confirmation
// height), in which case everything undone so far remains undone —
// the caller's enclosing store.WriteTxn is what makes the whole
// cascade atomic.
func Cascade(txn store.WriteTxn, account, target common.Hash, weights mutator.WeightCache, obs *observer.Bus) (int, *validator.Rejection) {
	stack := []job{{account: account, target: target}}
	count := 0

	for len(stack) > 0 {
		j := stack[len(stack)-1]

		info, err := ledger.GetAccountInfo(txn, j.account)
		if err != nil {
			if err == ledger.ErrAccountNotFound && j.target == (common.Hash{}) {
				stack = stack[:len(stack)-1]
				continue
			}
			panic(err)
		}
		if info.HeadBlock == j.target {
			stack = stack[:len(stack)-1]
			continue
		}

		result, rej := Plan(txn, j.account)
		if rej != nil {
			return count, rej
		}
		if result.Instructions != nil {
			if err := Execute(txn, result.Instructions, weights, obs); err != nil {
				panic(err)
			}
			count++
			continue
		}

		depStored, err := ledger.GetBlock(txn, result.DependentHash)
		if err != nil {
			panic(err)
		}
		stack = append(stack, job{
			account: depStored.Sideband.Account,
			target:  depStored.Block.Previous(),
		})
	}

	return count, nil
}

// sourceHashOf returns the send hash a receive-shaped block claims.
func sourceHashOf(blk blocks.Block) common.Hash {
	switch b := blk.(type) {
	case *blocks.ReceiveBlock:
		return b.Source
	case *blocks.OpenBlock:
		return b.Source
	case *blocks.StateBlock:
		return b.Link
	default:
		return common.Hash{}
	}
}

// destinationHashOf returns the account a send-shaped block pays.
func destinationHashOf(blk blocks.Block) common.Hash {
	switch b := blk.(type) {
	case *blocks.SendBlock:
		return b.Destination
	case *blocks.StateBlock:
		return b.Link
	default:
		return common.Hash{}
	}
}
