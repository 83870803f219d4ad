// Package scheduler holds the four scheduler types that decide which
// not-yet-active blocks turn into elections next: priority (balance
// order), hinted (vote weight already accumulating), optimistic
// (confirmation lagging head by too much), and manual (external
// request, bypasses every threshold). Each runs its own cooperative
// loop shaped like the teacher's pkg/batch/scheduler.go timer loop,
// and all four share elections.Active's admission control rather than
// maintaining their own notion of capacity.
package scheduler

import (
	"github.com/certen/ledgercore/pkg/blocks"
	"github.com/certen/ledgercore/pkg/elections"
	"github.com/certen/ledgercore/pkg/ledger"
	"github.com/certen/ledgercore/pkg/store"
	"github.com/ethereum/go-ethereum/common"
)

// rootOf returns the election root for head, the account's current
// chain tip: an opening block's root is the account itself (there is
// no previous slot to contest), every other block's root is its
// previous hash (the slot a fork would also claim).
func rootOf(account common.Hash, head blocks.Block) common.Hash {
	if head.Previous() == (common.Hash{}) {
		return account
	}
	return head.Previous()
}

// activate looks up account's current head block and, if its root isn't
// already contested, inserts it into active as a new election. It does
// not check whether the head is already cemented; callers that skip
// cemented accounts check isCemented first. It returns whether Insert
// admitted the election.
func activate(txn store.ReadTxn, active *elections.Active, info ledger.AccountInfo, now int64) (bool, error) {
	stored, err := ledger.GetBlock(txn, info.HeadBlock)
	if err != nil {
		return false, err
	}
	root := rootOf(info.Account, stored.Block)
	if _, ok := active.Get(root); ok {
		return false, nil
	}
	_, ok := active.Insert(root, info.Account, stored.Block, now)
	return ok, nil
}

// isCemented reports whether account's head is already its cemented
// frontier, the case every scheduler skips (nothing left to elect).
func isCemented(txn store.ReadTxn, info ledger.AccountInfo) (bool, error) {
	confInfo, err := ledger.GetConfirmationHeight(txn, info.Account)
	if err != nil {
		if err == ledger.ErrConfirmationHeightNotFound {
			return false, nil
		}
		return false, err
	}
	return confInfo.Frontier == info.HeadBlock, nil
}
