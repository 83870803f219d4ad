// Package depblocks finds the predecessor hashes a block depends on,
// used by the block processor to park an unprocessable block under the
// hash it is actually missing (see pkg/processor's unchecked map).
package depblocks

import (
	"github.com/certen/ledgercore/pkg/blocks"
	"github.com/certen/ledgercore/pkg/ledger"
	"github.com/certen/ledgercore/pkg/store"
	"github.com/ethereum/go-ethereum/common"
)

// Dependencies is up to two predecessor hashes a block requires to
// already be present before it can be validated. A zero hash in either
// slot means "no dependency in that slot".
type Dependencies struct {
	First  common.Hash
	Second common.Hash
}

// Of returns blk's dependencies. For a State block, the second slot is
// only populated when link names a send the block claims (link is
// non-zero, not an epoch marker, and the block either opens the account
// or raises its balance above the previous block's) — determining that
// requires the ledger lookup txn provides.
func Of(txn store.ReadTxn, blk blocks.Block) (Dependencies, error) {
	switch b := blk.(type) {
	case *blocks.SendBlock:
		return Dependencies{First: b.PreviousHash}, nil
	case *blocks.ChangeBlock:
		return Dependencies{First: b.PreviousHash}, nil
	case *blocks.ReceiveBlock:
		return Dependencies{First: b.PreviousHash, Second: b.Source}, nil
	case *blocks.OpenBlock:
		// The genesis open names no source at all: (0, 0).
		return Dependencies{First: b.Source}, nil
	case *blocks.StateBlock:
		deps := Dependencies{First: b.PreviousHash}
		if b.Link == (common.Hash{}) {
			return deps, nil
		}
		if _, isEpochLink := blocks.IsEpochLink(b.Link); isEpochLink {
			return deps, nil
		}
		refersToSend, err := linkRefersToSend(txn, b)
		if err != nil {
			return Dependencies{}, err
		}
		if refersToSend {
			deps.Second = b.Link
		}
		return deps, nil
	default:
		return Dependencies{}, nil
	}
}

// linkRefersToSend reports whether a State block's link names a send
// the block is claiming: true for an opening block, and true when the
// new balance is strictly greater than the previous block's recorded
// balance (a receive). A send or a change (equal or lower balance) uses
// link as a destination or leaves it unused, so it reports false, as it
// does when the previous block is not stored.
func linkRefersToSend(txn store.ReadTxn, b *blocks.StateBlock) (bool, error) {
	if b.PreviousHash == (common.Hash{}) {
		// Opening State block: link is always a claimed source.
		return true, nil
	}
	prev, err := ledger.GetBlock(txn, b.PreviousHash)
	if err != nil {
		if err == ledger.ErrBlockNotFound {
			return false, nil
		}
		return false, err
	}
	return b.NewBalance.Cmp(prev.Sideband.Balance) > 0, nil
}
