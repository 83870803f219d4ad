package ledger

import (
	"github.com/certen/ledgercore/pkg/blocks"
	"github.com/ethereum/go-ethereum/common"
)

// BlockDetails is derived metadata about a block's effect, computed once
// at insertion time and never carried on the wire.
type BlockDetails struct {
	Type        blocks.Type
	Epoch       blocks.Epoch
	IsSend      bool
	IsReceive   bool
	IsEpoch     bool
}

// Sideband is the metadata the ledger attaches to a block at insertion
// time: everything a reader needs to reconstruct chain position and
// account state without replaying the whole chain from genesis.
type Sideband struct {
	Height      uint64
	Timestamp   int64 // unix seconds, when the block was inserted
	Successor   common.Hash
	Account     common.Hash
	Balance     blocks.Balance
	Details     BlockDetails
	SourceEpoch blocks.Epoch // epoch of the paired send, for receives/opens

	// Representative is the account's effective representative as of
	// this block (unchanged by Send/Receive, set by Open/Change/State).
	// Caching it here lets the rollback planner recover the prior
	// representative from the predecessor's sideband in O(1), without
	// walking the chain back to the last representative-setting block.
	Representative common.Hash

	// Epoch is the account's cumulative adopted epoch as of this block,
	// cached for the same reason as Representative.
	Epoch blocks.Epoch
}

// StoredBlock pairs a decoded block with its sideband as recorded by the
// ledger.
type StoredBlock struct {
	Block    blocks.Block
	Sideband Sideband
}

// AccountInfo is the head-of-chain summary the validator consults for
// every incoming block: where the chain currently stands, and who can
// vote on its behalf.
type AccountInfo struct {
	Account        common.Hash
	HeadBlock      common.Hash
	OpenBlock      common.Hash
	Representative common.Hash
	Balance        blocks.Balance
	BlockCount     uint64
	Epoch          blocks.Epoch
	ModifiedUnix   int64
}

// PendingEntry describes a Send not yet claimed by a Receive/Open,
// keyed by (destination account, source block hash).
type PendingEntry struct {
	Destination common.Hash
	Source      common.Hash
	Amount      blocks.Balance
	Epoch       blocks.Epoch
}

// ConfirmationHeightInfo records how far an account chain has been
// cemented: Height blocks (1-indexed, matching AccountInfo.BlockCount)
// are final, and Frontier is the hash of the block at that height.
type ConfirmationHeightInfo struct {
	Height   uint64
	Frontier common.Hash
}

// IsConfirmed reports whether height h on this account is at or below
// the cemented frontier.
func (c ConfirmationHeightInfo) IsConfirmed(h uint64) bool {
	return h <= c.Height
}
