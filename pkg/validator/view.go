package validator

import (
	"github.com/certen/ledgercore/pkg/blocks"
	"github.com/certen/ledgercore/pkg/crypto"
	"github.com/certen/ledgercore/pkg/ledger"
	"github.com/ethereum/go-ethereum/common"
)

// View is the read-only ledger surface the validator needs. It is
// deliberately narrower than pkg/store's full transaction interface so
// that Validate stays a pure function of (block, View) and can be
// exercised in tests against a fake View with no storage engine at all.
// pkg/ledger.ReadView (over a live store.ReadTxn) satisfies this
// interface structurally.
type View interface {
	AccountInfo(account common.Hash) (ledger.AccountInfo, bool, error)
	GetBlock(hash common.Hash) (ledger.StoredBlock, bool, error)
	Pending(destination, source common.Hash) (ledger.PendingEntry, bool, error)
	BlockExists(hash common.Hash) (bool, error)
	IsEpochLink(link common.Hash) (blocks.Epoch, bool)
	EpochSigner(epoch blocks.Epoch) (common.Hash, bool)
	WorkThreshold(details ledger.BlockDetails) crypto.WorkThreshold
}
