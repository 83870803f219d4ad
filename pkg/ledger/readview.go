package ledger

import (
	"errors"

	"github.com/certen/ledgercore/pkg/blocks"
	"github.com/certen/ledgercore/pkg/crypto"
	"github.com/certen/ledgercore/pkg/store"
	"github.com/ethereum/go-ethereum/common"
)

// ReadView adapts a live store.ReadTxn into the (value, bool, error)
// shape pkg/validator.View expects, translating this package's sentinel
// "not found" errors into an ok=false rather than surfacing them as
// errors — only a genuine storage failure reaches the caller as an
// error there.
type ReadView struct {
	Txn store.ReadTxn
}

func (v ReadView) AccountInfo(account common.Hash) (AccountInfo, bool, error) {
	info, err := GetAccountInfo(v.Txn, account)
	if errors.Is(err, ErrAccountNotFound) {
		return AccountInfo{}, false, nil
	}
	if err != nil {
		return AccountInfo{}, false, err
	}
	return info, true, nil
}

func (v ReadView) GetBlock(hash common.Hash) (StoredBlock, bool, error) {
	sb, err := GetBlock(v.Txn, hash)
	if errors.Is(err, ErrBlockNotFound) {
		return StoredBlock{}, false, nil
	}
	if err != nil {
		return StoredBlock{}, false, err
	}
	return sb, true, nil
}

func (v ReadView) Pending(destination, source common.Hash) (PendingEntry, bool, error) {
	p, err := GetPending(v.Txn, destination, source)
	if errors.Is(err, ErrPendingNotFound) {
		return PendingEntry{}, false, nil
	}
	if err != nil {
		return PendingEntry{}, false, err
	}
	return p, true, nil
}

func (v ReadView) BlockExists(hash common.Hash) (bool, error) {
	return BlockExists(v.Txn, hash)
}

func (v ReadView) IsEpochLink(link common.Hash) (blocks.Epoch, bool) {
	return blocks.IsEpochLink(link)
}

func (v ReadView) EpochSigner(epoch blocks.Epoch) (common.Hash, bool) {
	return blocks.EpochSigner(epoch)
}

// WorkThreshold classifies a block's required proof-of-work difficulty:
// receiving funds or upgrading epoch is cheaper to prove than anything
// that changes what an account can spend.
func (v ReadView) WorkThreshold(details BlockDetails) crypto.WorkThreshold {
	return crypto.ThresholdFor(details.IsReceive || details.IsEpoch)
}
