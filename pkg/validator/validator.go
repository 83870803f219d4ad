package validator

import (
	"github.com/certen/ledgercore/pkg/blocks"
	"github.com/certen/ledgercore/pkg/crypto"
	"github.com/certen/ledgercore/pkg/ledger"
	"github.com/ethereum/go-ethereum/common"
)

// Validate runs the ordered rule pipeline against blk, a candidate for
// account's chain (account is supplied by the caller for legacy block
// shapes, which carry no account field of their own; Open and State
// blocks carry it explicitly and it is read from there instead). now is
// the insertion wall-clock time in unix seconds, threaded in rather than
// read from time.Now so the whole function stays a pure reader of view.
//
// Validate performs reads only. All storage mutation is the caller's
// responsibility (see pkg/mutator), and any error view returns is
// fatal: Validate panics with it rather than returning a Rejection. It
// never distinguishes
// "not found" from a storage failure beyond what View's contract
// promises (see pkg/ledger's sentinel errors, which View implementations
// must already translate into the (zero, false, nil) shape this
// function expects).
func Validate(view View, blk blocks.Block, suppliedAccount common.Hash, now int64) (*InsertInstructions, *Rejection) {
	account := accountOf(blk, suppliedAccount)

	oldInfo, hasOldInfo, err := view.AccountInfo(account)
	if err != nil {
		panic(err) // fatal per §7: store I/O failures are not rejections
	}

	// Rule 1: epoch pre-check.
	isEpochCandidate := false
	var epochTarget blocks.Epoch
	if st, ok := blk.(*blocks.StateBlock); ok {
		if e, ok := view.IsEpochLink(st.Link); ok {
			isEpochCandidate = true
			epochTarget = e
			current := blocks.EpochInvalid
			if hasOldInfo {
				current = oldInfo.Epoch
			}
			if current >= epochTarget {
				return nil, reject(InvalidEpochLink, "account already at or above target epoch")
			}
		}
	}

	// Rule 2: not already stored.
	exists, err := view.BlockExists(blk.Hash())
	if err != nil {
		panic(err)
	}
	if exists {
		return nil, reject(Old, "")
	}

	previous := blk.Previous()
	isOpening := previous == (common.Hash{})

	// Rule 3: valid predecessor shape, when the previous block is known.
	if !isOpening {
		if prevStored, found, err := view.GetBlock(previous); err != nil {
			panic(err)
		} else if found {
			if !blocks.ValidPredecessor(blk.Type(), prevStored.Block.Type()) {
				return nil, reject(BlockPosition, "block shape may not follow previous block's shape")
			}
		}
	}

	// Rule 4: signature.
	signer := account
	if isEpochCandidate {
		s, ok := view.EpochSigner(epochTarget)
		if !ok {
			return nil, reject(InvalidEpochLink, "no signer configured for target epoch")
		}
		signer = s
	}
	if !crypto.VerifyBlockSignature(blk, signer) {
		return nil, reject(BadSignature, "")
	}

	// Rule 5: burn-account guard.
	if blocks.IsBurnAccount(account) {
		return nil, reject(OpenedBurnAccount, "")
	}

	// Rule 6: new-account rule.
	if !isOpening && !hasOldInfo {
		return nil, reject(GapPrevious, "account has no chain to extend")
	}

	// Rule 7: no double open.
	if isOpening && hasOldInfo {
		return nil, reject(Fork, "account already opened")
	}

	// Rule 8: previous is head.
	if !isOpening && previous != oldInfo.HeadBlock {
		return nil, reject(Fork, "previous does not match current head")
	}

	// Rule 9: open block has link/source.
	sourceHash := sourceOf(blk)
	if isOpening && sourceHash == (common.Hash{}) {
		return nil, reject(GapSource, "opening block carries no source")
	}

	// Rule 10: receive semantics, and new-balance computation.
	oldBalance := blocks.ZeroBalance
	if hasOldInfo {
		oldBalance = oldInfo.Balance
	}

	var newBalance blocks.Balance
	var sourceEpoch blocks.Epoch
	var consumedPending *ledger.PendingEntry
	isSend := false
	isReceive := false

	switch b := blk.(type) {
	case *blocks.SendBlock:
		newBalance = b.NewBalance
		isSend = true
	case *blocks.ChangeBlock:
		newBalance = oldBalance
	case *blocks.ReceiveBlock, *blocks.OpenBlock:
		pending, found, err := view.Pending(account, sourceHash)
		if err != nil {
			panic(err)
		}
		if !found {
			return nil, reject(Unreceivable, "no pending entry for source")
		}
		newBalance = oldBalance.Add(pending.Amount)
		sourceEpoch = pending.Epoch
		consumedPending = &pending
		isReceive = true
	case *blocks.StateBlock:
		newBalance = b.NewBalance
		switch newBalance.Cmp(oldBalance) {
		case -1:
			isSend = true
		case 1:
			if !isEpochCandidate {
				pending, found, err := view.Pending(account, sourceHash)
				if err != nil {
					panic(err)
				}
				if !found {
					return nil, reject(GapSource, "state block names no known pending source")
				}
				want := newBalance.Sub(oldBalance)
				if want.Cmp(pending.Amount) != 0 {
					return nil, reject(BalanceMismatch, "state receive amount does not match pending entry")
				}
				sourceEpoch = pending.Epoch
				consumedPending = &pending
				isReceive = true
			}
		}
	}

	// Rule 11: work sufficient.
	details := ledger.BlockDetails{
		Type:      blk.Type(),
		Epoch:     epochTarget,
		IsSend:    isSend,
		IsReceive: isReceive,
		IsEpoch:   isEpochCandidate,
	}
	root := blk.Root()
	threshold := view.WorkThreshold(details)
	if !crypto.VerifyWork(root, blk.Work(), threshold) {
		return nil, reject(InsufficientWork, "")
	}

	// Rule 12: no negative send.
	if isSend && newBalance.Cmp(oldBalance) >= 0 {
		return nil, reject(NegativeSpend, "send must strictly decrease balance")
	}

	// Rule 13: valid epoch transition.
	representative := oldInfo.Representative
	switch b := blk.(type) {
	case *blocks.OpenBlock:
		representative = b.Representative
	case *blocks.ChangeBlock:
		representative = b.Representative
	case *blocks.StateBlock:
		representative = b.Representative
	}
	if isEpochCandidate {
		if newBalance.Cmp(oldBalance) != 0 {
			return nil, reject(InvalidEpochLink, "epoch transition must not change balance")
		}
		if representative != oldInfo.Representative {
			return nil, reject(InvalidEpochLink, "epoch transition must not change representative")
		}
		current := blocks.EpochInvalid
		if hasOldInfo {
			current = oldInfo.Epoch
		}
		if epochTarget != current.Next() {
			return nil, reject(InvalidEpochLink, "epoch must advance by exactly one step")
		}
	}

	newEpoch := blocks.EpochInvalid
	if hasOldInfo {
		newEpoch = oldInfo.Epoch
	}
	if isEpochCandidate {
		newEpoch = epochTarget
	} else if sourceEpoch > newEpoch {
		newEpoch = sourceEpoch
	}

	height := uint64(1)
	if hasOldInfo {
		height = oldInfo.BlockCount + 1
	}

	newInfo := ledger.AccountInfo{
		Account:        account,
		HeadBlock:      blk.Hash(),
		OpenBlock:      oldInfo.OpenBlock,
		Representative: representative,
		Balance:        newBalance,
		BlockCount:     height,
		Epoch:          newEpoch,
		ModifiedUnix:   now,
	}
	if isOpening {
		newInfo.OpenBlock = blk.Hash()
	}

	instr := &InsertInstructions{
		Account:        account,
		Block:          blk,
		HasOldInfo:     hasOldInfo,
		OldAccountInfo: oldInfo,
		NewAccountInfo: newInfo,
		NewSideband: ledger.Sideband{
			Height:      height,
			Timestamp:   now,
			Successor:   common.Hash{},
			Account:     account,
			Balance:     newBalance,
			Details:     details,
			SourceEpoch: sourceEpoch,
			Representative: representative,
			Epoch:          newEpoch,
		},
		IsEpochBlock: isEpochCandidate,
	}
	if isSend {
		instr.InsertPending = &ledger.PendingEntry{
			Destination: destinationOf(blk),
			Source:      blk.Hash(),
			Amount:      oldBalance.Sub(newBalance),
			Epoch:       newEpoch,
		}
	}
	if consumedPending != nil {
		instr.DeletePending = &PendingRef{Destination: account, Source: sourceHash}
	}
	return instr, nil
}

// accountOf resolves which account blk belongs to: Open and State carry
// it explicitly, every legacy shape relies on the caller's context (the
// chain it is being submitted to extend).
func accountOf(blk blocks.Block, supplied common.Hash) common.Hash {
	switch b := blk.(type) {
	case *blocks.OpenBlock:
		return b.Account
	case *blocks.StateBlock:
		return b.Account
	default:
		return supplied
	}
}

// destinationOf returns the account a Send/sending-State block pays.
func destinationOf(blk blocks.Block) common.Hash {
	switch b := blk.(type) {
	case *blocks.SendBlock:
		return b.Destination
	case *blocks.StateBlock:
		return b.Link
	default:
		return common.Hash{}
	}
}

// sourceOf returns the hash of the send block a receive-shaped block
// names as its source (Receive.source, Open.source, or State.link). For
// a State block this cannot yet distinguish "receiving" from "sending
// more to self" without the balance comparison the caller performs, so
// it simply reports the link.
func sourceOf(blk blocks.Block) common.Hash {
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
