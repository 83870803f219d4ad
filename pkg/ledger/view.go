package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/certen/ledgercore/pkg/blocks"
	"github.com/certen/ledgercore/pkg/store"
	"github.com/ethereum/go-ethereum/common"
)

// blockEnvelope is the on-disk encoding of a StoredBlock: the block's
// type tag (so Decode knows which wire layout to parse) plus its raw
// wire bytes and sideband, JSON-wrapped the way the teacher's
// LedgerStore wraps its own meta structs rather than hand-rolling a
// binary record format for values.
type blockEnvelope struct {
	Type     blocks.Type    `json:"type"`
	Wire     []byte         `json:"wire"`
	Sideband Sideband       `json:"sideband"`
}

// GetAccountInfo returns the head-of-chain summary for account.
func GetAccountInfo(txn store.ReadTxn, account common.Hash) (AccountInfo, error) {
	raw, err := txn.Get(store.TableAccounts, store.AccountKey(account))
	if err != nil {
		return AccountInfo{}, fmt.Errorf("ledger: get account info: %w", err)
	}
	if raw == nil {
		return AccountInfo{}, ErrAccountNotFound
	}
	var info AccountInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return AccountInfo{}, fmt.Errorf("ledger: decode account info: %w", err)
	}
	return info, nil
}

// AccountExists reports whether account has ever been opened, without
// paying for a full decode.
func AccountExists(txn store.ReadTxn, account common.Hash) (bool, error) {
	ok, err := txn.Has(store.TableAccounts, store.AccountKey(account))
	if err != nil {
		return false, fmt.Errorf("ledger: has account: %w", err)
	}
	return ok, nil
}

// PutAccountInfo writes (or overwrites) account's head-of-chain summary,
// and mirrors its head into the frontiers table.
func PutAccountInfo(txn store.WriteTxn, info AccountInfo) error {
	raw, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("ledger: encode account info: %w", err)
	}
	if err := txn.Set(store.TableAccounts, store.AccountKey(info.Account), raw); err != nil {
		return fmt.Errorf("ledger: put account info: %w", err)
	}
	if err := txn.Set(store.TableFrontiers, store.FrontierKey(info.Account), info.HeadBlock[:]); err != nil {
		return fmt.Errorf("ledger: put frontier: %w", err)
	}
	return nil
}

// DeleteAccountInfo removes an account entirely: used when a rollback
// undoes an account's Open block.
func DeleteAccountInfo(txn store.WriteTxn, account common.Hash) error {
	if err := txn.Delete(store.TableAccounts, store.AccountKey(account)); err != nil {
		return fmt.Errorf("ledger: delete account info: %w", err)
	}
	if err := txn.Delete(store.TableFrontiers, store.FrontierKey(account)); err != nil {
		return fmt.Errorf("ledger: delete frontier: %w", err)
	}
	return nil
}

// ListAccounts enumerates every account that has ever opened a chain,
// in account-hash order. Schedulers that need a different order (e.g.
// balance-weighted) re-sort the result themselves rather than asking
// the store for a second index.
func ListAccounts(txn store.ReadTxn) ([]AccountInfo, error) {
	it, err := txn.Iterator(store.TableAccounts, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("ledger: list accounts: %w", err)
	}
	defer it.Close()

	var out []AccountInfo
	for ; it.Valid(); it.Next() {
		var info AccountInfo
		if err := json.Unmarshal(it.Value(), &info); err != nil {
			return nil, fmt.Errorf("ledger: decode account info: %w", err)
		}
		out = append(out, info)
	}
	return out, it.Error()
}

// GetBlock returns the decoded block and sideband stored at hash.
func GetBlock(txn store.ReadTxn, hash common.Hash) (StoredBlock, error) {
	raw, err := txn.Get(store.TableBlocks, store.BlockKey(hash))
	if err != nil {
		return StoredBlock{}, fmt.Errorf("ledger: get block: %w", err)
	}
	if raw == nil {
		return StoredBlock{}, ErrBlockNotFound
	}
	var env blockEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return StoredBlock{}, fmt.Errorf("ledger: decode block envelope: %w", err)
	}
	blk, err := blocks.Decode(env.Type, env.Wire)
	if err != nil {
		return StoredBlock{}, fmt.Errorf("ledger: decode block wire: %w", err)
	}
	return StoredBlock{Block: blk, Sideband: env.Sideband}, nil
}

// BlockExists reports whether hash is a known block.
func BlockExists(txn store.ReadTxn, hash common.Hash) (bool, error) {
	ok, err := txn.Has(store.TableBlocks, store.BlockKey(hash))
	if err != nil {
		return false, fmt.Errorf("ledger: has block: %w", err)
	}
	return ok, nil
}

// PutBlock stores blk with its sideband, keyed by blk.Hash().
func PutBlock(txn store.WriteTxn, blk blocks.Block, sideband Sideband) error {
	wire, err := blocks.Encode(blk)
	if err != nil {
		return fmt.Errorf("ledger: encode block wire: %w", err)
	}
	raw, err := json.Marshal(blockEnvelope{Type: blk.Type(), Wire: wire, Sideband: sideband})
	if err != nil {
		return fmt.Errorf("ledger: encode block envelope: %w", err)
	}
	if err := txn.Set(store.TableBlocks, store.BlockKey(blk.Hash()), raw); err != nil {
		return fmt.Errorf("ledger: put block: %w", err)
	}
	return nil
}

// DeleteBlock removes a block, used by rollback.
func DeleteBlock(txn store.WriteTxn, hash common.Hash) error {
	if err := txn.Delete(store.TableBlocks, store.BlockKey(hash)); err != nil {
		return fmt.Errorf("ledger: delete block: %w", err)
	}
	return nil
}

// GetPending looks up a single receivable entry.
func GetPending(txn store.ReadTxn, destination, source common.Hash) (PendingEntry, error) {
	raw, err := txn.Get(store.TablePending, store.PendingKey(destination, source))
	if err != nil {
		return PendingEntry{}, fmt.Errorf("ledger: get pending: %w", err)
	}
	if raw == nil {
		return PendingEntry{}, ErrPendingNotFound
	}
	var p PendingEntry
	if err := json.Unmarshal(raw, &p); err != nil {
		return PendingEntry{}, fmt.Errorf("ledger: decode pending: %w", err)
	}
	return p, nil
}

// PendingExists reports whether a pending entry is still unclaimed.
func PendingExists(txn store.ReadTxn, destination, source common.Hash) (bool, error) {
	ok, err := txn.Has(store.TablePending, store.PendingKey(destination, source))
	if err != nil {
		return false, fmt.Errorf("ledger: has pending: %w", err)
	}
	return ok, nil
}

// PutPending records a new receivable entry created by a Send.
func PutPending(txn store.WriteTxn, p PendingEntry) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("ledger: encode pending: %w", err)
	}
	if err := txn.Set(store.TablePending, store.PendingKey(p.Destination, p.Source), raw); err != nil {
		return fmt.Errorf("ledger: put pending: %w", err)
	}
	return nil
}

// DeletePending removes a receivable entry once it has been claimed (or
// its claiming block is rolled back, which restores it via PutPending).
func DeletePending(txn store.WriteTxn, destination, source common.Hash) error {
	if err := txn.Delete(store.TablePending, store.PendingKey(destination, source)); err != nil {
		return fmt.Errorf("ledger: delete pending: %w", err)
	}
	return nil
}

// ListPending enumerates every pending entry owed to destination, in
// source-hash order.
func ListPending(txn store.ReadTxn, destination common.Hash) ([]PendingEntry, error) {
	prefix := store.PendingPrefix(destination)
	it, err := txn.Iterator(store.TablePending, prefix, nil)
	if err != nil {
		return nil, fmt.Errorf("ledger: list pending: %w", err)
	}
	defer it.Close()

	var out []PendingEntry
	for ; it.Valid(); it.Next() {
		var p PendingEntry
		if err := json.Unmarshal(it.Value(), &p); err != nil {
			return nil, fmt.Errorf("ledger: decode pending entry: %w", err)
		}
		out = append(out, p)
	}
	return out, it.Error()
}

// GetReceivedBy returns the hash of the block that claimed the pending
// entry created by the send at sourceHash, if any has claimed it yet.
func GetReceivedBy(txn store.ReadTxn, sourceHash common.Hash) (common.Hash, bool, error) {
	raw, err := txn.Get(store.TableReceivedBy, store.BlockKey(sourceHash))
	if err != nil {
		return common.Hash{}, false, fmt.Errorf("ledger: get received-by: %w", err)
	}
	if raw == nil {
		return common.Hash{}, false, nil
	}
	return common.BytesToHash(raw), true, nil
}

// PutReceivedBy records that receivingHash claimed the pending entry
// created by the send at sourceHash.
func PutReceivedBy(txn store.WriteTxn, sourceHash, receivingHash common.Hash) error {
	if err := txn.Set(store.TableReceivedBy, store.BlockKey(sourceHash), receivingHash[:]); err != nil {
		return fmt.Errorf("ledger: put received-by: %w", err)
	}
	return nil
}

// DeleteReceivedBy removes the claim record, used when the receiving
// block is rolled back.
func DeleteReceivedBy(txn store.WriteTxn, sourceHash common.Hash) error {
	if err := txn.Delete(store.TableReceivedBy, store.BlockKey(sourceHash)); err != nil {
		return fmt.Errorf("ledger: delete received-by: %w", err)
	}
	return nil
}

// UncheckedEntry is one block parked in the unchecked table because it
// named a dependency the ledger hadn't seen yet, as recorded by
// pkg/processor.
type UncheckedEntry struct {
	DependentHash common.Hash
	Value         []byte
}

// PutUnchecked parks value (an encoded queued block) under
// missingDependency, indexed also by dependentHash so the same block
// can be parked under two different missing hashes (previous and
// source) without colliding.
func PutUnchecked(txn store.WriteTxn, missingDependency, dependentHash common.Hash, value []byte) error {
	if err := txn.Set(store.TableUnchecked, store.UncheckedKey(missingDependency, dependentHash), value); err != nil {
		return fmt.Errorf("ledger: put unchecked: %w", err)
	}
	return nil
}

// DeleteUnchecked removes a single parked entry, used once the parked
// block is resubmitted.
func DeleteUnchecked(txn store.WriteTxn, missingDependency, dependentHash common.Hash) error {
	if err := txn.Delete(store.TableUnchecked, store.UncheckedKey(missingDependency, dependentHash)); err != nil {
		return fmt.Errorf("ledger: delete unchecked: %w", err)
	}
	return nil
}

// ListUnchecked enumerates every block currently parked waiting on
// missingDependency.
func ListUnchecked(txn store.ReadTxn, missingDependency common.Hash) ([]UncheckedEntry, error) {
	it, err := txn.Iterator(store.TableUnchecked, store.UncheckedPrefix(missingDependency), nil)
	if err != nil {
		return nil, fmt.Errorf("ledger: list unchecked: %w", err)
	}
	defer it.Close()

	var out []UncheckedEntry
	for ; it.Valid(); it.Next() {
		key := it.Key()
		if len(key) < 64 {
			continue
		}
		out = append(out, UncheckedEntry{
			DependentHash: common.BytesToHash(key[32:64]),
			Value:         append([]byte{}, it.Value()...),
		})
	}
	return out, it.Error()
}

// GetConfirmationHeight returns how far account's chain has been
// cemented. An account with no recorded height has nothing confirmed.
func GetConfirmationHeight(txn store.ReadTxn, account common.Hash) (ConfirmationHeightInfo, error) {
	raw, err := txn.Get(store.TableConfirmationHeight, store.ConfirmationHeightKey(account))
	if err != nil {
		return ConfirmationHeightInfo{}, fmt.Errorf("ledger: get confirmation height: %w", err)
	}
	if raw == nil {
		return ConfirmationHeightInfo{}, ErrConfirmationHeightNotFound
	}
	var info ConfirmationHeightInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return ConfirmationHeightInfo{}, fmt.Errorf("ledger: decode confirmation height: %w", err)
	}
	return info, nil
}

// PutConfirmationHeight advances (or initializes) account's cemented
// frontier.
func PutConfirmationHeight(txn store.WriteTxn, account common.Hash, info ConfirmationHeightInfo) error {
	raw, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("ledger: encode confirmation height: %w", err)
	}
	if err := txn.Set(store.TableConfirmationHeight, store.ConfirmationHeightKey(account), raw); err != nil {
		return fmt.Errorf("ledger: put confirmation height: %w", err)
	}
	return nil
}
