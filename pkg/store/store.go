// Package store defines the transactional key-value contract the ledger
// is built on: a fixed set of typed tables, single-writer transactions,
// and ordered iteration within a table. It does not implement a storage
// engine itself — it adapts one (via cometbft-db) behind this contract,
// per the spec's choice to treat the engine as pluggable.
package store

import "github.com/ethereum/go-ethereum/common"

// Table names a logical keyspace within the store. Keys are only unique
// within a table, not across tables: the underlying engine key is always
// table-prefixed.
type Table string

const (
	TableAccounts           Table = "accounts"
	TableBlocks             Table = "blocks"
	TablePending            Table = "pending"
	TableFrontiers          Table = "frontiers"
	TableConfirmationHeight Table = "confirmation_height"
	TableOnlineWeight       Table = "online_weight"
	TablePeers              Table = "peers"
	TableUnchecked          Table = "unchecked"
	TableFinalVotes         Table = "final_votes"
	TableVersion            Table = "version"

	// TableReceivedBy indexes a send's hash to the hash of the block
	// that consumed its pending entry, so the rollback planner can find
	// the dependent receive without a reverse chain walk.
	TableReceivedBy Table = "received_by"
)

// allTables lists every table the store must provision, used by backends
// that need to pre-create column families/prefixes.
var allTables = []Table{
	TableAccounts, TableBlocks, TablePending, TableFrontiers,
	TableConfirmationHeight, TableOnlineWeight, TablePeers,
	TableUnchecked, TableFinalVotes, TableVersion, TableReceivedBy,
}

// Store is the top-level handle to the ledger's persistent state. All
// mutation happens inside Update; View gives read-only access without
// blocking other readers.
type Store interface {
	View(fn func(ReadTxn) error) error
	Update(fn func(WriteTxn) error) error
	Close() error
}

// ReadTxn reads the store. Whether it sees a fixed snapshot depends on
// the backend: KVStore reads live state, so writes committed meanwhile
// may become visible. A ReadTxn must not be used after its enclosing
// View/Update callback returns.
type ReadTxn interface {
	Get(table Table, key []byte) ([]byte, error)
	Has(table Table, key []byte) (bool, error)
	// Iterator walks [start, end) in ascending key order within table.
	// A nil start or end is unbounded on that side.
	Iterator(table Table, start, end []byte) (Iterator, error)
}

// WriteTxn additionally allows mutation. All writes within a WriteTxn are
// applied atomically when the enclosing Update callback returns without
// error; if it returns an error, none of them are applied.
type WriteTxn interface {
	ReadTxn
	Set(table Table, key, value []byte) error
	Delete(table Table, key []byte) error
}

// Iterator walks a range of keys within a single table in ascending
// order. Callers must call Close when done.
type Iterator interface {
	Valid() bool
	Next()
	Key() []byte
	Value() []byte
	Close() error
	Error() error
}

// AccountKey and the other *Key helpers below turn a domain identifier
// into the table-local key bytes used by every backend, so callers never
// hand-encode keys themselves.

func AccountKey(account common.Hash) []byte { return account[:] }

func BlockKey(hash common.Hash) []byte { return hash[:] }

// PendingKey is keyed by (destination account, source block hash) so
// that ListPending can enumerate one account's receivable entries by
// prefix scan.
func PendingKey(destination, sourceHash common.Hash) []byte {
	key := make([]byte, 0, 64)
	key = append(key, destination[:]...)
	key = append(key, sourceHash[:]...)
	return key
}

func PendingPrefix(destination common.Hash) []byte {
	return append([]byte{}, destination[:]...)
}

func FrontierKey(account common.Hash) []byte { return account[:] }

func ConfirmationHeightKey(account common.Hash) []byte { return account[:] }

func OnlineWeightSampleKey(unixSeconds int64) []byte {
	return bigEndianInt64(unixSeconds)
}

func PeerKey(endpoint string) []byte { return []byte(endpoint) }

func UncheckedKey(missingDependency common.Hash, dependentHash common.Hash) []byte {
	key := make([]byte, 0, 64)
	key = append(key, missingDependency[:]...)
	key = append(key, dependentHash[:]...)
	return key
}

func UncheckedPrefix(missingDependency common.Hash) []byte {
	return append([]byte{}, missingDependency[:]...)
}

func FinalVoteKey(root common.Hash) []byte { return root[:] }

var VersionKey = []byte("version")

func bigEndianInt64(v int64) []byte {
	b := make([]byte, 8)
	u := uint64(v)
	for i := 7; i >= 0; i-- {
		b[i] = byte(u)
		u >>= 8
	}
	return b
}
