package store

import (
	"bytes"
	"sync"

	dbm "github.com/cometbft/cometbft-db"
)

// KVStore adapts a cometbft-db dbm.DB into the Store contract. Tables
// are namespaced by prefixing every key with the table name, the same
// flat-keyspace-over-one-DB approach the teacher's LedgerStore uses for
// its "sysledger:"/"anchorledger:" prefixes.
//
// Writers are serialized by writeMu: the spec requires a single logical
// writer transaction at a time (see pkg/writeguard), and KVStore enforces
// that at the storage layer too so it is safe to use standalone.
type KVStore struct {
	db      dbm.DB
	writeMu sync.Mutex
}

// NewKVStore wraps db as a Store.
func NewKVStore(db dbm.DB) *KVStore {
	return &KVStore{db: db}
}

func tableKey(table Table, key []byte) []byte {
	full := make([]byte, 0, len(table)+1+len(key))
	full = append(full, table...)
	full = append(full, ':')
	full = append(full, key...)
	return full
}

type roTxn struct {
	db dbm.DB
}

func (t *roTxn) Get(table Table, key []byte) ([]byte, error) {
	return t.db.Get(tableKey(table, key))
}

func (t *roTxn) Has(table Table, key []byte) (bool, error) {
	return t.db.Has(tableKey(table, key))
}

func (t *roTxn) Iterator(table Table, start, end []byte) (Iterator, error) {
	prefix := append([]byte(table), ':')
	lo := append(append([]byte{}, prefix...), start...)
	var hi []byte
	if end == nil {
		hi = prefixUpperBound(prefix)
	} else {
		hi = append(append([]byte{}, prefix...), end...)
	}
	it, err := t.db.Iterator(lo, hi)
	if err != nil {
		return nil, err
	}
	return &tableIterator{it: it, prefix: prefix}, nil
}

// View opens a read-only transaction. cometbft-db has no MVCC snapshot
// isolation, so View simply reads the live state; concurrent Updates may
// interleave, which is acceptable since the spec's single-writer
// discipline (pkg/writeguard) already excludes concurrent writers.
func (s *KVStore) View(fn func(ReadTxn) error) error {
	return fn(&roTxn{db: s.db})
}

// rwTxn buffers writes in pending/deleted for read-your-own-writes via
// Get/Has, and mirrors them into batch for atomic commit. Iterator is
// inherited from roTxn unmodified: a range scan inside a WriteTxn does
// not see that same transaction's own uncommitted Set/Delete calls.
// Nothing in the ledger iterates and mutates the same table within one
// Update call, so this is not a practical limitation here.
type rwTxn struct {
	roTxn
	batch   dbm.Batch
	pending map[string][]byte
	deleted map[string]struct{}
}

func (t *rwTxn) Get(table Table, key []byte) ([]byte, error) {
	k := string(tableKey(table, key))
	if _, gone := t.deleted[k]; gone {
		return nil, nil
	}
	if v, ok := t.pending[k]; ok {
		return v, nil
	}
	return t.roTxn.Get(table, key)
}

func (t *rwTxn) Has(table Table, key []byte) (bool, error) {
	v, err := t.Get(table, key)
	if err != nil {
		return false, err
	}
	return v != nil, nil
}

func (t *rwTxn) Set(table Table, key, value []byte) error {
	k := string(tableKey(table, key))
	delete(t.deleted, k)
	t.pending[k] = value
	return t.batch.Set([]byte(k), value)
}

func (t *rwTxn) Delete(table Table, key []byte) error {
	k := string(tableKey(table, key))
	delete(t.pending, k)
	t.deleted[k] = struct{}{}
	return t.batch.Delete([]byte(k))
}

// Update runs fn inside a single atomic write batch: either every Set and
// Delete fn performs lands together, or (on error or panic) none do.
func (s *KVStore) Update(fn func(WriteTxn) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	batch := s.db.NewBatch()
	defer batch.Close()

	txn := &rwTxn{
		roTxn:   roTxn{db: s.db},
		batch:   batch,
		pending: make(map[string][]byte),
		deleted: make(map[string]struct{}),
	}
	if err := fn(txn); err != nil {
		return err
	}
	return batch.WriteSync()
}

func (s *KVStore) Close() error {
	return s.db.Close()
}

type tableIterator struct {
	it     dbm.Iterator
	prefix []byte
}

func (i *tableIterator) Valid() bool { return i.it.Valid() }
func (i *tableIterator) Next()       { i.it.Next() }
func (i *tableIterator) Key() []byte {
	return bytes.TrimPrefix(i.it.Key(), i.prefix)
}
func (i *tableIterator) Value() []byte { return i.it.Value() }
func (i *tableIterator) Close() error  { return i.it.Close() }
func (i *tableIterator) Error() error  { return i.it.Error() }

// prefixUpperBound returns the smallest key that sorts after every key
// beginning with prefix, for use as an iterator's exclusive upper bound.
func prefixUpperBound(prefix []byte) []byte {
	upper := append([]byte{}, prefix...)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil // prefix is all 0xff: unbounded above
}
