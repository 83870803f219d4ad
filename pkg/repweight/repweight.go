// Package repweight is the in-memory representative weight register:
// for each representative, the sum of every account balance currently
// delegating to it. It is rebuilt from the ledger at startup and kept
// in sync thereafter by the mutator and rollback executor, each of
// which call AddWeight/SubWeight inside the same write transaction
// that changes the underlying balances.
package repweight

import (
	"sync"

	"github.com/certen/ledgercore/pkg/blocks"
	"github.com/ethereum/go-ethereum/common"
)

// Register tracks delegated weight per representative. The zero value
// is ready to use.
type Register struct {
	mu     sync.RWMutex
	weight map[common.Hash]blocks.Balance
}

// New returns an empty Register.
func New() *Register {
	return &Register{weight: make(map[common.Hash]blocks.Balance)}
}

// AddWeight credits amount to representative's tally.
func (r *Register) AddWeight(representative common.Hash, amount blocks.Balance) {
	if amount.IsZero() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.weight == nil {
		r.weight = make(map[common.Hash]blocks.Balance)
	}
	r.weight[representative] = r.weight[representative].Add(amount)
}

// SubWeight debits amount from representative's tally, dropping the
// entry entirely once it reaches zero rather than leaving a zero-value
// residue behind.
func (r *Register) SubWeight(representative common.Hash, amount blocks.Balance) {
	if amount.IsZero() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.weight[representative]
	if !ok {
		return
	}
	next := cur.Sub(amount)
	if next.IsZero() {
		delete(r.weight, representative)
		return
	}
	r.weight[representative] = next
}

// Weight returns representative's currently delegated weight, zero if
// it delegates nothing (or isn't a representative at all).
func (r *Register) Weight(representative common.Hash) blocks.Balance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.weight[representative]
}

// Total sums every representative's delegated weight. The quorum check
// does not use it; it measures against the trended online weight from
// pkg/onlinereps instead.
func (r *Register) Total() blocks.Balance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := blocks.ZeroBalance
	for _, w := range r.weight {
		total = total.Add(w)
	}
	return total
}

// Len reports how many distinct representatives currently hold weight.
func (r *Register) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.weight)
}
