package elections

import (
	"sync"

	"github.com/certen/ledgercore/pkg/blocks"
	"github.com/certen/ledgercore/pkg/observer"
	"github.com/ethereum/go-ethereum/common"
)

// Active is the bounded map of every root currently under contest.
// Inserting past Limit is refused, the same admission control every
// scheduler type shares.
type Active struct {
	mu       sync.Mutex
	byRoot   map[common.Hash]*Election
	byHash   map[common.Hash]common.Hash
	limit    int
	obs      *observer.Bus
}

// NewActive builds an Active map admitting at most limit concurrent
// elections.
func NewActive(limit int, obs *observer.Bus) *Active {
	return &Active{
		byRoot: make(map[common.Hash]*Election),
		byHash: make(map[common.Hash]common.Hash),
		limit:  limit,
		obs:    obs,
	}
}

// RootFor returns the root of the election currently tracking hash as
// one of its candidates, the lookup the vote processor needs since an
// incoming vote only names a candidate's hash, not its root.
func (a *Active) RootFor(hash common.Hash) (common.Hash, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	root, ok := a.byHash[hash]
	return root, ok
}

// Get returns the election for root, if one exists.
func (a *Active) Get(root common.Hash) (*Election, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.byRoot[root]
	return e, ok
}

// Len reports how many elections are currently tracked.
func (a *Active) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.byRoot)
}

// Insert starts a new election for root with blk as its first
// candidate, or registers blk as an additional fork candidate on an
// existing election for root. Returns false (admitting nothing) if the
// map is already at its limit and root has no existing election.
func (a *Active) Insert(root, account common.Hash, blk blocks.Block, now int64) (*Election, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e, ok := a.byRoot[root]; ok {
		e.AddCandidate(blk)
		a.byHash[blk.Hash()] = root
		return e, true
	}
	if len(a.byRoot) >= a.limit {
		return nil, false
	}
	e := New(root, account, blk, now)
	a.byRoot[root] = e
	a.byHash[blk.Hash()] = root
	return e, true
}

// Remove evicts root's election, e.g. once it has been cemented or
// has expired unconfirmed past retention.
func (a *Active) Remove(root common.Hash) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.removeLocked(root)
}

func (a *Active) removeLocked(root common.Hash) {
	e, ok := a.byRoot[root]
	if !ok {
		return
	}
	delete(a.byRoot, root)
	for _, h := range e.CandidateHashes() {
		delete(a.byHash, h)
	}
}

// Vote routes a vote to root's election if one exists, emitting
// ElectionConfirmed and removing the election from the active set the
// moment it confirms. It is a no-op (false, zero hash) if no election
// is tracking root.
func (a *Active) Vote(root, voter, hash common.Hash, timestamp int64, weight, trended blocks.Balance, quorumPercent int) (confirmed bool, winner common.Hash) {
	a.mu.Lock()
	e, ok := a.byRoot[root]
	a.mu.Unlock()
	if !ok {
		return false, common.Hash{}
	}

	confirmedNow, w := e.Vote(voter, hash, timestamp, weight, trended, quorumPercent)
	if confirmedNow {
		if a.obs != nil {
			a.obs.ElectionConfirmed(root, w, e.Account)
		}
		a.Remove(root)
	}
	return confirmedNow, w
}

// Sweep expires every election older than electionExpirySeconds,
// removing unconfirmed ones from the active set (confirmed ones are
// already removed at confirmation time by Vote, so Sweep only ever
// finds unconfirmed stragglers in practice). It returns how many were
// expired.
func (a *Active) Sweep(now, electionExpirySeconds int64) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	expired := 0
	for root, e := range a.byRoot {
		if e.Expire(now, electionExpirySeconds) {
			expired++
			for _, h := range e.CandidateHashes() {
				delete(a.byHash, h)
			}
			delete(a.byRoot, root)
		}
	}
	return expired
}
