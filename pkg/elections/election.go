// Package elections runs the active elections map: one Election per
// contested root, weighted-vote tallying against the trended online
// weight, and the fork-replacement signal the block processor acts on
// when a losing fork it already holds the head for needs to be forced
// back out of the ledger.
package elections

import (
	"math/big"
	"sync"

	"github.com/certen/ledgercore/pkg/blocks"
	"github.com/ethereum/go-ethereum/common"
)

// Status is an election's place in its lifecycle.
type Status uint8

const (
	Passive Status = iota
	Active
	Confirmed
	ExpiredConfirmed
	ExpiredUnconfirmed
)

func (s Status) String() string {
	switch s {
	case Passive:
		return "passive"
	case Active:
		return "active"
	case Confirmed:
		return "confirmed"
	case ExpiredConfirmed:
		return "expired_confirmed"
	case ExpiredUnconfirmed:
		return "expired_unconfirmed"
	default:
		return "unknown"
	}
}

// votedAt remembers the timestamp of a representative's latest vote in
// this election, so a replayed or reordered older vote can never
// downgrade the tally (the upgrade rule: only a vote with a later
// timestamp than one already recorded from the same voter replaces it).
type votedAt struct {
	hash      common.Hash
	timestamp int64
}

// Election tracks every competing block for a single root (the forked
// position on one account chain) and the weight currently behind each.
type Election struct {
	Root    common.Hash
	Account common.Hash

	mu       sync.Mutex
	status   Status
	blocks   map[common.Hash]blocks.Block
	tally    map[common.Hash]blocks.Balance
	voted    map[common.Hash]votedAt
	winner   common.Hash
	startsAt int64
	doneAt   int64
}

// New starts a Passive election over root with its first candidate.
func New(root, account common.Hash, first blocks.Block, now int64) *Election {
	return &Election{
		Root:     root,
		Account:  account,
		status:   Passive,
		blocks:   map[common.Hash]blocks.Block{first.Hash(): first},
		tally:    map[common.Hash]blocks.Balance{},
		voted:    map[common.Hash]votedAt{},
		startsAt: now,
	}
}

// Status returns the election's current lifecycle state.
func (e *Election) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Activate promotes a Passive election to Active (the scheduler has
// decided to actively solicit votes for it rather than wait for them
// to arrive unsolicited).
func (e *Election) Activate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == Passive {
		e.status = Active
	}
}

// AddCandidate registers another block competing for root (a fork),
// starting it at zero tallied weight.
func (e *Election) AddCandidate(blk blocks.Block) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.blocks[blk.Hash()]; !ok {
		e.blocks[blk.Hash()] = blk
	}
}

// CandidateHashes returns every hash currently registered as a
// candidate for this election.
func (e *Election) CandidateHashes() []common.Hash {
	e.mu.Lock()
	defer e.mu.Unlock()
	hashes := make([]common.Hash, 0, len(e.blocks))
	for h := range e.blocks {
		hashes = append(hashes, h)
	}
	return hashes
}

// Candidate returns the block registered under hash, if any.
func (e *Election) Candidate(hash common.Hash) (blocks.Block, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.blocks[hash]
	return b, ok
}

// Winner returns the confirmed winning hash, valid only once Status is
// Confirmed or ExpiredConfirmed.
func (e *Election) Winner() common.Hash {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.winner
}

// Vote applies a single representative's weighted vote for hash,
// obeying the upgrade rule (a voter's earlier vote is replaced only by
// a strictly later one) and checking quorum against trended. It
// returns whether this vote just confirmed the election and, if so,
// the winning hash.
func (e *Election) Vote(voter, hash common.Hash, timestamp int64, weight blocks.Balance, trended blocks.Balance, quorumPercent int) (confirmedNow bool, winner common.Hash) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status == Confirmed || e.status == ExpiredConfirmed || e.status == ExpiredUnconfirmed {
		return false, e.winner
	}

	if prev, ok := e.voted[voter]; ok {
		if timestamp <= prev.timestamp {
			return false, common.Hash{}
		}
		e.subtractLocked(prev.hash, weight)
	}
	e.voted[voter] = votedAt{hash: hash, timestamp: timestamp}
	e.addLocked(hash, weight)

	best, bestWeight := e.leaderLocked()
	if !meetsQuorum(bestWeight, trended, quorumPercent) {
		return false, common.Hash{}
	}
	e.status = Confirmed
	e.winner = best
	return true, best
}

func (e *Election) addLocked(hash common.Hash, weight blocks.Balance) {
	cur := e.tally[hash]
	e.tally[hash] = cur.Add(weight)
}

func (e *Election) subtractLocked(hash common.Hash, weight blocks.Balance) {
	cur, ok := e.tally[hash]
	if !ok {
		return
	}
	if cur.Cmp(weight) <= 0 {
		delete(e.tally, hash)
		return
	}
	e.tally[hash] = cur.Sub(weight)
}

// leaderLocked returns the highest-tallied candidate, breaking ties by
// the larger hash (the same deterministic tie-break every node applies
// independently, so honest nodes converge on the same winner without
// needing another round of communication).
func (e *Election) leaderLocked() (common.Hash, blocks.Balance) {
	var best common.Hash
	var bestWeight blocks.Balance
	first := true
	for hash, weight := range e.tally {
		if first {
			best, bestWeight, first = hash, weight, false
			continue
		}
		cmp := weight.Cmp(bestWeight)
		if cmp > 0 || (cmp == 0 && greaterHash(hash, best)) {
			best, bestWeight = hash, weight
		}
	}
	return best, bestWeight
}

func greaterHash(a, b common.Hash) bool {
	return new(big.Int).SetBytes(a[:]).Cmp(new(big.Int).SetBytes(b[:])) > 0
}

// Expire marks an unconfirmed election ExpiredUnconfirmed, or a
// confirmed-but-still-resident one ExpiredConfirmed, once it has aged
// past electionExpirySeconds from its start. It is a no-op if the
// election has not yet aged out.
func (e *Election) Expire(now int64, electionExpirySeconds int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if now-e.startsAt < electionExpirySeconds {
		return false
	}
	switch e.status {
	case Confirmed:
		e.status = ExpiredConfirmed
	case ExpiredConfirmed, ExpiredUnconfirmed:
		return false
	default:
		e.status = ExpiredUnconfirmed
	}
	e.doneAt = now
	return true
}

// meetsQuorum reports whether weight is at least trended*percent/100.
func meetsQuorum(weight, trended blocks.Balance, percent int) bool {
	lhs := new(big.Int).Mul(weight.Big(), big.NewInt(100))
	rhs := new(big.Int).Mul(trended.Big(), big.NewInt(int64(percent)))
	return lhs.Cmp(rhs) >= 0
}

// WeightOf looks up a representative's currently delegated weight, the
// input Vote needs to scale a single representative's ballot by. It is
// satisfied by the weight cache pkg/mutator maintains.
type WeightOf interface {
	Weight(representative common.Hash) blocks.Balance
}
