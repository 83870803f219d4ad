// Package voteprocessor verifies incoming votes off the network
// ingestion path and routes each endorsed hash to whichever consumer
// currently cares about it: an active election if one is contesting
// that hash's root, or the vote cache otherwise (the vote may be for a
// block this node hasn't heard of yet, or one already confirmed).
// Signature verification is dispatched across a bounded pool of
// workers so a burst of votes never serializes behind Ed25519.
package voteprocessor

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/certen/ledgercore/pkg/blocks"
	"github.com/certen/ledgercore/pkg/crypto"
	"github.com/certen/ledgercore/pkg/elections"
	"github.com/certen/ledgercore/pkg/observer"
	"github.com/certen/ledgercore/pkg/votecache"
	"github.com/ethereum/go-ethereum/common"
)

// Trended supplies the current trended online weight, the denominator
// elections.Active.Vote checks each vote's tally against.
type Trended interface {
	Trended() blocks.Balance
}

// OnlineObserver records that a representative has just been heard
// from, satisfied by pkg/onlinereps.Register.
type OnlineObserver interface {
	Observe(representative common.Hash, now int64)
}

// Processor verifies and routes votes. The zero value is not usable;
// build one with New.
type Processor struct {
	queue         chan *blocks.Vote
	workers       int
	active        *elections.Active
	cache         *votecache.Cache
	weights       elections.WeightOf
	trended       Trended
	quorumPercent int
	obs           *observer.Bus
	online        OnlineObserver

	wg      sync.WaitGroup
	dropped atomic.Uint64
}

// SetOnlineObserver wires an online-representatives register into the
// processor so every successfully verified vote marks its voter as
// peered. The field is read by the workers without synchronization, so
// call it before Start.
func (p *Processor) SetOnlineObserver(online OnlineObserver) {
	p.online = online
}

// New builds a Processor with the given worker count and bounded
// inbound queue depth.
func New(workers, queueDepth int, active *elections.Active, cache *votecache.Cache, weights elections.WeightOf, trended Trended, quorumPercent int, obs *observer.Bus) *Processor {
	return &Processor{
		queue:         make(chan *blocks.Vote, queueDepth),
		workers:       workers,
		active:        active,
		cache:         cache,
		weights:       weights,
		trended:       trended,
		quorumPercent: quorumPercent,
		obs:           obs,
	}
}

// Start launches the worker pool. Workers exit once ctx is cancelled,
// finishing the vote in hand but leaving any still queued unprocessed;
// call Wait afterward to block until they have all exited.
func (p *Processor) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

// Wait blocks until every worker launched by Start has exited.
func (p *Processor) Wait() {
	p.wg.Wait()
}

// Submit enqueues v for verification and routing. It returns false
// without blocking if the queue is currently full, the vote is
// dropped rather than allowed to back up the network ingestion path.
func (p *Processor) Submit(v *blocks.Vote) bool {
	select {
	case p.queue <- v:
		return true
	default:
		p.dropped.Add(1)
		return false
	}
}

// Dropped reports how many votes have been discarded because the
// inbound queue was full.
func (p *Processor) Dropped() uint64 {
	return p.dropped.Load()
}

func (p *Processor) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-p.queue:
			if !ok {
				return
			}
			p.process(v)
		}
	}
}

func (p *Processor) process(v *blocks.Vote) {
	if !crypto.VerifyVote(v) {
		return
	}

	if p.online != nil {
		p.online.Observe(v.Voter, v.Timestamp)
	}

	weight := blocks.ZeroBalance
	if p.weights != nil {
		weight = p.weights.Weight(v.Voter)
	}

	for _, hash := range v.Hashes {
		p.route(v.Voter, hash, v.Timestamp, weight)
		if p.obs != nil {
			p.obs.VoteProcessed(v.Voter, hash)
		}
	}
}

func (p *Processor) route(voter, hash common.Hash, timestamp int64, weight blocks.Balance) {
	if root, ok := p.active.RootFor(hash); ok {
		trended := blocks.ZeroBalance
		if p.trended != nil {
			trended = p.trended.Trended()
		}
		p.active.Vote(root, voter, hash, timestamp, weight, trended, p.quorumPercent)
		return
	}
	if p.cache != nil {
		p.cache.Record(votecache.Vote{Voter: voter, Hash: hash, Timestamp: timestamp})
	}
}
