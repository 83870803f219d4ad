// Package processor is the block processor: the single-writer actor
// every inbound block passes through before it becomes part of the
// ledger. It validates each candidate against the current chain tip,
// applies it via pkg/mutator on success, parks it in the unchecked
// table when it names a dependency the ledger hasn't seen yet, and
// replays anything parked under a hash the moment that hash lands.
// Four sources feed it, drained in strict priority order whenever more
// than one has work queued: local (own wallet) first, then forced
// (fork replacement), then bootstrap, then live network traffic last.
package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/certen/ledgercore/pkg/blocks"
	"github.com/certen/ledgercore/pkg/depblocks"
	"github.com/certen/ledgercore/pkg/ledger"
	"github.com/certen/ledgercore/pkg/mutator"
	"github.com/certen/ledgercore/pkg/observer"
	"github.com/certen/ledgercore/pkg/rollback"
	"github.com/certen/ledgercore/pkg/store"
	"github.com/certen/ledgercore/pkg/validator"
	"github.com/certen/ledgercore/pkg/writeguard"
	"github.com/ethereum/go-ethereum/common"
)

// Source names where a candidate block came from, the processor's own
// admission priority: Local beats Forced beats Bootstrap beats Live.
type Source uint8

const (
	Live Source = iota
	Bootstrap
	Local
	Forced
)

func (s Source) String() string {
	switch s {
	case Live:
		return "live"
	case Bootstrap:
		return "bootstrap"
	case Local:
		return "local"
	case Forced:
		return "forced"
	default:
		return "unknown"
	}
}

// dispatchOrder is the priority order processOne drains the four
// per-source queues in.
var dispatchOrder = [...]Source{Local, Forced, Bootstrap, Live}

// queued is one candidate block awaiting processing.
type queued struct {
	block  blocks.Block
	source Source
}

// uncheckedRecord is the JSON encoding of a queued block parked in the
// unchecked table, mirroring the envelope ledger.GetBlock itself
// decodes (type tag plus wire bytes) so Encode/Decode stay in one
// place.
type uncheckedRecord struct {
	Source Source      `json:"source"`
	Type   blocks.Type `json:"type"`
	Wire   []byte      `json:"wire"`
}

// RejectionObserver records a validation outcome by kind, satisfied by
// pkg/metrics.Metrics.
type RejectionObserver interface {
	RecordRejection(kind validator.RejectionKind)
}

// Processor is the block processor. The zero value is not usable;
// build one with New.
type Processor struct {
	guard   *writeguard.WriteGuard
	weights mutator.WeightCache
	obs     *observer.Bus
	metrics RejectionObserver
	logger  *log.Logger

	queues map[Source][]queued
	notify chan struct{}

	stopCh chan struct{}
	doneCh chan struct{}
}

// SetMetrics wires a rejection observer into the processor. Call
// before Start.
func (p *Processor) SetMetrics(metrics RejectionObserver) {
	p.metrics = metrics
}

// New builds a Processor that writes through guard, keeping weights in
// sync and notifying obs of every insertion.
func New(guard *writeguard.WriteGuard, weights mutator.WeightCache, obs *observer.Bus) *Processor {
	return &Processor{
		guard:   guard,
		weights: weights,
		obs:     obs,
		logger:  log.New(log.Writer(), "[Processor] ", log.LstdFlags),
		queues:  make(map[Source][]queued, len(dispatchOrder)),
		notify:  make(chan struct{}, 1),
	}
}

// Submit enqueues blk for processing from source. It never blocks.
func (p *Processor) Submit(blk blocks.Block, source Source) {
	p.enqueue(queued{block: blk, source: source})
}

func (p *Processor) enqueue(q queued) {
	p.queues[q.source] = append(p.queues[q.source], q)
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// Force submits blk as a Forced candidate: if it conflicts with the
// account's current head, Process rolls the conflicting fork back and
// retries within the same write transaction (resolving the spec's open
// question on forced insertion atomicity) rather than requiring a
// separate rollback call first.
func (p *Processor) Force(blk blocks.Block) {
	p.Submit(blk, Forced)
}

// Start launches the processor's run loop.
func (p *Processor) Start(ctx context.Context) {
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	go p.run(ctx)
}

// Stop halts the run loop once whatever candidate is in flight
// finishes.
func (p *Processor) Stop() {
	close(p.stopCh)
	<-p.doneCh
}

func (p *Processor) run(ctx context.Context) {
	defer close(p.doneCh)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-p.notify:
		case <-ticker.C:
		}
		for p.processOne() {
		}
	}
}

// processOne pulls and processes the single highest-priority queued
// candidate, returning false once every queue is empty.
func (p *Processor) processOne() bool {
	q, ok := p.dequeue()
	if !ok {
		return false
	}
	p.process(q.block, q.source)
	return true
}

func (p *Processor) dequeue() (queued, bool) {
	for _, s := range dispatchOrder {
		if len(p.queues[s]) > 0 {
			q := p.queues[s][0]
			p.queues[s] = p.queues[s][1:]
			return q, true
		}
	}
	return queued{}, false
}

// process runs a single candidate through validation and, on success,
// application — all inside one writeguard-arbitrated write
// transaction — and then handles the rejection or dependent-replay
// consequences outside it.
func (p *Processor) process(blk blocks.Block, source Source) {
	var rejection *validator.Rejection
	var deps depblocks.Dependencies
	var resubmit []queued

	err := p.guard.Run(writeguard.PriorityProcessor, func(txn store.WriteTxn) error {
		now := time.Now().Unix()
		account, rej, rerr := resolveAccount(txn, blk)
		if rerr != nil {
			return fmt.Errorf("processor: resolve account: %w", rerr)
		}
		if rej != nil {
			rejection = rej
			return nil
		}

		view := ledger.ReadView{Txn: txn}
		instr, rej := validator.Validate(view, blk, account, now)
		if rej != nil && rej.Kind == validator.Fork && source == Forced {
			if _, crej := rollback.Cascade(txn, account, blk.Previous(), p.weights, p.obs); crej != nil {
				rejection = crej
				return nil
			}
			instr, rej = validator.Validate(ledger.ReadView{Txn: txn}, blk, account, now)
		}
		if rej != nil {
			rejection = rej
			if rej.Kind == validator.GapPrevious || rej.Kind == validator.GapSource {
				d, derr := depblocks.Of(txn, blk)
				if derr != nil {
					return fmt.Errorf("processor: resolve dependencies: %w", derr)
				}
				deps = d
				if err := parkBlock(txn, blk, source, rej.Kind, deps); err != nil {
					return err
				}
			}
			return nil
		}

		if err := mutator.Apply(txn, instr, p.weights, p.obs); err != nil {
			return fmt.Errorf("processor: apply: %w", err)
		}

		waiting, err := ledger.ListUnchecked(txn, blk.Hash())
		if err != nil {
			return fmt.Errorf("processor: list waiters: %w", err)
		}
		for _, w := range waiting {
			var rec uncheckedRecord
			if err := json.Unmarshal(w.Value, &rec); err != nil {
				return fmt.Errorf("processor: decode waiter: %w", err)
			}
			waiter, err := blocks.Decode(rec.Type, rec.Wire)
			if err != nil {
				return fmt.Errorf("processor: decode waiter wire: %w", err)
			}
			if err := ledger.DeleteUnchecked(txn, blk.Hash(), w.DependentHash); err != nil {
				return fmt.Errorf("processor: clear waiter: %w", err)
			}
			resubmit = append(resubmit, queued{block: waiter, source: rec.Source})
		}
		return nil
	})
	if err != nil {
		p.logger.Panicf("write transaction failed: %v", err)
	}

	if rejection != nil {
		p.logRejection(blk, source, rejection)
		return
	}
	if p.metrics != nil {
		p.metrics.RecordRejection(validator.Progress)
	}
	for _, w := range resubmit {
		p.enqueue(w)
	}
}

func (p *Processor) logRejection(blk blocks.Block, source Source, rej *validator.Rejection) {
	if p.metrics != nil {
		p.metrics.RecordRejection(rej.Kind)
	}
	switch rej.Kind {
	case validator.GapPrevious, validator.GapSource:
		p.logger.Printf("parked %s block %s (%s) from %s: %s", blk.Type(), blk.Hash(), rej.Kind, source, rej.Reason)
	default:
		p.logger.Printf("rejected %s block %s from %s: %s", blk.Type(), blk.Hash(), source, rej.Error())
	}
}

// parkBlock records blk in the unchecked table under every dependency
// slot depblocks reported, so it is replayed once whichever arrives
// first lands.
func parkBlock(txn store.WriteTxn, blk blocks.Block, source Source, kind validator.RejectionKind, deps depblocks.Dependencies) error {
	wire, err := blocks.Encode(blk)
	if err != nil {
		return fmt.Errorf("processor: encode parked block: %w", err)
	}
	raw, err := json.Marshal(uncheckedRecord{Source: source, Type: blk.Type(), Wire: wire})
	if err != nil {
		return fmt.Errorf("processor: encode parked record: %w", err)
	}

	missing := deps.First
	if kind == validator.GapSource {
		missing = deps.Second
	}
	if missing == (common.Hash{}) {
		return nil
	}
	if err := ledger.PutUnchecked(txn, missing, blk.Hash(), raw); err != nil {
		return fmt.Errorf("processor: park block: %w", err)
	}
	return nil
}

// resolveAccount determines which account blk belongs to. Open and
// State blocks carry it explicitly; every legacy shape is implied by
// whichever account's head the block's previous hash belongs to, found
// by looking that predecessor block up.
func resolveAccount(txn store.ReadTxn, blk blocks.Block) (common.Hash, *validator.Rejection, error) {
	switch b := blk.(type) {
	case *blocks.OpenBlock:
		return b.Account, nil, nil
	case *blocks.StateBlock:
		return b.Account, nil, nil
	default:
		previous := blk.Previous()
		if previous == (common.Hash{}) {
			return common.Hash{}, &validator.Rejection{Kind: validator.GapPrevious, Reason: "legacy block has no previous to resolve its account from"}, nil
		}
		prev, err := ledger.GetBlock(txn, previous)
		if err != nil {
			if err == ledger.ErrBlockNotFound {
				return common.Hash{}, &validator.Rejection{Kind: validator.GapPrevious, Reason: "previous block is unknown"}, nil
			}
			return common.Hash{}, nil, err
		}
		return prev.Sideband.Account, nil, nil
	}
}
