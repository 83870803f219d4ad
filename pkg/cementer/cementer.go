// Package cementer is the confirming set: it turns an election's
// winning hash into an advance of confirmation_height, walking
// backward over each account's not-yet-cemented ancestors and
// cascading into whichever other account a receive's source send
// lives on. Writes are batched under a self-tuning time budget (250ms
// by default) so a burst of confirmations never holds the single write
// transaction open indefinitely: a batch that overruns its budget
// shrinks the next one, a batch that finishes comfortably early grows
// it, bounded below by a floor so it never shrinks to nothing.
package cementer

import (
	"context"
	"log"
	"time"

	"github.com/certen/ledgercore/pkg/config"
	"github.com/certen/ledgercore/pkg/ledger"
	"github.com/certen/ledgercore/pkg/observer"
	"github.com/certen/ledgercore/pkg/store"
	"github.com/certen/ledgercore/pkg/writeguard"
	"github.com/ethereum/go-ethereum/common"
)

// BatchObserver records how long a cementer batch took, satisfied by
// pkg/metrics.Metrics.
type BatchObserver interface {
	ObserveCementerBatch(d time.Duration)
}

// Cementer drains a queue of newly-confirmed hashes and advances
// confirmation height for every account they touch. The zero value is
// not usable; build one with New.
type Cementer struct {
	guard   *writeguard.WriteGuard
	obs     *observer.Bus
	metrics BatchObserver

	queue chan common.Hash

	budget        time.Duration
	floor         int
	shrinkPercent int
	growPercent   int

	batchSize int

	logger *log.Logger
	stopCh chan struct{}
	doneCh chan struct{}
}

// SetMetrics wires a batch-duration observer into the cementer. Call
// before Start.
func (c *Cementer) SetMetrics(metrics BatchObserver) {
	c.metrics = metrics
}

// New builds a Cementer tuned by cfg, writing through guard.
func New(guard *writeguard.WriteGuard, obs *observer.Bus, cfg *config.Config) *Cementer {
	return &Cementer{
		guard:         guard,
		obs:           obs,
		queue:         make(chan common.Hash, 4096),
		budget:        cfg.CementerBatchBudget,
		floor:         cfg.CementerBatchFloor,
		shrinkPercent: cfg.CementerShrinkPercent,
		growPercent:   cfg.CementerGrowPercent,
		batchSize:     cfg.CementerBatchFloor,
		logger:        log.New(log.Writer(), "[Cementer] ", log.LstdFlags),
	}
}

// Enqueue submits hash (a confirmed election's winning block) for
// cementing. It drops the hash and logs rather than blocking if the
// queue is saturated — a dropped hash is simply re-enqueued the next
// time an election confirms it or a later descendant is cemented past
// it.
func (c *Cementer) Enqueue(hash common.Hash) {
	select {
	case c.queue <- hash:
	default:
		c.logger.Printf("queue full, dropping cement request for %s", hash)
	}
}

// SubscribeElections wires the cementer to bus: every
// ElectionConfirmedEvent's winner is enqueued for cementing.
func (c *Cementer) SubscribeElections(ctx context.Context, bus *observer.Bus) {
	ch := make(chan observer.ElectionConfirmedEvent, 256)
	sub := bus.SubscribeElectionConfirmed(ch)
	go func() {
		defer sub.Unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-sub.Err():
				c.logger.Printf("election subscription error: %v", err)
				return
			case ev := <-ch:
				c.Enqueue(ev.Winner)
			}
		}
	}()
}

// Start launches the batching loop.
func (c *Cementer) Start(ctx context.Context) {
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	go c.run(ctx)
}

// Stop halts the batching loop once whatever batch is in flight
// finishes.
func (c *Cementer) Stop() {
	close(c.stopCh)
	<-c.doneCh
}

func (c *Cementer) run(ctx context.Context) {
	defer close(c.doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case first := <-c.queue:
			c.runBatch(first)
		}
	}
}

// runBatch drains up to the current batch size off the queue (first
// already popped by run), cements every chain it names in one write
// transaction, and self-tunes the next batch size from how long this
// one took.
func (c *Cementer) runBatch(first common.Hash) {
	hashes := []common.Hash{first}
drain:
	for len(hashes) < c.batchSize {
		select {
		case h := <-c.queue:
			hashes = append(hashes, h)
		default:
			break drain
		}
	}

	start := time.Now()
	total := 0
	err := c.guard.Run(writeguard.PriorityCementer, func(txn store.WriteTxn) error {
		for _, h := range hashes {
			n, err := c.cementChain(txn, h, map[common.Hash]bool{})
			if err != nil {
				return err
			}
			total += n
		}
		return nil
	})
	if err != nil {
		c.logger.Printf("batch of %d failed: %v", len(hashes), err)
		return
	}

	elapsed := time.Since(start)
	c.tune(elapsed)
	if c.metrics != nil {
		c.metrics.ObserveCementerBatch(elapsed)
	}
	if total > 0 && c.obs != nil {
		c.obs.BlocksCemented(total)
	}
}

// tune adjusts the next batch size from how long the batch that just
// finished took relative to budget: over budget shrinks by
// shrinkPercent (never below floor), comfortably under budget (80% of
// it, the same ratio the spec's 250ms/200ms defaults describe) grows
// by growPercent.
func (c *Cementer) tune(elapsed time.Duration) {
	switch {
	case elapsed > c.budget:
		shrunk := c.batchSize - c.batchSize*c.shrinkPercent/100
		if shrunk < c.floor {
			shrunk = c.floor
		}
		c.batchSize = shrunk
	case elapsed < c.budget*4/5:
		c.batchSize += c.batchSize * c.growPercent / 100
	}
}

// cementChain walks backward from hash over its account's
// not-yet-cemented ancestors, cementing each (oldest first) by
// advancing confirmation_height, and recurses into the source
// account of any receive it cements. visiting guards against
// revisiting the same hash twice within one batch (two queued hashes
// naming an overlapping ancestor chain). It returns how many blocks
// were newly cemented.
func (c *Cementer) cementChain(txn store.WriteTxn, hash common.Hash, visiting map[common.Hash]bool) (int, error) {
	var chain []ledger.StoredBlock
	cur := hash
	for {
		if visiting[cur] {
			break
		}
		stored, err := ledger.GetBlock(txn, cur)
		if err != nil {
			return 0, err
		}
		confInfo, err := ledger.GetConfirmationHeight(txn, stored.Sideband.Account)
		hasConf := err == nil
		if err != nil && err != ledger.ErrConfirmationHeightNotFound {
			return 0, err
		}
		if hasConf && confInfo.IsConfirmed(stored.Sideband.Height) {
			break
		}
		chain = append(chain, stored)
		visiting[cur] = true

		previous := stored.Block.Previous()
		if previous == (common.Hash{}) {
			break
		}
		cur = previous
	}

	count := 0
	for i := len(chain) - 1; i >= 0; i-- {
		sb := chain[i]
		hash := sb.Block.Hash()
		if err := ledger.PutConfirmationHeight(txn, sb.Sideband.Account, ledger.ConfirmationHeightInfo{
			Height:   sb.Sideband.Height,
			Frontier: hash,
		}); err != nil {
			return count, err
		}
		count++
		if c.obs != nil {
			c.obs.BlockCemented(hash, sb.Sideband.Account, sb.Sideband.Height, sb.Sideband.Balance, sb.Block)
		}

		if sb.Sideband.Details.IsReceive {
			src := sourceHashOf(sb.Block)
			if src != (common.Hash{}) {
				sub, err := c.cementChain(txn, src, visiting)
				if err != nil {
					return count, err
				}
				count += sub
			}
		}
	}
	return count, nil
}
