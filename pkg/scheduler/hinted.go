package scheduler

import (
	"context"
	"log"
	"math/big"
	"time"

	"github.com/certen/ledgercore/pkg/blocks"
	"github.com/certen/ledgercore/pkg/elections"
	"github.com/certen/ledgercore/pkg/ledger"
	"github.com/certen/ledgercore/pkg/store"
	"github.com/certen/ledgercore/pkg/votecache"
)

// Trended supplies the online weight a hinted candidate's accumulated
// vote weight is measured against.
type Trended interface {
	Trended() blocks.Balance
}

// Hinted watches the vote cache for hashes that have already
// accumulated enough weight, unsolicited, to clear the configured
// percentage of trended online weight even before an election exists
// for them, and promotes those straight to an active election.
type Hinted struct {
	db            store.Store
	active        *elections.Active
	cache         *votecache.Cache
	weights       elections.WeightOf
	trended       Trended
	weightPercent int
	every         time.Duration
	logger        *log.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHinted builds a hinted scheduler polling the vote cache every
// interval, promoting any hash whose cached weight already clears
// weightPercent of trended online weight.
func NewHinted(db store.Store, active *elections.Active, cache *votecache.Cache, weights elections.WeightOf, trended Trended, weightPercent int, every time.Duration) *Hinted {
	return &Hinted{
		db:            db,
		active:        active,
		cache:         cache,
		weights:       weights,
		trended:       trended,
		weightPercent: weightPercent,
		every:         every,
		logger:        log.New(log.Writer(), "[HintedScheduler] ", log.LstdFlags),
	}
}

// Start launches the polling loop.
func (h *Hinted) Start(ctx context.Context) {
	h.stopCh = make(chan struct{})
	h.doneCh = make(chan struct{})
	go h.run(ctx)
}

// Stop halts the polling loop.
func (h *Hinted) Stop() {
	close(h.stopCh)
	<-h.doneCh
}

func (h *Hinted) run(ctx context.Context) {
	defer close(h.doneCh)
	ticker := time.NewTicker(h.every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stopCh:
			return
		case <-ticker.C:
			h.tick()
		}
	}
}

func (h *Hinted) tick() {
	now := time.Now().Unix()
	threshold := h.trended.Trended()

	err := h.db.View(func(txn store.ReadTxn) error {
		for _, hash := range h.cache.Hashes() {
			votes := h.cache.Votes(hash, now)
			if len(votes) == 0 {
				continue
			}
			weight := blocks.ZeroBalance
			for _, v := range votes {
				weight = weight.Add(h.weights.Weight(v.Voter))
			}
			if !clearsPercent(weight, threshold, h.weightPercent) {
				continue
			}

			stored, err := ledger.GetBlock(txn, hash)
			if err != nil {
				if err == ledger.ErrBlockNotFound {
					continue
				}
				return err
			}
			info, err := ledger.GetAccountInfo(txn, stored.Sideband.Account)
			if err != nil {
				return err
			}
			cemented, err := isCemented(txn, info)
			if err != nil {
				return err
			}
			if cemented {
				continue
			}
			if _, err := activate(txn, h.active, info, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		h.logger.Printf("tick failed: %v", err)
	}
}

// clearsPercent reports whether weight is at least trended*percent/100,
// the same cross-multiplied comparison pkg/elections uses for quorum so
// neither side needs to divide (and lose precision) first.
func clearsPercent(weight, trended blocks.Balance, percent int) bool {
	if trended.IsZero() {
		return false
	}
	lhs := new(big.Int).Mul(weight.Big(), big.NewInt(100))
	rhs := new(big.Int).Mul(trended.Big(), big.NewInt(int64(percent)))
	return lhs.Cmp(rhs) >= 0
}
