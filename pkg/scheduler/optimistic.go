package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/certen/ledgercore/pkg/elections"
	"github.com/certen/ledgercore/pkg/ledger"
	"github.com/certen/ledgercore/pkg/store"
)

// Optimistic starts an election for an account's head the moment the
// gap between its confirmed height and its head grows past a
// threshold, rather than waiting for a vote to arrive unsolicited: a
// quiet account that has fallen behind still needs to confirm
// eventually, and nothing else will ask for it.
type Optimistic struct {
	db        store.Store
	active    *elections.Active
	threshold uint64
	every     time.Duration
	logger    *log.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewOptimistic builds an optimistic scheduler polling every interval,
// activating any account whose block_count - confirmation_height
// exceeds threshold.
func NewOptimistic(db store.Store, active *elections.Active, threshold uint64, every time.Duration) *Optimistic {
	return &Optimistic{
		db:        db,
		active:    active,
		threshold: threshold,
		every:     every,
		logger:    log.New(log.Writer(), "[OptimisticScheduler] ", log.LstdFlags),
	}
}

// Start launches the polling loop.
func (o *Optimistic) Start(ctx context.Context) {
	o.stopCh = make(chan struct{})
	o.doneCh = make(chan struct{})
	go o.run(ctx)
}

// Stop halts the polling loop.
func (o *Optimistic) Stop() {
	close(o.stopCh)
	<-o.doneCh
}

func (o *Optimistic) run(ctx context.Context) {
	defer close(o.doneCh)
	ticker := time.NewTicker(o.every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stopCh:
			return
		case <-ticker.C:
			o.tick()
		}
	}
}

func (o *Optimistic) tick() {
	now := time.Now().Unix()
	err := o.db.View(func(txn store.ReadTxn) error {
		accounts, err := ledger.ListAccounts(txn)
		if err != nil {
			return err
		}
		for _, info := range accounts {
			confInfo, err := ledger.GetConfirmationHeight(txn, info.Account)
			confirmedHeight := uint64(0)
			if err == nil {
				confirmedHeight = confInfo.Height
			} else if err != ledger.ErrConfirmationHeightNotFound {
				return err
			}

			gap := info.BlockCount - confirmedHeight
			if gap <= o.threshold {
				continue
			}
			if _, err := activate(txn, o.active, info, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		o.logger.Printf("tick failed: %v", err)
	}
}
