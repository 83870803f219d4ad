package scheduler

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/certen/ledgercore/pkg/elections"
	"github.com/certen/ledgercore/pkg/ledger"
	"github.com/certen/ledgercore/pkg/store"
)

// Priority activates account frontiers in balance-weighted order
// whenever the active set has spare capacity: the accounts with the
// most weight behind them get first claim on a limited number of
// concurrent elections.
type Priority struct {
	db     store.Store
	active *elections.Active
	limit  int
	every  time.Duration
	logger *log.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewPriority builds a priority scheduler polling every interval,
// never admitting past the active set's own limit.
func NewPriority(db store.Store, active *elections.Active, limit int, every time.Duration) *Priority {
	return &Priority{
		db:     db,
		active: active,
		limit:  limit,
		every:  every,
		logger: log.New(log.Writer(), "[PriorityScheduler] ", log.LstdFlags),
	}
}

// Start launches the polling loop.
func (p *Priority) Start(ctx context.Context) {
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	go p.run(ctx)
}

// Stop halts the polling loop.
func (p *Priority) Stop() {
	close(p.stopCh)
	<-p.doneCh
}

func (p *Priority) run(ctx context.Context) {
	defer close(p.doneCh)
	ticker := time.NewTicker(p.every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.tick()
		}
	}
}

func (p *Priority) tick() {
	spare := p.limit - p.active.Len()
	if spare <= 0 {
		return
	}

	now := time.Now().Unix()
	err := p.db.View(func(txn store.ReadTxn) error {
		accounts, err := ledger.ListAccounts(txn)
		if err != nil {
			return err
		}
		candidates := make([]ledger.AccountInfo, 0, len(accounts))
		for _, info := range accounts {
			cemented, err := isCemented(txn, info)
			if err != nil {
				return err
			}
			if cemented {
				continue
			}
			candidates = append(candidates, info)
		}
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].Balance.Cmp(candidates[j].Balance) > 0
		})
		for _, info := range candidates {
			if spare <= 0 {
				break
			}
			started, err := activate(txn, p.active, info, now)
			if err != nil {
				return err
			}
			if started {
				spare--
			}
		}
		return nil
	})
	if err != nil {
		p.logger.Printf("tick failed: %v", err)
	}
}
