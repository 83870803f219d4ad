package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/certen/ledgercore/pkg/elections"
	"github.com/certen/ledgercore/pkg/ledger"
	"github.com/certen/ledgercore/pkg/store"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// manualRequest is one external activation request, carrying a
// correlation ID so a caller's log line and the scheduler's own
// success/failure line can be tied together.
type manualRequest struct {
	id      uuid.UUID
	account common.Hash
}

// Manual activates elections on external request (an RPC layer, out of
// this module's scope, calling Request), bypassing every threshold the
// other three schedulers apply.
type Manual struct {
	db     store.Store
	active *elections.Active
	logger *log.Logger

	requests chan manualRequest
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewManual builds a manual scheduler with a bounded request queue.
func NewManual(db store.Store, active *elections.Active, queueDepth int) *Manual {
	return &Manual{
		db:       db,
		active:   active,
		logger:   log.New(log.Writer(), "[ManualScheduler] ", log.LstdFlags),
		requests: make(chan manualRequest, queueDepth),
	}
}

// Request asks the scheduler to activate account's current head,
// unconditionally. It returns the request's correlation ID and true, or
// a zero ID and false without blocking if the request queue is full.
func (m *Manual) Request(account common.Hash) (uuid.UUID, bool) {
	req := manualRequest{id: uuid.New(), account: account}
	select {
	case m.requests <- req:
		return req.id, true
	default:
		return uuid.UUID{}, false
	}
}

// Start launches the request-draining loop.
func (m *Manual) Start(ctx context.Context) {
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	go m.run(ctx)
}

// Stop halts the request-draining loop.
func (m *Manual) Stop() {
	close(m.stopCh)
	<-m.doneCh
}

func (m *Manual) run(ctx context.Context) {
	defer close(m.doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case req := <-m.requests:
			m.activate(req)
		}
	}
}

func (m *Manual) activate(req manualRequest) {
	now := time.Now().Unix()
	err := m.db.View(func(txn store.ReadTxn) error {
		info, err := ledger.GetAccountInfo(txn, req.account)
		if err != nil {
			return err
		}
		_, err = activate(txn, m.active, info, now)
		return err
	})
	if err != nil {
		m.logger.Printf("request %s: activate %s failed: %v", req.id, req.account, err)
	}
}
