package writeguard

import (
	"context"
	"testing"
	"time"

	"github.com/certen/ledgercore/pkg/store"
	dbm "github.com/cometbft/cometbft-db"
)

func newTestGuard() *WriteGuard {
	return New(store.NewKVStore(dbm.NewMemDB()), 16)
}

func TestRunAppliesWriteAndReturnsResult(t *testing.T) {
	g := newTestGuard()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g.Start(ctx)
	defer g.Stop()

	err := g.Run(PriorityProcessor, func(txn store.WriteTxn) error {
		return txn.Set(store.TableAccounts, []byte("k"), []byte("v"))
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}

func TestHigherPriorityDispatchesFirst(t *testing.T) {
	g := newTestGuard()
	// Hold the dispatcher's attention with its goroutine not yet started,
	// queue both priorities, then start and observe processor-first order.
	var order []string
	orderCh := make(chan string, 2)

	g.queues[PriorityCementer] <- ticket{fn: func(store.WriteTxn) error {
		orderCh <- "cementer"
		return nil
	}, done: make(chan error, 1)}
	g.queues[PriorityProcessor] <- ticket{fn: func(store.WriteTxn) error {
		orderCh <- "processor"
		return nil
	}, done: make(chan error, 1)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g.Start(ctx)
	defer g.Stop()
	select {
	case g.wake <- struct{}{}:
	default:
	}

	for i := 0; i < 2; i++ {
		select {
		case v := <-orderCh:
			order = append(order, v)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for dispatch")
		}
	}
	if order[0] != "processor" || order[1] != "cementer" {
		t.Fatalf("dispatch order = %v, want [processor cementer]", order)
	}
}
