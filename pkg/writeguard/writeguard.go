// Package writeguard serializes every write transaction the node
// issues through a single priority queue. The block processor, the
// cementer, and background pruning all need a store.WriteTxn; the spec
// requires exactly one to be open at a time, and requires the
// processor to preempt the cementer, which in turn preempts pruning.
// WriteGuard is the choke point that enforces that ordering for the
// processor and the cementer. The online-weight sampler and the startup
// migrations call store.Store.Update directly; KVStore's own write
// mutex still keeps those to one write transaction at a time.
package writeguard

import (
	"context"
	"log"

	"github.com/certen/ledgercore/pkg/store"
	"github.com/google/uuid"
)

// Priority orders queued write tickets. Lower values run first
// whenever more than one ticket is ready to dispatch.
type Priority int

const (
	PriorityProcessor Priority = iota
	PriorityCementer
	PriorityPruning

	numPriorities = int(PriorityPruning) + 1
)

func (p Priority) String() string {
	switch p {
	case PriorityProcessor:
		return "processor"
	case PriorityCementer:
		return "cementer"
	case PriorityPruning:
		return "pruning"
	default:
		return "unknown"
	}
}

// ticket is one queued write transaction, submitted by Run and drained
// by the dispatch loop in strict priority order. id correlates a
// ticket across the submit log line and the dispatch failure log line,
// the same role a request ID plays in the teacher's codebase.
type ticket struct {
	id   uuid.UUID
	fn   func(store.WriteTxn) error
	done chan error
}

// WriteGuard is the single-writer gate every component that needs a
// write transaction goes through. The zero value is not usable; build
// one with New.
type WriteGuard struct {
	store  store.Store
	queues [numPriorities]chan ticket
	wake   chan struct{}
	logger *log.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// New builds a WriteGuard dispatching write transactions onto db, with
// queueDepth buffered slots per priority level.
func New(db store.Store, queueDepth int) *WriteGuard {
	g := &WriteGuard{
		store:  db,
		wake:   make(chan struct{}, 1),
		logger: log.New(log.Writer(), "[WriteGuard] ", log.LstdFlags),
	}
	for i := range g.queues {
		g.queues[i] = make(chan ticket, queueDepth)
	}
	return g
}

// Start launches the dispatch loop.
func (g *WriteGuard) Start(ctx context.Context) {
	g.stopCh = make(chan struct{})
	g.doneCh = make(chan struct{})
	go g.run(ctx)
}

// Stop halts the dispatch loop once whatever ticket is currently
// executing returns.
func (g *WriteGuard) Stop() {
	close(g.stopCh)
	<-g.doneCh
}

// Run submits fn as a write transaction at the given priority and
// blocks until it has executed. fn runs inside the single
// store.Store.Update call the whole node funnels its writes through —
// it must not call Update itself.
func (g *WriteGuard) Run(priority Priority, fn func(store.WriteTxn) error) error {
	t := ticket{id: uuid.New(), fn: fn, done: make(chan error, 1)}
	select {
	case g.queues[priority] <- t:
	case <-g.doneCh:
		return context.Canceled
	}
	select {
	case g.wake <- struct{}{}:
	default:
	}
	return <-t.done
}

func (g *WriteGuard) run(ctx context.Context) {
	defer close(g.doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case <-g.stopCh:
			return
		case <-g.wake:
		}
		for g.dispatchOne() {
		}
	}
}

// dispatchOne runs the single highest-priority ticket currently
// queued, returning false once every queue is empty.
func (g *WriteGuard) dispatchOne() bool {
	for p := 0; p < numPriorities; p++ {
		select {
		case t := <-g.queues[p]:
			if err := g.store.Update(t.fn); err != nil {
				g.logger.Printf("write transaction %s failed: %v", t.id, err)
				t.done <- err
			} else {
				t.done <- nil
			}
			return true
		default:
		}
	}
	return false
}
