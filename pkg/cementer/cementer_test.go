package cementer

import (
	"context"
	"testing"
	"time"

	"github.com/certen/ledgercore/pkg/blocks"
	"github.com/certen/ledgercore/pkg/config"
	"github.com/certen/ledgercore/pkg/ledger"
	"github.com/certen/ledgercore/pkg/observer"
	"github.com/certen/ledgercore/pkg/store"
	"github.com/certen/ledgercore/pkg/writeguard"
	dbm "github.com/cometbft/cometbft-db"
	"github.com/ethereum/go-ethereum/common"
)

func testConfig() *config.Config {
	return &config.Config{
		CementerBatchBudget:   250 * time.Millisecond,
		CementerBatchFloor:    16384,
		CementerShrinkPercent: 10,
		CementerGrowPercent:   10,
	}
}

func newHarness(t *testing.T) (*writeguard.WriteGuard, store.Store) {
	t.Helper()
	kv := store.NewKVStore(dbm.NewMemDB())
	guard := writeguard.New(kv, 16)
	ctx, cancel := context.WithCancel(context.Background())
	guard.Start(ctx)
	t.Cleanup(func() {
		cancel()
		guard.Stop()
	})
	return guard, kv
}

// TestCementChainCascadesAcrossReceiveSourceWithoutTouchingLaterBlocks
// builds the lattice from the spec's cement-cascade scenario: account A
// opens, sends S1, then sends S2 (extending S1); account B opens by
// directly receiving S1 as R. Cementing R must advance A's
// confirmation height to S1 (not S2) and B's to R, cementing exactly 2
// blocks in total.
func TestCementChainCascadesAcrossReceiveSourceWithoutTouchingLaterBlocks(t *testing.T) {
	guard, kv := newHarness(t)

	accountA := common.HexToHash("0xa")
	accountB := common.HexToHash("0xb")

	open := &blocks.OpenBlock{Source: common.HexToHash("0xgenesis"), Representative: accountA, Account: accountA}
	s1 := &blocks.SendBlock{PreviousHash: open.Hash(), Destination: accountB, NewBalance: blocks.NewBalanceFromUint64(80)}
	s2 := &blocks.SendBlock{PreviousHash: s1.Hash(), Destination: accountB, NewBalance: blocks.NewBalanceFromUint64(60)}
	r := &blocks.OpenBlock{Source: s1.Hash(), Representative: accountB, Account: accountB}

	err := kv.Update(func(txn store.WriteTxn) error {
		if err := ledger.PutBlock(txn, open, ledger.Sideband{Height: 1, Account: accountA, Balance: blocks.NewBalanceFromUint64(100)}); err != nil {
			return err
		}
		// Account A's open is already cemented before this scenario
		// begins; only S1 is new.
		if err := ledger.PutConfirmationHeight(txn, accountA, ledger.ConfirmationHeightInfo{Height: 1, Frontier: open.Hash()}); err != nil {
			return err
		}
		if err := ledger.PutBlock(txn, s1, ledger.Sideband{Height: 2, Account: accountA, Balance: blocks.NewBalanceFromUint64(80), Details: ledger.BlockDetails{IsSend: true}}); err != nil {
			return err
		}
		if err := ledger.PutBlock(txn, s2, ledger.Sideband{Height: 3, Account: accountA, Balance: blocks.NewBalanceFromUint64(60), Details: ledger.BlockDetails{IsSend: true}}); err != nil {
			return err
		}
		return ledger.PutBlock(txn, r, ledger.Sideband{Height: 1, Account: accountB, Balance: blocks.NewBalanceFromUint64(20), Details: ledger.BlockDetails{IsReceive: true}})
	})
	if err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	var bus observer.Bus
	totalCh := make(chan int, 1)
	sub := bus.SubscribeBlocksCemented(make(chan observer.BlocksCementedEvent, 1))
	defer sub.Unsubscribe()
	ch := make(chan observer.BlocksCementedEvent, 1)
	sub2 := bus.SubscribeBlocksCemented(ch)
	defer sub2.Unsubscribe()
	go func() {
		ev := <-ch
		totalCh <- ev.Count
	}()

	c := New(guard, &bus, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	defer c.Stop()

	c.Enqueue(r.Hash())

	select {
	case total := <-totalCh:
		if total != 2 {
			t.Fatalf("blocks_cemented = %d, want 2", total)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for cementing")
	}

	_ = kv.View(func(txn store.ReadTxn) error {
		infoA, err := ledger.GetConfirmationHeight(txn, accountA)
		if err != nil {
			t.Fatalf("account A confirmation height: %v", err)
		}
		if infoA.Height != 2 || infoA.Frontier != s1.Hash() {
			t.Fatalf("account A cemented to height %d frontier %s, want height 2 frontier %s (S1, not S2)", infoA.Height, infoA.Frontier, s1.Hash())
		}
		infoB, err := ledger.GetConfirmationHeight(txn, accountB)
		if err != nil {
			t.Fatalf("account B confirmation height: %v", err)
		}
		if infoB.Height != 1 || infoB.Frontier != r.Hash() {
			t.Fatalf("account B cemented to height %d frontier %s, want height 1 frontier %s (R)", infoB.Height, infoB.Frontier, r.Hash())
		}
		return nil
	})
}
