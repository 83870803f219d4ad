package observer

import (
	"testing"
	"time"

	"github.com/certen/ledgercore/pkg/blocks"
	"github.com/ethereum/go-ethereum/common"
)

func TestBlockAddedFanOut(t *testing.T) {
	var bus Bus
	ch1 := make(chan BlockAddedEvent, 1)
	ch2 := make(chan BlockAddedEvent, 1)
	sub1 := bus.SubscribeBlockAdded(ch1)
	sub2 := bus.SubscribeBlockAdded(ch2)
	defer sub1.Unsubscribe()
	defer sub2.Unsubscribe()

	blk := &blocks.ChangeBlock{PreviousHash: common.HexToHash("0x01"), Representative: common.HexToHash("0x02")}
	bus.BlockAdded(blk, false)

	select {
	case ev := <-ch1:
		if ev.Block.Hash() != blk.Hash() {
			t.Fatalf("subscriber 1 got wrong block")
		}
	case <-time.After(time.Second):
		t.Fatalf("subscriber 1 did not receive event")
	}
	select {
	case ev := <-ch2:
		if ev.Block.Hash() != blk.Hash() {
			t.Fatalf("subscriber 2 got wrong block")
		}
	case <-time.After(time.Second):
		t.Fatalf("subscriber 2 did not receive event")
	}
}

func TestBlocksCementedDeliversCount(t *testing.T) {
	var bus Bus
	ch := make(chan BlocksCementedEvent, 1)
	sub := bus.SubscribeBlocksCemented(ch)
	defer sub.Unsubscribe()

	bus.BlocksCemented(42)

	select {
	case ev := <-ch:
		if ev.Count != 42 {
			t.Fatalf("got count %d, want 42", ev.Count)
		}
	case <-time.After(time.Second):
		t.Fatalf("did not receive cemented event")
	}
}
