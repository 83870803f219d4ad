package elections

import (
	"testing"

	"github.com/certen/ledgercore/pkg/blocks"
	"github.com/ethereum/go-ethereum/common"
)

func TestVoteConfirmsAtQuorum(t *testing.T) {
	root := common.HexToHash("0xroot")
	account := common.HexToHash("0xacct")
	blk := &blocks.ChangeBlock{PreviousHash: root, Representative: account}
	e := New(root, account, blk, 1000)

	trended := blocks.NewBalanceFromUint64(100)
	confirmed, winner := e.Vote(common.HexToHash("0xrep1"), blk.Hash(), 1001, blocks.NewBalanceFromUint64(70), trended, 67)
	if !confirmed {
		t.Fatalf("expected 70/100 to confirm at 67%% quorum")
	}
	if winner != blk.Hash() {
		t.Fatalf("winner = %s, want %s", winner, blk.Hash())
	}
	if e.Status() != Confirmed {
		t.Fatalf("status = %v, want Confirmed", e.Status())
	}
}

func TestVoteDoesNotConfirmBelowQuorum(t *testing.T) {
	root := common.HexToHash("0xroot")
	account := common.HexToHash("0xacct")
	blk := &blocks.ChangeBlock{PreviousHash: root, Representative: account}
	e := New(root, account, blk, 1000)

	trended := blocks.NewBalanceFromUint64(100)
	confirmed, _ := e.Vote(common.HexToHash("0xrep1"), blk.Hash(), 1001, blocks.NewBalanceFromUint64(50), trended, 67)
	if confirmed {
		t.Fatalf("expected 50/100 to not confirm at 67%% quorum")
	}
}

func TestOlderVoteFromSameVoterIsIgnored(t *testing.T) {
	root := common.HexToHash("0xroot")
	account := common.HexToHash("0xacct")
	blkA := &blocks.ChangeBlock{PreviousHash: root, Representative: account}
	blkB := &blocks.ChangeBlock{PreviousHash: root, Representative: common.HexToHash("0xother")}
	e := New(root, account, blkA, 1000)
	e.AddCandidate(blkB)

	voter := common.HexToHash("0xrep1")
	e.Vote(voter, blkA.Hash(), 2000, blocks.NewBalanceFromUint64(10), blocks.NewBalanceFromUint64(100), 67)
	// Older timestamp than the vote already recorded: must be ignored.
	confirmed, _ := e.Vote(voter, blkB.Hash(), 1500, blocks.NewBalanceFromUint64(10), blocks.NewBalanceFromUint64(100), 67)
	if confirmed {
		t.Fatalf("stale vote should not have altered the tally")
	}
	if _, ok := e.tally[blkB.Hash()]; ok {
		t.Fatalf("stale vote should not appear in the tally at all")
	}
}

func TestNewerVoteFromSameVoterMovesWeight(t *testing.T) {
	root := common.HexToHash("0xroot")
	account := common.HexToHash("0xacct")
	blkA := &blocks.ChangeBlock{PreviousHash: root, Representative: account}
	blkB := &blocks.ChangeBlock{PreviousHash: root, Representative: common.HexToHash("0xother")}
	e := New(root, account, blkA, 1000)
	e.AddCandidate(blkB)

	voter := common.HexToHash("0xrep1")
	// 70 of a trended 200 is short of quorum, so the first vote leaves
	// the election open for the voter to switch.
	e.Vote(voter, blkA.Hash(), 1500, blocks.NewBalanceFromUint64(70), blocks.NewBalanceFromUint64(200), 67)
	confirmed, winner := e.Vote(voter, blkB.Hash(), 2000, blocks.NewBalanceFromUint64(70), blocks.NewBalanceFromUint64(100), 67)
	if !confirmed || winner != blkB.Hash() {
		t.Fatalf("expected vote switch to confirm blkB, got confirmed=%v winner=%s", confirmed, winner)
	}
	if _, ok := e.tally[blkA.Hash()]; ok {
		t.Fatalf("expected blkA's tally to be fully withdrawn")
	}
}

func TestExpireMarksUnconfirmedElectionsExpired(t *testing.T) {
	root := common.HexToHash("0xroot")
	account := common.HexToHash("0xacct")
	blk := &blocks.ChangeBlock{PreviousHash: root, Representative: account}
	e := New(root, account, blk, 1000)

	if e.Expire(1005, 60) {
		t.Fatalf("should not expire before the expiry window elapses")
	}
	if !e.Expire(1070, 60) {
		t.Fatalf("expected expiry after the window elapses")
	}
	if e.Status() != ExpiredUnconfirmed {
		t.Fatalf("status = %v, want ExpiredUnconfirmed", e.Status())
	}
}

func TestActiveInsertRefusesPastLimit(t *testing.T) {
	a := NewActive(1, nil)
	blk1 := &blocks.ChangeBlock{PreviousHash: common.HexToHash("0x01"), Representative: common.HexToHash("0xa")}
	blk2 := &blocks.ChangeBlock{PreviousHash: common.HexToHash("0x02"), Representative: common.HexToHash("0xb")}

	if _, ok := a.Insert(common.HexToHash("0x01"), common.HexToHash("0xacct1"), blk1, 100); !ok {
		t.Fatalf("first insert should succeed")
	}
	if _, ok := a.Insert(common.HexToHash("0x02"), common.HexToHash("0xacct2"), blk2, 100); ok {
		t.Fatalf("second insert should be refused past the limit")
	}
}

func TestActiveRootForTracksAndClearsCandidates(t *testing.T) {
	a := NewActive(10, nil)
	root := common.HexToHash("0x01")
	account := common.HexToHash("0xacct")
	blk := &blocks.ChangeBlock{PreviousHash: root, Representative: account}
	a.Insert(root, account, blk, 100)

	if got, ok := a.RootFor(blk.Hash()); !ok || got != root {
		t.Fatalf("RootFor = (%s, %v), want (%s, true)", got, ok, root)
	}

	confirmed, _ := a.Vote(root, common.HexToHash("0xrep"), blk.Hash(), 101, blocks.NewBalanceFromUint64(100), blocks.NewBalanceFromUint64(100), 67)
	if !confirmed {
		t.Fatalf("expected confirmation")
	}
	if _, ok := a.RootFor(blk.Hash()); ok {
		t.Fatalf("expected candidate hash index cleared once the election is removed")
	}
}

func TestActiveVoteConfirmsAndRemoves(t *testing.T) {
	a := NewActive(10, nil)
	root := common.HexToHash("0x01")
	account := common.HexToHash("0xacct")
	blk := &blocks.ChangeBlock{PreviousHash: root, Representative: account}
	a.Insert(root, account, blk, 100)

	confirmed, _ := a.Vote(root, common.HexToHash("0xrep"), blk.Hash(), 101, blocks.NewBalanceFromUint64(100), blocks.NewBalanceFromUint64(100), 67)
	if !confirmed {
		t.Fatalf("expected confirmation")
	}
	if _, ok := a.Get(root); ok {
		t.Fatalf("expected election removed from active set after confirmation")
	}
}
