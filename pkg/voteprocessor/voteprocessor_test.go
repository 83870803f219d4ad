package voteprocessor

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/certen/ledgercore/pkg/blocks"
	"github.com/certen/ledgercore/pkg/crypto"
	"github.com/certen/ledgercore/pkg/elections"
	"github.com/certen/ledgercore/pkg/repweight"
	"github.com/certen/ledgercore/pkg/votecache"
	"github.com/ethereum/go-ethereum/common"
)

type fixedTrended blocks.Balance

func (f fixedTrended) Trended() blocks.Balance { return blocks.Balance(f) }

func newSignedVote(t *testing.T, hashes []common.Hash, timestamp int64) (*blocks.Vote, common.Hash) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	var voter common.Hash
	copy(voter[:], pub)
	v := &blocks.Vote{Voter: voter, Timestamp: timestamp, Hashes: hashes}
	crypto.SignVote(v, priv)
	return v, voter
}

func TestProcessRoutesToActiveElection(t *testing.T) {
	active := elections.NewActive(10, nil)
	root := common.HexToHash("0x01")
	account := common.HexToHash("0xacct")
	blk := &blocks.ChangeBlock{PreviousHash: root, Representative: account}
	active.Insert(root, account, blk, 100)

	weights := repweight.New()
	v, voter := newSignedVote(t, []common.Hash{blk.Hash()}, 200)
	weights.AddWeight(voter, blocks.NewBalanceFromUint64(100))

	cache := votecache.New(16, 40, time.Minute)
	p := New(2, 16, active, cache, weights, fixedTrended(blocks.NewBalanceFromUint64(100)), 67, nil)

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	if !p.Submit(v) {
		t.Fatalf("expected submit to succeed")
	}
	cancel()
	p.Wait()

	if _, ok := active.Get(root); ok {
		t.Fatalf("expected election to be confirmed and removed once quorum was met")
	}
}

func TestProcessRoutesToVoteCacheWhenNoElection(t *testing.T) {
	active := elections.NewActive(10, nil)
	weights := repweight.New()
	cache := votecache.New(16, 40, time.Minute)
	p := New(1, 16, active, cache, weights, fixedTrended(blocks.NewBalanceFromUint64(100)), 67, nil)

	hash := common.HexToHash("0xdeadbeef")
	v, voter := newSignedVote(t, []common.Hash{hash}, 50)
	weights.AddWeight(voter, blocks.NewBalanceFromUint64(10))

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	p.Submit(v)
	deadline := time.Now().Add(2 * time.Second)
	for len(cache.Votes(hash, 50)) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	p.Wait()

	votes := cache.Votes(hash, 50)
	if len(votes) != 1 || votes[0].Voter != voter {
		t.Fatalf("expected vote cached for the unelected hash, got %+v", votes)
	}
}

func TestProcessDropsUnverifiableVote(t *testing.T) {
	active := elections.NewActive(10, nil)
	cache := votecache.New(16, 40, time.Minute)
	p := New(1, 16, active, cache, nil, nil, 67, nil)

	hash := common.HexToHash("0x01")
	v, _ := newSignedVote(t, []common.Hash{hash}, 50)
	v.Hashes = []common.Hash{common.HexToHash("0x02")} // tamper after signing

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	p.Submit(v)
	cancel()
	p.Wait()

	if got := cache.Votes(hash, 50); len(got) != 0 {
		t.Fatalf("expected tampered vote to be dropped, got %+v", got)
	}
}

func TestSubmitDropsWhenQueueFull(t *testing.T) {
	active := elections.NewActive(10, nil)
	cache := votecache.New(16, 40, time.Minute)
	p := New(0, 0, active, cache, nil, nil, 67, nil)

	v, _ := newSignedVote(t, []common.Hash{common.HexToHash("0x01")}, 1)
	if p.Submit(v) {
		t.Fatalf("expected submit to fail against a zero-depth queue with no workers draining it")
	}
	if p.Dropped() != 1 {
		t.Fatalf("Dropped() = %d, want 1", p.Dropped())
	}
}
