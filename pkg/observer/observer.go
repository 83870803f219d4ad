// Package observer is the ledger's pub/sub bus: every component that
// causes a ledger-visible event publishes to it, and anything that
// cares (schedulers, metrics, the archive mirror) subscribes. It is
// built on go-ethereum's event.Feed/Subscription, the same
// fan-out-to-many-typed-channels primitive go-ethereum itself uses for
// chain-head and log subscriptions.
package observer

import (
	"github.com/certen/ledgercore/pkg/blocks"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
)

// BlockAddedEvent fires once per successful insertion.
type BlockAddedEvent struct {
	Block   blocks.Block
	IsEpoch bool
}

// BlockRolledBackEvent fires once per block undone by the rollback
// executor.
type BlockRolledBackEvent struct {
	Hash    common.Hash
	Account common.Hash
}

// BlocksCementedEvent fires once per cementer batch.
type BlocksCementedEvent struct {
	Count int
}

// BlockCementedEvent fires once per block within a cementer batch, so
// subscribers that need the individual block (the archive mirror, in
// particular) don't have to re-walk the ledger to find out which
// blocks a BlocksCementedEvent's count refers to.
type BlockCementedEvent struct {
	Hash    common.Hash
	Account common.Hash
	Height  uint64
	Balance blocks.Balance
	Block   blocks.Block
}

// ElectionConfirmedEvent fires when an election reaches quorum.
type ElectionConfirmedEvent struct {
	Root    common.Hash
	Winner  common.Hash
	Account common.Hash
}

// VoteProcessedEvent fires once per vote the vote processor dispatches,
// whether it landed in an election or the vote cache.
type VoteProcessedEvent struct {
	Voter common.Hash
	Hash  common.Hash
}

// Bus fans each event type out to however many subscribers care about
// it. The zero value is ready to use.
type Bus struct {
	blockAdded        event.Feed
	blockRolledBack   event.Feed
	blocksCemented    event.Feed
	blockCemented     event.Feed
	electionConfirmed event.Feed
	voteProcessed     event.Feed
}

func (b *Bus) BlockAdded(blk blocks.Block, isEpoch bool) {
	b.blockAdded.Send(BlockAddedEvent{Block: blk, IsEpoch: isEpoch})
}

func (b *Bus) SubscribeBlockAdded(ch chan<- BlockAddedEvent) event.Subscription {
	return b.blockAdded.Subscribe(ch)
}

func (b *Bus) BlockRolledBack(hash, account common.Hash) {
	b.blockRolledBack.Send(BlockRolledBackEvent{Hash: hash, Account: account})
}

func (b *Bus) SubscribeBlockRolledBack(ch chan<- BlockRolledBackEvent) event.Subscription {
	return b.blockRolledBack.Subscribe(ch)
}

func (b *Bus) BlocksCemented(count int) {
	b.blocksCemented.Send(BlocksCementedEvent{Count: count})
}

func (b *Bus) SubscribeBlocksCemented(ch chan<- BlocksCementedEvent) event.Subscription {
	return b.blocksCemented.Subscribe(ch)
}

func (b *Bus) BlockCemented(hash, account common.Hash, height uint64, balance blocks.Balance, blk blocks.Block) {
	b.blockCemented.Send(BlockCementedEvent{Hash: hash, Account: account, Height: height, Balance: balance, Block: blk})
}

func (b *Bus) SubscribeBlockCemented(ch chan<- BlockCementedEvent) event.Subscription {
	return b.blockCemented.Subscribe(ch)
}

func (b *Bus) ElectionConfirmed(root, winner, account common.Hash) {
	b.electionConfirmed.Send(ElectionConfirmedEvent{Root: root, Winner: winner, Account: account})
}

func (b *Bus) SubscribeElectionConfirmed(ch chan<- ElectionConfirmedEvent) event.Subscription {
	return b.electionConfirmed.Subscribe(ch)
}

func (b *Bus) VoteProcessed(voter, hash common.Hash) {
	b.voteProcessed.Send(VoteProcessedEvent{Voter: voter, Hash: hash})
}

func (b *Bus) SubscribeVoteProcessed(ch chan<- VoteProcessedEvent) event.Subscription {
	return b.voteProcessed.Subscribe(ch)
}
