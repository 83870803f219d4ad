// Package votecache holds the most recent votes seen for blocks that
// have no active election yet (or no longer have one): a vote that
// arrives before its election exists, or after it has already
// finished, is not simply discarded, since the next election opened
// for that hash should start with whatever voting weight already
// spoke for it.
package votecache

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/lru"
)

// Vote is a single representative's vote for hash, as recorded by the
// cache (the signature itself is verified by pkg/voteprocessor before
// it ever reaches here).
type Vote struct {
	Voter     common.Hash
	Hash      common.Hash
	Timestamp int64
}

// perHash bounds how many distinct voters are remembered for a single
// hash: the K most recent, oldest evicted first.
type perHash struct {
	votes map[common.Hash]Vote // voter -> vote
}

// Cache is a bounded, age-evicting store of recent votes, keyed by the
// block hash each vote names. MaxPerHash caps how many distinct voters
// are kept per hash (spec default: 40); MaxAge bounds how long a vote
// is considered current.
type Cache struct {
	entries    *lru.Cache[common.Hash, *perHash]
	maxPerHash int
	maxAge     time.Duration
}

// New builds a vote cache holding up to capacity distinct hashes, each
// remembering up to maxPerHash voters no older than maxAge.
func New(capacity, maxPerHash int, maxAge time.Duration) *Cache {
	return &Cache{
		entries:    lru.NewCache[common.Hash, *perHash](capacity),
		maxPerHash: maxPerHash,
		maxAge:     maxAge,
	}
}

// Record stores a vote, evicting the oldest voter for hash if the
// per-hash bound is exceeded. A newer vote from a voter who already
// has one for this hash replaces it, matching the weighted-tally
// upgrade rule in pkg/elections (only a strictly later timestamp wins).
func (c *Cache) Record(v Vote) {
	ph, ok := c.entries.Get(v.Hash)
	if !ok {
		ph = &perHash{votes: make(map[common.Hash]Vote, c.maxPerHash)}
		c.entries.Add(v.Hash, ph)
	}
	if existing, has := ph.votes[v.Voter]; has && existing.Timestamp >= v.Timestamp {
		return
	}
	ph.votes[v.Voter] = v
	if len(ph.votes) > c.maxPerHash {
		c.evictOldest(ph, v.Timestamp)
	}
}

func (c *Cache) evictOldest(ph *perHash, now int64) {
	var oldestVoter common.Hash
	oldestTime := now + 1
	for voter, vote := range ph.votes {
		if vote.Timestamp < oldestTime {
			oldestTime = vote.Timestamp
			oldestVoter = voter
		}
	}
	delete(ph.votes, oldestVoter)
}

// Votes returns every vote currently cached for hash, excluding any
// older than maxAge relative to now.
func (c *Cache) Votes(hash common.Hash, now int64) []Vote {
	ph, ok := c.entries.Get(hash)
	if !ok {
		return nil
	}
	out := make([]Vote, 0, len(ph.votes))
	for _, v := range ph.votes {
		if c.maxAge > 0 && now-v.Timestamp > int64(c.maxAge/time.Second) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Len reports how many distinct hashes currently have cached votes.
func (c *Cache) Len() int { return c.entries.Len() }

// Hashes returns every hash currently holding cached votes, the
// enumeration pkg/scheduler's hinted scheduler needs to find
// candidates accumulating weight with no active election yet.
func (c *Cache) Hashes() []common.Hash { return c.entries.Keys() }
