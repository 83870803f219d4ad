package votecache

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func TestRecordAndVotesRoundTrip(t *testing.T) {
	c := New(16, 40, time.Minute)
	hash := common.HexToHash("0x01")
	voter := common.HexToHash("0xaa")

	c.Record(Vote{Voter: voter, Hash: hash, Timestamp: 100})
	votes := c.Votes(hash, 100)
	if len(votes) != 1 || votes[0].Voter != voter {
		t.Fatalf("expected one vote from %s, got %+v", voter, votes)
	}
}

func TestRecordReplacesOlderVoteFromSameVoter(t *testing.T) {
	c := New(16, 40, time.Minute)
	hash := common.HexToHash("0x01")
	voter := common.HexToHash("0xaa")

	c.Record(Vote{Voter: voter, Hash: hash, Timestamp: 100})
	c.Record(Vote{Voter: voter, Hash: hash, Timestamp: 110})
	votes := c.Votes(hash, 110)
	if len(votes) != 1 || votes[0].Timestamp != 110 {
		t.Fatalf("expected the voter's vote at 100 to be superseded by the one at 110, got %+v", votes)
	}
}

func TestPerHashBoundEvictsOldestVoter(t *testing.T) {
	c := New(16, 2, time.Hour)
	hash := common.HexToHash("0x01")

	c.Record(Vote{Voter: common.HexToHash("0xaa"), Hash: hash, Timestamp: 100})
	c.Record(Vote{Voter: common.HexToHash("0xbb"), Hash: hash, Timestamp: 200})
	c.Record(Vote{Voter: common.HexToHash("0xcc"), Hash: hash, Timestamp: 300})

	votes := c.Votes(hash, 300)
	if len(votes) != 2 {
		t.Fatalf("expected exactly 2 voters retained, got %d", len(votes))
	}
	for _, v := range votes {
		if v.Voter == common.HexToHash("0xaa") {
			t.Fatalf("expected oldest voter to be evicted")
		}
	}
}

func TestVotesExcludesStaleEntries(t *testing.T) {
	c := New(16, 40, 10*time.Second)
	hash := common.HexToHash("0x01")
	c.Record(Vote{Voter: common.HexToHash("0xaa"), Hash: hash, Timestamp: 100})

	if got := c.Votes(hash, 150); len(got) != 0 {
		t.Fatalf("expected stale vote excluded, got %+v", got)
	}
}
