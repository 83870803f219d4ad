package crypto

import (
	"crypto/ed25519"
	"testing"

	"github.com/certen/ledgercore/pkg/blocks"
	"github.com/ethereum/go-ethereum/common"
)

func TestSignAndVerifyVoteRoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	var voter common.Hash
	copy(voter[:], pub)

	v := &blocks.Vote{
		Voter:     voter,
		Timestamp: 12345,
		Hashes:    []common.Hash{common.HexToHash("0x01"), common.HexToHash("0x02")},
	}
	SignVote(v, priv)

	if !VerifyVote(v) {
		t.Fatalf("expected vote signature to verify against its own voter")
	}
}

func TestVerifyVoteRejectsWrongVoter(t *testing.T) {
	_, priv, _ := ed25519.GenerateKey(nil)
	otherPub, _, _ := ed25519.GenerateKey(nil)
	var wrongVoter common.Hash
	copy(wrongVoter[:], otherPub)

	v := &blocks.Vote{Voter: wrongVoter, Timestamp: 1, Hashes: []common.Hash{common.HexToHash("0x01")}}
	SignVote(v, priv)
	v.Voter = wrongVoter

	if VerifyVote(v) {
		t.Fatalf("signature must not verify against an unrelated voter")
	}
}

func TestVerifyVoteRejectsTamperedHashes(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(nil)
	var voter common.Hash
	copy(voter[:], pub)

	v := &blocks.Vote{Voter: voter, Timestamp: 1, Hashes: []common.Hash{common.HexToHash("0x01")}}
	SignVote(v, priv)

	v.Hashes = []common.Hash{common.HexToHash("0x02")}
	if VerifyVote(v) {
		t.Fatalf("signature must not verify after the endorsed hashes change")
	}
}
