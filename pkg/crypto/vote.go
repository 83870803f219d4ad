package crypto

import (
	"crypto/ed25519"

	"github.com/certen/ledgercore/pkg/blocks"
)

// VerifyVote reports whether v's signature is a valid Ed25519 signature
// by v.Voter over v.Hash(). It does not check whether the voter is a
// known representative or what weight it carries; that is the vote
// processor's job once the signature itself is known good.
func VerifyVote(v *blocks.Vote) bool {
	hash := v.Hash()
	return ed25519.Verify(ed25519.PublicKey(v.Voter[:]), hash[:], v.Sig[:])
}

// SignVote signs v's hash with priv, writing the signature into v.Sig.
// Used by tests and by any future representative-voting component; the
// ledger itself only ever verifies.
func SignVote(v *blocks.Vote, priv ed25519.PrivateKey) {
	hash := v.Hash()
	sig := ed25519.Sign(priv, hash[:])
	copy(v.Sig[:], sig)
}
