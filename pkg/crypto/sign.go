// Package crypto implements the two cryptographic primitives the ledger
// depends on but does not itself define: Ed25519 block signatures over
// a Blake2b-256 digest, and the proof-of-work verification function
// (not the PoW generation/search policy, which is out of scope).
package crypto

import (
	"crypto/ed25519"

	"github.com/certen/ledgercore/pkg/blocks"
	"github.com/ethereum/go-ethereum/common"
)

// VerifyBlockSignature reports whether blk's signature is a valid
// Ed25519 signature by signer over blk.Hash(). The block's own account
// field is not consulted here: callers (the validator) decide which
// account's key should have signed a given block — for most shapes
// that is the chain's own account, but epoch transitions are signed by
// a designated epoch signer instead.
func VerifyBlockSignature(blk blocks.Block, signer common.Hash) bool {
	hash := blk.Hash()
	sig := blk.Signature()
	return ed25519.Verify(ed25519.PublicKey(signer[:]), hash[:], sig[:])
}

// SignBlock signs blk's hash with priv, writing the signature into blk
// via SetSignature. Used by tests and by any future wallet/signing
// component; the ledger itself only ever verifies.
func SignBlock(blk blocks.Block, priv ed25519.PrivateKey) {
	hash := blk.Hash()
	sig := ed25519.Sign(priv, hash[:])
	var s blocks.Signature
	copy(s[:], sig)
	blk.SetSignature(s)
}
