package blocks

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
)

// Vote is a single representative's signed endorsement of one or more
// block hashes (a representative may batch votes for several roots it
// currently holds an opinion on into one signed message). Timestamp
// orders a voter's successive votes so a later one can supersede an
// earlier one for the same root without a second round of signing.
type Vote struct {
	Voter     common.Hash
	Timestamp int64
	Hashes    []common.Hash
	Sig       Signature
}

// votePreamble disambiguates a vote's hash preimage from a block's, the
// same purpose the State preamble serves for State blocks.
var votePreamble = blake2bHash([]byte("vote preamble"))

// Hash is the digest actually signed: the voter, the timestamp, and
// every endorsed hash, each contributing to the preimage so a
// single-bit change anywhere invalidates the signature.
func (v *Vote) Hash() common.Hash {
	parts := make([][]byte, 0, 3+len(v.Hashes))
	parts = append(parts, votePreamble[:], v.Voter[:], timestampBytes(v.Timestamp))
	for _, h := range v.Hashes {
		parts = append(parts, h[:])
	}
	return blake2bHash(parts...)
}

func timestampBytes(ts int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(ts))
	return buf
}
