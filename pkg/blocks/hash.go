package blocks

import (
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/blake2b"
)

// blake2bHash hashes the concatenation of parts with Blake2b-256, the
// algorithm used for both block hashes and vote hashes on the wire.
func blake2bHash(parts ...[]byte) common.Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		// Blake2b-256 with no key never errors; a failure here means the
		// standard library itself is broken.
		panic(err)
	}
	for _, p := range parts {
		h.Write(p)
	}
	var out common.Hash
	h.Sum(out[:0])
	return out
}
