package crypto

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// WorkThreshold is a minimum acceptable proof-of-work difficulty value.
// Lower thresholds are easier to satisfy.
type WorkThreshold uint64

// The two difficulty classes the ledger checks work against: receiving
// funds (claiming a pending Send, or an epoch transition) is cheaper to
// validate than any block that changes what the chain can spend, so the
// network can absorb receive floods without starving senders.
const (
	ThresholdSendOrChange WorkThreshold = 0xfffffff800000000
	ThresholdReceiveOrEpoch WorkThreshold = 0xfffffe0000000000
)

// ThresholdFor selects the applicable difficulty class for a block,
// given whether it is receive-shaped (Receive, Open, a receiving State
// block, or an epoch transition) as determined by the caller.
func ThresholdFor(isReceiveShaped bool) WorkThreshold {
	if isReceiveShaped {
		return ThresholdReceiveOrEpoch
	}
	return ThresholdSendOrChange
}

// Difficulty computes the proof-of-work difficulty value for a given
// work nonce against root: blake2b(work_nonce || root) truncated to an
// 8-byte digest and read back as a little-endian integer. A nonce is
// valid against a threshold iff Difficulty(...) >= threshold.
func Difficulty(root [32]byte, work uint64) uint64 {
	h, err := blake2b.New(8, nil)
	if err != nil {
		panic("crypto: blake2b-64 init: " + err.Error())
	}
	var nonce [8]byte
	binary.LittleEndian.PutUint64(nonce[:], work)
	h.Write(nonce[:])
	h.Write(root[:])
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum)
}

// VerifyWork reports whether work is a valid proof-of-work nonce for
// root at the given threshold.
func VerifyWork(root [32]byte, work uint64, threshold WorkThreshold) bool {
	return Difficulty(root, work) >= uint64(threshold)
}
