package blocks

import "github.com/ethereum/go-ethereum/common"

// Epoch identifies a protocol-version upgrade an account has adopted.
// Epochs only ever increase for a given account, by exactly one step at
// a time, and each step is recorded as a dedicated State block signed by
// that epoch's designated signer rather than the account itself.
type Epoch uint8

const (
	// EpochInvalid marks an account that has not yet opened a chain, or
	// a link that does not name any known epoch.
	EpochInvalid Epoch = iota
	Epoch0
	Epoch1
	Epoch2
)

// Next returns the epoch one step above e.
func (e Epoch) Next() Epoch {
	return e + 1
}

// epochLinks maps the canonical State.link marker for each epoch
// transition to the epoch it upgrades an account to, and back.
var epochLinks = map[common.Hash]Epoch{
	mustHash("epoch v1 block"): Epoch1,
	mustHash("epoch v2 block"): Epoch2,
}

var epochLinkByEpoch = func() map[Epoch]common.Hash {
	m := make(map[Epoch]common.Hash, len(epochLinks))
	for link, epoch := range epochLinks {
		m[epoch] = link
	}
	return m
}()

// epochSigners maps each epoch to the public key authorized to sign that
// epoch's upgrade blocks. In production these are well-known network
// keys configured at genesis; tests may override via SetEpochSigner.
var epochSigners = map[Epoch]common.Hash{}

func mustHash(seed string) common.Hash {
	return blake2bHash([]byte(seed))
}

// IsEpochLink reports whether link names a canonical epoch marker, and
// if so which epoch it transitions an account to.
func IsEpochLink(link common.Hash) (Epoch, bool) {
	e, ok := epochLinks[link]
	return e, ok
}

// EpochLink returns the canonical link marker for an epoch transition.
func EpochLink(e Epoch) (common.Hash, bool) {
	h, ok := epochLinkByEpoch[e]
	return h, ok
}

// EpochSigner returns the public key authorized to sign transitions into
// epoch e.
func EpochSigner(e Epoch) (common.Hash, bool) {
	h, ok := epochSigners[e]
	return h, ok
}

// SetEpochSigner configures the signer key for an epoch. Called once at
// startup from genesis configuration (or by tests).
func SetEpochSigner(e Epoch, signer common.Hash) {
	epochSigners[e] = signer
}
