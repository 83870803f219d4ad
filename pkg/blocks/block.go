// Package blocks implements the block-lattice data model: the five
// on-wire block shapes, their canonical hashing, their fixed byte
// layouts, and the sideband metadata the ledger attaches at insertion
// time.
package blocks

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Type tags the five on-wire block shapes.
type Type uint8

const (
	TypeInvalid Type = iota
	TypeSend
	TypeReceive
	TypeOpen
	TypeChange
	TypeState
)

func (t Type) String() string {
	switch t {
	case TypeSend:
		return "send"
	case TypeReceive:
		return "receive"
	case TypeOpen:
		return "open"
	case TypeChange:
		return "change"
	case TypeState:
		return "state"
	default:
		return "invalid"
	}
}

// Signature is an Ed25519 signature, 64 bytes, over a block's canonical
// hash.
type Signature [64]byte

// Block is the common interface every block shape satisfies. It carries
// only what can be derived from the block's own wire bytes — nothing
// from the ledger.
type Block interface {
	// Type reports which of the five shapes this block is.
	Type() Type

	// Hash is the Blake2b-256 digest of the block's hashable prefix
	// (everything except Signature and Work).
	Hash() common.Hash

	// Previous is the predecessor's hash on the same account chain, or
	// the zero hash for an opening block.
	Previous() common.Hash

	// Root is the key used to index elections and compute the PoW
	// threshold: Previous for non-opening blocks, Account for openers.
	Root() common.Hash

	// Signature returns the block's signature bytes.
	Signature() Signature

	// Work returns the block's proof-of-work nonce.
	Work() uint64

	// SetSignature and SetWork are used by block builders/signers; they
	// do not affect Hash (signature and work are excluded from it).
	SetSignature(Signature)
	SetWork(uint64)
}

var zeroHash common.Hash

// SendBlock sends amount from the account chain it extends to
// destination, leaving the chain's balance at Balance.
type SendBlock struct {
	PreviousHash common.Hash
	Destination  common.Hash
	NewBalance   Balance
	Sig          Signature
	WorkNonce    uint64
}

func (b *SendBlock) Type() Type { return TypeSend }
func (b *SendBlock) Hash() common.Hash {
	return blake2bHash(b.PreviousHash[:], b.Destination[:], b.NewBalance[:])
}
func (b *SendBlock) Previous() common.Hash { return b.PreviousHash }
func (b *SendBlock) Root() common.Hash     { return b.PreviousHash }
func (b *SendBlock) Signature() Signature  { return b.Sig }
func (b *SendBlock) Work() uint64          { return b.WorkNonce }
func (b *SendBlock) SetSignature(s Signature) { b.Sig = s }
func (b *SendBlock) SetWork(w uint64)         { b.WorkNonce = w }

// ReceiveBlock claims a pending Send identified by Source.
type ReceiveBlock struct {
	PreviousHash common.Hash
	Source       common.Hash
	Sig          Signature
	WorkNonce    uint64
}

func (b *ReceiveBlock) Type() Type { return TypeReceive }
func (b *ReceiveBlock) Hash() common.Hash {
	return blake2bHash(b.PreviousHash[:], b.Source[:])
}
func (b *ReceiveBlock) Previous() common.Hash { return b.PreviousHash }
func (b *ReceiveBlock) Root() common.Hash     { return b.PreviousHash }
func (b *ReceiveBlock) Signature() Signature  { return b.Sig }
func (b *ReceiveBlock) Work() uint64          { return b.WorkNonce }
func (b *ReceiveBlock) SetSignature(s Signature) { b.Sig = s }
func (b *ReceiveBlock) SetWork(w uint64)         { b.WorkNonce = w }

// OpenBlock opens a new account chain by claiming the pending Send at
// Source, and appoints Representative.
type OpenBlock struct {
	Source         common.Hash
	Representative common.Hash
	Account        common.Hash
	Sig            Signature
	WorkNonce      uint64
}

func (b *OpenBlock) Type() Type { return TypeOpen }
func (b *OpenBlock) Hash() common.Hash {
	return blake2bHash(b.Source[:], b.Representative[:], b.Account[:])
}
func (b *OpenBlock) Previous() common.Hash { return zeroHash }
func (b *OpenBlock) Root() common.Hash     { return b.Account }
func (b *OpenBlock) Signature() Signature  { return b.Sig }
func (b *OpenBlock) Work() uint64          { return b.WorkNonce }
func (b *OpenBlock) SetSignature(s Signature) { b.Sig = s }
func (b *OpenBlock) SetWork(w uint64)         { b.WorkNonce = w }

// ChangeBlock changes the chain's representative without moving funds.
type ChangeBlock struct {
	PreviousHash   common.Hash
	Representative common.Hash
	Sig            Signature
	WorkNonce      uint64
}

func (b *ChangeBlock) Type() Type { return TypeChange }
func (b *ChangeBlock) Hash() common.Hash {
	return blake2bHash(b.PreviousHash[:], b.Representative[:])
}
func (b *ChangeBlock) Previous() common.Hash { return b.PreviousHash }
func (b *ChangeBlock) Root() common.Hash     { return b.PreviousHash }
func (b *ChangeBlock) Signature() Signature  { return b.Sig }
func (b *ChangeBlock) Work() uint64          { return b.WorkNonce }
func (b *ChangeBlock) SetSignature(s Signature) { b.Sig = s }
func (b *ChangeBlock) SetWork(w uint64)         { b.WorkNonce = w }

// StateBlock is the universal block shape: it can send, receive, open,
// change representative, or perform an epoch upgrade, distinguished by
// how Link and NewBalance relate to the chain's previous state.
type StateBlock struct {
	Account        common.Hash
	PreviousHash   common.Hash
	Representative common.Hash
	NewBalance     Balance
	Link           common.Hash
	Sig            Signature
	WorkNonce      uint64
}

func (b *StateBlock) Type() Type { return TypeState }
func (b *StateBlock) Hash() common.Hash {
	// State's hashable prefix is prefixed with a fixed 32-byte "state
	// block" preamble so that State hashes can never collide with a
	// legacy block's hash for the same byte content.
	return blake2bHash(
		statePreamble[:],
		b.Account[:],
		b.PreviousHash[:],
		b.Representative[:],
		b.NewBalance[:],
		b.Link[:],
	)
}
func (b *StateBlock) Previous() common.Hash { return b.PreviousHash }
func (b *StateBlock) Root() common.Hash {
	if b.PreviousHash != zeroHash {
		return b.PreviousHash
	}
	return b.Account
}
func (b *StateBlock) Signature() Signature  { return b.Sig }
func (b *StateBlock) Work() uint64          { return b.WorkNonce }
func (b *StateBlock) SetSignature(s Signature) { b.Sig = s }
func (b *StateBlock) SetWork(w uint64)         { b.WorkNonce = w }

// statePreamble is blake2bHash("state block preamble") and is hashed in
// ahead of every State block's fields, per the wire format's requirement
// that the block type be unambiguous from its hash preimage alone.
var statePreamble = blake2bHash([]byte("state block preamble"))

// IsEpochTransition reports whether this State block, evaluated against
// the account's previous recorded state, proposes an epoch upgrade: an
// unchanged balance and representative with Link naming a canonical
// epoch marker.
func (b *StateBlock) IsEpochTransition(prevBalance Balance, prevRepresentative common.Hash) (Epoch, bool) {
	epoch, ok := IsEpochLink(b.Link)
	if !ok {
		return EpochInvalid, false
	}
	if b.NewBalance != prevBalance {
		return EpochInvalid, false
	}
	if b.Representative != prevRepresentative {
		return EpochInvalid, false
	}
	return epoch, true
}

// WorkRootFor returns the PoW root for block b given whether it is
// opening an account (legacy Open, or a State with zero Previous).
func WorkRootFor(b Block) common.Hash {
	return b.Root()
}

// String gives a short debug representation of a block.
func String(b Block) string {
	return fmt.Sprintf("%s{hash=%s previous=%s root=%s}", b.Type(), b.Hash(), b.Previous(), b.Root())
}

// uint64Bytes encodes a work nonce as 8 bytes in the given byte order,
// used by the wire codec (little-endian for legacy blocks, big-endian
// for State per the wire format in spec §6).
func uint64Bytes(v uint64, bigEndian bool) []byte {
	buf := make([]byte, 8)
	if bigEndian {
		binary.BigEndian.PutUint64(buf, v)
	} else {
		binary.LittleEndian.PutUint64(buf, v)
	}
	return buf
}
