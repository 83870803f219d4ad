package blocks

import (
	"encoding/binary"
	"fmt"
)

// Fixed wire sizes per spec §6.
const (
	SendWireSize    = 32 + 32 + 16 + 64 + 8
	ReceiveWireSize = 32 + 32 + 64 + 8
	OpenWireSize    = 32 + 32 + 32 + 64 + 8
	ChangeWireSize  = 32 + 32 + 64 + 8
	StateWireSize   = 32 + 32 + 32 + 16 + 32 + 64 + 8
)

// Encode serializes b to its fixed-width on-wire byte layout.
func Encode(b Block) ([]byte, error) {
	switch v := b.(type) {
	case *SendBlock:
		buf := make([]byte, 0, SendWireSize)
		buf = append(buf, v.PreviousHash[:]...)
		buf = append(buf, v.Destination[:]...)
		buf = append(buf, v.NewBalance[:]...)
		buf = append(buf, v.Sig[:]...)
		buf = append(buf, uint64Bytes(v.WorkNonce, false)...)
		return buf, nil
	case *ReceiveBlock:
		buf := make([]byte, 0, ReceiveWireSize)
		buf = append(buf, v.PreviousHash[:]...)
		buf = append(buf, v.Source[:]...)
		buf = append(buf, v.Sig[:]...)
		buf = append(buf, uint64Bytes(v.WorkNonce, false)...)
		return buf, nil
	case *OpenBlock:
		buf := make([]byte, 0, OpenWireSize)
		buf = append(buf, v.Source[:]...)
		buf = append(buf, v.Representative[:]...)
		buf = append(buf, v.Account[:]...)
		buf = append(buf, v.Sig[:]...)
		buf = append(buf, uint64Bytes(v.WorkNonce, false)...)
		return buf, nil
	case *ChangeBlock:
		buf := make([]byte, 0, ChangeWireSize)
		buf = append(buf, v.PreviousHash[:]...)
		buf = append(buf, v.Representative[:]...)
		buf = append(buf, v.Sig[:]...)
		buf = append(buf, uint64Bytes(v.WorkNonce, false)...)
		return buf, nil
	case *StateBlock:
		buf := make([]byte, 0, StateWireSize)
		buf = append(buf, v.Account[:]...)
		buf = append(buf, v.PreviousHash[:]...)
		buf = append(buf, v.Representative[:]...)
		buf = append(buf, v.NewBalance[:]...)
		buf = append(buf, v.Link[:]...)
		buf = append(buf, v.Sig[:]...)
		buf = append(buf, uint64Bytes(v.WorkNonce, true)...) // State work is big-endian
		return buf, nil
	default:
		return nil, fmt.Errorf("blocks: unknown block implementation %T", b)
	}
}

// Decode parses a fixed-width on-wire byte layout into the block shape
// indicated by t.
func Decode(t Type, data []byte) (Block, error) {
	switch t {
	case TypeSend:
		if len(data) != SendWireSize {
			return nil, fmt.Errorf("blocks: send block wire size %d, want %d", len(data), SendWireSize)
		}
		b := &SendBlock{}
		off := 0
		off = copyHash(&b.PreviousHash, data, off)
		off = copyHash(&b.Destination, data, off)
		copy(b.NewBalance[:], data[off:off+16])
		off += 16
		off = copySig(&b.Sig, data, off)
		b.WorkNonce = binary.LittleEndian.Uint64(data[off : off+8])
		return b, nil
	case TypeReceive:
		if len(data) != ReceiveWireSize {
			return nil, fmt.Errorf("blocks: receive block wire size %d, want %d", len(data), ReceiveWireSize)
		}
		b := &ReceiveBlock{}
		off := 0
		off = copyHash(&b.PreviousHash, data, off)
		off = copyHash(&b.Source, data, off)
		off = copySig(&b.Sig, data, off)
		b.WorkNonce = binary.LittleEndian.Uint64(data[off : off+8])
		return b, nil
	case TypeOpen:
		if len(data) != OpenWireSize {
			return nil, fmt.Errorf("blocks: open block wire size %d, want %d", len(data), OpenWireSize)
		}
		b := &OpenBlock{}
		off := 0
		off = copyHash(&b.Source, data, off)
		off = copyHash(&b.Representative, data, off)
		off = copyHash(&b.Account, data, off)
		off = copySig(&b.Sig, data, off)
		b.WorkNonce = binary.LittleEndian.Uint64(data[off : off+8])
		return b, nil
	case TypeChange:
		if len(data) != ChangeWireSize {
			return nil, fmt.Errorf("blocks: change block wire size %d, want %d", len(data), ChangeWireSize)
		}
		b := &ChangeBlock{}
		off := 0
		off = copyHash(&b.PreviousHash, data, off)
		off = copyHash(&b.Representative, data, off)
		off = copySig(&b.Sig, data, off)
		b.WorkNonce = binary.LittleEndian.Uint64(data[off : off+8])
		return b, nil
	case TypeState:
		if len(data) != StateWireSize {
			return nil, fmt.Errorf("blocks: state block wire size %d, want %d", len(data), StateWireSize)
		}
		b := &StateBlock{}
		off := 0
		off = copyHash(&b.Account, data, off)
		off = copyHash(&b.PreviousHash, data, off)
		off = copyHash(&b.Representative, data, off)
		copy(b.NewBalance[:], data[off:off+16])
		off += 16
		off = copyHash(&b.Link, data, off)
		off = copySig(&b.Sig, data, off)
		b.WorkNonce = binary.BigEndian.Uint64(data[off : off+8])
		return b, nil
	default:
		return nil, fmt.Errorf("blocks: unknown block type %v", t)
	}
}

func copyHash(dst *[32]byte, data []byte, off int) int {
	copy(dst[:], data[off:off+32])
	return off + 32
}

func copySig(dst *Signature, data []byte, off int) int {
	copy(dst[:], data[off:off+64])
	return off + 64
}
