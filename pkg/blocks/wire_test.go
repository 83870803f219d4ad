package blocks

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestWireRoundTrip(t *testing.T) {
	prev := common.HexToHash("0x01")
	dest := common.HexToHash("0x02")
	rep := common.HexToHash("0x03")
	acct := common.HexToHash("0x04")
	link := common.HexToHash("0x05")
	bal := NewBalanceFromUint64(42)

	cases := []struct {
		name     string
		block    Block
		wireSize int
	}{
		{"send", &SendBlock{PreviousHash: prev, Destination: dest, NewBalance: bal, WorkNonce: 7}, SendWireSize},
		{"receive", &ReceiveBlock{PreviousHash: prev, Source: dest, WorkNonce: 7}, ReceiveWireSize},
		{"open", &OpenBlock{Source: dest, Representative: rep, Account: acct, WorkNonce: 7}, OpenWireSize},
		{"change", &ChangeBlock{PreviousHash: prev, Representative: rep, WorkNonce: 7}, ChangeWireSize},
		{"state", &StateBlock{Account: acct, PreviousHash: prev, Representative: rep, NewBalance: bal, Link: link, WorkNonce: 7}, StateWireSize},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			encoded, err := Encode(c.block)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			if len(encoded) != c.wireSize {
				t.Fatalf("encoded length = %d, want %d", len(encoded), c.wireSize)
			}
			decoded, err := Decode(c.block.Type(), encoded)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if decoded.Hash() != c.block.Hash() {
				t.Fatalf("round-tripped block hash mismatch: got %s want %s", decoded.Hash(), c.block.Hash())
			}
			reencoded, err := Encode(decoded)
			if err != nil {
				t.Fatalf("re-encode: %v", err)
			}
			if !bytes.Equal(reencoded, encoded) {
				t.Fatalf("re-encoded bytes do not match original")
			}
		})
	}
}

func TestDecodeRejectsWrongLength(t *testing.T) {
	cases := []struct {
		name string
		typ  Type
		size int
	}{
		{"send too short", TypeSend, SendWireSize - 1},
		{"receive too long", TypeReceive, ReceiveWireSize + 1},
		{"open wrong", TypeOpen, OpenWireSize - 10},
		{"change wrong", TypeChange, ChangeWireSize + 10},
		{"state wrong", TypeState, StateWireSize - 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := Decode(c.typ, make([]byte, c.size)); err == nil {
				t.Fatalf("expected error decoding %s with bad length %d", c.name, c.size)
			}
		})
	}
}

func TestStateWorkEncodedBigEndian(t *testing.T) {
	b := &StateBlock{
		Account:        common.HexToHash("0x04"),
		PreviousHash:   common.HexToHash("0x01"),
		Representative: common.HexToHash("0x03"),
		NewBalance:     NewBalanceFromUint64(1),
		WorkNonce:      0x0102030405060708,
	}
	encoded, err := Encode(b)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	workBytes := encoded[len(encoded)-8:]
	want := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	if !bytes.Equal(workBytes, want) {
		t.Fatalf("state work nonce not big-endian: got % x want % x", workBytes, want)
	}
}

func TestLegacyWorkEncodedLittleEndian(t *testing.T) {
	b := &ChangeBlock{
		PreviousHash:   common.HexToHash("0x01"),
		Representative: common.HexToHash("0x03"),
		WorkNonce:      0x0102030405060708,
	}
	encoded, err := Encode(b)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	workBytes := encoded[len(encoded)-8:]
	want := []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}
	if !bytes.Equal(workBytes, want) {
		t.Fatalf("legacy work nonce not little-endian: got % x want % x", workBytes, want)
	}
}
