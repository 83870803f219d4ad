package blocks

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestEpochLinkRoundTrip(t *testing.T) {
	link, ok := EpochLink(Epoch1)
	if !ok {
		t.Fatalf("expected a canonical link for Epoch1")
	}
	e, ok := IsEpochLink(link)
	if !ok || e != Epoch1 {
		t.Fatalf("IsEpochLink(%s) = (%v, %v), want (Epoch1, true)", link, e, ok)
	}
}

func TestUnknownLinkIsNotAnEpochMarker(t *testing.T) {
	if _, ok := IsEpochLink(common.HexToHash("0xdeadbeef")); ok {
		t.Fatalf("arbitrary link incorrectly recognized as an epoch marker")
	}
}

func TestEpochNextStepsByOne(t *testing.T) {
	if Epoch0.Next() != Epoch1 {
		t.Fatalf("Epoch0.Next() = %v, want Epoch1", Epoch0.Next())
	}
	if Epoch1.Next() != Epoch2 {
		t.Fatalf("Epoch1.Next() = %v, want Epoch2", Epoch1.Next())
	}
}

func TestEpochSignerConfiguredSeparately(t *testing.T) {
	if _, ok := EpochSigner(Epoch2); ok {
		t.Fatalf("Epoch2 signer should be unset before SetEpochSigner is called")
	}
	signer := common.HexToHash("0x42")
	SetEpochSigner(Epoch2, signer)
	got, ok := EpochSigner(Epoch2)
	if !ok || got != signer {
		t.Fatalf("EpochSigner(Epoch2) = (%s, %v), want (%s, true)", got, ok, signer)
	}
}
