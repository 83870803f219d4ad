package blocks

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestStateBlockRoot(t *testing.T) {
	acct := common.HexToHash("0x01")
	opening := &StateBlock{Account: acct}
	if got := opening.Root(); got != acct {
		t.Fatalf("opening state root = %s, want account %s", got, acct)
	}

	prev := common.HexToHash("0x02")
	continuing := &StateBlock{Account: acct, PreviousHash: prev}
	if got := continuing.Root(); got != prev {
		t.Fatalf("continuing state root = %s, want previous %s", got, prev)
	}
}

func TestOpenBlockHasNoPrevious(t *testing.T) {
	o := &OpenBlock{Account: common.HexToHash("0x01")}
	if o.Previous() != (common.Hash{}) {
		t.Fatalf("open block previous must be zero, got %s", o.Previous())
	}
	if o.Root() != o.Account {
		t.Fatalf("open block root must equal account")
	}
}

func TestBlockHashesDifferByType(t *testing.T) {
	prev := common.HexToHash("0xaa")
	dest := common.HexToHash("0xbb")
	bal := NewBalanceFromUint64(100)

	send := &SendBlock{PreviousHash: prev, Destination: dest, NewBalance: bal}
	change := &ChangeBlock{PreviousHash: prev, Representative: dest}

	if send.Hash() == change.Hash() {
		t.Fatalf("send and change blocks must not hash identically even with overlapping fields")
	}
}

func TestStatePreambleSeparatesStateFromLegacyHash(t *testing.T) {
	acct := common.HexToHash("0x01")
	prev := common.HexToHash("0x02")
	rep := common.HexToHash("0x03")
	bal := NewBalanceFromUint64(5)

	st := &StateBlock{Account: acct, PreviousHash: prev, Representative: rep, NewBalance: bal}
	ch := &ChangeBlock{PreviousHash: prev, Representative: rep}

	if st.Hash() == ch.Hash() {
		t.Fatalf("state block hash must not collide with a change block's hash")
	}
}

func TestIsEpochTransitionRequiresUnchangedBalanceAndRep(t *testing.T) {
	rep := common.HexToHash("0x09")
	bal := NewBalanceFromUint64(7)
	link, _ := EpochLink(Epoch1)

	upgrade := &StateBlock{Representative: rep, NewBalance: bal, Link: link}
	if epoch, ok := upgrade.IsEpochTransition(bal, rep); !ok || epoch != Epoch1 {
		t.Fatalf("expected a valid Epoch1 transition, got (%v, %v)", epoch, ok)
	}

	movedFunds := &StateBlock{Representative: rep, NewBalance: NewBalanceFromUint64(8), Link: link}
	if _, ok := movedFunds.IsEpochTransition(bal, rep); ok {
		t.Fatalf("a balance change must disqualify an epoch transition")
	}

	changedRep := &StateBlock{Representative: common.HexToHash("0x0a"), NewBalance: bal, Link: link}
	if _, ok := changedRep.IsEpochTransition(bal, rep); ok {
		t.Fatalf("a representative change must disqualify an epoch transition")
	}

	notAnEpochLink := &StateBlock{Representative: rep, NewBalance: bal, Link: common.HexToHash("0xff")}
	if _, ok := notAnEpochLink.IsEpochTransition(bal, rep); ok {
		t.Fatalf("a non-epoch link must not be reported as a transition")
	}
}

func TestSignatureAndWorkExcludedFromHash(t *testing.T) {
	b := &SendBlock{
		PreviousHash: common.HexToHash("0x01"),
		Destination:  common.HexToHash("0x02"),
		NewBalance:   NewBalanceFromUint64(1),
	}
	h1 := b.Hash()
	b.SetSignature(Signature{0xff})
	b.SetWork(12345)
	h2 := b.Hash()
	if h1 != h2 {
		t.Fatalf("signature/work must not affect block hash: %s != %s", h1, h2)
	}
}
