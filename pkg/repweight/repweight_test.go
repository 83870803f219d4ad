package repweight

import (
	"testing"

	"github.com/certen/ledgercore/pkg/blocks"
	"github.com/certen/ledgercore/pkg/mutator"
	"github.com/ethereum/go-ethereum/common"
)

var _ mutator.WeightCache = (*Register)(nil)

func TestAddAndSubWeight(t *testing.T) {
	r := New()
	rep := common.HexToHash("0xrep")

	r.AddWeight(rep, blocks.NewBalanceFromUint64(100))
	r.AddWeight(rep, blocks.NewBalanceFromUint64(50))
	if got := r.Weight(rep); got.Cmp(blocks.NewBalanceFromUint64(150)) != 0 {
		t.Fatalf("weight = %s, want 150", got)
	}

	r.SubWeight(rep, blocks.NewBalanceFromUint64(150))
	if got := r.Weight(rep); !got.IsZero() {
		t.Fatalf("weight = %s, want 0", got)
	}
	if r.Len() != 0 {
		t.Fatalf("expected zeroed representative to be dropped, Len() = %d", r.Len())
	}
}

func TestTotalSumsAllRepresentatives(t *testing.T) {
	r := New()
	r.AddWeight(common.HexToHash("0xa"), blocks.NewBalanceFromUint64(10))
	r.AddWeight(common.HexToHash("0xb"), blocks.NewBalanceFromUint64(20))

	if got := r.Total(); got.Cmp(blocks.NewBalanceFromUint64(30)) != 0 {
		t.Fatalf("total = %s, want 30", got)
	}
}

func TestSubWeightOnUnknownRepresentativeIsNoOp(t *testing.T) {
	r := New()
	r.SubWeight(common.HexToHash("0xghost"), blocks.NewBalanceFromUint64(5))
	if r.Len() != 0 {
		t.Fatalf("expected no entry created, Len() = %d", r.Len())
	}
}
