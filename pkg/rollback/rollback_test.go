package rollback

import (
	"testing"

	"github.com/certen/ledgercore/pkg/blocks"
	"github.com/certen/ledgercore/pkg/ledger"
	"github.com/certen/ledgercore/pkg/mutator"
	"github.com/certen/ledgercore/pkg/store"
	"github.com/certen/ledgercore/pkg/validator"
	dbm "github.com/cometbft/cometbft-db"
	"github.com/ethereum/go-ethereum/common"
)

type stubWeights struct {
	added, removed map[common.Hash]blocks.Balance
}

func newStubWeights() *stubWeights {
	return &stubWeights{added: map[common.Hash]blocks.Balance{}, removed: map[common.Hash]blocks.Balance{}}
}
func (s *stubWeights) AddWeight(rep common.Hash, amount blocks.Balance) { s.added[rep] = amount }
func (s *stubWeights) SubWeight(rep common.Hash, amount blocks.Balance) { s.removed[rep] = amount }

var _ mutator.WeightCache = (*stubWeights)(nil)

func TestPlanRejectsBlockAtOrBelowConfirmationHeight(t *testing.T) {
	kv := store.NewKVStore(dbm.NewMemDB())
	account := common.HexToHash("0xacct")
	open := &blocks.OpenBlock{Source: common.HexToHash("0xsrc"), Representative: account, Account: account}

	_ = kv.Update(func(txn store.WriteTxn) error {
		if err := ledger.PutBlock(txn, open, ledger.Sideband{Height: 1, Account: account, Balance: blocks.NewBalanceFromUint64(10)}); err != nil {
			return err
		}
		if err := ledger.PutAccountInfo(txn, ledger.AccountInfo{
			Account: account, HeadBlock: open.Hash(), OpenBlock: open.Hash(), BlockCount: 1,
			Balance: blocks.NewBalanceFromUint64(10),
		}); err != nil {
			return err
		}
		return ledger.PutConfirmationHeight(txn, account, ledger.ConfirmationHeightInfo{Height: 1, Frontier: open.Hash()})
	})

	_ = kv.View(func(txn store.ReadTxn) error {
		_, rej := Plan(txn, account)
		if rej == nil || rej.Kind != validator.InvalidRollback {
			t.Fatalf("expected InvalidRollback, got %+v", rej)
		}
		return nil
	})
}

func TestExecuteUndoesOpenBlockRestoringPending(t *testing.T) {
	kv := store.NewKVStore(dbm.NewMemDB())
	account := common.HexToHash("0xacct")
	srcHash := common.HexToHash("0xsend1")
	open := &blocks.OpenBlock{Source: srcHash, Representative: account, Account: account}

	_ = kv.Update(func(txn store.WriteTxn) error {
		if err := ledger.PutBlock(txn, open, ledger.Sideband{
			Height: 1, Account: account, Balance: blocks.NewBalanceFromUint64(10), Representative: account,
			Details: ledger.BlockDetails{IsReceive: true},
		}); err != nil {
			return err
		}
		if err := ledger.PutAccountInfo(txn, ledger.AccountInfo{
			Account: account, HeadBlock: open.Hash(), OpenBlock: open.Hash(), BlockCount: 1,
			Balance: blocks.NewBalanceFromUint64(10), Representative: account,
		}); err != nil {
			return err
		}
		return ledger.PutReceivedBy(txn, srcHash, open.Hash())
	})

	weights := newStubWeights()
	_ = kv.Update(func(txn store.WriteTxn) error {
		result, rej := Plan(txn, account)
		if rej != nil {
			t.Fatalf("unexpected rejection: %v", rej)
		}
		if result.Instructions == nil {
			t.Fatalf("expected instructions, got dependent hash %s", result.DependentHash)
		}
		return Execute(txn, result.Instructions, weights, nil)
	})

	_ = kv.View(func(txn store.ReadTxn) error {
		if _, err := ledger.GetAccountInfo(txn, account); err != ledger.ErrAccountNotFound {
			t.Fatalf("expected account to be deleted, got err=%v", err)
		}
		p, err := ledger.GetPending(txn, account, srcHash)
		if err != nil {
			t.Fatalf("expected pending entry restored: %v", err)
		}
		if p.Amount.Cmp(blocks.NewBalanceFromUint64(10)) != 0 {
			t.Fatalf("restored pending amount = %v, want 10", p.Amount)
		}
		if _, claimed, _ := ledger.GetReceivedBy(txn, srcHash); claimed {
			t.Fatalf("expected received-by record cleared")
		}
		return nil
	})

	if weights.removed[account].Cmp(blocks.NewBalanceFromUint64(10)) != 0 {
		t.Fatalf("expected weight cache to subtract 10 from %s", account)
	}
}

func TestExecuteUndoesNonOpenBlockRestoresPredecessorHead(t *testing.T) {
	kv := store.NewKVStore(dbm.NewMemDB())
	account := common.HexToHash("0xacct")
	open := &blocks.OpenBlock{Source: common.HexToHash("0xsrc"), Representative: account, Account: account}
	change := &blocks.ChangeBlock{PreviousHash: open.Hash(), Representative: common.HexToHash("0xnewrep")}

	_ = kv.Update(func(txn store.WriteTxn) error {
		if err := ledger.PutBlock(txn, open, ledger.Sideband{
			Height: 1, Account: account, Balance: blocks.NewBalanceFromUint64(10), Representative: account,
		}); err != nil {
			return err
		}
		if err := ledger.PutBlock(txn, change, ledger.Sideband{
			Height: 2, Account: account, Balance: blocks.NewBalanceFromUint64(10), Representative: common.HexToHash("0xnewrep"),
		}); err != nil {
			return err
		}
		return ledger.PutAccountInfo(txn, ledger.AccountInfo{
			Account: account, HeadBlock: change.Hash(), OpenBlock: open.Hash(), BlockCount: 2,
			Balance: blocks.NewBalanceFromUint64(10), Representative: common.HexToHash("0xnewrep"),
		})
	})

	_ = kv.Update(func(txn store.WriteTxn) error {
		result, rej := Plan(txn, account)
		if rej != nil {
			t.Fatalf("unexpected rejection: %v", rej)
		}
		return Execute(txn, result.Instructions, nil, nil)
	})

	_ = kv.View(func(txn store.ReadTxn) error {
		info, err := ledger.GetAccountInfo(txn, account)
		if err != nil {
			t.Fatalf("get account info: %v", err)
		}
		if info.HeadBlock != open.Hash() {
			t.Fatalf("head = %s, want open block %s", info.HeadBlock, open.Hash())
		}
		if info.Representative != account {
			t.Fatalf("representative not restored: got %s", info.Representative)
		}
		stored, err := ledger.GetBlock(txn, open.Hash())
		if err != nil {
			t.Fatalf("get open block: %v", err)
		}
		if stored.Sideband.Successor != (common.Hash{}) {
			t.Fatalf("expected predecessor successor cleared, got %s", stored.Sideband.Successor)
		}
		if _, err := ledger.GetBlock(txn, change.Hash()); err != ledger.ErrBlockNotFound {
			t.Fatalf("expected rolled-back block to be deleted")
		}
		return nil
	})
}

func TestCascadeRollsBackDependentReceiveFirst(t *testing.T) {
	kv := store.NewKVStore(dbm.NewMemDB())
	accountA := common.HexToHash("0xA")
	accountB := common.HexToHash("0xB")

	openA := &blocks.OpenBlock{Source: common.HexToHash("0xgenesis"), Representative: accountA, Account: accountA}
	sendA := &blocks.SendBlock{PreviousHash: openA.Hash(), Destination: accountB, NewBalance: blocks.NewBalanceFromUint64(4)}
	openB := &blocks.OpenBlock{Source: sendA.Hash(), Representative: accountB, Account: accountB}

	_ = kv.Update(func(txn store.WriteTxn) error {
		if err := ledger.PutBlock(txn, openA, ledger.Sideband{
			Height: 1, Account: accountA, Balance: blocks.NewBalanceFromUint64(10), Representative: accountA,
			Successor: sendA.Hash(),
		}); err != nil {
			return err
		}
		if err := ledger.PutBlock(txn, sendA, ledger.Sideband{
			Height: 2, Account: accountA, Balance: blocks.NewBalanceFromUint64(4), Representative: accountA,
			Details: ledger.BlockDetails{IsSend: true},
		}); err != nil {
			return err
		}
		if err := ledger.PutAccountInfo(txn, ledger.AccountInfo{
			Account: accountA, HeadBlock: sendA.Hash(), OpenBlock: openA.Hash(), BlockCount: 2,
			Balance: blocks.NewBalanceFromUint64(4), Representative: accountA,
		}); err != nil {
			return err
		}

		if err := ledger.PutBlock(txn, openB, ledger.Sideband{
			Height: 1, Account: accountB, Balance: blocks.NewBalanceFromUint64(6), Representative: accountB,
			Details: ledger.BlockDetails{IsReceive: true},
		}); err != nil {
			return err
		}
		if err := ledger.PutAccountInfo(txn, ledger.AccountInfo{
			Account: accountB, HeadBlock: openB.Hash(), OpenBlock: openB.Hash(), BlockCount: 1,
			Balance: blocks.NewBalanceFromUint64(6), Representative: accountB,
		}); err != nil {
			return err
		}
		return ledger.PutReceivedBy(txn, sendA.Hash(), openB.Hash())
	})

	var count int
	var rej *validator.Rejection
	_ = kv.Update(func(txn store.WriteTxn) error {
		count, rej = Cascade(txn, accountA, openA.Hash(), nil, nil)
		return nil
	})
	if rej != nil {
		t.Fatalf("unexpected rejection: %v", rej)
	}
	if count != 2 {
		t.Fatalf("expected 2 blocks undone (B's open + A's send), got %d", count)
	}

	_ = kv.View(func(txn store.ReadTxn) error {
		if _, err := ledger.GetAccountInfo(txn, accountB); err != ledger.ErrAccountNotFound {
			t.Fatalf("expected account B to be deleted, got err=%v", err)
		}
		infoA, err := ledger.GetAccountInfo(txn, accountA)
		if err != nil {
			t.Fatalf("get account A: %v", err)
		}
		if infoA.HeadBlock != openA.Hash() {
			t.Fatalf("account A head = %s, want open block %s", infoA.HeadBlock, openA.Hash())
		}
		if _, err := ledger.GetPending(txn, accountB, sendA.Hash()); err != ledger.ErrPendingNotFound {
			t.Fatalf("expected no leftover pending entry, err=%v", err)
		}
		if _, claimed, _ := ledger.GetReceivedBy(txn, sendA.Hash()); claimed {
			t.Fatalf("expected received-by cleared")
		}
		return nil
	})
}
