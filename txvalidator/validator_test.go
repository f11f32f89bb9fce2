package txvalidator

import (
	"testing"

	"github.com/Stoner19/node/crypto"
	"github.com/Stoner19/node/types"
	"github.com/Stoner19/node/wallets"
)

func fundedWallet(t *testing.T, cache *wallets.Cache, ids *wallets.Ids, key crypto.PublicKey, balance uint64) {
	t.Helper()
	id, _ := ids.FindOrInsert(key)
	cache.Initer().Set(id, types.WalletData{Balance: types.NewAmount(balance)})
}

func TestDoubleSpendEviction(t *testing.T) {
	cache := wallets.NewCache()
	ids := wallets.NewIds(crypto.PublicKey{}, crypto.PublicKey{})

	var source, target crypto.PublicKey
	source[0] = 1
	target[0] = 2
	fundedWallet(t, cache, ids, source, 10)

	tx1 := types.Transaction{Source: source, Target: target, Amount: types.NewAmount(8)}
	tx2 := types.Transaction{Source: source, Target: target, Amount: types.NewAmount(8)}
	trxs := []types.Transaction{tx1, tx2}

	v := New(cache, ids, DefaultConfig)
	v.Reset(len(trxs))

	mask := make([]byte, len(trxs))
	for i, tx := range trxs {
		if v.ValidateTransaction(tx, i) {
			mask[i] = 1
		}
	}
	v.ValidateByGraph(mask, trxs)

	if mask[0] != 1 {
		t.Fatalf("expected the first (earlier) transaction to survive, mask=%v", mask)
	}
	if mask[1] != 0 {
		t.Fatalf("expected the second (later) transaction to be evicted, mask=%v", mask)
	}
	if v.CntRemovedTrxs() != 1 {
		t.Fatalf("CntRemovedTrxs() = %d, want 1", v.CntRemovedTrxs())
	}
}

func TestSingleTransactionWithinBalanceSurvives(t *testing.T) {
	cache := wallets.NewCache()
	ids := wallets.NewIds(crypto.PublicKey{}, crypto.PublicKey{})

	var source, target crypto.PublicKey
	source[0] = 3
	target[0] = 4
	fundedWallet(t, cache, ids, source, 100)

	tx := types.Transaction{Source: source, Target: target, Amount: types.NewAmount(10)}
	trxs := []types.Transaction{tx}

	v := New(cache, ids, DefaultConfig)
	v.Reset(len(trxs))
	mask := make([]byte, 1)
	if v.ValidateTransaction(tx, 0) {
		mask[0] = 1
	}
	v.ValidateByGraph(mask, trxs)

	if mask[0] != 1 {
		t.Fatalf("expected solvent transaction to survive, mask=%v", mask)
	}
	if v.CntRemovedTrxs() != 0 {
		t.Fatalf("CntRemovedTrxs() = %d, want 0", v.CntRemovedTrxs())
	}
}
