package blockchain

import (
	"path/filepath"
	"testing"

	"github.com/Stoner19/node/crypto"
	"github.com/Stoner19/node/persist"
	"github.com/Stoner19/node/types"
)

func newTestChain(t *testing.T) *BlockChain {
	t.Helper()
	dir := t.TempDir()
	log, err := persist.NewFileLogger(persist.BlockchainInfo{Name: "test"}, filepath.Join(dir, "log.txt"), false)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	t.Cleanup(func() { log.Close() })

	_, genesis := crypto.GenerateKeyPair()
	_, start := crypto.GenerateKeyPair()
	bc, err := New(filepath.Join(dir, "chain.db"), log, genesis, start)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { bc.Close() })
	return bc
}

func signedTransfer(t *testing.T, sourceSK crypto.SecretKey, source, target crypto.PublicKey, amount uint64) types.Transaction {
	t.Helper()
	tx := types.Transaction{Source: source, Target: target, Amount: types.NewAmount(amount)}
	tx.Signature = crypto.SignHash(tx.SigningHash(), sourceSK)
	return tx
}

// TestLinearChainAppend covers a single-node chain recording three pools
// in sequence, each correctly extending the previous tip.
func TestLinearChainAppend(t *testing.T) {
	bc := newTestChain(t)

	sk1, pk1 := crypto.GenerateKeyPair()
	_, pk2 := crypto.GenerateKeyPair()

	for i := 0; i < 3; i++ {
		tx := signedTransfer(t, sk1, pk1, pk2, 1)
		pool := bc.CreateBlock([]types.Transaction{tx}, pk1, sk1, 0)
		ok, err := bc.StoreBlock(pool, false)
		if err != nil {
			t.Fatalf("StoreBlock #%d: %v", i, err)
		}
		if !ok {
			t.Fatalf("StoreBlock #%d: expected pool to be recorded", i)
		}
	}

	if got := bc.GetSize(); got != 3 {
		t.Fatalf("GetSize() = %d, want 3", got)
	}
	if seq := bc.GetLastWrittenSequence(); seq != 2 {
		t.Fatalf("GetLastWrittenSequence() = %d, want 2", seq)
	}

	tip, err := bc.LoadBlock(2)
	if err != nil {
		t.Fatalf("LoadBlock: %v", err)
	}
	if tip.Hash() != bc.GetLastHash() {
		t.Fatalf("tip hash mismatch")
	}
}

// TestOutOfOrderRecord covers a pool arriving before its predecessor: it
// must be cached rather than rejected, and applied automatically once
// the gap closes.
func TestOutOfOrderRecord(t *testing.T) {
	bc := newTestChain(t)

	sk1, pk1 := crypto.GenerateKeyPair()
	_, pk2 := crypto.GenerateKeyPair()

	tx0 := signedTransfer(t, sk1, pk1, pk2, 1)
	pool0 := bc.CreateBlock([]types.Transaction{tx0}, pk1, sk1, 0)

	tx1 := signedTransfer(t, sk1, pk1, pk2, 1)
	pool1 := types.Pool{
		Sequence:     1,
		PreviousHash: pool0.Hash(),
		Transactions: []types.Transaction{tx1},
		Writer:       pk1,
	}.Sign(sk1)

	ok, err := bc.StoreBlock(pool1, true)
	if err != nil {
		t.Fatalf("StoreBlock(pool1) out-of-order: %v", err)
	}
	if ok {
		t.Fatalf("StoreBlock(pool1) should not record immediately; predecessor missing")
	}
	if bc.GetSize() != 0 {
		t.Fatalf("GetSize() = %d, want 0 before predecessor arrives", bc.GetSize())
	}

	ok, err = bc.StoreBlock(pool0, true)
	if err != nil {
		t.Fatalf("StoreBlock(pool0): %v", err)
	}
	if !ok {
		t.Fatalf("StoreBlock(pool0) should record")
	}

	if got := bc.GetSize(); got != 2 {
		t.Fatalf("GetSize() after gap closes = %d, want 2 (cached successor should auto-apply)", got)
	}
}

// TestStoreBlockRejectsBadPreviousHash covers a pool whose declared
// previous hash does not match the current tip. The genesis pool
// (sequence 0) is exempt from this check by construction, so the test
// must first establish a real tip to diverge from.
func TestStoreBlockRejectsBadPreviousHash(t *testing.T) {
	bc := newTestChain(t)
	sk1, pk1 := crypto.GenerateKeyPair()
	_, pk2 := crypto.GenerateKeyPair()

	genesisTx := signedTransfer(t, sk1, pk1, pk2, 1)
	genesisPool := bc.CreateBlock([]types.Transaction{genesisTx}, pk1, sk1, 0)
	if _, err := bc.StoreBlock(genesisPool, false); err != nil {
		t.Fatalf("StoreBlock(genesis): %v", err)
	}

	tx := signedTransfer(t, sk1, pk1, pk2, 1)
	pool := types.Pool{
		Sequence:     1,
		PreviousHash: types.PoolHash{0xFF},
		Transactions: []types.Transaction{tx},
		Writer:       pk1,
	}.Sign(sk1)

	_, err := bc.StoreBlock(pool, false)
	if err != types.ErrMissingPrevHash {
		t.Fatalf("StoreBlock = %v, want ErrMissingPrevHash", err)
	}
}

// TestWalletBalancesUpdateAfterStore covers the ledger-state side effect
// of recording a pool: source debited, target credited.
func TestWalletBalancesUpdateAfterStore(t *testing.T) {
	bc := newTestChain(t)
	sk1, pk1 := crypto.GenerateKeyPair()
	_, pk2 := crypto.GenerateKeyPair()

	tx := signedTransfer(t, sk1, pk1, pk2, 5)
	pool := bc.CreateBlock([]types.Transaction{tx}, pk1, sk1, 0)
	if _, err := bc.StoreBlock(pool, false); err != nil {
		t.Fatalf("StoreBlock: %v", err)
	}

	target, ok := bc.FindWalletData(pk2)
	if !ok {
		t.Fatalf("target wallet not found")
	}
	if target.Balance.Cmp(types.NewAmount(5)) != 0 {
		t.Fatalf("target balance = %+v, want 5", target.Balance)
	}

	modified := bc.GetModifiedWallets(pool)
	if len(modified) != 2 {
		t.Fatalf("GetModifiedWallets = %v, want 2 entries", modified)
	}
}

// TestStoreBlockRejectsBadWriterSignature covers a pool whose
// WriterSignature does not verify against Writer: it must be rejected
// outright, and the chain's tip must remain untouched.
func TestStoreBlockRejectsBadWriterSignature(t *testing.T) {
	bc := newTestChain(t)
	sk1, pk1 := crypto.GenerateKeyPair()
	otherSK, _ := crypto.GenerateKeyPair()
	_, pk2 := crypto.GenerateKeyPair()

	tx := signedTransfer(t, sk1, pk1, pk2, 1)
	pool := types.Pool{
		Sequence:     0,
		Transactions: []types.Transaction{tx},
		Writer:       pk1,
	}.Sign(otherSK)

	_, err := bc.StoreBlock(pool, false)
	if err != types.ErrInvalidPoolSignature {
		t.Fatalf("StoreBlock = %v, want ErrInvalidPoolSignature", err)
	}
	if bc.GetSize() != 0 {
		t.Fatalf("GetSize() = %d, want 0 after a rejected signature", bc.GetSize())
	}
	if bc.GetLastWrittenSequence() != noSequence {
		t.Fatalf("GetLastWrittenSequence() = %d, want untouched noSequence", bc.GetLastWrittenSequence())
	}
}
