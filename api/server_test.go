package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/julienschmidt/httprouter"

	"github.com/Stoner19/node/blockchain"
	"github.com/Stoner19/node/crypto"
	"github.com/Stoner19/node/persist"
	"github.com/Stoner19/node/types"
)

func newTestChain(t *testing.T) *blockchain.BlockChain {
	t.Helper()
	dir := t.TempDir()
	log, err := persist.NewFileLogger(persist.BlockchainInfo{Name: "apitest"}, filepath.Join(dir, "log.txt"), false)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	t.Cleanup(func() { log.Close() })

	_, genesis := crypto.GenerateKeyPair()
	_, start := crypto.GenerateKeyPair()
	bc, err := blockchain.New(filepath.Join(dir, "chain.db"), log, genesis, start)
	if err != nil {
		t.Fatalf("blockchain.New: %v", err)
	}
	t.Cleanup(func() { bc.Close() })
	return bc
}

func recordTransfer(t *testing.T, bc *blockchain.BlockChain, sk crypto.SecretKey, source, target crypto.PublicKey, amount uint64) {
	t.Helper()
	tx := types.Transaction{Source: source, Target: target, Amount: types.NewAmount(amount)}
	tx.Signature = crypto.SignHash(tx.SigningHash(), sk)
	pool := bc.CreateBlock([]types.Transaction{tx}, source, sk, 0)
	if _, err := bc.StoreBlock(pool, false); err != nil {
		t.Fatalf("StoreBlock: %v", err)
	}
}

func TestChainStatusHandler(t *testing.T) {
	bc := newTestChain(t)
	sk, pk1 := crypto.GenerateKeyPair()
	_, pk2 := crypto.GenerateKeyPair()
	recordTransfer(t, bc, sk, pk1, pk2, 3)

	router := httprouter.New()
	RegisterChainHTTPHandlers(router, bc)

	req, _ := http.NewRequest(http.MethodGet, "/chain", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var status ChainStatusGET
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if status.Height != 1 {
		t.Fatalf("Height = %d, want 1", status.Height)
	}
}

func TestWalletHandlerRoundTrip(t *testing.T) {
	bc := newTestChain(t)
	sk, pk1 := crypto.GenerateKeyPair()
	_, pk2 := crypto.GenerateKeyPair()
	recordTransfer(t, bc, sk, pk1, pk2, 7)

	router := httprouter.New()
	RegisterChainHTTPHandlers(router, bc)

	req, _ := http.NewRequest(http.MethodGet, fmt.Sprintf("/chain/wallets/%s", pk2.String()), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var wallet WalletGET
	if err := json.Unmarshal(rec.Body.Bytes(), &wallet); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if wallet.Balance != "7.000000000" {
		t.Fatalf("Balance = %s, want 7.000000000", wallet.Balance)
	}
}
