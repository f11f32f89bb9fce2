package generals

import (
	"testing"

	"github.com/Stoner19/node/crypto"
	"github.com/Stoner19/node/txvalidator"
	"github.com/Stoner19/node/types"
	"github.com/Stoner19/node/wallets"
)

func newGenerals() *Generals {
	cache := wallets.NewCache()
	ids := wallets.NewIds(crypto.PublicKey{}, crypto.PublicKey{})
	v := txvalidator.New(cache, ids, txvalidator.DefaultConfig)
	return New(v)
}

func TestBuildVectorEmptyPacketHashesZero(t *testing.T) {
	g := newGenerals()
	packet := types.NewTransactionsPacket()

	got := g.BuildVector(packet)
	want := crypto.HashCharacteristic(nil)
	if got != want {
		t.Fatalf("empty packet hash = %x, want %x", got, want)
	}
}

func TestBuildVectorDeterministicAcrossNodes(t *testing.T) {
	g1 := newGenerals()
	g2 := newGenerals()

	var source, target crypto.PublicKey
	source[0] = 1
	target[0] = 2
	tx := types.Transaction{Source: source, Target: target, Amount: types.NewAmount(5)}

	p1 := types.NewTransactionsPacket()
	p1.AddTransaction(tx)
	p2 := types.NewTransactionsPacket()
	p2.AddTransaction(tx)

	h1 := g1.BuildVector(p1)
	h2 := g2.BuildVector(p2)
	if h1 != h2 {
		t.Fatalf("two nodes computed different hashes for identical input: %x != %x", h1, h2)
	}
}

func TestTakeDecisionWriterSelection(t *testing.T) {
	g := newGenerals()
	confidants := make([]crypto.PublicKey, 5)
	for i := range confidants {
		confidants[i][0] = byte(i + 1)
	}

	var lastHash types.PoolHash
	lastHash[0] = 0x07

	result := g.TakeDecision(confidants, lastHash)
	if result != 2 {
		t.Fatalf("TakeDecision = %d, want 2 (0x07 mod 5)", result)
	}
	if g.WriterPublicKey() != confidants[2] {
		t.Fatalf("WriterPublicKey = %v, want %v", g.WriterPublicKey(), confidants[2])
	}
}

func TestAddMatrixBoundedByConfidantCeiling(t *testing.T) {
	g := newGenerals()
	confidants := make([]crypto.PublicKey, types.ConfidantsCountMax+1)
	matrix := types.HashMatrix{Sender: 0}

	// must not panic even when the ceiling is exceeded; Severe is a
	// debug-build assertion, not a release-build crash.
	g.AddMatrix(matrix, confidants)
}
