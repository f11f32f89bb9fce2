package conveyer

import (
	"testing"
	"time"

	"github.com/Stoner19/node/crypto"
	"github.com/Stoner19/node/types"
)

func signedTx(t *testing.T, sk crypto.SecretKey, source, target crypto.PublicKey) types.Transaction {
	t.Helper()
	tx := types.Transaction{Source: source, Target: target, Amount: types.NewAmount(1)}
	tx.Signature = crypto.SignHash(tx.SigningHash(), sk)
	return tx
}

// TestAddTransactionSealsOnCapacity covers an open packet reaching
// MaxPacketTransactions: it must be sealed and handed to the flush
// signal immediately, without waiting for the flush timer.
func TestAddTransactionSealsOnCapacity(t *testing.T) {
	sk, pk1 := crypto.GenerateKeyPair()
	_, pk2 := crypto.GenerateKeyPair()

	var sealed []*types.TransactionsPacket
	c := New(func(p *types.TransactionsPacket) { sealed = append(sealed, p) })

	for i := 0; i < types.MaxPacketTransactions; i++ {
		c.AddTransaction(signedTx(t, sk, pk1, pk2))
	}

	if len(sealed) != 1 {
		t.Fatalf("sealed count = %d, want 1", len(sealed))
	}
	if sealed[0].TransactionsCount() != types.MaxPacketTransactions {
		t.Fatalf("sealed packet has %d transactions, want %d", sealed[0].TransactionsCount(), types.MaxPacketTransactions)
	}
}

// TestAddTransactionRejectsBadSignature covers a transaction whose
// signature does not verify: it must never reach the open packet.
func TestAddTransactionRejectsBadSignature(t *testing.T) {
	_, pk1 := crypto.GenerateKeyPair()
	_, pk2 := crypto.GenerateKeyPair()

	signalled := false
	c := New(func(*types.TransactionsPacket) { signalled = true })
	c.AddTransaction(types.Transaction{Source: pk1, Target: pk2, Amount: types.NewAmount(1)})
	c.FlushTransactions()

	// nothing was ever added, so flushing the empty packet must not
	// invoke the signal, and no packet hash becomes needed.
	if signalled {
		t.Fatal("flush signal invoked for a packet that should be empty")
	}
	if got := c.CurrentNeededHashes(); len(got) != 0 {
		t.Fatalf("NeededHashes = %v, want empty", got)
	}
}

// TestSetRoundCarriesKnownPacketsForward covers a round transition: a
// packet already on hand for a referenced hash moves forward without
// becoming "needed", while an unknown hash does.
func TestSetRoundCarriesKnownPacketsForward(t *testing.T) {
	sk, pk1 := crypto.GenerateKeyPair()
	_, pk2 := crypto.GenerateKeyPair()

	var sealed *types.TransactionsPacket
	c := New(func(p *types.TransactionsPacket) { sealed = p })
	c.AddTransaction(signedTx(t, sk, pk1, pk2))
	c.FlushTransactions()
	if sealed == nil {
		t.Fatalf("packet was not sealed")
	}

	unknownHash := types.TransactionsPacketHash{0xAB}
	c.SetRound(RoundTable{Round: 1, Hashes: []types.TransactionsPacketHash{sealed.Hash(), unknownHash}})

	if _, ok := c.Packet(sealed.Hash()); !ok {
		t.Fatalf("known packet did not carry forward into round 1")
	}
	needed := c.NeededHashes(1)
	if len(needed) != 1 || needed[0] != unknownHash {
		t.Fatalf("NeededHashes(1) = %v, want [%v]", needed, unknownHash)
	}
}

// TestSetRoundEvictsOldRounds covers the storage-window eviction: once
// the round number advances far enough, state for rounds older than
// HashTablesStorageCapacity must be dropped.
func TestSetRoundEvictsOldRounds(t *testing.T) {
	c := New(nil)
	c.AddCharacteristicMeta(1, types.Characteristic{})

	c.SetRound(RoundTable{Round: uint32(types.HashTablesStorageCapacity) + 1})

	if _, ok := c.CharacteristicMeta(1); ok {
		t.Fatalf("round 1 characteristic meta should have been evicted")
	}
}

// TestApplyCharacteristicFiltersByMask covers the happy path of
// producing a Pool from a fully-synced round: transactions whose
// characteristic bit is unset must be excluded.
func TestApplyCharacteristicFiltersByMask(t *testing.T) {
	sk, pk1 := crypto.GenerateKeyPair()
	_, pk2 := crypto.GenerateKeyPair()
	_, writer := crypto.GenerateKeyPair()

	c := New(nil)
	c.AddTransaction(signedTx(t, sk, pk1, pk2))
	c.AddTransaction(signedTx(t, sk, pk1, pk2))
	c.FlushTransactions()

	c.mu.RLock()
	state := c.rounds[0]
	var hash types.TransactionsPacketHash
	for h := range state.packets {
		hash = h
	}
	c.mu.RUnlock()

	c.SetRound(RoundTable{Round: 0, Hashes: []types.TransactionsPacketHash{hash}})

	characteristic := types.Characteristic{Mask: []byte{1, 0}}

	pool, err := c.ApplyCharacteristic(characteristic, writer, types.PoolHash{}, 0)
	if err != nil {
		t.Fatalf("ApplyCharacteristic: %v", err)
	}
	if len(pool.Transactions) != 1 {
		t.Fatalf("pool has %d transactions, want 1", len(pool.Transactions))
	}
}

// TestApplyCharacteristicMissingPacket covers a round table referencing
// a hash the conveyer never received.
func TestApplyCharacteristicMissingPacket(t *testing.T) {
	_, writer := crypto.GenerateKeyPair()
	c := New(nil)
	c.SetRound(RoundTable{Round: 0, Hashes: []types.TransactionsPacketHash{{0x01}}})

	_, err := c.ApplyCharacteristic(types.Characteristic{}, writer, types.PoolHash{}, 0)
	if err != types.ErrPacketMissing {
		t.Fatalf("ApplyCharacteristic = %v, want ErrPacketMissing", err)
	}
}

// TestIsEnoughNotifications covers the majority-quorum computation for
// a small confidant set.
func TestIsEnoughNotifications(t *testing.T) {
	c := New(nil)
	const confidants = 5 // quorum = (5-1)/2 = 2

	if c.IsEnoughNotifications(confidants, NotificationGreaterEqual) {
		t.Fatalf("quorum should not be met with zero notifications")
	}
	c.AddNotification([]byte("a"))
	c.AddNotification([]byte("b"))
	if !c.IsEnoughNotifications(confidants, NotificationEqual) {
		t.Fatalf("quorum should be met with exactly 2 notifications")
	}
}

// TestFlushTimerSealsOpenPacket covers the background flush timer
// sealing a non-empty open packet without AddTransaction ever hitting
// MaxPacketTransactions.
func TestFlushTimerSealsOpenPacket(t *testing.T) {
	sk, pk1 := crypto.GenerateKeyPair()
	_, pk2 := crypto.GenerateKeyPair()

	done := make(chan struct{}, 1)
	c := New(func(p *types.TransactionsPacket) {
		select {
		case done <- struct{}{}:
		default:
		}
	})
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Close()

	c.AddTransaction(signedTx(t, sk, pk1, pk2))

	select {
	case <-done:
	case <-time.After(2 * types.TransactionsPacketInterval):
		t.Fatalf("flush timer did not seal the open packet in time")
	}
}
