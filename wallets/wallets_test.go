package wallets

import (
	"testing"

	"github.com/Stoner19/node/crypto"
	"github.com/Stoner19/node/types"
)

func TestIdsMonotonicAssignment(t *testing.T) {
	ids := NewIds(crypto.PublicKey{}, crypto.PublicKey{})
	var a, b crypto.PublicKey
	a[0] = 1
	b[0] = 2

	id1, fresh1 := ids.FindOrInsert(a)
	if !fresh1 {
		t.Fatalf("expected first lookup of a to be fresh")
	}
	id1Again, fresh1Again := ids.FindOrInsert(a)
	if fresh1Again || id1Again != id1 {
		t.Fatalf("expected second lookup of a to return the same id %d, got %d (fresh=%v)", id1, id1Again, fresh1Again)
	}

	id2, fresh2 := ids.FindOrInsert(b)
	if !fresh2 || id2 == id1 {
		t.Fatalf("expected b to get a distinct fresh id, got %d (a=%d)", id2, id1)
	}

	if addr, ok := ids.Address(id2); !ok || addr != b {
		t.Fatalf("Address(%d) = %v, %v; want %v, true", id2, addr, ok, b)
	}
}

func TestPoolsCapacityEviction(t *testing.T) {
	pools := NewPools()
	id := types.WalletId(1)

	for i := 0; i < types.WalletsPoolsCapacity+10; i++ {
		var h types.PoolHash
		h[0] = byte(i)
		h[1] = byte(i >> 8)
		pools.Append(id, h, 1)
	}

	hist := pools.History(id)
	if len(hist) != types.WalletsPoolsCapacity {
		t.Fatalf("History length = %d, want %d", len(hist), types.WalletsPoolsCapacity)
	}
	// the oldest surviving entry should be the 11th inserted (index 10)
	var want types.PoolHash
	want[0] = byte(10)
	if hist[0].PoolHash != want {
		t.Fatalf("oldest surviving entry = %v, want hash with first byte 10", hist[0].PoolHash)
	}
}

func TestCacheUpdaterDebitCredit(t *testing.T) {
	c := NewCache()
	u := c.Updater()
	id := types.WalletId(5)
	u.CreditTarget(id, types.NewAmount(100), types.PoolHash{})
	u.DebitSource(id, types.NewAmount(30), types.PoolHash{})
	u.Close()

	data, ok := c.Get(id)
	if !ok {
		t.Fatalf("expected wallet %d to exist after credit/debit", id)
	}
	if data.Balance.Cmp(types.NewAmount(70)) != 0 {
		t.Fatalf("balance = %+v, want 70", data.Balance)
	}
	if data.SendCount != 1 || data.RecvCount != 1 {
		t.Fatalf("counts = send:%d recv:%d, want 1/1", data.SendCount, data.RecvCount)
	}
}
