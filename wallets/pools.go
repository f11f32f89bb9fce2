package wallets

import (
	gosync "sync"

	"github.com/Stoner19/node/types"
)

// PoolEntry is one record in a wallet's pool-history ring: a pool that
// touched the wallet, plus how many of its transactions did so.
type PoolEntry struct {
	PoolHash types.PoolHash
	TrxNum   uint16
}

// Pools maintains, per wallet id, a bounded deque of PoolEntry, used for
// fast transaction-history lookups without scanning the whole chain.
// Capacity is fixed at types.WalletsPoolsCapacity; once full, the oldest
// entry is evicted to make room for the newest.
type Pools struct {
	mu      gosync.Mutex
	entries map[types.WalletId][]PoolEntry
}

// NewPools creates an empty wallet-pools index.
func NewPools() *Pools {
	return &Pools{entries: make(map[types.WalletId][]PoolEntry)}
}

// Append records that pool touched id's wallet across trxNum of its own
// transactions. Called once per wallet per recorded pool, from both
// directions (source debit and target credit).
func (p *Pools) Append(id types.WalletId, pool types.PoolHash, trxNum uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entries := p.entries[id]
	if len(entries) > 0 && entries[len(entries)-1].PoolHash == pool {
		entries[len(entries)-1].TrxNum += trxNum
	} else {
		entries = append(entries, PoolEntry{PoolHash: pool, TrxNum: trxNum})
	}
	if len(entries) > types.WalletsPoolsCapacity {
		entries = entries[len(entries)-types.WalletsPoolsCapacity:]
	}
	p.entries[id] = entries
}

// History returns a wallet's recorded pool entries, oldest first.
func (p *Pools) History(id types.WalletId) []PoolEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PoolEntry, len(p.entries[id]))
	copy(out, p.entries[id])
	return out
}
