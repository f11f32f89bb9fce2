package wallets

import (
	gosync "sync"

	"github.com/Stoner19/node/types"
)

// Cache holds the live per-wallet ledger state. It is never touched
// directly; callers go through an Initer (bulk warm-start, no
// transaction-by-transaction bookkeeping) or an Updater (applies one
// recorded pool's worth of deltas at a time).
type Cache struct {
	mu   gosync.RWMutex
	data map[types.WalletId]types.WalletData
}

// NewCache creates an empty wallet-data cache.
func NewCache() *Cache {
	return &Cache{data: make(map[types.WalletId]types.WalletData)}
}

// Get returns the cached data for id.
func (c *Cache) Get(id types.WalletId) (types.WalletData, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.data[id]
	return d, ok
}

// Snapshot returns a point-in-time copy of the full cache, taken under
// the read lock. The transactions validator does not use it; it reads
// balances one wallet at a time with Get.
func (c *Cache) Snapshot() map[types.WalletId]types.WalletData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[types.WalletId]types.WalletData, len(c.data))
	for k, v := range c.data {
		out[k] = v
	}
	return out
}

// Initer bulk-loads wallet state by overwriting entries directly,
// bypassing the counter bookkeeping Updater performs. The chain's
// startup replay does not load through it; it applies pools with
// Updater.
type Initer struct {
	c *Cache
}

// Initer begins a bulk warm-start session.
func (c *Cache) Initer() *Initer {
	return &Initer{c: c}
}

// Set overwrites the cached data for id.
func (in *Initer) Set(id types.WalletId, data types.WalletData) {
	in.c.mu.Lock()
	defer in.c.mu.Unlock()
	in.c.data[id] = data
}

// Close ends the warm-start session. Present for symmetry with Updater
// and to give future callers an explicit point to hook post-load
// consistency checks.
func (in *Initer) Close() {}

// Updater applies the deltas of one freshly recorded pool to the live
// cache. It holds the cache's write lock for its entire session, from
// Updater() to Close(), so a concurrent reader can never observe a
// pool half-applied (e.g. a source debited but its target not yet
// credited).
type Updater struct {
	c *Cache
}

// Updater begins a live-update session, locking the cache for exclusive
// access until Close.
func (c *Cache) Updater() *Updater {
	c.mu.Lock()
	return &Updater{c: c}
}

// DebitSource applies an outgoing transfer from id's wallet.
func (u *Updater) DebitSource(id types.WalletId, amount types.Amount, pool types.PoolHash) {
	u.c.data[id] = u.c.data[id].Debit(amount, pool)
}

// CreditTarget applies an incoming transfer to id's wallet, creating the
// entry if this is the wallet's first appearance.
func (u *Updater) CreditTarget(id types.WalletId, amount types.Amount, pool types.PoolHash) {
	u.c.data[id] = u.c.data[id].Credit(amount, pool)
}

// Close ends the live-update session, releasing the cache's write lock.
func (u *Updater) Close() {
	u.c.mu.Unlock()
}
