// Package wallets implements the three wallet-state caches BlockChain
// owns exclusively: WalletsIds (public-key <-> compact id interning),
// WalletsCache (balances, in bulk-warm-start and live-update modes), and
// WalletsPools (per-wallet bounded pool-history ring). None of the three
// holds a back-reference to BlockChain; BlockChain passes itself (or the
// specific data it needs) as arguments, collapsing the reference cycle
// the original design had between these types.
package wallets

import (
	gosync "sync"

	"github.com/Stoner19/node/crypto"
	"github.com/Stoner19/node/types"
)

// Ids is a partial bijection between wallet public keys and the compact
// 32-bit ids the chain uses internally. Ids are assigned monotonically
// on first appearance and never reused or reassigned.
type Ids struct {
	mu      gosync.RWMutex
	byKey   map[crypto.PublicKey]types.WalletId
	byID    map[types.WalletId]crypto.PublicKey
	nextID  types.WalletId
}

// NewIds creates an empty id table. genesis and start addresses, if
// non-zero, are pre-registered as ids 0 and 1 so they exist before any
// pool is recorded.
func NewIds(genesis, start crypto.PublicKey) *Ids {
	ids := &Ids{
		byKey: make(map[crypto.PublicKey]types.WalletId),
		byID:  make(map[types.WalletId]crypto.PublicKey),
	}
	var zero crypto.PublicKey
	if genesis != zero {
		ids.insert(genesis)
	}
	if start != zero && start != genesis {
		ids.insert(start)
	}
	return ids
}

func (ids *Ids) insert(key crypto.PublicKey) types.WalletId {
	id := ids.nextID
	ids.nextID++
	ids.byKey[key] = id
	ids.byID[id] = key
	return id
}

// FindOrInsert returns the id bound to key, assigning a fresh monotonic
// id if key has not been seen before. The second return reports whether
// a new id was assigned.
func (ids *Ids) FindOrInsert(key crypto.PublicKey) (types.WalletId, bool) {
	ids.mu.Lock()
	defer ids.mu.Unlock()
	if id, ok := ids.byKey[key]; ok {
		return id, false
	}
	return ids.insert(key), true
}

// Find returns the id bound to key, if any.
func (ids *Ids) Find(key crypto.PublicKey) (types.WalletId, bool) {
	ids.mu.RLock()
	defer ids.mu.RUnlock()
	id, ok := ids.byKey[key]
	return id, ok
}

// Address returns the public key bound to id, if any.
func (ids *Ids) Address(id types.WalletId) (crypto.PublicKey, bool) {
	ids.mu.RLock()
	defer ids.mu.RUnlock()
	key, ok := ids.byID[id]
	return key, ok
}

// Count returns the number of ids assigned so far.
func (ids *Ids) Count() int {
	ids.mu.RLock()
	defer ids.mu.RUnlock()
	return len(ids.byKey)
}
