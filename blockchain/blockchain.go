// Package blockchain implements the ledger core: a sequence-ordered,
// hash-linked chain of pools backed by a bolt database, the live wallet
// balance cache fed by each recorded pool, and the bookkeeping an
// out-of-order or syncing node needs (a bounded cache of blocks that
// arrived ahead of the local tip, and a broadcast wake-up for callers
// blocked waiting on the next block).
package blockchain

import (
	"context"
	"encoding/binary"
	"fmt"
	gosync "sync"
	"time"

	bolt "github.com/rivine/bbolt"

	"github.com/NebulousLabs/demotemutex"

	"github.com/Stoner19/node/build"
	"github.com/Stoner19/node/crypto"
	"github.com/Stoner19/node/persist"
	nsync "github.com/Stoner19/node/sync"
	"github.com/Stoner19/node/types"
	"github.com/Stoner19/node/wallets"
)

// noSequence marks a chain with no recorded blocks yet, mirroring the
// reference core's underflow-to-(-1) trick for an empty BlockHeight
// bucket: the first recorded pool is sequence 0, so "none yet" must be
// representable without colliding with a real sequence.
const noSequence = ^uint64(0)

// AddrTrnxCount is the send/receive transaction tally for one wallet.
type AddrTrnxCount struct {
	SendCount uint64
	RecvCount uint64
}

// Metadata identifies the on-disk schema version the chain expects.
var Metadata = persist.Metadata{Header: "Blockchain Consensus Database", Version: "1.0.0"}

// BlockChain is the ledger core. All exported methods are safe for
// concurrent use. Locking order when both are needed is always dbLock
// before cacheMu.
type BlockChain struct {
	db  *persist.BoltDatabase
	log *persist.Logger
	tg  nsync.ThreadGroup

	dbLock demotemutex.DemoteMutex

	genesisAddress crypto.PublicKey
	startAddress   crypto.PublicKey

	walletIds    *wallets.Ids
	walletsCache *wallets.Cache
	walletsPools *wallets.Pools

	lastHash       types.PoolHash
	lastSequence   uint64
	globalSequence uint64

	cacheMu      gosync.Mutex
	cachedBlocks map[uint64]types.Pool

	signalMu gosync.Mutex
	signal   chan struct{}
}

// New opens (or creates) the chain database at dbPath and replays every
// already-recorded pool into the wallet caches. genesis and start seed
// wallet ids 0 and 1, matching the reference core's reserved addresses.
func New(dbPath string, log *persist.Logger, genesis, start crypto.PublicKey) (*BlockChain, error) {
	db, err := persist.OpenDatabase(Metadata, dbPath)
	if err != nil {
		return nil, err
	}

	bc := &BlockChain{
		db:             db,
		log:            log,
		genesisAddress: genesis,
		startAddress:   start,
		walletIds:      wallets.NewIds(genesis, start),
		walletsCache:   wallets.NewCache(),
		walletsPools:   wallets.NewPools(),
		lastSequence:   noSequence,
		cachedBlocks:   make(map[uint64]types.Pool),
		signal:         make(chan struct{}),
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketPools, bucketHashIndex, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}

	if err := bc.loadMeta(); err != nil {
		db.Close()
		return nil, err
	}
	if err := bc.replay(); err != nil {
		db.Close()
		return nil, err
	}
	return bc, nil
}

// Close stops background work and closes the database.
func (bc *BlockChain) Close() error {
	bc.tg.Stop()
	return bc.db.Close()
}

func (bc *BlockChain) loadMeta() error {
	return bc.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if v := b.Get(metaKeyLastSequence); v != nil {
			bc.lastSequence = binary.BigEndian.Uint64(v)
		}
		if v := b.Get(metaKeyLastHash); v != nil {
			copy(bc.lastHash[:], v)
		}
		if v := b.Get(metaKeyGlobalSequence); v != nil {
			bc.globalSequence = binary.BigEndian.Uint64(v)
		}
		return nil
	})
}

func (bc *BlockChain) saveMeta(tx *bolt.Tx) error {
	b := tx.Bucket(bucketMeta)
	var seqBuf, globalBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], bc.lastSequence)
	binary.BigEndian.PutUint64(globalBuf[:], bc.globalSequence)
	if err := b.Put(metaKeyLastSequence, seqBuf[:]); err != nil {
		return err
	}
	if err := b.Put(metaKeyLastHash, bc.lastHash[:]); err != nil {
		return err
	}
	return b.Put(metaKeyGlobalSequence, globalBuf[:])
}

// replay rebuilds the live wallet caches from every pool already on
// disk, applying each pool exactly once through applyWalletDeltas (one
// Updater session per pool). The Initer it opens is never written to.
func (bc *BlockChain) replay() error {
	if bc.lastSequence == noSequence {
		return nil
	}
	in := bc.walletsCache.Initer()
	defer in.Close()

	return bc.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPools)
		for seq := uint64(0); seq <= bc.lastSequence; seq++ {
			data := b.Get(sequenceKey(seq))
			if data == nil {
				return fmt.Errorf("blockchain: missing pool at sequence %d during replay", seq)
			}
			pool, err := types.UnmarshalPool(data)
			if err != nil {
				return err
			}
			bc.applyWalletDeltas(pool)
		}
		return nil
	})
}

// applyWalletDeltas updates the wallet caches and pool-history index for
// one pool's transactions, registering any addresses from NewWallets
// first so debit/credit targets resolve. The Updater session spans every
// transaction in the pool under one held cache lock, so a concurrent
// reader never observes a partially-applied pool (a source debited but
// its target not yet credited). Used by both replay (direct cache
// writes via Updater, which is idempotent here since each pool is only
// ever applied once) and recordBlock.
func (bc *BlockChain) applyWalletDeltas(pool types.Pool) {
	for _, nw := range pool.NewWallets {
		bc.walletIds.FindOrInsert(nw.Address)
	}

	upd := bc.walletsCache.Updater()
	defer upd.Close()

	counts := make(map[types.WalletId]uint16)
	hash := pool.Hash()
	for _, tx := range pool.Transactions {
		sourceID, _ := bc.walletIds.FindOrInsert(tx.Source)
		targetID, _ := bc.walletIds.FindOrInsert(tx.Target)
		upd.DebitSource(sourceID, tx.TotalDebit(types.DefaultTransactionFee), hash)
		upd.CreditTarget(targetID, tx.Amount, hash)
		counts[sourceID]++
		counts[targetID]++
	}
	for id, n := range counts {
		bc.walletsPools.Append(id, hash, n)
	}
}

func sequenceKey(seq uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	return buf[:]
}

// notifyNewBlock wakes every caller blocked in WaitForBlock.
func (bc *BlockChain) notifyNewBlock() {
	bc.signalMu.Lock()
	close(bc.signal)
	bc.signal = make(chan struct{})
	bc.signalMu.Unlock()
}

// WaitForBlock blocks until a new block is recorded or ctx is done.
func (bc *BlockChain) WaitForBlock(ctx context.Context) error {
	bc.signalMu.Lock()
	ch := bc.signal
	bc.signalMu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetLastHash returns the tip's hash, or the zero hash if the chain is
// empty.
func (bc *BlockChain) GetLastHash() types.PoolHash {
	bc.dbLock.RLock()
	defer bc.dbLock.RUnlock()
	return bc.lastHash
}

// GetLastWrittenSequence returns the tip's sequence, or noSequence (all
// bits set) if the chain is empty.
func (bc *BlockChain) GetLastWrittenSequence() uint64 {
	bc.dbLock.RLock()
	defer bc.dbLock.RUnlock()
	return bc.lastSequence
}

// GetSize returns the number of recorded pools.
func (bc *BlockChain) GetSize() uint64 {
	bc.dbLock.RLock()
	defer bc.dbLock.RUnlock()
	if bc.lastSequence == noSequence {
		return 0
	}
	return bc.lastSequence + 1
}

// GetGlobalSequence returns the highest sequence number the node has
// observed on the network, including pools it has not yet recorded
// locally (used to size the "how far behind am I" gap during sync).
func (bc *BlockChain) GetGlobalSequence() uint64 {
	bc.dbLock.RLock()
	defer bc.dbLock.RUnlock()
	return bc.globalSequence
}

// SetGlobalSequence advances the observed network sequence if seq is
// newer than what is already recorded.
func (bc *BlockChain) SetGlobalSequence(seq uint64) {
	bc.dbLock.Lock()
	defer bc.dbLock.Unlock()
	if seq > bc.globalSequence {
		bc.globalSequence = seq
	}
}

// GetBlockRequestNeed reports whether the node knows of pools beyond its
// own tip that it has not yet recorded.
func (bc *BlockChain) GetBlockRequestNeed() bool {
	bc.dbLock.RLock()
	defer bc.dbLock.RUnlock()
	if bc.lastSequence == noSequence {
		return bc.globalSequence > 0
	}
	return bc.globalSequence > bc.lastSequence
}

// CreateBlock assembles the next pool from an admitted transaction set,
// stamping it with the chain's current sequence and previous hash,
// collecting NewWalletEntry records for any address seen here for the
// first time, and signing the result with writerSK. The returned pool
// is already signed and ready for StoreBlock; writerSK must correspond
// to writer.
func (bc *BlockChain) CreateBlock(transactions []types.Transaction, writer crypto.PublicKey, writerSK crypto.SecretKey, timestamp int64) types.Pool {
	bc.dbLock.RLock()
	sequence := bc.lastSequence + 1
	if bc.lastSequence == noSequence {
		sequence = 0
	}
	prevHash := bc.lastHash
	bc.dbLock.RUnlock()

	seen := make(map[crypto.PublicKey]bool)
	var newWallets []types.NewWalletEntry
	addIfNew := func(addr crypto.PublicKey) {
		if seen[addr] {
			return
		}
		seen[addr] = true
		if _, ok := bc.walletIds.Find(addr); ok {
			return
		}
		newWallets = append(newWallets, types.NewWalletEntry{Address: addr})
	}
	for _, tx := range transactions {
		addIfNew(tx.Source)
		addIfNew(tx.Target)
	}

	pool := types.Pool{
		Sequence:     sequence,
		PreviousHash: prevHash,
		Timestamp:    time.Unix(0, timestamp),
		Transactions: transactions,
		NewWallets:   newWallets,
		Writer:       writer,
	}
	return pool.Sign(writerSK)
}

// StoreBlock records pool if it is the chain's immediate successor,
// stashes it in the out-of-order cache if it is a future pool whose
// predecessors are still missing, and rejects it outright if it is
// stale or its previous-hash does not match the current tip. bySync
// marks pools received while catching up, which the caller may use to
// relax logging verbosity; the storage logic itself does not depend on
// it. The returned bool reports whether pool (or, transitively, any
// cached successor it unblocked) was actually appended.
func (bc *BlockChain) StoreBlock(pool types.Pool, bySync bool) (bool, error) {
	bc.dbLock.Lock()

	next := bc.lastSequence + 1
	if bc.lastSequence == noSequence {
		next = 0
	}

	switch {
	case pool.Sequence < next:
		bc.dbLock.Unlock()
		return false, types.ErrBadSequence
	case pool.Sequence > next:
		bc.dbLock.Unlock()
		bc.cacheMu.Lock()
		bc.cachedBlocks[pool.Sequence] = pool
		bc.cacheMu.Unlock()
		if pool.Sequence > bc.globalSequence {
			bc.SetGlobalSequence(pool.Sequence)
		}
		return false, nil
	}

	if !pool.IsGenesis() && pool.PreviousHash != bc.lastHash {
		bc.dbLock.Unlock()
		return false, types.ErrMissingPrevHash
	}

	if err := bc.recordBlockLocked(pool); err != nil {
		bc.dbLock.Unlock()
		return false, err
	}
	bc.dbLock.Unlock()

	bc.notifyNewBlock()
	bc.testCachedBlocks()
	return true, nil
}

// recordBlockLocked verifies pool's writer signature, then writes pool
// to disk and folds its deltas into the wallet caches. A signature
// mismatch aborts before any state (lastHash, lastSequence, caches) is
// touched. Callers must hold dbLock.
func (bc *BlockChain) recordBlockLocked(pool types.Pool) error {
	if !pool.VerifyWriterSignature() {
		return types.ErrInvalidPoolSignature
	}

	err := bc.db.Update(func(tx *bolt.Tx) error {
		var buf []byte
		w := byteBufferWriter{}
		if err := pool.MarshalWire(&w); err != nil {
			return err
		}
		buf = w.Bytes()

		if err := tx.Bucket(bucketPools).Put(sequenceKey(pool.Sequence), buf); err != nil {
			return err
		}
		hash := pool.Hash()
		if err := tx.Bucket(bucketHashIndex).Put(hash[:], sequenceKey(pool.Sequence)); err != nil {
			return err
		}
		bc.lastSequence = pool.Sequence
		bc.lastHash = hash
		if pool.Sequence > bc.globalSequence {
			bc.globalSequence = pool.Sequence
		}
		return bc.saveMeta(tx)
	})
	if err != nil {
		return err
	}
	bc.applyWalletDeltas(pool)
	return nil
}

// testCachedBlocks applies any out-of-order pools the cache is now
// unblocked to record, in sequence order, stopping at the first gap.
func (bc *BlockChain) testCachedBlocks() {
	for {
		bc.dbLock.RLock()
		next := bc.lastSequence + 1
		if bc.lastSequence == noSequence {
			next = 0
		}
		bc.dbLock.RUnlock()

		bc.cacheMu.Lock()
		pool, ok := bc.cachedBlocks[next]
		if ok {
			delete(bc.cachedBlocks, next)
		}
		bc.cacheMu.Unlock()
		if !ok {
			return
		}

		bc.dbLock.Lock()
		err := bc.recordBlockLocked(pool)
		bc.dbLock.Unlock()
		if err != nil {
			build.Severe("blockchain: failed to apply cached out-of-order block", err)
			return
		}
		bc.notifyNewBlock()
	}
}

// RemoveLastBlock deletes the chain tip, rewinding lastHash/lastSequence
// to the predecessor it names. It does not roll back the wallet caches:
// callers that need ledger consistency after a rewind must rebuild the
// caches via a fresh replay, since a single pool's debit/credit deltas
// are not stored in reversible form.
func (bc *BlockChain) RemoveLastBlock() error {
	bc.dbLock.Lock()
	defer bc.dbLock.Unlock()

	if bc.lastSequence == noSequence {
		return types.ErrBadSequence
	}

	return bc.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPools)
		key := sequenceKey(bc.lastSequence)
		data := b.Get(key)
		if data == nil {
			return types.ErrBadSequence
		}
		pool, err := types.UnmarshalPool(data)
		if err != nil {
			return err
		}
		hash := pool.Hash()
		if err := tx.Bucket(bucketHashIndex).Delete(hash[:]); err != nil {
			return err
		}
		if err := b.Delete(key); err != nil {
			return err
		}
		if pool.Sequence == 0 {
			bc.lastSequence = noSequence
			bc.lastHash = types.PoolHash{}
		} else {
			bc.lastSequence--
			bc.lastHash = pool.PreviousHash
		}
		return bc.saveMeta(tx)
	})
}

// LoadBlock reads the pool at sequence.
func (bc *BlockChain) LoadBlock(sequence uint64) (types.Pool, error) {
	var pool types.Pool
	err := bc.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketPools).Get(sequenceKey(sequence))
		if data == nil {
			return types.ErrBadSequence
		}
		var err error
		pool, err = types.UnmarshalPool(data)
		return err
	})
	return pool, err
}

// GetHashBySequence returns the pool hash at sequence.
func (bc *BlockChain) GetHashBySequence(sequence uint64) (types.PoolHash, error) {
	pool, err := bc.LoadBlock(sequence)
	if err != nil {
		return types.PoolHash{}, err
	}
	return pool.Hash(), nil
}

// FindWalletId resolves address to its compact wallet id.
func (bc *BlockChain) FindWalletId(address crypto.PublicKey) (types.WalletId, bool) {
	return bc.walletIds.Find(address)
}

// FindAddrByWalletId resolves id back to its public key.
func (bc *BlockChain) FindAddrByWalletId(id types.WalletId) (crypto.PublicKey, bool) {
	return bc.walletIds.Address(id)
}

// FindWalletData returns address's live wallet state.
func (bc *BlockChain) FindWalletData(address crypto.PublicKey) (types.WalletData, bool) {
	id, ok := bc.walletIds.Find(address)
	if !ok {
		return types.WalletData{}, false
	}
	return bc.walletsCache.Get(id)
}

// GetTrxnsCount returns address's send/receive counters.
func (bc *BlockChain) GetTrxnsCount(address crypto.PublicKey) (AddrTrnxCount, bool) {
	data, ok := bc.FindWalletData(address)
	if !ok {
		return AddrTrnxCount{}, false
	}
	return AddrTrnxCount{SendCount: data.SendCount, RecvCount: data.RecvCount}, true
}

// GetModifiedWallets returns the set of wallet ids pool's transactions
// touch, each at most once regardless of how many of pool's
// transactions reference it. This replaces the reference design's
// fixed-width bitset keyed by wallet id (which does not fit a wallet
// space that grows without an a-priori bound) with a plain id slice.
func (bc *BlockChain) GetModifiedWallets(pool types.Pool) []types.WalletId {
	seen := make(map[types.WalletId]bool)
	var out []types.WalletId
	mark := func(addr crypto.PublicKey) {
		id, ok := bc.walletIds.Find(addr)
		if !ok || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
	}
	for _, tx := range pool.Transactions {
		mark(tx.Source)
		mark(tx.Target)
	}
	return out
}

// SetTransactionsFees computes the fee actually charged for each of
// pool's transactions (Amount.MaxFee capped at flatFee) and returns it
// alongside the total collected, used by the writer to populate a
// pool's fee-summary broadcast without re-running TotalDebit at every
// reader.
func SetTransactionsFees(pool types.Pool, flatFee types.Amount) ([]types.Amount, types.Amount) {
	fees := make([]types.Amount, len(pool.Transactions))
	total := types.Zero
	for i, tx := range pool.Transactions {
		fee := flatFee
		if fee.Cmp(tx.MaxFee) > 0 {
			fee = tx.MaxFee
		}
		fees[i] = fee
		total = total.Add(fee)
	}
	return fees, total
}

// GetTransactions returns up to limit transactions touching address,
// newest pool first, starting after skip matching pools, using the
// wallet's bounded pool-history index rather than a full chain scan.
func (bc *BlockChain) GetTransactions(address crypto.PublicKey, skip, limit int) ([]types.Transaction, error) {
	id, ok := bc.walletIds.Find(address)
	if !ok {
		return nil, nil
	}
	history := bc.walletsPools.History(id)

	var out []types.Transaction
	for i := len(history) - 1; i >= 0 && len(out) < limit; i-- {
		if skip > 0 {
			skip--
			continue
		}
		entry := history[i]
		sequence, err := bc.sequenceForHash(entry.PoolHash)
		if err != nil {
			continue
		}
		pool, err := bc.LoadBlock(sequence)
		if err != nil {
			continue
		}
		for _, tx := range pool.Transactions {
			if tx.Source == address || tx.Target == address {
				out = append(out, tx)
				if len(out) >= limit {
					break
				}
			}
		}
	}
	return out, nil
}

func (bc *BlockChain) sequenceForHash(hash types.PoolHash) (uint64, error) {
	var sequence uint64
	err := bc.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketHashIndex).Get(hash[:])
		if v == nil {
			return types.ErrBadSequence
		}
		sequence = binary.BigEndian.Uint64(v)
		return nil
	})
	return sequence, err
}

// byteBufferWriter adapts a growable byte slice to io.Writer without
// pulling in bytes.Buffer's extra surface for this single call site.
type byteBufferWriter struct {
	buf []byte
}

func (w *byteBufferWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *byteBufferWriter) Bytes() []byte { return w.buf }
