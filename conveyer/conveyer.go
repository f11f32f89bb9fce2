// Package conveyer implements the round-scoped mempool: an open packet
// that transactions flow into, a per-round packet table keyed by
// content hash, needed-hash tracking for packets a round references but
// has not yet received, and the writer-notification quorum. State from
// the last HashTablesStorageCapacity rounds is retained for late
// arrivals; older rounds are evicted.
package conveyer

import (
	"time"

	"github.com/NebulousLabs/demotemutex"

	"github.com/Stoner19/node/crypto"
	nsync "github.com/Stoner19/node/sync"
	"github.com/Stoner19/node/types"
)

// FlushSignal is invoked once, synchronously, whenever the Conveyer
// seals a packet (because it hit MaxPacketTransactions or because the
// flush timer fired). Implementations must not block.
type FlushSignal func(*types.TransactionsPacket)

// RoundTable is the round's confidant-selected reading list: the packet
// hashes that make up this round's candidate transaction set.
type RoundTable struct {
	Round  uint32
	Hashes []types.TransactionsPacketHash
}

// NotificationState selects the comparison isEnoughNotifications uses.
type NotificationState int

const (
	// NotificationEqual requires exactly the quorum count.
	NotificationEqual NotificationState = iota
	// NotificationGreaterEqual requires at least the quorum count.
	NotificationGreaterEqual
)

type roundState struct {
	packets          map[types.TransactionsPacketHash]*types.TransactionsPacket
	needed           map[types.TransactionsPacketHash]struct{}
	notifications    [][]byte
	characteristicMeta *types.Characteristic
}

func newRoundState() *roundState {
	return &roundState{
		packets: make(map[types.TransactionsPacketHash]*types.TransactionsPacket),
		needed:  make(map[types.TransactionsPacketHash]struct{}),
	}
}

// Conveyer is the single logical mempool instance. Concurrent readers
// are allowed; all mutating operations take the shared mutex
// exclusively.
type Conveyer struct {
	mu demotemutex.DemoteMutex
	tg nsync.ThreadGroup

	openPacket *types.TransactionsPacket
	lastFlush  time.Time

	roundTable RoundTable
	rounds     map[uint32]*roundState

	flushSignal FlushSignal

	flushTimer *time.Timer
}

// New creates a Conveyer with an empty open packet and no round state.
// If signal is non-nil it is invoked whenever a packet is sealed.
func New(signal FlushSignal) *Conveyer {
	c := &Conveyer{
		openPacket: types.NewTransactionsPacket(),
		rounds:     make(map[uint32]*roundState),
		flushSignal: signal,
	}
	c.rounds[0] = newRoundState()
	c.lastFlush = time.Now()
	return c
}

// Start launches the background flush-timer goroutine. Call Close to
// stop it.
func (c *Conveyer) Start() error {
	if err := c.tg.Add(); err != nil {
		return err
	}
	go func() {
		defer c.tg.Done()
		ticker := time.NewTicker(types.TransactionsPacketInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.FlushTransactions()
			case <-c.tg.StopChan():
				return
			}
		}
	}()
	return nil
}

// Close stops the flush-timer goroutine.
func (c *Conveyer) Close() error {
	return c.tg.Stop()
}

// AddTransaction appends tx to the currently open packet. Invalid
// transactions (failing signature verification) are silently dropped,
// matching the reference behavior of never surfacing a per-transaction
// rejection to the submitter at this layer. Reaching
// MaxPacketTransactions triggers an immediate seal rather than waiting
// for the next timer tick.
func (c *Conveyer) AddTransaction(tx types.Transaction) {
	if !tx.VerifySignature() {
		return
	}

	c.mu.Lock()
	c.openPacket.AddTransaction(tx)
	full := c.openPacket.TransactionsCount() >= types.MaxPacketTransactions
	c.mu.Unlock()

	if full {
		c.FlushTransactions()
	}
}

// FlushTransactions seals the open packet (if non-empty), emits it on
// the flush signal, and starts a fresh open packet. Safe to call
// concurrently with AddTransaction; a sealed packet's hash never
// changes once computed.
func (c *Conveyer) FlushTransactions() {
	c.mu.Lock()
	packet := c.openPacket
	if packet.TransactionsCount() == 0 {
		c.mu.Unlock()
		return
	}
	c.openPacket = types.NewTransactionsPacket()
	c.lastFlush = time.Now()
	packet.Hash() // freeze
	current := c.currentRoundState()
	current.packets[packet.Hash()] = packet
	delete(current.needed, packet.Hash())
	c.mu.Unlock()

	if c.flushSignal != nil {
		c.flushSignal(packet)
	}
}

// AddTransactionsPacket inserts a network-received packet into the
// current round's table, keyed by its hash. A duplicate hash is a
// no-op.
func (c *Conveyer) AddTransactionsPacket(p *types.TransactionsPacket) {
	c.mu.Lock()
	defer c.mu.Unlock()
	hash := p.Hash()
	current := c.currentRoundState()
	if _, ok := current.packets[hash]; ok {
		return
	}
	current.packets[hash] = p
	delete(current.needed, hash)
}

// Packet returns the packet for hash from the current round's table.
func (c *Conveyer) Packet(hash types.TransactionsPacketHash) (*types.TransactionsPacket, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	current := c.rounds[c.roundTable.Round]
	p, ok := current.packets[hash]
	return p, ok
}

// SetRound atomically advances to a new round: packets already known
// move forward with the round, missing hashes become "needed", and
// state older than HashTablesStorageCapacity rounds is evicted.
func (c *Conveyer) SetRound(table RoundTable) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := newRoundState()
	prev := c.rounds[c.roundTable.Round]
	for _, h := range table.Hashes {
		if prev != nil {
			if p, ok := prev.packets[h]; ok {
				next.packets[h] = p
				continue
			}
		}
		next.needed[h] = struct{}{}
	}

	c.roundTable = table
	c.rounds[table.Round] = next

	for round := range c.rounds {
		if table.Round >= types.HashTablesStorageCapacity && round+types.HashTablesStorageCapacity <= table.Round {
			delete(c.rounds, round)
		}
	}
}

// RoundTable returns the current round's table.
func (c *Conveyer) RoundTable() RoundTable {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roundTable
}

// CurrentRoundNumber returns the current round number.
func (c *Conveyer) CurrentRoundNumber() uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roundTable.Round
}

// NeededHashes returns the packet hashes referenced by round but not yet
// known.
func (c *Conveyer) NeededHashes(round uint32) []types.TransactionsPacketHash {
	c.mu.RLock()
	defer c.mu.RUnlock()
	state, ok := c.rounds[round]
	if !ok {
		return nil
	}
	out := make([]types.TransactionsPacketHash, 0, len(state.needed))
	for h := range state.needed {
		out = append(out, h)
	}
	return out
}

// CurrentNeededHashes returns NeededHashes for the current round.
func (c *Conveyer) CurrentNeededHashes() []types.TransactionsPacketHash {
	return c.NeededHashes(c.CurrentRoundNumber())
}

// AddFoundPacket satisfies a needed hash for round. If round has fallen
// outside the storage window, the packet is discarded.
func (c *Conveyer) AddFoundPacket(round uint32, p *types.TransactionsPacket) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.rounds[round]
	if !ok {
		return
	}
	hash := p.Hash()
	state.packets[hash] = p
	delete(state.needed, hash)
}

// IsSyncCompleted reports whether round has no remaining needed hashes.
func (c *Conveyer) IsSyncCompleted(round uint32) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	state, ok := c.rounds[round]
	if !ok {
		return true
	}
	return len(state.needed) == 0
}

// IsCurrentSyncCompleted reports IsSyncCompleted for the current round.
func (c *Conveyer) IsCurrentSyncCompleted() bool {
	return c.IsSyncCompleted(c.CurrentRoundNumber())
}

// AddCharacteristicMeta stashes an early-arriving characteristic for a
// round the local node has not reached yet.
func (c *Conveyer) AddCharacteristicMeta(round uint32, characteristic types.Characteristic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.rounds[round]
	if !ok {
		state = newRoundState()
		c.rounds[round] = state
	}
	state.characteristicMeta = &characteristic
}

// CharacteristicMeta retrieves a previously-stashed characteristic for
// round, if any.
func (c *Conveyer) CharacteristicMeta(round uint32) (types.Characteristic, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	state, ok := c.rounds[round]
	if !ok || state.characteristicMeta == nil {
		return types.Characteristic{}, false
	}
	return *state.characteristicMeta, true
}

// ApplyCharacteristic produces a Pool by concatenating, in round-table
// order, the transactions of each referenced packet, keeping only those
// whose bit in the characteristic mask is set. Returns
// ErrPacketMissing if any referenced packet is unknown, and
// ErrCharacteristicLengthMismatch if the mask length does not equal the
// total candidate count.
func (c *Conveyer) ApplyCharacteristic(characteristic types.Characteristic, sender crypto.PublicKey, previousHash types.PoolHash, sequence uint64) (types.Pool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	state := c.rounds[c.roundTable.Round]
	var candidates []types.Transaction
	for _, h := range c.roundTable.Hashes {
		p, ok := state.packets[h]
		if !ok {
			return types.Pool{}, types.ErrPacketMissing
		}
		candidates = append(candidates, p.Transactions()...)
	}

	if len(candidates) != characteristic.Size() {
		return types.Pool{}, types.ErrCharacteristicLengthMismatch
	}

	admitted := make([]types.Transaction, 0, len(candidates))
	for i, tx := range candidates {
		if characteristic.IsSet(i) {
			admitted = append(admitted, tx)
		}
	}

	return types.Pool{
		Sequence:     sequence,
		PreviousHash: previousHash,
		Timestamp:    time.Now(),
		Transactions: admitted,
		Writer:       sender,
	}, nil
}

// AddNotification records a writer-notification payload for the current
// round's quorum count.
func (c *Conveyer) AddNotification(payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state := c.currentRoundState()
	state.notifications = append(state.notifications, payload)
}

// Notifications returns the current round's collected notifications.
func (c *Conveyer) Notifications() [][]byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentRoundState().notifications
}

// NeededNotificationsCount returns the quorum size for confidants
// confidants: a strict majority excluding self, (confidants-1)/2.
func NeededNotificationsCount(confidants int) int {
	return (confidants - 1) / 2
}

// IsEnoughNotifications reports whether the current round's notification
// count satisfies state against the quorum for confidants.
func (c *Conveyer) IsEnoughNotifications(confidants int, state NotificationState) bool {
	c.mu.RLock()
	count := len(c.currentRoundState().notifications)
	c.mu.RUnlock()

	needed := NeededNotificationsCount(confidants)
	if state == NotificationEqual {
		return count == needed
	}
	return count >= needed
}

// currentRoundState must be called with c.mu held.
func (c *Conveyer) currentRoundState() *roundState {
	state, ok := c.rounds[c.roundTable.Round]
	if !ok {
		state = newRoundState()
		c.rounds[c.roundTable.Round] = state
	}
	return state
}
