// Package txvalidator implements the two-phase transaction admission
// check that Generals.buildVector runs over a round's candidate packet:
// a fast per-transaction local balance check (Phase A), followed by a
// graph-based eviction cascade (Phase B) that removes a negative
// wallet's most recent debit when that alone restores it, and otherwise
// all of its remaining debits, until every touched wallet has a
// non-negative balance.
package txvalidator

import (
	"github.com/Stoner19/node/crypto"
	"github.com/Stoner19/node/types"
	"github.com/Stoner19/node/wallets"
)

// Config tunes the validator's scratch-allocation sizing. The default
// mirrors the reference implementation's initial negative-node capacity
// hint; Go's slice growth makes the exact number far less load-bearing
// here than it was for the original's fixed-capacity container, but the
// field is kept so callers can still tune it for very large packets.
type Config struct {
	InitialNegativeNodesCapacity int
}

// DefaultConfig is used by New when no Config is supplied.
var DefaultConfig = Config{InitialNegativeNodesCapacity: 64}

type debitRecord struct {
	trxIndex int
	amount   int64
	removed  bool
}

type creditRecord struct {
	trxIndex int
	amount   int64
	source   crypto.PublicKey
	removed  bool
}

type node struct {
	key     crypto.PublicKey
	balance int64
	debits  []debitRecord
	credits []creditRecord
	queued  bool
}

// Validator runs Phase A/Phase B admission over one round's candidate
// packet against a working snapshot of wallet balances.
type Validator struct {
	config Config
	cache  *wallets.Cache
	ids    *wallets.Ids

	nodes         map[crypto.PublicKey]*node
	negativeNodes []*node
	cntRemoved    int
}

// New creates a validator reading initial balances from cache, resolving
// wallet ids via ids (used only to decide whether a target wallet is
// new; the validator itself keys all working state by public key).
func New(cache *wallets.Cache, ids *wallets.Ids, config Config) *Validator {
	return &Validator{config: config, cache: cache, ids: ids}
}

// Reset prepares the validator for a packet of transactionsNum
// candidates, discarding any prior round's working state.
func (v *Validator) Reset(transactionsNum int) {
	v.nodes = make(map[crypto.PublicKey]*node, transactionsNum)
	v.negativeNodes = v.negativeNodes[:0]
	v.cntRemoved = 0
}

func (v *Validator) getNode(key crypto.PublicKey) *node {
	if n, ok := v.nodes[key]; ok {
		return n
	}
	n := &node{key: key}
	if id, ok := v.ids.Find(key); ok {
		if data, ok := v.cache.Get(id); ok {
			n.balance = data.Balance.Fixed()
		}
	}
	v.nodes[key] = n
	return n
}

func (v *Validator) pushIfNegative(n *node) {
	if n.balance < 0 && !n.queued {
		n.queued = true
		v.negativeNodes = append(v.negativeNodes, n)
	}
}

// ValidateTransaction runs Phase A for candidate i: a target existence
// check (always satisfiable — unseen targets are simply created) and a
// tentative source debit of amount+maxFee. It always sets the
// transaction's characteristic bit; Phase B (ValidateByGraph) is what
// may later clear it.
func (v *Validator) ValidateTransaction(tx types.Transaction, i int) bool {
	debit := tx.Amount.Add(tx.MaxFee).Fixed()

	source := v.getNode(tx.Source)
	source.balance -= debit
	source.debits = append(source.debits, debitRecord{trxIndex: i, amount: debit})
	v.pushIfNegative(source)

	target := v.getNode(tx.Target)
	target.balance += tx.Amount.Fixed()
	target.credits = append(target.credits, creditRecord{trxIndex: i, amount: tx.Amount.Fixed(), source: tx.Source})

	return true
}

// ValidateByGraph runs Phase B: pops each wallet that ended Phase A (or
// a cascade step) with a negative tentative balance and evicts its
// debits (see evict) to restore non-negativity, propagating the
// knock-on credit loss to any wallet that received from an evicted
// transaction. mask[i] is cleared for every evicted transaction i.
// trxs must be the same candidate slice indices were assigned against.
func (v *Validator) ValidateByGraph(mask []byte, trxs []types.Transaction) {
	for len(v.negativeNodes) > 0 {
		n := v.negativeNodes[len(v.negativeNodes)-1]
		v.negativeNodes = v.negativeNodes[:len(v.negativeNodes)-1]
		n.queued = false

		if n.balance >= 0 {
			// already fixed by an earlier cascade step that happened to
			// restore this wallet via a different path.
			continue
		}
		v.evict(n, mask, trxs)
	}
}

// evict implements the PositiveOne / PositiveAll eviction rule for a
// wallet whose tentative balance is negative, regardless of whether the
// negativity originated from its own over-debit (the Phase A path) or
// from losing a credit during a prior cascade step (the NegativeOne /
// NegativeAll path in the reference design) — both cases reduce to "undo
// the most recent debit if that alone makes the wallet solvent, else
// undo all of its remaining debits".
func (v *Validator) evict(n *node, mask []byte, trxs []types.Transaction) {
	// find the most recent, not-yet-removed debit
	last := -1
	for i := len(n.debits) - 1; i >= 0; i-- {
		if !n.debits[i].removed {
			last = i
			break
		}
	}
	if last == -1 {
		return
	}

	// PositiveOne: removing just the most recent debit is enough.
	if n.balance+n.debits[last].amount >= 0 {
		v.removeDebit(n, last, mask, trxs)
		return
	}

	// PositiveAll: remove every remaining debit for this wallet.
	for i := len(n.debits) - 1; i >= 0; i-- {
		if n.debits[i].removed {
			continue
		}
		v.removeDebit(n, i, mask, trxs)
	}
}

func (v *Validator) removeDebit(n *node, idx int, mask []byte, trxs []types.Transaction) {
	d := &n.debits[idx]
	d.removed = true
	n.balance += d.amount
	if mask[d.trxIndex] != 0 {
		mask[d.trxIndex] = 0
		v.cntRemoved++
	}

	// undo the matching credit on the target wallet (NegativeOne /
	// NegativeAll: losing this credit may push the target negative,
	// re-queuing it for its own eviction pass).
	tx := trxs[d.trxIndex]
	target := v.getNode(tx.Target)
	target.balance -= tx.Amount.Fixed()
	v.pushIfNegative(target)
}

// CntRemovedTrxs returns how many transactions Phase B evicted.
func (v *Validator) CntRemovedTrxs() int {
	return v.cntRemoved
}
