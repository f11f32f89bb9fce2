// Package generals implements the per-round hash-vector/hash-matrix
// consensus aggregation: each confidant locally computes a characteristic
// via the transactions validator, exchanges its hash with peers (the
// vector phase), aggregates peers' vectors into a per-sender consensus
// hash (the matrix phase), and finally derives a writer index from the
// previous pool's hash.
package generals

import (
	"github.com/Stoner19/node/build"
	"github.com/Stoner19/node/crypto"
	"github.com/Stoner19/node/txvalidator"
	"github.com/Stoner19/node/types"
)

// HashWeight pairs a candidate consensus hash with how many matrix
// slots agreed on it.
type HashWeight struct {
	Hash   crypto.Hash
	Weight uint32
}

// Generals aggregates one round's vectors and matrices and produces the
// admitted characteristic plus the selected writer.
//
// addMatrix previously relied on a fixed 101-wide scratch array and a
// counter (i_max) that was only initialized on the first loop iteration
// taken — any code path that skipped that iteration read i_max
// uninitialized. Here the per-call scratch table is a plain Go slice
// that grows with append, so there is no uninitialized-counter hazard
// and no implicit ceiling beyond the protocol's own confidant-count
// limit (types.ConfidantsCountMax), which is checked explicitly.
type Generals struct {
	validator *txvalidator.Validator

	characteristic types.Characteristic
	vectors        map[uint8]types.HashVector
	findUntrusted  map[uint8][]int
	newTrusted     []uint32
	hwTotal        map[uint8]HashWeight

	writerPublicKey crypto.PublicKey
}

// New creates a Generals aggregator driven by the given transactions
// validator.
func New(validator *txvalidator.Validator) *Generals {
	return &Generals{validator: validator}
}

// BuildVector runs Phase A/B transaction admission over packet via the
// validator, producing this round's characteristic and its hash. An
// empty packet hashes a single 32-bit zero instead of zero mask bytes,
// matching the boundary behavior of the reference aggregator. It also
// resets the per-round vector/matrix aggregation buffers.
func (g *Generals) BuildVector(packet *types.TransactionsPacket) crypto.Hash {
	n := packet.TransactionsCount()
	mask := make([]byte, n)

	if n > 0 {
		trxs := packet.Transactions()
		g.validator.Reset(n)
		for i, tx := range trxs {
			if g.validator.ValidateTransaction(tx, i) {
				mask[i] = 1
			}
		}
		g.validator.ValidateByGraph(mask, trxs)
	}

	g.characteristic = types.Characteristic{Mask: mask}
	hash := g.characteristic.Hash()

	g.vectors = make(map[uint8]types.HashVector)
	g.findUntrusted = make(map[uint8][]int)
	g.newTrusted = nil
	g.hwTotal = make(map[uint8]HashWeight)

	return crypto.Hash(hash)
}

// AddVector stores a confidant's proposed characteristic hash.
func (g *Generals) AddVector(vector types.HashVector) {
	g.vectors[vector.Sender] = vector
}

// AddMatrix folds one sender's view of every confidant's vector into
// the aggregation tables: a per-sender winning (hash, weight) tuple in
// hwTotal, and a per-confidant agreement tally in newTrusted.
func (g *Generals) AddMatrix(matrix types.HashMatrix, confidants []crypto.PublicKey) {
	nodesAmount := len(confidants)
	if nodesAmount > types.ConfidantsCountMax {
		build.Severe("generals: confidant count exceeds protocol ceiling", nodesAmount)
		return
	}

	hw := make([]HashWeight, 0, nodesAmount)
	findUntrusted := make([]int, nodesAmount)

	for i := 0; i < nodesAmount; i++ {
		var vecHash crypto.Hash
		if i < len(matrix.HashVector) {
			vecHash = matrix.HashVector[i].Hash
		}

		found := -1
		for idx := range hw {
			if hw[idx].Hash == vecHash {
				found = idx
				break
			}
		}
		if found == -1 {
			hw = append(hw, HashWeight{Hash: vecHash, Weight: 1})
			findUntrusted[i] = len(hw) - 1
		} else {
			hw[found].Weight++
			findUntrusted[i] = found
		}
	}

	maxIdx := 0
	for idx := 1; idx < len(hw); idx++ {
		if hw[idx].Weight > hw[maxIdx].Weight {
			maxIdx = idx
		}
	}

	j := matrix.Sender
	g.hwTotal[j] = hw[maxIdx]
	g.findUntrusted[j] = findUntrusted

	if len(g.newTrusted) < nodesAmount {
		grown := make([]uint32, nodesAmount)
		copy(grown, g.newTrusted)
		g.newTrusted = grown
	}
	for i := 0; i < nodesAmount; i++ {
		if findUntrusted[i] == maxIdx {
			g.newTrusted[i]++
		}
	}
}

// TakeDecision reduces hwTotal across submitters, checks each
// confidant's agreement tally against the trusted threshold (a confidant
// that falls short is neither logged nor penalized), and derives the writer index deterministically
// from lastPoolHash's first byte. Writer selection is independent of
// matrix content: matrices authenticate participation, not the pick.
func (g *Generals) TakeDecision(confidants []crypto.PublicKey, lastPoolHash types.PoolHash) uint8 {
	nodesAmount := len(confidants)

	hw := make([]HashWeight, 0, nodesAmount)
	for j := 0; j < nodesAmount; j++ {
		wt, ok := g.hwTotal[uint8(j)]
		if !ok {
			continue
		}
		found := -1
		for idx := range hw {
			if hw[idx].Hash == wt.Hash {
				found = idx
				break
			}
		}
		if found == -1 {
			hw = append(hw, HashWeight{Hash: wt.Hash, Weight: 1})
		} else {
			hw[found].Weight++
		}
	}

	trustedLimit := uint32(nodesAmount/2 + 1)
	for i := 0; i < nodesAmount; i++ {
		if i >= len(g.newTrusted) || g.newTrusted[i] < trustedLimit {
			// a confidant below the threshold is skipped: it is not
			// logged and not slashed.
			continue
		}
	}

	result := uint8(int(lastPoolHash[0]) % nodesAmount)
	g.writerPublicKey = confidants[result]
	return result
}

// Characteristic returns the current round's admission mask.
func (g *Generals) Characteristic() types.Characteristic { return g.characteristic }

// WriterPublicKey returns the key selected by the most recent
// TakeDecision call.
func (g *Generals) WriterPublicKey() crypto.PublicKey { return g.writerPublicKey }
