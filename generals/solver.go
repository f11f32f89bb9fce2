package generals

import (
	"github.com/Stoner19/node/crypto"
	"github.com/Stoner19/node/types"
)

// State is a node's consensus role for the current round, expressed as
// a tagged enum rather than the polymorphic state-object hierarchy
// (INodeState implementations) of the reference design — transitions
// are a plain (state, event) -> state function per state, which is both
// easier to test exhaustively and avoids a virtual dispatch per event.
type State int

const (
	// StateNormal is a non-confidant node (or a confidant between
	// rounds) passively applying blocks as they arrive.
	StateNormal State = iota
	// StateTrustedStage1 is a confidant waiting for the round's
	// transaction list to build its own vector.
	StateTrustedStage1
	// StateTrustedStage2 is a confidant waiting to collect enough peer
	// matrices before taking the writer decision.
	StateTrustedStage2
	// StateTrustedStage3 is a confidant that has taken the writer
	// decision and is waiting for the writer's block.
	StateTrustedStage3
	// StateWriting is the confidant selected as this round's writer.
	StateWriting
	// StateCollect is a confidant that missed its own vote window but
	// is still collecting the round's outcome from others.
	StateCollect
)

func (s State) String() string {
	switch s {
	case StateNormal:
		return "normal"
	case StateTrustedStage1:
		return "trusted-1"
	case StateTrustedStage2:
		return "trusted-2"
	case StateTrustedStage3:
		return "trusted-3"
	case StateWriting:
		return "writing"
	case StateCollect:
		return "collect"
	default:
		return "unknown"
	}
}

// Solver drives one node's per-round state transitions. It owns no
// network or persistence concerns; callers feed it events as they
// arrive and act on the state transitions it returns (e.g. broadcasting
// a vector on entry to StateTrustedStage2).
type Solver struct {
	state      State
	generals   *Generals
	self       crypto.PublicKey
	confidants []crypto.PublicKey

	deferredBlock *types.Pool
}

// NewSolver creates a solver bound to self's key and the given
// aggregator.
func NewSolver(self crypto.PublicKey, g *Generals) *Solver {
	return &Solver{state: StateNormal, generals: g, self: self}
}

// State returns the solver's current role.
func (s *Solver) State() State { return s.state }

func (s *Solver) isConfidant() bool {
	for _, c := range s.confidants {
		if c == s.self {
			return true
		}
	}
	return false
}

// OnRoundTable starts a new round with the given confidant set: a
// confidant enters StateTrustedStage1, any other node StateNormal. It
// does not flush a deferred block from a prior writing turn; that block
// stays held until the caller takes it with TakeDeferredBlock.
func (s *Solver) OnRoundTable(round uint32, confidants []crypto.PublicKey) State {
	s.confidants = confidants
	if s.isConfidant() {
		s.state = StateTrustedStage1
	} else {
		s.state = StateNormal
	}
	return s.state
}

// OnTransaction accepts a transaction event; it does not store the
// transaction and never changes the node's round state.
func (s *Solver) OnTransaction(tx types.Transaction) State {
	return s.state
}

// OnTransactionList receives a packet's transaction set for local
// characteristic computation (a confidant building its own vector).
func (s *Solver) OnTransactionList(packet *types.TransactionsPacket) State {
	if s.state != StateTrustedStage1 {
		return s.state
	}
	s.generals.BuildVector(packet)
	s.state = StateTrustedStage2
	return s.state
}

// OnVector receives a peer's proposed characteristic hash.
func (s *Solver) OnVector(vector types.HashVector, sender crypto.PublicKey) State {
	s.generals.AddVector(vector)
	return s.state
}

// OnMatrix receives a peer's aggregated view of every confidant's
// vector. Once in StateTrustedStage2, the caller is expected to have
// already fed enough matrices for the round; this method folds the
// given one in and leaves the state-advance decision (to
// StateTrustedStage3) to the caller, since "enough" is a quorum policy
// the solver itself does not own.
func (s *Solver) OnMatrix(matrix types.HashMatrix, sender crypto.PublicKey) State {
	s.generals.AddMatrix(matrix, s.confidants)
	return s.state
}

// AdvanceToDecision transitions StateTrustedStage2 -> StateTrustedStage3,
// taking the writer decision and, if self was chosen, immediately
// advancing to StateWriting.
func (s *Solver) AdvanceToDecision(lastPoolHash types.PoolHash) State {
	if s.state != StateTrustedStage2 {
		return s.state
	}
	writerIndex := s.generals.TakeDecision(s.confidants, lastPoolHash)
	s.state = StateTrustedStage3
	if int(writerIndex) < len(s.confidants) && s.confidants[writerIndex] == s.self {
		s.state = StateWriting
	}
	return s.state
}

// OnHash receives a final characteristic hash broadcast by the writer,
// used by confidants that did not independently reach StateTrustedStage3
// (StateCollect) to catch up.
func (s *Solver) OnHash(hash crypto.Hash, sender crypto.PublicKey) State {
	if s.state == StateNormal || s.state == StateCollect {
		s.state = StateCollect
	}
	return s.state
}

// OnBlock receives the round's finished pool from the writer and returns
// the node to StateNormal. In StateWriting the pool is kept as this
// node's deferred block for TakeDeferredBlock; OnBlock itself neither
// starts the next round nor flushes that block.
func (s *Solver) OnBlock(pool *types.Pool, sender crypto.PublicKey) State {
	if s.state == StateWriting {
		s.deferredBlock = pool
	}
	s.state = StateNormal
	return s.state
}

// TakeDeferredBlock returns and clears the block this node produced as
// writer, if any, so the caller can flush it on re-entry to Normal.
func (s *Solver) TakeDeferredBlock() *types.Pool {
	b := s.deferredBlock
	s.deferredBlock = nil
	return b
}
