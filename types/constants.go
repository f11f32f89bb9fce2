package types

import "time"

// Protocol-wide constants. Mirrors the fixed tuning knobs of the
// reference consensus core; these are not meant to be runtime
// configurable, only overridable at build time for tests.
const (
	// MaxPacketTransactions is the number of transactions that force an
	// immediate packet seal, regardless of the flush timer.
	MaxPacketTransactions = 500

	// TransactionsPacketInterval is how often the Conveyer's flush timer
	// seals the currently open packet.
	TransactionsPacketInterval = 50 * time.Millisecond

	// HashTablesStorageCapacity bounds how many past rounds' packet
	// tables, needed-hash sets, notifications and characteristic meta
	// the Conveyer retains.
	HashTablesStorageCapacity = 5

	// TransactionsFlushRound is the round-relative packet flush age. The
	// Conveyer does not read it; it flushes on its timer and on capacity.
	TransactionsFlushRound = 2

	// PublicKeyLength is the byte length of a wallet public key.
	PublicKeyLength = 32
	// SignatureLength is the byte length of a detached signature.
	SignatureLength = 64
	// HashLength is the byte length of a content hash.
	HashLength = 32

	// WalletsPoolsCapacity bounds the per-wallet ring of pool-history
	// entries retained by WalletsPools.
	WalletsPoolsCapacity = 256

	// RoundDelay is the round tick period. Solver has no timer and does
	// not read it.
	RoundDelay = 1000 * time.Millisecond
	// TimeToAwaitActivity is how long a node waits for round activity
	// before treating the round as stalled.
	TimeToAwaitActivity = 300 * time.Millisecond
	// TimeToAwaitSSRound is how long a node waits for a start-stop round
	// signal before giving up and re-synchronizing.
	TimeToAwaitSSRound = 5000 * time.Millisecond

	// ConfidantsCountMax is the consensus-protocol ceiling on the number
	// of confidants in a single round, per the technical paper.
	ConfidantsCountMax = 101
)

// DefaultTransactionFee is the flat fee charged per transaction, capped
// at the transaction's own MaxFee. A single node-wide flat fee, rather
// than a fee market, matches the reference core's fixed-fee model.
var DefaultTransactionFee = Amount{Fraction: 1e6}
