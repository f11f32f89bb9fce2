package types

import (
	"errors"
	"fmt"

	"github.com/Stoner19/node/build"
)

// ErrorKind classifies a ClientError the way the core itself
// distinguishes outcomes: structural problems it refuses to retry,
// transient ones worth retrying, consensus-level skips, and
// per-transaction validation rejections.
type ErrorKind int

const (
	// ErrorKindStructural marks a malformed input: bad sequence number,
	// missing previous hash, truncated wire data. Never retried.
	ErrorKindStructural ErrorKind = iota
	// ErrorKindTransient marks a failure worth retrying with back-off,
	// such as a database I/O error.
	ErrorKindTransient
	// ErrorKindConsensus marks a round-level outcome: insufficient
	// notifications, missing needed hashes at round end.
	ErrorKindConsensus
	// ErrorKindValidation marks a single transaction rejected on its own
	// merits (bad signature, insufficient balance, invalid fee).
	ErrorKindValidation
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindStructural:
		return "structural"
	case ErrorKindTransient:
		return "transient"
	case ErrorKindConsensus:
		return "consensus"
	case ErrorKindValidation:
		return "validation"
	default:
		build.Severe("types: unknown error kind", int(k))
		return "unknown"
	}
}

// ClientError wraps an underlying error with the outcome kind the core
// uses to decide whether to retry, log-and-drop, or surface to a caller.
type ClientError struct {
	Err  error
	Kind ErrorKind
}

// NewClientError wraps err with the given kind.
func NewClientError(err error, kind ErrorKind) ClientError {
	if kind < ErrorKindStructural || kind > ErrorKindValidation {
		build.Severe("types: invalid error kind", int(kind))
	}
	return ClientError{Err: err, Kind: kind}
}

func (ce ClientError) Error() string {
	return fmt.Sprintf("%s: %v", ce.Kind, ce.Err)
}

func (ce ClientError) Unwrap() error { return ce.Err }

var (
	// ErrBadSequence is returned when a pool's sequence number does not
	// fit the append point (neither the expected next sequence nor a
	// plausible out-of-order successor).
	ErrBadSequence = errors.New("types: pool sequence is not a valid successor")
	// ErrMissingPrevHash is returned when a pool's declared previous
	// hash does not match the chain tip it claims to extend.
	ErrMissingPrevHash = errors.New("types: pool previous hash does not match chain tip")
	// ErrUnknownWallet is returned when a transaction references a
	// wallet id with no corresponding public key binding.
	ErrUnknownWallet = errors.New("types: unknown wallet id")
	// ErrPacketHashFrozen is returned by TransactionsPacket.AddTransaction
	// once the packet's hash has already been computed.
	ErrPacketHashFrozen = errors.New("types: cannot modify a transactions packet after its hash is frozen")
	// ErrPacketMissing is returned by Conveyer.ApplyCharacteristic when a
	// round-table hash has no corresponding known packet.
	ErrPacketMissing = errors.New("types: referenced transactions packet is not known")
	// ErrCharacteristicLengthMismatch is returned when a characteristic
	// mask's length does not equal the round's candidate transaction
	// count.
	ErrCharacteristicLengthMismatch = errors.New("types: characteristic length does not match candidate count")
	// ErrInvalidPoolSignature is returned when a pool's WriterSignature
	// does not verify against Writer over the pool's content hash.
	ErrInvalidPoolSignature = errors.New("types: pool writer signature does not verify")
)
