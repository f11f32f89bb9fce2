package types

import (
	"io"
	"time"

	"github.com/Stoner19/node/crypto"
	"github.com/Stoner19/node/encoding/wirebin"
)

// PoolHash is the content hash of a Pool, computed over its wire
// encoding excluding the pool-level signatures.
type PoolHash crypto.Hash

// String returns a hex representation for logs.
func (h PoolHash) String() string { return crypto.Hash(h).String() }

// NewWalletEntry names a wallet address first seen within this pool.
// ID is carried on the wire but not filled in by CreateBlock and not
// read when a pool is recorded; ids come from the chain's Ids registry.
type NewWalletEntry struct {
	Address crypto.PublicKey
	ID      WalletId
}

// PoolSignature is one confidant's signature over a pool's hash.
type PoolSignature struct {
	ConfidantIndex uint8
	Signature      crypto.Signature
}

// Pool is a block: an ordered batch of admitted transactions, produced
// by the round's writer and appended to the chain.
type Pool struct {
	Sequence        uint64
	PreviousHash    PoolHash
	Timestamp       time.Time
	Transactions    []Transaction
	NewWallets      []NewWalletEntry
	Signatures      []PoolSignature
	Writer          crypto.PublicKey
	WriterSignature crypto.Signature
}

// IsGenesis reports whether p is the chain's first pool.
func (p Pool) IsGenesis() bool { return p.Sequence == 0 }

// contentBytes returns the wire encoding of everything except the
// pool-level signatures, matching the reference "pool wire format"
// framing in which signatures trail the rest of the structure.
func (p Pool) contentBytes() []byte {
	b, err := wirebin.MarshalAll(
		p.Sequence,
		p.PreviousHash,
		uint64(p.Timestamp.UnixNano()),
		p.Transactions,
		p.NewWallets,
		p.Writer,
	)
	if err != nil {
		panic(err)
	}
	return b
}

// Hash computes the content-addressed PoolHash of p.
func (p Pool) Hash() PoolHash {
	return PoolHash(crypto.HashBytes(p.contentBytes()))
}

// Sign returns a copy of p with WriterSignature set to sk's signature
// over p.Hash(). sk must correspond to p.Writer.
func (p Pool) Sign(sk crypto.SecretKey) Pool {
	p.WriterSignature = crypto.SignHash(p.Hash(), sk)
	return p
}

// VerifyWriterSignature reports whether WriterSignature is a valid
// signature by Writer over p.Hash().
func (p Pool) VerifyWriterSignature() bool {
	return crypto.VerifyHash(p.Hash(), p.Writer, p.WriterSignature) == nil
}

// MarshalWire writes the full wire encoding of p, signatures included:
// the content bytes (u64 sequence, 32B prev_hash, u64 Unix-nanosecond
// timestamp, transactions, new wallets, writer key) as one
// length-prefixed byte slice, then writer_sig, then the length-prefixed
// (u8 idx, sig) list. The timestamp is a fixed 8-byte integer, not a
// variable-length byte string.
func (p Pool) MarshalWire(w io.Writer) error {
	enc := wirebin.NewEncoder(w)
	if err := enc.Encode(p.contentBytes()); err != nil {
		return err
	}
	if err := enc.Encode(p.WriterSignature); err != nil {
		return err
	}
	return enc.Encode(p.Signatures)
}

// UnmarshalPool is the inverse of MarshalWire.
func UnmarshalPool(data []byte) (Pool, error) {
	var content []byte
	var writerSig crypto.Signature
	var signatures []PoolSignature
	if err := wirebin.UnmarshalAll(data, &content, &writerSig, &signatures); err != nil {
		return Pool{}, err
	}

	var p Pool
	var timestampNano uint64
	if err := wirebin.UnmarshalAll(content,
		&p.Sequence,
		&p.PreviousHash,
		&timestampNano,
		&p.Transactions,
		&p.NewWallets,
		&p.Writer,
	); err != nil {
		return Pool{}, err
	}
	p.Timestamp = time.Unix(0, int64(timestampNano))
	p.WriterSignature = writerSig
	p.Signatures = signatures
	return p, nil
}
