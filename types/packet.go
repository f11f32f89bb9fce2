package types

import (
	"github.com/Stoner19/node/crypto"
	"github.com/Stoner19/node/encoding/wirebin"
)

// TransactionsPacketHash identifies a packet by the content hash of its
// transaction subsequence alone; signatures are excluded so that
// collecting confidant signatures after the fact never changes the
// packet's identity.
type TransactionsPacketHash crypto.Hash

func (h TransactionsPacketHash) String() string { return crypto.Hash(h).String() }

// PacketSignature is one confidant's signature over a packet's hash.
type PacketSignature struct {
	ConfidantIndex uint8
	Signature      crypto.Signature
}

// TransactionsPacket is a content-addressed, ordered batch of
// transactions circulated between confidants during a round. Its hash is
// computed lazily on first access and then frozen: further mutation is
// rejected, so a packet handed out by reference can never have its
// identity change under a caller holding it.
type TransactionsPacket struct {
	transactions []Transaction
	signatures   []PacketSignature
	hash         TransactionsPacketHash
	hashed       bool
}

// NewTransactionsPacket creates an empty, unhashed packet.
func NewTransactionsPacket() *TransactionsPacket {
	return &TransactionsPacket{}
}

// AddTransaction appends tx to the packet. Returns ErrPacketHashFrozen
// once the packet's hash has been computed.
func (p *TransactionsPacket) AddTransaction(tx Transaction) error {
	if p.hashed {
		return ErrPacketHashFrozen
	}
	p.transactions = append(p.transactions, tx)
	return nil
}

// AddSignature appends a confidant's signature over the packet's hash.
// Adding a signature does not itself require the hash to already be
// frozen, but computing the hash afterward still only covers
// transactions.
func (p *TransactionsPacket) AddSignature(sig PacketSignature) {
	p.signatures = append(p.signatures, sig)
}

// Transactions returns the packet's transaction subsequence.
func (p *TransactionsPacket) Transactions() []Transaction {
	return p.transactions
}

// TransactionsCount returns the number of candidate transactions.
func (p *TransactionsPacket) TransactionsCount() int {
	return len(p.transactions)
}

// Signatures returns the collected confidant signatures.
func (p *TransactionsPacket) Signatures() []PacketSignature {
	return p.signatures
}

// Hash computes (on first call) and returns the packet's content hash
// over its transaction subsequence, freezing it against further
// mutation.
func (p *TransactionsPacket) Hash() TransactionsPacketHash {
	if p.hashed {
		return p.hash
	}
	b, err := wirebin.Marshal(p.transactions)
	if err != nil {
		panic(err)
	}
	p.hash = TransactionsPacketHash(crypto.HashBytes(b))
	p.hashed = true
	return p.hash
}

// IsHashed reports whether the packet's hash has been computed and the
// packet is therefore frozen against AddTransaction.
func (p *TransactionsPacket) IsHashed() bool {
	return p.hashed
}

// MarshalWire writes the transactions sub-sequence followed optionally
// by the signatures sub-sequence, per the packet wire format.
func (p *TransactionsPacket) MarshalWire(includeSignatures bool) ([]byte, error) {
	if includeSignatures {
		return wirebin.MarshalAll(p.transactions, p.signatures)
	}
	return wirebin.Marshal(p.transactions)
}

// UnmarshalTransactionsPacket decodes a packet from its wire transaction
// subsequence, optionally followed by a signatures subsequence.
func UnmarshalTransactionsPacket(data []byte, withSignatures bool) (*TransactionsPacket, error) {
	p := NewTransactionsPacket()
	if withSignatures {
		if err := wirebin.UnmarshalAll(data, &p.transactions, &p.signatures); err != nil {
			return nil, err
		}
	} else {
		if err := wirebin.Unmarshal(data, &p.transactions); err != nil {
			return nil, err
		}
	}
	return p, nil
}
