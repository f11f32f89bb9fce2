package types

import "github.com/Stoner19/node/crypto"

// Characteristic is a round's admission bitmask: one byte per candidate
// transaction (0 or 1, not packed) so it can be hashed byte-for-byte the
// same way on every confidant regardless of host endianness or bit
// ordering.
type Characteristic struct {
	Mask []byte
}

// Size returns the number of candidate transactions the mask covers.
func (c Characteristic) Size() int { return len(c.Mask) }

// IsSet reports whether transaction i is admitted.
func (c Characteristic) IsSet(i int) bool {
	return i >= 0 && i < len(c.Mask) && c.Mask[i] != 0
}

// Hash returns the keyed blake2s hash of the mask, per the round
// characteristic hashing rule (empty masks hash a 4-byte zero instead).
func (c Characteristic) Hash() crypto.Hash {
	return crypto.HashCharacteristic(c.Mask)
}

// HashVector is one confidant's proposed characteristic hash for the
// round, exchanged during the vector phase of consensus.
type HashVector struct {
	Sender    uint8
	Hash      crypto.Hash
	Signature crypto.Signature
}

// HashMatrix aggregates every confidant's HashVector as observed by one
// sender, exchanged during the matrix phase.
type HashMatrix struct {
	Sender     uint8
	HashVector []HashVector
	Signature  crypto.Signature
}
