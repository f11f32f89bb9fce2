package crypto

import (
	"golang.org/x/crypto/blake2s"
)

// HashSize is the length in bytes of a content hash.
const HashSize = 32

// Hash is a fixed-size blake2s-256 digest, used both for pool hashes and
// for the per-round characteristic hash.
type Hash [HashSize]byte

// characteristicKey is the 4-byte keyed-blake2s key used when hashing a
// round's characteristic mask. The key has no secrecy role; it simply
// domain-separates characteristic hashing from other blake2s usages.
var characteristicKey = [4]byte{'1', '2', '3', '4'}

// HashBytes returns the unkeyed blake2s-256 digest of b.
func HashBytes(b []byte) Hash {
	return Hash(blake2s.Sum256(b))
}

// HashCharacteristic hashes a round's characteristic mask (one byte per
// candidate transaction, 0 or 1) using keyed blake2s with the fixed
// 4-byte key. An empty mask hashes a single 32-bit zero value instead of
// zero bytes, matching the behavior of the reference aggregator.
func HashCharacteristic(mask []byte) Hash {
	h, err := blake2s.New256(characteristicKey[:])
	if err != nil {
		// the key is a compile-time constant of valid length; this
		// can only fail if blake2s's own invariants are violated.
		panic(err)
	}
	if len(mask) == 0 {
		h.Write([]byte{0, 0, 0, 0})
	} else {
		h.Write(mask)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// String returns a hex-encoded representation, useful for logs.
func (h Hash) String() string {
	const hextable = "0123456789abcdef"
	buf := make([]byte, len(h)*2)
	for i, b := range h {
		buf[i*2] = hextable[b>>4]
		buf[i*2+1] = hextable[b&0x0f]
	}
	return string(buf)
}
