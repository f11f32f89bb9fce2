package crypto

import (
	"bytes"
	"errors"

	"github.com/NebulousLabs/fastrand"
	"golang.org/x/crypto/ed25519"

	"github.com/Stoner19/node/build"
)

const (
	// PublicKeySize is the length in bytes of a wallet public key.
	PublicKeySize = ed25519.PublicKeySize
	// SecretKeySize is the length in bytes of a signing secret key.
	SecretKeySize = ed25519.PrivateKeySize
	// SignatureSize is the length in bytes of a signature.
	SignatureSize = ed25519.SignatureSize
)

type (
	// PublicKey identifies a wallet and verifies signatures produced by
	// the matching SecretKey.
	PublicKey [PublicKeySize]byte

	// SecretKey signs hashes on behalf of a PublicKey.
	SecretKey [SecretKeySize]byte

	// Signature is a detached ed25519 signature over a 32-byte hash.
	Signature [SignatureSize]byte
)

// ErrInvalidSignature is returned by VerifyHash when a signature does not
// validate against the given public key and hash.
var ErrInvalidSignature = errors.New("crypto: invalid signature")

// GenerateKeyPair creates a new, random public/secret key pair.
func GenerateKeyPair() (sk SecretKey, pk PublicKey) {
	pub, priv, err := ed25519.GenerateKey(fastrand.Reader)
	if err != nil {
		build.Critical("crypto: failed to generate key pair:", err)
	}
	copy(sk[:], priv)
	copy(pk[:], pub)
	return
}

// GenerateKeyPairDeterministic creates a public/secret key pair from a
// 32-byte seed. Identical seeds always produce identical key pairs; used
// by tests and by genesis-wallet provisioning.
func GenerateKeyPairDeterministic(entropy [32]byte) (sk SecretKey, pk PublicKey) {
	priv := ed25519.NewKeyFromSeed(entropy[:])
	pub := priv.Public().(ed25519.PublicKey)
	copy(sk[:], priv)
	copy(pk[:], pub)
	return
}

// SignHash signs a 32-byte hash with sk, producing a detached signature.
func SignHash(hash [32]byte, sk SecretKey) Signature {
	sig := ed25519.Sign(ed25519.PrivateKey(sk[:]), hash[:])
	var out Signature
	copy(out[:], sig)
	return out
}

// VerifyHash verifies that sig is a valid signature of hash under pk.
func VerifyHash(hash [32]byte, pk PublicKey, sig Signature) error {
	if !ed25519.Verify(ed25519.PublicKey(pk[:]), hash[:], sig[:]) {
		return ErrInvalidSignature
	}
	return nil
}

// Equal reports whether two public keys are identical.
func (pk PublicKey) Equal(other PublicKey) bool {
	return bytes.Equal(pk[:], other[:])
}

// String returns a hex-encoded representation, useful for logs.
func (pk PublicKey) String() string {
	const hextable = "0123456789abcdef"
	buf := make([]byte, len(pk)*2)
	for i, b := range pk {
		buf[i*2] = hextable[b>>4]
		buf[i*2+1] = hextable[b&0x0f]
	}
	return string(buf)
}
