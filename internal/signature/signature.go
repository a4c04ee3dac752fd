// Package signature verifies and produces message signatures.
//
// Verification is a pure function of its inputs and fails closed: malformed
// keys, malformed signatures and unsupported schemes all yield false.
package signature

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha512"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/rivervm/internal/message"
)

var (
	ErrUnsupportedScheme = errors.New("unsupported signature scheme")
	ErrInvalidPrivateKey = errors.New("invalid Ed25519 private key")
)

// ed25519ph signs the SHA-512 of the content hash (RFC 8032 Ed25519ph).
var phOptions = &ed25519.Options{Hash: crypto.SHA512}

// Verify reports whether sig is a valid signature by key over contentHash.
func Verify(alg message.SignatureAlgorithm, sig, contentHash, key []byte) bool {
	switch alg {
	case message.SignatureEd25519:
		return verifyEd25519ph(sig, contentHash, key)
	default:
		return false
	}
}

func verifyEd25519ph(sig, contentHash, key []byte) bool {
	if len(key) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	digest := sha512.Sum512(contentHash)
	return ed25519.VerifyWithOptions(ed25519.PublicKey(key), digest[:], sig, phOptions) == nil
}

// Sign signs contentHash with priv under alg.
func Sign(alg message.SignatureAlgorithm, priv ed25519.PrivateKey, contentHash []byte) ([]byte, error) {
	if alg != message.SignatureEd25519 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedScheme, alg)
	}
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: must be %d bytes, got %d", ErrInvalidPrivateKey, ed25519.PrivateKeySize, len(priv))
	}
	digest := sha512.Sum512(contentHash)
	return priv.Sign(nil, digest[:], phOptions)
}

// GenerateKey returns a new Ed25519 key pair drawn from r, or crypto/rand when r is nil.
func GenerateKey(r io.Reader) (ed25519.PublicKey, ed25519.PrivateKey, error) {
	if r == nil {
		r = rand.Reader
	}
	return ed25519.GenerateKey(r)
}

// KeyFromSeed derives a private key from a 32-byte seed.
func KeyFromSeed(seed []byte) (ed25519.PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: seed must be %d bytes, got %d", ErrInvalidPrivateKey, ed25519.SeedSize, len(seed))
	}
	return ed25519.NewKeyFromSeed(seed), nil
}
