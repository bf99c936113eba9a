package feed

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

const (
	// PublicKeyBytes is the verifying key width.
	PublicKeyBytes = ed25519.PublicKeySize
	// SecretKeyBytes is the signing key width: seed plus embedded
	// public half.
	SecretKeyBytes = ed25519.PrivateKeySize
)

// ValidateSecretKey re-derives the signing key from its raw bytes and
// only accepts bytes whose embedded public half matches the
// derivation. Anything else is ErrInvalidSecretKey; corrupt key
// material must never be accepted or silently dropped.
func ValidateSecretKey(raw []byte) (ed25519.PrivateKey, error) {
	if len(raw) != SecretKeyBytes {
		return nil, fmt.Errorf("%w: length %d != %d", ErrInvalidSecretKey, len(raw), SecretKeyBytes)
	}
	derived := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
	if !bytes.Equal(derived, raw) {
		return nil, fmt.Errorf("%w: embedded public key does not match derivation", ErrInvalidSecretKey)
	}
	return derived, nil
}

// GenerateKeyPair returns a fresh signing key pair for a new writable
// feed.
func GenerateKeyPair() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	pub, sec, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generate key pair: %w", err)
	}
	return pub, sec, nil
}
