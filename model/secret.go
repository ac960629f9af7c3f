package model

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// Secret is the 32-byte uniformly random preimage at the heart of an HTLC.
type Secret [32]byte

// SecretHash is SHA-256(Secret), the only HashFunction spec §3 currently
// defines.
type SecretHash [32]byte

// HashFunction identifies the hash used to bind a Secret to a SecretHash.
// Only SHA-256 exists today; the type exists so a second hash function can
// be negotiated later without changing the wire shape.
type HashFunction uint8

const HashFunctionSHA256 HashFunction = 0

func (h HashFunction) String() string {
	switch h {
	case HashFunctionSHA256:
		return "SHA-256"
	default:
		return fmt.Sprintf("unknown-hash-function(%d)", uint8(h))
	}
}

// NewSecret generates a fresh uniformly random Secret.
func NewSecret() (Secret, error) {
	var s Secret
	if _, err := rand.Read(s[:]); err != nil {
		return Secret{}, fmt.Errorf("generate secret: %w", err)
	}
	return s, nil
}

// Hash computes the SecretHash for this Secret under the given
// HashFunction.
func (s Secret) Hash(fn HashFunction) (SecretHash, error) {
	switch fn {
	case HashFunctionSHA256:
		return sha256.Sum256(s[:]), nil
	default:
		return SecretHash{}, fmt.Errorf("hash secret: %s", fn)
	}
}

// Matches reports whether this Secret hashes to want under fn, using a
// constant-time comparison since this check gates fund release.
func (s Secret) Matches(want SecretHash, fn HashFunction) bool {
	got, err := s.Hash(fn)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(got[:], want[:]) == 1
}

func (s Secret) String() string     { return hex.EncodeToString(s[:]) }
func (h SecretHash) String() string { return hex.EncodeToString(h[:]) }

// ParseSecretHash decodes the hex form carried in the SWAP request body's
// secret_hash field.
func ParseSecretHash(s string) (SecretHash, error) {
	var h SecretHash
	b, err := hex.DecodeString(s)
	if err != nil {
		return SecretHash{}, fmt.Errorf("parse secret hash: %w", err)
	}
	if len(b) != len(h) {
		return SecretHash{}, fmt.Errorf("parse secret hash: want %d bytes, got %d", len(h), len(b))
	}
	copy(h[:], b)
	return h, nil
}
