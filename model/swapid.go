// Package model holds the wire-shared data types of the swap protocol:
// identifiers, ledgers, assets, identities and the Request/Accept/Decline
// messages that the negotiation protocol and the swap state machine both
// need without importing one another.
package model

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// SwapId is an opaque 128-bit identifier, unique per swap.
type SwapId [16]byte

// NewSwapId generates a fresh, uniformly random SwapId.
func NewSwapId() (SwapId, error) {
	var id SwapId
	if _, err := rand.Read(id[:]); err != nil {
		return SwapId{}, fmt.Errorf("generate swap id: %w", err)
	}
	return id, nil
}

// String renders the id as lowercase hex, the form used on the wire and in
// log lines.
func (id SwapId) String() string {
	return hex.EncodeToString(id[:])
}

// ParseSwapId decodes a hex-encoded SwapId as produced by String.
func ParseSwapId(s string) (SwapId, error) {
	var id SwapId
	b, err := hex.DecodeString(s)
	if err != nil {
		return SwapId{}, fmt.Errorf("parse swap id: %w", err)
	}
	if len(b) != len(id) {
		return SwapId{}, fmt.Errorf("parse swap id: want %d bytes, got %d",
			len(id), len(b))
	}
	copy(id[:], b)
	return id, nil
}

// MarshalJSON implements json.Marshaler so SwapId round-trips through the
// negotiation protocol's JSON frames as a hex string.
func (id SwapId) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *SwapId) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("parse swap id: not a JSON string")
	}
	parsed, err := ParseSwapId(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
