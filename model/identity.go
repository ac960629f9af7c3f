package model

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Identity is a per-ledger actor reference: a 33-byte compressed secp256k1
// public key on Bitcoin, a 20-byte address on Ethereum. It is stored as a
// fixed 33-byte array with the Ethereum form left-padded with zero bytes in
// the high positions (bytes [0:13]) so the zero value has an unambiguous
// "unset" meaning regardless of ledger kind.
type Identity struct {
	Kind  LedgerKind
	bytes [33]byte
}

// BitcoinIdentity wraps a 33-byte compressed public key.
func BitcoinIdentity(pubKey [33]byte) Identity {
	return Identity{Kind: LedgerBitcoin, bytes: pubKey}
}

// EthereumIdentity wraps a 20-byte address.
func EthereumIdentity(addr [20]byte) Identity {
	id := Identity{Kind: LedgerEthereum}
	copy(id.bytes[13:], addr[:])
	return id
}

// BitcoinPubKey returns the 33-byte compressed public key. Panics if Kind is
// not LedgerBitcoin, mirroring the teacher's convention of panicking on
// accessing the wrong variant of a tagged union only in programmer-error
// paths, never on untrusted input.
func (id Identity) BitcoinPubKey() [33]byte {
	if id.Kind != LedgerBitcoin {
		panic("model: BitcoinPubKey called on non-Bitcoin identity")
	}
	return id.bytes
}

// EthereumAddress returns the 20-byte address.
func (id Identity) EthereumAddress() [20]byte {
	if id.Kind != LedgerEthereum {
		panic("model: EthereumAddress called on non-Ethereum identity")
	}
	var addr [20]byte
	copy(addr[:], id.bytes[13:])
	return addr
}

// ParseIdentity decodes the hex form of an identity for the given ledger
// kind, inverting String: no "0x" prefix for a Bitcoin compressed pubkey,
// a mandatory "0x" prefix for an Ethereum address, per spec §6.
func ParseIdentity(kind LedgerKind, s string) (Identity, error) {
	switch kind {
	case LedgerBitcoin:
		b, err := hex.DecodeString(s)
		if err != nil {
			return Identity{}, fmt.Errorf("parse bitcoin identity: %w", err)
		}
		if len(b) != 33 {
			return Identity{}, fmt.Errorf("parse bitcoin identity: want 33 bytes, got %d", len(b))
		}
		var pk [33]byte
		copy(pk[:], b)
		return BitcoinIdentity(pk), nil
	case LedgerEthereum:
		if !strings.HasPrefix(s, "0x") {
			return Identity{}, fmt.Errorf("parse ethereum identity: missing 0x prefix")
		}
		b, err := hex.DecodeString(s[2:])
		if err != nil {
			return Identity{}, fmt.Errorf("parse ethereum identity: %w", err)
		}
		if len(b) != 20 {
			return Identity{}, fmt.Errorf("parse ethereum identity: want 20 bytes, got %d", len(b))
		}
		var addr [20]byte
		copy(addr[:], b)
		return EthereumIdentity(addr), nil
	default:
		return Identity{}, fmt.Errorf("parse identity: unknown ledger kind %s", kind)
	}
}

// identityWire is Identity's CBOR wire shape: Identity's byte payload is
// unexported (to keep the zero value ledger-agnostic), so the default
// reflection-based codec would silently drop it. MarshalCBOR/UnmarshalCBOR
// route through this mirror instead.
type identityWire struct {
	Kind  LedgerKind
	Bytes [33]byte
}

// MarshalCBOR implements cbor.Marshaler.
func (id Identity) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(identityWire{Kind: id.Kind, Bytes: id.bytes})
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (id *Identity) UnmarshalCBOR(data []byte) error {
	var w identityWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return err
	}
	id.Kind = w.Kind
	id.bytes = w.Bytes
	return nil
}

// String hex-encodes the identity per the wire rules of spec §6: no "0x"
// prefix for Bitcoin pubkeys, "0x" prefix for Ethereum addresses.
func (id Identity) String() string {
	switch id.Kind {
	case LedgerBitcoin:
		pk := id.BitcoinPubKey()
		return hex.EncodeToString(pk[:])
	case LedgerEthereum:
		addr := id.EthereumAddress()
		return "0x" + hex.EncodeToString(addr[:])
	default:
		return "identity(unset)"
	}
}
