// Package keyoracle implements the per-swap signer oracle (the "consumed
// contract" htlc/btc.Signer and the Ethereum equivalent): it derives a
// deterministic keypair for every (swap id, role) pair from a single master
// seed and signs with it, so the daemon never needs a round trip to key
// storage to discover which key backs a given swap's HTLC identity.
//
// HMAC-SHA512 child-key derivation off one root seed mirrors the
// signer-controller shape lnwallet/btcwallet use (a wallet's rootkey fans
// out into per-purpose child keys via HMAC, and only the rootkey is ever
// persisted at rest); btcec/v2 supplies the secp256k1 arithmetic both
// ledgers' HTLC identities ultimately rest on.
package keyoracle

import (
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha512"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/comitswap/swapd/htlc/btc"
	"github.com/comitswap/swapd/model"
)

const seedSize = 32

// Oracle derives and signs with per-(swap,role) keypairs. A derived private
// key lives only for the duration of the call that needs it; Oracle itself
// holds nothing more sensitive than the root seed.
type Oracle struct {
	seed [seedSize]byte
}

// New constructs an Oracle from a master seed. The seed is the daemon's one
// piece of durable key material: losing it loses every identity it ever
// derived, and an attacker who recovers it recovers all of them.
func New(seed [seedSize]byte) *Oracle {
	return &Oracle{seed: seed}
}

// purpose strings namespace derivation so the same (swap, role) pair never
// yields the same scalar on both ledgers.
const (
	purposeBitcoinHTLC  = "comitswap/htlc/bitcoin"
	purposeEthereumHTLC = "comitswap/htlc/ethereum"
)

// derive folds (swapId, role, purpose, counter) through HMAC-SHA512(seed,
// ...) into a scalar mod the secp256k1 group order, retrying with an
// incremented counter on the vanishingly unlikely chance the raw digest
// reduces to zero.
func (o *Oracle) derive(swapId model.SwapId, role model.Role, purpose string) *btcec.PrivateKey {
	for counter := byte(0); ; counter++ {
		mac := hmac.New(sha512.New, o.seed[:])
		mac.Write(swapId[:])
		mac.Write([]byte{byte(role)})
		mac.Write([]byte(purpose))
		mac.Write([]byte{counter})
		sum := mac.Sum(nil)

		scalar := new(big.Int).SetBytes(sum[:32])
		scalar.Mod(scalar, btcec.S256().N)
		if scalar.Sign() == 0 {
			continue
		}

		var buf [32]byte
		scalar.FillBytes(buf[:])
		priv, _ := btcec.PrivKeyFromBytes(buf[:])
		return priv
	}
}

// DeriveBitcoinKey returns the secp256k1 keypair backing role's HTLC
// identity on a Bitcoin-ledger swap.
func (o *Oracle) DeriveBitcoinKey(swapId model.SwapId, role model.Role) *btcec.PrivateKey {
	return o.derive(swapId, role, purposeBitcoinHTLC)
}

// DeriveEthereumKey returns the secp256k1 keypair backing role's HTLC
// identity on an Ethereum-ledger swap, as a stdlib *ecdsa.PrivateKey since
// that is the type go-ethereum's transaction signer and crypto package
// expect.
func (o *Oracle) DeriveEthereumKey(swapId model.SwapId, role model.Role) *ecdsa.PrivateKey {
	return o.derive(swapId, role, purposeEthereumHTLC).ToECDSA()
}

// BitcoinIdentity derives role's public Bitcoin identity for swapId, the
// value that travels in a Request/Accept's refund/redeem identity fields.
func (o *Oracle) BitcoinIdentity(swapId model.SwapId, role model.Role) model.Identity {
	pub := o.DeriveBitcoinKey(swapId, role).PubKey()
	var compressed [33]byte
	copy(compressed[:], pub.SerializeCompressed())
	return model.BitcoinIdentity(compressed)
}

// EthereumIdentity derives role's public Ethereum identity for swapId.
func (o *Oracle) EthereumIdentity(swapId model.SwapId, role model.Role) model.Identity {
	priv := o.DeriveEthereumKey(swapId, role)
	addr := crypto.PubkeyToAddress(priv.PublicKey)
	var raw [20]byte
	copy(raw[:], addr.Bytes())
	return model.EthereumIdentity(raw)
}

// IdentityFor derives role's identity on whichever ledger kind is given,
// for callers (package registry's Decider implementations, package
// cmd/swapd) that hold a model.LedgerKind rather than already knowing
// which concrete ledger a swap's alpha/beta side is on.
func (o *Oracle) IdentityFor(kind model.LedgerKind, swapId model.SwapId, role model.Role) model.Identity {
	switch kind {
	case model.LedgerBitcoin:
		return o.BitcoinIdentity(swapId, role)
	case model.LedgerEthereum:
		return o.EthereumIdentity(swapId, role)
	default:
		panic("keyoracle: unknown ledger kind")
	}
}

// BitcoinSigner returns a btc.Signer closure bound to role's derived key
// for swapId: the function package htlc/btc calls to produce the RFC6979
// signature over a redeem/refund sighash.
func (o *Oracle) BitcoinSigner(swapId model.SwapId, role model.Role) btc.Signer {
	priv := o.DeriveBitcoinKey(swapId, role)
	return func(sigHash []byte) (*btcecdsa.Signature, error) {
		return btcecdsa.Sign(priv, sigHash), nil
	}
}

// EthereumSigner returns the *ecdsa.PrivateKey role's Ethereum transactions
// sign with, for callers using go-ethereum's types.SignTx/types.SignNewTx
// directly rather than going through a narrow Signer function type.
func (o *Oracle) EthereumSigner(swapId model.SwapId, role model.Role) *ecdsa.PrivateKey {
	return o.DeriveEthereumKey(swapId, role)
}
