package model

import (
	"fmt"
	"strconv"
	"strings"
)

// LedgerKind identifies which chain a Ledger variant refers to. Dispatching
// on LedgerKind (rather than a type switch on an interface) is the "dynamic
// polymorphism over ledgers" resolution: a runtime enum at the data
// boundary, exhaustively switched over at the HTLC-constructor dispatch
// point in package htlc.
type LedgerKind uint8

const (
	LedgerBitcoin LedgerKind = iota
	LedgerEthereum
)

func (k LedgerKind) String() string {
	switch k {
	case LedgerBitcoin:
		return "bitcoin"
	case LedgerEthereum:
		return "ethereum"
	default:
		return fmt.Sprintf("unknown-ledger-kind(%d)", uint8(k))
	}
}

// BitcoinNetwork enumerates the Bitcoin networks a swap may run against.
type BitcoinNetwork uint8

const (
	BitcoinMainnet BitcoinNetwork = iota
	BitcoinTestnet
	BitcoinRegtest
)

func (n BitcoinNetwork) String() string {
	switch n {
	case BitcoinMainnet:
		return "mainnet"
	case BitcoinTestnet:
		return "testnet"
	case BitcoinRegtest:
		return "regtest"
	default:
		return fmt.Sprintf("unknown-network(%d)", uint8(n))
	}
}

// Ledger is the tagged variant {Bitcoin{network}, Ethereum{chain_id}} of
// spec §3.
type Ledger struct {
	Kind LedgerKind

	// BitcoinNetwork is meaningful only when Kind == LedgerBitcoin.
	BitcoinNetwork BitcoinNetwork

	// EthereumChainID is meaningful only when Kind == LedgerEthereum.
	EthereumChainID uint32
}

// Bitcoin builds a Ledger variant for the given Bitcoin network.
func Bitcoin(network BitcoinNetwork) Ledger {
	return Ledger{Kind: LedgerBitcoin, BitcoinNetwork: network}
}

// Ethereum builds a Ledger variant for the given EVM chain id.
func Ethereum(chainID uint32) Ledger {
	return Ledger{Kind: LedgerEthereum, EthereumChainID: chainID}
}

func (l Ledger) String() string {
	switch l.Kind {
	case LedgerBitcoin:
		return fmt.Sprintf("bitcoin-%s", l.BitcoinNetwork)
	case LedgerEthereum:
		return fmt.Sprintf("ethereum-%d", l.EthereumChainID)
	default:
		return l.Kind.String()
	}
}

// ParseLedger inverts Ledger.String, the form carried by the negotiation
// protocol's alpha_ledger/beta_ledger headers.
func ParseLedger(s string) (Ledger, error) {
	switch {
	case strings.HasPrefix(s, "bitcoin-"):
		switch strings.TrimPrefix(s, "bitcoin-") {
		case "mainnet":
			return Bitcoin(BitcoinMainnet), nil
		case "testnet":
			return Bitcoin(BitcoinTestnet), nil
		case "regtest":
			return Bitcoin(BitcoinRegtest), nil
		default:
			return Ledger{}, fmt.Errorf("parse ledger: unknown bitcoin network in %q", s)
		}
	case strings.HasPrefix(s, "ethereum-"):
		chainID, err := strconv.ParseUint(strings.TrimPrefix(s, "ethereum-"), 10, 32)
		if err != nil {
			return Ledger{}, fmt.Errorf("parse ledger: bad ethereum chain id in %q: %w", s, err)
		}
		return Ethereum(uint32(chainID)), nil
	default:
		return Ledger{}, fmt.Errorf("parse ledger: unrecognized ledger tag %q", s)
	}
}
