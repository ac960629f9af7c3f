package model

import "fmt"

// LedgerStatusKind tags the variant carried by LedgerState: the HTLC
// lifecycle on one ledger, per spec §3.
//
//	NotDeployed -> Deployed{location, deploy_tx}
//	            -> Funded{..., fund_tx}
//	            -> Redeemed{..., redeem_tx, secret} | Refunded{..., refund_tx}
//
// For Bitcoin, deployment and funding coincide (the output is created and
// funded in the same transaction): the Bitcoin watcher in package btsieve
// emits both Deployed and Funded from that one observation so LedgerState
// still passes through every variant uniformly.
type LedgerStatusKind uint8

const (
	NotDeployed LedgerStatusKind = iota
	Deployed
	Funded
	Redeemed
	Refunded
)

func (k LedgerStatusKind) String() string {
	switch k {
	case NotDeployed:
		return "not-deployed"
	case Deployed:
		return "deployed"
	case Funded:
		return "funded"
	case Redeemed:
		return "redeemed"
	case Refunded:
		return "refunded"
	default:
		return fmt.Sprintf("unknown-ledger-status(%d)", uint8(k))
	}
}

// TxLocation identifies where an HTLC-related transaction landed on its
// ledger: (txid, vout) for Bitcoin, (tx hash, contract address) for
// Ethereum. Only the fields relevant to the ledger kind are populated.
type TxLocation struct {
	TxHash [32]byte
	Vout   uint32

	// ContractAddress is populated for Ethereum Deployed locations.
	ContractAddress [20]byte
}

// LedgerState is the tagged variant over the HTLC lifecycle on one ledger.
// Only the fields relevant to Status are meaningful; this mirrors spec §3's
// LedgerState(L) definition directly rather than introducing a Go
// interface per state, since the swap state machine needs to compare and
// persist whole snapshots cheaply.
type LedgerState struct {
	Status LedgerStatusKind

	Location  TxLocation
	DeployTx  [32]byte
	FundTx    [32]byte
	RedeemTx  [32]byte
	RefundTx  [32]byte
	Secret    Secret
	HasSecret bool
}
