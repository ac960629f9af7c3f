package btsieve

import (
	"github.com/comitswap/swapd/model"
)

// HtlcQuery narrows the watcher to one HTLC instance: its ledger params
// plus the swap-creation timestamp that bounds the past scan (spec §4.2).
type HtlcQuery struct {
	Params    model.HtlcParams
	CreatedAt model.Timestamp
}

// Event is one lifecycle observation for an HTLC: which kind, the location
// it occurred at, and (for Redeemed) the revealed secret.
type Event struct {
	Kind     model.LedgerStatusKind
	Location model.TxLocation
	TxHash   [32]byte
	Secret   model.Secret
}

// Matcher implements the ledger-specific matching rules of spec §4.2
// against one already-fetched Block. A Matcher must be pure and
// side-effect free: it may be invoked against the same block more than
// once (e.g. once per HTLC query sharing a watcher poll).
//
// Returned events are partial: a Bitcoin funding transaction yields both a
// Deployed and a Funded Event from one Match call, per spec §3's note that
// Bitcoin deployment and funding coincide.
//
// htlcLocation is the location of this HTLC's Deployed/Funded event once
// the Watcher has observed one (zero value until then): spec §4.2's
// matching rule requires a Redeemed/Refunded candidate's spending input (or,
// on Ethereum, its log source) to reference this specific instance, not
// merely match the shared script/bytecode template every HTLC of this kind
// shares. A Matcher must use htlcLocation to disambiguate once it is
// non-zero rather than matching on shape alone.
type Matcher interface {
	Match(block Block, query HtlcQuery, alreadySeen map[model.LedgerStatusKind]bool, htlcLocation model.TxLocation) []Event
}
