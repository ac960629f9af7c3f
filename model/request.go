package model

import (
	"fmt"
	"time"
)

// Timestamp is seconds since the Unix epoch. All expiries are absolute, per
// spec §3.
type Timestamp uint32

// Time converts a Timestamp to a time.Time in UTC, for logging and for
// comparisons against ledger time sourced from a block header.
func (t Timestamp) Time() time.Time {
	return time.Unix(int64(t), 0).UTC()
}

// Before reports whether t is strictly earlier than other.
func (t Timestamp) Before(other Timestamp) bool { return t < other }

// Role is {Alice, Bob} of spec §3. Alice initiates and funds alpha first;
// Bob funds beta after observing alpha funded.
type Role uint8

const (
	RoleAlice Role = iota
	RoleBob
)

func (r Role) String() string {
	switch r {
	case RoleAlice:
		return "alice"
	case RoleBob:
		return "bob"
	default:
		return fmt.Sprintf("unknown-role(%d)", uint8(r))
	}
}

// Request is the immutable, wire-typed swap proposal of spec §3.
//
// Invariant: AlphaExpiry > BetaExpiry — alpha must outlive beta so the
// redeemer on alpha has time to act after learning the secret from beta.
type Request struct {
	SwapId      SwapId
	AlphaLedger Ledger
	BetaLedger  Ledger
	AlphaAsset  Asset
	BetaAsset   Asset

	HashFunction HashFunction

	// AlphaLedgerRefundIdentity is the requester's own identity on the
	// alpha ledger, used to reclaim funds if the swap is refunded.
	AlphaLedgerRefundIdentity Identity

	// BetaLedgerRedeemIdentity is the requester's own identity on the
	// beta ledger, used to claim funds on successful redeem.
	BetaLedgerRedeemIdentity Identity

	AlphaExpiry Timestamp
	BetaExpiry  Timestamp
	SecretHash  SecretHash
}

// SafetyMargin is the minimum gap spec §4.4 "Expiry discipline" requires
// between AlphaExpiry and BetaExpiry, beyond the bare AlphaExpiry >
// BetaExpiry ordering, so the redeemer on alpha has real time to act after
// observing the secret on beta.
const SafetyMargin = 1 * time.Hour

// Validate enforces the AlphaExpiry > BetaExpiry + SafetyMargin invariant.
// Per spec §4.4 this check belongs at the request layer, not inside the
// state machine: a Request failing it must never reach registry.Create.
func (r Request) Validate() error {
	alpha := r.AlphaExpiry.Time()
	beta := r.BetaExpiry.Time()
	if !alpha.After(beta.Add(SafetyMargin)) {
		return fmt.Errorf("%w: alpha_expiry %s does not exceed "+
			"beta_expiry %s by the required safety margin of %s",
			ErrInvalidExpiry, alpha, beta, SafetyMargin)
	}
	return nil
}

// Accept is the positive reply to a Request, carrying the responder's own
// identities on each ledger.
type Accept struct {
	SwapId SwapId

	// AlphaLedgerRedeemIdentity is the responder's identity used to
	// redeem alpha once they learn the secret.
	AlphaLedgerRedeemIdentity Identity

	// BetaLedgerRefundIdentity is the responder's identity used to
	// reclaim beta if the swap is refunded.
	BetaLedgerRefundIdentity Identity
}

// Decline is the negative reply to a Request. Reason is an opaque optional
// UTF-8 string per spec §9's open-question resolution: implementers must
// not attach behavioural meaning to its contents.
type Decline struct {
	SwapId SwapId
	Reason *string
}

// HtlcParams is the full 4-tuple determining one HTLC instance, derived
// from a Request+Accept pair. A swap has exactly two: alpha and beta.
type HtlcParams struct {
	Ledger         Ledger
	Asset          Asset
	RedeemIdentity Identity
	RefundIdentity Identity
	Expiry         Timestamp
	SecretHash     SecretHash
}

// AlphaParams derives the alpha-side HtlcParams of a swap: the requester
// (Alice) refunds alpha, the responder (Bob, via Accept) redeems it.
func AlphaParams(req Request, acc Accept) HtlcParams {
	return HtlcParams{
		Ledger:         req.AlphaLedger,
		Asset:          req.AlphaAsset,
		RedeemIdentity: acc.AlphaLedgerRedeemIdentity,
		RefundIdentity: req.AlphaLedgerRefundIdentity,
		Expiry:         req.AlphaExpiry,
		SecretHash:     req.SecretHash,
	}
}

// BetaParams derives the beta-side HtlcParams of a swap: the responder
// (Bob, via Accept) refunds beta, the requester (Alice) redeems it.
func BetaParams(req Request, acc Accept) HtlcParams {
	return HtlcParams{
		Ledger:         req.BetaLedger,
		Asset:          req.BetaAsset,
		RedeemIdentity: req.BetaLedgerRedeemIdentity,
		RefundIdentity: acc.BetaLedgerRefundIdentity,
		Expiry:         req.BetaExpiry,
		SecretHash:     req.SecretHash,
	}
}
