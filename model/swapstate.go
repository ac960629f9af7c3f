package model

import (
	"fmt"
	"time"
)

// Phase enumerates every state of the RFC003 automaton of spec §4.4,
// non-terminal and terminal alike. Terminal phases never transition; see
// Phase.Terminal.
type Phase uint8

const (
	PhaseStart Phase = iota
	PhaseAccepted
	PhaseAlphaFunded
	PhaseBothFunded
	PhaseAlphaRedeemedBetaFunded
	PhaseAlphaRefundedBetaFunded
	PhaseAlphaFundedBetaRedeemed
	PhaseAlphaFundedBetaRefunded

	// Terminal phases below. FinalOutcome further distinguishes them;
	// Phase alone already makes "is this swap done" a single comparison.
	PhaseFinalRejected
	PhaseFinalBothRefunded
	PhaseFinalBothRedeemed
	PhaseFinalAlphaRedeemedBetaRefunded
	PhaseFinalAlphaRefundedBetaRedeemed
	PhaseFinalInternalFailure
)

var phaseNames = map[Phase]string{
	PhaseStart:                          "Start",
	PhaseAccepted:                       "Accepted",
	PhaseAlphaFunded:                    "AlphaFunded",
	PhaseBothFunded:                     "BothFunded",
	PhaseAlphaRedeemedBetaFunded:        "AlphaRedeemedBetaFunded",
	PhaseAlphaRefundedBetaFunded:        "AlphaRefundedBetaFunded",
	PhaseAlphaFundedBetaRedeemed:        "AlphaFundedBetaRedeemed",
	PhaseAlphaFundedBetaRefunded:        "AlphaFundedBetaRefunded",
	PhaseFinalRejected:                  "Final(Rejected)",
	PhaseFinalBothRefunded:              "Final(BothRefunded)",
	PhaseFinalBothRedeemed:              "Final(BothRedeemed)",
	PhaseFinalAlphaRedeemedBetaRefunded: "Final(AlphaRedeemedBetaRefunded)",
	PhaseFinalAlphaRefundedBetaRedeemed: "Final(AlphaRefundedBetaRedeemed)",
	PhaseFinalInternalFailure:           "Final(InternalFailure)",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("unknown-phase(%d)", uint8(p))
}

// Terminal reports whether p is one of the six terminal outcomes of spec
// §4.4. Terminal states are immutable: Transition must never be called
// again once Terminal returns true.
func (p Phase) Terminal() bool {
	return p >= PhaseFinalRejected
}

// SwapState is the composite tuple of spec §3: (Request, Accept?,
// alpha_ledger_state, beta_ledger_state, role, [secret if Alice]), plus the
// CreatedAt wall-clock bound used by btsieve's past-scan (spec §4.2) and a
// monotonic Version used by store to reject stale overwrites.
type SwapState struct {
	Request Request
	Accept  *Accept
	Decline *Decline

	Phase Phase

	AlphaState LedgerState
	BetaState  LedgerState

	Role Role

	// Secret is known to Alice from the moment she creates the Request;
	// Bob learns it only on observing BetaRedeemed, at which point his
	// own snapshot also carries it.
	Secret    Secret
	HasSecret bool

	CreatedAt time.Time
	Version   uint64
}

// Id is a convenience accessor mirroring the field's home on Request.
func (s SwapState) Id() SwapId { return s.Request.SwapId }
