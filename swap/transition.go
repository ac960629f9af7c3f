package swap

import (
	"fmt"

	"github.com/comitswap/swapd/btsieve"
	"github.com/comitswap/swapd/model"
)

// Event is the driver's single input type: one persisted-event-kind tag
// plus whichever payload that kind carries. Reusing model.EventKind here
// (rather than a parallel swap-local enum) keeps the transition table and
// the persistence layer's event taxonomy in lockstep by construction.
type Event struct {
	Kind model.EventKind

	Accept  *model.Accept
	Decline *model.Decline

	// Ledger carries the btsieve observation for every AlphaDeployed,
	// AlphaFunded, AlphaRedeemed, AlphaRefunded, BetaDeployed, BetaFunded,
	// BetaRedeemed, BetaRefunded event.
	Ledger *btsieve.Event
}

// Transition is the pure RFC003 state-transition function of spec §4.4: it
// has no side effects and does not look at wall-clock time or query any
// ledger — callers (the driver in this package) are responsible for
// sourcing Events and persisting them before calling Transition.
//
// Transition never mutates state; it returns a new value.
func Transition(state model.SwapState, ev Event) (model.SwapState, error) {
	if state.Phase.Terminal() {
		return state, &InternalError{Reason: fmt.Sprintf(
			"event %s delivered to terminal swap %s in phase %s", ev.Kind, state.Id(), state.Phase)}
	}

	next := state
	next.Version++

	switch ev.Kind {
	case model.EventAccepted:
		return transitionAccepted(next, ev)
	case model.EventDeclined:
		return transitionDeclined(next, ev)
	case model.EventAlphaDeployed:
		return applyLedgerOnly(next, ev, sideAlpha, model.Deployed)
	case model.EventAlphaFunded:
		return transitionAlphaFunded(next, ev)
	case model.EventBetaDeployed:
		return applyLedgerOnly(next, ev, sideBeta, model.Deployed)
	case model.EventBetaFunded:
		return transitionBetaFunded(next, ev)
	case model.EventAlphaRedeemed:
		return transitionAlphaRedeemed(next, ev)
	case model.EventAlphaRefunded:
		return transitionAlphaRefunded(next, ev)
	case model.EventBetaRedeemed:
		return transitionBetaRedeemed(next, ev)
	case model.EventBetaRefunded:
		return transitionBetaRefunded(next, ev)
	default:
		return state, &InternalError{Reason: fmt.Sprintf("unhandled event kind %s", ev.Kind)}
	}
}

func transitionAccepted(state model.SwapState, ev Event) (model.SwapState, error) {
	if state.Phase != model.PhaseStart {
		return state, &PreconditionError{Reason: fmt.Sprintf(
			"Accepted only valid from Start, swap is in %s", state.Phase)}
	}
	if ev.Accept == nil {
		return state, &InternalError{Reason: "EventAccepted carries no Accept payload"}
	}
	accept := *ev.Accept
	state.Accept = &accept
	state.Phase = model.PhaseAccepted
	return state, nil
}

func transitionDeclined(state model.SwapState, ev Event) (model.SwapState, error) {
	if state.Phase != model.PhaseStart {
		return state, &PreconditionError{Reason: fmt.Sprintf(
			"Declined only valid from Start, swap is in %s", state.Phase)}
	}
	if ev.Decline == nil {
		return state, &InternalError{Reason: "EventDeclined carries no Decline payload"}
	}
	decline := *ev.Decline
	state.Decline = &decline
	state.Phase = model.PhaseFinalRejected
	return state, nil
}

// side selects which of a SwapState's two LedgerStates an event applies to.
type side uint8

const (
	sideAlpha side = iota
	sideBeta
)

// ledgerState returns a pointer to the selected side's LedgerState field
// within state, so callers mutate the very value that gets returned rather
// than a short-lived copy.
func ledgerState(state *model.SwapState, s side) *model.LedgerState {
	if s == sideAlpha {
		return &state.AlphaState
	}
	return &state.BetaState
}

// applyLedgerOnly records a Deployed observation without moving Phase: the
// enumerated phases of spec §4.4 only branch on Funded/Redeemed/Refunded,
// treating deployment as ledger-state bookkeeping underneath whichever
// phase is current.
func applyLedgerOnly(state model.SwapState, ev Event, s side, status model.LedgerStatusKind) (model.SwapState, error) {
	if ev.Ledger == nil {
		return state, &InternalError{Reason: fmt.Sprintf("event %s carries no ledger observation", ev.Kind)}
	}
	ledger := ledgerState(&state, s)
	if ledger.Status > model.NotDeployed {
		return state, &PreconditionError{Reason: fmt.Sprintf(
			"%s observed but ledger state already %s", ev.Kind, ledger.Status)}
	}
	ledger.Status = status
	ledger.Location = ev.Ledger.Location
	ledger.DeployTx = ev.Ledger.TxHash
	return state, nil
}

func transitionAlphaFunded(state model.SwapState, ev Event) (model.SwapState, error) {
	if state.Phase != model.PhaseAccepted {
		return state, &PreconditionError{Reason: fmt.Sprintf(
			"AlphaFunded only valid from Accepted, swap is in %s", state.Phase)}
	}
	if ev.Ledger == nil {
		return state, &InternalError{Reason: "EventAlphaFunded carries no ledger observation"}
	}
	state.AlphaState.Status = model.Funded
	state.AlphaState.Location = ev.Ledger.Location
	state.AlphaState.FundTx = ev.Ledger.TxHash
	state.Phase = model.PhaseAlphaFunded
	return state, nil
}

func transitionBetaFunded(state model.SwapState, ev Event) (model.SwapState, error) {
	if state.Phase != model.PhaseAlphaFunded {
		return state, &PreconditionError{Reason: fmt.Sprintf(
			"BetaFunded only valid from AlphaFunded, swap is in %s", state.Phase)}
	}
	if ev.Ledger == nil {
		return state, &InternalError{Reason: "EventBetaFunded carries no ledger observation"}
	}
	state.BetaState.Status = model.Funded
	state.BetaState.Location = ev.Ledger.Location
	state.BetaState.FundTx = ev.Ledger.TxHash
	state.Phase = model.PhaseBothFunded
	return state, nil
}

// transitionAlphaRedeemed handles Bob (or whoever holds the redeem
// identity on alpha) claiming alpha using the secret revealed by a prior
// BetaRedeemed.
func transitionAlphaRedeemed(state model.SwapState, ev Event) (model.SwapState, error) {
	switch state.Phase {
	case model.PhaseAlphaFundedBetaRedeemed:
		state.Phase = model.PhaseFinalBothRedeemed
	case model.PhaseBothFunded:
		// Observed out of the expected order (alpha redeemed before beta
		// was): still a legal terminal outcome for the redeemer, but
		// leaves the requester's beta side unresolved until its own
		// event arrives. Recorded as BothFunded -> AlphaRedeemedBetaFunded.
		state.Phase = model.PhaseAlphaRedeemedBetaFunded
	default:
		return state, &PreconditionError{Reason: fmt.Sprintf(
			"AlphaRedeemed not valid from phase %s", state.Phase)}
	}
	return applyRedeem(state, ev, sideAlpha)
}

func transitionAlphaRefunded(state model.SwapState, ev Event) (model.SwapState, error) {
	switch state.Phase {
	case model.PhaseAlphaFunded:
		// Beta was never funded: the beta asset never left its owner's
		// custody, so refunding alpha alone already returns both sides
		// to their starting owners.
		state.Phase = model.PhaseFinalBothRefunded
	case model.PhaseBothFunded:
		state.Phase = model.PhaseAlphaRefundedBetaFunded
	case model.PhaseAlphaFundedBetaRedeemed:
		state.Phase = model.PhaseFinalAlphaRefundedBetaRedeemed
	default:
		return state, &PreconditionError{Reason: fmt.Sprintf(
			"AlphaRefunded not valid from phase %s", state.Phase)}
	}
	return applyRefund(state, ev, sideAlpha)
}

func transitionBetaRedeemed(state model.SwapState, ev Event) (model.SwapState, error) {
	switch state.Phase {
	case model.PhaseAlphaRedeemedBetaFunded:
		state.Phase = model.PhaseFinalBothRedeemed
	case model.PhaseBothFunded:
		state.Phase = model.PhaseAlphaFundedBetaRedeemed
	case model.PhaseAlphaRefundedBetaFunded:
		state.Phase = model.PhaseFinalAlphaRefundedBetaRedeemed
	default:
		return state, &PreconditionError{Reason: fmt.Sprintf(
			"BetaRedeemed not valid from phase %s", state.Phase)}
	}

	next, err := applyRedeem(state, ev, sideBeta)
	if err != nil {
		return next, err
	}
	// The requester redeeming beta is exactly the moment the secret
	// becomes known to whichever party did not already hold it.
	if ev.Ledger != nil {
		next.Secret = ev.Ledger.Secret
		next.HasSecret = true
	}
	return next, nil
}

func transitionBetaRefunded(state model.SwapState, ev Event) (model.SwapState, error) {
	switch state.Phase {
	case model.PhaseAlphaRefundedBetaFunded:
		state.Phase = model.PhaseFinalBothRefunded
	case model.PhaseBothFunded:
		state.Phase = model.PhaseAlphaFundedBetaRefunded
	case model.PhaseAlphaRedeemedBetaFunded:
		state.Phase = model.PhaseFinalAlphaRedeemedBetaRefunded
	default:
		return state, &PreconditionError{Reason: fmt.Sprintf(
			"BetaRefunded not valid from phase %s", state.Phase)}
	}
	return applyRefund(state, ev, sideBeta)
}

func applyRedeem(state model.SwapState, ev Event, s side) (model.SwapState, error) {
	if ev.Ledger == nil {
		return state, &InternalError{Reason: fmt.Sprintf("event %s carries no ledger observation", ev.Kind)}
	}
	ledger := ledgerState(&state, s)
	ledger.Status = model.Redeemed
	ledger.Location = ev.Ledger.Location
	ledger.RedeemTx = ev.Ledger.TxHash
	ledger.Secret = ev.Ledger.Secret
	ledger.HasSecret = true
	return state, nil
}

func applyRefund(state model.SwapState, ev Event, s side) (model.SwapState, error) {
	if ev.Ledger == nil {
		return state, &InternalError{Reason: fmt.Sprintf("event %s carries no ledger observation", ev.Kind)}
	}
	ledger := ledgerState(&state, s)
	ledger.Status = model.Refunded
	ledger.Location = ev.Ledger.Location
	ledger.RefundTx = ev.Ledger.TxHash
	return state, nil
}
