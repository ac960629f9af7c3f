package swap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comitswap/swapd/btsieve"
	"github.com/comitswap/swapd/model"
)

func freshState() model.SwapState {
	id, _ := model.NewSwapId()
	return model.SwapState{
		Request: model.Request{SwapId: id},
		Phase:   model.PhaseStart,
		Role:    model.RoleAlice,
	}
}

func ledgerEvent(kind model.LedgerStatusKind) *btsieve.Event {
	return &btsieve.Event{Kind: kind}
}

func TestHappyPathReachesBothRedeemed(t *testing.T) {
	state := freshState()

	state, err := Transition(state, Event{Kind: model.EventAccepted, Accept: &model.Accept{}})
	require.NoError(t, err)
	require.Equal(t, model.PhaseAccepted, state.Phase)

	state, err = Transition(state, Event{Kind: model.EventAlphaFunded, Ledger: ledgerEvent(model.Funded)})
	require.NoError(t, err)
	require.Equal(t, model.PhaseAlphaFunded, state.Phase)

	state, err = Transition(state, Event{Kind: model.EventBetaFunded, Ledger: ledgerEvent(model.Funded)})
	require.NoError(t, err)
	require.Equal(t, model.PhaseBothFunded, state.Phase)

	secret, _ := model.NewSecret()
	betaRedeem := &btsieve.Event{Kind: model.Redeemed, Secret: secret}
	state, err = Transition(state, Event{Kind: model.EventBetaRedeemed, Ledger: betaRedeem})
	require.NoError(t, err)
	require.Equal(t, model.PhaseAlphaFundedBetaRedeemed, state.Phase)
	require.True(t, state.HasSecret)
	require.Equal(t, secret, state.Secret)

	state, err = Transition(state, Event{Kind: model.EventAlphaRedeemed, Ledger: ledgerEvent(model.Redeemed)})
	require.NoError(t, err)
	require.Equal(t, model.PhaseFinalBothRedeemed, state.Phase)
	require.True(t, state.Phase.Terminal())
}

func TestDeclineFromStartIsTerminal(t *testing.T) {
	state := freshState()
	reason := "insufficient liquidity"
	state, err := Transition(state, Event{Kind: model.EventDeclined, Decline: &model.Decline{Reason: &reason}})
	require.NoError(t, err)
	require.Equal(t, model.PhaseFinalRejected, state.Phase)
	require.True(t, state.Phase.Terminal())
}

func TestAlphaRefundWithoutBetaFundingIsBothRefunded(t *testing.T) {
	// E3: alpha refund after beta never funded.
	state := freshState()
	state, err := Transition(state, Event{Kind: model.EventAccepted, Accept: &model.Accept{}})
	require.NoError(t, err)
	state, err = Transition(state, Event{Kind: model.EventAlphaFunded, Ledger: ledgerEvent(model.Funded)})
	require.NoError(t, err)

	state, err = Transition(state, Event{Kind: model.EventAlphaRefunded, Ledger: ledgerEvent(model.Refunded)})
	require.NoError(t, err)
	require.Equal(t, model.PhaseFinalBothRefunded, state.Phase)
}

func TestOutOfOrderEventYieldsPreconditionError(t *testing.T) {
	state := freshState()
	_, err := Transition(state, Event{Kind: model.EventAlphaFunded, Ledger: ledgerEvent(model.Funded)})
	require.Error(t, err)

	var precondition *PreconditionError
	require.ErrorAs(t, err, &precondition)
}

func TestEventDeliveredToTerminalSwapIsInternalError(t *testing.T) {
	state := freshState()
	state.Phase = model.PhaseFinalBothRedeemed

	_, err := Transition(state, Event{Kind: model.EventAlphaFunded})
	var internal *InternalError
	require.ErrorAs(t, err, &internal)
}

func TestMismatchedRedeemRefundOrderingResolvesToAsymmetricOutcome(t *testing.T) {
	// BothFunded -> AlphaRefundedBetaFunded -> BetaRedeemed (Bob mistakenly
	// lets Alice redeem beta too) must land on the documented asymmetric
	// terminal phase, not silently stay non-terminal.
	state := freshState()
	state, err := Transition(state, Event{Kind: model.EventAccepted, Accept: &model.Accept{}})
	require.NoError(t, err)
	state, err = Transition(state, Event{Kind: model.EventAlphaFunded, Ledger: ledgerEvent(model.Funded)})
	require.NoError(t, err)
	state, err = Transition(state, Event{Kind: model.EventBetaFunded, Ledger: ledgerEvent(model.Funded)})
	require.NoError(t, err)
	state, err = Transition(state, Event{Kind: model.EventAlphaRefunded, Ledger: ledgerEvent(model.Refunded)})
	require.NoError(t, err)
	require.Equal(t, model.PhaseAlphaRefundedBetaFunded, state.Phase)

	secret, _ := model.NewSecret()
	state, err = Transition(state, Event{Kind: model.EventBetaRedeemed, Ledger: &btsieve.Event{Kind: model.Redeemed, Secret: secret}})
	require.NoError(t, err)
	require.Equal(t, model.PhaseFinalAlphaRefundedBetaRedeemed, state.Phase)
	require.True(t, state.Phase.Terminal())
}
