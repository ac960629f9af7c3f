package resolver

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"

	"github.com/comitswap/swapd/model"
)

func testIdentities(t *testing.T) (alice, bob model.Identity) {
	t.Helper()
	k1, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	k2, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	var pk1, pk2 [33]byte
	copy(pk1[:], k1.PubKey().SerializeCompressed())
	copy(pk2[:], k2.PubKey().SerializeCompressed())
	return model.BitcoinIdentity(pk1), model.BitcoinIdentity(pk2)
}

func baseState(t *testing.T) model.SwapState {
	t.Helper()
	alice, bob := testIdentities(t)
	id, _ := model.NewSwapId()
	req := model.Request{
		SwapId:                    id,
		AlphaLedger:               model.Bitcoin(model.BitcoinRegtest),
		BetaLedger:                model.Bitcoin(model.BitcoinRegtest),
		AlphaAsset:                model.BitcoinQuantity(100000),
		BetaAsset:                 model.BitcoinQuantity(100000),
		AlphaLedgerRefundIdentity: alice,
		BetaLedgerRedeemIdentity:  alice,
	}
	accept := model.Accept{
		AlphaLedgerRedeemIdentity: bob,
		BetaLedgerRefundIdentity:  bob,
	}
	return model.SwapState{
		Request: req,
		Accept:  &accept,
		Phase:   model.PhaseAccepted,
		Role:    model.RoleAlice,
	}
}

func TestResolveOffersAcceptDeclineToBobInStart(t *testing.T) {
	state := baseState(t)
	state.Phase = model.PhaseStart
	state.Accept = nil

	bobActions := Resolve(state, model.RoleBob)
	var kinds []ActionKind
	for _, a := range bobActions {
		kinds = append(kinds, a.Kind)
	}
	require.Contains(t, kinds, ActionAccept)
	require.Contains(t, kinds, ActionDecline)

	// Alice is the requester: she already moved herself past the decision
	// by sending the request, so Resolve offers her nothing in Start.
	require.Empty(t, Resolve(state, model.RoleAlice))
}

func TestResolveOffersDeployToFunderOnly(t *testing.T) {
	state := baseState(t)

	aliceActions := Resolve(state, model.RoleAlice)
	require.Len(t, aliceActions, 1)
	require.Equal(t, ActionDeploy, aliceActions[0].Kind)

	bobActions := Resolve(state, model.RoleBob)
	require.Empty(t, bobActions)
}

func TestResolveOffersNothingWhenTerminal(t *testing.T) {
	state := baseState(t)
	state.Phase = model.PhaseFinalBothRedeemed
	require.Empty(t, Resolve(state, model.RoleAlice))
	require.Empty(t, Resolve(state, model.RoleBob))
}

func TestResolveOffersRedeemOnceBothFundedAndSecretKnown(t *testing.T) {
	state := baseState(t)
	state.Phase = model.PhaseBothFunded
	state.AlphaState.Status = model.Funded
	state.BetaState.Status = model.Funded
	state.HasSecret = true // Alice always knows her own secret

	aliceActions := Resolve(state, model.RoleAlice)
	var kinds []ActionKind
	for _, a := range aliceActions {
		kinds = append(kinds, a.Kind)
	}
	require.Contains(t, kinds, ActionRedeem) // Alice redeems beta
}

func TestResolveWithholdsAlphaRedeemFromBobUntilSecretRevealed(t *testing.T) {
	state := baseState(t)
	state.Phase = model.PhaseAlphaFundedBetaRedeemed
	state.AlphaState.Status = model.Funded
	state.BetaState.Status = model.Redeemed
	state.HasSecret = false // BetaRedeemed not yet observed by this process

	bobActions := Resolve(state, model.RoleBob)
	for _, a := range bobActions {
		require.NotEqual(t, ActionRedeem, a.Kind)
	}
}
