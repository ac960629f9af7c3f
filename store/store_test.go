package store

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/comitswap/swapd/btsieve"
	"github.com/comitswap/swapd/model"
	"github.com/comitswap/swapd/swap"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "swapd.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func sampleState(t *testing.T) model.SwapState {
	t.Helper()
	id, err := model.NewSwapId()
	require.NoError(t, err)
	secret, err := model.NewSecret()
	require.NoError(t, err)
	hash, err := secret.Hash(model.HashFunctionSHA256)
	require.NoError(t, err)

	var pk [33]byte
	pk[0] = 0x02

	return model.SwapState{
		Request: model.Request{
			SwapId:                    id,
			AlphaLedger:               model.Bitcoin(model.BitcoinRegtest),
			BetaLedger:                model.Ethereum(1337),
			AlphaAsset:                model.BitcoinQuantity(50000),
			BetaAsset:                 model.Ether(big.NewInt(1_000_000_000_000_000_000)),
			AlphaLedgerRefundIdentity: model.BitcoinIdentity(pk),
			AlphaExpiry:               model.Timestamp(time.Now().Add(2 * time.Hour).Unix()),
			BetaExpiry:                model.Timestamp(time.Now().Add(time.Hour).Unix()),
			SecretHash:                hash,
		},
		Phase:     model.PhaseAccepted,
		Role:      model.RoleAlice,
		Secret:    secret,
		HasSecret: true,
		CreatedAt: time.Now().Truncate(time.Second),
		Version:   3,
	}
}

func TestAppendPersistsEventAndRejectsDuplicateKind(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	id, err := model.NewSwapId()
	require.NoError(t, err)

	ev := swap.Event{Kind: model.EventAlphaFunded, Ledger: &btsieve.Event{Kind: model.Funded}}
	require.NoError(t, s.Append(ctx, id, model.EventAlphaFunded, ev))

	err = s.Append(ctx, id, model.EventAlphaFunded, ev)
	require.ErrorIs(t, err, ErrEventAlreadySaved)
}

func TestSaveSnapshotRoundTripsIdentityAndAssetFields(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	want := sampleState(t)

	require.NoError(t, s.SaveSnapshot(ctx, want))

	got, found, err := s.LoadSnapshot(ctx, want.Id())
	require.NoError(t, err)
	require.True(t, found)

	require.Equal(t, want.Request.AlphaLedgerRefundIdentity, got.Request.AlphaLedgerRefundIdentity)
	require.Equal(t, want.Request.BetaAsset.WeiQuantity.String(), got.Request.BetaAsset.WeiQuantity.String())
	require.Equal(t, want.Secret, got.Secret)
	require.True(t, got.HasSecret)
	require.Equal(t, want.Phase, got.Phase)
	require.Equal(t, want.Version, got.Version)
}

func TestLoadSnapshotReportsNotFound(t *testing.T) {
	s := openTestStore(t)
	id, err := model.NewSwapId()
	require.NoError(t, err)

	_, found, err := s.LoadSnapshot(context.Background(), id)
	require.NoError(t, err)
	require.False(t, found)
}

func TestNonTerminalSwapsExcludesFinalPhases(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	pending := sampleState(t)
	pending.Phase = model.PhaseAlphaFunded
	require.NoError(t, s.SaveSnapshot(ctx, pending))

	done := sampleState(t)
	done.Phase = model.PhaseFinalBothRedeemed
	require.NoError(t, s.SaveSnapshot(ctx, done))

	states, err := s.NonTerminalSwaps(ctx)
	require.NoError(t, err)
	require.Len(t, states, 1)
	require.Equal(t, pending.Id(), states[0].Id())
}
