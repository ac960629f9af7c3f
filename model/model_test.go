package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSwapIdRoundTrip(t *testing.T) {
	id, err := NewSwapId()
	require.NoError(t, err)

	parsed, err := ParseSwapId(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)

	encoded, err := json.Marshal(id)
	require.NoError(t, err)

	var decoded SwapId
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	require.Equal(t, id, decoded)
}

func TestSecretHashInvariant(t *testing.T) {
	secret, err := NewSecret()
	require.NoError(t, err)

	hash, err := secret.Hash(HashFunctionSHA256)
	require.NoError(t, err)

	require.True(t, secret.Matches(hash, HashFunctionSHA256))

	other, err := NewSecret()
	require.NoError(t, err)
	require.False(t, other.Matches(hash, HashFunctionSHA256))
}

func TestRequestValidateExpiryOrdering(t *testing.T) {
	base := time.Date(2033, time.May, 18, 3, 33, 20, 0, time.UTC)

	valid := Request{
		AlphaExpiry: Timestamp(base.Add(2 * time.Hour).Unix()),
		BetaExpiry:  Timestamp(base.Unix()),
	}
	require.NoError(t, valid.Validate())

	tooClose := Request{
		AlphaExpiry: Timestamp(base.Add(30 * time.Minute).Unix()),
		BetaExpiry:  Timestamp(base.Unix()),
	}
	require.ErrorIs(t, tooClose.Validate(), ErrInvalidExpiry)

	inverted := Request{
		AlphaExpiry: Timestamp(base.Unix()),
		BetaExpiry:  Timestamp(base.Add(time.Hour).Unix()),
	}
	require.ErrorIs(t, inverted.Validate(), ErrInvalidExpiry)
}

func TestIdentityWireEncoding(t *testing.T) {
	var pk [33]byte
	pk[0] = 0x02
	pk[32] = 0xAB
	btc := BitcoinIdentity(pk)
	require.NotContains(t, btc.String(), "0x")

	var addr [20]byte
	addr[19] = 0xCD
	eth := EthereumIdentity(addr)
	require.Contains(t, eth.String(), "0x")
	require.Equal(t, addr, eth.EthereumAddress())
}

func TestHtlcParamsDerivation(t *testing.T) {
	var refundPk, redeemPk [33]byte
	refundPk[0], redeemPk[0] = 0x02, 0x03
	req := Request{
		AlphaLedger:               Bitcoin(BitcoinRegtest),
		BetaLedger:                Ethereum(1337),
		AlphaAsset:                BitcoinQuantity(100_000_000),
		AlphaLedgerRefundIdentity: BitcoinIdentity(refundPk),
		AlphaExpiry:               2_000_000_000,
		BetaExpiry:                1_999_000_000,
	}
	var redeemAddr [20]byte
	acc := Accept{
		AlphaLedgerRedeemIdentity: EthereumIdentity(redeemAddr),
	}

	alpha := AlphaParams(req, acc)
	require.Equal(t, req.AlphaAsset, alpha.Asset)
	require.Equal(t, req.AlphaLedgerRefundIdentity, alpha.RefundIdentity)
	require.Equal(t, acc.AlphaLedgerRedeemIdentity, alpha.RedeemIdentity)
}

func TestPhaseTerminal(t *testing.T) {
	require.False(t, PhaseStart.Terminal())
	require.False(t, PhaseBothFunded.Terminal())
	require.True(t, PhaseFinalBothRedeemed.Terminal())
	require.True(t, PhaseFinalInternalFailure.Terminal())
}
