package wireproto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderValueCompactRoundTrip(t *testing.T) {
	h := HeaderValue{Value: "bitcoin"}
	b, err := json.Marshal(h)
	require.NoError(t, err)
	require.JSONEq(t, `"bitcoin"`, string(b))

	var got HeaderValue
	require.NoError(t, json.Unmarshal(b, &got))
	require.Equal(t, h, got)
}

func TestHeaderValueStructuredRoundTrip(t *testing.T) {
	h := HeaderValue{Value: "bitcoin", Parameters: map[string]string{"network": "regtest"}}
	b, err := json.Marshal(h)
	require.NoError(t, err)

	var got HeaderValue
	require.NoError(t, json.Unmarshal(b, &got))
	require.Equal(t, h, got)
}

func TestHeaderValueAcceptsStructuredEvenWithoutParameters(t *testing.T) {
	var h HeaderValue
	err := json.Unmarshal([]byte(`{"value":"ethereum","parameters":{}}`), &h)
	require.NoError(t, err)
	require.Equal(t, "ethereum", h.Value)
}

func TestMandatoryHeaderNaming(t *testing.T) {
	require.True(t, Mandatory("protocol"))
	require.False(t, Mandatory("_comment"))
}

func TestFrameRoundTrip(t *testing.T) {
	body := RequestBody{
		AlphaLedgerRefundIdentity: "deadbeef",
		BetaLedgerRedeemIdentity:  "0xdeadbeef",
		AlphaExpiry:               2000000100,
		BetaExpiry:                2000000000,
		SecretHash:                "aa",
	}
	frame, err := NewSwapRequest(1, "rfc003", "bitcoin", "ethereum", "bitcoin", "ether", body)
	require.NoError(t, err)

	b, err := json.Marshal(frame)
	require.NoError(t, err)

	var got Frame
	require.NoError(t, json.Unmarshal(b, &got))
	require.Equal(t, FrameRequest, got.Type)
	require.Equal(t, uint64(1), got.ID)
	require.Equal(t, "SWAP", got.Payload.Type)
	require.Equal(t, "rfc003", got.Headers["protocol"].Value)

	var gotBody RequestBody
	require.NoError(t, json.Unmarshal(got.Body, &gotBody))
	require.Equal(t, body, gotBody)
}

func TestMissingMandatoryHeaders(t *testing.T) {
	h := Headers{"protocol": {Value: "rfc003"}}
	missing := MissingMandatoryHeaders(h, SwapRequestMandatoryHeaders)
	require.ElementsMatch(t, []string{"alpha_ledger", "beta_ledger", "alpha_asset", "beta_asset"}, missing)
}

func TestUnmarshalMalformedFrame(t *testing.T) {
	var f Frame
	err := json.Unmarshal([]byte(`{not json`), &f)
	require.ErrorIs(t, err, ErrMalformedFrame)
}

func TestUnmarshalFrameMissingPayloadType(t *testing.T) {
	var f Frame
	err := json.Unmarshal([]byte(`{"type":"REQUEST","id":1,"payload":{}}`), &f)
	require.Error(t, err)
}

func TestResponseStatus(t *testing.T) {
	frame, err := NewResponse(1, StatusDecline, DeclineBody{})
	require.NoError(t, err)
	require.Equal(t, StatusDecline, frame.Status())
}
