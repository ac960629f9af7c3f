package main

import (
	"fmt"

	"github.com/comitswap/swapd/model"
	"github.com/comitswap/swapd/wireproto"
)

// requestFromFrame decodes an incoming SWAP REQUEST frame's headers and
// body into a model.Request, inverting the header/body split
// wireproto.NewSwapRequest produces on the sending side.
func requestFromFrame(frame wireproto.Frame) (model.Request, error) {
	var body wireproto.RequestBody
	if err := frame.UnmarshalBody(&body); err != nil {
		return model.Request{}, fmt.Errorf("decode request body: %w", err)
	}

	swapId, err := swapIdFromHeaders(frame)
	if err != nil {
		return model.Request{}, err
	}

	alphaLedger, err := model.ParseLedger(frame.Headers["alpha_ledger"].Value)
	if err != nil {
		return model.Request{}, fmt.Errorf("alpha_ledger: %w", err)
	}
	betaLedger, err := model.ParseLedger(frame.Headers["beta_ledger"].Value)
	if err != nil {
		return model.Request{}, fmt.Errorf("beta_ledger: %w", err)
	}

	alphaAssetHdr := frame.Headers["alpha_asset"]
	alphaAsset, err := model.ParseAssetHeader(alphaAssetHdr.Value, alphaAssetHdr.Parameters)
	if err != nil {
		return model.Request{}, fmt.Errorf("alpha_asset: %w", err)
	}
	betaAssetHdr := frame.Headers["beta_asset"]
	betaAsset, err := model.ParseAssetHeader(betaAssetHdr.Value, betaAssetHdr.Parameters)
	if err != nil {
		return model.Request{}, fmt.Errorf("beta_asset: %w", err)
	}

	alphaRefund, err := model.ParseIdentity(alphaLedger.Kind, body.AlphaLedgerRefundIdentity)
	if err != nil {
		return model.Request{}, fmt.Errorf("alpha_ledger_refund_identity: %w", err)
	}
	betaRedeem, err := model.ParseIdentity(betaLedger.Kind, body.BetaLedgerRedeemIdentity)
	if err != nil {
		return model.Request{}, fmt.Errorf("beta_ledger_redeem_identity: %w", err)
	}
	secretHash, err := model.ParseSecretHash(body.SecretHash)
	if err != nil {
		return model.Request{}, fmt.Errorf("secret_hash: %w", err)
	}

	return model.Request{
		SwapId:                    swapId,
		AlphaLedger:               alphaLedger,
		BetaLedger:                betaLedger,
		AlphaAsset:                alphaAsset,
		BetaAsset:                 betaAsset,
		HashFunction:              model.HashFunctionSHA256,
		AlphaLedgerRefundIdentity: alphaRefund,
		BetaLedgerRedeemIdentity:  betaRedeem,
		AlphaExpiry:               model.Timestamp(body.AlphaExpiry),
		BetaExpiry:                model.Timestamp(body.BetaExpiry),
		SecretHash:                secretHash,
	}, nil
}

// swapIdFromHeaders reads the non-mandatory "_swap_id" header the sending
// side attaches so the responder can correlate future frames by id without
// the id itself gating SE01 unknown-header handling (mandatory headers
// drive header-presence validation, not identity).
func swapIdFromHeaders(frame wireproto.Frame) (model.SwapId, error) {
	hdr, ok := frame.Headers["_swap_id"]
	if !ok {
		return model.NewSwapId()
	}
	return model.ParseSwapId(hdr.Value)
}

// requestToFrame is the send-side counterpart: builds the REQUEST frame a
// peer connection writes when a local Create() call proposes req.
func requestToFrame(id uint64, req model.Request) (wireproto.Frame, error) {
	alphaValue, alphaParams := req.AlphaAsset.HeaderValue()
	betaValue, betaParams := req.BetaAsset.HeaderValue()

	frame, err := wireproto.NewSwapRequest(id, "COMIT-RFC-003",
		req.AlphaLedger.String(), req.BetaLedger.String(),
		alphaValue, betaValue,
		wireproto.RequestBody{
			AlphaLedgerRefundIdentity: req.AlphaLedgerRefundIdentity.String(),
			BetaLedgerRedeemIdentity:  req.BetaLedgerRedeemIdentity.String(),
			AlphaExpiry:               uint32(req.AlphaExpiry),
			BetaExpiry:                uint32(req.BetaExpiry),
			SecretHash:                req.SecretHash.String(),
		})
	if err != nil {
		return wireproto.Frame{}, err
	}

	frame.Headers["alpha_asset"] = wireproto.HeaderValue{Value: alphaValue, Parameters: alphaParams}
	frame.Headers["beta_asset"] = wireproto.HeaderValue{Value: betaValue, Parameters: betaParams}
	frame.Headers["_swap_id"] = wireproto.HeaderValue{Value: req.SwapId.String()}
	return frame, nil
}

// acceptToResponse builds the RESPONSE frame for a Decide verdict of
// Accept.
func acceptToResponse(requestID uint64, accept model.Accept) (wireproto.Frame, error) {
	return wireproto.NewResponse(requestID, wireproto.StatusOK, wireproto.AcceptBody{
		AlphaLedgerRedeemIdentity: accept.AlphaLedgerRedeemIdentity.String(),
		BetaLedgerRefundIdentity:  accept.BetaLedgerRefundIdentity.String(),
	})
}

// declineToResponse builds the RESPONSE frame for a Decide verdict of
// Decline.
func declineToResponse(requestID uint64, decline model.Decline) (wireproto.Frame, error) {
	return wireproto.NewResponse(requestID, wireproto.StatusDecline, wireproto.DeclineBody{
		Reason: decline.Reason,
	})
}

// acceptFromResponse decodes a RESPONSE frame's body into the Accept half
// of a SWAP request's reply, once the caller has already checked
// frame.Status() == StatusOK.
func acceptFromResponse(frame wireproto.Frame, req model.Request) (model.Accept, error) {
	var body wireproto.AcceptBody
	if err := frame.UnmarshalBody(&body); err != nil {
		return model.Accept{}, fmt.Errorf("decode accept body: %w", err)
	}
	alphaRedeem, err := model.ParseIdentity(req.AlphaLedger.Kind, body.AlphaLedgerRedeemIdentity)
	if err != nil {
		return model.Accept{}, fmt.Errorf("alpha_ledger_redeem_identity: %w", err)
	}
	betaRefund, err := model.ParseIdentity(req.BetaLedger.Kind, body.BetaLedgerRefundIdentity)
	if err != nil {
		return model.Accept{}, fmt.Errorf("beta_ledger_refund_identity: %w", err)
	}
	return model.Accept{
		SwapId:                    req.SwapId,
		AlphaLedgerRedeemIdentity: alphaRedeem,
		BetaLedgerRefundIdentity:  betaRefund,
	}, nil
}
