package wireproto

import (
	"encoding/json"
	"fmt"
	"sync"
)

// RequestBody is the SWAP request payload's body fields, per spec §4.3's
// wire shape for the negotiation request. Headers (protocol, alpha_ledger,
// beta_ledger, alpha_asset, beta_asset) carry the tag values; the body
// carries the parameters that don't participate in header-based routing.
type RequestBody struct {
	AlphaLedgerRefundIdentity string `json:"alpha_ledger_refund_identity"`
	BetaLedgerRedeemIdentity  string `json:"beta_ledger_redeem_identity"`
	AlphaExpiry               uint32 `json:"alpha_expiry"`
	BetaExpiry                uint32 `json:"beta_expiry"`
	SecretHash                string `json:"secret_hash"`
}

// SwapRequestPayload is the REQUEST frame's payload.type == "SWAP" shape.
type SwapRequestPayload struct {
	Type string `json:"type"`
}

// SwapRequestMandatoryHeaders lists the mandatory header names the SWAP
// request type requires, per spec §4.3. cmd/swapd's peer server uses this
// to answer SE01 for a frame missing one of them.
var SwapRequestMandatoryHeaders = []string{
	"protocol", "alpha_ledger", "beta_ledger", "alpha_asset", "beta_asset",
}

// MissingMandatoryHeaders returns the subset of required that h does not
// contain.
func MissingMandatoryHeaders(h Headers, required []string) []string {
	var missing []string
	for _, name := range required {
		if _, ok := h[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// AcceptBody / DeclineBody are the RESPONSE frame body shapes for a SWAP
// request, correlated to the original REQUEST frame's id.
type AcceptBody struct {
	AlphaLedgerRedeemIdentity string `json:"alpha_ledger_redeem_identity"`
	BetaLedgerRefundIdentity  string `json:"beta_ledger_refund_identity"`
}

type DeclineBody struct {
	Reason *string `json:"reason,omitempty"`
}

// NewSwapRequest builds a REQUEST frame carrying a SWAP payload, the
// mandatory routing headers, and the negotiation body.
func NewSwapRequest(id uint64, protocol, alphaLedger, betaLedger, alphaAsset, betaAsset string, body RequestBody) (Frame, error) {
	bodyJSON, err := json.Marshal(body)
	if err != nil {
		return Frame{}, fmt.Errorf("marshal request body: %w", err)
	}
	return Frame{
		Type:    FrameRequest,
		ID:      id,
		Payload: Payload{Type: "SWAP"},
		Headers: Headers{
			"protocol":     {Value: protocol},
			"alpha_ledger": {Value: alphaLedger},
			"beta_ledger":  {Value: betaLedger},
			"alpha_asset":  {Value: alphaAsset},
			"beta_asset":   {Value: betaAsset},
		},
		Body: bodyJSON,
	}, nil
}

// NewResponse builds a RESPONSE frame correlated to requestID with the
// given status and body.
func NewResponse(requestID uint64, status StatusCode, body interface{}) (Frame, error) {
	var bodyJSON json.RawMessage
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return Frame{}, fmt.Errorf("marshal response body: %w", err)
		}
		bodyJSON = b
	}
	return Frame{
		Type: FrameResponse,
		ID:   requestID,
		Payload: Payload{
			Type: string(status),
		},
		Body: bodyJSON,
	}, nil
}

// Status reports the RESPONSE frame's status code, which this package
// carries in Payload.Type for RESPONSE frames (there is no separate status
// field in the envelope).
func (f Frame) Status() StatusCode { return StatusCode(f.Payload.Type) }

// pendingRequest is an outstanding REQUEST awaiting a correlated RESPONSE.
type pendingRequest struct {
	resultCh chan Frame
}

// Correlator tracks outstanding requests by id and resolves them when a
// matching RESPONSE frame arrives, the same responsibility lnd's
// htlcswitch gives its per-circuit pending-payment map, adapted here to
// request/response correlation instead of HTLC settlement.
type Correlator struct {
	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]*pendingRequest
}

// NewCorrelator returns an empty Correlator.
func NewCorrelator() *Correlator {
	return &Correlator{pending: make(map[uint64]*pendingRequest)}
}

// NextID returns a fresh, monotonically increasing request id, per spec
// §4.3's requirement that request ids strictly increase within a
// connection.
func (c *Correlator) NextID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	return c.nextID
}

// Await registers id as outstanding and returns a channel that receives the
// correlated RESPONSE frame exactly once.
func (c *Correlator) Await(id uint64) <-chan Frame {
	ch := make(chan Frame, 1)
	c.mu.Lock()
	c.pending[id] = &pendingRequest{resultCh: ch}
	c.mu.Unlock()
	return ch
}

// Resolve delivers frame to the waiter registered for frame.ID, if any. It
// reports whether a waiter was found, so callers can surface an
// unsolicited RESPONSE as a protocol error instead of silently dropping it.
func (c *Correlator) Resolve(frame Frame) bool {
	c.mu.Lock()
	p, ok := c.pending[frame.ID]
	if ok {
		delete(c.pending, frame.ID)
	}
	c.mu.Unlock()
	if !ok {
		return false
	}
	p.resultCh <- frame
	close(p.resultCh)
	return true
}

// CloseAll resolves every outstanding waiter with a zero Frame and closes
// its channel, used on connection teardown so no caller blocks forever
// waiting on a response that will never arrive.
func (c *Correlator) CloseAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, p := range c.pending {
		close(p.resultCh)
		delete(c.pending, id)
	}
}
