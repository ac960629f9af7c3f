// Package wireproto implements the negotiation protocol (component C3): a
// duplex, newline-framed JSON wire carrying swap proposals and accept/
// decline replies between two peers.
//
// The frame envelope and type-registry pattern are grounded on lnd's
// lnwire.Message interface, adapted from fixed binary message codes to
// JSON "type" strings and from raw io.Reader/Writer framing to
// bufio.Scanner-based newline framing. The exact wire shapes and status
// codes are grounded on the comit-rs transport_protocol wire tests
// (original_source/), which supplement spec.md's prose with literal JSON.
package wireproto

import (
	"encoding/json"
	"fmt"
)

// FrameType tags the three frame shapes of spec §4.3.
type FrameType string

const (
	FrameRequest  FrameType = "REQUEST"
	FrameResponse FrameType = "RESPONSE"
	FrameUnknown  FrameType = "UNKNOWN"
)

// StatusCode enumerates the exact response status codes of spec §4.3/§6.
type StatusCode string

const (
	StatusOK                StatusCode = "OK00"
	StatusMalformedFrame     StatusCode = "SE00"
	StatusUnsupportedHeaders StatusCode = "SE01"
	StatusUnknownRequestType StatusCode = "SE02"
	StatusDecline            StatusCode = "RE20"
	StatusReject             StatusCode = "RE21"
)

// HeaderValue is a header's value, which may be written on the wire in
// compact form ("HDR": "value") or structured form ("HDR": {"value": "...",
// "parameters": {...}}). Both shapes are accepted for every header — not
// only mandatory ones — per the comit-rs original's leniency, which
// spec.md's distillation is silent on (SPEC_FULL.md §9 supplemented
// feature).
type HeaderValue struct {
	Value      string            `json:"value"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// UnmarshalJSON accepts either a bare JSON string or the {value,parameters}
// object form.
func (h *HeaderValue) UnmarshalJSON(b []byte) error {
	var compact string
	if err := json.Unmarshal(b, &compact); err == nil {
		h.Value = compact
		h.Parameters = nil
		return nil
	}

	type structured HeaderValue
	var s structured
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("header value neither a string nor an object: %w", err)
	}
	*h = HeaderValue(s)
	return nil
}

// MarshalJSON writes the compact form when there are no parameters, the
// structured form otherwise.
func (h HeaderValue) MarshalJSON() ([]byte, error) {
	if len(h.Parameters) == 0 {
		return json.Marshal(h.Value)
	}
	type structured HeaderValue
	return json.Marshal(structured(h))
}

// Headers is a frame's header map. A header name starting with "_" is
// non-mandatory (unknown ones are ignored); names without that prefix are
// mandatory (an unknown one yields SE01).
type Headers map[string]HeaderValue

// Mandatory reports whether name is a mandatory header name.
func Mandatory(name string) bool {
	return len(name) == 0 || name[0] != '_'
}

// Payload is the frame's inner content: a type tag plus arbitrary
// type-specific fields, carried as raw JSON so the registry in registry.go
// can dispatch on Type before fully decoding.
type Payload struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// Frame is the envelope of spec §4.3: {type, id, payload, headers, body}.
type Frame struct {
	Type    FrameType       `json:"type"`
	ID      uint64          `json:"id"`
	Payload Payload         `json:"payload"`
	Headers Headers         `json:"headers,omitempty"`
	Body    json.RawMessage `json:"body,omitempty"`
}

// frameOnWire mirrors Frame's JSON shape with Payload inlined as raw JSON,
// since Payload itself needs custom (un)marshaling to capture Raw.
type frameOnWire struct {
	Type    FrameType       `json:"type"`
	ID      uint64          `json:"id"`
	Payload json.RawMessage `json:"payload"`
	Headers Headers         `json:"headers,omitempty"`
	Body    json.RawMessage `json:"body,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (f Frame) MarshalJSON() ([]byte, error) {
	payload := f.Payload.Raw
	if payload == nil {
		var err error
		payload, err = json.Marshal(struct {
			Type string `json:"type"`
		}{f.Payload.Type})
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(frameOnWire{
		Type:    f.Type,
		ID:      f.ID,
		Payload: payload,
		Headers: f.Headers,
		Body:    f.Body,
	})
}

// UnmarshalJSON implements json.Unmarshaler. A syntactically invalid or
// shape-mismatched frame surfaces ErrMalformedFrame, distinct from a
// transport-level read error, per SPEC_FULL.md §9's supplemented feature.
func (f *Frame) UnmarshalJSON(b []byte) error {
	var onWire frameOnWire
	if err := json.Unmarshal(b, &onWire); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	var typeTag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(onWire.Payload, &typeTag); err != nil {
		return fmt.Errorf("%w: payload missing type: %v", ErrMalformedFrame, err)
	}
	if typeTag.Type == "" {
		return fmt.Errorf("%w: payload.type is empty", ErrMalformedFrame)
	}

	f.Type = onWire.Type
	f.ID = onWire.ID
	f.Payload = Payload{Type: typeTag.Type, Raw: onWire.Payload}
	f.Headers = onWire.Headers
	f.Body = onWire.Body
	return nil
}

// UnmarshalBody decodes f.Body into v. Callers that need the body shape for
// a particular payload/status type (RequestBody, AcceptBody, DeclineBody)
// use this rather than reaching into f.Body directly.
func (f Frame) UnmarshalBody(v interface{}) error {
	if len(f.Body) == 0 {
		return fmt.Errorf("%w: empty body", ErrMalformedFrame)
	}
	if err := json.Unmarshal(f.Body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return nil
}

// ErrMalformedFrame is returned for a syntactically invalid frame or one
// whose required shape (type/id/payload.type) is missing — spec §4.3's
// SE00 condition, and the trigger for scenario E6 (connection close, no
// swap created).
var ErrMalformedFrame = fmt.Errorf("wireproto: malformed frame")

// ErrOutOfOrderRequest is returned by ReadLoop when a peer's REQUEST frame
// id fails to strictly increase over its last REQUEST id on this
// connection, per spec §4.3's ordering rule. The connection is torn down,
// same as ErrMalformedFrame.
var ErrOutOfOrderRequest = fmt.Errorf("wireproto: out-of-order request id")
