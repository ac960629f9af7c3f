// Package swaprpc puts the action resolver (component C6) on a gRPC wire:
// ListSwaps, ResolveActions and DecideSwap, the three calls cmd/swapcli
// drives.
//
// grpc-go's service-registration machinery (ServiceDesc, method handlers,
// client stub) is independent of the wire codec; the generated-code shape
// below is grounded on lnrpc's generated stubs (rpcserver.go is the
// teacher's consumer of that shape) but uses encoding/gob under a codec
// registered as "proto" instead of real protobuf, since no .proto
// compilation step runs in this build. A production build would swap this
// codec package for protoc-gen-go-grpc output against a real .proto file
// without touching service.go's handler wiring.
package swaprpc

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"google.golang.org/grpc/encoding"
)

const codecName = "proto"

type gobCodec struct{}

func (gobCodec) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("swaprpc: encode %T: %w", v, err)
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v interface{}) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("swaprpc: decode %T: %w", v, err)
	}
	return nil
}

func (gobCodec) Name() string { return codecName }

func init() {
	// Registering under the name "proto" overrides grpc-go's default
	// codec lookup for every call in this process, since grpc-go always
	// asks the codec registry for "proto" when a call sets no explicit
	// content-subtype.
	encoding.RegisterCodec(gobCodec{})
}
