package swaprpc

import (
	"context"

	"google.golang.org/grpc"
)

// SwapSummary is the wire shape of one swap's resolver-relevant state.
type SwapSummary struct {
	SwapId    string
	Phase     string
	Role      string
	HasSecret bool
}

// ListSwapsRequest takes no filters: the daemon has no notion of "whose"
// swaps these are beyond the single operator running it.
type ListSwapsRequest struct{}

// ListSwapsResponse enumerates every swap the daemon currently tracks.
type ListSwapsResponse struct {
	Swaps []SwapSummary
}

// ResolveActionsRequest asks which actions are available to role on
// SwapId.
type ResolveActionsRequest struct {
	SwapId string
	Role   string
}

// ActionMessage is one resolver.Action flattened onto the wire: Kind and
// Ledger travel as their String() forms, Payload as JSON so the client
// doesn't need the server's concrete resolver.BitcoinRedeemPayload /
// EthereumCallPayload / EthereumDeployPayload types linked in, only the
// shape documented for its Kind/Ledger pair.
type ActionMessage struct {
	Kind        string
	Ledger      string
	PayloadJSON []byte
}

// ResolveActionsResponse carries every action resolver.Resolve returned.
type ResolveActionsResponse struct {
	Actions []ActionMessage
}

// DecideSwapRequest submits an operator's accept/decline verdict for a
// swap currently offering resolver.ActionAccept/ActionDecline (a Bob-in-
// Start swap whose Decider is deferring to manual resolution). Reason is
// only meaningful when Approve is false.
type DecideSwapRequest struct {
	SwapId  string
	Approve bool
	Reason  string
}

// DecideSwapResponse is empty: the verdict either lands or the call
// returns an error.
type DecideSwapResponse struct{}

// SwapServiceServer is the action-resolver gRPC surface cmd/swapd
// implements and cmd/swapcli calls.
type SwapServiceServer interface {
	ListSwaps(context.Context, *ListSwapsRequest) (*ListSwapsResponse, error)
	ResolveActions(context.Context, *ResolveActionsRequest) (*ResolveActionsResponse, error)
	DecideSwap(context.Context, *DecideSwapRequest) (*DecideSwapResponse, error)
}

// SwapServiceClient is the client stub cmd/swapcli dials against.
type SwapServiceClient interface {
	ListSwaps(ctx context.Context, in *ListSwapsRequest, opts ...grpc.CallOption) (*ListSwapsResponse, error)
	ResolveActions(ctx context.Context, in *ResolveActionsRequest, opts ...grpc.CallOption) (*ResolveActionsResponse, error)
	DecideSwap(ctx context.Context, in *DecideSwapRequest, opts ...grpc.CallOption) (*DecideSwapResponse, error)
}

type swapServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewSwapServiceClient wraps an already-dialled connection.
func NewSwapServiceClient(cc grpc.ClientConnInterface) SwapServiceClient {
	return &swapServiceClient{cc: cc}
}

func (c *swapServiceClient) ListSwaps(ctx context.Context, in *ListSwapsRequest, opts ...grpc.CallOption) (*ListSwapsResponse, error) {
	out := new(ListSwapsResponse)
	if err := c.cc.Invoke(ctx, "/comitswap.SwapService/ListSwaps", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *swapServiceClient) ResolveActions(ctx context.Context, in *ResolveActionsRequest, opts ...grpc.CallOption) (*ResolveActionsResponse, error) {
	out := new(ResolveActionsResponse)
	if err := c.cc.Invoke(ctx, "/comitswap.SwapService/ResolveActions", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *swapServiceClient) DecideSwap(ctx context.Context, in *DecideSwapRequest, opts ...grpc.CallOption) (*DecideSwapResponse, error) {
	out := new(DecideSwapResponse)
	if err := c.cc.Invoke(ctx, "/comitswap.SwapService/DecideSwap", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func _SwapService_ListSwaps_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListSwapsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SwapServiceServer).ListSwaps(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/comitswap.SwapService/ListSwaps"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SwapServiceServer).ListSwaps(ctx, req.(*ListSwapsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _SwapService_ResolveActions_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ResolveActionsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SwapServiceServer).ResolveActions(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/comitswap.SwapService/ResolveActions"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SwapServiceServer).ResolveActions(ctx, req.(*ResolveActionsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _SwapService_DecideSwap_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(DecideSwapRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SwapServiceServer).DecideSwap(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/comitswap.SwapService/DecideSwap"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SwapServiceServer).DecideSwap(ctx, req.(*DecideSwapRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// SwapServiceServiceDesc is the grpc.ServiceDesc RegisterSwapServiceServer
// registers on a *grpc.Server.
var SwapServiceServiceDesc = grpc.ServiceDesc{
	ServiceName: "comitswap.SwapService",
	HandlerType: (*SwapServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListSwaps", Handler: _SwapService_ListSwaps_Handler},
		{MethodName: "ResolveActions", Handler: _SwapService_ResolveActions_Handler},
		{MethodName: "DecideSwap", Handler: _SwapService_DecideSwap_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "swaprpc/service.go",
}

// RegisterSwapServiceServer registers srv on s.
func RegisterSwapServiceServer(s grpc.ServiceRegistrar, srv SwapServiceServer) {
	s.RegisterService(&SwapServiceServiceDesc, srv)
}
