package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/comitswap/swapd/model"
	"github.com/comitswap/swapd/registry"
	"github.com/comitswap/swapd/resolver"
	"github.com/comitswap/swapd/swaprpc"
)

// rpcServer implements swaprpc.SwapServiceServer over a *registry.Registry,
// the thin wire-formatting layer between the pure resolver.Resolve
// function and cmd/swapcli's gob-over-grpc client.
type rpcServer struct {
	reg *registry.Registry
}

func newRPCServer(reg *registry.Registry) *rpcServer {
	return &rpcServer{reg: reg}
}

// ListSwaps implements swaprpc.SwapServiceServer.
func (s *rpcServer) ListSwaps(ctx context.Context, _ *swaprpc.ListSwapsRequest) (*swaprpc.ListSwapsResponse, error) {
	states := s.reg.List()
	out := make([]swaprpc.SwapSummary, 0, len(states))
	for _, state := range states {
		out = append(out, swaprpc.SwapSummary{
			SwapId:    state.Id().String(),
			Phase:     state.Phase.String(),
			Role:      state.Role.String(),
			HasSecret: state.HasSecret,
		})
	}
	return &swaprpc.ListSwapsResponse{Swaps: out}, nil
}

// ResolveActions implements swaprpc.SwapServiceServer.
func (s *rpcServer) ResolveActions(ctx context.Context, req *swaprpc.ResolveActionsRequest) (*swaprpc.ResolveActionsResponse, error) {
	id, err := model.ParseSwapId(req.SwapId)
	if err != nil {
		return nil, fmt.Errorf("parse swap_id: %w", err)
	}
	state, found := s.reg.Get(ctx, id)
	if !found {
		return nil, fmt.Errorf("unknown swap %s", req.SwapId)
	}

	var role model.Role
	switch req.Role {
	case "alice":
		role = model.RoleAlice
	case "bob":
		role = model.RoleBob
	default:
		return nil, fmt.Errorf("role must be alice or bob, got %q", req.Role)
	}

	actions := resolver.Resolve(state, role)
	out := make([]swaprpc.ActionMessage, 0, len(actions))
	for _, a := range actions {
		payload, err := json.Marshal(a.Payload)
		if err != nil {
			return nil, fmt.Errorf("marshal action payload: %w", err)
		}
		out = append(out, swaprpc.ActionMessage{
			Kind:        string(a.Kind),
			Ledger:      a.Ledger.String(),
			PayloadJSON: payload,
		})
	}
	return &swaprpc.ResolveActionsResponse{Actions: out}, nil
}

// DecideSwap implements swaprpc.SwapServiceServer: it submits an
// operator's verdict for a swap currently offering resolver.ActionAccept/
// ActionDecline, per spec §4.6's manual Bob-in-Start accept/decline path.
func (s *rpcServer) DecideSwap(ctx context.Context, req *swaprpc.DecideSwapRequest) (*swaprpc.DecideSwapResponse, error) {
	id, err := model.ParseSwapId(req.SwapId)
	if err != nil {
		return nil, fmt.Errorf("parse swap_id: %w", err)
	}

	var reason *string
	if req.Reason != "" {
		reason = &req.Reason
	}
	if err := s.reg.Decide(id, req.Approve, reason); err != nil {
		return nil, fmt.Errorf("decide swap %s: %w", req.SwapId, err)
	}
	return &swaprpc.DecideSwapResponse{}, nil
}
