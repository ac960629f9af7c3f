package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/comitswap/swapd/keyoracle"
	"github.com/comitswap/swapd/model"
)

// autoAcceptDecider is the default Decider policy this daemon ships:
// accept every structurally valid request, deriving the responder's own
// redeem/refund identities from the key oracle rather than asking an
// operator. A production policy engine (balance limits, counterparty
// allow-lists) would implement registry.Decider the same way and get
// swapped in at wiring time in swapdMain; nothing else in the daemon
// depends on this choice.
type autoAcceptDecider struct {
	oracle *keyoracle.Oracle
}

func newAutoAcceptDecider(oracle *keyoracle.Oracle) *autoAcceptDecider {
	return &autoAcceptDecider{oracle: oracle}
}

// Decide implements registry.Decider.
func (d *autoAcceptDecider) Decide(ctx context.Context, req model.Request) (*model.Accept, *model.Decline) {
	if err := req.Validate(); err != nil {
		reason := err.Error()
		return nil, &model.Decline{SwapId: req.SwapId, Reason: &reason}
	}

	accept := model.Accept{
		SwapId:                    req.SwapId,
		AlphaLedgerRedeemIdentity: d.oracle.IdentityFor(req.AlphaLedger.Kind, req.SwapId, model.RoleBob),
		BetaLedgerRefundIdentity:  d.oracle.IdentityFor(req.BetaLedger.Kind, req.SwapId, model.RoleBob),
	}
	return &accept, nil
}

// manualDecider is the operator-in-the-loop Decider policy: a structurally
// valid request is left pending in registry.PhaseStart (neither accepted
// nor declined) until an operator resolves it through resolver's
// ActionAccept/ActionDecline surface — swaprpc's DecideSwap, reached by
// cmd/swapcli's decideswap command — which calls registry.Registry.Decide
// and lands here as a Resolve call. Decide blocks until that happens or
// ctx (the wire connection's request context) is canceled.
type manualDecider struct {
	oracle *keyoracle.Oracle

	mu      sync.Mutex
	pending map[model.SwapId]pendingDecision
}

type pendingDecision struct {
	req model.Request
	ch  chan decisionResult
}

type decisionResult struct {
	accept  *model.Accept
	decline *model.Decline
}

func newManualDecider(oracle *keyoracle.Oracle) *manualDecider {
	return &manualDecider{
		oracle:  oracle,
		pending: make(map[model.SwapId]pendingDecision),
	}
}

// Decide implements registry.Decider.
func (d *manualDecider) Decide(ctx context.Context, req model.Request) (*model.Accept, *model.Decline) {
	if err := req.Validate(); err != nil {
		reason := err.Error()
		return nil, &model.Decline{SwapId: req.SwapId, Reason: &reason}
	}

	p := pendingDecision{req: req, ch: make(chan decisionResult, 1)}
	d.mu.Lock()
	d.pending[req.SwapId] = p
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		delete(d.pending, req.SwapId)
		d.mu.Unlock()
	}()

	select {
	case res := <-p.ch:
		return res.accept, res.decline
	case <-ctx.Done():
		reason := "connection closed before an operator decided"
		return nil, &model.Decline{SwapId: req.SwapId, Reason: &reason}
	}
}

// Resolve implements registry.ManualResolver.
func (d *manualDecider) Resolve(id model.SwapId, approve bool, reason *string) error {
	d.mu.Lock()
	p, ok := d.pending[id]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("manualDecider: no pending decision for swap %s", id)
	}

	if !approve {
		p.ch <- decisionResult{decline: &model.Decline{SwapId: id, Reason: reason}}
		return nil
	}

	accept := model.Accept{
		SwapId:                    id,
		AlphaLedgerRedeemIdentity: d.oracle.IdentityFor(p.req.AlphaLedger.Kind, id, model.RoleBob),
		BetaLedgerRefundIdentity:  d.oracle.IdentityFor(p.req.BetaLedger.Kind, id, model.RoleBob),
	}
	p.ch <- decisionResult{accept: &accept}
	return nil
}
