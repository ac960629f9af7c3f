package registry

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/stretchr/testify/require"

	"github.com/comitswap/swapd/model"
	"github.com/comitswap/swapd/swap"
)

type memStore struct {
	mu        sync.Mutex
	snapshots map[model.SwapId]model.SwapState
}

func newMemStore() *memStore {
	return &memStore{snapshots: make(map[model.SwapId]model.SwapState)}
}

func (m *memStore) Append(ctx context.Context, id model.SwapId, kind model.EventKind, ev swap.Event) error {
	return nil
}

func (m *memStore) SaveSnapshot(ctx context.Context, state model.SwapState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[state.Id()] = state
	return nil
}

func (m *memStore) LoadSnapshot(ctx context.Context, id model.SwapId) (model.SwapState, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snapshots[id]
	return s, ok, nil
}

func (m *memStore) NonTerminalSwaps(ctx context.Context) ([]model.SwapState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SwapState
	for _, s := range m.snapshots {
		if !s.Phase.Terminal() {
			out = append(out, s)
		}
	}
	return out, nil
}

type alwaysAccept struct{}

func (alwaysAccept) Decide(ctx context.Context, req model.Request) (*model.Accept, *model.Decline) {
	return &model.Accept{SwapId: req.SwapId}, nil
}

func validRequest() (model.Request, model.Secret) {
	id, _ := model.NewSwapId()
	now := model.Timestamp(time.Now().Unix())
	secret, _ := model.NewSecret()
	hash, _ := secret.Hash(model.HashFunctionSHA256)
	return model.Request{
		SwapId:      id,
		AlphaExpiry: now + 10000,
		BetaExpiry:  now + 1000,
		SecretHash:  hash,
	}, secret
}

func TestCreateSpawnsDriverAsAlice(t *testing.T) {
	store := newMemStore()
	r := New(store, alwaysAccept{}, btclog.Disabled)
	defer r.Stop()

	req, secret := validRequest()
	id, err := r.Create(context.Background(), req, secret)
	require.NoError(t, err)
	require.Equal(t, req.SwapId, id)

	state, ok := r.Get(context.Background(), id)
	require.True(t, ok)
	require.Equal(t, model.RoleAlice, state.Role)
	require.Equal(t, model.PhaseStart, state.Phase)
	require.True(t, state.HasSecret)
}

func TestCreateRejectsDuplicateId(t *testing.T) {
	store := newMemStore()
	r := New(store, alwaysAccept{}, btclog.Disabled)
	defer r.Stop()

	req, secret := validRequest()
	_, err := r.Create(context.Background(), req, secret)
	require.NoError(t, err)

	_, err = r.Create(context.Background(), req, secret)
	require.Error(t, err)
}

func TestCreateRejectsInvalidExpiry(t *testing.T) {
	store := newMemStore()
	r := New(store, alwaysAccept{}, btclog.Disabled)
	defer r.Stop()

	req, secret := validRequest()
	req.BetaExpiry = req.AlphaExpiry // violates the safety margin invariant

	_, err := r.Create(context.Background(), req, secret)
	require.Error(t, err)
}

func TestDispatchIncomingAcceptsAndAdvancesToAccepted(t *testing.T) {
	store := newMemStore()
	r := New(store, alwaysAccept{}, btclog.Disabled)
	defer r.Stop()

	req, _ := validRequest()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	accept, decline, err := r.DispatchIncoming(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, accept)
	require.Nil(t, decline)

	require.Eventually(t, func() bool {
		state, ok := r.Get(ctx, req.SwapId)
		return ok && state.Phase == model.PhaseAccepted
	}, time.Second, 5*time.Millisecond)
}

type alwaysDecline struct{}

func (alwaysDecline) Decide(ctx context.Context, req model.Request) (*model.Accept, *model.Decline) {
	reason := "no liquidity"
	return nil, &model.Decline{SwapId: req.SwapId, Reason: &reason}
}

func TestDispatchIncomingDeclineReachesTerminal(t *testing.T) {
	store := newMemStore()
	r := New(store, alwaysDecline{}, btclog.Disabled)
	defer r.Stop()

	req, _ := validRequest()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	accept, decline, err := r.DispatchIncoming(ctx, req)
	require.NoError(t, err)
	require.Nil(t, accept)
	require.NotNil(t, decline)

	require.Eventually(t, func() bool {
		state, ok := r.Get(ctx, req.SwapId)
		return ok && state.Phase == model.PhaseFinalRejected
	}, time.Second, 5*time.Millisecond)
}

// deferringDecider defers every Decide call until Resolve is called for
// the same swap id, exercising the ManualResolver path Registry.Decide
// wires resolver's ActionAccept/ActionDecline to.
type deferringDecider struct {
	mu      sync.Mutex
	pending map[model.SwapId]chan *model.Decline
}

func newDeferringDecider() *deferringDecider {
	return &deferringDecider{pending: make(map[model.SwapId]chan *model.Decline)}
}

func (d *deferringDecider) Decide(ctx context.Context, req model.Request) (*model.Accept, *model.Decline) {
	ch := make(chan *model.Decline, 1)
	d.mu.Lock()
	d.pending[req.SwapId] = ch
	d.mu.Unlock()

	select {
	case decline := <-ch:
		if decline != nil {
			return nil, decline
		}
		return &model.Accept{SwapId: req.SwapId}, nil
	case <-ctx.Done():
		reason := "timed out"
		return nil, &model.Decline{SwapId: req.SwapId, Reason: &reason}
	}
}

func (d *deferringDecider) Resolve(id model.SwapId, approve bool, reason *string) error {
	d.mu.Lock()
	ch, ok := d.pending[id]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("no pending decision for swap %s", id)
	}
	if approve {
		ch <- nil
		return nil
	}
	ch <- &model.Decline{SwapId: id, Reason: reason}
	return nil
}

func TestRegistryDecideResolvesPendingDecider(t *testing.T) {
	store := newMemStore()
	decider := newDeferringDecider()
	r := New(store, decider, btclog.Disabled)
	defer r.Stop()

	req, _ := validRequest()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	dispatchDone := make(chan struct{})
	var accept *model.Accept
	var decline *model.Decline
	go func() {
		accept, decline, _ = r.DispatchIncoming(ctx, req)
		close(dispatchDone)
	}()

	require.Eventually(t, func() bool {
		return r.Decide(req.SwapId, true, nil) == nil
	}, time.Second, 5*time.Millisecond)

	select {
	case <-dispatchDone:
	case <-time.After(time.Second):
		t.Fatal("DispatchIncoming did not return after Decide")
	}
	require.NotNil(t, accept)
	require.Nil(t, decline)
}

func TestRegistryDecideRequiresManualResolver(t *testing.T) {
	store := newMemStore()
	r := New(store, alwaysAccept{}, btclog.Disabled)
	defer r.Stop()

	id, _ := model.NewSwapId()
	require.Error(t, r.Decide(id, true, nil))
}

func TestRestoreRespawnsNonTerminalSwaps(t *testing.T) {
	store := newMemStore()
	req, _ := validRequest()
	store.snapshots[req.SwapId] = model.SwapState{Request: req, Phase: model.PhaseAccepted, Role: model.RoleAlice}

	r := New(store, alwaysAccept{}, btclog.Disabled)
	defer r.Stop()

	require.NoError(t, r.Restore(context.Background()))

	state, ok := r.Get(context.Background(), req.SwapId)
	require.True(t, ok)
	require.Equal(t, model.PhaseAccepted, state.Phase)
}
