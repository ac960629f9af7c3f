package swap

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/stretchr/testify/require"

	"github.com/comitswap/swapd/btsieve"
	"github.com/comitswap/swapd/model"
)

type memStore struct {
	mu        sync.Mutex
	events    []model.EventKind
	snapshots []model.SwapState
}

func (m *memStore) Append(ctx context.Context, id model.SwapId, kind model.EventKind, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, kind)
	return nil
}

func (m *memStore) SaveSnapshot(ctx context.Context, state model.SwapState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, state)
	return nil
}

func TestDriverRunsToTerminalAndPersistsEachStep(t *testing.T) {
	store := &memStore{}
	d := NewDriver(freshState(), store, store, btclog.Disabled)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- d.Run(ctx) }()

	require.NoError(t, d.Submit(ctx, Event{Kind: model.EventDeclined, Decline: &model.Decline{}}))

	select {
	case err := <-runErr:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("driver did not terminate")
	}

	require.Equal(t, model.PhaseFinalRejected, d.State().Phase)
	require.Equal(t, []model.EventKind{model.EventDeclined}, store.events)
	require.Len(t, store.snapshots, 1)
}

func TestDriverStopsOnInternalError(t *testing.T) {
	store := &memStore{}
	d := NewDriver(freshState(), store, store, btclog.Disabled)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- d.Run(ctx) }()

	// EventAccepted with no Accept payload is an InternalError, not merely
	// a PreconditionError: the driver must abort rather than spin.
	require.NoError(t, d.Submit(ctx, Event{Kind: model.EventAccepted}))

	select {
	case err := <-runErr:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("driver did not terminate")
	}
	require.Equal(t, model.PhaseFinalInternalFailure, d.State().Phase)
}

func TestDriverToleratesPreconditionErrorAndContinues(t *testing.T) {
	store := &memStore{}
	d := NewDriver(freshState(), store, store, btclog.Disabled)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	go d.Run(ctx)

	// Out-of-order AlphaFunded (before Accepted) is a PreconditionError:
	// logged and skipped, not fatal.
	require.NoError(t, d.Submit(ctx, Event{Kind: model.EventAlphaFunded, Ledger: &btsieve.Event{Kind: model.Funded}}))
	require.NoError(t, d.Submit(ctx, Event{Kind: model.EventAccepted, Accept: &model.Accept{}}))

	require.Eventually(t, func() bool {
		return d.State().Phase == model.PhaseAccepted
	}, time.Second, 5*time.Millisecond)
}
