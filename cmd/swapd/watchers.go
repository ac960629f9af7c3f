package main

import (
	"context"
	"sync"
	"time"

	"github.com/btcsuite/btclog"

	"github.com/comitswap/swapd/btsieve"
	"github.com/comitswap/swapd/model"
	"github.com/comitswap/swapd/registry"
	"github.com/comitswap/swapd/swap"
	"github.com/comitswap/swapd/swaplog"
)

// ledgerEventKind maps a btsieve-observed LedgerStatusKind on a given side
// to the model.EventKind the swap driver expects, the glue between the
// ledger-agnostic Watcher and the swap-specific Transition table.
func ledgerEventKind(s side, status model.LedgerStatusKind) (model.EventKind, bool) {
	switch {
	case s == sideAlpha && status == model.Deployed:
		return model.EventAlphaDeployed, true
	case s == sideAlpha && status == model.Funded:
		return model.EventAlphaFunded, true
	case s == sideAlpha && status == model.Redeemed:
		return model.EventAlphaRedeemed, true
	case s == sideAlpha && status == model.Refunded:
		return model.EventAlphaRefunded, true
	case s == sideBeta && status == model.Deployed:
		return model.EventBetaDeployed, true
	case s == sideBeta && status == model.Funded:
		return model.EventBetaFunded, true
	case s == sideBeta && status == model.Redeemed:
		return model.EventBetaRedeemed, true
	case s == sideBeta && status == model.Refunded:
		return model.EventBetaRefunded, true
	default:
		return 0, false
	}
}

type side uint8

const (
	sideAlpha side = iota
	sideBeta
)

func sideLabel(s side) string {
	if s == sideAlpha {
		return "alpha"
	}
	return "beta"
}

// blockSources resolves a model.LedgerKind to the btsieve.BlockSource
// watching it, built once at startup from whichever chain connectors are
// active.
type blockSources struct {
	bitcoin  btsieve.BlockSource
	ethereum btsieve.BlockSource
}

func (b blockSources) forKind(kind model.LedgerKind) (btsieve.BlockSource, bool) {
	switch kind {
	case model.LedgerBitcoin:
		return b.bitcoin, b.bitcoin != nil
	case model.LedgerEthereum:
		return b.ethereum, b.ethereum != nil
	default:
		return nil, false
	}
}

// watcherManager lazily spawns one btsieve.Watcher per (swap, side) for
// every non-terminal swap the registry tracks, and feeds its observations
// back into the registry as swap.Event submissions — the daemon-level
// glue spec §4.2/§5 describe in the abstract: "one task per (swap,
// ledger)", started once a swap has reached the phase where that side's
// HTLC exists to be watched.
type watcherManager struct {
	reg     *registry.Registry
	sources blockSources
	log     btclog.Logger

	pollInterval time.Duration

	mu      sync.Mutex
	started map[watcherKey]context.CancelFunc
}

type watcherKey struct {
	id   model.SwapId
	side side
}

func newWatcherManager(reg *registry.Registry, sources blockSources, log btclog.Logger, pollInterval time.Duration) *watcherManager {
	return &watcherManager{
		reg:          reg,
		sources:      sources,
		log:          log,
		pollInterval: pollInterval,
		started:      make(map[watcherKey]context.CancelFunc),
	}
}

// Run periodically scans the registry's tracked swaps and ensures a
// watcher goroutine is running for every side whose HTLC is not yet fully
// resolved, until ctx is canceled.
func (m *watcherManager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	m.reconcile(ctx)
	for {
		select {
		case <-ctx.Done():
			m.stopAll()
			return
		case <-ticker.C:
			m.reconcile(ctx)
		}
	}
}

func (m *watcherManager) reconcile(ctx context.Context) {
	for _, state := range m.reg.List() {
		if state.Phase.Terminal() {
			continue
		}
		m.ensure(ctx, state, sideAlpha, state.Request.AlphaLedger, model.AlphaParams(state.Request, derefAccept(state)))
		m.ensure(ctx, state, sideBeta, state.Request.BetaLedger, model.BetaParams(state.Request, derefAccept(state)))
	}
}

func derefAccept(state model.SwapState) model.Accept {
	if state.Accept != nil {
		return *state.Accept
	}
	return model.Accept{}
}

func (m *watcherManager) ensure(ctx context.Context, state model.SwapState, s side, ledger model.Ledger, params model.HtlcParams) {
	if state.Accept == nil {
		return // no HtlcParams until the swap has a counterpart Accept.
	}
	ls := state.AlphaState
	if s == sideBeta {
		ls = state.BetaState
	}
	if ls.Status == model.Redeemed || ls.Status == model.Refunded {
		return
	}

	key := watcherKey{id: state.Id(), side: s}

	m.mu.Lock()
	_, exists := m.started[key]
	m.mu.Unlock()
	if exists {
		return
	}

	source, ok := m.sources.forKind(ledger.Kind)
	if !ok {
		m.log.Warnf("no chain connector active for ledger %s, swap %s side %d unwatched", ledger, state.Id(), s)
		return
	}

	watcherCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.started[key] = cancel
	m.mu.Unlock()

	query := btsieve.HtlcQuery{Params: params, CreatedAt: model.Timestamp(state.CreatedAt.Unix())}
	w := btsieve.NewWatcher(source, query, m.log).WithPollInterval(m.pollInterval)

	go m.drive(watcherCtx, w, state.Id(), s)
}

func (m *watcherManager) drive(ctx context.Context, w *btsieve.Watcher, id model.SwapId, s side) {
	go func() {
		if err := w.Run(ctx); err != nil && ctx.Err() == nil {
			m.log.Errorf("watcher for swap %s side %d exited: %v", id, s, err)
		}
	}()

	for ev := range w.Events() {
		kind, ok := ledgerEventKind(s, ev.Kind)
		if !ok {
			continue
		}
		observed := ev
		outcome := "applied"
		if err := m.reg.Submit(ctx, id, swap.Event{Kind: kind, Ledger: &observed}); err != nil {
			m.log.Warnf("submit %s for swap %s: %v", kind, id, err)
			outcome = "error"
		}
		swaplog.WatcherPolls.WithLabelValues(sideLabel(s), outcome).Inc()
	}
}

func (m *watcherManager) stopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cancel := range m.started {
		cancel()
	}
}
