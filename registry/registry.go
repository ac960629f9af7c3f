// Package registry implements the swap registry and dispatcher (component
// C5): it owns the map from SwapId to running swap.Driver, enforces at most
// one active machine per id, and on restart re-spawns a driver for every
// swap a prior run left non-terminal.
//
// The actor/command-channel dispatch shape is grounded on lnd's
// htlcswitch.Switch (a single goroutine owning a map of active circuits,
// commands delivered over channels rather than guarded directly by a
// mutex for the hot path); the ongoing/past split used by ListSwaps is
// grounded on _examples/bingcicle-atomic-swap's protocol/swap/manager.go.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/lightningnetwork/lnd/queue"

	"github.com/comitswap/swapd/model"
	"github.com/comitswap/swapd/swap"
	"github.com/comitswap/swapd/swaplog"
)

// timeNow is a var, not a direct time.Now call, so registry_test.go can
// freeze it without threading a clock argument through Create/
// handleIncoming's exported signatures. Mirrors store/clock.go's timeNow.
var timeNow = time.Now

// Store is the persistence surface the registry needs beyond what an
// individual swap.Driver uses: enumerate every non-terminal swap left over
// from a prior run, and load one swap's latest snapshot.
type Store interface {
	swap.Persister
	swap.Snapshotter
	LoadSnapshot(ctx context.Context, id model.SwapId) (model.SwapState, bool, error)
	NonTerminalSwaps(ctx context.Context) ([]model.SwapState, error)
}

// Decider decides how to answer an incoming SWAP request: accept (with the
// responder's own identities) or decline (with an optional opaque reason).
// The registry has no opinion on policy; it only wires the decision into
// the state machine and the wire response.
type Decider interface {
	Decide(ctx context.Context, req model.Request) (*model.Accept, *model.Decline)
}

// ManualResolver is implemented by a Decider whose Decide call can stay
// pending until an operator supplies the verdict from outside the
// registry, rather than deciding synchronously inline. It is the hook
// resolver's ActionAccept/ActionDecline (offered for PhaseStart, Bob's
// role) is wired to through Registry.Decide: the default autoAcceptDecider
// does not implement it, since it never has anything pending.
type ManualResolver interface {
	Resolve(id model.SwapId, approve bool, reason *string) error
}

// entry pairs a running driver with the goroutine lifetime that owns it.
type entry struct {
	driver *swap.Driver
	cancel context.CancelFunc
}

// dispatchTask is one unit of work queued by DispatchIncoming: a request to
// adjudicate plus the channel its caller blocks on for the verdict.
type dispatchTask struct {
	ctx    context.Context
	req    model.Request
	result chan<- dispatchResult
}

type dispatchResult struct {
	accept  *model.Accept
	decline *model.Decline
	err     error
}

// Registry is the process-wide map of active and completed swaps.
//
// Incoming SWAP requests are handed to a single dispatcher goroutine over a
// FIFO queue rather than processed inline on the caller's goroutine, so
// they are adjudicated one at a time in arrival order, the same way
// htlcswitch.Switch serializes circuit creation through its own command
// loop. "At most one machine per id" is enforced by checking and spawning
// under mu, both there and in Create.
type Registry struct {
	mu      sync.RWMutex
	entries map[model.SwapId]*entry

	store   Store
	decider Decider
	log     btclog.Logger

	incoming *queue.ConcurrentQueue
	stopOnce sync.Once
	stopped  chan struct{}
}

// New constructs an empty Registry. Call Restore before serving traffic to
// re-spawn drivers for swaps a prior run left non-terminal.
func New(store Store, decider Decider, log btclog.Logger) *Registry {
	r := &Registry{
		entries:  make(map[model.SwapId]*entry),
		store:    store,
		decider:  decider,
		log:      log,
		incoming: queue.NewConcurrentQueue(64),
		stopped:  make(chan struct{}),
	}
	r.incoming.Start()
	go r.dispatchLoop()
	return r
}

// dispatchLoop is the single goroutine that adjudicates every incoming SWAP
// request in arrival order.
func (r *Registry) dispatchLoop() {
	for {
		select {
		case item, ok := <-r.incoming.ChanOut():
			if !ok {
				return
			}
			task := item.(dispatchTask)
			accept, decline, err := r.handleIncoming(task.ctx, task.req)
			task.result <- dispatchResult{accept: accept, decline: decline, err: err}
		case <-r.stopped:
			return
		}
	}
}

// Stop tears down every running driver and the incoming-request queue.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() { close(r.stopped) })
	r.incoming.Stop()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		e.cancel()
	}
}

// Restore re-spawns a driver for every swap the Store reports non-terminal,
// per spec §5's restart discipline: a crash must never leave a swap's
// obligations (e.g. an imminent refund deadline) unattended.
func (r *Registry) Restore(ctx context.Context) error {
	states, err := r.store.NonTerminalSwaps(ctx)
	if err != nil {
		return fmt.Errorf("load non-terminal swaps: %w", err)
	}
	for _, state := range states {
		r.spawn(state)
		r.log.Infof("restored swap %s in phase %s", state.Id(), state.Phase)
	}
	return nil
}

// Create starts a brand-new swap as Alice (the requester) and returns its
// id. req must already satisfy Request.Validate(); Create enforces it
// again so a caller cannot bypass the safety-margin invariant. secret is
// the preimage Alice generated locally before sending req.SecretHash over
// the wire — it never travels in the Request itself, so Create is the only
// place that attaches it to the in-memory SwapState.
func (r *Registry) Create(ctx context.Context, req model.Request, secret model.Secret) (model.SwapId, error) {
	if err := req.Validate(); err != nil {
		return model.SwapId{}, &swap.RejectionError{Reason: err.Error()}
	}
	if !secret.Matches(req.SecretHash, req.HashFunction) {
		return model.SwapId{}, &swap.RejectionError{Reason: "secret does not match secret_hash"}
	}

	r.mu.Lock()
	if _, exists := r.entries[req.SwapId]; exists {
		r.mu.Unlock()
		return model.SwapId{}, fmt.Errorf("registry: swap %s already exists", req.SwapId)
	}
	state := model.SwapState{
		Request:   req,
		Phase:     model.PhaseStart,
		Role:      model.RoleAlice,
		Secret:    secret,
		HasSecret: true,
		CreatedAt: timeNow(),
	}
	r.spawnLocked(state)
	r.mu.Unlock()
	return req.SwapId, nil
}

// Get returns a snapshot of swap id's current state: from the driver this
// process registered for id (a driver stays registered after its swap
// reaches a terminal phase), falling back to the last persisted snapshot
// for an id this process has no driver for, such as a swap a prior run
// left terminal.
func (r *Registry) Get(ctx context.Context, id model.SwapId) (model.SwapState, bool) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if ok {
		return e.driver.State(), true
	}

	state, found, err := r.store.LoadSnapshot(ctx, id)
	if err != nil {
		r.log.Errorf("load snapshot for swap %s: %v", id, err)
		return model.SwapState{}, false
	}
	return state, found
}

// List returns a snapshot of every swap this process currently tracks.
func (r *Registry) List() []model.SwapState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.SwapState, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.driver.State())
	}
	return out
}

// Submit delivers ev to the driver for id. It returns an error if this
// process has no driver for id, or if that driver has already exited.
func (r *Registry) Submit(ctx context.Context, id model.SwapId, ev swap.Event) error {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("registry: no active swap %s", id)
	}
	return e.driver.Submit(ctx, ev)
}

// Decide submits an operator's manual accept/decline verdict for swap id,
// unblocking a still-pending Decider.Decide call for that swap — the path
// resolver's ActionAccept/ActionDecline actions (via swaprpc/swapcli) use
// to resolve a Bob-in-Start swap the configured Decider deferred. It
// returns an error if the configured Decider does not support manual
// resolution (it doesn't implement ManualResolver, as is the case for the
// default auto-accept policy) or there is no pending decision for id.
func (r *Registry) Decide(id model.SwapId, approve bool, reason *string) error {
	mr, ok := r.decider.(ManualResolver)
	if !ok {
		return fmt.Errorf("registry: configured decider does not support manual resolution")
	}
	return mr.Resolve(id, approve, reason)
}

// DispatchIncoming handles a SWAP request received over the wire (from
// package wireproto via cmd/swapd's peer server): it enqueues
// the request onto the registry's single dispatcher goroutine and blocks
// until that goroutine enforces at-most-one-machine-per-id, asks the
// Decider for a verdict, spawns a driver as Bob, and drives it through the
// Accepted/Declined transition — so the responder's own state already
// reflects the verdict before the caller writes the RESPONSE frame.
func (r *Registry) DispatchIncoming(ctx context.Context, req model.Request) (*model.Accept, *model.Decline, error) {
	result := make(chan dispatchResult, 1)
	select {
	case r.incoming.ChanIn() <- dispatchTask{ctx: ctx, req: req, result: result}:
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case <-r.stopped:
		return nil, nil, fmt.Errorf("registry: stopped")
	}

	select {
	case res := <-result:
		return res.accept, res.decline, res.err
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}

// handleIncoming runs on the dispatcher goroutine only.
func (r *Registry) handleIncoming(ctx context.Context, req model.Request) (*model.Accept, *model.Decline, error) {
	if err := req.Validate(); err != nil {
		decline := model.Decline{SwapId: req.SwapId}
		return nil, &decline, nil
	}

	r.mu.Lock()
	if _, exists := r.entries[req.SwapId]; exists {
		r.mu.Unlock()
		return nil, nil, fmt.Errorf("registry: swap %s already dispatched", req.SwapId)
	}
	state := model.SwapState{
		Request:   req,
		Phase:     model.PhaseStart,
		Role:      model.RoleBob,
		CreatedAt: timeNow(),
	}
	e := r.spawnLocked(state)
	r.mu.Unlock()

	accept, decline := r.decider.Decide(ctx, req)

	var ev swap.Event
	switch {
	case accept != nil:
		ev = swap.Event{Kind: model.EventAccepted, Accept: accept}
	case decline != nil:
		ev = swap.Event{Kind: model.EventDeclined, Decline: decline}
	default:
		reason := "no verdict"
		decline = &model.Decline{SwapId: req.SwapId, Reason: &reason}
		ev = swap.Event{Kind: model.EventDeclined, Decline: decline}
	}

	if err := e.driver.Submit(ctx, ev); err != nil {
		return nil, nil, fmt.Errorf("submit verdict for swap %s: %w", req.SwapId, err)
	}
	return accept, decline, nil
}

func (r *Registry) spawn(state model.SwapState) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.spawnLocked(state)
}

// spawnLocked requires r.mu to be held for writing.
func (r *Registry) spawnLocked(state model.SwapState) *entry {
	driverCtx, cancel := context.WithCancel(context.Background())
	driver := swap.NewDriver(state, r.store, r.store, r.log)
	e := &entry{driver: driver, cancel: cancel}
	r.entries[state.Id()] = e

	swaplog.SwapsCreated.WithLabelValues(state.Role.String()).Inc()

	go func() {
		if err := driver.Run(driverCtx); err != nil {
			r.log.Errorf("swap %s driver exited: %v", state.Id(), err)
		}
		if final := driver.State(); final.Phase.Terminal() {
			swaplog.SwapsTerminal.WithLabelValues(final.Phase.String()).Inc()
		}
	}()

	return e
}
