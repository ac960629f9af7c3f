package swap

import (
	"context"
	"errors"
	"fmt"

	"github.com/btcsuite/btclog"

	"github.com/comitswap/swapd/model"
)

// Persister is the subset of package store's Store that the driver needs:
// append one event, durably, before the driver applies it in memory. Kept
// as a narrow interface (grounded on lnd's habit of depending on small
// per-consumer interfaces rather than a concrete *channeldb.DB) so swap
// never imports store directly.
type Persister interface {
	Append(ctx context.Context, id model.SwapId, kind model.EventKind, ev Event) error
}

// Snapshotter persists the full current SwapState snapshot, used once per
// driver iteration after a successful in-memory transition so restart-scan
// (package registry) can resume without replaying every event from
// scratch.
type Snapshotter interface {
	SaveSnapshot(ctx context.Context, state model.SwapState) error
}

// Driver owns one swap's lifecycle end to end: one task per swap, per the
// concurrency model of spec §5. It is grounded on the
// _examples/bingcicle-atomic-swap swap_state.go driver loop (ctx/cancel,
// buffered input channel, Exit() teardown) and on lnd's ContractResolver
// convention of a resolver owning one contract until it reaches a terminal
// state.
type Driver struct {
	state model.SwapState

	events chan Event

	persist  Persister
	snapshot Snapshotter
	log      btclog.Logger

	done chan struct{}
}

// NewDriver constructs a Driver seeded with the swap's current state
// (PhaseStart for a brand-new swap, or whatever package registry loaded
// from storage on restart).
func NewDriver(state model.SwapState, persist Persister, snapshot Snapshotter, log btclog.Logger) *Driver {
	return &Driver{
		state:    state,
		events:   make(chan Event, 16),
		persist:  persist,
		snapshot: snapshot,
		log:      log,
		done:     make(chan struct{}),
	}
}

// Submit enqueues ev for processing. While the queue is full it blocks
// until ctx is done or the driver has exited: a full queue indicates a
// stuck driver, which is a defect the caller should surface rather than
// silently absorb.
func (d *Driver) Submit(ctx context.Context, ev Event) error {
	select {
	case d.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.done:
		return fmt.Errorf("swap %s: driver has exited", d.state.Id())
	}
}

// State returns a snapshot of the driver's current in-memory state. Safe to
// call only after Run has returned, or by the driver's own goroutine; other
// callers should use package registry's snapshot store instead of racing
// this field.
func (d *Driver) State() model.SwapState { return d.state }

// Done returns a channel closed once Run returns.
func (d *Driver) Done() <-chan struct{} { return d.done }

// Run is the driver's main loop: pull one Event, persist it, apply
// Transition, persist the resulting snapshot, repeat until the swap reaches
// a terminal phase or ctx is canceled. Persistence happens strictly before
// the in-memory state is updated, per spec §6.
func (d *Driver) Run(ctx context.Context) error {
	defer close(d.done)

	if d.state.Phase.Terminal() {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-d.events:
			if err := d.apply(ctx, ev); err != nil {
				d.log.Errorf("swap %s: %v", d.state.Id(), err)
				if isFatal(err) {
					d.state.Phase = model.PhaseFinalInternalFailure
					return err
				}
				continue
			}
			if d.state.Phase.Terminal() {
				d.log.Infof("swap %s reached terminal phase %s", d.state.Id(), d.state.Phase)
				return nil
			}
		}
	}
}

func (d *Driver) apply(ctx context.Context, ev Event) error {
	if err := d.persist.Append(ctx, d.state.Id(), ev.Kind, ev); err != nil {
		return &PersistenceError{Err: err}
	}

	next, err := Transition(d.state, ev)
	if err != nil {
		return err
	}
	d.state = next

	if err := d.snapshot.SaveSnapshot(ctx, d.state); err != nil {
		return &PersistenceError{Err: err}
	}
	return nil
}

// isFatal reports whether err should abort the driver outright rather than
// being logged and skipped. A PreconditionError means a peer or watcher
// delivered a redundant/out-of-order event (tolerated: btsieve can observe
// the same chain state more than once across reorgs); an InternalError
// means the machine itself is confused and must stop making further
// promises about this swap's state.
func isFatal(err error) bool {
	var internal *InternalError
	var persistence *PersistenceError
	return errors.As(err, &internal) || errors.As(err, &persistence)
}
