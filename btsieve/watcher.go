package btsieve

import (
	"context"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/lightningnetwork/lnd/ticker"

	"github.com/comitswap/swapd/model"
)

// DefaultPollInterval is the watcher's default polling cadence, per spec
// §4.2 ("configurable interval, default ~1s").
const DefaultPollInterval = 1 * time.Second

// Watcher is the lazy, restartable, effectively-infinite per-(swap, ledger,
// event-kind) event stream of spec §4.2. One Watcher instance is spawned
// per (swap, ledger) pair; it multiplexes over every event kind for that
// single HTLC and yields each kind exactly once — unless a reorg orphans
// the block an event was observed in, in which case the event is
// considered un-happened again and may be re-emitted once a replacement
// block confirms it (spec §8, scenario E5).
type Watcher struct {
	source BlockSource
	query  HtlcQuery
	log    btclog.Logger

	pollInterval time.Duration

	events chan Event

	// bestChain tracks the single best-chain view this watcher has
	// assembled so far, keyed by height, so a reorg can be detected as
	// "the block we previously saw at height h is not an ancestor of
	// the new tip".
	bestChain map[uint64]BlockHash
	tipHeight uint64
	haveTip   bool

	// emittedBy maps a block hash to the event kinds it produced, so
	// those kinds can be rolled back (un-emitted) if the block is later
	// orphaned.
	emittedBy map[BlockHash][]model.LedgerStatusKind
	emitted   map[model.LedgerStatusKind]bool

	// htlcLocation is the Deployed/Funded event's location, once known:
	// the outpoint (Bitcoin) or contract address (Ethereum) that the
	// Matcher must require a Redeemed/Refunded candidate to actually
	// reference, rather than matching on script/bytecode shape alone.
	htlcLocation model.TxLocation
}

// NewWatcher constructs a Watcher. Call Run to start polling; Run blocks
// until ctx is cancelled or this HTLC has been seen Funded and then either
// Redeemed or Refunded.
func NewWatcher(source BlockSource, query HtlcQuery, log btclog.Logger) *Watcher {
	return &Watcher{
		source:       source,
		query:        query,
		log:          log,
		pollInterval: DefaultPollInterval,
		events:       make(chan Event, 4), // MUST be buffered: see spec §5.
		bestChain:    make(map[uint64]BlockHash),
		emittedBy:    make(map[BlockHash][]model.LedgerStatusKind),
		emitted:      make(map[model.LedgerStatusKind]bool),
	}
}

// WithPollInterval overrides DefaultPollInterval, primarily for tests.
func (w *Watcher) WithPollInterval(d time.Duration) *Watcher {
	w.pollInterval = d
	return w
}

// Events returns the channel events are delivered on.
func (w *Watcher) Events() <-chan Event { return w.events }

// Run drives the poll loop: one task per (swap, ledger) per spec §5's
// concurrency model. It performs the bounded past-scan once at startup,
// then polls at pollInterval, walking back via PrevHash on every poll to
// reprocess any chain suffix replaced by a reorg. Run never busy-waits:
// between polls it suspends on the ticker channel or ctx.Done().
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.events)

	t := ticker.New(w.pollInterval)
	t.Resume()
	defer t.Stop()

	if err := w.pollOnce(ctx); err != nil {
		w.log.Errorf("initial poll failed: %v", err)
	}
	if w.done() {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.Ticks():
			if err := w.pollOnce(ctx); err != nil {
				// Ledger query errors are transient per spec
				// §7: log and retry at the same interval,
				// never terminal.
				w.log.Errorf("poll failed, retrying: %v", err)
				continue
			}
			if w.done() {
				return nil
			}
		}
	}
}

func (w *Watcher) done() bool {
	return w.emitted[model.Funded] &&
		(w.emitted[model.Redeemed] || w.emitted[model.Refunded])
}

// pollOnce fetches the latest block, rolls back any events whose block was
// orphaned by a reorg, walks the newly-visible chain suffix, and matches
// each new block in chronological order.
func (w *Watcher) pollOnce(ctx context.Context) error {
	tip, err := w.source.LatestBlock(ctx)
	if err != nil {
		return err
	}

	suffix, forkHeight, err := w.walkBack(ctx, tip)
	if err != nil {
		return err
	}

	w.rollBackOrphaned(forkHeight)

	matcher := w.source.Matcher()
	for i := len(suffix) - 1; i >= 0; i-- {
		block := suffix[i]
		for _, ev := range matcher.Match(block, w.query, w.emitted, w.htlcLocation) {
			if w.emitted[ev.Kind] {
				continue
			}
			w.emitted[ev.Kind] = true
			w.emittedBy[block.Hash] = append(w.emittedBy[block.Hash], ev.Kind)
			if (ev.Kind == model.Funded || ev.Kind == model.Deployed) && w.htlcLocation == (model.TxLocation{}) {
				w.htlcLocation = ev.Location
			}
			select {
			case w.events <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		w.bestChain[block.Height] = block.Hash
	}
	if tip.Height > w.tipHeight || !w.haveTip {
		w.tipHeight = tip.Height
		w.haveTip = true
	}

	return nil
}

// walkBack returns the chain suffix starting at tip and walking back via
// PrevHash until either a block already recorded in bestChain at that exact
// height is reached (the fork point — possibly the steady-state "no reorg"
// case where that block is tip's own parent) or, if bestChain is empty,
// until a block's timestamp precedes the swap's creation time (the bounded
// past scan). The returned slice is newest-first; the second return value
// is the height of the fork point (0 if none found, i.e. a from-scratch
// scan).
func (w *Watcher) walkBack(ctx context.Context, tip Block) ([]Block, uint64, error) {
	var suffix []Block
	cur := tip
	forkHeight := uint64(0)

	for {
		if known, ok := w.bestChain[cur.Height]; ok && known == cur.Hash {
			forkHeight = cur.Height
			break
		}
		suffix = append(suffix, cur)

		if len(w.bestChain) == 0 && cur.Timestamp.Before(w.query.CreatedAt.Time()) {
			break
		}

		var zero BlockHash
		if cur.PrevHash == zero {
			break // genesis
		}

		parent, err := w.source.BlockByHash(ctx, cur.PrevHash)
		if err != nil {
			return nil, 0, err
		}
		cur = parent
	}

	return suffix, forkHeight, nil
}

// rollBackOrphaned un-emits every event whose recording block sat above
// forkHeight in the old best-chain view: that block is no longer an
// ancestor of the new tip, so per spec §8/E5 the swap must roll back to not
// having observed it, and bestChain's stale entries above forkHeight are
// discarded so the next walkBack recomputes them from the new chain.
func (w *Watcher) rollBackOrphaned(forkHeight uint64) {
	for height, hash := range w.bestChain {
		if height <= forkHeight {
			continue
		}
		for _, kind := range w.emittedBy[hash] {
			delete(w.emitted, kind)
			if kind == model.Funded || kind == model.Deployed {
				w.htlcLocation = model.TxLocation{}
			}
		}
		delete(w.emittedBy, hash)
		delete(w.bestChain, height)
	}
}
