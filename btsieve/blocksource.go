// Package btsieve implements the ledger event finder (component C2): a
// reorg-tolerant, timestamp-scoped watcher that yields Deployed, Funded,
// Redeemed and Refunded events for one HTLC on one ledger.
//
// The polling/reorg-walk engine is ledger-agnostic; chainbtc and chaineth
// each implement BlockSource to plug their chain into it. The design is
// grounded on lnd's chainntfs.ChainNotifier interface (registration plus a
// buffered event channel) generalized from "confirmation depth" to "HTLC
// lifecycle event", and on contractcourt's re-subscribe-after-reorg
// discipline.
package btsieve

import (
	"context"
	"time"
)

// BlockHash is a ledger-agnostic 32-byte block identifier.
type BlockHash [32]byte

// Block is the minimal per-block view the reorg-walk needs: its own hash,
// its parent's hash (to walk back the chain), its height and timestamp (the
// past-scan bound compares against timestamp) and the ledger-specific
// payload needed to run the matching rules.
type Block struct {
	Hash       BlockHash
	PrevHash   BlockHash
	Height     uint64
	Timestamp  time.Time
	LogsBloom  []byte // Ethereum only; nil for Bitcoin
	Opaque     interface{}
}

// BlockSource is the consumed ledger-connector contract of spec §6:
// latest_block, block_by_hash, and — for ledgers with a notion of mined
// time distinct from the host clock — ledger_time, used for refund
// eligibility checks (spec §4.4's "Expiry discipline").
type BlockSource interface {
	// LatestBlock returns the current chain tip.
	LatestBlock(ctx context.Context) (Block, error)

	// BlockByHash fetches a specific block by hash. Returns
	// ErrBlockNotFound if hash is unknown (e.g. it belonged to a
	// reorged-out branch and has been pruned).
	BlockByHash(ctx context.Context, hash BlockHash) (Block, error)

	// LedgerTime returns the timestamp of the current chain tip, the
	// ledger's own notion of "now" for expiry comparisons.
	LedgerTime(ctx context.Context) (time.Time, error)

	// Matcher returns the MatchFunc this source uses to test whether a
	// Block contains a Deployed/Funded/Redeemed/Refunded event for the
	// given HtlcQuery. Kept on the source (not the watcher) since the
	// matching rules are ledger-specific (spec §4.2).
	Matcher() Matcher
}

// ErrBlockNotFound is returned by BlockSource.BlockByHash for an unknown
// hash.
var ErrBlockNotFound = blockNotFoundError{}

type blockNotFoundError struct{}

func (blockNotFoundError) Error() string { return "btsieve: block not found" }
