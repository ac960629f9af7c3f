// Package store implements the persistence layer consumed by package swap
// (swap.Persister, swap.Snapshotter) and package registry (registry.Store):
// CBOR-encoded event records and swap-state snapshots in a bbolt database,
// in two top-level buckets (events, snapshots) keyed by swap id, with
// first-write-wins enforcement per persisted event kind.
//
// The bucket-per-entity layout and Open/Close lifecycle are grounded on
// channeldb/db.go; the sentinel-error idiom is grounded on
// channeldb/error.go.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"

	"github.com/comitswap/swapd/model"
	"github.com/comitswap/swapd/swap"
)

// Sentinel errors, in channeldb/error.go's style: a small fixed set of
// comparable values rather than per-call wrapped strings, so callers can
// use errors.Is.
var (
	// ErrEventAlreadySaved is returned by Append when a second event of
	// the same (SwapId, EventKind) pair is saved, per spec §6's
	// first-write-wins rule.
	ErrEventAlreadySaved = fmt.Errorf("store: event already saved for this swap and kind")

	// ErrSwapNotFound names the unknown-id condition. LoadSnapshot does
	// not return it: it reports an unknown id as found == false with a
	// nil error.
	ErrSwapNotFound = fmt.Errorf("store: swap not found")
)

var (
	eventsBucket    = []byte("events")
	snapshotsBucket = []byte("snapshots")
)

// eventRecord is the CBOR-encoded on-disk shape of one persisted event,
// per spec §6: kind, wall-clock observed-at, and the event's own payload.
type eventRecord struct {
	Kind      model.EventKind `cbor:"kind"`
	ObservedAt int64          `cbor:"observed_at"`
	Accept    *model.Accept   `cbor:"accept,omitempty"`
	Decline   *model.Decline  `cbor:"decline,omitempty"`
	Ledger    *ledgerRecord   `cbor:"ledger,omitempty"`
}

type ledgerRecord struct {
	Kind     model.LedgerStatusKind `cbor:"kind"`
	Location model.TxLocation       `cbor:"location"`
	TxHash   [32]byte               `cbor:"tx_hash"`
	Secret   model.Secret           `cbor:"secret"`
}

// Store is the bbolt-backed implementation of swap.Persister,
// swap.Snapshotter, and registry.Store.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if absent) a bbolt database at path and ensures its
// top-level buckets exist.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt database %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(eventsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(snapshotsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func eventKey(id model.SwapId, kind model.EventKind) []byte {
	key := make([]byte, 0, 17)
	key = append(key, id[:]...)
	key = append(key, byte(kind))
	return key
}

// Append implements swap.Persister: it durably saves ev keyed by
// (id, kind), rejecting a second save of the same pair per spec §6.
func (s *Store) Append(ctx context.Context, id model.SwapId, kind model.EventKind, ev swap.Event) error {
	record := toEventRecord(kind, ev)
	encoded, err := cbor.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode event %s for swap %s: %w", kind, id, err)
	}

	key := eventKey(id, kind)
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(eventsBucket)
		if bucket.Get(key) != nil {
			return ErrEventAlreadySaved
		}
		return bucket.Put(key, encoded)
	})
}

func toEventRecord(kind model.EventKind, ev swap.Event) eventRecord {
	record := eventRecord{Kind: kind, ObservedAt: nowUnix()}
	if ev.Accept != nil {
		accept := *ev.Accept
		record.Accept = &accept
	}
	if ev.Decline != nil {
		decline := *ev.Decline
		record.Decline = &decline
	}
	if ev.Ledger != nil {
		record.Ledger = &ledgerRecord{
			Kind:     ev.Ledger.Kind,
			Location: ev.Ledger.Location,
			TxHash:   ev.Ledger.TxHash,
			Secret:   ev.Ledger.Secret,
		}
	}
	return record
}

// SaveSnapshot implements swap.Snapshotter: it overwrites the single
// latest-state record for state.Id(), refusing a snapshot whose Version is
// older than the stored one. Unlike Append, snapshots are
// mutable — they exist to make restart-scan (package registry) cheap, not
// to serve as the append-only audit trail the event log already is.
func (s *Store) SaveSnapshot(ctx context.Context, state model.SwapState) error {
	encoded, err := cbor.Marshal(toSnapshotRecord(state))
	if err != nil {
		return fmt.Errorf("encode snapshot for swap %s: %w", state.Id(), err)
	}
	id := state.Id()
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(snapshotsBucket)
		if existing := bucket.Get(id[:]); existing != nil {
			var prev snapshotRecord
			if err := cbor.Unmarshal(existing, &prev); err != nil {
				return fmt.Errorf("decode snapshot: %w", err)
			}
			if state.Version < prev.Version {
				return fmt.Errorf("store: stale snapshot for swap %s: version %d older than stored %d",
					id, state.Version, prev.Version)
			}
		}
		return bucket.Put(id[:], encoded)
	})
}

// LoadSnapshot implements registry.Store.
func (s *Store) LoadSnapshot(ctx context.Context, id model.SwapId) (model.SwapState, bool, error) {
	var state model.SwapState
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(snapshotsBucket).Get(id[:])
		if b == nil {
			return nil
		}
		var record snapshotRecord
		if err := cbor.Unmarshal(b, &record); err != nil {
			return fmt.Errorf("decode snapshot: %w", err)
		}
		state = fromSnapshotRecord(record)
		found = true
		return nil
	})
	if err != nil {
		return model.SwapState{}, false, err
	}
	return state, found, nil
}

// NonTerminalSwaps implements registry.Store: a full bucket scan, which is
// acceptable here since it only ever runs once at startup (spec §5's
// restart discipline), never on the hot path.
func (s *Store) NonTerminalSwaps(ctx context.Context) ([]model.SwapState, error) {
	var out []model.SwapState
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(snapshotsBucket).ForEach(func(_, v []byte) error {
			var record snapshotRecord
			if err := cbor.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("decode snapshot: %w", err)
			}
			state := fromSnapshotRecord(record)
			if !state.Phase.Terminal() {
				out = append(out, state)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("scan non-terminal swaps: %w", err)
	}
	return out, nil
}

func nowUnix() int64 {
	// time.Now is deliberately the only wall-clock touch in this package;
	// everything upstream of it (swap.Transition) stays pure.
	return timeNow().Unix()
}
