// Package persistence is the opportunistic PERSISTENT_DIR snapshot
// writer (spec §6, §9 "a passive snapshot written opportunistically").
// Grounded on the teacher's PebbleStore (pkg/storage/pebble_store.go,
// pkg/storage/codec.go): same embedded-KV-store-as-durability-layer
// shape, trimmed to the two keys this system actually needs and with
// every failure logged rather than propagated, per spec §7
// ("Persistence failures are logged but never fail the originating
// request").
package persistence

import (
	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"energyexchange/internal/ledger"
	"energyexchange/internal/orderbook"
)

var (
	keyOrderBook = []byte("orderbook-snapshot")
	keyLedger    = []byte("ledger-snapshot")
)

// Store is a best-effort durability layer: every write is opportunistic
// and every failure is logged, never surfaced to the caller.
type Store struct {
	db  *pebble.DB
	log *zap.Logger
}

func Open(path string, log *zap.Logger) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

// Save writes both snapshots. Called after a mutation commits; a
// failure here never unwinds the mutation that triggered it.
func (s *Store) Save(book orderbook.Snapshot, led ledger.Snapshot) {
	if s == nil {
		return
	}
	if err := s.db.Set(keyOrderBook, book.Bytes(), pebble.Sync); err != nil {
		s.log.Warn("persist order book snapshot failed", zap.Error(err))
	}
	if err := s.db.Set(keyLedger, led.Bytes(), pebble.Sync); err != nil {
		s.log.Warn("persist ledger snapshot failed", zap.Error(err))
	}
}

// Load reads the most recently saved snapshots, if any. ok is false
// when the store is empty (a fresh PERSISTENT_DIR).
func (s *Store) Load() (book orderbook.Snapshot, led ledger.Snapshot, ok bool) {
	if s == nil {
		return orderbook.Snapshot{}, ledger.Snapshot{}, false
	}

	bookBytes, bookCloser, err := s.db.Get(keyOrderBook)
	if err != nil {
		if err != pebble.ErrNotFound {
			s.log.Warn("load order book snapshot failed", zap.Error(err))
		}
		return orderbook.Snapshot{}, ledger.Snapshot{}, false
	}
	book = orderbook.SnapshotFromBytes(append([]byte(nil), bookBytes...))
	bookCloser.Close()

	ledgerBytes, ledgerCloser, err := s.db.Get(keyLedger)
	if err != nil {
		if err != pebble.ErrNotFound {
			s.log.Warn("load ledger snapshot failed", zap.Error(err))
		}
		return orderbook.Snapshot{}, ledger.Snapshot{}, false
	}
	led = ledger.SnapshotFromBytes(append([]byte(nil), ledgerBytes...))
	ledgerCloser.Close()

	return book, led, true
}
