// Package ledger is the append-only trade log and the derived
// per-user realized cash balance (spec §4.3).
package ledger

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"energyexchange/internal/clock"
	"energyexchange/internal/domain"
	"energyexchange/internal/safemath"
)

// NewTradeFields is the input to Record: everything the caller already
// knows about a match. TradeID and Timestamp are optional — Record
// fills them in when zero.
type NewTradeFields struct {
	TradeID     string
	Buyer       string
	Seller      string
	Price       int64
	Quantity    int64
	ContractKey domain.ContractKey
	Timestamp   int64
	IsV2        bool
}

// Ledger owns every Trade record and the balances derived from them.
type Ledger struct {
	mu       sync.RWMutex
	clock    clock.Clock
	trades   []domain.Trade
	balances map[string]int64
}

func New(c clock.Clock) *Ledger {
	return &Ledger{
		clock:    c,
		balances: make(map[string]int64),
	}
}

// Record is total: the order book only calls it for matches it has
// already deemed valid, so there is no validation here (spec §4.3).
func (l *Ledger) Record(f NewTradeFields) domain.Trade {
	l.mu.Lock()
	defer l.mu.Unlock()

	if f.TradeID == "" {
		f.TradeID = uuid.NewString()
	}
	if f.Timestamp == 0 {
		f.Timestamp = l.clock.NowMillis()
	}

	trade := domain.Trade{
		TradeID:     f.TradeID,
		Buyer:       f.Buyer,
		Seller:      f.Seller,
		Price:       f.Price,
		Quantity:    f.Quantity,
		ContractKey: f.ContractKey,
		Timestamp:   f.Timestamp,
		IsV2:        f.IsV2,
	}

	// Saturate rather than wrap on overflow (spec §9 "Integer width") —
	// a trade's notional value and the running balance it feeds both
	// stay plain int64 on the wire, so there is no wider type to widen
	// into here the way the admission check can with big.Int.
	value := safemath.MulSaturate(trade.Price, trade.Quantity)
	l.balances[trade.Seller] = safemath.AddSaturate(l.balances[trade.Seller], value)
	l.balances[trade.Buyer] = safemath.AddSaturate(l.balances[trade.Buyer], safemath.NegSaturate(value))

	l.trades = append(l.trades, trade)
	return trade
}

// RecordTrade satisfies orderbook.TradeSink, letting the engine record
// straight through the ledger when no broadcaster wrapping is needed
// (e.g. in tests).
func (l *Ledger) RecordTrade(f NewTradeFields) domain.Trade { return l.Record(f) }

// All returns every trade, sorted by timestamp descending.
func (l *Ledger) All() []domain.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.Trade, len(l.trades))
	copy(out, l.trades)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	return out
}

// Balance returns the realized balance for user, 0 if they have no trades.
func (l *Ledger) Balance(user string) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[user]
}

// Snapshot is an opaque, independently-restorable copy of the full
// trade log and derived balances (gob-encoded deep clone, per spec §9's
// guidance that a straightforward deep clone is correct and acceptable
// since the batch path is not a hot loop).
type Snapshot struct {
	blob []byte
}

type snapshotPayload struct {
	Trades   []domain.Trade
	Balances map[string]int64
}

func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	payload := snapshotPayload{
		Trades:   append([]domain.Trade(nil), l.trades...),
		Balances: make(map[string]int64, len(l.balances)),
	}
	for k, v := range l.balances {
		payload.Balances[k] = v
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(payload); err != nil {
		panic(fmt.Errorf("ledger: snapshot encode: %w", err))
	}
	return Snapshot{blob: buf.Bytes()}
}

// Restore fully replaces the log and balances from a prior Snapshot.
func (l *Ledger) Restore(s Snapshot) {
	var payload snapshotPayload
	if err := gob.NewDecoder(bytes.NewReader(s.blob)).Decode(&payload); err != nil {
		panic(fmt.Errorf("ledger: snapshot decode: %w", err))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.trades = payload.Trades
	l.balances = payload.Balances
}

// Bytes exposes the snapshot's encoded form, used by the persistence
// writer to store it without re-encoding.
func (s Snapshot) Bytes() []byte { return s.blob }

func SnapshotFromBytes(b []byte) Snapshot { return Snapshot{blob: b} }
