package ledger

import (
	"testing"
	"time"

	"energyexchange/internal/clock"
)

func newTestLedger() *Ledger {
	return New(clock.Fixed{T: time.UnixMilli(1_700_000_000_000)})
}

func TestRecordAssignsIDAndTimestamp(t *testing.T) {
	l := newTestLedger()
	trade := l.Record(NewTradeFields{Buyer: "bob", Seller: "alice", Price: 150, Quantity: 10, IsV2: true})

	if trade.TradeID == "" {
		t.Fatal("expected a generated trade id")
	}
	if trade.Timestamp != 1_700_000_000_000 {
		t.Fatalf("expected stamped timestamp, got %d", trade.Timestamp)
	}
}

func TestBalanceIdentity(t *testing.T) {
	l := newTestLedger()
	l.Record(NewTradeFields{Buyer: "bob", Seller: "alice", Price: 150, Quantity: 10, IsV2: true})
	l.Record(NewTradeFields{Buyer: "carol", Seller: "alice", Price: 140, Quantity: 5, IsV2: true})
	l.Record(NewTradeFields{Buyer: "alice", Seller: "bob", Price: 130, Quantity: 2, IsV2: true})

	// alice: seller twice (150*10 + 140*5), buyer once (130*2)
	wantAlice := int64(150*10+140*5) - int64(130*2)
	if got := l.Balance("alice"); got != wantAlice {
		t.Fatalf("alice balance = %d, want %d", got, wantAlice)
	}

	wantBob := int64(130*2) - int64(150*10)
	if got := l.Balance("bob"); got != wantBob {
		t.Fatalf("bob balance = %d, want %d", got, wantBob)
	}

	if got := l.Balance("nobody"); got != 0 {
		t.Fatalf("balance for untouched user = %d, want 0", got)
	}
}

func TestAllSortedDescending(t *testing.T) {
	l := New(clock.RealClock{})
	l.Record(NewTradeFields{Buyer: "b", Seller: "a", Price: 1, Quantity: 1, Timestamp: 100})
	l.Record(NewTradeFields{Buyer: "b", Seller: "a", Price: 1, Quantity: 1, Timestamp: 300})
	l.Record(NewTradeFields{Buyer: "b", Seller: "a", Price: 1, Quantity: 1, Timestamp: 200})

	all := l.All()
	for i := 1; i < len(all); i++ {
		if all[i-1].Timestamp < all[i].Timestamp {
			t.Fatalf("not sorted descending: %v", all)
		}
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	l := newTestLedger()
	l.Record(NewTradeFields{Buyer: "bob", Seller: "alice", Price: 150, Quantity: 10, IsV2: true})
	snap := l.Snapshot()

	l.Record(NewTradeFields{Buyer: "carol", Seller: "alice", Price: 1, Quantity: 1, IsV2: true})
	if len(l.All()) != 2 {
		t.Fatal("expected second trade to be recorded")
	}

	l.Restore(snap)
	if len(l.All()) != 1 {
		t.Fatalf("expected restore to drop post-snapshot trade, got %d trades", len(l.All()))
	}
	if got := l.Balance("carol"); got != 0 {
		t.Fatalf("expected carol's balance to be rolled back, got %d", got)
	}
}
