package persistence

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"energyexchange/internal/clock"
	"energyexchange/internal/ledger"
	"energyexchange/internal/orderbook"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snap")
	store, err := Open(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	led := ledger.New(clock.Fixed{})
	led.Record(ledger.NewTradeFields{Buyer: "B", Seller: "A", Price: 10, Quantity: 5})

	bookSnap := orderbook.Snapshot{}
	ledgerSnap := led.Snapshot()

	store.Save(bookSnap, ledgerSnap)

	_, loadedLedger, ok := store.Load()
	if !ok {
		t.Fatalf("expected a saved snapshot to be found")
	}
	if len(loadedLedger.Bytes()) == 0 {
		t.Fatalf("expected a non-empty ledger snapshot blob")
	}
}

func TestLoadEmptyStoreIsNotOK(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snap")
	store, err := Open(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	_, _, ok := store.Load()
	if ok {
		t.Fatalf("a fresh store should report no saved snapshot")
	}
}
