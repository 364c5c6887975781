package legacy

import (
	"testing"

	"energyexchange/internal/apperr"
	"energyexchange/internal/clock"
	"energyexchange/internal/ledger"
)

func newTestList(t *testing.T) (*List, *ledger.Ledger) {
	t.Helper()
	c := clock.Fixed{}
	led := ledger.New(c)
	return New(c, led), led
}

func TestTakePartialFill(t *testing.T) {
	l, led := newTestList(t)
	o, err := l.Create("A", 100, 50)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	trade, err := l.Take("B", o.OrderID, 20)
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if trade.IsV2 {
		t.Fatalf("v1 trades must never be marked is_v2")
	}
	if trade.Quantity != 20 || trade.Buyer != "B" || trade.Seller != "A" {
		t.Fatalf("unexpected trade %+v", trade)
	}
	if o.RemainingQuantity != 30 {
		t.Fatalf("want remaining 30, got %d", o.RemainingQuantity)
	}
	if led.Balance("A") != 2000 {
		t.Fatalf("want seller balance 2000, got %d", led.Balance("A"))
	}
}

func TestTakeRejectsSelf(t *testing.T) {
	l, _ := newTestList(t)
	o, _ := l.Create("A", 100, 50)

	_, err := l.Take("A", o.OrderID, 10)
	if err == nil || !apperr.Is(err, apperr.SelfMatch) {
		t.Fatalf("want self_match, got %v", err)
	}
}

func TestTakeUnknownOrderNotFound(t *testing.T) {
	l, _ := newTestList(t)
	_, err := l.Take("B", "does-not-exist", 1)
	if err == nil || !apperr.Is(err, apperr.NotFound) {
		t.Fatalf("want not_found, got %v", err)
	}
}
