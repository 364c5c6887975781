package stream

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"energyexchange/internal/clock"
	"energyexchange/internal/domain"
	"energyexchange/internal/ledger"
)

func TestLiveSinkBroadcastsOnlyV2Trades(t *testing.T) {
	led := ledger.New(clock.Fixed{})
	hub := NewHub(zap.NewNop())
	go hub.Run()

	c := &Client{hub: hub, send: make(chan []byte, 4)}
	hub.register <- c

	sink := LiveSink{Ledger: led, Hub: hub}

	sink.RecordTrade(ledger.NewTradeFields{
		Buyer: "B", Seller: "A", Price: 150, Quantity: 10,
		ContractKey: domain.ContractKey{DeliveryStart: 3_600_000, DeliveryEnd: 7_200_000},
		IsV2:        true,
	})
	sink.RecordTrade(ledger.NewTradeFields{
		Buyer: "D", Seller: "C", Price: 1, Quantity: 1,
		IsV2: false,
	})

	time.Sleep(20 * time.Millisecond)

	select {
	case msg := <-c.send:
		if len(msg) == 0 {
			t.Fatalf("expected a non-empty encoded frame")
		}
	default:
		t.Fatalf("expected the v2 trade to be broadcast")
	}

	select {
	case <-c.send:
		t.Fatalf("legacy (non-v2) trade should never reach the stream")
	default:
	}
}

func TestBroadcastDropsSilentlyWhenNoConsumers(t *testing.T) {
	hub := NewHub(zap.NewNop())
	go hub.Run()

	hub.Broadcast(domain.Trade{TradeID: "t1", IsV2: true})
}
