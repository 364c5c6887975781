// Package legacy is the v1 sell-only order list with a manual take
// endpoint (spec §9). It shares no state with the matching engine: its
// fills are recorded in the shared ledger as is_v2 = false trades that
// never reach the stream broadcaster, kept
// as a small, separate component exactly as the source structured it.
package legacy

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"energyexchange/internal/apperr"
	"energyexchange/internal/clock"
	"energyexchange/internal/domain"
	"energyexchange/internal/ledger"
)

// SellOrder is a v1 listing: a fixed quantity at a fixed price, taken
// whole or in part by any other user calling Take.
type SellOrder struct {
	OrderID           string
	Owner             string
	Price             int64
	RemainingQuantity int64
	OriginalQuantity  int64
	CreatedAt         int64
}

// List holds every v1 sell order ever created, active or exhausted.
type List struct {
	mu     sync.Mutex
	clock  clock.Clock
	ledger *ledger.Ledger
	orders map[string]*SellOrder
}

func New(c clock.Clock, led *ledger.Ledger) *List {
	return &List{
		clock:  c,
		ledger: led,
		orders: make(map[string]*SellOrder),
	}
}

// Create lists a new sell order. There is no matching on creation —
// v1 orders only change hands through an explicit Take.
func (l *List) Create(owner string, price, quantity int64) (*SellOrder, error) {
	if quantity < 1 {
		return nil, apperr.New(apperr.InvalidInput, "quantity must be at least 1")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	o := &SellOrder{
		OrderID:           uuid.NewString(),
		Owner:             owner,
		Price:             price,
		RemainingQuantity: quantity,
		OriginalQuantity:  quantity,
		CreatedAt:         l.clock.NowMillis(),
	}
	l.orders[o.OrderID] = o
	return o, nil
}

// Take consumes up to quantity units of an existing listing at its
// listed price, recording a v1 trade for the portion actually filled.
func (l *List) Take(buyer, orderID string, quantity int64) (domain.Trade, error) {
	if quantity < 1 {
		return domain.Trade{}, apperr.New(apperr.InvalidInput, "quantity must be at least 1")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	o, ok := l.orders[orderID]
	if !ok || o.RemainingQuantity == 0 {
		return domain.Trade{}, apperr.New(apperr.NotFound, "sell order not found")
	}
	if o.Owner == buyer {
		return domain.Trade{}, apperr.New(apperr.SelfMatch, "cannot take your own listing")
	}

	taken := min(quantity, o.RemainingQuantity)
	o.RemainingQuantity -= taken

	return l.ledger.Record(ledger.NewTradeFields{
		Buyer:    buyer,
		Seller:   o.Owner,
		Price:    o.Price,
		Quantity: taken,
		IsV2:     false,
	}), nil
}

// All returns every listing with remaining quantity, newest first.
func (l *List) All() []*SellOrder {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*SellOrder, 0, len(l.orders))
	for _, o := range l.orders {
		if o.RemainingQuantity > 0 {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt > out[j].CreatedAt
	})
	return out
}
