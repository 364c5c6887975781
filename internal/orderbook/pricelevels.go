package orderbook

import (
	"container/list"

	"energyexchange/internal/domain"
)

// priceLevel is every resting order at one price, in FIFO time order.
type priceLevel struct {
	price  int64
	orders *list.List // FIFO queue of *domain.Order, front = earliest

	next *priceLevel
	prev *priceLevel
}

// priceLevels is a hashmap-plus-doubly-linked-list price-time
// structure: O(1) best-price access, O(1) order removal via the
// order's cached list.Element, directly grounded on the sibling
// matching-engine example's HashMapListPriceTree
// (ccyyhlg-lightning-exchange/orderbook/price_tree.go). descending
// controls tie-break direction: true for bids (best = highest price),
// false for asks (best = lowest price).
type priceLevels struct {
	levels     map[int64]*priceLevel
	best       *priceLevel
	descending bool
}

func newPriceLevels(descending bool) *priceLevels {
	return &priceLevels{
		levels:     make(map[int64]*priceLevel),
		descending: descending,
	}
}

func (pl *priceLevels) isBetter(a, b int64) bool {
	if pl.descending {
		return a > b
	}
	return a < b
}

// insert adds order to the book at its current price.
func (pl *priceLevels) insert(o *domain.Order) {
	level, ok := pl.levels[o.Price]
	if !ok {
		level = &priceLevel{price: o.Price, orders: list.New()}
		pl.levels[o.Price] = level
		pl.linkLevel(level)
	}
	elem := level.orders.PushBack(o)
	o.SetOrigElement(elem)
}

// remove takes order out of the book. No-op if it isn't resting here.
func (pl *priceLevels) remove(o *domain.Order) {
	level, ok := pl.levels[o.Price]
	if !ok {
		return
	}
	if elem, ok := o.OrigElement().(*list.Element); ok && elem != nil {
		level.orders.Remove(elem)
		o.SetOrigElement(nil)
	}
	if level.orders.Len() == 0 {
		pl.unlinkLevel(level)
	}
}

// bestLevel returns the best price level, or nil if the side is empty.
func (pl *priceLevels) bestLevel() *priceLevel {
	return pl.best
}

// allOrdersBestFirst walks every resting order in full price-time
// priority order (best price first, FIFO within a price).
func (pl *priceLevels) allOrdersBestFirst(yield func(*domain.Order) bool) {
	for lvl := pl.best; lvl != nil; lvl = lvl.next {
		for e := lvl.orders.Front(); e != nil; e = e.Next() {
			if !yield(e.Value.(*domain.Order)) {
				return
			}
		}
	}
}

func (pl *priceLevels) linkLevel(level *priceLevel) {
	if pl.best == nil {
		pl.best = level
		return
	}
	if pl.isBetter(level.price, pl.best.price) {
		level.next = pl.best
		pl.best.prev = level
		pl.best = level
		return
	}
	cur := pl.best
	for cur.next != nil && !pl.isBetter(level.price, cur.next.price) {
		cur = cur.next
	}
	level.next = cur.next
	level.prev = cur
	if cur.next != nil {
		cur.next.prev = level
	}
	cur.next = level
}

func (pl *priceLevels) unlinkLevel(level *priceLevel) {
	delete(pl.levels, level.price)
	if level.prev != nil {
		level.prev.next = level.next
	}
	if level.next != nil {
		level.next.prev = level.prev
	}
	if pl.best == level {
		pl.best = level.next
	}
	level.next = nil
	level.prev = nil
}
