// Package orderbook is the multi-contract continuous limit order book
// and matching engine (spec §4.4), grounded in structure on the
// sibling matching-engine example's HashMapListPriceTree design
// (ccyyhlg-lightning-exchange/orderbook, matching/engine.go) but
// generalized from one symbol to a map of delivery contracts, and
// rewired for the collateral/exposure admission model and the
// trade-sink interface this system uses in place of a global
// record-trade callback.
package orderbook

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"energyexchange/internal/apperr"
	"energyexchange/internal/clock"
	"energyexchange/internal/domain"
	"energyexchange/internal/ledger"
)

// SubmitResult is the observable outcome of a create or modify
// operation (spec §4.4 "Observable result").
type SubmitResult struct {
	OrderID        string
	Status         domain.Status
	FilledQuantity int64
}

// Engine owns every Order and dispatches admission, modification, and
// cancellation one at a time under its own lock, so a single create,
// modify, or cancel call is always indivisible (spec §5). Serializing
// a whole multi-operation batch against concurrent single-order calls
// is the HTTP boundary's job (httpapi.Server.serialized), since that
// spans calls the engine has no way to group on its own.
type Engine struct {
	mu sync.RWMutex

	clock      clock.Clock
	collateral CollateralSource
	balances   BalanceSource
	sink       TradeSink

	books       map[domain.ContractKey]*contractBook
	orders      map[string]*domain.Order
	ownerOrders map[string]map[string]*domain.Order
}

func New(c clock.Clock, collateral CollateralSource, balances BalanceSource, sink TradeSink) *Engine {
	return &Engine{
		clock:       c,
		collateral:  collateral,
		balances:    balances,
		sink:        sink,
		books:       make(map[domain.ContractKey]*contractBook),
		orders:      make(map[string]*domain.Order),
		ownerOrders: make(map[string]map[string]*domain.Order),
	}
}

// SetSink swaps the active trade sink. The batch executor uses this to
// point the engine at a buffered sink for the duration of a batch and
// restore the live sink afterward.
func (e *Engine) SetSink(sink TradeSink) (previous TradeSink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	previous = e.sink
	e.sink = sink
	return previous
}

// signedExposure computes a resting or hypothetical order's
// contribution to potential balance (spec §3). price*remaining is
// widened to arbitrary precision rather than computed as a plain int64
// product, since spec §9 ("Integer width") forbids silently truncating
// an overflowing exposure product.
func signedExposure(side domain.Side, price, remaining int64) *big.Int {
	v := new(big.Int).Mul(big.NewInt(price), big.NewInt(remaining))
	if side == domain.Buy {
		v.Neg(v)
	}
	return v
}

// potentialLocked computes potential[owner] (spec §3), optionally
// excluding one of the owner's existing orders (for modify, which
// re-evaluates that order's own exposure under its hypothetical new
// terms) and optionally adding a hypothetical order's exposure. The
// running total stays a *big.Int throughout so neither an individual
// exposure product nor their sum can wrap (spec §9).
func (e *Engine) potentialLocked(owner, excludeOrderID string, hypoSide domain.Side, hypoPrice, hypoRemaining int64, hasHypo bool) *big.Int {
	total := big.NewInt(e.balances.Balance(owner))
	for id, o := range e.ownerOrders[owner] {
		if id == excludeOrderID || o.IsTerminal() {
			continue
		}
		total.Add(total, signedExposure(o.Side, o.Price, o.RemainingQuantity))
	}
	if hasHypo {
		total.Add(total, signedExposure(hypoSide, hypoPrice, hypoRemaining))
	}
	return total
}

// PotentialBalance reports owner's current potential balance (spec
// §3) for external display (e.g. GET /balance), with no exclusion and
// no hypothetical order.
func (e *Engine) PotentialBalance(owner string) *big.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.potentialLocked(owner, "", "", 0, 0, false)
}

func (e *Engine) admissible(owner string, side domain.Side, price, quantity int64, excludeOrderID string) error {
	limit := e.collateral.CollateralLimit(owner)
	if limit.Unlimited {
		return nil
	}
	potential := e.potentialLocked(owner, excludeOrderID, side, price, quantity, true)
	if potential.Cmp(big.NewInt(-limit.Value)) < 0 {
		return apperr.New(apperr.InsufficientCollateral, "order would breach collateral limit")
	}
	return nil
}

func validateSubmission(side domain.Side, quantity int64, key domain.ContractKey) error {
	if side != domain.Buy && side != domain.Sell {
		return apperr.New(apperr.InvalidInput, "side must be BUY or SELL")
	}
	if quantity < 1 {
		return apperr.New(apperr.InvalidInput, "quantity must be at least 1")
	}
	if !key.Valid() {
		return apperr.New(apperr.InvalidInput, "contract key must span exactly one delivery window")
	}
	return nil
}

// tradingWindow returns the admissible [open, close] interval for a
// contract (spec §4.4 step 2, GLOSSARY "Trading window").
func tradingWindow(key domain.ContractKey) (open, close int64) {
	start := time.UnixMilli(key.DeliveryStart).UTC()
	midnight := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	open = midnight.AddDate(0, 0, -15).UnixMilli()
	close = key.DeliveryStart - 60_000
	return open, close
}

func checkTradingWindow(key domain.ContractKey, now int64) error {
	open, close := tradingWindow(key)
	if now < open {
		return apperr.New(apperr.TooEarly, "contract not yet open for trading")
	}
	if now > close {
		return apperr.New(apperr.TooLate, "contract trading window has closed")
	}
	return nil
}

func (e *Engine) bookFor(key domain.ContractKey) *contractBook {
	b, ok := e.books[key]
	if !ok {
		b = newContractBook()
		e.books[key] = b
	}
	return b
}

func (e *Engine) indexOwner(o *domain.Order) {
	m, ok := e.ownerOrders[o.Owner]
	if !ok {
		m = make(map[string]*domain.Order)
		e.ownerOrders[o.Owner] = m
	}
	m[o.OrderID] = o
}

func (e *Engine) unindexOwner(o *domain.Order) {
	if m, ok := e.ownerOrders[o.Owner]; ok {
		delete(m, o.OrderID)
	}
}

// probeSelfMatch walks the opposite side exactly as execution will,
// without mutating anything, and fails if the incoming order would
// consume a resting order of its own owner (spec §4.4 step 4).
func (e *Engine) probeSelfMatch(owner string, side domain.Side, price, quantity int64, book *contractBook, excludeID string) error {
	opposite := book.oppositeSideFor(side)
	remaining := quantity
	var rejected error
	opposite.allOrdersBestFirst(func(resting *domain.Order) bool {
		if resting.OrderID == excludeID {
			return true
		}
		if !crosses(side, price, resting.Price) {
			return false
		}
		if resting.Owner == owner {
			rejected = apperr.New(apperr.SelfMatch, "order would self-match")
			return false
		}
		consume := min(remaining, resting.RemainingQuantity)
		remaining -= consume
		return remaining > 0
	})
	return rejected
}

// execute walks the opposite side producing trades until incoming is
// exhausted or crossing ends (spec §4.4 step 5). incoming's and every
// matched resting order's RemainingQuantity are updated in place;
// resting orders that reach 0 are removed from the book and engine
// indices here.
func (e *Engine) execute(incoming *domain.Order, book *contractBook) {
	opposite := book.oppositeSideFor(incoming.Side)
	var filled []*domain.Order

	opposite.allOrdersBestFirst(func(resting *domain.Order) bool {
		if incoming.RemainingQuantity <= 0 {
			return false
		}
		if !crosses(incoming.Side, incoming.Price, resting.Price) {
			return false
		}

		qty := min(incoming.RemainingQuantity, resting.RemainingQuantity)
		buyer, seller := incoming.Owner, resting.Owner
		if incoming.Side == domain.Sell {
			buyer, seller = resting.Owner, incoming.Owner
		}

		e.sink.RecordTrade(ledger.NewTradeFields{
			Buyer:       buyer,
			Seller:      seller,
			Price:       resting.Price,
			Quantity:    qty,
			ContractKey: incoming.ContractKey,
			IsV2:        true,
		})

		incoming.RemainingQuantity -= qty
		resting.RemainingQuantity -= qty
		if resting.RemainingQuantity == 0 {
			resting.Status = domain.Filled
			filled = append(filled, resting)
		}
		return incoming.RemainingQuantity > 0
	})

	for _, o := range filled {
		opposite.remove(o)
		delete(e.orders, o.OrderID)
		e.unindexOwner(o)
	}
}

// reportStatus implements the source's reporting quirk, preserved per
// the unresolved design note on post-submission status (spec §9): any
// submission that matched at least one unit reports FILLED, even if a
// residual quantity still rests.
func reportStatus(filled int64) domain.Status {
	if filled > 0 {
		return domain.Filled
	}
	return domain.Active
}

// Submit admits a new v2 order (spec §4.4 "Admission path").
func (e *Engine) Submit(owner string, side domain.Side, price, quantity int64, key domain.ContractKey) (SubmitResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := validateSubmission(side, quantity, key); err != nil {
		return SubmitResult{}, err
	}
	now := e.clock.NowMillis()
	if err := checkTradingWindow(key, now); err != nil {
		return SubmitResult{}, err
	}
	if err := e.admissible(owner, side, price, quantity, ""); err != nil {
		return SubmitResult{}, err
	}

	book := e.bookFor(key)
	if err := e.probeSelfMatch(owner, side, price, quantity, book, ""); err != nil {
		return SubmitResult{}, err
	}

	incoming := &domain.Order{
		OrderID:           uuid.NewString(),
		Owner:             owner,
		Side:              side,
		Price:             price,
		RemainingQuantity: quantity,
		OriginalQuantity:  quantity,
		ContractKey:       key,
		Status:            domain.Active,
		PriorityTimestamp: now,
		IsV2:              true,
	}

	e.execute(incoming, book)

	if incoming.RemainingQuantity > 0 {
		book.sideFor(incoming.Side).insert(incoming)
		e.orders[incoming.OrderID] = incoming
		e.indexOwner(incoming)
	} else {
		incoming.Status = domain.Filled
	}

	filled := incoming.OriginalQuantity - incoming.RemainingQuantity
	return SubmitResult{OrderID: incoming.OrderID, Status: reportStatus(filled), FilledQuantity: filled}, nil
}

// Modify changes an order's price and/or quantity in place and
// re-runs execution against the post-modification book (spec §4.4
// "Modify").
func (e *Engine) Modify(owner, orderID string, newPrice, newQuantity int64) (SubmitResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	o, ok := e.orders[orderID]
	if !ok || o.IsTerminal() || !o.IsV2 {
		return SubmitResult{}, apperr.New(apperr.NotFound, "order not found")
	}
	if o.Owner != owner {
		return SubmitResult{}, apperr.New(apperr.Forbidden, "owner mismatch")
	}
	if newQuantity < 1 {
		return SubmitResult{}, apperr.New(apperr.InvalidInput, "quantity must be at least 1")
	}

	if err := e.admissible(owner, o.Side, newPrice, newQuantity, o.OrderID); err != nil {
		return SubmitResult{}, err
	}

	book := e.bookFor(o.ContractKey)

	if err := e.probeSelfMatch(owner, o.Side, newPrice, newQuantity, book, o.OrderID); err != nil {
		return SubmitResult{}, err
	}

	now := e.clock.NowMillis()
	resetPriority := newPrice != o.Price || newQuantity > o.RemainingQuantity

	// A priority-preserving modify (same price, quantity not increased,
	// spec §4.4 "preserve otherwise") must leave the order's list.Element
	// exactly where it is: pulling it out and reinserting always appends
	// to the tail, which would let a later-arrived order at the same
	// price jump ahead of it. Only a price change or quantity increase
	// forfeits queue position, so only that case is removed now and
	// reinserted (at the tail of its, possibly new, price level) below.
	side := book.sideFor(o.Side)
	if resetPriority {
		side.remove(o)
	}

	o.Price = newPrice
	o.RemainingQuantity = newQuantity
	if newQuantity > o.OriginalQuantity {
		o.OriginalQuantity = newQuantity
	}
	if resetPriority {
		o.PriorityTimestamp = now
	}

	preExecQuantity := o.RemainingQuantity
	e.execute(o, book)
	filled := preExecQuantity - o.RemainingQuantity

	if o.RemainingQuantity > 0 {
		o.Status = domain.Active
		if resetPriority {
			side.insert(o)
		}
	} else {
		o.Status = domain.Filled
		delete(e.orders, o.OrderID)
		e.unindexOwner(o)
		if !resetPriority {
			side.remove(o)
		}
	}

	return SubmitResult{OrderID: o.OrderID, Status: reportStatus(filled), FilledQuantity: filled}, nil
}

// Cancel removes an order from the book (spec §4.4 "Cancel").
func (e *Engine) Cancel(owner, orderID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	o, ok := e.orders[orderID]
	if !ok || o.IsTerminal() || !o.IsV2 {
		return apperr.New(apperr.NotFound, "order not found")
	}
	if o.Owner != owner {
		return apperr.New(apperr.Forbidden, "owner mismatch")
	}

	e.bookFor(o.ContractKey).sideFor(o.Side).remove(o)
	o.Status = domain.Cancelled
	o.RemainingQuantity = 0
	delete(e.orders, o.OrderID)
	e.unindexOwner(o)
	return nil
}

// Book returns both sides of a contract's resting orders, best-first,
// or two empty slices if the contract is outside its trading window
// (spec §4.4 "Queries").
func (e *Engine) Book(key domain.ContractKey, now int64) (bids, asks []*domain.Order) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := checkTradingWindow(key, now); err != nil {
		return nil, nil
	}
	book, ok := e.books[key]
	if !ok {
		return nil, nil
	}
	book.bids.allOrdersBestFirst(func(o *domain.Order) bool {
		bids = append(bids, o)
		return true
	})
	book.asks.allOrdersBestFirst(func(o *domain.Order) bool {
		asks = append(asks, o)
		return true
	})
	return bids, asks
}

// MyActive returns owner's active v2 orders across every contract,
// newest first.
func (e *Engine) MyActive(owner string) []*domain.Order {
	e.mu.RLock()
	defer e.mu.RUnlock()

	orders := make([]*domain.Order, 0, len(e.ownerOrders[owner]))
	for _, o := range e.ownerOrders[owner] {
		if !o.IsTerminal() {
			orders = append(orders, o)
		}
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].PriorityTimestamp > orders[j].PriorityTimestamp
	})
	return orders
}

// Snapshot is an opaque, independently-restorable deep clone of every
// resting order (spec §9: a straightforward deep clone is acceptable
// since the batch path is not a hot loop). Orders are recorded in book
// order, so Restore's re-insertion keeps each price level's FIFO order.
type Snapshot struct {
	blob []byte
}

type orderRecord struct {
	OrderID            string
	Owner              string
	Side               domain.Side
	Price              int64
	RemainingQuantity  int64
	OriginalQuantity   int64
	ContractKey        domain.ContractKey
	Status             domain.Status
	PriorityTimestamp  int64
	IsV2               bool
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	records := make([]orderRecord, 0, len(e.orders))
	appendRecord := func(o *domain.Order) bool {
		records = append(records, orderRecord{
			OrderID:           o.OrderID,
			Owner:             o.Owner,
			Side:              o.Side,
			Price:             o.Price,
			RemainingQuantity: o.RemainingQuantity,
			OriginalQuantity:  o.OriginalQuantity,
			ContractKey:       o.ContractKey,
			Status:            o.Status,
			PriorityTimestamp: o.PriorityTimestamp,
			IsV2:              o.IsV2,
		})
		return true
	}
	for _, book := range e.books {
		book.bids.allOrdersBestFirst(appendRecord)
		book.asks.allOrdersBestFirst(appendRecord)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(records); err != nil {
		panic(fmt.Errorf("orderbook: snapshot encode: %w", err))
	}
	return Snapshot{blob: buf.Bytes()}
}

// Restore rebuilds every order and price level from a prior Snapshot,
// discarding all current state (spec §4.4 "snapshot()/restore()").
func (e *Engine) Restore(s Snapshot) {
	var records []orderRecord
	if err := gob.NewDecoder(bytes.NewReader(s.blob)).Decode(&records); err != nil {
		panic(fmt.Errorf("orderbook: snapshot decode: %w", err))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.books = make(map[domain.ContractKey]*contractBook)
	e.orders = make(map[string]*domain.Order)
	e.ownerOrders = make(map[string]map[string]*domain.Order)

	for _, r := range records {
		o := &domain.Order{
			OrderID:           r.OrderID,
			Owner:             r.Owner,
			Side:              r.Side,
			Price:             r.Price,
			RemainingQuantity: r.RemainingQuantity,
			OriginalQuantity:  r.OriginalQuantity,
			ContractKey:       r.ContractKey,
			Status:            r.Status,
			PriorityTimestamp: r.PriorityTimestamp,
			IsV2:              r.IsV2,
		}
		e.orders[o.OrderID] = o
		e.indexOwner(o)
		if !o.IsTerminal() {
			e.bookFor(o.ContractKey).sideFor(o.Side).insert(o)
		}
	}
}

func (s Snapshot) Bytes() []byte { return s.blob }

func SnapshotFromBytes(b []byte) Snapshot { return Snapshot{blob: b} }
