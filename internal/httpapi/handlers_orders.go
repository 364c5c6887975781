package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"energyexchange/internal/apperr"
	"energyexchange/internal/domain"
	"energyexchange/internal/wire"
)

func parseContractKey(r *http.Request) (domain.ContractKey, error) {
	q := r.URL.Query()
	start, err1 := strconv.ParseInt(q.Get("delivery_start"), 10, 64)
	end, err2 := strconv.ParseInt(q.Get("delivery_end"), 10, 64)
	if err1 != nil || err2 != nil {
		return domain.ContractKey{}, apperr.New(apperr.InvalidInput, "delivery_start and delivery_end must be integers")
	}
	key := domain.ContractKey{DeliveryStart: start, DeliveryEnd: end}
	if !key.Valid() {
		return domain.ContractKey{}, apperr.New(apperr.InvalidInput, "malformed delivery window")
	}
	return key, nil
}

// parseTradeWindow reads the optional delivery_start/delivery_end query
// params trades endpoints accept (spec §6 "GET /v2/trades?window"): when
// neither is present there is no window filter at all; when either is
// present both must parse as a valid contract key.
func parseTradeWindow(r *http.Request) (domain.ContractKey, bool, error) {
	q := r.URL.Query()
	rawStart, rawEnd := q.Get("delivery_start"), q.Get("delivery_end")
	if rawStart == "" && rawEnd == "" {
		return domain.ContractKey{}, false, nil
	}
	key, err := parseContractKey(r)
	if err != nil {
		return domain.ContractKey{}, false, err
	}
	return key, true, nil
}

func filterByWindow(trades []domain.Trade, key domain.ContractKey, has bool) []domain.Trade {
	if !has {
		return trades
	}
	out := make([]domain.Trade, 0, len(trades))
	for _, t := range trades {
		if t.ContractKey == key {
			out = append(out, t)
		}
	}
	return out
}

func orderToWire(o *domain.Order) wire.Value {
	return wire.Object{
		{Name: "order_id", Value: wire.Str(o.OrderID)},
		{Name: "owner", Value: wire.Str(o.Owner)},
		{Name: "side", Value: wire.Str(string(o.Side))},
		{Name: "price", Value: wire.Int(o.Price)},
		{Name: "remaining_quantity", Value: wire.Int(o.RemainingQuantity)},
		{Name: "original_quantity", Value: wire.Int(o.OriginalQuantity)},
		{Name: "delivery_start", Value: wire.Int(o.ContractKey.DeliveryStart)},
		{Name: "delivery_end", Value: wire.Int(o.ContractKey.DeliveryEnd)},
		{Name: "status", Value: wire.Str(string(o.Status))},
		{Name: "priority_timestamp", Value: wire.Int(o.PriorityTimestamp)},
	}
}

func ordersToList(orders []*domain.Order) wire.List {
	items := make([]wire.Value, len(orders))
	for i, o := range orders {
		items[i] = orderToWire(o)
	}
	return wire.List{Elem: wire.KindObject, Items: items}
}

func tradeToWire(t domain.Trade) wire.Value {
	return wire.Object{
		{Name: "trade_id", Value: wire.Str(t.TradeID)},
		{Name: "buyer", Value: wire.Str(t.Buyer)},
		{Name: "seller", Value: wire.Str(t.Seller)},
		{Name: "price", Value: wire.Int(t.Price)},
		{Name: "quantity", Value: wire.Int(t.Quantity)},
		{Name: "delivery_start", Value: wire.Int(t.ContractKey.DeliveryStart)},
		{Name: "delivery_end", Value: wire.Int(t.ContractKey.DeliveryEnd)},
		{Name: "timestamp", Value: wire.Int(t.Timestamp)},
	}
}

func tradesToList(trades []domain.Trade) wire.List {
	items := make([]wire.Value, len(trades))
	for i, t := range trades {
		items[i] = tradeToWire(t)
	}
	return wire.List{Elem: wire.KindObject, Items: items}
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	key, err := parseContractKey(r)
	if err != nil {
		writeError(w, err)
		return
	}
	bids, asks := s.engine.Book(key, s.clock.NowMillis())
	writeObject(w, http.StatusOK, wire.Object{
		{Name: "bids", Value: ordersToList(bids)},
		{Name: "asks", Value: ordersToList(asks)},
	})
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	owner, err := s.authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}
	obj, err := readObject(r)
	if err != nil {
		writeError(w, err)
		return
	}

	sideStr, _ := obj.Str("side")
	price, _ := obj.Int("price")
	quantity, _ := obj.Int("quantity")
	deliveryStart, _ := obj.Int("delivery_start")
	deliveryEnd, _ := obj.Int("delivery_end")

	res, err := s.engine.Submit(owner, domain.Side(sideStr), price, quantity,
		domain.ContractKey{DeliveryStart: deliveryStart, DeliveryEnd: deliveryEnd})
	if err != nil {
		writeError(w, err)
		return
	}
	s.persistAfterMutation()
	writeSubmitResult(w, res.OrderID, res.Status, res.FilledQuantity)
}

func (s *Server) handleModifyOrder(w http.ResponseWriter, r *http.Request) {
	owner, err := s.authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}
	orderID := mux.Vars(r)["order_id"]

	obj, err := readObject(r)
	if err != nil {
		writeError(w, err)
		return
	}
	price, _ := obj.Int("price")
	quantity, _ := obj.Int("quantity")

	res, err := s.engine.Modify(owner, orderID, price, quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	s.persistAfterMutation()
	writeSubmitResult(w, res.OrderID, res.Status, res.FilledQuantity)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	owner, err := s.authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}
	orderID := mux.Vars(r)["order_id"]

	if err := s.engine.Cancel(owner, orderID); err != nil {
		writeError(w, err)
		return
	}
	s.persistAfterMutation()
	writeEmpty(w, http.StatusNoContent)
}

func (s *Server) handleMyOrders(w http.ResponseWriter, r *http.Request) {
	owner, err := s.authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}
	orders := s.engine.MyActive(owner)
	writeObject(w, http.StatusOK, wire.Object{
		{Name: "orders", Value: ordersToList(orders)},
	})
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	key, hasWindow, err := parseTradeWindow(r)
	if err != nil {
		writeError(w, err)
		return
	}
	trades := filterByWindow(filterV2(s.ledger.All()), key, hasWindow)
	writeObject(w, http.StatusOK, wire.Object{
		{Name: "trades", Value: tradesToList(trades)},
	})
}

func (s *Server) handleMyTrades(w http.ResponseWriter, r *http.Request) {
	owner, err := s.authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}
	key, hasWindow, err := parseTradeWindow(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var mine []domain.Trade
	for _, t := range filterByWindow(filterV2(s.ledger.All()), key, hasWindow) {
		if t.Buyer == owner || t.Seller == owner {
			mine = append(mine, t)
		}
	}
	writeObject(w, http.StatusOK, wire.Object{
		{Name: "trades", Value: tradesToList(mine)},
	})
}

func filterV2(trades []domain.Trade) []domain.Trade {
	out := make([]domain.Trade, 0, len(trades))
	for _, t := range trades {
		if t.IsV2 {
			out = append(out, t)
		}
	}
	return out
}

func writeSubmitResult(w http.ResponseWriter, orderID string, status domain.Status, filled int64) {
	writeObject(w, http.StatusOK, wire.Object{
		{Name: "order_id", Value: wire.Str(orderID)},
		{Name: "status", Value: wire.Str(string(status))},
		{Name: "filled_quantity", Value: wire.Int(filled)},
	})
}
