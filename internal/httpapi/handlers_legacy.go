package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"energyexchange/internal/legacy"
	"energyexchange/internal/wire"
)

func (s *Server) handleV1Create(w http.ResponseWriter, r *http.Request) {
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
	price, _ := obj.Int("price")
	quantity, _ := obj.Int("quantity")

	listing, err := s.sellList.Create(owner, price, quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeObject(w, http.StatusOK, sellOrderToWire(listing))
}

func (s *Server) handleV1List(w http.ResponseWriter, r *http.Request) {
	listings := s.sellList.All()
	items := make([]wire.Value, len(listings))
	for i, l := range listings {
		items[i] = sellOrderToWire(l)
	}
	writeObject(w, http.StatusOK, wire.Object{
		{Name: "listings", Value: wire.List{Elem: wire.KindObject, Items: items}},
	})
}

func (s *Server) handleV1Take(w http.ResponseWriter, r *http.Request) {
	buyer, err := s.authenticate(r)
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
	quantity, _ := obj.Int("quantity")

	trade, err := s.sellList.Take(buyer, orderID, quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	s.persistAfterMutation()
	writeObject(w, http.StatusOK, tradeToWire(trade).(wire.Object))
}

func sellOrderToWire(o *legacy.SellOrder) wire.Object {
	return wire.Object{
		{Name: "order_id", Value: wire.Str(o.OrderID)},
		{Name: "owner", Value: wire.Str(o.Owner)},
		{Name: "price", Value: wire.Int(o.Price)},
		{Name: "remaining_quantity", Value: wire.Int(o.RemainingQuantity)},
		{Name: "original_quantity", Value: wire.Int(o.OriginalQuantity)},
	}
}
