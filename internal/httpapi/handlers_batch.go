package httpapi

import (
	"net/http"

	"energyexchange/internal/apperr"
	"energyexchange/internal/batch"
	"energyexchange/internal/domain"
	"energyexchange/internal/wire"
)

// handleBulkOperations decodes a list of contract-scoped operation
// groups and runs them through the batch executor (spec §4.5, §6
// "POST /v2/bulk-operations"). The wire shape is:
//
//	{ groups: [ { delivery_start, delivery_end, operations: [
//	    { type, token, side?, price?, quantity?, order_id? }, ...
//	] }, ... ] }
func (s *Server) handleBulkOperations(w http.ResponseWriter, r *http.Request) {
	obj, err := readObject(r)
	if err != nil {
		writeError(w, err)
		return
	}

	groups, err := decodeGroups(obj)
	if err != nil {
		writeError(w, err)
		return
	}

	outcomes, err := s.executor.Execute(groups)
	if err != nil {
		writeError(w, err)
		return
	}
	s.persistAfterMutation()

	items := make([]wire.Value, len(outcomes))
	for i, o := range outcomes {
		items[i] = outcomeToWire(o)
	}
	writeObject(w, http.StatusOK, wire.Object{
		{Name: "results", Value: wire.List{Elem: wire.KindObject, Items: items}},
	})
}

func outcomeToWire(o batch.Outcome) wire.Value {
	fields := wire.Object{
		{Name: "type", Value: wire.Str(string(o.Type))},
	}
	if o.OrderID != "" {
		fields.Set("order_id", wire.Str(o.OrderID))
	}
	if o.Type == batch.OpCreate {
		fields.Set("status", wire.Str(string(o.Status)))
	}
	return fields
}

func decodeGroups(obj wire.Object) ([]batch.ContractGroup, error) {
	groupsList, ok := obj.List("groups")
	if !ok {
		return nil, apperr.New(apperr.InvalidInput, "missing groups list")
	}
	groups := make([]batch.ContractGroup, 0, len(groupsList.Items))
	for _, item := range groupsList.Items {
		groupObj, ok := item.(wire.Object)
		if !ok {
			return nil, apperr.New(apperr.InvalidInput, "each group must be an object")
		}
		group, err := decodeGroup(groupObj)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func decodeGroup(obj wire.Object) (batch.ContractGroup, error) {
	start, ok1 := obj.Int("delivery_start")
	end, ok2 := obj.Int("delivery_end")
	if !ok1 || !ok2 {
		return batch.ContractGroup{}, apperr.New(apperr.InvalidInput, "group missing delivery window")
	}
	opsList, ok := obj.List("operations")
	if !ok {
		return batch.ContractGroup{}, apperr.New(apperr.InvalidInput, "group missing operations list")
	}

	ops := make([]batch.Operation, 0, len(opsList.Items))
	for _, item := range opsList.Items {
		opObj, ok := item.(wire.Object)
		if !ok {
			return batch.ContractGroup{}, apperr.New(apperr.InvalidInput, "each operation must be an object")
		}
		op, err := decodeOperation(opObj)
		if err != nil {
			return batch.ContractGroup{}, err
		}
		ops = append(ops, op)
	}

	return batch.ContractGroup{
		ContractKey: domain.ContractKey{DeliveryStart: start, DeliveryEnd: end},
		Operations:  ops,
	}, nil
}

func decodeOperation(obj wire.Object) (batch.Operation, error) {
	typeStr, _ := obj.Str("type")
	token, _ := obj.Str("token")
	side, _ := obj.Str("side")
	price, _ := obj.Int("price")
	quantity, _ := obj.Int("quantity")
	orderID, _ := obj.Str("order_id")

	// Unknown type strings are passed through rather than rejected
	// here: spec §4.5 treats "unknown operation type" as one of the
	// failure kinds discovered in submission order during execution,
	// not a decode-time error, so the executor's dispatch reports it
	// at the right point relative to earlier operations' failures.
	return batch.Operation{
		Type:             batch.OpType(typeStr),
		ParticipantToken: token,
		Side:             domain.Side(side),
		Price:            price,
		Quantity:         quantity,
		OrderID:          orderID,
	}, nil
}
