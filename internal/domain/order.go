package domain

// Side is which side of the book an order rests on.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Status is an order's lifecycle state. FILLED and CANCELLED are terminal.
type Status string

const (
	Active    Status = "ACTIVE"
	Filled    Status = "FILLED"
	Cancelled Status = "CANCELLED"
)

// Order is a resting or historical order (spec §3). OrigElement is an
// opaque handle the order book's price-level structure stashes here
// for O(1) removal; nothing outside orderbook reads it.
type Order struct {
	OrderID            string
	Owner              string
	Side               Side
	Price              int64
	RemainingQuantity  int64
	OriginalQuantity   int64
	ContractKey        ContractKey
	Status             Status
	PriorityTimestamp  int64
	IsV2               bool

	origElement any // *list.Element, opaque outside orderbook
}

func (o *Order) SetOrigElement(e any) { o.origElement = e }
func (o *Order) OrigElement() any     { return o.origElement }

// IsTerminal reports whether the order can no longer be matched,
// modified, or cancelled.
func (o *Order) IsTerminal() bool {
	return o.Status == Filled || o.Status == Cancelled
}
