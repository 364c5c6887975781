package domain

// Trade is an executed match between a resting (maker) and incoming
// (taker) order (spec §3).
type Trade struct {
	TradeID     string
	Buyer       string
	Seller      string
	Price       int64
	Quantity    int64
	ContractKey ContractKey
	Timestamp   int64
	IsV2        bool
}
