package orderbook

import (
	"energyexchange/internal/domain"
	"energyexchange/internal/identity"
	"energyexchange/internal/ledger"
)

// TradeSink is how the matching engine records a trade without knowing
// whether it is live (broadcast immediately) or buffered inside a
// batch (broadcast only on commit). Modeling this as an interface the
// engine depends on, rather than a callback closed over global state,
// keeps the batch/live dichotomy an implementation detail of the sink.
type TradeSink interface {
	RecordTrade(f ledger.NewTradeFields) domain.Trade
}

// BalanceSource is the realized-balance half of potential-balance
// computation; satisfied directly by *ledger.Ledger.
type BalanceSource interface {
	Balance(user string) int64
}

// CollateralSource is the collateral half of admission; satisfied
// directly by *identity.Service.
type CollateralSource interface {
	CollateralLimit(username string) identity.Limit
}
