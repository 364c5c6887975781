package orderbook

import "energyexchange/internal/domain"

// contractBook is the bid/ask pair for one delivery contract.
type contractBook struct {
	bids *priceLevels // descending price, best = highest
	asks *priceLevels // ascending price, best = lowest
}

func newContractBook() *contractBook {
	return &contractBook{
		bids: newPriceLevels(true),
		asks: newPriceLevels(false),
	}
}

func (b *contractBook) sideFor(side domain.Side) *priceLevels {
	if side == domain.Buy {
		return b.bids
	}
	return b.asks
}

func (b *contractBook) oppositeSideFor(side domain.Side) *priceLevels {
	if side == domain.Buy {
		return b.asks
	}
	return b.bids
}

// crosses reports whether an incoming order at incomingPrice would
// trade against a resting order at restingPrice (spec §4.4 step 4).
func crosses(side domain.Side, incomingPrice, restingPrice int64) bool {
	if side == domain.Buy {
		return incomingPrice >= restingPrice
	}
	return incomingPrice <= restingPrice
}
