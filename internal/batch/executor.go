// Package batch is the transactional batch-operation executor (spec
// §4.5): it snapshots the order book and trade ledger, applies every
// operation through the engine's ordinary entry points, and rolls
// both snapshots back atomically on the first failure. Grounded in
// structure on the teacher's account-manager transaction pattern
// (uhyunpark-hyperlicked/pkg/app/core/account/manager.go), which
// wraps a sequence of mutations in a snapshot-apply-or-revert shape,
// generalized here to span two independently snapshotted components.
package batch

import (
	"energyexchange/internal/apperr"
	"energyexchange/internal/clock"
	"energyexchange/internal/domain"
	"energyexchange/internal/identity"
	"energyexchange/internal/ledger"
	"energyexchange/internal/orderbook"
)

type OpType string

const (
	OpCreate OpType = "create"
	OpModify OpType = "modify"
	OpCancel OpType = "cancel"
)

// Operation is one participant action within a contract group. Which
// fields apply depends on Type: Create uses Side/Price/Quantity,
// Modify uses OrderID/Price/Quantity, Cancel uses only OrderID.
type Operation struct {
	Type             OpType
	ParticipantToken string
	Side             domain.Side
	Price            int64
	Quantity         int64
	OrderID          string
}

// ContractGroup is one contract's worth of operations within a batch.
type ContractGroup struct {
	ContractKey domain.ContractKey
	Operations  []Operation
}

// Outcome reports one operation's result in submission order. Status
// is populated only for Create, per spec §4.5's outcome shape.
type Outcome struct {
	Type    OpType
	OrderID string
	Status  domain.Status
}

// Broadcaster is the live-push half of the trade-sink dichotomy (spec
// §4.6); satisfied by *stream.Hub. The executor never broadcasts
// trades itself — it hands the buffered trades to the broadcaster in
// production order once a batch commits.
type Broadcaster interface {
	Broadcast(t domain.Trade)
}

// TokenResolver is the subset of identity.Service the executor needs.
type TokenResolver interface {
	ResolveToken(token string) (string, bool)
}

type Executor struct {
	clock       clock.Clock
	identity    TokenResolver
	engine      *orderbook.Engine
	ledger      *ledger.Ledger
	broadcaster Broadcaster
}

func New(c clock.Clock, idSvc *identity.Service, engine *orderbook.Engine, led *ledger.Ledger, broadcaster Broadcaster) *Executor {
	return &Executor{
		clock:       c,
		identity:    idSvc,
		engine:      engine,
		ledger:      led,
		broadcaster: broadcaster,
	}
}

// bufferedSink records every trade through the ledger immediately
// (the ledger's balances must reflect in-progress batch trades so
// later operations in the same batch see accurate collateral), but
// withholds the broadcast push until the batch commits (spec §4.6
// record_and_buffer).
type bufferedSink struct {
	ledger *ledger.Ledger
	trades []domain.Trade
}

func (b *bufferedSink) RecordTrade(f ledger.NewTradeFields) domain.Trade {
	trade := b.ledger.RecordTrade(f)
	b.trades = append(b.trades, trade)
	return trade
}

const maxBatchHorizonDays = 30

// validateGroup runs the per-contract checks that must pass before any
// operation of that contract executes (spec §4.5).
func validateGroup(g ContractGroup, now int64) error {
	if !g.ContractKey.Valid() {
		return apperr.New(apperr.InvalidInput, "invalid contract key")
	}
	if g.ContractKey.DeliveryEnd <= now {
		return apperr.New(apperr.TooLate, "contract delivery window has already ended")
	}
	horizon := now + maxBatchHorizonDays*24*60*60*1000
	if g.ContractKey.DeliveryStart > horizon {
		return apperr.New(apperr.TooEarly, "contract delivery window is too far in the future")
	}
	if len(g.Operations) == 0 {
		return apperr.New(apperr.InvalidInput, "operations list must not be empty")
	}
	return nil
}

// Execute applies every operation of every group in order. On success
// it returns the per-operation outcomes and flushes buffered trades to
// the broadcaster. On the first failure it restores both the order
// book and the ledger to their pre-batch state and returns the error
// that caused the failure; no outcomes are returned in that case.
func (x *Executor) Execute(groups []ContractGroup) ([]Outcome, error) {
	bookSnap := x.engine.Snapshot()
	ledgerSnap := x.ledger.Snapshot()

	buffer := &bufferedSink{ledger: x.ledger}
	liveSink := x.engine.SetSink(buffer)

	outcomes, err := x.applyAll(groups)
	if err != nil {
		x.engine.SetSink(liveSink)
		x.engine.Restore(bookSnap)
		x.ledger.Restore(ledgerSnap)
		return nil, err
	}

	x.engine.SetSink(liveSink)
	for _, trade := range buffer.trades {
		x.broadcaster.Broadcast(trade)
	}
	return outcomes, nil
}

func (x *Executor) applyAll(groups []ContractGroup) ([]Outcome, error) {
	now := x.clock.NowMillis()
	var outcomes []Outcome

	for _, group := range groups {
		if err := validateGroup(group, now); err != nil {
			return nil, err
		}
		for _, op := range group.Operations {
			outcome, err := x.applyOne(group.ContractKey, op)
			if err != nil {
				return nil, err
			}
			outcomes = append(outcomes, outcome)
		}
	}
	return outcomes, nil
}

func (x *Executor) applyOne(key domain.ContractKey, op Operation) (Outcome, error) {
	owner, ok := x.identity.ResolveToken(op.ParticipantToken)
	if !ok {
		return Outcome{}, apperr.New(apperr.Unauthorized, "invalid or expired token")
	}

	switch op.Type {
	case OpCreate:
		res, err := x.engine.Submit(owner, op.Side, op.Price, op.Quantity, key)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Type: OpCreate, OrderID: res.OrderID, Status: res.Status}, nil

	case OpModify:
		res, err := x.engine.Modify(owner, op.OrderID, op.Price, op.Quantity)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Type: OpModify, OrderID: res.OrderID}, nil

	case OpCancel:
		if err := x.engine.Cancel(owner, op.OrderID); err != nil {
			return Outcome{}, err
		}
		return Outcome{Type: OpCancel, OrderID: op.OrderID}, nil

	default:
		return Outcome{}, apperr.New(apperr.InvalidInput, "unknown operation type")
	}
}
