package services

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quantfold/holdings/internal/domain"
	"github.com/quantfold/holdings/pkg/keylock"
)

// LedgerStore is the append-only trade history consumed by the engine.
type LedgerStore interface {
	Append(rec domain.TradeRecord) (uint64, error)
	Get(id uint64) (*domain.TradeRecord, error)
	List() ([]domain.TradeRecord, error)
	ListBySymbol(symbol string) ([]domain.TradeRecord, error)
	Delete(id uint64) (bool, error)
}

// PositionStore is the keyed aggregate-position store consumed by the engine.
type PositionStore interface {
	GetBySymbol(symbol string) (*domain.Position, error)
	Put(pos domain.Position) error
	DeleteBySymbol(symbol string) error
	ListAll() ([]domain.Position, error)
}

// Reconciler folds trade events into the aggregate position book. The
// ledger append and the position update for one trade commit as a unit:
// when the position update is rejected, the just-appended ledger entry is
// removed again so no orphan trade survives.
type Reconciler struct {
	ledger    LedgerStore
	positions PositionStore
	locks     *keylock.KeyedMutex
	l         *zap.Logger
}

// NewReconciler creates a Reconciler on top of the two stores.
func NewReconciler(l *zap.Logger, ledger LedgerStore, positions PositionStore) *Reconciler {
	return &Reconciler{
		ledger:    ledger,
		positions: positions,
		locks:     keylock.New(),
		l:         l,
	}
}

func storeFailure(err error, op string) error {
	return errors.Wrapf(domain.ErrStoreFailure, "%s: %s", op, err)
}

// RecordTrade validates the intent, appends it to the ledger and applies it
// to the position for its symbol. Everything after validation runs under
// the per-symbol lock, so concurrent trades on one symbol serialize and the
// read-modify-write of the position cannot lose updates.
func (r *Reconciler) RecordTrade(intent domain.TradeIntent) (*domain.TradeRecord, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}

	unlock := r.locks.Lock(intent.Symbol)
	defer unlock()

	id, err := r.ledger.Append(domain.TradeRecord{
		Symbol:   intent.Symbol,
		Name:     intent.Name,
		Side:     intent.Side,
		Quantity: intent.Quantity,
		Price:    intent.Price,
		Total:    intent.Total,
		Date:     intent.Date,
		Time:     intent.Time,
	})
	if err != nil {
		return nil, storeFailure(err, "ledger append")
	}

	rec, err := r.ledger.Get(id)
	if err != nil || rec == nil {
		// The append went through but the record cannot be served back;
		// roll it off the ledger so no orphan trade survives.
		r.compensate(id, intent.Symbol)
		if err != nil {
			return nil, storeFailure(err, "ledger read-back")
		}
		return nil, errors.Wrapf(domain.ErrStoreFailure, "ledger read-back: record %d missing after append", id)
	}

	if err := r.applyToPosition(rec); err != nil {
		// Compensating delete: the trade must not outlive its rejected
		// position update.
		r.compensate(id, rec.Symbol)

		r.l.Warn("trade rejected",
			zap.Error(err),
			zap.String("symbol", rec.Symbol),
			zap.String("side", rec.Side.String()),
			zap.Int64("quantity", rec.Quantity))

		return nil, err
	}

	r.l.Info("trade recorded",
		zap.Uint64("trade_id", rec.ID),
		zap.String("symbol", rec.Symbol),
		zap.String("side", rec.Side.String()),
		zap.Int64("quantity", rec.Quantity),
		zap.String("price", rec.Price.String()))

	return rec, nil
}

// compensate removes a just-appended ledger entry that could not be
// reconciled into the position book. A failed delete leaves the stores
// inconsistent; it is logged loudly, there is no second-level recovery.
func (r *Reconciler) compensate(id uint64, symbol string) {
	if _, err := r.ledger.Delete(id); err != nil {
		r.l.Error("compensating ledger delete failed, stores are inconsistent",
			zap.Error(err),
			zap.Uint64("trade_id", id),
			zap.String("symbol", symbol))
	}
}

// applyToPosition runs the shared position arithmetic for one accepted
// trade. Callers hold the symbol lock.
func (r *Reconciler) applyToPosition(rec *domain.TradeRecord) error {
	pos, err := r.positions.GetBySymbol(rec.Symbol)
	if err != nil {
		return storeFailure(err, "position lookup")
	}

	switch rec.Side {
	case domain.SideBuy:
		if pos == nil {
			fresh := domain.NewPosition(rec.Symbol, rec.Name, rec.Quantity, rec.Price, rec.Timestamp)
			if err := r.positions.Put(fresh); err != nil {
				return storeFailure(err, "position create")
			}
			return nil
		}

		pos.Accumulate(rec.Quantity, rec.Price, rec.Timestamp)
		if err := r.positions.Put(*pos); err != nil {
			return storeFailure(err, "position update")
		}
		return nil

	case domain.SideSell:
		if pos == nil {
			return errors.Wrapf(domain.ErrNoPosition, "symbol %s", rec.Symbol)
		}

		closed, err := pos.Reduce(rec.Quantity, rec.Price, rec.Timestamp)
		if err != nil {
			return errors.Wrapf(err, "held %d, selling %d", pos.Quantity, rec.Quantity)
		}

		if closed {
			if err := r.positions.DeleteBySymbol(rec.Symbol); err != nil {
				return storeFailure(err, "position delete")
			}
			return nil
		}

		if err := r.positions.Put(*pos); err != nil {
			return storeFailure(err, "position update")
		}
		return nil

	default:
		return domain.ErrInvalidSide
	}
}

// SellFromPosition derives a SELL intent from the currently held position
// and records it. The caller supplies only symbol, quantity and price; the
// name comes from the position and date/time are stamped server-side.
func (r *Reconciler) SellFromPosition(symbol string, quantity int64, price decimal.Decimal) (*domain.TradeRecord, error) {
	if symbol == "" {
		return nil, domain.ErrInvalidSymbol
	}

	pos, err := r.positions.GetBySymbol(symbol)
	if err != nil {
		return nil, storeFailure(err, "position lookup")
	}
	if pos == nil {
		return nil, errors.Wrapf(domain.ErrNoPosition, "symbol %s", symbol)
	}

	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if quantity > pos.Quantity {
		return nil, errors.Wrapf(domain.ErrInsufficientShares, "only %d shares held", pos.Quantity)
	}

	now := time.Now()
	total := domain.RoundMoney(decimal.NewFromInt(quantity).Mul(price))

	return r.RecordTrade(domain.TradeIntent{
		Symbol:   symbol,
		Name:     pos.Name,
		Side:     domain.SideSell,
		Quantity: quantity,
		Price:    price,
		Total:    total,
		Date:     now.Format("2006-01-02"),
		Time:     now.Format("15:04:05"),
	})
}

// AccumulatePosition merges additional shares into the position for symbol
// using the BUY weighted-average formula, without writing a ledger entry.
// This is the path bulk imports take; the ledger bypass is deliberate.
func (r *Reconciler) AccumulatePosition(symbol, name string, quantity int64, price decimal.Decimal, at time.Time) error {
	unlock := r.locks.Lock(symbol)
	defer unlock()

	pos, err := r.positions.GetBySymbol(symbol)
	if err != nil {
		return storeFailure(err, "position lookup")
	}

	if pos == nil {
		fresh := domain.NewPosition(symbol, name, quantity, price, at)
		if err := r.positions.Put(fresh); err != nil {
			return storeFailure(err, "position create")
		}
		return nil
	}

	pos.Accumulate(quantity, price, at)
	if err := r.positions.Put(*pos); err != nil {
		return storeFailure(err, "position update")
	}

	return nil
}

// DeleteTrade removes a trade record by id. The position derived from that
// trade is left as-is, so ledger and positions disagree afterwards; this
// mirrors the administrative delete of the original system and is only
// meant for cleaning up bad entries.
func (r *Reconciler) DeleteTrade(id uint64) (bool, error) {
	ok, err := r.ledger.Delete(id)
	if err != nil {
		return false, storeFailure(err, "ledger delete")
	}

	if ok {
		r.l.Info("trade deleted, position left untouched", zap.Uint64("trade_id", id))
	}

	return ok, nil
}

// TradeByID returns a single trade record, or nil when unknown.
func (r *Reconciler) TradeByID(id uint64) (*domain.TradeRecord, error) {
	rec, err := r.ledger.Get(id)
	if err != nil {
		return nil, storeFailure(err, "ledger read")
	}
	return rec, nil
}

// Trades returns the full trade history, newest first.
func (r *Reconciler) Trades() ([]domain.TradeRecord, error) {
	recs, err := r.ledger.List()
	if err != nil {
		return nil, storeFailure(err, "ledger list")
	}

	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}

	return recs, nil
}

// TradesBySymbol returns the trade history for one symbol in append order.
func (r *Reconciler) TradesBySymbol(symbol string) ([]domain.TradeRecord, error) {
	recs, err := r.ledger.ListBySymbol(symbol)
	if err != nil {
		return nil, storeFailure(err, "ledger list")
	}
	return recs, nil
}

// Positions returns every open position.
func (r *Reconciler) Positions() ([]domain.Position, error) {
	out, err := r.positions.ListAll()
	if err != nil {
		return nil, storeFailure(err, "position list")
	}
	return out, nil
}

// PositionBySymbol returns the open position for a symbol, or nil.
func (r *Reconciler) PositionBySymbol(symbol string) (*domain.Position, error) {
	pos, err := r.positions.GetBySymbol(symbol)
	if err != nil {
		return nil, storeFailure(err, "position lookup")
	}
	return pos, nil
}

// PortfolioSummary aggregates the book. CurrentValue sums the stored
// per-position values, which track last trade prices rather than a live
// market feed.
type PortfolioSummary struct {
	Positions     int
	TotalInvested decimal.Decimal
	CurrentValue  decimal.Decimal
	ProfitLoss    decimal.Decimal
	ProfitLossPct decimal.Decimal
	BuyTrades     int
	SellTrades    int
}

// Summary computes portfolio-level totals across positions and trades.
func (r *Reconciler) Summary() (*PortfolioSummary, error) {
	positions, err := r.positions.ListAll()
	if err != nil {
		return nil, storeFailure(err, "position list")
	}

	trades, err := r.ledger.List()
	if err != nil {
		return nil, storeFailure(err, "ledger list")
	}

	s := &PortfolioSummary{
		Positions:     len(positions),
		TotalInvested: decimal.Zero,
		CurrentValue:  decimal.Zero,
		ProfitLoss:    decimal.Zero,
		ProfitLossPct: decimal.Zero,
	}

	for i := range positions {
		s.TotalInvested = s.TotalInvested.Add(positions[i].Invested())
		s.CurrentValue = s.CurrentValue.Add(positions[i].CurrentValue)
	}

	s.ProfitLoss = s.CurrentValue.Sub(s.TotalInvested)
	if s.TotalInvested.IsPositive() {
		s.ProfitLossPct = domain.RoundMoney(s.ProfitLoss.Div(s.TotalInvested).Mul(decimal.NewFromInt(100)))
	}

	for i := range trades {
		switch trades[i].Side {
		case domain.SideBuy:
			s.BuyTrades++
		case domain.SideSell:
			s.SellTrades++
		}
	}

	return s, nil
}
