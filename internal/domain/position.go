package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// moneyPlaces is the scale every stored monetary figure is rounded to.
const moneyPlaces = 2

// RoundMoney rounds a monetary value half-to-even to two decimal places.
// Average price and current value always pass through this before being
// stored or compared.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(moneyPlaces)
}

// Position is the aggregate holding for one instrument symbol. Quantity is
// never negative; a position whose quantity reaches zero is deleted rather
// than stored. AveragePrice is only meaningful while Quantity > 0.
//
// CurrentValue tracks quantity times the price of the last trade folded in,
// not a live market price.
type Position struct {
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	Quantity     int64           `json:"quantity"`
	AveragePrice decimal.Decimal `json:"average_price"`
	CurrentValue decimal.Decimal `json:"current_value"`
	CreatedAt    time.Time       `json:"created_at"`
	LastUpdated  time.Time       `json:"last_updated"`
}

// NewPosition opens a position from the first purchase of a symbol.
func NewPosition(symbol, name string, quantity int64, price decimal.Decimal, at time.Time) Position {
	qty := decimal.NewFromInt(quantity)
	return Position{
		Symbol:       symbol,
		Name:         name,
		Quantity:     quantity,
		AveragePrice: RoundMoney(price),
		CurrentValue: RoundMoney(qty.Mul(price)),
		CreatedAt:    at,
		LastUpdated:  at,
	}
}

// Accumulate folds an additional purchase into the position using the
// weighted-average cost formula:
//
//	newAvg = (q0*a0 + dq*price) / (q0 + dq)
//
// The average is rounded half-to-even to two decimal places. CurrentValue
// is recomputed against the incoming price.
func (p *Position) Accumulate(quantity int64, price decimal.Decimal, at time.Time) {
	held := decimal.NewFromInt(p.Quantity)
	added := decimal.NewFromInt(quantity)
	newQty := held.Add(added)

	totalCost := held.Mul(p.AveragePrice).Add(added.Mul(price))

	p.Quantity += quantity
	p.AveragePrice = RoundMoney(totalCost.Div(newQty))
	p.CurrentValue = RoundMoney(newQty.Mul(price))
	p.LastUpdated = at
}

// Reduce removes sold shares from the position. The cost basis of the
// remaining shares is unchanged; only quantity and value move. Returns
// closed=true when the sale empties the position, meaning the caller must
// delete it instead of storing a zero row. A quantity above the held amount
// leaves the position untouched and returns ErrInsufficientShares.
func (p *Position) Reduce(quantity int64, price decimal.Decimal, at time.Time) (closed bool, err error) {
	if quantity > p.Quantity {
		return false, ErrInsufficientShares
	}

	p.Quantity -= quantity
	p.CurrentValue = RoundMoney(decimal.NewFromInt(p.Quantity).Mul(price))
	p.LastUpdated = at

	return p.Quantity == 0, nil
}

// Invested returns the cost basis of the position: quantity times the
// average purchase price.
func (p *Position) Invested() decimal.Decimal {
	return RoundMoney(decimal.NewFromInt(p.Quantity).Mul(p.AveragePrice))
}
