package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TradeIntent is a caller-supplied request to record a trade. The total
// amount is trusted as provided and is not recomputed from quantity and
// price; date and time are display fields supplied by the caller.
type TradeIntent struct {
	Symbol   string          `json:"symbol"`
	Name     string          `json:"name"`
	Side     Side            `json:"side"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Total    decimal.Decimal `json:"total"`
	Date     string          `json:"date"`
	Time     string          `json:"time"`
}

// Validate checks the intent fields in a fixed order, returning the error
// for the first field that fails.
func (i TradeIntent) Validate() error {
	if i.Symbol == "" {
		return ErrInvalidSymbol
	}
	if !i.Side.Valid() {
		return ErrInvalidSide
	}
	if i.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if i.Price.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidPrice
	}
	return nil
}

// TradeRecord is a trade accepted into the ledger. Records are immutable
// once appended; the only way one disappears is the administrative
// delete-by-id, which never touches the derived position.
type TradeRecord struct {
	ID        uint64          `json:"id"`
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name"`
	Side      Side            `json:"side"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Total     decimal.Decimal `json:"total"`
	Date      string          `json:"date"`
	Time      string          `json:"time"`
	Timestamp time.Time       `json:"timestamp"`
	CreatedAt time.Time       `json:"created_at"`
}

// String returns a human-readable string representation.
func (t *TradeRecord) String() string {
	return fmt.Sprintf("#%d %s %s qty: %d price: %s", t.ID, t.Side, t.Symbol, t.Quantity, t.Price.String())
}
