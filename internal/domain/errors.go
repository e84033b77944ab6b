package domain

import "github.com/pkg/errors"

// Error kinds returned by the reconciliation engine. Callers match them
// with errors.Is; wrapping layers add context without changing the kind.
var (
	// ErrInvalidSymbol indicates a missing or empty instrument symbol.
	ErrInvalidSymbol = errors.New("symbol is required")
	// ErrInvalidSide indicates a trade side other than BUY or SELL.
	ErrInvalidSide = errors.New("side must be BUY or SELL")
	// ErrInvalidQuantity indicates a zero or negative quantity.
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	// ErrInvalidPrice indicates a zero or negative price.
	ErrInvalidPrice = errors.New("price must be greater than zero")
	// ErrNoPosition indicates a SELL against a symbol with no open position.
	ErrNoPosition = errors.New("no position held for symbol")
	// ErrInsufficientShares indicates a SELL larger than the held quantity.
	ErrInsufficientShares = errors.New("insufficient shares to sell")
	// ErrStoreFailure indicates a ledger or position store operation failed.
	// The failed call left no partial state behind and may be retried.
	ErrStoreFailure = errors.New("store failure")
)
