package domain

import "strings"

// Side represents the direction of a trade.
type Side string

const (
	// SideBuy adds shares to the position for the traded symbol.
	SideBuy Side = "BUY"
	// SideSell removes shares from the position for the traded symbol.
	SideSell Side = "SELL"
)

// ParseSide parses a side string case-insensitively.
func ParseSide(s string) (Side, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(SideBuy):
		return SideBuy, true
	case string(SideSell):
		return SideSell, true
	}
	return "", false
}

// Valid reports whether the side is one of the known values.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// String returns the string representation of the side.
func (s Side) String() string {
	return string(s)
}
