package domain

import "github.com/shopspring/decimal"

// TokenMetadata describes a mint as resolved from an external metadata
// source. Decimals never change for a given mint, so a resolved record can
// be cached indefinitely.
type TokenMetadata struct {
	Mint     string
	Decimals uint8
	Symbol   string
	Name     string
	URI      string
}

// PricePoint is one sample of a historical price series, ordered by
// UnixTime ascending.
type PricePoint struct {
	UnixTime int64
	Value    decimal.Decimal
}
