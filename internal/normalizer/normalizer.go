// Package normalizer converts the two raw position-history sources, decoded
// on-chain program events and third-party indexer records, into one
// canonical event stream per position, strictly ordered by time. Neither
// raw shape leaks past this package.
package normalizer

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// scaleRaw converts a raw integer token amount to display units.
func scaleRaw(amount uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals))
}

// scaleRawDecimal converts a raw amount that arrived as a decimal (indexer
// records serialise raw units as strings or numbers) to display units.
func scaleRawDecimal(amount decimal.Decimal, decimals uint8) decimal.Decimal {
	return amount.Shift(-int32(decimals))
}
