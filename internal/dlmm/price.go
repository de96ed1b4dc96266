package dlmm

import "github.com/shopspring/decimal"

// binPricePrecision bounds division precision when inverting the bin factor
// for negative bin ids. 24 digits keeps rate math well past display needs.
const binPricePrecision = 24

// BinPrice returns the spot price of token X denominated in token Y implied
// by the pool's active bin, in display units:
//
//	(1 + binStep/10000)^activeBinID * 10^(tokenXDecimals - tokenYDecimals)
//
// The result is a pure function of its three integer inputs and matches the
// on-chain geometric price ladder exactly.
func BinPrice(binStep uint16, activeBinID int32, tokenXDecimals, tokenYDecimals uint8) decimal.Decimal {
	base := decimal.New(1, 0).Add(
		decimal.New(int64(binStep), 0).Div(decimal.New(BasisPointMax, 0)),
	)

	var factor decimal.Decimal
	if activeBinID >= 0 {
		factor = base.Pow(decimal.New(int64(activeBinID), 0))
	} else {
		factor = decimal.New(1, 0).DivRound(
			base.Pow(decimal.New(-int64(activeBinID), 0)), binPricePrecision)
	}

	scale := decimal.New(1, int32(tokenXDecimals)-int32(tokenYDecimals))
	return factor.Mul(scale)
}
