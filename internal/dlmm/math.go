package dlmm

import "math/big"

// BinAmounts returns the position's share of a bin's token amounts:
// amount * share / liquiditySupply for each side. Zero share or zero supply
// yields zero amounts.
func BinAmounts(bin *Bin, share *big.Int) (*big.Int, *big.Int) {
	if share.Sign() == 0 || bin.LiquiditySupply.Sign() == 0 {
		return big.NewInt(0), big.NewInt(0)
	}

	x := new(big.Int).SetUint64(bin.AmountX)
	x.Mul(x, share)
	x.Quo(x, bin.LiquiditySupply)

	y := new(big.Int).SetUint64(bin.AmountY)
	y.Mul(y, share)
	y.Quo(y, bin.LiquiditySupply)

	return x, y
}

// BinFees returns the position's claimable fees in a bin: the delta of the
// pool's Q64.64 per-liquidity fee accumulators against the position's
// completed marks, applied to the position's share, plus any pending
// leftovers already attributed to the position.
func BinFees(bin *Bin, info *FeeInfo, share *big.Int) (*big.Int, *big.Int) {
	feeX := new(big.Int).SetUint64(info.FeeXPending)
	feeY := new(big.Int).SetUint64(info.FeeYPending)

	deltaX := new(big.Int).Sub(bin.FeeXPerToken, info.FeeXPerTokenComplete)
	if deltaX.Sign() > 0 {
		// (delta * share) >> 128, both operands Q64.64
		fx := deltaX.Mul(deltaX, share)
		fx.Quo(fx, ScaleSquared)
		feeX.Add(feeX, fx)
	}

	deltaY := new(big.Int).Sub(bin.FeeYPerToken, info.FeeYPerTokenComplete)
	if deltaY.Sign() > 0 {
		fy := deltaY.Mul(deltaY, share)
		fy.Quo(fy, ScaleSquared)
		feeY.Add(feeY, fy)
	}

	return feeX, feeY
}
