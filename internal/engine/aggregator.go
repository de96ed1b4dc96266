// Package engine reconstructs a position's economic history from its
// canonical event stream and values it: five balance buckets per position,
// historical pricing for claimed fees, reference-currency backfill, and
// concurrent wallet-level reconstruction with per-position fault isolation.
package engine

import (
	"math/big"

	"github.com/shopspring/decimal"

	"dlmm-viewer/internal/dlmm"
	"dlmm-viewer/internal/domain"
)

// PairInfo carries the pool parameters aggregation needs: the bin pricing
// inputs and the pair's token identities.
type PairInfo struct {
	Address     string
	BinStep     uint16
	ActiveBinID int32

	TokenXMint     string
	TokenYMint     string
	TokenXDecimals uint8
	TokenYDecimals uint8
	TokenXSymbol   string
	TokenYSymbol   string
}

// Aggregate folds an ordered event stream into the five balance buckets of
// a position. claimRates supplies per-claim exchange rates from historical
// pricing, index-aligned with the ClaimFee events in stream order; a
// missing or non-positive entry falls back to the event's bin-formula rate.
// live is the current on-chain state for a still-open position; nil leaves
// the current and unclaimed buckets empty. now stamps the live snapshots.
func Aggregate(events []domain.PositionEvent, pair *PairInfo, claimRates []decimal.Decimal, live *dlmm.LiveSnapshot, now int64) *domain.PositionLiquidityData {
	data := &domain.PositionLiquidityData{
		TokenXMint:   pair.TokenXMint,
		TokenYMint:   pair.TokenYMint,
		TokenXSymbol: pair.TokenXSymbol,
		TokenYSymbol: pair.TokenYSymbol,
		LbPair:       pair.Address,

		TotalDeposits:      domain.NewPositionBalance(pair.TokenXMint, pair.TokenYMint),
		TotalWithdrawals:   domain.NewPositionBalance(pair.TokenXMint, pair.TokenYMint),
		TotalUnclaimedFees: domain.NewPositionBalance(pair.TokenXMint, pair.TokenYMint),
		TotalClaimedFees:   domain.NewPositionBalance(pair.TokenXMint, pair.TokenYMint),
		TotalCurrent:       domain.NewPositionBalance(pair.TokenXMint, pair.TokenYMint),
	}

	claimIdx := 0
	for i := range events {
		e := &events[i]
		data.Operations = append(data.Operations, e)

		if data.Position == "" && e.Position != "" {
			data.Position = e.Position
		}
		if data.Owner == "" && e.Owner != "" {
			data.Owner = e.Owner
		}
		if e.BlockTime > data.LastUpdatedAt {
			data.LastUpdatedAt = e.BlockTime
		}
		if data.StartDate == 0 || e.BlockTime < data.StartDate {
			data.StartDate = e.BlockTime
		}

		switch e.Kind {
		case domain.OpPositionCreate:
			data.StartDate = e.BlockTime
		case domain.OpPositionClose:
			data.Closed = true
		case domain.OpAddLiquidity:
			rate := binRate(pair, e.ActiveBinID)
			data.TotalDeposits.Append(domain.NewBalanceSnapshot(e.TokenXChange, e.TokenYChange, rate, e.BlockTime))
		case domain.OpRemoveLiquidity:
			rate := binRate(pair, e.ActiveBinID)
			data.TotalWithdrawals.Append(domain.NewBalanceSnapshot(e.TokenXChange, e.TokenYChange, rate, e.BlockTime))
		case domain.OpClaimFee:
			rate := binRate(pair, e.ActiveBinID)
			if claimIdx < len(claimRates) && claimRates[claimIdx].IsPositive() {
				rate = claimRates[claimIdx]
			}
			claimIdx++
			data.TotalClaimedFees.Append(domain.NewBalanceSnapshot(e.TokenXChange, e.TokenYChange, rate, e.BlockTime))
		}
	}

	if live != nil && !data.Closed {
		rate := binRate(pair, live.ActiveBinID)
		data.TotalCurrent.Append(domain.NewBalanceSnapshot(
			scaleBig(live.TotalX, pair.TokenXDecimals),
			scaleBig(live.TotalY, pair.TokenYDecimals),
			rate, now,
		))
		data.TotalUnclaimedFees.Append(domain.NewBalanceSnapshot(
			scaleBig(live.FeeX, pair.TokenXDecimals),
			scaleBig(live.FeeY, pair.TokenYDecimals),
			rate, now,
		))
	}

	return data
}

func binRate(pair *PairInfo, activeBinID int32) decimal.Decimal {
	return dlmm.BinPrice(pair.BinStep, activeBinID, pair.TokenXDecimals, pair.TokenYDecimals)
}

func scaleBig(amount *big.Int, decimals uint8) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -int32(decimals))
}
