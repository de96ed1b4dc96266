package normalizer

import (
	"dlmm-viewer/internal/domain"
	"dlmm-viewer/internal/meteora"
)

// FromIndexerRecords converts indexer deposit/withdraw/claim lists for one
// position into canonical events. Withdraw magnitudes are negated; claim
// records carry no bin id, so they get fallbackBin (the pool's last known
// active bin).
func FromIndexerRecords(
	deposits []meteora.Deposit,
	withdrawals []meteora.Withdrawal,
	claims []meteora.ClaimFee,
	fallbackBin int32,
	decimalsX, decimalsY uint8,
) []domain.PositionEvent {
	events := make([]domain.PositionEvent, 0, len(deposits)+len(withdrawals)+len(claims))

	for _, d := range deposits {
		events = append(events, domain.PositionEvent{
			Kind:         domain.OpAddLiquidity,
			Signature:    d.TxID,
			BlockTime:    d.OnchainTimestamp,
			LbPair:       d.PairAddress,
			Position:     d.PositionAddress,
			TokenXChange: scaleRawDecimal(d.TokenXAmount.Decimal, decimalsX),
			TokenYChange: scaleRawDecimal(d.TokenYAmount.Decimal, decimalsY),
			ActiveBinID:  d.ActiveBinID,
		})
	}

	for _, w := range withdrawals {
		events = append(events, domain.PositionEvent{
			Kind:         domain.OpRemoveLiquidity,
			Signature:    w.TxID,
			BlockTime:    w.OnchainTimestamp,
			LbPair:       w.PairAddress,
			Position:     w.PositionAddress,
			TokenXChange: scaleRawDecimal(w.TokenXAmount.Decimal, decimalsX).Neg(),
			TokenYChange: scaleRawDecimal(w.TokenYAmount.Decimal, decimalsY).Neg(),
			ActiveBinID:  w.ActiveBinID,
		})
	}

	for _, c := range claims {
		events = append(events, domain.PositionEvent{
			Kind:         domain.OpClaimFee,
			Signature:    c.TxID,
			BlockTime:    c.OnchainTimestamp,
			LbPair:       c.PairAddress,
			Position:     c.PositionAddress,
			TokenXChange: scaleRawDecimal(c.TokenXAmount.Decimal, decimalsX),
			TokenYChange: scaleRawDecimal(c.TokenYAmount.Decimal, decimalsY),
			ActiveBinID:  fallbackBin,
		})
	}

	return events
}
