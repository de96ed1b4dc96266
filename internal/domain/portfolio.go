package domain

import "github.com/shopspring/decimal"

// PortfolioMetrics is a pure reduction over a set of positions, expressed in
// one settlement currency. It is computed fresh per request and never
// persisted.
type PortfolioMetrics struct {
	TotalInvested  decimal.Decimal
	CurrentValue   decimal.Decimal
	TotalWithdrawn decimal.Decimal

	// StartDate is the earliest position start, unix seconds. Zero when the
	// contributing set is empty.
	StartDate int64
}

// NetProfit is current holdings plus everything taken out, minus everything
// put in.
func (m *PortfolioMetrics) NetProfit() decimal.Decimal {
	return m.CurrentValue.Add(m.TotalWithdrawn).Sub(m.TotalInvested)
}

// ROIPercent returns net profit as a percentage of invested capital.
// Zero invested capital is a defined edge case yielding 0, never a division
// error.
func (m *PortfolioMetrics) ROIPercent() decimal.Decimal {
	if m.TotalInvested.IsZero() {
		return decimal.Zero
	}
	return m.NetProfit().Div(m.TotalInvested).Mul(decimal.NewFromInt(100))
}
