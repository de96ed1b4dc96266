// Package metrics reduces reconstructed positions to portfolio-level
// figures in a chosen settlement currency.
package metrics

import (
	"dlmm-viewer/internal/domain"
)

// RollUp aggregates a set of positions into portfolio metrics, valued in
// settlementCurrency. It is a pure function: identical inputs produce
// identical output, safe to call repeatedly.
//
// Withdrawal buckets hold outflows as negative values (the canonical sign
// convention), so their contribution is negated to report money taken out
// as a positive figure.
func RollUp(positions []*domain.PositionLiquidityData, settlementCurrency string) *domain.PortfolioMetrics {
	m := &domain.PortfolioMetrics{}

	for _, p := range positions {
		m.TotalInvested = m.TotalInvested.Add(p.TotalDeposits.ValueIn(settlementCurrency))
		m.CurrentValue = m.CurrentValue.
			Add(p.TotalCurrent.ValueIn(settlementCurrency)).
			Add(p.TotalUnclaimedFees.ValueIn(settlementCurrency))
		m.TotalWithdrawn = m.TotalWithdrawn.
			Add(p.TotalWithdrawals.ValueIn(settlementCurrency).Neg()).
			Add(p.TotalClaimedFees.ValueIn(settlementCurrency))

		if p.StartDate != 0 && (m.StartDate == 0 || p.StartDate < m.StartDate) {
			m.StartDate = p.StartDate
		}
	}

	return m
}

// GroupByPair partitions positions by pool address, preserving input order
// within each group.
func GroupByPair(positions []*domain.PositionLiquidityData) map[string][]*domain.PositionLiquidityData {
	groups := make(map[string][]*domain.PositionLiquidityData)
	for _, p := range positions {
		groups[p.LbPair] = append(groups[p.LbPair], p)
	}
	return groups
}
