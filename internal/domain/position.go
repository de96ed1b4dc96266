package domain

// PositionLiquidityData is the fully reconstructed economic history of one
// position. It is built once per reconstruction pass from the complete event
// history plus a live on-chain snapshot when the position is still open, and
// is never partially mutated afterwards: a re-fetch produces a new instance
// that replaces the old one wholesale.
type PositionLiquidityData struct {
	Position string
	Owner    string
	LbPair   string

	TokenXMint   string
	TokenYMint   string
	TokenXSymbol string
	TokenYSymbol string

	// Operations ordered by BlockTime ascending.
	Operations []*PositionEvent

	// StartDate is the PositionCreate block time, or the earliest known
	// operation timestamp when creation was not observed. Unix seconds.
	StartDate     int64
	LastUpdatedAt int64
	Closed        bool

	TotalDeposits      *PositionBalance
	TotalWithdrawals   *PositionBalance
	TotalUnclaimedFees *PositionBalance
	TotalClaimedFees   *PositionBalance
	TotalCurrent       *PositionBalance
}

// Buckets returns the five balance buckets in a fixed order, for passes that
// treat them uniformly (the valuation backfill).
func (p *PositionLiquidityData) Buckets() []*PositionBalance {
	return []*PositionBalance{
		p.TotalDeposits,
		p.TotalWithdrawals,
		p.TotalUnclaimedFees,
		p.TotalClaimedFees,
		p.TotalCurrent,
	}
}
