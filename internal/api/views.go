package api

import (
	"github.com/shopspring/decimal"

	"dlmm-viewer/internal/domain"
)

// PositionsResponse is the /positions payload.
type PositionsResponse struct {
	Wallet    string          `json:"wallet"`
	Positions []*PositionView `json:"positions"`
}

// PositionView is the wire form of one reconstructed position.
type PositionView struct {
	Position     string `json:"position"`
	Owner        string `json:"owner"`
	Pair         string `json:"pair"`
	TokenXMint   string `json:"tokenXMint"`
	TokenYMint   string `json:"tokenYMint"`
	TokenXSymbol string `json:"tokenXSymbol"`
	TokenYSymbol string `json:"tokenYSymbol"`

	StartDate     int64 `json:"startDate"`
	LastUpdatedAt int64 `json:"lastUpdatedAt"`
	Closed        bool  `json:"closed"`
	Operations    int   `json:"operations"`

	Deposits      BucketView `json:"deposits"`
	Withdrawals   BucketView `json:"withdrawals"`
	ClaimedFees   BucketView `json:"claimedFees"`
	UnclaimedFees BucketView `json:"unclaimedFees"`
	Current       BucketView `json:"current"`
}

// BucketView summarizes one balance bucket.
type BucketView struct {
	TokenX       decimal.Decimal `json:"tokenX"`
	TokenY       decimal.Decimal `json:"tokenY"`
	ValueInY     decimal.Decimal `json:"valueInTokenY"`
	WeightedRate decimal.Decimal `json:"weightedAverageRate"`
	Snapshots    int             `json:"snapshots"`
}

// NewPositionView converts a reconstructed position to its wire form.
func NewPositionView(p *domain.PositionLiquidityData) *PositionView {
	return &PositionView{
		Position:     p.Position,
		Owner:        p.Owner,
		Pair:         p.LbPair,
		TokenXMint:   p.TokenXMint,
		TokenYMint:   p.TokenYMint,
		TokenXSymbol: p.TokenXSymbol,
		TokenYSymbol: p.TokenYSymbol,

		StartDate:     p.StartDate,
		LastUpdatedAt: p.LastUpdatedAt,
		Closed:        p.Closed,
		Operations:    len(p.Operations),

		Deposits:      newBucketView(p.TotalDeposits),
		Withdrawals:   newBucketView(p.TotalWithdrawals),
		ClaimedFees:   newBucketView(p.TotalClaimedFees),
		UnclaimedFees: newBucketView(p.TotalUnclaimedFees),
		Current:       newBucketView(p.TotalCurrent),
	}
}

func newBucketView(b *domain.PositionBalance) BucketView {
	return BucketView{
		TokenX:       b.TotalTokenX(),
		TokenY:       b.TotalTokenY(),
		ValueInY:     b.TotalValueInTokenY(),
		WeightedRate: b.WeightedAverageRate(),
		Snapshots:    len(b.Snapshots),
	}
}

// PortfolioView is the /portfolio payload.
type PortfolioView struct {
	Wallet    string `json:"wallet"`
	Currency  string `json:"currency"`
	Positions int    `json:"positions"`

	TotalInvested  decimal.Decimal `json:"totalInvested"`
	CurrentValue   decimal.Decimal `json:"currentValue"`
	TotalWithdrawn decimal.Decimal `json:"totalWithdrawn"`
	NetProfit      decimal.Decimal `json:"netProfit"`
	ROIPercent     decimal.Decimal `json:"roiPercent"`
	StartDate      int64           `json:"startDate"`
}

// NewPortfolioView converts portfolio metrics to their wire form.
func NewPortfolioView(wallet, currency string, positions int, m *domain.PortfolioMetrics) *PortfolioView {
	return &PortfolioView{
		Wallet:    wallet,
		Currency:  currency,
		Positions: positions,

		TotalInvested:  m.TotalInvested,
		CurrentValue:   m.CurrentValue,
		TotalWithdrawn: m.TotalWithdrawn,
		NetProfit:      m.NetProfit(),
		ROIPercent:     m.ROIPercent(),
		StartDate:      m.StartDate,
	}
}
