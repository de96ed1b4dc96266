package domain

import "github.com/shopspring/decimal"

// BalanceSnapshot is an immutable record of one event's contribution to a
// balance bucket, valued at the exchange rate observed at event time.
// ExchangeRate is token X priced in token Y.
//
// ReferenceRate is the one exception to immutability: it is attached after
// construction by the valuation backfill pass (quote token priced in the
// portfolio reference currency at BlockTime) and is never read before the
// pass has run. The core valuation fields are set once in NewBalanceSnapshot.
type BalanceSnapshot struct {
	TokenXBalance      decimal.Decimal
	TokenYBalance      decimal.Decimal
	ExchangeRate       decimal.Decimal
	TotalValueInTokenY decimal.Decimal
	TotalValueInTokenX decimal.Decimal
	BlockTime          int64

	ReferenceRate decimal.Decimal
}

// NewBalanceSnapshot builds a snapshot and computes both valuation totals.
// A zero exchange rate is a defined degenerate case, not an error: the
// token-X total then counts the X balance alone instead of dividing by zero.
func NewBalanceSnapshot(tokenX, tokenY, exchangeRate decimal.Decimal, blockTime int64) *BalanceSnapshot {
	s := &BalanceSnapshot{
		TokenXBalance: tokenX,
		TokenYBalance: tokenY,
		ExchangeRate:  exchangeRate,
		BlockTime:     blockTime,
	}
	s.TotalValueInTokenY = exchangeRate.Mul(tokenX).Add(tokenY)
	if exchangeRate.IsZero() {
		s.TotalValueInTokenX = tokenX
	} else {
		s.TotalValueInTokenX = tokenX.Add(tokenY.Div(exchangeRate))
	}
	return s
}

// PositionBalance is an ordered, append-only collection of snapshots for one
// accounting bucket of a position (all deposits, all withdrawals, ...).
// All read operations are pure and recomputed on demand.
type PositionBalance struct {
	TokenXMint string
	TokenYMint string
	Snapshots  []*BalanceSnapshot
}

// NewPositionBalance creates an empty bucket for the given pair.
func NewPositionBalance(tokenXMint, tokenYMint string) *PositionBalance {
	return &PositionBalance{TokenXMint: tokenXMint, TokenYMint: tokenYMint}
}

// Append adds a snapshot to the bucket.
func (b *PositionBalance) Append(s *BalanceSnapshot) {
	b.Snapshots = append(b.Snapshots, s)
}

// TotalTokenX sums snapshot token-X balances.
func (b *PositionBalance) TotalTokenX() decimal.Decimal {
	total := decimal.Zero
	for _, s := range b.Snapshots {
		total = total.Add(s.TokenXBalance)
	}
	return total
}

// TotalTokenY sums snapshot token-Y balances.
func (b *PositionBalance) TotalTokenY() decimal.Decimal {
	total := decimal.Zero
	for _, s := range b.Snapshots {
		total = total.Add(s.TokenYBalance)
	}
	return total
}

// TotalValueInTokenY sums snapshot values denominated in the quote token.
func (b *PositionBalance) TotalValueInTokenY() decimal.Decimal {
	total := decimal.Zero
	for _, s := range b.Snapshots {
		total = total.Add(s.TotalValueInTokenY)
	}
	return total
}

// TotalValueInTokenX sums snapshot values denominated in the base token.
func (b *PositionBalance) TotalValueInTokenX() decimal.Decimal {
	total := decimal.Zero
	for _, s := range b.Snapshots {
		total = total.Add(s.TotalValueInTokenX)
	}
	return total
}

// ValueIn returns the bucket's total value in the given settlement currency.
// The pair's own tokens resolve to the respective native totals; any other
// currency is treated as an external reference and each snapshot converts
// its quote-token value through the reference rate attached by the backfill
// pass. Snapshots the pass never reached contribute at a 1:1 rate only when
// their rate was explicitly defaulted; an unset (zero) rate contributes zero.
func (b *PositionBalance) ValueIn(currency string) decimal.Decimal {
	switch currency {
	case b.TokenXMint:
		return b.TotalValueInTokenX()
	case b.TokenYMint:
		return b.TotalValueInTokenY()
	}
	total := decimal.Zero
	for _, s := range b.Snapshots {
		total = total.Add(s.TotalValueInTokenY.Mul(s.ReferenceRate))
	}
	return total
}

// WeightedAverageRate returns the value-weighted average exchange rate over
// all snapshots, weighting each observation by its quote-token value.
// Empty buckets and zero accumulated value yield zero.
func (b *PositionBalance) WeightedAverageRate() decimal.Decimal {
	var avg RunningAverage
	for _, s := range b.Snapshots {
		avg.Add(s.ExchangeRate, s.TotalValueInTokenY)
	}
	return avg.Price
}

// RunningAverage maintains a value-weighted average price incrementally:
//
//	newAvg = oldAvg*(oldValue/(oldValue+added)) + rate*(added/(oldValue+added))
//
// Adding zero value is a no-op so a stream of worthless observations can
// never move the average or divide by zero.
type RunningAverage struct {
	Price decimal.Decimal
	Value decimal.Decimal
}

// Add folds one (rate, value) observation into the average.
func (a *RunningAverage) Add(rate, value decimal.Decimal) {
	if value.IsZero() {
		return
	}
	newValue := a.Value.Add(value)
	if newValue.IsZero() {
		return
	}
	a.Price = a.Price.Mul(a.Value.Div(newValue)).Add(rate.Mul(value.Div(newValue)))
	a.Value = newValue
}
