package engine

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"dlmm-viewer/internal/domain"
	"dlmm-viewer/internal/observability"
	"dlmm-viewer/internal/oracle"
)

// ClaimPricer values fee-claim events at the pool price observed at claim
// time, from the historical series of the pair. Claims are economically
// realized when claimed, so the claim-time price beats the per-event bin
// rate, which some sources omit for claims anyway.
type ClaimPricer struct {
	oracle *oracle.Client
	logger zerolog.Logger
}

// NewClaimPricer creates a pricer over the given oracle.
func NewClaimPricer(o *oracle.Client, logger zerolog.Logger) *ClaimPricer {
	return &ClaimPricer{
		oracle: o,
		logger: logger.With().Str("component", "claim-pricer").Logger(),
	}
}

// Rates returns one exchange rate per ClaimFee event in events, in stream
// order. Non-claim events are ignored. When the historical series cannot be
// fetched, the current spot rate is applied uniformly, logged as degraded;
// if the spot is unavailable too, the rate is zero and the caller falls
// back to bin-formula pricing.
func (p *ClaimPricer) Rates(ctx context.Context, pair *PairInfo, events []domain.PositionEvent) []decimal.Decimal {
	var claims []domain.PositionEvent
	for _, e := range events {
		if e.Kind == domain.OpClaimFee {
			claims = append(claims, e)
		}
	}
	if len(claims) == 0 {
		return nil
	}

	from := claims[0].BlockTime
	to := claims[len(claims)-1].BlockTime
	interval := oracle.IntervalForSpan(from, to)

	series, err := p.oracle.HistoricalSeries(ctx, pair.Address, oracle.SubjectPair, interval, from, to)
	if err != nil || len(series) == 0 {
		p.logger.Warn().Err(err).Str("pair", pair.Address).Int("claims", len(claims)).
			Msg("historical series unavailable, pricing claims at current spot")
		observability.RecordHistoricalFallback("claims_spot")
		return p.spotRates(ctx, pair, len(claims))
	}

	rates := make([]decimal.Decimal, len(claims))
	for i, claim := range claims {
		idx := oracle.IntervalIndex(from, interval, claim.BlockTime)
		idx = oracle.ClampIndex(idx, len(series))
		rates[i] = series[idx].Value
	}
	return rates
}

func (p *ClaimPricer) spotRates(ctx context.Context, pair *PairInfo, n int) []decimal.Decimal {
	spot := p.oracle.CurrentPairRate(ctx, pair.TokenXMint, pair.TokenYMint)
	if spot.Equal(oracle.PriceUnavailable) {
		spot = decimal.Zero
	}

	rates := make([]decimal.Decimal, n)
	for i := range rates {
		rates[i] = spot
	}
	return rates
}
