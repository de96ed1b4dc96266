package engine

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"dlmm-viewer/internal/domain"
	"dlmm-viewer/internal/observability"
	"dlmm-viewer/internal/oracle"
)

// Backfiller resolves historical quote-token-to-reference conversion rates
// and attaches them to every balance snapshot, so portfolio totals can be
// expressed in one reference currency. Rates are resolved in bulk per
// distinct quote mint, not per snapshot.
type Backfiller struct {
	oracle        *oracle.Client
	referenceMint string
	logger        zerolog.Logger
}

// NewBackfiller creates a backfiller targeting the given reference mint.
func NewBackfiller(o *oracle.Client, referenceMint string, logger zerolog.Logger) *Backfiller {
	return &Backfiller{
		oracle:        o,
		referenceMint: referenceMint,
		logger:        logger.With().Str("component", "backfill").Logger(),
	}
}

// Apply attaches a reference rate to every snapshot of every position.
// Positions are grouped by quote mint; each group resolves one pair of
// historical USD series (quote and reference) and derives quote-in-reference
// by division at matching time buckets. Only the snapshot's ReferenceRate
// field is written; core valuation fields stay untouched.
func (b *Backfiller) Apply(ctx context.Context, positions []*domain.PositionLiquidityData) {
	groups := make(map[string][]*domain.PositionLiquidityData)
	for _, p := range positions {
		groups[p.TokenYMint] = append(groups[p.TokenYMint], p)
	}

	for quoteMint, group := range groups {
		b.applyGroup(ctx, quoteMint, group)
	}
}

func (b *Backfiller) applyGroup(ctx context.Context, quoteMint string, group []*domain.PositionLiquidityData) {
	if quoteMint == b.referenceMint {
		setUniformRate(group, decimal.NewFromInt(1))
		return
	}

	from, to, found := timestampSpan(group)
	if !found {
		return
	}

	interval := oracle.IntervalForSpan(from, to)
	quoteSeries, errQuote := b.oracle.HistoricalSeries(ctx, quoteMint, oracle.SubjectToken, interval, from, to)
	refSeries, errRef := b.oracle.HistoricalSeries(ctx, b.referenceMint, oracle.SubjectToken, interval, from, to)

	if errQuote != nil || errRef != nil || len(quoteSeries) == 0 || len(refSeries) == 0 {
		b.logger.Warn().AnErr("quote_err", errQuote).AnErr("ref_err", errRef).
			Str("quote_mint", quoteMint).
			Msg("historical backfill unavailable, using current spot rate")
		observability.RecordHistoricalFallback("backfill_spot")
		setUniformRate(group, b.spotRate(ctx, quoteMint))
		return
	}

	for _, p := range group {
		for _, bucket := range p.Buckets() {
			for _, s := range bucket.Snapshots {
				idx := oracle.IntervalIndex(from, interval, s.BlockTime)
				quote := quoteSeries[oracle.ClampIndex(idx, len(quoteSeries))].Value
				ref := refSeries[oracle.ClampIndex(idx, len(refSeries))].Value
				if ref.IsZero() {
					continue
				}
				s.ReferenceRate = quote.Div(ref)
			}
		}
	}
}

// spotRate derives the current quote-in-reference rate from two USD spot
// prices. When either is unavailable, the rate defaults to 1:1, an explicit
// logged fallback.
func (b *Backfiller) spotRate(ctx context.Context, quoteMint string) decimal.Decimal {
	quoteUsd := b.oracle.CurrentUsdPrice(ctx, quoteMint)
	refUsd := b.oracle.CurrentUsdPrice(ctx, b.referenceMint)

	if quoteUsd.Equal(oracle.PriceUnavailable) || refUsd.Equal(oracle.PriceUnavailable) || refUsd.IsZero() {
		b.logger.Warn().Str("quote_mint", quoteMint).
			Msg("spot rate unavailable, defaulting reference rate to 1:1")
		observability.RecordHistoricalFallback("backfill_parity")
		return decimal.NewFromInt(1)
	}
	return quoteUsd.Div(refUsd)
}

func setUniformRate(group []*domain.PositionLiquidityData, rate decimal.Decimal) {
	for _, p := range group {
		for _, bucket := range p.Buckets() {
			for _, s := range bucket.Snapshots {
				s.ReferenceRate = rate
			}
		}
	}
}

// timestampSpan returns the min and max snapshot block time across a group.
func timestampSpan(group []*domain.PositionLiquidityData) (from, to int64, found bool) {
	for _, p := range group {
		for _, bucket := range p.Buckets() {
			for _, s := range bucket.Snapshots {
				if !found || s.BlockTime < from {
					from = s.BlockTime
				}
				if !found || s.BlockTime > to {
					to = s.BlockTime
				}
				found = true
			}
		}
	}
	return from, to, found
}
