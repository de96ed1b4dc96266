package engine

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"dlmm-viewer/internal/domain"
	"dlmm-viewer/internal/observability"
)

// maxConcurrentPositions bounds the reconstruction fan-out per wallet.
const maxConcurrentPositions = 8

// Runner reconstructs every position of a wallet concurrently and applies
// the valuation backfill across the full result set. A failing position is
// logged and omitted; it never cancels or corrupts the others.
type Runner struct {
	service    *Service
	backfiller *Backfiller
}

// NewRunner creates a wallet-level runner.
func NewRunner(service *Service, backfiller *Backfiller) *Runner {
	return &Runner{service: service, backfiller: backfiller}
}

// ReconstructWallet builds fresh PositionLiquidityData for every position
// the wallet owns. The returned slice is a complete replacement for any
// prior result; callers must swap it in whole, never merge.
func (r *Runner) ReconstructWallet(ctx context.Context, wallet string) ([]*domain.PositionLiquidityData, error) {
	addresses, err := r.service.WalletPositions(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("list positions for %s: %w", wallet, err)
	}

	return r.ReconstructPositions(ctx, addresses)
}

// ReconstructPositions reconstructs the given position addresses with
// bounded concurrency and per-position fault isolation, then backfills
// reference rates across the whole set.
func (r *Runner) ReconstructPositions(ctx context.Context, addresses []string) ([]*domain.PositionLiquidityData, error) {
	var (
		mu        sync.Mutex
		positions []*domain.PositionLiquidityData
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentPositions)

	for _, address := range addresses {
		g.Go(func() error {
			data, err := r.service.Reconstruct(gctx, address)
			if err != nil {
				r.service.logger.Error().Err(err).Str("position", address).
					Msg("position reconstruction failed, omitting from result")
				observability.RecordPositionFailure("reconstruct")
				return nil
			}
			observability.RecordPositionReconstructed()
			mu.Lock()
			positions = append(positions, data)
			mu.Unlock()
			return nil
		})
	}

	// Workers swallow their own errors; Wait only observes ctx cancellation.
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.backfiller.Apply(ctx, positions)
	return positions, nil
}
