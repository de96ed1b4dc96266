package dlmm

import (
	"context"
	"fmt"
	"math/big"
)

// AccountFetcher is the chain capability snapshotting needs. Implemented by
// the Solana RPC client; tests supply canned account data.
type AccountFetcher interface {
	GetAccountData(ctx context.Context, pubkey string) ([]byte, error)
}

// LiveSnapshot holds a still-open position's current raw token totals and
// unclaimed fees, plus the pool's active bin for pricing them.
type LiveSnapshot struct {
	TotalX      *big.Int
	TotalY      *big.Int
	FeeX        *big.Int
	FeeY        *big.Int
	ActiveBinID int32
}

// Snapshotter computes live position totals from on-chain accounts.
type Snapshotter struct {
	fetcher AccountFetcher
}

// NewSnapshotter creates a Snapshotter over the given chain fetcher.
func NewSnapshotter(fetcher AccountFetcher) *Snapshotter {
	return &Snapshotter{fetcher: fetcher}
}

// Snapshot walks the bin arrays covering the position's bin range and sums
// the position's share of each bin's amounts and fees.
func (s *Snapshotter) Snapshot(ctx context.Context, pool *LbPair, pos *PositionV2) (*LiveSnapshot, error) {
	snap := &LiveSnapshot{
		TotalX:      big.NewInt(0),
		TotalY:      big.NewInt(0),
		FeeX:        big.NewInt(0),
		FeeY:        big.NewInt(0),
		ActiveBinID: pool.ActiveID,
	}

	lowerIdx := BinArrayIndex(pos.LowerBinID)
	upperIdx := BinArrayIndex(pos.UpperBinID)

	for idx := lowerIdx; idx <= upperIdx; idx++ {
		arr, err := s.fetchBinArray(ctx, pool.Address, idx)
		if err != nil {
			return nil, fmt.Errorf("bin array %d for pool %s: %w", idx, pool.Address, err)
		}

		base := arr.LowerBinID()
		for slot := 0; slot < MaxBinPerArray; slot++ {
			binID := base + int32(slot)
			if binID < pos.LowerBinID || binID > pos.UpperBinID {
				continue
			}

			posSlot := int(binID - pos.LowerBinID)
			if posSlot >= MaxBinPerArray {
				continue
			}
			share := pos.LiquidityShares[posSlot]

			bin := &arr.Bins[slot]
			x, y := BinAmounts(bin, share)
			snap.TotalX.Add(snap.TotalX, x)
			snap.TotalY.Add(snap.TotalY, y)

			fx, fy := BinFees(bin, &pos.FeeInfos[posSlot], share)
			snap.FeeX.Add(snap.FeeX, fx)
			snap.FeeY.Add(snap.FeeY, fy)
		}
	}

	return snap, nil
}

func (s *Snapshotter) fetchBinArray(ctx context.Context, lbPair string, index int64) (*BinArray, error) {
	addr, err := DeriveBinArrayAddress(lbPair, index)
	if err != nil {
		return nil, err
	}
	data, err := s.fetcher.GetAccountData(ctx, addr)
	if err != nil {
		return nil, err
	}
	return DecodeBinArray(data)
}
