package engine

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dlmm-viewer/internal/dlmm"
	"dlmm-viewer/internal/domain"
)

// testPair prices at exactly 1000 for bin 0: binStep 10, decimals 9/6.
func testPair() *PairInfo {
	return &PairInfo{
		Address:        "Pair1",
		BinStep:        10,
		ActiveBinID:    0,
		TokenXMint:     "MintX",
		TokenYMint:     "MintY",
		TokenXDecimals: 9,
		TokenYDecimals: 6,
		TokenXSymbol:   "XXX",
		TokenYSymbol:   "YYY",
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAggregateRoutesEventsByKind(t *testing.T) {
	events := []domain.PositionEvent{
		{Kind: domain.OpPositionCreate, Position: "Pos1", Owner: "Owner1", BlockTime: 100},
		{Kind: domain.OpAddLiquidity, BlockTime: 200, TokenXChange: dec("2"), TokenYChange: dec("100"), ActiveBinID: 0},
		{Kind: domain.OpClaimFee, BlockTime: 300, TokenXChange: dec("0.001"), TokenYChange: dec("1"), ActiveBinID: 0},
		{Kind: domain.OpRemoveLiquidity, BlockTime: 400, TokenXChange: dec("-1"), TokenYChange: dec("-50"), ActiveBinID: 0},
	}

	data := Aggregate(events, testPair(), nil, nil, 500)

	require.Len(t, data.TotalDeposits.Snapshots, 1)
	require.Len(t, data.TotalWithdrawals.Snapshots, 1)
	require.Len(t, data.TotalClaimedFees.Snapshots, 1)
	assert.Empty(t, data.TotalCurrent.Snapshots)
	assert.Empty(t, data.TotalUnclaimedFees.Snapshots)

	// Bin 0 prices at exactly 1000: deposit value = 1000*2 + 100.
	assert.True(t, data.TotalDeposits.TotalValueInTokenY().Equal(dec("2100")),
		"got %s", data.TotalDeposits.TotalValueInTokenY())
	assert.True(t, data.TotalWithdrawals.TotalValueInTokenY().Equal(dec("-1050")))

	assert.Equal(t, int64(100), data.StartDate)
	assert.Equal(t, int64(400), data.LastUpdatedAt)
	assert.Equal(t, "Pos1", data.Position)
	assert.Equal(t, "Owner1", data.Owner)
	assert.False(t, data.Closed)
	assert.Len(t, data.Operations, 4)
}

func TestAggregateStartDateFallsBackToEarliestOperation(t *testing.T) {
	events := []domain.PositionEvent{
		{Kind: domain.OpAddLiquidity, BlockTime: 250, TokenXChange: dec("1")},
		{Kind: domain.OpClaimFee, BlockTime: 300},
	}
	data := Aggregate(events, testPair(), nil, nil, 400)
	assert.Equal(t, int64(250), data.StartDate)
}

func TestAggregateClosedPositionSkipsLiveBuckets(t *testing.T) {
	events := []domain.PositionEvent{
		{Kind: domain.OpAddLiquidity, BlockTime: 100, TokenXChange: dec("1")},
		{Kind: domain.OpPositionClose, BlockTime: 200},
	}
	live := &dlmm.LiveSnapshot{
		TotalX: big.NewInt(1), TotalY: big.NewInt(1),
		FeeX: big.NewInt(1), FeeY: big.NewInt(1),
	}

	data := Aggregate(events, testPair(), nil, live, 300)
	assert.True(t, data.Closed)
	assert.Empty(t, data.TotalCurrent.Snapshots, "closed positions have no current bucket")
	assert.Empty(t, data.TotalUnclaimedFees.Snapshots)
}

func TestAggregateLiveSnapshotScalesRawAmounts(t *testing.T) {
	live := &dlmm.LiveSnapshot{
		TotalX:      big.NewInt(5_000_000_000), // 5 X at 9 decimals
		TotalY:      big.NewInt(2_000_000),     // 2 Y at 6 decimals
		FeeX:        big.NewInt(1_000_000_000),
		FeeY:        big.NewInt(500_000),
		ActiveBinID: 0,
	}

	data := Aggregate(nil, testPair(), nil, live, 999)
	require.Len(t, data.TotalCurrent.Snapshots, 1)

	current := data.TotalCurrent.Snapshots[0]
	assert.True(t, current.TokenXBalance.Equal(dec("5")), "got %s", current.TokenXBalance)
	assert.True(t, current.TokenYBalance.Equal(dec("2")))
	assert.Equal(t, int64(999), current.BlockTime)

	fees := data.TotalUnclaimedFees.Snapshots[0]
	assert.True(t, fees.TokenXBalance.Equal(dec("1")))
	assert.True(t, fees.TokenYBalance.Equal(dec("0.5")))
}

func TestAggregateClaimRatesOverrideBinRate(t *testing.T) {
	events := []domain.PositionEvent{
		{Kind: domain.OpClaimFee, BlockTime: 100, TokenXChange: dec("1"), TokenYChange: dec("0"), ActiveBinID: 0},
		{Kind: domain.OpClaimFee, BlockTime: 200, TokenXChange: dec("1"), TokenYChange: dec("0"), ActiveBinID: 0},
	}
	claimRates := []decimal.Decimal{dec("1234"), decimal.Zero}

	data := Aggregate(events, testPair(), claimRates, nil, 300)
	require.Len(t, data.TotalClaimedFees.Snapshots, 2)

	assert.True(t, data.TotalClaimedFees.Snapshots[0].ExchangeRate.Equal(dec("1234")))
	// Zero historical rate falls back to the bin formula.
	assert.True(t, data.TotalClaimedFees.Snapshots[1].ExchangeRate.Equal(dec("1000")),
		"got %s", data.TotalClaimedFees.Snapshots[1].ExchangeRate)
}
