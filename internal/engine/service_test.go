package engine

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dlmm-viewer/internal/dlmm"
	"dlmm-viewer/internal/domain"
	"dlmm-viewer/internal/meteora"
	"dlmm-viewer/internal/metrics"
	"dlmm-viewer/internal/solana/stub"
)

func bytes32(b byte) []byte {
	buf := make([]byte, 32)
	for i := range buf {
		buf[i] = b
	}
	return buf
}

func b58(b byte) string { return base58.Encode(bytes32(b)) }

func accountDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte("account:" + name))
	return sum[:8]
}

// lb_clmm LbPair layout subset: active id at 76, bin step at 80, mints at
// 88 and 120.
func lbPairAccount(activeID int32, binStep uint16, mintX, mintY byte) []byte {
	data := make([]byte, 152)
	copy(data, accountDiscriminator("LbPair"))
	binary.LittleEndian.PutUint32(data[76:], uint32(activeID))
	binary.LittleEndian.PutUint16(data[80:], binStep)
	copy(data[88:], bytes32(mintX))
	copy(data[120:], bytes32(mintY))
	return data
}

func positionV2Account(lbPair, owner byte, lowerBin, upperBin int32) []byte {
	data := make([]byte, 7944)
	copy(data, accountDiscriminator("PositionV2"))
	copy(data[8:], bytes32(lbPair))
	copy(data[40:], bytes32(owner))
	binary.LittleEndian.PutUint32(data[7912:], uint32(lowerBin))
	binary.LittleEndian.PutUint32(data[7916:], uint32(upperBin))
	return data
}

// binArrayAccount builds an empty bin array for the given index.
func binArrayAccount(index int64) []byte {
	data := make([]byte, 10136)
	copy(data, accountDiscriminator("BinArray"))
	binary.LittleEndian.PutUint64(data[8:], uint64(index))
	return data
}

type stubResolver struct {
	metadata map[string]*domain.TokenMetadata
}

func (r *stubResolver) Metadata(_ context.Context, mint string) (*domain.TokenMetadata, error) {
	meta, ok := r.metadata[mint]
	if !ok {
		return nil, fmt.Errorf("unknown mint %s", mint)
	}
	return meta, nil
}

type stubIndexer struct {
	deposits        []meteora.Deposit
	withdrawals     []meteora.Withdrawal
	claims          []meteora.ClaimFee
	walletPositions []meteora.Position
	err             error
}

func (s *stubIndexer) Deposits(_ context.Context, _ string) ([]meteora.Deposit, error) {
	return s.deposits, s.err
}

func (s *stubIndexer) Withdrawals(_ context.Context, _ string) ([]meteora.Withdrawal, error) {
	return s.withdrawals, s.err
}

func (s *stubIndexer) ClaimFees(_ context.Context, _ string) ([]meteora.ClaimFee, error) {
	return s.claims, s.err
}

func (s *stubIndexer) WalletPositions(_ context.Context, _ string) ([]meteora.Position, error) {
	return s.walletPositions, s.err
}

func newTestResolver() *stubResolver {
	return &stubResolver{metadata: map[string]*domain.TokenMetadata{
		b58(1): {Mint: b58(1), Decimals: 9, Symbol: "XXX"},
		b58(2): {Mint: b58(2), Decimals: 6, Symbol: "YYY"},
	}}
}

// newTestChain cans the pool account and the empty bin array the live
// snapshot walks. The position covers bins 0..0, so only array 0 is read.
func newTestChain(t *testing.T) (*stub.RPCClient, string) {
	t.Helper()
	rpc := stub.NewRPCClient()
	pairAddr := b58(3)
	rpc.Accounts[pairAddr] = lbPairAccount(0, 10, 1, 2)

	binArrayAddr, err := dlmm.DeriveBinArrayAddress(pairAddr, 0)
	require.NoError(t, err)
	rpc.Accounts[binArrayAddr] = binArrayAccount(0)
	return rpc, pairAddr
}

func raw(v int64) meteora.RawAmount {
	return meteora.RawAmount{Decimal: decimal.NewFromInt(v)}
}

func TestReconstructOpenPosition(t *testing.T) {
	rpc, pairAddr := newTestChain(t)
	rpc.Accounts["Pos1"] = positionV2Account(3, 4, 0, 0)

	indexer := &stubIndexer{
		deposits: []meteora.Deposit{{
			TxID: "sig1", PositionAddress: "Pos1", PairAddress: pairAddr,
			TokenXAmount: raw(5_000_000_000), TokenYAmount: raw(2_000_000),
			OnchainTimestamp: 100,
		}},
		withdrawals: []meteora.Withdrawal{{
			TxID: "sig2", PositionAddress: "Pos1", PairAddress: pairAddr,
			TokenXAmount: raw(1_000_000_000), TokenYAmount: raw(500_000),
			OnchainTimestamp: 200,
		}},
		claims: []meteora.ClaimFee{{
			TxID: "sig3", PositionAddress: "Pos1", PairAddress: pairAddr,
			TokenXAmount: raw(0), TokenYAmount: raw(100_000),
			OnchainTimestamp: 300,
		}},
	}

	svc := NewService(rpc, newTestResolver(), newTestOracle(&stubSource{
		historyErr: errors.New("no history in tests"),
		pairPrice:  dec("1000"),
	}), zerolog.Nop(), WithIndexer(indexer))

	data, err := svc.Reconstruct(context.Background(), "Pos1")
	require.NoError(t, err)

	assert.Equal(t, "Pos1", data.Position)
	assert.Equal(t, b58(4), data.Owner)
	assert.Equal(t, pairAddr, data.LbPair)
	assert.Equal(t, "XXX", data.TokenXSymbol)
	assert.False(t, data.Closed)

	require.Len(t, data.TotalDeposits.Snapshots, 1)
	assert.True(t, data.TotalDeposits.Snapshots[0].TokenXBalance.Equal(dec("5")))
	require.Len(t, data.TotalWithdrawals.Snapshots, 1)
	assert.True(t, data.TotalWithdrawals.Snapshots[0].TokenXBalance.Equal(dec("-1")))
	require.Len(t, data.TotalClaimedFees.Snapshots, 1)
	assert.True(t, data.TotalClaimedFees.Snapshots[0].TokenYBalance.Equal(dec("0.1")))
	assert.True(t, data.TotalClaimedFees.Snapshots[0].ExchangeRate.Equal(dec("1000")),
		"claims priced at spot when history is unavailable")

	// Open position gets live buckets even when the bins are empty.
	assert.Len(t, data.TotalCurrent.Snapshots, 1)
	assert.Len(t, data.TotalUnclaimedFees.Snapshots, 1)
	assert.Equal(t, int64(100), data.StartDate)
	assert.Equal(t, int64(300), data.LastUpdatedAt)
}

func TestReconstructClosedPositionFromIndexer(t *testing.T) {
	rpc, pairAddr := newTestChain(t)
	// No position account: the pool address comes from indexer deposits.

	indexer := &stubIndexer{
		deposits: []meteora.Deposit{{
			TxID: "sig1", PositionAddress: "Pos1", PairAddress: pairAddr,
			TokenXAmount: raw(5_000_000_000), OnchainTimestamp: 100,
		}},
	}

	svc := NewService(rpc, newTestResolver(), newTestOracle(&stubSource{}),
		zerolog.Nop(), WithIndexer(indexer))

	data, err := svc.Reconstruct(context.Background(), "Pos1")
	require.NoError(t, err)

	assert.Empty(t, data.TotalCurrent.Snapshots)
	assert.Empty(t, data.TotalUnclaimedFees.Snapshots)
	require.Len(t, data.TotalDeposits.Snapshots, 1)
}

func TestReconstructClosedPositionWithoutIndexerFails(t *testing.T) {
	rpc, _ := newTestChain(t)
	svc := NewService(rpc, newTestResolver(), newTestOracle(&stubSource{}), zerolog.Nop())

	_, err := svc.Reconstruct(context.Background(), "Pos1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pool address unresolvable")
}

func TestReconstructTransientFetchErrorFails(t *testing.T) {
	rpc, _ := newTestChain(t)
	rpc.FailAccounts["Pos1"] = errors.New("rpc timeout")

	svc := NewService(rpc, newTestResolver(), newTestOracle(&stubSource{}), zerolog.Nop())

	_, err := svc.Reconstruct(context.Background(), "Pos1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch position")
}

// A full deposit-claim-withdraw round trip on a closed position, rolled up
// in the pair's own quote token. Bin step 0 and equal decimals pin the bin
// rate at 1; the history source fails so claims price at the fixed spot of 1.
func TestReconstructRoundTripNetProfit(t *testing.T) {
	rpc := stub.NewRPCClient()
	pairAddr := b58(5)
	rpc.Accounts[pairAddr] = lbPairAccount(0, 0, 7, 8)

	resolver := &stubResolver{metadata: map[string]*domain.TokenMetadata{
		b58(7): {Mint: b58(7), Decimals: 6, Symbol: "BASE"},
		b58(8): {Mint: b58(8), Decimals: 6, Symbol: "QUOTE"},
	}}

	indexer := &stubIndexer{
		deposits: []meteora.Deposit{{
			TxID: "sig1", PositionAddress: "Pos1", PairAddress: pairAddr,
			TokenXAmount: raw(100_000_000), OnchainTimestamp: 100,
		}},
		claims: []meteora.ClaimFee{{
			TxID: "sig2", PositionAddress: "Pos1", PairAddress: pairAddr,
			TokenYAmount: raw(5_000_000), OnchainTimestamp: 150,
		}},
		withdrawals: []meteora.Withdrawal{{
			TxID: "sig3", PositionAddress: "Pos1", PairAddress: pairAddr,
			TokenXAmount: raw(100_000_000), OnchainTimestamp: 200,
		}},
	}

	svc := NewService(rpc, resolver, newTestOracle(&stubSource{
		historyErr: errors.New("no history in tests"),
		pairPrice:  dec("1"),
	}), zerolog.Nop(), WithIndexer(indexer))

	data, err := svc.Reconstruct(context.Background(), "Pos1")
	require.NoError(t, err)
	require.True(t, data.Closed)

	assert.True(t, data.TotalDeposits.TotalValueInTokenY().Equal(dec("100")))
	assert.True(t, data.TotalWithdrawals.TotalValueInTokenY().Equal(dec("-100")))
	assert.True(t, data.TotalClaimedFees.TotalValueInTokenY().Equal(dec("5")))
	assert.Empty(t, data.TotalCurrent.Snapshots)
	assert.Empty(t, data.TotalUnclaimedFees.Snapshots)

	portfolio := metrics.RollUp([]*domain.PositionLiquidityData{data}, b58(8))
	assert.True(t, portfolio.TotalInvested.Equal(dec("100")))
	assert.True(t, portfolio.CurrentValue.IsZero())
	assert.True(t, portfolio.NetProfit().Equal(dec("5")), "got %s", portfolio.NetProfit())
	assert.Equal(t, int64(100), portfolio.StartDate)
}

func TestReconstructToleratesIndexerOutage(t *testing.T) {
	rpc, _ := newTestChain(t)
	rpc.Accounts["Pos1"] = positionV2Account(3, 4, 0, 0)

	svc := NewService(rpc, newTestResolver(), newTestOracle(&stubSource{}),
		zerolog.Nop(), WithIndexer(&stubIndexer{err: errors.New("indexer down")}))

	data, err := svc.Reconstruct(context.Background(), "Pos1")
	require.NoError(t, err, "indexer failure degrades to chain-only history")
	assert.Empty(t, data.TotalDeposits.Snapshots)
	assert.Len(t, data.TotalCurrent.Snapshots, 1)
}
