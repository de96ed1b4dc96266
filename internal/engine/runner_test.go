package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dlmm-viewer/internal/dlmm"
	"dlmm-viewer/internal/meteora"
	"dlmm-viewer/internal/solana"
	"dlmm-viewer/internal/solana/stub"
)

func newTestRunner(rpc *stub.RPCClient, indexer Indexer) *Runner {
	o := newTestOracle(&stubSource{})
	svc := NewService(rpc, newTestResolver(), o, zerolog.Nop(), WithIndexer(indexer))
	// Quote mint is the reference, so the backfill stays offline.
	return NewRunner(svc, NewBackfiller(o, b58(2), zerolog.Nop()))
}

func TestRunnerIsolatesFailingPositions(t *testing.T) {
	rpc, pairAddr := newTestChain(t)
	rpc.Accounts["PosGood"] = positionV2Account(3, 4, 0, 0)
	rpc.FailAccounts["PosBad"] = errors.New("rpc timeout")

	runner := newTestRunner(rpc, &stubIndexer{})

	positions, err := runner.ReconstructPositions(context.Background(),
		[]string{"PosGood", "PosBad"})
	require.NoError(t, err, "one failing position never fails the wallet")
	require.Len(t, positions, 1)
	assert.Equal(t, "PosGood", positions[0].Position)
	assert.Equal(t, pairAddr, positions[0].LbPair)
}

func TestRunnerBackfillsReferenceRates(t *testing.T) {
	rpc, pairAddr := newTestChain(t)
	rpc.Accounts["Pos1"] = positionV2Account(3, 4, 0, 0)

	indexer := &stubIndexer{
		deposits: []meteora.Deposit{{
			TxID: "sig1", PositionAddress: "Pos1", PairAddress: pairAddr,
			TokenXAmount: raw(5_000_000_000), OnchainTimestamp: 100,
		}},
	}

	runner := newTestRunner(rpc, indexer)

	positions, err := runner.ReconstructPositions(context.Background(), []string{"Pos1"})
	require.NoError(t, err)
	require.Len(t, positions, 1)

	deposit := positions[0].TotalDeposits.Snapshots[0]
	assert.True(t, deposit.ReferenceRate.Equal(dec("1")),
		"reference-quoted positions get a 1:1 rate without any price lookup")
}

func TestRunnerCancelledContext(t *testing.T) {
	rpc, _ := newTestChain(t)
	runner := newTestRunner(rpc, &stubIndexer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.ReconstructPositions(ctx, []string{"Pos1"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestWalletPositionsFallsBackToIndexer(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.FailProgramAccounts = errors.New("getProgramAccounts is disabled on this endpoint")

	indexer := &stubIndexer{walletPositions: []meteora.Position{
		{Address: "Pos1"}, {Address: "Pos2"},
	}}
	svc := NewService(rpc, newTestResolver(), newTestOracle(&stubSource{}),
		zerolog.Nop(), WithIndexer(indexer))

	addresses, err := svc.WalletPositions(context.Background(), b58(4))
	require.NoError(t, err)
	assert.Equal(t, []string{"Pos1", "Pos2"}, addresses)
}

func TestWalletPositionsFailsWithoutIndexer(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.FailProgramAccounts = errors.New("getProgramAccounts is disabled on this endpoint")

	svc := NewService(rpc, newTestResolver(), newTestOracle(&stubSource{}), zerolog.Nop())

	_, err := svc.WalletPositions(context.Background(), b58(4))
	require.Error(t, err)
}

func TestWalletPositions(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.ProgramAccounts[dlmm.ProgramID] = []solana.ProgramAccount{
		{Pubkey: "Pos1"}, {Pubkey: "Pos2"},
	}

	svc := NewService(rpc, newTestResolver(), newTestOracle(&stubSource{}), zerolog.Nop())

	addresses, err := svc.WalletPositions(context.Background(), b58(4))
	require.NoError(t, err)
	assert.Equal(t, []string{"Pos1", "Pos2"}, addresses)
}
