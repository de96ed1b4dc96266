package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"dlmm-viewer/internal/dlmm"
	"dlmm-viewer/internal/domain"
	"dlmm-viewer/internal/meteora"
	"dlmm-viewer/internal/normalizer"
	"dlmm-viewer/internal/oracle"
	"dlmm-viewer/internal/solana"
	"dlmm-viewer/internal/tokens"
)

// TokenResolver resolves mint metadata; implemented by tokens.Service.
type TokenResolver interface {
	Metadata(ctx context.Context, mint string) (*domain.TokenMetadata, error)
}

// Indexer is the optional off-chain event source; implemented by
// meteora.Client. When absent, reconstruction relies on chain events alone.
type Indexer interface {
	Deposits(ctx context.Context, position string) ([]meteora.Deposit, error)
	Withdrawals(ctx context.Context, position string) ([]meteora.Withdrawal, error)
	ClaimFees(ctx context.Context, position string) ([]meteora.ClaimFee, error)
	WalletPositions(ctx context.Context, wallet string) ([]meteora.Position, error)
}

// Service reconstructs positions from chain and indexer data.
type Service struct {
	rpc         solana.RPCClient
	tokens      TokenResolver
	claims      *ClaimPricer
	snapshotter *dlmm.Snapshotter
	indexer     Indexer
	logger      zerolog.Logger

	pairsMu sync.RWMutex
	pairs   map[string]*pairEntry

	now func() time.Time
}

// ServiceOption configures the Service.
type ServiceOption func(*Service)

// WithIndexer enables the off-chain indexer as a second event source.
func WithIndexer(indexer Indexer) ServiceOption {
	return func(s *Service) { s.indexer = indexer }
}

// NewService creates a reconstruction service.
func NewService(rpc solana.RPCClient, resolver TokenResolver, o *oracle.Client, logger zerolog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		rpc:         rpc,
		tokens:      resolver,
		claims:      NewClaimPricer(o, logger),
		snapshotter: dlmm.NewSnapshotter(rpc),
		logger:      logger.With().Str("component", "engine").Logger(),
		pairs:       make(map[string]*pairEntry),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reconstruct builds the full economic history of one position. Any fetch
// or decode failure aborts the whole position: partial data is never
// emitted.
func (s *Service) Reconstruct(ctx context.Context, positionAddress string) (*domain.PositionLiquidityData, error) {
	posData, err := s.rpc.GetAccountData(ctx, positionAddress)
	var position *dlmm.PositionV2
	switch {
	case err == nil:
		position, err = dlmm.DecodePositionV2(positionAddress, posData)
		if err != nil {
			return nil, fmt.Errorf("decode position %s: %w", positionAddress, err)
		}
	case errors.Is(err, solana.ErrAccountNotFound):
		// Closed positions have no account; history still reconstructs
		// from their transactions and indexer records.
	default:
		return nil, fmt.Errorf("fetch position %s: %w", positionAddress, err)
	}

	pair, pool, err := s.loadPair(ctx, positionAddress, position)
	if err != nil {
		return nil, err
	}

	events, err := s.loadEvents(ctx, positionAddress, pair)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 && position == nil {
		return nil, fmt.Errorf("position %s: no history found", positionAddress)
	}

	var live *dlmm.LiveSnapshot
	if position != nil {
		live, err = s.snapshotter.Snapshot(ctx, pool, position)
		if err != nil {
			return nil, fmt.Errorf("live snapshot for %s: %w", positionAddress, err)
		}
	}

	claimRates := s.claims.Rates(ctx, pair, events)
	data := Aggregate(events, pair, claimRates, live, s.now().Unix())
	data.Position = positionAddress
	if position != nil {
		data.Owner = position.Owner
	} else {
		// No account on chain means the position was closed, whether or
		// not a close event survived in the history we could fetch.
		data.Closed = true
	}
	return data, nil
}

// loadPair resolves the pool account and both token metadata records. When
// the position account is gone, the pool address comes from the position's
// event history via the indexer; chain-only reconstruction of a closed
// position therefore requires the indexer.
func (s *Service) loadPair(ctx context.Context, positionAddress string, position *dlmm.PositionV2) (*PairInfo, *dlmm.LbPair, error) {
	pairAddress := ""
	if position != nil {
		pairAddress = position.LbPair
	} else if s.indexer != nil {
		deposits, err := s.indexer.Deposits(ctx, positionAddress)
		if err == nil && len(deposits) > 0 {
			pairAddress = deposits[0].PairAddress
		}
	}
	if pairAddress == "" {
		return nil, nil, fmt.Errorf("position %s: pool address unresolvable", positionAddress)
	}

	if info, pool, ok := s.cachedPair(pairAddress); ok {
		return info, pool, nil
	}

	poolData, err := s.rpc.GetAccountData(ctx, pairAddress)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch pool %s: %w", pairAddress, err)
	}
	pool, err := dlmm.DecodeLbPair(pairAddress, poolData)
	if err != nil {
		return nil, nil, fmt.Errorf("decode pool %s: %w", pairAddress, err)
	}

	metaX, err := s.tokens.Metadata(ctx, pool.TokenXMint)
	if err != nil {
		return nil, nil, fmt.Errorf("token X metadata for pool %s: %w", pairAddress, err)
	}
	metaY, err := s.tokens.Metadata(ctx, pool.TokenYMint)
	if err != nil {
		return nil, nil, fmt.Errorf("token Y metadata for pool %s: %w", pairAddress, err)
	}

	info := &PairInfo{
		Address:        pool.Address,
		BinStep:        pool.BinStep,
		ActiveBinID:    pool.ActiveID,
		TokenXMint:     pool.TokenXMint,
		TokenYMint:     pool.TokenYMint,
		TokenXDecimals: metaX.Decimals,
		TokenYDecimals: metaY.Decimals,
		TokenXSymbol:   metaX.Symbol,
		TokenYSymbol:   metaY.Symbol,
	}
	s.storePair(info, pool)
	return info, pool, nil
}

// signaturePageSize bounds one getSignaturesForAddress page.
const signaturePageSize = 1000

// loadEvents merges chain-decoded events with indexer records for the
// position, ordered by block time.
func (s *Service) loadEvents(ctx context.Context, positionAddress string, pair *PairInfo) ([]domain.PositionEvent, error) {
	chainEvents, err := s.loadChainEvents(ctx, positionAddress, pair)
	if err != nil {
		return nil, err
	}

	if s.indexer == nil {
		normalizer.SortEvents(chainEvents)
		return chainEvents, nil
	}

	indexerEvents, err := s.loadIndexerEvents(ctx, positionAddress, pair)
	if err != nil {
		s.logger.Warn().Err(err).Str("position", positionAddress).
			Msg("indexer unavailable, continuing with chain events only")
		normalizer.SortEvents(chainEvents)
		return chainEvents, nil
	}

	return normalizer.Merge(chainEvents, indexerEvents), nil
}

func (s *Service) loadChainEvents(ctx context.Context, positionAddress string, pair *PairInfo) ([]domain.PositionEvent, error) {
	var signatures []string
	before := ""
	for {
		page, err := s.rpc.GetSignaturesForAddress(ctx, positionAddress, &solana.SignaturesOpts{
			Before: before,
			Limit:  signaturePageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("signatures for %s: %w", positionAddress, err)
		}
		for _, info := range page {
			if info.Err != nil {
				continue
			}
			signatures = append(signatures, info.Signature)
		}
		if len(page) < signaturePageSize {
			break
		}
		before = page[len(page)-1].Signature
	}

	if len(signatures) == 0 {
		return nil, nil
	}

	txs, err := s.rpc.GetTransactions(ctx, signatures)
	if err != nil {
		return nil, fmt.Errorf("transactions for %s: %w", positionAddress, err)
	}

	return normalizer.FromTransactions(txs, positionAddress, pair.ActiveBinID, pair.TokenXDecimals, pair.TokenYDecimals), nil
}

func (s *Service) loadIndexerEvents(ctx context.Context, positionAddress string, pair *PairInfo) ([]domain.PositionEvent, error) {
	deposits, err := s.indexer.Deposits(ctx, positionAddress)
	if err != nil {
		return nil, err
	}
	withdrawals, err := s.indexer.Withdrawals(ctx, positionAddress)
	if err != nil {
		return nil, err
	}
	claims, err := s.indexer.ClaimFees(ctx, positionAddress)
	if err != nil {
		return nil, err
	}

	return normalizer.FromIndexerRecords(deposits, withdrawals, claims,
		pair.ActiveBinID, pair.TokenXDecimals, pair.TokenYDecimals), nil
}

// WalletPositions lists position addresses currently owned by a wallet, via
// getProgramAccounts filtered on the PositionV2 discriminator and owner.
// Public RPC endpoints often refuse getProgramAccounts; the indexer's
// wallet listing covers that, and additionally surfaces closed positions.
func (s *Service) WalletPositions(ctx context.Context, wallet string) ([]string, error) {
	accounts, err := s.rpc.GetProgramAccounts(ctx, dlmm.ProgramID, []solana.MemcmpFilter{
		{Offset: dlmm.PositionDiscriminatorOffset, Bytes: dlmm.PositionV2DiscriminatorB58()},
		{Offset: dlmm.PositionOwnerOffset, Bytes: wallet},
	})
	if err != nil {
		if s.indexer == nil {
			return nil, fmt.Errorf("program accounts for wallet %s: %w", wallet, err)
		}
		s.logger.Warn().Err(err).Str("wallet", wallet).
			Msg("getProgramAccounts failed, listing positions through the indexer")
		return s.indexerWalletPositions(ctx, wallet)
	}

	addresses := make([]string, 0, len(accounts))
	for _, account := range accounts {
		addresses = append(addresses, account.Pubkey)
	}
	return addresses, nil
}

func (s *Service) indexerWalletPositions(ctx context.Context, wallet string) ([]string, error) {
	positions, err := s.indexer.WalletPositions(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("indexer positions for wallet %s: %w", wallet, err)
	}

	addresses := make([]string, 0, len(positions))
	for _, p := range positions {
		addresses = append(addresses, p.Address)
	}
	return addresses, nil
}

var _ TokenResolver = (*tokens.Service)(nil)
var _ Indexer = (*meteora.Client)(nil)
