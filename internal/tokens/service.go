// Package tokens resolves mint addresses to metadata. Decimals are an
// immutable on-chain fact, so resolved records are cached for the life of
// the process and optionally persisted.
package tokens

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"

	"dlmm-viewer/internal/domain"
	"dlmm-viewer/internal/solana"
	"dlmm-viewer/internal/storage"
)

// MetadataProgramID is the Metaplex token metadata program.
const MetadataProgramID = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"

// ErrNoMetadata is returned when a mint account cannot be fetched or its
// layout is not a token mint.
var ErrNoMetadata = errors.New("no metadata available")

// minMintAccountSize covers the SPL mint layout through the decimals byte.
const minMintAccountSize = 46

// Service resolves and caches token metadata.
type Service struct {
	rpc    solana.RPCClient
	store  storage.TokenMetadataStore
	logger zerolog.Logger

	mu    sync.RWMutex
	cache map[string]*domain.TokenMetadata
}

// NewService creates a metadata service. store may be nil; resolution then
// caches in process memory only.
func NewService(rpc solana.RPCClient, store storage.TokenMetadataStore, logger zerolog.Logger) *Service {
	return &Service{
		rpc:    rpc,
		store:  store,
		logger: logger.With().Str("component", "tokens").Logger(),
		cache:  make(map[string]*domain.TokenMetadata),
	}
}

// Metadata resolves a mint to its metadata, from cache, durable store, or
// chain in that order. Returns ErrNoMetadata when the mint account cannot
// be decoded.
func (s *Service) Metadata(ctx context.Context, mint string) (*domain.TokenMetadata, error) {
	s.mu.RLock()
	cached, ok := s.cache[mint]
	s.mu.RUnlock()
	if ok {
		copied := *cached
		return &copied, nil
	}

	if s.store != nil {
		stored, err := s.store.GetByMint(ctx, mint)
		if err == nil {
			s.remember(stored)
			return stored, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn().Err(err).Str("mint", mint).Msg("metadata store lookup failed")
		}
	}

	meta, err := s.resolve(ctx, mint)
	if err != nil {
		return nil, err
	}

	s.remember(meta)
	if s.store != nil {
		if err := s.store.Insert(ctx, meta); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			s.logger.Warn().Err(err).Str("mint", mint).Msg("metadata store insert failed")
		}
	}
	return meta, nil
}

// Decimals resolves just the decimals for a mint.
func (s *Service) Decimals(ctx context.Context, mint string) (uint8, error) {
	meta, err := s.Metadata(ctx, mint)
	if err != nil {
		return 0, err
	}
	return meta.Decimals, nil
}

func (s *Service) remember(m *domain.TokenMetadata) {
	copied := *m
	s.mu.Lock()
	s.cache[m.Mint] = &copied
	s.mu.Unlock()
}

// resolve fetches the mint account for decimals, then the Metaplex metadata
// account for name/symbol/uri. Missing Metaplex metadata is not an error;
// many mints never register any.
func (s *Service) resolve(ctx context.Context, mint string) (*domain.TokenMetadata, error) {
	data, err := s.rpc.GetAccountData(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("fetch mint account %s: %w", mint, err)
	}
	if len(data) < minMintAccountSize {
		return nil, fmt.Errorf("%w: mint account %s too short (%d bytes)", ErrNoMetadata, mint, len(data))
	}

	meta := &domain.TokenMetadata{
		Mint:     mint,
		Decimals: data[44],
	}

	name, symbol, uri, err := s.fetchMetaplex(ctx, mint)
	if err != nil {
		s.logger.Debug().Err(err).Str("mint", mint).Msg("no metaplex metadata")
		return meta, nil
	}
	meta.Name = name
	meta.Symbol = symbol
	meta.URI = uri
	return meta, nil
}

func (s *Service) fetchMetaplex(ctx context.Context, mint string) (name, symbol, uri string, err error) {
	address, err := metadataAddress(mint)
	if err != nil {
		return "", "", "", err
	}

	data, err := s.rpc.GetAccountData(ctx, address)
	if err != nil {
		return "", "", "", err
	}
	return decodeMetaplex(data)
}

// metadataAddress derives the Metaplex metadata PDA for a mint. Seeds:
// "metadata", metadata program, mint.
func metadataAddress(mint string) (string, error) {
	mintBytes, err := base58.Decode(mint)
	if err != nil {
		return "", fmt.Errorf("decode mint: %w", err)
	}
	program, err := base58.Decode(MetadataProgramID)
	if err != nil {
		return "", fmt.Errorf("decode metadata program: %w", err)
	}
	seeds := [][]byte{[]byte("metadata"), program, mintBytes}
	return solana.DeriveProgramAddress(seeds, program), nil
}

// decodeMetaplex extracts name/symbol/uri from a Metaplex metadata account:
// key (1) + update authority (32) + mint (32), then three borsh strings.
func decodeMetaplex(data []byte) (name, symbol, uri string, err error) {
	offset := 1 + 32 + 32

	name, offset, err = readBorshString(data, offset)
	if err != nil {
		return "", "", "", fmt.Errorf("read name: %w", err)
	}
	symbol, offset, err = readBorshString(data, offset)
	if err != nil {
		return "", "", "", fmt.Errorf("read symbol: %w", err)
	}
	uri, _, err = readBorshString(data, offset)
	if err != nil {
		return "", "", "", fmt.Errorf("read uri: %w", err)
	}
	return trimNul(name), trimNul(symbol), trimNul(uri), nil
}

func readBorshString(data []byte, offset int) (string, int, error) {
	if offset+4 > len(data) {
		return "", 0, errors.New("truncated string length")
	}
	length := int(binary.LittleEndian.Uint32(data[offset:]))
	offset += 4
	if length < 0 || offset+length > len(data) {
		return "", 0, errors.New("truncated string body")
	}
	return string(data[offset : offset+length]), offset + length, nil
}

// trimNul drops the zero padding Metaplex stores inside fixed-size strings.
func trimNul(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return s[:i]
		}
	}
	return s
}
