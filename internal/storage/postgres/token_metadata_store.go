package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"dlmm-viewer/internal/domain"
	"dlmm-viewer/internal/storage"
)

// TokenMetadataStore implements storage.TokenMetadataStore using PostgreSQL.
type TokenMetadataStore struct {
	pool *Pool
}

// NewTokenMetadataStore creates a new TokenMetadataStore.
func NewTokenMetadataStore(pool *Pool) *TokenMetadataStore {
	return &TokenMetadataStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenMetadataStore = (*TokenMetadataStore)(nil)

// Insert adds metadata for a mint. Returns ErrDuplicateKey if the mint exists.
func (s *TokenMetadataStore) Insert(ctx context.Context, m *domain.TokenMetadata) error {
	if m == nil || m.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO token_metadata (
			mint, decimals, symbol, name, uri
		) VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.pool.Exec(ctx, query,
		m.Mint,
		m.Decimals,
		m.Symbol,
		m.Name,
		m.URI,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token metadata: %w", err)
	}
	return nil
}

// GetByMint retrieves metadata by mint address. Returns ErrNotFound if not exists.
func (s *TokenMetadataStore) GetByMint(ctx context.Context, mint string) (*domain.TokenMetadata, error) {
	query := `
		SELECT mint, decimals, symbol, name, uri
		FROM token_metadata
		WHERE mint = $1
	`

	row := s.pool.QueryRow(ctx, query, mint)
	m, err := scanTokenMetadata(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token metadata by mint: %w", err)
	}
	return m, nil
}

func scanTokenMetadata(row pgx.Row) (*domain.TokenMetadata, error) {
	var m domain.TokenMetadata
	err := row.Scan(
		&m.Mint,
		&m.Decimals,
		&m.Symbol,
		&m.Name,
		&m.URI,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
