// Package storage defines the optional durable caches behind the viewer:
// token metadata (decimals never change for a mint, so persisting them is
// safe) and historical price series (immutable once observed). All position
// state is recomputed per session; nothing here is authoritative.
package storage

import (
	"context"

	"dlmm-viewer/internal/domain"
)

// TokenMetadataStore caches resolved mint metadata.
type TokenMetadataStore interface {
	// Insert adds metadata for a mint. Returns ErrDuplicateKey if the mint
	// is already known; metadata is immutable once resolved.
	Insert(ctx context.Context, m *domain.TokenMetadata) error

	// GetByMint retrieves metadata by mint address. Returns ErrNotFound if
	// the mint has not been resolved yet.
	GetByMint(ctx context.Context, mint string) (*domain.TokenMetadata, error)
}

// PriceSeriesStore caches historical price series fetched from the price
// provider, keyed by subject address, subject kind, and interval.
type PriceSeriesStore interface {
	// InsertPoints adds series points for a subject. Points already present
	// (same subject, kind, interval, time) are skipped, not an error.
	InsertPoints(ctx context.Context, address, kind, interval string, points []domain.PricePoint) error

	// GetRange retrieves cached points within [from, to] unix seconds,
	// ordered by time ascending. An empty result is not an error.
	GetRange(ctx context.Context, address, kind, interval string, from, to int64) ([]domain.PricePoint, error)
}
