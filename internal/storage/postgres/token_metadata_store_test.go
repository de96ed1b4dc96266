package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dlmm-viewer/internal/domain"
	"dlmm-viewer/internal/storage"
)

func TestTokenMetadataStore_InsertAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenMetadataStore(pool)
	ctx := context.Background()

	meta := &domain.TokenMetadata{
		Mint:     "So11111111111111111111111111111111111111112",
		Decimals: 9,
		Symbol:   "SOL",
		Name:     "Wrapped SOL",
		URI:      "",
	}
	require.NoError(t, store.Insert(ctx, meta))

	got, err := store.GetByMint(ctx, meta.Mint)
	require.NoError(t, err)
	assert.Equal(t, uint8(9), got.Decimals)
	assert.Equal(t, "SOL", got.Symbol)

	err = store.Insert(ctx, meta)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	_, err = store.GetByMint(ctx, "unknown-mint")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
