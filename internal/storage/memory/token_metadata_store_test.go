package memory

import (
	"context"
	"errors"
	"testing"

	"dlmm-viewer/internal/domain"
	"dlmm-viewer/internal/storage"
)

func TestTokenMetadataStore_InsertAndGet(t *testing.T) {
	store := NewTokenMetadataStore()
	ctx := context.Background()

	meta := &domain.TokenMetadata{
		Mint:     "So11111111111111111111111111111111111111112",
		Decimals: 9,
		Symbol:   "SOL",
		Name:     "Wrapped SOL",
	}

	if err := store.Insert(ctx, meta); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := store.GetByMint(ctx, meta.Mint)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Decimals != 9 || got.Symbol != "SOL" {
		t.Errorf("got %+v", got)
	}
}

func TestTokenMetadataStore_DuplicateMint(t *testing.T) {
	store := NewTokenMetadataStore()
	ctx := context.Background()

	meta := &domain.TokenMetadata{Mint: "MintA", Decimals: 6}
	if err := store.Insert(ctx, meta); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.Insert(ctx, meta); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestTokenMetadataStore_NotFound(t *testing.T) {
	store := NewTokenMetadataStore()
	_, err := store.GetByMint(context.Background(), "unknown")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTokenMetadataStore_InvalidInput(t *testing.T) {
	store := NewTokenMetadataStore()
	if err := store.Insert(context.Background(), nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.Insert(context.Background(), &domain.TokenMetadata{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty mint, got %v", err)
	}
}

func TestTokenMetadataStore_ReturnsCopy(t *testing.T) {
	store := NewTokenMetadataStore()
	ctx := context.Background()

	if err := store.Insert(ctx, &domain.TokenMetadata{Mint: "MintA", Symbol: "AAA"}); err != nil {
		t.Fatal(err)
	}
	first, _ := store.GetByMint(ctx, "MintA")
	first.Symbol = "mutated"

	second, _ := store.GetByMint(ctx, "MintA")
	if second.Symbol != "AAA" {
		t.Errorf("store leaked internal pointer: %+v", second)
	}
}
