package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"dlmm-viewer/internal/domain"
)

func points(times ...int64) []domain.PricePoint {
	out := make([]domain.PricePoint, len(times))
	for i, ts := range times {
		out[i] = domain.PricePoint{UnixTime: ts, Value: decimal.NewFromInt(ts)}
	}
	return out
}

func TestPriceSeriesStore_RangeQuery(t *testing.T) {
	store := NewPriceSeriesStore()
	ctx := context.Background()

	if err := store.InsertPoints(ctx, "mintA", "token", "1H", points(100, 200, 300, 400)); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetRange(ctx, "mintA", "token", "1H", 150, 350)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].UnixTime != 200 || got[1].UnixTime != 300 {
		t.Errorf("got %+v", got)
	}
}

func TestPriceSeriesStore_DuplicateTimestampsSkipped(t *testing.T) {
	store := NewPriceSeriesStore()
	ctx := context.Background()

	if err := store.InsertPoints(ctx, "mintA", "token", "1H", points(100)); err != nil {
		t.Fatal(err)
	}
	// Same timestamp with a different value must not overwrite.
	if err := store.InsertPoints(ctx, "mintA", "token", "1H", []domain.PricePoint{
		{UnixTime: 100, Value: decimal.NewFromInt(-5)},
	}); err != nil {
		t.Fatal(err)
	}

	got, _ := store.GetRange(ctx, "mintA", "token", "1H", 0, 1000)
	if len(got) != 1 || !got[0].Value.Equal(decimal.NewFromInt(100)) {
		t.Errorf("got %+v", got)
	}
}

func TestPriceSeriesStore_SeriesAreIsolated(t *testing.T) {
	store := NewPriceSeriesStore()
	ctx := context.Background()

	store.InsertPoints(ctx, "mintA", "token", "1H", points(100))
	store.InsertPoints(ctx, "mintA", "token", "1D", points(200))
	store.InsertPoints(ctx, "pairB", "pair", "1H", points(300))

	got, _ := store.GetRange(ctx, "mintA", "token", "1H", 0, 1000)
	if len(got) != 1 || got[0].UnixTime != 100 {
		t.Errorf("interval/kind must partition series, got %+v", got)
	}
}

func TestPriceSeriesStore_EmptyResult(t *testing.T) {
	store := NewPriceSeriesStore()
	got, err := store.GetRange(context.Background(), "unknown", "token", "1H", 0, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty, got %+v", got)
	}
}
