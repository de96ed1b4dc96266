package clickhouse

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"dlmm-viewer/internal/domain"
	"dlmm-viewer/internal/storage"
)

// PriceSeriesStore implements storage.PriceSeriesStore using ClickHouse.
// The table uses ReplacingMergeTree keyed by (address, kind, interval,
// unix_time), so re-inserting an observed point is harmless.
type PriceSeriesStore struct {
	conn *Conn
}

// NewPriceSeriesStore creates a new PriceSeriesStore.
func NewPriceSeriesStore(conn *Conn) *PriceSeriesStore {
	return &PriceSeriesStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceSeriesStore = (*PriceSeriesStore)(nil)

// InsertPoints adds series points for a subject.
func (s *PriceSeriesStore) InsertPoints(ctx context.Context, address, kind, interval string, points []domain.PricePoint) error {
	if address == "" {
		return storage.ErrInvalidInput
	}
	if len(points) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_series (
			address, subject_kind, interval, unix_time, value
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(address, kind, interval, uint64(p.UnixTime), p.Value)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetRange retrieves cached points within [from, to], ordered by time ASC.
func (s *PriceSeriesStore) GetRange(ctx context.Context, address, kind, interval string, from, to int64) ([]domain.PricePoint, error) {
	query := `
		SELECT unix_time, value
		FROM price_series FINAL
		WHERE address = ? AND subject_kind = ? AND interval = ?
		  AND unix_time >= ? AND unix_time <= ?
		ORDER BY unix_time ASC
	`

	rows, err := s.conn.Query(ctx, query, address, kind, interval, uint64(from), uint64(to))
	if err != nil {
		return nil, fmt.Errorf("query price series: %w", err)
	}
	defer rows.Close()

	var points []domain.PricePoint
	for rows.Next() {
		var unixTime uint64
		var value decimal.Decimal
		if err := rows.Scan(&unixTime, &value); err != nil {
			return nil, fmt.Errorf("scan price series row: %w", err)
		}
		points = append(points, domain.PricePoint{UnixTime: int64(unixTime), Value: value})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price series rows: %w", err)
	}

	return points, nil
}
