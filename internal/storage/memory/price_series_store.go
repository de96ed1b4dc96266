package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"dlmm-viewer/internal/domain"
	"dlmm-viewer/internal/storage"
)

// PriceSeriesStore is an in-memory implementation of storage.PriceSeriesStore.
type PriceSeriesStore struct {
	mu     sync.RWMutex
	series map[string]map[int64]domain.PricePoint // series key -> unix time -> point
}

// NewPriceSeriesStore creates a new in-memory price series store.
func NewPriceSeriesStore() *PriceSeriesStore {
	return &PriceSeriesStore{
		series: make(map[string]map[int64]domain.PricePoint),
	}
}

func seriesKey(address, kind, interval string) string {
	return fmt.Sprintf("%s|%s|%s", address, kind, interval)
}

// InsertPoints adds points, skipping timestamps already present.
func (s *PriceSeriesStore) InsertPoints(_ context.Context, address, kind, interval string, points []domain.PricePoint) error {
	if address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := seriesKey(address, kind, interval)
	byTime, exists := s.series[key]
	if !exists {
		byTime = make(map[int64]domain.PricePoint)
		s.series[key] = byTime
	}

	for _, p := range points {
		if _, exists := byTime[p.UnixTime]; exists {
			continue
		}
		byTime[p.UnixTime] = p
	}
	return nil
}

// GetRange retrieves points within [from, to], ordered by time ascending.
func (s *PriceSeriesStore) GetRange(_ context.Context, address, kind, interval string, from, to int64) ([]domain.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byTime, exists := s.series[seriesKey(address, kind, interval)]
	if !exists {
		return nil, nil
	}

	var points []domain.PricePoint
	for ts, p := range byTime {
		if ts >= from && ts <= to {
			points = append(points, p)
		}
	}
	sort.Slice(points, func(i, j int) bool { return points[i].UnixTime < points[j].UnixTime })
	return points, nil
}

var _ storage.PriceSeriesStore = (*PriceSeriesStore)(nil)
