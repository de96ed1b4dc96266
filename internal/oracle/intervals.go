package oracle

import "time"

// Interval is a historical-series resolution supported by the price-history
// provider.
type Interval string

// Resolution ladder, finest to coarsest.
const (
	Interval1m  Interval = "1m"
	Interval3m  Interval = "3m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1H  Interval = "1H"
	Interval2H  Interval = "2H"
	Interval4H  Interval = "4H"
	Interval6H  Interval = "6H"
	Interval8H  Interval = "8H"
	Interval12H Interval = "12H"
	Interval1D  Interval = "1D"
	Interval3D  Interval = "3D"
	Interval1W  Interval = "1W"
	Interval1M  Interval = "1M"
)

// MaxSeriesPoints is the provider-side cap on points per request; interval
// selection keeps requested series under it.
const MaxSeriesPoints = 999

// intervalLadder orders intervals by duration ascending.
var intervalLadder = []struct {
	interval Interval
	minutes  int64
}{
	{Interval1m, 1},
	{Interval3m, 3},
	{Interval5m, 5},
	{Interval15m, 15},
	{Interval30m, 30},
	{Interval1H, 60},
	{Interval2H, 120},
	{Interval4H, 240},
	{Interval6H, 360},
	{Interval8H, 480},
	{Interval12H, 720},
	{Interval1D, 1440},
	{Interval3D, 4320},
	{Interval1W, 10080},
	{Interval1M, 43200},
}

// Duration returns the interval's length. Unknown intervals default to one
// minute, the ladder's floor.
func (i Interval) Duration() time.Duration {
	for _, entry := range intervalLadder {
		if entry.interval == i {
			return time.Duration(entry.minutes) * time.Minute
		}
	}
	return time.Minute
}

// IntervalForSpan picks the finest interval that keeps a series over
// [from, to] (unix seconds) under MaxSeriesPoints. Spans too long even for
// the coarsest interval fall back to it.
func IntervalForSpan(from, to int64) Interval {
	span := to - from
	if span < 0 {
		span = 0
	}
	spanMinutes := (span + 59) / 60
	required := (spanMinutes + MaxSeriesPoints - 1) / MaxSeriesPoints

	for _, entry := range intervalLadder {
		if entry.minutes >= required {
			return entry.interval
		}
	}
	return intervalLadder[len(intervalLadder)-1].interval
}

// IntervalIndex returns the zero-based bucket index of target within a
// series starting at from with the given interval, clamped to 0 for targets
// before the series start. Callers clamp the upper end to the series they
// actually received.
//
// The index addresses the nearest bucket rather than interpolating between
// buckets; any future interpolation strategy replaces this function without
// touching the aggregation engine.
func IntervalIndex(from int64, interval Interval, target int64) int {
	seconds := int64(interval.Duration() / time.Second)
	if seconds <= 0 {
		return 0
	}
	idx := (target - from) / seconds
	if idx < 0 {
		return 0
	}
	return int(idx)
}

// ClampIndex bounds idx to a series of length n.
func ClampIndex(idx, n int) int {
	if n <= 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	if idx < 0 {
		return 0
	}
	return idx
}
