// Package oracle provides current and historical token prices with caching,
// request coalescing, and bounded retry.
package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"dlmm-viewer/internal/domain"
)

// PriceUnavailable is the sentinel returned by price lookups after retry
// exhaustion. Callers must treat it as "unknown", never as a real price.
var PriceUnavailable = decimal.NewFromInt(-1)

// SubjectKind selects what a historical series is keyed by.
type SubjectKind string

const (
	SubjectPair  SubjectKind = "pair"
	SubjectToken SubjectKind = "token"
)

// Default cache and retry tuning.
const (
	DefaultSpotTTL     = 60 * time.Second
	DefaultHistoryTTL  = 5 * time.Minute
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 500 * time.Millisecond

	// MinHistorySpan is the provider's minimum series span; shorter
	// requests are widened before calling out.
	MinHistorySpan = 60
)

// PriceSource is the raw price backend. Implementations perform one fetch
// per call; the Client layers caching, coalescing, and retry on top.
type PriceSource interface {
	PairPrice(ctx context.Context, tokenA, tokenB string) (decimal.Decimal, error)
	UsdPrice(ctx context.Context, token string) (decimal.Decimal, error)
	History(ctx context.Context, address string, kind SubjectKind, interval Interval, from, to int64) ([]domain.PricePoint, error)
}

// Counter is the metrics hook for cache accounting; prometheus counters
// satisfy it.
type Counter interface {
	Inc()
}

// SeriesStore is an optional durable cache for historical series, consulted
// between the in-memory cache and the source. Implemented by the clickhouse
// and memory price series stores.
type SeriesStore interface {
	InsertPoints(ctx context.Context, address, kind, interval string, points []domain.PricePoint) error
	GetRange(ctx context.Context, address, kind, interval string, from, to int64) ([]domain.PricePoint, error)
}

// Client is the price oracle used across the pipeline.
type Client struct {
	source PriceSource
	cache  *ttlCache
	logger zerolog.Logger

	maxAttempts int
	baseDelay   time.Duration
	spotTTL     time.Duration
	historyTTL  time.Duration

	store SeriesStore

	cacheHits   Counter
	cacheMisses Counter
}

// Option configures the Client.
type Option func(*Client)

// WithRetry sets retry bounds for price fetches.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(c *Client) {
		c.maxAttempts = maxAttempts
		c.baseDelay = baseDelay
	}
}

// WithTTL overrides cache lifetimes.
func WithTTL(spot, history time.Duration) Option {
	return func(c *Client) {
		c.spotTTL = spot
		c.historyTTL = history
	}
}

// WithSeriesStore wires a durable historical-series cache. Store failures
// degrade to the source, never fail a lookup.
func WithSeriesStore(store SeriesStore) Option {
	return func(c *Client) {
		c.store = store
	}
}

// WithCacheCounters wires cache hit/miss counters.
func WithCacheCounters(hits, misses Counter) Option {
	return func(c *Client) {
		c.cacheHits = hits
		c.cacheMisses = misses
	}
}

// NewClient creates an oracle client over the given source.
func NewClient(source PriceSource, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		source:      source,
		cache:       newTTLCache(),
		logger:      logger.With().Str("component", "oracle").Logger(),
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		spotTTL:     DefaultSpotTTL,
		historyTTL:  DefaultHistoryTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CurrentPairRate returns the current spot price of tokenA denominated in
// tokenB, or PriceUnavailable after retry exhaustion.
func (c *Client) CurrentPairRate(ctx context.Context, tokenA, tokenB string) decimal.Decimal {
	key := fmt.Sprintf("pair:%s:%s", tokenA, tokenB)
	v, err := c.cached(key, c.spotTTL, func() (interface{}, error) {
		return c.fetchPrice(ctx, func() (decimal.Decimal, error) {
			return c.source.PairPrice(ctx, tokenA, tokenB)
		})
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("tokenA", tokenA).Str("tokenB", tokenB).
			Msg("pair rate unavailable after retries")
		return PriceUnavailable
	}
	return v.(decimal.Decimal)
}

// CurrentUsdPrice returns the current USD price of a token, or
// PriceUnavailable after retry exhaustion.
func (c *Client) CurrentUsdPrice(ctx context.Context, token string) decimal.Decimal {
	key := fmt.Sprintf("usd:%s", token)
	v, err := c.cached(key, c.spotTTL, func() (interface{}, error) {
		return c.fetchPrice(ctx, func() (decimal.Decimal, error) {
			return c.source.UsdPrice(ctx, token)
		})
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("token", token).
			Msg("usd price unavailable after retries")
		return PriceUnavailable
	}
	return v.(decimal.Decimal)
}

// HistoricalSeries returns the price series for a pair or token over
// [from, to] unix seconds, ordered by time ascending. Sub-minute spans are
// widened to the provider's minimum.
func (c *Client) HistoricalSeries(ctx context.Context, address string, kind SubjectKind, interval Interval, from, to int64) ([]domain.PricePoint, error) {
	if to-from < MinHistorySpan {
		to = from + MinHistorySpan
	}

	key := fmt.Sprintf("history:%s:%s:%s:%d:%d", address, kind, interval, from, to)
	v, err := c.cached(key, c.historyTTL, func() (interface{}, error) {
		if points, ok := c.storedSeries(ctx, address, kind, interval, from, to); ok {
			return points, nil
		}

		var points []domain.PricePoint
		err := c.withRetry(ctx, func() error {
			var err error
			points, err = c.source.History(ctx, address, kind, interval, from, to)
			return err
		})
		if err != nil {
			return nil, err
		}

		if c.store != nil && len(points) > 0 {
			if err := c.store.InsertPoints(ctx, address, string(kind), string(interval), points); err != nil {
				c.logger.Warn().Err(err).Str("address", address).
					Msg("failed to persist historical series")
			}
		}
		return points, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.PricePoint), nil
}

// storedSeries reads a series from the durable store. A stored series is
// usable only when it covers every bucket of the request; partial coverage
// falls through to the source so gaps never surface as flat prices.
func (c *Client) storedSeries(ctx context.Context, address string, kind SubjectKind, interval Interval, from, to int64) ([]domain.PricePoint, bool) {
	if c.store == nil {
		return nil, false
	}

	points, err := c.store.GetRange(ctx, address, string(kind), string(interval), from, to)
	if err != nil {
		c.logger.Warn().Err(err).Str("address", address).
			Msg("historical series store read failed")
		return nil, false
	}

	seconds := int64(interval.Duration() / time.Second)
	expected := int((to-from)/seconds) + 1
	if len(points) < expected {
		return nil, false
	}
	return points, true
}

func (c *Client) cached(key string, ttl time.Duration, fill func() (interface{}, error)) (interface{}, error) {
	if v, ok := c.cache.get(key); ok {
		if c.cacheHits != nil {
			c.cacheHits.Inc()
		}
		return v, nil
	}
	if c.cacheMisses != nil {
		c.cacheMisses.Inc()
	}
	return c.cache.getOrFill(key, ttl, fill)
}

func (c *Client) fetchPrice(ctx context.Context, fetch func() (decimal.Decimal, error)) (interface{}, error) {
	var price decimal.Decimal
	err := c.withRetry(ctx, func() error {
		var err error
		price, err = fetch()
		return err
	})
	if err != nil {
		return nil, err
	}
	return price, nil
}

// withRetry runs fn up to maxAttempts times with exponential backoff
// (baseDelay doubled per attempt), honoring ctx between attempts.
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	delay := c.baseDelay
	var lastErr error

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		if err := fn(); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	return fmt.Errorf("%d attempts failed: %w", c.maxAttempts, lastErr)
}
