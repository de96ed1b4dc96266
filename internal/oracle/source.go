package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"dlmm-viewer/internal/domain"
)

// Default provider endpoints.
const (
	DefaultPriceAPIURL   = "https://lite-api.jup.ag/price/v2"
	DefaultHistoryAPIURL = "https://public-api.birdeye.so/defi/history_price"

	sourceTimeout = 10 * time.Second
)

// HTTPSource implements PriceSource over a Jupiter-style spot price API and
// a Birdeye-style price-history API. Each method performs exactly one fetch;
// retry and caching live in the Client.
type HTTPSource struct {
	priceURL   string
	historyURL string
	apiKey     string
	client     *http.Client
}

// SourceOption configures HTTPSource.
type SourceOption func(*HTTPSource)

// WithPriceURL overrides the spot price endpoint.
func WithPriceURL(u string) SourceOption {
	return func(s *HTTPSource) { s.priceURL = u }
}

// WithHistoryURL overrides the price-history endpoint.
func WithHistoryURL(u string) SourceOption {
	return func(s *HTTPSource) { s.historyURL = u }
}

// WithAPIKey sets the history provider API key header.
func WithAPIKey(key string) SourceOption {
	return func(s *HTTPSource) { s.apiKey = key }
}

// NewHTTPSource creates a price source with default endpoints.
func NewHTTPSource(opts ...SourceOption) *HTTPSource {
	s := &HTTPSource{
		priceURL:   DefaultPriceAPIURL,
		historyURL: DefaultHistoryAPIURL,
		client:     &http.Client{Timeout: sourceTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type priceResponse struct {
	Data map[string]struct {
		Price json.Number `json:"price"`
	} `json:"data"`
}

// PairPrice fetches the spot price of tokenA denominated in tokenB.
func (s *HTTPSource) PairPrice(ctx context.Context, tokenA, tokenB string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("ids", tokenA)
	q.Set("vsToken", tokenB)
	return s.fetchSpot(ctx, tokenA, q)
}

// UsdPrice fetches the spot USD price of a token.
func (s *HTTPSource) UsdPrice(ctx context.Context, token string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("ids", token)
	return s.fetchSpot(ctx, token, q)
}

func (s *HTTPSource) fetchSpot(ctx context.Context, id string, q url.Values) (decimal.Decimal, error) {
	body, err := s.getJSON(ctx, s.priceURL+"?"+q.Encode())
	if err != nil {
		return decimal.Zero, err
	}

	var resp priceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("decode price response: %w", err)
	}

	entry, ok := resp.Data[id]
	if !ok {
		return decimal.Zero, fmt.Errorf("price response missing token %s", id)
	}
	price, err := decimal.NewFromString(entry.Price.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse price %q: %w", entry.Price, err)
	}
	return price, nil
}

type historyResponse struct {
	Data struct {
		Items []struct {
			UnixTime int64       `json:"unixTime"`
			Value    json.Number `json:"value"`
		} `json:"items"`
	} `json:"data"`
	Success bool `json:"success"`
}

// History fetches an ordered price series for a pair or token address.
func (s *HTTPSource) History(ctx context.Context, address string, kind SubjectKind, interval Interval, from, to int64) ([]domain.PricePoint, error) {
	q := url.Values{}
	q.Set("address", address)
	q.Set("address_type", string(kind))
	q.Set("type", string(interval))
	q.Set("time_from", fmt.Sprintf("%d", from))
	q.Set("time_to", fmt.Sprintf("%d", to))

	body, err := s.getJSON(ctx, s.historyURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var resp historyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode history response: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("history provider reported failure for %s", address)
	}

	points := make([]domain.PricePoint, 0, len(resp.Data.Items))
	for _, item := range resp.Data.Items {
		value, err := decimal.NewFromString(item.Value.String())
		if err != nil {
			return nil, fmt.Errorf("parse history value %q: %w", item.Value, err)
		}
		points = append(points, domain.PricePoint{UnixTime: item.UnixTime, Value: value})
	}
	return points, nil
}

func (s *HTTPSource) getJSON(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("X-API-KEY", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
