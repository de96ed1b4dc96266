package meteora

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// DefaultAPIURL is the public Meteora DLMM indexer endpoint.
const DefaultAPIURL = "https://dlmm-api.meteora.ag"

const (
	defaultTimeout = 15 * time.Second
	maxRetries     = 3
	retryDelay     = 500 * time.Millisecond
)

// Client fetches position history records from the indexer.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL overrides the indexer endpoint.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates an indexer client.
func NewClient(logger zerolog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultAPIURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger.With().Str("component", "meteora").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WalletPositions lists positions owned by a wallet, open and closed, as
// known to the indexer.
func (c *Client) WalletPositions(ctx context.Context, wallet string) ([]Position, error) {
	var positions []Position
	url := fmt.Sprintf("%s/wallet/%s/positions", c.baseURL, wallet)
	if err := c.getJSON(ctx, url, &positions); err != nil {
		return nil, fmt.Errorf("wallet positions for %s: %w", wallet, err)
	}
	return positions, nil
}

// Pair returns the indexer's record for a pool address.
func (c *Client) Pair(ctx context.Context, address string) (*Pair, error) {
	var pair Pair
	url := fmt.Sprintf("%s/pair/%s", c.baseURL, address)
	if err := c.getJSON(ctx, url, &pair); err != nil {
		return nil, fmt.Errorf("pair %s: %w", address, err)
	}
	return &pair, nil
}

// Deposits lists add-liquidity records for a position, oldest first per the
// indexer's contract.
func (c *Client) Deposits(ctx context.Context, position string) ([]Deposit, error) {
	var deposits []Deposit
	url := fmt.Sprintf("%s/position/%s/deposits", c.baseURL, position)
	if err := c.getJSON(ctx, url, &deposits); err != nil {
		return nil, fmt.Errorf("deposits for %s: %w", position, err)
	}
	return deposits, nil
}

// Withdrawals lists remove-liquidity records for a position.
func (c *Client) Withdrawals(ctx context.Context, position string) ([]Withdrawal, error) {
	var withdrawals []Withdrawal
	url := fmt.Sprintf("%s/position/%s/withdraws", c.baseURL, position)
	if err := c.getJSON(ctx, url, &withdrawals); err != nil {
		return nil, fmt.Errorf("withdrawals for %s: %w", position, err)
	}
	return withdrawals, nil
}

// ClaimFees lists fee-claim records for a position.
func (c *Client) ClaimFees(ctx context.Context, position string) ([]ClaimFee, error) {
	var claims []ClaimFee
	url := fmt.Sprintf("%s/position/%s/claim_fees", c.baseURL, position)
	if err := c.getJSON(ctx, url, &claims); err != nil {
		return nil, fmt.Errorf("claim fees for %s: %w", position, err)
	}
	return claims, nil
}

// getJSON fetches url and decodes the response body into out, retrying
// transient failures with linear backoff.
func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelay * time.Duration(attempt)):
			}
			c.logger.Debug().Str("url", url).Int("attempt", attempt+1).Msg("retrying indexer request")
		}

		lastErr = c.doGet(ctx, url, out)
		if lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) doGet(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
