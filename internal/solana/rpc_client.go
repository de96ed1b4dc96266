package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0

	// MaxSignaturePageSize is the RPC-side cap for getSignaturesForAddress.
	MaxSignaturePageSize = 1000
)

// ErrAccountNotFound is returned when a queried account does not exist.
var ErrAccountNotFound = errors.New("account not found")

// HTTPClient implements RPCClient using HTTP JSON-RPC 2.0 with bounded
// exponential-backoff retries.
type HTTPClient struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	requestID   atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new Solana RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// call performs a JSON-RPC call with retries and exponential backoff.
// RPC-level errors are not retried; transport and rate-limit failures are.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	respBody, err := c.post(ctx, body)
	if err != nil {
		return err
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}
	return nil
}

// callBatch performs a JSON-RPC batch call. Responses are returned keyed by
// request id; ids are assigned from the shared counter.
func (c *HTTPClient) callBatch(ctx context.Context, requests []rpcRequest) (map[uint64]rpcResponse, error) {
	body, err := json.Marshal(requests)
	if err != nil {
		return nil, fmt.Errorf("marshal batch: %w", err)
	}

	respBody, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}

	var responses []rpcResponse
	if err := json.Unmarshal(respBody, &responses); err != nil {
		return nil, fmt.Errorf("unmarshal batch response: %w", err)
	}

	byID := make(map[uint64]rpcResponse, len(responses))
	for _, r := range responses {
		byID[r.ID] = r
	}
	return byID, nil
}

// post sends one HTTP body with the retry/backoff loop. Caller-level aborts
// are honoured between attempts via ctx.
func (c *HTTPClient) post(ctx context.Context, body []byte) ([]byte, error) {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		return respBody, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// GetAccountData retrieves an account and decodes its base64 data.
func (c *HTTPClient) GetAccountData(ctx context.Context, pubkey string) ([]byte, error) {
	params := []interface{}{
		pubkey,
		map[string]interface{}{"encoding": "base64"},
	}

	var result getAccountInfoResult
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}
	if result.Value == nil {
		return nil, ErrAccountNotFound
	}
	if len(result.Value.Data) < 1 {
		return nil, fmt.Errorf("account %s: missing data field", pubkey)
	}

	data, err := base64.StdEncoding.DecodeString(result.Value.Data[0])
	if err != nil {
		return nil, fmt.Errorf("account %s: decode data: %w", pubkey, err)
	}
	return data, nil
}

type getAccountInfoResult struct {
	Value *getAccountInfoValue `json:"value"`
}

type getAccountInfoValue struct {
	Lamports uint64   `json:"lamports"`
	Owner    string   `json:"owner"`
	Data     []string `json:"data"` // [base64_data, encoding]
}

// GetSignaturesForAddress retrieves signatures for an address with
// pagination. The RPC returns them newest to oldest.
func (c *HTTPClient) GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error) {
	config := make(map[string]interface{})
	if opts != nil {
		if opts.Before != "" {
			config["before"] = opts.Before
		}
		if opts.Until != "" {
			config["until"] = opts.Until
		}
		if opts.Limit > 0 {
			config["limit"] = opts.Limit
		}
	}

	params := []interface{}{address}
	if len(config) > 0 {
		params = append(params, config)
	}

	var result []getSignaturesResult
	if err := c.call(ctx, "getSignaturesForAddress", params, &result); err != nil {
		return nil, err
	}

	sigs := make([]SignatureInfo, len(result))
	for i, r := range result {
		sigs[i] = SignatureInfo{
			Signature: r.Signature,
			Slot:      r.Slot,
			BlockTime: r.BlockTime,
			Err:       r.Err,
		}
	}
	return sigs, nil
}

type getSignaturesResult struct {
	Signature string      `json:"signature"`
	Slot      int64       `json:"slot"`
	BlockTime *int64      `json:"blockTime"`
	Err       interface{} `json:"err"`
}

// GetTransactions retrieves a batch of transactions in one JSON-RPC batch
// request. Results are index-aligned with signatures; transactions the node
// does not know come back nil.
func (c *HTTPClient) GetTransactions(ctx context.Context, signatures []string) ([]*Transaction, error) {
	if len(signatures) == 0 {
		return nil, nil
	}

	requests := make([]rpcRequest, len(signatures))
	idToIndex := make(map[uint64]int, len(signatures))
	for i, sig := range signatures {
		id := c.requestID.Add(1)
		idToIndex[id] = i
		requests[i] = rpcRequest{
			JSONRPC: "2.0",
			ID:      id,
			Method:  "getTransaction",
			Params: []interface{}{
				sig,
				map[string]interface{}{
					"encoding":                       "json",
					"maxSupportedTransactionVersion": 0,
				},
			},
		}
	}

	responses, err := c.callBatch(ctx, requests)
	if err != nil {
		return nil, err
	}

	txs := make([]*Transaction, len(signatures))
	for id, resp := range responses {
		idx, ok := idToIndex[id]
		if !ok {
			continue
		}
		if resp.Error != nil || resp.Result == nil {
			continue
		}

		var raw getTransactionResult
		if err := json.Unmarshal(resp.Result, &raw); err != nil {
			return nil, fmt.Errorf("unmarshal transaction %s: %w", signatures[idx], err)
		}
		if raw.Slot == 0 && raw.BlockTime == nil {
			continue
		}
		txs[idx] = raw.toTransaction(signatures[idx])
	}

	return txs, nil
}

type getTransactionResult struct {
	Slot        int64               `json:"slot"`
	BlockTime   *int64              `json:"blockTime"`
	Meta        *getTransactionMeta `json:"meta"`
	Transaction *getTransactionTx   `json:"transaction"`
}

type getTransactionMeta struct {
	Err               interface{}               `json:"err"`
	LogMessages       []string                  `json:"logMessages"`
	InnerInstructions []getInnerInstructionsSet `json:"innerInstructions"`
}

type getInnerInstructionsSet struct {
	Index        int                      `json:"index"`
	Instructions []getCompiledInstruction `json:"instructions"`
}

type getCompiledInstruction struct {
	ProgramIDIndex int    `json:"programIdIndex"`
	Accounts       []int  `json:"accounts"`
	Data           string `json:"data"`
}

type getTransactionTx struct {
	Message *getTransactionMessage `json:"message"`
}

type getTransactionMessage struct {
	AccountKeys []string `json:"accountKeys"`
}

func (r *getTransactionResult) toTransaction(signature string) *Transaction {
	tx := &Transaction{
		Slot:      r.Slot,
		Signature: signature,
	}
	if r.BlockTime != nil {
		tx.BlockTime = *r.BlockTime
	}
	if r.Meta != nil {
		meta := &TransactionMeta{
			Err:         r.Meta.Err,
			LogMessages: r.Meta.LogMessages,
		}
		for _, set := range r.Meta.InnerInstructions {
			inner := InnerInstructionSet{Index: set.Index}
			for _, ix := range set.Instructions {
				inner.Instructions = append(inner.Instructions, CompiledInstruction{
					ProgramIDIndex: ix.ProgramIDIndex,
					Accounts:       ix.Accounts,
					Data:           ix.Data,
				})
			}
			meta.InnerInstructions = append(meta.InnerInstructions, inner)
		}
		tx.Meta = meta
	}
	if r.Transaction != nil && r.Transaction.Message != nil {
		tx.Message = &TransactionMessage{
			AccountKeys: r.Transaction.Message.AccountKeys,
		}
	}
	return tx
}

// GetProgramAccounts retrieves program-owned accounts matching the filters.
func (c *HTTPClient) GetProgramAccounts(ctx context.Context, programID string, filters []MemcmpFilter) ([]ProgramAccount, error) {
	rpcFilters := make([]interface{}, len(filters))
	for i, f := range filters {
		rpcFilters[i] = map[string]interface{}{
			"memcmp": map[string]interface{}{
				"offset": f.Offset,
				"bytes":  f.Bytes,
			},
		}
	}

	params := []interface{}{
		programID,
		map[string]interface{}{
			"encoding": "base64",
			"filters":  rpcFilters,
		},
	}

	var result []getProgramAccountsItem
	if err := c.call(ctx, "getProgramAccounts", params, &result); err != nil {
		return nil, err
	}

	accounts := make([]ProgramAccount, 0, len(result))
	for _, item := range result {
		if len(item.Account.Data) < 1 {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(item.Account.Data[0])
		if err != nil {
			return nil, fmt.Errorf("account %s: decode data: %w", item.Pubkey, err)
		}
		accounts = append(accounts, ProgramAccount{Pubkey: item.Pubkey, Data: data})
	}
	return accounts, nil
}

type getProgramAccountsItem struct {
	Pubkey  string `json:"pubkey"`
	Account struct {
		Data []string `json:"data"`
	} `json:"account"`
}
