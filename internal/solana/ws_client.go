package solana

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// AccountNotification is one account-change message from an account
// subscription. Data is the decoded account contents.
type AccountNotification struct {
	Pubkey string
	Slot   int64
	Data   []byte
}

// WSClient defines the Solana WebSocket subscription surface.
type WSClient interface {
	// SubscribeAccount subscribes to changes of one account. The channel
	// closes when the client shuts down.
	SubscribeAccount(ctx context.Context, pubkey string) (<-chan AccountNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	PingInterval      time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// WSClientImpl implements WSClient using gorilla/websocket. One reader
// goroutine fans notifications out to per-subscription channels; on read
// errors it reconnects with exponential backoff and resubscribes every
// account, keeping existing delivery channels alive across the reconnect.
type WSClientImpl struct {
	endpoint string
	config   WSClientConfig

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// subs maps server subscription id to delivery channel and pubkey.
	// The pubkey doubles as the resubscription key after a reconnect.
	subs   map[int64]accountSub
	subsMu sync.RWMutex

	// pending maps request id to the channel waiting for a subscription id.
	pending   map[uint64]chan int64
	pendingMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

type accountSub struct {
	pubkey string
	ch     chan AccountNotification
}

// NewWSClient creates a WebSocket client and connects to the endpoint.
func NewWSClient(ctx context.Context, endpoint string, config *WSClientConfig) (*WSClientImpl, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	c := &WSClientImpl{
		endpoint: endpoint,
		config:   cfg,
		subs:     make(map[int64]accountSub),
		pending:  make(map[uint64]chan int64),
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()

	return c, nil
}

// connect establishes the WebSocket connection.
func (c *WSClientImpl) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.endpoint, err)
	}

	c.conn = conn
	return nil
}

// SubscribeAccount subscribes to base64-encoded change notifications for one
// account.
func (c *WSClientImpl) SubscribeAccount(ctx context.Context, pubkey string) (<-chan AccountNotification, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("client closed")
	}

	subID, err := c.subscribeAccountRequest(ctx, pubkey)
	if err != nil {
		return nil, err
	}

	ch := make(chan AccountNotification, 16)
	c.subsMu.Lock()
	c.subs[subID] = accountSub{pubkey: pubkey, ch: ch}
	c.subsMu.Unlock()
	return ch, nil
}

// subscribeAccountRequest sends an accountSubscribe request and waits for the
// server-assigned subscription id. It does not register a delivery channel.
func (c *WSClientImpl) subscribeAccountRequest(ctx context.Context, pubkey string) (int64, error) {
	reqID := c.requestID.Add(1)
	req := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      reqID,
		"method":  "accountSubscribe",
		"params": []interface{}{
			pubkey,
			map[string]interface{}{"encoding": "base64", "commitment": "confirmed"},
		},
	}

	wait := make(chan int64, 1)
	c.pendingMu.Lock()
	c.pending[reqID] = wait
	c.pendingMu.Unlock()

	dropPending := func() {
		c.pendingMu.Lock()
		delete(c.pending, reqID)
		c.pendingMu.Unlock()
	}

	if err := c.write(req); err != nil {
		dropPending()
		return 0, err
	}

	select {
	case subID := <-wait:
		return subID, nil
	case <-ctx.Done():
		dropPending()
		return 0, ctx.Err()
	case <-c.done:
		return 0, fmt.Errorf("client closed")
	}
}

// Close shuts the connection down and closes all subscription channels.
func (c *WSClientImpl) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(c.done)

	c.connMu.Lock()
	var err error
	if c.conn != nil {
		err = c.conn.Close()
	}
	c.connMu.Unlock()
	c.wg.Wait()

	c.closeSubscriptions()
	return err
}

// closeSubscriptions closes and forgets every delivery channel.
func (c *WSClientImpl) closeSubscriptions() {
	c.subsMu.Lock()
	for id, sub := range c.subs {
		close(sub.ch)
		delete(c.subs, id)
	}
	c.subsMu.Unlock()
}

func (c *WSClientImpl) write(v interface{}) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return c.conn.WriteJSON(v)
}

type wsMessage struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Method string          `json:"method"`
	Params *wsNotifyParams `json:"params"`
}

type wsNotifyParams struct {
	Subscription int64 `json:"subscription"`
	Result       struct {
		Context struct {
			Slot int64 `json:"slot"`
		} `json:"context"`
		Value struct {
			Data []string `json:"data"`
		} `json:"value"`
	} `json:"result"`
}

func (c *WSClientImpl) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			if !c.reconnecting.Swap(true) {
				go c.reconnect(reconnectDelay)
			}

			reconnectDelay *= 2
			if reconnectDelay > c.config.MaxReconnectDelay {
				reconnectDelay = c.config.MaxReconnectDelay
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = c.config.ReconnectDelay
		c.handleMessage(raw)
	}
}

// reconnect waits the backoff delay, dials a fresh connection, and
// resubscribes every account. On failure the next read error retries.
func (c *WSClientImpl) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.connect(ctx); err != nil {
		return
	}

	c.resubscribeAll()
}

// resubscribeAll re-issues accountSubscribe for every registered account
// after a reconnect, remapping the server subscription ids onto the
// existing delivery channels.
func (c *WSClientImpl) resubscribeAll() {
	c.subsMu.RLock()
	current := make(map[int64]accountSub, len(c.subs))
	for id, sub := range c.subs {
		current[id] = sub
	}
	c.subsMu.RUnlock()

	for oldID, sub := range current {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		newID, err := c.subscribeAccountRequest(ctx, sub.pubkey)
		cancel()
		if err != nil {
			// Keep the old mapping; the next reconnect retries.
			continue
		}

		c.subsMu.Lock()
		delete(c.subs, oldID)
		c.subs[newID] = sub
		c.subsMu.Unlock()
	}
}

func (c *WSClientImpl) handleMessage(raw []byte) {
	var msg wsMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}

	// Subscription confirmations carry the request id.
	if msg.ID != 0 && msg.Result != nil {
		var subID int64
		if err := json.Unmarshal(msg.Result, &subID); err == nil {
			c.pendingMu.Lock()
			if wait, ok := c.pending[msg.ID]; ok {
				wait <- subID
				delete(c.pending, msg.ID)
			}
			c.pendingMu.Unlock()
		}
		return
	}

	if msg.Method != "accountNotification" || msg.Params == nil {
		return
	}

	c.subsMu.RLock()
	sub, ok := c.subs[msg.Params.Subscription]
	c.subsMu.RUnlock()
	if !ok {
		return
	}

	var data []byte
	if fields := msg.Params.Result.Value.Data; len(fields) > 0 {
		data, _ = base64.StdEncoding.DecodeString(fields[0])
	}

	// Drop on a full channel rather than stall the reader.
	select {
	case sub.ch <- AccountNotification{
		Pubkey: sub.pubkey,
		Slot:   msg.Params.Result.Context.Slot,
		Data:   data,
	}:
	default:
	}
}

func (c *WSClientImpl) pingLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}
