package solana

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsTestServer struct {
	url        string
	conns      atomic.Int64
	closeFirst chan struct{}
}

// newWSTestServer runs a minimal accountSubscribe endpoint. The first
// connection confirms the subscription and then drops the socket once
// closeFirst is signalled; every later connection confirms and streams
// notifications for its subscription id until the connection dies.
func newWSTestServer(t *testing.T) *wsTestServer {
	t.Helper()
	ts := &wsTestServer{closeFirst: make(chan struct{})}
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		connNum := ts.conns.Add(1)
		subID := connNum * 100

		var req struct {
			ID     uint64 `json:"id"`
			Method string `json:"method"`
		}
		if err := conn.ReadJSON(&req); err != nil || req.Method != "accountSubscribe" {
			return
		}
		conn.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": subID})

		if connNum == 1 {
			readDone := make(chan struct{})
			go func() {
				defer close(readDone)
				for {
					if _, _, err := conn.ReadMessage(); err != nil {
						return
					}
				}
			}()
			select {
			case <-ts.closeFirst:
			case <-readDone:
			}
			return
		}

		notification := map[string]interface{}{
			"jsonrpc": "2.0",
			"method":  "accountNotification",
			"params": map[string]interface{}{
				"subscription": subID,
				"result": map[string]interface{}{
					"context": map[string]interface{}{"slot": 99},
					"value":   map[string]interface{}{"data": []string{"aGVsbG8=", "base64"}},
				},
			},
		}
		for {
			if err := conn.WriteJSON(notification); err != nil {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}))
	t.Cleanup(srv.Close)

	ts.url = "ws" + strings.TrimPrefix(srv.URL, "http")
	return ts
}

func wsTestConfig() *WSClientConfig {
	return &WSClientConfig{
		ReconnectDelay:    time.Millisecond,
		MaxReconnectDelay: 10 * time.Millisecond,
		PingInterval:      time.Minute,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      time.Second,
	}
}

func TestWSClientReconnectsAndResubscribes(t *testing.T) {
	server := newWSTestServer(t)

	client, err := NewWSClient(context.Background(), server.url, wsTestConfig())
	require.NoError(t, err)
	defer client.Close()

	ch, err := client.SubscribeAccount(context.Background(), "PoolPubkey")
	require.NoError(t, err)

	// Drop the first connection; the client must reconnect and resubscribe
	// without the caller doing anything.
	close(server.closeFirst)

	select {
	case notif, ok := <-ch:
		require.True(t, ok, "channel closed instead of delivering")
		assert.Equal(t, "PoolPubkey", notif.Pubkey)
		assert.Equal(t, int64(99), notif.Slot)
		assert.Equal(t, []byte("hello"), notif.Data)
	case <-time.After(5 * time.Second):
		t.Fatal("no notification after reconnect")
	}

	assert.GreaterOrEqual(t, server.conns.Load(), int64(2), "expected a second connection")
}

func TestWSClientCloseClosesChannels(t *testing.T) {
	server := newWSTestServer(t)

	client, err := NewWSClient(context.Background(), server.url, wsTestConfig())
	require.NoError(t, err)

	ch, err := client.SubscribeAccount(context.Background(), "PoolPubkey")
	require.NoError(t, err)

	require.NoError(t, client.Close())

	for {
		if _, ok := <-ch; !ok {
			return
		}
	}
}
