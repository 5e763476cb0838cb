package notify

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/evocart/pkg/logging"
)

func TestHub_BroadcastAndDisconnect(t *testing.T) {
	t.Parallel()

	hub := NewHub(logging.Discard(), nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 10*time.Millisecond)

	hub.Broadcast([]byte(`{"type":"order_paid","orderID":7}`))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	typ, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, typ)
	assert.JSONEq(t, `{"type":"order_paid","orderID":7}`, string(msg))

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	t.Parallel()

	hub := NewHub(logging.Discard(), nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 10*time.Millisecond)

	hub.Close()
	assert.Zero(t, hub.Count())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestHub_BroadcastDoesNotWaitOnSlowClients(t *testing.T) {
	t.Parallel()

	hub := NewHub(logging.Discard(), nil)
	stuck := &client{send: make(chan []byte, 1)}
	hub.add(stuck)

	done := make(chan struct{})
	go func() {
		for range sendQueue + 3 {
			hub.Broadcast([]byte(`{"type":"order_created"}`))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a client that never drains")
	}
	assert.Zero(t, hub.Count())

	_, open := <-stuck.send
	assert.True(t, open, "queued payload is still readable")
	_, open = <-stuck.send
	assert.False(t, open, "queue is closed once the client is dropped")
}
