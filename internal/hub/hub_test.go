package hub_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ericfisherdev/promptvault/internal/hub"
)

func startTestHub(t *testing.T, h *hub.Hub) string {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestBroadcastReachesAllClients(t *testing.T) {
	h := hub.New(nil)
	url := startTestHub(t, h)

	first := dial(t, url)
	second := dial(t, url)

	// Registration races the broadcast; give the hub a beat.
	time.Sleep(50 * time.Millisecond)

	h.Broadcast(map[string]string{"type": "PING"})

	for _, conn := range []*websocket.Conn{first, second} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

		var msg map[string]string
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, "PING", msg["type"])
	}
}

func TestHandlerReplyGoesToSender(t *testing.T) {
	handler := func(_ context.Context, data []byte) ([]byte, error) {
		var msg map[string]string
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, err
		}
		return json.Marshal(map[string]string{"type": "ECHO", "got": msg["type"]})
	}

	h := hub.New(handler)
	url := startTestHub(t, h)
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "HELLO"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var reply map[string]string
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "ECHO", reply["type"])
	assert.Equal(t, "HELLO", reply["got"])
}

func TestClientGoroutinesExitAfterHubStops(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	h := hub.New(nil)

	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	server := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	// Let the registration land before stopping the registry.
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-stopped

	// The read error now fires with no Run loop left to receive the
	// unregister; the pump must still exit.
	require.NoError(t, conn.Close())
	server.Close()

	// Broadcasting into a stopped hub must not block either.
	h.Broadcast(map[string]string{"type": "PING"})
}

func TestHandlerErrorDoesNotDisconnectClient(t *testing.T) {
	handler := func(_ context.Context, data []byte) ([]byte, error) {
		var msg map[string]string
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, err
		}
		return json.Marshal(map[string]string{"type": "OK"})
	}

	h := hub.New(handler)
	url := startTestHub(t, h)
	conn := dial(t, url)

	// Invalid JSON makes the handler fail; the connection must survive.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "HELLO"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var reply map[string]string
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "OK", reply["type"])
}
