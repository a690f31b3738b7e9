package utility

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRealIP(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", GetRealIP(e.NewContext(req, httptest.NewRecorder())))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", GetRealIP(e.NewContext(req, httptest.NewRecorder())))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "192.0.2.1", GetRealIP(e.NewContext(req, httptest.NewRecorder())))
}

func TestParseIntParam(t *testing.T) {
	assert.Equal(t, 5, ParseIntParam("5", 1))
	assert.Equal(t, 1, ParseIntParam("", 1))
	assert.Equal(t, 10, ParseIntParam("-3", 10))
	assert.Equal(t, 10, ParseIntParam("abc", 10))
}

func TestRandomJitterBounds(t *testing.T) {
	assert.Zero(t, RandomJitter(0))
	assert.Zero(t, RandomJitter(-time.Second))
	for i := 0; i < 100; i++ {
		d := RandomJitter(10 * time.Millisecond)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.Less(t, d, 10*time.Millisecond)
	}
}

func TestRandomDelayHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RandomDelay(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)

	assert.NoError(t, RandomDelay(context.Background(), 0))
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register("plan-1", conn)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer client.Close()

	require.Eventually(t, func() bool { return hub.Count("plan-1") == 1 }, time.Second, 10*time.Millisecond)

	hub.Broadcast("plan-1", map[string]string{"type": "done"})

	var msg map[string]string
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, client.ReadJSON(&msg))
	assert.Equal(t, "done", msg["type"])

	// Broadcasting to an unknown plan is a no-op.
	hub.Broadcast("other", map[string]string{"type": "done"})
}

func TestHubDropsStalledClient(t *testing.T) {
	hub := NewHubWithWriteWait(50 * time.Millisecond)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register("slow", conn)
	}))
	defer srv.Close()

	// The client never reads, so the socket buffers fill up.
	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer client.Close()
	require.Eventually(t, func() bool { return hub.Count("slow") == 1 }, time.Second, 10*time.Millisecond)

	payload := strings.Repeat("x", 2<<20)
	require.Eventually(t, func() bool {
		hub.Broadcast("slow", map[string]string{"image": payload})
		return hub.Count("slow") == 0
	}, 10*time.Second, time.Millisecond)

	// The hub is still usable for other plans.
	assert.Zero(t, hub.Count("other"))
}

func TestHubSendReachesOnlyOneClient(t *testing.T) {
	hub := NewHub()
	conns := make(chan *websocket.Conn, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register("plan-1", conn)
		conns <- conn
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	first, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer first.Close()
	firstServer := <-conns

	second, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer second.Close()
	<-conns

	require.NoError(t, hub.Send("plan-1", firstServer, map[string]string{"type": "done"}))

	var msg map[string]string
	require.NoError(t, first.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, first.ReadJSON(&msg))
	assert.Equal(t, "done", msg["type"])

	require.NoError(t, second.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	assert.Error(t, second.ReadJSON(&msg))
	assert.Equal(t, 2, hub.Count("plan-1"))
}
