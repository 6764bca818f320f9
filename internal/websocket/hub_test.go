package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"

	"corechat/pkg/logger"
)

// dialPair spins up a throwaway server and returns the server side of a real
// websocket connection (what the hub holds) plus the client side.
func dialPair(t *testing.T) (*websocket.Conn, *websocket.Conn) {
	t.Helper()

	serverConns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up := websocket.Upgrader{}
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverConns <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	serverConn := <-serverConns
	t.Cleanup(func() {
		_ = clientConn.Close()
		_ = serverConn.Close()
	})
	return serverConn, clientConn
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(logger.New(logger.DevelopmentMode))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func TestRoomIsolation(t *testing.T) {
	hub := startHub(t)

	conn1, _ := dialPair(t)
	conn2, _ := dialPair(t)
	c1 := NewClient(conn1, uuid.New())
	c2 := NewClient(conn2, uuid.New())

	hub.Register(c1)
	hub.Register(c2)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	hub.Join(c1, "channel:a")
	hub.Join(c2, "channel:b")
	assert.Eventually(t, func() bool { return hub.RoomSize("channel:a") == 1 }, time.Second, 10*time.Millisecond)

	hub.Broadcast("channel:a", []byte("hello"))

	select {
	case msg := <-c1.Send:
		assert.Equal(t, "hello", string(msg))
	case <-time.After(time.Second):
		t.Fatal("expected frame for room member")
	}
	assert.Empty(t, c2.Send, "member of another room must not receive the frame")
}

func TestLeaveIsIdempotent(t *testing.T) {
	hub := startHub(t)

	conn, _ := dialPair(t)
	c := NewClient(conn, uuid.New())
	hub.Register(c)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	// Leaving before ever joining must be harmless.
	hub.Leave(c, "channel:a")

	hub.Join(c, "channel:a")
	assert.Eventually(t, func() bool { return hub.RoomSize("channel:a") == 1 }, time.Second, 10*time.Millisecond)

	hub.Leave(c, "channel:a")
	hub.Leave(c, "channel:a")
	assert.Eventually(t, func() bool { return hub.RoomSize("channel:a") == 0 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, hub.ClientCount(), "leaving rooms must not disconnect the client")
}

func TestSlowConsumerDisconnected(t *testing.T) {
	hub := startHub(t)

	conn, _ := dialPair(t)
	c := NewClient(conn, uuid.New())
	hub.Register(c)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Join(c, "channel:a")
	assert.Eventually(t, func() bool { return hub.RoomSize("channel:a") == 1 }, time.Second, 10*time.Millisecond)

	// No write loop draining the queue; fill it to capacity.
	for i := 0; i < sendQueueSize; i++ {
		assert.True(t, c.TrySend([]byte("backlog")))
	}
	assert.False(t, c.TrySend([]byte("overflow")), "queue should be full")

	// The next room broadcast must drop the client entirely.
	hub.Broadcast("channel:a", []byte("one more"))

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return hub.RoomSize("channel:a") == 0 }, time.Second, 10*time.Millisecond)
}

func TestSendAfterUnregisterIsHarmless(t *testing.T) {
	hub := startHub(t)

	conn, _ := dialPair(t)
	c := NewClient(conn, uuid.New())
	hub.Register(c)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Unregister(c)
	assert.Eventually(t, func() bool {
		select {
		case _, open := <-c.Send:
			return !open
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)

	// The read loop can still be answering a frame when the hub drops the
	// client; a late send must be dropped, not panic on the closed queue.
	assert.NotPanics(t, func() {
		assert.True(t, c.TrySend([]byte(`{"event_type":"error"}`)))
	})
}

func TestUnregisterClosesSendQueue(t *testing.T) {
	hub := startHub(t)

	conn, _ := dialPair(t)
	c := NewClient(conn, uuid.New())
	hub.Register(c)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Unregister(c)
	assert.Eventually(t, func() bool {
		select {
		case _, open := <-c.Send:
			return !open
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}
