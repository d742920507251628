package ws

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(silentLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	ts := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(ts.Close)
	return hub, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestBroadcastDeliversToConnectedClient(t *testing.T) {
	hub, ts := newTestHub(t)
	conn := dial(t, ts)

	// give the hub's register loop a moment to process the new connection.
	time.Sleep(20 * time.Millisecond)

	hub.Broadcast([]byte("hello"))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if string(msg) != "hello" {
		t.Errorf("message = %q, want hello", msg)
	}
}

func TestBroadcastReachesMultipleClients(t *testing.T) {
	hub, ts := newTestHub(t)
	conn1 := dial(t, ts)
	conn2 := dial(t, ts)
	time.Sleep(20 * time.Millisecond)

	hub.Broadcast([]byte("fanout"))

	for _, c := range []*websocket.Conn{conn1, conn2} {
		c.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := c.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage: %v", err)
		}
		if string(msg) != "fanout" {
			t.Errorf("message = %q, want fanout", msg)
		}
	}
}

func TestClientCountTracksConnectAndDisconnect(t *testing.T) {
	hub, ts := newTestHub(t)
	conn := dial(t, ts)
	time.Sleep(20 * time.Millisecond)

	if hub.clientCount() != 1 {
		t.Fatalf("clientCount = %d, want 1 after connecting", hub.clientCount())
	}

	conn.Close()
	time.Sleep(50 * time.Millisecond)

	if hub.clientCount() != 0 {
		t.Errorf("clientCount = %d, want 0 after disconnecting", hub.clientCount())
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	hub := NewHub(silentLogger())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- hub.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
