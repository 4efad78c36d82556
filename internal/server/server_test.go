package server

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"nhooyr.io/websocket"
)

func TestShutdownReleasesStreams(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	broker := NewBroker()
	srv := New(ln.Addr().String(), slog.Default(), Deps{Store: &fakeStore{}, Broker: broker})
	served := make(chan error, 1)
	go func() { served <- srv.serve(ln) }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+ln.Addr().String()+"/api/results/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("sse get: %v", err)
	}
	defer resp.Body.Close()

	conn, _, err := websocket.Dial(ctx, "ws://"+ln.Addr().String()+"/ws/results", nil)
	if err != nil {
		t.Fatalf("ws dial: %v", err)
	}
	defer conn.CloseNow()

	deadline := time.Now().Add(2 * time.Second)
	for broker.subscribers() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers = %d, want 2", broker.subscribers())
		}
		time.Sleep(5 * time.Millisecond)
	}

	start := time.Now()
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if took := time.Since(start); took > 3*time.Second {
		t.Errorf("shutdown took %v, streams held it open", took)
	}
	if err := <-served; err != nil {
		t.Errorf("serve: %v", err)
	}

	_, _ = io.Copy(io.Discard, resp.Body)

	// Hijacked WebSocket connections are not tracked by Shutdown.
	deadline = time.Now().Add(2 * time.Second)
	for broker.subscribers() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers after shutdown = %d, want 0", broker.subscribers())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
