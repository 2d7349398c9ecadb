package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gwillem/smootharm/pkg/motion"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func dial(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("frame %s: %v", data, err)
	}
	return m
}

func TestHub_BroadcastsEvents(t *testing.T) {
	hub := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	conn := dial(t, hub)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	obs := hub.Observer(1)
	obs(motion.Event{Kind: motion.EventTick, Run: "r1", Phase: "base out", Tick: 3, Ticks: 300})
	obs(motion.Event{Kind: motion.EventWriteError, Run: "r1", Err: errors.New("bus nack")})

	f := readFrame(t, conn)
	if f["kind"] != "tick" || f["phase"] != "base out" || f["tick"] != float64(3) {
		t.Errorf("first frame = %v", f)
	}
	if _, ok := f["error"]; ok {
		t.Errorf("tick frame carries an error: %v", f)
	}
	if angles, ok := f["angles"].([]any); !ok || len(angles) != 4 {
		t.Errorf("angles = %v, want 4 values", f["angles"])
	}

	f = readFrame(t, conn)
	if f["kind"] != "write_error" || f["error"] != "bus nack" {
		t.Errorf("second frame = %v", f)
	}
}

func TestHub_ObserverSkipsTicks(t *testing.T) {
	hub := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	conn := dial(t, hub)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	obs := hub.Observer(10)
	for i := 0; i <= 25; i++ {
		obs(motion.Event{Kind: motion.EventTick, Tick: i, Ticks: 25})
	}

	var got []float64
	for _, want := range []float64{0, 10, 20, 25} {
		f := readFrame(t, conn)
		got = append(got, f["tick"].(float64))
		if f["tick"] != want {
			t.Errorf("ticks sent = %v, want 0 10 20 25", got)
			break
		}
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	conn := dial(t, hub)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	conn.Close()
	waitFor(t, func() bool { return hub.ClientCount() == 0 })
}

func TestHub_StopClosesClients(t *testing.T) {
	hub := New()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	conn := dial(t, hub)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	cancel()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if err == nil {
		t.Error("ReadMessage after stop succeeded, want a closed connection")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d after stop, want 0", hub.ClientCount())
	}
}
