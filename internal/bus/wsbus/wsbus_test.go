package wsbus_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mauro7x/maze-runner/internal/bus"
	"github.com/mauro7x/maze-runner/internal/bus/wsbus"
	"github.com/mauro7x/maze-runner/internal/relay"
)

func startRelay(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	hub := relay.NewHub()
	r.GET("/bus", hub.HandleBus)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/bus"
}

func TestDialRoundTrip(t *testing.T) {
	endpoint := startRelay(t)

	recv := make(chan []byte, 8)
	sub := bus.NewAdapter()
	sub.Bind("room_e2e/position", func(payload []byte) { recv <- payload })
	subConn, err := wsbus.Dial(endpoint, sub)
	if err != nil {
		t.Fatalf("dialing subscriber: %v", err)
	}
	defer subConn.Close()
	if err := sub.Subscribe("room_e2e/position"); err != nil {
		t.Fatalf("subscribing: %v", err)
	}

	pub := bus.NewAdapter()
	pubConn, err := wsbus.Dial(endpoint, pub)
	if err != nil {
		t.Fatalf("dialing publisher: %v", err)
	}
	defer pubConn.Close()

	// The subscription takes effect asynchronously, so publish until the
	// message comes back or the deadline expires.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case payload := <-recv:
			if string(payload) != `{"x":0.5,"y":0.25}` {
				t.Fatalf("round-tripped payload = %q", payload)
			}
			return
		case <-deadline:
			t.Fatal("no message delivered before deadline")
		case <-tick.C:
			if err := pub.Publish("room_e2e/position", []byte(`{"x":0.5,"y":0.25}`)); err != nil {
				t.Fatalf("publishing: %v", err)
			}
		}
	}
}

func TestCloseEmitsLifecycle(t *testing.T) {
	endpoint := startRelay(t)

	events := make(chan bus.Event, 8)
	a := bus.NewAdapter()
	a.OnLifecycle(func(e bus.Event, err error) { events <- e })
	conn, err := wsbus.Dial(endpoint, a)
	if err != nil {
		t.Fatalf("dialing: %v", err)
	}

	select {
	case e := <-events:
		if e != bus.Connected {
			t.Fatalf("first lifecycle event = %v, want connected", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no connected event")
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("closing: %v", err)
	}
	select {
	case e := <-events:
		if e != bus.Closed {
			t.Fatalf("lifecycle event after close = %v, want closed", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no closed event")
	}

	if err := a.Publish("room_e2e/position", []byte("late")); err == nil {
		t.Fatal("publish after close should fail")
	}
}
