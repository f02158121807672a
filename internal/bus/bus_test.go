package bus

import (
	"testing"
)

func TestDispatchRoutesToBoundHandler(t *testing.T) {
	t.Parallel()

	a := NewAdapter()
	var got []byte
	a.Bind("room_x/position", func(payload []byte) { got = payload })

	a.Dispatch("room_x/position", []byte(`{"x":1}`))
	if string(got) != `{"x":1}` {
		t.Fatalf("handler got %q", got)
	}
}

func TestDispatchDropsUnboundTopic(t *testing.T) {
	t.Parallel()

	a := NewAdapter()
	called := false
	a.Bind("bound", func([]byte) { called = true })

	// Must not panic, must not reach the other handler.
	a.Dispatch("unbound", []byte("x"))
	if called {
		t.Fatal("unbound topic reached a handler")
	}
}

func TestUnbindStopsDelivery(t *testing.T) {
	t.Parallel()

	a := NewAdapter()
	calls := 0
	a.Bind("t", func([]byte) { calls++ })
	a.Dispatch("t", nil)
	a.Unbind("t")
	a.Dispatch("t", nil)

	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestAdapterWithoutTransport(t *testing.T) {
	t.Parallel()

	a := NewAdapter()
	if err := a.Publish("t", nil); err != ErrNotAttached {
		t.Fatalf("Publish without transport: err = %v, want ErrNotAttached", err)
	}
	if err := a.Subscribe("t"); err != ErrNotAttached {
		t.Fatalf("Subscribe without transport: err = %v, want ErrNotAttached", err)
	}
}

func TestBrokerDeliversToSubscribers(t *testing.T) {
	t.Parallel()

	broker := NewBroker()

	sub := NewAdapter()
	var got string
	sub.Bind("room_r/position", func(payload []byte) { got = string(payload) })
	broker.Connect(sub)
	if err := sub.Subscribe("room_r/position"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	pub := NewAdapter()
	broker.Connect(pub)
	if err := pub.Publish("room_r/position", []byte("hello")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if got != "hello" {
		t.Fatalf("subscriber got %q, want %q", got, "hello")
	}
}

func TestBrokerUnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()

	broker := NewBroker()

	sub := NewAdapter()
	calls := 0
	sub.Bind("t", func([]byte) { calls++ })
	broker.Connect(sub)
	_ = sub.Subscribe("t")

	pub := NewAdapter()
	broker.Connect(pub)
	_ = pub.Publish("t", nil)
	_ = sub.Unsubscribe("t")
	_ = pub.Publish("t", nil)

	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestBrokerLifecycleEvents(t *testing.T) {
	t.Parallel()

	broker := NewBroker()
	a := NewAdapter()
	var events []Event
	a.OnLifecycle(func(e Event, _ error) { events = append(events, e) })

	broker.Connect(a)
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := a.Publish("t", nil); err != ErrConnClosed {
		t.Fatalf("Publish after close: err = %v, want ErrConnClosed", err)
	}

	if len(events) != 2 || events[0] != Connected || events[1] != Closed {
		t.Fatalf("events = %v, want [connected closed]", events)
	}
}
