package relay

import "testing"

func newTestClient(id string, buffer int) *client {
	return &client{id: id, send: make(chan Frame, buffer)}
}

func drain(cl *client) []Frame {
	var frames []Frame
	for {
		select {
		case f := <-cl.send:
			frames = append(frames, f)
		default:
			return frames
		}
	}
}

func TestHubFanOut(t *testing.T) {
	t.Parallel()

	h := NewHub()
	a := newTestClient("a", 4)
	b := newTestClient("b", 4)
	h.subscribe(a, "room_x/position")
	h.subscribe(b, "room_x/position", "room_x/update/scores")

	h.publish("room_x/position", `{"x":0.5}`)
	h.publish("room_x/update/scores", `{"score":50}`)
	h.publish("room_x/keepalive", "ping")

	got := drain(a)
	if len(got) != 1 {
		t.Fatalf("client a received %d frames, want 1", len(got))
	}
	if got[0].Op != OpMessage || got[0].Topic != "room_x/position" || got[0].Payload != `{"x":0.5}` {
		t.Fatalf("unexpected frame for a: %+v", got[0])
	}

	got = drain(b)
	if len(got) != 2 {
		t.Fatalf("client b received %d frames, want 2", len(got))
	}
	if got[1].Topic != "room_x/update/scores" {
		t.Fatalf("unexpected second frame for b: %+v", got[1])
	}
}

func TestHubUnsubscribe(t *testing.T) {
	t.Parallel()

	h := NewHub()
	cl := newTestClient("a", 4)
	h.subscribe(cl, "room_x/position", "room_x/keepalive")
	h.unsubscribe(cl, "room_x/position")

	h.publish("room_x/position", "dropped")
	h.publish("room_x/keepalive", "ping")

	got := drain(cl)
	if len(got) != 1 || got[0].Topic != "room_x/keepalive" {
		t.Fatalf("frames after unsubscribe: %+v", got)
	}
}

func TestHubDropRemovesAllSubscriptions(t *testing.T) {
	t.Parallel()

	h := NewHub()
	cl := newTestClient("a", 4)
	h.subscribe(cl, "room_x/position", "room_x/update/scores")
	h.drop(cl)

	h.publish("room_x/position", "gone")
	h.publish("room_x/update/scores", "gone")

	if got := drain(cl); len(got) != 0 {
		t.Fatalf("dropped client still received %d frames", len(got))
	}
}

func TestHubSlowSubscriberLosesFrames(t *testing.T) {
	t.Parallel()

	h := NewHub()
	cl := newTestClient("a", 1)
	h.subscribe(cl, "room_x/position")

	// The second publish must not block on the full buffer.
	h.publish("room_x/position", "first")
	h.publish("room_x/position", "second")

	got := drain(cl)
	if len(got) != 1 || got[0].Payload != "first" {
		t.Fatalf("frames for slow subscriber: %+v", got)
	}
}
