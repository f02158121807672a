// Package wsbus implements the bus transport over the WebSocket relay
// protocol served by cmd/maze-relay.
package wsbus

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/mauro7x/maze-runner/internal/bus"
	"github.com/mauro7x/maze-runner/internal/relay"
)

const sendBuffer = 32

type conn struct {
	ws      *websocket.Conn
	adapter *bus.Adapter
	send    chan relay.Frame
	once    sync.Once
	mu      sync.Mutex
	closed  bool
}

// Dial connects to a relay endpoint, e.g. "ws://localhost:9000/bus", and
// wires inbound frames into the adapter.
func Dial(endpoint string, a *bus.Adapter) (bus.Conn, error) {
	ws, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing relay %s: %w", endpoint, err)
	}

	c := &conn{
		ws:      ws,
		adapter: a,
		send:    make(chan relay.Frame, sendBuffer),
	}
	a.Attach(c)
	go c.writePump()
	go c.readLoop()
	a.Emit(bus.Connected, nil)
	return c, nil
}

func (c *conn) readLoop() {
	for {
		var f relay.Frame
		if err := c.ws.ReadJSON(&f); err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				c.adapter.Emit(bus.Error, err)
				_ = c.Close()
			}
			return
		}
		if f.Op != relay.OpMessage {
			continue
		}
		c.adapter.Dispatch(f.Topic, []byte(f.Payload))
	}
}

func (c *conn) writePump() {
	for f := range c.send {
		if err := c.ws.WriteJSON(f); err != nil {
			return
		}
	}
}

func (c *conn) enqueue(f relay.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return bus.ErrConnClosed
	}
	select {
	case c.send <- f:
		return nil
	default:
		// Fire-and-forget: a saturated pipe drops the frame.
		return nil
	}
}

func (c *conn) Publish(topic string, payload []byte) error {
	return c.enqueue(relay.Frame{Op: relay.OpPublish, Topic: topic, Payload: string(payload)})
}

func (c *conn) Subscribe(topics ...string) error {
	return c.enqueue(relay.Frame{Op: relay.OpSubscribe, Topics: topics})
}

func (c *conn) Unsubscribe(topic string) error {
	return c.enqueue(relay.Frame{Op: relay.OpUnsubscribe, Topic: topic})
}

func (c *conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.once.Do(func() {
		close(c.send)
		_ = c.ws.Close()
	})
	c.adapter.Emit(bus.Closed, nil)
	return nil
}
