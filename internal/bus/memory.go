package bus

import (
	"errors"
	"sync"
)

var ErrConnClosed = errors.New("bus connection closed")

// Broker is an in-process message bus with exact-topic matching. Delivery is
// synchronous, which makes single-process rooms and tests deterministic.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[*memConn]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[*memConn]struct{})}
}

// Connect attaches an adapter to the broker and reports Connected to it.
func (b *Broker) Connect(a *Adapter) Conn {
	c := &memConn{broker: b, adapter: a}
	a.Attach(c)
	a.Emit(Connected, nil)
	return c
}

func (b *Broker) publish(topic string, payload []byte) {
	b.mu.RLock()
	targets := make([]*memConn, 0, len(b.subs[topic]))
	for c := range b.subs[topic] {
		targets = append(targets, c)
	}
	b.mu.RUnlock()

	// Dispatch outside the broker lock: handlers may subscribe or
	// unsubscribe while running.
	for _, c := range targets {
		c.adapter.Dispatch(topic, payload)
	}
}

func (b *Broker) subscribe(c *memConn, topics ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, topic := range topics {
		if b.subs[topic] == nil {
			b.subs[topic] = make(map[*memConn]struct{})
		}
		b.subs[topic][c] = struct{}{}
	}
}

func (b *Broker) unsubscribe(c *memConn, topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs[topic], c)
}

func (b *Broker) drop(c *memConn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, set := range b.subs {
		delete(set, c)
	}
}

type memConn struct {
	broker  *Broker
	adapter *Adapter
	mu      sync.Mutex
	closed  bool
}

func (c *memConn) Publish(topic string, payload []byte) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrConnClosed
	}
	c.broker.publish(topic, payload)
	return nil
}

func (c *memConn) Subscribe(topics ...string) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrConnClosed
	}
	c.broker.subscribe(c, topics...)
	return nil
}

func (c *memConn) Unsubscribe(topic string) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrConnClosed
	}
	c.broker.unsubscribe(c, topic)
	return nil
}

func (c *memConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.broker.drop(c)
	c.adapter.Emit(Closed, nil)
	return nil
}
