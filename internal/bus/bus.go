// Package bus wraps a publish/subscribe connection behind a small adapter:
// publish, subscribe, and a single inbound dispatch point routing messages
// to per-topic handlers registered by the owning component.
package bus

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

var ErrNotAttached = errors.New("bus adapter has no transport attached")

// Handler consumes the decoded-from-transport payload of one topic.
type Handler func(payload []byte)

// Event is a one-shot connection lifecycle notification.
type Event int

const (
	Connected Event = iota
	Closed
	Offline
	Reconnected
	Error
)

func (e Event) String() string {
	switch e {
	case Connected:
		return "connected"
	case Closed:
		return "closed"
	case Offline:
		return "offline"
	case Reconnected:
		return "reconnected"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Conn is the transport contract: fire-and-forget publish, asynchronous
// subscription effects, no delivery acknowledgments surfaced to callers.
type Conn interface {
	Publish(topic string, payload []byte) error
	Subscribe(topics ...string) error
	Unsubscribe(topic string) error
	Close() error
}

// Adapter owns the per-topic handler table and the lifecycle callback for
// one client. Transports deliver inbound messages through Dispatch and
// lifecycle transitions through Emit.
type Adapter struct {
	mu          sync.RWMutex
	conn        Conn
	handlers    map[string]Handler
	onLifecycle func(Event, error)
}

func NewAdapter() *Adapter {
	return &Adapter{handlers: make(map[string]Handler)}
}

// Attach binds the transport. Must happen before any Publish or Subscribe.
func (a *Adapter) Attach(conn Conn) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.conn = conn
}

// Bind registers the handler for a topic, replacing any previous one.
func (a *Adapter) Bind(topic string, h Handler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handlers[topic] = h
}

// Unbind drops the handler for a topic.
func (a *Adapter) Unbind(topic string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.handlers, topic)
}

// OnLifecycle registers the owner's lifecycle callback.
func (a *Adapter) OnLifecycle(fn func(Event, error)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onLifecycle = fn
}

// Dispatch routes one inbound message to its handler. Messages for topics
// without a handler are logged and dropped: no retry, no dead-letter queue.
func (a *Adapter) Dispatch(topic string, payload []byte) {
	a.mu.RLock()
	h, ok := a.handlers[topic]
	a.mu.RUnlock()
	if !ok {
		log.Warn().Str("module", "bus").Str("topic", topic).Msg("missing handler for message")
		return
	}
	h(payload)
}

// Emit surfaces a lifecycle event to the owner, if it registered for them.
func (a *Adapter) Emit(e Event, err error) {
	a.mu.RLock()
	fn := a.onLifecycle
	a.mu.RUnlock()
	if fn != nil {
		fn(e, err)
	}
}

func (a *Adapter) transport() (Conn, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.conn == nil {
		return nil, ErrNotAttached
	}
	return a.conn, nil
}

// Publish sends a payload to a topic. Fire-and-forget: callers never await
// delivery.
func (a *Adapter) Publish(topic string, payload []byte) error {
	conn, err := a.transport()
	if err != nil {
		return err
	}
	return conn.Publish(topic, payload)
}

// Subscribe registers interest in one or more topics.
func (a *Adapter) Subscribe(topics ...string) error {
	conn, err := a.transport()
	if err != nil {
		return err
	}
	return conn.Subscribe(topics...)
}

// Unsubscribe deregisters interest in a topic. The effect is asynchronous:
// messages already in flight may still be dispatched afterwards.
func (a *Adapter) Unsubscribe(topic string) error {
	conn, err := a.transport()
	if err != nil {
		return err
	}
	return conn.Unsubscribe(topic)
}

// Close tears the transport down. Best effort.
func (a *Adapter) Close() error {
	conn, err := a.transport()
	if err != nil {
		return err
	}
	return conn.Close()
}
