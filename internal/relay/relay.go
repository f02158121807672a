// Package relay is a minimal WebSocket message bus for deployments that have
// no MQTT broker at hand: clients publish and subscribe with JSON frames and
// the hub fans published payloads out to exact-topic subscribers.
package relay

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Frame ops.
const (
	OpPublish     = "pub"
	OpSubscribe   = "sub"
	OpUnsubscribe = "unsub"
	OpMessage     = "msg"
)

// Frame is the wire unit between a bus client and the hub. Payload carries
// the transport-safe text encoding produced by the publisher.
type Frame struct {
	Op      string   `json:"op"`
	Topic   string   `json:"topic,omitempty"`
	Topics  []string `json:"topics,omitempty"`
	Payload string   `json:"payload,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const sendBuffer = 32

type client struct {
	id   string
	conn *websocket.Conn
	send chan Frame
	once sync.Once
}

func (c *client) trySend(f Frame) bool {
	select {
	case c.send <- f:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
		_ = c.conn.Close()
	})
}

// Hub tracks subscriptions and fans out published frames. A subscriber whose
// send buffer is full loses the frame; the bus promises at-most-once anyway.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*client]struct{})}
}

// HandleBus upgrades the request and serves the client until it disconnects.
func (h *Hub) HandleBus(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("module", "relay").Msg("ws upgrade failed")
		return
	}

	cl := &client{
		id:   uuid.NewString(),
		conn: ws,
		send: make(chan Frame, sendBuffer),
	}
	log.Info().Str("module", "relay").Str("client", cl.id).Msg("client connected")

	go h.writePump(cl)
	h.readPump(cl)
}

func (h *Hub) readPump(cl *client) {
	defer func() {
		h.drop(cl)
		cl.close()
		log.Info().Str("module", "relay").Str("client", cl.id).Msg("client disconnected")
	}()

	for {
		var f Frame
		if err := cl.conn.ReadJSON(&f); err != nil {
			return
		}
		switch f.Op {
		case OpPublish:
			h.publish(f.Topic, f.Payload)
		case OpSubscribe:
			topics := f.Topics
			if f.Topic != "" {
				topics = append(topics, f.Topic)
			}
			h.subscribe(cl, topics...)
		case OpUnsubscribe:
			h.unsubscribe(cl, f.Topic)
		default:
			log.Warn().Str("module", "relay").Str("op", f.Op).Str("client", cl.id).Msg("unknown frame op")
		}
	}
}

func (h *Hub) writePump(cl *client) {
	for f := range cl.send {
		if err := cl.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
			return
		}
		if err := cl.conn.WriteJSON(f); err != nil {
			return
		}
	}
}

func (h *Hub) publish(topic, payload string) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.subs[topic]))
	for cl := range h.subs[topic] {
		targets = append(targets, cl)
	}
	h.mu.RUnlock()

	out := Frame{Op: OpMessage, Topic: topic, Payload: payload}
	for _, cl := range targets {
		if !cl.trySend(out) {
			log.Debug().Str("module", "relay").Str("client", cl.id).Str("topic", topic).Msg("slow subscriber, frame dropped")
		}
	}
}

func (h *Hub) subscribe(cl *client, topics ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, topic := range topics {
		if h.subs[topic] == nil {
			h.subs[topic] = make(map[*client]struct{})
		}
		h.subs[topic][cl] = struct{}{}
	}
}

func (h *Hub) unsubscribe(cl *client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[topic], cl)
}

func (h *Hub) drop(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.subs {
		delete(set, cl)
	}
}
