// Package mqttbus implements the bus transport over MQTT. Rooms synchronize
// through any MQTT broker reachable by every participant; publishes use
// QoS 0 to keep the fire-and-forget contract of the adapter.
package mqttbus

import (
	"fmt"
	"sync/atomic"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mauro7x/maze-runner/internal/bus"
)

// Config selects the broker and identifies this client on it.
type Config struct {
	BrokerURL string
	ClientID  string
}

type conn struct {
	client  mqtt.Client
	adapter *bus.Adapter
}

// Dial connects to the broker and wires inbound messages and lifecycle
// transitions into the adapter. A connection failure surfaces here; later
// disconnects surface as lifecycle events only.
func Dial(cfg Config, a *bus.Adapter) (bus.Conn, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "maze-runner-" + uuid.NewString()
	}

	// The reconnecting handler fires when an attempt starts, not when it
	// succeeds; success is the connect handler firing again.
	var connectedOnce atomic.Bool
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetOnConnectHandler(func(mqtt.Client) {
			if connectedOnce.Swap(true) {
				a.Emit(bus.Reconnected, nil)
				return
			}
			a.Emit(bus.Connected, nil)
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			a.Emit(bus.Offline, err)
		}).
		SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
			log.Info().Str("module", "mqttbus").Str("broker", cfg.BrokerURL).Msg("reconnecting to broker")
		}).
		SetDefaultPublishHandler(func(_ mqtt.Client, m mqtt.Message) {
			a.Dispatch(m.Topic(), m.Payload())
		})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to broker %s: %w", cfg.BrokerURL, token.Error())
	}

	c := &conn{client: client, adapter: a}
	a.Attach(c)
	return c, nil
}

func (c *conn) Publish(topic string, payload []byte) error {
	// QoS 0, not retained, delivery not awaited.
	c.client.Publish(topic, 0, false, payload)
	return nil
}

func (c *conn) Subscribe(topics ...string) error {
	filters := make(map[string]byte, len(topics))
	for _, t := range topics {
		filters[t] = 0
	}
	c.client.SubscribeMultiple(filters, func(_ mqtt.Client, m mqtt.Message) {
		c.adapter.Dispatch(m.Topic(), m.Payload())
	})
	return nil
}

func (c *conn) Unsubscribe(topic string) error {
	c.client.Unsubscribe(topic)
	return nil
}

func (c *conn) Close() error {
	c.client.Disconnect(250)
	c.adapter.Emit(bus.Closed, nil)
	return nil
}
