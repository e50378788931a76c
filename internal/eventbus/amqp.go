// Package eventbus provides optional, best-effort sinks for the lifecycle
// events published by the agent's lifecycle driver (started/stopped/
// crashed). Both sinks are adapted from the teacher's messaging helpers;
// neither is required — a nil heartbeat.EventBus is a valid no-op bus.
package eventbus

import (
	"encoding/json"
	"sync"

	heartbeat "github.com/xtreemfs/heartbeat-agent"
	"github.com/xtreemfs/heartbeat-agent/internal/hblog"

	amqp "github.com/streadway/amqp"
)

// AMQP exchange kinds, carried over from the teacher's rabbitMQ.go.
const (
	KindFanout = "fanout"
	KindDirect = "direct"
	KindTopic  = "topic"
	KindHeader = "header"
)

// AMQPBus publishes lifecycle events to a fanout exchange, adapted from the
// teacher's RabbitMQ wrapper (rabbitMQ.go) trimmed to the single
// publish-only path this module needs.
type AMQPBus struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	log      *hblog.Logger
}

// NewAMQPBus dials url and declares a fanout exchange named exchange.
func NewAMQPBus(url, exchange string, log *hblog.Logger) (*AMQPBus, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, KindFanout, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &AMQPBus{conn: conn, channel: ch, exchange: exchange, log: log}, nil
}

// Publish implements heartbeat.EventBus. Failures are logged and swallowed:
// lifecycle event publication is observability, not a correctness
// requirement of the heartbeat itself.
func (b *AMQPBus) Publish(event heartbeat.LifecycleEvent) {
	body, err := json.Marshal(event)
	if err != nil {
		b.log.Warn("failed to marshal lifecycle event", hblog.Fields{"error": err})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	err = b.channel.Publish(b.exchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		b.log.Warn("failed to publish lifecycle event to amqp", hblog.Fields{"error": err})
	}
}

func (b *AMQPBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	chErr := b.channel.Close()
	connErr := b.conn.Close()
	if chErr != nil {
		return chErr
	}
	return connErr
}
