package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQConfig configures the RabbitMQ-backed Bus implementation, an
// alternate deployment mode to Kafka for environments without a Kafka
// cluster. Grounded on pkg/messaging/rabbitmq's channel/consumer/publisher
// trio, generalized behind the same bus.Bus contract as the Kafka
// adapter so the engine is bus-agnostic.
type RabbitMQConfig struct {
	URL        string
	Queue      string
	Exchange   string
	RoutingKey string
	Prefetch   int
}

type rabbitMQBus struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	queue    string
	exchange string
	deliveries <-chan amqp.Delivery

	pendingMu sync.Mutex
	pending   map[uint64]amqp.Delivery
}

// NewRabbitMQ dials amqp and opens a single channel shared by the
// consumer and publisher sides, matching the teacher's one-channel-per-
// consumer convention in pkg/messaging/rabbitmq/consumer.go.
func NewRabbitMQ(cfg RabbitMQConfig) (Bus, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("bus: dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("bus: open channel: %w", err)
	}

	prefetch := cfg.Prefetch
	if prefetch == 0 {
		prefetch = 10
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("bus: set qos: %w", err)
	}

	deliveries, err := ch.Consume(cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("bus: consume: %w", err)
	}

	return &rabbitMQBus{
		conn:       conn,
		channel:    ch,
		queue:      cfg.Queue,
		exchange:   cfg.Exchange,
		deliveries: deliveries,
		pending:    make(map[uint64]amqp.Delivery),
	}, nil
}

// FetchBatch drains up to maxRecords deliveries already buffered on the
// channel, blocking for the first one.
func (b *rabbitMQBus) FetchBatch(ctx context.Context, maxRecords int) ([]Record, error) {
	var records []Record

	select {
	case d, ok := <-b.deliveries:
		if !ok {
			return nil, fmt.Errorf("bus: delivery channel closed")
		}
		records = append(records, b.toRecord(d))
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	for len(records) < maxRecords {
		select {
		case d, ok := <-b.deliveries:
			if !ok {
				return records, nil
			}
			records = append(records, b.toRecord(d))
		case <-time.After(20 * time.Millisecond):
			return records, nil
		}
	}
	return records, nil
}

// toRecord is called from the fetch-goroutine path (FetchBatch); pendingMu
// guards b.pending since Commit deletes from the same map from the
// commit-worker goroutine.
func (b *rabbitMQBus) toRecord(d amqp.Delivery) Record {
	headers := make(map[string]string, len(d.Headers))
	for k, v := range d.Headers {
		if s, ok := v.(string); ok {
			headers[k] = s
		}
	}
	b.pendingMu.Lock()
	b.pending[d.DeliveryTag] = d
	b.pendingMu.Unlock()
	return Record{
		Topic:     d.RoutingKey,
		Partition: 0,
		Offset:    int64(d.DeliveryTag),
		Key:       []byte(d.RoutingKey),
		Value:     d.Body,
		Headers:   headers,
		Time:      d.Timestamp,
	}
}

// Commit acknowledges the deliveries backing the given records. RabbitMQ
// has no offset concept; "commit" here means Ack, matching the spec's
// requirement that a record is never acknowledged until a terminal
// outcome is reached.
func (b *rabbitMQBus) Commit(_ context.Context, records []Record) error {
	for _, r := range records {
		tag := uint64(r.Offset)
		b.pendingMu.Lock()
		d, ok := b.pending[tag]
		if ok {
			delete(b.pending, tag)
		}
		b.pendingMu.Unlock()
		if !ok {
			continue
		}
		if err := d.Ack(false); err != nil {
			return fmt.Errorf("bus: ack: %w", err)
		}
	}
	return nil
}

func (b *rabbitMQBus) Publish(ctx context.Context, topic string, key string, headers map[string]string, body []byte) error {
	table := amqp.Table{"x-topic": topic}
	for k, v := range headers {
		table[k] = v
	}
	return b.channel.PublishWithContext(ctx, b.exchange, key, false, false, amqp.Publishing{
		Body:    body,
		Headers: table,
	})
}

func (b *rabbitMQBus) Close() error {
	if err := b.channel.Close(); err != nil {
		b.conn.Close()
		return err
	}
	return b.conn.Close()
}
