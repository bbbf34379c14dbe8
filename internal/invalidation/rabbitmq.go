package invalidation

import (
	"context"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/commerce-platform/cache-coordinator/internal/cache"
)

// RabbitMQBroker implements the Broker interface using RabbitMQ with a fanout
// exchange, so every coordinator instance receives every invalidation event.
type RabbitMQBroker struct {
	mu          sync.RWMutex
	conn        *amqp.Connection
	channel     *amqp.Channel
	url         string
	logger      *zap.Logger
	healthy     bool
	closed      bool
	notifyClose chan *amqp.Error

	// dial re-establishes the connection and notify registration.
	dial func() error
}

// NewRabbitMQBroker creates a new RabbitMQ broker with auto-reconnect.
func NewRabbitMQBroker(url string, logger *zap.Logger) (*RabbitMQBroker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &RabbitMQBroker{
		url:         url,
		logger:      logger,
		notifyClose: make(chan *amqp.Error),
	}
	b.dial = b.connect

	if err := b.connect(); err != nil {
		return nil, err
	}

	go b.handleReconnect()

	return b, nil
}

func (b *RabbitMQBroker) connect() error {
	conn, err := amqp.Dial(b.url)
	if err != nil {
		return cache.WrapError(cache.ErrBrokerDown, "failed to connect to RabbitMQ", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close() // Error intentionally ignored - already handling channel error
		return cache.WrapError(cache.ErrBrokerDown, "failed to open channel", err)
	}

	b.mu.Lock()
	b.conn = conn
	b.channel = channel
	b.healthy = true
	b.notifyClose = make(chan *amqp.Error)
	b.conn.NotifyClose(b.notifyClose)
	b.mu.Unlock()

	return nil
}

// handleReconnect re-reads notifyClose every iteration: each successful
// connect registers a fresh channel on the new connection, and the watch must
// move to it or later connection losses go unnoticed.
func (b *RabbitMQBroker) handleReconnect() {
	for {
		b.mu.RLock()
		notify := b.notifyClose
		b.mu.RUnlock()

		err, ok := <-notify
		if !ok || err == nil {
			return // Connection closed normally
		}

		b.mu.Lock()
		b.healthy = false
		b.mu.Unlock()

		b.logger.Warn("rabbitmq connection lost, reconnecting", zap.Error(err))

		backoff := time.Second
		for {
			b.mu.RLock()
			closed := b.closed
			b.mu.RUnlock()
			if closed {
				return
			}

			if err := b.dial(); err == nil {
				b.logger.Info("rabbitmq reconnected")
				break
			}

			time.Sleep(backoff)
			backoff = nextBackoff(backoff)
		}
	}
}

// maxBrokerBackoff caps retry pacing for broker reconnect and read loops.
const maxBrokerBackoff = 30 * time.Second

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBrokerBackoff {
		return maxBrokerBackoff
	}
	return d
}

// Subscribe registers a handler for invalidation events.
func (b *RabbitMQBroker) Subscribe(ctx context.Context, topic string, handler cache.InvalidationHandler) error {
	b.mu.RLock()
	channel := b.channel
	b.mu.RUnlock()

	if channel == nil {
		return cache.ErrBrokerDown
	}

	err := channel.ExchangeDeclare(
		topic,    // name
		"fanout", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return cache.WrapError(cache.ErrBrokerDown, "failed to declare exchange", err)
	}

	queue, err := channel.QueueDeclare(
		"",    // name (auto-generated)
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return cache.WrapError(cache.ErrBrokerDown, "failed to declare queue", err)
	}

	err = channel.QueueBind(
		queue.Name, // queue name
		"",         // routing key
		topic,      // exchange
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		return cache.WrapError(cache.ErrBrokerDown, "failed to bind queue", err)
	}

	msgs, err := channel.Consume(
		queue.Name, // queue
		"",         // consumer
		true,       // auto-ack
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return cache.WrapError(cache.ErrBrokerDown, "failed to start consuming", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				event, err := DecodeEvent(msg.Body)
				if err != nil {
					b.logger.Warn("dropping undecodable invalidation event", zap.Error(err))
					continue
				}
				_ = handler(event) // Error logged by handler internally
			}
		}
	}()

	return nil
}

// Publish sends an invalidation event.
func (b *RabbitMQBroker) Publish(ctx context.Context, topic string, event cache.InvalidationEvent) error {
	b.mu.RLock()
	channel := b.channel
	b.mu.RUnlock()

	if channel == nil {
		return cache.ErrBrokerDown
	}

	body, err := EncodeEvent(event)
	if err != nil {
		return err
	}

	err = channel.PublishWithContext(ctx,
		topic, // exchange
		"",    // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   time.Now(),
		},
	)
	if err != nil {
		return cache.WrapError(cache.ErrBrokerDown, "failed to publish message", err)
	}

	return nil
}

// Close closes the broker connection.
func (b *RabbitMQBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.healthy = false

	var errs []error
	if b.channel != nil {
		if err := b.channel.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if b.conn != nil {
		if err := b.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Healthy returns whether the broker is healthy.
func (b *RabbitMQBroker) Healthy() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.healthy && !b.closed
}
