package invalidation

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/commerce-platform/cache-coordinator/internal/cache"
	"github.com/commerce-platform/cache-coordinator/internal/config"
)

// NewBroker builds a broker from configuration. Type "none" yields a no-op
// broker for single-instance deployments.
func NewBroker(cfg config.BrokerConfig, logger *zap.Logger) (cache.Broker, error) {
	switch cfg.Type {
	case "none", "":
		return NewNoopBroker(), nil
	case "kafka":
		return NewKafkaBroker([]string{cfg.URL}, cfg.GroupID, logger)
	case "rabbitmq":
		return NewRabbitMQBroker(cfg.URL, logger)
	default:
		return nil, fmt.Errorf("unsupported broker type %q", cfg.Type)
	}
}

// EncodeEvent encodes an invalidation event to JSON.
func EncodeEvent(event cache.InvalidationEvent) ([]byte, error) {
	return json.Marshal(event)
}

// DecodeEvent decodes an invalidation event from JSON.
func DecodeEvent(data []byte) (cache.InvalidationEvent, error) {
	var event cache.InvalidationEvent
	err := json.Unmarshal(data, &event)
	return event, err
}

// NoopBroker is a no-operation broker for when fan-out is disabled.
type NoopBroker struct{}

// NewNoopBroker creates a new no-op broker.
func NewNoopBroker() *NoopBroker {
	return &NoopBroker{}
}

// Subscribe does nothing.
func (b *NoopBroker) Subscribe(ctx context.Context, topic string, handler cache.InvalidationHandler) error {
	return nil
}

// Publish does nothing.
func (b *NoopBroker) Publish(ctx context.Context, topic string, event cache.InvalidationEvent) error {
	return nil
}

// Close does nothing.
func (b *NoopBroker) Close() error {
	return nil
}

// Healthy always returns true.
func (b *NoopBroker) Healthy() bool {
	return true
}
