package redis

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/commerce-platform/cache-coordinator/internal/cache"
)

// BreakerConfig tunes the circuit breaker guarding the distributed tier.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32

	// OnStateChange, when set, also receives transitions (0=closed, 1=open,
	// 2=half-open), e.g. to drive a metrics gauge.
	OnStateChange func(name string, state int)
}

// DefaultBreakerConfig returns the default breaker tuning.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "redis",
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// ProtectedClient wraps Client with circuit breaker protection. When the
// circuit is open every call fails fast with ErrCircuitBreakerOpen, which the
// coordinator degrades to a miss; the tier recovers through half-open probes
// without retry storms.
type ProtectedClient struct {
	client  *Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewProtectedClient creates a circuit-breaker-protected Redis client.
func NewProtectedClient(client *Client, cfg BreakerConfig, logger *zap.Logger) *ProtectedClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			// A missing key is a normal outcome, not a tier failure.
			return err == nil || cache.IsNotFound(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(name, breakerStateValue(to))
			}
		},
	})

	return &ProtectedClient{
		client:  client,
		breaker: breaker,
		logger:  logger,
	}
}

func (p *ProtectedClient) execute(op func() (interface{}, error)) (interface{}, error) {
	result, err := p.breaker.Execute(op)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, cache.ErrCircuitBreakerOpen
		}
		return nil, err
	}
	return result, nil
}

// Get retrieves a value with circuit breaker protection.
func (p *ProtectedClient) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := p.execute(func() (interface{}, error) {
		return p.client.Get(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// Set stores a value with circuit breaker protection.
func (p *ProtectedClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := p.execute(func() (interface{}, error) {
		return nil, p.client.Set(ctx, key, value, ttl)
	})
	return err
}

// Del deletes keys with circuit breaker protection.
func (p *ProtectedClient) Del(ctx context.Context, keys ...string) (int64, error) {
	result, err := p.execute(func() (interface{}, error) {
		return p.client.Del(ctx, keys...)
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

// DelPattern deletes matching keys with circuit breaker protection.
func (p *ProtectedClient) DelPattern(ctx context.Context, pattern string) (int64, error) {
	result, err := p.execute(func() (interface{}, error) {
		return p.client.DelPattern(ctx, pattern)
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

// Ping checks connectivity with circuit breaker protection.
func (p *ProtectedClient) Ping(ctx context.Context) error {
	_, err := p.execute(func() (interface{}, error) {
		return nil, p.client.Ping(ctx)
	})
	return err
}

// Close closes the Redis connection.
func (p *ProtectedClient) Close() error {
	return p.client.Close()
}

// CircuitState returns the current circuit breaker state.
func (p *ProtectedClient) CircuitState() string {
	return p.breaker.State().String()
}

func breakerStateValue(state gobreaker.State) int {
	switch state {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}

var _ cache.DistributedClient = (*ProtectedClient)(nil)
var _ cache.CircuitReporter = (*ProtectedClient)(nil)
