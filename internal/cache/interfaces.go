// Package cache provides the multi-tier cache coordinator: a local in-process
// tier and a shared distributed tier fronting a slow system-of-record, with
// per-region statistics and graceful degradation on tier failure.
package cache

import (
	"context"
	"time"
)

// Loader is a caller-supplied function that fetches a value from the
// system-of-record when both tiers miss. It may be expensive; the coordinator
// invokes it at most once per GetOrLoad call. Concurrent callers for the same
// key are not deduplicated, so loaders should be idempotent.
type Loader func(ctx context.Context) ([]byte, error)

// Service is the narrow contract business collaborators consume.
type Service interface {
	// Get returns the cached value for (region, key), or false on a miss in
	// both tiers. Tier errors are recorded and reported as a miss, never
	// returned.
	Get(ctx context.Context, region, key string) ([]byte, bool)

	// GetOrLoad returns the cached value, invoking loader on a miss and
	// writing a non-empty result through both tiers before returning it.
	GetOrLoad(ctx context.Context, region, key string, loader Loader) ([]byte, error)

	// Put writes the value through both tiers. ttl of zero uses the region
	// default. Partial tier failure is tolerated and recorded.
	Put(ctx context.Context, region, key string, value []byte, ttl time.Duration) error

	// Evict removes the key from both tiers; evicting an absent key is a no-op.
	Evict(ctx context.Context, region, key string) error

	// ClearRegion removes all keys in a region from both tiers.
	ClearRegion(ctx context.Context, region string) error

	// Statistics returns a point-in-time snapshot of every region's counters.
	Statistics() []RegionStatistics
}

// DistributedClient abstracts the distributed tier for testability. All
// operations are bounded by the client's configured timeout.
type DistributedClient interface {
	// Get retrieves a value by namespaced key; ErrNotFound on absence.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Del deletes one or more keys, returning the number removed.
	Del(ctx context.Context, keys ...string) (int64, error)

	// DelPattern deletes every key matching the glob pattern, returning the
	// number removed.
	DelPattern(ctx context.Context, pattern string) (int64, error)

	// Ping checks tier connectivity.
	Ping(ctx context.Context) error

	// Close closes the connection.
	Close() error
}

// Recorder receives operation outcomes for export to the process-wide
// metrics registry. The coordinator's own Stats counters stay authoritative;
// the recorder is a mirror for dashboards.
type Recorder interface {
	RecordHit(tier, region string)
	RecordMiss(region string)
	RecordEviction(region string)
	RecordError(region string)
	ObserveLoad(region string, seconds float64)
}

// Broker handles async invalidation fan-out between coordinator instances.
type Broker interface {
	// Subscribe registers a handler for invalidation events.
	Subscribe(ctx context.Context, topic string, handler InvalidationHandler) error

	// Publish sends an invalidation event.
	Publish(ctx context.Context, topic string, event InvalidationEvent) error

	// Close closes the broker connection.
	Close() error

	// Healthy returns whether the broker is healthy.
	Healthy() bool
}
