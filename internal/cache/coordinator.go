package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CircuitReporter is implemented by distributed clients that expose their
// circuit breaker state for health reporting.
type CircuitReporter interface {
	CircuitState() string
}

// Coordinator orchestrates reads and writes across the local and distributed
// tiers with tier fallback and back-fill. It owns the region registry and all
// region statistics; collaborators (invalidation, warmup) only call its
// operations and never mutate tier state directly.
type Coordinator struct {
	registry *Registry
	dist     DistributedClient
	metrics  Recorder
	logger   *zap.Logger
}

// NewCoordinator creates a coordinator over the given registry and
// distributed tier client.
func NewCoordinator(registry *Registry, dist DistributedClient, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		registry: registry,
		dist:     dist,
		logger:   logger,
	}
}

// WithMetrics mirrors operation outcomes to the given recorder. Call during
// wiring, before serving traffic.
func (c *Coordinator) WithMetrics(rec Recorder) *Coordinator {
	c.metrics = rec
	for _, reg := range c.registry.All() {
		region := reg.Name()
		reg.evictListener = func() { rec.RecordEviction(region) }
	}
	return c
}

// Registry exposes the region registry for administrative collaborators
// (warmup, advisor, ops surface).
func (c *Coordinator) Registry() *Registry {
	return c.registry
}

// Get checks the local tier first, then the distributed tier. A distributed
// hit back-fills the local tier asynchronously. Tier errors are counted,
// logged, and reported as a miss; they never reach the caller.
func (c *Coordinator) Get(ctx context.Context, region, key string) ([]byte, bool) {
	reg, err := c.registry.Get(region)
	if err != nil {
		c.logger.Error("get on unregistered region",
			zap.String("region", region),
			zap.String("key", key),
		)
		return nil, false
	}
	if key == "" {
		reg.Stats().RecordMiss()
		c.recordMiss(region)
		return nil, false
	}

	if value, ok := reg.Local().Get(key); ok {
		reg.Stats().RecordHit(SourceLocal)
		c.recordHit(SourceLocal, region)
		return value, true
	}

	value, err := c.dist.Get(ctx, TierKey(region, key))
	if err != nil {
		if !IsNotFound(err) {
			reg.Stats().RecordError()
			c.recordError(region)
			c.logger.Warn("distributed tier get failed",
				zap.String("region", region),
				zap.String("key", key),
				zap.Error(err),
			)
		}
		reg.Stats().RecordMiss()
		c.recordMiss(region)
		return nil, false
	}

	reg.Stats().RecordHit(SourceDistributed)
	c.recordHit(SourceDistributed, region)

	// Back-fill the faster tier off the request path. The entry restarts at
	// the region default TTL since the distributed remaining TTL is unknown.
	go reg.Local().Set(key, value, reg.DefaultTTL())

	return value, true
}

// GetOrLoad calls Get and, on a miss, invokes the caller-supplied loader at
// most once. A non-empty loader result is written through both tiers before
// being returned. Loader errors are the only errors returned; concurrent
// callers for the same key are not deduplicated.
func (c *Coordinator) GetOrLoad(ctx context.Context, region, key string, loader Loader) ([]byte, error) {
	if value, ok := c.Get(ctx, region, key); ok {
		return value, nil
	}

	reg, err := c.registry.Get(region)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	value, err := loader(ctx)
	elapsed := time.Since(start)
	reg.Stats().RecordLoad(elapsed)
	if c.metrics != nil {
		c.metrics.ObserveLoad(region, elapsed.Seconds())
	}

	if err != nil {
		c.logger.Debug("loader failed",
			zap.String("region", region),
			zap.String("key", key),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return nil, err
	}

	c.logger.Debug("miss resolved by loader",
		zap.String("region", region),
		zap.String("key", key),
		zap.String("source", SourceLoader.String()),
		zap.Duration("elapsed", elapsed),
	)

	if len(value) > 0 {
		if putErr := c.Put(ctx, region, key, value, 0); putErr != nil {
			c.logger.Warn("write-through after load failed",
				zap.String("region", region),
				zap.String("key", key),
				zap.Error(putErr),
			)
		}
	}

	return value, nil
}

// Put writes the value to both tiers, dispatched concurrently and joined
// before returning. A zero TTL resolves to the region default and out-of-range
// TTLs clamp to the region bounds. Partial tier failure is tolerated: it is
// counted and logged, not surfaced. Only argument validation errors are
// returned.
func (c *Coordinator) Put(ctx context.Context, region, key string, value []byte, ttl time.Duration) error {
	reg, err := c.registry.Get(region)
	if err != nil {
		return err
	}
	if key == "" {
		return ErrInvalidKeyError
	}
	if len(value) == 0 {
		return ErrInvalidValueError
	}

	ttl, err = reg.TTL().ValidateTTL(ttl)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		reg.Local().Set(key, value, ttl)
		return nil
	})
	g.Go(func() error {
		if err := c.dist.Set(gctx, TierKey(region, key), value, ttl); err != nil {
			reg.Stats().RecordError()
			c.recordError(region)
			c.logger.Warn("distributed tier set failed",
				zap.String("region", region),
				zap.String("key", key),
				zap.Error(err),
			)
		}
		return nil
	})
	_ = g.Wait()

	return nil
}

// Evict removes the key from both tiers. Evicting an absent key is a no-op.
func (c *Coordinator) Evict(ctx context.Context, region, key string) error {
	reg, err := c.registry.Get(region)
	if err != nil {
		return err
	}
	if key == "" {
		return ErrInvalidKeyError
	}

	reg.Local().Delete(key)

	if _, err := c.dist.Del(ctx, TierKey(region, key)); err != nil {
		reg.Stats().RecordError()
		c.recordError(region)
		c.logger.Warn("distributed tier delete failed",
			zap.String("region", region),
			zap.String("key", key),
			zap.Error(err),
		)
	}

	return nil
}

// ClearRegion removes all keys in a region from both tiers.
func (c *Coordinator) ClearRegion(ctx context.Context, region string) error {
	reg, err := c.registry.Get(region)
	if err != nil {
		return err
	}

	reg.Local().Clear()

	if _, err := c.dist.DelPattern(ctx, TierKey(region, "*")); err != nil {
		reg.Stats().RecordError()
		c.recordError(region)
		c.logger.Warn("distributed tier region clear failed",
			zap.String("region", region),
			zap.Error(err),
		)
	}

	c.logger.Info("region cleared", zap.String("region", region))
	return nil
}

// ClearLocalRegion drops only the in-process tier for a region. Used when
// applying invalidation events from peer instances, whose originator already
// cleared the shared distributed tier.
func (c *Coordinator) ClearLocalRegion(region string) error {
	reg, err := c.registry.Get(region)
	if err != nil {
		return err
	}
	reg.Local().Clear()
	return nil
}

// Statistics returns a point-in-time snapshot of every region's counters.
// It reads only already-maintained counters and never blocks on cache I/O.
func (c *Coordinator) Statistics() []RegionStatistics {
	regions := c.registry.All()
	out := make([]RegionStatistics, 0, len(regions))
	for _, reg := range regions {
		out = append(out, reg.Snapshot())
	}
	return out
}

// Health reports tier connectivity and circuit state.
func (c *Coordinator) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Healthy: true,
		Regions: c.registry.Len(),
	}

	if err := c.dist.Ping(ctx); err != nil {
		status.Healthy = false
		switch {
		case IsCircuitOpen(err):
			status.TierStatus = "circuit open"
		case IsTierUnavailable(err):
			status.TierStatus = "unavailable"
		default:
			status.TierStatus = "unreachable"
		}
		c.logger.Warn("distributed tier health check failed", zap.Error(err))
		return status
	}

	status.TierStatus = "healthy"
	if reporter, ok := c.dist.(CircuitReporter); ok {
		if state := reporter.CircuitState(); state != "closed" {
			status.TierStatus = "healthy (circuit " + state + ")"
		}
	}

	return status
}

// Close releases the local tiers and the distributed client.
func (c *Coordinator) Close() error {
	c.registry.Close()
	return c.dist.Close()
}

func (c *Coordinator) recordHit(source Source, region string) {
	if c.metrics != nil {
		c.metrics.RecordHit(source.String(), region)
	}
}

func (c *Coordinator) recordMiss(region string) {
	if c.metrics != nil {
		c.metrics.RecordMiss(region)
	}
}

func (c *Coordinator) recordError(region string) {
	if c.metrics != nil {
		c.metrics.RecordError(region)
	}
}

var _ Service = (*Coordinator)(nil)
