// Package invalidation maps changed-entity types to the cache regions they
// can stale, executes the region-wide clears, and fans the event out to peer
// coordinator instances through a message broker.
package invalidation

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/commerce-platform/cache-coordinator/internal/cache"
)

// RegionClearer is the slice of the coordinator the engine relies on. The
// engine never mutates tier state directly.
type RegionClearer interface {
	ClearRegion(ctx context.Context, region string) error
	ClearLocalRegion(region string) error
}

// Engine executes relationship-aware invalidation. Invalidation is coarse and
// region-wide: clearing a whole region can never miss a derived key, at the
// cost of over-invalidating unrelated keys in the same region.
type Engine struct {
	mu            sync.RWMutex
	relationships map[string][]string

	coordinator RegionClearer
	broker      cache.Broker
	topic       string
	origin      string
	metrics     EventRecorder
	logger      *zap.Logger
}

// EventRecorder counts executed invalidations, usually backed by Prometheus.
type EventRecorder interface {
	RecordInvalidation(entityType string)
}

// NewEngine creates an invalidation engine. The relationship map is loaded
// once from configuration; Reconfigure is the only runtime mutation path.
func NewEngine(relationships map[string][]string, coordinator RegionClearer, broker cache.Broker, topic, origin string, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	copied := make(map[string][]string, len(relationships))
	for entity, regions := range relationships {
		copied[entity] = append([]string(nil), regions...)
	}

	return &Engine{
		relationships: copied,
		coordinator:   coordinator,
		broker:        broker,
		topic:         topic,
		origin:        origin,
		logger:        logger,
	}
}

// WithMetrics attaches an invalidation counter.
func (e *Engine) WithMetrics(rec EventRecorder) *Engine {
	e.metrics = rec
	return e
}

// InvalidateRelated clears every region mapped for the entity type in both
// tiers, then publishes the event so peer instances drop their local tiers.
// An unmapped entity type is a warning, not an error; a mapping missing here
// means stale data survives, so the map is reviewed whenever a new derived
// cache is introduced.
func (e *Engine) InvalidateRelated(ctx context.Context, entityType, entityID string) error {
	regions := e.RegionsFor(entityType)
	if len(regions) == 0 {
		e.logger.Warn("no cache regions mapped for entity type",
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID),
		)
		return nil
	}

	for _, region := range regions {
		if err := e.coordinator.ClearRegion(ctx, region); err != nil {
			e.logger.Error("region clear failed during invalidation",
				zap.String("entity_type", entityType),
				zap.String("region", region),
				zap.Error(err),
			)
		}
	}

	if e.metrics != nil {
		e.metrics.RecordInvalidation(entityType)
	}

	e.logger.Info("invalidated related regions",
		zap.String("entity_type", entityType),
		zap.String("entity_id", entityID),
		zap.Strings("regions", regions),
	)

	event := cache.InvalidationEvent{
		EntityType: entityType,
		EntityID:   entityID,
		Regions:    regions,
		Origin:     e.origin,
		Timestamp:  time.Now().Unix(),
	}
	if err := e.broker.Publish(ctx, e.topic, event); err != nil {
		e.logger.Error("failed to publish invalidation event", zap.Error(err))
	}

	return nil
}

// RegionsFor returns the regions mapped for an entity type.
func (e *Engine) RegionsFor(entityType string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.relationships[entityType]...)
}

// Relationships returns a copy of the full relationship map.
func (e *Engine) Relationships() map[string][]string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string][]string, len(e.relationships))
	for entity, regions := range e.relationships {
		out[entity] = append([]string(nil), regions...)
	}
	return out
}

// Reconfigure replaces the relationship map. Admin-only.
func (e *Engine) Reconfigure(relationships map[string][]string) {
	copied := make(map[string][]string, len(relationships))
	for entity, regions := range relationships {
		copied[entity] = append([]string(nil), regions...)
	}

	e.mu.Lock()
	e.relationships = copied
	e.mu.Unlock()

	e.logger.Info("relationship map reconfigured", zap.Int("entities", len(copied)))
}

// Start subscribes to peer invalidation events. Remote events clear only the
// local tier: the originating instance already cleared the shared
// distributed tier.
func (e *Engine) Start(ctx context.Context) error {
	return e.broker.Subscribe(ctx, e.topic, e.handleRemote)
}

func (e *Engine) handleRemote(event cache.InvalidationEvent) error {
	if event.Origin == e.origin {
		return nil
	}

	for _, region := range event.Regions {
		if err := e.coordinator.ClearLocalRegion(region); err != nil {
			e.logger.Warn("remote invalidation for unknown region",
				zap.String("region", region),
				zap.String("origin", event.Origin),
				zap.Error(err),
			)
		}
	}

	e.logger.Debug("applied remote invalidation",
		zap.String("entity_type", event.EntityType),
		zap.String("origin", event.Origin),
		zap.Strings("regions", event.Regions),
	)
	return nil
}

// Close closes the broker connection.
func (e *Engine) Close() error {
	return e.broker.Close()
}
