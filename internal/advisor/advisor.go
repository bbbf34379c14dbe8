// Package advisor is the best-effort optimization tuner: on a slow interval
// it inspects region statistics and applies corrective configuration through
// the registry's admin mutators. It is never a prerequisite for correctness
// and never touches the request path.
package advisor

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/commerce-platform/cache-coordinator/internal/cache"
	"github.com/commerce-platform/cache-coordinator/internal/config"
	"github.com/commerce-platform/cache-coordinator/internal/localcache"
)

// minOperations is the traffic floor below which a region's statistics are
// too thin to act on.
const minOperations = 100

// Adjustment records one applied configuration change, for the ops surface.
type Adjustment struct {
	Region    string    `json:"region"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail"`
	AppliedAt time.Time `json:"applied_at"`
}

// Advisor inspects statistics and tunes region configuration.
type Advisor struct {
	registry          *cache.Registry
	cfg               config.AdvisorConfig
	hitRatioThreshold float64
	logger            *zap.Logger
}

// New creates an advisor over the region registry.
func New(registry *cache.Registry, cfg config.AdvisorConfig, hitRatioThreshold float64, logger *zap.Logger) *Advisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Advisor{
		registry:          registry,
		cfg:               cfg,
		hitRatioThreshold: hitRatioThreshold,
		logger:            logger,
	}
}

// Tick runs one advisory pass and returns the adjustments applied.
func (a *Advisor) Tick() []Adjustment {
	if !a.cfg.Enabled {
		return nil
	}

	var adjustments []Adjustment
	for _, region := range a.registry.All() {
		if adj, ok := a.advise(region); ok {
			adjustments = append(adjustments, adj)
		}
	}
	return adjustments
}

// advise applies at most one adjustment per region per pass, most impactful
// first.
func (a *Advisor) advise(region *cache.Region) (Adjustment, bool) {
	stats := region.Snapshot()
	if stats.Operations() < minOperations {
		return Adjustment{}, false
	}

	local := region.Local()
	maxSize := local.MaxSize()

	// An undersized region shows up as a low hit ratio; grow its bound until
	// the configured cap.
	if stats.HitRatio() < a.hitRatioThreshold && maxSize < a.cfg.MaxLocalSize {
		newSize := maxSize * 2
		if newSize > a.cfg.MaxLocalSize {
			newSize = a.cfg.MaxLocalSize
		}
		region.Resize(newSize)
		a.logger.Info("advisor grew region",
			zap.String("region", region.Name()),
			zap.Float64("hit_ratio", stats.HitRatio()),
			zap.Int("old_size", maxSize),
			zap.Int("new_size", newSize),
		)
		return Adjustment{
			Region:    region.Name(),
			Action:    "grow_size",
			Detail:    fmt.Sprintf("size %d -> %d", maxSize, newSize),
			AppliedAt: time.Now(),
		}, true
	}

	// A region running at its high-water mark churns under LRU; prefer LFU so
	// the frequently re-read entries survive, then shorten the TTL.
	if float64(stats.SizeEstimate) >= a.cfg.HighWaterRatio*float64(maxSize) {
		if local.EvictionPolicy() == localcache.PolicyLRU {
			region.SetPolicy(localcache.PolicyLFU)
			a.logger.Info("advisor switched eviction policy",
				zap.String("region", region.Name()),
				zap.Int("size_estimate", stats.SizeEstimate),
				zap.Int("max_size", maxSize),
			)
			return Adjustment{
				Region:    region.Name(),
				Action:    "switch_policy",
				Detail:    "lru -> lfu",
				AppliedAt: time.Now(),
			}, true
		}

		ttl := region.DefaultTTL()
		if ttl > 2*time.Minute {
			newTTL := ttl / 2
			region.SetDefaultTTL(newTTL)
			a.logger.Info("advisor shortened region TTL",
				zap.String("region", region.Name()),
				zap.Duration("old_ttl", ttl),
				zap.Duration("new_ttl", newTTL),
			)
			return Adjustment{
				Region:    region.Name(),
				Action:    "shorten_ttl",
				Detail:    fmt.Sprintf("ttl %s -> %s", ttl, newTTL),
				AppliedAt: time.Now(),
			}, true
		}
	}

	return Adjustment{}, false
}
