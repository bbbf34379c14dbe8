package cache

import (
	"fmt"
	"sort"
	"time"

	"github.com/commerce-platform/cache-coordinator/internal/localcache"
)

// RegionConfig describes one named region at startup.
type RegionConfig struct {
	Name       string
	MaxSize    int
	DefaultTTL time.Duration
	Policy     localcache.Policy
}

// Region is the handle for one named logical cache: its local tier instance,
// TTL bounds, and counters. Regions are created once at startup and never
// renamed.
type Region struct {
	name  string
	local *localcache.Cache
	ttl   TTLConfig
	stats *Stats

	// evictListener mirrors evictions to the metrics registry. Set once
	// during wiring, before traffic.
	evictListener func()
}

func newRegion(cfg RegionConfig) *Region {
	r := &Region{
		name:  cfg.Name,
		stats: NewStats(),
	}

	r.local = localcache.New(localcache.Config{
		MaxSize:    cfg.MaxSize,
		DefaultTTL: cfg.DefaultTTL,
		Policy:     cfg.Policy,
		OnEvict: func(string) {
			r.stats.RecordEviction()
			if r.evictListener != nil {
				r.evictListener()
			}
		},
	})

	r.ttl = DefaultTTLConfig()
	if cfg.DefaultTTL > 0 {
		r.ttl.DefaultTTL = cfg.DefaultTTL
	}

	return r
}

// Name returns the region name.
func (r *Region) Name() string {
	return r.name
}

// Local returns the region's in-process tier.
func (r *Region) Local() *localcache.Cache {
	return r.local
}

// Stats returns the region's counters.
func (r *Region) Stats() *Stats {
	return r.stats
}

// DefaultTTL returns the region's default entry TTL.
func (r *Region) DefaultTTL() time.Duration {
	return r.local.DefaultTTL()
}

// TTL returns the region's TTL bounds with the current default resolved. The
// default follows SetDefaultTTL; the bounds are fixed at startup.
func (r *Region) TTL() TTLConfig {
	cfg := r.ttl
	cfg.DefaultTTL = r.local.DefaultTTL()
	return cfg
}

// Snapshot returns the region's current statistics.
func (r *Region) Snapshot() RegionStatistics {
	return r.stats.Snapshot(r.name, r.local.Size())
}

// Admin mutators, used by the optimization advisor and the ops surface.

// Resize changes the local tier's capacity bound.
func (r *Region) Resize(maxSize int) {
	r.local.Resize(maxSize)
}

// SetDefaultTTL changes the region's default entry TTL.
func (r *Region) SetDefaultTTL(ttl time.Duration) {
	r.local.SetDefaultTTL(ttl)
}

// SetPolicy switches the local tier's eviction policy.
func (r *Region) SetPolicy(p localcache.Policy) {
	r.local.SetPolicy(p)
}

// Registry maps region names to their handles. It is populated once at
// process start; lookups of unregistered names are configuration defects.
type Registry struct {
	regions map[string]*Region
}

// NewRegistry builds the region registry from startup configuration.
func NewRegistry(configs []RegionConfig) (*Registry, error) {
	if len(configs) == 0 {
		return nil, WrapError(ErrInvalidRegion, "no regions configured", nil)
	}

	regions := make(map[string]*Region, len(configs))
	for _, cfg := range configs {
		if err := validateRegionName(cfg.Name); err != nil {
			return nil, err
		}
		if _, exists := regions[cfg.Name]; exists {
			return nil, WrapError(ErrInvalidRegion, fmt.Sprintf("region %q configured twice", cfg.Name), nil)
		}
		regions[cfg.Name] = newRegion(cfg)
	}

	return &Registry{regions: regions}, nil
}

// Get returns the handle for a region name.
func (g *Registry) Get(name string) (*Region, error) {
	r, ok := g.regions[name]
	if !ok {
		return nil, WrapError(ErrUnknownRegion, fmt.Sprintf("region %q", name), nil)
	}
	return r, nil
}

// Names returns all region names in sorted order.
func (g *Registry) Names() []string {
	names := make([]string, 0, len(g.regions))
	for name := range g.regions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns all region handles, ordered by name.
func (g *Registry) All() []*Region {
	names := g.Names()
	regions := make([]*Region, 0, len(names))
	for _, name := range names {
		regions = append(regions, g.regions[name])
	}
	return regions
}

// Len returns the number of registered regions.
func (g *Registry) Len() int {
	return len(g.regions)
}

// Close releases every region's local tier.
func (g *Registry) Close() {
	for _, r := range g.regions {
		r.local.Close()
	}
}
