package cache

import "time"

// Source indicates which tier a cached value was retrieved from.
type Source int

const (
	// SourceLocal indicates the value came from the in-process tier.
	SourceLocal Source = iota
	// SourceDistributed indicates the value came from the distributed tier.
	SourceDistributed
	// SourceLoader indicates the value came from a caller-supplied loader.
	SourceLoader
)

// String returns the string representation of Source.
func (s Source) String() string {
	switch s {
	case SourceLocal:
		return "local"
	case SourceDistributed:
		return "distributed"
	case SourceLoader:
		return "loader"
	default:
		return "unknown"
	}
}

// RegionStatistics is a point-in-time snapshot of one region's counters.
type RegionStatistics struct {
	Region             string        `json:"region"`
	HitCount           int64         `json:"hit_count"`
	LocalHitCount      int64         `json:"local_hit_count"`
	MissCount          int64         `json:"miss_count"`
	EvictionCount      int64         `json:"eviction_count"`
	ErrorCount         int64         `json:"error_count"`
	LoadCount          int64         `json:"load_count"`
	AverageLoadLatency time.Duration `json:"average_load_latency_ns"`
	SizeEstimate       int           `json:"size_estimate"`
	SampledAt          time.Time     `json:"sampled_at"`
}

// Operations returns the total number of get operations in the snapshot.
func (s RegionStatistics) Operations() int64 {
	return s.HitCount + s.MissCount
}

// HitRatio returns hits / (hits + misses), or 0 when there was no traffic.
func (s RegionStatistics) HitRatio() float64 {
	total := s.Operations()
	if total == 0 {
		return 0
	}
	return float64(s.HitCount) / float64(total)
}

// ErrorRate returns errors / total operations, or 0 when there was no traffic.
func (s RegionStatistics) ErrorRate() float64 {
	total := s.Operations()
	if total == 0 {
		return 0
	}
	return float64(s.ErrorCount) / float64(total)
}

// EvictionRate returns evictions / total operations, or 0 when there was no traffic.
func (s RegionStatistics) EvictionRate() float64 {
	total := s.Operations()
	if total == 0 {
		return 0
	}
	return float64(s.EvictionCount) / float64(total)
}

// InvalidationEvent is the broker message fanned out when regions are cleared,
// so that peer instances drop their local tiers.
type InvalidationEvent struct {
	EntityType string   `json:"entity_type"`
	EntityID   string   `json:"entity_id"`
	Regions    []string `json:"regions"`
	Origin     string   `json:"origin"`
	Timestamp  int64    `json:"timestamp"`
}

// InvalidationHandler processes cache invalidation events.
type InvalidationHandler func(event InvalidationEvent) error

// HealthStatus reports the health of the coordinator's collaborators.
type HealthStatus struct {
	Healthy      bool   `json:"healthy"`
	TierStatus   string `json:"distributed_tier_status"`
	BrokerStatus string `json:"broker_status,omitempty"`
	Regions      int    `json:"regions"`
}
