package cache

import (
	"sync/atomic"
	"time"
)

// Stats holds one region's operation counters. All fields are atomics so the
// request path never takes a lock to record an outcome, and Snapshot never
// blocks on cache I/O.
type Stats struct {
	localHits     atomic.Int64
	distHits      atomic.Int64
	misses        atomic.Int64
	evictions     atomic.Int64
	errors        atomic.Int64
	loads         atomic.Int64
	loadLatencyNs atomic.Int64
}

// NewStats creates an empty counter set.
func NewStats() *Stats {
	return &Stats{}
}

// RecordHit records a hit for the given tier.
func (s *Stats) RecordHit(source Source) {
	if source == SourceLocal {
		s.localHits.Add(1)
		return
	}
	s.distHits.Add(1)
}

// RecordMiss records a miss across both tiers.
func (s *Stats) RecordMiss() {
	s.misses.Add(1)
}

// RecordEviction records a local-tier eviction.
func (s *Stats) RecordEviction() {
	s.evictions.Add(1)
}

// RecordError records a tier-level failure that was degraded to a miss/no-op.
func (s *Stats) RecordError() {
	s.errors.Add(1)
}

// RecordLoad records one loader invocation and its latency.
func (s *Stats) RecordLoad(elapsed time.Duration) {
	s.loads.Add(1)
	s.loadLatencyNs.Add(int64(elapsed))
}

// Snapshot returns a point-in-time copy of the counters. The counters are read
// individually, so a snapshot taken under concurrent traffic is approximate
// rather than a consistent cut; that is sufficient for monitoring.
func (s *Stats) Snapshot(region string, sizeEstimate int) RegionStatistics {
	local := s.localHits.Load()
	dist := s.distHits.Load()
	loads := s.loads.Load()

	var avgLoad time.Duration
	if loads > 0 {
		avgLoad = time.Duration(s.loadLatencyNs.Load() / loads)
	}

	return RegionStatistics{
		Region:             region,
		HitCount:           local + dist,
		LocalHitCount:      local,
		MissCount:          s.misses.Load(),
		EvictionCount:      s.evictions.Load(),
		ErrorCount:         s.errors.Load(),
		LoadCount:          loads,
		AverageLoadLatency: avgLoad,
		SizeEstimate:       sizeEstimate,
		SampledAt:          time.Now(),
	}
}
