// Package monitor periodically samples region statistics, compares them with
// configured thresholds, and emits alerts to a notification sink. It runs on
// the shared background scheduler, never on the request path.
package monitor

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/commerce-platform/cache-coordinator/internal/cache"
	"github.com/commerce-platform/cache-coordinator/internal/config"
	"github.com/commerce-platform/cache-coordinator/internal/observability"
)

// StatisticsProvider is the read-only slice of the coordinator the monitor
// consumes. Statistics never blocks on cache I/O.
type StatisticsProvider interface {
	Statistics() []cache.RegionStatistics
}

// DefaultEvictionRateThreshold is the eviction-rate ceiling. Not part of the
// recognized configuration surface; a region evicting on nearly every third
// operation is undersized regardless of workload.
const DefaultEvictionRateThreshold = 0.3

// Monitor evaluates thresholds on a fixed interval. By default a sustained
// breach re-fires on every tick; a cooldown window can be configured to
// debounce sustained breaches (see DESIGN.md for the rationale).
type Monitor struct {
	provider StatisticsProvider
	cfg      config.MonitorConfig
	sink     Sink
	metrics  *observability.Metrics
	logger   *zap.Logger

	mu        sync.Mutex
	lastFired map[string]time.Time
}

// New creates a monitor. A nil sink falls back to the structured log.
func New(provider StatisticsProvider, cfg config.MonitorConfig, sink Sink, metrics *observability.Metrics, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = NewLogSink(logger)
	}
	return &Monitor{
		provider:  provider,
		cfg:       cfg,
		sink:      sink,
		metrics:   metrics,
		logger:    logger,
		lastFired: make(map[string]time.Time),
	}
}

// Tick runs one monitoring pass: snapshot, evaluate, alert. When alerting is
// disabled the tick is a no-op. Returns the alerts emitted this tick.
func (m *Monitor) Tick() []Alert {
	if !m.cfg.Enabled {
		return nil
	}

	stats := m.provider.Statistics()

	if m.metrics != nil {
		for _, s := range stats {
			m.metrics.SetRegionSize(s.Region, s.SizeEstimate)
		}
	}

	var alerts []Alert
	for _, s := range stats {
		alerts = append(alerts, m.evaluate(s)...)
	}
	alerts = append(alerts, m.evaluate(aggregate(stats))...)

	emitted := alerts[:0]
	for _, alert := range alerts {
		if m.suppressed(alert) {
			continue
		}
		emitted = append(emitted, alert)
		m.emit(alert)
	}

	return emitted
}

// evaluate computes the derived rates for one statistics snapshot and returns
// an alert per breached threshold. Regions with no traffic are skipped.
func (m *Monitor) evaluate(s cache.RegionStatistics) []Alert {
	if s.Operations() == 0 {
		return nil
	}

	var alerts []Alert

	if ratio := s.HitRatio(); ratio < m.cfg.HitRatioThreshold {
		severity := SeverityWarning
		if ratio < m.cfg.HitRatioThreshold/2 {
			severity = SeverityCritical
		}
		alerts = append(alerts, newAlert(AlertLowHitRatio, severity, s.Region,
			fmt.Sprintf("hit ratio %.2f below floor %.2f", ratio, m.cfg.HitRatioThreshold),
			ratio, m.cfg.HitRatioThreshold))
	}

	if rate := s.ErrorRate(); rate > m.cfg.ErrorRateThreshold {
		severity := SeverityWarning
		if rate > 2*m.cfg.ErrorRateThreshold {
			severity = SeverityCritical
		}
		alerts = append(alerts, newAlert(AlertHighErrorRate, severity, s.Region,
			fmt.Sprintf("error rate %.3f above ceiling %.3f", rate, m.cfg.ErrorRateThreshold),
			rate, m.cfg.ErrorRateThreshold))
	}

	if rate := s.EvictionRate(); rate > DefaultEvictionRateThreshold {
		alerts = append(alerts, newAlert(AlertHighEvictionRate, SeverityWarning, s.Region,
			fmt.Sprintf("eviction rate %.3f above ceiling %.3f", rate, DefaultEvictionRateThreshold),
			rate, DefaultEvictionRateThreshold))
	}

	if s.LoadCount > 0 && s.AverageLoadLatency > m.cfg.ResponseTimeThreshold {
		currentMs := float64(s.AverageLoadLatency.Milliseconds())
		thresholdMs := float64(m.cfg.ResponseTimeThreshold.Milliseconds())
		severity := SeverityWarning
		if s.AverageLoadLatency > 2*m.cfg.ResponseTimeThreshold {
			severity = SeverityCritical
		}
		alerts = append(alerts, newAlert(AlertSlowLoad, severity, s.Region,
			fmt.Sprintf("average load latency %.0fms above ceiling %.0fms", currentMs, thresholdMs),
			currentMs, thresholdMs))
	}

	return alerts
}

// suppressed marks the alert as fired and reports whether it falls inside the
// cooldown window for its (type, region) pair.
func (m *Monitor) suppressed(alert Alert) bool {
	if m.cfg.AlertCooldown <= 0 {
		return false
	}

	key := string(alert.Type) + "/" + alert.Region

	m.mu.Lock()
	defer m.mu.Unlock()

	if last, ok := m.lastFired[key]; ok && time.Since(last) < m.cfg.AlertCooldown {
		return true
	}
	m.lastFired[key] = time.Now()
	return false
}

func (m *Monitor) emit(alert Alert) {
	region := alert.Region
	if region == "" {
		region = "aggregate"
	}
	if m.metrics != nil {
		m.metrics.RecordAlert(string(alert.Type), region)
	}

	// A failed sink must not block the next tick; log and continue.
	if err := m.sink.Notify(alert); err != nil {
		m.logger.Error("alert delivery failed",
			zap.String("alert_id", alert.ID),
			zap.String("type", string(alert.Type)),
			zap.Error(err),
		)
	}
}

// aggregate folds all region snapshots into one all-regions snapshot with an
// empty region name.
func aggregate(stats []cache.RegionStatistics) cache.RegionStatistics {
	var agg cache.RegionStatistics
	var totalLoadNs int64

	for _, s := range stats {
		agg.HitCount += s.HitCount
		agg.LocalHitCount += s.LocalHitCount
		agg.MissCount += s.MissCount
		agg.EvictionCount += s.EvictionCount
		agg.ErrorCount += s.ErrorCount
		agg.LoadCount += s.LoadCount
		agg.SizeEstimate += s.SizeEstimate
		totalLoadNs += int64(s.AverageLoadLatency) * s.LoadCount
	}
	if agg.LoadCount > 0 {
		agg.AverageLoadLatency = time.Duration(totalLoadNs / agg.LoadCount)
	}
	agg.SampledAt = time.Now()
	return agg
}
