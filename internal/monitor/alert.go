package monitor

import (
	"time"

	"github.com/google/uuid"
)

// AlertType names the threshold that was breached.
type AlertType string

const (
	// AlertLowHitRatio fires when a region's hit ratio drops below the floor.
	AlertLowHitRatio AlertType = "LOW_HIT_RATIO"
	// AlertHighErrorRate fires when tier errors exceed the ceiling.
	AlertHighErrorRate AlertType = "HIGH_ERROR_RATE"
	// AlertHighEvictionRate fires when evictions exceed the ceiling.
	AlertHighEvictionRate AlertType = "HIGH_EVICTION_RATE"
	// AlertSlowLoad fires when average loader latency exceeds the ceiling.
	AlertSlowLoad AlertType = "SLOW_LOAD"
)

// Severity classifies how far past the threshold the value is.
type Severity string

const (
	// SeverityWarning marks a breach within 2x of the threshold.
	SeverityWarning Severity = "WARNING"
	// SeverityCritical marks a breach beyond 2x of the threshold.
	SeverityCritical Severity = "CRITICAL"
)

// Alert is an immutable record of one threshold breach. Region is empty for
// aggregate (all-regions) alerts.
type Alert struct {
	ID           string    `json:"id"`
	Type         AlertType `json:"type"`
	Severity     Severity  `json:"severity"`
	Region       string    `json:"region,omitempty"`
	Message      string    `json:"message"`
	CurrentValue float64   `json:"current_value"`
	Threshold    float64   `json:"threshold"`
	Timestamp    time.Time `json:"timestamp"`
}

func newAlert(t AlertType, severity Severity, region, message string, current, threshold float64) Alert {
	return Alert{
		ID:           uuid.NewString(),
		Type:         t,
		Severity:     severity,
		Region:       region,
		Message:      message,
		CurrentValue: current,
		Threshold:    threshold,
		Timestamp:    time.Now(),
	}
}
