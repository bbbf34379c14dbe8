package cache

import (
	"time"
)

// TTLConfig holds TTL-related configuration.
type TTLConfig struct {
	DefaultTTL time.Duration
	MinTTL     time.Duration
	MaxTTL     time.Duration
}

// DefaultTTLConfig returns the default TTL configuration.
func DefaultTTLConfig() TTLConfig {
	return TTLConfig{
		DefaultTTL: time.Hour,
		MinTTL:     time.Second,
		MaxTTL:     24 * time.Hour * 30, // 30 days
	}
}

// ValidateTTL validates and normalizes a TTL value. A zero TTL resolves to the
// default; out-of-range values clamp to the configured bounds.
func (c TTLConfig) ValidateTTL(ttl time.Duration) (time.Duration, error) {
	if ttl == 0 {
		return c.DefaultTTL, nil
	}

	if ttl < 0 {
		return 0, ErrInvalidTTL
	}

	if ttl < c.MinTTL {
		return c.MinTTL, nil
	}

	if ttl > c.MaxTTL {
		return c.MaxTTL, nil
	}

	return ttl, nil
}
