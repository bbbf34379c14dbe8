// Package config provides configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all coordinator configuration.
type Config struct {
	Server        ServerConfig
	Redis         RedisConfig
	Broker        BrokerConfig
	Cache         CacheConfig
	Relationships RelationshipConfig
	Monitor       MonitorConfig
	Warmup        WarmupConfig
	Advisor       AdvisorConfig
	Metrics       MetricsConfig
}

// ServerConfig holds the ops HTTP server configuration.
type ServerConfig struct {
	HTTPPort        int
	GracefulTimeout time.Duration
}

// RedisConfig holds distributed-tier configuration.
type RedisConfig struct {
	Addresses    []string
	Password     string
	DB           int
	PoolSize     int
	ClusterMode  bool
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// OpTimeout bounds every tier call made by the coordinator; a timed-out
	// call is treated as a miss/failure, never a hang.
	OpTimeout time.Duration
}

// BrokerConfig holds invalidation fan-out broker configuration.
type BrokerConfig struct {
	Type    string // "none", "kafka" or "rabbitmq"
	URL     string
	Topic   string
	GroupID string
}

// RegionSpec describes one cache region.
type RegionSpec struct {
	Name    string
	MaxSize int
	TTL     time.Duration
}

// CacheConfig holds region and tier behavior configuration.
type CacheConfig struct {
	DefaultTTL     time.Duration
	EvictionPolicy string
	Regions        []RegionSpec
}

// RelationshipConfig maps a business-entity type to the cache regions its
// mutations can stale. Loaded once at startup and immutable at runtime except
// through the admin reconfiguration endpoint.
type RelationshipConfig map[string][]string

// MonitorConfig holds monitoring and alerting thresholds.
type MonitorConfig struct {
	Enabled               bool
	Interval              time.Duration
	HitRatioThreshold     float64
	ErrorRateThreshold    float64
	ResponseTimeThreshold time.Duration

	// AlertCooldown suppresses repeat alerts for the same (type, region)
	// within the window. Zero keeps the re-fire-per-tick behavior.
	AlertCooldown time.Duration
}

// WarmupConfig holds warmup orchestration configuration.
type WarmupConfig struct {
	Enabled     bool
	HotSetLimit int
}

// AdvisorConfig holds optimization advisor configuration.
type AdvisorConfig struct {
	Enabled        bool
	Interval       time.Duration
	MaxLocalSize   int
	HighWaterRatio float64
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// DefaultRegions is the region set used when CACHE_REGIONS is not set.
const DefaultRegions = "products:10000:1h,inventory:5000:5m,users:10000:30m,search:20000:10m,categories:1000:6h"

// DefaultRelationships wires entity mutations to the derived regions they can
// stale. Reviewed whenever a new derived cache is introduced; a missing edge
// here means stale data survives a mutation.
const DefaultRelationships = "product=products|search|categories;inventory=inventory|products;supplier=products|search;category=categories|search|products;order=inventory;user=users"

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	regions, err := parseRegions(getEnv("CACHE_REGIONS", DefaultRegions))
	if err != nil {
		return nil, err
	}

	relationships, err := parseRelationships(getEnv("RELATIONSHIP_MAP", DefaultRelationships))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			HTTPPort:        getEnvInt("SERVER_HTTP_PORT", 8080),
			GracefulTimeout: getEnvDuration("SERVER_GRACEFUL_TIMEOUT", 30*time.Second),
		},
		Redis: RedisConfig{
			Addresses:    getEnvStringSlice("REDIS_ADDRESSES", []string{"localhost:6379"}),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			ClusterMode:  getEnvBool("REDIS_CLUSTER_MODE", false),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			OpTimeout:    getEnvDuration("REDIS_OP_TIMEOUT", 200*time.Millisecond),
		},
		Broker: BrokerConfig{
			Type:    getEnv("BROKER_TYPE", "none"),
			URL:     getEnv("BROKER_URL", ""),
			Topic:   getEnv("BROKER_TOPIC", "cache-invalidation"),
			GroupID: getEnv("BROKER_GROUP_ID", "cache-coordinator"),
		},
		Cache: CacheConfig{
			DefaultTTL:     getEnvDuration("CACHE_DEFAULT_TTL", time.Hour),
			EvictionPolicy: getEnv("CACHE_EVICTION_POLICY", "lru"),
			Regions:        regions,
		},
		Relationships: relationships,
		Monitor: MonitorConfig{
			Enabled:               getEnvBool("MONITOR_ALERTING_ENABLED", true),
			Interval:              getEnvDuration("MONITOR_INTERVAL", time.Minute),
			HitRatioThreshold:     getEnvFloat("MONITOR_HIT_RATIO_THRESHOLD", 0.8),
			ErrorRateThreshold:    getEnvFloat("MONITOR_ERROR_RATE_THRESHOLD", 0.05),
			ResponseTimeThreshold: getEnvDuration("MONITOR_RESPONSE_TIME_THRESHOLD", 100*time.Millisecond),
			AlertCooldown:         getEnvDuration("MONITOR_ALERT_COOLDOWN", 0),
		},
		Warmup: WarmupConfig{
			Enabled:     getEnvBool("WARMUP_ENABLED", true),
			HotSetLimit: getEnvInt("WARMUP_HOT_SET_LIMIT", 1000),
		},
		Advisor: AdvisorConfig{
			Enabled:        getEnvBool("ADVISOR_ENABLED", true),
			Interval:       getEnvDuration("ADVISOR_INTERVAL", 4*time.Hour),
			MaxLocalSize:   getEnvInt("ADVISOR_MAX_LOCAL_SIZE", 100000),
			HighWaterRatio: getEnvFloat("ADVISOR_HIGH_WATER_RATIO", 0.9),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration. Configuration errors indicate a
// deployment defect and fail the process at startup.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "SERVER_HTTP_PORT must be between 1 and 65535")
	}

	if len(c.Redis.Addresses) == 0 {
		errs = append(errs, "REDIS_ADDRESSES is required")
	}

	if c.Redis.PoolSize <= 0 {
		errs = append(errs, "REDIS_POOL_SIZE must be positive")
	}

	if c.Redis.OpTimeout <= 0 {
		errs = append(errs, "REDIS_OP_TIMEOUT must be positive")
	}

	switch c.Broker.Type {
	case "none", "kafka", "rabbitmq":
	default:
		errs = append(errs, "BROKER_TYPE must be 'none', 'kafka' or 'rabbitmq'")
	}

	if c.Broker.Type != "none" && c.Broker.URL == "" {
		errs = append(errs, "BROKER_URL is required when a broker is configured")
	}

	if c.Cache.DefaultTTL <= 0 {
		errs = append(errs, "CACHE_DEFAULT_TTL must be positive")
	}

	policy := strings.ToLower(c.Cache.EvictionPolicy)
	if policy != "lru" && policy != "lfu" {
		errs = append(errs, "CACHE_EVICTION_POLICY must be 'lru' or 'lfu'")
	}

	if len(c.Cache.Regions) == 0 {
		errs = append(errs, "CACHE_REGIONS must define at least one region")
	}

	seen := make(map[string]bool)
	for _, region := range c.Cache.Regions {
		if region.Name == "" {
			errs = append(errs, "CACHE_REGIONS contains an empty region name")
			continue
		}
		if seen[region.Name] {
			errs = append(errs, fmt.Sprintf("CACHE_REGIONS defines region %q twice", region.Name))
		}
		seen[region.Name] = true
		if region.MaxSize <= 0 {
			errs = append(errs, fmt.Sprintf("region %q size must be positive", region.Name))
		}
		if region.TTL <= 0 {
			errs = append(errs, fmt.Sprintf("region %q TTL must be positive", region.Name))
		}
	}

	for entity, regionNames := range c.Relationships {
		if entity == "" {
			errs = append(errs, "RELATIONSHIP_MAP contains an empty entity type")
		}
		for _, name := range regionNames {
			if !seen[name] {
				errs = append(errs, fmt.Sprintf("RELATIONSHIP_MAP references unknown region %q for entity %q", name, entity))
			}
		}
	}

	if c.Monitor.Interval <= 0 {
		errs = append(errs, "MONITOR_INTERVAL must be positive")
	}

	if c.Monitor.HitRatioThreshold < 0 || c.Monitor.HitRatioThreshold > 1 {
		errs = append(errs, "MONITOR_HIT_RATIO_THRESHOLD must be between 0 and 1")
	}

	if c.Monitor.ErrorRateThreshold < 0 || c.Monitor.ErrorRateThreshold > 1 {
		errs = append(errs, "MONITOR_ERROR_RATE_THRESHOLD must be between 0 and 1")
	}

	if c.Warmup.HotSetLimit <= 0 {
		errs = append(errs, "WARMUP_HOT_SET_LIMIT must be positive")
	}

	if c.Advisor.Interval <= 0 {
		errs = append(errs, "ADVISOR_INTERVAL must be positive")
	}

	if c.Advisor.MaxLocalSize <= 0 {
		errs = append(errs, "ADVISOR_MAX_LOCAL_SIZE must be positive")
	}

	if c.Advisor.HighWaterRatio <= 0 || c.Advisor.HighWaterRatio > 1 {
		errs = append(errs, "ADVISOR_HIGH_WATER_RATIO must be between 0 and 1")
	}

	if len(errs) > 0 {
		return errors.New("configuration validation failed: " + strings.Join(errs, "; "))
	}

	return nil
}

// LogSafe returns a copy of config with sensitive values masked.
func (c *Config) LogSafe() map[string]interface{} {
	regionSpecs := make([]string, 0, len(c.Cache.Regions))
	for _, r := range c.Cache.Regions {
		regionSpecs = append(regionSpecs, fmt.Sprintf("%s:%d:%s", r.Name, r.MaxSize, r.TTL))
	}

	return map[string]interface{}{
		"server": map[string]interface{}{
			"http_port":        c.Server.HTTPPort,
			"graceful_timeout": c.Server.GracefulTimeout.String(),
		},
		"redis": map[string]interface{}{
			"addresses":    c.Redis.Addresses,
			"db":           c.Redis.DB,
			"pool_size":    c.Redis.PoolSize,
			"cluster_mode": c.Redis.ClusterMode,
			"op_timeout":   c.Redis.OpTimeout.String(),
			"password":     maskSecret(c.Redis.Password),
		},
		"broker": map[string]interface{}{
			"type":     c.Broker.Type,
			"url":      maskURL(c.Broker.URL),
			"topic":    c.Broker.Topic,
			"group_id": c.Broker.GroupID,
		},
		"cache": map[string]interface{}{
			"default_ttl":     c.Cache.DefaultTTL.String(),
			"eviction_policy": c.Cache.EvictionPolicy,
			"regions":         regionSpecs,
		},
		"relationships": c.Relationships,
		"monitor": map[string]interface{}{
			"enabled":                 c.Monitor.Enabled,
			"interval":                c.Monitor.Interval.String(),
			"hit_ratio_threshold":     c.Monitor.HitRatioThreshold,
			"error_rate_threshold":    c.Monitor.ErrorRateThreshold,
			"response_time_threshold": c.Monitor.ResponseTimeThreshold.String(),
			"alert_cooldown":          c.Monitor.AlertCooldown.String(),
		},
		"warmup": map[string]interface{}{
			"enabled":       c.Warmup.Enabled,
			"hot_set_limit": c.Warmup.HotSetLimit,
		},
		"advisor": map[string]interface{}{
			"enabled":          c.Advisor.Enabled,
			"interval":         c.Advisor.Interval.String(),
			"max_local_size":   c.Advisor.MaxLocalSize,
			"high_water_ratio": c.Advisor.HighWaterRatio,
		},
		"metrics": map[string]interface{}{
			"enabled": c.Metrics.Enabled,
			"path":    c.Metrics.Path,
		},
	}
}

// parseRegions parses a "name:size:ttl" CSV region list.
func parseRegions(spec string) ([]RegionSpec, error) {
	var regions []RegionSpec
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		fields := strings.Split(part, ":")
		if len(fields) != 3 {
			return nil, fmt.Errorf("invalid region spec %q: want name:size:ttl", part)
		}

		size, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("invalid region size in %q: %w", part, err)
		}

		ttl, err := time.ParseDuration(fields[2])
		if err != nil {
			return nil, fmt.Errorf("invalid region TTL in %q: %w", part, err)
		}

		regions = append(regions, RegionSpec{
			Name:    fields[0],
			MaxSize: size,
			TTL:     ttl,
		})
	}
	return regions, nil
}

// parseRelationships parses "entity=region1|region2;entity2=region3".
func parseRelationships(spec string) (RelationshipConfig, error) {
	relationships := make(RelationshipConfig)
	for _, part := range strings.Split(spec, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		entity, regions, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("invalid relationship spec %q: want entity=region|region", part)
		}

		names := strings.Split(regions, "|")
		cleaned := make([]string, 0, len(names))
		for _, name := range names {
			name = strings.TrimSpace(name)
			if name != "" {
				cleaned = append(cleaned, name)
			}
		}
		if len(cleaned) == 0 {
			return nil, fmt.Errorf("relationship for entity %q maps to no regions", entity)
		}

		relationships[strings.TrimSpace(entity)] = cleaned
	}
	return relationships, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	return fmt.Sprintf("<set, %d chars>", len(s))
}

func maskURL(s string) string {
	if s == "" {
		return "<not set>"
	}
	return "<set>"
}
