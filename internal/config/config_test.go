package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

var envKeys = []string{
	"SERVER_HTTP_PORT", "SERVER_GRACEFUL_TIMEOUT",
	"REDIS_ADDRESSES", "REDIS_PASSWORD", "REDIS_DB", "REDIS_POOL_SIZE",
	"REDIS_CLUSTER_MODE", "REDIS_DIAL_TIMEOUT", "REDIS_READ_TIMEOUT",
	"REDIS_WRITE_TIMEOUT", "REDIS_OP_TIMEOUT",
	"BROKER_TYPE", "BROKER_URL", "BROKER_TOPIC", "BROKER_GROUP_ID",
	"CACHE_DEFAULT_TTL", "CACHE_EVICTION_POLICY", "CACHE_REGIONS",
	"RELATIONSHIP_MAP",
	"MONITOR_ALERTING_ENABLED", "MONITOR_INTERVAL", "MONITOR_HIT_RATIO_THRESHOLD",
	"MONITOR_ERROR_RATE_THRESHOLD", "MONITOR_RESPONSE_TIME_THRESHOLD",
	"MONITOR_ALERT_COOLDOWN",
	"WARMUP_ENABLED", "WARMUP_HOT_SET_LIMIT",
	"ADVISOR_ENABLED", "ADVISOR_INTERVAL", "ADVISOR_MAX_LOCAL_SIZE",
	"ADVISOR_HIGH_WATER_RATIO",
	"METRICS_ENABLED", "METRICS_PATH",
}

func clearEnv() {
	for _, key := range envKeys {
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv()
	defer clearEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPPort != 8080 {
		t.Errorf("HTTPPort = %d, want 8080", cfg.Server.HTTPPort)
	}
	if cfg.Server.GracefulTimeout != 30*time.Second {
		t.Errorf("GracefulTimeout = %v, want 30s", cfg.Server.GracefulTimeout)
	}
	if len(cfg.Redis.Addresses) != 1 || cfg.Redis.Addresses[0] != "localhost:6379" {
		t.Errorf("Redis.Addresses = %v, want [localhost:6379]", cfg.Redis.Addresses)
	}
	if cfg.Redis.OpTimeout != 200*time.Millisecond {
		t.Errorf("Redis.OpTimeout = %v, want 200ms", cfg.Redis.OpTimeout)
	}
	if cfg.Broker.Type != "none" {
		t.Errorf("Broker.Type = %s, want none", cfg.Broker.Type)
	}
	if cfg.Cache.EvictionPolicy != "lru" {
		t.Errorf("Cache.EvictionPolicy = %s, want lru", cfg.Cache.EvictionPolicy)
	}
	if len(cfg.Cache.Regions) != 5 {
		t.Errorf("len(Cache.Regions) = %d, want 5", len(cfg.Cache.Regions))
	}
	if cfg.Cache.Regions[0].Name != "products" || cfg.Cache.Regions[0].MaxSize != 10000 || cfg.Cache.Regions[0].TTL != time.Hour {
		t.Errorf("Regions[0] = %+v, want products:10000:1h", cfg.Cache.Regions[0])
	}
	if regions := cfg.Relationships["product"]; len(regions) != 3 {
		t.Errorf("Relationships[product] = %v, want 3 regions", regions)
	}
	if !cfg.Monitor.Enabled {
		t.Error("Monitor.Enabled = false, want true")
	}
	if cfg.Monitor.HitRatioThreshold != 0.8 {
		t.Errorf("Monitor.HitRatioThreshold = %v, want 0.8", cfg.Monitor.HitRatioThreshold)
	}
	if cfg.Monitor.ErrorRateThreshold != 0.05 {
		t.Errorf("Monitor.ErrorRateThreshold = %v, want 0.05", cfg.Monitor.ErrorRateThreshold)
	}
	if cfg.Monitor.ResponseTimeThreshold != 100*time.Millisecond {
		t.Errorf("Monitor.ResponseTimeThreshold = %v, want 100ms", cfg.Monitor.ResponseTimeThreshold)
	}
	if cfg.Monitor.AlertCooldown != 0 {
		t.Errorf("Monitor.AlertCooldown = %v, want 0", cfg.Monitor.AlertCooldown)
	}
	if cfg.Warmup.HotSetLimit != 1000 {
		t.Errorf("Warmup.HotSetLimit = %d, want 1000", cfg.Warmup.HotSetLimit)
	}
	if cfg.Advisor.Interval != 4*time.Hour {
		t.Errorf("Advisor.Interval = %v, want 4h", cfg.Advisor.Interval)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want true")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv()
	defer clearEnv()

	os.Setenv("SERVER_HTTP_PORT", "9090")
	os.Setenv("REDIS_ADDRESSES", "redis1:6379,redis2:6379")
	os.Setenv("REDIS_CLUSTER_MODE", "true")
	os.Setenv("BROKER_TYPE", "kafka")
	os.Setenv("BROKER_URL", "kafka:9092")
	os.Setenv("CACHE_EVICTION_POLICY", "lfu")
	os.Setenv("CACHE_REGIONS", "sessions:500:15m")
	os.Setenv("RELATIONSHIP_MAP", "session=sessions")
	os.Setenv("MONITOR_HIT_RATIO_THRESHOLD", "0.6")
	os.Setenv("MONITOR_ALERT_COOLDOWN", "5m")
	os.Setenv("WARMUP_HOT_SET_LIMIT", "250")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPPort != 9090 {
		t.Errorf("HTTPPort = %d, want 9090", cfg.Server.HTTPPort)
	}
	if len(cfg.Redis.Addresses) != 2 {
		t.Errorf("Redis.Addresses len = %d, want 2", len(cfg.Redis.Addresses))
	}
	if !cfg.Redis.ClusterMode {
		t.Error("Redis.ClusterMode = false, want true")
	}
	if cfg.Broker.Type != "kafka" || cfg.Broker.URL != "kafka:9092" {
		t.Errorf("Broker = %+v, want kafka at kafka:9092", cfg.Broker)
	}
	if len(cfg.Cache.Regions) != 1 {
		t.Fatalf("len(Cache.Regions) = %d, want 1", len(cfg.Cache.Regions))
	}
	r := cfg.Cache.Regions[0]
	if r.Name != "sessions" || r.MaxSize != 500 || r.TTL != 15*time.Minute {
		t.Errorf("Regions[0] = %+v, want sessions:500:15m", r)
	}
	if regions := cfg.Relationships["session"]; len(regions) != 1 || regions[0] != "sessions" {
		t.Errorf("Relationships[session] = %v, want [sessions]", regions)
	}
	if cfg.Monitor.HitRatioThreshold != 0.6 {
		t.Errorf("Monitor.HitRatioThreshold = %v, want 0.6", cfg.Monitor.HitRatioThreshold)
	}
	if cfg.Monitor.AlertCooldown != 5*time.Minute {
		t.Errorf("Monitor.AlertCooldown = %v, want 5m", cfg.Monitor.AlertCooldown)
	}
	if cfg.Warmup.HotSetLimit != 250 {
		t.Errorf("Warmup.HotSetLimit = %d, want 250", cfg.Warmup.HotSetLimit)
	}
}

func TestLoad_MalformedRegionSpec(t *testing.T) {
	clearEnv()
	defer clearEnv()

	for _, spec := range []string{
		"products:1h",       // missing field
		"products:abc:1h",   // non-numeric size
		"products:100:soon", // bad duration
	} {
		os.Setenv("CACHE_REGIONS", spec)
		if _, err := Load(); err == nil {
			t.Errorf("Load() with CACHE_REGIONS=%q: want error", spec)
		}
	}
}

func TestLoad_MalformedRelationshipSpec(t *testing.T) {
	clearEnv()
	defer clearEnv()

	for _, spec := range []string{
		"product",    // missing regions
		"product=|",  // maps to no regions
		"product= | ", // blank region names
	} {
		os.Setenv("RELATIONSHIP_MAP", spec)
		if _, err := Load(); err == nil {
			t.Errorf("Load() with RELATIONSHIP_MAP=%q: want error", spec)
		}
	}
}

func TestLoad_RelationshipToUnknownRegion(t *testing.T) {
	clearEnv()
	defer clearEnv()

	os.Setenv("CACHE_REGIONS", "products:100:1h")
	os.Setenv("RELATIONSHIP_MAP", "product=products|reviews")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() with dangling relationship: want error")
	}
	if !strings.Contains(err.Error(), "reviews") {
		t.Errorf("error %q does not name the unknown region", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	clearEnv()
	defer clearEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	cfg.Server.HTTPPort = 0
	cfg.Redis.Addresses = nil
	cfg.Broker.Type = "pigeon"
	cfg.Cache.EvictionPolicy = "random"
	cfg.Advisor.HighWaterRatio = 2.0

	err = cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want aggregated error")
	}
	for _, fragment := range []string{"SERVER_HTTP_PORT", "REDIS_ADDRESSES", "BROKER_TYPE", "CACHE_EVICTION_POLICY", "ADVISOR_HIGH_WATER_RATIO"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Errorf("Validate() error missing %q: %v", fragment, err)
		}
	}
}

func TestValidate_BrokerNeedsURL(t *testing.T) {
	clearEnv()
	defer clearEnv()

	os.Setenv("BROKER_TYPE", "rabbitmq")

	if _, err := Load(); err == nil {
		t.Fatal("Load() with broker but no URL: want error")
	}
}

func TestLogSafe_MasksSecrets(t *testing.T) {
	clearEnv()
	defer clearEnv()

	os.Setenv("REDIS_PASSWORD", "super-secret")
	os.Setenv("BROKER_TYPE", "rabbitmq")
	os.Setenv("BROKER_URL", "amqp://user:hunter2@mq:5672/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	safe := cfg.LogSafe()

	redis := safe["redis"].(map[string]interface{})
	if pw := redis["password"].(string); strings.Contains(pw, "super-secret") {
		t.Errorf("password leaked into LogSafe output: %q", pw)
	}

	broker := safe["broker"].(map[string]interface{})
	if url := broker["url"].(string); strings.Contains(url, "hunter2") {
		t.Errorf("broker credentials leaked into LogSafe output: %q", url)
	}
}
