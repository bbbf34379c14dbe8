package cache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commerce-platform/cache-coordinator/internal/cache"
	"github.com/commerce-platform/cache-coordinator/internal/localcache"
)

func TestNewRegistry_Validation(t *testing.T) {
	tests := []struct {
		name    string
		configs []cache.RegionConfig
		wantErr bool
	}{
		{"empty", nil, true},
		{"valid", []cache.RegionConfig{{Name: "products", MaxSize: 10, DefaultTTL: time.Hour}}, false},
		{"empty name", []cache.RegionConfig{{Name: "", MaxSize: 10, DefaultTTL: time.Hour}}, true},
		{"colon in name", []cache.RegionConfig{{Name: "a:b", MaxSize: 10, DefaultTTL: time.Hour}}, true},
		{"slash in name", []cache.RegionConfig{{Name: "a/b", MaxSize: 10, DefaultTTL: time.Hour}}, true},
		{"duplicate name", []cache.RegionConfig{
			{Name: "products", MaxSize: 10, DefaultTTL: time.Hour},
			{Name: "products", MaxSize: 20, DefaultTTL: time.Hour},
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry, err := cache.NewRegistry(tt.configs)
			if tt.wantErr {
				assert.ErrorIs(t, err, cache.ErrInvalidRegion)
				return
			}
			require.NoError(t, err)
			registry.Close()
		})
	}
}

func TestRegistry_Lookup(t *testing.T) {
	registry, err := cache.NewRegistry([]cache.RegionConfig{
		{Name: "users", MaxSize: 10, DefaultTTL: 30 * time.Minute},
		{Name: "products", MaxSize: 20, DefaultTTL: time.Hour},
	})
	require.NoError(t, err)
	defer registry.Close()

	region, err := registry.Get("users")
	require.NoError(t, err)
	assert.Equal(t, "users", region.Name())
	assert.Equal(t, 30*time.Minute, region.DefaultTTL())

	_, err = registry.Get("absent")
	assert.ErrorIs(t, err, cache.ErrUnknownRegion)

	assert.Equal(t, 2, registry.Len())
	assert.Equal(t, []string{"products", "users"}, registry.Names())
}

func TestRegion_AdminMutators(t *testing.T) {
	registry, err := cache.NewRegistry([]cache.RegionConfig{
		{Name: "products", MaxSize: 10, DefaultTTL: time.Hour, Policy: localcache.PolicyLRU},
	})
	require.NoError(t, err)
	defer registry.Close()

	region, err := registry.Get("products")
	require.NoError(t, err)

	region.Resize(50)
	assert.Equal(t, 50, region.Local().MaxSize())

	region.SetDefaultTTL(10 * time.Minute)
	assert.Equal(t, 10*time.Minute, region.DefaultTTL())

	region.SetPolicy(localcache.PolicyLFU)
	assert.Equal(t, localcache.PolicyLFU, region.Local().EvictionPolicy())
}

func TestRegion_EvictionsCounted(t *testing.T) {
	registry, err := cache.NewRegistry([]cache.RegionConfig{
		{Name: "tiny", MaxSize: 2, DefaultTTL: time.Hour},
	})
	require.NoError(t, err)
	defer registry.Close()

	region, err := registry.Get("tiny")
	require.NoError(t, err)

	region.Local().Set("a", []byte("1"), 0)
	region.Local().Set("b", []byte("2"), 0)
	region.Local().Set("c", []byte("3"), 0)

	snap := region.Snapshot()
	assert.Equal(t, int64(1), snap.EvictionCount)
	assert.Equal(t, 2, snap.SizeEstimate)
}
