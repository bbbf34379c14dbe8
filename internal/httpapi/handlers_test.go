package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commerce-platform/cache-coordinator/internal/cache"
	"github.com/commerce-platform/cache-coordinator/internal/invalidation"
	"github.com/commerce-platform/cache-coordinator/internal/warmup"
)

// memoryDistributed is an in-memory distributed-tier stand-in.
type memoryDistributed struct {
	mu      sync.Mutex
	data    map[string][]byte
	failing bool
}

func newMemoryDistributed() *memoryDistributed {
	return &memoryDistributed{data: make(map[string][]byte)}
}

func (m *memoryDistributed) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.data[key]
	if !ok {
		return nil, cache.ErrNotFound
	}
	return value, nil
}

func (m *memoryDistributed) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memoryDistributed) Del(ctx context.Context, keys ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, key := range keys {
		if _, ok := m.data[key]; ok {
			delete(m.data, key)
			n++
		}
	}
	return n, nil
}

func (m *memoryDistributed) DelPattern(ctx context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var n int64
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			delete(m.data, key)
			n++
		}
	}
	return n, nil
}

func (m *memoryDistributed) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errors.New("connection refused")
	}
	return nil
}

func (m *memoryDistributed) Close() error { return nil }

type testServer struct {
	router http.Handler
	dist   *memoryDistributed
	coord  *cache.Coordinator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dist := newMemoryDistributed()
	registry, err := cache.NewRegistry([]cache.RegionConfig{
		{Name: "products", MaxSize: 100, DefaultTTL: time.Hour},
		{Name: "search", MaxSize: 100, DefaultTTL: 10 * time.Minute},
	})
	require.NoError(t, err)

	coord := cache.NewCoordinator(registry, dist, nil)
	t.Cleanup(func() { _ = coord.Close() })

	engine := invalidation.NewEngine(
		map[string][]string{"product": {"products", "search"}},
		coord, invalidation.NewNoopBroker(), "cache-invalidation", "test-origin", nil,
	)

	orchestrator := warmup.NewOrchestrator(coord, map[string]warmup.Source{
		"products": warmup.SourceFunc(func(ctx context.Context, limit int) (map[string][]byte, error) {
			return map[string][]byte{"sku-1": []byte("warm")}, nil
		}),
	}, 100, nil)

	handler := NewHandler(coord, engine, orchestrator, invalidation.NewNoopBroker(), nil)
	router := NewRouter(handler, RouterConfig{RequestTimeout: 5 * time.Second})

	return &testServer{router: router, dist: dist, coord: coord}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status cache.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Healthy)
	assert.Equal(t, "healthy", status.TierStatus)
	assert.Equal(t, "healthy", status.BrokerStatus)
	assert.Equal(t, 2, status.Regions)
}

func TestHealthEndpoint_TierDown(t *testing.T) {
	s := newTestServer(t)
	s.dist.failing = true

	rec := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRegionsEndpoint(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.coord.Put(context.Background(), "products", "sku-1", []byte("v"), 0))

	rec := s.do(t, http.MethodGet, "/api/v1/regions", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats []cache.RegionStatistics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Len(t, stats, 2)
	assert.Equal(t, "products", stats[0].Region)
	assert.Equal(t, 1, stats[0].SizeEstimate)
}

func TestClearRegionEndpoint(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, s.coord.Put(ctx, "products", "sku-1", []byte("v"), 0))

	rec := s.do(t, http.MethodDelete, "/api/v1/regions/products", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, ok := s.coord.Get(ctx, "products", "sku-1")
	assert.False(t, ok)

	rec = s.do(t, http.MethodDelete, "/api/v1/regions/unknown", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvictEndpoint(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, s.coord.Put(ctx, "products", "sku-1", []byte("v"), 0))

	rec := s.do(t, http.MethodDelete, "/api/v1/regions/products/keys/sku-1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, ok := s.coord.Get(ctx, "products", "sku-1")
	assert.False(t, ok)
}

func TestWarmupEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/regions/products/warmup", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var job warmup.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, "products", job.Region)
	assert.Equal(t, 1, job.ItemsLoaded)

	// The preloaded entry is readable through the coordinator.
	value, ok := s.coord.Get(context.Background(), "products", "sku-1")
	require.True(t, ok)
	assert.Equal(t, []byte("warm"), value)

	rec = s.do(t, http.MethodGet, "/api/v1/warmup/jobs", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var jobs []warmup.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &jobs))
	assert.Len(t, jobs, 1)

	// No source registered for this region.
	rec = s.do(t, http.MethodPost, "/api/v1/regions/search/warmup", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInvalidateEndpoint(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, s.coord.Put(ctx, "products", "sku-1", []byte("v"), 0))
	require.NoError(t, s.coord.Put(ctx, "search", "q-1", []byte("results"), 0))

	rec := s.do(t, http.MethodPost, "/api/v1/invalidations", `{"entity_type":"product","entity_id":"42"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp InvalidateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "product", resp.EntityType)
	assert.ElementsMatch(t, []string{"products", "search"}, resp.Regions)

	_, ok := s.coord.Get(ctx, "products", "sku-1")
	assert.False(t, ok)
	_, ok = s.coord.Get(ctx, "search", "q-1")
	assert.False(t, ok)
}

func TestInvalidateEndpoint_BadRequests(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/invalidations", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/invalidations", `{"entity_id":"42"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRelationshipEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/relationships", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var relationships map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &relationships))
	assert.Equal(t, []string{"products", "search"}, relationships["product"])

	rec = s.do(t, http.MethodPut, "/api/v1/relationships", `{"category":["search"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/relationships", "")
	relationships = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &relationships))
	assert.Equal(t, []string{"search"}, relationships["category"])
	assert.NotContains(t, relationships, "product")
}

func TestReconfigureRelationships_Validation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPut, "/api/v1/relationships", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/v1/relationships", `{"product":["reviews"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "reviews")
}
