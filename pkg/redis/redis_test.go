package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/boardheat/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	cfg := &config.Config{Redis: config.RedisConfig{Enabled: false}}

	client, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Close())
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(Disabled(), "test")
	cfg := APIRateLimit("127.0.0.1", 20, 40)

	allowed, remaining, err := limiter.Allow(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 40, remaining)
	assert.False(t, limiter.Enabled())
}

func TestAPIRateLimit(t *testing.T) {
	tests := []struct {
		name      string
		rps       float64
		burst     int
		wantLimit int
	}{
		{"burst wins", 20, 40, 40},
		{"rps fallback", 5, 0, 5},
		{"floor of one", 0.5, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := APIRateLimit("c", tt.rps, tt.burst)
			assert.Equal(t, tt.wantLimit, cfg.Limit)
			assert.Equal(t, time.Second, cfg.Window)
			assert.Equal(t, "api:c", cfg.Key)
		})
	}
}

func TestCache_LocalOnly(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(Disabled(), "test", time.Minute)

	type payload struct {
		Code  string  `json:"code"`
		Score float64 `json:"score"`
	}

	var got payload
	found, err := cache.Get(ctx, StockSignalKey("005930", "2026-01-08"), &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.Set(ctx, StockSignalKey("005930", "2026-01-08"), payload{"005930", 0.91}))

	found, err = cache.Get(ctx, StockSignalKey("005930", "2026-01-08"), &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload{"005930", 0.91}, got)
}

func TestCache_GetOrSet(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(Disabled(), "test", time.Minute)

	calls := 0
	load := func() (interface{}, error) {
		calls++
		return []string{"a", "b"}, nil
	}

	var first, second []string
	require.NoError(t, cache.GetOrSet(ctx, "k:2026-01-08:x", &first, load))
	require.NoError(t, cache.GetOrSet(ctx, "k:2026-01-08:x", &second, load))

	assert.Equal(t, []string{"a", "b"}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestCache_InvalidateDate(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(Disabled(), "test", time.Minute)

	require.NoError(t, cache.Set(ctx, StockSignalKey("A", "2026-01-08"), 1))
	require.NoError(t, cache.Set(ctx, StockSignalKey("A", "2026-01-09"), 2))
	require.NoError(t, cache.InvalidateDate(ctx, "2026-01-08"))

	var v int
	found, _ := cache.Get(ctx, StockSignalKey("A", "2026-01-08"), &v)
	assert.False(t, found)
	found, _ = cache.Get(ctx, StockSignalKey("A", "2026-01-09"), &v)
	assert.True(t, found)
	assert.Equal(t, 2, v)
}

func TestCache_RedisEnabledBypassesLocal(t *testing.T) {
	ctx := context.Background()
	// 닫힌 포트: 모든 Redis 호출이 실패
	dead := &Client{
		rdb: redis.NewClient(&redis.Options{
			Addr:        "127.0.0.1:1",
			DialTimeout: 50 * time.Millisecond,
			MaxRetries:  -1,
		}),
		enabled: true,
	}
	t.Cleanup(func() { _ = dead.Close() })
	cache := NewCache(dead, "test", time.Minute)

	assert.Error(t, cache.Set(ctx, StockSignalKey("A", "2026-01-08"), 1))
	assert.Zero(t, cache.local.ItemCount())

	var v int
	found, err := cache.Get(ctx, StockSignalKey("A", "2026-01-08"), &v)
	assert.Error(t, err)
	assert.False(t, found)
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "signal:2026-01-08:005930", StockSignalKey("005930", "2026-01-08"))
	assert.Equal(t, "ranking:2026-01-08:B1:k1.618:n50:gfalse", BoardRankingKey("2026-01-08", "B1", 1.618, 50, false))
	assert.Equal(t, "outlier:2026-01-08:rank-jump", OutlierKey("rank-jump", "2026-01-08"))
}
