package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Cache is the read-path cache.
// Redis when enabled, otherwise an in-process go-cache. L1 is per-process, so
// with Redis on it is bypassed and InvalidateDate reaches every process.
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	local  *gocache.Cache
	prefix string
	ttl    time.Duration
}

// NewCache creates a cache helper. ttl applies to either backend.
func NewCache(client *Client, prefix string, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = TTLMedium
	}
	return &Cache{
		client: client,
		local:  gocache.New(ttl, 2*ttl),
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *Cache) fullKey(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a cached value into dest
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	fullKey := c.fullKey(key)

	if !c.client.Enabled() {
		raw, ok := c.local.Get(fullKey)
		if !ok {
			return false, nil
		}
		if err := json.Unmarshal(raw.([]byte), dest); err != nil {
			return false, fmt.Errorf("cache unmarshal failed: %w", err)
		}
		return true, nil
	}

	data, err := c.client.Redis().Get(ctx, fullKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("cache get failed: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}
	return true, nil
}

// Set stores a value in the active backend
func (c *Cache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	fullKey := c.fullKey(key)
	if !c.client.Enabled() {
		c.local.SetDefault(fullKey, data)
		return nil
	}
	return c.client.Redis().Set(ctx, fullKey, data, c.ttl).Err()
}

// GetOrSet retrieves from cache or calls fn to populate it.
// A failed cache write never fails the read.
func (c *Cache) GetOrSet(ctx context.Context, key string, dest interface{}, fn func() (interface{}, error)) error {
	found, err := c.Get(ctx, key, dest)
	if err == nil && found {
		return nil
	}

	value, err := fn()
	if err != nil {
		return err
	}

	_ = c.Set(ctx, key, value)

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}
	return json.Unmarshal(data, dest)
}

// InvalidateDate drops every entry keyed under the given trade date.
// 파이프라인이 날짜를 재계산한 직후 호출
func (c *Cache) InvalidateDate(ctx context.Context, date string) error {
	marker := fmt.Sprintf(":%s:", date)
	for k := range c.local.Items() {
		if strings.Contains(k, marker) {
			c.local.Delete(k)
		}
	}

	if !c.client.Enabled() {
		return nil
	}

	pattern := c.fullKey("*" + marker + "*")
	iter := c.client.Redis().Scan(ctx, 0, pattern, 200).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan failed: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Redis().Del(ctx, keys...).Err()
}

// TTLMedium is the default API cache TTL
const TTLMedium = 10 * time.Minute

// BoardRankingKey identifies one ranking view for a date
func BoardRankingKey(date, metric string, k float64, limit int, includeGray bool) string {
	return fmt.Sprintf("ranking:%s:%s:k%g:n%d:g%t", date, metric, k, limit, includeGray)
}

// StockSignalKey identifies one stock's signal for a date
func StockSignalKey(code, date string) string {
	return fmt.Sprintf("signal:%s:%s", date, code)
}

// OutlierKey identifies one outlier view for a date
func OutlierKey(kind, date string) string {
	return fmt.Sprintf("outlier:%s:%s", date, kind)
}
