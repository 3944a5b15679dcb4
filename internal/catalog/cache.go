package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tbourn/go-cartoon-bot/internal/config"
)

// CountCache stores discover total-page counts per query. Only counts are
// cached; catalog items are always fetched fresh.
type CountCache interface {
	GetCount(ctx context.Context, key string) (n int, ok bool, err error)
	SetCount(ctx context.Context, key string, n int, ttl time.Duration) error
}

// NewRedis creates a Redis client and verifies connectivity.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// RedisCountCache is a CountCache on top of go-redis.
type RedisCountCache struct {
	rdb    redis.Cmdable
	prefix string
}

// NewRedisCountCache returns a cache writing keys under prefix
// (default "catalog:pages:").
func NewRedisCountCache(rdb redis.Cmdable, prefix string) *RedisCountCache {
	if prefix == "" {
		prefix = "catalog:pages:"
	}
	return &RedisCountCache{rdb: rdb, prefix: prefix}
}

// GetCount implements CountCache. A missing key is (0, false, nil).
func (c *RedisCountCache) GetCount(ctx context.Context, key string) (int, bool, error) {
	n, err := c.rdb.Get(ctx, c.prefix+key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// SetCount implements CountCache.
func (c *RedisCountCache) SetCount(ctx context.Context, key string, n int, ttl time.Duration) error {
	return c.rdb.Set(ctx, c.prefix+key, n, ttl).Err()
}

// CacheKey is a stable key for the filter part of q. Set-valued fields are
// sorted so that equal sets hash to the same key.
func (q Query) CacheKey() string {
	langs := append([]string(nil), q.Filter.ExcludedLanguages...)
	countries := append([]string(nil), q.Filter.CertificationCountries...)
	sort.Strings(langs)
	sort.Strings(countries)
	return strings.Join([]string{
		strconv.Itoa(q.Filter.GenreID),
		strconv.FormatFloat(q.Filter.MinRating, 'f', -1, 64),
		q.AgeRating,
		strings.Join(langs, ","),
		strings.Join(countries, ","),
	}, "|")
}
